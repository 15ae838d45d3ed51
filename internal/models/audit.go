package models

import "time"

type EventType string

const (
	EventLoginSuccess EventType = "LOGIN_SUCCESS"
	EventLoginFailed  EventType = "LOGIN_FAILED"
	EventAccessDenied EventType = "ACCESS_DENIED"
)

// UnknownUsername is recorded when the actor of an event is not identified.
const UnknownUsername = "Unknown"

type AuditLog struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	EventType EventType `json:"event_type"`
	IPAddress string    `json:"ip_address"`
	Timestamp time.Time `json:"timestamp"`
}
