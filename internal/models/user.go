package models

import (
	"errors"
	"time"
)

var ErrInvalidRole = errors.New("invalid role")

type Role string

const (
	RoleAdmin    Role = "Admin"
	RoleEmployee Role = "Employee"
	RoleUser     Role = "User"
)

// Roles is the closed set of roles a user may hold.
var Roles = []Role{RoleAdmin, RoleEmployee, RoleUser}

func ParseRole(s string) (Role, error) {
	for _, r := range Roles {
		if string(r) == s {
			return r, nil
		}
	}
	return "", ErrInvalidRole
}

// Satisfies reports whether r passes a gate requiring the given role.
// Admin satisfies every gate.
func (r Role) Satisfies(required Role) bool {
	return r == required || r == RoleAdmin
}

type User struct {
	ID            int64      `json:"id"`
	Username      string     `json:"username"`
	PasswordHash  string     `json:"-"`
	Role          Role       `json:"role"`
	LastLoginIP   string     `json:"last_login_ip,omitempty"`
	LastLoginTime *time.Time `json:"last_login_time,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}
