// Package audit persists the append-only security event log.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"rolegate/internal/database"
	"rolegate/internal/models"
)

// Execer is satisfied by both *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type Logger struct {
	db  *database.DB
	now func() time.Time
}

func NewLogger(db *database.DB) *Logger {
	return &Logger{db: db, now: time.Now}
}

// Record appends a single entry stamped with the current UTC time.
func (l *Logger) Record(ctx context.Context, username string, event models.EventType, ip string) error {
	return l.insert(ctx, l.db, username, event, ip)
}

// RecordTx appends an entry as part of tx, so it commits or rolls back with
// the caller's other writes.
func (l *Logger) RecordTx(ctx context.Context, tx *sql.Tx, username string, event models.EventType, ip string) error {
	return l.insert(ctx, tx, username, event, ip)
}

func (l *Logger) insert(ctx context.Context, ex Execer, username string, event models.EventType, ip string) error {
	_, err := ex.ExecContext(ctx,
		"INSERT INTO audit_logs (username, event_type, ip_address, timestamp) VALUES (?, ?, ?, ?)",
		username, string(event), ip, l.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (l *Logger) Recent(ctx context.Context, limit int) ([]models.AuditLog, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, username, event_type, ip_address, timestamp
		FROM audit_logs
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()

	var logs []models.AuditLog
	for rows.Next() {
		var entry models.AuditLog
		if err := rows.Scan(&entry.ID, &entry.Username, &entry.EventType, &entry.IPAddress, &entry.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		entry.Timestamp = entry.Timestamp.UTC()
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

// Count returns the number of entries, optionally filtered by event type.
// The audit-logs page shows it next to the listed entries.
func (l *Logger) Count(ctx context.Context, event models.EventType) (int, error) {
	query := "SELECT COUNT(*) FROM audit_logs"
	var args []any
	if event != "" {
		query += " WHERE event_type = ?"
		args = append(args, string(event))
	}

	var n int
	if err := l.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count audit logs: %w", err)
	}
	return n, nil
}
