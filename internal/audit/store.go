// Package audit keeps a PostgreSQL record of start, stop and restart
// requests sent to providers.
package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cloudwise/internal/models"

	"github.com/google/uuid"
)

var ErrAuditWriteFailed = errors.New("DATABASE_INSERT_FAILED")

const schema = `
CREATE TABLE IF NOT EXISTS instance_actions (
	id             UUID PRIMARY KEY,
	request_id     TEXT NOT NULL DEFAULT '',
	platform       TEXT NOT NULL,
	resource_id    TEXT NOT NULL,
	action         TEXT NOT NULL,
	status         TEXT NOT NULL,
	message        TEXT NOT NULL DEFAULT '',
	previous_state TEXT NOT NULL DEFAULT '',
	current_state  TEXT NOT NULL DEFAULT '',
	occurred_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS instance_actions_resource_idx ON instance_actions (platform, resource_id, occurred_at DESC);`

type Logger interface {
	Info(msg string, fields map[string]interface{})
}

// PostgresStore writes one row per action event.
type PostgresStore struct {
	db     *sql.DB
	logger Logger
}

func NewPostgresStore(db *sql.DB, log Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: log}
}

// EnsureSchema creates the table when it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("%w: create instance_actions: %v", ErrAuditWriteFailed, err)
	}
	return nil
}

// Record implements the dispatcher's action observer.
func (s *PostgresStore) Record(ctx context.Context, event models.ActionEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO instance_actions (
			id, request_id, platform, resource_id, action,
			status, message, previous_state, current_state, occurred_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		event.ID,
		event.RequestID,
		event.Platform,
		event.ResourceID,
		event.Action,
		event.Status,
		event.Message,
		event.PreviousState,
		event.CurrentState,
		event.OccurredAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("%w: insert failed: %v", ErrAuditWriteFailed, err)
	}

	s.logger.Info("Action recorded", map[string]interface{}{
		"eventId":    event.ID,
		"platform":   event.Platform,
		"resourceId": event.ResourceID,
		"action":     event.Action,
		"status":     event.Status,
	})
	return nil
}

// Recent returns the latest events for a resource, newest first. An empty
// resourceID lists every resource.
func (s *PostgresStore) Recent(ctx context.Context, platform, resourceID string, limit int) ([]models.ActionEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, request_id, platform, resource_id, action,
		       status, message, previous_state, current_state, occurred_at
		FROM instance_actions
		WHERE ($1 = '' OR platform = $1) AND ($2 = '' OR resource_id = $2)
		ORDER BY occurred_at DESC
		LIMIT $3`, platform, resourceID, limit)
	if err != nil {
		return nil, fmt.Errorf("query instance_actions: %w", err)
	}
	defer rows.Close()

	events := []models.ActionEvent{}
	for rows.Next() {
		var e models.ActionEvent
		if err := rows.Scan(&e.ID, &e.RequestID, &e.Platform, &e.ResourceID, &e.Action,
			&e.Status, &e.Message, &e.PreviousState, &e.CurrentState, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan instance_actions: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
