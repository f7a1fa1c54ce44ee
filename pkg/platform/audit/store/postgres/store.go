package postgres

import (
	"context"
	"database/sql"
	"fmt"

	audit "docverify/pkg/platform/audit"
	txcontext "docverify/pkg/platform/tx"

	"github.com/google/uuid"
)

// Schema creates the audit table. Migrate applies it idempotently.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id              UUID PRIMARY KEY,
	category        TEXT NOT NULL,
	timestamp       TIMESTAMPTZ NOT NULL,
	action          TEXT NOT NULL,
	verification_id TEXT NOT NULL DEFAULT '',
	document_type   TEXT NOT NULL DEFAULT '',
	decision        TEXT NOT NULL DEFAULT '',
	confidence      DOUBLE PRECISION NOT NULL DEFAULT 0,
	request_id      TEXT NOT NULL DEFAULT '',
	client_id       TEXT NOT NULL DEFAULT '',
	client_ip       TEXT NOT NULL DEFAULT '',
	client_software TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS audit_events_verification_idx ON audit_events (verification_id);
CREATE INDEX IF NOT EXISTS audit_events_timestamp_idx ON audit_events (timestamp DESC);
`

// Store implements audit.Store on the audit_events table.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the audit table and its indexes when missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("migrate audit_events: %w", err)
	}
	return nil
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Append inserts an event. Inserts are idempotent on the event ID so
// redelivered stream messages are ignored.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}

	query := `
		INSERT INTO audit_events (
			id, category, timestamp, action, verification_id, document_type,
			decision, confidence, request_id, client_id, client_ip, client_software
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		event.ID,
		string(event.Category),
		event.Timestamp,
		event.Action,
		event.VerificationID,
		event.DocumentType,
		event.Decision,
		event.Confidence,
		event.RequestID,
		event.ClientID,
		event.ClientIP,
		event.ClientSoftware,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// AppendBatch inserts events in one transaction.
func (s *Store) AppendBatch(ctx context.Context, events []audit.Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin audit batch: %w", err)
	}
	txCtx := txcontext.WithTx(ctx, tx)
	for _, event := range events {
		if err := s.Append(txCtx, event); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit audit batch: %w", err)
	}
	return nil
}

const selectColumns = `
	SELECT id, category, timestamp, action, verification_id, document_type,
		   decision, confidence, request_id, client_id, client_ip, client_software
	FROM audit_events
`

// ListByVerification returns events for one verification, oldest first.
func (s *Store) ListByVerification(ctx context.Context, verificationID string) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+`WHERE verification_id = $1 ORDER BY timestamp ASC`, verificationID)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ListRecent returns the N most recent events.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+`ORDER BY timestamp DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event
	for rows.Next() {
		var (
			event    audit.Event
			category string
		)
		err := rows.Scan(
			&event.ID,
			&category,
			&event.Timestamp,
			&event.Action,
			&event.VerificationID,
			&event.DocumentType,
			&event.Decision,
			&event.Confidence,
			&event.RequestID,
			&event.ClientID,
			&event.ClientIP,
			&event.ClientSoftware,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Category = audit.EventCategory(category)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
