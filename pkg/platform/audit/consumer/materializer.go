// Package consumer materializes the audit topic into a queryable store.
package consumer

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"docverify/internal/platform/kafka"
	audit "docverify/pkg/platform/audit"
)

// Materializer writes every audit message it consumes into store. The store
// must ignore duplicate event IDs since messages can be redelivered.
type Materializer struct {
	store  audit.Store
	logger *slog.Logger
}

func NewMaterializer(store audit.Store, logger *slog.Logger) *Materializer {
	return &Materializer{store: store, logger: logger}
}

// Handle decodes one message. Malformed payloads are logged and skipped.
func (m *Materializer) Handle(ctx context.Context, msg *kafka.Message) error {
	var event audit.Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		m.logger.WarnContext(ctx, "skipping malformed audit message",
			"topic", msg.Topic,
			"offset", msg.Offset,
			"error", err,
		)
		return nil
	}
	if event.ID == uuid.Nil || event.Action == "" {
		m.logger.WarnContext(ctx, "skipping incomplete audit message",
			"topic", msg.Topic,
			"offset", msg.Offset,
		)
		return nil
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}
	return m.store.Append(ctx, event)
}
