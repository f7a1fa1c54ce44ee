package worker

import (
	"context"
	"log/slog"

	audit "docverify/pkg/platform/audit"
)

// BatchStore is implemented by stores that can write several events in one
// round trip.
type BatchStore interface {
	AppendBatch(ctx context.Context, events []audit.Event) error
}

// Worker consumes audit events from a channel and persists them, batching
// whatever is already queued. Persist failures are logged and counted, never
// returned, so one bad write does not stall the queue.
type Worker struct {
	store     audit.Store
	inbox     <-chan audit.Event
	batchSize int
	logger    *slog.Logger
	onFailure func(n int)
}

type Option func(*Worker)

func WithBatchSize(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		w.logger = logger
	}
}

// WithFailureHook is called with the number of events lost on each failed write.
func WithFailureHook(fn func(n int)) Option {
	return func(w *Worker) {
		w.onFailure = fn
	}
}

func NewWorker(store audit.Store, inbox <-chan audit.Event, opts ...Option) *Worker {
	w := &Worker{
		store:     store,
		inbox:     inbox,
		batchSize: 1,
		logger:    slog.Default(),
		onFailure: func(int) {},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run drains the inbox until it is closed (returning nil) or ctx ends.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.inbox:
			if !ok {
				return nil
			}
			batch := w.collect(event)
			w.persist(ctx, batch)
		}
	}
}

func (w *Worker) collect(first audit.Event) []audit.Event {
	batch := []audit.Event{first}
	for len(batch) < w.batchSize {
		select {
		case event, ok := <-w.inbox:
			if !ok {
				return batch
			}
			batch = append(batch, event)
		default:
			return batch
		}
	}
	return batch
}

func (w *Worker) persist(ctx context.Context, batch []audit.Event) {
	if bs, ok := w.store.(BatchStore); ok && len(batch) > 1 {
		if err := bs.AppendBatch(ctx, batch); err != nil {
			w.logger.WarnContext(ctx, "audit batch persist failed", "events", len(batch), "error", err)
			w.onFailure(len(batch))
		}
		return
	}
	for _, event := range batch {
		if err := w.store.Append(ctx, event); err != nil {
			w.logger.WarnContext(ctx, "audit persist failed",
				"action", event.Action,
				"verification_id", event.VerificationID,
				"error", err,
			)
			w.onFailure(1)
		}
	}
}
