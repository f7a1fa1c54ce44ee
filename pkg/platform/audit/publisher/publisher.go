// Package publisher emits audit events to a store, either inline or through
// a bounded buffer drained by a background worker.
package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	audit "docverify/pkg/platform/audit"
	"docverify/pkg/platform/audit/worker"
	"docverify/pkg/requestcontext"
)

var (
	ErrBufferFull = errors.New("audit buffer full")
	ErrClosed     = errors.New("audit publisher closed")
)

// Publisher enriches events from the request context and hands them to the
// store.
type Publisher struct {
	store     audit.Store
	logger    *slog.Logger
	metrics   *Metrics
	batchSize int

	bufferSize int
	buffer     chan audit.Event
	done       chan struct{}

	mu     sync.RWMutex
	closed bool
}

type Option func(*Publisher)

// WithAsyncBuffer makes Emit non-blocking with a buffer of size events.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.bufferSize = size
	}
}

// WithBatchSize caps how many buffered events the worker writes at once.
func WithBatchSize(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:     store,
		logger:    slog.Default(),
		batchSize: 50,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufferSize > 0 {
		p.buffer = make(chan audit.Event, p.bufferSize)
		p.done = make(chan struct{})
		w := worker.NewWorker(store, p.buffer,
			worker.WithBatchSize(p.batchSize),
			worker.WithLogger(p.logger),
			worker.WithFailureHook(func(n int) { p.metrics.IncPersistFailures(n) }),
		)
		go func() {
			defer close(p.done)
			_ = w.Run(context.Background())
		}()
	}
	return p
}

// Emit records event. In async mode it returns ErrBufferFull instead of
// blocking when the worker falls behind.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	event = p.enrich(ctx, event)

	if p.buffer == nil {
		if err := p.store.Append(ctx, event); err != nil {
			p.metrics.IncPersistFailures(1)
			return err
		}
		p.metrics.IncEmitted(event.Action)
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.buffer <- event:
		p.metrics.IncEmitted(event.Action)
		return nil
	default:
		p.metrics.IncDropped()
		p.logger.WarnContext(ctx, "audit buffer full, event dropped",
			"action", event.Action,
			"verification_id", event.VerificationID,
		)
		return ErrBufferFull
	}
}

func (p *Publisher) enrich(ctx context.Context, event audit.Event) audit.Event {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.ClientID == "" {
		event.ClientID = requestcontext.ClientID(ctx)
	}
	if event.ClientIP == "" {
		event.ClientIP = requestcontext.ClientIP(ctx)
	}
	if event.ClientSoftware == "" {
		event.ClientSoftware = audit.ClientSoftware(requestcontext.UserAgent(ctx))
	}
	return event
}

// List returns the stored events for a verification when the store can read.
func (p *Publisher) List(ctx context.Context, verificationID string) ([]audit.Event, error) {
	reader, ok := p.store.(audit.Reader)
	if !ok {
		return nil, errors.New("audit store does not support listing")
	}
	return reader.ListByVerification(ctx, verificationID)
}

// Close stops accepting events and, in async mode, waits until the buffer
// has drained.
func (p *Publisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	if p.buffer != nil {
		close(p.buffer)
	}
	p.mu.Unlock()
	if p.done != nil {
		<-p.done
	}
}
