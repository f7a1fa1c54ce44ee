package store

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"docverify/internal/document/models"
	"docverify/pkg/platform/circuit"
	"docverify/pkg/platform/sentinel"
)

type recordStore interface {
	Save(ctx context.Context, record *models.VerificationRecord) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.VerificationRecord, error)
}

// FallbackRecordStore writes to a primary store and, once the breaker has
// opened after repeated primary failures, to a local fallback. The primary is
// still tried on every call so the breaker can close again.
type FallbackRecordStore struct {
	primary  recordStore
	fallback recordStore
	breaker  *circuit.Breaker
	logger   *slog.Logger
}

// NewFallbackRecordStore guards primary with breaker.
func NewFallbackRecordStore(primary, fallback recordStore, breaker *circuit.Breaker, logger *slog.Logger) *FallbackRecordStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackRecordStore{
		primary:  primary,
		fallback: fallback,
		breaker:  breaker,
		logger:   logger,
	}
}

func (s *FallbackRecordStore) Save(ctx context.Context, record *models.VerificationRecord) error {
	err := s.primary.Save(ctx, record)
	if err == nil {
		s.succeeded(ctx)
		return nil
	}
	if !s.failed(ctx, err) {
		return err
	}
	return s.fallback.Save(ctx, record)
}

// FindByID prefers the primary. Records written to the fallback during an
// outage stay readable after the primary recovers.
func (s *FallbackRecordStore) FindByID(ctx context.Context, id uuid.UUID) (*models.VerificationRecord, error) {
	record, err := s.primary.FindByID(ctx, id)
	switch {
	case err == nil:
		s.succeeded(ctx)
		return record, nil
	case errors.Is(err, sentinel.ErrNotFound):
		s.succeeded(ctx)
		return s.fallback.FindByID(ctx, id)
	case s.failed(ctx, err):
		return s.fallback.FindByID(ctx, id)
	default:
		return nil, err
	}
}

func (s *FallbackRecordStore) succeeded(ctx context.Context) {
	if _, change := s.breaker.RecordSuccess(); change.Closed {
		s.logger.InfoContext(ctx, "record store recovered, leaving fallback",
			"breaker", s.breaker.Name(),
		)
	}
}

func (s *FallbackRecordStore) failed(ctx context.Context, err error) bool {
	useFallback, change := s.breaker.RecordFailure()
	if change.Opened {
		s.logger.WarnContext(ctx, "record store failing, switching to fallback",
			"breaker", s.breaker.Name(),
			"error", err,
		)
	}
	return useFallback
}
