package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"docverify/internal/document/models"
	"docverify/pkg/platform/sentinel"
	"docverify/pkg/requestcontext"
)

// DefaultCapacity bounds the in-memory history when no capacity is given.
const DefaultCapacity = 10000

type storedRecord struct {
	record   models.VerificationRecord
	storedAt time.Time
}

// InMemoryRecordStore keeps the most recent verification records in process
// memory with TTL expiration. A non-positive TTL keeps records until they are
// evicted by newer ones.
type InMemoryRecordStore struct {
	records *lru.Cache[uuid.UUID, storedRecord]
	ttl     time.Duration
}

// NewInMemoryRecordStore creates an empty store holding at most capacity
// records. A non-positive capacity uses DefaultCapacity.
func NewInMemoryRecordStore(ttl time.Duration, capacity int) *InMemoryRecordStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	// lru.New only fails for a non-positive size.
	records, _ := lru.New[uuid.UUID, storedRecord](capacity)
	return &InMemoryRecordStore{records: records, ttl: ttl}
}

// Save stores a copy of record keyed by its ID, evicting the least recently
// used record when the store is full.
func (s *InMemoryRecordStore) Save(ctx context.Context, record *models.VerificationRecord) error {
	if record == nil {
		return fmt.Errorf("verification record is required")
	}
	s.records.Add(record.ID, storedRecord{record: *record, storedAt: requestcontext.Now(ctx)})
	return nil
}

// FindByID returns the record with the given ID, or sentinel.ErrNotFound if
// it is absent, evicted or expired.
func (s *InMemoryRecordStore) FindByID(ctx context.Context, id uuid.UUID) (*models.VerificationRecord, error) {
	stored, ok := s.records.Get(id)
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if s.ttl > 0 && requestcontext.Now(ctx).Sub(stored.storedAt) >= s.ttl {
		s.records.Remove(id)
		return nil, sentinel.ErrNotFound
	}
	record := stored.record
	return &record, nil
}

// Len reports how many records are held, including expired ones not yet
// looked up.
func (s *InMemoryRecordStore) Len() int {
	return s.records.Len()
}
