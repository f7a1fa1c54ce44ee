package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"docverify/internal/document/models"
	"docverify/pkg/platform/sentinel"
	"docverify/pkg/requestcontext"
)

type InMemoryRecordStoreSuite struct {
	suite.Suite
	store *InMemoryRecordStore
	now   time.Time
	ctx   context.Context
}

func TestInMemoryRecordStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryRecordStoreSuite))
}

func (s *InMemoryRecordStoreSuite) SetupTest() {
	s.store = NewInMemoryRecordStore(time.Hour, 0)
	s.now = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func sampleRecord() *models.VerificationRecord {
	return &models.VerificationRecord{
		ID:                    uuid.New(),
		DocumentType:          "passport",
		Profile:               models.DocumentPassport,
		VerificationTimestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Confidence:            0.225,
		Checks: map[models.CheckName]models.CheckResult{
			models.CheckEdges: {Detected: true, Confidence: 0.9, Detail: models.EdgeDetail{Corners: []models.Point{{X: 1, Y: 2}}}},
			models.CheckMRZ:   models.NotDetected(models.CheckMRZ),
		},
	}
}

func (s *InMemoryRecordStoreSuite) TestSaveAndFind() {
	record := sampleRecord()
	s.Require().NoError(s.store.Save(s.ctx, record))

	found, err := s.store.FindByID(s.ctx, record.ID)
	s.Require().NoError(err)
	s.Equal(record, found)
}

func (s *InMemoryRecordStoreSuite) TestFindMissing() {
	_, err := s.store.FindByID(s.ctx, uuid.New())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryRecordStoreSuite) TestExpiry() {
	record := sampleRecord()
	s.Require().NoError(s.store.Save(s.ctx, record))

	s.Run("before ttl", func() {
		ctx := requestcontext.WithTime(context.Background(), s.now.Add(59*time.Minute))
		_, err := s.store.FindByID(ctx, record.ID)
		s.NoError(err)
	})

	s.Run("at ttl", func() {
		ctx := requestcontext.WithTime(context.Background(), s.now.Add(time.Hour))
		_, err := s.store.FindByID(ctx, record.ID)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *InMemoryRecordStoreSuite) TestNilRecord() {
	s.Error(s.store.Save(s.ctx, nil))
}

func (s *InMemoryRecordStoreSuite) TestEvictsLeastRecentlyUsed() {
	store := NewInMemoryRecordStore(0, 2)
	first, second, third := sampleRecord(), sampleRecord(), sampleRecord()

	s.Require().NoError(store.Save(s.ctx, first))
	s.Require().NoError(store.Save(s.ctx, second))
	_, err := store.FindByID(s.ctx, first.ID)
	s.Require().NoError(err)
	s.Require().NoError(store.Save(s.ctx, third))

	s.Equal(2, store.Len())
	_, err = store.FindByID(s.ctx, second.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = store.FindByID(s.ctx, first.ID)
	s.NoError(err)
}

func (s *InMemoryRecordStoreSuite) TestZeroTTLNeverExpires() {
	store := NewInMemoryRecordStore(0, 0)
	record := sampleRecord()
	s.Require().NoError(store.Save(s.ctx, record))

	later := requestcontext.WithTime(context.Background(), s.now.Add(365*24*time.Hour))
	_, err := store.FindByID(later, record.ID)
	s.NoError(err)
}
