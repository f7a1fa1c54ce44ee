//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	audit "docverify/pkg/platform/audit"
	"docverify/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *Store
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.pg = containers.GetManager().GetPostgres(s.T())
	s.store = New(s.pg.DB)
	s.Require().NoError(s.store.Migrate(context.Background()))
	s.Require().NoError(s.store.Migrate(context.Background()), "migration is idempotent")
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateTables(context.Background(), "audit_events"))
}

func (s *PostgresStoreSuite) TestAppendAndList() {
	ctx := context.Background()
	ts := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	event := audit.Event{
		ID:             uuid.New(),
		Timestamp:      ts,
		Action:         string(audit.EventDocumentVerified),
		VerificationID: "v-1",
		DocumentType:   "passport",
		Decision:       audit.DecisionAuthentic,
		Confidence:     0.81,
		RequestID:      "req-1",
		ClientID:       "acme",
		ClientIP:       "192.0.2.1",
		ClientSoftware: "Chrome/120 on Linux",
	}
	s.Require().NoError(s.store.Append(ctx, event))
	s.Require().NoError(s.store.Append(ctx, event), "duplicate IDs are ignored")

	events, err := s.store.ListByVerification(ctx, "v-1")
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	got := events[0]
	s.Equal(event.ID, got.ID)
	s.Equal(audit.CategoryCompliance, got.Category)
	s.True(ts.Equal(got.Timestamp))
	s.Equal(0.81, got.Confidence)
	s.Equal("acme", got.ClientID)
}

func (s *PostgresStoreSuite) TestAppendBatchIsAtomic() {
	ctx := context.Background()
	now := time.Now().UTC()
	events := []audit.Event{
		{Timestamp: now, Action: string(audit.EventEdgesDetected)},
		{Timestamp: now.Add(time.Second), Action: string(audit.EventDocumentRejected), VerificationID: "v-2"},
	}
	s.Require().NoError(s.store.AppendBatch(ctx, events))

	recent, err := s.store.ListRecent(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(recent, 2)
	s.Equal(string(audit.EventDocumentRejected), recent[0].Action)
	s.Equal(audit.CategoryOperations, recent[1].Category)
}
