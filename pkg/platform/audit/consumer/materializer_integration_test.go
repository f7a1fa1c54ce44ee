//go:build integration

package consumer

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"docverify/internal/platform/config"
	"docverify/internal/platform/kafka"
	audit "docverify/pkg/platform/audit"
	kafkastore "docverify/pkg/platform/audit/store/kafka"
	"docverify/pkg/platform/audit/store/postgres"
	"docverify/pkg/testutil/containers"
)

// Events produced to the audit topic end up in Postgres.
func TestKafkaToPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	rp := containers.GetManager().GetRedpanda(t)
	pg := containers.GetManager().GetPostgres(t)

	pgStore := postgres.New(pg.DB)
	require.NoError(t, pgStore.Migrate(ctx))
	require.NoError(t, pg.TruncateTables(ctx, "audit_events"))

	cfg := config.KafkaConfig{Brokers: []string{rp.Broker}, AuditTopic: "docverify.audit.it"}
	producer, err := kafka.NewClient(ctx, cfg)
	require.NoError(t, err)
	defer producer.Close()
	require.NoError(t, kafka.EnsureTopic(ctx, producer, cfg.AuditTopic, 1, 1))

	event := audit.VerificationEvent("v-it", "id_card", 0.75, true)
	require.NoError(t, kafkastore.New(producer, cfg.AuditTopic).Append(ctx, event))

	consumerClient, err := kafka.NewClient(ctx, cfg, kafka.ConsumerOpts("docverify-materializer-it", cfg.AuditTopic)...)
	require.NoError(t, err)
	defer consumerClient.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() { _ = kafka.Consume(runCtx, consumerClient, NewMaterializer(pgStore, logger), logger) }()

	require.Eventually(t, func() bool {
		events, err := pgStore.ListByVerification(ctx, "v-it")
		return err == nil && len(events) == 1
	}, 30*time.Second, 200*time.Millisecond)
}
