package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"docverify/internal/document/service"
	"docverify/internal/document/store"
	jwttoken "docverify/internal/jwt_token"
	"docverify/internal/platform/config"
	"docverify/internal/platform/kafka"
	"docverify/internal/platform/postgres"
	"docverify/internal/platform/redis"
	audit "docverify/pkg/platform/audit"
	"docverify/pkg/platform/audit/consumer"
	"docverify/pkg/platform/audit/publisher"
	kafkastore "docverify/pkg/platform/audit/store/kafka"
	auditmemory "docverify/pkg/platform/audit/store/memory"
	pgstore "docverify/pkg/platform/audit/store/postgres"
	"docverify/pkg/platform/circuit"
	"docverify/pkg/platform/middleware/auth"
)

const auditBuffer = 1024

type closer struct {
	name string
	fn   func() error
}

// closerStack releases resources in reverse acquisition order.
type closerStack []closer

func (c *closerStack) push(name string, fn func() error) {
	*c = append(*c, closer{name: name, fn: fn})
}

func (c closerStack) closeAll(log *slog.Logger) {
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i].fn(); err != nil {
			log.Warn("failed to close resource", "resource", c[i].name, "error", err)
		}
	}
}

func newRecordStore(ctx context.Context, cfg config.Server, closers *closerStack, log *slog.Logger) (service.RecordStore, error) {
	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("verification store: %w", err)
	}
	if client == nil {
		log.Info("verification history kept in memory", "capacity", cfg.Verification.HistorySize)
		return store.NewInMemoryRecordStore(cfg.Verification.RecordTTL, cfg.Verification.HistorySize), nil
	}
	closers.push("redis", client.Close)
	log.Info("verification history kept in redis", "ttl", cfg.Verification.RecordTTL)
	return store.NewFallbackRecordStore(
		store.NewRedisRecordStore(client.Client, cfg.Verification.RecordTTL),
		store.NewInMemoryRecordStore(cfg.Verification.RecordTTL, cfg.Verification.HistorySize),
		circuit.New("redis-records"),
		log,
	), nil
}

type auditPipeline struct {
	publisher *publisher.Publisher
	// materialize copies the Kafka audit stream into Postgres; nil when the
	// service writes its sinks directly.
	materialize func(ctx context.Context) error
}

// newAuditPipeline picks the audit sinks from what is configured: Kafka,
// Postgres, both, or an in-memory store when neither is.
func newAuditPipeline(ctx context.Context, cfg config.Server, reg prometheus.Registerer, closers *closerStack, log *slog.Logger) (*auditPipeline, error) {
	var (
		sinks    publisher.Fanout
		pipeline auditPipeline
	)

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("audit database: %w", err)
	}
	var pg *pgstore.Store
	if db != nil {
		closers.push("postgres", db.Close)
		pg = pgstore.New(db)
		if err := pg.Migrate(ctx); err != nil {
			return nil, err
		}
	}

	producer, err := kafka.NewClient(ctx, cfg.Kafka)
	if err != nil {
		return nil, fmt.Errorf("audit stream: %w", err)
	}
	if producer != nil {
		closers.push("kafka producer", func() error { producer.Close(); return nil })
		// -1 leaves partitions and replication to the broker defaults.
		if err := kafka.EnsureTopic(ctx, producer, cfg.Kafka.AuditTopic, -1, -1); err != nil {
			return nil, err
		}
		sinks = append(sinks, kafkastore.New(producer, cfg.Kafka.AuditTopic))
	}

	if pg != nil {
		if producer != nil && cfg.Kafka.Materialize {
			group, err := kafka.NewClient(ctx, cfg.Kafka, kafka.ConsumerOpts(cfg.Kafka.ConsumerGroup, cfg.Kafka.AuditTopic)...)
			if err != nil {
				return nil, fmt.Errorf("audit materializer: %w", err)
			}
			closers.push("kafka consumer", func() error { group.Close(); return nil })
			materializer := consumer.NewMaterializer(pg, log)
			pipeline.materialize = func(ctx context.Context) error {
				return kafka.Consume(ctx, group, materializer, log)
			}
		} else {
			sinks = append(sinks, pg)
		}
	}

	var sink audit.Store
	switch len(sinks) {
	case 0:
		log.Info("audit events kept in memory")
		sink = auditmemory.NewInMemoryStore()
	case 1:
		sink = sinks[0]
	default:
		sink = sinks
	}

	pipeline.publisher = publisher.NewPublisher(sink,
		publisher.WithAsyncBuffer(auditBuffer),
		publisher.WithLogger(log),
		publisher.WithMetrics(publisher.NewMetrics(reg)),
	)
	closers.push("audit publisher", func() error { pipeline.publisher.Close(); return nil })
	return &pipeline, nil
}

// newAuthenticators returns every configured credential check. An empty
// result leaves the API open.
func newAuthenticators(cfg config.Auth) ([]auth.Authenticator, error) {
	var authenticators []auth.Authenticator
	if cfg.APIKey != "" {
		authenticators = append(authenticators, auth.NewStaticKey(cfg.APIKey))
	}
	if cfg.APIKeyHash != "" {
		hashed, err := auth.NewHashedKey(cfg.APIKeyHash)
		if err != nil {
			return nil, fmt.Errorf("DOCVERIFY_API_KEY_HASH: %w", err)
		}
		authenticators = append(authenticators, hashed)
	}
	if cfg.JWTSigningKey != "" {
		tokens := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)
		authenticators = append(authenticators, auth.NewJWT(jwttoken.NewJWTServiceAdapter(tokens)))
	}
	return authenticators, nil
}
