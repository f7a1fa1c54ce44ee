package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"docverify/internal/document/models"
	"docverify/pkg/platform/sentinel"
)

const keyPrefix = "docverify:verification:"

// RedisRecordStore persists verification records as JSON with a TTL.
type RedisRecordStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRecordStore creates a store on top of an open client. A
// non-positive TTL stores records without expiry.
func NewRedisRecordStore(client *redis.Client, ttl time.Duration) *RedisRecordStore {
	return &RedisRecordStore{client: client, ttl: ttl}
}

func recordKey(id uuid.UUID) string {
	return keyPrefix + id.String()
}

func (s *RedisRecordStore) Save(ctx context.Context, record *models.VerificationRecord) error {
	if record == nil {
		return fmt.Errorf("verification record is required")
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal verification record: %w", err)
	}
	ttl := s.ttl
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, recordKey(record.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("save verification record: %w", err)
	}
	return nil
}

func (s *RedisRecordStore) FindByID(ctx context.Context, id uuid.UUID) (*models.VerificationRecord, error) {
	payload, err := s.client.Get(ctx, recordKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find verification record: %w", err)
	}
	var record models.VerificationRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("unmarshal verification record: %w", err)
	}
	return &record, nil
}
