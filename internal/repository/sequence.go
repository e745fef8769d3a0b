package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/tm-acme-shop/acme-shop-billing-service/internal/logging"
)

// PostgresSequenceStore keeps one counter row per (tenant_id, prefix) in
// document_sequences. The upsert below creates the row at 1 or increments it
// and returns the new value in a single statement, so concurrent callers
// serialize on the row lock and never observe the same value.
type PostgresSequenceStore struct {
	db     *sql.DB
	logger *logging.LoggerV2
}

func NewPostgresSequenceStore(db *sql.DB, logger *logging.LoggerV2) *PostgresSequenceStore {
	return &PostgresSequenceStore{db: db, logger: logger}
}

const incrementSequenceQuery = `
		INSERT INTO document_sequences (tenant_id, prefix, last_value, created_at, updated_at)
		VALUES ($1, $2, 1, NOW(), NOW())
		ON CONFLICT (tenant_id, prefix) DO UPDATE
		SET last_value = document_sequences.last_value + 1,
			updated_at = NOW()
		RETURNING last_value`

// Increment implements numbering.SequenceStore.
func (s *PostgresSequenceStore) Increment(ctx context.Context, tenantID, prefix string) (int64, error) {
	var lastValue int64
	err := s.db.QueryRowContext(ctx, incrementSequenceQuery, tenantID, prefix).Scan(&lastValue)
	if err != nil {
		s.logger.Error("Failed to increment document sequence", logging.Fields{
			"tenant_id": tenantID,
			"prefix":    prefix,
			"error":     err.Error(),
		})
		return 0, err
	}

	s.logger.Debug("Document sequence incremented", logging.Fields{
		"tenant_id": tenantID,
		"prefix":    prefix,
		"sequence":  lastValue,
	})
	return lastValue, nil
}

const sequenceKeyPrefix = "doc_seq:"

// RedisSequenceStore uses INCR, which creates a missing key at 0 before
// incrementing, so the first value handed out is 1. The counter keys have no
// TTL and must live on a persistent Redis deployment.
type RedisSequenceStore struct {
	client *redis.Client
	logger *logging.LoggerV2
}

func NewRedisSequenceStore(client *redis.Client, logger *logging.LoggerV2) *RedisSequenceStore {
	return &RedisSequenceStore{client: client, logger: logger}
}

// Increment implements numbering.SequenceStore.
func (s *RedisSequenceStore) Increment(ctx context.Context, tenantID, prefix string) (int64, error) {
	key := sequenceKey(tenantID, prefix)

	n, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		s.logger.Error("Failed to increment document sequence", logging.Fields{
			"key":   key,
			"error": err.Error(),
		})
		return 0, err
	}
	return n, nil
}

// sequenceKey length-prefixes the tenant so ("a:b", "c") and ("a", "b:c")
// never share a key.
func sequenceKey(tenantID, prefix string) string {
	return fmt.Sprintf("%s%d:%s:%s", sequenceKeyPrefix, len(tenantID), tenantID, prefix)
}
