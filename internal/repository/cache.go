package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tm-acme-shop/acme-shop-billing-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-billing-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-billing-service/internal/models"
)

const (
	documentKeyPrefix = "document:"
	defaultCacheTTL   = 5 * time.Minute
)

// NewRedisClient builds the shared Redis client used by the cache and the
// Redis sequence store.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// RedisDocumentCache implements DocumentCache using Redis.
type RedisDocumentCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logging.LoggerV2
}

// NewRedisDocumentCache creates a new Redis-based document cache.
func NewRedisDocumentCache(client *redis.Client, ttl time.Duration) *RedisDocumentCache {
	if ttl == 0 {
		ttl = defaultCacheTTL
	}

	return &RedisDocumentCache{
		client: client,
		ttl:    ttl,
		logger: logging.NewLoggerV2("document-cache"),
	}
}

func documentKey(tenantID, id string) string {
	return documentKeyPrefix + tenantID + ":" + id
}

// Get retrieves a document from cache. A miss returns (nil, nil).
func (c *RedisDocumentCache) Get(ctx context.Context, tenantID, id string) (*models.Document, error) {
	data, err := c.client.Get(ctx, documentKey(tenantID, id)).Bytes()
	if err == redis.Nil {
		c.logger.Debug("Cache miss", logging.Fields{"document_id": id})
		return nil, nil
	}
	if err != nil {
		c.logger.Error("Cache get error", logging.Fields{
			"document_id": id,
			"error":       err.Error(),
		})
		return nil, err
	}

	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	c.logger.Debug("Cache hit", logging.Fields{"document_id": id})
	return &doc, nil
}

// Set stores a document in cache.
func (c *RedisDocumentCache) Set(ctx context.Context, doc *models.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	if err := c.client.Set(ctx, documentKey(doc.TenantID, doc.ID), data, c.ttl).Err(); err != nil {
		c.logger.Error("Cache set error", logging.Fields{
			"document_id": doc.ID,
			"error":       err.Error(),
		})
		return err
	}
	return nil
}

// Delete removes a document from cache.
func (c *RedisDocumentCache) Delete(ctx context.Context, tenantID, id string) error {
	if err := c.client.Del(ctx, documentKey(tenantID, id)).Err(); err != nil {
		c.logger.Error("Cache delete error", logging.Fields{
			"document_id": id,
			"error":       err.Error(),
		})
		return err
	}
	return nil
}
