// Package cache keeps read-mostly catalog data in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/smartexam/internal/config"
	"github.com/stemsi/smartexam/internal/model"
	"github.com/stemsi/smartexam/internal/service"
)

// CachedCatalog is a read-through Redis cache in front of a Catalog.
// Published exams are immutable, so entries only expire by TTL or Invalidate.
// Redis errors degrade to the underlying catalog.
type CachedCatalog struct {
	next service.Catalog
	rdb  *redis.Client
	ttl  time.Duration
	log  zerolog.Logger
}

// NewCachedCatalog wraps next with a Redis cache.
func NewCachedCatalog(next service.Catalog, rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *CachedCatalog {
	return &CachedCatalog{
		next: next,
		rdb:  rdb,
		ttl:  ttl,
		log:  log.With().Str("component", "catalog_cache").Logger(),
	}
}

// GetExam returns the exam definition, from cache when possible.
func (c *CachedCatalog) GetExam(ctx context.Context, examID uuid.UUID) (*model.ExamDefinition, error) {
	key := config.CacheKey.ExamDefinitionKey(examID.String())
	var exam model.ExamDefinition
	if c.load(ctx, key, &exam) {
		return &exam, nil
	}

	fresh, err := c.next.GetExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, fresh)
	return fresh, nil
}

// GetQuestions returns the exam's ordered questions, from cache when possible.
func (c *CachedCatalog) GetQuestions(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	key := config.CacheKey.ExamQuestionsKey(examID.String())
	var questions []model.Question
	if c.load(ctx, key, &questions) {
		return questions, nil
	}

	fresh, err := c.next.GetQuestions(ctx, examID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, fresh)
	return fresh, nil
}

// ListPublished always reads through; the list changes whenever an exam is
// published and is only used by the lobby.
func (c *CachedCatalog) ListPublished(ctx context.Context) ([]model.ExamDefinition, error) {
	return c.next.ListPublished(ctx)
}

// Invalidate drops every cached entry of an exam.
func (c *CachedCatalog) Invalidate(ctx context.Context, examID uuid.UUID) error {
	id := examID.String()
	return c.rdb.Del(ctx,
		config.CacheKey.ExamDefinitionKey(id),
		config.CacheKey.ExamQuestionsKey(id),
	).Err()
}

func (c *CachedCatalog) load(ctx context.Context, key string, dst any) bool {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Str("key", key).Msg("Cache read failed, falling back to store")
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Discarding undecodable cache entry")
		return false
	}
	return true
}

func (c *CachedCatalog) store(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
}
