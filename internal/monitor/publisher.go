// Package monitor fans exam session events out to teachers watching an exam.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/smartexam/internal/config"
	"github.com/stemsi/smartexam/internal/model"
)

// RedisPublisher publishes session events on the exam's monitor channel.
type RedisPublisher struct {
	rdb *redis.Client
}

// NewRedisPublisher creates a publisher over rdb.
func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

// Publish sends ev as JSON to exam:<id>:monitor.
func (p *RedisPublisher) Publish(ctx context.Context, ev model.SessionEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	channel := config.CacheKey.ExamMonitorChannel(ev.ExamID.String())
	if err := p.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe attaches to an exam's monitor channel. The caller closes the
// returned PubSub.
func (p *RedisPublisher) Subscribe(ctx context.Context, examID uuid.UUID) *redis.PubSub {
	return p.rdb.Subscribe(ctx, config.CacheKey.ExamMonitorChannel(examID.String()))
}

// NopPublisher drops every event. Used when Redis is not configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, model.SessionEvent) error { return nil }
