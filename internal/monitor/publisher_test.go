package monitor

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/smartexam/internal/model"
)

func TestRedisPublisherRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	ctx := context.Background()
	pub := NewRedisPublisher(rdb)
	examID := uuid.New()

	sub := pub.Subscribe(ctx, examID)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe confirmation: %v", err)
	}

	score := 75.0
	sent := model.SessionEvent{
		Type:      model.SessionEventSubmitted,
		ExamID:    examID,
		SessionID: uuid.New(),
		StudentID: 42,
		Status:    model.SessionStatusCompleted,
		Answered:  3,
		Score:     &score,
		At:        time.Date(2026, 10, 20, 8, 30, 0, 0, time.UTC),
	}
	if err := pub.Publish(ctx, sent); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case msg := <-sub.Channel():
		var got model.SessionEvent
		if err := json.Unmarshal([]byte(msg.Payload), &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.Type != sent.Type || got.StudentID != 42 || got.Score == nil || *got.Score != 75 {
			t.Errorf("got %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}

func TestRedisPublisherOtherExamNotDelivered(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	ctx := context.Background()
	pub := NewRedisPublisher(rdb)

	sub := pub.Subscribe(ctx, uuid.New())
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe confirmation: %v", err)
	}

	if err := pub.Publish(ctx, model.SessionEvent{Type: model.SessionEventStarted, ExamID: uuid.New()}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case msg := <-sub.Channel():
		t.Fatalf("unexpected message %q", msg.Payload)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestNopPublisher(t *testing.T) {
	if err := (NopPublisher{}).Publish(context.Background(), model.SessionEvent{}); err != nil {
		t.Errorf("Publish = %v", err)
	}
}
