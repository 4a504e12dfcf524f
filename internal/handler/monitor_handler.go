package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/smartexam/internal/response"
	"github.com/stemsi/smartexam/internal/service"
)

const (
	refreshInterval   = 15 * time.Second
	keepAliveInterval = 30 * time.Second
	refreshTimeout    = 5 * time.Second // keeps a slow store from stalling the SSE loop
)

// EventSubscriber attaches to the live event channel of an exam.
type EventSubscriber interface {
	Subscribe(ctx context.Context, examID uuid.UUID) *redis.PubSub
}

// MonitorHandler streams live exam progress to teachers.
type MonitorHandler struct {
	subscriber     EventSubscriber
	monitorService *service.MonitorService
	log            zerolog.Logger
}

// NewMonitorHandler creates a new MonitorHandler. subscriber is nil when
// Redis is not configured.
func NewMonitorHandler(subscriber EventSubscriber, monitorService *service.MonitorService, log zerolog.Logger) *MonitorHandler {
	return &MonitorHandler{
		subscriber:     subscriber,
		monitorService: monitorService,
		log:            log.With().Str("component", "monitor_handler").Logger(),
	}
}

// MonitorExamSSE godoc
// GET /api/v1/teacher/exams/:exam_id/monitor
// Sends a snapshot of every session on the exam, then relays session events.
func (h *MonitorHandler) MonitorExamSSE(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if h.subscriber == nil {
		response.Fail(c, http.StatusServiceUnavailable, response.ErrMonitorUnavailable)
		return
	}

	reqCtx := c.Request.Context()
	log := h.log.With().
		Str("request_id", response.RequestID(c)).
		Str("exam_id", examID.String()).
		Logger()

	snapshot, err := h.monitorService.Snapshot(reqCtx, examID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	pubsub := h.subscriber.Subscribe(reqCtx, examID)
	defer pubsub.Close()
	// Wait for the subscription so no event between snapshot and relay is lost.
	if _, err := pubsub.Receive(reqCtx); err != nil {
		log.Error().Err(err).Msg("Monitor subscribe failed")
		response.Fail(c, http.StatusServiceUnavailable, response.ErrMonitorUnavailable)
		return
	}
	ch := pubsub.Channel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.SSEvent("snapshot", snapshot)
	c.Writer.Flush()

	keepAliveTicker := time.NewTicker(keepAliveInterval)
	defer keepAliveTicker.Stop()

	refreshTicker := time.NewTicker(refreshInterval)
	defer refreshTicker.Stop()

	log.Info().Msg("Teacher attached to live monitor SSE")

	for {
		select {
		case <-reqCtx.Done():
			log.Info().Msg("Teacher disconnected from live monitor SSE")
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}
			// Payload is already a JSON-encoded SessionEvent.
			c.Writer.Write([]byte("event: session\ndata: "))
			c.Writer.Write([]byte(msg.Payload))
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()

		case <-refreshTicker.C:
			h.sendRefresh(c, reqCtx, examID)

		case <-keepAliveTicker.C:
			c.SSEvent("ping", gin.H{"type": "ping"})
			c.Writer.Flush()
		}
	}
}

// sendRefresh re-reads the snapshot so the teacher view converges even if an
// event was dropped.
func (h *MonitorHandler) sendRefresh(c *gin.Context, parentCtx context.Context, examID uuid.UUID) {
	ctx, cancel := context.WithTimeout(parentCtx, refreshTimeout)
	defer cancel()

	snapshot, err := h.monitorService.Snapshot(ctx, examID)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to refresh monitor snapshot")
		return
	}
	c.SSEvent("refresh", snapshot)
	c.Writer.Flush()
}
