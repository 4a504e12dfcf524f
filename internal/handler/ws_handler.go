package handler

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/smartexam/internal/middleware"
	"github.com/stemsi/smartexam/internal/model"
	"github.com/stemsi/smartexam/internal/response"
	"github.com/stemsi/smartexam/internal/service"
	ws "github.com/stemsi/smartexam/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler handles the live session stream.
type WSHandler struct {
	sessionService *service.ExamSessionService
	countdown      *service.Countdown
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessionService *service.ExamSessionService, countdown *service.Countdown, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessionService: sessionService,
		countdown:      countdown,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/student/sessions/:session_id/stream
// Pushes countdown ticks and accepts autosave and submit actions. The socket
// is closed once the session is completed or expired.
func (h *WSHandler) SessionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.Wrap(raw)
	defer conn.Close()

	studentID := claims.UserID
	wsLog := h.log.With().
		Str("request_id", response.RequestID(c)).
		Int("student_id", studentID).
		Str("session_id", sessionID.String()).
		Logger()

	wsLog.Info().Msg("Student connected")

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	var finalOnce sync.Once
	finish := func(event ws.Event, result *model.ExamResult) {
		finalOnce.Do(func() {
			conn.WriteTyped(ws.NewResultResponse(event, result))
			conn.WriteClose("session finished")
			// Unblocks the read loop.
			conn.Close()
		})
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		result, err := h.countdown.Run(ctx, studentID, sessionID, func(remaining time.Duration) {
			conn.WriteTyped(ws.TickResponse{
				Event:            ws.EventTick,
				RemainingSeconds: int64(remaining / time.Second),
			})
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			wsLog.Warn().Err(err).Msg("Countdown stopped")
			_, code := response.Classify(err)
			finalOnce.Do(func() {
				conn.WriteError(string(code))
				conn.WriteClose(string(code))
				conn.Close()
			})
			return
		}
		event := ws.EventFinished
		if result.Status == model.SessionStatusExpiredByTimeout {
			event = ws.EventExpired
		}
		finish(event, result)
	}()

	for {
		var msg ws.Request
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		switch msg.Action {
		case ws.ActionAutosave:
			h.handleAutosave(ctx, conn, studentID, sessionID, &msg)
		case ws.ActionSubmit:
			result, err := h.sessionService.Submit(ctx, studentID, sessionID, msg.Answers)
			if err != nil {
				_, code := response.Classify(err)
				conn.WriteError(string(code))
				continue
			}
			finish(ws.EventGraded, result)
		case ws.ActionPing:
			conn.WriteTyped(ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			conn.WriteError("unknown action: " + string(msg.Action))
		}
	}

	cancel()
	<-done
	wsLog.Info().Msg("Student disconnected")
}

// handleAutosave stores a single answer on the session. An answer arriving
// after the session finished is acknowledged as ignored.
func (h *WSHandler) handleAutosave(ctx context.Context, conn *ws.Conn, studentID int, sessionID uuid.UUID, msg *ws.Request) {
	questionID, err := uuid.Parse(msg.QID)
	if err != nil {
		conn.WriteError("invalid q_id format")
		return
	}

	status, err := h.sessionService.SelectAnswer(ctx, studentID, sessionID, questionID, model.OptionLabel(msg.Answer))
	if err != nil {
		_, code := response.Classify(err)
		conn.WriteError(string(code))
		return
	}

	event := ws.EventSaved
	if status != model.SessionStatusInProgress {
		event = ws.EventIgnored
	}
	conn.WriteTyped(ws.SavedResponse{
		Event:         event,
		QuestionID:    questionID.String(),
		SessionStatus: string(status),
	})
}
