package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionEventType names a session lifecycle event pushed to exam monitors.
type SessionEventType string

const (
	SessionEventStarted   SessionEventType = "session_started"
	SessionEventResumed   SessionEventType = "session_resumed"
	SessionEventAnswered  SessionEventType = "answer_saved"
	SessionEventSubmitted SessionEventType = "session_submitted"
	SessionEventExpired   SessionEventType = "session_expired"
)

// SessionEvent is published on the exam monitor channel.
type SessionEvent struct {
	Type      SessionEventType `json:"type"`
	ExamID    uuid.UUID        `json:"exam_id"`
	SessionID uuid.UUID        `json:"session_id"`
	StudentID int              `json:"student_id"`
	Status    SessionStatus    `json:"status"`
	Answered  int              `json:"answered"`
	Score     *float64         `json:"score,omitempty"`
	At        time.Time        `json:"at"`
}
