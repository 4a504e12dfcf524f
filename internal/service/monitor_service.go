package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/smartexam/internal/model"
	"github.com/stemsi/smartexam/internal/repository"
)

// ExamSessionLister lists every session of one exam.
type ExamSessionLister interface {
	ListByExam(ctx context.Context, examID uuid.UUID) ([]model.ExamSession, error)
}

// MonitorService builds the initial snapshot a teacher sees before live
// events start streaming.
type MonitorService struct {
	catalog  Catalog
	sessions ExamSessionLister
}

// NewMonitorService creates a new MonitorService.
func NewMonitorService(catalog Catalog, sessions ExamSessionLister) *MonitorService {
	return &MonitorService{catalog: catalog, sessions: sessions}
}

// StudentProgress is one row of the monitor table.
type StudentProgress struct {
	StudentID   int                 `json:"student_id"`
	SessionID   uuid.UUID           `json:"session_id"`
	Status      model.SessionStatus `json:"status"`
	Answered    int                 `json:"answered_count"`
	Score       *float64            `json:"score,omitempty"`
	StartedAt   *time.Time          `json:"started_at,omitempty"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
}

// MonitorStats aggregates the snapshot.
type MonitorStats struct {
	TotalJoined     int `json:"total_joined"`
	TotalInProgress int `json:"total_in_progress"`
	TotalCompleted  int `json:"total_completed"`
	TotalExpired    int `json:"total_expired"`
}

// MonitorSnapshot is the state of an exam at the moment a teacher attaches.
type MonitorSnapshot struct {
	Exam           model.ExamDefinition `json:"exam"`
	TotalQuestions int                  `json:"total_questions"`
	Stats          MonitorStats         `json:"stats"`
	Students       []StudentProgress    `json:"students"`
}

// Snapshot returns the current progress of every student on an exam.
func (s *MonitorService) Snapshot(ctx context.Context, examID uuid.UUID) (*MonitorSnapshot, error) {
	exam, err := s.catalog.GetExam(ctx, examID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExamNotFound
		}
		return nil, storageErr("get exam", err)
	}
	questions, err := s.catalog.GetQuestions(ctx, examID)
	if err != nil {
		return nil, storageErr("get questions", err)
	}
	sessions, err := s.sessions.ListByExam(ctx, examID)
	if err != nil {
		return nil, storageErr("list exam sessions", err)
	}

	snap := &MonitorSnapshot{
		Exam:           *exam,
		TotalQuestions: len(questions),
		Students:       make([]StudentProgress, 0, len(sessions)),
	}
	for i := range sessions {
		sess := &sessions[i]
		row := StudentProgress{
			StudentID:   sess.StudentID,
			SessionID:   sess.ID,
			Status:      sess.Status,
			Answered:    answeredCount(sess.Answers),
			StartedAt:   sess.StartedAt,
			CompletedAt: sess.CompletedAt,
		}
		switch sess.Status {
		case model.SessionStatusInProgress:
			snap.Stats.TotalInProgress++
		case model.SessionStatusCompleted:
			score := sess.Score
			row.Score = &score
			snap.Stats.TotalCompleted++
		case model.SessionStatusExpiredByTimeout:
			snap.Stats.TotalExpired++
		}
		if sess.Status != model.SessionStatusNotStarted {
			snap.Stats.TotalJoined++
		}
		snap.Students = append(snap.Students, row)
	}
	return snap, nil
}
