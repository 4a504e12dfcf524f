package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/stemsi/smartexam/internal/model"
)

// Catalog is the read-only exam lookup consumed by the engine.
// Unknown ids yield repository.ErrNotFound.
type Catalog interface {
	GetExam(ctx context.Context, examID uuid.UUID) (*model.ExamDefinition, error)
	GetQuestions(ctx context.Context, examID uuid.UUID) ([]model.Question, error)
	ListPublished(ctx context.Context) ([]model.ExamDefinition, error)
}

// CatalogWriter stores an exam together with its full question set.
type CatalogWriter interface {
	PutExam(ctx context.Context, exam *model.ExamDefinition, questions []model.Question) error
}

// SessionStore persists one session per (student, exam). Put is a full-record
// upsert and the last write wins. Missing records yield repository.ErrNotFound.
type SessionStore interface {
	Get(ctx context.Context, studentID int, examID uuid.UUID) (*model.ExamSession, error)
	GetByID(ctx context.Context, sessionID uuid.UUID) (*model.ExamSession, error)
	Put(ctx context.Context, session *model.ExamSession) error
	ListByStudent(ctx context.Context, studentID int) ([]model.ExamSession, error)
	ListInProgress(ctx context.Context) ([]model.ExamSession, error)
}

// EventPublisher fans session lifecycle events out to exam monitors.
type EventPublisher interface {
	Publish(ctx context.Context, event model.SessionEvent) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, model.SessionEvent) error { return nil }
