package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/smartexam/internal/model"
	"github.com/stemsi/smartexam/internal/repository"
	"github.com/stemsi/smartexam/internal/validator"
)

// CatalogInvalidator drops cached copies of an exam after it is rewritten.
type CatalogInvalidator interface {
	Invalidate(ctx context.Context, examID uuid.UUID) error
}

// ExamService loads exam definitions into the catalog.
type ExamService struct {
	writer  CatalogWriter
	catalog Catalog
	cache   CatalogInvalidator
	log     zerolog.Logger
}

// NewExamService creates a new ExamService. cache may be nil.
func NewExamService(writer CatalogWriter, catalog Catalog, cache CatalogInvalidator, log zerolog.Logger) *ExamService {
	return &ExamService{
		writer:  writer,
		catalog: catalog,
		cache:   cache,
		log:     log.With().Str("component", "exam_service").Logger(),
	}
}

// Import validates an exam with its questions and upserts both. Missing ids
// are generated and question order falls back to slice position. A published
// exam is immutable and cannot be re-imported.
func (s *ExamService) Import(ctx context.Context, exam *model.ExamDefinition, questions []model.Question) error {
	if exam.ID == uuid.Nil {
		exam.ID = uuid.New()
	}
	if exam.CreatedAt.IsZero() {
		exam.CreatedAt = time.Now()
	}
	for i := range questions {
		q := &questions[i]
		if q.ID == uuid.Nil {
			q.ID = uuid.New()
		}
		q.ExamID = exam.ID
		if q.OrderNum == 0 {
			q.OrderNum = i + 1
		}
	}

	if err := validator.ValidateExam(exam, questions); err != nil {
		return err
	}

	existing, err := s.catalog.GetExam(ctx, exam.ID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
	case err != nil:
		return storageErr("get exam", err)
	case existing.Published:
		return ErrExamPublished
	}

	if err := s.writer.PutExam(ctx, exam, questions); err != nil {
		return storageErr("put exam", err)
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, exam.ID); err != nil {
			s.log.Warn().Err(err).Str("exam_id", exam.ID.String()).Msg("Failed to invalidate catalog cache")
		}
	}

	s.log.Info().
		Str("exam_id", exam.ID.String()).
		Str("title", exam.Title).
		Int("questions", len(questions)).
		Msg("Exam imported")
	return nil
}

// GetByID returns an exam definition with its questions.
func (s *ExamService) GetByID(ctx context.Context, examID uuid.UUID) (*model.ExamDefinition, []model.Question, error) {
	exam, err := s.catalog.GetExam(ctx, examID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrExamNotFound
		}
		return nil, nil, fmt.Errorf("get exam: %w", err)
	}
	questions, err := s.catalog.GetQuestions(ctx, examID)
	if err != nil {
		return nil, nil, fmt.Errorf("get questions: %w", err)
	}
	return exam, questions, nil
}
