package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/smartexam/internal/model"
)

// Catalog is the PostgreSQL-backed exam catalog.
type Catalog struct {
	pool      *pgxpool.Pool
	exams     *ExamRepository
	questions *QuestionRepository
}

// NewCatalog creates a Catalog over the exam and question repositories.
func NewCatalog(pool *pgxpool.Pool) *Catalog {
	return &Catalog{
		pool:      pool,
		exams:     NewExamRepository(pool),
		questions: NewQuestionRepository(pool),
	}
}

// GetExam returns the exam definition or ErrNotFound.
func (c *Catalog) GetExam(ctx context.Context, examID uuid.UUID) (*model.ExamDefinition, error) {
	return c.exams.GetByID(ctx, examID)
}

// GetQuestions returns the exam's questions in order.
func (c *Catalog) GetQuestions(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	return c.questions.ListByExam(ctx, examID)
}

// ListPublished returns every published exam.
func (c *Catalog) ListPublished(ctx context.Context) ([]model.ExamDefinition, error) {
	return c.exams.ListPublished(ctx)
}

// PutExam upserts an exam and replaces its questions in one transaction.
func (c *Catalog) PutExam(ctx context.Context, exam *model.ExamDefinition, questions []model.Question) error {
	tx, err := c.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := c.exams.upsert(ctx, tx, exam); err != nil {
		return fmt.Errorf("upsert exam: %w", err)
	}
	if err := c.questions.replaceForExam(ctx, tx, exam.ID, questions); err != nil {
		return fmt.Errorf("replace questions: %w", err)
	}
	return tx.Commit(ctx)
}
