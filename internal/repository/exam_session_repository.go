package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/smartexam/internal/model"
)

const sessionColumns = `id, student_id, exam_id, status, started_at, completed_at, answers,
	score, correct_count, incorrect_count, blank_count, total_questions`

// ExamSessionRepository handles exam session data access.
type ExamSessionRepository struct {
	pool *pgxpool.Pool
}

// NewExamSessionRepository creates a new ExamSessionRepository.
func NewExamSessionRepository(pool *pgxpool.Pool) *ExamSessionRepository {
	return &ExamSessionRepository{pool: pool}
}

func scanSession(row pgx.Row) (*model.ExamSession, error) {
	s := &model.ExamSession{}
	var answers []byte
	err := row.Scan(&s.ID, &s.StudentID, &s.ExamID, &s.Status, &s.StartedAt, &s.CompletedAt, &answers,
		&s.Score, &s.CorrectCount, &s.IncorrectCount, &s.BlankCount, &s.TotalQuestions)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	s.Answers = model.Answers{}
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &s.Answers); err != nil {
			return nil, fmt.Errorf("decode answers of session %s: %w", s.ID, err)
		}
	}
	return s, nil
}

// Get retrieves the session for a specific student-exam combination.
func (r *ExamSessionRepository) Get(ctx context.Context, studentID int, examID uuid.UUID) (*model.ExamSession, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions
		 WHERE student_id = $1 AND exam_id = $2`, studentID, examID))
}

// GetByID retrieves a session by its UUID.
func (r *ExamSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamSession, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions WHERE id = $1`, id))
}

// Put upserts the full session record. Last write wins.
func (r *ExamSessionRepository) Put(ctx context.Context, s *model.ExamSession) error {
	answers, err := json.Marshal(s.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO exam_sessions (`+sessionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (student_id, exam_id) DO UPDATE SET
		     status = EXCLUDED.status,
		     started_at = EXCLUDED.started_at,
		     completed_at = EXCLUDED.completed_at,
		     answers = EXCLUDED.answers,
		     score = EXCLUDED.score,
		     correct_count = EXCLUDED.correct_count,
		     incorrect_count = EXCLUDED.incorrect_count,
		     blank_count = EXCLUDED.blank_count,
		     total_questions = EXCLUDED.total_questions`,
		s.ID, s.StudentID, s.ExamID, s.Status, s.StartedAt, s.CompletedAt, answers,
		s.Score, s.CorrectCount, s.IncorrectCount, s.BlankCount, s.TotalQuestions)
	return err
}

// ListByStudent retrieves all sessions for a given student.
func (r *ExamSessionRepository) ListByStudent(ctx context.Context, studentID int) ([]model.ExamSession, error) {
	return r.list(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions
		 WHERE student_id = $1
		 ORDER BY started_at DESC NULLS LAST`, studentID)
}

// ListByExam retrieves all sessions of an exam.
func (r *ExamSessionRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.ExamSession, error) {
	return r.list(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions
		 WHERE exam_id = $1
		 ORDER BY student_id`, examID)
}

// ListInProgress retrieves every session that has not reached a terminal state.
func (r *ExamSessionRepository) ListInProgress(ctx context.Context) ([]model.ExamSession, error) {
	return r.list(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions
		 WHERE status = $1
		 ORDER BY started_at`, model.SessionStatusInProgress)
}

func (r *ExamSessionRepository) list(ctx context.Context, query string, args ...any) ([]model.ExamSession, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.ExamSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}
