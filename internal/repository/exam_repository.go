package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/smartexam/internal/model"
)

const examColumns = `id, title, subject, grade_level, duration_minutes, passing_score,
	show_results_immediately, to_char(scheduled_date, 'YYYY-MM-DD'), start_time, end_time,
	published, created_at`

// ExamRepository handles exam data access.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

func scanExam(row pgx.Row, e *model.ExamDefinition) error {
	return row.Scan(&e.ID, &e.Title, &e.Subject, &e.GradeLevel, &e.DurationMinutes, &e.PassingScore,
		&e.ShowResultsImmediately, &e.ScheduledDate, &e.StartTime, &e.EndTime,
		&e.Published, &e.CreatedAt)
}

// GetByID retrieves an exam by its UUID.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamDefinition, error) {
	e := &model.ExamDefinition{}
	err := scanExam(r.pool.QueryRow(ctx, `SELECT `+examColumns+` FROM exams WHERE id = $1`, id), e)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

// ListPublished retrieves all published exams, newest schedule first.
func (r *ExamRepository) ListPublished(ctx context.Context) ([]model.ExamDefinition, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+examColumns+` FROM exams WHERE published = TRUE ORDER BY scheduled_date DESC, title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exams []model.ExamDefinition
	for rows.Next() {
		var e model.ExamDefinition
		if err := scanExam(rows, &e); err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

// upsert inserts or replaces an exam row inside tx.
func (r *ExamRepository) upsert(ctx context.Context, tx pgx.Tx, e *model.ExamDefinition) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO exams (id, title, subject, grade_level, duration_minutes, passing_score,
		                    show_results_immediately, scheduled_date, start_time, end_time, published)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8::date, $9, $10, $11)
		 ON CONFLICT (id) DO UPDATE SET
		     title = EXCLUDED.title,
		     subject = EXCLUDED.subject,
		     grade_level = EXCLUDED.grade_level,
		     duration_minutes = EXCLUDED.duration_minutes,
		     passing_score = EXCLUDED.passing_score,
		     show_results_immediately = EXCLUDED.show_results_immediately,
		     scheduled_date = EXCLUDED.scheduled_date,
		     start_time = EXCLUDED.start_time,
		     end_time = EXCLUDED.end_time,
		     published = EXCLUDED.published`,
		e.ID, e.Title, e.Subject, e.GradeLevel, e.DurationMinutes, e.PassingScore,
		e.ShowResultsImmediately, e.ScheduledDate, e.StartTime, e.EndTime, e.Published)
	return err
}
