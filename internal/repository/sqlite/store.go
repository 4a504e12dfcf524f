// Package sqlite is the device-local store: exam catalog and session records
// in a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/smartexam/internal/model"
	"github.com/stemsi/smartexam/internal/repository"

	_ "modernc.org/sqlite" // driver: sqlite
)

// DefaultDSN is used when no DSN is configured.
const DefaultDSN = "file:smartexam.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"

// Store implements the catalog and session store over database/sql.
type Store struct {
	db *sql.DB
}

// Open opens the database and ensures the schema exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = DefaultDSN
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// One writer at a time; SQLite serialises anyway and this keeps
	// in-memory databases on a single connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const schema = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS exams (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  subject TEXT NOT NULL DEFAULT '',
  grade_level TEXT NOT NULL DEFAULT '',
  duration_minutes INTEGER NOT NULL,
  passing_score INTEGER NOT NULL DEFAULT 0,
  show_results_immediately INTEGER NOT NULL DEFAULT 0,
  scheduled_date TEXT NOT NULL,
  start_time TEXT NOT NULL,
  end_time TEXT NOT NULL,
  published INTEGER NOT NULL DEFAULT 0,
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS questions (
  id TEXT PRIMARY KEY,
  exam_id TEXT NOT NULL REFERENCES exams(id) ON DELETE CASCADE,
  prompt TEXT NOT NULL,
  options_json TEXT NOT NULL,
  correct_answer TEXT NOT NULL,
  order_num INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_questions_exam ON questions(exam_id, order_num);

CREATE TABLE IF NOT EXISTS exam_sessions (
  id TEXT PRIMARY KEY,
  student_id INTEGER NOT NULL,
  exam_id TEXT NOT NULL REFERENCES exams(id) ON DELETE CASCADE,
  status TEXT NOT NULL,
  started_at INTEGER,
  completed_at INTEGER,
  answers_json TEXT NOT NULL DEFAULT '{}',
  score REAL NOT NULL DEFAULT 0,
  correct_count INTEGER NOT NULL DEFAULT 0,
  incorrect_count INTEGER NOT NULL DEFAULT 0,
  blank_count INTEGER NOT NULL DEFAULT 0,
  total_questions INTEGER NOT NULL DEFAULT 0,
  UNIQUE (student_id, exam_id)
);

CREATE INDEX IF NOT EXISTS idx_exam_sessions_status ON exam_sessions(status);
`

// ─── Catalog ─────────────────────────────────────────────────────────

const examColumns = `id, title, subject, grade_level, duration_minutes, passing_score,
	show_results_immediately, scheduled_date, start_time, end_time, published, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanExam(row scanner) (*model.ExamDefinition, error) {
	var (
		e         model.ExamDefinition
		id        string
		createdAt int64
	)
	err := row.Scan(&id, &e.Title, &e.Subject, &e.GradeLevel, &e.DurationMinutes, &e.PassingScore,
		&e.ShowResultsImmediately, &e.ScheduledDate, &e.StartTime, &e.EndTime, &e.Published, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	if e.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse exam id: %w", err)
	}
	e.CreatedAt = time.Unix(0, createdAt)
	return &e, nil
}

// GetExam returns the exam definition or repository.ErrNotFound.
func (s *Store) GetExam(ctx context.Context, examID uuid.UUID) (*model.ExamDefinition, error) {
	return scanExam(s.db.QueryRowContext(ctx,
		`SELECT `+examColumns+` FROM exams WHERE id = ?`, examID.String()))
}

// ListPublished returns every published exam, newest schedule first.
func (s *Store) ListPublished(ctx context.Context) ([]model.ExamDefinition, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+examColumns+` FROM exams WHERE published = 1 ORDER BY scheduled_date DESC, title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exams []model.ExamDefinition
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, err
		}
		exams = append(exams, *e)
	}
	return exams, rows.Err()
}

// GetQuestions returns the exam's questions ordered by order_num.
func (s *Store) GetQuestions(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, exam_id, prompt, options_json, correct_answer, order_num
		 FROM questions WHERE exam_id = ?
		 ORDER BY order_num, id`, examID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var (
			q           model.Question
			id, exam    string
			optionsJSON string
		)
		if err := rows.Scan(&id, &exam, &q.Prompt, &optionsJSON, &q.CorrectAnswer, &q.OrderNum); err != nil {
			return nil, err
		}
		if q.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse question id: %w", err)
		}
		if q.ExamID, err = uuid.Parse(exam); err != nil {
			return nil, fmt.Errorf("parse exam id: %w", err)
		}
		if err := json.Unmarshal([]byte(optionsJSON), &q.Options); err != nil {
			return nil, fmt.Errorf("decode options of question %s: %w", q.ID, err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// PutExam upserts an exam and replaces its questions in one transaction.
func (s *Store) PutExam(ctx context.Context, exam *model.ExamDefinition, questions []model.Question) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	createdAt := exam.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO exams (`+examColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		     title = excluded.title,
		     subject = excluded.subject,
		     grade_level = excluded.grade_level,
		     duration_minutes = excluded.duration_minutes,
		     passing_score = excluded.passing_score,
		     show_results_immediately = excluded.show_results_immediately,
		     scheduled_date = excluded.scheduled_date,
		     start_time = excluded.start_time,
		     end_time = excluded.end_time,
		     published = excluded.published`,
		exam.ID.String(), exam.Title, exam.Subject, exam.GradeLevel, exam.DurationMinutes, exam.PassingScore,
		exam.ShowResultsImmediately, exam.ScheduledDate, exam.StartTime, exam.EndTime, exam.Published,
		createdAt.UnixNano())
	if err != nil {
		return fmt.Errorf("upsert exam: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE exam_id = ?`, exam.ID.String()); err != nil {
		return fmt.Errorf("clear questions: %w", err)
	}
	for i := range questions {
		q := &questions[i]
		options, err := json.Marshal(q.Options)
		if err != nil {
			return fmt.Errorf("encode options: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO questions (id, exam_id, prompt, options_json, correct_answer, order_num)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			q.ID.String(), exam.ID.String(), q.Prompt, string(options), string(q.CorrectAnswer), q.OrderNum)
		if err != nil {
			return fmt.Errorf("insert question %s: %w", q.ID, err)
		}
	}
	return tx.Commit()
}

// ─── Sessions ────────────────────────────────────────────────────────

const sessionColumns = `id, student_id, exam_id, status, started_at, completed_at, answers_json,
	score, correct_count, incorrect_count, blank_count, total_questions`

func scanSession(row scanner) (*model.ExamSession, error) {
	var (
		sess                   model.ExamSession
		id, examID, answers    string
		startedAt, completedAt sql.NullInt64
	)
	err := row.Scan(&id, &sess.StudentID, &examID, &sess.Status, &startedAt, &completedAt, &answers,
		&sess.Score, &sess.CorrectCount, &sess.IncorrectCount, &sess.BlankCount, &sess.TotalQuestions)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	if sess.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse session id: %w", err)
	}
	if sess.ExamID, err = uuid.Parse(examID); err != nil {
		return nil, fmt.Errorf("parse exam id: %w", err)
	}
	sess.StartedAt = fromUnixNano(startedAt)
	sess.CompletedAt = fromUnixNano(completedAt)
	sess.Answers = model.Answers{}
	if answers != "" {
		if err := json.Unmarshal([]byte(answers), &sess.Answers); err != nil {
			return nil, fmt.Errorf("decode answers of session %s: %w", sess.ID, err)
		}
	}
	return &sess, nil
}

// Get returns the session for (studentID, examID) or repository.ErrNotFound.
func (s *Store) Get(ctx context.Context, studentID int, examID uuid.UUID) (*model.ExamSession, error) {
	return scanSession(s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions WHERE student_id = ? AND exam_id = ?`,
		studentID, examID.String()))
}

// GetByID returns the session by id or repository.ErrNotFound.
func (s *Store) GetByID(ctx context.Context, sessionID uuid.UUID) (*model.ExamSession, error) {
	return scanSession(s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions WHERE id = ?`, sessionID.String()))
}

// Put upserts the full session record. Last write wins.
func (s *Store) Put(ctx context.Context, sess *model.ExamSession) error {
	answers, err := json.Marshal(sess.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO exam_sessions (`+sessionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (student_id, exam_id) DO UPDATE SET
		     status = excluded.status,
		     started_at = excluded.started_at,
		     completed_at = excluded.completed_at,
		     answers_json = excluded.answers_json,
		     score = excluded.score,
		     correct_count = excluded.correct_count,
		     incorrect_count = excluded.incorrect_count,
		     blank_count = excluded.blank_count,
		     total_questions = excluded.total_questions`,
		sess.ID.String(), sess.StudentID, sess.ExamID.String(), string(sess.Status),
		toUnixNano(sess.StartedAt), toUnixNano(sess.CompletedAt), string(answers),
		sess.Score, sess.CorrectCount, sess.IncorrectCount, sess.BlankCount, sess.TotalQuestions)
	return err
}

// ListByStudent returns every session of a student.
func (s *Store) ListByStudent(ctx context.Context, studentID int) ([]model.ExamSession, error) {
	return s.listSessions(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions WHERE student_id = ? ORDER BY started_at DESC`, studentID)
}

// ListByExam returns every session of an exam.
func (s *Store) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.ExamSession, error) {
	return s.listSessions(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions WHERE exam_id = ? ORDER BY student_id`, examID.String())
}

// ListInProgress returns every session that has not reached a terminal state.
func (s *Store) ListInProgress(ctx context.Context) ([]model.ExamSession, error) {
	return s.listSessions(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions WHERE status = ? ORDER BY started_at`,
		string(model.SessionStatusInProgress))
}

func (s *Store) listSessions(ctx context.Context, query string, args ...any) ([]model.ExamSession, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.ExamSession
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *sess)
	}
	return sessions, rows.Err()
}

func toUnixNano(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func fromUnixNano(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := time.Unix(0, n.Int64)
	return &t
}
