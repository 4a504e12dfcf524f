package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates exam session states.
type SessionStatus string

const (
	SessionStatusNotStarted       SessionStatus = "NOT_STARTED"
	SessionStatusInProgress       SessionStatus = "IN_PROGRESS"
	SessionStatusCompleted        SessionStatus = "COMPLETED"
	SessionStatusExpiredByTimeout SessionStatus = "EXPIRED_BY_TIMEOUT"
)

// IsTerminal reports whether no further mutation is allowed.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusExpiredByTimeout
}

// Answers maps question id to the chosen option label.
type Answers map[uuid.UUID]OptionLabel

// Clone returns an independent copy.
func (a Answers) Clone() Answers {
	out := make(Answers, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// ExamSession represents one student's attempt at one exam.
// There is at most one per (StudentID, ExamID).
type ExamSession struct {
	ID          uuid.UUID     `json:"id"`
	StudentID   int           `json:"student_id"`
	ExamID      uuid.UUID     `json:"exam_id"`
	Status      SessionStatus `json:"status"`
	StartedAt   *time.Time    `json:"started_at,omitempty"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Answers     Answers       `json:"answers"`

	// Grading fields, written once on the terminal transition.
	Score          float64 `json:"score"`
	CorrectCount   int     `json:"correct_count"`
	IncorrectCount int     `json:"incorrect_count"`
	BlankCount     int     `json:"blank_count"`
	TotalQuestions int     `json:"total_questions"`
}

// Clone returns a deep copy so a failed write never leaves a half-applied
// transition in memory.
func (s *ExamSession) Clone() *ExamSession {
	c := *s
	c.Answers = s.Answers.Clone()
	if s.StartedAt != nil {
		t := *s.StartedAt
		c.StartedAt = &t
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// Deadline returns StartedAt + d, or the zero time if the session never started.
func (s *ExamSession) Deadline(d time.Duration) time.Time {
	if s.StartedAt == nil {
		return time.Time{}
	}
	return s.StartedAt.Add(d)
}

// Result projects the session into its graded result.
func (s *ExamSession) Result() *ExamResult {
	return &ExamResult{
		ID:             s.ID,
		StudentID:      s.StudentID,
		ExamID:         s.ExamID,
		Status:         s.Status,
		Score:          s.Score,
		CorrectCount:   s.CorrectCount,
		IncorrectCount: s.IncorrectCount,
		BlankCount:     s.BlankCount,
		TotalQuestions: s.TotalQuestions,
		StartedAt:      s.StartedAt,
		CompletedAt:    s.CompletedAt,
	}
}
