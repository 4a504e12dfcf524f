package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamDefinition is a published exam as seen by the session engine. It is
// immutable once published.
type ExamDefinition struct {
	ID                     uuid.UUID `json:"id"`
	Title                  string    `json:"title" validate:"required,max=255"`
	Subject                string    `json:"subject" validate:"max=255"`
	GradeLevel             string    `json:"grade_level" validate:"max=64"`
	DurationMinutes        int       `json:"duration_minutes" validate:"min=1,max=480"`
	PassingScore           int       `json:"passing_score" validate:"min=0,max=100"`
	ShowResultsImmediately bool      `json:"show_results_immediately"`
	// ScheduledDate is a civil date (YYYY-MM-DD) interpreted in the schedule timezone.
	ScheduledDate string    `json:"scheduled_date" validate:"required,datetime=2006-01-02"`
	StartTime     string    `json:"start_time" validate:"required,datetime=15:04"`
	EndTime       string    `json:"end_time" validate:"required,datetime=15:04"`
	Published     bool      `json:"published"`
	CreatedAt     time.Time `json:"created_at"`
}

// Duration returns the time limit of a single attempt.
func (e *ExamDefinition) Duration() time.Duration {
	return time.Duration(e.DurationMinutes) * time.Minute
}
