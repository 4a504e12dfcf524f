package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamResult is the outcome of a finished session. Its ID is the session ID.
type ExamResult struct {
	ID             uuid.UUID     `json:"id"`
	StudentID      int           `json:"student_id"`
	ExamID         uuid.UUID     `json:"exam_id"`
	Status         SessionStatus `json:"status"`
	Score          float64       `json:"score"`
	CorrectCount   int           `json:"correct_count"`
	IncorrectCount int           `json:"incorrect_count"`
	BlankCount     int           `json:"blank_count"`
	TotalQuestions int           `json:"total_questions"`
	StartedAt      *time.Time    `json:"started_at,omitempty"`
	CompletedAt    *time.Time    `json:"completed_at,omitempty"`
}

// ResultView is the post-exam review projection. Answers and AnswerKey are
// only populated when CanViewDetails is true.
type ResultView struct {
	Result         ExamResult                `json:"result"`
	Exam           ExamDefinition            `json:"exam"`
	Questions      []QuestionForStudent      `json:"questions"`
	Answers        Answers                   `json:"answers,omitempty"`
	AnswerKey      map[uuid.UUID]OptionLabel `json:"answer_key,omitempty"`
	CanViewDetails bool                      `json:"can_view_details"`
	Passed         bool                      `json:"passed"`
}
