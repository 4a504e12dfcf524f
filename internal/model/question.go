package model

import (
	"github.com/google/uuid"
)

// OptionLabel identifies one option of a multiple-choice question.
type OptionLabel string

const (
	OptionA OptionLabel = "A"
	OptionB OptionLabel = "B"
	OptionC OptionLabel = "C"
	OptionD OptionLabel = "D"
	OptionE OptionLabel = "E"
)

// OptionAlphabet is the fixed, ordered set of labels. E is optional.
var OptionAlphabet = []OptionLabel{OptionA, OptionB, OptionC, OptionD, OptionE}

// Option is a single labeled answer choice.
type Option struct {
	Label OptionLabel `json:"label" validate:"required,oneof=A B C D E"`
	Text  string      `json:"text" validate:"required,max=2000"`
}

// Question represents a single exam question with its answer key.
type Question struct {
	ID            uuid.UUID   `json:"id"`
	ExamID        uuid.UUID   `json:"exam_id"`
	Prompt        string      `json:"prompt" validate:"required,max=4000"`
	Options       []Option    `json:"options" validate:"min=4,max=5,dive"`
	CorrectAnswer OptionLabel `json:"correct_answer" validate:"required"`
	OrderNum      int         `json:"order_num" validate:"min=0"`
}

// HasLabel reports whether the question offers an option with the given label.
func (q *Question) HasLabel(label OptionLabel) bool {
	for _, o := range q.Options {
		if o.Label == label {
			return true
		}
	}
	return false
}

// ForStudent strips the answer key.
func (q *Question) ForStudent() QuestionForStudent {
	opts := make([]Option, len(q.Options))
	copy(opts, q.Options)
	return QuestionForStudent{
		ID:       q.ID,
		Prompt:   q.Prompt,
		Options:  opts,
		OrderNum: q.OrderNum,
	}
}

// QuestionForStudent is a question without the correct answer, sent to students.
type QuestionForStudent struct {
	ID       uuid.UUID `json:"id"`
	Prompt   string    `json:"prompt"`
	Options  []Option  `json:"options"`
	OrderNum int       `json:"order_num"`
}
