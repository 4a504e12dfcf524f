package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stemsi/smartexam/internal/model"
)

func TestGrade(t *testing.T) {
	q := func(correct model.OptionLabel) model.Question {
		return model.Question{ID: uuid.New(), Options: fourOptions(), CorrectAnswer: correct}
	}
	qs := []model.Question{q(model.OptionA), q(model.OptionB), q(model.OptionC), q(model.OptionD)}

	tests := []struct {
		name      string
		questions []model.Question
		answers   model.Answers
		want      Grading
	}{
		{
			name:      "mixed correct incorrect blank",
			questions: qs,
			answers: model.Answers{
				qs[0].ID: "A",
				qs[1].ID: "B",
				qs[2].ID: "X",
			},
			want: Grading{Correct: 2, Incorrect: 1, Blank: 1, Total: 4, Score: 50},
		},
		{
			name:      "empty label counts as blank",
			questions: qs,
			answers:   model.Answers{qs[0].ID: ""},
			want:      Grading{Blank: 4, Total: 4},
		},
		{
			name:      "match is case sensitive",
			questions: qs[:1],
			answers:   model.Answers{qs[0].ID: "a"},
			want:      Grading{Incorrect: 1, Total: 1},
		},
		{
			name:      "answers for unknown questions are ignored",
			questions: qs[:1],
			answers:   model.Answers{uuid.New(): "A", qs[0].ID: "A"},
			want:      Grading{Correct: 1, Total: 1, Score: 100},
		},
		{
			name:      "no questions scores zero",
			questions: nil,
			answers:   model.Answers{uuid.New(): "A"},
			want:      Grading{},
		},
		{
			name:      "nil answers",
			questions: qs,
			want:      Grading{Blank: 4, Total: 4},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Grade(tc.questions, tc.answers)
			if got != tc.want {
				t.Errorf("Grade() = %+v, want %+v", got, tc.want)
			}
		})
	}
}
