package validator

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stemsi/smartexam/internal/model"
)

func validExam() (*model.ExamDefinition, []model.Question) {
	exam := &model.ExamDefinition{
		ID:              uuid.New(),
		Title:           "Fisika",
		DurationMinutes: 60,
		PassingScore:    75,
		ScheduledDate:   "2026-10-20",
		StartTime:       "08:00",
		EndTime:         "09:30",
	}
	q := model.Question{
		ID:     uuid.New(),
		Prompt: "Satuan gaya?",
		Options: []model.Option{
			{Label: model.OptionA, Text: "Newton"},
			{Label: model.OptionB, Text: "Joule"},
			{Label: model.OptionC, Text: "Watt"},
			{Label: model.OptionD, Text: "Pascal"},
		},
		CorrectAnswer: model.OptionA,
		OrderNum:      1,
	}
	return exam, []model.Question{q}
}

func TestValidateExam(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*model.ExamDefinition, []model.Question) []model.Question
		wantKey string
	}{
		{
			name:   "valid four options",
			mutate: func(_ *model.ExamDefinition, qs []model.Question) []model.Question { return qs },
		},
		{
			name: "valid five options",
			mutate: func(_ *model.ExamDefinition, qs []model.Question) []model.Question {
				qs[0].Options = append(qs[0].Options, model.Option{Label: model.OptionE, Text: "Volt"})
				qs[0].CorrectAnswer = model.OptionE
				return qs
			},
		},
		{
			name: "zero questions is allowed",
			mutate: func(_ *model.ExamDefinition, _ []model.Question) []model.Question {
				return nil
			},
		},
		{
			name: "zero duration",
			mutate: func(e *model.ExamDefinition, qs []model.Question) []model.Question {
				e.DurationMinutes = 0
				return qs
			},
			wantKey: "exam.duration_minutes",
		},
		{
			name: "passing score above 100",
			mutate: func(e *model.ExamDefinition, qs []model.Question) []model.Question {
				e.PassingScore = 101
				return qs
			},
			wantKey: "exam.passing_score",
		},
		{
			name: "malformed end time",
			mutate: func(e *model.ExamDefinition, qs []model.Question) []model.Question {
				e.EndTime = "9.30"
				return qs
			},
			wantKey: "exam.end_time",
		},
		{
			name: "three options",
			mutate: func(_ *model.ExamDefinition, qs []model.Question) []model.Question {
				qs[0].Options = qs[0].Options[:3]
				return qs
			},
			wantKey: "questions[0].options",
		},
		{
			name: "labels out of order",
			mutate: func(_ *model.ExamDefinition, qs []model.Question) []model.Question {
				qs[0].Options[0].Label, qs[0].Options[1].Label = model.OptionB, model.OptionA
				return qs
			},
			wantKey: "questions[0].options",
		},
		{
			name: "correct answer not among labels",
			mutate: func(_ *model.ExamDefinition, qs []model.Question) []model.Question {
				qs[0].CorrectAnswer = model.OptionE
				return qs
			},
			wantKey: "questions[0].correct_answer",
		},
		{
			name: "duplicate question id",
			mutate: func(_ *model.ExamDefinition, qs []model.Question) []model.Question {
				dup := qs[0]
				dup.Options = append([]model.Option(nil), qs[0].Options...)
				return append(qs, dup)
			},
			wantKey: "questions[1].id",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			exam, qs := validExam()
			qs = tc.mutate(exam, qs)

			err := ValidateExam(exam, qs)
			if tc.wantKey == "" {
				if err != nil {
					t.Fatalf("ValidateExam() = %v, want nil", err)
				}
				return
			}

			var ee *ExamError
			if !errors.As(err, &ee) {
				t.Fatalf("ValidateExam() = %v, want *ExamError", err)
			}
			if _, ok := ee.Fields[tc.wantKey]; !ok {
				t.Errorf("fields = %v, want key %q", ee.Fields, tc.wantKey)
			}
			if !strings.HasPrefix(ee.Error(), "invalid exam: ") {
				t.Errorf("Error() = %q", ee.Error())
			}
		})
	}
}
