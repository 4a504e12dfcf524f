package model

import "github.com/google/uuid"

// SelectAnswerRequest saves one answer. An empty answer clears the choice.
type SelectAnswerRequest struct {
	QuestionID uuid.UUID   `json:"question_id" binding:"required"`
	Answer     OptionLabel `json:"answer" binding:"omitempty,max=1"`
}

// SubmitRequest finishes a session. Without answers the saved ones are graded.
type SubmitRequest struct {
	Answers Answers `json:"answers"`
}

// ImportExamRequest carries a full exam definition with its questions.
type ImportExamRequest struct {
	Exam      ExamDefinition `json:"exam"`
	Questions []Question     `json:"questions"`
}
