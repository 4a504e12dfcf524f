package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stemsi/smartexam/internal/model"
	"github.com/stemsi/smartexam/internal/response"
	"github.com/stemsi/smartexam/internal/service"
	"github.com/stemsi/smartexam/internal/validator"
)

// ExamHandler handles teacher-side exam catalog endpoints.
type ExamHandler struct {
	examService *service.ExamService
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(examService *service.ExamService) *ExamHandler {
	return &ExamHandler{examService: examService}
}

// GetExam godoc
// GET /api/v1/teacher/exams/:exam_id
// Returns an exam definition with its questions and answer key.
func (h *ExamHandler) GetExam(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	exam, questions, err := h.examService.GetByID(c.Request.Context(), examID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": exam, "questions": questions})
}

// ImportExam godoc
// PUT /api/v1/teacher/exams
// Creates or replaces an exam together with its questions.
func (h *ExamHandler) ImportExam(c *gin.Context) {
	var req model.ImportExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidPayload, fields)
		return
	}

	if err := h.examService.Import(c.Request.Context(), &req.Exam, req.Questions); err != nil {
		var examErr *validator.ExamError
		if errors.As(err, &examErr) {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, examErr.Fields)
			return
		}
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": req.Exam, "questions": req.Questions})
}
