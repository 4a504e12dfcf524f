package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stemsi/smartexam/internal/middleware"
	"github.com/stemsi/smartexam/internal/model"
	"github.com/stemsi/smartexam/internal/response"
	"github.com/stemsi/smartexam/internal/service"
	"github.com/stemsi/smartexam/internal/validator"
)

// StudentPortalHandler handles student-facing endpoints (lobby, exam taking, results).
type StudentPortalHandler struct {
	sessionService *service.ExamSessionService
}

// NewStudentPortalHandler creates a new StudentPortalHandler.
func NewStudentPortalHandler(sessionService *service.ExamSessionService) *StudentPortalHandler {
	return &StudentPortalHandler{sessionService: sessionService}
}

// sessionPayload is the JSON shape of a SessionHandle.
type sessionPayload struct {
	Session          *model.ExamSession         `json:"session"`
	Exam             *model.ExamDefinition      `json:"exam"`
	Questions        []model.QuestionForStudent `json:"questions"`
	Answers          model.Answers              `json:"answers"`
	RemainingSeconds int64                      `json:"remaining_seconds"`
	Deadline         *time.Time                 `json:"deadline,omitempty"`
	AlreadyCompleted bool                       `json:"already_completed"`
	Result           *model.ExamResult          `json:"result,omitempty"`
}

func newSessionPayload(h *service.SessionHandle) sessionPayload {
	p := sessionPayload{
		Session:          h.Session,
		Exam:             h.Exam,
		Questions:        h.Questions,
		Answers:          h.Answers,
		RemainingSeconds: h.RemainingSeconds(),
		AlreadyCompleted: h.AlreadyCompleted,
		Result:           h.Result,
	}
	if !h.Deadline.IsZero() {
		d := h.Deadline
		p.Deadline = &d
	}
	return p
}

// answerPayload tells the client whether an answer was stored.
type answerPayload struct {
	Status        string              `json:"status"`
	SessionStatus model.SessionStatus `json:"session_status"`
}

const (
	answerSaved   = "saved"
	answerIgnored = "ignored"
)

func newAnswerPayload(status model.SessionStatus) answerPayload {
	p := answerPayload{Status: answerSaved, SessionStatus: status}
	if status != model.SessionStatusInProgress {
		p.Status = answerIgnored
	}
	return p
}

// GetLobby godoc
// GET /api/v1/student/lobby
// Returns published exams grouped by the student's progress.
func (h *StudentPortalHandler) GetLobby(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	lobby, err := h.sessionService.Lobby(c.Request.Context(), claims.UserID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, lobby)
}

// StartOrResume godoc
// POST /api/v1/student/exams/:exam_id/session
// Starts the exam or resumes the existing attempt (idempotent).
func (h *StudentPortalHandler) StartOrResume(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	handle, err := h.sessionService.StartOrResume(c.Request.Context(), claims.UserID, examID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, newSessionPayload(handle))
}

// SelectAnswer godoc
// PUT /api/v1/student/sessions/:session_id/answers
// Saves one answer. Once the session is finished the answer is dropped and
// the reply says "ignored" along with the session status.
func (h *StudentPortalHandler) SelectAnswer(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SelectAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	status, err := h.sessionService.SelectAnswer(c.Request.Context(), claims.UserID, sessionID, req.QuestionID, req.Answer)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, newAnswerPayload(status))
}

// Submit godoc
// POST /api/v1/student/sessions/:session_id/submit
// Grades the session once; repeated calls return the stored result.
func (h *StudentPortalHandler) Submit(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SubmitRequest
	if fields := validator.BindOptional(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidPayload, fields)
		return
	}

	result, err := h.sessionService.Submit(c.Request.Context(), claims.UserID, sessionID, req.Answers)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// Expire godoc
// POST /api/v1/student/sessions/:session_id/expire
// Called by the client countdown when time runs out. Never grades.
func (h *StudentPortalHandler) Expire(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	result, err := h.sessionService.Expire(c.Request.Context(), claims.UserID, sessionID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// GetResultView godoc
// GET /api/v1/student/exams/:exam_id/results/:result_id
// Returns the review of a finished attempt. Answers are only included once
// the exam window has closed or the exam shows results immediately.
func (h *StudentPortalHandler) GetResultView(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	resultID, err := uuid.Parse(c.Param("result_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	view, err := h.sessionService.GetResultView(c.Request.Context(), claims.UserID, examID, resultID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, view)
}
