package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/smartexam/internal/service"
)

// Classify maps a service error to an HTTP status and error code.
func Classify(err error) (int, ErrCode) {
	switch {
	case errors.Is(err, service.ErrExamNotFound):
		return http.StatusNotFound, ErrExamNotFound
	case errors.Is(err, service.ErrExamPublished):
		return http.StatusConflict, ErrExamPublished
	case errors.Is(err, service.ErrSessionNotFound):
		return http.StatusNotFound, ErrSessionNotFound
	case errors.Is(err, service.ErrQuestionNotInExam):
		return http.StatusUnprocessableEntity, ErrQuestionNotInExam
	case errors.Is(err, service.ErrResultNotFinal):
		return http.StatusConflict, ErrResultNotFinal
	case errors.Is(err, service.ErrSessionNotStarted):
		return http.StatusConflict, ErrSessionNotStarted
	case errors.Is(err, service.ErrStorage):
		return http.StatusServiceUnavailable, ErrStorage
	default:
		return http.StatusInternalServerError, ErrInternal
	}
}

// FromError sends the error response matching a service error.
func FromError(c *gin.Context, err error) {
	status, code := Classify(err)
	Fail(c, status, code)
}
