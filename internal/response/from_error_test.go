package response

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stemsi/smartexam/internal/service"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   ErrCode
	}{
		{service.ErrExamNotFound, http.StatusNotFound, ErrExamNotFound},
		{fmt.Errorf("wrap: %w", service.ErrSessionNotFound), http.StatusNotFound, ErrSessionNotFound},
		{service.ErrQuestionNotInExam, http.StatusUnprocessableEntity, ErrQuestionNotInExam},
		{service.ErrExamPublished, http.StatusConflict, ErrExamPublished},
		{service.ErrResultNotFinal, http.StatusConflict, ErrResultNotFinal},
		{service.ErrSessionNotStarted, http.StatusConflict, ErrSessionNotStarted},
		{&service.StorageError{Op: "put", Err: errors.New("io")}, http.StatusServiceUnavailable, ErrStorage},
		{errors.New("boom"), http.StatusInternalServerError, ErrInternal},
	}
	for _, tc := range tests {
		t.Run(string(tc.code), func(t *testing.T) {
			status, code := Classify(tc.err)
			if status != tc.status || code != tc.code {
				t.Errorf("Classify(%v) = %d %s, want %d %s", tc.err, status, code, tc.status, tc.code)
			}
		})
	}
}
