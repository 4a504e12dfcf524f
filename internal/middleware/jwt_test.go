package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/smartexam/internal/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequireStudentJWT(t *testing.T) {
	verifier := auth.NewTokenVerifier("rahasia")
	student, _ := verifier.Issue(auth.TokenTypeStudent, 5, time.Hour)
	teacher, _ := verifier.Issue(auth.TokenTypeTeacher, 9, time.Hour)

	r := gin.New()
	r.GET("/me", RequireStudentJWT(verifier), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetClaims(c).UserID})
	})

	tests := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"bearer header", "Bearer " + student, "", http.StatusOK},
		{"query token", "", student, http.StatusOK},
		{"teacher token", "Bearer " + teacher, "", http.StatusForbidden},
		{"missing token", "", "", http.StatusUnauthorized},
		{"bad token", "Bearer nope", "", http.StatusUnauthorized},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			url := "/me"
			if tc.query != "" {
				url += "?token=" + tc.query
			}
			req := httptest.NewRequest(http.MethodGet, url, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tc.want, w.Body.String())
			}
		})
	}
}
