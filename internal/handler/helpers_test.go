package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/smartexam/internal/auth"
	"github.com/stemsi/smartexam/internal/clock"
	"github.com/stemsi/smartexam/internal/middleware"
	"github.com/stemsi/smartexam/internal/model"
	"github.com/stemsi/smartexam/internal/monitor"
	"github.com/stemsi/smartexam/internal/repository/sqlite"
	"github.com/stemsi/smartexam/internal/response"
	"github.com/stemsi/smartexam/internal/service"
	"github.com/stemsi/smartexam/internal/validator"
)

const testStudentID = 42

var (
	validatorOnce sync.Once
	// 2026-10-20 08:00 UTC, the start of the fixture exam window.
	testStart = time.Date(2026, 10, 20, 8, 0, 0, 0, time.UTC)
)

type testEnv struct {
	router    *gin.Engine
	store     *sqlite.Store
	clock     *clock.Manual
	engine    *service.ExamSessionService
	verifier  *auth.TokenVerifier
	exam      *model.ExamDefinition
	questions []model.Question
	student   string
	teacher   string
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code   string            `json:"code"`
		Fields map[string]string `json:"fields"`
	} `json:"error"`
}

// newTestEnv wires the handlers over an in-memory SQLite store. rdb enables
// the live monitor and may be nil.
func newTestEnv(t *testing.T, rdb *redis.Client, showResults bool) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validatorOnce.Do(validator.Setup)

	ctx := context.Background()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	store, err := sqlite.Open(ctx, "file:"+name+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	exam := &model.ExamDefinition{
		ID:                     uuid.New(),
		Title:                  "Fisika",
		DurationMinutes:        10,
		PassingScore:           60,
		ShowResultsImmediately: showResults,
		ScheduledDate:          "2026-10-20",
		StartTime:              "08:00",
		EndTime:                "09:00",
		Published:              true,
		CreatedAt:              testStart,
	}
	questions := []model.Question{
		testQuestion(exam.ID, 1, model.OptionA),
		testQuestion(exam.ID, 2, model.OptionB),
	}
	if err := store.PutExam(ctx, exam, questions); err != nil {
		t.Fatalf("seed exam: %v", err)
	}

	clk := clock.NewManual(testStart)
	var (
		events     service.EventPublisher = monitor.NopPublisher{}
		subscriber EventSubscriber
	)
	if rdb != nil {
		pub := monitor.NewRedisPublisher(rdb)
		events, subscriber = pub, pub
	}
	log := zerolog.Nop()
	engine := service.NewExamSessionService(store, store, clk, service.NewVisibilityPolicy(time.UTC), events, log)
	countdown := service.NewCountdown(engine, 5*time.Millisecond)
	examService := service.NewExamService(store, store, nil, log)

	portal := NewStudentPortalHandler(engine)
	examHandler := NewExamHandler(examService)
	wsHandler := NewWSHandler(engine, countdown, log, nil)
	monitorHandler := NewMonitorHandler(subscriber, service.NewMonitorService(store, store), log)
	system := NewSystemHandler(store.Ping, rdb, log)

	verifier := auth.NewTokenVerifier("handler-test-secret")

	r := gin.New()
	r.Use(response.RequestIDMiddleware())
	r.GET("/health", system.Health)
	student := r.Group("/api/v1/student", middleware.RequireStudentJWT(verifier))
	student.GET("/lobby", portal.GetLobby)
	student.POST("/exams/:exam_id/session", portal.StartOrResume)
	student.GET("/exams/:exam_id/results/:result_id", portal.GetResultView)
	student.PUT("/sessions/:session_id/answers", portal.SelectAnswer)
	student.POST("/sessions/:session_id/submit", portal.Submit)
	student.POST("/sessions/:session_id/expire", portal.Expire)
	r.GET("/ws/v1/student/sessions/:session_id/stream", middleware.RequireStudentJWT(verifier), wsHandler.SessionStream)
	teacher := r.Group("/api/v1/teacher", middleware.RequireTeacherJWT(verifier))
	teacher.PUT("/exams", examHandler.ImportExam)
	teacher.GET("/exams/:exam_id", examHandler.GetExam)
	teacher.GET("/exams/:exam_id/monitor", monitorHandler.MonitorExamSSE)

	env := &testEnv{
		router:    r,
		store:     store,
		clock:     clk,
		engine:    engine,
		verifier:  verifier,
		exam:      exam,
		questions: questions,
	}
	env.student = env.token(t, auth.TokenTypeStudent, testStudentID)
	env.teacher = env.token(t, auth.TokenTypeTeacher, 7)
	return env
}

func testQuestion(examID uuid.UUID, order int, correct model.OptionLabel) model.Question {
	return model.Question{
		ID:     uuid.New(),
		ExamID: examID,
		Prompt: "Soal",
		Options: []model.Option{
			{Label: model.OptionA, Text: "a"},
			{Label: model.OptionB, Text: "b"},
			{Label: model.OptionC, Text: "c"},
			{Label: model.OptionD, Text: "d"},
		},
		CorrectAnswer: correct,
		OrderNum:      order,
	}
}

func (e *testEnv) token(t *testing.T, typ auth.TokenType, userID int) string {
	t.Helper()
	tok, err := e.verifier.Issue(typ, userID, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok
}

// do performs a request against the router and decodes the envelope.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
	}
	return rec.Code, env
}

// start opens the fixture session for the test student.
func (e *testEnv) start(t *testing.T) sessionPayload {
	t.Helper()
	code, env := e.do(t, http.MethodPost, "/api/v1/student/exams/"+e.exam.ID.String()+"/session", e.student, nil)
	if code != http.StatusOK {
		t.Fatalf("start: status %d, error %+v", code, env.Error)
	}
	var p sessionPayload
	mustDecode(t, env.Data, &p)
	return p
}

func mustDecode(t *testing.T, raw json.RawMessage, v any) {
	t.Helper()
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
}

func errCode(env envelope) string {
	if env.Error == nil {
		return ""
	}
	return env.Error.Code
}
