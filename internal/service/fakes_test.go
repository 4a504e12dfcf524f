package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/smartexam/internal/clock"
	"github.com/stemsi/smartexam/internal/model"
	"github.com/stemsi/smartexam/internal/repository"
)

type fakeCatalog struct {
	mu        sync.Mutex
	exams     map[uuid.UUID]*model.ExamDefinition
	questions map[uuid.UUID][]model.Question
	err       error
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		exams:     make(map[uuid.UUID]*model.ExamDefinition),
		questions: make(map[uuid.UUID][]model.Question),
	}
}

func (c *fakeCatalog) GetExam(_ context.Context, id uuid.UUID) (*model.ExamDefinition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	e, ok := c.exams[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (c *fakeCatalog) GetQuestions(_ context.Context, id uuid.UUID) ([]model.Question, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return append([]model.Question(nil), c.questions[id]...), nil
}

func (c *fakeCatalog) ListPublished(context.Context) ([]model.ExamDefinition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	var out []model.ExamDefinition
	for _, e := range c.exams {
		if e.Published {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (c *fakeCatalog) PutExam(_ context.Context, exam *model.ExamDefinition, questions []model.Question) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	cp := *exam
	c.exams[exam.ID] = &cp
	c.questions[exam.ID] = append([]model.Question(nil), questions...)
	return nil
}

type fakeStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*model.ExamSession
	puts     int
	putErr   error
	getErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: make(map[uuid.UUID]*model.ExamSession)}
}

func (s *fakeStore) Get(_ context.Context, studentID int, examID uuid.UUID) (*model.ExamSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	for _, sess := range s.sessions {
		if sess.StudentID == studentID && sess.ExamID == examID {
			return sess.Clone(), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*model.ExamSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	sess, ok := s.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return sess.Clone(), nil
}

func (s *fakeStore) Put(_ context.Context, sess *model.ExamSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	for id, existing := range s.sessions {
		if existing.StudentID == sess.StudentID && existing.ExamID == sess.ExamID && id != sess.ID {
			delete(s.sessions, id)
		}
	}
	s.sessions[sess.ID] = sess.Clone()
	s.puts++
	return nil
}

func (s *fakeStore) ListByStudent(_ context.Context, studentID int) ([]model.ExamSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ExamSession
	for _, sess := range s.sessions {
		if sess.StudentID == studentID {
			out = append(out, *sess.Clone())
		}
	}
	return out, nil
}

func (s *fakeStore) ListInProgress(context.Context) ([]model.ExamSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ExamSession
	for _, sess := range s.sessions {
		if sess.Status == model.SessionStatusInProgress {
			out = append(out, *sess.Clone())
		}
	}
	return out, nil
}

func (s *fakeStore) stored(id uuid.UUID) *model.ExamSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		return sess.Clone()
	}
	return nil
}

func (s *fakeStore) putCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}

func (s *fakeStore) failPuts(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putErr = err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.SessionEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev model.SessionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []model.SessionEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.SessionEventType, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

// fixture wires an engine over in-memory collaborators.
type fixture struct {
	catalog *fakeCatalog
	store   *fakeStore
	clock   *clock.Manual
	events  *recordingPublisher
	svc     *ExamSessionService
	exam    *model.ExamDefinition
	qs      []model.Question
}

var testStart = time.Date(2026, 10, 20, 8, 0, 0, 0, time.UTC)

func fourOptions() []model.Option {
	return []model.Option{
		{Label: model.OptionA, Text: "a"},
		{Label: model.OptionB, Text: "b"},
		{Label: model.OptionC, Text: "c"},
		{Label: model.OptionD, Text: "d"},
	}
}

// newFixture builds an exam with one question per correct label.
func newFixture(correct ...model.OptionLabel) *fixture {
	f := &fixture{
		catalog: newFakeCatalog(),
		store:   newFakeStore(),
		clock:   clock.NewManual(testStart),
		events:  &recordingPublisher{},
	}
	f.exam = &model.ExamDefinition{
		ID:              uuid.New(),
		Title:           "Ujian",
		DurationMinutes: 10,
		PassingScore:    60,
		ScheduledDate:   "2026-10-20",
		StartTime:       "08:00",
		EndTime:         "09:00",
		Published:       true,
	}
	for i, label := range correct {
		f.qs = append(f.qs, model.Question{
			ID:            uuid.New(),
			ExamID:        f.exam.ID,
			Prompt:        "q",
			Options:       fourOptions(),
			CorrectAnswer: label,
			OrderNum:      i + 1,
		})
	}
	_ = f.catalog.PutExam(context.Background(), f.exam, f.qs)

	f.svc = NewExamSessionService(f.catalog, f.store, f.clock,
		NewVisibilityPolicy(time.UTC), f.events, zerolog.Nop())
	return f
}

func (s *fakeStore) ListByExam(_ context.Context, examID uuid.UUID) ([]model.ExamSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ExamSession
	for _, sess := range s.sessions {
		if sess.ExamID == examID {
			out = append(out, *sess.Clone())
		}
	}
	return out, nil
}
