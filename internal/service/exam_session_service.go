package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/smartexam/internal/clock"
	"github.com/stemsi/smartexam/internal/model"
	"github.com/stemsi/smartexam/internal/repository"
)

// ExamSessionService drives a student's attempt at an exam through
// NOT_STARTED → IN_PROGRESS → COMPLETED | EXPIRED_BY_TIMEOUT.
//
// Every mutating operation takes the per-session lock and re-reads the
// stored record before checking the status, so of a racing Submit and
// Expire only the first one to get the lock changes anything.
type ExamSessionService struct {
	catalog    Catalog
	store      SessionStore
	clock      clock.Clock
	policy     *VisibilityPolicy
	events     EventPublisher
	locks      *sessionLocks
	countdowns *countdownRegistry
	log        zerolog.Logger
}

// NewExamSessionService creates a new ExamSessionService. A nil publisher
// disables monitor events.
func NewExamSessionService(
	catalog Catalog,
	store SessionStore,
	clk clock.Clock,
	policy *VisibilityPolicy,
	events EventPublisher,
	log zerolog.Logger,
) *ExamSessionService {
	if events == nil {
		events = nopPublisher{}
	}
	return &ExamSessionService{
		catalog:    catalog,
		store:      store,
		clock:      clk,
		policy:     policy,
		events:     events,
		locks:      newSessionLocks(),
		countdowns: newCountdownRegistry(),
		log:        log.With().Str("component", "exam_session").Logger(),
	}
}

// SessionHandle is what a caller gets back from StartOrResume.
type SessionHandle struct {
	Session   *model.ExamSession         `json:"session"`
	Exam      *model.ExamDefinition      `json:"exam"`
	Questions []model.QuestionForStudent `json:"questions"`
	Answers   model.Answers              `json:"answers"`
	// Remaining is the time left when the handle was built. Callers count
	// down from Deadline rather than decrementing this value.
	Remaining time.Duration `json:"-"`
	Deadline  time.Time     `json:"deadline"`
	// AlreadyCompleted is set when the session is terminal. Result then
	// holds the stored outcome and the caller must not grade again.
	AlreadyCompleted bool              `json:"already_completed"`
	Result           *model.ExamResult `json:"result,omitempty"`
}

// RemainingSeconds is Remaining rounded down to whole seconds.
func (h *SessionHandle) RemainingSeconds() int64 {
	return int64(h.Remaining / time.Second)
}

// RemainingTime returns how long is left before deadline at now, never negative.
func RemainingTime(deadline, now time.Time) time.Duration {
	if d := deadline.Sub(now); d > 0 {
		return d
	}
	return 0
}

// StartOrResume opens the student's session for an exam, creating it on first
// start and resuming it afterwards. A resumed session whose deadline has
// already passed is expired on the spot and returned as finished. Drafts are
// reported as missing.
func (s *ExamSessionService) StartOrResume(ctx context.Context, studentID int, examID uuid.UUID) (*SessionHandle, error) {
	exam, questions, err := s.loadExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	if !exam.Published {
		return nil, ErrExamNotFound
	}

	unlock := s.locks.lock(studentID, examID)
	defer unlock()

	sess, err := s.store.Get(ctx, studentID, examID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, storageErr("get session", err)
	}
	now := s.clock.Now()

	if sess != nil && sess.Status.IsTerminal() {
		return s.handle(exam, questions, sess, now), nil
	}

	if sess != nil && sess.Status == model.SessionStatusInProgress && sess.StartedAt != nil {
		if RemainingTime(sess.Deadline(exam.Duration()), now) <= 0 {
			expired, err := s.expireLocked(ctx, sess, now)
			if err != nil {
				return nil, err
			}
			s.log.Info().
				Str("session_id", sess.ID.String()).
				Int("student_id", studentID).
				Msg("Session expired on resume")
			return s.handle(exam, questions, expired, now), nil
		}
		s.publish(ctx, model.SessionEventResumed, sess, now)
		s.log.Debug().
			Str("session_id", sess.ID.String()).
			Str("exam_id", examID.String()).
			Int("student_id", studentID).
			Msg("Session resumed")
		return s.handle(exam, questions, sess, now), nil
	}

	started := now
	created := &model.ExamSession{
		ID:             uuid.New(),
		StudentID:      studentID,
		ExamID:         examID,
		Status:         model.SessionStatusInProgress,
		StartedAt:      &started,
		Answers:        model.Answers{},
		TotalQuestions: len(questions),
	}
	if sess != nil {
		// A NOT_STARTED record keeps its identity.
		created.ID = sess.ID
	}
	if err := s.store.Put(ctx, created); err != nil {
		return nil, storageErr("create session", err)
	}

	s.publish(ctx, model.SessionEventStarted, created, now)
	s.log.Info().
		Str("session_id", created.ID.String()).
		Str("exam_id", examID.String()).
		Int("student_id", studentID).
		Msg("Session started")
	return s.handle(exam, questions, created, now), nil
}

// SelectAnswer records the student's choice for one question and reports the
// session status afterwards. Anything other than IN_PROGRESS means the answer
// was not stored: the session had already finished, or its deadline passed and
// it was expired instead. An empty label clears the answer for grading
// purposes.
func (s *ExamSessionService) SelectAnswer(ctx context.Context, studentID int, sessionID, questionID uuid.UUID, label model.OptionLabel) (model.SessionStatus, error) {
	sess, unlock, err := s.lockOwned(ctx, studentID, sessionID)
	if err != nil {
		return "", err
	}
	defer unlock()

	if sess.Status != model.SessionStatusInProgress {
		s.log.Debug().
			Str("session_id", sessionID.String()).
			Str("status", string(sess.Status)).
			Msg("Ignoring answer for inactive session")
		return sess.Status, nil
	}

	exam, questions, err := s.loadExam(ctx, sess.ExamID)
	if err != nil {
		return "", err
	}
	if !containsQuestion(questions, questionID) {
		return "", ErrQuestionNotInExam
	}

	now := s.clock.Now()
	if RemainingTime(sess.Deadline(exam.Duration()), now) <= 0 {
		expired, err := s.expireLocked(ctx, sess, now)
		if err != nil {
			return "", err
		}
		return expired.Status, nil
	}

	updated := sess.Clone()
	updated.Answers[questionID] = label
	if err := s.store.Put(ctx, updated); err != nil {
		return "", storageErr("save answer", err)
	}

	s.publish(ctx, model.SessionEventAnswered, updated, now)
	return updated.Status, nil
}

// Submit grades the session exactly once. A finished session returns its
// stored result untouched. A nil answers map grades what has been saved so far.
func (s *ExamSessionService) Submit(ctx context.Context, studentID int, sessionID uuid.UUID, finalAnswers model.Answers) (*model.ExamResult, error) {
	sess, unlock, err := s.lockOwned(ctx, studentID, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if sess.Status.IsTerminal() {
		return sess.Result(), nil
	}

	questions, err := s.catalog.GetQuestions(ctx, sess.ExamID)
	if err != nil {
		return nil, storageErr("get questions", err)
	}

	answers := sess.Answers
	if finalAnswers != nil {
		answers = knownAnswers(questions, finalAnswers)
	}
	g := Grade(questions, answers)

	now := s.clock.Now()
	updated := sess.Clone()
	updated.Status = model.SessionStatusCompleted
	updated.CompletedAt = &now
	updated.Answers = answers.Clone()
	updated.CorrectCount = g.Correct
	updated.IncorrectCount = g.Incorrect
	updated.BlankCount = g.Blank
	updated.TotalQuestions = g.Total
	updated.Score = g.Score

	if err := s.store.Put(ctx, updated); err != nil {
		return nil, storageErr("save graded session", err)
	}
	s.countdowns.cancel(sessionID)

	s.publish(ctx, model.SessionEventSubmitted, updated, now)
	s.log.Info().
		Str("session_id", sessionID.String()).
		Int("student_id", studentID).
		Float64("score", g.Score).
		Msg("Session submitted")
	return updated.Result(), nil
}

// Expire applies the timeout transition. It never grades. A finished session
// returns its stored result untouched.
func (s *ExamSessionService) Expire(ctx context.Context, studentID int, sessionID uuid.UUID) (*model.ExamResult, error) {
	sess, unlock, err := s.lockOwned(ctx, studentID, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if sess.Status.IsTerminal() {
		return sess.Result(), nil
	}
	expired, err := s.expireLocked(ctx, sess, s.clock.Now())
	if err != nil {
		return nil, err
	}
	return expired.Result(), nil
}

// ExpireOverdue expires every in-progress session whose deadline has passed
// and returns how many were expired. Failures on one session do not stop the
// sweep; they are returned joined.
func (s *ExamSessionService) ExpireOverdue(ctx context.Context) (int, error) {
	sessions, err := s.store.ListInProgress(ctx)
	if err != nil {
		return 0, storageErr("list in-progress sessions", err)
	}

	exams := make(map[uuid.UUID]*model.ExamDefinition)
	var (
		expired int
		errs    []error
	)
	for i := range sessions {
		candidate := &sessions[i]
		exam, ok := exams[candidate.ExamID]
		if !ok {
			exam, err = s.catalog.GetExam(ctx, candidate.ExamID)
			if err != nil {
				errs = append(errs, fmt.Errorf("session %s: get exam: %w", candidate.ID, err))
				continue
			}
			exams[candidate.ExamID] = exam
		}
		if RemainingTime(candidate.Deadline(exam.Duration()), s.clock.Now()) > 0 {
			continue
		}

		done, err := s.expireIfOverdue(ctx, candidate, exam)
		if err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", candidate.ID, err))
			continue
		}
		if done {
			expired++
		}
	}
	return expired, errors.Join(errs...)
}

func (s *ExamSessionService) expireIfOverdue(ctx context.Context, candidate *model.ExamSession, exam *model.ExamDefinition) (bool, error) {
	unlock := s.locks.lock(candidate.StudentID, candidate.ExamID)
	defer unlock()

	sess, err := s.store.GetByID(ctx, candidate.ID)
	if err != nil {
		return false, storageErr("reload session", err)
	}
	now := s.clock.Now()
	if sess.Status != model.SessionStatusInProgress || RemainingTime(sess.Deadline(exam.Duration()), now) > 0 {
		return false, nil
	}
	if _, err := s.expireLocked(ctx, sess, now); err != nil {
		return false, err
	}
	return true, nil
}

// GetResultView builds the post-exam review. Answers and the answer key are
// only included when the visibility policy allows it.
func (s *ExamSessionService) GetResultView(ctx context.Context, studentID int, examID, resultID uuid.UUID) (*model.ResultView, error) {
	sess, err := s.store.GetByID(ctx, resultID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, storageErr("get session", err)
	}
	if sess.StudentID != studentID || sess.ExamID != examID {
		return nil, ErrSessionNotFound
	}
	if !sess.Status.IsTerminal() {
		return nil, ErrResultNotFinal
	}

	exam, questions, err := s.loadExam(ctx, examID)
	if err != nil {
		return nil, err
	}

	result := sess.Result()
	view := &model.ResultView{
		Result:         *result,
		Exam:           *exam,
		Questions:      forStudent(questions),
		CanViewDetails: s.policy.CanViewDetails(exam, result, s.clock.Now()),
		Passed:         sess.Status == model.SessionStatusCompleted && sess.Score >= float64(exam.PassingScore),
	}
	if view.CanViewDetails {
		view.Answers = sess.Answers.Clone()
		view.AnswerKey = make(map[uuid.UUID]model.OptionLabel, len(questions))
		for _, q := range questions {
			view.AnswerKey[q.ID] = q.CorrectAnswer
		}
	}
	return view, nil
}

// ─── internals ───────────────────────────────────────────────────────

// expireLocked persists the timeout transition. The caller holds the lock.
func (s *ExamSessionService) expireLocked(ctx context.Context, sess *model.ExamSession, now time.Time) (*model.ExamSession, error) {
	updated := sess.Clone()
	updated.Status = model.SessionStatusExpiredByTimeout
	updated.CompletedAt = &now
	if err := s.store.Put(ctx, updated); err != nil {
		return nil, storageErr("save expired session", err)
	}
	s.countdowns.cancel(sess.ID)

	s.publish(ctx, model.SessionEventExpired, updated, now)
	s.log.Info().
		Str("session_id", sess.ID.String()).
		Str("exam_id", sess.ExamID.String()).
		Int("student_id", sess.StudentID).
		Msg("Session expired")
	return updated, nil
}

// lockOwned loads the session, takes its lock and re-reads it under the lock.
// Sessions owned by another student are reported as not found.
func (s *ExamSessionService) lockOwned(ctx context.Context, studentID int, sessionID uuid.UUID) (*model.ExamSession, func(), error) {
	sess, err := s.getOwned(ctx, studentID, sessionID)
	if err != nil {
		return nil, nil, err
	}
	unlock := s.locks.lock(studentID, sess.ExamID)
	sess, err = s.getOwned(ctx, studentID, sessionID)
	if err != nil {
		unlock()
		return nil, nil, err
	}
	return sess, unlock, nil
}

func (s *ExamSessionService) getOwned(ctx context.Context, studentID int, sessionID uuid.UUID) (*model.ExamSession, error) {
	sess, err := s.store.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, storageErr("get session", err)
	}
	if sess.StudentID != studentID {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *ExamSessionService) loadExam(ctx context.Context, examID uuid.UUID) (*model.ExamDefinition, []model.Question, error) {
	exam, err := s.catalog.GetExam(ctx, examID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrExamNotFound
		}
		return nil, nil, storageErr("get exam", err)
	}
	questions, err := s.catalog.GetQuestions(ctx, examID)
	if err != nil {
		return nil, nil, storageErr("get questions", err)
	}
	return exam, questions, nil
}

func (s *ExamSessionService) handle(exam *model.ExamDefinition, questions []model.Question, sess *model.ExamSession, now time.Time) *SessionHandle {
	h := &SessionHandle{
		Session:   sess.Clone(),
		Exam:      exam,
		Questions: forStudent(questions),
		Answers:   sess.Answers.Clone(),
	}
	if sess.Status.IsTerminal() {
		h.AlreadyCompleted = true
		h.Result = sess.Result()
		return h
	}
	h.Deadline = sess.Deadline(exam.Duration())
	h.Remaining = RemainingTime(h.Deadline, now)
	return h
}

// publish is best-effort; monitor outages never fail a transition.
func (s *ExamSessionService) publish(ctx context.Context, typ model.SessionEventType, sess *model.ExamSession, now time.Time) {
	ev := model.SessionEvent{
		Type:      typ,
		ExamID:    sess.ExamID,
		SessionID: sess.ID,
		StudentID: sess.StudentID,
		Status:    sess.Status,
		Answered:  answeredCount(sess.Answers),
		At:        now,
	}
	if typ == model.SessionEventSubmitted {
		score := sess.Score
		ev.Score = &score
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warn().Err(err).
			Str("session_id", sess.ID.String()).
			Str("event", string(typ)).
			Msg("Failed to publish session event")
	}
}

func answeredCount(a model.Answers) int {
	n := 0
	for _, v := range a {
		if v != "" {
			n++
		}
	}
	return n
}

// knownAnswers drops entries for questions outside the exam.
func knownAnswers(questions []model.Question, answers model.Answers) model.Answers {
	out := make(model.Answers, len(answers))
	for i := range questions {
		if label, ok := answers[questions[i].ID]; ok {
			out[questions[i].ID] = label
		}
	}
	return out
}

func containsQuestion(questions []model.Question, id uuid.UUID) bool {
	for i := range questions {
		if questions[i].ID == id {
			return true
		}
	}
	return false
}

func forStudent(questions []model.Question) []model.QuestionForStudent {
	out := make([]model.QuestionForStudent, len(questions))
	for i := range questions {
		out[i] = questions[i].ForStudent()
	}
	return out
}
