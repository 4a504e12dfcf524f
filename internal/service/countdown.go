package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/smartexam/internal/model"
)

// TickFunc receives the remaining time on every countdown tick.
type TickFunc func(remaining time.Duration)

// Countdown runs the per-session timer. Each tick recomputes the remaining
// time from the session's start instant, so suspending the process never
// makes the timer drift.
type Countdown struct {
	engine *ExamSessionService
	period time.Duration
}

// NewCountdown creates a countdown that ticks every period.
func NewCountdown(engine *ExamSessionService, period time.Duration) *Countdown {
	if period <= 0 {
		period = time.Second
	}
	return &Countdown{engine: engine, period: period}
}

// Run ticks until one of:
//   - the deadline is reached: the session is expired and its result returned
//   - the session is finished by another path: its stored result is returned
//   - ctx is done: ctx.Err() is returned
func (c *Countdown) Run(ctx context.Context, studentID int, sessionID uuid.UUID, onTick TickFunc) (*model.ExamResult, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	unregister := c.engine.countdowns.register(sessionID, cancel)
	defer unregister()

	// Registered before the first read, so a transition that lands in between
	// still cancels runCtx.
	sess, err := c.engine.getOwned(ctx, studentID, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status.IsTerminal() {
		return sess.Result(), nil
	}
	if sess.StartedAt == nil {
		return nil, ErrSessionNotStarted
	}
	exam, err := c.engine.catalog.GetExam(ctx, sess.ExamID)
	if err != nil {
		return nil, storageErr("get exam", err)
	}
	deadline := sess.Deadline(exam.Duration())

	ticker := time.NewTicker(c.period)
	defer ticker.Stop()

	for {
		remaining := RemainingTime(deadline, c.engine.clock.Now())
		if onTick != nil {
			onTick(remaining)
		}
		if remaining <= 0 {
			return c.engine.Expire(ctx, studentID, sessionID)
		}

		select {
		case <-runCtx.Done():
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			sess, err := c.engine.getOwned(ctx, studentID, sessionID)
			if err != nil {
				return nil, err
			}
			return sess.Result(), nil
		case <-ticker.C:
		}
	}
}

// countdownRegistry tracks the cancel funcs of running countdowns so any
// terminal transition can stop them.
type countdownRegistry struct {
	mu      sync.Mutex
	next    uint64
	running map[uuid.UUID]map[uint64]context.CancelFunc
}

func newCountdownRegistry() *countdownRegistry {
	return &countdownRegistry{running: make(map[uuid.UUID]map[uint64]context.CancelFunc)}
}

func (r *countdownRegistry) register(sessionID uuid.UUID, cancel context.CancelFunc) (unregister func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.next++
	id := r.next
	if r.running[sessionID] == nil {
		r.running[sessionID] = make(map[uint64]context.CancelFunc)
	}
	r.running[sessionID][id] = cancel

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if m := r.running[sessionID]; m != nil {
			delete(m, id)
			if len(m) == 0 {
				delete(r.running, sessionID)
			}
		}
	}
}

func (r *countdownRegistry) cancel(sessionID uuid.UUID) {
	r.mu.Lock()
	cancels := r.running[sessionID]
	delete(r.running, sessionID)
	r.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

// active reports how many countdowns are running for a session.
func (r *countdownRegistry) active(sessionID uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.running[sessionID])
}
