package websocket

import "github.com/stemsi/smartexam/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAutosave Action = "autosave"
	ActionSubmit   Action = "submit"
	ActionPing     Action = "ping"
)

// Request is any client message. Fields not used by an action are ignored.
type Request struct {
	Action Action `json:"action"`
	// autosave
	QID    string `json:"q_id,omitempty"`
	Answer string `json:"ans,omitempty"`
	// submit; nil grades the saved answers
	Answers model.Answers `json:"answers,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventTick     Event = "tick"
	EventSaved    Event = "saved"
	EventIgnored  Event = "ignored"
	EventGraded   Event = "graded"
	EventExpired  Event = "expired"
	EventFinished Event = "finished"
	EventError    Event = "error"
	EventPong     Event = "pong"
)

// TickResponse reports the time left on the session.
type TickResponse struct {
	Event            Event `json:"event"`
	RemainingSeconds int64 `json:"remaining_seconds"`
}

// SavedResponse acknowledges an autosave. Event is ignored when the session
// was no longer in progress and the answer was dropped.
type SavedResponse struct {
	Event         Event  `json:"event"`
	QuestionID    string `json:"q_id"`
	SessionStatus string `json:"session_status"`
}

// ResultResponse carries the final result. Event is graded after a submit,
// expired after a timeout, finished when the session was already over.
type ResultResponse struct {
	Event  Event             `json:"event"`
	Status string            `json:"status"`
	Score  float64           `json:"score"`
	Result *model.ExamResult `json:"result"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}

// NewResultResponse builds the terminal event for result.
func NewResultResponse(event Event, result *model.ExamResult) ResultResponse {
	return ResultResponse{
		Event:  event,
		Status: string(result.Status),
		Score:  result.Score,
		Result: result,
	}
}
