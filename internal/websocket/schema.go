package websocket

import "github.com/vigilbox/vigil-backend/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer   Action = "answer"
	ActionClear    Action = "clear"
	ActionReview   Action = "review"
	ActionNavigate Action = "navigate"
	ActionSignal   Action = "signal"
	ActionAck      Action = "ack"
	ActionSubmit   Action = "submit"
	ActionState    Action = "state"
	ActionPing     Action = "ping"
)

// Request is a client message. Which fields matter depends on Action.
type Request struct {
	Action     Action             `json:"action"`
	QuestionID int                `json:"question_id,omitempty"`
	Value      string             `json:"value,omitempty"`
	Delta      int                `json:"delta,omitempty"`
	Kind       model.SignalKind   `json:"kind,omitempty"`
	Reason     model.SubmitReason `json:"reason,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventSaved     Event = "saved"
	EventReview    Event = "review"
	EventIndex     Event = "index"
	EventState     Event = "state"
	EventSignal    Event = "signal"
	EventWarning   Event = "warning"
	EventEnforce   Event = "enforce"
	EventAck       Event = "ack"
	EventSubmitted Event = "submitted"
	EventEnded     Event = "ended"
	EventError     Event = "error"
	EventPong      Event = "pong"
)

// SavedResponse confirms an answer write or clear.
type SavedResponse struct {
	Event      Event `json:"event"`
	QuestionID int   `json:"question_id"`
}

// ReviewResponse echoes a review toggle.
type ReviewResponse struct {
	Event      Event `json:"event"`
	QuestionID int   `json:"question_id"`
	Marked     bool  `json:"marked"`
}

// IndexResponse echoes the cursor position after navigation.
type IndexResponse struct {
	Event Event `json:"event"`
	Index int   `json:"index"`
}

// StateResponse carries the full session view, sent on connect and on
// request.
type StateResponse struct {
	Event Event             `json:"event"`
	State model.SessionView `json:"state"`
}

// SignalResponse reports the violation count after a proctoring signal.
type SignalResponse struct {
	Event   Event `json:"event"`
	Count   int   `json:"count"`
	Counted bool  `json:"counted"`
}

// WarningEvent pushes a proctoring warning dialog.
type WarningEvent struct {
	Event   Event         `json:"event"`
	Warning model.Warning `json:"warning"`
}

// EnforceEvent tells the client to change its display surface.
type EnforceEvent struct {
	Event  Event  `json:"event"`
	Action string `json:"action"`
}

// AckResponse confirms a warning acknowledgement. Acknowledged is false when
// no dialog was open.
type AckResponse struct {
	Event        Event `json:"event"`
	Acknowledged bool  `json:"acknowledged"`
}

// SubmittedResponse answers a submit action. Accepted is false when an
// earlier submission already won the latch.
type SubmittedResponse struct {
	Event    Event `json:"event"`
	Accepted bool  `json:"accepted"`
}

// EndedEvent announces the end of the session and where to go next.
type EndedEvent struct {
	Event    Event              `json:"event"`
	Reason   model.SubmitReason `json:"reason"`
	Redirect string             `json:"redirect"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
