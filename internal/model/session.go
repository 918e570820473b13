package model

import (
	"time"

	"github.com/google/uuid"
)

// SignalKind enumerates the proctoring signals the environment can raise.
type SignalKind string

const (
	SignalFullscreenExited SignalKind = "fullscreen_exited"
	SignalTabHidden        SignalKind = "tab_hidden"
)

// Cause returns the human-readable cause line shown in warning dialogs.
func (k SignalKind) Cause() string {
	switch k {
	case SignalFullscreenExited:
		return "Fullscreen mode was exited"
	case SignalTabHidden:
		return "You switched away from the exam tab"
	default:
		return "Suspicious activity was detected"
	}
}

// Valid reports whether the signal kind is one the monitor understands.
func (k SignalKind) Valid() bool {
	return k == SignalFullscreenExited || k == SignalTabHidden
}

// SubmitReason records why a session was finalized.
type SubmitReason string

const (
	ReasonManual             SubmitReason = "manual"
	ReasonExit               SubmitReason = "exit"
	ReasonTimeExpired        SubmitReason = "time_expired"
	ReasonViolationsExceeded SubmitReason = "violations_exceeded"
)

// Valid reports whether the reason is one a caller may pass to submit.
// Automatic reasons are produced internally and rejected from the wire.
func (r SubmitReason) Valid() bool {
	return r == ReasonManual || r == ReasonExit
}

// Warning is an open proctoring warning dialog.
type Warning struct {
	Kind    SignalKind `json:"kind"`
	Message string     `json:"message"`
	Left    int        `json:"warnings_left"`
	Final   bool       `json:"final"`
}

// SessionView is the full observable state of a running attempt. It is what
// a reconnecting client uses to restore its screen.
type SessionView struct {
	SessionID        uuid.UUID      `json:"session_id"`
	ExamName         string         `json:"exam_name"`
	StartedAt        time.Time      `json:"started_at"`
	RemainingSeconds int            `json:"remaining_seconds"`
	CurrentIndex     int            `json:"current_index"`
	TotalQuestions   int            `json:"total_questions"`
	Answers          map[int]string `json:"answers"`
	MarkedForReview  []int          `json:"marked_for_review"`
	ViolationCount   int            `json:"violation_count"`
	Warning          *Warning       `json:"warning,omitempty"`
	Submitted        bool           `json:"submitted"`
}

// ResultSnapshot is the frozen record of a finished attempt, written to the
// result slot at submission and read back by the results screen.
type ResultSnapshot struct {
	Answers     map[int]string   `json:"answers"`
	Questions   []QuestionRecord `json:"questions"`
	ExamName    string           `json:"exam_name"`
	StartedAt   time.Time        `json:"started_at"`
	SubmittedAt time.Time        `json:"submitted_at"`
	Reason      SubmitReason     `json:"reason"`
}

// StartSessionRequest is the payload for opening a new attempt.
type StartSessionRequest struct {
	Source     SourceRef `json:"source" binding:"required"`
	AccessCode string    `json:"access_code" binding:"omitempty,max=64"`
	TakerName  string    `json:"taker_name" binding:"omitempty,max=120"`
}

// SessionStarted is the reply after an attempt has been opened. The paper is
// included so the taker screen can render without a second round trip.
type SessionStarted struct {
	SessionID       uuid.UUID          `json:"session_id"`
	Token           string             `json:"token"`
	ExamName        string             `json:"exam_name"`
	StartedAt       time.Time          `json:"started_at"`
	DurationSeconds int                `json:"duration_seconds"`
	MaxViolations   int                `json:"max_violations"`
	Questions       []QuestionForTaker `json:"questions"`
}

// AnswerRequest is the payload for recording one answer. The question id
// comes from the route.
type AnswerRequest struct {
	Value string `json:"value" binding:"required,min=1,max=1000"`
}

// ReviewRequest is the payload for toggling the review mark on a question.
type ReviewRequest struct {
	QuestionID int `json:"question_id" binding:"required,min=1"`
}

// NavigateRequest is the payload for moving the current question cursor.
// Delta zero is a legal no-op, so there is no required tag; the controller
// clamps whatever arrives.
type NavigateRequest struct {
	Delta int `json:"delta"`
}

// SignalRequest is the payload for reporting a proctoring signal.
type SignalRequest struct {
	Kind SignalKind `json:"kind" binding:"required,oneof=fullscreen_exited tab_hidden"`
}

// SubmitRequest is the payload for a caller-initiated submission.
type SubmitRequest struct {
	Reason SubmitReason `json:"reason" binding:"omitempty,oneof=manual exit"`
}
