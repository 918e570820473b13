package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vigilbox/vigil-backend/internal/middleware"
	"github.com/vigilbox/vigil-backend/internal/model"
	"github.com/vigilbox/vigil-backend/internal/response"
	"github.com/vigilbox/vigil-backend/internal/service"
	"github.com/vigilbox/vigil-backend/internal/session"
	"github.com/vigilbox/vigil-backend/internal/source"
	"github.com/vigilbox/vigil-backend/internal/validator"
)

// SelectionPath is the client route to fall back to when a paper cannot be
// loaded at session start.
const SelectionPath = "/exams"

// SessionHandler handles the taker-facing session lifecycle.
type SessionHandler struct {
	sessions *service.SessionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions *service.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Start godoc
// POST /api/v1/sessions
// Resolves the requested paper source, checks the access code and starts a
// timed session. The response carries the bearer token for every follow-up
// call.
func (h *SessionHandler) Start(c *gin.Context) {
	var req model.StartSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	started, err := h.sessions.Start(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, source.ErrSourceNotFound):
			response.FailWithRedirect(c, http.StatusNotFound, response.ErrSourceNotFound, SelectionPath)
		case errors.Is(err, source.ErrSourceInvalid):
			response.FailWithRedirect(c, http.StatusBadRequest, response.ErrSourceInvalid, SelectionPath)
		case errors.Is(err, service.ErrInvalidAccessCode):
			response.Fail(c, http.StatusBadRequest, response.ErrAccessCode)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"session": started})
}

// GetState godoc
// GET /api/v1/sessions/:session_id/state
// Returns the live view: answers, marks, cursor, remaining time and any open
// warning. The frontend uses it to rebuild after a reload or reconnect.
func (h *SessionHandler) GetState(c *gin.Context) {
	sessionID, ok := middleware.SessionID(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	state, err := h.sessions.State(sessionID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
		return
	}

	response.Success(c, http.StatusOK, state)
}

// GetPaper godoc
// GET /api/v1/sessions/:session_id/paper
// Returns the session's questions without answer keys, in session order.
func (h *SessionHandler) GetPaper(c *gin.Context) {
	sessionID, ok := middleware.SessionID(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	questions, err := h.sessions.Paper(sessionID)
	if err != nil {
		response.FailWithRedirect(c, http.StatusNotFound, response.ErrSessionNotFound, SelectionPath)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// SaveAnswer godoc
// PUT /api/v1/sessions/:session_id/answers/:question_id
// Records or overwrites the answer for one question.
func (h *SessionHandler) SaveAnswer(c *gin.Context) {
	sessionID, ok := middleware.SessionID(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	questionID, err := strconv.Atoi(c.Param("question_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.AnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessions.SelectAnswer(sessionID, questionID, req.Value); err != nil {
		h.failSessionOp(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"question_id": questionID, "saved": true})
}

// ClearAnswer godoc
// DELETE /api/v1/sessions/:session_id/answers/:question_id
// Removes the stored answer so the question counts as unanswered again.
func (h *SessionHandler) ClearAnswer(c *gin.Context) {
	sessionID, ok := middleware.SessionID(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	questionID, err := strconv.Atoi(c.Param("question_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.sessions.ClearAnswer(sessionID, questionID); err != nil {
		h.failSessionOp(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"question_id": questionID, "saved": false})
}

// ToggleReview godoc
// POST /api/v1/sessions/:session_id/review
// Flips the marked-for-review flag on one question.
func (h *SessionHandler) ToggleReview(c *gin.Context) {
	sessionID, ok := middleware.SessionID(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.ReviewRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	marked, err := h.sessions.ToggleReview(sessionID, req.QuestionID)
	if err != nil {
		h.failSessionOp(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"question_id": req.QuestionID, "marked": marked})
}

// Navigate godoc
// POST /api/v1/sessions/:session_id/navigate
// Moves the cursor by a relative delta, clamped to the paper bounds.
func (h *SessionHandler) Navigate(c *gin.Context) {
	sessionID, ok := middleware.SessionID(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.NavigateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	index, err := h.sessions.Navigate(sessionID, req.Delta)
	if err != nil {
		h.failSessionOp(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"current_index": index})
}

// Signal godoc
// POST /api/v1/sessions/:session_id/signals
// Reports a proctoring event (fullscreen exit, tab switch). The response
// carries the running violation count; the warning dialog itself is pushed
// over the WebSocket and mirrored in the state view.
func (h *SessionHandler) Signal(c *gin.Context) {
	sessionID, ok := middleware.SessionID(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.SignalRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	count, counted, err := h.sessions.HandleSignal(c.Request.Context(), sessionID, req.Kind)
	if err != nil {
		h.failSessionOp(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"violation_count": count, "counted": counted})
}

// AcknowledgeWarning godoc
// POST /api/v1/sessions/:session_id/warning/ack
// Closes the open warning dialog and asks the client to re-enter fullscreen.
func (h *SessionHandler) AcknowledgeWarning(c *gin.Context) {
	sessionID, ok := middleware.SessionID(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	acknowledged, err := h.sessions.Acknowledge(sessionID)
	if err != nil {
		h.failSessionOp(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"acknowledged": acknowledged})
}

// Submit godoc
// POST /api/v1/sessions/:session_id/submit
// Finishes the session. Duplicate submissions are acknowledged without
// effect; accepted reports whether this call won the latch.
func (h *SessionHandler) Submit(c *gin.Context) {
	sessionID, ok := middleware.SessionID(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	// The body is optional; an absent reason means a manual submit.
	var req model.SubmitRequest
	if fields := validator.BindOptional(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	accepted, err := h.sessions.Submit(sessionID, req.Reason)
	if err != nil {
		h.failSessionOp(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"accepted": accepted,
		"redirect": service.ResultsPath(sessionID),
	})
}

// failSessionOp maps the session-op error set onto response codes.
func (h *SessionHandler) failSessionOp(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
	case errors.Is(err, session.ErrUnknownQuestion):
		response.Fail(c, http.StatusNotFound, response.ErrUnknownQuestion)
	case errors.Is(err, session.ErrInvalidSelection):
		response.Fail(c, http.StatusBadRequest, response.ErrBadSelection)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
