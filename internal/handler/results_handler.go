package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vigilbox/vigil-backend/internal/middleware"
	"github.com/vigilbox/vigil-backend/internal/repository"
	"github.com/vigilbox/vigil-backend/internal/response"
	"github.com/vigilbox/vigil-backend/internal/service"
)

// ResultsHandler serves the frozen snapshot of finished sessions.
type ResultsHandler struct {
	sessions *service.SessionService
}

// NewResultsHandler creates a new ResultsHandler.
func NewResultsHandler(sessions *service.SessionService) *ResultsHandler {
	return &ResultsHandler{sessions: sessions}
}

// GetResult godoc
// GET /api/v1/sessions/:session_id/result
// Returns the persisted result snapshot. The session token stays valid after
// submission, so the results screen reuses it.
func (h *ResultsHandler) GetResult(c *gin.Context) {
	sessionID, ok := middleware.SessionID(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	snapshot, err := h.sessions.Result(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// A live controller without a snapshot means the session has not
			// been submitted yet.
			if _, stateErr := h.sessions.State(sessionID); stateErr == nil {
				response.Fail(c, http.StatusConflict, response.ErrResultNotReady)
				return
			}
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": snapshot})
}
