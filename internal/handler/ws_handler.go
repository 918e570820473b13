package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/vigilbox/vigil-backend/internal/middleware"
	"github.com/vigilbox/vigil-backend/internal/model"
	"github.com/vigilbox/vigil-backend/internal/response"
	"github.com/vigilbox/vigil-backend/internal/service"
	"github.com/vigilbox/vigil-backend/internal/session"
	ws "github.com/vigilbox/vigil-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// wsSink is the per-connection service.EventSink. Gorilla connections allow a
// single concurrent writer, and both the read-loop replies and the
// controller's pushed events land here, so every write goes through mu.
type wsSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
	log  zerolog.Logger
}

func (s *wsSink) write(payload any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ws.WriteTyped(s.conn, payload); err != nil {
		s.log.Debug().Err(err).Msg("Write dropped")
	}
}

func (s *wsSink) writeError(code response.ErrCode, message string) {
	s.write(ws.ErrorResponse{Event: ws.EventError, Code: string(code), Error: message})
}

// SendWarning implements service.EventSink.
func (s *wsSink) SendWarning(w model.Warning) {
	s.write(ws.WarningEvent{Event: ws.EventWarning, Warning: w})
}

// SendEnforce implements service.EventSink.
func (s *wsSink) SendEnforce(action string) {
	s.write(ws.EnforceEvent{Event: ws.EventEnforce, Action: action})
}

// SendEnded implements service.EventSink.
func (s *wsSink) SendEnded(reason model.SubmitReason, redirect string) {
	s.write(ws.EndedEvent{Event: ws.EventEnded, Reason: reason, Redirect: redirect})
}

// WSHandler handles the live session stream.
type WSHandler struct {
	sessions *service.SessionService
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessions *service.SessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessions: sessions,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/sessions/:session_id/stream
// Upgrades to WebSocket for answer traffic, proctoring signals and pushed
// events (warnings, enforcement, end-of-session).
func (h *WSHandler) SessionStream(c *gin.Context) {
	sessionID, ok := middleware.SessionID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().Str("session_id", sessionID.String()).Logger()
	sink := &wsSink{conn: conn, log: wsLog}

	detach, err := h.sessions.Attach(sessionID, sink)
	if err != nil {
		ws.WriteError(conn, string(response.ErrSessionNotFound), "no live session for this token")
		return
	}
	defer detach()

	wsLog.Info().Msg("Client connected")

	// Push the current view so a reconnecting client rebuilds immediately.
	if state, err := h.sessions.State(sessionID); err == nil {
		sink.write(ws.StateResponse{Event: ws.EventState, State: state})
	}

	for {
		var msg ws.Request
		err := ws.ReadJSON(conn, &msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		switch msg.Action {
		case ws.ActionAnswer:
			h.handleAnswer(sink, sessionID, &msg)
		case ws.ActionClear:
			h.handleClear(sink, sessionID, &msg)
		case ws.ActionReview:
			h.handleReview(sink, sessionID, &msg)
		case ws.ActionNavigate:
			h.handleNavigate(sink, sessionID, &msg)
		case ws.ActionSignal:
			h.handleSignal(sink, sessionID, &msg)
		case ws.ActionAck:
			h.handleAck(sink, sessionID)
		case ws.ActionSubmit:
			h.handleSubmit(sink, sessionID, &msg)
		case ws.ActionState:
			h.handleState(sink, sessionID)
		case ws.ActionPing:
			sink.write(ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			sink.writeError(response.ErrInvalidPayload, "unknown action: "+string(msg.Action))
		}
	}
}

func (h *WSHandler) handleAnswer(sink *wsSink, sessionID uuid.UUID, msg *ws.Request) {
	if msg.Value == "" {
		sink.writeError(response.ErrInvalidPayload, "value is required")
		return
	}

	if err := h.sessions.SelectAnswer(sessionID, msg.QuestionID, msg.Value); err != nil {
		h.failOp(sink, err)
		return
	}

	sink.write(ws.SavedResponse{Event: ws.EventSaved, QuestionID: msg.QuestionID})
}

func (h *WSHandler) handleClear(sink *wsSink, sessionID uuid.UUID, msg *ws.Request) {
	if err := h.sessions.ClearAnswer(sessionID, msg.QuestionID); err != nil {
		h.failOp(sink, err)
		return
	}

	sink.write(ws.SavedResponse{Event: ws.EventSaved, QuestionID: msg.QuestionID})
}

func (h *WSHandler) handleReview(sink *wsSink, sessionID uuid.UUID, msg *ws.Request) {
	marked, err := h.sessions.ToggleReview(sessionID, msg.QuestionID)
	if err != nil {
		h.failOp(sink, err)
		return
	}

	sink.write(ws.ReviewResponse{Event: ws.EventReview, QuestionID: msg.QuestionID, Marked: marked})
}

func (h *WSHandler) handleNavigate(sink *wsSink, sessionID uuid.UUID, msg *ws.Request) {
	index, err := h.sessions.Navigate(sessionID, msg.Delta)
	if err != nil {
		h.failOp(sink, err)
		return
	}

	sink.write(ws.IndexResponse{Event: ws.EventIndex, Index: index})
}

func (h *WSHandler) handleSignal(sink *wsSink, sessionID uuid.UUID, msg *ws.Request) {
	count, counted, err := h.sessions.HandleSignal(context.Background(), sessionID, msg.Kind)
	if err != nil {
		h.failOp(sink, err)
		return
	}

	sink.write(ws.SignalResponse{Event: ws.EventSignal, Count: count, Counted: counted})
}

func (h *WSHandler) handleAck(sink *wsSink, sessionID uuid.UUID) {
	acknowledged, err := h.sessions.Acknowledge(sessionID)
	if err != nil {
		h.failOp(sink, err)
		return
	}

	sink.write(ws.AckResponse{Event: ws.EventAck, Acknowledged: acknowledged})
}

func (h *WSHandler) handleSubmit(sink *wsSink, sessionID uuid.UUID, msg *ws.Request) {
	if msg.Reason != "" && !msg.Reason.Valid() {
		sink.writeError(response.ErrInvalidPayload, "invalid submit reason: "+string(msg.Reason))
		return
	}

	accepted, err := h.sessions.Submit(sessionID, msg.Reason)
	if err != nil {
		h.failOp(sink, err)
		return
	}

	// The ended event with the results redirect arrives separately through
	// the sink once finalization runs.
	sink.write(ws.SubmittedResponse{Event: ws.EventSubmitted, Accepted: accepted})
}

func (h *WSHandler) handleState(sink *wsSink, sessionID uuid.UUID) {
	state, err := h.sessions.State(sessionID)
	if err != nil {
		h.failOp(sink, err)
		return
	}

	sink.write(ws.StateResponse{Event: ws.EventState, State: state})
}

// failOp maps session-op errors onto error events, reusing the HTTP codes.
func (h *WSHandler) failOp(sink *wsSink, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		sink.writeError(response.ErrSessionNotFound, "session is gone")
	case errors.Is(err, session.ErrUnknownQuestion):
		sink.writeError(response.ErrUnknownQuestion, err.Error())
	case errors.Is(err, session.ErrInvalidSelection):
		sink.writeError(response.ErrBadSelection, err.Error())
	default:
		sink.writeError(response.ErrInternal, "operation failed")
	}
}
