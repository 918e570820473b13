package service

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/vigilbox/vigil-backend/internal/model"
)

// Enforcement actions pushed to clients.
const (
	EnforceEnterFullscreen = "enter_fullscreen"
	EnforceExitFullscreen  = "exit_fullscreen"
)

// ErrNoClient means no live connection is attached to the session; push
// effects are dropped and the client catches up from state on reconnect.
var ErrNoClient = errors.New("no client attached")

// EventSink receives the push-side events for one connected client. The
// websocket handler implements it; tests use in-memory fakes.
type EventSink interface {
	SendWarning(w model.Warning)
	SendEnforce(action string)
	SendEnded(reason model.SubmitReason, redirect string)
}

// clientHub tracks at most one live sink per session and adapts the
// controller's presenter/environment callbacks onto it. A session with no
// attached client simply loses pushes; its state stays authoritative on the
// server.
type clientHub struct {
	mu    sync.RWMutex
	sinks map[uuid.UUID]EventSink
}

func newClientHub() *clientHub {
	return &clientHub{sinks: make(map[uuid.UUID]EventSink)}
}

// attach registers a sink for a session, replacing any previous one, and
// returns the matching detach func. Detach is a no-op if a newer sink has
// taken over in the meantime.
func (h *clientHub) attach(id uuid.UUID, sink EventSink) func() {
	h.mu.Lock()
	h.sinks[id] = sink
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		if h.sinks[id] == sink {
			delete(h.sinks, id)
		}
		h.mu.Unlock()
	}
}

func (h *clientHub) get(id uuid.UUID) EventSink {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sinks[id]
}

// ShowWarning implements session.Presenter.
func (h *clientHub) ShowWarning(id uuid.UUID, w model.Warning) {
	if sink := h.get(id); sink != nil {
		sink.SendWarning(w)
	}
}

// NavigateToResults implements session.Presenter.
func (h *clientHub) NavigateToResults(id uuid.UUID, reason model.SubmitReason) {
	if sink := h.get(id); sink != nil {
		sink.SendEnded(reason, ResultsPath(id))
	}
}

// RequestFullscreen implements session.Environment.
func (h *clientHub) RequestFullscreen(id uuid.UUID) {
	if sink := h.get(id); sink != nil {
		sink.SendEnforce(EnforceEnterFullscreen)
	}
}

// ExitFullscreen implements session.Environment. It fails when no client is
// listening, which submission treats as best effort.
func (h *clientHub) ExitFullscreen(id uuid.UUID) error {
	sink := h.get(id)
	if sink == nil {
		return ErrNoClient
	}
	sink.SendEnforce(EnforceExitFullscreen)
	return nil
}

// ResultsPath is the client route for a finished session's results screen.
func ResultsPath(id uuid.UUID) string {
	return fmt.Sprintf("/results/%s", id)
}
