package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Manager is the registry of live controllers. Lookups are by session id;
// a janitor goroutine sweeps finished sessions after a linger period so
// late state reads from a reconnecting client still work.
type Manager struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Controller
	log      zerolog.Logger
}

func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		sessions: make(map[uuid.UUID]*Controller),
		log:      log.With().Str("component", "session_manager").Logger(),
	}
}

// Put registers a controller under its session id.
func (m *Manager) Put(c *Controller) {
	m.mu.Lock()
	m.sessions[c.ID()] = c
	m.mu.Unlock()
}

// Get returns the controller for a session id.
func (m *Manager) Get(id uuid.UUID) (*Controller, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.sessions[id]
	return c, ok
}

// Remove closes and unregisters a controller.
func (m *Manager) Remove(id uuid.UUID) {
	m.mu.Lock()
	c, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if ok {
		c.Close()
	}
}

// Len reports how many controllers are registered.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// StartJanitor launches the background sweep loop. Submitted sessions are
// torn down once they have lingered past the grace period; running sessions
// are never touched, their timers end them first.
func (m *Manager) StartJanitor(ctx context.Context, every, linger time.Duration) {
	go func() {
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				m.closeAll()
				return
			case <-t.C:
				if n := m.sweep(linger); n > 0 {
					m.log.Debug().Int("swept", n).Msg("Finished sessions swept")
				}
			}
		}
	}()
}

// sweep removes submitted controllers whose linger period has passed and
// returns how many were removed.
func (m *Manager) sweep(linger time.Duration) int {
	now := time.Now()

	m.mu.Lock()
	var expired []*Controller
	for id, c := range m.sessions {
		if at, ok := c.SubmittedAt(); ok && now.Sub(at) >= linger {
			expired = append(expired, c)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, c := range expired {
		c.Close()
	}
	return len(expired)
}

func (m *Manager) closeAll() {
	m.mu.Lock()
	all := make([]*Controller, 0, len(m.sessions))
	for id, c := range m.sessions {
		all = append(all, c)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, c := range all {
		c.Close()
	}
	if len(all) > 0 {
		m.log.Info().Int("count", len(all)).Msg("All sessions closed")
	}
}
