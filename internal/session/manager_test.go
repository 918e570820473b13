package session

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vigilbox/vigil-backend/internal/model"
)

func TestManagerPutGetRemove(t *testing.T) {
	m := NewManager(zerolog.Nop())
	c, _, _, _ := newTestController(testSet(2))

	m.Put(c)
	if got, ok := m.Get(c.ID()); !ok || got != c {
		t.Fatal("registered controller not found")
	}
	if m.Len() != 1 {
		t.Errorf("len = %d, want 1", m.Len())
	}

	m.Remove(c.ID())
	if _, ok := m.Get(c.ID()); ok {
		t.Error("controller still registered after remove")
	}
	if m.Len() != 0 {
		t.Errorf("len = %d, want 0", m.Len())
	}
}

func TestManagerGetUnknown(t *testing.T) {
	m := NewManager(zerolog.Nop())
	if _, ok := m.Get(uuid.New()); ok {
		t.Error("unknown id reported as present")
	}
}

func TestManagerSweepRemovesLingeredSessions(t *testing.T) {
	m := NewManager(zerolog.Nop())

	running, _, _, _ := newTestController(testSet(2))
	finished, _, _, _ := newTestController(testSet(2))
	finished.Submit(model.ReasonManual)

	m.Put(running)
	m.Put(finished)

	if n := m.sweep(time.Hour); n != 0 {
		t.Errorf("sweep removed %d sessions before linger elapsed", n)
	}
	if n := m.sweep(0); n != 1 {
		t.Errorf("sweep removed %d sessions, want 1", n)
	}
	if _, ok := m.Get(finished.ID()); ok {
		t.Error("finished session still registered")
	}
	if _, ok := m.Get(running.ID()); !ok {
		t.Error("running session was swept")
	}
}
