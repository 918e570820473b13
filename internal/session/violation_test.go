package session

import (
	"strings"
	"testing"

	"github.com/vigilbox/vigil-backend/internal/model"
)

func TestDecideViolation(t *testing.T) {
	tests := []struct {
		count, max int
		want       violationVerdict
	}{
		{1, 3, verdictWarn},
		{2, 3, verdictFinalWarn},
		{3, 3, verdictTerminate},
		{4, 3, verdictTerminate},
		{1, 2, verdictFinalWarn},
		{2, 2, verdictTerminate},
		{1, 1, verdictTerminate},
		{3, 5, verdictWarn},
		{4, 5, verdictFinalWarn},
	}
	for _, tt := range tests {
		if got := decideViolation(tt.count, tt.max); got != tt.want {
			t.Errorf("decideViolation(%d, %d) = %v, want %v", tt.count, tt.max, got, tt.want)
		}
	}
}

func TestWarningEscalation(t *testing.T) {
	c, p, _, _ := newTestController(testSet(2))

	count, counted := c.HandleSignal(model.SignalFullscreenExited)
	if count != 1 || !counted {
		t.Fatalf("first signal = (%d, %v), want (1, true)", count, counted)
	}
	count, counted = c.HandleSignal(model.SignalTabHidden)
	if count != 2 || !counted {
		t.Fatalf("second signal = (%d, %v), want (2, true)", count, counted)
	}

	warnings := p.Warnings()
	if len(warnings) != 2 {
		t.Fatalf("warnings = %d, want 2", len(warnings))
	}
	if !strings.Contains(warnings[0].Message, "2 warning(s) left") {
		t.Errorf("first warning message = %q", warnings[0].Message)
	}
	if warnings[0].Final {
		t.Error("first warning marked final")
	}
	if !strings.Contains(warnings[1].Message, "1 warning(s) left") {
		t.Errorf("second warning message = %q", warnings[1].Message)
	}
	if !warnings[1].Final {
		t.Error("second warning not marked final")
	}
	if !strings.HasPrefix(warnings[0].Message, "Fullscreen mode was exited") {
		t.Errorf("first warning cause = %q", warnings[0].Message)
	}
	if !strings.HasPrefix(warnings[1].Message, "You switched away from the exam tab") {
		t.Errorf("second warning cause = %q", warnings[1].Message)
	}
}

func TestThirdViolationTerminates(t *testing.T) {
	c, p, _, s := newTestController(testSet(2))

	c.HandleSignal(model.SignalTabHidden)
	c.HandleSignal(model.SignalTabHidden)
	count, counted := c.HandleSignal(model.SignalFullscreenExited)
	if count != 3 || !counted {
		t.Fatalf("terminal signal = (%d, %v), want (3, true)", count, counted)
	}

	// The terminal violation must not raise a third dialog.
	if n := len(p.Warnings()); n != 2 {
		t.Errorf("warnings = %d, want 2", n)
	}
	view := c.State()
	if !view.Submitted {
		t.Error("session not submitted after terminal violation")
	}
	if view.Warning != nil {
		t.Error("open warning survived termination")
	}
	saves := s.Saves()
	if len(saves) != 1 {
		t.Fatalf("saves = %d, want 1", len(saves))
	}
	if saves[0].Reason != model.ReasonViolationsExceeded {
		t.Errorf("reason = %q, want %q", saves[0].Reason, model.ReasonViolationsExceeded)
	}
	if navs := p.Navigations(); len(navs) != 1 || navs[0] != model.ReasonViolationsExceeded {
		t.Errorf("navigations = %v", navs)
	}
}

func TestAcknowledgeClosesDialogAndRestoresFullscreen(t *testing.T) {
	c, _, e, _ := newTestController(testSet(2))

	c.HandleSignal(model.SignalFullscreenExited)
	if c.State().Warning == nil {
		t.Fatal("no open warning after signal")
	}

	if !c.AcknowledgeWarning() {
		t.Fatal("acknowledge reported no open dialog")
	}
	if c.State().Warning != nil {
		t.Error("warning still open after acknowledge")
	}
	if req, _ := e.counts(); req != 1 {
		t.Errorf("fullscreen requests = %d, want 1", req)
	}

	// Acknowledging with no open dialog is a no-op.
	if c.AcknowledgeWarning() {
		t.Error("second acknowledge reported an open dialog")
	}
	if req, _ := e.counts(); req != 1 {
		t.Errorf("fullscreen requests = %d, want still 1", req)
	}
}

func TestViolationCountNeverDecays(t *testing.T) {
	c, _, _, _ := newTestController(testSet(2))

	c.HandleSignal(model.SignalTabHidden)
	c.AcknowledgeWarning()
	count, _ := c.HandleSignal(model.SignalTabHidden)
	if count != 2 {
		t.Errorf("count after ack + signal = %d, want 2", count)
	}
	c.AcknowledgeWarning()
	if got := c.State().ViolationCount; got != 2 {
		t.Errorf("count after final ack = %d, want 2", got)
	}
}

func TestRapidSignalsWithoutAcknowledge(t *testing.T) {
	c, p, _, _ := newTestController(testSet(2))

	c.HandleSignal(model.SignalFullscreenExited)
	c.HandleSignal(model.SignalTabHidden)

	if n := len(p.Warnings()); n != 2 {
		t.Fatalf("warnings = %d, want 2 (no debounce)", n)
	}
	// The open dialog is the newest warning.
	w := c.State().Warning
	if w == nil || w.Kind != model.SignalTabHidden || !w.Final {
		t.Errorf("open warning = %+v, want final tab_hidden", w)
	}
}

func TestSignalAfterSubmitIgnored(t *testing.T) {
	c, p, _, _ := newTestController(testSet(2))

	c.Submit(model.ReasonManual)
	count, counted := c.HandleSignal(model.SignalTabHidden)
	if counted {
		t.Error("post-submit signal was counted")
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
	if n := len(p.Warnings()); n != 0 {
		t.Errorf("warnings = %d, want 0", n)
	}
}

func TestUnknownSignalKindIgnored(t *testing.T) {
	c, p, _, _ := newTestController(testSet(2))

	count, counted := c.HandleSignal(model.SignalKind("telepathy"))
	if counted || count != 0 {
		t.Errorf("unknown kind = (%d, %v), want (0, false)", count, counted)
	}
	if n := len(p.Warnings()); n != 0 {
		t.Errorf("warnings = %d, want 0", n)
	}
}
