package session

import (
	"testing"

	"github.com/vigilbox/vigil-backend/internal/model"
)

func TestTickCountsDown(t *testing.T) {
	set := testSet(2)
	set.DurationSeconds = 10
	c, _, _, _ := newTestController(set)

	for i := 0; i < 3; i++ {
		c.tick()
	}
	if got := c.State().RemainingSeconds; got != 7 {
		t.Errorf("remaining = %d, want 7", got)
	}
}

func TestExpirySubmitsExactlyOnce(t *testing.T) {
	set := testSet(2)
	set.DurationSeconds = 3
	c, p, _, s := newTestController(set)

	for i := 0; i < 10; i++ {
		c.tick()
	}

	view := c.State()
	if view.RemainingSeconds != 0 {
		t.Errorf("remaining = %d, want 0", view.RemainingSeconds)
	}
	if !view.Submitted {
		t.Error("session not submitted after expiry")
	}
	saves := s.Saves()
	if len(saves) != 1 {
		t.Fatalf("saves = %d, want 1", len(saves))
	}
	if saves[0].Reason != model.ReasonTimeExpired {
		t.Errorf("reason = %q, want %q", saves[0].Reason, model.ReasonTimeExpired)
	}
	if navs := p.Navigations(); len(navs) != 1 || navs[0] != model.ReasonTimeExpired {
		t.Errorf("navigations = %v, want one time_expired", navs)
	}
}

func TestFullDurationCountdown(t *testing.T) {
	c, _, _, s := newTestController(testSet(1))

	for i := 0; i < 7200; i++ {
		c.tick()
	}
	if got := c.State().RemainingSeconds; got != 0 {
		t.Errorf("remaining = %d, want 0", got)
	}
	if len(s.Saves()) != 1 {
		t.Errorf("saves = %d, want exactly 1", len(s.Saves()))
	}
}

func TestTickAfterManualSubmitIsNoop(t *testing.T) {
	set := testSet(2)
	set.DurationSeconds = 100
	c, _, _, s := newTestController(set)

	c.tick()
	if !c.Submit(model.ReasonManual) {
		t.Fatal("submit did not win the latch")
	}
	before := c.State().RemainingSeconds

	for i := 0; i < 5; i++ {
		c.tick()
	}
	if got := c.State().RemainingSeconds; got != before {
		t.Errorf("remaining moved after submit: %d -> %d", before, got)
	}
	if len(s.Saves()) != 1 {
		t.Errorf("saves = %d, want 1", len(s.Saves()))
	}
}

func TestExpiryFreezesAnswers(t *testing.T) {
	set := testSet(2)
	set.DurationSeconds = 1
	c, _, _, _ := newTestController(set)

	if err := c.SelectAnswer(1, "A"); err != nil {
		t.Fatalf("SelectAnswer: %v", err)
	}
	c.tick()

	if err := c.SelectAnswer(2, "B"); err != nil {
		t.Errorf("post-expiry select returned %v, want nil no-op", err)
	}
	view := c.State()
	if len(view.Answers) != 1 {
		t.Errorf("answers = %v, want only question 1", view.Answers)
	}
}
