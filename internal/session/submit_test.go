package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vigilbox/vigil-backend/internal/model"
)

func TestSubmitIdempotent(t *testing.T) {
	c, p, e, s := newTestController(testSet(3))

	if !c.Submit(model.ReasonManual) {
		t.Fatal("first submit lost the latch")
	}
	for _, r := range []model.SubmitReason{model.ReasonExit, model.ReasonTimeExpired, model.ReasonManual} {
		if c.Submit(r) {
			t.Errorf("later submit(%s) won the latch", r)
		}
	}

	if n := len(s.Saves()); n != 1 {
		t.Errorf("saves = %d, want 1", n)
	}
	if navs := p.Navigations(); len(navs) != 1 || navs[0] != model.ReasonManual {
		t.Errorf("navigations = %v, want one manual", navs)
	}
	if _, exits := e.counts(); exits != 1 {
		t.Errorf("fullscreen exits = %d, want 1", exits)
	}
	if s.Saves()[0].Reason != model.ReasonManual {
		t.Errorf("recorded reason = %q, want manual", s.Saves()[0].Reason)
	}
}

func TestSubmitSnapshotContents(t *testing.T) {
	set := testSet(3)
	c, _, _, s := newTestController(set)

	if err := c.SelectAnswer(1, "A"); err != nil {
		t.Fatalf("SelectAnswer: %v", err)
	}
	if err := c.SelectAnswer(3, "D"); err != nil {
		t.Fatalf("SelectAnswer: %v", err)
	}
	c.Submit(model.ReasonExit)

	saves := s.Saves()
	if len(saves) != 1 {
		t.Fatalf("saves = %d, want 1", len(saves))
	}
	snap := saves[0]
	if snap.ExamName != "Midterm" {
		t.Errorf("exam name = %q", snap.ExamName)
	}
	if len(snap.Questions) != 3 {
		t.Errorf("questions = %d, want 3", len(snap.Questions))
	}
	if snap.Answers[1] != "A" || snap.Answers[3] != "D" || len(snap.Answers) != 2 {
		t.Errorf("answers = %v", snap.Answers)
	}
	if snap.Reason != model.ReasonExit {
		t.Errorf("reason = %q, want exit", snap.Reason)
	}
	if snap.StartedAt.IsZero() || snap.SubmittedAt.IsZero() {
		t.Error("timestamps missing from snapshot")
	}
	if snap.SubmittedAt.Before(snap.StartedAt) {
		t.Error("submitted before started")
	}
	// Snapshot keeps the full records, key included, for downstream review.
	if len(snap.Questions[0].Answer) == 0 {
		t.Error("snapshot question lost its answer key")
	}
}

func TestSubmitFreezesAllMutation(t *testing.T) {
	c, _, _, _ := newTestController(testSet(3))

	if err := c.SelectAnswer(1, "B"); err != nil {
		t.Fatalf("SelectAnswer: %v", err)
	}
	c.Navigate(2)
	c.Submit(model.ReasonManual)

	if err := c.SelectAnswer(2, "C"); err != nil {
		t.Errorf("post-submit select = %v, want nil no-op", err)
	}
	if err := c.ClearAnswer(1); err != nil {
		t.Errorf("post-submit clear = %v, want nil no-op", err)
	}
	if marked, err := c.ToggleReview(1); err != nil || marked {
		t.Errorf("post-submit toggle = (%v, %v), want (false, nil)", marked, err)
	}
	if idx := c.Navigate(-2); idx != 2 {
		t.Errorf("post-submit navigate moved cursor to %d", idx)
	}

	view := c.State()
	if len(view.Answers) != 1 || view.Answers[1] != "B" {
		t.Errorf("answers mutated after submit: %v", view.Answers)
	}
	if view.CurrentIndex != 2 {
		t.Errorf("index mutated after submit: %d", view.CurrentIndex)
	}
}

func TestSubmitProceedsWhenFullscreenExitFails(t *testing.T) {
	c, p, e, s := newTestController(testSet(2))
	e.exitErr = errors.New("not in fullscreen")

	if !c.Submit(model.ReasonManual) {
		t.Fatal("submit lost the latch")
	}
	if n := len(s.Saves()); n != 1 {
		t.Errorf("saves = %d, want 1 despite fullscreen failure", n)
	}
	if n := len(p.Navigations()); n != 1 {
		t.Errorf("navigations = %d, want 1 despite fullscreen failure", n)
	}
}

func TestSubmitNavigatesWhenStoreFails(t *testing.T) {
	c, p, _, s := newTestController(testSet(2))
	s.err = errors.New("redis down")

	c.Submit(model.ReasonManual)
	if n := len(p.Navigations()); n != 1 {
		t.Errorf("navigations = %d, want 1 despite store failure", n)
	}
}

func TestConcurrentSubmitSingleWinner(t *testing.T) {
	c, p, _, s := newTestController(testSet(2))

	reasons := []model.SubmitReason{
		model.ReasonManual, model.ReasonExit, model.ReasonManual,
		model.ReasonExit, model.ReasonManual, model.ReasonExit,
		model.ReasonManual, model.ReasonExit, model.ReasonManual,
		model.ReasonExit,
	}
	var wg sync.WaitGroup
	wins := make(chan model.SubmitReason, len(reasons))
	for _, r := range reasons {
		wg.Add(1)
		go func(r model.SubmitReason) {
			defer wg.Done()
			if c.Submit(r) {
				wins <- r
			}
		}(r)
	}
	wg.Wait()
	close(wins)

	var winners []model.SubmitReason
	for r := range wins {
		winners = append(winners, r)
	}
	if len(winners) != 1 {
		t.Fatalf("winners = %d, want 1", len(winners))
	}
	if n := len(s.Saves()); n != 1 {
		t.Errorf("saves = %d, want 1", n)
	}
	if navs := p.Navigations(); len(navs) != 1 || navs[0] != winners[0] {
		t.Errorf("navigations = %v, winner = %v", navs, winners[0])
	}
}

func TestDelayedResultsNavigation(t *testing.T) {
	p := &fakePresenter{}
	c := New(uuid.New(), testSet(2), Deps{Presenter: p}, Config{MaxViolations: 3, NavigateDelay: 30 * time.Millisecond}, zerolog.Nop())

	c.Submit(model.ReasonManual)
	if n := len(p.Navigations()); n != 0 {
		t.Fatalf("navigated before the delay elapsed (%d)", n)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(p.Navigations()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("navigation never fired")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if navs := p.Navigations(); navs[0] != model.ReasonManual {
		t.Errorf("navigation reason = %q, want manual", navs[0])
	}
}
