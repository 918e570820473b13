package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vigilbox/vigil-backend/internal/model"
)

type fakePresenter struct {
	mu       sync.Mutex
	warnings []model.Warning
	navs     []model.SubmitReason
}

func (p *fakePresenter) ShowWarning(_ uuid.UUID, w model.Warning) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.warnings = append(p.warnings, w)
}

func (p *fakePresenter) NavigateToResults(_ uuid.UUID, r model.SubmitReason) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navs = append(p.navs, r)
}

func (p *fakePresenter) Warnings() []model.Warning {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.Warning, len(p.warnings))
	copy(out, p.warnings)
	return out
}

func (p *fakePresenter) Navigations() []model.SubmitReason {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.SubmitReason, len(p.navs))
	copy(out, p.navs)
	return out
}

type fakeEnv struct {
	mu       sync.Mutex
	requests int
	exits    int
	exitErr  error
}

func (e *fakeEnv) RequestFullscreen(uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.requests++
}

func (e *fakeEnv) ExitFullscreen(uuid.UUID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.exits++
	return e.exitErr
}

func (e *fakeEnv) counts() (requests, exits int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.requests, e.exits
}

type fakeStore struct {
	mu    sync.Mutex
	saves []*model.ResultSnapshot
	err   error
}

func (s *fakeStore) SaveResult(_ context.Context, _ uuid.UUID, snap *model.ResultSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves = append(s.saves, snap)
	return s.err
}

func (s *fakeStore) Saves() []*model.ResultSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.ResultSnapshot, len(s.saves))
	copy(out, s.saves)
	return out
}

func testSet(n int) *model.QuestionSet {
	qs := make([]model.QuestionRecord, n)
	for i := range qs {
		qs[i] = model.QuestionRecord{
			ID:       i + 1,
			Topic:    "algebra",
			Question: fmt.Sprintf("Question %d", i+1),
			Options:  []string{"A", "B", "C", "D"},
			Answer:   json.RawMessage(`"B"`),
		}
	}
	return &model.QuestionSet{
		ExamName:        "Midterm",
		DurationSeconds: 7200,
		MaxViolations:   3,
		Questions:       qs,
	}
}

func newTestController(set *model.QuestionSet) (*Controller, *fakePresenter, *fakeEnv, *fakeStore) {
	p := &fakePresenter{}
	e := &fakeEnv{}
	s := &fakeStore{}
	c := New(uuid.New(), set, Deps{Presenter: p, Env: e, Results: s}, Config{MaxViolations: set.MaxViolations}, zerolog.Nop())
	return c, p, e, s
}

func TestSelectAnswerOverwrites(t *testing.T) {
	c, _, _, _ := newTestController(testSet(3))

	if err := c.SelectAnswer(1, "A"); err != nil {
		t.Fatalf("SelectAnswer: %v", err)
	}
	if err := c.SelectAnswer(1, "C"); err != nil {
		t.Fatalf("SelectAnswer overwrite: %v", err)
	}

	if got := c.State().Answers[1]; got != "C" {
		t.Errorf("answer = %q, want %q", got, "C")
	}
	if n := len(c.State().Answers); n != 1 {
		t.Errorf("answer count = %d, want 1", n)
	}
}

func TestSelectAnswerUnknownQuestion(t *testing.T) {
	c, _, _, _ := newTestController(testSet(3))

	if err := c.SelectAnswer(99, "A"); err != ErrUnknownQuestion {
		t.Errorf("err = %v, want ErrUnknownQuestion", err)
	}
	if n := len(c.State().Answers); n != 0 {
		t.Errorf("answer count = %d, want 0", n)
	}
}

func TestSelectAnswerInvalidValue(t *testing.T) {
	c, _, _, _ := newTestController(testSet(3))

	if err := c.SelectAnswer(1, "Z"); err != ErrInvalidSelection {
		t.Errorf("err = %v, want ErrInvalidSelection", err)
	}
}

func TestClearAnswer(t *testing.T) {
	c, _, _, _ := newTestController(testSet(3))

	if err := c.SelectAnswer(2, "D"); err != nil {
		t.Fatalf("SelectAnswer: %v", err)
	}
	if err := c.ClearAnswer(2); err != nil {
		t.Fatalf("ClearAnswer: %v", err)
	}
	if _, ok := c.State().Answers[2]; ok {
		t.Error("answer still present after clear")
	}

	// Clearing an unanswered question is fine, an unknown one is not.
	if err := c.ClearAnswer(3); err != nil {
		t.Errorf("ClearAnswer unanswered: %v", err)
	}
	if err := c.ClearAnswer(42); err != ErrUnknownQuestion {
		t.Errorf("err = %v, want ErrUnknownQuestion", err)
	}
}

func TestToggleReviewRoundTrip(t *testing.T) {
	c, _, _, _ := newTestController(testSet(3))

	marked, err := c.ToggleReview(2)
	if err != nil || !marked {
		t.Fatalf("first toggle = (%v, %v), want (true, nil)", marked, err)
	}
	if got := c.State().MarkedForReview; len(got) != 1 || got[0] != 2 {
		t.Errorf("marked = %v, want [2]", got)
	}

	marked, err = c.ToggleReview(2)
	if err != nil || marked {
		t.Fatalf("second toggle = (%v, %v), want (false, nil)", marked, err)
	}
	if got := c.State().MarkedForReview; len(got) != 0 {
		t.Errorf("marked = %v, want empty", got)
	}

	if _, err := c.ToggleReview(7); err != ErrUnknownQuestion {
		t.Errorf("err = %v, want ErrUnknownQuestion", err)
	}
}

func TestNavigateClamping(t *testing.T) {
	tests := []struct {
		name   string
		deltas []int
		want   int
	}{
		{"forward", []int{1, 1}, 2},
		{"backward clamps at zero", []int{-5}, 0},
		{"forward clamps at last", []int{1000}, 4},
		{"mixed", []int{3, -1, 1000, -1000, 2}, 2},
		{"zero delta", []int{0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, _, _ := newTestController(testSet(5))
			got := 0
			for _, d := range tt.deltas {
				got = c.Navigate(d)
			}
			if got != tt.want {
				t.Errorf("index = %d, want %d", got, tt.want)
			}
			if st := c.State().CurrentIndex; st != tt.want {
				t.Errorf("state index = %d, want %d", st, tt.want)
			}
		})
	}
}

func TestStateReturnsCopies(t *testing.T) {
	c, _, _, _ := newTestController(testSet(3))
	if err := c.SelectAnswer(1, "A"); err != nil {
		t.Fatalf("SelectAnswer: %v", err)
	}
	if _, err := c.ToggleReview(1); err != nil {
		t.Fatalf("ToggleReview: %v", err)
	}

	view := c.State()
	view.Answers[1] = "D"
	view.Answers[99] = "A"
	view.MarkedForReview[0] = 99

	fresh := c.State()
	if fresh.Answers[1] != "A" || len(fresh.Answers) != 1 {
		t.Errorf("answers leaked through view copy: %v", fresh.Answers)
	}
	if fresh.MarkedForReview[0] != 1 {
		t.Errorf("marked leaked through view copy: %v", fresh.MarkedForReview)
	}
}

func TestPaperQuestionsStripped(t *testing.T) {
	set := testSet(4)
	c, _, _, _ := newTestController(set)

	paper := c.PaperQuestions()
	if len(paper) != 4 {
		t.Fatalf("paper length = %d, want 4", len(paper))
	}
	for i, q := range paper {
		if q.ID != set.Questions[i].ID {
			t.Errorf("question %d id = %d, want %d", i, q.ID, set.Questions[i].ID)
		}
		if q.Question != set.Questions[i].Question {
			t.Errorf("question %d text mismatch", i)
		}
	}

	// Serialized paper must not leak the answer key.
	raw, err := json.Marshal(paper)
	if err != nil {
		t.Fatalf("marshal paper: %v", err)
	}
	var decoded []map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal paper: %v", err)
	}
	for i, q := range decoded {
		if _, ok := q["answer"]; ok {
			t.Errorf("question %d leaks answer key", i)
		}
	}
}

func TestViewIncludesStaticFields(t *testing.T) {
	c, _, _, _ := newTestController(testSet(5))

	view := c.State()
	if view.ExamName != "Midterm" {
		t.Errorf("exam name = %q", view.ExamName)
	}
	if view.TotalQuestions != 5 {
		t.Errorf("total questions = %d, want 5", view.TotalQuestions)
	}
	if view.RemainingSeconds != 7200 {
		t.Errorf("remaining = %d, want 7200", view.RemainingSeconds)
	}
	if view.StartedAt.IsZero() {
		t.Error("started at is zero")
	}
	if view.Submitted {
		t.Error("fresh session reports submitted")
	}
}
