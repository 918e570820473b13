// Package session implements the live attempt controller: one instance owns
// the answer state, countdown timer, violation budget and submission latch
// for a single running exam attempt. All mutations are serialized through the
// controller's mutex; side effects (dialogs, fullscreen, persistence,
// navigation) run through injected collaborators outside the lock.
package session

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vigilbox/vigil-backend/internal/model"
)

var (
	// ErrUnknownQuestion is returned when an answer targets a question id
	// that is not part of the session's paper.
	ErrUnknownQuestion = errors.New("question is not part of this paper")
	// ErrInvalidSelection is returned when an answer value is not one of
	// the question's options.
	ErrInvalidSelection = errors.New("value is not one of the question's options")
)

// Presenter receives user-facing effects: warning dialogs and the final
// steer to the results screen.
type Presenter interface {
	ShowWarning(sessionID uuid.UUID, w model.Warning)
	NavigateToResults(sessionID uuid.UUID, reason model.SubmitReason)
}

// Environment controls the taker's display surface. RequestFullscreen fires
// after an acknowledged warning; ExitFullscreen is attempted on submission
// and is best effort.
type Environment interface {
	RequestFullscreen(sessionID uuid.UUID)
	ExitFullscreen(sessionID uuid.UUID) error
}

// SnapshotStore persists the frozen result of a finished attempt.
type SnapshotStore interface {
	SaveResult(ctx context.Context, sessionID uuid.UUID, snap *model.ResultSnapshot) error
}

// Deps bundles the injected collaborators of one controller. Nil fields are
// replaced with no-ops so partial wiring stays safe in tests.
type Deps struct {
	Presenter Presenter
	Env       Environment
	Results   SnapshotStore
}

// Config tunes one controller.
type Config struct {
	// MaxViolations is the violation count at which the attempt is
	// terminated.
	MaxViolations int
	// NavigateDelay is the pause between finalizing and steering the
	// client to results. Zero navigates inline, which tests rely on.
	NavigateDelay time.Duration
}

const snapshotWriteTimeout = 5 * time.Second

// Controller is the state machine for one attempt.
type Controller struct {
	id        uuid.UUID
	examName  string
	questions []model.QuestionRecord
	index     map[int]int // question id -> position in questions
	deps      Deps
	cfg       Config
	log       zerolog.Logger

	mu          sync.Mutex
	answers     map[int]string
	marked      map[int]struct{}
	current     int
	remaining   int
	violations  int
	warning     *model.Warning
	submitted   bool
	startedAt   time.Time
	submittedAt time.Time
	reason      model.SubmitReason

	done      chan struct{} // closed when the submission latch flips
	quit      chan struct{} // closed by Close
	closeOnce sync.Once
}

// New builds a controller for the given paper. The paper must contain at
// least one question; sources enforce that before a session is opened.
func New(id uuid.UUID, set *model.QuestionSet, deps Deps, cfg Config, log zerolog.Logger) *Controller {
	if deps.Presenter == nil {
		deps.Presenter = nopPresenter{}
	}
	if deps.Env == nil {
		deps.Env = nopEnvironment{}
	}
	if deps.Results == nil {
		deps.Results = nopStore{}
	}
	if cfg.MaxViolations <= 0 {
		cfg.MaxViolations = 3
	}

	idx := make(map[int]int, len(set.Questions))
	for i, q := range set.Questions {
		idx[q.ID] = i
	}

	return &Controller{
		id:        id,
		examName:  set.ExamName,
		questions: set.Questions,
		index:     idx,
		deps:      deps,
		cfg:       cfg,
		log:       log.With().Str("component", "session").Str("session_id", id.String()).Logger(),
		answers:   make(map[int]string),
		marked:    make(map[int]struct{}),
		remaining: set.DurationSeconds,
		startedAt: time.Now(),
		done:      make(chan struct{}),
		quit:      make(chan struct{}),
	}
}

// ID returns the session id.
func (c *Controller) ID() uuid.UUID { return c.id }

// Start launches the countdown. The timer stops when the session is
// submitted, closed, or ctx is canceled.
func (c *Controller) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Controller) run(ctx context.Context) {
	t := time.NewTicker(time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.quit:
			return
		case <-c.done:
			return
		case <-t.C:
			c.tick()
		}
	}
}

// tick advances the countdown by one second. At zero it fires the expiry
// submission; Expired is terminal so later ticks are no-ops.
func (c *Controller) tick() {
	c.mu.Lock()
	if c.submitted || c.remaining <= 0 {
		c.mu.Unlock()
		return
	}
	c.remaining--
	var finalize func()
	if c.remaining == 0 {
		finalize = c.submitLocked(model.ReasonTimeExpired)
	}
	c.mu.Unlock()

	if finalize != nil {
		finalize()
	}
}

// Close tears the controller down without submitting. Used when the server
// shuts down or the janitor sweeps a finished session.
func (c *Controller) Close() {
	c.closeOnce.Do(func() { close(c.quit) })
}

// SelectAnswer records the taker's value for a question. Later calls for the
// same question overwrite earlier ones. After submission it is a no-op.
func (c *Controller) SelectAnswer(questionID int, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.submitted {
		return nil
	}
	pos, ok := c.index[questionID]
	if !ok {
		return ErrUnknownQuestion
	}
	if !optionOf(c.questions[pos], value) {
		return ErrInvalidSelection
	}
	c.answers[questionID] = value
	return nil
}

// ClearAnswer removes the recorded value for a question, if any.
func (c *Controller) ClearAnswer(questionID int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.submitted {
		return nil
	}
	if _, ok := c.index[questionID]; !ok {
		return ErrUnknownQuestion
	}
	delete(c.answers, questionID)
	return nil
}

// ToggleReview flips the review mark on a question and reports whether the
// question is marked afterwards.
func (c *Controller) ToggleReview(questionID int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.submitted {
		_, marked := c.marked[questionID]
		return marked, nil
	}
	if _, ok := c.index[questionID]; !ok {
		return false, ErrUnknownQuestion
	}
	if _, marked := c.marked[questionID]; marked {
		delete(c.marked, questionID)
		return false, nil
	}
	c.marked[questionID] = struct{}{}
	return true, nil
}

// Navigate moves the current question cursor by delta, clamped to the paper
// bounds, and returns the resulting index.
func (c *Controller) Navigate(delta int) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.submitted {
		return c.current
	}
	next := c.current + delta
	if next < 0 {
		next = 0
	}
	if max := len(c.questions) - 1; next > max {
		next = max
	}
	c.current = next
	return c.current
}

// State returns a copy of the observable session state. The returned maps
// and slices are the caller's to keep.
func (c *Controller) State() model.SessionView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *Controller) viewLocked() model.SessionView {
	answers := make(map[int]string, len(c.answers))
	for id, v := range c.answers {
		answers[id] = v
	}
	marked := make([]int, 0, len(c.marked))
	for id := range c.marked {
		marked = append(marked, id)
	}
	sort.Ints(marked)

	var warning *model.Warning
	if c.warning != nil {
		w := *c.warning
		warning = &w
	}

	return model.SessionView{
		SessionID:        c.id,
		ExamName:         c.examName,
		StartedAt:        c.startedAt,
		RemainingSeconds: c.remaining,
		CurrentIndex:     c.current,
		TotalQuestions:   len(c.questions),
		Answers:          answers,
		MarkedForReview:  marked,
		ViolationCount:   c.violations,
		Warning:          warning,
		Submitted:        c.submitted,
	}
}

// PaperQuestions returns the paper in session order with answer keys
// stripped. The order is fixed for the lifetime of the session.
func (c *Controller) PaperQuestions() []model.QuestionForTaker {
	out := make([]model.QuestionForTaker, len(c.questions))
	for i, q := range c.questions {
		out[i] = q.ForTaker()
	}
	return out
}

// Submitted reports whether the submission latch has flipped.
func (c *Controller) Submitted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitted
}

// SubmittedAt returns when the latch flipped; ok is false while running.
func (c *Controller) SubmittedAt() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submittedAt, c.submitted
}

func optionOf(q model.QuestionRecord, value string) bool {
	for _, opt := range q.Options {
		if opt == value {
			return true
		}
	}
	return false
}

type nopPresenter struct{}

func (nopPresenter) ShowWarning(uuid.UUID, model.Warning)            {}
func (nopPresenter) NavigateToResults(uuid.UUID, model.SubmitReason) {}

type nopEnvironment struct{}

func (nopEnvironment) RequestFullscreen(uuid.UUID)    {}
func (nopEnvironment) ExitFullscreen(uuid.UUID) error { return nil }

type nopStore struct{}

func (nopStore) SaveResult(context.Context, uuid.UUID, *model.ResultSnapshot) error { return nil }
