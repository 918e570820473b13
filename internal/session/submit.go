package session

import (
	"context"
	"time"

	"github.com/vigilbox/vigil-backend/internal/model"
)

// Submit finalizes the attempt for the given reason. The first call wins;
// every later call, whatever its reason, is a no-op. The submitted flag
// reports whether this call was the winning one.
func (c *Controller) Submit(reason model.SubmitReason) bool {
	c.mu.Lock()
	finalize := c.submitLocked(reason)
	c.mu.Unlock()

	if finalize == nil {
		return false
	}
	finalize()
	return true
}

// submitLocked flips the single-use latch and freezes the session state. It
// returns the finalization step to run outside the lock, or nil when an
// earlier call already won the latch. Callers hold c.mu.
func (c *Controller) submitLocked(reason model.SubmitReason) func() {
	if c.submitted {
		return nil
	}
	c.submitted = true
	c.reason = reason
	c.submittedAt = time.Now()
	// A pending warning dialog dies with the session.
	c.warning = nil

	snap := c.snapshotLocked()
	close(c.done)
	return func() { c.finalize(snap, reason) }
}

// snapshotLocked freezes the attempt into its result record. Callers hold
// c.mu.
func (c *Controller) snapshotLocked() *model.ResultSnapshot {
	answers := make(map[int]string, len(c.answers))
	for id, v := range c.answers {
		answers[id] = v
	}
	questions := make([]model.QuestionRecord, len(c.questions))
	copy(questions, c.questions)

	return &model.ResultSnapshot{
		Answers:     answers,
		Questions:   questions,
		ExamName:    c.examName,
		StartedAt:   c.startedAt,
		SubmittedAt: c.submittedAt,
		Reason:      c.reason,
	}
}

// finalize runs the submission side effects in order: leave fullscreen,
// persist the snapshot, then steer the client to the results screen after
// the configured delay. Fullscreen and persistence failures are logged but
// never block the handoff.
func (c *Controller) finalize(snap *model.ResultSnapshot, reason model.SubmitReason) {
	if err := c.deps.Env.ExitFullscreen(c.id); err != nil {
		c.log.Debug().Err(err).Msg("Fullscreen exit refused")
	}

	ctx, cancel := context.WithTimeout(context.Background(), snapshotWriteTimeout)
	defer cancel()
	if err := c.deps.Results.SaveResult(ctx, c.id, snap); err != nil {
		c.log.Error().Err(err).Msg("Result snapshot write failed")
	}

	c.log.Info().
		Str("reason", string(reason)).
		Int("answered", len(snap.Answers)).
		Msg("Session submitted")

	if c.cfg.NavigateDelay <= 0 {
		c.deps.Presenter.NavigateToResults(c.id, reason)
		return
	}
	time.AfterFunc(c.cfg.NavigateDelay, func() {
		c.deps.Presenter.NavigateToResults(c.id, reason)
	})
}
