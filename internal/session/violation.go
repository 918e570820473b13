package session

import (
	"fmt"

	"github.com/vigilbox/vigil-backend/internal/model"
)

type violationVerdict int

const (
	verdictWarn violationVerdict = iota
	verdictFinalWarn
	verdictTerminate
)

// decideViolation maps a cumulative violation count onto the escalation
// ladder. The count never decays, so the thresholds are inclusive: reaching
// max terminates, max-1 is the final warning.
func decideViolation(count, max int) violationVerdict {
	switch {
	case count >= max:
		return verdictTerminate
	case count == max-1:
		return verdictFinalWarn
	default:
		return verdictWarn
	}
}

// HandleSignal counts one proctoring signal and either raises a warning
// dialog or terminates the attempt. Signals arriving after submission are
// ignored. It returns the violation count after the signal and whether the
// signal was counted.
func (c *Controller) HandleSignal(kind model.SignalKind) (int, bool) {
	if !kind.Valid() {
		c.mu.Lock()
		count := c.violations
		c.mu.Unlock()
		return count, false
	}

	c.mu.Lock()
	if c.submitted {
		count := c.violations
		c.mu.Unlock()
		return count, false
	}

	c.violations++
	count := c.violations

	var (
		warning  model.Warning
		warn     bool
		finalize func()
	)
	switch decideViolation(count, c.cfg.MaxViolations) {
	case verdictTerminate:
		// Termination supersedes any open dialog; submitLocked drops it.
		finalize = c.submitLocked(model.ReasonViolationsExceeded)
	case verdictFinalWarn:
		warning = c.raiseWarningLocked(kind, true)
		warn = true
	default:
		warning = c.raiseWarningLocked(kind, false)
		warn = true
	}
	c.mu.Unlock()

	if warn {
		c.log.Warn().
			Str("kind", string(kind)).
			Int("violation_count", count).
			Bool("final", warning.Final).
			Msg("Violation warning raised")
		c.deps.Presenter.ShowWarning(c.id, warning)
	}
	if finalize != nil {
		c.log.Warn().
			Str("kind", string(kind)).
			Int("violation_count", count).
			Msg("Violation budget exhausted, terminating session")
		finalize()
	}
	return count, true
}

// raiseWarningLocked builds the dialog for the current violation count and
// stores it as the open warning. A newer warning replaces an unacknowledged
// older one.
func (c *Controller) raiseWarningLocked(kind model.SignalKind, final bool) model.Warning {
	left := c.cfg.MaxViolations - c.violations
	w := model.Warning{
		Kind:    kind,
		Message: fmt.Sprintf("%s. You have %d warning(s) left.", kind.Cause(), left),
		Left:    left,
		Final:   final,
	}
	c.warning = &w
	return w
}

// AcknowledgeWarning closes the open warning dialog and asks the environment
// to restore fullscreen. Acknowledging never lowers the violation count. It
// reports whether a dialog was actually open.
func (c *Controller) AcknowledgeWarning() bool {
	c.mu.Lock()
	if c.submitted || c.warning == nil {
		c.mu.Unlock()
		return false
	}
	c.warning = nil
	c.mu.Unlock()

	c.deps.Env.RequestFullscreen(c.id)
	return true
}
