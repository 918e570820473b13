package service

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/vigilbox/vigil-backend/internal/config"
	"github.com/vigilbox/vigil-backend/internal/model"
	"github.com/vigilbox/vigil-backend/internal/repository"
	"github.com/vigilbox/vigil-backend/internal/session"
	"github.com/vigilbox/vigil-backend/internal/source"
)

// ErrSessionNotFound means no live controller is registered for the id; the
// attempt never existed or has already been swept.
var ErrSessionNotFound = errors.New("session not found")

const janitorInterval = time.Minute

// SessionService opens attempts and routes every live-session operation to
// the right controller. It owns the manager, the client hub and the
// violation audit queue.
type SessionService struct {
	cfg      *config.Config
	resolver *source.Resolver
	tokens   *TokenService
	results  *repository.ResultRepository
	manager  *session.Manager
	hub      *clientHub
	rdb      *redis.Client
	log      zerolog.Logger

	runCtx context.Context
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	cfg *config.Config,
	resolver *source.Resolver,
	tokens *TokenService,
	results *repository.ResultRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		cfg:      cfg,
		resolver: resolver,
		tokens:   tokens,
		results:  results,
		manager:  session.NewManager(log),
		hub:      newClientHub(),
		rdb:      rdb,
		log:      log.With().Str("component", "session_service").Logger(),
		runCtx:   context.Background(),
	}
}

// Run binds the service to the server lifecycle: session timers inherit ctx
// and the manager's janitor starts sweeping. Call once at startup.
func (s *SessionService) Run(ctx context.Context) {
	s.runCtx = ctx
	s.manager.StartJanitor(ctx, janitorInterval, s.cfg.SessionLinger)
}

// Start resolves the requested paper, checks its access code and spins up a
// live controller for the attempt.
func (s *SessionService) Start(ctx context.Context, req model.StartSessionRequest) (*model.SessionStarted, error) {
	set, err := s.resolver.Resolve(ctx, req.Source)
	if err != nil {
		return nil, err
	}

	if set.AccessCodeHash != "" {
		if err := s.tokens.CheckAccessCode(set.AccessCodeHash, req.AccessCode); err != nil {
			return nil, err
		}
	}

	if set.DurationSeconds <= 0 {
		set.DurationSeconds = s.cfg.DefaultDurationSeconds
	}
	if set.MaxViolations <= 0 {
		set.MaxViolations = s.cfg.MaxViolations
	}
	if set.Shuffle {
		// Shuffle once here; the session order is frozen afterwards.
		qs := make([]model.QuestionRecord, len(set.Questions))
		copy(qs, set.Questions)
		rand.Shuffle(len(qs), func(i, j int) { qs[i], qs[j] = qs[j], qs[i] })
		set.Questions = qs
	}

	id := uuid.New()
	ctrl := session.New(id, set,
		session.Deps{Presenter: s.hub, Env: s.hub, Results: s.results},
		session.Config{MaxViolations: set.MaxViolations, NavigateDelay: s.cfg.NavigateDelay},
		s.log,
	)

	token, err := s.tokens.Generate(id)
	if err != nil {
		return nil, err
	}

	s.manager.Put(ctrl)
	ctrl.Start(s.runCtx)

	s.log.Info().
		Str("session_id", id.String()).
		Str("exam", set.ExamName).
		Str("source", string(req.Source.Kind)).
		Int("questions", len(set.Questions)).
		Int("duration_seconds", set.DurationSeconds).
		Msg("Session started")

	view := ctrl.State()
	return &model.SessionStarted{
		SessionID:       id,
		Token:           token,
		ExamName:        set.ExamName,
		StartedAt:       view.StartedAt,
		DurationSeconds: set.DurationSeconds,
		MaxViolations:   set.MaxViolations,
		Questions:       ctrl.PaperQuestions(),
	}, nil
}

func (s *SessionService) controller(id uuid.UUID) (*session.Controller, error) {
	ctrl, ok := s.manager.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return ctrl, nil
}

// State returns the observable state of a live session.
func (s *SessionService) State(id uuid.UUID) (model.SessionView, error) {
	ctrl, err := s.controller(id)
	if err != nil {
		return model.SessionView{}, err
	}
	return ctrl.State(), nil
}

// Paper returns the session's question list with answer keys stripped.
func (s *SessionService) Paper(id uuid.UUID) ([]model.QuestionForTaker, error) {
	ctrl, err := s.controller(id)
	if err != nil {
		return nil, err
	}
	return ctrl.PaperQuestions(), nil
}

// SelectAnswer records an answer on a live session.
func (s *SessionService) SelectAnswer(id uuid.UUID, questionID int, value string) error {
	ctrl, err := s.controller(id)
	if err != nil {
		return err
	}
	return ctrl.SelectAnswer(questionID, value)
}

// ClearAnswer removes an answer from a live session.
func (s *SessionService) ClearAnswer(id uuid.UUID, questionID int) error {
	ctrl, err := s.controller(id)
	if err != nil {
		return err
	}
	return ctrl.ClearAnswer(questionID)
}

// ToggleReview flips a question's review mark.
func (s *SessionService) ToggleReview(id uuid.UUID, questionID int) (bool, error) {
	ctrl, err := s.controller(id)
	if err != nil {
		return false, err
	}
	return ctrl.ToggleReview(questionID)
}

// Navigate moves the session's question cursor and returns the new index.
func (s *SessionService) Navigate(id uuid.UUID, delta int) (int, error) {
	ctrl, err := s.controller(id)
	if err != nil {
		return 0, err
	}
	return ctrl.Navigate(delta), nil
}

// HandleSignal feeds a proctoring signal into the session and queues the
// audit record when the signal was counted.
func (s *SessionService) HandleSignal(ctx context.Context, id uuid.UUID, kind model.SignalKind) (int, bool, error) {
	ctrl, err := s.controller(id)
	if err != nil {
		return 0, false, err
	}

	count, counted := ctrl.HandleSignal(kind)
	if counted {
		s.enqueueViolation(ctx, model.ViolationEvent{
			SessionID:  id,
			Kind:       kind,
			Count:      count,
			OccurredAt: time.Now().Unix(),
		})
	}
	return count, counted, nil
}

// enqueueViolation pushes an audit record onto the persistence queue. Best
// effort: the live escalation already happened, losing an audit row must
// not fail the request.
func (s *SessionService) enqueueViolation(ctx context.Context, ev model.ViolationEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistViolationsQueue, payload).Err(); err != nil {
		s.log.Error().Err(err).Str("session_id", ev.SessionID.String()).Msg("Violation audit enqueue failed")
	}
}

// Acknowledge closes the session's open warning dialog.
func (s *SessionService) Acknowledge(id uuid.UUID) (bool, error) {
	ctrl, err := s.controller(id)
	if err != nil {
		return false, err
	}
	return ctrl.AcknowledgeWarning(), nil
}

// Submit finalizes the session. An empty reason defaults to manual; the
// result reports whether this call won the latch.
func (s *SessionService) Submit(id uuid.UUID, reason model.SubmitReason) (bool, error) {
	ctrl, err := s.controller(id)
	if err != nil {
		return false, err
	}
	if reason == "" {
		reason = model.ReasonManual
	}
	return ctrl.Submit(reason), nil
}

// Attach registers a live client connection for the session's push events
// and returns its detach func.
func (s *SessionService) Attach(id uuid.UUID, sink EventSink) (func(), error) {
	if _, err := s.controller(id); err != nil {
		return nil, err
	}
	return s.hub.attach(id, sink), nil
}

// Result reads the frozen snapshot of a finished session. Live sessions have
// no result yet.
func (s *SessionService) Result(ctx context.Context, id uuid.UUID) (*model.ResultSnapshot, error) {
	return s.results.GetResult(ctx, id)
}

// LiveCount reports how many controllers are currently registered.
func (s *SessionService) LiveCount() int {
	return s.manager.Len()
}
