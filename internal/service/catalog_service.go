package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/vigilbox/vigil-backend/internal/config"
	"github.com/vigilbox/vigil-backend/internal/model"
	"github.com/vigilbox/vigil-backend/internal/repository"
	"github.com/vigilbox/vigil-backend/internal/source"
)

// Catalog errors.
var (
	// ErrNoQuestions means the requested topics matched nothing in the
	// published pool.
	ErrNoQuestions = errors.New("no questions match the requested topics")
	// ErrDuplicateQuestionID means an uploaded paper reuses a question id.
	ErrDuplicateQuestionID = errors.New("duplicate question id in paper")
)

const customSetTTL = 24 * time.Hour

// CatalogService serves the selection screen: published exams, practice set
// generation and offline bundles.
type CatalogService struct {
	cfg       *config.Config
	exams     *repository.ExamRepository
	questions *repository.QuestionRepository
	rdb       *redis.Client
	log       zerolog.Logger
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(
	cfg *config.Config,
	exams *repository.ExamRepository,
	questions *repository.QuestionRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *CatalogService {
	return &CatalogService{
		cfg:       cfg,
		exams:     exams,
		questions: questions,
		rdb:       rdb,
		log:       log.With().Str("component", "catalog_service").Logger(),
	}
}

// ListExams returns the published exams for the selection screen.
func (s *CatalogService) ListExams(ctx context.Context) ([]model.ExamSummary, error) {
	return s.exams.ListPublished(ctx)
}

// ListTopics returns the topics available for practice set generation.
func (s *CatalogService) ListTopics(ctx context.Context) ([]string, error) {
	return s.questions.ListTopics(ctx)
}

// CreateCustomSet samples the published question pool by topic and stores
// the resulting practice paper in Redis under a fresh set id.
func (s *CatalogService) CreateCustomSet(ctx context.Context, req model.CreateCustomSetRequest) (*model.CustomSetCreated, error) {
	sampled, err := s.questions.SampleByTopics(ctx, req.Topics, req.QuestionCount)
	if err != nil {
		return nil, fmt.Errorf("sample questions: %w", err)
	}
	if len(sampled) == 0 {
		return nil, ErrNoQuestions
	}

	// Sampling crosses exams, so source ids may collide. Renumber into the
	// per-session id space.
	for i := range sampled {
		sampled[i].ID = i + 1
	}

	duration := req.DurationSeconds
	if duration <= 0 {
		duration = s.cfg.DefaultDurationSeconds
	}

	set := model.QuestionSet{
		ExamName:        req.Name,
		DurationSeconds: duration,
		MaxViolations:   s.cfg.MaxViolations,
		Questions:       sampled,
	}
	payload, err := json.Marshal(set)
	if err != nil {
		return nil, fmt.Errorf("encode set: %w", err)
	}

	setID := uuid.New().String()
	if err := s.rdb.Set(ctx, config.CacheKey.CustomSetKey(setID), payload, customSetTTL).Err(); err != nil {
		return nil, fmt.Errorf("store set: %w", err)
	}

	s.log.Info().
		Str("set_id", setID).
		Strs("topics", req.Topics).
		Int("questions", len(sampled)).
		Msg("Custom set created")

	return &model.CustomSetCreated{
		SetID:           setID,
		Name:            req.Name,
		QuestionCount:   len(sampled),
		DurationSeconds: duration,
	}, nil
}

// SaveBundle persists an uploaded paper as an offline SQLite bundle.
func (s *CatalogService) SaveBundle(req model.SaveBundleRequest) (*model.BundleInfo, error) {
	seen := make(map[int]struct{}, len(req.Questions))
	questions := make([]model.QuestionRecord, 0, len(req.Questions))
	for _, q := range req.Questions {
		if _, dup := seen[q.ID]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateQuestionID, q.ID)
		}
		seen[q.ID] = struct{}{}

		answer, err := json.Marshal(q.Answer)
		if err != nil {
			return nil, fmt.Errorf("encode answer: %w", err)
		}
		questions = append(questions, model.QuestionRecord{
			ID:       q.ID,
			Topic:    q.Topic,
			Question: q.Question,
			Options:  q.Options,
			Answer:   answer,
		})
	}

	duration := req.DurationSeconds
	if duration <= 0 {
		duration = s.cfg.DefaultDurationSeconds
	}
	set := &model.QuestionSet{
		ExamName:        req.ExamName,
		DurationSeconds: duration,
		MaxViolations:   s.cfg.MaxViolations,
		Questions:       questions,
	}

	if err := source.SaveBundle(s.cfg.BundleDir, req.Name, set); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("bundle", req.Name).
		Int("questions", len(questions)).
		Msg("Bundle saved")

	return &model.BundleInfo{
		Name:            req.Name,
		ExamName:        req.ExamName,
		QuestionCount:   len(questions),
		DurationSeconds: duration,
	}, nil
}

// ListBundles enumerates the stored offline bundles.
func (s *CatalogService) ListBundles() ([]model.BundleInfo, error) {
	return source.ListBundles(s.cfg.BundleDir)
}
