// Package source resolves paper sources into runnable question sets. A
// paper can come from a curated exam (Redis cache backed by Postgres), a
// generated practice set (Redis only) or an offline bundle (local SQLite).
package source

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
)

var (
	// ErrSourceNotFound means the referenced source does not exist (or is
	// not published). Clients are sent back to the selection screen.
	ErrSourceNotFound = errors.New("paper source not found")
	// ErrSourceInvalid means the source exists but cannot produce a
	// runnable paper.
	ErrSourceInvalid = errors.New("paper source is invalid")
)

// Resolver loads question sets from all supported source kinds.
type Resolver struct {
	rdb       *redis.Client
	exams     *repository.ExamRepository
	questions *repository.QuestionRepository
	bundleDir string
	log       zerolog.Logger
}

func NewResolver(
	rdb *redis.Client,
	exams *repository.ExamRepository,
	questions *repository.QuestionRepository,
	bundleDir string,
	log zerolog.Logger,
) *Resolver {
	return &Resolver{
		rdb:       rdb,
		exams:     exams,
		questions: questions,
		bundleDir: bundleDir,
		log:       log.With().Str("component", "source_resolver").Logger(),
	}
}

// Resolve turns a source reference into a runnable question set.
func (r *Resolver) Resolve(ctx context.Context, ref model.SourceRef) (*model.QuestionSet, error) {
	switch ref.Kind {
	case model.SourceExam:
		return r.resolveExam(ctx, ref.ExamID)
	case model.SourceCustom:
		return r.resolveCustom(ctx, ref.SetID)
	case model.SourceBundle:
		return r.resolveBundle(ref.Bundle)
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrSourceInvalid, ref.Kind)
	}
}

// resolveExam serves the paper from Redis when possible and falls back to
// Postgres on a miss, re-warming the cache so the next start is fast again.
func (r *Resolver) resolveExam(ctx context.Context, examID string) (*model.QuestionSet, error) {
	id, err := uuid.Parse(examID)
	if err != nil {
		return nil, fmt.Errorf("%w: bad exam id", ErrSourceInvalid)
	}

	key := config.CacheKey.ExamPaperKey(id.String())
	raw, err := r.rdb.Get(ctx, key).Result()
	if err == nil {
		var set model.QuestionSet
		if uerr := json.Unmarshal([]byte(raw), &set); uerr == nil && len(set.Questions) > 0 {
			return &set, nil
		}
		// Corrupt cache entry: drop it and rebuild from the database.
		r.log.Warn().Str("key", key).Msg("Corrupt paper cache entry, rebuilding")
		r.rdb.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		r.log.Warn().Err(err).Str("key", key).Msg("Paper cache read failed, falling back to database")
	}

	set, err := r.buildExamPaper(ctx, id)
	if err != nil {
		return nil, err
	}

	if payload, merr := json.Marshal(set); merr == nil {
		if serr := r.rdb.Set(ctx, key, payload, 0).Err(); serr != nil {
			r.log.Warn().Err(serr).Str("key", key).Msg("Paper cache write failed")
		}
	}
	return set, nil
}

func (r *Resolver) buildExamPaper(ctx context.Context, id uuid.UUID) (*model.QuestionSet, error) {
	exam, err := r.exams.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSourceNotFound
		}
		return nil, fmt.Errorf("load exam: %w", err)
	}
	if exam.Status != model.ExamStatusPublished {
		return nil, ErrSourceNotFound
	}

	questions, err := r.questions.ListByExam(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: exam has no questions", ErrSourceInvalid)
	}

	return &model.QuestionSet{
		ExamName:        exam.Name,
		DurationSeconds: exam.DurationSeconds,
		MaxViolations:   exam.MaxViolations,
		Shuffle:         exam.ShuffleQuestions,
		AccessCodeHash:  exam.AccessCodeHash,
		Questions:       questions,
	}, nil
}

// resolveCustom loads a previously generated practice set. Sets live only in
// Redis and expire on their own.
func (r *Resolver) resolveCustom(ctx context.Context, setID string) (*model.QuestionSet, error) {
	if setID == "" {
		return nil, fmt.Errorf("%w: missing set id", ErrSourceInvalid)
	}
	raw, err := r.rdb.Get(ctx, config.CacheKey.CustomSetKey(setID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSourceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load custom set: %w", err)
	}
	var set model.QuestionSet
	if err := json.Unmarshal([]byte(raw), &set); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceInvalid, err)
	}
	if len(set.Questions) == 0 {
		return nil, fmt.Errorf("%w: set has no questions", ErrSourceInvalid)
	}
	return &set, nil
}

// resolveBundle opens an offline paper bundle from the bundle directory.
func (r *Resolver) resolveBundle(name string) (*model.QuestionSet, error) {
	path, err := BundlePath(r.bundleDir, name)
	if err != nil {
		return nil, err
	}
	set, err := OpenBundle(path)
	if err != nil {
		return nil, err
	}
	return set, nil
}

// WarmExamPapers rebuilds the paper cache for every published exam. Called
// at boot so first sessions do not pay the database round trip.
func (r *Resolver) WarmExamPapers(ctx context.Context) error {
	ids, err := r.exams.ListPublishedIDs(ctx)
	if err != nil {
		return fmt.Errorf("list published exams: %w", err)
	}

	start := time.Now()
	warmed := 0
	for _, id := range ids {
		set, err := r.buildExamPaper(ctx, id)
		if err != nil {
			r.log.Warn().Err(err).Str("exam_id", id.String()).Msg("Paper warmup skipped")
			continue
		}
		payload, err := json.Marshal(set)
		if err != nil {
			continue
		}
		if err := r.rdb.Set(ctx, config.CacheKey.ExamPaperKey(id.String()), payload, 0).Err(); err != nil {
			r.log.Warn().Err(err).Str("exam_id", id.String()).Msg("Paper warmup write failed")
			continue
		}
		warmed++
	}

	r.log.Info().
		Int("exams", warmed).
		Dur("took", time.Since(start)).
		Msg("Paper caches warmed")
	return nil
}
