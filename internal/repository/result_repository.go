package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/vigilbox/vigil-backend/internal/config"
	"github.com/vigilbox/vigil-backend/internal/model"
)

// ResultRepository persists finished-attempt snapshots in Redis under the
// well-known per-session result slot. Snapshots expire on their own; this
// service never archives them.
type ResultRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(rdb *redis.Client, ttl time.Duration) *ResultRepository {
	return &ResultRepository{rdb: rdb, ttl: ttl}
}

// SaveResult writes a snapshot to the session's result slot.
func (r *ResultRepository) SaveResult(ctx context.Context, sessionID uuid.UUID, snap *model.ResultSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	key := config.CacheKey.ResultKey(sessionID.String())
	if err := r.rdb.Set(ctx, key, payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}

// GetResult reads a session's snapshot back from its result slot.
func (r *ResultRepository) GetResult(ctx context.Context, sessionID uuid.UUID) (*model.ResultSnapshot, error) {
	raw, err := r.rdb.Get(ctx, config.CacheKey.ResultKey(sessionID.String())).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read result: %w", err)
	}
	var snap model.ResultSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &snap, nil
}
