package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jaam8/council_bot/internal/models"
	"go.uber.org/zap"
)

const sessionKeyPrefix = "ballot:session:"

type RedisSessionStore struct {
	rdb *redis.Client
	ttl time.Duration
	l   *zap.Logger
}

func NewRedisSessionStore(rdb *redis.Client, ttl time.Duration, l *zap.Logger) *RedisSessionStore {
	return &RedisSessionStore{
		rdb: rdb,
		ttl: ttl,
		l:   l,
	}
}

func (r *RedisSessionStore) Load(ctx context.Context, userID string) (models.VoterSession, error) {
	raw, err := r.rdb.Get(ctx, sessionKeyPrefix+userID).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.NewVoterSession(), nil
	}
	if err != nil {
		r.l.Debug("failed to get session", zap.Error(err))
		return models.NewVoterSession(), fmt.Errorf("repository: redis get error: %w", err)
	}
	var session models.VoterSession
	if err := json.Unmarshal(raw, &session); err != nil {
		r.l.Debug("failed to unmarshal session", zap.Error(err))
		return models.NewVoterSession(), fmt.Errorf("repository: failed to unmarshal session: %w", err)
	}
	return session, nil
}

func (r *RedisSessionStore) Save(ctx context.Context, userID string, session models.VoterSession) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("repository: json marshal error: %w", err)
	}
	if err := r.rdb.Set(ctx, sessionKeyPrefix+userID, raw, r.ttl).Err(); err != nil {
		r.l.Debug("failed to set session", zap.Error(err))
		return fmt.Errorf("repository: redis set error: %w", err)
	}
	return nil
}

func (r *RedisSessionStore) Delete(ctx context.Context, userID string) error {
	if err := r.rdb.Del(ctx, sessionKeyPrefix+userID).Err(); err != nil {
		r.l.Debug("failed to delete session", zap.Error(err))
		return fmt.Errorf("repository: redis del error: %w", err)
	}
	return nil
}
