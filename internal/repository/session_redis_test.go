package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/jaam8/council_bot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisSessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisSessionStore(rdb, ttl, zap.NewNop()), mr
}

func TestRedisSessionStore_MissingKeyIsInitialSession(t *testing.T) {
	store, _ := newRedisStore(t, time.Hour)

	session, err := store.Load(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, models.NewVoterSession(), session)
}

func TestRedisSessionStore_RoundTrip(t *testing.T) {
	store, mr := newRedisStore(t, 2*time.Hour)
	ctx := context.Background()

	session := models.NewVoterSession()
	session.Authenticate("tok", models.RegionSoutheast, []models.CandidateID{models.NumericID("7"), models.TextID("7b")}, "AB12CD")
	require.NoError(t, store.Save(ctx, "u1", session))
	assert.Equal(t, 2*time.Hour, mr.TTL(sessionKeyPrefix+"u1"))

	loaded, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, session, loaded)

	require.NoError(t, store.Delete(ctx, "u1"))
	assert.False(t, mr.Exists(sessionKeyPrefix+"u1"))
}

func TestRedisSessionStore_Expiry(t *testing.T) {
	store, mr := newRedisStore(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "u1", models.VoterSession{Token: "t", Region: models.RegionWest}))
	mr.FastForward(2 * time.Minute)

	loaded, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, loaded.Authenticated())
}

func TestRedisSessionStore_CorruptValue(t *testing.T) {
	store, mr := newRedisStore(t, time.Hour)
	require.NoError(t, mr.Set(sessionKeyPrefix+"u1", "{"))

	_, err := store.Load(context.Background(), "u1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal session")
}

func TestRedisSessionStore_ServerDown(t *testing.T) {
	store, mr := newRedisStore(t, time.Hour)
	mr.Close()

	_, err := store.Load(context.Background(), "u1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis get error")
}
