package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jaam8/council_bot/internal/models"
	"github.com/tarantool/go-tarantool"
	"go.uber.org/zap"
)

const sessionSpace = "voter_sessions"

// TarantoolSessionStore keeps sessions as {user_id, session_json, expires_at}
// tuples in the voter_sessions space.
type TarantoolSessionStore struct {
	db  *tarantool.Connection
	ttl time.Duration
	l   *zap.Logger
}

func NewTarantoolSessionStore(db *tarantool.Connection, ttl time.Duration, l *zap.Logger) *TarantoolSessionStore {
	return &TarantoolSessionStore{
		db:  db,
		ttl: ttl,
		l:   l,
	}
}

func (r *TarantoolSessionStore) Load(ctx context.Context, userID string) (models.VoterSession, error) {
	resp, err := r.db.Select(sessionSpace, "primary", 0, 1, tarantool.IterEq, []interface{}{userID})
	if err != nil {
		r.l.Debug("failed to select session", zap.Error(err))
		return models.NewVoterSession(), fmt.Errorf("repository: database select error: %w", err)
	}
	r.l.Debug("tarantool response",
		zap.Uint32("status_code", resp.Code),
		zap.Int("tuples", len(resp.Data)),
		zap.String("error", resp.Error))
	if len(resp.Data) == 0 {
		return models.NewVoterSession(), nil
	}

	session, err := decodeSessionTuple(resp.Data[0], time.Now())
	if errors.Is(err, errSessionExpired) {
		r.l.Debug("session expired", zap.String("user_id", userID))
		if err := r.Delete(ctx, userID); err != nil {
			return models.NewVoterSession(), err
		}
		return models.NewVoterSession(), nil
	}
	if err != nil {
		r.l.Debug("failed to decode session tuple", zap.Any("data", resp.Data), zap.Error(err))
		return models.NewVoterSession(), err
	}
	return session, nil
}

var errSessionExpired = errors.New("session expired")

// decodeSessionTuple reads a {user_id, session_json, expires_unix} tuple.
func decodeSessionTuple(data interface{}, now time.Time) (models.VoterSession, error) {
	tuple, ok := data.([]interface{})
	if !ok || len(tuple) < 3 {
		return models.NewVoterSession(), models.ErrFailedToProcessData
	}
	raw, ok := tuple[1].(string)
	if !ok {
		return models.NewVoterSession(), models.ErrFailedToProcessData
	}
	expiresAt, ok := toInt64(tuple[2])
	if !ok {
		return models.NewVoterSession(), models.ErrFailedToProcessData
	}
	if now.Unix() > expiresAt {
		return models.NewVoterSession(), errSessionExpired
	}

	var session models.VoterSession
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return models.NewVoterSession(), fmt.Errorf("repository: failed to unmarshal session: %w", err)
	}
	return session, nil
}

func (r *TarantoolSessionStore) Save(_ context.Context, userID string, session models.VoterSession) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("repository: json marshal error: %w", err)
	}
	tuple := []interface{}{
		userID,
		string(raw),
		time.Now().Add(r.ttl).Unix(),
	}
	resp, err := r.db.Replace(sessionSpace, tuple)
	if err != nil {
		r.l.Debug("error replacing session", zap.Error(err))
		return fmt.Errorf("repository: database replace error: %w", err)
	}
	r.l.Debug("tarantool response",
		zap.Uint32("status_code", resp.Code),
		zap.String("error", resp.Error))
	return nil
}

func (r *TarantoolSessionStore) Delete(_ context.Context, userID string) error {
	resp, err := r.db.Delete(sessionSpace, "primary", []interface{}{userID})
	if err != nil {
		r.l.Debug("failed to delete session", zap.Error(err))
		return fmt.Errorf("repository: database delete error: %w", err)
	}
	r.l.Debug("tarantool response",
		zap.Uint32("status_code", resp.Code),
		zap.String("error", resp.Error))
	return nil
}

// toInt64 accepts whichever integer type msgpack decoded the field into.
func toInt64(v interface{}) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case uint64:
		return int64(x), true
	case int:
		return int64(x), true
	case uint32:
		return int64(x), true
	case int32:
		return int64(x), true
	case uint:
		return int64(x), true
	case int8:
		return int64(x), true
	case uint8:
		return int64(x), true
	case int16:
		return int64(x), true
	case uint16:
		return int64(x), true
	}
	return 0, false
}
