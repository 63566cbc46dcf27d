package repository

import (
	"context"
	"sync"
	"time"

	"github.com/jaam8/council_bot/internal/models"
	"go.uber.org/zap"
)

type memoryEntry struct {
	session   models.VoterSession
	expiresAt time.Time
}

// MemorySessionStore keeps sessions in process memory.
type MemorySessionStore struct {
	mu        sync.Mutex
	sessions  map[string]memoryEntry
	ttl       time.Duration
	nextSweep time.Time
	now       func() time.Time
	l         *zap.Logger
}

func NewMemorySessionStore(ttl time.Duration, l *zap.Logger) *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]memoryEntry),
		ttl:      ttl,
		now:      time.Now,
		l:        l,
	}
}

func (s *MemorySessionStore) Load(_ context.Context, userID string) (models.VoterSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[userID]
	if !ok {
		return models.NewVoterSession(), nil
	}
	if s.ttl > 0 && s.now().After(entry.expiresAt) {
		s.l.Debug("session expired", zap.String("user_id", userID))
		delete(s.sessions, userID)
		return models.NewVoterSession(), nil
	}
	return cloneSession(entry.session), nil
}

func (s *MemorySessionStore) Save(_ context.Context, userID string, session models.VoterSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.sweep(now)
	s.sessions[userID] = memoryEntry{
		session:   cloneSession(session),
		expiresAt: now.Add(s.ttl),
	}
	return nil
}

// sweep drops expired sessions at most once per ttl. Callers hold mu.
func (s *MemorySessionStore) sweep(now time.Time) {
	if s.ttl <= 0 || now.Before(s.nextSweep) {
		return
	}
	removed := 0
	for userID, entry := range s.sessions {
		if now.After(entry.expiresAt) {
			delete(s.sessions, userID)
			removed++
		}
	}
	s.nextSweep = now.Add(s.ttl)
	if removed > 0 {
		s.l.Debug("expired sessions swept", zap.Int("removed", removed))
	}
}

func (s *MemorySessionStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
	return nil
}

func cloneSession(session models.VoterSession) models.VoterSession {
	if session.Draft != nil {
		session.Draft = session.DraftIDs()
	}
	return session
}
