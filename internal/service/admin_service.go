package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/jaam8/council_bot/internal/models"
	"github.com/jaam8/council_bot/pkg/edge"
	"go.uber.org/zap"
)

const maxUnlockedAdmins = 64

// AdminGate is the passphrase lock in front of the admin commands. It is a
// convenience gate; the edge service authorizes on the API key alone.
type AdminGate struct {
	passphrase string
	unlocked   *expirable.LRU[string, struct{}]
}

func NewAdminGate(passphrase string, ttl time.Duration) *AdminGate {
	return &AdminGate{
		passphrase: passphrase,
		unlocked:   expirable.NewLRU[string, struct{}](maxUnlockedAdmins, nil, ttl),
	}
}

func (g *AdminGate) Unlock(userID, passphrase string) error {
	if g.passphrase == "" ||
		subtle.ConstantTimeCompare([]byte(passphrase), []byte(g.passphrase)) != 1 {
		return models.ErrWrongPassphrase
	}
	g.unlocked.Add(userID, struct{}{})
	return nil
}

func (g *AdminGate) Lock(userID string) {
	g.unlocked.Remove(userID)
}

func (g *AdminGate) Unlocked(userID string) bool {
	_, ok := g.unlocked.Get(userID)
	return ok
}

type AdminService struct {
	c    AdminEdgeClient
	gate *AdminGate
	l    *zap.Logger
}

func NewAdminService(c AdminEdgeClient, gate *AdminGate, l *zap.Logger) *AdminService {
	return &AdminService{
		c:    c,
		gate: gate,
		l:    l,
	}
}

func (s *AdminService) Gate() *AdminGate {
	return s.gate
}

// UpsertRegistry forwards rows and the sync flag. Reconciling members absent
// from the upload happens in the edge service, not here.
func (s *AdminService) UpsertRegistry(ctx context.Context, userID string, rows []models.RegistryRow, sync bool) (*models.AdminResult, error) {
	if !s.gate.Unlocked(userID) {
		return nil, models.ErrAdminLocked
	}
	if rows == nil {
		rows = []models.RegistryRow{}
	}
	s.l.Info("upserting registry",
		zap.String("user_id", userID),
		zap.Int("rows", len(rows)),
		zap.Bool("sync", sync))
	resp, err := s.c.AdminPost(ctx, edge.PathUpsertRegistry, models.UpsertRegistryRequest{Rows: rows, Sync: sync})
	if err != nil {
		return nil, s.callError("upsert_registry", err)
	}
	return s.result("upsert_registry", resp, nil)
}

func (s *AdminService) NonVoters(ctx context.Context, userID string, region models.Region) (*models.AdminResult, error) {
	if !s.gate.Unlocked(userID) {
		return nil, models.ErrAdminLocked
	}
	resp, err := s.c.AdminGet(ctx, edge.PathNonVoters, url.Values{"region": {string(region)}})
	if err != nil {
		return nil, s.callError("non_voters", err)
	}
	return s.result("non_voters", resp, func(r *edge.Response) ([]map[string]any, error) {
		var body models.NonVotersResponse
		err := r.Decode(&body)
		return body.NonVoters, err
	})
}

// LiveTallies is never cached; admins ask for it when they want it fresh.
func (s *AdminService) LiveTallies(ctx context.Context, userID string, region models.Region) (*models.AdminResult, error) {
	if !s.gate.Unlocked(userID) {
		return nil, models.ErrAdminLocked
	}
	resp, err := s.c.AdminGet(ctx, edge.PathLiveTallies, url.Values{"region": {string(region)}})
	if err != nil {
		return nil, s.callError("live_tallies", err)
	}
	return s.result("live_tallies", resp, func(r *edge.Response) ([]map[string]any, error) {
		var body models.TalliesResponse
		err := r.Decode(&body)
		return body.Tallies, err
	})
}

func (s *AdminService) callError(op string, err error) error {
	if errors.Is(err, edge.ErrNoAPIKey) {
		s.l.Warn("admin call without api key", zap.String("op", op))
		return models.ErrAdminNotConfigured
	}
	s.l.Error("admin call failed", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("service: %s: %w: %v", op, models.ErrEdgeUnavailable, err)
}

func (s *AdminService) result(op string, resp *edge.Response,
	decode func(*edge.Response) ([]map[string]any, error)) (*models.AdminResult, error) {
	res := &models.AdminResult{StatusCode: resp.StatusCode, Body: resp.Body}
	if !resp.Success() {
		s.l.Warn("admin call refused",
			zap.String("op", op),
			zap.Int("status_code", resp.StatusCode))
		return res, &models.AdminResponseError{Op: op, StatusCode: resp.StatusCode, Body: resp.Body}
	}
	if decode != nil {
		records, err := decode(resp)
		if err != nil {
			s.l.Error("failed to decode admin answer", zap.String("op", op), zap.Error(err))
			return res, fmt.Errorf("service: %s: %w", op, models.ErrFailedToProcessData)
		}
		res.Records = records
	}
	s.l.Debug("admin call done",
		zap.String("op", op),
		zap.Int("status_code", resp.StatusCode),
		zap.Int("records", len(res.Records)))
	return res, nil
}
