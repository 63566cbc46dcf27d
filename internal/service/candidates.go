package service

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/jaam8/council_bot/internal/models"
	"github.com/jaam8/council_bot/pkg/edge"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	candidateCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ballot_candidate_cache_hits_total",
		Help: "Candidate slate lookups served from cache",
	})
	candidateCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ballot_candidate_cache_misses_total",
		Help: "Candidate slate lookups that went to the edge service",
	})
)

// CandidateService serves regional slates with a short freshness window.
// The cache only saves reads; drafts and ballots never come from it.
type CandidateService struct {
	c     EdgeClient
	l     *zap.Logger
	cache *expirable.LRU[models.Region, []models.Candidate]
}

func NewCandidateService(c EdgeClient, l *zap.Logger, size int, ttl time.Duration) *CandidateService {
	if size <= 0 {
		size = len(models.AllRegions())
	}
	return &CandidateService{
		c:     c,
		l:     l,
		cache: expirable.NewLRU[models.Region, []models.Candidate](size, nil, ttl),
	}
}

// List returns the slate for region. A refused read yields an empty slate
// that is not cached, so the next call asks again.
func (s *CandidateService) List(ctx context.Context, region models.Region) ([]models.Candidate, error) {
	if cached, ok := s.cache.Get(region); ok {
		candidateCacheHits.Inc()
		return cached, nil
	}
	candidateCacheMisses.Inc()

	resp, err := s.c.Get(ctx, edge.PathCandidates, url.Values{"region": {string(region)}})
	if err != nil {
		s.l.Error("failed to fetch candidates", zap.String("region", string(region)), zap.Error(err))
		return nil, fmt.Errorf("service: failed to fetch candidates: %w: %v", models.ErrEdgeUnavailable, err)
	}
	if !resp.Success() {
		s.l.Warn("candidates refused",
			zap.String("region", string(region)),
			zap.Int("status_code", resp.StatusCode))
		return []models.Candidate{}, nil
	}

	var candidates []models.Candidate
	if err := resp.Decode(&candidates); err != nil {
		s.l.Error("failed to decode candidates", zap.String("region", string(region)), zap.Error(err))
		return nil, fmt.Errorf("service: failed to decode candidates: %w", models.ErrFailedToProcessData)
	}
	s.l.Debug("candidates fetched",
		zap.String("region", string(region)),
		zap.Int("count", len(candidates)))
	s.cache.Add(region, candidates)
	return candidates, nil
}

// Lookup finds the slate entry whose id reads as raw, so a typed id is sent
// back in the form the edge service issued it.
func (s *CandidateService) Lookup(ctx context.Context, region models.Region, raw string) (models.CandidateID, bool) {
	list, err := s.List(ctx, region)
	if err != nil {
		return models.CandidateID{}, false
	}
	for _, c := range list {
		if c.ID.String() == raw {
			return c.ID, true
		}
	}
	s.l.Debug("candidate not on slate",
		zap.String("region", string(region)),
		zap.String("candidate_id", raw))
	return models.CandidateID{}, false
}
