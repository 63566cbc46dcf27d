package api

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

const (
	maxTrackedUsers = 10000
	limiterIdleTTL  = 10 * time.Minute
)

// userLimiter throttles commands per chat user. Buckets of users gone quiet
// expire, so the set stays bounded.
type userLimiter struct {
	mu       sync.Mutex
	limiters *expirable.LRU[string, *rate.Limiter]
	limit    rate.Limit
	burst    int
}

func newUserLimiter(perSecond float64, burst int) *userLimiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &userLimiter{
		limiters: expirable.NewLRU[string, *rate.Limiter](maxTrackedUsers, nil, limiterIdleTTL),
		limit:    limit,
		burst:    burst,
	}
}

func (u *userLimiter) allow(userID string) bool {
	u.mu.Lock()
	limiter, ok := u.limiters.Get(userID)
	if !ok {
		limiter = rate.NewLimiter(u.limit, u.burst)
	}
	// Re-adding restarts the idle window.
	u.limiters.Add(userID, limiter)
	u.mu.Unlock()
	return limiter.Allow()
}
