package fetcher

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// HostLimiter bounds concurrent requests per host and, optionally,
// the request rate per host.
type HostLimiter struct {
	maxPerHost int64
	perSecond  float64

	mu       sync.Mutex
	sems     map[string]*semaphore.Weighted
	limiters map[string]*rate.Limiter
}

// NewHostLimiter creates a limiter allowing maxPerHost in-flight requests per
// host. A perSecond of 0 disables rate limiting.
func NewHostLimiter(maxPerHost int, perSecond float64) *HostLimiter {
	if maxPerHost < 1 {
		maxPerHost = 1
	}
	return &HostLimiter{
		maxPerHost: int64(maxPerHost),
		perSecond:  perSecond,
		sems:       make(map[string]*semaphore.Weighted),
		limiters:   make(map[string]*rate.Limiter),
	}
}

// Acquire blocks until a request to host may proceed. The returned release
// func must be called when the request finishes.
func (h *HostLimiter) Acquire(ctx context.Context, host string) (func(), error) {
	if h == nil || host == "" {
		return func() {}, nil
	}
	host = strings.ToLower(host)

	sem, limiter := h.forHost(host)
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			sem.Release(1)
			return nil, err
		}
	}
	return func() { sem.Release(1) }, nil
}

func (h *HostLimiter) forHost(host string) (*semaphore.Weighted, *rate.Limiter) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sem, ok := h.sems[host]
	if !ok {
		sem = semaphore.NewWeighted(h.maxPerHost)
		h.sems[host] = sem
	}

	if h.perSecond <= 0 {
		return sem, nil
	}
	limiter, ok := h.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(h.perSecond), 1)
		h.limiters[host] = limiter
	}
	return sem, limiter
}
