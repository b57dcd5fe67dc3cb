package gateway

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiterPool hands out one limiter per collaborator operation.
type RateLimiterPool struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rpm      int
}

// NewRateLimiterPool creates a pool where every operation may run
// requestsPerMinute times per minute. Zero or negative disables limiting.
func NewRateLimiterPool(requestsPerMinute int) *RateLimiterPool {
	return &RateLimiterPool{
		limiters: make(map[string]*rate.Limiter),
		rpm:      requestsPerMinute,
	}
}

func (p *RateLimiterPool) get(op string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	if limiter, ok := p.limiters[op]; ok {
		return limiter
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if p.rpm > 0 {
		burst := p.rpm / 5
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(float64(p.rpm)/60.0), burst)
	}
	p.limiters[op] = limiter
	return limiter
}

// Wait blocks until op may run or ctx is done.
func (p *RateLimiterPool) Wait(ctx context.Context, op string) error {
	if p == nil {
		return ctx.Err()
	}
	return p.get(op).Wait(ctx)
}
