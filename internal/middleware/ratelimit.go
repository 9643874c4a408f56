package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	idleBucketTTL   = 10 * time.Minute
	cleanupInterval = 5 * time.Minute
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// BurstLimiter manages short-term request rate per client key. It guards the
// service from floods; the daily quota is enforced elsewhere.
type BurstLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   rate.Limit
	burst   int
	now     func() time.Time
}

func NewBurstLimiter(perSecond float64, burst int) *BurstLimiter {
	return &BurstLimiter{
		buckets: make(map[string]*bucket),
		limit:   rate.Limit(perSecond),
		burst:   burst,
		now:     time.Now,
	}
}

func (bl *BurstLimiter) Allow(key string) bool {
	now := bl.now()
	bl.mu.Lock()
	b, ok := bl.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(bl.limit, bl.burst)}
		bl.buckets[key] = b
	}
	b.lastSeen = now
	bl.mu.Unlock()

	return b.limiter.AllowN(now, 1)
}

// Run removes idle buckets until ctx is done.
func (bl *BurstLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			bl.sweep()
		}
	}
}

func (bl *BurstLimiter) sweep() {
	now := bl.now()
	bl.mu.Lock()
	defer bl.mu.Unlock()
	for key, b := range bl.buckets {
		// Remove buckets that haven't been used in 10 minutes
		if now.Sub(b.lastSeen) > idleBucketTTL {
			delete(bl.buckets, key)
		}
	}
}

func (bl *BurstLimiter) size() int {
	bl.mu.Lock()
	defer bl.mu.Unlock()
	return len(bl.buckets)
}

// Middleware rejects requests over the burst rate with deny. key extracts
// the client identity.
func (bl *BurstLimiter) Middleware(key func(*http.Request) string, deny http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !bl.Allow(key(r)) {
				w.Header().Set("Retry-After", "1")
				deny(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
