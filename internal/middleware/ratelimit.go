package middleware

import (
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"github.com/postloom/backend/internal/auth"
)

// GenerationLimiter throttles caption-generation requests per owner so one
// user can't burn the upstream model quota for everyone.
type GenerationLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewGenerationLimiter allows ratePerMinute requests sustained with the given
// burst per owner.
func NewGenerationLimiter(ratePerMinute float64, burst int) *GenerationLimiter {
	if ratePerMinute <= 0 {
		ratePerMinute = 6
	}
	if burst <= 0 {
		burst = 3
	}
	return &GenerationLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(ratePerMinute / 60.0),
		burst:    burst,
	}
}

func (gl *GenerationLimiter) limiterFor(ownerID string) *rate.Limiter {
	gl.mu.Lock()
	defer gl.mu.Unlock()
	l := gl.limiters[ownerID]
	if l == nil {
		l = rate.NewLimiter(gl.limit, gl.burst)
		gl.limiters[ownerID] = l
	}
	return l
}

// Middleware rejects over-limit requests with 429. Requests without a
// resolved owner are passed through; the auth middleware already gates those.
func (gl *GenerationLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ownerID := auth.OwnerID(r)
		if ownerID == "" {
			next.ServeHTTP(w, r)
			return
		}
		if !gl.limiterFor(ownerID).Allow() {
			http.Error(w, "generation rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
