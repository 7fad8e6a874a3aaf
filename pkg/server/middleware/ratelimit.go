package middleware

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/de-tools/cloudprice/pkg/models/api"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

type RateLimitConfig struct {
	Window time.Duration
	Max    int
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiter hands out one token bucket per client IP. A bucket holds Max tokens and
// refills completely over Window.
type clientLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	window    time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newClientLimiter(cfg RateLimitConfig) *clientLimiter {
	return &clientLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(cfg.Window / time.Duration(cfg.Max)),
		burst:    cfg.Max,
		window:   cfg.Window,
		now:      time.Now,
	}
}

func (l *clientLimiter) reserve(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now

	r := v.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, l.window
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// sweep drops idle clients; their buckets would be full again anyway.
func (l *clientLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	for key, v := range l.visitors {
		if now.Sub(v.lastSeen) >= l.window {
			delete(l.visitors, key)
		}
	}
	l.lastSweep = now
}

// RateLimit rejects clients that exceed Max requests per Window with 429 and Retry-After.
// A zero Max or Window disables limiting.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if cfg.Max <= 0 || cfg.Window <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	limiter := newClientLimiter(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, retryAfter := limiter.reserve(clientIP(r))
			if !allowed {
				rateLimitRejects.Inc()
				zerolog.Ctx(r.Context()).Warn().Dur("retry_after", retryAfter).Msg("rate limit exceeded")

				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(api.ErrorResponse{
					Status:  api.StatusError,
					Message: "Too many requests, please try again later.",
				})
				return
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Max))
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
