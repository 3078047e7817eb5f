package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/hugh/inkpress/internal/api/respond"
	"github.com/hugh/inkpress/internal/apperr"
	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per client key. A bucket holds
// requests tokens and refills at requests per window.
type RateLimiter struct {
	requests      int
	window        time.Duration
	limit         rate.Limit
	clients       map[string]*client
	mu            sync.Mutex
	cleanupTicker *time.Ticker
	now           func() time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(requests int, windowSeconds int) *RateLimiter {
	if requests <= 0 {
		requests = 100
	}
	if windowSeconds <= 0 {
		windowSeconds = 60
	}

	window := time.Duration(windowSeconds) * time.Second
	rl := &RateLimiter{
		requests: requests,
		window:   window,
		limit:    rate.Limit(float64(requests) / window.Seconds()),
		clients:  make(map[string]*client),
		now:      time.Now,
	}

	rl.cleanupTicker = time.NewTicker(time.Minute)
	go rl.cleanup()

	return rl
}

// cleanup drops idle clients. After a full window their bucket is full
// again, so forgetting them changes nothing.
func (rl *RateLimiter) cleanup() {
	for range rl.cleanupTicker.C {
		rl.mu.Lock()
		now := rl.now()
		for key, c := range rl.clients {
			if now.Sub(c.lastSeen) > rl.window {
				delete(rl.clients, key)
			}
		}
		rl.mu.Unlock()
	}
}

func (rl *RateLimiter) get(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	c, ok := rl.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rl.limit, rl.requests)}
		rl.clients[key] = c
	}
	c.lastSeen = now
	return c.limiter
}

// Allow takes a token for key. It returns whether the request may proceed,
// the whole tokens left, and when the bucket is full again (allowed) or
// when the next token arrives (denied).
func (rl *RateLimiter) Allow(key string) (bool, int, time.Time) {
	now := rl.now()
	lim := rl.get(key, now)

	allowed := lim.AllowN(now, 1)
	tokens := lim.TokensAt(now)
	if tokens < 0 {
		tokens = 0
	}

	if !allowed {
		return false, 0, now.Add(rl.refill(1 - tokens))
	}
	return true, int(tokens), now.Add(rl.refill(float64(rl.requests) - tokens))
}

// refill is how long the bucket takes to gain n tokens.
func (rl *RateLimiter) refill(n float64) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n / float64(rl.limit) * float64(time.Second))
}

// RateLimit returns a middleware that applies rate limiting per client IP
func RateLimit(requests int, windowSeconds int) func(http.Handler) http.Handler {
	limiter := NewRateLimiter(requests, windowSeconds)
	return limiter.middleware(func(r *http.Request) string {
		return getClientIP(r)
	})
}

// RateLimitByUser returns a middleware that applies rate limiting per authenticated user
func RateLimitByUser(requests int, windowSeconds int) func(http.Handler) http.Handler {
	limiter := NewRateLimiter(requests, windowSeconds)
	return limiter.middleware(func(r *http.Request) string {
		if userID := GetUserID(r.Context()); userID != 0 {
			return "user:" + strconv.FormatUint(uint64(userID), 10)
		}
		return getClientIP(r)
	})
}

func (rl *RateLimiter) middleware(keyFn func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, remaining, resetTime := rl.Allow(keyFn(r))

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.requests))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

			if !allowed {
				w.Header().Set("Retry-After", strconv.FormatInt(int64(resetTime.Sub(rl.now()).Seconds())+1, 10))
				respond.Error(w, r, apperr.New(apperr.KindRateLimited, "Too many requests, please try again later"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getClientIP extracts the client IP from the request
func getClientIP(r *http.Request) string {
	// X-Forwarded-For: first entry is the client
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for i := 0; i < len(xff); i++ {
			if xff[i] == ',' {
				return xff[:i]
			}
		}
		return xff
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	// Fall back to RemoteAddr without the port
	ip := r.RemoteAddr
	for i := len(ip) - 1; i >= 0; i-- {
		if ip[i] == ':' {
			return ip[:i]
		}
	}
	return ip
}
