package middleware

import (
	"encoding/json"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/whynot-innovations/portal/internal/metrics"
)

// RateLimiterConfig sets a token bucket per client IP.
type RateLimiterConfig struct {
	Rate            rate.Limit    // tokens per second
	Burst           int           // bucket size
	CleanupInterval time.Duration // how often idle buckets are dropped
}

// PerMinute builds a config allowing n requests a minute with a burst of n.
func PerMinute(n int) RateLimiterConfig {
	return RateLimiterConfig{
		Rate:            rate.Limit(float64(n) / 60.0),
		Burst:           n,
		CleanupInterval: 5 * time.Minute,
	}
}

type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter throttles one route per client IP. It runs a cleanup
// goroutine until Stop is called.
type RateLimiter struct {
	route   string
	config  RateLimiterConfig
	metrics metrics.Recorder
	logger  *slog.Logger

	mu       sync.Mutex
	limiters map[string]*clientLimiter

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewRateLimiter(route string, config RateLimiterConfig, rec metrics.Recorder, logger *slog.Logger) *RateLimiter {
	rl := &RateLimiter{
		route:    route,
		config:   config,
		metrics:  rec,
		logger:   logger,
		limiters: make(map[string]*clientLimiter),
		stopCh:   make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Stop ends the cleanup goroutine. Safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// Middleware rejects requests over the limit with 429 and a Retry-After
// header. It keys on RemoteAddr, so chi's RealIP must run first when the
// portal sits behind a proxy.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !rl.limiter(ip).Allow() {
			rl.metrics.RecordRateLimited(rl.route)
			rl.logger.Warn("rate limit exceeded",
				slog.String("route", rl.route),
				slog.String("ip", ip),
			)
			writeRateLimitResponse(w, rl.config.Rate)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Len is the number of tracked clients.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cl, ok := rl.limiters[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.config.Rate, rl.config.Burst)}
		rl.limiters[key] = cl
	}
	cl.lastAccess = time.Now()
	return cl.limiter
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup(time.Now())
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup drops clients idle for more than two cleanup intervals.
func (rl *RateLimiter) cleanup(now time.Time) {
	ttl := rl.config.CleanupInterval * 2

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, cl := range rl.limiters {
		if now.Sub(cl.lastAccess) > ttl {
			delete(rl.limiters, key)
		}
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeRateLimitResponse answers 429 with the seconds until one token is
// refilled.
func writeRateLimitResponse(w http.ResponseWriter, limit rate.Limit) {
	retryAfter := 1
	if limit > 0 {
		retryAfter = max(1, int(math.Ceil(1.0/float64(limit))))
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   "rate_limited",
		"message": "too many requests, try again later",
	})
}
