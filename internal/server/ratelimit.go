package server

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// RateLimitConfig tunes the global request limiter and the per-IP login
// throttle. When RedisAddr is set the login throttle counts attempts in
// Redis so multiple replicas share one budget.
type RateLimitConfig struct {
	GlobalRPS     float64
	GlobalBurst   int
	LoginLimit    int
	LoginWindow   time.Duration
	RedisAddr     string
	RedisUsername string
	RedisPassword string
	RedisTimeout  time.Duration
}

// tokenStore is the shared-counter backend for the login throttle.
type tokenStore interface {
	Allow(key string, limit int, window time.Duration) (bool, time.Duration, error)
}

type rateLimiter struct {
	global      *tokenBucket
	loginLimit  int
	loginWindow time.Duration
	store       tokenStore

	loginMu      sync.Mutex
	loginBuckets map[string]*loginBucket
}

type loginBucket struct {
	tokens  *tokenBucket
	touched time.Time
}

func newRateLimiter(cfg RateLimitConfig) *rateLimiter {
	window := cfg.LoginWindow
	if window <= 0 {
		window = time.Minute
	}
	rl := &rateLimiter{
		loginLimit:   cfg.LoginLimit,
		loginWindow:  window,
		loginBuckets: make(map[string]*loginBucket),
	}
	if cfg.GlobalRPS > 0 {
		rl.global = newTokenBucket(cfg.GlobalRPS, globalBurst(cfg))
	}
	if cfg.RedisAddr != "" && cfg.LoginLimit > 0 {
		timeout := cfg.RedisTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		rl.store = newRedisStore(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword, timeout)
	}
	return rl
}

func globalBurst(cfg RateLimitConfig) int {
	if cfg.GlobalBurst > 0 {
		return cfg.GlobalBurst
	}
	if burst := int(cfg.GlobalRPS); burst > 0 {
		return burst
	}
	return 1
}

// AllowRequest applies the process-wide request budget. A limiter without a
// configured global rate admits everything.
func (r *rateLimiter) AllowRequest() bool {
	if r == nil || r.global == nil {
		return true
	}
	allowed, _ := r.global.take()
	return allowed
}

// AllowLogin applies the per-key login budget and reports how long the
// caller should wait before retrying a denied attempt.
func (r *rateLimiter) AllowLogin(key string) (bool, time.Duration, error) {
	if r == nil || r.loginLimit <= 0 {
		return true, 0, nil
	}
	if key == "" {
		key = "unknown"
	}
	if r.store != nil {
		return r.store.Allow(fmt.Sprintf("videotube:login:%s", key), r.loginLimit, r.loginWindow)
	}

	r.loginMu.Lock()
	entry := r.loginBuckets[key]
	if entry == nil {
		perSecond := float64(r.loginLimit) / r.loginWindow.Seconds()
		entry = &loginBucket{tokens: newTokenBucket(perSecond, r.loginLimit)}
		r.loginBuckets[key] = entry
	}
	entry.touched = time.Now()
	r.evictIdleLocked(entry.touched)
	r.loginMu.Unlock()

	allowed, retryAfter := entry.tokens.take()
	return allowed, retryAfter, nil
}

// evictIdleLocked drops buckets idle for two full windows. Runs under
// loginMu on every login attempt, which keeps the map bounded by the set of
// recently active keys.
func (r *rateLimiter) evictIdleLocked(now time.Time) {
	cutoff := now.Add(-2 * r.loginWindow)
	for key, entry := range r.loginBuckets {
		if entry.touched.Before(cutoff) {
			delete(r.loginBuckets, key)
		}
	}
}

// tokenBucket is a classic leaky bucket: capacity tokens, refilled
// continuously at rate tokens per second.
type tokenBucket struct {
	mu       sync.Mutex
	rate     float64
	capacity float64
	level    float64
	refilled time.Time
}

func newTokenBucket(rate float64, burst int) *tokenBucket {
	if rate <= 0 {
		rate = 1
	}
	capacity := float64(burst)
	if capacity < 1 {
		capacity = 1
	}
	return &tokenBucket{
		rate:     rate,
		capacity: capacity,
		level:    capacity,
		refilled: time.Now(),
	}
}

func (tb *tokenBucket) Allow() bool {
	allowed, _ := tb.take()
	return allowed
}

// take consumes one token when available. On denial it reports the time
// until the bucket refills enough for one more attempt.
func (tb *tokenBucket) take() (bool, time.Duration) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	tb.level = math.Min(tb.capacity, tb.level+now.Sub(tb.refilled).Seconds()*tb.rate)
	tb.refilled = now

	if tb.level >= 1 {
		tb.level--
		return true, 0
	}
	wait := time.Duration((1 - tb.level) / tb.rate * float64(time.Second))
	if wait < time.Second {
		wait = time.Second
	}
	return false, wait
}
