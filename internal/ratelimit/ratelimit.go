// Package ratelimit is an in-memory fixed-window limiter with temporary bans,
// keyed by any string (client IP, username).
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

type Config struct {
	WindowSize    time.Duration
	MaxAttempts   int
	CleanupPeriod time.Duration
	BanDuration   time.Duration
}

// DefaultAuthConfig is used for the login and register endpoints.
func DefaultAuthConfig() *Config {
	return &Config{
		WindowSize:    15 * time.Minute,
		MaxAttempts:   5,
		CleanupPeriod: 30 * time.Minute,
		BanDuration:   30 * time.Minute,
	}
}

// LockoutConfig is used per username for failed logins.
func LockoutConfig() *Config {
	return &Config{
		WindowSize:    15 * time.Minute,
		MaxAttempts:   5,
		CleanupPeriod: 20 * time.Minute,
		BanDuration:   15 * time.Minute,
	}
}

type attemptRecord struct {
	count     int
	firstSeen time.Time
	bannedAt  time.Time
}

func (r *attemptRecord) banned() bool { return !r.bannedAt.IsZero() }

// Info describes a key's state after a call.
type Info struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
	Banned     bool
}

type MemoryRateLimiter struct {
	config   *Config
	now      func() time.Time
	mu       sync.Mutex
	attempts map[string]*attemptRecord
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewMemoryRateLimiter starts a cleanup goroutine; call Close to stop it.
func NewMemoryRateLimiter(config *Config) *MemoryRateLimiter {
	rl := newLimiter(config, time.Now)
	go rl.cleanupLoop()
	return rl
}

func newLimiter(config *Config, now func() time.Time) *MemoryRateLimiter {
	if config == nil {
		config = DefaultAuthConfig()
	}
	return &MemoryRateLimiter{
		config:   config,
		now:      now,
		attempts: make(map[string]*attemptRecord),
		stopCh:   make(chan struct{}),
	}
}

// Allow counts one attempt for key. Exceeding MaxAttempts within a window
// bans the key for BanDuration.
func (rl *MemoryRateLimiter) Allow(key string) (bool, Info) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rec := rl.current(key, now)
	if rec == nil {
		rec = &attemptRecord{firstSeen: now}
		rl.attempts[key] = rec
	}
	if rec.banned() {
		return false, rl.bannedInfo(rec, now)
	}

	rec.count++
	if rec.count > rl.config.MaxAttempts {
		rec.bannedAt = now
		return false, rl.bannedInfo(rec, now)
	}
	return true, Info{
		Allowed:   true,
		Limit:     rl.config.MaxAttempts,
		Remaining: rl.config.MaxAttempts - rec.count,
		ResetTime: rec.firstSeen.Add(rl.config.WindowSize),
	}
}

// Check reports the state of key without counting an attempt.
func (rl *MemoryRateLimiter) Check(key string) Info {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rec := rl.current(key, now)
	if rec == nil {
		return Info{Allowed: true, Limit: rl.config.MaxAttempts, Remaining: rl.config.MaxAttempts, ResetTime: now.Add(rl.config.WindowSize)}
	}
	if rec.banned() {
		return rl.bannedInfo(rec, now)
	}
	return Info{
		Allowed:   true,
		Limit:     rl.config.MaxAttempts,
		Remaining: max(rl.config.MaxAttempts-rec.count, 0),
		ResetTime: rec.firstSeen.Add(rl.config.WindowSize),
	}
}

// Reset forgets key, typically after a successful login.
func (rl *MemoryRateLimiter) Reset(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.attempts, key)
}

// current returns the live record for key, dropping it if it has expired.
// Callers hold mu.
func (rl *MemoryRateLimiter) current(key string, now time.Time) *attemptRecord {
	rec, ok := rl.attempts[key]
	if !ok {
		return nil
	}
	if rl.expired(rec, now) {
		delete(rl.attempts, key)
		return nil
	}
	return rec
}

func (rl *MemoryRateLimiter) expired(rec *attemptRecord, now time.Time) bool {
	if rec.banned() {
		return now.Sub(rec.bannedAt) >= rl.config.BanDuration
	}
	return now.Sub(rec.firstSeen) > rl.config.WindowSize
}

func (rl *MemoryRateLimiter) bannedInfo(rec *attemptRecord, now time.Time) Info {
	until := rec.bannedAt.Add(rl.config.BanDuration)
	return Info{
		Allowed:    false,
		Limit:      rl.config.MaxAttempts,
		ResetTime:  until,
		RetryAfter: until.Sub(now),
		Banned:     true,
	}
}

func (rl *MemoryRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *MemoryRateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, rec := range rl.attempts {
		if rl.expired(rec, now) {
			delete(rl.attempts, key)
		}
	}
}

func (rl *MemoryRateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// GetClientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then
// the connection's remote address.
func GetClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip.String()
		}
	}
	if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
		return ip.String()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
