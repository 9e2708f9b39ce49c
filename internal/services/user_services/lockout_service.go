package user_services

import (
	"strings"
	"time"

	"github.com/iyunix/go-chatline/internal/ratelimit"
)

// LockoutService tracks failed logins per username, independent of the
// per-IP limiter in front of the auth routes.
type LockoutService struct {
	limiter *ratelimit.MemoryRateLimiter
	logger  Logger
}

func NewLockoutService(limiter *ratelimit.MemoryRateLimiter, logger Logger) *LockoutService {
	return &LockoutService{limiter: limiter, logger: logger}
}

func lockoutKey(username string) string {
	return "login:" + strings.ToLower(username)
}

// IsLocked reports whether username is locked and for how long.
func (s *LockoutService) IsLocked(username string) (bool, time.Duration) {
	info := s.limiter.Check(lockoutKey(username))
	return info.Banned, info.RetryAfter
}

func (s *LockoutService) RecordFailedAttempt(username, sourceIP string) {
	ok, info := s.limiter.Allow(lockoutKey(username))
	if !ok {
		s.logger.Error("account locked due to excessive failed attempts",
			"username", mask(username),
			"source_ip", sourceIP,
			"retry_after", info.RetryAfter.String())
		return
	}
	s.logger.Warn("failed login attempt recorded",
		"username", mask(username),
		"source_ip", sourceIP,
		"remaining", info.Remaining)
}

func (s *LockoutService) RecordSuccess(username string) {
	s.limiter.Reset(lockoutKey(username))
}
