package auth

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// MaxLoginFailures failed attempts within LockoutWindow lock the account.
	MaxLoginFailures = 5
	LockoutWindow    = 15 * time.Minute
)

// Guard tracks failed login attempts per (username, IP) and gates login.
// Store failures never crash a login: the check fails secure (locked) and
// record/clear errors are logged and swallowed, so the caller still answers
// with invalid-credentials rather than a 500.
type Guard struct {
	attempts LoginAttemptStore
	now      func() time.Time
	log      *logrus.Logger
}

// GuardOption configures Guard.
type GuardOption func(*Guard)

// WithGuardClock overrides the time source (useful for tests).
func WithGuardClock(fn func() time.Time) GuardOption {
	return func(g *Guard) {
		if fn != nil {
			g.now = fn
		}
	}
}

// WithGuardLogger overrides the logger.
func WithGuardLogger(log *logrus.Logger) GuardOption {
	return func(g *Guard) {
		if log != nil {
			g.log = log
		}
	}
}

// NewGuard constructs the brute-force guard.
func NewGuard(attempts LoginAttemptStore, opts ...GuardOption) *Guard {
	g := &Guard{
		attempts: attempts,
		now:      time.Now,
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// IsLocked reports whether the username or IP has accumulated too many
// failures inside the lockout window. A store error locks the account.
func (g *Guard) IsLocked(ctx context.Context, username, ip string) bool {
	cutoff := g.now().UTC().Add(-LockoutWindow)
	count, err := g.attempts.CountSince(ctx, username, ip, cutoff)
	if err != nil {
		g.log.WithError(err).WithField("username", username).
			Warn("brute-force check failed, locking account")
		return true
	}
	return count >= MaxLoginFailures
}

// RecordFailure appends a failed-login record. Errors are logged, never
// raised: the login still fails with invalid credentials.
func (g *Guard) RecordFailure(ctx context.Context, username, ip string) {
	attempt := FailedLogin{
		Username:    username,
		IPAddress:   ip,
		AttemptedAt: g.now().UTC(),
	}
	if err := g.attempts.Record(ctx, attempt); err != nil {
		g.log.WithError(err).WithField("username", username).
			Error("failed to record login attempt")
	}
}

// Clear removes all failed-login records for the username. Scoped by
// username only: a successful login from one IP also clears failures
// contributed by other IPs.
func (g *Guard) Clear(ctx context.Context, username string) {
	if err := g.attempts.Clear(ctx, username); err != nil {
		g.log.WithError(err).WithField("username", username).
			Error("failed to clear login attempts")
	}
}
