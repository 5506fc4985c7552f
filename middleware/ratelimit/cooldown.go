package ratelimit

import (
	"context"
	"time"

	"github.com/tech-arch1tect/barae/services/auth"
	"github.com/tech-arch1tect/barae/services/logging"
	"github.com/tech-arch1tect/barae/services/verification"
	"go.uber.org/zap"
)

// IssueHistory reports when a code was last issued for an identifier.
type IssueHistory interface {
	LastIssued(ctx context.Context, purpose verification.Purpose, identifier string) (time.Time, bool, error)
}

type Decision struct {
	Allowed    bool
	RetryAfter int
}

// Cooldown allows one code per (purpose, email) pair per window.
type Cooldown struct {
	history IssueHistory
	window  time.Duration
	now     func() time.Time
	logger  *logging.Service
}

func NewCooldown(history IssueHistory, window time.Duration, logger *logging.Service) *Cooldown {
	if window <= 0 {
		window = 60 * time.Second
	}
	return &Cooldown{
		history: history,
		window:  window,
		now:     time.Now,
		logger:  logger,
	}
}

func (c *Cooldown) SetClock(now func() time.Time) {
	c.now = now
}

func (c *Cooldown) Window() time.Duration {
	return c.window
}

// CheckAndReject rejects when the newest record for the pair was written
// inside the window. RetryAfter is in whole seconds, within [0, window].
func (c *Cooldown) CheckAndReject(ctx context.Context, purpose verification.Purpose, email string) (Decision, error) {
	identifier := verification.Identifier(purpose, auth.NormalizeEmail(email))

	updatedAt, found, err := c.history.LastIssued(ctx, purpose, identifier)
	if err != nil {
		return Decision{Allowed: true}, err
	}
	if !found {
		return Decision{Allowed: true}, nil
	}

	now := c.now()
	if !updatedAt.After(now.Add(-c.window)) {
		return Decision{Allowed: true}, nil
	}

	windowSeconds := int(c.window / time.Second)
	elapsed := int(now.Sub(updatedAt) / time.Second)
	retryAfter := min(max(windowSeconds-elapsed, 0), windowSeconds)

	c.logger.Debug("code issuance throttled",
		zap.String("purpose", string(purpose)),
		zap.Int("retry_after", retryAfter))
	return Decision{Allowed: false, RetryAfter: retryAfter}, nil
}
