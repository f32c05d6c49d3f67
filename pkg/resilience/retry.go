package resilience

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"farewatch-service/pkg/logger"
)

// ErrRetriesExhausted is wrapped into the error returned when every attempt
// failed with a retryable error.
var ErrRetriesExhausted = errors.New("retries exhausted")

// RetryConfig parameterizes a Policy.
type RetryConfig struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	Multiplier     float64
	JitterFraction float64
}

// DefaultRetryConfig is three attempts starting at one second and doubling.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
		Multiplier:  2.0,
	}
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Policy retries an operation while its error is classified as retryable.
type Policy struct {
	cfg       RetryConfig
	retryable func(error) bool
	sleep     SleepFunc
	onRetry   func(attempt int, err error)
	logger    logger.Logger
}

// NewPolicy creates a retry policy. Zero fields of cfg take the defaults.
// A nil retryable predicate treats every error as permanent.
func NewPolicy(cfg RetryConfig, retryable func(error) bool, log logger.Logger) *Policy {
	defaults := DefaultRetryConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaults.MaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = defaults.BaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = defaults.MaxDelay
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = defaults.Multiplier
	}
	if retryable == nil {
		retryable = func(error) bool { return false }
	}
	return &Policy{
		cfg:       cfg,
		retryable: retryable,
		sleep:     SleepContext,
		logger:    log.With("component", "retry"),
	}
}

// WithSleep replaces the backoff sleeper. Tests use it to avoid real waits.
func (p *Policy) WithSleep(sleep SleepFunc) *Policy {
	p.sleep = sleep
	return p
}

// OnRetry registers a hook called before each backoff sleep.
func (p *Policy) OnRetry(fn func(attempt int, err error)) *Policy {
	p.onRetry = fn
	return p
}

// Do runs fn until it succeeds, fails with a non-retryable error, or the
// attempt budget is spent.
func (p *Policy) Do(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			if attempt > 1 {
				p.logger.Info("Succeeded after retry", "operation", name, "attempt", attempt)
			}
			return nil
		}
		if !p.retryable(lastErr) {
			return lastErr
		}
		if attempt == p.cfg.MaxAttempts {
			break
		}

		delay := p.Backoff(attempt)
		p.logger.Warn("Transient failure, retrying",
			"operation", name,
			"attempt", attempt,
			"maxAttempts", p.cfg.MaxAttempts,
			"nextDelay", delay.String(),
			"error", lastErr)
		if p.onRetry != nil {
			p.onRetry(attempt, lastErr)
		}
		if err := p.sleep(ctx, delay); err != nil {
			return fmt.Errorf("%s: retry aborted during backoff: %w", name, err)
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w: %w", name, p.cfg.MaxAttempts, ErrRetriesExhausted, lastErr)
}

// Backoff returns the delay slept after the given failed attempt (1-based).
func (p *Policy) Backoff(attempt int) time.Duration {
	backoff := float64(p.cfg.BaseDelay) * math.Pow(p.cfg.Multiplier, float64(attempt-1))
	if p.cfg.JitterFraction > 0 {
		backoff += backoff * p.cfg.JitterFraction * (2*rand.Float64() - 1)
	}
	if backoff > float64(p.cfg.MaxDelay) {
		backoff = float64(p.cfg.MaxDelay)
	}
	if backoff < 0 {
		backoff = float64(p.cfg.BaseDelay)
	}
	return time.Duration(backoff)
}

// SleepContext waits for d, returning early with ctx.Err() on cancellation.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
