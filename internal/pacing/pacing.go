// Package pacing holds every wait the tool performs: retry backoff, rate-limit
// waits and the pause between candidates. Components receive a *Policy instead
// of calling time.Sleep so tests can record waits without sleeping.
package pacing

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultMaxRetries        = 3
	DefaultInitialBackoff    = time.Second
	DefaultRateLimitFallback = 60 * time.Second
	DefaultRateLimitMargin   = time.Second
	DefaultCandidateDelay    = time.Second
	DefaultLowQuotaThreshold = 10
)

// Config is the user-facing form of a Policy. Zero values fall back to defaults.
type Config struct {
	MaxRetries        int           `mapstructure:"max-retries"`
	InitialBackoff    time.Duration `mapstructure:"initial-backoff"`
	RateLimitFallback time.Duration `mapstructure:"rate-limit-fallback"`
	RateLimitMargin   time.Duration `mapstructure:"rate-limit-margin"`
	CandidateDelay    time.Duration `mapstructure:"candidate-delay"`
	LowQuotaThreshold int           `mapstructure:"low-quota-threshold"`
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

type Policy struct {
	// MaxRetries bounds retries of transient failures. Rate-limit waits do not count.
	MaxRetries        int
	InitialBackoff    time.Duration
	RateLimitFallback time.Duration
	RateLimitMargin   time.Duration
	CandidateDelay    time.Duration
	LowQuotaThreshold int

	sleep SleepFunc
	now   func() time.Time
}

// Default returns the policy used when nothing is configured.
func Default() *Policy {
	return New(nil)
}

// New builds a policy from cfg, filling unset fields with defaults.
// A negative MaxRetries disables retries.
func New(cfg *Config) *Policy {
	p := &Policy{
		MaxRetries:        DefaultMaxRetries,
		InitialBackoff:    DefaultInitialBackoff,
		RateLimitFallback: DefaultRateLimitFallback,
		RateLimitMargin:   DefaultRateLimitMargin,
		CandidateDelay:    DefaultCandidateDelay,
		LowQuotaThreshold: DefaultLowQuotaThreshold,
		sleep:             WaitFor,
		now:               time.Now,
	}

	if cfg == nil {
		return p
	}

	switch {
	case cfg.MaxRetries < 0:
		p.MaxRetries = 0
	case cfg.MaxRetries > 0:
		p.MaxRetries = cfg.MaxRetries
	}
	if cfg.InitialBackoff > 0 {
		p.InitialBackoff = cfg.InitialBackoff
	}
	if cfg.RateLimitFallback > 0 {
		p.RateLimitFallback = cfg.RateLimitFallback
	}
	if cfg.RateLimitMargin > 0 {
		p.RateLimitMargin = cfg.RateLimitMargin
	}
	if cfg.CandidateDelay > 0 {
		p.CandidateDelay = cfg.CandidateDelay
	}
	if cfg.LowQuotaThreshold > 0 {
		p.LowQuotaThreshold = cfg.LowQuotaThreshold
	}

	return p
}

// WithSleeper returns a copy of the policy that waits through fn.
func (p *Policy) WithSleeper(fn SleepFunc) *Policy {
	cp := *p
	cp.sleep = fn
	return &cp
}

// WithClock returns a copy of the policy that reads time from now.
func (p *Policy) WithClock(now func() time.Time) *Policy {
	cp := *p
	cp.now = now
	return &cp
}

// Sleep blocks for d unless ctx is done first.
func (p *Policy) Sleep(ctx context.Context, d time.Duration) error {
	if p == nil || p.sleep == nil {
		return WaitFor(ctx, d)
	}
	return p.sleep(ctx, d)
}

func (p *Policy) Now() time.Time {
	if p == nil || p.now == nil {
		return time.Now()
	}
	return p.now()
}

// Backoff returns a fresh retry schedule: InitialBackoff doubling on every
// step, without jitter, exhausted after MaxRetries steps.
func (p *Policy) Backoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialBackoff
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = p.InitialBackoff << max(p.MaxRetries, 0)
	b.MaxElapsedTime = 0
	b.Reset()

	return backoff.WithMaxRetries(b, uint64(max(p.MaxRetries, 0)))
}

// UntilReset returns how long to wait for a rate-limit window that resets at
// the given unix timestamp, including the safety margin. It reports false when
// the reset is already behind us.
func (p *Policy) UntilReset(reset int64) (time.Duration, bool) {
	if reset <= 0 {
		return 0, false
	}

	wait := time.Unix(reset, 0).Add(p.RateLimitMargin).Sub(p.Now())
	if wait <= 0 {
		return 0, false
	}

	return wait, true
}

// BetweenCandidates pauses before the next candidate of a batch.
func (p *Policy) BetweenCandidates(ctx context.Context) error {
	return p.Sleep(ctx, p.CandidateDelay)
}

// WaitFor sleeps for d and returns early with ctx.Err() on cancellation.
func WaitFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
