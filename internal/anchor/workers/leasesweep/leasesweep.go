package leasesweep

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// LeaseReleaser returns mint leases taken before cutoff to the approved state.
type LeaseReleaser interface {
	ReleaseStaleLeases(ctx context.Context, cutoff time.Time) ([]string, error)
}

// Sweeper periodically releases mint leases abandoned by crashed or
// timed-out mint attempts so their credentials become selectable again.
type Sweeper struct {
	releaser LeaseReleaser
	interval time.Duration
	leaseTTL time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

type Option func(*Sweeper)

// WithInterval overrides the sweep interval when greater than zero.
func WithInterval(interval time.Duration) Option {
	return func(s *Sweeper) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// WithLeaseTTL overrides how long a lease may be held when greater than zero.
func WithLeaseTTL(ttl time.Duration) Option {
	return func(s *Sweeper) {
		if ttl > 0 {
			s.leaseTTL = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sweeper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func New(releaser LeaseReleaser, opts ...Option) (*Sweeper, error) {
	if releaser == nil {
		return nil, fmt.Errorf("lease releaser is required")
	}
	s := &Sweeper{
		releaser: releaser,
		interval: time.Minute,
		leaseTTL: 10 * time.Minute,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Start sweeps until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.logger.ErrorContext(ctx, "mint lease sweep failed", "error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunOnce releases every lease older than the configured TTL and returns the
// affected credential ids.
func (s *Sweeper) RunOnce(ctx context.Context) ([]string, error) {
	cutoff := s.now().Add(-s.leaseTTL)
	ids, err := s.releaser.ReleaseStaleLeases(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("release stale mint leases: %w", err)
	}
	if len(ids) > 0 {
		s.logger.WarnContext(ctx, "released stale mint leases",
			"count", len(ids),
			"cutoff", cutoff,
		)
	}
	return ids, nil
}
