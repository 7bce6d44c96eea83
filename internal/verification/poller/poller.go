// Package poller is the caller-side wait for a holder's answer. It polls
// GetResult at a fixed cadence and gives up after a budget by synthesizing
// timeout_waiting_for_holder; the session itself is left untouched.
package poller

import (
	"context"
	"log/slog"
	"time"

	"vcanchor/internal/verification/models"
	dErrors "vcanchor/pkg/domain-errors"
)

const (
	DefaultInterval = 800 * time.Millisecond
	DefaultBudget   = 120 * time.Second
)

// ResultFetcher reads the current result of a session.
type ResultFetcher interface {
	GetResult(ctx context.Context, sessionID string) (models.Result, error)
}

type Poller struct {
	fetcher   ResultFetcher
	interval  time.Duration
	budget    time.Duration
	onPending func(attempt int, elapsed time.Duration)
	logger    *slog.Logger
}

type Option func(*Poller)

func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

func WithBudget(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.budget = d
		}
	}
}

// WithOnPending registers a callback run after every pending read, e.g. to
// render progress.
func WithOnPending(fn func(attempt int, elapsed time.Duration)) Option {
	return func(p *Poller) {
		p.onPending = fn
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Poller) {
		p.logger = logger
	}
}

func New(fetcher ResultFetcher, opts ...Option) *Poller {
	p := &Poller{
		fetcher:  fetcher,
		interval: DefaultInterval,
		budget:   DefaultBudget,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Wait polls until the session resolves, the budget runs out or ctx is
// canceled. Pending reads and transient fetch errors are retried; only
// errors that cannot change on retry end the wait early.
func (p *Poller) Wait(ctx context.Context, sessionID string) (models.Result, error) {
	start := time.Now()
	deadline := time.NewTimer(p.budget)
	defer deadline.Stop()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		result, err := p.fetcher.GetResult(ctx, sessionID)
		switch {
		case err == nil && !result.IsPending():
			return result, nil
		case err != nil && ctx.Err() != nil:
			return models.Result{}, ctx.Err()
		case err != nil && permanent(err):
			return models.Result{}, err
		case err != nil:
			p.logger.WarnContext(ctx, "verification poll failed, retrying",
				"session_id", sessionID,
				"attempt", attempt,
				"error", err,
			)
		case p.onPending != nil:
			p.onPending(attempt, time.Since(start))
		}

		select {
		case <-ctx.Done():
			return models.Result{}, ctx.Err()
		case <-deadline.C:
			p.logger.InfoContext(ctx, "gave up waiting for holder",
				"session_id", sessionID,
				"attempts", attempt,
				"budget", p.budget,
			)
			return models.Result{Reason: models.ReasonTimeout}, nil
		case <-ticker.C:
		}
	}
}

func permanent(err error) bool {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeNotFound, dErrors.CodeBadRequest, dErrors.CodeValidation,
		dErrors.CodeUnauthorized, dErrors.CodeExpired:
		return true
	}
	return false
}
