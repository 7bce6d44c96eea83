// Package cleanup removes expired claim tickets and verification sessions
// from stores that do not expire keys on their own.
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// TicketStore exposes cleanup for expired claim tickets.
type TicketStore interface {
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// SessionStore exposes cleanup for expired verification sessions.
type SessionStore interface {
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// Result summarizes the deletions performed by a cleanup run.
type Result struct {
	DeletedTickets  int
	DeletedSessions int
}

// Service periodically removes expired claim and verification state.
type Service struct {
	tickets  TicketStore
	sessions SessionStore
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

type Option func(*Service)

// WithInterval overrides the cleanup interval when greater than zero.
func WithInterval(interval time.Duration) Option {
	return func(s *Service) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func New(tickets TicketStore, sessions SessionStore, opts ...Option) (*Service, error) {
	if tickets == nil || sessions == nil {
		return nil, fmt.Errorf("ticket and session stores are required")
	}
	svc := &Service{
		tickets:  tickets,
		sessions: sessions,
		interval: time.Minute,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc, nil
}

// Start runs cleanup periodically until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.logger.ErrorContext(ctx, "cleanup failed", "error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunOnce deletes expired tickets and sessions. Both stores are always
// visited; their errors are joined.
func (s *Service) RunOnce(ctx context.Context) (Result, error) {
	now := s.now()
	var res Result
	var errs []error

	deleted, err := s.tickets.DeleteExpired(ctx, now)
	if err != nil {
		errs = append(errs, fmt.Errorf("delete expired claim tickets: %w", err))
	} else {
		res.DeletedTickets = deleted
	}

	deleted, err = s.sessions.DeleteExpired(ctx, now)
	if err != nil {
		errs = append(errs, fmt.Errorf("delete expired verification sessions: %w", err))
	} else {
		res.DeletedSessions = deleted
	}

	if res.DeletedTickets+res.DeletedSessions > 0 {
		s.logger.InfoContext(ctx, "expired state removed",
			"tickets", res.DeletedTickets,
			"sessions", res.DeletedSessions,
		)
	}
	return res, errors.Join(errs...)
}
