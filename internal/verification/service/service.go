// Package service runs the verifier/holder handshake. The server never
// waits on a holder: Begin returns once the request is published and
// GetResult is a plain read that callers poll.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	credmodels "vcanchor/internal/credential/models"
	"vcanchor/internal/verification/metrics"
	"vcanchor/internal/verification/models"
	dErrors "vcanchor/pkg/domain-errors"
	"vcanchor/pkg/platform/audit"
	"vcanchor/pkg/platform/sentinel"
	"vcanchor/pkg/requestcontext"
)

type CredentialStore interface {
	FindByID(ctx context.Context, id string) (*credmodels.Credential, error)
}

// IntegrityChecker confirms an anchored credential still matches the leaf
// its batch committed to.
type IntegrityChecker interface {
	IntegrityCheck(ctx context.Context, c *credmodels.Credential) (bool, error)
}

// SessionStore persists sessions. Update returns sentinel.ErrConflict when
// the stored Version moved since the session was read.
type SessionStore interface {
	Create(ctx context.Context, s *models.Session) error
	FindByID(ctx context.Context, id string) (*models.Session, error)
	Update(ctx context.Context, s *models.Session) error
}

// Notifier delivers the consent request to the holder's device.
type Notifier interface {
	NotifyHolder(ctx context.Context, req models.HolderRequest) error
}

type Config struct {
	SessionTTL time.Duration
}

type Service struct {
	sessions    SessionStore
	credentials CredentialStore
	integrity   IntegrityChecker
	notifier    Notifier
	cfg         Config
	auditor     audit.Emitter
	metrics     *metrics.Metrics
	logger      *slog.Logger
	newID       func() string
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditor(a audit.Emitter) Option {
	return func(s *Service) {
		s.auditor = a
	}
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

func New(sessions SessionStore, credentials CredentialStore, integrity IntegrityChecker, cfg Config, opts ...Option) *Service {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	s := &Service{
		sessions:    sessions,
		credentials: credentials,
		integrity:   integrity,
		cfg:         cfg,
		logger:      slog.Default(),
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) now(ctx context.Context) time.Time {
	return requestcontext.Now(ctx).UTC().Truncate(time.Microsecond)
}

func (s *Service) load(ctx context.Context, id string) (*models.Session, error) {
	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "verification session not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification session")
	}
	return session, nil
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"error", err,
		)
	}
}
