// Package service registers credentials produced by the external issuance
// flow and manages their revocation. Anchoring and claim sub-state are owned
// by the anchor and claim services.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"vcanchor/internal/credential/models"
	dErrors "vcanchor/pkg/domain-errors"
	"vcanchor/pkg/platform/audit"
	"vcanchor/pkg/platform/sentinel"
	"vcanchor/pkg/requestcontext"
)

// Store is the credential persistence contract used here.
type Store interface {
	Create(ctx context.Context, c *models.Credential) error
	FindByID(ctx context.Context, id string) (*models.Credential, error)
	Revoke(ctx context.Context, id string, at time.Time) error
}

type Service struct {
	store   Store
	auditor audit.Emitter
	logger  *slog.Logger
	newID   func() string
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditor(a audit.Emitter) Option {
	return func(s *Service) {
		s.auditor = a
	}
}

// WithIDGenerator overrides the uuid-based credential id suffix.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.Default(),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue records a new unanchored, unclaimed credential.
func (s *Service) Issue(ctx context.Context, req *models.IssueRequest) (*models.Credential, error) {
	c, err := models.NewCredential(models.IDPrefix+s.newID(), req.TemplateID, req.Subject, requestcontext.Now(ctx), req.ExpiresAt)
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, c); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "credential already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store credential")
	}

	s.logger.InfoContext(ctx, "credential issued",
		"credential_id", c.ID,
		"template_id", c.TemplateID,
	)
	s.emitAudit(ctx, audit.Event{
		Action:       audit.ActionCredentialIssued,
		CredentialID: c.ID,
		Attributes:   map[string]string{"template_id": c.TemplateID},
	})
	return c, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Credential, error) {
	c, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "credential not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load credential")
	}
	return c, nil
}

// Revoke sets revoked_at. Revoking twice keeps the first timestamp.
func (s *Service) Revoke(ctx context.Context, id, reason string) (*models.Credential, error) {
	if err := s.store.Revoke(ctx, id, requestcontext.Now(ctx)); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "credential not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke credential")
	}
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "credential revoked",
		"credential_id", id,
		"reason", reason,
	)
	s.emitAudit(ctx, audit.Event{
		Action:       audit.ActionCredentialRevoked,
		CredentialID: id,
		Attributes:   map[string]string{"reason": reason},
	})
	return c, nil
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
