// Package service implements the anchor queue and the batch minter: queueing
// and approval of issued credentials, and the all-or-nothing commitment of
// approved credentials to a chain under one Merkle root.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"vcanchor/internal/anchor/chain"
	"vcanchor/internal/anchor/metrics"
	"vcanchor/internal/anchor/models"
	credmodels "vcanchor/internal/credential/models"
	"vcanchor/internal/platform/tracer"
	"vcanchor/pkg/platform/audit"
	"vcanchor/pkg/platform/tx"
	"vcanchor/pkg/requestcontext"
)

// CredentialStore is the slice of the credential store the anchor lifecycle needs.
// Error contract: FindByID returns sentinel.ErrNotFound; Update returns
// sentinel.ErrConflict when the version is stale.
type CredentialStore interface {
	FindByID(ctx context.Context, id string) (*credmodels.Credential, error)
	Update(ctx context.Context, c *credmodels.Credential) error
	List(ctx context.Context, filter credmodels.ListFilter) ([]*credmodels.Credential, error)
	ClaimForMint(ctx context.Context, sel credmodels.MintSelection) ([]*credmodels.Credential, error)
	ReleaseMint(ctx context.Context, attemptID string) (int, error)
	MarkAnchored(ctx context.Context, attemptID, batchID string) (int, error)
	ReleaseStaleMints(ctx context.Context, cutoff time.Time) ([]string, error)
}

// BatchStore persists immutable anchor batches.
type BatchStore interface {
	Create(ctx context.Context, b *models.AnchorBatch) error
	FindByID(ctx context.Context, id string) (*models.AnchorBatch, error)
	List(ctx context.Context, filter models.BatchFilter) ([]*models.AnchorBatch, error)
}

const (
	defaultCASRetries = 3
	defaultBatchLimit = 50
	maxBatchLimit     = 500
	defaultQueueLimit = 500
)

type Service struct {
	credentials CredentialStore
	batches     BatchStore
	chain       chain.Client
	tx          tx.Runner
	auditor     audit.Emitter
	metrics     *metrics.Metrics
	tracer      tracer.Tracer
	logger      *slog.Logger
	casRetries  int
	newID       func(prefix string) string
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

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

func WithAuditor(a audit.Emitter) Option {
	return func(s *Service) {
		s.auditor = a
	}
}

// WithIDGenerator overrides uuid-based identifiers for attempts and batches.
func WithIDGenerator(fn func(prefix string) string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

func New(credentials CredentialStore, batches BatchStore, chainClient chain.Client, runner tx.Runner, opts ...Option) *Service {
	s := &Service{
		credentials: credentials,
		batches:     batches,
		chain:       chainClient,
		tx:          runner,
		logger:      slog.Default(),
		tracer:      tracer.NewNoop(),
		casRetries:  defaultCASRetries,
		newID:       func(prefix string) string { return prefix + uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) now(ctx context.Context) time.Time {
	return requestcontext.Now(ctx).UTC().Truncate(time.Microsecond)
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
