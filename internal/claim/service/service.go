// Package service issues single-use claim tickets, serves their payload as
// a stateless sequence of QR frames and redeems them exactly once.
package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"

	"vcanchor/internal/claim/metrics"
	"vcanchor/internal/claim/models"
	credmodels "vcanchor/internal/credential/models"
	"vcanchor/pkg/platform/audit"
	platformsync "vcanchor/pkg/platform/sync"
	"vcanchor/pkg/requestcontext"
)

// CredentialStore is the slice of the credential store claims need.
// MarkClaimed returns sentinel.ErrAlreadyUsed when claimed_at is already set.
type CredentialStore interface {
	FindByID(ctx context.Context, id string) (*credmodels.Credential, error)
	MarkClaimed(ctx context.Context, id string, at time.Time) error
}

// TicketStore persists tickets. Create with exclusive set returns
// sentinel.ErrConflict while another active ticket exists for the credential.
type TicketStore interface {
	Create(ctx context.Context, t *models.Ticket, exclusive bool) error
	FindByID(ctx context.Context, id string) (*models.Ticket, error)
	FindActiveByCredential(ctx context.Context, credID string, now time.Time) (*models.Ticket, error)
	FindByTokenHash(ctx context.Context, hash string) (*models.Ticket, error)
	Consume(ctx context.Context, id string, at time.Time) error
	Reopen(ctx context.Context, id string) error
}

// Config carries the claim settings injected from startup configuration.
type Config struct {
	TicketTTL        time.Duration
	DataFrames       int
	ParityFrames     int
	DefaultFrameSize int
	MaxFrameSize     int
	PublicBaseURL    string
	TokenSecret      []byte
}

type Service struct {
	credentials CredentialStore
	tickets     TicketStore
	cfg         Config
	tokenKey    []byte
	locks       *platformsync.ShardedMutex
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

func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

func New(credentials CredentialStore, tickets TicketStore, cfg Config, opts ...Option) *Service {
	if cfg.TicketTTL <= 0 {
		cfg.TicketTTL = 15 * time.Minute
	}
	if cfg.DataFrames <= 0 {
		cfg.DataFrames = 4
	}
	if cfg.ParityFrames < 0 {
		cfg.ParityFrames = 0
	}
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	s := &Service{
		credentials: credentials,
		tickets:     tickets,
		cfg:         cfg,
		tokenKey:    deriveTokenKey(cfg.TokenSecret),
		locks:       platformsync.NewShardedMutex(0),
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

// tokenFor derives the bearer token from the ticket id so it never has to be
// stored: only its hash is persisted, yet a reused ticket can be handed out again.
func (s *Service) tokenFor(claimID string) string {
	mac := hmac.New(sha256.New, s.tokenKey)
	mac.Write([]byte(claimID))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// deriveTokenKey stretches the configured secret into the MAC key used for
// claim tokens, so the raw secret is never used directly as key material.
func deriveTokenKey(secret []byte) []byte {
	key := make([]byte, sha256.Size)
	r := hkdf.New(sha256.New, secret, nil, []byte("vcanchor claim token v1"))
	if _, err := io.ReadFull(r, key); err != nil {
		// hkdf only fails past 255 blocks of output
		panic(err)
	}
	return key
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
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
