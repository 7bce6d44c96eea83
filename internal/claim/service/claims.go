package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"vcanchor/internal/claim/models"
	credmodels "vcanchor/internal/credential/models"
	dErrors "vcanchor/pkg/domain-errors"
	"vcanchor/pkg/platform/audit"
	"vcanchor/pkg/platform/sentinel"
)

// EnsureClaim returns a claim ticket for credID. With singleActive an active
// ticket is handed out again (Reused) instead of minting a second one.
func (s *Service) EnsureClaim(ctx context.Context, credID string, singleActive bool) (*models.Issued, error) {
	c, err := s.credentials.FindByID(ctx, credID)
	if err != nil {
		return nil, translateCredential(err)
	}
	now := s.now(ctx)
	if err := claimable(c, now); err != nil {
		return nil, err
	}

	var issued *models.Issued
	err = s.locks.WithLock(credID, func() error {
		if singleActive {
			existing, err := s.activeTicket(ctx, credID)
			if err != nil {
				return err
			}
			if existing != nil {
				issued = s.reuse(existing)
				return nil
			}
		}

		t := s.newTicket(credID, now)
		err := s.tickets.Create(ctx, t, singleActive)
		if errors.Is(err, sentinel.ErrConflict) && singleActive {
			// Another instance created one between our read and write.
			existing, ferr := s.activeTicket(ctx, credID)
			if ferr != nil {
				return ferr
			}
			if existing == nil {
				return dErrors.New(dErrors.CodeConflict, "claim ticket changed concurrently, retry")
			}
			issued = s.reuse(existing)
			return nil
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store claim ticket")
		}
		issued = &models.Issued{Ticket: t, Token: s.tokenFor(t.ID)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.TicketsIssued.WithLabelValues(strconv.FormatBool(issued.Reused)).Inc()
	}
	if !issued.Reused {
		s.logger.InfoContext(ctx, "claim ticket issued",
			"claim_id", issued.Ticket.ID,
			"credential_id", credID,
			"expires_at", issued.Ticket.ExpiresAt,
		)
		s.emitAudit(ctx, audit.Event{
			Action:       audit.ActionClaimIssued,
			CredentialID: credID,
			ResourceID:   issued.Ticket.ID,
		})
	}
	return issued, nil
}

func (s *Service) activeTicket(ctx context.Context, credID string) (*models.Ticket, error) {
	t, err := s.tickets.FindActiveByCredential(ctx, credID, s.now(ctx))
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up active claim ticket")
	}
	return t, nil
}

func (s *Service) reuse(t *models.Ticket) *models.Issued {
	return &models.Issued{Ticket: t, Token: s.tokenFor(t.ID), Reused: true}
}

func (s *Service) newTicket(credID string, now time.Time) *models.Ticket {
	id := models.IDPrefix + s.newID()
	token := s.tokenFor(id)
	return &models.Ticket{
		ID:           id,
		CredentialID: credID,
		TokenHash:    hashToken(token),
		ClaimURL:     s.cfg.PublicBaseURL + models.ClaimPath(id),
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.cfg.TicketTTL),
	}
}

// Lookup returns the ticket behind a claim URL. Consumed and expired tickets
// are returned too; the caller reports their state rather than an error.
func (s *Service) Lookup(ctx context.Context, claimID string) (*models.Ticket, error) {
	return s.ticket(ctx, claimID)
}

func (s *Service) ticket(ctx context.Context, claimID string) (*models.Ticket, error) {
	t, err := s.tickets.FindByID(ctx, claimID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "claim not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load claim ticket")
	}
	return t, nil
}

// claimable rejects credentials a holder can no longer take delivery of.
func claimable(c *credmodels.Credential, now time.Time) error {
	switch {
	case c.IsClaimed():
		return dErrors.New(dErrors.CodeAlreadyClaimed, "credential has already been claimed")
	case c.IsRevoked():
		return dErrors.New(dErrors.CodeInvalidState, "credential is revoked")
	case c.IsExpired(now):
		return dErrors.New(dErrors.CodeExpired, "credential has expired")
	}
	return nil
}

func translateCredential(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "credential not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load credential")
}
