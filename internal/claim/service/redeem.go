package service

import (
	"context"
	"crypto/hmac"
	"errors"

	"vcanchor/internal/claim/models"
	dErrors "vcanchor/pkg/domain-errors"
	"vcanchor/pkg/platform/audit"
	"vcanchor/pkg/platform/sentinel"
)

// Redeem consumes the ticket behind token and sets the credential's
// claimed_at. The ticket is consumed first so that concurrent or repeated
// redemptions of one token fail with AlreadyConsumed.
func (s *Service) Redeem(ctx context.Context, token string) (*models.Redemption, error) {
	res, err := s.redeem(ctx, token)
	if s.metrics != nil {
		s.metrics.Redemptions.WithLabelValues(redeemOutcome(err)).Inc()
	}
	return res, err
}

func (s *Service) redeem(ctx context.Context, token string) (*models.Redemption, error) {
	t, err := s.tickets.FindByTokenHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "unknown claim token")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load claim ticket")
	}
	// Tokens minted under a rotated secret no longer match their ticket.
	if !hmac.Equal([]byte(s.tokenFor(t.ID)), []byte(token)) {
		return nil, dErrors.New(dErrors.CodeNotFound, "unknown claim token")
	}
	now := s.now(ctx)
	if t.IsConsumed() {
		return nil, dErrors.New(dErrors.CodeAlreadyConsumed, "claim has already been redeemed")
	}
	if t.IsExpired(now) {
		return nil, dErrors.New(dErrors.CodeExpired, "claim ticket has expired")
	}

	if err := s.tickets.Consume(ctx, t.ID, now); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeAlreadyConsumed, "claim has already been redeemed")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to consume claim ticket")
	}

	if err := s.credentials.MarkClaimed(ctx, t.CredentialID, now); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			// Claimed through another ticket; this one stays consumed.
			return nil, dErrors.New(dErrors.CodeAlreadyClaimed, "credential has already been claimed")
		}
		if rerr := s.tickets.Reopen(context.WithoutCancel(ctx), t.ID); rerr != nil {
			s.logger.ErrorContext(ctx, "failed to reopen claim ticket after credential write failure",
				"claim_id", t.ID,
				"error", rerr,
			)
		}
		return nil, translateCredential(err)
	}

	c, err := s.credentials.FindByID(ctx, t.CredentialID)
	if err != nil {
		return nil, translateCredential(err)
	}
	consumedAt := now
	t.ConsumedAt = &consumedAt

	s.logger.InfoContext(ctx, "claim redeemed",
		"claim_id", t.ID,
		"credential_id", t.CredentialID,
	)
	s.emitAudit(ctx, audit.Event{
		Action:       audit.ActionClaimRedeemed,
		CredentialID: t.CredentialID,
		ResourceID:   t.ID,
	})
	return &models.Redemption{Ticket: t, Credential: c}, nil
}

func redeemOutcome(err error) string {
	if err == nil {
		return "redeemed"
	}
	return string(dErrors.CodeOf(err))
}
