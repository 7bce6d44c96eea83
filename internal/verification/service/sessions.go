package service

import (
	"context"
	"errors"
	"strconv"

	"vcanchor/internal/verification/models"
	dErrors "vcanchor/pkg/domain-errors"
	"vcanchor/pkg/platform/audit"
	"vcanchor/pkg/platform/sentinel"
)

// Create opens a session. credID is optional; the holder may supply it when
// presenting.
func (s *Service) Create(ctx context.Context, credID string) (*models.Session, error) {
	session := models.NewSession(models.IDPrefix+s.newID(), credID, s.now(ctx), s.cfg.SessionTTL)
	if err := s.sessions.Create(ctx, session); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "verification session already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store verification session")
	}
	if s.metrics != nil {
		s.metrics.SessionsCreated.Inc()
	}
	s.logger.InfoContext(ctx, "verification session created",
		"session_id", session.ID,
		"credential_id", credID,
	)
	return session, nil
}

// Begin moves a created session to awaiting_holder and asks the holder for
// consent. A failed notification is logged, not returned: the holder can
// still answer through the HTTP present route.
func (s *Service) Begin(ctx context.Context, id string, verifier models.Verifier) (*models.Session, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now(ctx)
	if session.State == models.StateCreated && session.IsExpired(now) {
		return nil, dErrors.New(dErrors.CodeExpired, "verification session has expired")
	}
	if err := session.Begin(verifier, now); err != nil {
		return nil, err
	}
	if err := s.sessions.Update(ctx, session); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeInvalidState, "verification session already begun")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store verification session")
	}

	if s.notifier != nil {
		err := s.notifier.NotifyHolder(ctx, models.HolderRequest{
			SessionID:    session.ID,
			CredentialID: session.CredentialID,
			Verifier:     verifier,
			RequestedAt:  now,
			ExpiresAt:    session.ExpiresAt,
		})
		if err != nil {
			if s.metrics != nil {
				s.metrics.NotifyFailures.Inc()
			}
			s.logger.WarnContext(ctx, "failed to notify holder",
				"session_id", session.ID,
				"error", err,
			)
		}
	}

	if s.metrics != nil {
		s.metrics.SessionsBegun.Inc()
	}
	s.logger.InfoContext(ctx, "verification begun",
		"session_id", session.ID,
		"verifier_org", verifier.Org,
	)
	s.emitAudit(ctx, audit.Event{
		Action:       audit.ActionVerificationBegun,
		Actor:        verifier.Org,
		CredentialID: session.CredentialID,
		ResourceID:   session.ID,
		Attributes:   map[string]string{"purpose": verifier.Purpose},
	})
	return session, nil
}

// GetResult is a pure read; unresolved sessions report the pending result.
func (s *Service) GetResult(ctx context.Context, id string) (*models.Session, error) {
	return s.load(ctx, id)
}

// Present applies the holder's answer. A declined request resolves without
// looking at the credential; an approved one is checked against the
// credential store and, once anchored, against its batch commitment.
func (s *Service) Present(ctx context.Context, id, credID string, approve bool) (*models.Session, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now(ctx)
	switch session.State {
	case models.StateCreated:
		return nil, dErrors.New(dErrors.CodeInvalidState, "verification session has not begun")
	case models.StateResolved:
		return nil, dErrors.New(dErrors.CodeInvalidState, "verification session already resolved")
	}
	if session.IsExpired(now) {
		return nil, dErrors.New(dErrors.CodeExpired, "verification session has expired")
	}

	switch {
	case credID == "":
		credID = session.CredentialID
	case session.CredentialID != "" && credID != session.CredentialID:
		return nil, dErrors.New(dErrors.CodeBadRequest, "presented credential does not match the requested one")
	}

	result := models.Result{Reason: models.ReasonHolderDeclined}
	if approve {
		if credID == "" {
			return nil, dErrors.New(dErrors.CodeValidation, "credential_id is required")
		}
		if result, err = s.evaluate(ctx, credID, now); err != nil {
			return nil, err
		}
	}

	if err := session.Resolve(credID, result, now); err != nil {
		return nil, err
	}
	if err := s.sessions.Update(ctx, session); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeInvalidState, "verification session already resolved")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store verification session")
	}

	if s.metrics != nil {
		s.metrics.Resolutions.WithLabelValues(string(result.Reason)).Inc()
		if session.BegunAt != nil {
			s.metrics.TimeToResolve.Observe(now.Sub(*session.BegunAt).Seconds())
		}
	}
	s.logger.InfoContext(ctx, "verification resolved",
		"session_id", session.ID,
		"credential_id", credID,
		"valid", result.Valid,
		"reason", result.Reason,
	)
	s.emitAudit(ctx, audit.Event{
		Action:       audit.ActionVerificationResolved,
		CredentialID: credID,
		ResourceID:   session.ID,
		Outcome:      string(result.Reason),
		Attributes:   map[string]string{"valid": strconv.FormatBool(result.Valid)},
	})
	return session, nil
}
