package service

import (
	"context"
	"errors"
	"time"

	credmodels "vcanchor/internal/credential/models"
	"vcanchor/internal/verification/models"
	dErrors "vcanchor/pkg/domain-errors"
	"vcanchor/pkg/platform/sentinel"
)

// evaluate decides the result for an approved presentation. Credentials not
// yet committed on-chain pass softly with not_anchored.
func (s *Service) evaluate(ctx context.Context, credID string, now time.Time) (models.Result, error) {
	c, err := s.credentials.FindByID(ctx, credID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Result{Reason: models.ReasonUnknownCredential}, nil
		}
		return models.Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load credential")
	}
	if c.IsRevoked() {
		return models.Result{Reason: models.ReasonRevoked}, nil
	}
	if c.IsExpired(now) {
		return models.Result{Reason: models.ReasonExpired}, nil
	}
	if c.Anchoring.Status() != credmodels.StatusAnchored {
		return models.Result{Valid: true, Reason: models.ReasonNotAnchored}, nil
	}
	ok, err := s.integrity.IntegrityCheck(ctx, c)
	if err != nil {
		return models.Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check credential integrity")
	}
	if !ok {
		s.logger.WarnContext(ctx, "anchored credential no longer matches its batch",
			"credential_id", credID,
			"batch_id", c.Anchoring.BatchID(),
		)
		return models.Result{Reason: models.ReasonIntegrityMismatch}, nil
	}
	return models.Result{Valid: true, Reason: models.ReasonOK}, nil
}
