package service

import (
	"context"
	"errors"
	"slices"

	"vcanchor/internal/anchor/models"
	credmodels "vcanchor/internal/credential/models"
	dErrors "vcanchor/pkg/domain-errors"
	"vcanchor/pkg/platform/audit"
	"vcanchor/pkg/platform/sentinel"
)

// Enqueue requests anchoring of credID with mode. Re-enqueueing moves
// requested_at forward but never regresses an approved credential.
func (s *Service) Enqueue(ctx context.Context, credID string, mode credmodels.QueueMode) (*credmodels.Credential, error) {
	if !mode.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "queue mode must be now or batch")
	}
	for attempt := 0; ; attempt++ {
		c, err := s.credentials.FindByID(ctx, credID)
		if err != nil {
			return nil, translateFind(err)
		}
		next, err := c.Anchoring.Enqueue(mode, s.now(ctx))
		if err != nil {
			return nil, err
		}
		if next == c.Anchoring {
			return c, nil
		}
		c.Anchoring = next
		err = s.credentials.Update(ctx, c)
		if errors.Is(err, sentinel.ErrConflict) && attempt+1 < s.casRetries {
			continue
		}
		if err != nil {
			return nil, translateUpdate(err)
		}

		s.logger.InfoContext(ctx, "credential enqueued for anchoring",
			"credential_id", credID,
			"queue_mode", mode,
			"state", next.Status(),
		)
		s.emitAudit(ctx, audit.Event{
			Action:       audit.ActionAnchorEnqueued,
			CredentialID: credID,
			Outcome:      string(next.Status()),
			Attributes:   map[string]string{"queue_mode": string(mode)},
		})
		if s.metrics != nil {
			s.metrics.Enqueued.WithLabelValues(string(mode)).Inc()
		}
		return c, nil
	}
}

// Approve grants mode to every queued credential in ids. Ids that are absent,
// not queued or lose a concurrent update are reported as skipped.
func (s *Service) Approve(ctx context.Context, ids []string, mode credmodels.ApprovedMode) (*models.ApproveResult, error) {
	if !mode.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "approved mode must be single or batch")
	}
	result := &models.ApproveResult{}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			result.Skipped = append(result.Skipped, models.SkippedItem{CredentialID: id, Reason: models.SkipDuplicateID})
			continue
		}
		seen[id] = struct{}{}

		reason, err := s.approveOne(ctx, id, mode)
		if err != nil {
			return nil, err
		}
		if reason != "" {
			result.Skipped = append(result.Skipped, models.SkippedItem{CredentialID: id, Reason: reason})
			if s.metrics != nil {
				s.metrics.ApproveSkipped.WithLabelValues(reason).Inc()
			}
			continue
		}
		result.Approved = append(result.Approved, id)
	}

	if len(result.Approved) > 0 {
		s.logger.InfoContext(ctx, "credentials approved for minting",
			"approved_mode", mode,
			"approved", len(result.Approved),
			"skipped", len(result.Skipped),
		)
	}
	return result, nil
}

// approveOne returns a skip reason, or "" when the credential was approved.
// Only infrastructure failures are returned as errors.
func (s *Service) approveOne(ctx context.Context, id string, mode credmodels.ApprovedMode) (string, error) {
	for attempt := 0; attempt < s.casRetries; attempt++ {
		c, err := s.credentials.FindByID(ctx, id)
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.SkipNotFound, nil
		}
		if err != nil {
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load credential")
		}
		next, err := c.Anchoring.Approve(mode)
		if err != nil {
			return models.SkipNotQueued, nil
		}
		c.Anchoring = next
		err = s.credentials.Update(ctx, c)
		if errors.Is(err, sentinel.ErrConflict) {
			continue
		}
		if err != nil {
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to approve credential")
		}
		s.emitAudit(ctx, audit.Event{
			Action:       audit.ActionAnchorApproved,
			CredentialID: id,
			Outcome:      string(credmodels.StatusApproved),
			Attributes:   map[string]string{"approved_mode": string(mode)},
		})
		if s.metrics != nil {
			s.metrics.Approved.WithLabelValues(string(mode)).Inc()
		}
		return "", nil
	}
	return models.SkipConflict, nil
}

// ListQueue returns the queue projection: queued, approved and in-flight
// minting credentials, oldest request first.
func (s *Service) ListQueue(ctx context.Context, filter models.QueueFilter) ([]*credmodels.Credential, error) {
	statuses := []credmodels.AnchorStatus{credmodels.StatusQueued, credmodels.StatusApproved, credmodels.StatusMinting}
	if filter.Approved != nil {
		if *filter.Approved {
			statuses = []credmodels.AnchorStatus{credmodels.StatusApproved, credmodels.StatusMinting}
		} else {
			statuses = []credmodels.AnchorStatus{credmodels.StatusQueued}
		}
	}
	if filter.Mode != "" && !filter.Mode.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "mode must be now or batch")
	}
	limit := filter.Limit
	if limit <= 0 || limit > defaultQueueLimit {
		limit = defaultQueueLimit
	}
	creds, err := s.credentials.List(ctx, credmodels.ListFilter{
		Statuses:  statuses,
		QueueMode: filter.Mode,
		Limit:     limit,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list queue")
	}
	return slices.DeleteFunc(creds, func(c *credmodels.Credential) bool { return !c.Anchoring.InQueue() }), nil
}

func translateFind(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "credential not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load credential")
}

func translateUpdate(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "credential not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "credential was modified concurrently")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update credential")
	}
}
