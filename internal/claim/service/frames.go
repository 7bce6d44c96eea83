package service

import (
	"context"
	"time"

	"vcanchor/internal/claim/framecodec"
	"vcanchor/internal/claim/models"
	dErrors "vcanchor/pkg/domain-errors"
)

// FramesCount reports how many frames the ticket's payload spans, parity included.
func (s *Service) FramesCount(ctx context.Context, claimID string) (int, error) {
	frames, err := s.frames(ctx, claimID)
	if err != nil {
		return 0, err
	}
	return len(frames), nil
}

// Frame renders frame index of the ticket's sequence as a PNG of size pixels.
// The output depends only on (claimID, index, size), so any frame can be
// redrawn in any order without server-side session state.
func (s *Service) Frame(ctx context.Context, claimID string, index, size int) ([]byte, error) {
	frames, err := s.frames(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(frames) {
		return nil, dErrors.New(dErrors.CodeBadRequest, "frame index out of range")
	}

	start := time.Now()
	img, err := framecodec.Render(frames[index], framecodec.ClampSize(size, s.cfg.DefaultFrameSize, s.cfg.MaxFrameSize))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to render frame")
	}
	if s.metrics != nil {
		s.metrics.FramesRendered.Inc()
		s.metrics.RenderDuration.Observe(time.Since(start).Seconds())
	}
	return img, nil
}

func (s *Service) frames(ctx context.Context, claimID string) ([]framecodec.Frame, error) {
	t, err := s.ticket(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if t.IsConsumed() {
		return nil, dErrors.New(dErrors.CodeAlreadyConsumed, "claim has already been redeemed")
	}
	if t.IsExpired(s.now(ctx)) {
		return nil, dErrors.New(dErrors.CodeExpired, "claim ticket has expired")
	}

	payload, err := models.Payload{
		Version:      models.PayloadVersion,
		ClaimID:      t.ID,
		CredentialID: t.CredentialID,
		Token:        s.tokenFor(t.ID),
		ClaimURL:     t.ClaimURL,
		ExpiresAt:    t.ExpiresAt,
	}.Bytes()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode claim payload")
	}
	frames, err := framecodec.Split(payload, s.cfg.DataFrames, s.cfg.ParityFrames)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to split claim payload")
	}
	return frames, nil
}
