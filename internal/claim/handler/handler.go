package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"vcanchor/internal/claim/models"
	dErrors "vcanchor/pkg/domain-errors"
	"vcanchor/pkg/platform/httputil"
	"vcanchor/pkg/requestcontext"
)

type Service interface {
	EnsureClaim(ctx context.Context, credID string, singleActive bool) (*models.Issued, error)
	FramesCount(ctx context.Context, claimID string) (int, error)
	Frame(ctx context.Context, claimID string, index, size int) ([]byte, error)
	Redeem(ctx context.Context, token string) (*models.Redemption, error)
	Lookup(ctx context.Context, claimID string) (*models.Ticket, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts ticket issuance behind operator auth.
func (h *Handler) Register(r chi.Router) {
	r.Post("/claims", h.handleEnsureClaim)
}

// RegisterPublic mounts the claim landing, frame and redemption routes.
// Frames embed the token, so the unguessable claim id is their capability.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/claims/{claimId}", h.handleStatus)
	r.Get("/claims/{claimId}/qr-embed/frames", h.handleFramesCount)
	r.Get("/claims/{claimId}/qr-embed/frame", h.handleFrame)
	r.Post("/claims/redeem", h.handleRedeem)
}

func (h *Handler) handleEnsureClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.EnsureClaimRequest](w, r, h.logger)
	if !ok {
		return
	}
	issued, err := h.service.EnsureClaim(ctx, req.CredentialID, *req.SingleActive)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to ensure claim",
			"credential_id", req.CredentialID,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	status := http.StatusCreated
	if issued.Reused {
		status = http.StatusOK
	}
	httputil.WriteJSON(w, status, models.NewClaimResponse(issued))
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	t, err := h.service.Lookup(ctx, chi.URLParam(r, "claimId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	httputil.WriteJSON(w, http.StatusOK, models.NewClaimStatusResponse(t, requestcontext.Now(ctx)))
}

func (h *Handler) handleFramesCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	n, err := h.service.FramesCount(ctx, chi.URLParam(r, "claimId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.FramesResponse{FramesCount: n})
}

func (h *Handler) handleFrame(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	index, err := strconv.Atoi(q.Get("i"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "i must be a frame index"))
		return
	}
	size := 0
	if raw := q.Get("size"); raw != "" {
		if size, err = strconv.Atoi(raw); err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "size must be an integer"))
			return
		}
	}

	img, err := h.service.Frame(ctx, chi.URLParam(r, "claimId"), index, size)
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "failed to render claim frame",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		httputil.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(len(img)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img)
}

func (h *Handler) handleRedeem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.RedeemRequest](w, r, h.logger)
	if !ok {
		return
	}
	res, err := h.service.Redeem(ctx, req.Token)
	if err != nil {
		h.logger.WarnContext(ctx, "claim redemption rejected",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.NewRedeemResponse(res))
}
