package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"vcanchor/internal/credential/models"
	"vcanchor/pkg/platform/httputil"
	"vcanchor/pkg/requestcontext"
)

type Service interface {
	Issue(ctx context.Context, req *models.IssueRequest) (*models.Credential, error)
	Get(ctx context.Context, id string) (*models.Credential, error)
	Revoke(ctx context.Context, id, reason string) (*models.Credential, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the credential registry routes behind operator auth.
func (h *Handler) Register(r chi.Router) {
	r.Post("/credentials", h.handleIssue)
	r.Get("/credentials/{credId}", h.handleGet)
	r.Post("/credentials/{credId}/revoke", h.handleRevoke)
}

func (h *Handler) handleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.IssueRequest](w, r, h.logger)
	if !ok {
		return
	}
	c, err := h.service.Issue(ctx, req)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to issue credential",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, models.NewCredentialResponse(c))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, err := h.service.Get(ctx, chi.URLParam(r, "credId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.NewCredentialResponse(c))
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	credID := chi.URLParam(r, "credId")
	req, ok := httputil.DecodeAndPrepare[models.RevokeRequest](w, r, h.logger)
	if !ok {
		return
	}
	c, err := h.service.Revoke(ctx, credID, req.Reason)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to revoke credential",
			"credential_id", credID,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.NewCredentialResponse(c))
}
