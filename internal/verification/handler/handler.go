package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"vcanchor/internal/verification/models"
	dErrors "vcanchor/pkg/domain-errors"
	"vcanchor/pkg/platform/httputil"
	"vcanchor/pkg/requestcontext"
)

type Service interface {
	Create(ctx context.Context, credID string) (*models.Session, error)
	Begin(ctx context.Context, id string, verifier models.Verifier) (*models.Session, error)
	GetResult(ctx context.Context, id string) (*models.Session, error)
	Present(ctx context.Context, id, credID string, approve bool) (*models.Session, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterPublic mounts the verifier and holder routes. Session ids are
// unguessable and carry no credential data until the holder approves.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/verification/session", h.handleCreate)
	r.Post("/verification/session/{sessionId}/begin", h.handleBegin)
	r.Get("/verification/session/{sessionId}", h.handleGetResult)
	r.Post("/verification/session/{sessionId}/present", h.handlePresent)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	// The credential is optional, so an empty body is accepted.
	req, ok := httputil.DecodeOptionalAndPrepare[models.CreateSessionRequest](w, r, h.logger)
	if !ok {
		return
	}
	session, err := h.service.Create(ctx, req.CredentialID)
	if err != nil {
		h.logFailure(ctx, "failed to create verification session", "", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, models.NewSessionResponse(session))
}

func (h *Handler) handleBegin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "sessionId")
	req, ok := httputil.DecodeAndPrepare[models.BeginRequest](w, r, h.logger)
	if !ok {
		return
	}
	session, err := h.service.Begin(ctx, id, req.Verifier())
	if err != nil {
		h.logFailure(ctx, "failed to begin verification", id, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.NewSessionResponse(session))
}

func (h *Handler) handleGetResult(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.GetResult(r.Context(), chi.URLParam(r, "sessionId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	// Pollers must never see a cached pending result.
	w.Header().Set("Cache-Control", "no-store")
	httputil.WriteJSON(w, http.StatusOK, models.NewSessionResponse(session))
}

func (h *Handler) handlePresent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "sessionId")
	req, ok := httputil.DecodeAndPrepare[models.PresentRequest](w, r, h.logger)
	if !ok {
		return
	}
	session, err := h.service.Present(ctx, id, req.CredentialID, req.Approve)
	if err != nil {
		h.logFailure(ctx, "holder presentation rejected", id, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.NewSessionResponse(session))
}

func (h *Handler) logFailure(ctx context.Context, msg, sessionID string, err error) {
	level := slog.LevelWarn
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, msg,
		"session_id", sessionID,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
}
