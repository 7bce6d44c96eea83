package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"vcanchor/internal/anchor/models"
	credmodels "vcanchor/internal/credential/models"
	dErrors "vcanchor/pkg/domain-errors"
	"vcanchor/pkg/platform/httputil"
	"vcanchor/pkg/requestcontext"
)

// Service is the anchor queue and minter surface used over HTTP.
type Service interface {
	Enqueue(ctx context.Context, credID string, mode credmodels.QueueMode) (*credmodels.Credential, error)
	Approve(ctx context.Context, ids []string, mode credmodels.ApprovedMode) (*models.ApproveResult, error)
	RunSingle(ctx context.Context, credID string) (*models.MintResult, error)
	MintBatch(ctx context.Context, mode models.MintMode) (*models.MintResult, error)
	MintSelected(ctx context.Context, ids []string) (*models.MintResult, error)
	ListQueue(ctx context.Context, filter models.QueueFilter) ([]*credmodels.Credential, error)
	ListBatches(ctx context.Context, filter models.BatchFilter) ([]*models.AnchorBatch, error)
	Proof(ctx context.Context, credID string) (*models.InclusionProof, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the operator routes. Callers wrap r with bearer auth.
func (h *Handler) Register(r chi.Router) {
	r.Post("/anchor/now/{credId}", h.handleEnqueue(credmodels.QueueModeNow))
	r.Post("/anchor/batch/{credId}", h.handleEnqueue(credmodels.QueueModeBatch))
	r.Get("/anchor/queue", h.handleListQueue)
	r.Post("/anchor/approve", h.handleApprove)
	r.Post("/anchor/run-single/{credId}", h.handleRunSingle)
	r.Post("/anchor/mint-batch", h.handleMintBatch)
	r.Post("/anchor/mint-selected", h.handleMintSelected)
	r.Get("/anchor/batches", h.handleListBatches)
}

// RegisterPublic mounts routes that need no credentials.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/anchor/credentials/{credId}/proof", h.handleProof)
}

func (h *Handler) handleEnqueue(mode credmodels.QueueMode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		credID := chi.URLParam(r, "credId")
		c, err := h.service.Enqueue(ctx, credID, mode)
		if err != nil {
			h.logFailure(ctx, "enqueue", err, "credential_id", credID, "queue_mode", mode)
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, models.EnqueueResponse{
			CredentialID: c.ID,
			Anchoring:    c.Anchoring.View(),
		})
	}
}

func (h *Handler) handleListQueue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	filter := models.QueueFilter{Mode: credmodels.QueueMode(strings.ToLower(q.Get("mode")))}
	if raw := q.Get("approved"); raw != "" {
		approved, err := strconv.ParseBool(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "approved must be true or false"))
			return
		}
		filter.Approved = &approved
	}
	limit, err := parseLimit(q.Get("limit"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	filter.Limit = limit

	creds, err := h.service.ListQueue(ctx, filter)
	if err != nil {
		h.logFailure(ctx, "list queue", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.NewQueueResponse(creds))
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.ApproveRequest](w, r, h.logger)
	if !ok {
		return
	}
	res, err := h.service.Approve(ctx, req.CredentialIDs, req.ApprovedMode)
	if err != nil {
		h.logFailure(ctx, "approve", err, "count", len(req.CredentialIDs))
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.NewApproveResponse(res))
}

func (h *Handler) handleRunSingle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	credID := chi.URLParam(r, "credId")
	res, err := h.service.RunSingle(ctx, credID)
	if err != nil {
		h.logFailure(ctx, "run single", err, "credential_id", credID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.NewMintResponse(res))
}

// handleMintBatch defaults to mode=all when the query parameter is absent.
func (h *Handler) handleMintBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	mode := models.MintMode(strings.ToLower(r.URL.Query().Get("mode")))
	if mode == "" {
		mode = models.MintModeAll
	}
	res, err := h.service.MintBatch(ctx, mode)
	if err != nil {
		h.logFailure(ctx, "mint batch", err, "mode", mode)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.NewMintResponse(res))
}

func (h *Handler) handleMintSelected(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.MintSelectedRequest](w, r, h.logger)
	if !ok {
		return
	}
	res, err := h.service.MintSelected(ctx, req.CredentialIDs)
	if err != nil {
		h.logFailure(ctx, "mint selected", err, "count", len(req.CredentialIDs))
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.NewMintResponse(res))
}

func (h *Handler) handleListBatches(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	limit, err := parseLimit(q.Get("limit"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	batches, err := h.service.ListBatches(ctx, models.BatchFilter{Limit: limit, ChainID: q.Get("chain_id")})
	if err != nil {
		h.logFailure(ctx, "list batches", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.NewBatchListResponse(batches))
}

func (h *Handler) handleProof(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	credID := chi.URLParam(r, "credId")
	proof, err := h.service.Proof(ctx, credID)
	if err != nil {
		h.logFailure(ctx, "proof", err, "credential_id", credID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.NewProofResponse(proof))
}

// logFailure logs internal errors at error level and lifecycle rejections at warn.
func (h *Handler) logFailure(ctx context.Context, op string, err error, attrs ...any) {
	attrs = append(attrs, "request_id", requestcontext.RequestID(ctx), "error", err)
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, op+" failed", attrs...)
		return
	}
	h.logger.WarnContext(ctx, op+" rejected", attrs...)
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, "limit must be a non-negative integer")
	}
	return n, nil
}
