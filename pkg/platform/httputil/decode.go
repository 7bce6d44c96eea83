package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	dErrors "vcanchor/pkg/domain-errors"
	"vcanchor/pkg/requestcontext"
)

const maxBodyBytes = 1 << 20

// DecodeJSON decodes a JSON request body into the target type.
// On failure it writes a bad_request response and returns nil, false.
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*T, bool) {
	return decodeJSON[T](w, r, logger, false)
}

func decodeJSON[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, optional bool) (*T, bool) {
	var req T
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(body).Decode(&req)
	if optional && errors.Is(err, io.EOF) {
		// Content-Length is -1 for chunked bodies, so emptiness is only
		// known once the decoder hits EOF.
		err = nil
	}
	if err != nil {
		ctx := r.Context()
		logger.WarnContext(ctx, "failed to decode request body",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return nil, false
	}
	return &req, true
}

// Validatable is implemented by request types that support validation.
type Validatable interface {
	Validate() error
}

// Normalizable is implemented by request types that support normalization.
type Normalizable interface {
	Normalize()
}

// PrepareRequest normalizes and validates a request.
func PrepareRequest(req any) error {
	if n, ok := req.(Normalizable); ok {
		n.Normalize()
	}
	if v, ok := req.(Validatable); ok {
		return v.Validate()
	}
	return nil
}

// DecodeAndPrepare decodes the JSON body, then calls Normalize() and
// Validate() when the target type implements them.
//
//	req, ok := httputil.DecodeAndPrepare[models.ApproveRequest](w, r, h.logger)
//	if !ok {
//	    return
//	}
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*T, bool) {
	return decodeAndPrepare[T](w, r, logger, false)
}

// DecodeOptionalAndPrepare is DecodeAndPrepare for endpoints whose body may
// be omitted entirely: an empty body yields the zero request, which is still
// normalized and validated.
func DecodeOptionalAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*T, bool) {
	return decodeAndPrepare[T](w, r, logger, true)
}

func decodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, optional bool) (*T, bool) {
	req, ok := decodeJSON[T](w, r, logger, optional)
	if !ok {
		return nil, false
	}

	if err := PrepareRequest(req); err != nil {
		ctx := r.Context()
		logger.WarnContext(ctx, "invalid request",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		var domainErr *dErrors.Error
		if errors.As(err, &domainErr) {
			WriteError(w, err)
		} else {
			WriteError(w, dErrors.New(dErrors.CodeValidation, err.Error()))
		}
		return nil, false
	}

	return req, true
}
