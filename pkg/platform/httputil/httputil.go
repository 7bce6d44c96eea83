package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "vcanchor/pkg/domain-errors"
)

// ErrorResponse is the JSON body written for every failed request.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; an encoding failure cannot change the status.
	_ = json.NewEncoder(w).Encode(response)
}

// RetryAfterSeconds is advertised on failures a client may retry unchanged.
const RetryAfterSeconds = "5"

// WriteError translates a domain error into an HTTP status and a stable
// error string. Lifecycle codes are surfaced verbatim so clients can branch
// on them without parsing messages.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		resp := ErrorResponse{Error: string(domainErr.Code)}
		if domainErr.Code != dErrors.CodeInternal {
			resp.ErrorDescription = domainErr.Message
		}
		if dErrors.IsRetryable(err) {
			w.Header().Set("Retry-After", RetryAfterSeconds)
		}
		WriteJSON(w, DomainCodeToHTTPStatus(domainErr.Code), resp)
		return
	}

	WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: string(dErrors.CodeInternal)})
}

// DomainCodeToHTTPStatus translates domain error codes to HTTP status codes.
func DomainCodeToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeBadRequest, dErrors.CodeValidation:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeConflict,
		dErrors.CodeInvalidState,
		dErrors.CodeAlreadyAnchored,
		dErrors.CodeAlreadyClaimed,
		dErrors.CodeAlreadyConsumed,
		dErrors.CodeNotApprovedForSingle:
		return http.StatusConflict
	case dErrors.CodeExpired:
		return http.StatusGone
	case dErrors.CodeChainSubmissionFailed:
		return http.StatusBadGateway
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
