// Package client is a thin HTTP client for the vcanchor API. Error bodies are
// mapped back to domain errors so callers can branch with dErrors.HasCode
// exactly as the server does.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	dErrors "vcanchor/pkg/domain-errors"
	"vcanchor/pkg/platform/httputil"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "vcanchor-client"
)

// Client calls one vcanchor deployment.
type Client struct {
	baseURL    string
	token      string
	userAgent  string
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient sets a custom HTTP client (for testing).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithToken sets the operator bearer token sent on every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithUserAgent names the calling tool; the server records it on audit events.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  defaultUserAgent,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do sends body as JSON (when non-nil) and decodes a 2xx response into out
// (when non-nil).
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	raw, _, err := c.doRaw(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "decode response")
	}
	return nil
}

func (c *Client) doRaw(ctx context.Context, method, path string, query url.Values, body any) ([]byte, http.Header, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "encode request")
		}
		reader = bytes.NewReader(payload)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, ctxErr
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, nil, dErrors.Wrap(err, dErrors.CodeTimeout, "request timeout")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "execute request")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "read response")
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return raw, resp.Header, nil
	}
	return nil, nil, decodeError(resp.StatusCode, raw)
}

// decodeError rebuilds the domain error from the error body. Bodies that are
// not ours (proxies, timeouts in front of the server) fall back to a code
// derived from the status.
func decodeError(status int, raw []byte) error {
	var body httputil.ErrorResponse
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		msg := body.ErrorDescription
		if msg == "" {
			msg = body.Error
		}
		return dErrors.New(dErrors.Code(body.Error), msg)
	}
	return dErrors.New(statusCode(status), fmt.Sprintf("unexpected status %d", status))
}

func statusCode(status int) dErrors.Code {
	switch status {
	case http.StatusNotFound:
		return dErrors.CodeNotFound
	case http.StatusBadRequest:
		return dErrors.CodeBadRequest
	case http.StatusUnauthorized, http.StatusForbidden:
		return dErrors.CodeUnauthorized
	case http.StatusConflict:
		return dErrors.CodeConflict
	case http.StatusGone:
		return dErrors.CodeExpired
	case http.StatusGatewayTimeout, http.StatusRequestTimeout:
		return dErrors.CodeTimeout
	default:
		return dErrors.CodeInternal
	}
}
