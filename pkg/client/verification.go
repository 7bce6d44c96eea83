package client

import (
	"context"
	"net/http"
	"net/url"

	"vcanchor/internal/verification/models"
)

func sessionPath(sessionID string) string {
	return "/verification/session/" + url.PathEscape(sessionID)
}

func (c *Client) CreateSession(ctx context.Context, credID string) (*models.SessionResponse, error) {
	var out models.SessionResponse
	var body any
	if credID != "" {
		body = models.CreateSessionRequest{CredentialID: credID}
	}
	if err := c.do(ctx, http.MethodPost, "/verification/session", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) BeginSession(ctx context.Context, sessionID string, req models.BeginRequest) (*models.SessionResponse, error) {
	var out models.SessionResponse
	if err := c.do(ctx, http.MethodPost, sessionPath(sessionID)+"/begin", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Session(ctx context.Context, sessionID string) (*models.SessionResponse, error) {
	var out models.SessionResponse
	if err := c.do(ctx, http.MethodGet, sessionPath(sessionID), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetResult satisfies poller.ResultFetcher.
func (c *Client) GetResult(ctx context.Context, sessionID string) (models.Result, error) {
	s, err := c.Session(ctx, sessionID)
	if err != nil {
		return models.Result{}, err
	}
	return s.Result, nil
}

func (c *Client) Present(ctx context.Context, sessionID, credID string, approve bool) (*models.SessionResponse, error) {
	var out models.SessionResponse
	req := models.PresentRequest{CredentialID: credID, Approve: approve}
	if err := c.do(ctx, http.MethodPost, sessionPath(sessionID)+"/present", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
