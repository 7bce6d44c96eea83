package client

import (
	"context"
	"net/http"
	"net/url"

	credmodels "vcanchor/internal/credential/models"
)

func (c *Client) IssueCredential(ctx context.Context, req credmodels.IssueRequest) (*credmodels.CredentialResponse, error) {
	var out credmodels.CredentialResponse
	if err := c.do(ctx, http.MethodPost, "/credentials", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetCredential(ctx context.Context, credID string) (*credmodels.CredentialResponse, error) {
	var out credmodels.CredentialResponse
	if err := c.do(ctx, http.MethodGet, "/credentials/"+url.PathEscape(credID), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RevokeCredential(ctx context.Context, credID, reason string) (*credmodels.CredentialResponse, error) {
	var out credmodels.CredentialResponse
	path := "/credentials/" + url.PathEscape(credID) + "/revoke"
	if err := c.do(ctx, http.MethodPost, path, nil, credmodels.RevokeRequest{Reason: reason}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
