package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	anchormodels "vcanchor/internal/anchor/models"
	credmodels "vcanchor/internal/credential/models"
)

// QueueQuery filters the anchor queue listing. Zero values are omitted.
type QueueQuery struct {
	Mode     credmodels.QueueMode
	Approved *bool
	Limit    int
}

func (c *Client) Enqueue(ctx context.Context, credID string, mode credmodels.QueueMode) (*anchormodels.EnqueueResponse, error) {
	var out anchormodels.EnqueueResponse
	path := "/anchor/" + url.PathEscape(string(mode)) + "/" + url.PathEscape(credID)
	if err := c.do(ctx, http.MethodPost, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Queue(ctx context.Context, q QueueQuery) (*anchormodels.QueueResponse, error) {
	query := url.Values{}
	if q.Mode != "" {
		query.Set("mode", string(q.Mode))
	}
	if q.Approved != nil {
		query.Set("approved", strconv.FormatBool(*q.Approved))
	}
	if q.Limit > 0 {
		query.Set("limit", strconv.Itoa(q.Limit))
	}
	var out anchormodels.QueueResponse
	if err := c.do(ctx, http.MethodGet, "/anchor/queue", query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Approve(ctx context.Context, credIDs []string, mode credmodels.ApprovedMode) (*anchormodels.ApproveResponse, error) {
	var out anchormodels.ApproveResponse
	req := anchormodels.ApproveRequest{CredentialIDs: credIDs, ApprovedMode: mode}
	if err := c.do(ctx, http.MethodPost, "/anchor/approve", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RunSingle(ctx context.Context, credID string) (*anchormodels.MintResponse, error) {
	var out anchormodels.MintResponse
	if err := c.do(ctx, http.MethodPost, "/anchor/run-single/"+url.PathEscape(credID), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) MintBatch(ctx context.Context, mode anchormodels.MintMode) (*anchormodels.MintResponse, error) {
	query := url.Values{}
	if mode != "" {
		query.Set("mode", string(mode))
	}
	var out anchormodels.MintResponse
	if err := c.do(ctx, http.MethodPost, "/anchor/mint-batch", query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) MintSelected(ctx context.Context, credIDs []string) (*anchormodels.MintResponse, error) {
	var out anchormodels.MintResponse
	req := anchormodels.MintSelectedRequest{CredentialIDs: credIDs}
	if err := c.do(ctx, http.MethodPost, "/anchor/mint-selected", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Batches(ctx context.Context, limit int) (*anchormodels.BatchListResponse, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var out anchormodels.BatchListResponse
	if err := c.do(ctx, http.MethodGet, "/anchor/batches", query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Proof(ctx context.Context, credID string) (*anchormodels.ProofResponse, error) {
	var out anchormodels.ProofResponse
	path := "/anchor/credentials/" + url.PathEscape(credID) + "/proof"
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
