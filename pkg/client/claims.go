package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	claimmodels "vcanchor/internal/claim/models"
)

func (c *Client) EnsureClaim(ctx context.Context, credID string, singleActive bool) (*claimmodels.ClaimResponse, error) {
	var out claimmodels.ClaimResponse
	req := claimmodels.EnsureClaimRequest{CredentialID: credID, SingleActive: &singleActive}
	if err := c.do(ctx, http.MethodPost, "/claims", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) FramesCount(ctx context.Context, claimID string) (int, error) {
	var out claimmodels.FramesResponse
	path := "/claims/" + url.PathEscape(claimID) + "/qr-embed/frames"
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return 0, err
	}
	return out.FramesCount, nil
}

// Frame returns the PNG for frame index. size 0 keeps the server default.
func (c *Client) Frame(ctx context.Context, claimID string, index, size int) ([]byte, error) {
	query := url.Values{"i": {strconv.Itoa(index)}}
	if size > 0 {
		query.Set("size", strconv.Itoa(size))
	}
	path := "/claims/" + url.PathEscape(claimID) + "/qr-embed/frame"
	img, _, err := c.doRaw(ctx, http.MethodGet, path, query, nil)
	return img, err
}

func (c *Client) Redeem(ctx context.Context, token string) (*claimmodels.RedeemResponse, error) {
	var out claimmodels.RedeemResponse
	if err := c.do(ctx, http.MethodPost, "/claims/redeem", nil, claimmodels.RedeemRequest{Token: token}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
