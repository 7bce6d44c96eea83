package models

import (
	"time"

	credmodels "vcanchor/internal/credential/models"
)

type ClaimResponse struct {
	ClaimID   string    `json:"claim_id"`
	Token     string    `json:"token"`
	ClaimURL  string    `json:"claim_url"`
	ExpiresAt time.Time `json:"expires_at"`
	Reused    bool      `json:"reused"`
}

func NewClaimResponse(i *Issued) ClaimResponse {
	return ClaimResponse{
		ClaimID:   i.Ticket.ID,
		Token:     i.Token,
		ClaimURL:  i.Ticket.ClaimURL,
		ExpiresAt: i.Ticket.ExpiresAt,
		Reused:    i.Reused,
	}
}

// ClaimStatusResponse is served at the claim URL. It carries no token: the
// holder gets that from the QR frames or out of band and then redeems.
type ClaimStatusResponse struct {
	ClaimID   string     `json:"claim_id"`
	State     string     `json:"state"`
	ExpiresAt time.Time  `json:"expires_at"`
	ClaimedAt *time.Time `json:"claimed_at,omitempty"`
	FramesURL string     `json:"frames_url,omitempty"`
	RedeemURL string     `json:"redeem_url,omitempty"`
}

func NewClaimStatusResponse(t *Ticket, now time.Time) ClaimStatusResponse {
	resp := ClaimStatusResponse{
		ClaimID:   t.ID,
		State:     t.State(now),
		ExpiresAt: t.ExpiresAt,
		ClaimedAt: t.ConsumedAt,
	}
	if resp.State == StateActive {
		resp.FramesURL = ClaimPath(t.ID) + "/qr-embed/frames"
		resp.RedeemURL = "/claims/redeem"
	}
	return resp
}

type FramesResponse struct {
	FramesCount int `json:"framesCount"`
}

type RedeemResponse struct {
	ClaimID    string                        `json:"claim_id"`
	ClaimedAt  time.Time                     `json:"claimed_at"`
	Credential credmodels.CredentialResponse `json:"credential"`
}

func NewRedeemResponse(r *Redemption) RedeemResponse {
	return RedeemResponse{
		ClaimID:    r.Ticket.ID,
		ClaimedAt:  *r.Ticket.ConsumedAt,
		Credential: credmodels.NewCredentialResponse(r.Credential),
	}
}
