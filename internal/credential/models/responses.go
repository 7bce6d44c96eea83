package models

import "time"

type CredentialResponse struct {
	ID         string          `json:"id"`
	TemplateID string          `json:"template_id"`
	Subject    map[string]any  `json:"subject"`
	IssuedAt   time.Time       `json:"issued_at"`
	ExpiresAt  *time.Time      `json:"expires_at,omitempty"`
	RevokedAt  *time.Time      `json:"revoked_at,omitempty"`
	ClaimedAt  *time.Time      `json:"claimed_at,omitempty"`
	Anchoring  AnchorStateView `json:"anchoring"`
}

func NewCredentialResponse(c *Credential) CredentialResponse {
	return CredentialResponse{
		ID:         c.ID,
		TemplateID: c.TemplateID,
		Subject:    c.Subject,
		IssuedAt:   c.IssuedAt,
		ExpiresAt:  c.ExpiresAt,
		RevokedAt:  c.RevokedAt,
		ClaimedAt:  c.Claim.ClaimedAt,
		Anchoring:  c.Anchoring.View(),
	}
}
