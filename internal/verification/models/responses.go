package models

import "time"

type SessionResponse struct {
	SessionID    string     `json:"session_id"`
	State        State      `json:"state"`
	CredentialID string     `json:"credential_id,omitempty"`
	Verifier     *Verifier  `json:"verifier,omitempty"`
	Result       Result     `json:"result"`
	CreatedAt    time.Time  `json:"created_at"`
	ExpiresAt    time.Time  `json:"expires_at"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
}

func NewSessionResponse(s *Session) SessionResponse {
	return SessionResponse{
		SessionID:    s.ID,
		State:        s.State,
		CredentialID: s.CredentialID,
		Verifier:     s.Verifier,
		Result:       s.CurrentResult(),
		CreatedAt:    s.CreatedAt,
		ExpiresAt:    s.ExpiresAt,
		ResolvedAt:   s.ResolvedAt,
	}
}
