package models

import (
	"encoding/json"
	"net/url"
	"time"

	credmodels "vcanchor/internal/credential/models"
)

// IDPrefix marks claim ticket identifiers.
const IDPrefix = "clm_"

// ClaimPath is the public landing route for a ticket, relative to the
// service's public base URL.
func ClaimPath(claimID string) string {
	return "/claims/" + url.PathEscape(claimID)
}

// Ticket states reported on the public landing route.
const (
	StateActive   = "active"
	StateConsumed = "consumed"
	StateExpired  = "expired"
)

// Ticket is a single-use capability to redeem one credential. The bearer
// token itself is never stored; TokenHash is the lookup key used at redemption.
type Ticket struct {
	ID           string
	CredentialID string
	TokenHash    string
	ClaimURL     string
	CreatedAt    time.Time
	ExpiresAt    time.Time
	ConsumedAt   *time.Time
}

func (t *Ticket) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

func (t *Ticket) IsConsumed() bool {
	return t.ConsumedAt != nil
}

// State reports the ticket's lifecycle state at now.
func (t *Ticket) State(now time.Time) string {
	switch {
	case t.IsConsumed():
		return StateConsumed
	case t.IsExpired(now):
		return StateExpired
	}
	return StateActive
}

// IsActive reports whether the ticket can still be redeemed at now.
func (t *Ticket) IsActive(now time.Time) bool {
	return !t.IsConsumed() && !t.IsExpired(now)
}

func (t *Ticket) Clone() *Ticket {
	out := *t
	if t.ConsumedAt != nil {
		c := *t.ConsumedAt
		out.ConsumedAt = &c
	}
	return &out
}

// Issued is the result of EnsureClaim: the ticket plus its bearer token.
type Issued struct {
	Ticket *Ticket
	Token  string
	Reused bool
}

// Redemption is the outcome of a successful redemption.
type Redemption struct {
	Ticket     *Ticket
	Credential *credmodels.Credential
}

// Payload is what the QR frame sequence carries: enough for an offline
// device to redeem the credential once it is back online.
type Payload struct {
	Version      int       `json:"v"`
	ClaimID      string    `json:"claim_id"`
	CredentialID string    `json:"credential_id"`
	Token        string    `json:"token"`
	ClaimURL     string    `json:"claim_url"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// PayloadVersion is the current Payload.Version.
const PayloadVersion = 1

// Bytes serializes p deterministically; struct field order fixes key order.
func (p Payload) Bytes() ([]byte, error) {
	return json.Marshal(p)
}

func ParsePayload(b []byte) (Payload, error) {
	var p Payload
	err := json.Unmarshal(b, &p)
	return p, err
}
