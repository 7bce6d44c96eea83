package models

import (
	"encoding/json"
	"strings"
	"time"

	dErrors "vcanchor/pkg/domain-errors"
)

// IDPrefix marks credential identifiers.
const IDPrefix = "vc_"

// Credential is an issued VC together with its anchoring and claim sub-state.
// Only the credential store constructs rows; other components mutate
// Anchoring and Claim through their own operations.
type Credential struct {
	ID         string
	TemplateID string
	Subject    map[string]any
	IssuedAt   time.Time
	ExpiresAt  *time.Time
	RevokedAt  *time.Time
	Anchoring  AnchorState
	Claim      ClaimState
	// Version increments on every write and guards compare-and-set updates.
	Version int64
}

// ClaimState tracks single-use delivery of the credential to its holder.
type ClaimState struct {
	ClaimedAt *time.Time
}

// NewCredential creates an unanchored, unclaimed Credential with invariant checks.
func NewCredential(credID, templateID string, subject map[string]any, issuedAt time.Time, expiresAt *time.Time) (*Credential, error) {
	if !strings.HasPrefix(credID, IDPrefix) {
		return nil, dErrors.New(dErrors.CodeValidation, "credential id must start with "+IDPrefix)
	}
	if strings.TrimSpace(templateID) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "template id required")
	}
	if len(subject) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "subject payload required")
	}
	if issuedAt.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "issue time required")
	}
	if expiresAt != nil && !expiresAt.After(issuedAt) {
		return nil, dErrors.New(dErrors.CodeValidation, "expiry must be after issue time")
	}
	if expiresAt != nil {
		t := expiresAt.UTC().Truncate(time.Microsecond)
		expiresAt = &t
	}
	return &Credential{
		ID:         credID,
		TemplateID: templateID,
		Subject:    subject,
		// PostgreSQL keeps microseconds; truncating keeps canonical bytes stable across stores.
		IssuedAt:  issuedAt.UTC().Truncate(time.Microsecond),
		ExpiresAt: expiresAt,
		Anchoring: Unanchored(),
	}, nil
}

func (c *Credential) IsRevoked() bool {
	return c.RevokedAt != nil
}

func (c *Credential) IsExpired(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(*c.ExpiresAt)
}

func (c *Credential) IsClaimed() bool {
	return c.Claim.ClaimedAt != nil
}

// MarkClaimed sets claimed_at once. A second call fails with AlreadyClaimed.
func (c *Credential) MarkClaimed(now time.Time) error {
	if c.IsClaimed() {
		return dErrors.New(dErrors.CodeAlreadyClaimed, "credential has already been claimed")
	}
	t := now.UTC().Truncate(time.Microsecond)
	c.Claim.ClaimedAt = &t
	return nil
}

// Clone returns a deep copy safe to hand out of a store.
func (c *Credential) Clone() *Credential {
	out := *c
	out.Subject = cloneMap(c.Subject)
	if c.ExpiresAt != nil {
		t := *c.ExpiresAt
		out.ExpiresAt = &t
	}
	if c.RevokedAt != nil {
		t := *c.RevokedAt
		out.RevokedAt = &t
	}
	if c.Claim.ClaimedAt != nil {
		t := *c.Claim.ClaimedAt
		out.Claim.ClaimedAt = &t
	}
	return &out
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]any); ok {
			out[k] = cloneMap(nested)
			continue
		}
		out[k] = v
	}
	return out
}

type canonicalCredential struct {
	ID         string         `json:"id"`
	TemplateID string         `json:"template_id"`
	Subject    map[string]any `json:"subject"`
	IssuedAt   string         `json:"issued_at"`
	ExpiresAt  string         `json:"expires_at,omitempty"`
}

// CanonicalBytes serializes the immutable, signed content of the credential:
// fixed field order, sorted subject keys, RFC 3339 UTC timestamps. Anchoring,
// claim and revocation state are excluded so lifecycle changes never alter
// the anchored digest.
func (c *Credential) CanonicalBytes() ([]byte, error) {
	cc := canonicalCredential{
		ID:         c.ID,
		TemplateID: c.TemplateID,
		Subject:    c.Subject,
		IssuedAt:   c.IssuedAt.UTC().Format(time.RFC3339Nano),
	}
	if c.ExpiresAt != nil {
		cc.ExpiresAt = c.ExpiresAt.UTC().Format(time.RFC3339Nano)
	}
	b, err := json.Marshal(cc)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "canonicalize credential")
	}
	return b, nil
}
