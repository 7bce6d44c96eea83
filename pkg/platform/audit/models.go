package audit

import (
	"context"
	"time"
)

// Action names the lifecycle step an event records.
type Action string

const (
	ActionCredentialIssued     Action = "credential_issued"
	ActionCredentialRevoked    Action = "credential_revoked"
	ActionAnchorEnqueued       Action = "anchor_enqueued"
	ActionAnchorApproved       Action = "anchor_approved"
	ActionBatchMinted          Action = "batch_minted"
	ActionMintFailed           Action = "mint_failed"
	ActionMintLeaseReleased    Action = "mint_lease_released"
	ActionClaimIssued          Action = "claim_issued"
	ActionClaimRedeemed        Action = "claim_redeemed"
	ActionVerificationBegun    Action = "verification_begun"
	ActionVerificationResolved Action = "verification_resolved"
)

// Event is one write-only audit record. It is transport-agnostic so the
// same value can go to the in-memory store or the Kafka sink.
type Event struct {
	Timestamp    time.Time         `json:"timestamp"`
	Action       Action            `json:"action"`
	Actor        string            `json:"actor,omitempty"`
	CredentialID string            `json:"credential_id,omitempty"`
	ResourceID   string            `json:"resource_id,omitempty"`
	Outcome      string            `json:"outcome,omitempty"`
	RequestID    string            `json:"request_id,omitempty"`
	Client       string            `json:"client,omitempty"`
	Attributes   map[string]string `json:"attributes,omitempty"`
}

// Store persists audit events. Implementations must be safe for concurrent use.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Emitter is what domain services depend on. Satisfied by publisher.Publisher.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}
