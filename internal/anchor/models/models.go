package models

import (
	"encoding/hex"
	"time"

	credmodels "vcanchor/internal/credential/models"
)

// BatchIDPrefix prefixes every AnchorBatch identifier.
const BatchIDPrefix = "batch_"

// AnchorBatch is the immutable record of one chain transaction carrying a
// Merkle root over its members' content digests.
type AnchorBatch struct {
	ID          string
	MerkleRoot  [32]byte
	RootCID     string
	TxHash      string
	ChainID     string
	AnchoredAt  time.Time
	MemberCount int
	Members     []Member
}

// Member is one leaf of a batch. LeafIndex is the position in the sorted leaf list.
type Member struct {
	CredentialID string
	LeafIndex    int
	Digest       [32]byte
}

// MemberIDs returns the member credential IDs in leaf order.
func (b *AnchorBatch) MemberIDs() []string {
	ids := make([]string, len(b.Members))
	for i, m := range b.Members {
		ids[i] = m.CredentialID
	}
	return ids
}

// Member returns the member entry for credID.
func (b *AnchorBatch) Member(credID string) (Member, bool) {
	for _, m := range b.Members {
		if m.CredentialID == credID {
			return m, true
		}
	}
	return Member{}, false
}

// MintMode selects which approved credentials MintBatch picks up.
type MintMode string

const (
	MintModeNow   MintMode = "now"
	MintModeBatch MintMode = "batch"
	MintModeAll   MintMode = "all"
)

func (m MintMode) IsValid() bool {
	return m == MintModeNow || m == MintModeBatch || m == MintModeAll
}

// QueueMode maps the mint mode onto the credential queue mode filter.
// MintModeAll matches every queue mode.
func (m MintMode) QueueMode() credmodels.QueueMode {
	switch m {
	case MintModeNow:
		return credmodels.QueueModeNow
	case MintModeBatch:
		return credmodels.QueueModeBatch
	default:
		return ""
	}
}

// QueueFilter narrows ListQueue. A nil Approved returns both queued and approved.
type QueueFilter struct {
	Mode     credmodels.QueueMode
	Approved *bool
	Limit    int
}

// BatchFilter narrows ListBatches.
type BatchFilter struct {
	Limit   int
	ChainID string
}

// SkippedItem reports why a bulk operation left one credential untouched.
type SkippedItem struct {
	CredentialID string `json:"credential_id"`
	Reason       string `json:"reason"`
}

// Skip reasons reported by Approve.
const (
	SkipNotFound    = "not_found"
	SkipNotQueued   = "not_queued"
	SkipConflict    = "conflict"
	SkipDuplicateID = "duplicate"
)

// ApproveResult is the partial-success outcome of Approve.
type ApproveResult struct {
	Approved []string
	Skipped  []SkippedItem
}

// MintResult is the outcome of a mint. Batch is nil for an empty selection.
// Skipped lists requested ids that were not eligible, for MintSelected.
type MintResult struct {
	Batch   *AnchorBatch
	Skipped []SkippedItem
}

// Empty reports whether the selection was empty and nothing was submitted.
func (r *MintResult) Empty() bool {
	return r == nil || r.Batch == nil
}

// ProofStep is one sibling hash on the path from a leaf to the root.
type ProofStep struct {
	Hash [32]byte
	Left bool
}

// InclusionProof shows that a credential's digest is committed by a batch root.
type InclusionProof struct {
	CredentialID string
	BatchID      string
	LeafIndex    int
	Digest       [32]byte
	Path         []ProofStep
	MerkleRoot   [32]byte
	TxHash       string
	ChainID      string
}

// Hex renders a 32-byte digest as 0x-prefixed hex.
func Hex(d [32]byte) string {
	return "0x" + hex.EncodeToString(d[:])
}
