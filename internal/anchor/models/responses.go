package models

import (
	"time"

	credmodels "vcanchor/internal/credential/models"
)

type QueueEntryResponse struct {
	CredentialID string                     `json:"credential_id"`
	TemplateID   string                     `json:"template_id"`
	Anchoring    credmodels.AnchorStateView `json:"anchoring"`
}

type QueueResponse struct {
	Entries []QueueEntryResponse `json:"entries"`
	Count   int                  `json:"count"`
}

func NewQueueResponse(creds []*credmodels.Credential) QueueResponse {
	entries := make([]QueueEntryResponse, 0, len(creds))
	for _, c := range creds {
		entries = append(entries, QueueEntryResponse{
			CredentialID: c.ID,
			TemplateID:   c.TemplateID,
			Anchoring:    c.Anchoring.View(),
		})
	}
	return QueueResponse{Entries: entries, Count: len(entries)}
}

type EnqueueResponse struct {
	CredentialID string                     `json:"credential_id"`
	Anchoring    credmodels.AnchorStateView `json:"anchoring"`
}

type ApproveResponse struct {
	Approved []string      `json:"approved"`
	Skipped  []SkippedItem `json:"skipped"`
}

func NewApproveResponse(r *ApproveResult) ApproveResponse {
	resp := ApproveResponse{Approved: r.Approved, Skipped: r.Skipped}
	if resp.Approved == nil {
		resp.Approved = []string{}
	}
	if resp.Skipped == nil {
		resp.Skipped = []SkippedItem{}
	}
	return resp
}

type BatchResponse struct {
	BatchID     string    `json:"batch_id"`
	MerkleRoot  string    `json:"merkle_root"`
	RootCID     string    `json:"root_cid,omitempty"`
	TxHash      string    `json:"tx_hash"`
	ChainID     string    `json:"chain_id"`
	AnchoredAt  time.Time `json:"anchored_at"`
	MemberCount int       `json:"member_count"`
	Members     []string  `json:"members"`
}

func NewBatchResponse(b *AnchorBatch) BatchResponse {
	return BatchResponse{
		BatchID:     b.ID,
		MerkleRoot:  Hex(b.MerkleRoot),
		RootCID:     b.RootCID,
		TxHash:      b.TxHash,
		ChainID:     b.ChainID,
		AnchoredAt:  b.AnchoredAt,
		MemberCount: b.MemberCount,
		Members:     b.MemberIDs(),
	}
}

// MintResponse reports an empty selection as minted=false with no batch.
type MintResponse struct {
	Minted  bool           `json:"minted"`
	Batch   *BatchResponse `json:"batch,omitempty"`
	Skipped []SkippedItem  `json:"skipped,omitempty"`
}

func NewMintResponse(r *MintResult) MintResponse {
	if r.Empty() {
		resp := MintResponse{Minted: false}
		if r != nil {
			resp.Skipped = r.Skipped
		}
		return resp
	}
	b := NewBatchResponse(r.Batch)
	return MintResponse{Minted: true, Batch: &b, Skipped: r.Skipped}
}

type BatchListResponse struct {
	Batches []BatchResponse `json:"batches"`
	Count   int             `json:"count"`
}

func NewBatchListResponse(batches []*AnchorBatch) BatchListResponse {
	out := make([]BatchResponse, 0, len(batches))
	for _, b := range batches {
		out = append(out, NewBatchResponse(b))
	}
	return BatchListResponse{Batches: out, Count: len(out)}
}

type ProofStepResponse struct {
	Hash     string `json:"hash"`
	Position string `json:"position"`
}

type ProofResponse struct {
	CredentialID string              `json:"credential_id"`
	BatchID      string              `json:"batch_id"`
	LeafIndex    int                 `json:"leaf_index"`
	Digest       string              `json:"digest"`
	Path         []ProofStepResponse `json:"path"`
	MerkleRoot   string              `json:"merkle_root"`
	TxHash       string              `json:"tx_hash"`
	ChainID      string              `json:"chain_id"`
}

func NewProofResponse(p *InclusionProof) ProofResponse {
	path := make([]ProofStepResponse, 0, len(p.Path))
	for _, step := range p.Path {
		pos := "right"
		if step.Left {
			pos = "left"
		}
		path = append(path, ProofStepResponse{Hash: Hex(step.Hash), Position: pos})
	}
	return ProofResponse{
		CredentialID: p.CredentialID,
		BatchID:      p.BatchID,
		LeafIndex:    p.LeafIndex,
		Digest:       Hex(p.Digest),
		Path:         path,
		MerkleRoot:   Hex(p.MerkleRoot),
		TxHash:       p.TxHash,
		ChainID:      p.ChainID,
	}
}
