package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"vcanchor/internal/anchor/chain"
	"vcanchor/internal/anchor/merkle"
	"vcanchor/internal/anchor/models"
	credmodels "vcanchor/internal/credential/models"
	"vcanchor/internal/platform/tracer"
	dErrors "vcanchor/pkg/domain-errors"
	"vcanchor/pkg/platform/audit"
	"vcanchor/pkg/platform/sentinel"
)

const (
	pathSingle   = "single"
	pathBatch    = "batch"
	pathSelected = "selected"

	skipNotEligible = "not_eligible"
)

var errLeaseLost = errors.New("mint lease lost before commit")

// RunSingle anchors one credential approved for single minting.
func (s *Service) RunSingle(ctx context.Context, credID string) (*models.MintResult, error) {
	c, err := s.credentials.FindByID(ctx, credID)
	if err != nil {
		return nil, translateFind(err)
	}
	a := c.Anchoring
	if a.Status() != credmodels.StatusApproved || a.ApprovedMode() != credmodels.ApprovedModeSingle {
		return nil, dErrors.New(dErrors.CodeNotApprovedForSingle,
			fmt.Sprintf("credential is %s with approved mode %s", a.Status(), a.ApprovedMode()))
	}

	result, err := s.mint(ctx, credmodels.MintSelection{
		ApprovedMode: credmodels.ApprovedModeSingle,
		IDs:          []string{credID},
	}, pathSingle)
	if err != nil {
		return nil, err
	}
	if result.Empty() {
		// Lost the lease race against a concurrent RunSingle.
		return nil, dErrors.New(dErrors.CodeNotApprovedForSingle, "credential is no longer approved for single minting")
	}
	return result, nil
}

// MintBatch anchors every credential approved for batch minting whose queue
// mode matches mode. An empty selection returns an empty result.
func (s *Service) MintBatch(ctx context.Context, mode models.MintMode) (*models.MintResult, error) {
	if !mode.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "mode must be now, batch or all")
	}
	return s.mint(ctx, credmodels.MintSelection{
		ApprovedMode: credmodels.ApprovedModeBatch,
		QueueMode:    mode.QueueMode(),
	}, pathBatch)
}

// MintSelected anchors the batch-approved credentials among ids. Ids that are
// not eligible are reported as skipped.
func (s *Service) MintSelected(ctx context.Context, ids []string) (*models.MintResult, error) {
	if len(ids) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "credential ids required")
	}
	result, err := s.mint(ctx, credmodels.MintSelection{
		ApprovedMode: credmodels.ApprovedModeBatch,
		IDs:          ids,
	}, pathSelected)
	if err != nil {
		return nil, err
	}
	minted := map[string]bool{}
	if !result.Empty() {
		for _, id := range result.Batch.MemberIDs() {
			minted[id] = true
		}
	}
	seen := map[string]bool{}
	for _, id := range ids {
		if minted[id] || seen[id] {
			continue
		}
		seen[id] = true
		result.Skipped = append(result.Skipped, models.SkippedItem{CredentialID: id, Reason: skipNotEligible})
	}
	return result, nil
}

// mint leases the selection, submits one root and commits the batch with
// every member transition in one unit of work. Any failure returns the
// leased credentials to approved.
func (s *Service) mint(ctx context.Context, sel credmodels.MintSelection, path string) (result *models.MintResult, err error) {
	start := time.Now()
	sel.AttemptID = s.newID("mint_")
	sel.LeasedAt = s.now(ctx)

	ctx, span := s.tracer.Start(ctx, tracer.SpanMint,
		tracer.String(tracer.AttrAttemptID, sel.AttemptID),
		tracer.String("mint.path", path),
	)
	defer func() { span.End(err) }()

	leased, err := s.credentials.ClaimForMint(ctx, sel)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to lease credentials for minting")
	}
	if len(leased) == 0 {
		s.logger.InfoContext(ctx, "mint selection empty, nothing submitted", "path", path)
		return &models.MintResult{}, nil
	}
	span.SetAttributes(tracer.Int(tracer.AttrMemberCount, len(leased)))

	batch, err := buildBatch(leased)
	if err != nil {
		s.releaseLease(ctx, sel.AttemptID, "build")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build merkle tree")
	}
	span.SetAttributes(tracer.String(tracer.AttrMerkleRoot, models.Hex(batch.MerkleRoot)))

	receipt, err := s.submit(ctx, batch.MerkleRoot)
	if err != nil {
		s.releaseLease(ctx, sel.AttemptID, "chain")
		s.emitAudit(ctx, audit.Event{
			Action:     audit.ActionMintFailed,
			ResourceID: sel.AttemptID,
			Outcome:    "chain_submission_failed",
			Attributes: map[string]string{"members": fmt.Sprint(len(leased)), "path": path},
		})
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, dErrors.Wrap(ctxErr, dErrors.CodeTimeout, "mint cancelled during chain submission")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeChainSubmissionFailed, "chain submission failed")
	}

	batch.ID = s.newID(models.BatchIDPrefix)
	batch.TxHash = receipt.TxHash
	batch.ChainID = receipt.ChainID
	batch.AnchoredAt = s.now(ctx)

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.batches.Create(ctx, batch); err != nil {
			return fmt.Errorf("create batch: %w", err)
		}
		n, err := s.credentials.MarkAnchored(ctx, sel.AttemptID, batch.ID)
		if err != nil {
			return fmt.Errorf("mark anchored: %w", err)
		}
		if n != len(leased) {
			return fmt.Errorf("%w: anchored %d of %d", errLeaseLost, n, len(leased))
		}
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "committed root has no batch record",
			"attempt_id", sel.AttemptID,
			"tx_hash", receipt.TxHash,
			"merkle_root", models.Hex(batch.MerkleRoot),
			"error", err,
		)
		s.releaseLease(ctx, sel.AttemptID, "commit")
		s.emitAudit(ctx, audit.Event{
			Action:     audit.ActionMintFailed,
			ResourceID: sel.AttemptID,
			Outcome:    "commit_failed",
			Attributes: map[string]string{"tx_hash": receipt.TxHash},
		})
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist anchor batch")
	}

	for _, m := range batch.Members {
		s.emitAudit(ctx, audit.Event{
			Action:       audit.ActionBatchMinted,
			CredentialID: m.CredentialID,
			ResourceID:   batch.ID,
			Outcome:      string(credmodels.StatusAnchored),
			Attributes:   map[string]string{"tx_hash": batch.TxHash, "chain_id": batch.ChainID, "path": path},
		})
	}
	if s.metrics != nil {
		s.metrics.BatchesMinted.WithLabelValues(path).Inc()
		s.metrics.BatchSize.Observe(float64(batch.MemberCount))
		s.metrics.MintDuration.Observe(time.Since(start).Seconds())
	}
	s.logger.InfoContext(ctx, "anchor batch minted",
		"batch_id", batch.ID,
		"path", path,
		"member_count", batch.MemberCount,
		"tx_hash", batch.TxHash,
		"chain_id", batch.ChainID,
	)
	return &models.MintResult{Batch: batch}, nil
}

func (s *Service) submit(ctx context.Context, root [32]byte) (receipt *chain.Receipt, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanChainSubmit, tracer.String(tracer.AttrChainID, s.chain.ChainID()))
	defer func() { span.End(err) }()
	r, err := s.chain.SubmitRoot(ctx, root)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(tracer.String(tracer.AttrTxHash, r.TxHash))
	return r, nil
}

// releaseLease runs even when ctx is cancelled so a failed mint never strands
// credentials in minting.
func (s *Service) releaseLease(ctx context.Context, attemptID, stage string) {
	n, err := s.credentials.ReleaseMint(context.WithoutCancel(ctx), attemptID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to release mint lease",
			"attempt_id", attemptID,
			"stage", stage,
			"error", err,
		)
		return
	}
	if s.metrics != nil {
		s.metrics.MintFailures.WithLabelValues(stage).Inc()
		s.metrics.LeasesReleased.WithLabelValues(stage).Add(float64(n))
	}
	s.logger.WarnContext(ctx, "mint rolled back",
		"attempt_id", attemptID,
		"stage", stage,
		"released", n,
	)
}

// ReleaseStaleLeases returns minting leases taken before cutoff to approved.
func (s *Service) ReleaseStaleLeases(ctx context.Context, cutoff time.Time) ([]string, error) {
	ids, err := s.credentials.ReleaseStaleMints(ctx, cutoff)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to release stale mint leases")
	}
	for _, id := range ids {
		s.emitAudit(ctx, audit.Event{
			Action:       audit.ActionMintLeaseReleased,
			CredentialID: id,
			Outcome:      string(credmodels.StatusApproved),
		})
	}
	if s.metrics != nil && len(ids) > 0 {
		s.metrics.LeasesReleased.WithLabelValues("stale").Add(float64(len(ids)))
	}
	return ids, nil
}

// ListBatches returns anchored batches newest first.
func (s *Service) ListBatches(ctx context.Context, filter models.BatchFilter) ([]*models.AnchorBatch, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultBatchLimit
	}
	if filter.Limit > maxBatchLimit {
		filter.Limit = maxBatchLimit
	}
	batches, err := s.batches.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list batches")
	}
	return batches, nil
}

// Proof returns the inclusion proof of an anchored credential.
func (s *Service) Proof(ctx context.Context, credID string) (*models.InclusionProof, error) {
	c, err := s.credentials.FindByID(ctx, credID)
	if err != nil {
		return nil, translateFind(err)
	}
	if c.Anchoring.Status() != credmodels.StatusAnchored {
		return nil, dErrors.New(dErrors.CodeInvalidState, "credential is not anchored")
	}
	batch, err := s.batches.FindByID(ctx, c.Anchoring.BatchID())
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "anchor batch not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load anchor batch")
	}
	return proofFor(batch, credID)
}

// IntegrityCheck recomputes c's content digest and reports whether it is the
// leaf its batch committed to. Credentials that are not anchored report false.
func (s *Service) IntegrityCheck(ctx context.Context, c *credmodels.Credential) (bool, error) {
	if c.Anchoring.Status() != credmodels.StatusAnchored {
		return false, nil
	}
	proof, err := s.Proof(ctx, c.ID)
	if err != nil {
		return false, err
	}
	canonical, err := c.CanonicalBytes()
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to canonicalize credential")
	}
	digest, err := merkle.ContentDigest(canonical)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to digest credential")
	}
	if digest != proof.Digest {
		return false, nil
	}
	return merkle.Verify(digest, toMerkleSteps(proof.Path), proof.MerkleRoot), nil
}

func buildBatch(leased []*credmodels.Credential) (*models.AnchorBatch, error) {
	digests := make([][32]byte, len(leased))
	for i, c := range leased {
		canonical, err := c.CanonicalBytes()
		if err != nil {
			return nil, fmt.Errorf("canonicalize %s: %w", c.ID, err)
		}
		if digests[i], err = merkle.ContentDigest(canonical); err != nil {
			return nil, fmt.Errorf("digest %s: %w", c.ID, err)
		}
	}
	tree, err := merkle.Build(digests)
	if err != nil {
		return nil, err
	}
	rootCID, err := merkle.CID(tree.Root())
	if err != nil {
		return nil, err
	}

	members := make([]models.Member, len(leased))
	for i, c := range leased {
		members[i] = models.Member{CredentialID: c.ID, LeafIndex: tree.IndexOf(digests[i]), Digest: digests[i]}
	}
	slices.SortFunc(members, func(a, b models.Member) int { return a.LeafIndex - b.LeafIndex })
	return &models.AnchorBatch{
		MerkleRoot:  tree.Root(),
		RootCID:     rootCID.String(),
		MemberCount: len(members),
		Members:     members,
	}, nil
}

func proofFor(batch *models.AnchorBatch, credID string) (*models.InclusionProof, error) {
	member, ok := batch.Member(credID)
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "credential is not a member of its batch")
	}
	leaves := make([][32]byte, len(batch.Members))
	for i, m := range batch.Members {
		leaves[i] = m.Digest
	}
	tree, err := merkle.Build(leaves)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to rebuild merkle tree")
	}
	steps, err := tree.Proof(member.LeafIndex)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build inclusion proof")
	}
	path := make([]models.ProofStep, len(steps))
	for i, st := range steps {
		path[i] = models.ProofStep{Hash: st.Hash, Left: st.Left}
	}
	return &models.InclusionProof{
		CredentialID: credID,
		BatchID:      batch.ID,
		LeafIndex:    member.LeafIndex,
		Digest:       member.Digest,
		Path:         path,
		MerkleRoot:   batch.MerkleRoot,
		TxHash:       batch.TxHash,
		ChainID:      batch.ChainID,
	}, nil
}

func toMerkleSteps(path []models.ProofStep) []merkle.Step {
	out := make([]merkle.Step, len(path))
	for i, p := range path {
		out[i] = merkle.Step{Hash: p.Hash, Left: p.Left}
	}
	return out
}
