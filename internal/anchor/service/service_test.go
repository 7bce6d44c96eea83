package service_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"vcanchor/internal/anchor/chain"
	"vcanchor/internal/anchor/models"
	"vcanchor/internal/anchor/service"
	anchorstore "vcanchor/internal/anchor/store"
	credmodels "vcanchor/internal/credential/models"
	credstore "vcanchor/internal/credential/store"
	dErrors "vcanchor/pkg/domain-errors"
	"vcanchor/pkg/platform/audit"
	"vcanchor/pkg/platform/audit/publisher"
	auditmemory "vcanchor/pkg/platform/audit/store/memory"
	"vcanchor/pkg/platform/tx"
	"vcanchor/pkg/requestcontext"
	"vcanchor/pkg/testutil"
)

// AnchorFlowSuite drives the queue and minter against the in-memory stores
// and the in-memory chain.
type AnchorFlowSuite struct {
	suite.Suite
	ctx     context.Context
	creds   *credstore.InMemoryStore
	batches *anchorstore.InMemoryStore
	chain   *chain.MemoryClient
	audit   *auditmemory.Store
	service *service.Service
}

func TestAnchorFlowSuite(t *testing.T) {
	suite.Run(t, new(AnchorFlowSuite))
}

func (s *AnchorFlowSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), testutil.FixedNow)
	s.creds = credstore.NewInMemoryStore()
	s.batches = anchorstore.NewInMemoryStore()
	s.chain = chain.NewMemoryClient("1337")
	s.audit = auditmemory.New()
	s.service = service.New(s.creds, s.batches, s.chain, tx.NewMemoryRunner(),
		service.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		service.WithAuditor(publisher.New(s.audit)),
	)
}

func (s *AnchorFlowSuite) seed(ids ...string) {
	for _, id := range ids {
		s.Require().NoError(s.creds.Create(s.ctx, testutil.NewCredential(id)))
	}
}

func (s *AnchorFlowSuite) state(id string) credmodels.AnchorState {
	c, err := s.creds.FindByID(s.ctx, id)
	s.Require().NoError(err)
	return c.Anchoring
}

func (s *AnchorFlowSuite) queueAndApprove(mode credmodels.QueueMode, approved credmodels.ApprovedMode, ids ...string) {
	for _, id := range ids {
		_, err := s.service.Enqueue(s.ctx, id, mode)
		s.Require().NoError(err)
	}
	res, err := s.service.Approve(s.ctx, ids, approved)
	s.Require().NoError(err)
	s.Require().Len(res.Approved, len(ids))
}

func (s *AnchorFlowSuite) TestEnqueue() {
	s.seed("vc_1")

	s.Run("unknown credential is not found", func() {
		_, err := s.service.Enqueue(s.ctx, "vc_missing", credmodels.QueueModeNow)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("invalid mode is rejected", func() {
		_, err := s.service.Enqueue(s.ctx, "vc_1", credmodels.QueueModeNone)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("sets queued with mode and requested_at", func() {
		c, err := s.service.Enqueue(s.ctx, "vc_1", credmodels.QueueModeNow)
		s.Require().NoError(err)
		s.Equal(credmodels.StatusQueued, c.Anchoring.Status())
		s.Equal(credmodels.QueueModeNow, c.Anchoring.QueueMode())
		s.True(testutil.FixedNow.Equal(c.Anchoring.RequestedAt()))
		s.Len(s.audit.ListByAction(s.ctx, audit.ActionAnchorEnqueued), 1)
	})
}

func (s *AnchorFlowSuite) TestReEnqueueApprovedKeepsApprovedMode() {
	s.seed("vc_1")
	s.queueAndApprove(credmodels.QueueModeBatch, credmodels.ApprovedModeBatch, "vc_1")

	later := requestcontext.WithTime(context.Background(), testutil.FixedNow.Add(time.Hour))
	c, err := s.service.Enqueue(later, "vc_1", credmodels.QueueModeNow)
	s.Require().NoError(err)

	s.Equal(credmodels.StatusApproved, c.Anchoring.Status())
	s.Equal(credmodels.ApprovedModeBatch, c.Anchoring.ApprovedMode())
	s.Equal(credmodels.QueueModeBatch, c.Anchoring.QueueMode())
	s.True(testutil.FixedNow.Add(time.Hour).Equal(c.Anchoring.RequestedAt()))
}

func (s *AnchorFlowSuite) TestEnqueueAnchoredFails() {
	s.seed("vc_1")
	s.queueAndApprove(credmodels.QueueModeNow, credmodels.ApprovedModeSingle, "vc_1")
	_, err := s.service.RunSingle(s.ctx, "vc_1")
	s.Require().NoError(err)

	_, err = s.service.Enqueue(s.ctx, "vc_1", credmodels.QueueModeBatch)
	s.True(dErrors.HasCode(err, dErrors.CodeAlreadyAnchored))
	s.Equal(credmodels.StatusAnchored, s.state("vc_1").Status())
}

func (s *AnchorFlowSuite) TestApprovePartialSuccess() {
	s.seed("vc_queued", "vc_unqueued", "vc_approved")
	_, err := s.service.Enqueue(s.ctx, "vc_queued", credmodels.QueueModeBatch)
	s.Require().NoError(err)
	s.queueAndApprove(credmodels.QueueModeBatch, credmodels.ApprovedModeSingle, "vc_approved")

	res, err := s.service.Approve(s.ctx,
		[]string{"vc_queued", "vc_missing", "vc_unqueued", "vc_approved", "vc_queued"},
		credmodels.ApprovedModeBatch)
	s.Require().NoError(err)

	s.Equal([]string{"vc_queued"}, res.Approved)
	s.Equal([]models.SkippedItem{
		{CredentialID: "vc_missing", Reason: models.SkipNotFound},
		{CredentialID: "vc_unqueued", Reason: models.SkipNotQueued},
		{CredentialID: "vc_approved", Reason: models.SkipNotQueued},
		{CredentialID: "vc_queued", Reason: models.SkipDuplicateID},
	}, res.Skipped)
	s.Equal(credmodels.ApprovedModeSingle, s.state("vc_approved").ApprovedMode())
}

func (s *AnchorFlowSuite) TestRunSingle_BatchApprovedFails() {
	s.seed("vc_1")
	s.queueAndApprove(credmodels.QueueModeNow, credmodels.ApprovedModeBatch, "vc_1")
	before := s.state("vc_1")

	_, err := s.service.RunSingle(s.ctx, "vc_1")

	s.True(dErrors.HasCode(err, dErrors.CodeNotApprovedForSingle))
	s.Equal(before, s.state("vc_1"))
	s.Empty(s.chain.Submitted())
}

func (s *AnchorFlowSuite) TestRunSingle_QueuedFails() {
	s.seed("vc_1")
	_, err := s.service.Enqueue(s.ctx, "vc_1", credmodels.QueueModeNow)
	s.Require().NoError(err)

	_, err = s.service.RunSingle(s.ctx, "vc_1")
	s.True(dErrors.HasCode(err, dErrors.CodeNotApprovedForSingle))
}

func (s *AnchorFlowSuite) TestScenario_SingleAnchor() {
	s.seed("vc_x")
	s.queueAndApprove(credmodels.QueueModeNow, credmodels.ApprovedModeSingle, "vc_x")

	res, err := s.service.RunSingle(s.ctx, "vc_x")
	s.Require().NoError(err)
	s.Require().False(res.Empty())

	st := s.state("vc_x")
	s.Equal(credmodels.StatusAnchored, st.Status())
	s.Equal(res.Batch.ID, st.BatchID())

	batch, err := s.batches.FindByID(s.ctx, st.BatchID())
	s.Require().NoError(err)
	s.Equal(1, batch.MemberCount)
	s.Equal([]string{"vc_x"}, batch.MemberIDs())
	s.Equal("1337", batch.ChainID)
	s.Equal([][32]byte{batch.MerkleRoot}, s.chain.Submitted())
}

func (s *AnchorFlowSuite) TestScenario_BatchAnchor() {
	s.seed("vc_a", "vc_b", "vc_c")
	s.queueAndApprove(credmodels.QueueModeBatch, credmodels.ApprovedModeBatch, "vc_a", "vc_b", "vc_c")

	res, err := s.service.MintBatch(s.ctx, models.MintModeBatch)
	s.Require().NoError(err)
	s.Require().False(res.Empty())
	s.Equal(3, res.Batch.MemberCount)

	for _, id := range []string{"vc_a", "vc_b", "vc_c"} {
		st := s.state(id)
		s.Equal(credmodels.StatusAnchored, st.Status(), id)
		s.Equal(res.Batch.ID, st.BatchID(), id)
	}
	s.Len(s.chain.Submitted(), 1)
	s.Len(s.audit.ListByAction(s.ctx, audit.ActionBatchMinted), 3)
}

func (s *AnchorFlowSuite) TestMintBatch_ChainFailureChangesNothing() {
	s.seed("vc_a", "vc_b", "vc_c")
	s.queueAndApprove(credmodels.QueueModeBatch, credmodels.ApprovedModeBatch, "vc_a", "vc_b", "vc_c")
	before := map[string]credmodels.AnchorState{}
	for _, id := range []string{"vc_a", "vc_b", "vc_c"} {
		before[id] = s.state(id)
	}
	s.chain.FailNext(1, nil)

	_, err := s.service.MintBatch(s.ctx, models.MintModeAll)

	s.True(dErrors.HasCode(err, dErrors.CodeChainSubmissionFailed))
	s.True(dErrors.IsRetryable(err))
	for id, st := range before {
		s.Equal(st, s.state(id), id)
	}
	batches, err := s.batches.List(s.ctx, models.BatchFilter{})
	s.Require().NoError(err)
	s.Empty(batches)
	s.Len(s.audit.ListByAction(s.ctx, audit.ActionMintFailed), 1)

	retry, err := s.service.MintBatch(s.ctx, models.MintModeAll)
	s.Require().NoError(err)
	s.Equal(3, retry.Batch.MemberCount)
}

func (s *AnchorFlowSuite) TestMintBatch_CommitFailureRollsBack() {
	s.seed("vc_a", "vc_b")
	s.queueAndApprove(credmodels.QueueModeBatch, credmodels.ApprovedModeBatch, "vc_a", "vc_b")
	svc := service.New(s.creds, failingBatchStore{s.batches}, s.chain, tx.NewMemoryRunner(),
		service.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	_, err := svc.MintBatch(s.ctx, models.MintModeBatch)

	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	s.Equal(credmodels.StatusApproved, s.state("vc_a").Status())
	s.Equal(credmodels.StatusApproved, s.state("vc_b").Status())
}

func (s *AnchorFlowSuite) TestMintBatch_EmptySelectionIsNoop() {
	s.seed("vc_now")
	s.queueAndApprove(credmodels.QueueModeNow, credmodels.ApprovedModeBatch, "vc_now")

	res, err := s.service.MintBatch(s.ctx, models.MintModeBatch)

	s.Require().NoError(err)
	s.True(res.Empty())
	s.Empty(s.chain.Submitted())
	s.Equal(credmodels.StatusApproved, s.state("vc_now").Status())
}

func (s *AnchorFlowSuite) TestMintBatch_IgnoresSingleApproved() {
	s.seed("vc_single", "vc_batch")
	s.queueAndApprove(credmodels.QueueModeBatch, credmodels.ApprovedModeSingle, "vc_single")
	s.queueAndApprove(credmodels.QueueModeBatch, credmodels.ApprovedModeBatch, "vc_batch")

	res, err := s.service.MintBatch(s.ctx, models.MintModeAll)
	s.Require().NoError(err)

	s.Equal([]string{"vc_batch"}, res.Batch.MemberIDs())
	s.Equal(credmodels.StatusApproved, s.state("vc_single").Status())
}

func (s *AnchorFlowSuite) TestMintBatch_InvalidMode() {
	_, err := s.service.MintBatch(s.ctx, models.MintMode("weekly"))
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *AnchorFlowSuite) TestMintSelected() {
	s.seed("vc_a", "vc_b", "vc_c")
	s.queueAndApprove(credmodels.QueueModeBatch, credmodels.ApprovedModeBatch, "vc_a", "vc_b", "vc_c")

	res, err := s.service.MintSelected(s.ctx, []string{"vc_c", "vc_a", "vc_missing"})
	s.Require().NoError(err)

	s.ElementsMatch([]string{"vc_a", "vc_c"}, res.Batch.MemberIDs())
	s.Equal([]models.SkippedItem{{CredentialID: "vc_missing", Reason: "not_eligible"}}, res.Skipped)
	s.Equal(credmodels.StatusApproved, s.state("vc_b").Status())
}

func (s *AnchorFlowSuite) TestConcurrentMintsNeverOverlap() {
	ids := make([]string, 40)
	for i := range ids {
		ids[i] = fmt.Sprintf("vc_%02d", i)
	}
	s.seed(ids...)
	s.queueAndApprove(credmodels.QueueModeBatch, credmodels.ApprovedModeBatch, ids...)

	var mu sync.Mutex
	var results []*models.MintResult
	res := testutil.RunConcurrent(8, func(int) error {
		r, err := s.service.MintBatch(s.ctx, models.MintModeBatch)
		if err == nil {
			mu.Lock()
			results = append(results, r)
			mu.Unlock()
		}
		return err
	})
	s.Equal(int32(8), res.Successes)

	seen := map[string]string{}
	for _, r := range results {
		if r.Empty() {
			continue
		}
		for _, id := range r.Batch.MemberIDs() {
			prev, dup := seen[id]
			s.False(dup, "%s in %s and %s", id, prev, r.Batch.ID)
			seen[id] = r.Batch.ID
		}
	}
	s.Len(seen, len(ids))
	for _, id := range ids {
		s.Equal(seen[id], s.state(id).BatchID())
	}
}

func (s *AnchorFlowSuite) TestStateNeverRegresses() {
	ids := []string{"vc_a", "vc_b", "vc_c", "vc_d"}
	s.seed(ids...)
	ops := []func(id string){
		func(id string) { _, _ = s.service.Enqueue(s.ctx, id, credmodels.QueueModeNow) },
		func(id string) { _, _ = s.service.Enqueue(s.ctx, id, credmodels.QueueModeBatch) },
		func(id string) { _, _ = s.service.Approve(s.ctx, []string{id}, credmodels.ApprovedModeSingle) },
		func(id string) { _, _ = s.service.Approve(s.ctx, []string{id}, credmodels.ApprovedModeBatch) },
		func(id string) { _, _ = s.service.RunSingle(s.ctx, id) },
		func(string) { _, _ = s.service.MintBatch(s.ctx, models.MintModeAll) },
		func(id string) { _, _ = s.service.MintSelected(s.ctx, []string{id}) },
	}
	for step := 0; step < 200; step++ {
		id := ids[(step*7)%len(ids)]
		before := map[string]credmodels.AnchorState{}
		for _, other := range ids {
			before[other] = s.state(other)
		}
		ops[(step*5+step/3)%len(ops)](id)
		for _, other := range ids {
			s.GreaterOrEqual(forwardOrder[s.state(other).Status()], forwardOrder[before[other].Status()],
				"step %d regressed %s", step, other)
		}
	}
}

func (s *AnchorFlowSuite) TestListQueue() {
	s.seed("vc_q_now", "vc_q_batch", "vc_a_batch", "vc_plain")
	_, err := s.service.Enqueue(s.ctx, "vc_q_now", credmodels.QueueModeNow)
	s.Require().NoError(err)
	_, err = s.service.Enqueue(s.ctx, "vc_q_batch", credmodels.QueueModeBatch)
	s.Require().NoError(err)
	s.queueAndApprove(credmodels.QueueModeBatch, credmodels.ApprovedModeBatch, "vc_a_batch")

	all, err := s.service.ListQueue(s.ctx, models.QueueFilter{})
	s.Require().NoError(err)
	s.Len(all, 3)

	approved := true
	onlyApproved, err := s.service.ListQueue(s.ctx, models.QueueFilter{Approved: &approved})
	s.Require().NoError(err)
	s.Equal([]string{"vc_a_batch"}, credIDs(onlyApproved))

	pending := false
	batchPending, err := s.service.ListQueue(s.ctx, models.QueueFilter{Mode: credmodels.QueueModeBatch, Approved: &pending})
	s.Require().NoError(err)
	s.Equal([]string{"vc_q_batch"}, credIDs(batchPending))
}

func (s *AnchorFlowSuite) TestProofAndIntegrity() {
	ids := []string{"vc_a", "vc_b", "vc_c", "vc_d", "vc_e"}
	s.seed(ids...)
	s.queueAndApprove(credmodels.QueueModeBatch, credmodels.ApprovedModeBatch, ids...)
	res, err := s.service.MintBatch(s.ctx, models.MintModeBatch)
	s.Require().NoError(err)

	for _, id := range ids {
		proof, err := s.service.Proof(s.ctx, id)
		s.Require().NoError(err)
		s.Equal(res.Batch.MerkleRoot, proof.MerkleRoot)

		c, err := s.creds.FindByID(s.ctx, id)
		s.Require().NoError(err)
		ok, err := s.service.IntegrityCheck(s.ctx, c)
		s.Require().NoError(err)
		s.True(ok, id)
	}

	tampered, err := s.creds.FindByID(s.ctx, "vc_c")
	s.Require().NoError(err)
	tampered.Subject["program"] = "PhD Astrophysics"
	ok, err := s.service.IntegrityCheck(s.ctx, tampered)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *AnchorFlowSuite) TestProof_NotAnchored() {
	s.seed("vc_1")
	_, err := s.service.Proof(s.ctx, "vc_1")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))

	_, err = s.service.Proof(s.ctx, "vc_missing")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *AnchorFlowSuite) TestReleaseStaleLeases() {
	s.seed("vc_1")
	s.queueAndApprove(credmodels.QueueModeBatch, credmodels.ApprovedModeBatch, "vc_1")
	_, err := s.creds.ClaimForMint(s.ctx, credmodels.MintSelection{
		AttemptID:    "mint_crashed",
		ApprovedMode: credmodels.ApprovedModeBatch,
		LeasedAt:     testutil.FixedNow.Add(-time.Hour),
	})
	s.Require().NoError(err)

	ids, err := s.service.ReleaseStaleLeases(s.ctx, testutil.FixedNow.Add(-10*time.Minute))
	s.Require().NoError(err)
	s.Equal([]string{"vc_1"}, ids)
	s.Equal(credmodels.StatusApproved, s.state("vc_1").Status())
	s.Len(s.audit.ListByAction(s.ctx, audit.ActionMintLeaseReleased), 1)
}

func (s *AnchorFlowSuite) TestListBatches() {
	s.seed("vc_a", "vc_b")
	s.queueAndApprove(credmodels.QueueModeNow, credmodels.ApprovedModeSingle, "vc_a", "vc_b")
	_, err := s.service.RunSingle(s.ctx, "vc_a")
	s.Require().NoError(err)
	_, err = s.service.RunSingle(requestcontext.WithTime(context.Background(), testutil.FixedNow.Add(time.Minute)), "vc_b")
	s.Require().NoError(err)

	batches, err := s.service.ListBatches(s.ctx, models.BatchFilter{Limit: 1})
	s.Require().NoError(err)
	s.Require().Len(batches, 1)
	s.Equal([]string{"vc_b"}, batches[0].MemberIDs())

	other, err := s.service.ListBatches(s.ctx, models.BatchFilter{ChainID: "1"})
	s.Require().NoError(err)
	s.Empty(other)
}

type failingBatchStore struct {
	*anchorstore.InMemoryStore
}

func (failingBatchStore) Create(context.Context, *models.AnchorBatch) error {
	return assert.AnError
}

func credIDs(creds []*credmodels.Credential) []string {
	out := make([]string, len(creds))
	for i, c := range creds {
		out[i] = c.ID
	}
	return out
}

func TestMintResult_Empty(t *testing.T) {
	var nilResult *models.MintResult
	require.True(t, nilResult.Empty())
	assert.True(t, (&models.MintResult{}).Empty())
}

// forwardOrder ranks minting with approved: a released lease returns there.
var forwardOrder = map[credmodels.AnchorStatus]int{
	credmodels.StatusUnanchored: 0,
	credmodels.StatusQueued:     1,
	credmodels.StatusApproved:   2,
	credmodels.StatusMinting:    2,
	credmodels.StatusAnchored:   3,
}
