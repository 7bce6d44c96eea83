package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	dErrors "vcanchor/pkg/domain-errors"
)

type AnchorStateSuite struct {
	suite.Suite
	now time.Time
}

func TestAnchorStateSuite(t *testing.T) {
	suite.Run(t, new(AnchorStateSuite))
}

func (s *AnchorStateSuite) SetupTest() {
	s.now = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
}

func (s *AnchorStateSuite) approved(mode ApprovedMode) AnchorState {
	q, err := Unanchored().Enqueue(QueueModeNow, s.now)
	s.Require().NoError(err)
	a, err := q.Approve(mode)
	s.Require().NoError(err)
	return a
}

func (s *AnchorStateSuite) TestEnqueueFromUnanchored() {
	st, err := Unanchored().Enqueue(QueueModeBatch, s.now)
	s.Require().NoError(err)
	s.Equal(StatusQueued, st.Status())
	s.Equal(QueueModeBatch, st.QueueMode())
	s.Equal(ApprovedModeNone, st.ApprovedMode())
	s.Equal(s.now, st.RequestedAt())
}

func (s *AnchorStateSuite) TestEnqueueRejectsUnknownMode() {
	_, err := Unanchored().Enqueue(QueueModeNone, s.now)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *AnchorStateSuite) TestReEnqueueApprovedKeepsModes() {
	a := s.approved(ApprovedModeSingle)
	later := s.now.Add(time.Hour)

	st, err := a.Enqueue(QueueModeBatch, later)
	s.Require().NoError(err)
	s.Equal(StatusApproved, st.Status())
	s.Equal(QueueModeNow, st.QueueMode())
	s.Equal(ApprovedModeSingle, st.ApprovedMode())
	s.Equal(later, st.RequestedAt())
}

func (s *AnchorStateSuite) TestEnqueueWhileMintingIsNoop() {
	m, err := s.approved(ApprovedModeBatch).BeginMint("mint_1", s.now)
	s.Require().NoError(err)

	st, err := m.Enqueue(QueueModeNow, s.now.Add(time.Minute))
	s.Require().NoError(err)
	s.Equal(m, st)
}

func (s *AnchorStateSuite) TestEnqueueAnchoredFails() {
	m, err := s.approved(ApprovedModeBatch).BeginMint("mint_1", s.now)
	s.Require().NoError(err)
	anchored, err := m.Anchor("mint_1", "batch_1")
	s.Require().NoError(err)

	_, err = anchored.Enqueue(QueueModeNow, s.now)
	s.True(dErrors.HasCode(err, dErrors.CodeAlreadyAnchored))
}

func (s *AnchorStateSuite) TestApproveRequiresQueued() {
	_, err := Unanchored().Approve(ApprovedModeSingle)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))

	_, err = s.approved(ApprovedModeSingle).Approve(ApprovedModeBatch)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func (s *AnchorStateSuite) TestMintLeaseRoundTrip() {
	a := s.approved(ApprovedModeBatch)
	m, err := a.BeginMint("mint_1", s.now)
	s.Require().NoError(err)
	s.Equal(StatusMinting, m.Status())
	s.Equal("mint_1", m.MintAttemptID())

	released, err := m.ReleaseMint()
	s.Require().NoError(err)
	s.Equal(a, released)
}

func (s *AnchorStateSuite) TestAnchorRequiresMatchingAttempt() {
	m, err := s.approved(ApprovedModeBatch).BeginMint("mint_1", s.now)
	s.Require().NoError(err)

	_, err = m.Anchor("mint_2", "batch_1")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))

	anchored, err := m.Anchor("mint_1", "batch_1")
	s.Require().NoError(err)
	s.Equal(StatusAnchored, anchored.Status())
	s.Equal("batch_1", anchored.BatchID())
	s.Empty(anchored.MintAttemptID())
}

func (s *AnchorStateSuite) TestTransitionsNeverRegress() {
	queued, _ := Unanchored().Enqueue(QueueModeNow, s.now)
	approved := s.approved(ApprovedModeSingle)
	minting, _ := approved.BeginMint("m", s.now)
	anchored, _ := minting.Anchor("m", "b")

	states := []AnchorState{Unanchored(), queued, approved, minting, anchored}
	for _, from := range states {
		for _, next := range []func(AnchorState) (AnchorState, error){
			func(st AnchorState) (AnchorState, error) { return st.Enqueue(QueueModeBatch, s.now) },
			func(st AnchorState) (AnchorState, error) { return st.Approve(ApprovedModeBatch) },
			func(st AnchorState) (AnchorState, error) { return st.BeginMint("x", s.now) },
			func(st AnchorState) (AnchorState, error) { return st.Anchor("m", "b2") },
		} {
			to, err := next(from)
			if err != nil {
				continue
			}
			s.GreaterOrEqual(forwardOrder[to.Status()], forwardOrder[from.Status()], "%s -> %s", from.Status(), to.Status())
		}
	}
}

func (s *AnchorStateSuite) TestRestoreRejectsIllegalCombinations() {
	_, err := RestoreAnchorState(StatusUnanchored, QueueModeNone, ApprovedModeSingle, time.Time{}, "", time.Time{}, "")
	s.Error(err)

	_, err = RestoreAnchorState(StatusQueued, QueueModeNow, ApprovedModeBatch, s.now, "", time.Time{}, "")
	s.Error(err)

	_, err = RestoreAnchorState(StatusApproved, QueueModeNow, ApprovedModeBatch, s.now, "", time.Time{}, "batch_1")
	s.Error(err)

	_, err = RestoreAnchorState(StatusAnchored, QueueModeNow, ApprovedModeBatch, s.now, "", time.Time{}, "")
	s.Error(err)

	_, err = RestoreAnchorState(StatusMinting, QueueModeBatch, ApprovedModeBatch, s.now, "", time.Time{}, "")
	s.Error(err)
}

func (s *AnchorStateSuite) TestRestoreMatchesTransitions() {
	m, err := s.approved(ApprovedModeBatch).BeginMint("mint_1", s.now)
	s.Require().NoError(err)

	restored, err := RestoreAnchorState(m.Status(), m.QueueMode(), m.ApprovedMode(), m.RequestedAt(), m.MintAttemptID(), m.LeasedAt(), m.BatchID())
	s.Require().NoError(err)
	s.Equal(m, restored)
}

func TestNewCredential(t *testing.T) {
	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	c, err := NewCredential("vc_1", "tpl_bsc", map[string]any{"name": "Ada"}, issued, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusUnanchored, c.Anchoring.Status())
	assert.False(t, c.IsClaimed())

	_, err = NewCredential("1", "tpl", map[string]any{"a": 1}, issued, nil)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	past := issued.Add(-time.Hour)
	_, err = NewCredential("vc_2", "tpl", map[string]any{"a": 1}, issued, &past)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestCredential_MarkClaimedOnce(t *testing.T) {
	c, err := NewCredential("vc_1", "tpl", map[string]any{"a": 1}, time.Now(), nil)
	require.NoError(t, err)

	first := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, c.MarkClaimed(first))

	err = c.MarkClaimed(first.Add(time.Hour))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeAlreadyClaimed))
	assert.Equal(t, first, *c.Claim.ClaimedAt)
}

func TestCredential_CanonicalBytesIgnoresLifecycle(t *testing.T) {
	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c, err := NewCredential("vc_1", "tpl", map[string]any{"b": "2", "a": "1"}, issued, nil)
	require.NoError(t, err)

	before, err := c.CanonicalBytes()
	require.NoError(t, err)
	assert.Equal(t, `{"id":"vc_1","template_id":"tpl","subject":{"a":"1","b":"2"},"issued_at":"2026-01-01T00:00:00Z"}`, string(before))

	c.Anchoring, _ = c.Anchoring.Enqueue(QueueModeNow, issued)
	require.NoError(t, c.MarkClaimed(issued))
	now := issued
	c.RevokedAt = &now

	after, err := c.CanonicalBytes()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestCredential_CloneIsDeep(t *testing.T) {
	c, err := NewCredential("vc_1", "tpl", map[string]any{"program": map[string]any{"name": "CS"}}, time.Now(), nil)
	require.NoError(t, err)

	clone := c.Clone()
	clone.Subject["program"].(map[string]any)["name"] = "Math"

	assert.Equal(t, "CS", c.Subject["program"].(map[string]any)["name"])
}

// forwardOrder ranks minting with approved: a released lease returns there.
var forwardOrder = map[AnchorStatus]int{
	StatusUnanchored: 0,
	StatusQueued:     1,
	StatusApproved:   2,
	StatusMinting:    2,
	StatusAnchored:   3,
}
