package models

import (
	"encoding/json"
	"time"

	dErrors "vcanchor/pkg/domain-errors"
)

// AnchorState is a closed sum type over the anchoring lifecycle:
//
//	Unanchored
//	Queued{queueMode, requestedAt}
//	Approved{queueMode, approvedMode, requestedAt}
//	Minting{queueMode, approvedMode, requestedAt, attemptID, leasedAt}
//	Anchored{queueMode, approvedMode, requestedAt, batchID}
//
// Fields are unexported so the only way to reach a state is through the
// transition methods or RestoreAnchorState, which rejects combinations such as
// an approved mode on an unanchored credential.
type AnchorState struct {
	status       AnchorStatus
	queueMode    QueueMode
	approvedMode ApprovedMode
	requestedAt  time.Time
	attemptID    string
	leasedAt     time.Time
	batchID      string
}

// Unanchored is the initial state of every issued credential.
func Unanchored() AnchorState {
	return AnchorState{status: StatusUnanchored, queueMode: QueueModeNone, approvedMode: ApprovedModeNone}
}

func (s AnchorState) Status() AnchorStatus       { return s.status }
func (s AnchorState) QueueMode() QueueMode       { return s.queueMode }
func (s AnchorState) ApprovedMode() ApprovedMode { return s.approvedMode }
func (s AnchorState) RequestedAt() time.Time     { return s.requestedAt }
func (s AnchorState) MintAttemptID() string      { return s.attemptID }
func (s AnchorState) LeasedAt() time.Time        { return s.leasedAt }
func (s AnchorState) BatchID() string            { return s.batchID }

// InQueue reports whether the credential belongs to the queue projection.
func (s AnchorState) InQueue() bool {
	return s.status == StatusQueued || s.status == StatusApproved || s.status == StatusMinting
}

// Enqueue records a request to anchor with mode.
//
//   - unanchored, queued: becomes Queued{mode, now}
//   - approved: only requestedAt moves; modes are kept
//   - minting: unchanged (a mint is already in flight)
//   - anchored: AlreadyAnchored
func (s AnchorState) Enqueue(mode QueueMode, now time.Time) (AnchorState, error) {
	if !mode.IsValid() {
		return s, dErrors.New(dErrors.CodeValidation, "queue mode must be now or batch")
	}
	switch s.status {
	case StatusUnanchored, StatusQueued:
		return AnchorState{
			status:       StatusQueued,
			queueMode:    mode,
			approvedMode: ApprovedModeNone,
			requestedAt:  now,
		}, nil
	case StatusApproved:
		next := s
		next.requestedAt = now
		return next, nil
	case StatusMinting:
		return s, nil
	case StatusAnchored:
		return s, dErrors.New(dErrors.CodeAlreadyAnchored, "credential is already anchored")
	default:
		return s, dErrors.New(dErrors.CodeInvalidState, "unknown anchor status")
	}
}

// Approve grants mode to a queued credential.
func (s AnchorState) Approve(mode ApprovedMode) (AnchorState, error) {
	if !mode.IsValid() {
		return s, dErrors.New(dErrors.CodeValidation, "approved mode must be single or batch")
	}
	if s.status != StatusQueued {
		return s, dErrors.New(dErrors.CodeInvalidState, "only queued credentials can be approved")
	}
	next := s
	next.status = StatusApproved
	next.approvedMode = mode
	return next, nil
}

// BeginMint leases an approved credential to attemptID.
func (s AnchorState) BeginMint(attemptID string, now time.Time) (AnchorState, error) {
	if s.status != StatusApproved {
		return s, dErrors.New(dErrors.CodeInvalidState, "only approved credentials can be minted")
	}
	if attemptID == "" {
		return s, dErrors.New(dErrors.CodeValidation, "mint attempt id required")
	}
	next := s
	next.status = StatusMinting
	next.attemptID = attemptID
	next.leasedAt = now
	return next, nil
}

// ReleaseMint returns a minting credential to approved with its modes intact.
func (s AnchorState) ReleaseMint() (AnchorState, error) {
	if s.status != StatusMinting {
		return s, dErrors.New(dErrors.CodeInvalidState, "credential is not minting")
	}
	next := s
	next.status = StatusApproved
	next.attemptID = ""
	next.leasedAt = time.Time{}
	return next, nil
}

// Anchor completes a mint attempt. The attempt id must match the lease.
func (s AnchorState) Anchor(attemptID, batchID string) (AnchorState, error) {
	if s.status != StatusMinting || s.attemptID != attemptID {
		return s, dErrors.New(dErrors.CodeInvalidState, "credential is not leased to this mint attempt")
	}
	if batchID == "" {
		return s, dErrors.New(dErrors.CodeValidation, "batch id required")
	}
	next := s
	next.status = StatusAnchored
	next.attemptID = ""
	next.leasedAt = time.Time{}
	next.batchID = batchID
	return next, nil
}

// RestoreAnchorState rebuilds a state from persisted columns, rejecting
// combinations no transition can produce.
func RestoreAnchorState(
	status AnchorStatus,
	queueMode QueueMode,
	approvedMode ApprovedMode,
	requestedAt time.Time,
	attemptID string,
	leasedAt time.Time,
	batchID string,
) (AnchorState, error) {
	invalid := func(msg string) (AnchorState, error) {
		return AnchorState{}, dErrors.New(dErrors.CodeInvalidState, "corrupt anchor state: "+msg)
	}
	if !status.IsValid() {
		return invalid("unknown status " + string(status))
	}
	if status == StatusUnanchored {
		if queueMode != QueueModeNone || approvedMode != ApprovedModeNone || batchID != "" || attemptID != "" {
			return invalid("unanchored credential carries queue data")
		}
		return Unanchored(), nil
	}
	if !queueMode.IsValid() {
		return invalid("queued credential without queue mode")
	}
	if status == StatusQueued && approvedMode != ApprovedModeNone {
		return invalid("queued credential carries approved mode")
	}
	if status != StatusQueued && !approvedMode.IsValid() {
		return invalid("approved mode missing")
	}
	if (status == StatusMinting) != (attemptID != "") {
		return invalid("mint attempt must be set exactly while minting")
	}
	if (status == StatusAnchored) != (batchID != "") {
		return invalid("batch id must be set exactly while anchored")
	}
	s := AnchorState{
		status:       status,
		queueMode:    queueMode,
		approvedMode: approvedMode,
		requestedAt:  requestedAt,
		batchID:      batchID,
	}
	if status == StatusMinting {
		s.attemptID = attemptID
		s.leasedAt = leasedAt
	}
	return s, nil
}

// AnchorStateView is the wire shape of AnchorState.
type AnchorStateView struct {
	State        AnchorStatus `json:"state"`
	QueueMode    QueueMode    `json:"queue_mode"`
	ApprovedMode ApprovedMode `json:"approved_mode"`
	RequestedAt  *time.Time   `json:"requested_at,omitempty"`
	BatchID      string       `json:"batch_id,omitempty"`
}

func (s AnchorState) View() AnchorStateView {
	v := AnchorStateView{
		State:        s.status,
		QueueMode:    s.queueMode,
		ApprovedMode: s.approvedMode,
		BatchID:      s.batchID,
	}
	if v.State == "" {
		v = Unanchored().View()
	}
	if !s.requestedAt.IsZero() {
		t := s.requestedAt
		v.RequestedAt = &t
	}
	return v
}

func (s AnchorState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.View())
}
