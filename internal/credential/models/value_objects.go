package models

// AnchorStatus is the lifecycle stage of a credential's on-chain commitment.
// Minting is a transient lease held by one in-flight mint attempt.
type AnchorStatus string

const (
	StatusUnanchored AnchorStatus = "unanchored"
	StatusQueued     AnchorStatus = "queued"
	StatusApproved   AnchorStatus = "approved"
	StatusMinting    AnchorStatus = "minting"
	StatusAnchored   AnchorStatus = "anchored"
)

// IsValid checks if the status is one of the supported enum values.
func (s AnchorStatus) IsValid() bool {
	switch s {
	case StatusUnanchored, StatusQueued, StatusApproved, StatusMinting, StatusAnchored:
		return true
	}
	return false
}

// QueueMode is the grouping intent recorded at enqueue time.
type QueueMode string

const (
	QueueModeNone  QueueMode = "none"
	QueueModeNow   QueueMode = "now"
	QueueModeBatch QueueMode = "batch"
)

// IsValid reports whether m can be requested by Enqueue.
func (m QueueMode) IsValid() bool {
	return m == QueueModeNow || m == QueueModeBatch
}

// ApprovedMode restricts an approved credential to one minting path.
type ApprovedMode string

const (
	ApprovedModeNone   ApprovedMode = "none"
	ApprovedModeSingle ApprovedMode = "single"
	ApprovedModeBatch  ApprovedMode = "batch"
)

// IsValid reports whether m can be granted by Approve.
func (m ApprovedMode) IsValid() bool {
	return m == ApprovedModeSingle || m == ApprovedModeBatch
}
