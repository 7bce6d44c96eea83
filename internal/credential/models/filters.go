package models

import "time"

// ListFilter narrows a credential listing. Zero values match everything.
type ListFilter struct {
	Statuses     []AnchorStatus
	QueueMode    QueueMode
	ApprovedMode ApprovedMode
	Limit        int
}

// Matches reports whether c passes the filter.
func (f ListFilter) Matches(c *Credential) bool {
	if len(f.Statuses) > 0 {
		found := false
		for _, st := range f.Statuses {
			if c.Anchoring.Status() == st {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.QueueMode != "" && c.Anchoring.QueueMode() != f.QueueMode {
		return false
	}
	if f.ApprovedMode != "" && c.Anchoring.ApprovedMode() != f.ApprovedMode {
		return false
	}
	return true
}

// MintSelection describes which approved credentials a mint attempt leases.
// Only credentials in approved state with ApprovedMode are eligible; IDs and
// QueueMode narrow further when set.
type MintSelection struct {
	AttemptID    string
	ApprovedMode ApprovedMode
	QueueMode    QueueMode
	IDs          []string
	LeasedAt     time.Time
}

// Eligible reports whether c can be leased by this selection.
func (s MintSelection) Eligible(c *Credential) bool {
	a := c.Anchoring
	if a.Status() != StatusApproved || a.ApprovedMode() != s.ApprovedMode {
		return false
	}
	return s.QueueMode == "" || a.QueueMode() == s.QueueMode
}
