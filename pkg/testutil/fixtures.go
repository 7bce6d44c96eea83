package testutil

import (
	"fmt"
	"time"

	"vcanchor/internal/credential/models"
)

// FixedNow is the reference instant used by service tests.
var FixedNow = time.Date(2026, 4, 14, 10, 0, 0, 0, time.UTC)

// NewCredential builds a valid unanchored credential with a deterministic subject.
func NewCredential(id string) *models.Credential {
	c, err := models.NewCredential(id, "tpl_bsc_cs", map[string]any{
		"name":           "Student " + id,
		"program":        "BSc Computer Science",
		"student_number": fmt.Sprintf("S-%s", id),
	}, FixedNow.Add(-24*time.Hour), nil)
	if err != nil {
		panic(err)
	}
	return c
}

// WithAnchoring returns c after applying the transitions needed to reach status.
// For StatusAnchored the batch id is "batch_fixture".
func WithAnchoring(c *models.Credential, status models.AnchorStatus, queue models.QueueMode, approved models.ApprovedMode) *models.Credential {
	st := models.Unanchored()
	must := func(next models.AnchorState, err error) models.AnchorState {
		if err != nil {
			panic(err)
		}
		return next
	}
	if status == models.StatusUnanchored {
		c.Anchoring = st
		return c
	}
	st = must(st.Enqueue(queue, FixedNow))
	if status != models.StatusQueued {
		st = must(st.Approve(approved))
	}
	if status == models.StatusMinting || status == models.StatusAnchored {
		st = must(st.BeginMint("mint_fixture", FixedNow))
	}
	if status == models.StatusAnchored {
		st = must(st.Anchor("mint_fixture", "batch_fixture"))
	}
	c.Anchoring = st
	return c
}
