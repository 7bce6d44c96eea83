package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "vcanchor/pkg/domain-errors"
)

var now = time.Date(2026, 4, 14, 10, 0, 0, 0, time.UTC)

func TestSessionLifecycle(t *testing.T) {
	s := NewSession("vs_1", "", now, time.Hour)
	assert.Equal(t, StateCreated, s.State)
	assert.True(t, s.CurrentResult().IsPending())

	require.NoError(t, s.Begin(Verifier{Org: "Acme", Purpose: "hiring"}, now))
	assert.Equal(t, StateAwaitingHolder, s.State)
	assert.True(t, s.CurrentResult().IsPending())

	require.NoError(t, s.Resolve("vc_1", Result{Valid: true, Reason: ReasonOK}, now.Add(time.Minute)))
	assert.Equal(t, StateResolved, s.State)
	assert.Equal(t, "vc_1", s.CredentialID)
	assert.Equal(t, Result{Valid: true, Reason: ReasonOK}, s.CurrentResult())
}

func TestSessionBeginOnlyOnce(t *testing.T) {
	s := NewSession("vs_1", "", now, time.Hour)
	require.NoError(t, s.Begin(Verifier{Org: "Acme", Purpose: "hiring"}, now))

	err := s.Begin(Verifier{Org: "Other", Purpose: "audit"}, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	assert.Equal(t, "Acme", s.Verifier.Org)

	require.NoError(t, s.Resolve("vc_1", Result{Reason: ReasonHolderDeclined}, now))
	err = s.Begin(Verifier{Org: "Acme", Purpose: "hiring"}, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	assert.Equal(t, StateResolved, s.State)
}

func TestSessionResolveIsWriteOnce(t *testing.T) {
	s := NewSession("vs_1", "", now, time.Hour)
	err := s.Resolve("vc_1", Result{Valid: true, Reason: ReasonOK}, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState), "created sessions cannot resolve")

	require.NoError(t, s.Begin(Verifier{Org: "Acme", Purpose: "hiring"}, now))
	require.NoError(t, s.Resolve("vc_1", Result{Reason: ReasonRevoked}, now))

	err = s.Resolve("vc_1", Result{Valid: true, Reason: ReasonOK}, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	assert.Equal(t, ReasonRevoked, s.CurrentResult().Reason)
}

func TestSessionResolveRejectsSyntheticReasons(t *testing.T) {
	s := NewSession("vs_1", "", now, time.Hour)
	require.NoError(t, s.Begin(Verifier{Org: "Acme", Purpose: "hiring"}, now))

	assert.Error(t, s.Resolve("vc_1", Result{Reason: ReasonTimeout}, now))
	assert.Error(t, s.Resolve("vc_1", PendingResult(), now))
	assert.Equal(t, StateAwaitingHolder, s.State)
}

func TestCloneIsDeep(t *testing.T) {
	s := NewSession("vs_1", "", now, time.Hour)
	require.NoError(t, s.Begin(Verifier{Org: "Acme", Purpose: "hiring"}, now))
	c := s.Clone()
	c.Verifier.Org = "changed"
	*c.BegunAt = now.Add(time.Hour)
	assert.Equal(t, "Acme", s.Verifier.Org)
	assert.Equal(t, now, *s.BegunAt)
}

func TestBeginRequestValidate(t *testing.T) {
	r := &BeginRequest{Org: "  Acme ", Purpose: " "}
	r.Normalize()
	assert.Equal(t, "Acme", r.Org)
	err := r.Validate()
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	r.Purpose = "hiring"
	assert.NoError(t, r.Validate())
}
