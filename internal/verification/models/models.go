package models

import (
	"time"

	dErrors "vcanchor/pkg/domain-errors"
)

// IDPrefix marks verification session identifiers.
const IDPrefix = "vs_"

type State string

const (
	StateCreated        State = "created"
	StateAwaitingHolder State = "awaiting_holder"
	StateResolved       State = "resolved"
)

// Reason explains a verification result.
type Reason string

const (
	ReasonOK                Reason = "ok"
	ReasonNotAnchored       Reason = "not_anchored"
	ReasonRevoked           Reason = "revoked"
	ReasonExpired           Reason = "expired"
	ReasonUnknownCredential Reason = "unknown_credential"
	ReasonIntegrityMismatch Reason = "integrity_mismatch"
	ReasonHolderDeclined    Reason = "holder_declined"
	// ReasonTimeout is never stored; the caller-side poller synthesizes it
	// when its wait budget runs out.
	ReasonTimeout Reason = "timeout_waiting_for_holder"
	ReasonPending Reason = "pending"
)

type Result struct {
	Valid  bool   `json:"valid"`
	Reason Reason `json:"reason"`
}

// PendingResult is what GetResult reports until the session resolves.
func PendingResult() Result {
	return Result{Reason: ReasonPending}
}

// IsPending reports whether r is still waiting on the holder.
func (r Result) IsPending() bool {
	return r.Reason == ReasonPending
}

// Verifier identifies the third party asking for disclosure.
type Verifier struct {
	Org     string `json:"org"`
	Contact string `json:"contact"`
	Purpose string `json:"purpose"`
}

// Session is a single verifier/holder negotiation. It moves
// created -> awaiting_holder -> resolved and never leaves resolved.
type Session struct {
	ID           string
	CredentialID string
	Verifier     *Verifier
	State        State
	Result       *Result
	CreatedAt    time.Time
	ExpiresAt    time.Time
	BegunAt      *time.Time
	ResolvedAt   *time.Time
	// Version increases on every stored transition; stores compare it to
	// reject concurrent writers.
	Version int64
}

func NewSession(id, credID string, now time.Time, ttl time.Duration) *Session {
	return &Session{
		ID:           id,
		CredentialID: credID,
		State:        StateCreated,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
	}
}

func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// CurrentResult returns the stored result, or pending while unresolved.
func (s *Session) CurrentResult() Result {
	if s.State != StateResolved || s.Result == nil {
		return PendingResult()
	}
	return *s.Result
}

// Begin records the verifier and waits for the holder. Only a created
// session can begin; a resolved one is immutable.
func (s *Session) Begin(v Verifier, now time.Time) error {
	if s.State != StateCreated {
		return dErrors.New(dErrors.CodeInvalidState, "verification session already "+string(s.State))
	}
	s.Verifier = &v
	s.State = StateAwaitingHolder
	s.BegunAt = &now
	return nil
}

// Resolve writes the result once. credID is the credential the holder presented.
func (s *Session) Resolve(credID string, result Result, now time.Time) error {
	switch s.State {
	case StateCreated:
		return dErrors.New(dErrors.CodeInvalidState, "verification session has not begun")
	case StateResolved:
		return dErrors.New(dErrors.CodeInvalidState, "verification session already resolved")
	}
	if result.IsPending() || result.Reason == ReasonTimeout {
		return dErrors.New(dErrors.CodeInternal, "cannot resolve with reason "+string(result.Reason))
	}
	s.CredentialID = credID
	s.Result = &result
	s.State = StateResolved
	s.ResolvedAt = &now
	return nil
}

func (s *Session) Clone() *Session {
	out := *s
	if s.Verifier != nil {
		v := *s.Verifier
		out.Verifier = &v
	}
	if s.Result != nil {
		r := *s.Result
		out.Result = &r
	}
	if s.BegunAt != nil {
		t := *s.BegunAt
		out.BegunAt = &t
	}
	if s.ResolvedAt != nil {
		t := *s.ResolvedAt
		out.ResolvedAt = &t
	}
	return &out
}

// HolderRequest is published to the holder's device when a session begins.
type HolderRequest struct {
	SessionID    string    `json:"session_id"`
	CredentialID string    `json:"credential_id,omitempty"`
	Verifier     Verifier  `json:"verifier"`
	RequestedAt  time.Time `json:"requested_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

