package models

import (
	"strings"

	"vcanchor/pkg/platform/validation"
)

type CreateSessionRequest struct {
	CredentialID string `json:"credential_id,omitempty"`
}

func (r *CreateSessionRequest) Normalize() {
	r.CredentialID = strings.TrimSpace(r.CredentialID)
}

func (r *CreateSessionRequest) Validate() error {
	return validation.CheckStringLength("credential_id", r.CredentialID, validation.MaxIDLength)
}

type BeginRequest struct {
	Org     string `json:"org" validate:"required,notblank,max=200"`
	Contact string `json:"contact" validate:"max=200"`
	Purpose string `json:"purpose" validate:"required,notblank,max=200"`
}

func (r *BeginRequest) Normalize() {
	r.Org = strings.TrimSpace(r.Org)
	r.Contact = strings.TrimSpace(r.Contact)
	r.Purpose = strings.TrimSpace(r.Purpose)
}

// Validate keeps verifier fields within MaxVerifierFieldLength, since they
// are pushed verbatim to the holder's device.
func (r *BeginRequest) Validate() error {
	return validation.Validate(r)
}

func (r *BeginRequest) Verifier() Verifier {
	return Verifier{Org: r.Org, Contact: r.Contact, Purpose: r.Purpose}
}

// PresentRequest is the holder's consent decision. Approve defaults to false
// so an empty body never discloses anything.
type PresentRequest struct {
	CredentialID string `json:"credential_id"`
	Approve      bool   `json:"approve"`
}

func (r *PresentRequest) Normalize() {
	r.CredentialID = strings.TrimSpace(r.CredentialID)
}

func (r *PresentRequest) Validate() error {
	return validation.CheckStringLength("credential_id", r.CredentialID, validation.MaxIDLength)
}
