package models

import (
	"strings"

	dErrors "vcanchor/pkg/domain-errors"
	"vcanchor/pkg/platform/validation"
)

type EnsureClaimRequest struct {
	CredentialID string `json:"credId"`
	// SingleActive defaults to true when omitted.
	SingleActive *bool `json:"singleActive,omitempty"`
}

func (r *EnsureClaimRequest) Normalize() {
	r.CredentialID = strings.TrimSpace(r.CredentialID)
	if r.SingleActive == nil {
		v := true
		r.SingleActive = &v
	}
}

func (r *EnsureClaimRequest) Validate() error {
	if r.CredentialID == "" {
		return dErrors.New(dErrors.CodeValidation, "credId is required")
	}
	return validation.CheckStringLength("credId", r.CredentialID, validation.MaxIDLength)
}

type RedeemRequest struct {
	Token string `json:"token"`
}

func (r *RedeemRequest) Normalize() {
	r.Token = strings.TrimSpace(r.Token)
}

func (r *RedeemRequest) Validate() error {
	if r.Token == "" {
		return dErrors.New(dErrors.CodeValidation, "token is required")
	}
	return validation.CheckStringLength("token", r.Token, validation.MaxTokenLength)
}
