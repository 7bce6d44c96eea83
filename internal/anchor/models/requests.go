package models

import (
	"strings"

	credmodels "vcanchor/internal/credential/models"
	dErrors "vcanchor/pkg/domain-errors"
	"vcanchor/pkg/platform/validation"
)

type ApproveRequest struct {
	CredentialIDs []string                `json:"credIds"`
	ApprovedMode  credmodels.ApprovedMode `json:"approved_mode"`
}

func (r *ApproveRequest) Normalize() {
	r.CredentialIDs = validation.DedupeAndTrim(r.CredentialIDs)
	r.ApprovedMode = credmodels.ApprovedMode(strings.ToLower(strings.TrimSpace(string(r.ApprovedMode))))
}

func (r *ApproveRequest) Validate() error {
	if len(r.CredentialIDs) == 0 {
		return dErrors.New(dErrors.CodeValidation, "credIds must not be empty")
	}
	if err := checkIDs(r.CredentialIDs); err != nil {
		return err
	}
	if !r.ApprovedMode.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "approved_mode must be single or batch")
	}
	return nil
}

type MintSelectedRequest struct {
	CredentialIDs []string `json:"credIds"`
}

func (r *MintSelectedRequest) Normalize() {
	r.CredentialIDs = validation.DedupeAndTrim(r.CredentialIDs)
}

func (r *MintSelectedRequest) Validate() error {
	if len(r.CredentialIDs) == 0 {
		return dErrors.New(dErrors.CodeValidation, "credIds must not be empty")
	}
	if err := checkIDs(r.CredentialIDs); err != nil {
		return err
	}
	return nil
}

func checkIDs(ids []string) error {
	if err := validation.CheckSliceCount("credIds", len(ids), validation.MaxBulkIDs); err != nil {
		return err
	}
	return validation.CheckEachStringLength("credIds", ids, validation.MaxIDLength)
}
