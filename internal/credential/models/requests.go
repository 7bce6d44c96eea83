package models

import (
	"strings"
	"time"

	dErrors "vcanchor/pkg/domain-errors"
	"vcanchor/pkg/platform/validation"
)

// IssueRequest registers a credential produced by the external issuance flow.
type IssueRequest struct {
	TemplateID string         `json:"template_id"`
	Subject    map[string]any `json:"subject"`
	ExpiresAt  *time.Time     `json:"expires_at,omitempty"`
}

func (r *IssueRequest) Normalize() {
	r.TemplateID = strings.TrimSpace(r.TemplateID)
}

func (r *IssueRequest) Validate() error {
	if r.TemplateID == "" {
		return dErrors.New(dErrors.CodeValidation, "template_id is required")
	}
	if err := validation.CheckStringLength("template_id", r.TemplateID, validation.MaxTemplateIDLength); err != nil {
		return err
	}
	if len(r.Subject) == 0 {
		return dErrors.New(dErrors.CodeValidation, "subject is required")
	}
	return nil
}

// RevokeRequest marks a credential revoked.
type RevokeRequest struct {
	Reason string `json:"reason"`
}

func (r *RevokeRequest) Normalize() {
	r.Reason = strings.TrimSpace(r.Reason)
}

func (r *RevokeRequest) Validate() error {
	return validation.CheckStringLength("reason", r.Reason, validation.MaxReasonLength)
}
