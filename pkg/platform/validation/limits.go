// Package validation holds the request size limits shared by every handler
// and the helpers that enforce them.
package validation

import (
	"fmt"
	"strings"

	dErrors "vcanchor/pkg/domain-errors"
)

// Slice element count limits
const (
	// MaxBulkIDs bounds approve and mint-selected requests.
	MaxBulkIDs = 500
)

// String element length limits
const (
	MaxIDLength         = 128
	MaxTemplateIDLength = 128
	MaxTokenLength      = 256

	// MaxVerifierFieldLength bounds what a verifier can push to a holder's
	// device.
	MaxVerifierFieldLength = 200
	MaxReasonLength        = 500
)

// CheckSliceCount validates that a slice does not exceed the maximum count.
func CheckSliceCount(fieldName string, count, max int) error {
	if count > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("too many %s: max %d allowed", fieldName, max))
	}
	return nil
}

// CheckStringLength validates that a string does not exceed the maximum length.
func CheckStringLength(fieldName, value string, max int) error {
	if len(value) > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s exceeds max length of %d", fieldName, max))
	}
	return nil
}

// CheckEachStringLength validates that each string in a slice does not exceed the maximum length.
func CheckEachStringLength(fieldName string, values []string, max int) error {
	for _, v := range values {
		if len(v) > max {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s exceeds max length of %d", fieldName, max))
		}
	}
	return nil
}

// DedupeAndTrim trims each value and drops empties and repeats, keeping the
// first occurrence order.
//
//	DedupeAndTrim([]string{" vc_1 ", "vc_2", "vc_1", ""}) // [vc_1 vc_2]
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
