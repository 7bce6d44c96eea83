package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	dErrors "vcanchor/pkg/domain-errors"
)

// LimitsSuite covers the trust-boundary validators: max must pass and
// max+1 must fail.
type LimitsSuite struct {
	suite.Suite
}

func TestLimitsSuite(t *testing.T) {
	suite.Run(t, new(LimitsSuite))
}

func (s *LimitsSuite) TestCheckSliceCount() {
	s.Run("passes when count equals max", func() {
		s.NoError(CheckSliceCount("credIds", MaxBulkIDs, MaxBulkIDs))
	})

	s.Run("passes when count is zero", func() {
		s.NoError(CheckSliceCount("credIds", 0, MaxBulkIDs))
	})

	s.Run("fails when count exceeds max", func() {
		err := CheckSliceCount("credIds", MaxBulkIDs+1, MaxBulkIDs)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Contains(err.Error(), "too many credIds")
		s.Contains(err.Error(), "max 500 allowed")
	})
}

func (s *LimitsSuite) TestCheckStringLength() {
	s.Run("passes when length equals max", func() {
		s.NoError(CheckStringLength("org", strings.Repeat("a", MaxVerifierFieldLength), MaxVerifierFieldLength))
	})

	s.Run("fails when length exceeds max", func() {
		err := CheckStringLength("org", strings.Repeat("a", MaxVerifierFieldLength+1), MaxVerifierFieldLength)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Contains(err.Error(), "org exceeds max length of 200")
	})
}

func (s *LimitsSuite) TestCheckEachStringLength() {
	s.Run("passes when every element fits", func() {
		s.NoError(CheckEachStringLength("credIds", []string{"vc_1", strings.Repeat("x", MaxIDLength)}, MaxIDLength))
	})

	s.Run("fails on the first oversized element", func() {
		err := CheckEachStringLength("credIds", []string{"vc_1", strings.Repeat("x", MaxIDLength+1)}, MaxIDLength)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *LimitsSuite) TestDedupeAndTrim() {
	s.Equal([]string{"vc_1", "vc_2"}, DedupeAndTrim([]string{" vc_1 ", "vc_2", "vc_1", "", "  "}))
	s.Empty(DedupeAndTrim(nil))
}
