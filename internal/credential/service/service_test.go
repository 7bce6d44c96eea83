package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"vcanchor/internal/credential/models"
	"vcanchor/internal/credential/store"
	dErrors "vcanchor/pkg/domain-errors"
	"vcanchor/pkg/platform/audit"
	"vcanchor/pkg/platform/audit/publisher"
	auditmemory "vcanchor/pkg/platform/audit/store/memory"
	"vcanchor/pkg/requestcontext"
	"vcanchor/pkg/testutil"
)

type CredentialServiceSuite struct {
	suite.Suite
	ctx     context.Context
	store   *store.InMemoryStore
	audit   *auditmemory.Store
	service *Service
}

func TestCredentialServiceSuite(t *testing.T) {
	suite.Run(t, new(CredentialServiceSuite))
}

func (s *CredentialServiceSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), testutil.FixedNow)
	s.store = store.NewInMemoryStore()
	s.audit = auditmemory.New()
	seq := 0
	s.service = New(s.store,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithAuditor(publisher.New(s.audit)),
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("test%d", seq)
		}),
	)
}

func (s *CredentialServiceSuite) issueRequest() *models.IssueRequest {
	return &models.IssueRequest{
		TemplateID: "tpl_bsc_cs",
		Subject:    map[string]any{"name": "Ada", "program": "BSc CS"},
	}
}

func (s *CredentialServiceSuite) TestIssueCreatesUnanchoredCredential() {
	c, err := s.service.Issue(s.ctx, s.issueRequest())
	s.Require().NoError(err)

	s.Equal("vc_test1", c.ID)
	s.Equal(testutil.FixedNow, c.IssuedAt)
	s.Equal(models.StatusUnanchored, c.Anchoring.Status())
	s.False(c.IsClaimed())

	stored, err := s.store.FindByID(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(c.TemplateID, stored.TemplateID)
	s.Len(s.audit.ListByAction(s.ctx, audit.ActionCredentialIssued), 1)
}

func (s *CredentialServiceSuite) TestIssueRejectsPastExpiry() {
	req := s.issueRequest()
	past := testutil.FixedNow.Add(-time.Hour)
	req.ExpiresAt = &past

	_, err := s.service.Issue(s.ctx, req)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *CredentialServiceSuite) TestGetUnknown() {
	_, err := s.service.Get(s.ctx, "vc_missing")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *CredentialServiceSuite) TestRevokeKeepsFirstTimestamp() {
	c, err := s.service.Issue(s.ctx, s.issueRequest())
	s.Require().NoError(err)

	revoked, err := s.service.Revoke(s.ctx, c.ID, "issued in error")
	s.Require().NoError(err)
	s.Require().NotNil(revoked.RevokedAt)
	s.Equal(testutil.FixedNow, *revoked.RevokedAt)

	later := requestcontext.WithTime(context.Background(), testutil.FixedNow.Add(time.Hour))
	again, err := s.service.Revoke(later, c.ID, "duplicate")
	s.Require().NoError(err)
	s.Equal(testutil.FixedNow, *again.RevokedAt)
	s.Len(s.audit.ListByAction(s.ctx, audit.ActionCredentialRevoked), 2)
}

func (s *CredentialServiceSuite) TestRevokeUnknown() {
	_, err := s.service.Revoke(s.ctx, "vc_missing", "")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
