package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"vcanchor/internal/claim/models"
	"vcanchor/pkg/platform/sentinel"
	"vcanchor/pkg/testutil"
)

type InMemoryTicketStoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *InMemoryStore
}

func TestInMemoryTicketStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryTicketStoreSuite))
}

func (s *InMemoryTicketStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewInMemoryStore()
}

func ticket(id, credID string) *models.Ticket {
	return &models.Ticket{
		ID:           id,
		CredentialID: credID,
		TokenHash:    "hash_" + id,
		ClaimURL:     "https://vc.example/claims/" + id,
		CreatedAt:    testutil.FixedNow,
		ExpiresAt:    testutil.FixedNow.Add(15 * time.Minute),
	}
}

func (s *InMemoryTicketStoreSuite) TestExclusiveCreateGuardsActiveTicket() {
	s.Require().NoError(s.store.Create(s.ctx, ticket("clm_1", "vc_a"), true))

	err := s.store.Create(s.ctx, ticket("clm_2", "vc_a"), true)
	s.ErrorIs(err, sentinel.ErrConflict)

	s.Require().NoError(s.store.Create(s.ctx, ticket("clm_3", "vc_a"), false))
	active, err := s.store.FindActiveByCredential(s.ctx, "vc_a", testutil.FixedNow)
	s.Require().NoError(err)
	s.Equal("clm_3", active.ID)
}

func (s *InMemoryTicketStoreSuite) TestExclusiveCreateAfterConsumption() {
	s.Require().NoError(s.store.Create(s.ctx, ticket("clm_1", "vc_a"), true))
	s.Require().NoError(s.store.Consume(s.ctx, "clm_1", testutil.FixedNow))

	_, err := s.store.FindActiveByCredential(s.ctx, "vc_a", testutil.FixedNow)
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.NoError(s.store.Create(s.ctx, ticket("clm_2", "vc_a"), true))
}

func (s *InMemoryTicketStoreSuite) TestFindActiveIgnoresExpired() {
	s.Require().NoError(s.store.Create(s.ctx, ticket("clm_1", "vc_a"), true))

	_, err := s.store.FindActiveByCredential(s.ctx, "vc_a", testutil.FixedNow.Add(15*time.Minute))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryTicketStoreSuite) TestConsumeOnce() {
	s.Require().NoError(s.store.Create(s.ctx, ticket("clm_1", "vc_a"), true))

	s.Require().NoError(s.store.Consume(s.ctx, "clm_1", testutil.FixedNow))
	s.ErrorIs(s.store.Consume(s.ctx, "clm_1", testutil.FixedNow), sentinel.ErrAlreadyUsed)
	s.ErrorIs(s.store.Consume(s.ctx, "clm_missing", testutil.FixedNow), sentinel.ErrNotFound)

	byToken, err := s.store.FindByTokenHash(s.ctx, "hash_clm_1")
	s.Require().NoError(err)
	s.True(byToken.IsConsumed())
}

func (s *InMemoryTicketStoreSuite) TestReopenRestoresActiveTicket() {
	s.Require().NoError(s.store.Create(s.ctx, ticket("clm_1", "vc_a"), true))
	s.Require().NoError(s.store.Consume(s.ctx, "clm_1", testutil.FixedNow))

	s.Require().NoError(s.store.Reopen(s.ctx, "clm_1"))

	active, err := s.store.FindActiveByCredential(s.ctx, "vc_a", testutil.FixedNow)
	s.Require().NoError(err)
	s.Equal("clm_1", active.ID)
	s.ErrorIs(s.store.Reopen(s.ctx, "clm_missing"), sentinel.ErrNotFound)
}

func (s *InMemoryTicketStoreSuite) TestDeleteExpiredHonoursRetention() {
	s.Require().NoError(s.store.Create(s.ctx, ticket("clm_1", "vc_a"), true))

	n, err := s.store.DeleteExpired(s.ctx, testutil.FixedNow.Add(30*time.Minute))
	s.Require().NoError(err)
	s.Zero(n)

	n, err = s.store.DeleteExpired(s.ctx, testutil.FixedNow.Add(2*time.Hour))
	s.Require().NoError(err)
	s.Equal(1, n)
	_, err = s.store.FindByTokenHash(s.ctx, "hash_clm_1")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryTicketStoreSuite) TestReturnedTicketsAreCopies() {
	s.Require().NoError(s.store.Create(s.ctx, ticket("clm_1", "vc_a"), true))

	t, err := s.store.FindByID(s.ctx, "clm_1")
	s.Require().NoError(err)
	now := testutil.FixedNow
	t.ConsumedAt = &now

	again, err := s.store.FindByID(s.ctx, "clm_1")
	s.Require().NoError(err)
	s.False(again.IsConsumed())
}
