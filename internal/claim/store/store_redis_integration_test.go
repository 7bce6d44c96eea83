//go:build integration

package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"vcanchor/internal/claim/models"
	"vcanchor/internal/claim/store"
	"vcanchor/pkg/platform/sentinel"
	"vcanchor/pkg/testutil/containers"
)

type RedisTicketStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *store.RedisStore
}

func TestRedisTicketStoreSuite(t *testing.T) {
	suite.Run(t, new(RedisTicketStoreSuite))
}

func (s *RedisTicketStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = store.NewRedis(s.redis.Client)
}

func (s *RedisTicketStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.Flush(context.Background()))
}

func newTicket(id, credID string) *models.Ticket {
	now := time.Now().UTC()
	return &models.Ticket{
		ID:           id,
		CredentialID: credID,
		TokenHash:    "hash_" + id,
		ClaimURL:     "https://vc.example/claims/" + id,
		CreatedAt:    now,
		ExpiresAt:    now.Add(10 * time.Minute),
	}
}

func (s *RedisTicketStoreSuite) TestExclusiveCreateAndLookup() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, newTicket("clm_1", "vc_a"), true))
	s.ErrorIs(s.store.Create(ctx, newTicket("clm_2", "vc_a"), true), sentinel.ErrConflict)

	active, err := s.store.FindActiveByCredential(ctx, "vc_a", time.Now())
	s.Require().NoError(err)
	s.Equal("clm_1", active.ID)

	byToken, err := s.store.FindByTokenHash(ctx, "hash_clm_1")
	s.Require().NoError(err)
	s.Equal("vc_a", byToken.CredentialID)
}

func (s *RedisTicketStoreSuite) TestConcurrentConsumeSucceedsOnce() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, newTicket("clm_1", "vc_a"), true))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.store.Consume(ctx, "clm_1", time.Now()); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	s.Equal(1, successes)

	_, err := s.store.FindActiveByCredential(ctx, "vc_a", time.Now())
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.NoError(s.store.Create(ctx, newTicket("clm_2", "vc_a"), true))
}
