//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"vcanchor/internal/verification/models"
	"vcanchor/internal/verification/store"
	"vcanchor/pkg/platform/sentinel"
	"vcanchor/pkg/testutil/containers"
)

type RedisSessionStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *store.RedisStore
}

func TestRedisSessionStoreSuite(t *testing.T) {
	suite.Run(t, new(RedisSessionStoreSuite))
}

func (s *RedisSessionStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = store.NewRedis(s.redis.Client)
}

func (s *RedisSessionStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.Flush(context.Background()))
}

func (s *RedisSessionStoreSuite) TestRoundTripsResolvedSession() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	session := models.NewSession("vs_1", "", now, time.Hour)
	s.Require().NoError(s.store.Create(ctx, session))
	s.ErrorIs(s.store.Create(ctx, session), sentinel.ErrConflict)

	s.Require().NoError(session.Begin(models.Verifier{Org: "Acme", Contact: "hr@acme.test", Purpose: "hiring"}, now))
	s.Require().NoError(s.store.Update(ctx, session))
	s.Require().NoError(session.Resolve("vc_1", models.Result{Valid: true, Reason: models.ReasonNotAnchored}, now))
	s.Require().NoError(s.store.Update(ctx, session))

	found, err := s.store.FindByID(ctx, "vs_1")
	s.Require().NoError(err)
	s.Equal(models.StateResolved, found.State)
	s.Equal("vc_1", found.CredentialID)
	s.Equal("hr@acme.test", found.Verifier.Contact)
	s.Equal(models.Result{Valid: true, Reason: models.ReasonNotAnchored}, found.CurrentResult())
	s.Equal(int64(2), found.Version)
	s.True(now.Equal(*found.ResolvedAt))

	ttl, err := s.redis.Client.TTL(ctx, "verification:session:vs_1").Result()
	s.Require().NoError(err)
	s.Greater(ttl, 50*time.Minute)
}

func (s *RedisSessionStoreSuite) TestStaleUpdateConflicts() {
	ctx := context.Background()
	now := time.Now().UTC()
	s.Require().NoError(s.store.Create(ctx, models.NewSession("vs_1", "", now, time.Hour)))

	a, err := s.store.FindByID(ctx, "vs_1")
	s.Require().NoError(err)
	b, err := s.store.FindByID(ctx, "vs_1")
	s.Require().NoError(err)

	s.Require().NoError(a.Begin(models.Verifier{Org: "Acme", Purpose: "hiring"}, now))
	s.Require().NoError(s.store.Update(ctx, a))
	s.Require().NoError(b.Begin(models.Verifier{Org: "Other", Purpose: "audit"}, now))
	s.ErrorIs(s.store.Update(ctx, b), sentinel.ErrConflict)

	_, err = s.store.FindByID(ctx, "vs_missing")
	s.ErrorIs(err, sentinel.ErrNotFound)
}
