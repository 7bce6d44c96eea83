package cleanup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	claimmodels "vcanchor/internal/claim/models"
	claimstore "vcanchor/internal/claim/store"
	verificationmodels "vcanchor/internal/verification/models"
	sessionstore "vcanchor/internal/verification/store"
	"vcanchor/pkg/platform/sentinel"
	"vcanchor/pkg/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRunOnce_Integration(t *testing.T) {
	ctx := context.Background()
	tickets := claimstore.NewInMemoryStore()
	sessions := sessionstore.NewInMemoryStore()

	now := testutil.FixedNow
	old := &claimmodels.Ticket{
		ID:           "clm_old",
		CredentialID: "vc_a",
		TokenHash:    "hash_old",
		CreatedAt:    now.Add(-3 * time.Hour),
		ExpiresAt:    now.Add(-2 * time.Hour),
	}
	fresh := &claimmodels.Ticket{
		ID:           "clm_fresh",
		CredentialID: "vc_b",
		TokenHash:    "hash_fresh",
		CreatedAt:    now,
		ExpiresAt:    now.Add(15 * time.Minute),
	}
	require.NoError(t, tickets.Create(ctx, old, false))
	require.NoError(t, tickets.Create(ctx, fresh, false))
	require.NoError(t, sessions.Create(ctx, verificationmodels.NewSession("vs_old", "", now.Add(-25*time.Hour), 24*time.Hour)))
	require.NoError(t, sessions.Create(ctx, verificationmodels.NewSession("vs_fresh", "", now, 24*time.Hour)))

	svc, err := New(tickets, sessions, WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	res, err := svc.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{DeletedTickets: 1, DeletedSessions: 1}, res)

	_, err = tickets.FindByID(ctx, "clm_old")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	_, err = tickets.FindByID(ctx, "clm_fresh")
	assert.NoError(t, err)
	_, err = sessions.FindByID(ctx, "vs_old")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	_, err = sessions.FindByID(ctx, "vs_fresh")
	assert.NoError(t, err)
}

type failingStore struct{ err error }

func (f failingStore) DeleteExpired(context.Context, time.Time) (int, error) {
	return 0, f.err
}

type countingStore struct{ n int }

func (c countingStore) DeleteExpired(context.Context, time.Time) (int, error) {
	return c.n, nil
}

func TestRunOnce_JoinsErrors(t *testing.T) {
	boom := errors.New("store unavailable")
	svc, err := New(failingStore{err: boom}, countingStore{n: 3})
	require.NoError(t, err)

	res, err := svc.RunOnce(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, res.DeletedSessions, "a failing ticket store does not skip sessions")
}

func TestNew_RequiresStores(t *testing.T) {
	_, err := New(nil, countingStore{})
	assert.Error(t, err)
}

func TestStart_StopsOnCancel(t *testing.T) {
	svc, err := New(countingStore{}, countingStore{}, WithInterval(time.Millisecond))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- svc.Start(ctx) }()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
