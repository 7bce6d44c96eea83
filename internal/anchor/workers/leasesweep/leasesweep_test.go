package leasesweep

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingReleaser struct {
	mu      sync.Mutex
	cutoffs []time.Time
	ids     []string
	err     error
}

func (r *recordingReleaser) ReleaseStaleLeases(_ context.Context, cutoff time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cutoffs = append(r.cutoffs, cutoff)
	return r.ids, r.err
}

func (r *recordingReleaser) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cutoffs)
}

func TestNewRequiresReleaser(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestRunOnceUsesLeaseTTLCutoff(t *testing.T) {
	now := time.Date(2026, 4, 14, 10, 0, 0, 0, time.UTC)
	rel := &recordingReleaser{ids: []string{"vc_a", "vc_b"}}
	s, err := New(rel, WithLeaseTTL(5*time.Minute), WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	ids, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"vc_a", "vc_b"}, ids)
	require.Len(t, rel.cutoffs, 1)
	assert.Equal(t, now.Add(-5*time.Minute), rel.cutoffs[0])
}

func TestRunOnceWrapsReleaserError(t *testing.T) {
	boom := errors.New("db down")
	s, err := New(&recordingReleaser{err: boom})
	require.NoError(t, err)

	_, err = s.RunOnce(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestStartSweepsUntilCancelled(t *testing.T) {
	rel := &recordingReleaser{}
	s, err := New(rel, WithInterval(5*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	require.Eventually(t, func() bool { return rel.calls() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancellation")
	}
}

func TestStartKeepsRunningAfterFailure(t *testing.T) {
	rel := &recordingReleaser{err: errors.New("transient")}
	s, err := New(rel, WithInterval(5*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	require.Eventually(t, func() bool { return rel.calls() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}
