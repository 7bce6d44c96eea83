package poller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"vcanchor/internal/verification/models"
	dErrors "vcanchor/pkg/domain-errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type scriptedFetcher struct {
	mu      sync.Mutex
	replies []reply
	calls   int
}

type reply struct {
	result models.Result
	err    error
}

// GetResult plays replies in order and repeats the last one.
func (f *scriptedFetcher) GetResult(context.Context, string) (models.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	if i >= len(f.replies) {
		i = len(f.replies) - 1
	}
	f.calls++
	return f.replies[i].result, f.replies[i].err
}

func (f *scriptedFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

var (
	pending  = reply{result: models.PendingResult()}
	resolved = reply{result: models.Result{Valid: true, Reason: models.ReasonOK}}
	quiet    = WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
)

func TestWaitReturnsResolution(t *testing.T) {
	f := &scriptedFetcher{replies: []reply{pending, pending, resolved}}
	var pendingSeen []int
	p := New(f, WithInterval(time.Millisecond), WithBudget(time.Minute), quiet,
		WithOnPending(func(attempt int, _ time.Duration) { pendingSeen = append(pendingSeen, attempt) }))

	result, err := p.Wait(context.Background(), "vs_1")
	require.NoError(t, err)
	assert.Equal(t, models.Result{Valid: true, Reason: models.ReasonOK}, result)
	assert.Equal(t, 3, f.count())
	assert.Equal(t, []int{1, 2}, pendingSeen)
}

func TestWaitResolvedNegativeIsNotRetried(t *testing.T) {
	f := &scriptedFetcher{replies: []reply{{result: models.Result{Reason: models.ReasonRevoked}}}}
	p := New(f, WithInterval(time.Millisecond), quiet)

	result, err := p.Wait(context.Background(), "vs_1")
	require.NoError(t, err)
	assert.Equal(t, models.ReasonRevoked, result.Reason)
	assert.Equal(t, 1, f.count())
}

func TestWaitSynthesizesTimeout(t *testing.T) {
	f := &scriptedFetcher{replies: []reply{pending}}
	p := New(f, WithInterval(5*time.Millisecond), WithBudget(30*time.Millisecond), quiet)

	result, err := p.Wait(context.Background(), "vs_1")
	require.NoError(t, err)
	assert.Equal(t, models.Result{Valid: false, Reason: models.ReasonTimeout}, result)
	assert.Greater(t, f.count(), 1)
}

func TestWaitRetriesTransientErrors(t *testing.T) {
	f := &scriptedFetcher{replies: []reply{
		{err: errors.New("connection refused")},
		{err: dErrors.New(dErrors.CodeInternal, "internal_error")},
		resolved,
	}}
	p := New(f, WithInterval(time.Millisecond), WithBudget(time.Minute), quiet)

	result, err := p.Wait(context.Background(), "vs_1")
	require.NoError(t, err)
	assert.Equal(t, models.ReasonOK, result.Reason)
}

func TestWaitStopsOnPermanentError(t *testing.T) {
	f := &scriptedFetcher{replies: []reply{{err: dErrors.New(dErrors.CodeNotFound, "verification session not found")}}}
	p := New(f, WithInterval(time.Millisecond), WithBudget(time.Minute), quiet)

	_, err := p.Wait(context.Background(), "vs_1")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	assert.Equal(t, 1, f.count())
}

func TestWaitIsCancelable(t *testing.T) {
	f := &scriptedFetcher{replies: []reply{pending}}
	p := New(f, WithInterval(5*time.Millisecond), WithBudget(time.Minute), quiet)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := p.Wait(ctx, "vs_1")
		done <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after cancel")
	}
}

func TestDefaults(t *testing.T) {
	p := New(&scriptedFetcher{replies: []reply{pending}})
	assert.Equal(t, 800*time.Millisecond, p.interval)
	assert.Equal(t, 120*time.Second, p.budget)
}
