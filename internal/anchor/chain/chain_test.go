package chain

import (
	"context"
	"crypto/sha256"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vcanchor/pkg/platform/circuit"
)

var testRoot = sha256.Sum256([]byte("root"))

func TestMemoryClient_SubmitRoot(t *testing.T) {
	c := NewMemoryClient("1337")

	r1, err := c.SubmitRoot(context.Background(), testRoot)
	require.NoError(t, err)
	r2, err := c.SubmitRoot(context.Background(), testRoot)
	require.NoError(t, err)

	assert.Equal(t, "1337", r1.ChainID)
	assert.NotEqual(t, r1.TxHash, r2.TxHash)
	assert.Equal(t, uint64(2), r2.BlockNumber)
	assert.Len(t, c.Submitted(), 2)
}

func TestMemoryClient_FailNext(t *testing.T) {
	c := NewMemoryClient("1337")
	c.FailNext(1, nil)

	_, err := c.SubmitRoot(context.Background(), testRoot)
	assert.ErrorIs(t, err, ErrRejected)
	assert.Empty(t, c.Submitted())

	_, err = c.SubmitRoot(context.Background(), testRoot)
	assert.NoError(t, err)
}

func TestResilient_RetriesUntilSuccess(t *testing.T) {
	inner := NewMemoryClient("1337")
	inner.FailNext(2, nil)
	var retries []int
	r := NewResilient(inner,
		WithAttempts(3),
		WithBackoff(0),
		WithRetryHook(func(attempt int, _ error) { retries = append(retries, attempt) }),
	)

	receipt, err := r.SubmitRoot(context.Background(), testRoot)
	require.NoError(t, err)
	assert.NotEmpty(t, receipt.TxHash)
	assert.Equal(t, []int{1, 2}, retries)
}

func TestResilient_ExhaustsAttempts(t *testing.T) {
	inner := NewMemoryClient("1337")
	boom := errors.New("rpc unavailable")
	inner.FailNext(5, boom)
	r := NewResilient(inner, WithAttempts(2), WithBackoff(0))

	_, err := r.SubmitRoot(context.Background(), testRoot)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, inner.Submitted())
}

func TestResilient_OpenBreakerShortCircuits(t *testing.T) {
	inner := NewMemoryClient("1337")
	inner.FailNext(1, nil)
	b := circuit.New("chain", circuit.WithFailureThreshold(1), circuit.WithCooldown(time.Hour))
	r := NewResilient(inner, WithAttempts(3), WithBackoff(0), WithBreaker(b))

	_, err := r.SubmitRoot(context.Background(), testRoot)
	assert.ErrorIs(t, err, circuit.ErrOpen)
	assert.Equal(t, circuit.StateOpen, r.Breaker().State())
}

func TestResilient_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewResilient(NewMemoryClient("1337"), WithBackoff(0))

	_, err := r.SubmitRoot(ctx, testRoot)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, circuit.StateClosed, r.Breaker().State())
}
