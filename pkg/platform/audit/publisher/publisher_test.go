package publisher

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

	"vcanchor/pkg/platform/audit"
	"vcanchor/pkg/platform/audit/store/memory"
	"vcanchor/pkg/requestcontext"
)

type failingStore struct {
	err error
}

func (s *failingStore) Append(_ context.Context, _ audit.Event) error {
	return s.err
}

type blockingStore struct {
	release chan struct{}
	mu      sync.Mutex
	count   int
}

func (s *blockingStore) Append(_ context.Context, _ audit.Event) error {
	<-s.release
	s.mu.Lock()
	s.count++
	s.mu.Unlock()
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPublisher_EmitStoresEvent(t *testing.T) {
	store := memory.New()
	pub := New(store)

	err := pub.Emit(context.Background(), audit.Event{Action: audit.ActionAnchorEnqueued, CredentialID: "vc_1"})
	require.NoError(t, err)

	events := store.ListByAction(context.Background(), audit.ActionAnchorEnqueued)
	require.Len(t, events, 1)
	assert.Equal(t, "vc_1", events[0].CredentialID)
}

func TestPublisher_EnrichesFromContext(t *testing.T) {
	store := memory.New()
	pub := New(store)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	ctx := requestcontext.WithTime(context.Background(), now)
	ctx = requestcontext.WithRequestID(ctx, "req-9")
	ctx = requestcontext.WithSubject(ctx, "registrar")
	ctx = requestcontext.WithClientDevice(ctx, "anchorctl")
	require.NoError(t, pub.Emit(ctx, audit.Event{Action: audit.ActionAnchorApproved}))

	got := store.All()[0]
	assert.Equal(t, now, got.Timestamp)
	assert.Equal(t, "req-9", got.RequestID)
	assert.Equal(t, "registrar", got.Actor)
	assert.Equal(t, "anchorctl", got.Client)
}

func TestPublisher_SyncPropagatesStoreError(t *testing.T) {
	pub := New(&failingStore{err: errors.New("disk full")}, WithLogger(quietLogger()))

	err := pub.Emit(context.Background(), audit.Event{Action: audit.ActionClaimIssued})
	require.ErrorContains(t, err, "disk full")
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.New()
	pub := New(store, WithAsyncBuffer(16))

	for range 10 {
		require.NoError(t, pub.Emit(context.Background(), audit.Event{Action: audit.ActionClaimRedeemed}))
	}
	pub.Close()

	assert.Len(t, store.All(), 10)
}

func TestPublisher_AsyncDropsWhenFull(t *testing.T) {
	store := &blockingStore{release: make(chan struct{})}
	pub := New(store, WithAsyncBuffer(1), WithLogger(quietLogger()))

	// The worker takes the first event and blocks; the second fills the buffer.
	require.NoError(t, pub.Emit(context.Background(), audit.Event{Action: audit.ActionBatchMinted}))
	require.Eventually(t, func() bool {
		return pub.Emit(context.Background(), audit.Event{Action: audit.ActionBatchMinted}) == nil
	}, time.Second, time.Millisecond)

	err := pub.Emit(context.Background(), audit.Event{Action: audit.ActionBatchMinted})
	require.Error(t, err)

	close(store.release)
	pub.Close()
	assert.Equal(t, 2, store.count)
}
