package chain

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// MemoryClient commits roots to an in-process ledger. Failures can be
// injected to exercise the mint rollback path.
type MemoryClient struct {
	mu       sync.Mutex
	chainID  string
	roots    [][32]byte
	failNext int
	failErr  error
	now      func() time.Time
}

func NewMemoryClient(chainID string) *MemoryClient {
	return &MemoryClient{chainID: chainID, now: time.Now}
}

// FailNext makes the next n submissions return err (ErrRejected when nil).
func (c *MemoryClient) FailNext(n int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		err = ErrRejected
	}
	c.failNext = n
	c.failErr = err
}

func (c *MemoryClient) SubmitRoot(ctx context.Context, root [32]byte) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failNext > 0 {
		c.failNext--
		return nil, c.failErr
	}
	c.roots = append(c.roots, root)
	height := uint64(len(c.roots))

	var buf [40]byte
	copy(buf[:32], root[:])
	binary.BigEndian.PutUint64(buf[32:], height)
	tx := sha256.Sum256(buf[:])
	return &Receipt{
		TxHash:      "0x" + hex.EncodeToString(tx[:]),
		ChainID:     c.chainID,
		BlockNumber: height,
		SubmittedAt: c.now(),
	}, nil
}

func (c *MemoryClient) ChainID() string {
	return c.chainID
}

// Submitted returns the roots committed so far.
func (c *MemoryClient) Submitted() [][32]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][32]byte, len(c.roots))
	copy(out, c.roots)
	return out
}

func (c *MemoryClient) String() string {
	return fmt.Sprintf("memory(%s)", c.chainID)
}
