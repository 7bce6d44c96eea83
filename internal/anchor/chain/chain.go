// Package chain submits Merkle roots to a ledger and returns the transaction
// that carries them.
package chain

import (
	"context"
	"errors"
	"time"
)

// ErrRejected marks a submission the ledger refused outright. The minter
// reports it as a chain submission failure like any transport error.
var ErrRejected = errors.New("chain: submission rejected")

// Receipt identifies the transaction that committed a root.
type Receipt struct {
	TxHash      string
	ChainID     string
	BlockNumber uint64
	SubmittedAt time.Time
}

// Client accepts a 32-byte root and returns the transaction receipt once the
// root is committed.
type Client interface {
	SubmitRoot(ctx context.Context, root [32]byte) (*Receipt, error)
	ChainID() string
}
