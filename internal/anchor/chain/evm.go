package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// EVMBackend is the subset of ethclient.Client the EVM client uses.
type EVMBackend interface {
	bind.DeployBackend
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// EVMClient anchors a root as the calldata of a zero-value transaction the
// operator account sends to itself, then waits for it to be mined.
type EVMClient struct {
	backend        EVMBackend
	key            *ecdsa.PrivateKey
	from           common.Address
	chainID        *big.Int
	confirmTimeout time.Duration

	// nonce assignment and send are serialized per operator account
	mu sync.Mutex
}

// DialEVM connects to rpcURL and loads the hex-encoded operator key.
func DialEVM(ctx context.Context, rpcURL, privateKeyHex string, chainID int64, confirmTimeout time.Duration) (*EVMClient, error) {
	backend, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	return NewEVMClient(backend, privateKeyHex, chainID, confirmTimeout)
}

func NewEVMClient(backend EVMBackend, privateKeyHex string, chainID int64, confirmTimeout time.Duration) (*EVMClient, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse operator key: %w", err)
	}
	if confirmTimeout <= 0 {
		confirmTimeout = 2 * time.Minute
	}
	return &EVMClient{
		backend:        backend,
		key:            key,
		from:           crypto.PubkeyToAddress(key.PublicKey),
		chainID:        big.NewInt(chainID),
		confirmTimeout: confirmTimeout,
	}, nil
}

func (c *EVMClient) ChainID() string {
	return strconv.FormatInt(c.chainID.Int64(), 10)
}

// Address returns the operator account.
func (c *EVMClient) Address() common.Address {
	return c.from
}

func (c *EVMClient) SubmitRoot(ctx context.Context, root [32]byte) (*Receipt, error) {
	signed, err := c.send(ctx, root)
	if err != nil {
		return nil, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()
	receipt, err := bind.WaitMined(waitCtx, c.backend, signed)
	if err != nil {
		return nil, fmt.Errorf("wait for %s: %w", signed.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w: tx %s reverted", ErrRejected, signed.Hash().Hex())
	}
	return &Receipt{
		TxHash:      signed.Hash().Hex(),
		ChainID:     c.ChainID(),
		BlockNumber: receipt.BlockNumber.Uint64(),
		SubmittedAt: time.Now(),
	}, nil
}

func (c *EVMClient) send(ctx context.Context, root [32]byte) (*types.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	nonce, err := c.backend.PendingNonceAt(ctx, c.from)
	if err != nil {
		return nil, fmt.Errorf("pending nonce: %w", err)
	}
	tip, err := c.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest tip: %w", err)
	}
	head, err := c.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("latest header: %w", err)
	}
	feeCap := new(big.Int).Set(tip)
	if head.BaseFee != nil {
		feeCap.Add(feeCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	}

	to := c.from
	data := root[:]
	gas, err := c.backend.EstimateGas(ctx, ethereum.CallMsg{From: c.from, To: &to, Data: data})
	if err != nil {
		return nil, fmt.Errorf("estimate gas: %w", err)
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   c.chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &to,
		Value:     big.NewInt(0),
		Data:      data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return nil, fmt.Errorf("sign tx: %w", err)
	}
	if err := c.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("send tx: %w", err)
	}
	return signed, nil
}
