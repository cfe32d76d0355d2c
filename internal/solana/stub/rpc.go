package stub

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"

	"github.com/mr-tron/base58"

	"pump-launcher/internal/solana"
)

// ErrNoSignature is returned when a submitted transaction carries no signature.
var ErrNoSignature = errors.New("transaction has no signatures")

// RPCClient implements solana.RPCClient as an in-memory chain for testing.
// Every submitted transaction lands in the next slot with the configured
// execution error. It is safe for concurrent use.
type RPCClient struct {
	mu sync.Mutex

	// BlockHeight is the current block height.
	BlockHeight uint64
	// ValidWindow is added to BlockHeight to compute lastValidBlockHeight.
	ValidWindow uint64
	// SendErr, when set, is returned by SendTransaction.
	SendErr error
	// TxErr is the execution error recorded for submitted transactions.
	TxErr interface{}
	// Drop leaves submitted transactions without a status (never lands).
	Drop bool

	slot        uint64
	blockhashN  int
	blockhashes []string
	sent        [][]byte
	sendOpts    []solana.SendOptions
	statuses    map[string]*solana.SignatureStatus
	calls       []string
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		BlockHeight: 1000,
		ValidWindow: 150,
		slot:        5000,
		statuses:    make(map[string]*solana.SignatureStatus),
	}
}

// Compile-time interface check.
var _ solana.RPCClient = (*RPCClient)(nil)

// GetLatestBlockhash returns a fresh deterministic blockhash on every call.
func (c *RPCClient) GetLatestBlockhash(_ context.Context, _ solana.Commitment) (*solana.LatestBlockhash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, "getLatestBlockhash")
	c.blockhashN++
	hash := sha256.Sum256([]byte(fmt.Sprintf("stub-blockhash-%d", c.blockhashN)))
	blockhash := base58.Encode(hash[:])
	c.blockhashes = append(c.blockhashes, blockhash)

	return &solana.LatestBlockhash{
		Blockhash:            blockhash,
		LastValidBlockHeight: c.BlockHeight + c.ValidWindow,
		Slot:                 c.slot,
	}, nil
}

// SendTransaction records the transaction and derives its signature from the
// first signature slot of the wire format.
func (c *RPCClient) SendTransaction(_ context.Context, rawTx []byte, opts solana.SendOptions) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, "sendTransaction")
	if c.SendErr != nil {
		return "", c.SendErr
	}

	// compact-u16 signature count; a launch transaction has well under 128 signers.
	if len(rawTx) < 65 || rawTx[0] == 0 || rawTx[0] >= 0x80 {
		return "", ErrNoSignature
	}
	signature := base58.Encode(rawTx[1:65])

	txCopy := make([]byte, len(rawTx))
	copy(txCopy, rawTx)
	c.sent = append(c.sent, txCopy)
	c.sendOpts = append(c.sendOpts, opts)

	if !c.Drop {
		c.slot++
		c.statuses[signature] = &solana.SignatureStatus{
			Slot:               c.slot,
			Err:                c.TxErr,
			ConfirmationStatus: solana.CommitmentConfirmed,
		}
	}

	return signature, nil
}

// GetSignatureStatuses returns recorded statuses; unknown signatures are nil.
func (c *RPCClient) GetSignatureStatuses(_ context.Context, signatures ...string) ([]*solana.SignatureStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, "getSignatureStatuses")
	out := make([]*solana.SignatureStatus, len(signatures))
	for i, sig := range signatures {
		if st, ok := c.statuses[sig]; ok {
			stCopy := *st
			out[i] = &stCopy
		}
	}
	return out, nil
}

// GetBlockHeight returns the current block height and advances it by one,
// so a transaction that never lands eventually expires.
func (c *RPCClient) GetBlockHeight(_ context.Context, _ solana.Commitment) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, "getBlockHeight")
	height := c.BlockHeight
	c.BlockHeight++
	return height, nil
}

// SetStatus overrides the status of a signature.
func (c *RPCClient) SetStatus(signature string, status *solana.SignatureStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses[signature] = status
}

// Sent returns copies of all submitted transactions in submission order.
func (c *RPCClient) Sent() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.sent))
	copy(out, c.sent)
	return out
}

// SendOptions returns the options passed to each SendTransaction call.
func (c *RPCClient) SendOptions() []solana.SendOptions {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]solana.SendOptions, len(c.sendOpts))
	copy(out, c.sendOpts)
	return out
}

// Blockhashes returns every blockhash handed out, oldest first.
func (c *RPCClient) Blockhashes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.blockhashes))
	copy(out, c.blockhashes)
	return out
}

// Calls returns the RPC method names invoked, in order.
func (c *RPCClient) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.calls))
	copy(out, c.calls)
	return out
}
