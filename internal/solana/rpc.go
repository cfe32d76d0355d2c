package solana

import "context"

// RPCClient defines the Solana RPC HTTP methods used by the launch pipeline.
type RPCClient interface {
	// GetLatestBlockhash returns the most recent blockhash and the last block
	// height at which a transaction referencing it is still valid.
	GetLatestBlockhash(ctx context.Context, commitment Commitment) (*LatestBlockhash, error)

	// SendTransaction submits a fully signed, wire-encoded transaction and
	// returns its base58 signature.
	SendTransaction(ctx context.Context, rawTx []byte, opts SendOptions) (string, error)

	// GetSignatureStatuses returns one entry per signature; unknown
	// signatures yield a nil entry.
	GetSignatureStatuses(ctx context.Context, signatures ...string) ([]*SignatureStatus, error)

	// GetBlockHeight returns the current block height.
	GetBlockHeight(ctx context.Context, commitment Commitment) (uint64, error)
}

// LatestBlockhash is the result of getLatestBlockhash.
type LatestBlockhash struct {
	Blockhash            string
	LastValidBlockHeight uint64
	Slot                 uint64
}

// SendOptions configures sendTransaction.
type SendOptions struct {
	SkipPreflight       bool
	PreflightCommitment Commitment
	// MaxRetries is forwarded to the node, which rebroadcasts the transaction
	// up to this many times. Nil leaves the node default in place.
	MaxRetries *uint
}

// SignatureStatus is a single entry of getSignatureStatuses.
type SignatureStatus struct {
	Slot               uint64
	Confirmations      *uint64 // nil once rooted
	Err                interface{}
	ConfirmationStatus Commitment
}
