package solana

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// DefaultPollInterval is the default interval between confirmation status polls.
const DefaultPollInterval = 2 * time.Second

// ErrBlockHeightExceeded is returned when the blockhash validity window closes
// before the transaction reaches the requested commitment.
var ErrBlockHeightExceeded = errors.New("block height exceeded: transaction expired")

// Connection is the network capability used by a launch: blockhash lookup,
// submission and confirmation. It is safe for concurrent use by multiple
// in-flight launches as long as the underlying clients are.
type Connection struct {
	rpc          RPCClient
	ws           WSClient
	commitment   Commitment
	pollInterval time.Duration
	logger       zerolog.Logger
}

// ConnectionOptions for creating Connection.
type ConnectionOptions struct {
	RPC RPCClient
	// WS is optional; when set, confirmation listens for a signature
	// notification in addition to polling.
	WS           WSClient
	Commitment   Commitment
	PollInterval time.Duration
	Logger       zerolog.Logger
}

// NewConnection creates a new Connection.
func NewConnection(opts ConnectionOptions) *Connection {
	c := &Connection{
		rpc:          opts.RPC,
		ws:           opts.WS,
		commitment:   opts.Commitment,
		pollInterval: opts.PollInterval,
		logger:       opts.Logger,
	}
	// Launches are reported only once confirmed; processed is not enough.
	if !c.commitment.Satisfies(CommitmentConfirmed) {
		c.commitment = CommitmentConfirmed
	}
	if c.pollInterval <= 0 {
		c.pollInterval = DefaultPollInterval
	}
	return c
}

// Commitment returns the commitment level used for blockhash and confirmation.
func (c *Connection) Commitment() Commitment {
	return c.commitment
}

// GetLatestBlockhash fetches a blockhash at the connection's commitment.
func (c *Connection) GetLatestBlockhash(ctx context.Context) (*LatestBlockhash, error) {
	return c.rpc.GetLatestBlockhash(ctx, c.commitment)
}

// SendTransaction broadcasts a signed transaction.
func (c *Connection) SendTransaction(ctx context.Context, rawTx []byte, opts SendOptions) (string, error) {
	return c.rpc.SendTransaction(ctx, rawTx, opts)
}

// ConfirmTransaction blocks until the signature reaches the connection's
// commitment, the blockhash validity window closes, or ctx is done.
// An on-chain execution failure is reported through ConfirmResult.Err, not
// as an error.
func (c *Connection) ConfirmTransaction(ctx context.Context, req ConfirmRequest) (*ConfirmResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Subscribe alongside polling; the first status check never waits on the node.
	var (
		notifications <-chan SignatureNotification
		subscribed    chan (<-chan SignatureNotification)
	)
	if c.ws != nil {
		subscribed = make(chan (<-chan SignatureNotification), 1)
		go func() {
			ch, err := c.ws.SubscribeSignature(ctx, req.Signature, c.commitment)
			if err != nil {
				if ctx.Err() == nil {
					c.logger.Warn().Err(err).Str("signature", req.Signature).Msg("signature subscription failed, polling only")
				}
				return
			}
			subscribed <- ch
		}()
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		result, err := c.checkStatus(ctx, req)
		if err != nil {
			return nil, err
		}
		if result != nil {
			return result, nil
		}

		select {
		case ch := <-subscribed:
			notifications = ch
			subscribed = nil
			continue
		case n, ok := <-notifications:
			if !ok {
				// Client shut down; keep polling.
				notifications = nil
				continue
			}
			return &ConfirmResult{Slot: n.Slot, Err: n.Err}, nil
		case <-ticker.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// checkStatus returns a result once the signature reached the target
// commitment, nil while it is still pending, or ErrBlockHeightExceeded.
func (c *Connection) checkStatus(ctx context.Context, req ConfirmRequest) (*ConfirmResult, error) {
	result, err := c.lookupStatus(ctx, req.Signature)
	if err != nil || result != nil {
		return result, err
	}

	height, err := c.rpc.GetBlockHeight(ctx, c.commitment)
	if err != nil {
		return nil, fmt.Errorf("get block height: %w", err)
	}
	if height <= req.LastValidBlockHeight {
		return nil, nil
	}

	// The window closed; the transaction may still have landed in the last valid block.
	result, err = c.lookupStatus(ctx, req.Signature)
	if err != nil || result != nil {
		return result, err
	}
	return nil, fmt.Errorf("signature %s: %w (height %d > last valid %d)",
		req.Signature, ErrBlockHeightExceeded, height, req.LastValidBlockHeight)
}

func (c *Connection) lookupStatus(ctx context.Context, signature string) (*ConfirmResult, error) {
	statuses, err := c.rpc.GetSignatureStatuses(ctx, signature)
	if err != nil {
		return nil, fmt.Errorf("get signature status: %w", err)
	}
	if len(statuses) == 0 || statuses[0] == nil {
		return nil, nil
	}
	st := statuses[0]
	if !st.ConfirmationStatus.Satisfies(c.commitment) {
		return nil, nil
	}
	return &ConfirmResult{Slot: st.Slot, Err: st.Err}, nil
}
