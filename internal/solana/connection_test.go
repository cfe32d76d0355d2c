package solana_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pump-launcher/internal/solana"
	"pump-launcher/internal/solana/stub"
)

// fakeWS delivers a fixed notification for every subscription.
type fakeWS struct {
	notification *solana.SignatureNotification
	err          error

	mu         sync.Mutex
	subscribed []string
}

func (f *fakeWS) SubscribeSignature(_ context.Context, signature string, _ solana.Commitment) (<-chan solana.SignatureNotification, error) {
	f.mu.Lock()
	f.subscribed = append(f.subscribed, signature)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan solana.SignatureNotification, 1)
	if f.notification != nil {
		n := *f.notification
		n.Signature = signature
		ch <- n
	}
	close(ch)
	return ch, nil
}

func (f *fakeWS) Close() error { return nil }

func (f *fakeWS) signatures() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.subscribed...)
}

func newConnection(rpc solana.RPCClient, ws solana.WSClient) *solana.Connection {
	return solana.NewConnection(solana.ConnectionOptions{
		RPC:          rpc,
		WS:           ws,
		PollInterval: time.Millisecond,
		Logger:       zerolog.Nop(),
	})
}

// send submits a minimal signed payload through the stub and returns its signature.
func send(t *testing.T, conn *solana.Connection) (string, *solana.LatestBlockhash) {
	t.Helper()
	ctx := context.Background()
	bh, err := conn.GetLatestBlockhash(ctx)
	require.NoError(t, err)

	raw := make([]byte, 1+64+8)
	raw[0] = 1
	for i := 1; i < 65; i++ {
		raw[i] = byte(i)
	}
	sig, err := conn.SendTransaction(ctx, raw, solana.SendOptions{})
	require.NoError(t, err)
	return sig, bh
}

func TestConnection_Defaults(t *testing.T) {
	conn := solana.NewConnection(solana.ConnectionOptions{RPC: stub.NewRPCClient()})
	assert.Equal(t, solana.CommitmentConfirmed, conn.Commitment())
}

func TestConnection_CommitmentAtLeastConfirmed(t *testing.T) {
	tests := []struct {
		configured solana.Commitment
		want       solana.Commitment
	}{
		{solana.CommitmentProcessed, solana.CommitmentConfirmed},
		{solana.CommitmentConfirmed, solana.CommitmentConfirmed},
		{solana.CommitmentFinalized, solana.CommitmentFinalized},
		{"bogus", solana.CommitmentConfirmed},
	}
	for _, tt := range tests {
		conn := solana.NewConnection(solana.ConnectionOptions{RPC: stub.NewRPCClient(), Commitment: tt.configured})
		assert.Equal(t, tt.want, conn.Commitment(), "configured %q", tt.configured)
	}
}

func TestConfirmTransaction_ProcessedStatusNotEnough(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.Drop = true
	conn := solana.NewConnection(solana.ConnectionOptions{
		RPC:          rpc,
		Commitment:   solana.CommitmentProcessed,
		PollInterval: time.Millisecond,
		Logger:       zerolog.Nop(),
	})
	sig, bh := send(t, conn)
	rpc.SetStatus(sig, &solana.SignatureStatus{Slot: 42, ConfirmationStatus: solana.CommitmentProcessed})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := conn.ConfirmTransaction(ctx, solana.ConfirmRequest{
		Signature:            sig,
		LastValidBlockHeight: bh.LastValidBlockHeight + 1_000_000,
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestConfirmTransaction_Success(t *testing.T) {
	rpc := stub.NewRPCClient()
	conn := newConnection(rpc, nil)
	sig, bh := send(t, conn)

	result, err := conn.ConfirmTransaction(context.Background(), solana.ConfirmRequest{
		Signature:            sig,
		Blockhash:            bh.Blockhash,
		LastValidBlockHeight: bh.LastValidBlockHeight,
	})
	require.NoError(t, err)
	assert.Nil(t, result.Err)
	assert.NotZero(t, result.Slot)
}

func TestConfirmTransaction_OnChainError(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.TxErr = map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}
	conn := newConnection(rpc, nil)
	sig, bh := send(t, conn)

	result, err := conn.ConfirmTransaction(context.Background(), solana.ConfirmRequest{
		Signature:            sig,
		LastValidBlockHeight: bh.LastValidBlockHeight,
	})
	require.NoError(t, err)
	assert.Equal(t, rpc.TxErr, result.Err)
}

func TestConfirmTransaction_WaitsForCommitment(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.Drop = true
	conn := newConnection(rpc, nil)
	sig, bh := send(t, conn)

	rpc.SetStatus(sig, &solana.SignatureStatus{Slot: 42, ConfirmationStatus: solana.CommitmentProcessed})
	go func() {
		time.Sleep(20 * time.Millisecond)
		rpc.SetStatus(sig, &solana.SignatureStatus{Slot: 43, ConfirmationStatus: solana.CommitmentFinalized})
	}()

	result, err := conn.ConfirmTransaction(context.Background(), solana.ConfirmRequest{
		Signature:            sig,
		LastValidBlockHeight: bh.LastValidBlockHeight + 1_000_000,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(43), result.Slot)
}

func TestConfirmTransaction_BlockHeightExceeded(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.Drop = true
	rpc.ValidWindow = 3
	conn := newConnection(rpc, nil)
	sig, bh := send(t, conn)

	_, err := conn.ConfirmTransaction(context.Background(), solana.ConfirmRequest{
		Signature:            sig,
		LastValidBlockHeight: bh.LastValidBlockHeight,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, solana.ErrBlockHeightExceeded))
}

func TestConfirmTransaction_ContextCancelled(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.Drop = true
	conn := newConnection(rpc, nil)
	sig, bh := send(t, conn)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := conn.ConfirmTransaction(ctx, solana.ConfirmRequest{
		Signature:            sig,
		LastValidBlockHeight: bh.LastValidBlockHeight + 1_000_000,
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestConfirmTransaction_Notification(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.Drop = true
	ws := &fakeWS{notification: &solana.SignatureNotification{Slot: 77, Err: "X"}}
	conn := solana.NewConnection(solana.ConnectionOptions{
		RPC:          rpc,
		WS:           ws,
		PollInterval: time.Hour,
		Logger:       zerolog.Nop(),
	})
	sig, bh := send(t, conn)

	result, err := conn.ConfirmTransaction(context.Background(), solana.ConfirmRequest{
		Signature:            sig,
		LastValidBlockHeight: bh.LastValidBlockHeight,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(77), result.Slot)
	assert.Equal(t, "X", result.Err)
	assert.Equal(t, []string{sig}, ws.signatures())
}

func TestConfirmTransaction_SubscriptionFailureFallsBackToPolling(t *testing.T) {
	rpc := stub.NewRPCClient()
	ws := &fakeWS{err: errors.New("ws down")}
	conn := newConnection(rpc, ws)
	sig, bh := send(t, conn)

	result, err := conn.ConfirmTransaction(context.Background(), solana.ConfirmRequest{
		Signature:            sig,
		LastValidBlockHeight: bh.LastValidBlockHeight,
	})
	require.NoError(t, err)
	assert.Nil(t, result.Err)
}

func TestConfirmTransaction_ClosedSubscriptionKeepsPolling(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.Drop = true
	conn := newConnection(rpc, &fakeWS{})
	sig, bh := send(t, conn)

	go func() {
		time.Sleep(20 * time.Millisecond)
		rpc.SetStatus(sig, &solana.SignatureStatus{Slot: 9, ConfirmationStatus: solana.CommitmentConfirmed})
	}()

	result, err := conn.ConfirmTransaction(context.Background(), solana.ConfirmRequest{
		Signature:            sig,
		LastValidBlockHeight: bh.LastValidBlockHeight + 1_000_000,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(9), result.Slot)
}

func TestCommitment_Satisfies(t *testing.T) {
	tests := []struct {
		status solana.Commitment
		target solana.Commitment
		want   bool
	}{
		{solana.CommitmentProcessed, solana.CommitmentConfirmed, false},
		{solana.CommitmentConfirmed, solana.CommitmentConfirmed, true},
		{solana.CommitmentFinalized, solana.CommitmentConfirmed, true},
		{solana.CommitmentConfirmed, solana.CommitmentFinalized, false},
		{"", solana.CommitmentProcessed, false},
	}
	for _, tt := range tests {
		if got := tt.status.Satisfies(tt.target); got != tt.want {
			t.Errorf("%q.Satisfies(%q) = %v, want %v", tt.status, tt.target, got, tt.want)
		}
	}
}

// rejectingNode answers every signatureSubscribe with a JSON-RPC error.
func rejectingNode(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}
			var req struct {
				ID uint64 `json:"id"`
			}
			if err := json.Unmarshal(msg, &req); err != nil {
				continue
			}
			c.WriteJSON(map[string]interface{}{
				"jsonrpc": "2.0",
				"id":      req.ID,
				"error":   map[string]interface{}{"code": -32601, "message": "Method not found"},
			})
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestConfirmTransaction_SubscriptionRejectedByNode(t *testing.T) {
	server := rejectingNode(t)
	ws, err := solana.NewWSClient(context.Background(), "ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	defer ws.Close()

	rpc := stub.NewRPCClient()
	conn := newConnection(rpc, ws)
	sig, bh := send(t, conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	result, err := conn.ConfirmTransaction(ctx, solana.ConfirmRequest{
		Signature:            sig,
		LastValidBlockHeight: bh.LastValidBlockHeight,
	})
	require.NoError(t, err)
	assert.Nil(t, result.Err)
	assert.Less(t, time.Since(start), 2*time.Second)
}
