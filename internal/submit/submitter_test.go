package submit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	bin "github.com/gagliardetto/binary"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pump-launcher/internal/solana"
	"pump-launcher/internal/solana/stub"
)

type fixture struct {
	rpc    *stub.RPCClient
	conn   *solana.Connection
	mint   solanago.PrivateKey
	wallet solanago.PrivateKey
	sub    *Submitter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	rpc := stub.NewRPCClient()
	return &fixture{
		rpc: rpc,
		conn: solana.NewConnection(solana.ConnectionOptions{
			RPC:          rpc,
			PollInterval: time.Millisecond,
			Logger:       zerolog.Nop(),
		}),
		mint:   solanago.NewWallet().PrivateKey,
		wallet: solanago.NewWallet().PrivateKey,
		sub:    NewSubmitter(Options{Logger: zerolog.Nop()}),
	}
}

func (f *fixture) unsignedTx(t *testing.T) []byte {
	t.Helper()
	raw, err := stub.CreateTokenTransaction(f.wallet.PublicKey(), f.mint.PublicKey())
	require.NoError(t, err)
	return raw
}

func decode(t *testing.T, raw []byte) *solanago.Transaction {
	t.Helper()
	tx, err := solanago.TransactionFromDecoder(bin.NewBinDecoder(raw))
	require.NoError(t, err)
	return tx
}

func TestSignAndSend_Confirmed(t *testing.T) {
	f := newFixture(t)

	sig, err := f.sub.SignAndSend(context.Background(), f.unsignedTx(t), f.mint, f.wallet, f.conn)
	require.NoError(t, err)

	sent := f.rpc.Sent()
	require.Len(t, sent, 1)
	tx := decode(t, sent[0])

	// Fresh blockhash replaced the builder's.
	hashes := f.rpc.Blockhashes()
	require.Len(t, hashes, 1)
	assert.Equal(t, hashes[0], tx.Message.RecentBlockhash.String())
	assert.NotEqual(t, stub.StaleBlockhash, tx.Message.RecentBlockhash)

	// Both slots carry valid signatures.
	require.Len(t, tx.Signatures, 2)
	assert.NoError(t, tx.VerifySignatures())
	assert.Equal(t, tx.Signatures[0].String(), sig)

	opts := f.rpc.SendOptions()
	require.Len(t, opts, 1)
	assert.False(t, opts[0].SkipPreflight)
	assert.Equal(t, solana.CommitmentConfirmed, opts[0].PreflightCommitment)
	require.NotNil(t, opts[0].MaxRetries)
	assert.Equal(t, uint(5), *opts[0].MaxRetries)
}

func TestSignAndSend_BlockhashFetchedBeforeSend(t *testing.T) {
	f := newFixture(t)

	_, err := f.sub.SignAndSend(context.Background(), f.unsignedTx(t), f.mint, f.wallet, f.conn)
	require.NoError(t, err)

	calls := f.rpc.Calls()
	require.GreaterOrEqual(t, len(calls), 2)
	assert.Equal(t, "getLatestBlockhash", calls[0])
	assert.Equal(t, "sendTransaction", calls[1])
}

func TestSignAndSend_RejectedOnChain(t *testing.T) {
	f := newFixture(t)
	f.rpc.TxErr = "X"

	sig, err := f.sub.SignAndSend(context.Background(), f.unsignedTx(t), f.mint, f.wallet, f.conn)
	assert.Empty(t, sig)

	var rejection *OnChainRejectionError
	require.True(t, errors.As(err, &rejection))
	assert.Equal(t, "X", rejection.Err)
	assert.NotEmpty(t, rejection.Signature)
	assert.Contains(t, rejection.Error(), "rejected on chain: X")
}

func TestSignAndSend_PreflightFailureKeepsLogs(t *testing.T) {
	f := newFixture(t)
	f.rpc.SendErr = &solana.RPCError{
		Code:    -32002,
		Message: "Transaction simulation failed: Error processing Instruction 0",
		Data:    json.RawMessage(`{"err":{"InstructionError":[0,{"Custom":1}]},"logs":["Program log: insufficient lamports"]}`),
	}

	_, err := f.sub.SignAndSend(context.Background(), f.unsignedTx(t), f.mint, f.wallet, f.conn)

	var subErr *SubmissionError
	require.True(t, errors.As(err, &subErr))
	assert.Equal(t, []string{"Program log: insufficient lamports"}, subErr.Logs)

	var rpcErr *solana.RPCError
	assert.True(t, errors.As(err, &rpcErr))
}

func TestSignAndSend_Expired(t *testing.T) {
	f := newFixture(t)
	f.rpc.Drop = true
	f.rpc.ValidWindow = 3

	_, err := f.sub.SignAndSend(context.Background(), f.unsignedTx(t), f.mint, f.wallet, f.conn)
	assert.ErrorIs(t, err, solana.ErrBlockHeightExceeded)
}

func TestSignAndSend_ContextCancelled(t *testing.T) {
	f := newFixture(t)
	f.rpc.Drop = true
	f.rpc.ValidWindow = 1 << 40

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := f.sub.SignAndSend(ctx, f.unsignedTx(t), f.mint, f.wallet, f.conn)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSignAndSend_UnexpectedSigner(t *testing.T) {
	f := newFixture(t)
	stranger := solanago.NewWallet().PublicKey()
	ix := system.NewCreateAccountInstruction(1, 0, solanago.SystemProgramID, f.wallet.PublicKey(), stranger).Build()
	raw, err := stub.UnsignedTransaction(f.wallet.PublicKey(), ix)
	require.NoError(t, err)

	_, err = f.sub.SignAndSend(context.Background(), raw, f.mint, f.wallet, f.conn)
	assert.ErrorIs(t, err, ErrUnexpectedSigner)
	assert.Empty(t, f.rpc.Sent(), "nothing broadcast")
}

func TestSignAndSend_MintNotASigner(t *testing.T) {
	f := newFixture(t)
	ix := system.NewTransferInstruction(1, f.wallet.PublicKey(), f.mint.PublicKey()).Build()
	raw, err := stub.UnsignedTransaction(f.wallet.PublicKey(), ix)
	require.NoError(t, err)

	_, err = f.sub.SignAndSend(context.Background(), raw, f.mint, f.wallet, f.conn)
	assert.ErrorIs(t, err, ErrMissingSigner)
	assert.Empty(t, f.rpc.Sent())
}

func TestSignAndSend_Malformed(t *testing.T) {
	f := newFixture(t)

	_, err := f.sub.SignAndSend(context.Background(), []byte{0xff, 0x01}, f.mint, f.wallet, f.conn)
	assert.ErrorIs(t, err, ErrMalformedTransaction)
	assert.Empty(t, f.rpc.Calls())
}
