// Package submit signs builder-produced transactions with the mint and
// wallet keys, broadcasts them and waits for confirmation.
package submit

import (
	"context"
	"errors"
	"fmt"
	"time"

	bin "github.com/gagliardetto/binary"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"pump-launcher/internal/observability"
	"pump-launcher/internal/solana"
)

// SendMaxRetries is the node-side rebroadcast budget requested on send.
const SendMaxRetries uint = 5

// Connection is the network capability needed to submit a transaction.
// *solana.Connection implements it.
type Connection interface {
	GetLatestBlockhash(ctx context.Context) (*solana.LatestBlockhash, error)
	SendTransaction(ctx context.Context, rawTx []byte, opts solana.SendOptions) (string, error)
	ConfirmTransaction(ctx context.Context, req solana.ConfirmRequest) (*solana.ConfirmResult, error)
}

var _ Connection = (*solana.Connection)(nil)

// Submitter drives a transaction from unsigned bytes to confirmation.
type Submitter struct {
	logger zerolog.Logger
}

// Options for creating Submitter.
type Options struct {
	Logger zerolog.Logger
}

// NewSubmitter creates a new Submitter.
func NewSubmitter(opts Options) *Submitter {
	return &Submitter{logger: opts.Logger}
}

// SignAndSend attaches a freshly fetched blockhash to rawTx, signs it with
// mint and wallet, broadcasts it and waits until it is confirmed or its
// blockhash expires. It returns the transaction signature.
//
// The blockhash embedded by the builder is always replaced.
func (s *Submitter) SignAndSend(ctx context.Context, rawTx []byte, mint, wallet solanago.PrivateKey, conn Connection) (string, error) {
	tx, err := solanago.TransactionFromDecoder(bin.NewBinDecoder(rawTx))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedTransaction, err)
	}

	latest, err := conn.GetLatestBlockhash(ctx)
	if err != nil {
		return "", fmt.Errorf("get latest blockhash: %w", err)
	}
	blockhash, err := solanago.HashFromBase58(latest.Blockhash)
	if err != nil {
		return "", fmt.Errorf("parse blockhash %q: %w", latest.Blockhash, err)
	}
	tx.Message.RecentBlockhash = blockhash

	if err := signTransaction(tx, mint, wallet); err != nil {
		return "", err
	}

	signed, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("serialize signed transaction: %w", err)
	}

	localSig := tx.Signatures[0].String()
	log := s.logger.With().
		Str("mint", mint.PublicKey().String()).
		Str("signature", localSig).
		Logger()

	maxRetries := SendMaxRetries
	signature, err := conn.SendTransaction(ctx, signed, solana.SendOptions{
		SkipPreflight:       false,
		PreflightCommitment: solana.CommitmentConfirmed,
		MaxRetries:          &maxRetries,
	})
	if err != nil {
		subErr := &SubmissionError{Err: err}
		var rpcErr *solana.RPCError
		if errors.As(err, &rpcErr) {
			subErr.Logs = rpcErr.Logs()
		}
		log.Error().Err(err).Strs("logs", subErr.Logs).Msg("transaction submission failed")
		return "", subErr
	}
	if signature == "" {
		signature = localSig
	}
	log.Info().Uint64("last_valid_block_height", latest.LastValidBlockHeight).Msg("transaction sent")

	start := time.Now()
	result, err := conn.ConfirmTransaction(ctx, solana.ConfirmRequest{
		Signature:            signature,
		Blockhash:            latest.Blockhash,
		LastValidBlockHeight: latest.LastValidBlockHeight,
	})
	if err != nil {
		log.Error().Err(err).Msg("confirmation failed")
		return "", fmt.Errorf("confirm transaction %s: %w", signature, err)
	}
	observability.RecordConfirmation(time.Since(start).Seconds())

	if result.Err != nil {
		rejection := &OnChainRejectionError{Signature: signature, Err: result.Err}
		log.Error().Interface("tx_err", result.Err).Uint64("slot", result.Slot).Msg("transaction rejected on chain")
		return "", rejection
	}

	log.Info().Uint64("slot", result.Slot).Msg("transaction confirmed")
	return signature, nil
}

// signTransaction fills the message's signer slots. The message must require
// exactly the mint and the wallet; signing happens mint first, then wallet.
func signTransaction(tx *solanago.Transaction, mint, wallet solanago.PrivateKey) error {
	header := tx.Message.Header
	numSigners := int(header.NumRequiredSignatures)
	if numSigners > len(tx.Message.AccountKeys) {
		return fmt.Errorf("%w: %d signers for %d account keys",
			ErrMalformedTransaction, numSigners, len(tx.Message.AccountKeys))
	}

	mintPub := mint.PublicKey()
	walletPub := wallet.PublicKey()
	if mintPub.Equals(walletPub) {
		return fmt.Errorf("%w: mint and wallet are the same key", ErrMissingSigner)
	}

	slots := map[solanago.PublicKey]int{}
	for i, key := range tx.Message.AccountKeys[:numSigners] {
		if !key.Equals(mintPub) && !key.Equals(walletPub) {
			return fmt.Errorf("%w: %s", ErrUnexpectedSigner, key)
		}
		slots[key] = i
	}

	payload, err := tx.Message.MarshalBinary()
	if err != nil {
		return fmt.Errorf("serialize message: %w", err)
	}

	signatures := make([]solanago.Signature, numSigners)
	for _, key := range []solanago.PrivateKey{mint, wallet} {
		pub := key.PublicKey()
		slot, ok := slots[pub]
		if !ok {
			return fmt.Errorf("%w: %s", ErrMissingSigner, pub)
		}
		sig, err := key.Sign(payload)
		if err != nil {
			return fmt.Errorf("sign with %s: %w", pub, err)
		}
		signatures[slot] = sig
	}
	tx.Signatures = signatures
	return nil
}
