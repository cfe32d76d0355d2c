// Package launch orchestrates a token launch: mint keypair generation,
// metadata upload, transaction construction, signing and submission.
package launch

import (
	"context"
	"errors"
	"fmt"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"pump-launcher/internal/builder"
	"pump-launcher/internal/domain"
	"pump-launcher/internal/keys"
	"pump-launcher/internal/metadata"
	"pump-launcher/internal/observability"
	"pump-launcher/internal/solana"
	"pump-launcher/internal/submit"
)

// Launch statuses, used as metric labels.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Agent is the caller's identity: the funding wallet and the network
// connection launches are submitted through.
type Agent struct {
	Wallet     solanago.PrivateKey
	Connection submit.Connection
}

// MetadataPublisher uploads token metadata. *metadata.Publisher implements it.
type MetadataPublisher interface {
	Publish(ctx context.Context, name, symbol, description, imageURL string, opts *domain.LaunchOptions) (*domain.MetadataResponse, error)
}

// TransactionBuilder produces unsigned creation transactions.
// *builder.Builder implements it.
type TransactionBuilder interface {
	BuildCreateTransaction(ctx context.Context, wallet, mint string, meta *domain.MetadataResponse, opts *domain.LaunchOptions) ([]byte, error)
}

// TransactionSubmitter signs, sends and confirms. *submit.Submitter implements it.
type TransactionSubmitter interface {
	SignAndSend(ctx context.Context, rawTx []byte, mint, wallet solanago.PrivateKey, conn submit.Connection) (string, error)
}

var (
	_ MetadataPublisher    = (*metadata.Publisher)(nil)
	_ TransactionBuilder   = (*builder.Builder)(nil)
	_ TransactionSubmitter = (*submit.Submitter)(nil)
)

// Launcher runs launches. It keeps no per-launch state, so one Launcher
// may serve concurrent launches.
type Launcher struct {
	publisher MetadataPublisher
	builder   TransactionBuilder
	submitter TransactionSubmitter
	newMint   func() (solanago.PrivateKey, error)
	logger    zerolog.Logger
}

// Options for creating Launcher.
type Options struct {
	Publisher MetadataPublisher
	Builder   TransactionBuilder
	Submitter TransactionSubmitter
	Logger    zerolog.Logger
}

// NewLauncher creates a new Launcher.
func NewLauncher(opts Options) *Launcher {
	return &Launcher{
		publisher: opts.Publisher,
		builder:   opts.Builder,
		submitter: opts.Submitter,
		newMint:   keys.Generate,
		logger:    opts.Logger,
	}
}

// Launch creates a new token named tokenName with ticker tokenTicker.
// Steps run strictly in order; the first failure aborts the launch and is
// returned as-is, so callers can match it with errors.As.
func (l *Launcher) Launch(ctx context.Context, agent Agent, tokenName, tokenTicker, description, imageURL string, opts *domain.LaunchOptions) (*domain.LaunchResult, error) {
	if agent.Connection == nil {
		return nil, errors.New("launch: agent has no connection")
	}
	if err := keys.Validate(agent.Wallet); err != nil {
		return nil, fmt.Errorf("launch: wallet: %w", err)
	}

	launchID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("launch: generate id: %w", err)
	}

	mint, err := l.newMint()
	if err != nil {
		return nil, fmt.Errorf("launch: %w", err)
	}
	mintAddr := mint.PublicKey().String()
	walletAddr := agent.Wallet.PublicKey().String()

	log := l.logger.With().
		Str("launch_id", launchID.String()).
		Str("mint", mintAddr).
		Str("wallet", walletAddr).
		Str("symbol", tokenTicker).
		Logger()
	log.Info().Msg("launch started")

	start := time.Now()
	observability.LaunchStarted()
	status := StatusFailed
	defer func() {
		observability.RecordLaunch(status, time.Since(start).Seconds(), time.Now().Unix())
	}()

	var meta *domain.MetadataResponse
	err = stage(observability.StageMetadata, func() error {
		var err error
		meta, err = l.publisher.Publish(ctx, tokenName, tokenTicker, description, imageURL, opts)
		return err
	})
	if err != nil {
		log.Error().Err(err).Msg("metadata stage failed")
		return nil, fmt.Errorf("publish metadata: %w", err)
	}

	var rawTx []byte
	err = stage(observability.StageBuild, func() error {
		var err error
		rawTx, err = l.builder.BuildCreateTransaction(ctx, walletAddr, mintAddr, meta, opts)
		return err
	})
	if err != nil {
		log.Error().Err(err).Msg("build stage failed")
		return nil, fmt.Errorf("build transaction: %w", err)
	}

	var signature string
	err = stage(observability.StageSubmit, func() error {
		var err error
		signature, err = l.submitter.SignAndSend(ctx, rawTx, mint, agent.Wallet, agent.Connection)
		return err
	})
	if err != nil {
		log.Error().Err(err).Msg("submit stage failed")
		return nil, fmt.Errorf("submit transaction: %w", err)
	}

	status = StatusSuccess
	log.Info().
		Str("signature", signature).
		Str("metadata_uri", meta.MetadataURI).
		Dur("elapsed", time.Since(start)).
		Msg("launch confirmed")

	return &domain.LaunchResult{
		Signature:   signature,
		Mint:        mintAddr,
		MetadataURI: meta.MetadataURI,
	}, nil
}

// stage runs fn and records its duration and failure kind.
func stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	observability.RecordStage(name, time.Since(start).Seconds(), ErrorKind(err))
	return err
}

// ErrorKind classifies err for metrics and API responses. It returns "" for nil.
func ErrorKind(err error) string {
	var (
		uploadErr    *metadata.UploadError
		imageErr     *metadata.ImageFetchError
		buildErr     *builder.BuildError
		submitErr    *submit.SubmissionError
		rejectionErr *submit.OnChainRejectionError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &uploadErr):
		return "upload_failure"
	case errors.As(err, &imageErr), errors.Is(err, metadata.ErrNotImage):
		return "image_failure"
	case errors.Is(err, metadata.ErrInvalidInput):
		return "invalid_input"
	case errors.As(err, &buildErr), errors.Is(err, builder.ErrEmptyTransaction),
		errors.Is(err, builder.ErrTransactionTooLarge):
		return "build_failure"
	case errors.As(err, &submitErr):
		return "submission_failure"
	case errors.As(err, &rejectionErr):
		return "on_chain_rejection"
	case errors.Is(err, solana.ErrBlockHeightExceeded):
		return "expired"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "other"
	}
}
