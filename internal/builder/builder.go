// Package builder requests unsigned token-creation transactions from the
// trade-construction service.
package builder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"pump-launcher/internal/domain"
)

// Defaults.
const (
	DefaultEndpoint = "https://pumpportal.fun/api/trade-local"
	DefaultTimeout  = 30 * time.Second

	// MaxTransactionBytes caps the response body. A Solana transaction is at
	// most 1232 bytes on the wire; the cap leaves room for error pages.
	MaxTransactionBytes = 64 << 10

	actionCreate = "create"
	poolPump     = "pump"
)

var (
	// ErrEmptyTransaction is returned when the service answers 2xx with no body.
	ErrEmptyTransaction = errors.New("builder returned an empty transaction")
	// ErrTransactionTooLarge is returned when a 2xx body exceeds MaxTransactionBytes.
	ErrTransactionTooLarge = errors.New("builder returned an oversized transaction")
)

// BuildError is returned when the service rejects the request.
type BuildError struct {
	StatusCode int
	Body       string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("transaction build failed: %d - %s", e.StatusCode, e.Body)
}

// HTTPDoer is the subset of *http.Client used for outbound requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Builder calls the trade-construction service.
type Builder struct {
	client   HTTPDoer
	endpoint string
	logger   zerolog.Logger
}

// Options for creating Builder.
type Options struct {
	Client   HTTPDoer
	Endpoint string
	Logger   zerolog.Logger
}

// NewBuilder creates a new Builder.
func NewBuilder(opts Options) *Builder {
	b := &Builder{
		client:   opts.Client,
		endpoint: opts.Endpoint,
		logger:   opts.Logger,
	}
	if b.client == nil {
		b.client = &http.Client{Timeout: DefaultTimeout}
	}
	if b.endpoint == "" {
		b.endpoint = DefaultEndpoint
	}
	return b
}

// createRequest is the JSON body sent to the service.
type createRequest struct {
	PublicKey        string        `json:"publicKey"`
	Action           string        `json:"action"`
	TokenMetadata    tokenMetadata `json:"tokenMetadata"`
	Mint             string        `json:"mint"`
	DenominatedInSol string        `json:"denominatedInSol"`
	Amount           float64       `json:"amount"`
	Slippage         int           `json:"slippage"`
	PriorityFee      float64       `json:"priorityFee"`
	Pool             string        `json:"pool"`
}

type tokenMetadata struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	URI    string `json:"uri"`
}

// BuildCreateTransaction returns the serialized unsigned transaction that
// creates the token at mint, funded by wallet, with the initial buy taken
// from opts. Name and symbol come from the gateway's metadata record.
func (b *Builder) BuildCreateTransaction(ctx context.Context, wallet, mint string, meta *domain.MetadataResponse, opts *domain.LaunchOptions) ([]byte, error) {
	if meta == nil || meta.MetadataURI == "" {
		return nil, fmt.Errorf("build transaction: metadata URI is required")
	}

	payload := createRequest{
		PublicKey: wallet,
		Action:    actionCreate,
		TokenMetadata: tokenMetadata{
			Name:   meta.Metadata.Name,
			Symbol: meta.Metadata.Symbol,
			URI:    meta.MetadataURI,
		},
		Mint:             mint,
		DenominatedInSol: "true",
		Amount:           opts.Liquidity(),
		Slippage:         opts.Slippage(),
		PriorityFee:      opts.PriorityFeeSOL(),
		Pool:             poolPump,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal build request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("build transaction: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxTransactionBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read build response: %w", err)
	}
	oversized := len(data) > MaxTransactionBytes
	if oversized {
		data = data[:MaxTransactionBytes]
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		buildErr := &BuildError{StatusCode: resp.StatusCode, Body: string(data)}
		b.logger.Error().
			Int("status_code", resp.StatusCode).
			Str("body", buildErr.Body).
			Str("mint", mint).
			Msg("transaction build failed")
		return nil, buildErr
	}
	if len(data) == 0 {
		return nil, ErrEmptyTransaction
	}
	if oversized {
		return nil, fmt.Errorf("%w: over %d bytes", ErrTransactionTooLarge, MaxTransactionBytes)
	}

	b.logger.Debug().
		Str("mint", mint).
		Int("tx_bytes", len(data)).
		Msg("unsigned transaction received")

	return data, nil
}
