// Package metadata publishes token metadata and artwork to the content
// gateway and returns the resulting metadata URI.
package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"pump-launcher/internal/domain"
)

// Defaults.
const (
	DefaultEndpoint = "https://pump.fun/api/ipfs"
	DefaultTimeout  = 60 * time.Second

	// MaxImageBytes caps the artwork download.
	MaxImageBytes = 15 << 20

	imageFieldName = "file"
	imageFileName  = "token_image.png"
	imageMediaType = "image/png"
)

// HTTPDoer is the subset of *http.Client used for outbound requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Publisher uploads metadata records to the gateway.
// It holds no per-launch state and is safe for concurrent use.
type Publisher struct {
	client   HTTPDoer
	endpoint string
	logger   zerolog.Logger
}

// Options for creating Publisher.
type Options struct {
	Client   HTTPDoer
	Endpoint string
	Logger   zerolog.Logger
}

// NewPublisher creates a new Publisher.
func NewPublisher(opts Options) *Publisher {
	p := &Publisher{
		client:   opts.Client,
		endpoint: opts.Endpoint,
		logger:   opts.Logger,
	}
	if p.client == nil {
		p.client = &http.Client{Timeout: DefaultTimeout}
	}
	if p.endpoint == "" {
		p.endpoint = DefaultEndpoint
	}
	return p
}

// Publish fetches the artwork at imageURL and uploads it together with the
// descriptive fields as one multipart request. No retries are attempted.
func (p *Publisher) Publish(ctx context.Context, name, symbol, description, imageURL string, opts *domain.LaunchOptions) (*domain.MetadataResponse, error) {
	if err := validate(name, symbol, description, imageURL); err != nil {
		return nil, err
	}

	image, err := p.fetchImage(ctx, imageURL)
	if err != nil {
		p.logger.Error().Err(err).Str("image_url", imageURL).Msg("image fetch failed")
		return nil, err
	}

	body, contentType, err := encodeForm(buildFields(name, symbol, description, opts), image)
	if err != nil {
		return nil, fmt.Errorf("encode metadata form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload metadata: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		uploadErr := &UploadError{
			StatusCode: resp.StatusCode,
			Status:     statusText(resp),
			Body:       string(snippet),
		}
		p.logger.Error().
			Int("status_code", resp.StatusCode).
			Str("status", uploadErr.Status).
			Str("body", uploadErr.Body).
			Msg("metadata upload failed")
		return nil, uploadErr
	}

	var result domain.MetadataResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if result.MetadataURI == "" {
		return nil, fmt.Errorf("%w: missing metadataUri", ErrMalformedResponse)
	}

	p.logger.Info().
		Str("symbol", symbol).
		Str("metadata_uri", result.MetadataURI).
		Msg("metadata published")

	return &result, nil
}

func validate(name, symbol, description, imageURL string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: token name is empty", ErrInvalidInput)
	case strings.TrimSpace(symbol) == "":
		return fmt.Errorf("%w: token ticker is empty", ErrInvalidInput)
	case strings.TrimSpace(description) == "":
		return fmt.Errorf("%w: description is empty", ErrInvalidInput)
	case strings.TrimSpace(imageURL) == "":
		return fmt.Errorf("%w: image URL is empty", ErrInvalidInput)
	}
	return nil
}

// fetchImage downloads the artwork and checks that it is an image.
func (p *Publisher) fetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, &ImageFetchError{URL: imageURL, Err: err}
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &ImageFetchError{URL: imageURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ImageFetchError{URL: imageURL, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageBytes+1))
	if err != nil {
		return nil, &ImageFetchError{URL: imageURL, Err: err}
	}
	if len(data) > MaxImageBytes {
		return nil, &ImageFetchError{URL: imageURL, Err: fmt.Errorf("image exceeds %d bytes", MaxImageBytes)}
	}

	mt := mimetype.Detect(data)
	if !isImage(mt) {
		return nil, fmt.Errorf("%w: detected %s", ErrNotImage, mt.String())
	}
	return data, nil
}

func isImage(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "image/") {
			return true
		}
	}
	return false
}

// encodeForm writes the fields in order followed by the image part.
func encodeForm(fields []formField, image []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", err
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, imageFieldName, imageFileName))
	h.Set("Content-Type", imageMediaType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", err
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// statusText returns the reason phrase of resp, e.g. "Internal Server Error".
func statusText(resp *http.Response) string {
	if text := strings.TrimSpace(strings.TrimPrefix(resp.Status, fmt.Sprint(resp.StatusCode))); text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}
