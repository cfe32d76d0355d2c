package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pump-launcher/internal/domain"
)

type uploadedPart struct {
	field       string
	filename    string
	contentType string
	value       string
}

// gateway serves artwork at /art.png and accepts uploads at /api/ipfs.
type gateway struct {
	server  *httptest.Server
	art     []byte
	status  int
	uploads atomic.Int32

	mu    sync.Mutex
	parts []uploadedPart
}

func newGateway(t *testing.T) *gateway {
	t.Helper()
	g := &gateway{art: testPNG(t), status: http.StatusOK}

	mux := http.NewServeMux()
	mux.HandleFunc("/art.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(g.art)
	})
	mux.HandleFunc("/api/ipfs", func(w http.ResponseWriter, r *http.Request) {
		g.uploads.Add(1)
		if r.Method != http.MethodPost {
			http.Error(w, "method", http.StatusMethodNotAllowed)
			return
		}
		mr, err := r.MultipartReader()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var parts []uploadedPart
		for {
			p, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			data, _ := io.ReadAll(p)
			parts = append(parts, uploadedPart{
				field:       p.FormName(),
				filename:    p.FileName(),
				contentType: p.Header.Get("Content-Type"),
				value:       string(data),
			})
		}
		g.mu.Lock()
		g.parts = parts
		g.mu.Unlock()

		if g.status != http.StatusOK {
			w.WriteHeader(g.status)
			_, _ = w.Write([]byte("gateway unavailable"))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"metadata": map[string]interface{}{
				"name":      g.value("name"),
				"symbol":    g.value("symbol"),
				"image":     "https://ipfs.io/ipfs/QmImage",
				"showName":  true,
				"createdOn": "https://pump.fun",
			},
			"metadataUri": "https://ipfs.io/ipfs/QmMeta",
		})
	})

	g.server = httptest.NewServer(mux)
	t.Cleanup(g.server.Close)
	return g
}

func (g *gateway) value(field string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, p := range g.parts {
		if p.field == field {
			return p.value
		}
	}
	return ""
}

func (g *gateway) fieldNames() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	names := make([]string, 0, len(g.parts))
	for _, p := range g.parts {
		names = append(names, p.field)
	}
	return names
}

func (g *gateway) publisher() *Publisher {
	return NewPublisher(Options{
		Client:   g.server.Client(),
		Endpoint: g.server.URL + "/api/ipfs",
		Logger:   zerolog.Nop(),
	})
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestPublish_MinimalFields(t *testing.T) {
	g := newGateway(t)

	resp, err := g.publisher().Publish(context.Background(), "Doge Two", "DOGE2", "much wow", g.server.URL+"/art.png", nil)
	require.NoError(t, err)

	assert.Equal(t, "https://ipfs.io/ipfs/QmMeta", resp.MetadataURI)
	assert.Equal(t, "Doge Two", resp.Metadata.Name)
	assert.Equal(t, "DOGE2", resp.Metadata.Symbol)

	assert.Equal(t, []string{"name", "symbol", "description", "showName", "file"}, g.fieldNames())
	assert.Equal(t, "true", g.value("showName"))
	assert.Equal(t, "much wow", g.value("description"))

	g.mu.Lock()
	file := g.parts[len(g.parts)-1]
	g.mu.Unlock()
	assert.Equal(t, "token_image.png", file.filename)
	assert.Equal(t, "image/png", file.contentType)
	assert.Equal(t, string(g.art), file.value)
}

func TestPublish_SocialFieldsOnlyWhenPresent(t *testing.T) {
	g := newGateway(t)
	opts := &domain.LaunchOptions{
		Twitter: "https://x.com/doge2",
		Website: "https://doge2.example",
	}

	_, err := g.publisher().Publish(context.Background(), "Doge Two", "DOGE2", "much wow", g.server.URL+"/art.png", opts)
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "symbol", "description", "showName", "twitter", "website", "file"}, g.fieldNames())
	assert.Equal(t, "https://x.com/doge2", g.value("twitter"))
	assert.Equal(t, "https://doge2.example", g.value("website"))
}

func TestPublish_UploadRejected(t *testing.T) {
	g := newGateway(t)
	g.status = http.StatusInternalServerError

	_, err := g.publisher().Publish(context.Background(), "Doge Two", "DOGE2", "much wow", g.server.URL+"/art.png", nil)
	require.Error(t, err)

	var uploadErr *UploadError
	require.True(t, errors.As(err, &uploadErr))
	assert.Equal(t, http.StatusInternalServerError, uploadErr.StatusCode)
	assert.Equal(t, "Internal Server Error", uploadErr.Status)
	assert.Equal(t, "gateway unavailable", uploadErr.Body)
	assert.Equal(t, int32(1), g.uploads.Load(), "no retry")
}

func TestPublish_NotAnImage(t *testing.T) {
	g := newGateway(t)
	g.art = []byte("<html><body>nope</body></html>")

	_, err := g.publisher().Publish(context.Background(), "Doge Two", "DOGE2", "much wow", g.server.URL+"/art.png", nil)
	assert.ErrorIs(t, err, ErrNotImage)
	assert.Equal(t, int32(0), g.uploads.Load())
}

func TestPublish_ImageMissing(t *testing.T) {
	g := newGateway(t)

	_, err := g.publisher().Publish(context.Background(), "Doge Two", "DOGE2", "much wow", g.server.URL+"/missing.png", nil)

	var fetchErr *ImageFetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
	assert.Equal(t, int32(0), g.uploads.Load())
}

func TestPublish_InvalidInput(t *testing.T) {
	g := newGateway(t)
	p := g.publisher()
	art := g.server.URL + "/art.png"

	tests := []struct {
		name, symbol, description, imageURL string
	}{
		{"", "DOGE2", "much wow", art},
		{"Doge Two", " ", "much wow", art},
		{"Doge Two", "DOGE2", "", art},
		{"Doge Two", "DOGE2", "much wow", ""},
	}
	for _, tt := range tests {
		_, err := p.Publish(context.Background(), tt.name, tt.symbol, tt.description, tt.imageURL, nil)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
	assert.Equal(t, int32(0), g.uploads.Load())
}

func TestPublish_MissingMetadataURI(t *testing.T) {
	art := testPNG(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			_, _ = w.Write(art)
			return
		}
		_, _ = w.Write([]byte(`{"metadata":{"name":"x"}}`))
	}))
	defer server.Close()

	p := NewPublisher(Options{Client: server.Client(), Endpoint: server.URL, Logger: zerolog.Nop()})
	_, err := p.Publish(context.Background(), "Doge Two", "DOGE2", "much wow", server.URL+"/art.png", nil)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}
