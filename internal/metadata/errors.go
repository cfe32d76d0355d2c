package metadata

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned when a required field is empty.
	ErrInvalidInput = errors.New("invalid metadata input")

	// ErrNotImage is returned when the artwork payload is not an image.
	ErrNotImage = errors.New("artwork is not an image")

	// ErrMalformedResponse is returned when the gateway answers 2xx with an
	// unusable body.
	ErrMalformedResponse = errors.New("malformed metadata response")
)

// UploadError is returned when the gateway rejects the upload.
type UploadError struct {
	StatusCode int
	Status     string // reason phrase, e.g. "Internal Server Error"
	Body       string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("metadata upload failed: %d %s", e.StatusCode, e.Status)
}

// ImageFetchError is returned when the artwork cannot be downloaded.
type ImageFetchError struct {
	URL        string
	StatusCode int // zero for transport failures
	Err        error
}

func (e *ImageFetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch image %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch image %s: HTTP %d", e.URL, e.StatusCode)
}

func (e *ImageFetchError) Unwrap() error {
	return e.Err
}
