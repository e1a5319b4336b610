// Package embedding defines the opaque embedding capability the ingest
// pipeline depends on, plus client implementations. The contract is a
// fixed-dimension, L2-normalized float vector for either a text or an image
// input; captioning is an optional auxiliary capability.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Embedder is the embed(input) -> vector capability boundary.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedImage(ctx context.Context, image []byte) ([]float32, error)
}

// Captioner is the optional caption(image) -> text capability.
type Captioner interface {
	Caption(ctx context.Context, image []byte) (string, error)
}

// ErrImageUnsupported is returned by embedders that only handle text.
var ErrImageUnsupported = errors.New("image embeddings are not supported by this provider")

type imageKind int

const (
	imageBytes imageKind = iota
	imageURL
)

// Image is a tagged union over the accepted image payload shapes: raw bytes
// or a URL. It is resolved exactly once at the pipeline boundary into a
// canonical byte slice before any processing.
type Image struct {
	kind imageKind
	data []byte
	url  string
}

// ImageFromBytes wraps an already-downloaded image payload.
func ImageFromBytes(data []byte) Image {
	return Image{kind: imageBytes, data: data}
}

// ImageFromURL wraps a remote image reference.
func ImageFromURL(url string) Image {
	return Image{kind: imageURL, url: url}
}

// URL returns the source URL for URL-backed images, or "".
func (i Image) URL() string {
	return i.url
}

// Resolve materializes the image into bytes, downloading URL-backed images
// through client. It is the single point where the union collapses.
func (i Image) Resolve(ctx context.Context, client *http.Client) ([]byte, error) {
	switch i.kind {
	case imageBytes:
		if len(i.data) == 0 {
			return nil, errors.New("empty image payload")
		}
		return i.data, nil
	case imageURL:
		if client == nil {
			client = http.DefaultClient
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, i.url, nil)
		if err != nil {
			return nil, fmt.Errorf("build image request: %w", err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch image %s: %w", i.url, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetch image %s: status %d", i.url, resp.StatusCode)
		}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read image %s: %w", i.url, err)
		}
		return data, nil
	default:
		return nil, errors.New("unknown image input kind")
	}
}
