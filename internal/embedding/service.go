package embedding

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/jibbs-ai/catalog-ingest/internal/catalog"
	"github.com/jibbs-ai/catalog-ingest/internal/metrics"
)

// ServiceConfig configures the HTTP inference-service client.
type ServiceConfig struct {
	BaseURL   string
	Dimension int
	Timeout   time.Duration
}

// ServiceClient talks to the model inference sidecar over HTTP. It implements
// both Embedder and Captioner.
type ServiceClient struct {
	cfg    ServiceConfig
	httpc  *http.Client
	logger *zap.Logger
}

// NewServiceClient builds a ServiceClient.
func NewServiceClient(cfg ServiceConfig, logger *zap.Logger) *ServiceClient {
	if cfg.Dimension <= 0 {
		cfg.Dimension = 768
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &ServiceClient{
		cfg:    cfg,
		httpc:  &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

type embedTextRequest struct {
	Text string `json:"text"`
}

type embedImageRequest struct {
	ImageB64 string `json:"image_b64"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

type captionResponse struct {
	Caption string `json:"caption"`
}

// EmbedText returns the service's vector for the given text.
func (c *ServiceClient) EmbedText(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	var out embedResponse
	if err := c.post(ctx, "/v1/embed/text", embedTextRequest{Text: text}, &out); err != nil {
		return nil, err
	}
	metrics.ObserveEmbedding(catalog.EmbeddingText, time.Since(start))
	return c.checkDimension(out.Embedding)
}

// EmbedImage returns the service's vector for the given image bytes.
func (c *ServiceClient) EmbedImage(ctx context.Context, image []byte) ([]float32, error) {
	start := time.Now()
	var out embedResponse
	req := embedImageRequest{ImageB64: base64.StdEncoding.EncodeToString(image)}
	if err := c.post(ctx, "/v1/embed/image", req, &out); err != nil {
		return nil, err
	}
	metrics.ObserveEmbedding(catalog.EmbeddingImage, time.Since(start))
	return c.checkDimension(out.Embedding)
}

// Caption asks the service to describe the image.
func (c *ServiceClient) Caption(ctx context.Context, image []byte) (string, error) {
	var out captionResponse
	req := embedImageRequest{ImageB64: base64.StdEncoding.EncodeToString(image)}
	if err := c.post(ctx, "/v1/caption", req, &out); err != nil {
		return "", err
	}
	return out.Caption, nil
}

func (c *ServiceClient) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("call embedding service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("embedding service %s: status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode embedding response: %w", err)
	}
	return nil
}

func (c *ServiceClient) checkDimension(vec []float32) ([]float32, error) {
	if len(vec) != c.cfg.Dimension {
		return nil, fmt.Errorf("embedding dimension %d, want %d", len(vec), c.cfg.Dimension)
	}
	return vec, nil
}
