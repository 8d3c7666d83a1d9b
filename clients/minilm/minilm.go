// Package minilm embeds text through a local sentence-transformers server
// exposing an OpenAI-compatible /embeddings endpoint (LM Studio, Ollama, or
// text-embeddings-inference all qualify).
package minilm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/kushwanth-masupalli/QueryVault/internal/retry"
)

const DefaultModel = "all-MiniLM-L6-v2"

const DefaultDimensions = 384

// Client talks to the embedding server. The model handle is owned by the
// client instance: the first embedding triggers a warmup request under the
// init timeout (the server may still be loading model weights), and the
// outcome is memoized for the lifetime of the client.
type Client struct {
	baseURL        string
	model          string
	dimension      int
	httpClient     *http.Client
	requestTimeout time.Duration
	initTimeout    time.Duration
	retryConfig    retry.Config

	initOnce sync.Once
	initErr  error
}

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingResponse struct {
	Data  []embeddingData `json:"data"`
	Error *apiError       `json:"error,omitempty"`
}

type embeddingData struct {
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// NewClient creates a client for the embedding server at baseURL.
func NewClient(baseURL, model string, dimension int, requestTimeout, initTimeout time.Duration) *Client {
	if model == "" {
		model = DefaultModel
	}
	if dimension <= 0 {
		dimension = DefaultDimensions
	}
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}
	if initTimeout <= 0 {
		initTimeout = 120 * time.Second
	}

	// Timeouts are applied per call through the request context, not on the
	// http.Client: a client-level timeout would also cap the warmup request,
	// which gets the longer init budget.
	return &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		model:          model,
		dimension:      dimension,
		httpClient:     &http.Client{},
		requestTimeout: requestTimeout,
		initTimeout:    initTimeout,
		retryConfig:    retry.DefaultConfig(),
	}
}

// EnsureInitialized performs the one-time warmup embed that forces the server
// to load the model. It runs at most once per client; a failure is memoized
// and every later call reports it, since a client whose model never loaded is
// unusable for the rest of the process.
func (c *Client) EnsureInitialized(ctx context.Context) error {
	c.initOnce.Do(func() {
		warmupCtx, cancel := context.WithTimeout(ctx, c.initTimeout)
		defer cancel()

		vector, err := c.embed(warmupCtx, "warmup")
		if err != nil {
			c.initErr = fmt.Errorf("embedding model %s failed to initialize: %w", c.model, err)
			return
		}
		if len(vector) != c.dimension {
			c.initErr = fmt.Errorf("embedding model %s produced dimension %d, configured for %d", c.model, len(vector), c.dimension)
		}
	})
	return c.initErr
}

// GenerateEmbedding embeds a single text. Per-call failures name the
// offending text; callers decide whether to retry the whole operation.
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("cannot embed empty text")
	}
	if err := c.EnsureInitialized(ctx); err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	vector, err := c.embed(callCtx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed %q: %w", truncate(text, 60), err)
	}
	if len(vector) != c.dimension {
		return nil, fmt.Errorf("embedding for %q has dimension %d, expected %d", truncate(text, 60), len(vector), c.dimension)
	}

	return vector, nil
}

// Dimension returns the configured embedding dimension
func (c *Client) Dimension() int {
	return c.dimension
}

func (c *Client) embed(ctx context.Context, text string) ([]float32, error) {
	payload, err := json.Marshal(embeddingRequest{Input: []string{text}, Model: c.model})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	body, err := retry.Do(ctx, retry.Options{Config: c.retryConfig, APIName: "embedding"}, func(attempt int) (int, []byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(payload))
		if err != nil {
			return 0, nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return 0, nil, err
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return resp.StatusCode, nil, err
		}
		return resp.StatusCode, respBody, nil
	})
	if err != nil {
		return nil, err
	}

	var embResp embeddingResponse
	if err := json.Unmarshal(body, &embResp); err != nil {
		return nil, fmt.Errorf("failed to parse embedding response (body: %s): %w", truncate(string(body), 200), err)
	}
	if embResp.Error != nil {
		return nil, fmt.Errorf("embedding server error: %s", embResp.Error.Message)
	}
	if len(embResp.Data) == 0 {
		return nil, fmt.Errorf("embedding server returned no data (body: %s)", truncate(string(body), 200))
	}

	return embResp.Data[0].Embedding, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
