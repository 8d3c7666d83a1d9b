package minilm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newEmbeddingServer(t *testing.T, dimension int, requests *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(requests, 1)

		if r.URL.Path != "/embeddings" {
			t.Errorf("Expected path /embeddings, got %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}

		var req embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		if len(req.Input) != 1 {
			t.Errorf("Expected single input, got %d", len(req.Input))
		}
		if req.Model == "" {
			t.Error("Expected model in request body")
		}

		vector := make([]float32, dimension)
		for i := range vector {
			vector[i] = float32(i) / float32(dimension)
		}
		json.NewEncoder(w).Encode(embeddingResponse{
			Data: []embeddingData{{Embedding: vector, Index: 0}},
		})
	}))
}

func TestGenerateEmbedding_ReturnsConfiguredDimension(t *testing.T) {
	var requests int32
	server := newEmbeddingServer(t, 384, &requests)
	defer server.Close()

	client := NewClient(server.URL, DefaultModel, 384, 5*time.Second, 5*time.Second)

	vector, err := client.GenerateEmbedding(context.Background(), "The sky is blue.")
	if err != nil {
		t.Fatalf("GenerateEmbedding failed: %v", err)
	}
	if len(vector) != 384 {
		t.Errorf("Expected 384 dimensions, got %d", len(vector))
	}
}

func TestGenerateEmbedding_EmptyText(t *testing.T) {
	client := NewClient("http://localhost:1", DefaultModel, 384, time.Second, time.Second)

	if _, err := client.GenerateEmbedding(context.Background(), "   "); err == nil {
		t.Error("Expected error for empty text")
	}
}

func TestGenerateEmbedding_DimensionMismatch(t *testing.T) {
	var requests int32
	server := newEmbeddingServer(t, 128, &requests)
	defer server.Close()

	client := NewClient(server.URL, DefaultModel, 384, 5*time.Second, 5*time.Second)

	_, err := client.GenerateEmbedding(context.Background(), "text")
	if err == nil {
		t.Fatal("Expected dimension mismatch error")
	}
}

func TestEnsureInitialized_WarmupRunsOnce(t *testing.T) {
	var requests int32
	server := newEmbeddingServer(t, 384, &requests)
	defer server.Close()

	client := NewClient(server.URL, DefaultModel, 384, 5*time.Second, 5*time.Second)

	if err := client.EnsureInitialized(context.Background()); err != nil {
		t.Fatalf("EnsureInitialized failed: %v", err)
	}
	if err := client.EnsureInitialized(context.Background()); err != nil {
		t.Fatalf("Second EnsureInitialized failed: %v", err)
	}

	if got := atomic.LoadInt32(&requests); got != 1 {
		t.Errorf("Expected exactly 1 warmup request, got %d", got)
	}

	// A real embedding should add exactly one more request.
	if _, err := client.GenerateEmbedding(context.Background(), "hello"); err != nil {
		t.Fatalf("GenerateEmbedding failed: %v", err)
	}
	if got := atomic.LoadInt32(&requests); got != 2 {
		t.Errorf("Expected 2 requests after one embedding, got %d", got)
	}
}

func TestEnsureInitialized_FailureIsMemoized(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		http.Error(w, `{"error":{"message":"model not found"}}`, http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, "no-such-model", 384, time.Second, time.Second)

	if err := client.EnsureInitialized(context.Background()); err == nil {
		t.Fatal("Expected initialization failure")
	}
	before := atomic.LoadInt32(&requests)

	// Later calls must fail fast from the memoized error, not re-hit the server.
	if _, err := client.GenerateEmbedding(context.Background(), "text"); err == nil {
		t.Fatal("Expected memoized init failure")
	}
	if atomic.LoadInt32(&requests) != before {
		t.Error("Expected no further requests after memoized init failure")
	}
}

func TestEnsureInitialized_SlowWarmupUsesInitTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Slower than the request timeout, well within the init timeout.
		time.Sleep(300 * time.Millisecond)

		vector := make([]float32, 384)
		json.NewEncoder(w).Encode(embeddingResponse{
			Data: []embeddingData{{Embedding: vector, Index: 0}},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, DefaultModel, 384, 100*time.Millisecond, 5*time.Second)

	if err := client.EnsureInitialized(context.Background()); err != nil {
		t.Fatalf("Expected warmup to run under the init timeout, got %v", err)
	}

	// Once initialized, ordinary embeds are bounded by the request timeout
	// and must give up against the still-slow server.
	if _, err := client.GenerateEmbedding(context.Background(), "text"); err == nil {
		t.Error("Expected request timeout for slow embed after warmup")
	}
}

func TestGenerateEmbedding_MalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := NewClient(server.URL, DefaultModel, 384, time.Second, time.Second)

	_, err := client.GenerateEmbedding(context.Background(), "text")
	if err == nil {
		t.Fatal("Expected error for malformed response")
	}
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient("http://localhost:8080/v1/", "", 0, 0, 0)

	if client.model != DefaultModel {
		t.Errorf("Expected default model %s, got %s", DefaultModel, client.model)
	}
	if client.Dimension() != DefaultDimensions {
		t.Errorf("Expected default dimension %d, got %d", DefaultDimensions, client.Dimension())
	}
	if client.baseURL != "http://localhost:8080/v1" {
		t.Errorf("Expected trailing slash trimmed, got %s", client.baseURL)
	}
}
