// Package gemini extracts propositions from document text using the Gemini
// generateContent API with structured JSON output.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kushwanth-masupalli/QueryVault/internal/retry"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

const DefaultModel = "gemini-1.5-flash"

const extractionInstruction = `Decompose the given text into simple, self-contained propositions.
Each proposition is a single factual statement that stands on its own:
1. Split compound sentences into one proposition per fact.
2. Replace pronouns with the entity they refer to.
3. Do not add facts that are not in the text.
Return JSON with a "sentences" array containing the propositions.`

// Client is a minimal client for the Gemini generateContent API
type Client struct {
	APIKey      string
	Model       string
	HTTPClient  *http.Client
	RetryConfig retry.Config
	BaseURL     string
}

// propositionPayload is the structured output shape requested from the model
type propositionPayload struct {
	Sentences []string `json:"sentences"`
}

// NewClient creates a new Gemini client
func NewClient(apiKey, model string, timeout time.Duration) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("google API key is required")
	}
	if model == "" {
		model = DefaultModel
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		APIKey:      apiKey,
		Model:       model,
		HTTPClient:  &http.Client{Timeout: timeout},
		RetryConfig: retry.DefaultConfig(),
		BaseURL:     geminiBaseURL,
	}, nil
}

// SetBaseURL overrides the API base URL
func (c *Client) SetBaseURL(baseURL string) {
	c.BaseURL = strings.TrimRight(baseURL, "/")
}

// ExtractPropositions turns one paragraph into short atomic statements
func (c *Client) ExtractPropositions(ctx context.Context, paragraph string) ([]string, error) {
	paragraph = strings.TrimSpace(paragraph)
	if paragraph == "" {
		return nil, fmt.Errorf("cannot extract propositions from empty text")
	}

	temperature := float32(0)
	req := GenerateContentRequest{
		Contents: []Content{
			{Role: "user", Parts: []Part{{Text: paragraph}}},
		},
		SystemInstruction: &Content{
			Parts: []Part{{Text: extractionInstruction}},
		},
		GenerationConfig: &GenerationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema: &Schema{
				Type: SchemaTypeObject,
				Properties: map[string]Schema{
					"sentences": {
						Type:  SchemaTypeArray,
						Items: &Schema{Type: SchemaTypeString},
					},
				},
				Required: []string{"sentences"},
			},
			Temperature: &temperature,
		},
	}

	resp, err := c.generateContent(ctx, req)
	if err != nil {
		return nil, err
	}

	payload, err := parsePropositions(resp)
	if err != nil {
		return nil, err
	}

	// The model occasionally emits empty or whitespace-only entries
	propositions := make([]string, 0, len(payload.Sentences))
	for _, sentence := range payload.Sentences {
		if s := strings.TrimSpace(sentence); s != "" {
			propositions = append(propositions, s)
		}
	}

	return propositions, nil
}

// generateContent sends a generateContent request with retry logic
func (c *Client) generateContent(ctx context.Context, genReq GenerateContentRequest) (*GenerateContentResponse, error) {
	payload, err := json.Marshal(genReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.BaseURL, c.Model)

	bodyBytes, err := retry.Do(ctx, retry.Options{Config: c.RetryConfig, APIName: "gemini"}, func(attempt int) (int, []byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return 0, nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-goog-api-key", c.APIKey)

		resp, err := c.HTTPClient.Do(req)
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

	var genResp GenerateContentResponse
	if err := json.Unmarshal(bodyBytes, &genResp); err != nil {
		return nil, &GenerateError{
			Message: fmt.Sprintf("failed to parse generateContent response: %v", err),
			RawBody: json.RawMessage(bodyBytes),
		}
	}

	return &genResp, nil
}

func parsePropositions(resp *GenerateContentResponse) (*propositionPayload, error) {
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		raw, _ := json.Marshal(resp)
		return nil, &GenerateError{
			Message: "generateContent response has no candidates",
			RawBody: raw,
		}
	}

	text := resp.Candidates[0].Content.Parts[0].Text

	var payload propositionPayload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil, &GenerateError{
			Message: fmt.Sprintf("structured output is not valid JSON: %v", err),
			RawBody: json.RawMessage(text),
		}
	}

	return &payload, nil
}
