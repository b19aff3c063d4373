/**
 * VoyageAI embedding client
 *
 * Generates voyage-3 embeddings (1024 dimensions) for processed document
 * text so results can be searched semantically.
 */

package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pagelens/ocr-gateway/internal/logging"
)

// EmbeddingDimensions is the voyage-3 output size
const EmbeddingDimensions = 1024

// maxEmbeddingChars bounds input length against VoyageAI token limits
const maxEmbeddingChars = 16000

// EmbeddingClient generates VoyageAI embeddings
type EmbeddingClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

type embeddingRequest struct {
	Input string `json:"input"`
	Model string `json:"model"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// NewEmbeddingClient creates a VoyageAI client
func NewEmbeddingClient(apiKey string) (*EmbeddingClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("VoyageAI API key is required")
	}

	return &EmbeddingClient{
		apiKey:  apiKey,
		baseURL: "https://api.voyageai.com/v1/embeddings",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logging.NewLogger("embedding"),
	}, nil
}

// GenerateEmbedding returns the voyage-3 embedding for text
func (e *EmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("text is required")
	}

	if len(text) > maxEmbeddingChars {
		e.logger.Warn("Truncating text for embedding", "chars", len(text), "limit", maxEmbeddingChars)
		text = text[:maxEmbeddingChars]
	}

	jsonData, err := json.Marshal(embeddingRequest{Input: text, Model: "voyage-3"})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", e.baseURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", e.apiKey))

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("VoyageAI API returned status %d: %s", resp.StatusCode, string(body))
	}

	var result embeddingResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(result.Data) == 0 {
		return nil, fmt.Errorf("VoyageAI API returned no embeddings")
	}

	embedding := result.Data[0].Embedding
	if len(embedding) != EmbeddingDimensions {
		return nil, fmt.Errorf("unexpected embedding dimensions: got %d, want %d", len(embedding), EmbeddingDimensions)
	}

	e.logger.Debug("Generated embedding", "tokens", result.Usage.TotalTokens)
	return embedding, nil
}
