package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/aanand-mishra/alumni-match-api/internal/config"
)

const (
	defaultOllamaURL   = "http://localhost:11434"
	defaultOllamaModel = "all-minilm"
)

// Ollama calls a local or remote Ollama server's /api/embed endpoint.
type Ollama struct {
	baseURL string
	model   string
	poster  httpPoster
}

// NewOllama builds an Ollama embedder; empty BaseURL and Model fall back to
// http://localhost:11434 and all-minilm.
func NewOllama(cfg config.Embedding) *Ollama {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultOllamaModel
	}

	return &Ollama{
		baseURL: baseURL,
		model:   model,
		poster: httpPoster{
			client:     &http.Client{Timeout: cfg.Timeout},
			maxRetries: cfg.MaxRetries,
		},
	}
}

func (o *Ollama) Name() string { return ProviderOllama }

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
}

func (o *Ollama) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(ollamaEmbedRequest{Model: o.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("ollama: marshal request: %w", err)
	}

	data, err := o.poster.post(ctx, o.baseURL+"/api/embed", body)
	if err != nil {
		return nil, fmt.Errorf("ollama: %w", err)
	}

	var resp ollamaEmbedResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("ollama: decode response: %w", err)
	}

	return resp.Embeddings, nil
}
