package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aanand-mishra/alumni-match-api/internal/config"
)

const (
	defaultHuggingFaceURL   = "https://api-inference.huggingface.co"
	defaultHuggingFaceModel = "sentence-transformers/all-MiniLM-L6-v2"
)

// HuggingFace calls the Inference API feature-extraction pipeline.
type HuggingFace struct {
	baseURL string
	model   string
	poster  httpPoster
}

// NewHuggingFace builds a HuggingFace embedder. An API token is required.
func NewHuggingFace(cfg config.Embedding) (*HuggingFace, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("huggingface: api_key is required")
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultHuggingFaceURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultHuggingFaceModel
	}

	return &HuggingFace{
		baseURL: baseURL,
		model:   model,
		poster: httpPoster{
			client:     &http.Client{Timeout: cfg.Timeout},
			maxRetries: cfg.MaxRetries,
			headers:    map[string]string{"Authorization": "Bearer " + cfg.APIKey},
		},
	}, nil
}

func (h *HuggingFace) Name() string { return ProviderHuggingFace }

type hfRequest struct {
	Inputs  []string  `json:"inputs"`
	Options hfOptions `json:"options"`
}

type hfOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

func (h *HuggingFace) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(hfRequest{Inputs: texts, Options: hfOptions{WaitForModel: true}})
	if err != nil {
		return nil, fmt.Errorf("huggingface: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/pipeline/feature-extraction/%s", h.baseURL, h.model)
	data, err := h.poster.post(ctx, url, body)
	if err != nil {
		return nil, fmt.Errorf("huggingface: %w", err)
	}

	// Sentence-transformers models return one pooled vector per input.
	var pooled [][]float32
	if err := json.Unmarshal(data, &pooled); err == nil {
		return pooled, nil
	}

	// Plain transformer models return token-level vectors; mean-pool them.
	var tokens [][][]float32
	if err := json.Unmarshal(data, &tokens); err != nil {
		return nil, fmt.Errorf("huggingface: decode response: %w", err)
	}
	out := make([][]float32, len(tokens))
	for i, t := range tokens {
		out[i] = meanPool(t)
	}
	return out, nil
}

func meanPool(tokens [][]float32) []float32 {
	if len(tokens) == 0 {
		return nil
	}
	out := make([]float32, len(tokens[0]))
	for _, tok := range tokens {
		for j := range out {
			if j < len(tok) {
				out[j] += tok[j]
			}
		}
	}
	n := float32(len(tokens))
	for j := range out {
		out[j] /= n
	}
	return out
}
