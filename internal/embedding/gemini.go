package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/aanand-mishra/alumni-match-api/internal/config"
)

const (
	defaultGeminiModel = "text-embedding-004"

	// geminiBatchSize is the most contents the API accepts per call.
	geminiBatchSize = 100
)

// contentEmbedder is the slice of *genai.Models used here.
type contentEmbedder interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// Gemini embeds text through the Gemini API.
type Gemini struct {
	models contentEmbedder
	model  string
}

// NewGemini creates a genai client for the Gemini API backend.
func NewGemini(ctx context.Context, cfg config.Embedding) (*Gemini, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini: api_key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	return newGemini(client.Models, cfg.Model), nil
}

func newGemini(models contentEmbedder, model string) *Gemini {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultGeminiModel
	}
	return &Gemini{models: models, model: model}
}

func (g *Gemini) Name() string { return ProviderGemini }

func (g *Gemini) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += geminiBatchSize {
		end := min(start+geminiBatchSize, len(texts))

		contents := make([]*genai.Content, 0, end-start)
		for _, text := range texts[start:end] {
			contents = append(contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{{Text: text}},
			})
		}

		resp, err := g.models.EmbedContent(ctx, g.model, contents, &genai.EmbedContentConfig{
			TaskType: "SEMANTIC_SIMILARITY",
		})
		if err != nil {
			return nil, fmt.Errorf("gemini: embed content: %w", err)
		}
		if resp == nil || len(resp.Embeddings) != end-start {
			return nil, fmt.Errorf("gemini: expected %d embeddings", end-start)
		}
		for _, e := range resp.Embeddings {
			if e == nil {
				return nil, errors.New("gemini: nil embedding in response")
			}
			out = append(out, e.Values)
		}
	}

	return out, nil
}
