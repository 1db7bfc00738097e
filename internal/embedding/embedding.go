// Package embedding turns text into dense sentence vectors by calling an
// external embedding model, and compares vectors with cosine similarity.
//
// Three providers are supported:
//
//	ollama       POST {base_url}/api/embed                       (default model all-minilm)
//	huggingface  POST {base_url}/pipeline/feature-extraction/{m} (default sentence-transformers/all-MiniLM-L6-v2)
//	gemini       google.golang.org/genai Models.EmbedContent     (default text-embedding-004)
//
// all-minilm in Ollama and the HuggingFace default are the same
// all-MiniLM-L6-v2 sentence-transformers checkpoint.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/aanand-mishra/alumni-match-api/internal/config"
	"github.com/aanand-mishra/alumni-match-api/internal/metrics"
)

// ErrUnavailable wraps every provider failure so callers can map it to a
// single upstream error without knowing which provider is configured.
var ErrUnavailable = errors.New("embedding: provider unavailable")

// Embedder produces one vector per input text, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Name() string
}

// Provider names accepted in config.Embedding.Provider.
const (
	ProviderOllama      = "ollama"
	ProviderHuggingFace = "huggingface"
	ProviderGemini      = "gemini"
)

// New builds the provider named by cfg.Provider, wrapped so every call is
// timed and every failure wraps ErrUnavailable.
func New(ctx context.Context, cfg config.Embedding) (Embedder, error) {
	var (
		e   Embedder
		err error
	)
	switch cfg.Provider {
	case ProviderOllama:
		e = NewOllama(cfg)
	case ProviderHuggingFace:
		e, err = NewHuggingFace(cfg)
	case ProviderGemini:
		e, err = NewGemini(ctx, cfg)
	default:
		return nil, fmt.Errorf("embedding.New: unknown provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("embedding.New: %w", err)
	}
	return Instrument(e), nil
}

// Instrument wraps e with latency metrics and ErrUnavailable wrapping.
func Instrument(e Embedder) Embedder {
	return instrumented{next: e}
}

type instrumented struct {
	next Embedder
}

func (i instrumented) Name() string { return i.next.Name() }

func (i instrumented) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	vecs, err := i.next.Embed(ctx, texts)

	status := "ok"
	if err == nil && len(vecs) != len(texts) {
		err = fmt.Errorf("got %d embeddings for %d texts", len(vecs), len(texts))
	}
	if err != nil {
		status = "error"
	}
	metrics.EmbeddingDuration.WithLabelValues(i.next.Name(), status).Observe(time.Since(start).Seconds())

	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, i.next.Name(), err)
	}
	return vecs, nil
}

// CosineSimilarity returns the cosine of the angle between a and b in
// [-1, 1]. Mismatched lengths and zero vectors yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
