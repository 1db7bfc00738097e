package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/aanand-mishra/alumni-match-api/internal/config"
)

func init() {
	retryBackoff = time.Millisecond
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 1}, []float32{-1, -1}, -1},
		{"scaled", []float32{1, 2}, []float32{2, 4}, 1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"length mismatch", []float32{1}, []float32{1, 1}, 0},
		{"empty", nil, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestOllama_Embed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/embed", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req ollamaEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "all-minilm", req.Model)
		assert.Equal(t, []string{"job", "resume"}, req.Input)

		_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{
			Model:      req.Model,
			Embeddings: [][]float32{{1, 0}, {0, 1}},
		})
	}))
	defer srv.Close()

	o := NewOllama(config.Embedding{BaseURL: srv.URL + "/", Timeout: time.Second})
	vecs, err := o.Embed(context.Background(), []string{"job", "resume"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vecs)
}

func TestOllama_EmptyInputSkipsRequest(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	vecs, err := NewOllama(config.Embedding{BaseURL: srv.URL}).Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
	assert.Zero(t, hits.Load())
}

func TestHTTPPoster_RetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			http.Error(w, "loading", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"embeddings":[[0.5,0.5]]}`))
	}))
	defer srv.Close()

	o := NewOllama(config.Embedding{BaseURL: srv.URL, MaxRetries: 2, Timeout: time.Second})
	vecs, err := o.Embed(context.Background(), []string{"x"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0.5, 0.5}}, vecs)
	assert.EqualValues(t, 3, hits.Load())
}

func TestHTTPPoster_GivesUpAfterMaxRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	o := NewOllama(config.Embedding{BaseURL: srv.URL, MaxRetries: 1, Timeout: time.Second})
	_, err := o.Embed(context.Background(), []string{"x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
	assert.EqualValues(t, 2, hits.Load())
}

func TestHTTPPoster_DoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	o := NewOllama(config.Embedding{BaseURL: srv.URL, MaxRetries: 3, Timeout: time.Second})
	_, err := o.Embed(context.Background(), []string{"x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not found")
	assert.EqualValues(t, 1, hits.Load())
}

func TestHuggingFace_Embed(t *testing.T) {
	t.Run("pooled vectors", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/pipeline/feature-extraction/sentence-transformers/all-MiniLM-L6-v2", r.URL.Path)
			assert.Equal(t, "Bearer hf_test", r.Header.Get("Authorization"))

			var req hfRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, []string{"a", "b"}, req.Inputs)
			assert.True(t, req.Options.WaitForModel)

			_, _ = w.Write([]byte(`[[1,2],[3,4]]`))
		}))
		defer srv.Close()

		h, err := NewHuggingFace(config.Embedding{BaseURL: srv.URL, APIKey: "hf_test", Timeout: time.Second})
		require.NoError(t, err)

		vecs, err := h.Embed(context.Background(), []string{"a", "b"})
		require.NoError(t, err)
		assert.Equal(t, [][]float32{{1, 2}, {3, 4}}, vecs)
	})

	t.Run("token vectors are mean pooled", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`[[[1,2],[3,4]],[[2,2]]]`))
		}))
		defer srv.Close()

		h, err := NewHuggingFace(config.Embedding{BaseURL: srv.URL, APIKey: "k", Model: "bert-base", Timeout: time.Second})
		require.NoError(t, err)

		vecs, err := h.Embed(context.Background(), []string{"a", "b"})
		require.NoError(t, err)
		assert.Equal(t, [][]float32{{2, 3}, {2, 2}}, vecs)
	})

	t.Run("malformed body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"error":"nope"}`))
		}))
		defer srv.Close()

		h, err := NewHuggingFace(config.Embedding{BaseURL: srv.URL, APIKey: "k", Timeout: time.Second})
		require.NoError(t, err)

		_, err = h.Embed(context.Background(), []string{"a"})
		assert.ErrorContains(t, err, "decode response")
	})
}

type fakeModels struct {
	calls [][]*genai.Content
	err   error
}

func (f *fakeModels) EmbedContent(_ context.Context, model string, contents []*genai.Content, cfg *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	f.calls = append(f.calls, contents)
	if f.err != nil {
		return nil, f.err
	}
	resp := &genai.EmbedContentResponse{}
	for range contents {
		resp.Embeddings = append(resp.Embeddings, &genai.ContentEmbedding{Values: []float32{float32(len(f.calls))}})
	}
	return resp, nil
}

func TestGemini_EmbedBatches(t *testing.T) {
	fake := &fakeModels{}
	g := newGemini(fake, "")
	assert.Equal(t, defaultGeminiModel, g.model)

	texts := make([]string, geminiBatchSize+5)
	for i := range texts {
		texts[i] = "resume"
	}

	vecs, err := g.Embed(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vecs, len(texts))
	require.Len(t, fake.calls, 2)
	assert.Len(t, fake.calls[0], geminiBatchSize)
	assert.Len(t, fake.calls[1], 5)
	assert.Equal(t, []float32{1}, vecs[0])
	assert.Equal(t, []float32{2}, vecs[len(vecs)-1])
	assert.Equal(t, "resume", fake.calls[0][0].Parts[0].Text)
}

func TestGemini_EmbedError(t *testing.T) {
	g := newGemini(&fakeModels{err: errors.New("quota exceeded")}, "text-embedding-004")
	_, err := g.Embed(context.Background(), []string{"a"})
	assert.ErrorContains(t, err, "quota exceeded")
}

type stubEmbedder struct {
	vecs [][]float32
	err  error
}

func (s stubEmbedder) Name() string { return "stub" }

func (s stubEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	return s.vecs, s.err
}

func TestInstrument(t *testing.T) {
	t.Run("passes vectors through", func(t *testing.T) {
		e := Instrument(stubEmbedder{vecs: [][]float32{{1}}})
		vecs, err := e.Embed(context.Background(), []string{"a"})
		require.NoError(t, err)
		assert.Equal(t, [][]float32{{1}}, vecs)
		assert.Equal(t, "stub", e.Name())
	})

	t.Run("wraps provider errors", func(t *testing.T) {
		e := Instrument(stubEmbedder{err: errors.New("connection refused")})
		_, err := e.Embed(context.Background(), []string{"a"})
		require.ErrorIs(t, err, ErrUnavailable)
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("rejects count mismatch", func(t *testing.T) {
		e := Instrument(stubEmbedder{vecs: [][]float32{{1}}})
		_, err := e.Embed(context.Background(), []string{"a", "b"})
		require.ErrorIs(t, err, ErrUnavailable)
		assert.Contains(t, err.Error(), "got 1 embeddings for 2 texts")
	})
}

func TestNew(t *testing.T) {
	e, err := New(context.Background(), config.Embedding{Provider: ProviderOllama})
	require.NoError(t, err)
	assert.Equal(t, ProviderOllama, e.Name())

	_, err = New(context.Background(), config.Embedding{Provider: "word2vec"})
	assert.ErrorContains(t, err, `unknown provider "word2vec"`)

	_, err = New(context.Background(), config.Embedding{Provider: ProviderHuggingFace})
	assert.ErrorContains(t, err, "api_key is required")

	_, err = New(context.Background(), config.Embedding{Provider: ProviderGemini})
	assert.ErrorContains(t, err, "api_key is required")
}

func TestMeanPool(t *testing.T) {
	assert.Nil(t, meanPool(nil))
	got := meanPool([][]float32{{1, 3}, {3, 5}})
	assert.InDelta(t, 2, got[0], 1e-6)
	assert.InDelta(t, 4, got[1], 1e-6)
	assert.False(t, math.IsNaN(float64(got[0])))
}
