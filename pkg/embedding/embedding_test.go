package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProvider struct {
	calls int
	err   error
}

func (p *countingProvider) Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return &EmbeddingResponse{Embedding: EmbeddingResponseEmbedding{Values: []float32{float32(len(text)), 1}}}, nil
}

func TestOllamaProvider_NormalizesVector(t *testing.T) {
	var seen ollamaEmbedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&seen))
		_, _ = w.Write([]byte(`{"model":"nomic-embed-text","embeddings":[[3,4]]}`))
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL+"/", "")
	res, err := p.Generate(context.Background(), "cough", TaskRetrievalQuery)
	require.NoError(t, err)

	assert.Equal(t, "nomic-embed-text", seen.Model)
	assert.Equal(t, "search_query: cough", seen.Input)

	v := res.Embedding.Values
	require.Len(t, v, 2)
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)
	assert.InDelta(t, 1.0, math.Hypot(float64(v[0]), float64(v[1])), 1e-6)
}

func TestOllamaProvider_TaskPrefixes(t *testing.T) {
	tests := []struct {
		model    string
		taskType string
		want     string
	}{
		{"nomic-embed-text", TaskRetrievalDocument, "search_document: fever"},
		{"nomic-embed-text:v1.5", TaskRetrievalQuery, "search_query: fever"},
		{"mxbai-embed-large", TaskRetrievalQuery, "fever"},
		{"nomic-embed-text", "", "fever"},
	}
	for _, tt := range tests {
		p := NewOllamaProvider("", tt.model).(*OllamaProvider)
		assert.Equal(t, tt.want, p.prefixed("fever", tt.taskType), tt.model)
	}
}

func TestOllamaProvider_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model \"missing\" not found"}`))
	}))
	defer srv.Close()

	_, err := NewOllamaProvider(srv.URL, "missing").Generate(context.Background(), "x", TaskRetrievalQuery)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
	assert.Contains(t, err.Error(), `model "missing" not found`)
}

func TestOllamaProvider_EmptyVector(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[]}`))
	}))
	defer srv.Close()

	_, err := NewOllamaProvider(srv.URL, "nomic-embed-text").Generate(context.Background(), "x", TaskRetrievalDocument)
	assert.ErrorContains(t, err, "empty vector")
}

func TestCachedProvider(t *testing.T) {
	inner := &countingProvider{}
	p, err := NewCachedProvider(inner, 8)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = p.Generate(ctx, "cough", TaskRetrievalQuery)
	require.NoError(t, err)
	_, err = p.Generate(ctx, "cough", TaskRetrievalQuery)
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls)

	_, err = p.Generate(ctx, "cough", TaskRetrievalDocument)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedProvider_DoesNotCacheErrors(t *testing.T) {
	inner := &countingProvider{err: errors.New("down")}
	p, err := NewCachedProvider(inner, 8)
	require.NoError(t, err)

	_, err = p.Generate(context.Background(), "cough", TaskRetrievalQuery)
	assert.Error(t, err)
	_, err = p.Generate(context.Background(), "cough", TaskRetrievalQuery)
	assert.Error(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestProviderEmbedder(t *testing.T) {
	e := NewEmbedder(&countingProvider{})
	docs, err := e.EmbedDocuments(context.Background(), []string{"a", "bbb"})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, float32(3), docs[1][0])

	q, err := e.EmbedQuery(context.Background(), "cc")
	require.NoError(t, err)
	assert.Equal(t, float32(2), q[0])
}

func TestHashProvider(t *testing.T) {
	p := NewHashProvider(32)
	ctx := context.Background()

	a, err := p.Generate(ctx, "Chest pain when running", TaskRetrievalDocument)
	require.NoError(t, err)
	b, err := p.Generate(ctx, "chest pain, running!", TaskRetrievalQuery)
	require.NoError(t, err)
	empty, err := p.Generate(ctx, "   ", TaskRetrievalQuery)
	require.NoError(t, err)

	assert.Len(t, a.Embedding.Values, 32)
	assert.InDelta(t, 1.0, dot(a.Embedding.Values, a.Embedding.Values), 1e-5)
	assert.Greater(t, dot(a.Embedding.Values, b.Embedding.Values), float32(0.8))
	assert.InDelta(t, 1.0, dot(empty.Embedding.Values, empty.Embedding.Values), 1e-5)
}

func dot(a, b []float32) float32 {
	var s float32
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
