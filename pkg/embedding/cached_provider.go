package embedding

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedProvider memoizes embeddings per (taskType, text).
// Chat turns re-embed the same inputs for the document and chat indexes.
type CachedProvider struct {
	next  EmbeddingProvider
	cache *lru.Cache[string, []float32]
}

func NewCachedProvider(next EmbeddingProvider, size int) (*CachedProvider, error) {
	if size <= 0 {
		size = 512
	}
	c, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, err
	}
	return &CachedProvider{next: next, cache: c}, nil
}

func (p *CachedProvider) Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error) {
	key := taskType + "\x00" + text
	if v, ok := p.cache.Get(key); ok {
		return &EmbeddingResponse{Embedding: EmbeddingResponseEmbedding{Values: v}}, nil
	}

	res, err := p.next.Generate(ctx, text, taskType)
	if err != nil {
		return nil, err
	}
	p.cache.Add(key, res.Embedding.Values)
	return res, nil
}
