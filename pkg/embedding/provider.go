package embedding

import "context"

// Task types passed to providers that tune embeddings per use
const (
	TaskRetrievalQuery    = "RETRIEVAL_QUERY"
	TaskRetrievalDocument = "RETRIEVAL_DOCUMENT"
)

type EmbeddingResponseEmbedding struct {
	Values []float32 `json:"values"`
}

type EmbeddingResponse struct {
	Embedding EmbeddingResponseEmbedding `json:"embedding"`
}

// EmbeddingProvider defines the interface for generating text embeddings
type EmbeddingProvider interface {
	Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error)
}

// Embedder is the batch/query view the vector index needs
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// ProviderEmbedder adapts an EmbeddingProvider to Embedder
type ProviderEmbedder struct {
	provider EmbeddingProvider
}

func NewEmbedder(provider EmbeddingProvider) *ProviderEmbedder {
	return &ProviderEmbedder{provider: provider}
}

func (e *ProviderEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		res, err := e.provider.Generate(ctx, text, TaskRetrievalDocument)
		if err != nil {
			return nil, err
		}
		out[i] = res.Embedding.Values
	}
	return out, nil
}

func (e *ProviderEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	res, err := e.provider.Generate(ctx, text, TaskRetrievalQuery)
	if err != nil {
		return nil, err
	}
	return res.Embedding.Values, nil
}
