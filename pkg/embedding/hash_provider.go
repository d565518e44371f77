package embedding

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"
)

// DefaultHashDimensions matches the nomic-embed-text width so both providers fit the same pgvector column
const DefaultHashDimensions = 768

// HashProvider is an offline bag-of-words embedder.
// Texts sharing words land close together, which is enough for local runs and tests.
type HashProvider struct {
	Dimensions int
}

func NewHashProvider(dimensions int) EmbeddingProvider {
	if dimensions <= 0 {
		dimensions = 64
	}
	return &HashProvider{Dimensions: dimensions}
}

func (p *HashProvider) Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float32, p.Dimensions)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[h.Sum32()%uint32(p.Dimensions)] += 1
	}
	// keep the zero vector out of cosine math
	if len(words) == 0 {
		vec[0] = 1
	}

	return &EmbeddingResponse{
		Embedding: EmbeddingResponseEmbedding{Values: normalizeVector(vec)},
	}, nil
}
