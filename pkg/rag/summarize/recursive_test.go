package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"ai-medchat-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingLLM struct {
	mu      sync.Mutex
	prompts []string
	temps   []float64
	err     error
}

func (c *countingLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return c.Generate(ctx, history[len(history)-1].Content, options...)
}

func (c *countingLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return "", c.err
	}
	c.prompts = append(c.prompts, prompt)
	var opts llm.Options
	for _, o := range options {
		o(&opts)
	}
	c.temps = append(c.temps, opts.Temperature)
	return fmt.Sprintf("summary-%d", len(c.prompts)), nil
}

func chunks(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("chunk %d", i)
	}
	return out
}

func TestRecursiveSummarizer_CallCounts(t *testing.T) {
	tests := []struct {
		name      string
		n         int
		batchSize int
		wantCalls int
	}{
		{name: "empty corpus", n: 0, batchSize: 8, wantCalls: 0},
		{name: "single chunk", n: 1, batchSize: 8, wantCalls: 1},
		{name: "fits in one batch", n: 5, batchSize: 8, wantCalls: 1},
		{name: "exactly one batch", n: 8, batchSize: 8, wantCalls: 1},
		{name: "two full batches and a straggler", n: 17, batchSize: 8, wantCalls: 3},
		{name: "two partial batches", n: 12, batchSize: 8, wantCalls: 3},
		{name: "three levels", n: 80, batchSize: 8, wantCalls: 13},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &countingLLM{}
			s := NewRecursiveSummarizer(provider, tt.batchSize)

			_, err := s.Summarize(context.Background(), chunks(tt.n))
			require.NoError(t, err)
			assert.Len(t, provider.prompts, tt.wantCalls)
		})
	}
}

func TestRecursiveSummarizer_NoCallExceedsBatch(t *testing.T) {
	provider := &countingLLM{}
	s := NewRecursiveSummarizer(provider, 4)

	_, err := s.Summarize(context.Background(), chunks(37))
	require.NoError(t, err)

	for _, p := range provider.prompts {
		assert.LessOrEqual(t, strings.Count(p, "Excerpt "), 4)
	}
}

func TestRecursiveSummarizer_FinalPassSeesBatchSummaries(t *testing.T) {
	provider := &countingLLM{}
	s := NewRecursiveSummarizer(provider, 8)

	out, err := s.Summarize(context.Background(), chunks(17))
	require.NoError(t, err)
	assert.Equal(t, "summary-3", out)

	final := provider.prompts[2]
	assert.Contains(t, final, "summary-1")
	assert.Contains(t, final, "summary-2")
	assert.Contains(t, final, "chunk 16")
}

func TestRecursiveSummarizer_PropagatesErrors(t *testing.T) {
	boom := errors.New("ollama unreachable")
	s := NewRecursiveSummarizer(&countingLLM{err: boom}, 8)

	_, err := s.Summarize(context.Background(), chunks(3))
	assert.ErrorIs(t, err, boom)
}

func TestNewRecursiveSummarizer_DefaultsBatchSize(t *testing.T) {
	assert.Equal(t, DefaultBatchSize, NewRecursiveSummarizer(&countingLLM{}, 0).BatchSize())
}

func TestRecursiveSummarizer_UsesLowTemperature(t *testing.T) {
	provider := &countingLLM{}
	_, err := NewRecursiveSummarizer(provider, 8).Summarize(context.Background(), chunks(12))
	require.NoError(t, err)

	require.Len(t, provider.temps, 3)
	for _, temp := range provider.temps {
		assert.Equal(t, summaryTemperature, temp)
	}
}
