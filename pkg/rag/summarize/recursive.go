// Package summarize condenses a whole document corpus into a single passage.
package summarize

import (
	"context"
	"fmt"
	"strings"

	"ai-medchat-be/pkg/llm"
)

const DefaultBatchSize = 8

// summaryTemperature keeps condensed passages close to the source wording
const summaryTemperature = 0.2

// RecursiveSummarizer folds chunks batch by batch until one summary remains.
// No single generation call ever sees more than BatchSize inputs.
type RecursiveSummarizer struct {
	llm       llm.LLMProvider
	batchSize int
}

func NewRecursiveSummarizer(provider llm.LLMProvider, batchSize int) *RecursiveSummarizer {
	if batchSize < 2 {
		batchSize = DefaultBatchSize
	}
	return &RecursiveSummarizer{llm: provider, batchSize: batchSize}
}

func (s *RecursiveSummarizer) BatchSize() int {
	return s.batchSize
}

// Summarize returns one condensed passage for chunks
func (s *RecursiveSummarizer) Summarize(ctx context.Context, chunks []string) (string, error) {
	if len(chunks) == 0 {
		return "", nil
	}

	level := chunks
	for {
		if len(level) <= s.batchSize {
			return s.summarizeBatch(ctx, level)
		}

		next := make([]string, 0, (len(level)+s.batchSize-1)/s.batchSize)
		for start := 0; start < len(level); start += s.batchSize {
			end := min(start+s.batchSize, len(level))
			batch := level[start:end]

			// A lone trailing chunk moves up a level untouched
			if len(batch) == 1 {
				next = append(next, batch[0])
				continue
			}

			summary, err := s.summarizeBatch(ctx, batch)
			if err != nil {
				return "", err
			}
			next = append(next, summary)
		}
		level = next
	}
}

func (s *RecursiveSummarizer) summarizeBatch(ctx context.Context, batch []string) (string, error) {
	summary, err := s.llm.Generate(ctx, buildPrompt(batch), llm.WithTemperature(summaryTemperature))
	if err != nil {
		return "", fmt.Errorf("summarize batch of %d: %w", len(batch), err)
	}
	return strings.TrimSpace(summary), nil
}

func buildPrompt(batch []string) string {
	var prompt strings.Builder
	prompt.WriteString("Summarize the following medical document excerpts into one concise passage.\n")
	prompt.WriteString("Keep diagnoses, medications, dosages and dates. Do not add information that is not in the excerpts.\n\n")
	for i, chunk := range batch {
		fmt.Fprintf(&prompt, "Excerpt %d:\n%s\n\n", i+1, chunk)
	}
	prompt.WriteString("Summary:")
	return prompt.String()
}
