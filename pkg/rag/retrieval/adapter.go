// Package retrieval picks passages from a session's document index for one turn.
package retrieval

import (
	"context"
	"errors"
	"strings"
	"time"

	"ai-medchat-be/internal/pkg/logger"
	"ai-medchat-be/pkg/rag/summarize"
	"ai-medchat-be/pkg/vectorindex"

	"github.com/samber/lo"
)

const DefaultTopK = 3

// Strategy records which path produced the passages
type Strategy string

const (
	StrategySummary    Strategy = "summary"
	StrategySearch     Strategy = "search"
	StrategyFullCorpus Strategy = "full_corpus"
	StrategyNone       Strategy = "none"
)

// Inputs containing one of these are treated as corpus-wide requests
var taskKeywords = []string{"summarize", "summarise", "explain", "analyze", "extract"}

// IsTaskOriented reports whether input asks for a corpus-wide task
func IsTaskOriented(input string) bool {
	lowered := strings.ToLower(input)
	return lo.SomeBy(taskKeywords, func(kw string) bool {
		return strings.Contains(lowered, kw)
	})
}

type Result struct {
	Passages []string
	Strategy Strategy
}

type Config struct {
	TopK     int
	ChatTopK int
	Timeout  time.Duration
}

// Adapter never fails a turn: collaborator errors are logged and yield no passages
type Adapter struct {
	index      vectorindex.Index
	summarizer *summarize.RecursiveSummarizer
	cfg        Config
	logger     logger.ILogger
}

func NewAdapter(index vectorindex.Index, summarizer *summarize.RecursiveSummarizer, cfg Config, log logger.ILogger) *Adapter {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.ChatTopK <= 0 {
		cfg.ChatTopK = DefaultTopK
	}
	return &Adapter{
		index:      index,
		summarizer: summarizer,
		cfg:        cfg,
		logger:     log,
	}
}

func (a *Adapter) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.cfg.Timeout)
}

// Retrieve returns the document passages for query
func (a *Adapter) Retrieve(ctx context.Context, sessionID, query string) Result {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	name := vectorindex.DocumentIndexName(sessionID)

	if IsTaskOriented(query) {
		return a.summarizeCorpus(ctx, name)
	}

	passages, err := a.index.Search(ctx, name, query, a.cfg.TopK)
	switch {
	case errors.Is(err, vectorindex.ErrIndexNotFound):
		return Result{Passages: []string{}, Strategy: StrategyNone}
	case err != nil:
		a.logger.Warn("retrieval", "Search failed, trying full corpus", map[string]interface{}{
			"index": name,
			"error": err.Error(),
		})
	case len(passages) > 0:
		return Result{Passages: vectorindex.Contents(passages), Strategy: StrategySearch}
	}

	all := a.fullCorpus(ctx, name)
	if len(all) == 0 {
		return Result{Passages: []string{}, Strategy: StrategyNone}
	}
	return Result{Passages: all, Strategy: StrategyFullCorpus}
}

func (a *Adapter) summarizeCorpus(ctx context.Context, name string) Result {
	all := a.fullCorpus(ctx, name)
	if len(all) == 0 {
		return Result{Passages: []string{}, Strategy: StrategyNone}
	}

	summary, err := a.summarizer.Summarize(ctx, all)
	if err != nil {
		batch := a.summarizer.BatchSize()
		a.logger.Warn("retrieval", "Summarization failed, using leading chunks", map[string]interface{}{
			"index":  name,
			"chunks": len(all),
			"error":  err.Error(),
		})
		return Result{Passages: all[:min(batch, len(all))], Strategy: StrategyFullCorpus}
	}

	a.logger.Info("retrieval", "Corpus summarized", map[string]interface{}{
		"index":  name,
		"chunks": len(all),
	})
	return Result{Passages: []string{summary}, Strategy: StrategySummary}
}

func (a *Adapter) fullCorpus(ctx context.Context, name string) []string {
	all, err := a.index.GetAll(ctx, name)
	if err != nil {
		if !errors.Is(err, vectorindex.ErrIndexNotFound) {
			a.logger.Error("retrieval", "Failed to read full corpus", map[string]interface{}{
				"index": name,
				"error": err.Error(),
			})
		}
		return nil
	}
	return vectorindex.Contents(all)
}

// RetrieveHistory returns earlier turns of the session relevant to query
func (a *Adapter) RetrieveHistory(ctx context.Context, sessionID, query string) []string {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	name := vectorindex.ChatIndexName(sessionID)
	passages, err := a.index.Search(ctx, name, query, a.cfg.ChatTopK)
	if err != nil {
		if !errors.Is(err, vectorindex.ErrIndexNotFound) {
			a.logger.Warn("retrieval", "Chat history search failed", map[string]interface{}{
				"index": name,
				"error": err.Error(),
			})
		}
		return []string{}
	}
	return vectorindex.Contents(passages)
}

// RecordTurn embeds both sides of a completed turn into the chat history index
func (a *Adapter) RecordTurn(ctx context.Context, sessionID, input, response string) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	return a.index.Append(ctx, vectorindex.ChatIndexName(sessionID), []vectorindex.Passage{
		{Content: input, Source: "user"},
		{Content: response, Source: "bot"},
	})
}
