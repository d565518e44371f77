// Package response calls the generation collaborator and classifies what came back.
package response

import (
	"context"
	"errors"
	"time"

	"ai-medchat-be/internal/pkg/logger"
	"ai-medchat-be/pkg/llm"
)

// Outcome distinguishes a real answer from the transient and failure signals
type Outcome string

const (
	OutcomeOK        Outcome = "ok"
	OutcomeWarmingUp Outcome = "warming_up"
	OutcomeEmpty     Outcome = "empty"
	OutcomeFailed    Outcome = "failed"
)

// User-facing texts substituted for non-ok outcomes
const (
	WarmingUpMessage = "[Model is now loaded, please ask your question again.]"
	EmptyMessage     = "[No valid response from model. Try rephrasing your question.]"
	FailureMessage   = "Sorry, something went wrong while processing your request."
)

type Result struct {
	Text    string
	Outcome Outcome
}

// Generator never returns an error; failures become FailureMessage
type Generator struct {
	llmProvider llm.LLMProvider
	timeout     time.Duration
	logger      logger.ILogger
}

func NewGenerator(llmProvider llm.LLMProvider, timeout time.Duration, log logger.ILogger) *Generator {
	return &Generator{
		llmProvider: llmProvider,
		timeout:     timeout,
		logger:      log,
	}
}

func (g *Generator) Generate(ctx context.Context, prompt string) Result {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	text, err := g.llmProvider.Generate(ctx, prompt)
	switch {
	case err == nil && text != "":
		return Result{Text: text, Outcome: OutcomeOK}
	case err == nil, errors.Is(err, llm.ErrEmptyResponse):
		g.logger.Warn("response", "Model returned no content", nil)
		return Result{Text: EmptyMessage, Outcome: OutcomeEmpty}
	case errors.Is(err, llm.ErrModelLoading):
		g.logger.Info("response", "Model is warming up", nil)
		return Result{Text: WarmingUpMessage, Outcome: OutcomeWarmingUp}
	default:
		g.logger.Error("response", "Generation failed", map[string]interface{}{
			"error": err.Error(),
		})
		return Result{Text: FailureMessage, Outcome: OutcomeFailed}
	}
}
