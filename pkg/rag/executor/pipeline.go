// Package executor runs one dialogue turn through a fixed, linear list of stages:
// load memory, retrieve, extract memory, generate, decide follow-up, persist.
package executor

import (
	"context"
	"fmt"
	"time"

	"ai-medchat-be/internal/pkg/logger"
	"ai-medchat-be/pkg/events"
	"ai-medchat-be/pkg/metrics"
	"ai-medchat-be/pkg/rag/extract"
	"ai-medchat-be/pkg/rag/followup"
	"ai-medchat-be/pkg/rag/history"
	"ai-medchat-be/pkg/rag/prompt"
	"ai-medchat-be/pkg/rag/response"
	"ai-medchat-be/pkg/rag/retrieval"
	"ai-medchat-be/pkg/rag/session"
	"ai-medchat-be/pkg/store"
	"ai-medchat-be/pkg/utils"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Stage names, in execution order
const (
	StageLoadMemory     = "load_memory"
	StageRetrieve       = "retrieve"
	StageExtractMemory  = "extract_memory"
	StageGenerate       = "generate"
	StageDecideFollowup = "decide_followup"
	StagePersist        = "persist"
)

// TurnContext is the ephemeral state of one turn. Only Memory survives it.
type TurnContext struct {
	SessionID string
	Input     string

	Memory      *store.SessionMemory
	Docs        []string
	Strategy    retrieval.Strategy
	ChatContext []string

	Prompt           string
	Response         string
	Outcome          response.Outcome
	FollowupRequired bool
}

// Result is what callers of a turn receive
type Result struct {
	Response         string           `json:"response"`
	FollowupRequired bool             `json:"followup_required"`
	Outcome          response.Outcome `json:"outcome"`
}

type stage struct {
	name string
	run  func(ctx context.Context, tc *TurnContext) error
}

type Dependencies struct {
	Sessions  *session.Manager
	Retriever *retrieval.Adapter
	Extractor *extract.Extractor
	Generator *response.Generator
	Followup  followup.Policy
	Metrics   *metrics.Metrics
	Publisher events.Publisher
	Logger    logger.ILogger
}

type PipelineExecutor struct {
	sessions  *session.Manager
	retriever *retrieval.Adapter
	extractor *extract.Extractor
	generator *response.Generator
	policy    followup.Policy
	metrics   *metrics.Metrics
	publisher events.Publisher
	logger    logger.ILogger
	tracer    trace.Tracer

	chatHistory bool
	locks       *utils.KeyedRWMutex // serializes turns within this process only
	now         func() time.Time
	stages      []stage
}

// NewPipelineExecutor wires the stages. chatHistory enables the conversational index.
func NewPipelineExecutor(deps Dependencies, chatHistory bool) *PipelineExecutor {
	if deps.Publisher == nil {
		deps.Publisher = events.NoopPublisher{}
	}
	if deps.Extractor == nil {
		deps.Extractor = extract.NewExtractor()
	}
	if deps.Followup == nil {
		deps.Followup = followup.RulePolicy{}
	}

	p := &PipelineExecutor{
		sessions:    deps.Sessions,
		retriever:   deps.Retriever,
		extractor:   deps.Extractor,
		generator:   deps.Generator,
		policy:      deps.Followup,
		metrics:     deps.Metrics,
		publisher:   deps.Publisher,
		logger:      deps.Logger,
		tracer:      otel.Tracer("ai-medchat-be/executor"),
		chatHistory: chatHistory,
		locks:       utils.NewKeyedRWMutex(),
		now:         time.Now,
	}
	p.stages = []stage{
		{StageLoadMemory, p.loadMemory},
		{StageRetrieve, p.retrieve},
		{StageExtractMemory, p.extractMemory},
		{StageGenerate, p.generate},
		{StageDecideFollowup, p.decideFollowup},
		{StagePersist, p.persist},
	}
	return p
}

// Stages lists the stage names in execution order
func (p *PipelineExecutor) Stages() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.name
	}
	return names
}

// FollowupPolicy names the configured follow-up policy
func (p *PipelineExecutor) FollowupPolicy() string {
	return p.policy.Name()
}

// Exclusive runs fn while holding the session's turn lock, so writes made
// outside the pipeline never interleave with a turn of the same session
func (p *PipelineExecutor) Exclusive(sessionID string, fn func() error) error {
	unlock := p.locks.Lock(sessionID)
	defer unlock()
	return fn()
}

// Execute runs one turn. Turns of the same session are serialized.
// A returned error means nothing was persisted.
func (p *PipelineExecutor) Execute(ctx context.Context, sessionID, input string) (*Result, error) {
	if err := session.ValidateSessionID(sessionID); err != nil {
		return nil, err
	}

	unlock := p.locks.Lock(sessionID)
	defer unlock()

	ctx, span := p.tracer.Start(ctx, "PipelineExecutor.Execute", trace.WithAttributes(
		attribute.String("session_id", sessionID),
		attribute.String("followup_policy", p.policy.Name()),
	))
	defer span.End()

	tc := &TurnContext{SessionID: sessionID, Input: input}
	for _, s := range p.stages {
		if err := p.runStage(ctx, s, tc); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, s.name)
			p.logger.Error("executor", "Turn aborted", map[string]interface{}{
				"session_id": sessionID,
				"stage":      s.name,
				"error":      err.Error(),
			})
			return nil, fmt.Errorf("%s: %w", s.name, err)
		}
	}

	span.SetAttributes(
		attribute.String("outcome", string(tc.Outcome)),
		attribute.Bool("followup_required", tc.FollowupRequired),
	)
	if p.metrics != nil {
		p.metrics.ObserveTurn(string(tc.Outcome), tc.FollowupRequired)
	}

	return &Result{
		Response:         tc.Response,
		FollowupRequired: tc.FollowupRequired,
		Outcome:          tc.Outcome,
	}, nil
}

func (p *PipelineExecutor) runStage(ctx context.Context, s stage, tc *TurnContext) error {
	ctx, span := p.tracer.Start(ctx, "stage."+s.name)
	defer span.End()

	start := time.Now()
	err := s.run(ctx, tc)
	if p.metrics != nil {
		p.metrics.ObserveStage(s.name, time.Since(start))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (p *PipelineExecutor) loadMemory(ctx context.Context, tc *TurnContext) error {
	memory, err := p.sessions.Load(ctx, tc.SessionID)
	if err != nil {
		return err
	}
	tc.Memory = memory
	return nil
}

func (p *PipelineExecutor) retrieve(ctx context.Context, tc *TurnContext) error {
	res := p.retriever.Retrieve(ctx, tc.SessionID, tc.Input)
	tc.Docs = res.Passages
	tc.Strategy = res.Strategy
	if p.metrics != nil {
		p.metrics.ObserveRetrieval(string(res.Strategy))
	}

	if p.chatHistory {
		candidates := p.retriever.RetrieveHistory(ctx, tc.SessionID, tc.Input)
		tc.ChatContext = history.Filter(tc.Input, candidates)
	}

	p.logger.Debug("executor", "Retrieved context", map[string]interface{}{
		"session_id": tc.SessionID,
		"strategy":   string(tc.Strategy),
		"docs":       len(tc.Docs),
		"history":    len(tc.ChatContext),
	})
	return nil
}

func (p *PipelineExecutor) extractMemory(ctx context.Context, tc *TurnContext) error {
	p.extractor.Update(tc.Memory, tc.Input)
	return nil
}

func (p *PipelineExecutor) generate(ctx context.Context, tc *TurnContext) error {
	tc.Prompt = prompt.Build(prompt.Input{
		UserInput:     tc.Input,
		Documents:     tc.Docs,
		KnownSymptoms: tc.Memory.Symptoms,
		RecentHistory: tc.ChatContext,
	})

	res := p.generator.Generate(ctx, tc.Prompt)
	tc.Response = res.Text
	tc.Outcome = res.Outcome
	return nil
}

func (p *PipelineExecutor) decideFollowup(ctx context.Context, tc *TurnContext) error {
	tc.Response, tc.FollowupRequired = p.policy.Decide(tc.Memory, tc.Response)
	return nil
}

func (p *PipelineExecutor) persist(ctx context.Context, tc *TurnContext) error {
	now := p.now()
	tc.Memory.AppendTurn(tc.Input, tc.Response, now)

	if _, err := p.sessions.Save(ctx, tc.Memory); err != nil {
		return err
	}

	if p.chatHistory {
		if err := p.retriever.RecordTurn(ctx, tc.SessionID, tc.Input, tc.Response); err != nil {
			p.logger.Warn("executor", "Failed to index turn for chat history", map[string]interface{}{
				"session_id": tc.SessionID,
				"error":      err.Error(),
			})
		}
	}

	if err := p.publisher.Publish(ctx, events.TurnCompleted(tc.SessionID, string(tc.Outcome), tc.FollowupRequired, now)); err != nil {
		p.logger.Warn("executor", "Failed to publish turn event", map[string]interface{}{
			"session_id": tc.SessionID,
			"error":      err.Error(),
		})
	}
	return nil
}
