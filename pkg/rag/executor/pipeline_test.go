package executor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"ai-medchat-be/internal/pkg/logger"
	"ai-medchat-be/internal/repository/contract"
	"ai-medchat-be/internal/repository/memory"
	"ai-medchat-be/pkg/embedding"
	"ai-medchat-be/pkg/events"
	"ai-medchat-be/pkg/llm"
	"ai-medchat-be/pkg/metrics"
	"ai-medchat-be/pkg/rag/extract"
	"ai-medchat-be/pkg/rag/followup"
	"ai-medchat-be/pkg/rag/prompt"
	"ai-medchat-be/pkg/rag/response"
	"ai-medchat-be/pkg/rag/retrieval"
	"ai-medchat-be/pkg/rag/session"
	"ai-medchat-be/pkg/rag/summarize"
	"ai-medchat-be/pkg/store"
	"ai-medchat-be/pkg/vectorindex"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLLM struct {
	mu      sync.Mutex
	prompts []string
	answer  string
	err     error
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return f.Generate(ctx, history[len(history)-1].Content, options...)
}

func (f *fakeLLM) Generate(ctx context.Context, p string, options ...llm.Option) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, p)
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func (f *fakeLLM) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prompts[len(f.prompts)-1]
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingPublisher) Publish(ctx context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

type failingSaveRepo struct {
	*memory.SessionRepository
}

func (failingSaveRepo) Save(ctx context.Context, m *store.SessionMemory) error {
	return errors.New("disk full")
}

type fixture struct {
	exec      *PipelineExecutor
	llm       *fakeLLM
	index     *vectorindex.ChromemIndex
	sessions  *session.Manager
	metrics   *metrics.Metrics
	publisher *recordingPublisher
}

type fixtureOpts struct {
	policy      followup.Policy
	chatHistory bool
	repo        contract.SessionMemoryRepository
}

func newFixture(t *testing.T, opts fixtureOpts) *fixture {
	t.Helper()
	log := logger.NewNopLogger()

	idx, err := vectorindex.NewChromemIndex("", embedding.NewEmbedder(embedding.NewHashProvider(64)), log)
	require.NoError(t, err)

	if opts.repo == nil {
		opts.repo = memory.NewSessionRepository()
	}
	if opts.policy == nil {
		opts.policy = followup.RulePolicy{}
	}

	provider := &fakeLLM{answer: "Please rest and drink fluids."}
	sessions := session.NewManager(opts.repo, idx, session.Config{UploadDir: t.TempDir()}, log)
	m := metrics.New()
	pub := &recordingPublisher{}

	exec := NewPipelineExecutor(Dependencies{
		Sessions:  sessions,
		Retriever: retrieval.NewAdapter(idx, summarize.NewRecursiveSummarizer(provider, 8), retrieval.Config{TopK: 3, ChatTopK: 3}, log),
		Extractor: extract.NewExtractor(),
		Generator: response.NewGenerator(provider, time.Second, log),
		Followup:  opts.policy,
		Metrics:   m,
		Publisher: pub,
		Logger:    log,
	}, opts.chatHistory)

	return &fixture{exec: exec, llm: provider, index: idx, sessions: sessions, metrics: m, publisher: pub}
}

func TestPipeline_StageOrder(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	assert.Equal(t, []string{
		StageLoadMemory, StageRetrieve, StageExtractMemory, StageGenerate, StageDecideFollowup, StagePersist,
	}, f.exec.Stages())
}

func TestPipeline_HelloOnEmptyIndex(t *testing.T) {
	f := newFixture(t, fixtureOpts{})

	res, err := f.exec.Execute(context.Background(), "s1", "hello")
	require.NoError(t, err)

	assert.Contains(t, f.llm.lastPrompt(), prompt.NoContext)
	assert.True(t, res.FollowupRequired)
	assert.Equal(t, response.OutcomeOK, res.Outcome)
	assert.Equal(t, "Please rest and drink fluids.\n\nFollow-up: Could you tell me your symptom duration, triggers?", res.Response)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RetrievalTotal.WithLabelValues(string(retrieval.StrategyNone))))
}

func TestPipeline_RuleFollowupClearsOnceFieldsKnown(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	ctx := context.Background()

	res, err := f.exec.Execute(ctx, "s1", "my chest hurts when running")
	require.NoError(t, err)
	assert.True(t, res.FollowupRequired)
	assert.True(t, strings.HasSuffix(res.Response, "symptom duration?"))

	res, err = f.exec.Execute(ctx, "s1", "it has been like this for 3 days")
	require.NoError(t, err)
	assert.False(t, res.FollowupRequired)
	assert.Equal(t, "Please rest and drink fluids.", res.Response)
}

func TestPipeline_ModelPolicyNeverAppends(t *testing.T) {
	f := newFixture(t, fixtureOpts{policy: followup.ModelPolicy{}})

	res, err := f.exec.Execute(context.Background(), "s1", "hello")
	require.NoError(t, err)
	assert.False(t, res.FollowupRequired)
	assert.Equal(t, "Please rest and drink fluids.", res.Response)
	assert.Equal(t, followup.PolicyModel, f.exec.FollowupPolicy())
}

func TestPipeline_MessagesAlternateAndSymptomsDeduplicate(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	ctx := context.Background()

	inputs := []string{"I have a cough", "I have a cough", "cough for 2 weeks", "I have a cough"}
	for _, in := range inputs {
		_, err := f.exec.Execute(ctx, "s1", in)
		require.NoError(t, err)
	}

	mem, err := f.sessions.Load(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, mem.Messages, 2*len(inputs))
	for i, msg := range mem.Messages {
		if i%2 == 0 {
			assert.Equal(t, store.RoleUser, msg.Role)
			assert.Equal(t, inputs[i/2], msg.Text)
		} else {
			assert.Equal(t, store.RoleBot, msg.Role)
		}
	}
	assert.Equal(t, []string{"I have a cough", "cough for 2 weeks"}, mem.Symptoms)
	assert.Equal(t, "2 weeks", *mem.Duration)
}

func TestPipeline_KnownSymptomsInPrompt(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	ctx := context.Background()

	_, err := f.exec.Execute(ctx, "s1", "sore throat")
	require.NoError(t, err)
	_, err = f.exec.Execute(ctx, "s1", "and a fever")
	require.NoError(t, err)

	assert.Contains(t, f.llm.lastPrompt(), "Known symptoms: sore throat, and a fever")
}

func TestPipeline_DocumentContextReachesPrompt(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	ctx := context.Background()
	require.NoError(t, f.index.Append(ctx, vectorindex.DocumentIndexName("s1"), []vectorindex.Passage{
		{Content: "Patient is allergic to penicillin", Source: "chart.pdf"},
	}))

	_, err := f.exec.Execute(ctx, "s1", "which antibiotic allergy do I have, penicillin?")
	require.NoError(t, err)

	p := f.llm.lastPrompt()
	assert.Contains(t, p, "Patient is allergic to penicillin")
	assert.NotContains(t, p, prompt.NoContext)
}

func TestPipeline_GenerationFailureStillPersists(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantText    string
		wantOutcome response.Outcome
	}{
		{name: "unreachable", err: errors.New("dial tcp: refused"), wantText: response.FailureMessage, wantOutcome: response.OutcomeFailed},
		{name: "warming up", err: llm.ErrModelLoading, wantText: response.WarmingUpMessage, wantOutcome: response.OutcomeWarmingUp},
		{name: "empty", err: llm.ErrEmptyResponse, wantText: response.EmptyMessage, wantOutcome: response.OutcomeEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, fixtureOpts{policy: followup.ModelPolicy{}})
			f.llm.err = tt.err

			res, err := f.exec.Execute(context.Background(), "s1", "my knee hurts")
			require.NoError(t, err)
			assert.Equal(t, tt.wantText, res.Response)
			assert.Equal(t, tt.wantOutcome, res.Outcome)

			mem, err := f.sessions.Load(context.Background(), "s1")
			require.NoError(t, err)
			require.Len(t, mem.Messages, 2)
			assert.Equal(t, "my knee hurts", mem.Messages[0].Text)
			assert.Equal(t, tt.wantText, mem.Messages[1].Text)
		})
	}
}

func TestPipeline_MissingSessionID(t *testing.T) {
	f := newFixture(t, fixtureOpts{})

	_, err := f.exec.Execute(context.Background(), "", "hello")
	assert.ErrorIs(t, err, session.ErrMissingSessionID)
	assert.Empty(t, f.llm.prompts)
}

func TestPipeline_SaveFailureAbortsTurn(t *testing.T) {
	f := newFixture(t, fixtureOpts{repo: failingSaveRepo{memory.NewSessionRepository()}, chatHistory: true})

	_, err := f.exec.Execute(context.Background(), "s1", "hello")
	assert.Error(t, err)
	assert.Empty(t, f.publisher.events)

	_, err = f.index.GetAll(context.Background(), vectorindex.ChatIndexName("s1"))
	assert.ErrorIs(t, err, vectorindex.ErrIndexNotFound)
}

func TestPipeline_ChatHistoryFeedsLaterTurns(t *testing.T) {
	f := newFixture(t, fixtureOpts{chatHistory: true})
	ctx := context.Background()

	_, err := f.exec.Execute(ctx, "s1", "sharp pain in my left shoulder")
	require.NoError(t, err)

	all, err := f.index.GetAll(ctx, vectorindex.ChatIndexName("s1"))
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "user", all[0].Source)
	assert.Equal(t, "bot", all[1].Source)

	_, err = f.exec.Execute(ctx, "s1", "the shoulder pain is worse today")
	require.NoError(t, err)

	p := f.llm.lastPrompt()
	assert.Contains(t, p, "- sharp pain in my left shoulder")
	assert.NotContains(t, p, "<recent_history>\n"+prompt.NoHistory)
}

func TestPipeline_ChatHistoryDisabledUsesSentinel(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	ctx := context.Background()

	_, err := f.exec.Execute(ctx, "s1", "first")
	require.NoError(t, err)
	_, err = f.exec.Execute(ctx, "s1", "second")
	require.NoError(t, err)

	assert.Contains(t, f.llm.lastPrompt(), "<recent_history>\n"+prompt.NoHistory+"\n</recent_history>")
	_, err = f.index.GetAll(ctx, vectorindex.ChatIndexName("s1"))
	assert.ErrorIs(t, err, vectorindex.ErrIndexNotFound)
}

func TestPipeline_DeleteThenLoadIsFresh(t *testing.T) {
	f := newFixture(t, fixtureOpts{chatHistory: true})
	ctx := context.Background()

	_, err := f.exec.Execute(ctx, "s1", "headache for 2 days")
	require.NoError(t, err)

	list, err := f.sessions.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "headache for 2 days", list[0].Preview)

	require.NoError(t, f.sessions.Delete(ctx, "s1"))

	list, err = f.sessions.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	mem, err := f.sessions.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, mem.Messages)
	assert.Empty(t, mem.Symptoms)
	assert.Nil(t, mem.Duration)

	list, err = f.sessions.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestPipeline_ConcurrentTurnsSameSessionSerialize(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	ctx := context.Background()
	const turns = 10

	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.exec.Execute(ctx, "s1", "dizzy")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	mem, err := f.sessions.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, mem.Messages, 2*turns)
	assert.Equal(t, []string{"dizzy"}, mem.Symptoms)
}

func TestPipeline_ConcurrentSessionsAreIndependent(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	ctx := context.Background()
	ids := []string{"a", "b", "c", "d"}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for i := 0; i < 3; i++ {
				_, err := f.exec.Execute(ctx, id, "nausea in session "+id)
				assert.NoError(t, err)
			}
		}(id)
	}
	wg.Wait()

	for _, id := range ids {
		mem, err := f.sessions.Load(ctx, id)
		require.NoError(t, err)
		assert.Len(t, mem.Messages, 6)
		assert.Equal(t, []string{"nausea in session " + id}, mem.Symptoms)
	}
}

func TestPipeline_PublishesTurnCompleted(t *testing.T) {
	f := newFixture(t, fixtureOpts{})

	_, err := f.exec.Execute(context.Background(), "s1", "hello")
	require.NoError(t, err)

	require.Len(t, f.publisher.events, 1)
	e := f.publisher.events[0]
	assert.Equal(t, events.TypeTurnCompleted, e.EventType())
	assert.Equal(t, "s1", e.Payload()["session_id"])
	assert.Equal(t, true, e.Payload()["followup_required"])
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.TurnsTotal.WithLabelValues("ok", "true")))
}

func TestPipeline_SummarizeRequest(t *testing.T) {
	f := newFixture(t, fixtureOpts{policy: followup.ModelPolicy{}})
	ctx := context.Background()
	require.NoError(t, f.index.Append(ctx, vectorindex.DocumentIndexName("s1"), []vectorindex.Passage{
		{Content: "Blood pressure 140/90"}, {Content: "Prescribed lisinopril 10mg"},
	}))

	_, err := f.exec.Execute(ctx, "s1", "Please summarize my records")
	require.NoError(t, err)

	// one summarization call plus the answer
	require.Len(t, f.llm.prompts, 2)
	assert.Contains(t, f.llm.prompts[0], "Prescribed lisinopril 10mg")
	assert.Contains(t, f.llm.prompts[1], "<document_context>\nPlease rest and drink fluids.\n</document_context>")
}

func TestPipeline_ExclusiveBlocksTurns(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = f.exec.Exclusive("s1", func() error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	done := make(chan struct{})
	go func() {
		_, _ = f.exec.Execute(ctx, "s1", "hello")
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("turn ran while the session was held exclusively")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	<-done
}
