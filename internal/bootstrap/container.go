package bootstrap

import (
	"context"
	"fmt"
	"time"

	"ai-medchat-be/internal/config"
	"ai-medchat-be/internal/controller"
	"ai-medchat-be/internal/pkg/logger"
	"ai-medchat-be/internal/repository/contract"
	"ai-medchat-be/internal/repository/memory"
	redisrepo "ai-medchat-be/internal/repository/redis"
	"ai-medchat-be/internal/service"
	"ai-medchat-be/pkg/database"
	"ai-medchat-be/pkg/embedding"
	"ai-medchat-be/pkg/events"
	"ai-medchat-be/pkg/llm/factory"
	"ai-medchat-be/pkg/metrics"
	"ai-medchat-be/pkg/rag/executor"
	"ai-medchat-be/pkg/rag/followup"
	"ai-medchat-be/pkg/rag/response"
	"ai-medchat-be/pkg/rag/retrieval"
	"ai-medchat-be/pkg/rag/session"
	"ai-medchat-be/pkg/rag/summarize"
	"ai-medchat-be/pkg/vectorindex"

	pktNats "ai-medchat-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

type Container struct {
	// Controllers
	ChatController     controller.IChatController
	DocumentController controller.IDocumentController
	HealthController   controller.IHealthController

	// Services (also used by the CLI)
	ChatService     service.IChatService
	DocumentService service.IDocumentService
	ConsumerService service.IConsumerService

	Executor *executor.PipelineExecutor
	Sessions *session.Manager
	Metrics  *metrics.Metrics
	Logger   logger.ILogger

	closers []func()
}

// Options toggles infrastructure that short-lived commands do not need
type Options struct {
	// IsolatedLog routes logs to the given file only, keeping stdout free
	IsolatedLog string
	// SkipEvents disables the NATS publisher
	SkipEvents bool
}

func NewContainer(cfg *config.Config, opts Options) (*Container, error) {
	c := &Container{}

	// 1. Logging
	var sysLogger logger.ILogger
	if opts.IsolatedLog != "" {
		sysLogger = logger.NewIsolatedLogger(opts.IsolatedLog)
	} else {
		sysLogger = logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	}
	c.Logger = sysLogger

	// 2. AI providers
	embedder, err := newEmbedder(cfg, sysLogger)
	if err != nil {
		return nil, err
	}

	llmProvider, err := factory.NewLLMProvider(cfg.Ai.LLMProvider, cfg.Ai.LLMModel, cfg.Ai.OllamaBaseURL, cfg.Ai.GenerationTimeout)
	if err != nil {
		return nil, fmt.Errorf("initialize LLM provider: %w", err)
	}
	sysLogger.Info("bootstrap", "LLM provider ready", map[string]interface{}{
		"provider": cfg.Ai.LLMProvider,
		"model":    cfg.Ai.LLMModel,
	})

	// 3. Storage
	index, err := newIndex(cfg, embedder, sysLogger)
	if err != nil {
		return nil, err
	}

	repo, closeRepo := newSessionRepository(cfg, sysLogger)
	if closeRepo != nil {
		c.closers = append(c.closers, closeRepo)
	}

	// 4. Event bus
	var publisher events.Publisher = events.NoopPublisher{}
	if !opts.SkipEvents {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
		if err != nil {
			sysLogger.Warn("bootstrap", "NATS unavailable, lifecycle events disabled", map[string]interface{}{
				"url":   cfg.App.NatsURL,
				"error": err.Error(),
			})
		} else {
			publisher = natsPub
			c.closers = append(c.closers, natsPub.Close)
		}
	}

	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermill.NewStdLogger(false, false),
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// 5. Pipeline
	policy, err := followup.New(cfg.Rag.FollowupPolicy)
	if err != nil {
		return nil, err
	}

	c.Metrics = metrics.New()
	c.Sessions = session.NewManager(repo, index, session.Config{
		UploadDir:    cfg.App.UploadDir,
		PersistEmpty: cfg.Store.PersistEmptySessions,
	}, sysLogger)

	retriever := retrieval.NewAdapter(
		index,
		summarize.NewRecursiveSummarizer(llmProvider, cfg.Rag.SummaryBatchSize),
		retrieval.Config{
			TopK:     cfg.Rag.TopK,
			ChatTopK: cfg.Rag.ChatTopK,
			Timeout:  cfg.Rag.RetrievalTimeout,
		},
		sysLogger,
	)

	c.Executor = executor.NewPipelineExecutor(executor.Dependencies{
		Sessions:  c.Sessions,
		Retriever: retriever,
		Generator: response.NewGenerator(llmProvider, cfg.Ai.GenerationTimeout, sysLogger),
		Followup:  policy,
		Metrics:   c.Metrics,
		Publisher: publisher,
		Logger:    sysLogger,
	}, cfg.Rag.ChatHistoryEnabled)

	// 6. Services
	publisherService := service.NewPublisherService(cfg.App.IngestTopic, pubSub)
	c.ChatService = service.NewChatService(c.Executor, c.Sessions, publisher, sysLogger)
	c.DocumentService = service.NewDocumentService(c.Executor, c.Sessions, index, publisherService, sysLogger)
	c.ConsumerService = service.NewConsumerService(
		pubSub,
		cfg.App.IngestTopic,
		c.Executor,
		c.Sessions,
		index,
		service.ChunkConfig{Size: cfg.Rag.ChunkSize, Overlap: cfg.Rag.ChunkOverlap},
		c.Metrics,
		publisher,
		sysLogger,
	)

	// 7. Controllers
	c.ChatController = controller.NewChatController(c.ChatService)
	c.DocumentController = controller.NewDocumentController(c.DocumentService)
	c.HealthController = controller.NewHealthController(c.Executor)

	return c, nil
}

// Close releases connections in reverse order of creation
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.Logger.Sync()
}

func newEmbedder(cfg *config.Config, log logger.ILogger) (embedding.Embedder, error) {
	var provider embedding.EmbeddingProvider
	switch cfg.Ai.EmbeddingProvider {
	case "ollama":
		provider = embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaModel)
	case "hash":
		provider = embedding.NewHashProvider(embedding.DefaultHashDimensions)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Ai.EmbeddingProvider)
	}
	log.Info("bootstrap", "Embedding provider ready", map[string]interface{}{
		"provider": cfg.Ai.EmbeddingProvider,
		"model":    cfg.Ai.OllamaModel,
	})

	if cfg.Ai.EmbeddingCacheSize > 0 {
		cached, err := embedding.NewCachedProvider(provider, cfg.Ai.EmbeddingCacheSize)
		if err != nil {
			return nil, fmt.Errorf("embedding cache: %w", err)
		}
		provider = cached
	}
	return embedding.NewEmbedder(provider), nil
}

func newIndex(cfg *config.Config, embedder embedding.Embedder, log logger.ILogger) (vectorindex.Index, error) {
	switch cfg.Store.IndexBackend {
	case "pgvector":
		db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return vectorindex.NewPgvectorIndex(db, embedder, log), nil
	default:
		idx, err := vectorindex.NewChromemIndex(cfg.Store.IndexPath, embedder, log)
		if err != nil {
			return nil, fmt.Errorf("open vector store %s: %w", cfg.Store.IndexPath, err)
		}
		return idx, nil
	}
}

// newSessionRepository falls back to process memory when redis is unreachable
func newSessionRepository(cfg *config.Config, log logger.ILogger) (contract.SessionMemoryRepository, func()) {
	if cfg.Store.MemoryBackend == "memory" {
		return memory.NewSessionRepository(), nil
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Warn("bootstrap", "Failed to parse Redis URL, using it as address", map[string]interface{}{
			"error": err.Error(),
		})
		opt = &redis.Options{Addr: cfg.App.RedisURL}
	}
	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("bootstrap", "Redis unavailable, session memory will not survive restarts", map[string]interface{}{
			"error": err.Error(),
		})
		_ = rdb.Close()
		return memory.NewSessionRepository(), nil
	}
	return redisrepo.NewSessionRepository(rdb), func() { _ = rdb.Close() }
}
