package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ai-medchat-be/internal/dto"
	"ai-medchat-be/internal/pkg/logger"
	"ai-medchat-be/pkg/document"
	"ai-medchat-be/pkg/events"
	"ai-medchat-be/pkg/metrics"
	"ai-medchat-be/pkg/rag/executor"
	"ai-medchat-be/pkg/rag/session"
	"ai-medchat-be/pkg/utils"
	"ai-medchat-be/pkg/vectorindex"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/samber/lo"
)

// ErrDocumentWithdrawn is returned when a queued document was deleted before ingestion
var ErrDocumentWithdrawn = errors.New("document no longer registered on the session")

type IConsumerService interface {
	Consume(ctx context.Context) error
	Ingest(ctx context.Context, job dto.IngestDocumentMessage) (int, error)
}

type ChunkConfig struct {
	Size    int // words
	Overlap int // words
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	executor   *executor.PipelineExecutor
	sessions   *session.Manager
	index      vectorindex.Index
	chunks     ChunkConfig
	metrics    *metrics.Metrics
	publisher  events.Publisher
	logger     logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	exec *executor.PipelineExecutor,
	sessions *session.Manager,
	index vectorindex.Index,
	chunks ChunkConfig,
	m *metrics.Metrics,
	publisher events.Publisher,
	log logger.ILogger,
) IConsumerService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		executor:   exec,
		sessions:   sessions,
		index:      index,
		chunks:     chunks,
		metrics:    m,
		publisher:  publisher,
		logger:     log,
	}
}

// Consume processes ingest jobs until ctx is done
func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	for msg := range messages {
		cs.processMessage(ctx, msg)
	}
	return nil
}

// processMessage always acks: an ingest failure leaves the document registered
// without chunks and is only logged, since redelivery would fail the same way
func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	var job dto.IngestDocumentMessage
	if err := json.Unmarshal(msg.Payload, &job); err != nil {
		cs.logger.Error("consumer", "Failed to unmarshal ingest job", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		return
	}

	if _, err := cs.Ingest(ctx, job); err != nil {
		cs.logger.Error("consumer", "Document ingestion failed", map[string]interface{}{
			"job_id":     job.JobId,
			"session_id": job.SessionId,
			"filename":   job.Filename,
			"error":      err.Error(),
		})
	}
}

// Ingest extracts, chunks and indexes one document, returning the number of chunks appended
func (cs *consumerService) Ingest(ctx context.Context, job dto.IngestDocumentMessage) (int, error) {
	start := time.Now()

	text, err := document.Load(job.Path)
	if err != nil {
		return 0, fmt.Errorf("extract %s: %w", job.Filename, err)
	}
	if strings.TrimSpace(text) == "" {
		return 0, errors.New("document contains no extractable text")
	}

	chunks := utils.SplitWords(text, cs.chunks.Size, cs.chunks.Overlap)
	passages := make([]vectorindex.Passage, len(chunks))
	for i, c := range chunks {
		passages[i] = vectorindex.Passage{Content: c, Source: job.Filename}
	}

	name := vectorindex.DocumentIndexName(job.SessionId)
	err = cs.executor.Exclusive(job.SessionId, func() error {
		// The document may have been removed while the job was queued
		memory, err := cs.sessions.Load(ctx, job.SessionId)
		if err != nil {
			return err
		}
		if !lo.Contains(memory.Documents, job.Filename) {
			return ErrDocumentWithdrawn
		}
		return cs.index.Append(ctx, name, passages)
	})
	if err != nil {
		return 0, fmt.Errorf("index %s: %w", job.Filename, err)
	}

	if cs.metrics != nil {
		cs.metrics.ObserveIngest(len(chunks))
	}
	if err := cs.publisher.Publish(ctx, events.DocumentIngested(job.SessionId, job.Filename, len(chunks), time.Now())); err != nil {
		cs.logger.Warn("consumer", "Failed to publish ingest event", map[string]interface{}{
			"job_id": job.JobId,
			"error":  err.Error(),
		})
	}

	cs.logger.Info("consumer", "Document ingested", map[string]interface{}{
		"job_id":      job.JobId,
		"session_id":  job.SessionId,
		"filename":    job.Filename,
		"chunks":      len(chunks),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return len(chunks), nil
}
