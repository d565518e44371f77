package service

import (
	"context"
	"time"

	"ai-medchat-be/internal/dto"
	"ai-medchat-be/internal/pkg/logger"
	"ai-medchat-be/pkg/events"
	"ai-medchat-be/pkg/rag/executor"
	"ai-medchat-be/pkg/rag/session"

	"github.com/google/uuid"
)

type IChatService interface {
	Ask(ctx context.Context, req *dto.AskRequest) (*dto.AskResponse, error)
	CreateSession(ctx context.Context) (*dto.CreateSessionResponse, error)
	ListSessions(ctx context.Context) ([]*dto.SessionSummaryResponse, error)
	GetHistory(ctx context.Context, sessionId string) (*dto.SessionHistoryResponse, error)
	DeleteSession(ctx context.Context, sessionId string) error
}

type chatService struct {
	executor  *executor.PipelineExecutor
	sessions  *session.Manager
	publisher events.Publisher
	logger    logger.ILogger
}

func NewChatService(
	exec *executor.PipelineExecutor,
	sessions *session.Manager,
	publisher events.Publisher,
	log logger.ILogger,
) IChatService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &chatService{
		executor:  exec,
		sessions:  sessions,
		publisher: publisher,
		logger:    log,
	}
}

func (s *chatService) Ask(ctx context.Context, req *dto.AskRequest) (*dto.AskResponse, error) {
	res, err := s.executor.Execute(ctx, req.SessionId, req.Input)
	if err != nil {
		return nil, toHTTPError(err)
	}

	return &dto.AskResponse{
		SessionId:        req.SessionId,
		Response:         res.Response,
		FollowupRequired: res.FollowupRequired,
		Outcome:          string(res.Outcome),
	}, nil
}

// CreateSession only mints an id; the record appears once a message or document is saved
func (s *chatService) CreateSession(ctx context.Context) (*dto.CreateSessionResponse, error) {
	return &dto.CreateSessionResponse{SessionId: uuid.NewString()}, nil
}

func (s *chatService) ListSessions(ctx context.Context) ([]*dto.SessionSummaryResponse, error) {
	summaries, err := s.sessions.List(ctx)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.SessionSummaryResponse, 0, len(summaries))
	for _, sum := range summaries {
		res = append(res, &dto.SessionSummaryResponse{
			SessionId: sum.SessionID,
			Created:   sum.Created,
			Preview:   sum.Preview,
		})
	}
	return res, nil
}

func (s *chatService) GetHistory(ctx context.Context, sessionId string) (*dto.SessionHistoryResponse, error) {
	memory, err := s.sessions.Load(ctx, sessionId)
	if err != nil {
		return nil, toHTTPError(err)
	}

	messages := make([]dto.ChatMessageResponse, 0, len(memory.Messages))
	for _, m := range memory.Messages {
		messages = append(messages, dto.ChatMessageResponse{
			Role:      m.Role,
			Text:      m.Text,
			CreatedAt: m.CreatedAt,
		})
	}

	return &dto.SessionHistoryResponse{
		SessionId: memory.SessionID,
		Created:   memory.Created,
		Symptoms:  memory.Symptoms,
		Duration:  memory.Duration,
		Triggers:  memory.Triggers,
		Documents: memory.Documents,
		Messages:  messages,
	}, nil
}

func (s *chatService) DeleteSession(ctx context.Context, sessionId string) error {
	err := s.executor.Exclusive(sessionId, func() error {
		return s.sessions.Delete(ctx, sessionId)
	})
	if err != nil {
		return toHTTPError(err)
	}

	if err := s.publisher.Publish(ctx, events.SessionDeleted(sessionId, time.Now())); err != nil {
		s.logger.Warn("chat_service", "Failed to publish session deletion", map[string]interface{}{
			"session_id": sessionId,
			"error":      err.Error(),
		})
	}
	return nil
}
