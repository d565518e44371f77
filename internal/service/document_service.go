package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"ai-medchat-be/internal/dto"
	"ai-medchat-be/internal/pkg/logger"
	"ai-medchat-be/pkg/document"
	"ai-medchat-be/pkg/rag/executor"
	"ai-medchat-be/pkg/rag/session"
	"ai-medchat-be/pkg/vectorindex"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IDocumentService interface {
	Upload(ctx context.Context, sessionId string, filename string, content io.Reader) (*dto.UploadDocumentResponse, error)
	Delete(ctx context.Context, sessionId string, filename string) error
}

type documentService struct {
	executor         *executor.PipelineExecutor
	sessions         *session.Manager
	index            vectorindex.Index
	publisherService IPublisherService
	logger           logger.ILogger
}

func NewDocumentService(
	exec *executor.PipelineExecutor,
	sessions *session.Manager,
	index vectorindex.Index,
	publisherService IPublisherService,
	log logger.ILogger,
) IDocumentService {
	return &documentService{
		executor:         exec,
		sessions:         sessions,
		index:            index,
		publisherService: publisherService,
		logger:           log,
	}
}

// Upload stores the file, registers it on the session and queues it for ingestion
func (s *documentService) Upload(ctx context.Context, sessionId string, filename string, content io.Reader) (*dto.UploadDocumentResponse, error) {
	if err := session.ValidateSessionID(sessionId); err != nil {
		return nil, toHTTPError(err)
	}
	filename = filepath.Base(filename)
	if filename == "." || filename == string(filepath.Separator) {
		return nil, fiber.NewError(fiber.StatusBadRequest, "filename is required")
	}
	if !document.IsSupported(filename) {
		return nil, toHTTPError(fmt.Errorf("%w: %s", document.ErrUnsupportedFormat, filepath.Ext(filename)))
	}

	path := filepath.Join(s.sessions.UploadPath(sessionId), filename)

	err := s.executor.Exclusive(sessionId, func() error {
		memory, err := s.sessions.Load(ctx, sessionId)
		if err != nil {
			return err
		}
		if !memory.AddDocument(filename) {
			return fiber.NewError(fiber.StatusConflict, "document already uploaded to this session")
		}

		if err := writeFile(path, content); err != nil {
			return err
		}
		if _, err := s.sessions.Save(ctx, memory); err != nil {
			_ = os.Remove(path)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, toHTTPError(err)
	}

	job := dto.IngestDocumentMessage{
		JobId:     uuid.NewString(),
		SessionId: sessionId,
		Filename:  filename,
		Path:      path,
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, err
	}
	if err := s.publisherService.Publish(ctx, payload); err != nil {
		return nil, fmt.Errorf("queue ingest job: %w", err)
	}

	s.logger.Info("document_service", "Document queued for ingestion", map[string]interface{}{
		"session_id": sessionId,
		"filename":   filename,
		"job_id":     job.JobId,
	})

	return &dto.UploadDocumentResponse{
		SessionId: sessionId,
		Filename:  filename,
		JobId:     job.JobId,
	}, nil
}

func writeFile(path string, content io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, content); err != nil {
		f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}

// Delete unregisters the file and rebuilds the document index without its chunks
func (s *documentService) Delete(ctx context.Context, sessionId string, filename string) error {
	if err := session.ValidateSessionID(sessionId); err != nil {
		return toHTTPError(err)
	}
	filename = filepath.Base(filename)

	err := s.executor.Exclusive(sessionId, func() error {
		memory, err := s.sessions.Load(ctx, sessionId)
		if err != nil {
			return err
		}
		if !memory.RemoveDocument(filename) {
			return fiber.NewError(fiber.StatusNotFound, "document not found in this session")
		}

		previous, err := s.rebuildWithout(ctx, sessionId, filename)
		if err != nil {
			return err
		}
		saved, err := s.sessions.Save(ctx, memory)
		if err != nil {
			s.restoreIndex(ctx, sessionId, previous)
			return err
		}
		if !saved {
			// nothing left worth keeping; drop the stale record
			return s.sessions.Delete(ctx, sessionId)
		}

		path := filepath.Join(s.sessions.UploadPath(sessionId), filename)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("document_service", "Failed to remove uploaded file", map[string]interface{}{
				"path":  path,
				"error": err.Error(),
			})
		}
		return nil
	})
	return toHTTPError(err)
}

// rebuildWithout drops the chunks of filename and returns the passages held before,
// or nil when the index was left untouched
func (s *documentService) rebuildWithout(ctx context.Context, sessionId, filename string) ([]vectorindex.Passage, error) {
	name := vectorindex.DocumentIndexName(sessionId)
	all, err := s.index.GetAll(ctx, name)
	if errors.Is(err, vectorindex.ErrIndexNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	kept := lo.Filter(all, func(p vectorindex.Passage, _ int) bool {
		return p.Source != filename
	})
	if len(kept) == len(all) {
		return nil, nil
	}

	s.logger.Info("document_service", "Rebuilding document index", map[string]interface{}{
		"index":   name,
		"removed": len(all) - len(kept),
		"kept":    len(kept),
	})
	if err := s.index.Rebuild(ctx, name, kept); err != nil {
		return nil, err
	}
	return all, nil
}

// restoreIndex puts back the chunks removed by rebuildWithout when the record could not be saved
func (s *documentService) restoreIndex(ctx context.Context, sessionId string, previous []vectorindex.Passage) {
	if previous == nil {
		return
	}
	name := vectorindex.DocumentIndexName(sessionId)
	if err := s.index.Rebuild(ctx, name, previous); err != nil {
		s.logger.Error("document_service", "Failed to restore document index", map[string]interface{}{
			"index": name,
			"error": err.Error(),
		})
	}
}
