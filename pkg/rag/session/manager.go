// Package session owns the Session Memory lifecycle: lazy creation, save policy,
// listing and cascading deletion.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ai-medchat-be/internal/pkg/logger"
	"ai-medchat-be/internal/repository/contract"
	"ai-medchat-be/pkg/store"
	"ai-medchat-be/pkg/vectorindex"

	"github.com/samber/lo"
)

var (
	ErrMissingSessionID = errors.New("session id is required")
	ErrInvalidSessionID = errors.New("session id must not contain path elements")
)

// EmptyPreview is listed for sessions without any user message
const EmptyPreview = "No messages yet"

// ValidateSessionID rejects ids that are empty or could escape the upload directory
func ValidateSessionID(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrMissingSessionID
	}
	if strings.ContainsAny(sessionID, `/\`) || strings.Contains(sessionID, "..") {
		return ErrInvalidSessionID
	}
	return nil
}

type Config struct {
	UploadDir string
	// PersistEmpty also saves records with no messages and no documents
	PersistEmpty bool
}

type Manager struct {
	repo   contract.SessionMemoryRepository
	index  vectorindex.Index
	cfg    Config
	now    func() time.Time
	logger logger.ILogger
}

func NewManager(repo contract.SessionMemoryRepository, index vectorindex.Index, cfg Config, log logger.ILogger) *Manager {
	return &Manager{
		repo:   repo,
		index:  index,
		cfg:    cfg,
		now:    time.Now,
		logger: log,
	}
}

// WithClock overrides the time source
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Load returns the stored record or a fresh, unpersisted default.
// A corrupt record is treated as missing.
func (m *Manager) Load(ctx context.Context, sessionID string) (*store.SessionMemory, error) {
	if err := ValidateSessionID(sessionID); err != nil {
		return nil, err
	}

	memory, err := m.repo.Get(ctx, sessionID)
	if errors.Is(err, contract.ErrCorruptRecord) {
		m.logger.Warn("session", "Discarding corrupt session record", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
		memory, err = nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	if memory == nil {
		return store.NewSessionMemory(sessionID, m.now()), nil
	}
	return memory, nil
}

// Save persists memory unless the save policy rejects an empty record.
// It reports whether a write happened.
func (m *Manager) Save(ctx context.Context, memory *store.SessionMemory) (bool, error) {
	if memory == nil {
		return false, ErrMissingSessionID
	}
	if err := ValidateSessionID(memory.SessionID); err != nil {
		return false, err
	}
	if !m.cfg.PersistEmpty && len(memory.Messages) == 0 && len(memory.Documents) == 0 {
		return false, nil
	}
	if err := m.repo.Save(ctx, memory); err != nil {
		return false, fmt.Errorf("save session %s: %w", memory.SessionID, err)
	}
	return true, nil
}

// List returns one summary per persisted session ordered by session id
func (m *Manager) List(ctx context.Context) ([]store.SessionSummary, error) {
	records, err := m.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Map(records, func(r *store.SessionMemory, _ int) store.SessionSummary {
		preview, ok := r.FirstUserMessage()
		if !ok {
			preview = EmptyPreview
		}
		return store.SessionSummary{
			SessionID: r.SessionID,
			Created:   r.Created,
			Preview:   preview,
		}
	}), nil
}

// UploadPath is the directory holding files uploaded to the session
func (m *Manager) UploadPath(sessionID string) string {
	return filepath.Join(m.cfg.UploadDir, sessionID)
}

// Delete removes the record, both indexes and uploaded files of the session.
// Every step runs even if an earlier one fails.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	if err := ValidateSessionID(sessionID); err != nil {
		return err
	}

	var errs []error
	if err := m.repo.Delete(ctx, sessionID); err != nil {
		errs = append(errs, fmt.Errorf("delete record: %w", err))
	}
	for _, name := range []string{vectorindex.DocumentIndexName(sessionID), vectorindex.ChatIndexName(sessionID)} {
		if err := m.index.Delete(ctx, name); err != nil {
			errs = append(errs, fmt.Errorf("delete index %s: %w", name, err))
		}
	}
	if m.cfg.UploadDir != "" {
		if err := os.RemoveAll(m.UploadPath(sessionID)); err != nil {
			errs = append(errs, fmt.Errorf("delete uploads: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		m.logger.Error("session", "Session deletion incomplete", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
		return err
	}

	m.logger.Info("session", "Session deleted", map[string]interface{}{
		"session_id": sessionID,
	})
	return nil
}
