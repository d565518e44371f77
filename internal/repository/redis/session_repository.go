package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"ai-medchat-be/internal/repository/contract"
	"ai-medchat-be/pkg/store"

	goredis "github.com/redis/go-redis/v9"
)

const (
	keyPrefix   = "medchat:session:"
	sessionsSet = "medchat:sessions"
)

// SessionRepository stores each record as JSON under medchat:session:{id}
// and tracks ids in a set so listing does not need KEYS.
type SessionRepository struct {
	rdb *goredis.Client
}

var _ contract.SessionMemoryRepository = &SessionRepository{}

func NewSessionRepository(rdb *goredis.Client) *SessionRepository {
	return &SessionRepository{rdb: rdb}
}

func sessionKey(sessionID string) string {
	return keyPrefix + sessionID
}

func (r *SessionRepository) Get(ctx context.Context, sessionID string) (*store.SessionMemory, error) {
	data, err := r.rdb.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", sessionID, err)
	}
	return decode(sessionID, data)
}

func decode(sessionID string, data []byte) (*store.SessionMemory, error) {
	var m store.SessionMemory
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w %s: %v", contract.ErrCorruptRecord, sessionID, err)
	}
	if m.SessionID == "" {
		m.SessionID = sessionID
	}
	m.Normalize()
	return &m, nil
}

func (r *SessionRepository) Save(ctx context.Context, memory *store.SessionMemory) error {
	data, err := json.Marshal(memory)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", memory.SessionID, err)
	}

	_, err = r.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(memory.SessionID), data, 0)
		pipe.SAdd(ctx, sessionsSet, memory.SessionID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session %s: %w", memory.SessionID, err)
	}
	return nil
}

// List skips records that fail to decode
func (r *SessionRepository) List(ctx context.Context) ([]*store.SessionMemory, error) {
	ids, err := r.rdb.SMembers(ctx, sessionsSet).Result()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	sort.Strings(ids)
	if len(ids) == 0 {
		return []*store.SessionMemory{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = sessionKey(id)
	}
	values, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}

	out := make([]*store.SessionMemory, 0, len(ids))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		m, err := decode(ids[i], []byte(raw))
		if err != nil {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *SessionRepository) Delete(ctx context.Context, sessionID string) error {
	_, err := r.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, sessionKey(sessionID))
		pipe.SRem(ctx, sessionsSet, sessionID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	return nil
}
