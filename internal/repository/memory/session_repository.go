package memory

import (
	"context"
	"sort"

	"ai-medchat-be/internal/repository/contract"
	"ai-medchat-be/pkg/store"

	"github.com/patrickmn/go-cache"
)

// SessionRepository keeps session memory in process. Records never expire.
type SessionRepository struct {
	cache *cache.Cache
}

var _ contract.SessionMemoryRepository = &SessionRepository{}

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		cache: cache.New(cache.NoExpiration, 0),
	}
}

func (r *SessionRepository) Save(ctx context.Context, memory *store.SessionMemory) error {
	r.cache.Set(memory.SessionID, memory.Clone(), cache.NoExpiration)
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, sessionID string) (*store.SessionMemory, error) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(*store.SessionMemory).Clone(), nil
	}
	return nil, nil
}

func (r *SessionRepository) List(ctx context.Context) ([]*store.SessionMemory, error) {
	items := r.cache.Items()
	out := make([]*store.SessionMemory, 0, len(items))
	for _, item := range items {
		out = append(out, item.Object.(*store.SessionMemory).Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SessionID < out[j].SessionID
	})
	return out, nil
}

func (r *SessionRepository) Delete(ctx context.Context, sessionID string) error {
	r.cache.Delete(sessionID)
	return nil
}
