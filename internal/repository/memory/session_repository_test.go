package memory

import (
	"context"
	"testing"
	"time"

	"ai-medchat-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRepository_GetMissing(t *testing.T) {
	repo := NewSessionRepository()
	m, err := repo.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestSessionRepository_SaveClones(t *testing.T) {
	repo := NewSessionRepository()
	ctx := context.Background()

	m := store.NewSessionMemory("s1", time.Now())
	m.Symptoms = append(m.Symptoms, "cough")
	require.NoError(t, repo.Save(ctx, m))

	// Mutating after save does not leak into the store
	m.Symptoms = append(m.Symptoms, "fever")

	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"cough"}, got.Symptoms)

	// Nor does mutating what Get returned
	got.Symptoms[0] = "changed"
	again, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"cough"}, again.Symptoms)
}

func TestSessionRepository_ListSortedAndDelete(t *testing.T) {
	repo := NewSessionRepository()
	ctx := context.Background()

	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, repo.Save(ctx, store.NewSessionMemory(id, time.Now())))
	}

	list, err := repo.List(ctx)
	require.NoError(t, err)
	ids := make([]string, len(list))
	for i, m := range list {
		ids[i] = m.SessionID
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)

	require.NoError(t, repo.Delete(ctx, "b"))
	require.NoError(t, repo.Delete(ctx, "missing"))
	list, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
