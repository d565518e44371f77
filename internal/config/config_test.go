package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("RAG_FOLLOWUP_POLICY", "rule")
	t.Setenv("RAG_TOP_K", "not-a-number")

	cfg := Load()

	assert.Equal(t, 3, cfg.Rag.TopK)
	assert.Equal(t, 8, cfg.Rag.SummaryBatchSize)
	assert.Equal(t, 500, cfg.Rag.ChunkSize)
	assert.Equal(t, 50, cfg.Rag.ChunkOverlap)
	assert.True(t, cfg.Rag.ChatHistoryEnabled)
	assert.Equal(t, 120*time.Second, cfg.Ai.GenerationTimeout)
	require.NoError(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("RAG_FOLLOWUP_POLICY", "model")
	t.Setenv("RAG_CHAT_HISTORY_ENABLED", "false")
	t.Setenv("GENERATION_TIMEOUT", "5s")
	t.Setenv("MEMORY_BACKEND", "memory")

	cfg := Load()

	assert.Equal(t, FollowupPolicyModel, cfg.Rag.FollowupPolicy)
	assert.False(t, cfg.Rag.ChatHistoryEnabled)
	assert.Equal(t, 5*time.Second, cfg.Ai.GenerationTimeout)
	assert.Equal(t, "memory", cfg.Store.MemoryBackend)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "unknown policy", mutate: func(c *Config) { c.Rag.FollowupPolicy = "both" }, wantErr: true},
		{name: "pgvector without dsn", mutate: func(c *Config) { c.Store.IndexBackend = "pgvector" }, wantErr: true},
		{name: "pgvector with dsn", mutate: func(c *Config) {
			c.Store.IndexBackend = "pgvector"
			c.Database.Connection = "postgres://localhost/medchat"
		}},
		{name: "batch of one", mutate: func(c *Config) { c.Rag.SummaryBatchSize = 1 }, wantErr: true},
		{name: "unknown memory backend", mutate: func(c *Config) { c.Store.MemoryBackend = "sqlite" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Rag:   RAGConfig{TopK: 3, SummaryBatchSize: 8, FollowupPolicy: FollowupPolicyRule},
				Store: StoreConfig{MemoryBackend: "redis", IndexBackend: "chromem"},
			}
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
