package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// IndexPassage is one embedded chunk of a named session index
type IndexPassage struct {
	Id             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	IndexName      string          `gorm:"type:varchar(255);not null;index:idx_index_position,priority:1"`
	Position       int             `gorm:"not null;index:idx_index_position,priority:2"` // insertion order within the index
	Content        string          `gorm:"type:text;not null"`
	Source         string          `gorm:"type:varchar(255)"`
	EmbeddingValue pgvector.Vector `gorm:"type:vector(768)"` // nomic-embed-text dimensions
	CreatedAt      time.Time       `gorm:"autoCreateTime"`
}

func (IndexPassage) TableName() string {
	return "index_passages"
}
