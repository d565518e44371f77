package vectorindex

import (
	"context"
	"fmt"

	"ai-medchat-be/internal/model"
	"ai-medchat-be/internal/pkg/logger"
	"ai-medchat-be/pkg/embedding"
	"ai-medchat-be/pkg/utils"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// PgvectorIndex stores every named index in one table, partitioned by index_name
type PgvectorIndex struct {
	db       *gorm.DB
	embedder embedding.Embedder
	locks    *utils.KeyedRWMutex
	logger   logger.ILogger
}

var _ Index = &PgvectorIndex{}

func NewPgvectorIndex(db *gorm.DB, embedder embedding.Embedder, log logger.ILogger) *PgvectorIndex {
	return &PgvectorIndex{
		db:       db,
		embedder: embedder,
		locks:    utils.NewKeyedRWMutex(),
		logger:   log,
	}
}

func (x *PgvectorIndex) count(ctx context.Context, tx *gorm.DB, name string) (int64, error) {
	var n int64
	err := tx.WithContext(ctx).Model(&model.IndexPassage{}).Where("index_name = ?", name).Count(&n).Error
	return n, err
}

func (x *PgvectorIndex) Search(ctx context.Context, name string, query string, k int) ([]Passage, error) {
	unlock := x.locks.RLock(name)
	defer unlock()

	n, err := x.count(ctx, x.db, name)
	if err != nil {
		return nil, fmt.Errorf("count %s: %w", name, err)
	}
	if n == 0 {
		return nil, ErrIndexNotFound
	}
	if k <= 0 {
		return []Passage{}, nil
	}

	queryVec, err := x.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	// Cosine distance in pgvector is 1 - cosine_similarity
	type result struct {
		model.IndexPassage
		Similarity float64
	}
	var results []result
	vec := pgvector.NewVector(queryVec)
	err = x.db.WithContext(ctx).
		Table(model.IndexPassage{}.TableName()).
		Select("index_passages.*, 1 - (embedding_value <=> ?) as similarity", vec).
		Where("index_name = ?", name).
		Order("similarity DESC").
		Limit(k).
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", name, err)
	}

	passages := make([]Passage, len(results))
	for i, r := range results {
		passages[i] = Passage{
			ID:      r.Id.String(),
			Content: r.Content,
			Source:  r.Source,
			Score:   float32(r.Similarity),
		}
	}
	return passages, nil
}

func (x *PgvectorIndex) GetAll(ctx context.Context, name string) ([]Passage, error) {
	unlock := x.locks.RLock(name)
	defer unlock()

	var rows []*model.IndexPassage
	if err := x.db.WithContext(ctx).Where("index_name = ?", name).Order("position ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if len(rows) == 0 {
		return nil, ErrIndexNotFound
	}

	passages := make([]Passage, len(rows))
	for i, r := range rows {
		passages[i] = Passage{
			ID:        r.Id.String(),
			Content:   r.Content,
			Source:    r.Source,
			Embedding: r.EmbeddingValue.Slice(),
		}
	}
	return passages, nil
}

func (x *PgvectorIndex) Append(ctx context.Context, name string, passages []Passage) error {
	if len(passages) == 0 {
		return nil
	}

	unlock := x.locks.Lock(name)
	defer unlock()

	return x.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		start, err := x.count(ctx, tx, name)
		if err != nil {
			return err
		}
		rows, err := x.toRows(ctx, name, int(start), passages)
		if err != nil {
			return err
		}
		return tx.Create(rows).Error
	})
}

func (x *PgvectorIndex) Rebuild(ctx context.Context, name string, passages []Passage) error {
	unlock := x.locks.Lock(name)
	defer unlock()

	rows, err := x.toRows(ctx, name, 0, passages)
	if err != nil {
		return err
	}

	err = x.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("index_name = ?", name).Delete(&model.IndexPassage{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(rows).Error
	})
	if err != nil {
		return fmt.Errorf("rebuild %s: %w", name, err)
	}

	x.logger.Info("vectorindex", "Rebuilt pgvector index", map[string]interface{}{
		"index":    name,
		"passages": len(rows),
	})
	return nil
}

func (x *PgvectorIndex) Delete(ctx context.Context, name string) error {
	unlock := x.locks.Lock(name)
	defer unlock()

	return x.db.WithContext(ctx).Where("index_name = ?", name).Delete(&model.IndexPassage{}).Error
}

func (x *PgvectorIndex) toRows(ctx context.Context, name string, start int, passages []Passage) ([]*model.IndexPassage, error) {
	var missing []string
	for _, p := range passages {
		if len(p.Embedding) == 0 {
			missing = append(missing, p.Content)
		}
	}

	var embedded [][]float32
	if len(missing) > 0 {
		var err error
		embedded, err = x.embedder.EmbedDocuments(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("embed passages: %w", err)
		}
	}

	rows := make([]*model.IndexPassage, len(passages))
	next := 0
	for i, p := range passages {
		vec := p.Embedding
		if len(vec) == 0 {
			vec = embedded[next]
			next++
		}
		rows[i] = &model.IndexPassage{
			IndexName:      name,
			Position:       start + i,
			Content:        p.Content,
			Source:         p.Source,
			EmbeddingValue: pgvector.NewVector(vec),
		}
	}
	return rows, nil
}
