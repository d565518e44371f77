package vectorindex

import (
	"context"
	"fmt"

	"ai-medchat-be/internal/pkg/logger"
	"ai-medchat-be/pkg/embedding"
	"ai-medchat-be/pkg/utils"

	chromem "github.com/philippgille/chromem-go"
)

const metadataSource = "source"

// ChromemIndex keeps one chromem collection per index name.
// Document IDs are zero-padded insertion positions so GetAll can replay order.
type ChromemIndex struct {
	db       *chromem.DB
	embedder embedding.Embedder
	locks    *utils.KeyedRWMutex
	logger   logger.ILogger
}

var _ Index = &ChromemIndex{}

// NewChromemIndex opens a persistent store under path, or an in-memory one when path is empty
func NewChromemIndex(path string, embedder embedding.Embedder, log logger.ILogger) (*ChromemIndex, error) {
	var (
		db  *chromem.DB
		err error
	)
	if path == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, fmt.Errorf("open chromem db at %s: %w", path, err)
		}
	}

	return &ChromemIndex{
		db:       db,
		embedder: embedder,
		locks:    utils.NewKeyedRWMutex(),
		logger:   log,
	}, nil
}

// chromem falls back to an OpenAI embedder when given nil, so always pass ours
func (x *ChromemIndex) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return x.embedder.EmbedQuery(ctx, text)
	}
}

func (x *ChromemIndex) Search(ctx context.Context, name string, query string, k int) ([]Passage, error) {
	unlock := x.locks.RLock(name)
	defer unlock()

	col := x.db.GetCollection(name, x.embeddingFunc())
	if col == nil {
		return nil, ErrIndexNotFound
	}

	// chromem requires 0 < nResults <= document count
	count := col.Count()
	if count == 0 || k <= 0 {
		return []Passage{}, nil
	}
	if k > count {
		k = count
	}

	queryVec, err := x.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := col.QueryEmbedding(ctx, queryVec, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", name, err)
	}

	passages := make([]Passage, len(results))
	for i, r := range results {
		passages[i] = Passage{
			ID:      r.ID,
			Content: r.Content,
			Source:  r.Metadata[metadataSource],
			Score:   r.Similarity,
		}
	}

	x.logger.Debug("vectorindex", "Searched chromem collection", map[string]interface{}{
		"index":   name,
		"k":       k,
		"results": len(passages),
	})

	return passages, nil
}

func (x *ChromemIndex) GetAll(ctx context.Context, name string) ([]Passage, error) {
	unlock := x.locks.RLock(name)
	defer unlock()

	col := x.db.GetCollection(name, x.embeddingFunc())
	if col == nil {
		return nil, ErrIndexNotFound
	}
	return x.readAll(ctx, col)
}

func (x *ChromemIndex) readAll(ctx context.Context, col *chromem.Collection) ([]Passage, error) {
	count := col.Count()
	passages := make([]Passage, 0, count)
	for pos := 0; pos < count; pos++ {
		doc, err := col.GetByID(ctx, positionID(pos))
		if err != nil {
			return nil, fmt.Errorf("read passage %d: %w", pos, err)
		}
		passages = append(passages, Passage{
			ID:        doc.ID,
			Content:   doc.Content,
			Source:    doc.Metadata[metadataSource],
			Embedding: doc.Embedding,
		})
	}
	return passages, nil
}

func (x *ChromemIndex) Append(ctx context.Context, name string, passages []Passage) error {
	if len(passages) == 0 {
		return nil
	}

	unlock := x.locks.Lock(name)
	defer unlock()

	col, err := x.db.GetOrCreateCollection(name, nil, x.embeddingFunc())
	if err != nil {
		return fmt.Errorf("open collection %s: %w", name, err)
	}
	return x.add(ctx, col, col.Count(), passages)
}

func (x *ChromemIndex) Rebuild(ctx context.Context, name string, passages []Passage) error {
	unlock := x.locks.Lock(name)
	defer unlock()

	// Embed before dropping anything so a failing embedder leaves the old index intact
	docs, err := x.toDocuments(ctx, 0, passages)
	if err != nil {
		return err
	}

	if err := x.db.DeleteCollection(name); err != nil {
		return fmt.Errorf("drop collection %s: %w", name, err)
	}
	if len(docs) == 0 {
		return nil
	}

	col, err := x.db.CreateCollection(name, nil, x.embeddingFunc())
	if err != nil {
		return fmt.Errorf("create collection %s: %w", name, err)
	}
	if err := col.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("add documents to %s: %w", name, err)
	}

	x.logger.Info("vectorindex", "Rebuilt chromem collection", map[string]interface{}{
		"index":    name,
		"passages": len(docs),
	})
	return nil
}

func (x *ChromemIndex) Delete(ctx context.Context, name string) error {
	unlock := x.locks.Lock(name)
	defer unlock()

	if err := x.db.DeleteCollection(name); err != nil {
		return fmt.Errorf("drop collection %s: %w", name, err)
	}
	return nil
}

func (x *ChromemIndex) add(ctx context.Context, col *chromem.Collection, start int, passages []Passage) error {
	docs, err := x.toDocuments(ctx, start, passages)
	if err != nil {
		return err
	}
	// concurrency of 1 since embeddings are already computed
	if err := col.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("add documents: %w", err)
	}
	return nil
}

func (x *ChromemIndex) toDocuments(ctx context.Context, start int, passages []Passage) ([]chromem.Document, error) {
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

	docs := make([]chromem.Document, len(passages))
	next := 0
	for i, p := range passages {
		vec := p.Embedding
		if len(vec) == 0 {
			vec = embedded[next]
			next++
		}
		docs[i] = chromem.Document{
			ID:        positionID(start + i),
			Content:   p.Content,
			Metadata:  map[string]string{metadataSource: p.Source},
			Embedding: vec,
		}
	}
	return docs, nil
}
