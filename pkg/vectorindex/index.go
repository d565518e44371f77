// Package vectorindex stores embedded passages in named, per-session indexes.
//
// Two namespaces exist per session: "{session_id}.faiss" for document chunks and
// "{session_id}_chat.faiss" for conversational turns. Readers take a shared lock
// and writers an exclusive one per index name, so a search never observes a
// half-rebuilt index.
package vectorindex

import (
	"context"
	"errors"
	"fmt"
)

// ErrIndexNotFound is returned by reads on an index that was never written
var ErrIndexNotFound = errors.New("index not found")

// Passage is one indexed chunk of text
type Passage struct {
	ID        string
	Content   string
	Source    string // uploaded filename or message role
	Score     float32
	Embedding []float32
}

// Index is the retrieval collaborator
type Index interface {
	// Search returns up to k passages in descending similarity
	Search(ctx context.Context, name string, query string, k int) ([]Passage, error)

	// GetAll returns every passage in insertion order
	GetAll(ctx context.Context, name string) ([]Passage, error)

	// Append embeds passages lacking an embedding and adds them, creating the index if needed
	Append(ctx context.Context, name string, passages []Passage) error

	// Rebuild replaces the whole content of the index. An empty set removes it.
	Rebuild(ctx context.Context, name string, passages []Passage) error

	// Delete drops the index. Deleting a missing index is not an error.
	Delete(ctx context.Context, name string) error
}

// DocumentIndexName is the document corpus namespace of a session
func DocumentIndexName(sessionID string) string {
	return fmt.Sprintf("%s.faiss", sessionID)
}

// ChatIndexName is the conversational history namespace of a session
func ChatIndexName(sessionID string) string {
	return fmt.Sprintf("%s_chat.faiss", sessionID)
}

// Contents projects passages to their text
func Contents(passages []Passage) []string {
	out := make([]string, len(passages))
	for i, p := range passages {
		out[i] = p.Content
	}
	return out
}

func positionID(pos int) string {
	return fmt.Sprintf("%08d", pos)
}
