package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	pkgerrors "github.com/ragweave/ragweave/errors"
	"github.com/ragweave/ragweave/vector"
)

// InMemoryVectorStore implements VectorStore using in-memory storage
type InMemoryVectorStore struct {
	embeddings map[string]*vector.Embedding
	mu         sync.RWMutex
}

// NewInMemoryVectorStore creates a new in-memory vector store
func NewInMemoryVectorStore() *InMemoryVectorStore {
	return &InMemoryVectorStore{
		embeddings: make(map[string]*vector.Embedding),
	}
}

// AddEmbedding adds a new embedding to the store
func (s *InMemoryVectorStore) AddEmbedding(ctx context.Context, embedding *vector.Embedding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if embedding == nil {
		return fmt.Errorf("embedding cannot be nil")
	}

	if embedding.ID == "" {
		return fmt.Errorf("embedding ID cannot be empty")
	}

	if len(embedding.Vector) == 0 {
		return fmt.Errorf("embedding vector cannot be empty")
	}

	s.embeddings[embedding.ID] = embedding
	return nil
}

// Search finds embeddings similar to the query vector, scored by cosine
// similarity, highest first.
func (s *InMemoryVectorStore) Search(ctx context.Context, queryVector []float32, topK int) ([]*vector.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(queryVector) == 0 {
		return nil, fmt.Errorf("query vector cannot be empty")
	}

	if topK <= 0 {
		topK = 10
	}

	matches := make([]*vector.Match, 0, len(s.embeddings))
	for _, emb := range s.embeddings {
		if len(emb.Vector) != len(queryVector) {
			continue
		}
		matches = append(matches, &vector.Match{
			Embedding: emb,
			Score:     vector.CosineSimilarity(queryVector, emb.Vector),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}

	return matches, nil
}

// DeleteEmbedding removes an embedding by ID
func (s *InMemoryVectorStore) DeleteEmbedding(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.embeddings[id]; !exists {
		return fmt.Errorf("embedding %s: %w", id, pkgerrors.ErrNotFound)
	}

	delete(s.embeddings, id)
	return nil
}

// GetEmbedding retrieves a specific embedding by ID
func (s *InMemoryVectorStore) GetEmbedding(ctx context.Context, id string) (*vector.Embedding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	emb, exists := s.embeddings[id]
	if !exists {
		return nil, fmt.Errorf("embedding %s: %w", id, pkgerrors.ErrNotFound)
	}

	return emb, nil
}

// Clear removes all embeddings
func (s *InMemoryVectorStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.embeddings = make(map[string]*vector.Embedding)
	return nil
}

// Count returns the number of embeddings
func (s *InMemoryVectorStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.embeddings), nil
}
