// Package retrieval defines how evidence is fetched for a query. The core
// abstraction is Provider; StoreProvider implements it over a vector store
// plus an embedder.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ragweave/ragweave/evidence"
	"github.com/ragweave/ragweave/pkg/logging"
	"github.com/ragweave/ragweave/vector"
)

// Provider fetches the topK most relevant evidence items for a query.
type Provider interface {
	Search(ctx context.Context, query string, topK int) ([]evidence.Item, error)
}

// StoreProvider embeds the query and searches a vector store.
type StoreProvider struct {
	store    vector.VectorStore
	embedder vector.Embedder
	logger   *slog.Logger
}

// NewStoreProvider builds a Provider over the given store and embedder.
func NewStoreProvider(store vector.VectorStore, embedder vector.Embedder) *StoreProvider {
	return &StoreProvider{
		store:    store,
		embedder: embedder,
		logger:   logging.WithComponent("retrieval"),
	}
}

// Search implements Provider.
func (p *StoreProvider) Search(ctx context.Context, query string, topK int) ([]evidence.Item, error) {
	if topK <= 0 {
		return nil, nil
	}
	vec, err := p.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("retrieval: embed query: %w", err)
	}
	matches, err := p.store.Search(ctx, vec, topK)
	if err != nil {
		return nil, fmt.Errorf("retrieval: vector search: %w", err)
	}

	items := make([]evidence.Item, 0, len(matches))
	for _, m := range matches {
		if m == nil || m.Embedding == nil {
			continue
		}
		items = append(items, itemFromMatch(m))
	}
	p.logger.Debug("search complete", "query", query, "top_k", topK, "hits", len(items))
	return items, nil
}

func itemFromMatch(m *vector.Match) evidence.Item {
	emb := m.Embedding
	score := m.Score
	item := evidence.Item{
		Content:  emb.Text,
		Source:   emb.ID,
		Score:    &score,
		Metadata: emb.Metadata,
	}
	if emb.Metadata == nil {
		return item
	}
	if src, ok := emb.Metadata["source"].(string); ok && src != "" {
		item.Source = src
	}
	if idx, ok := chunkIndex(emb.Metadata["chunk_index"]); ok {
		item.ChunkIndex = &idx
	}
	return item
}

// chunkIndex tolerates both int and float64; metadata round-tripped through
// JSON arrives as float64.
func chunkIndex(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
