// Package multilevel fans a query out over coarse, standard and fine
// retrieval levels and merges the results by level priority.
package multilevel

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ragweave/ragweave/evidence"
	"github.com/ragweave/ragweave/pkg/logging"
	"github.com/ragweave/ragweave/retrieval"
)

// Level names, in merge-priority order.
const (
	LevelCoarse   = "coarse"
	LevelStandard = "standard"
	LevelFine     = "fine"
)

// Default per-level result counts.
const (
	DefaultCoarseTopK   = 10
	DefaultStandardTopK = 5
	DefaultFineTopK     = 3
)

type level struct {
	name     string
	provider retrieval.Provider
	topK     int
}

// Retriever queries its configured levels concurrently. Results are merged
// in level priority order (coarse, standard, fine) regardless of which
// search returns first, deduplicated by identity key, and truncated to the
// caller's target. A failing level degrades to zero results.
type Retriever struct {
	levels [3]level
	logger *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithCoarse enables the coarse (topic) level. topK <= 0 uses the default.
func WithCoarse(p retrieval.Provider, topK int) Option {
	return withLevel(0, LevelCoarse, p, topK, DefaultCoarseTopK)
}

// WithStandard enables the standard (chunk) level. topK <= 0 uses the default.
func WithStandard(p retrieval.Provider, topK int) Option {
	return withLevel(1, LevelStandard, p, topK, DefaultStandardTopK)
}

// WithFine enables the fine (sentence) level. topK <= 0 uses the default.
func WithFine(p retrieval.Provider, topK int) Option {
	return withLevel(2, LevelFine, p, topK, DefaultFineTopK)
}

func withLevel(slot int, name string, p retrieval.Provider, topK, def int) Option {
	return func(r *Retriever) {
		if topK <= 0 {
			topK = def
		}
		r.levels[slot] = level{name: name, provider: p, topK: topK}
	}
}

// New builds a Retriever. Levels not configured are skipped.
func New(opts ...Option) *Retriever {
	r := &Retriever{logger: logging.WithComponent("multilevel")}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve runs every configured level concurrently and returns at most
// target merged items. All levels failing yields an empty slice, not an
// error; the only returned error is context cancellation.
func (r *Retriever) Retrieve(ctx context.Context, query string, target int) ([]evidence.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		wg      sync.WaitGroup
		results [3][]evidence.Item
	)
	for i, lv := range r.levels {
		if lv.provider == nil {
			continue
		}
		wg.Add(1)
		go func(slot int, lv level) {
			defer wg.Done()
			items, err := lv.provider.Search(ctx, query, lv.topK)
			if err != nil {
				r.logger.Warn("level search failed", "level", lv.name, "error", err)
				return
			}
			results[slot] = items
		}(i, lv)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Merge strictly by level priority, never by completion order.
	merged := make([]evidence.Item, 0, target)
	for _, items := range results {
		merged = append(merged, items...)
	}
	merged = evidence.Dedupe(merged)
	merged = evidence.Truncate(merged, target)

	r.logger.Debug("multilevel retrieve complete", "query", query, "target", target, "items", len(merged))
	return merged, nil
}
