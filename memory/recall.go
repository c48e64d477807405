package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// DefaultHalfLife is how long a memory takes to lose half its weight. The
// decay curve is heuristic; treat it as policy, not a tuned constant.
const DefaultHalfLife = 7 * 24 * time.Hour

// Recaller ranks stored memories by term overlap with the query, discounted
// exponentially by age.
type Recaller struct {
	store    MemoryStore
	halfLife time.Duration
	now      func() time.Time
}

// RecallerOption configures a Recaller.
type RecallerOption func(*Recaller)

// WithHalfLife overrides the decay half-life.
func WithHalfLife(d time.Duration) RecallerOption {
	return func(r *Recaller) {
		if d > 0 {
			r.halfLife = d
		}
	}
}

// withClock fixes the clock; used by tests.
func withClock(now func() time.Time) RecallerOption {
	return func(r *Recaller) { r.now = now }
}

// NewRecaller builds a Recaller over the given store.
func NewRecaller(store MemoryStore, opts ...RecallerOption) *Recaller {
	r := &Recaller{
		store:    store,
		halfLife: DefaultHalfLife,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Recall returns up to n memories ranked by decayed relevance. Entries with
// zero term overlap are dropped.
func (r *Recaller) Recall(ctx context.Context, query string, n int) ([]*Memory, error) {
	if n <= 0 {
		return nil, nil
	}
	candidates, err := r.store.SearchMemory(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("memory: search: %w", err)
	}

	type scored struct {
		mem    *Memory
		weight float64
	}
	now := r.now()
	ranked := make([]scored, 0, len(candidates))
	for _, mem := range candidates {
		if mem == nil {
			continue
		}
		relevance := termOverlap(query, mem.Content)
		if relevance == 0 {
			continue
		}
		age := now.Sub(mem.CreatedAt)
		decay := math.Pow(0.5, age.Seconds()/r.halfLife.Seconds())
		ranked = append(ranked, scored{mem: mem, weight: relevance * decay})
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].weight > ranked[j].weight })
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	out := make([]*Memory, len(ranked))
	for i, s := range ranked {
		out[i] = s.mem
	}
	return out, nil
}

// AsContext renders memories as a context block for the answer generator.
func AsContext(memories []*Memory) string {
	if len(memories) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("Relevant past interactions:\n")
	for _, mem := range memories {
		fmt.Fprintf(&sb, "- %s\n", mem.Content)
	}
	return sb.String()
}

// termOverlap is the fraction of query terms appearing in the content.
func termOverlap(query, content string) float64 {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return 0
	}
	lowered := strings.ToLower(content)
	hits := 0
	for _, term := range terms {
		if strings.Contains(lowered, term) {
			hits++
		}
	}
	return float64(hits) / float64(len(terms))
}
