// Package rerank reorders retrieved evidence with one language model call.
package rerank

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/ragweave/ragweave/evidence"
	"github.com/ragweave/ragweave/llm"
	"github.com/ragweave/ragweave/pkg/logging"
)

// DefaultCandidateChars bounds how much of each candidate passage is shown
// to the model.
const DefaultCandidateChars = 500

var indexPattern = regexp.MustCompile(`\d+`)

// Reranker asks the model for a relevance ordering over candidate passages.
type Reranker struct {
	client         llm.Client
	candidateChars int
	logger         *slog.Logger
}

// Option configures a Reranker.
type Option func(*Reranker)

// WithCandidateChars overrides the per-candidate truncation budget.
func WithCandidateChars(n int) Option {
	return func(r *Reranker) {
		if n > 0 {
			r.candidateChars = n
		}
	}
}

// New builds a Reranker over the given model client.
func New(client llm.Client, opts ...Option) *Reranker {
	r := &Reranker{
		client:         client,
		candidateChars: DefaultCandidateChars,
		logger:         logging.WithComponent("rerank"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rerank returns at most topN items ordered by model-judged relevance.
// When the candidate set already fits in topN no model call is made and the
// input order is preserved. The returned flag reports whether the model's
// ordering was unusable and the original order was used instead.
func (r *Reranker) Rerank(ctx context.Context, query string, items []evidence.Item, topN int) ([]evidence.Item, bool) {
	if topN <= 0 || len(items) == 0 {
		return nil, false
	}
	if len(items) <= topN {
		return items, false
	}

	reply, err := llm.Complete(ctx, r.client, r.buildPrompt(query, items))
	if err != nil {
		r.logger.Warn("rerank call failed, keeping retrieval order", "error", err)
		return items[:topN], true
	}

	order := parseOrder(reply, len(items))
	if order == nil {
		r.logger.Warn("rerank reply unparseable, keeping retrieval order", "reply_len", len(reply))
		return items[:topN], true
	}

	ranked := make([]evidence.Item, 0, topN)
	for _, idx := range order {
		if len(ranked) == topN {
			break
		}
		ranked = append(ranked, items[idx])
	}
	return ranked, false
}

func (r *Reranker) buildPrompt(query string, items []evidence.Item) string {
	var sb strings.Builder
	sb.WriteString("Rank the following passages by relevance to the query.\n")
	fmt.Fprintf(&sb, "Query: %s\n\nPassages:\n", query)
	for i, it := range items {
		content := it.Content
		if len(content) > r.candidateChars {
			content = content[:r.candidateChars]
		}
		fmt.Fprintf(&sb, "[doc %d] %s\n", i, content)
	}
	sb.WriteString("\nReply with the passage numbers in descending relevance, e.g. 2, 0, 1.")
	return sb.String()
}

// parseOrder extracts an index sequence from the reply and repairs it into
// a permutation of [0, n): out-of-range indices are dropped, duplicates keep
// their first position, and missing indices are appended in original order.
// A reply containing no usable index at all returns nil.
func parseOrder(reply string, n int) []int {
	raw := indexPattern.FindAllString(reply, -1)

	seen := make(map[int]struct{}, n)
	order := make([]int, 0, n)
	for _, s := range raw {
		idx, err := strconv.Atoi(s)
		if err != nil || idx < 0 || idx >= n {
			continue
		}
		if _, dup := seen[idx]; dup {
			continue
		}
		seen[idx] = struct{}{}
		order = append(order, idx)
	}
	if len(order) == 0 {
		return nil
	}
	for i := 0; i < n; i++ {
		if _, ok := seen[i]; !ok {
			order = append(order, i)
		}
	}
	return order
}
