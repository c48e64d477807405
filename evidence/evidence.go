// Package evidence models the retrieved passages that flow between the
// retrieval pipeline, the reranker, the reasoning engine and the generator.
package evidence

import (
	"fmt"
	"strings"
)

// Item is one retrieved passage. Source and ChunkIndex together identify the
// passage across retrieval rounds; Score is the retriever's relevance when
// known.
type Item struct {
	Content    string         `json:"content"`
	Source     string         `json:"source,omitempty"`
	ChunkIndex *int           `json:"chunk_index,omitempty"`
	Score      *float32       `json:"score,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Key returns the identity key used for deduplication: source and chunk
// index joined by an underscore, each empty when absent.
func (it Item) Key() string {
	source := it.Source
	chunk := ""
	if it.ChunkIndex != nil {
		chunk = fmt.Sprintf("%d", *it.ChunkIndex)
	}
	return source + "_" + chunk
}

// Dedupe removes items whose identity key was already seen, keeping the
// first occurrence and preserving order.
func Dedupe(items []Item) []Item {
	seen := make(map[string]struct{}, len(items))
	out := make([]Item, 0, len(items))
	for _, it := range items {
		key := it.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, it)
	}
	return out
}

// Merge appends extra to base and deduplicates. Items already in base win
// over later duplicates, so accumulated evidence is never replaced.
func Merge(base, extra []Item) []Item {
	merged := make([]Item, 0, len(base)+len(extra))
	merged = append(merged, base...)
	merged = append(merged, extra...)
	return Dedupe(merged)
}

// Sources returns the distinct non-empty sources in first-seen order.
func Sources(items []Item) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it.Source == "" {
			continue
		}
		if _, ok := seen[it.Source]; ok {
			continue
		}
		seen[it.Source] = struct{}{}
		out = append(out, it.Source)
	}
	return out
}

// FormatNumbered renders items as a numbered list for prompts, truncating
// each passage to charBudget characters. charBudget <= 0 means no limit.
func FormatNumbered(items []Item, charBudget int) string {
	if len(items) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, it := range items {
		content := it.Content
		if charBudget > 0 && len(content) > charBudget {
			content = content[:charBudget]
		}
		fmt.Fprintf(&sb, "[%d] %s\n", i+1, content)
	}
	return sb.String()
}

// Truncate limits items to at most n, preserving order.
func Truncate(items []Item, n int) []Item {
	if n <= 0 || len(items) <= n {
		return items
	}
	return items[:n]
}
