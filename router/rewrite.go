package router

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ragweave/ragweave/llm"
)

// RewriteMode names the transformation applied to a query before retrieval.
type RewriteMode string

const (
	RewriteNone     RewriteMode = "none"
	RewriteExpand   RewriteMode = "expand"
	RewriteSimplify RewriteMode = "simplify"
)

// Word-count bounds for picking a rewrite mode.
const (
	expandBelowWords   = 5
	simplifyAboveWords = 20
)

const expandPromptTemplate = `The query below is terse. Rewrite it as a fuller,
more specific search query. Reply with the rewritten query only.

Query: %s`

const simplifyPromptTemplate = `The query below is long-winded. Rewrite it as a
short, focused search query keeping the essential intent. Reply with the
rewritten query only.

Query: %s`

const alternativesPromptTemplate = `Produce %d alternative phrasings of the
query below, one per line, no numbering.

Query: %s`

// Rewriter reformulates queries for retrieval. Any model failure falls back
// to the original query.
type Rewriter struct {
	client llm.Client
	logger *slog.Logger
}

// NewRewriter builds a Rewriter.
func NewRewriter(client llm.Client, logger *slog.Logger) *Rewriter {
	return &Rewriter{client: client, logger: logger}
}

// ModeFor picks the rewrite mode from the query's word count.
func ModeFor(query string) RewriteMode {
	words := len(strings.Fields(query))
	switch {
	case words == 0:
		return RewriteNone
	case words < expandBelowWords:
		return RewriteExpand
	case words > simplifyAboveWords:
		return RewriteSimplify
	default:
		return RewriteNone
	}
}

// Rewrite returns the reformulated query and the mode applied. The original
// query comes back untouched when no rewrite is warranted or the model call
// fails.
func (r *Rewriter) Rewrite(ctx context.Context, query string) (string, RewriteMode) {
	mode := ModeFor(query)
	if mode == RewriteNone {
		return query, mode
	}

	var prompt string
	switch mode {
	case RewriteExpand:
		prompt = fmt.Sprintf(expandPromptTemplate, query)
	case RewriteSimplify:
		prompt = fmt.Sprintf(simplifyPromptTemplate, query)
	}

	reply, err := llm.Complete(ctx, r.client, prompt)
	if err != nil {
		r.logger.Warn("rewrite call failed, keeping original query", "mode", mode, "error", err)
		return query, RewriteNone
	}
	rewritten := strings.TrimSpace(reply)
	if rewritten == "" {
		return query, RewriteNone
	}
	return rewritten, mode
}

// Alternatives asks for n alternative phrasings of the query, parsed one per
// line. Failure returns nil.
func (r *Rewriter) Alternatives(ctx context.Context, query string, n int) []string {
	if n <= 0 {
		return nil
	}
	reply, err := llm.Complete(ctx, r.client, fmt.Sprintf(alternativesPromptTemplate, n, query))
	if err != nil {
		r.logger.Warn("alternatives call failed", "error", err)
		return nil
	}

	lines := strings.Split(reply, "\n")
	out := make([]string, 0, n)
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
		if len(out) == n {
			break
		}
	}
	return out
}
