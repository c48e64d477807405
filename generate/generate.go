// Package generate produces the final natural-language answer from gathered
// evidence with one model call.
package generate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ragweave/ragweave/evidence"
	"github.com/ragweave/ragweave/llm"
	"github.com/ragweave/ragweave/pkg/logging"
)

// NotFoundAnswer is returned, without a model call, when there is nothing
// to ground an answer on.
const NotFoundAnswer = "Sorry, no relevant information was found to answer this question."

// DefaultEvidenceChars bounds each evidence passage in the prompt.
const DefaultEvidenceChars = 500

// TokenCounter reports prompt length in model tokens. Implemented by
// contrib/tokenizer/tiktoken.
type TokenCounter interface {
	Count(text string) int
}

// Generator writes answers grounded in evidence.
type Generator struct {
	client          llm.Client
	evidenceChars   int
	counter         TokenCounter
	maxPromptTokens int
	logger          *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithEvidenceChars overrides the per-passage prompt budget.
func WithEvidenceChars(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.evidenceChars = n
		}
	}
}

// WithTokenBudget trims evidence from the end of the prompt until it fits
// within maxTokens as measured by counter.
func WithTokenBudget(counter TokenCounter, maxTokens int) Option {
	return func(g *Generator) {
		if counter != nil && maxTokens > 0 {
			g.counter = counter
			g.maxPromptTokens = maxTokens
		}
	}
}

// New builds a Generator over the given model client.
func New(client llm.Client, opts ...Option) *Generator {
	g := &Generator{
		client:        client,
		evidenceChars: DefaultEvidenceChars,
		logger:        logging.WithComponent("generate"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Answer generates an answer for the query from the evidence. extraContext
// carries memory or prior-conversation text and may be empty. With neither
// evidence nor context the not-found answer is returned directly.
func (g *Generator) Answer(ctx context.Context, query string, items []evidence.Item, extraContext string) (string, error) {
	if len(items) == 0 && extraContext == "" {
		return NotFoundAnswer, nil
	}

	prompt := g.buildPrompt(query, items, extraContext)
	if g.counter != nil {
		for len(items) > 0 && g.counter.Count(prompt) > g.maxPromptTokens {
			items = items[:len(items)-1]
			prompt = g.buildPrompt(query, items, extraContext)
		}
	}

	answer, err := llm.Complete(ctx, g.client, prompt)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return NotFoundAnswer, nil
	}
	return answer, nil
}

func (g *Generator) buildPrompt(query string, items []evidence.Item, extraContext string) string {
	var sb strings.Builder
	sb.WriteString("Answer the question using only the material below. If the material does not contain the answer, say so.\n\n")
	if extraContext != "" {
		fmt.Fprintf(&sb, "Context:\n%s\n\n", extraContext)
	}
	if formatted := evidence.FormatNumbered(items, g.evidenceChars); formatted != "" {
		fmt.Fprintf(&sb, "Evidence:\n%s\n", formatted)
	}
	fmt.Fprintf(&sb, "Question: %s\nAnswer:", query)
	return sb.String()
}
