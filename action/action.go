// Package action dispatches a reasoning step's chosen action to retrieval,
// answer generation, or a registered tool, normalizing every outcome into a
// uniform record. Failures become error outcomes, never panics or returned
// errors: the agent loop must keep iterating past a failed action.
package action

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ragweave/ragweave/evidence"
	"github.com/ragweave/ragweave/generate"
	"github.com/ragweave/ragweave/pkg/logging"
	"github.com/ragweave/ragweave/reason"
	"github.com/ragweave/ragweave/retrieval"
	"github.com/ragweave/ragweave/tool"
)

// Status of an executed action.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Defaults for search dispatch and evidence expansion.
const (
	DefaultSearchTopK      = 5
	DefaultExpansionFactor = 4
)

// Outcome is the normalized result of one executed action.
type Outcome struct {
	Status    Status
	Result    string
	Evidence  []evidence.Item
	Tool      string
	QueryUsed string
}

// Executor routes actions to their handlers.
type Executor struct {
	provider        retrieval.Provider
	generator       *generate.Generator
	registry        *tool.Registry
	searchTopK      int
	expansionFactor int
	logger          *slog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithSearchTopK sets how many items a search action fetches.
func WithSearchTopK(k int) Option {
	return func(e *Executor) {
		if k > 0 {
			e.searchTopK = k
		}
	}
}

// WithExpansionFactor sets the widening multiplier used by ExpandEvidence.
func WithExpansionFactor(f int) Option {
	return func(e *Executor) {
		if f > 0 {
			e.expansionFactor = f
		}
	}
}

// NewExecutor builds an Executor. registry may be nil when tools are
// disabled.
func NewExecutor(provider retrieval.Provider, generator *generate.Generator, registry *tool.Registry, opts ...Option) *Executor {
	e := &Executor{
		provider:        provider,
		generator:       generator,
		registry:        registry,
		searchTopK:      DefaultSearchTopK,
		expansionFactor: DefaultExpansionFactor,
		logger:          logging.WithComponent("action"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs one action. input is the step's action input, query the user
// query, items the evidence accumulated so far (consumed by answer).
func (e *Executor) Execute(ctx context.Context, act reason.Action, input, query string, items []evidence.Item) Outcome {
	switch act {
	case reason.ActionSearch:
		return e.search(ctx, input, query)
	case reason.ActionAnswer:
		return e.answer(ctx, input, query, items)
	case reason.ActionToolCall:
		return e.toolCall(ctx, input, query)
	default:
		return Outcome{Status: StatusError, Result: fmt.Sprintf("unknown action: %s", act)}
	}
}

// search fetches fresh evidence; the action input overrides the user query
// when present.
func (e *Executor) search(ctx context.Context, input, query string) Outcome {
	searchQuery := strings.TrimSpace(input)
	if searchQuery == "" {
		searchQuery = query
	}
	items, err := e.provider.Search(ctx, searchQuery, e.searchTopK)
	if err != nil {
		e.logger.Warn("search action failed", "query", searchQuery, "error", err)
		return Outcome{Status: StatusError, Result: fmt.Sprintf("search failed: %v", err), QueryUsed: searchQuery}
	}
	return Outcome{
		Status:    StatusSuccess,
		Result:    fmt.Sprintf("retrieved %d documents", len(items)),
		Evidence:  items,
		QueryUsed: searchQuery,
	}
}

// answer treats a non-empty action input as the precomputed answer;
// otherwise the generator writes one from the accumulated evidence.
func (e *Executor) answer(ctx context.Context, input, query string, items []evidence.Item) Outcome {
	if answer := strings.TrimSpace(input); answer != "" {
		return Outcome{Status: StatusSuccess, Result: answer}
	}
	answer, err := e.generator.Answer(ctx, query, items, "")
	if err != nil {
		e.logger.Warn("answer generation failed", "error", err)
		return Outcome{Status: StatusError, Result: fmt.Sprintf("answer generation failed: %v", err)}
	}
	return Outcome{Status: StatusSuccess, Result: answer}
}

// toolCall parses "name:params" (params optional) and invokes the tool. The
// tool's output is wrapped as a synthetic evidence item so later iterations
// can reason over it.
func (e *Executor) toolCall(ctx context.Context, input, query string) Outcome {
	if e.registry == nil {
		return Outcome{Status: StatusError, Result: "tools are not enabled"}
	}
	name, params := splitToolInput(input)
	if name == "" {
		return Outcome{Status: StatusError, Result: "tool call missing tool name"}
	}
	result, err := e.registry.Call(ctx, name, params, query)
	if err != nil {
		e.logger.Warn("tool call failed", "tool", name, "error", err)
		return Outcome{Status: StatusError, Result: fmt.Sprintf("tool %s failed: %v", name, err), Tool: name}
	}
	return Outcome{
		Status: StatusSuccess,
		Result: result,
		Tool:   name,
		Evidence: []evidence.Item{{
			Content: result,
			Source:  "tool:" + name,
		}},
	}
}

// ExpandEvidence re-queries with a widened result count: width times the
// expansion factor.
func (e *Executor) ExpandEvidence(ctx context.Context, query string, width int) ([]evidence.Item, error) {
	if width <= 0 {
		width = e.searchTopK
	}
	return e.provider.Search(ctx, query, width*e.expansionFactor)
}

// splitToolInput separates "name:params" on the first colon.
func splitToolInput(input string) (name, params string) {
	input = strings.TrimSpace(input)
	if idx := strings.Index(input, ":"); idx >= 0 {
		return strings.TrimSpace(input[:idx]), strings.TrimSpace(input[idx+1:])
	}
	return input, ""
}
