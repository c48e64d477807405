// Package reason produces one structured reasoning step per agent iteration
// and validates candidate answers. Model output is free text; every parse
// path degrades to a usable default rather than failing the iteration.
package reason

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ragweave/ragweave/evidence"
	"github.com/ragweave/ragweave/llm"
	"github.com/ragweave/ragweave/pkg/logging"
)

// Action is what the agent decided to do this iteration.
type Action string

const (
	ActionSearch   Action = "search"
	ActionAnswer   Action = "answer"
	ActionToolCall Action = "tool_call"
)

// Fail-safe values used when the model call itself fails.
const (
	FailSafeConfidence        = 0.3
	ValidationFallbackScore   = 0.7
	ValidationFailedTextScore = 0.3
)

// DefaultEvidenceChars bounds each evidence passage in the prompt.
const DefaultEvidenceChars = 500

// Step is one parsed reasoning step. Never mutated after parsing; a
// mis-parse yields action answer with confidence 0.3 instead of an error so
// no iteration is silently dropped.
type Step struct {
	Thought     string
	Action      Action
	ActionInput string
	Confidence  float64
	Fallback    bool
}

// Validation is the model's judgement of a produced answer.
type Validation struct {
	Consistent bool
	Score      float64
	Reason     string
	Fallback   bool
}

type validationPayload struct {
	Consistent bool    `json:"consistent"`
	Score      float64 `json:"score"`
	Reason     string  `json:"reason"`
}

// Engine issues the per-iteration reasoning calls.
type Engine struct {
	client        llm.Client
	evidenceChars int
	logger        *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithEvidenceChars overrides the per-passage prompt budget.
func WithEvidenceChars(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.evidenceChars = n
		}
	}
}

// NewEngine builds a reasoning Engine over the given model client.
func NewEngine(client llm.Client, opts ...Option) *Engine {
	e := &Engine{
		client:        client,
		evidenceChars: DefaultEvidenceChars,
		logger:        logging.WithComponent("reason"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Step asks the model for the next thought/action/confidence triple. A model
// failure returns the fail-safe step, never an error.
func (e *Engine) Step(ctx context.Context, query string, items []evidence.Item, previousSummary string) Step {
	prompt := e.buildStepPrompt(query, items, previousSummary)
	reply, err := llm.Complete(ctx, e.client, prompt)
	if err != nil {
		e.logger.Warn("reasoning call failed, using fail-safe step", "error", err)
		return Step{
			Thought:    fmt.Sprintf("reasoning failed: %v", err),
			Action:     ActionAnswer,
			Confidence: FailSafeConfidence,
			Fallback:   true,
		}
	}
	return parseStep(reply)
}

func (e *Engine) buildStepPrompt(query string, items []evidence.Item, previousSummary string) string {
	var sb strings.Builder
	sb.WriteString("You are answering a question step by step.\n")
	fmt.Fprintf(&sb, "Question: %s\n\n", query)
	if formatted := evidence.FormatNumbered(items, e.evidenceChars); formatted != "" {
		sb.WriteString("Evidence:\n")
		sb.WriteString(formatted)
		sb.WriteString("\n")
	}
	if previousSummary != "" {
		fmt.Fprintf(&sb, "Previous step: %s\n\n", previousSummary)
	}
	sb.WriteString(`Respond in exactly this format:
Thought: <your reasoning>
Action: <search | answer | tool_call>
Action Input: <query text, answer text, or tool_name:params>
Confidence: <0.0-1.0>`)
	return sb.String()
}

// ValidateAnswer asks the model whether the answer is consistent with the
// reasoning and evidence. Expected reply is JSON {consistent, score, reason};
// a non-JSON reply is matched for the word "inconsistent"; a failed call
// defaults to consistent with score 0.7.
func (e *Engine) ValidateAnswer(ctx context.Context, query, thought, answer string, items []evidence.Item) Validation {
	var sb strings.Builder
	sb.WriteString("Judge whether the answer is consistent with the reasoning and evidence.\n")
	fmt.Fprintf(&sb, "Question: %s\nReasoning: %s\nAnswer: %s\n", query, thought, answer)
	if formatted := evidence.FormatNumbered(items, e.evidenceChars); formatted != "" {
		sb.WriteString("Evidence:\n")
		sb.WriteString(formatted)
	}
	sb.WriteString("\nRespond with JSON only: {\"consistent\": true/false, \"score\": 0.0-1.0, \"reason\": \"...\"}")

	reply, err := llm.Complete(ctx, e.client, sb.String())
	if err != nil {
		e.logger.Warn("validation call failed, assuming consistent", "error", err)
		return Validation{Consistent: true, Score: ValidationFallbackScore, Fallback: true}
	}

	if payload, err := llm.DecodeJSON[validationPayload](reply); err == nil {
		return Validation{
			Consistent: payload.Consistent,
			Score:      clamp01(payload.Score),
			Reason:     payload.Reason,
		}
	}

	if strings.Contains(strings.ToLower(reply), "inconsistent") {
		return Validation{Consistent: false, Score: ValidationFailedTextScore, Reason: reply, Fallback: true}
	}
	return Validation{Consistent: true, Score: ValidationFallbackScore, Reason: reply, Fallback: true}
}
