package router

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ragweave/ragweave/llm"
)

// Intent labels what kind of handling a query needs.
type Intent string

const (
	IntentFactual          Intent = "factual"
	IntentComplexReasoning Intent = "complex_reasoning"
	IntentToolRequired     Intent = "tool_required"
	IntentConversational   Intent = "conversational"
	IntentUnknown          Intent = "unknown"
)

// Classification is the outcome of intent detection. Fallback reports that
// the model's JSON was unusable and a degraded path produced the result.
type Classification struct {
	Intent     Intent
	Confidence float64
	Reasoning  string
	Fallback   bool
}

type intentPayload struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// Keyword fallbacks, checked in order so the more specific intents win
// over the generic factual question words.
var keywordIntents = []struct {
	intent   Intent
	keywords []string
}{
	{IntentToolRequired, []string{"calculate", "compute", "convert", "search the web", "look up online", "database", "sql", "query the"}},
	{IntentComplexReasoning, []string{"why", "how does", "how do", "explain", "compare", "analyze", "reason", "step by step", "difference between"}},
	{IntentConversational, []string{"hello", "hi ", "hey", "thanks", "thank you", "good morning", "how are you", "nice to"}},
	{IntentFactual, []string{"what", "when", "where", "who", "which", "define", "list"}},
}

const classifyPromptTemplate = `Classify the intent of the user query below.
Possible intents: factual, complex_reasoning, tool_required, conversational.
Respond with JSON only: {"intent": "...", "confidence": 0.0-1.0, "reasoning": "..."}

Query: %s`

// Classifier determines query intent with one model call, degrading to
// keyword matching and finally to a factual default. It never returns an
// error; classification failure must not abort query handling.
type Classifier struct {
	client llm.Client
	logger *slog.Logger
}

// NewClassifier builds a Classifier.
func NewClassifier(client llm.Client, logger *slog.Logger) *Classifier {
	return &Classifier{client: client, logger: logger}
}

// Classify returns the query's intent.
func (c *Classifier) Classify(ctx context.Context, query string) Classification {
	reply, err := llm.Complete(ctx, c.client, fmt.Sprintf(classifyPromptTemplate, query))
	if err != nil {
		c.logger.Warn("intent call failed, using keyword fallback", "error", err)
		return classifyByKeywords(query)
	}

	payload, err := llm.DecodeJSON[intentPayload](reply)
	if err != nil {
		c.logger.Warn("intent reply not JSON, using keyword fallback", "error", err)
		// The raw reply often names the intent even when the JSON is
		// malformed, so match keywords against it before the query.
		if cls := matchKeywords(reply); cls != nil {
			return *cls
		}
		return classifyByKeywords(query)
	}

	intent := normalizeIntent(payload.Intent)
	if intent == IntentUnknown {
		return classifyByKeywords(query)
	}
	confidence := payload.Confidence
	if confidence <= 0 || confidence > 1 {
		confidence = 0.5
	}
	return Classification{Intent: intent, Confidence: confidence, Reasoning: payload.Reasoning}
}

func normalizeIntent(raw string) Intent {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "factual":
		return IntentFactual
	case "complex_reasoning":
		return IntentComplexReasoning
	case "tool_required":
		return IntentToolRequired
	case "conversational":
		return IntentConversational
	default:
		return IntentUnknown
	}
}

func classifyByKeywords(text string) Classification {
	if cls := matchKeywords(text); cls != nil {
		return *cls
	}
	return Classification{Intent: IntentFactual, Confidence: 0.5, Fallback: true}
}

func matchKeywords(text string) *Classification {
	lowered := strings.ToLower(text)
	for _, group := range keywordIntents {
		for _, kw := range group.keywords {
			if strings.Contains(lowered, kw) {
				return &Classification{Intent: group.intent, Confidence: 0.7, Fallback: true}
			}
		}
	}
	return nil
}
