// Package router turns a raw user query into a handling decision: an
// optionally rewritten query, a detected intent, and the strategy record
// that parameterizes retrieval and the agent loop.
package router

import (
	"context"
	"log/slog"

	"github.com/ragweave/ragweave/llm"
	"github.com/ragweave/ragweave/pkg/logging"
)

// Defaults for strategy derivation.
const (
	DefaultBaseEvidenceCount = 5
	DefaultMaxIterations     = 5
	toolEvidenceCount        = 3
)

// Strategy is the per-query configuration bundle consumed by the engine and
// the agent loop. Read-only once produced.
type Strategy struct {
	UseAgentLoop        bool
	UseMultiLevelIndex  bool
	UseRerank           bool
	TargetEvidenceCount int
	MaxIterations       int
	EnableTools         bool
	UseMemory           bool
}

// Decision is the router's full output for one query.
type Decision struct {
	Original    string
	Rewritten   string
	RewriteMode RewriteMode
	Intent      Intent
	Confidence  float64
	Strategy    Strategy
}

// Config tunes strategy derivation.
type Config struct {
	BaseEvidenceCount int
	MaxIterations     int
	DisableRewrite    bool
}

// Router classifies and rewrites queries. Safe for concurrent use.
type Router struct {
	classifier *Classifier
	rewriter   *Rewriter
	cfg        Config
	logger     *slog.Logger
}

// New builds a Router over the given model client.
func New(client llm.Client, cfg Config) *Router {
	if cfg.BaseEvidenceCount <= 0 {
		cfg.BaseEvidenceCount = DefaultBaseEvidenceCount
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	logger := logging.WithComponent("router")
	return &Router{
		classifier: NewClassifier(client, logger),
		rewriter:   NewRewriter(client, logger),
		cfg:        cfg,
		logger:     logger,
	}
}

// Route produces the handling decision for a query. It never fails: every
// degraded path lands on a usable default strategy.
func (r *Router) Route(ctx context.Context, query string) Decision {
	rewritten, mode := query, RewriteNone
	if !r.cfg.DisableRewrite {
		rewritten, mode = r.rewriter.Rewrite(ctx, query)
	}

	cls := r.classifier.Classify(ctx, rewritten)
	strategy := r.strategyFor(cls.Intent)

	r.logger.Info("query routed",
		"intent", cls.Intent,
		"confidence", cls.Confidence,
		"rewrite_mode", mode,
		"agent_loop", strategy.UseAgentLoop,
		"fallback", cls.Fallback,
	)

	return Decision{
		Original:    query,
		Rewritten:   rewritten,
		RewriteMode: mode,
		Intent:      cls.Intent,
		Confidence:  cls.Confidence,
		Strategy:    strategy,
	}
}

// Alternatives exposes alternative phrasings of a query.
func (r *Router) Alternatives(ctx context.Context, query string, n int) []string {
	return r.rewriter.Alternatives(ctx, query, n)
}

// strategyFor derives the strategy record from intent alone.
func (r *Router) strategyFor(intent Intent) Strategy {
	base := Strategy{
		UseMultiLevelIndex:  true,
		UseRerank:           true,
		TargetEvidenceCount: r.cfg.BaseEvidenceCount,
		MaxIterations:       r.cfg.MaxIterations,
	}
	switch intent {
	case IntentComplexReasoning:
		base.UseAgentLoop = true
		base.TargetEvidenceCount = 2 * r.cfg.BaseEvidenceCount
	case IntentToolRequired:
		base.UseAgentLoop = true
		base.UseMultiLevelIndex = false
		base.UseRerank = false
		base.TargetEvidenceCount = toolEvidenceCount
		base.EnableTools = true
	case IntentConversational:
		base.UseMemory = true
	}
	// factual and unknown keep the base strategy
	return base
}
