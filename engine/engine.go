// Package engine is the caller-facing entry point: it routes a query,
// gathers evidence, and answers it either in a single retrieval+generation
// pass or through the iterative agent loop, as the routing strategy decides.
package engine

import (
	"context"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ragweave/ragweave/action"
	"github.com/ragweave/ragweave/evidence"
	"github.com/ragweave/ragweave/generate"
	"github.com/ragweave/ragweave/llm"
	"github.com/ragweave/ragweave/loop"
	"github.com/ragweave/ragweave/memory"
	"github.com/ragweave/ragweave/pkg/logging"
	"github.com/ragweave/ragweave/pkg/telemetry"
	"github.com/ragweave/ragweave/reason"
	"github.com/ragweave/ragweave/rerank"
	"github.com/ragweave/ragweave/retrieval"
	"github.com/ragweave/ragweave/retrieval/multilevel"
	"github.com/ragweave/ragweave/router"
	"github.com/ragweave/ragweave/tool"
)

// DefaultMemoryRecall is how many past interactions feed a conversational
// answer.
const DefaultMemoryRecall = 3

// Result is what every Ask returns. Score, ExecutionPath and Iterations are
// only meaningful for the agent-loop path; single-pass answers leave them at
// their zero values.
type Result struct {
	Answer        string
	Confidence    float64
	Score         float64
	Sources       []string
	ExecutionPath []loop.StepRecord
	Iterations    int
	Intent        router.Intent
	Rewritten     string
}

// Engine wires the router, retrieval pipeline, reranker, generator, agent
// loop, tools and memory together. Safe for concurrent use; each query owns
// its own loop state.
type Engine struct {
	client    llm.Client
	provider  retrieval.Provider
	retriever *multilevel.Retriever
	reranker  *rerank.Reranker
	router    *router.Router
	reasoner  *reason.Engine
	generator *generate.Generator
	registry  *tool.Registry
	recaller  *memory.Recaller
	recorder  *memory.Recorder

	loopCfg      loop.Config
	memoryRecall int

	tracer trace.Tracer
	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithMultiLevel enables multi-level retrieval for strategies that ask for
// it.
func WithMultiLevel(r *multilevel.Retriever) Option {
	return func(e *Engine) { e.retriever = r }
}

// WithTools registers the tool registry used by tool_required strategies
// and by the single-pass tool fallback.
func WithTools(registry *tool.Registry) Option {
	return func(e *Engine) { e.registry = registry }
}

// WithMemory enables interaction memory for conversational queries.
func WithMemory(store memory.MemoryStore, opts ...memory.RecallerOption) Option {
	return func(e *Engine) {
		e.recaller = memory.NewRecaller(store, opts...)
		e.recorder = memory.NewRecorder(store, e.client)
	}
}

// WithLoopConfig overrides the agent loop thresholds.
func WithLoopConfig(cfg loop.Config) Option {
	return func(e *Engine) { e.loopCfg = cfg }
}

// WithRouter replaces the default router, for custom strategy tuning.
func WithRouter(r *router.Router) Option {
	return func(e *Engine) { e.router = r }
}

// WithGenerator replaces the default answer generator, for token-budget or
// prompt tuning.
func WithGenerator(g *generate.Generator) Option {
	return func(e *Engine) { e.generator = g }
}

// WithMemoryRecall sets how many memories feed a conversational answer.
func WithMemoryRecall(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.memoryRecall = n
		}
	}
}

// New builds an Engine over a model client and a flat evidence provider.
func New(client llm.Client, provider retrieval.Provider, opts ...Option) *Engine {
	e := &Engine{
		client:   client,
		provider: provider,
		loopCfg: loop.Config{
			EnableReretrieval: true,
			EnableReplanning:  true,
		},
		memoryRecall: DefaultMemoryRecall,
		tracer:       otel.Tracer("ragweave/engine"),
		logger:       logging.WithComponent("engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.router == nil {
		e.router = router.New(client, router.Config{})
	}
	if e.generator == nil {
		e.generator = generate.New(client)
	}
	e.reasoner = reason.NewEngine(client)
	e.reranker = rerank.New(client)
	return e
}

// Ask answers one query. The only returned error is context cancellation;
// every degraded path yields a textual answer instead.
func (e *Engine) Ask(ctx context.Context, query string) (result *Result, err error) {
	ctx, span := e.tracer.Start(ctx, "engine.ask")
	defer func() { telemetry.End(span, err) }()

	decision := e.router.Route(ctx, query)
	span.SetAttributes(
		attribute.String("query.intent", string(decision.Intent)),
		attribute.Bool("query.agent_loop", decision.Strategy.UseAgentLoop),
	)

	if decision.Strategy.UseAgentLoop {
		result, err = e.askWithLoop(ctx, decision)
	} else {
		result, err = e.askSinglePass(ctx, decision)
	}
	if err != nil {
		return nil, err
	}
	result.Intent = decision.Intent
	result.Rewritten = decision.Rewritten
	return result, nil
}

// askWithLoop seeds the agent loop with an initial retrieval pass and runs
// it under the strategy's iteration budget.
func (e *Engine) askWithLoop(ctx context.Context, decision router.Decision) (*Result, error) {
	initial := e.gatherEvidence(ctx, decision)

	var registry *tool.Registry
	if decision.Strategy.EnableTools {
		registry = e.registry
	}
	executor := action.NewExecutor(e.provider, e.generator, registry,
		action.WithSearchTopK(decision.Strategy.TargetEvidenceCount))

	cfg := e.loopCfg
	cfg.MaxIterations = decision.Strategy.MaxIterations
	runner := loop.New(e.reasoner, executor, cfg)

	res, err := runner.Run(ctx, decision.Rewritten, initial)
	if err != nil {
		return nil, err
	}
	return &Result{
		Answer:        res.Answer,
		Confidence:    res.Confidence,
		Score:         res.Score,
		Sources:       res.Sources,
		ExecutionPath: res.ExecutionPath,
		Iterations:    res.Iterations,
	}, nil
}

// askSinglePass retrieves once, optionally reranks, and generates. An empty
// evidence set produces the not-found answer, never an error.
func (e *Engine) askSinglePass(ctx context.Context, decision router.Decision) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	items := e.gatherEvidence(ctx, decision)

	var memoryContext string
	if decision.Strategy.UseMemory && e.recaller != nil {
		recalled, err := e.recaller.Recall(ctx, decision.Rewritten, e.memoryRecall)
		if err != nil {
			e.logger.Warn("memory recall failed", "error", err)
		} else {
			memoryContext = memory.AsContext(recalled)
		}
	}

	answer, err := e.generator.Answer(ctx, decision.Rewritten, items, memoryContext)
	if err != nil {
		e.logger.Warn("generation failed", "error", err)
		answer = generate.NotFoundAnswer
	}

	if admitsFailure(answer) && e.registry != nil {
		if fixed, extra, ok := e.toolFallback(ctx, decision.Rewritten, items, memoryContext); ok {
			answer = fixed
			items = extra
		}
	}

	if decision.Strategy.UseMemory && e.recorder != nil {
		e.recorder.Record(ctx, decision.Original, answer)
	}

	return &Result{
		Answer:     answer,
		Confidence: decision.Confidence,
		Sources:    evidence.Sources(items),
	}, nil
}

// gatherEvidence runs the strategy's retrieval plan. When reranking is on,
// twice the target is fetched so the reranker has candidates to reorder.
// Retrieval failure degrades to no evidence.
func (e *Engine) gatherEvidence(ctx context.Context, decision router.Decision) []evidence.Item {
	target := decision.Strategy.TargetEvidenceCount
	fetch := target
	useRerank := decision.Strategy.UseRerank && e.reranker != nil
	if useRerank {
		fetch = 2 * target
	}

	var (
		items []evidence.Item
		err   error
	)
	if decision.Strategy.UseMultiLevelIndex && e.retriever != nil {
		items, err = e.retriever.Retrieve(ctx, decision.Rewritten, fetch)
	} else {
		items, err = e.provider.Search(ctx, decision.Rewritten, fetch)
	}
	if err != nil {
		e.logger.Warn("retrieval failed", "error", err)
		return nil
	}

	if useRerank {
		items, _ = e.reranker.Rerank(ctx, decision.Rewritten, items, target)
	}
	return evidence.Truncate(items, target)
}

// toolFallback tries each registered tool against the query when the
// generated answer admits it cannot answer, regenerating from the tool's
// output on first success.
func (e *Engine) toolFallback(ctx context.Context, query string, items []evidence.Item, memoryContext string) (string, []evidence.Item, bool) {
	for _, name := range e.registry.List() {
		result, err := e.registry.Call(ctx, name, query, query)
		if err != nil || strings.TrimSpace(result) == "" {
			continue
		}
		merged := evidence.Merge(items, []evidence.Item{{Content: result, Source: "tool:" + name}})
		answer, err := e.generator.Answer(ctx, query, merged, memoryContext)
		if err != nil {
			continue
		}
		e.logger.Info("tool fallback answered", "tool", name)
		return answer, merged, true
	}
	return "", nil, false
}

// admitsFailure reports whether an answer concedes it could not answer.
func admitsFailure(answer string) bool {
	lowered := strings.ToLower(answer)
	for _, marker := range []string{
		strings.ToLower(generate.NotFoundAnswer),
		"no relevant information",
		"cannot answer",
		"can't answer",
		"don't know",
		"do not know",
		"not found",
	} {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}
