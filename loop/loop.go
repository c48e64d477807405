// Package loop implements the iterative think-act-observe agent as an
// explicit state machine on the graph engine. One Run owns one loop state;
// nothing is shared across concurrent runs except configuration.
package loop

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ragweave/ragweave/action"
	"github.com/ragweave/ragweave/evidence"
	"github.com/ragweave/ragweave/graph"
	"github.com/ragweave/ragweave/pkg/logging"
	"github.com/ragweave/ragweave/reason"
)

// Defaults for the loop's decision thresholds.
const (
	DefaultMaxIterations       = 5
	DefaultConfidenceThreshold = 0.7
	DefaultEarlyStopScore      = 0.9
)

// NoAnswer is returned when the iteration budget is exhausted without any
// answer attempt at all.
const NoAnswer = "No answer could be produced within the iteration budget."

// Graph node names.
const (
	nodeStart      = "start"
	nodeReason     = "reason"
	nodeRoute      = "reretrieval_gate"
	nodeReretrieve = "reretrieve"
	nodeExecute    = "execute"
	nodeKind       = "action_kind"
	nodeValidate   = "validate"
	nodeAfterCheck = "replan_gate"
	nodeReplan     = "replan"
	nodeRecord     = "record"
	nodeObserve    = "observe"
	nodeTerm       = "budget_gate"
	nodeEnd        = "end"
)

const stateKey = "loop_state"

// Config tunes one loop run. Zero values take the package defaults.
type Config struct {
	MaxIterations       int
	ConfidenceThreshold float64
	EarlyStopScore      float64
	EnableReretrieval   bool
	EnableReplanning    bool
}

func (c Config) withDefaults() Config {
	if c.MaxIterations <= 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.ConfidenceThreshold <= 0 {
		c.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	if c.EarlyStopScore <= 0 {
		c.EarlyStopScore = DefaultEarlyStopScore
	}
	return c
}

// StepRecord is one audit-trail entry. Iteration is 1-based and strictly
// increasing; the path is append-only.
type StepRecord struct {
	Iteration  int                `json:"iteration"`
	Thought    string             `json:"thought"`
	Action     string             `json:"action"`
	Result     string             `json:"result"`
	Confidence float64            `json:"confidence"`
	Validation *reason.Validation `json:"validation,omitempty"`
}

// Result is what a finished run hands back to the caller.
type Result struct {
	Answer        string
	Confidence    float64
	Score         float64
	Sources       []string
	ExecutionPath []StepRecord
	Iterations    int
}

// runState is the per-run mutable state carried through the graph. Node
// functions mutate it in place and return the same state map.
type runState struct {
	query    string
	evidence []evidence.Item

	iteration       int
	step            reason.Step
	outcome         action.Outcome
	validation      reason.Validation
	previousSummary string

	bestAnswer string
	bestScore  float64
	hasBest    bool

	path []StepRecord

	done        bool
	finalAnswer string
	finalConf   float64
	finalScore  float64
}

// Loop drives iterations of reasoning, gating and action execution.
type Loop struct {
	reasoner *reason.Engine
	executor *action.Executor
	cfg      Config
	logger   *slog.Logger
}

// New builds a Loop. The same Loop may serve concurrent runs.
func New(reasoner *reason.Engine, executor *action.Executor, cfg Config) *Loop {
	return &Loop{
		reasoner: reasoner,
		executor: executor,
		cfg:      cfg.withDefaults(),
		logger:   logging.WithComponent("loop"),
	}
}

// Run executes the agent loop for one query seeded with initial evidence.
// The only returned error is context cancellation or a graph defect; every
// external failure is absorbed into the execution path.
func (l *Loop) Run(ctx context.Context, query string, initial []evidence.Item) (*Result, error) {
	rs := &runState{
		query:    query,
		evidence: evidence.Dedupe(initial),
	}

	g := l.buildGraph()
	if _, err := g.Execute(ctx, graph.State{stateKey: rs}); err != nil {
		return nil, fmt.Errorf("loop: %w", err)
	}

	return l.finish(rs), nil
}

func (l *Loop) buildGraph() *graph.Graph {
	b := graph.NewBuilder().
		AddNode(nodeStart, graph.NodeTypeStart, func(_ context.Context, s graph.State) (graph.State, error) {
			return s, nil
		}).
		AddNode(nodeReason, graph.NodeTypeLLM, l.reasonNode).
		AddConditionNode(nodeRoute, l.routeCondition, map[string]string{
			nodeReretrieve: nodeReretrieve,
			nodeExecute:    nodeExecute,
		}).
		AddNode(nodeReretrieve, graph.NodeTypeCustom, l.reretrieveNode).
		AddNode(nodeExecute, graph.NodeTypeTool, l.executeNode).
		AddConditionNode(nodeKind, l.kindCondition, map[string]string{
			nodeValidate: nodeValidate,
			nodeObserve:  nodeObserve,
		}).
		AddNode(nodeValidate, graph.NodeTypeLLM, l.validateNode).
		AddConditionNode(nodeAfterCheck, l.replanCondition, map[string]string{
			nodeReplan: nodeReplan,
			nodeRecord: nodeRecord,
		}).
		AddNode(nodeReplan, graph.NodeTypeCustom, l.replanNode).
		AddNode(nodeRecord, graph.NodeTypeCustom, l.recordNode).
		AddNode(nodeObserve, graph.NodeTypeCustom, l.observeNode).
		AddConditionNode(nodeTerm, l.termCondition, map[string]string{
			nodeReason: nodeReason,
			nodeEnd:    nodeEnd,
		}).
		AddNode(nodeEnd, graph.NodeTypeEnd, func(_ context.Context, s graph.State) (graph.State, error) {
			return s, nil
		}).
		AddEdge(nodeStart, nodeReason).
		AddEdge(nodeReason, nodeRoute).
		AddEdge(nodeReretrieve, nodeReason).
		AddEdge(nodeExecute, nodeKind).
		AddEdge(nodeValidate, nodeAfterCheck).
		AddEdge(nodeReplan, nodeReason).
		AddEdge(nodeRecord, nodeTerm).
		AddEdge(nodeObserve, nodeTerm).
		SetStart(nodeStart).
		SetEnd(nodeEnd).
		// Every iteration revisits several nodes; the budget gates below are
		// what actually bound the run.
		SetMaxVisits(l.cfg.MaxIterations + 2)

	return b.Build()
}

func stateOf(s graph.State) *runState {
	rs, _ := s[stateKey].(*runState)
	return rs
}

// reasonNode is the iteration boundary: cancellation is honored here and
// the iteration counter advances here.
func (l *Loop) reasonNode(ctx context.Context, s graph.State) (graph.State, error) {
	rs := stateOf(s)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rs.iteration++
	rs.step = l.reasoner.Step(ctx, rs.query, rs.evidence, rs.previousSummary)
	l.logger.Debug("reasoning step",
		"iteration", rs.iteration,
		"action", rs.step.Action,
		"confidence", rs.step.Confidence,
		"fallback", rs.step.Fallback,
	)
	return s, nil
}

// routeCondition is the re-retrieval gate: a low-confidence answer attempt
// widens the evidence instead of answering, as long as an iteration remains.
func (l *Loop) routeCondition(_ context.Context, s graph.State) (string, error) {
	rs := stateOf(s)
	if l.cfg.EnableReretrieval &&
		rs.step.Action == reason.ActionAnswer &&
		rs.step.Confidence < l.cfg.ConfidenceThreshold &&
		rs.iteration < l.cfg.MaxIterations {
		return nodeReretrieve, nil
	}
	return nodeExecute, nil
}

func (l *Loop) reretrieveNode(ctx context.Context, s graph.State) (graph.State, error) {
	rs := stateOf(s)
	expanded, err := l.executor.ExpandEvidence(ctx, rs.query, len(rs.evidence))
	if err != nil {
		l.logger.Warn("evidence expansion failed", "iteration", rs.iteration, "error", err)
	} else {
		rs.evidence = evidence.Merge(rs.evidence, expanded)
	}
	rs.log(StepRecord{
		Iteration:  rs.iteration,
		Thought:    rs.step.Thought,
		Action:     "reretrieval",
		Result:     fmt.Sprintf("expanded evidence to %d documents", len(rs.evidence)),
		Confidence: rs.step.Confidence,
	})
	return s, nil
}

func (l *Loop) executeNode(ctx context.Context, s graph.State) (graph.State, error) {
	rs := stateOf(s)
	rs.outcome = l.executor.Execute(ctx, rs.step.Action, rs.step.ActionInput, rs.query, rs.evidence)
	return s, nil
}

func (l *Loop) kindCondition(_ context.Context, s graph.State) (string, error) {
	rs := stateOf(s)
	if rs.step.Action == reason.ActionAnswer {
		return nodeValidate, nil
	}
	return nodeObserve, nil
}

func (l *Loop) validateNode(ctx context.Context, s graph.State) (graph.State, error) {
	rs := stateOf(s)
	rs.validation = l.reasoner.ValidateAnswer(ctx, rs.query, rs.step.Thought, rs.outcome.Result, rs.evidence)
	return s, nil
}

// replanCondition: an inconsistent answer triggers replanning while
// iterations remain.
func (l *Loop) replanCondition(_ context.Context, s graph.State) (string, error) {
	rs := stateOf(s)
	if !rs.validation.Consistent &&
		l.cfg.EnableReplanning &&
		rs.iteration < l.cfg.MaxIterations {
		return nodeReplan, nil
	}
	return nodeRecord, nil
}

// replanNode seeds the next reasoning call with recent thoughts and the
// validator's objection. The rejected answer never touches bestAnswer.
func (l *Loop) replanNode(_ context.Context, s graph.State) (graph.State, error) {
	rs := stateOf(s)
	validation := rs.validation
	rs.log(StepRecord{
		Iteration:  rs.iteration,
		Thought:    rs.step.Thought,
		Action:     string(rs.step.Action),
		Result:     rs.outcome.Result,
		Confidence: rs.step.Confidence,
		Validation: &validation,
	})
	rs.previousSummary = replanSummary(rs.path, validation.Reason, rs.query)
	l.logger.Info("replanning after inconsistent answer", "iteration", rs.iteration, "reason", validation.Reason)
	return s, nil
}

// recordNode logs the answer attempt, tracks the best answer, and decides
// early success.
func (l *Loop) recordNode(_ context.Context, s graph.State) (graph.State, error) {
	rs := stateOf(s)
	validation := rs.validation
	rs.log(StepRecord{
		Iteration:  rs.iteration,
		Thought:    rs.step.Thought,
		Action:     string(rs.step.Action),
		Result:     rs.outcome.Result,
		Confidence: rs.step.Confidence,
		Validation: &validation,
	})

	if rs.outcome.Status == action.StatusSuccess && validation.Score > rs.bestScore {
		rs.bestAnswer = rs.outcome.Result
		rs.bestScore = validation.Score
		rs.hasBest = true
	}

	if validation.Score >= l.cfg.EarlyStopScore && validation.Consistent {
		rs.done = true
		rs.finalAnswer = rs.outcome.Result
		rs.finalConf = rs.step.Confidence
		rs.finalScore = validation.Score
	}
	return s, nil
}

// observeNode folds a search or tool outcome into the evidence set and
// primes the next iteration's summary.
func (l *Loop) observeNode(_ context.Context, s graph.State) (graph.State, error) {
	rs := stateOf(s)
	if len(rs.outcome.Evidence) > 0 {
		rs.evidence = evidence.Merge(rs.evidence, rs.outcome.Evidence)
	}
	rs.log(StepRecord{
		Iteration:  rs.iteration,
		Thought:    rs.step.Thought,
		Action:     string(rs.step.Action),
		Result:     rs.outcome.Result,
		Confidence: rs.step.Confidence,
	})
	rs.previousSummary = fmt.Sprintf("Thought: %s\nAction: %s\nResult: %s", rs.step.Thought, rs.step.Action, rs.outcome.Result)
	return s, nil
}

func (l *Loop) termCondition(_ context.Context, s graph.State) (string, error) {
	rs := stateOf(s)
	if rs.done || rs.iteration >= l.cfg.MaxIterations {
		return nodeEnd, nil
	}
	return nodeReason, nil
}

// finish copies the run's outcome out of the discarded loop state.
func (l *Loop) finish(rs *runState) *Result {
	res := &Result{
		Sources:       evidence.Sources(rs.evidence),
		ExecutionPath: rs.path,
		Iterations:    len(rs.path),
	}

	if rs.done {
		res.Answer = rs.finalAnswer
		res.Confidence = rs.finalConf
		res.Score = rs.finalScore
		return res
	}

	switch {
	case rs.hasBest:
		res.Answer = rs.bestAnswer
	case len(rs.path) > 0 && strings.TrimSpace(rs.path[len(rs.path)-1].Result) != "":
		res.Answer = rs.path[len(rs.path)-1].Result
	default:
		res.Answer = NoAnswer
	}
	res.Score = rs.bestScore
	if len(rs.path) > 0 {
		res.Confidence = rs.path[len(rs.path)-1].Confidence
	} else {
		res.Confidence = 0.5
	}
	return res
}

func (rs *runState) log(rec StepRecord) {
	rs.path = append(rs.path, rec)
}

// replanSummary assembles the seed for the next reasoning call from the
// last three recorded thoughts, the validator's objection, and the query.
func replanSummary(path []StepRecord, failureReason, query string) string {
	start := len(path) - 3
	if start < 0 {
		start = 0
	}
	var sb strings.Builder
	sb.WriteString("Previous attempts:\n")
	for _, rec := range path[start:] {
		fmt.Fprintf(&sb, "- %s\n", rec.Thought)
	}
	fmt.Fprintf(&sb, "The last answer was judged inconsistent: %s\n", failureReason)
	fmt.Fprintf(&sb, "Original question: %s", query)
	return sb.String()
}
