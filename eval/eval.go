// Package eval scores the answering pipeline against a labeled test set:
// retrieval metrics (recall, precision, MRR) over the returned sources and
// generation metrics (answer quality, faithfulness, consistency) over the
// answers, optionally graded by a judge model.
package eval

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ragweave/ragweave/engine"
	"github.com/ragweave/ragweave/llm"
	"github.com/ragweave/ragweave/pkg/logging"
)

// Asker answers a single query. *engine.Engine satisfies it.
type Asker interface {
	Ask(ctx context.Context, query string) (*engine.Result, error)
}

// Case is one labeled test example. RelevantSources lists the source
// identifiers a correct retrieval should surface; either label may be empty,
// in which case the corresponding metrics are skipped for the case.
type Case struct {
	Question        string   `json:"question"`
	ExpectedAnswer  string   `json:"expected_answer,omitempty"`
	RelevantSources []string `json:"relevant_sources,omitempty"`
}

// RetrievalMetrics aggregate source-level scores over the labeled cases.
type RetrievalMetrics struct {
	RecallAt5    float64
	RecallAt10   float64
	PrecisionAt5 float64
	MRR          float64
}

// GenerationMetrics aggregate answer-level scores over the labeled cases.
type GenerationMetrics struct {
	AnswerQuality float64
	Faithfulness  float64
	Consistency   float64
}

// SystemMetrics describe the run itself.
type SystemMetrics struct {
	AvgLatency    time.Duration
	AvgIterations float64
	TotalCases    int
	FailedCases   int
}

// Report is the aggregated outcome of one evaluation run.
type Report struct {
	Retrieval  RetrievalMetrics
	Generation GenerationMetrics
	System     SystemMetrics
}

// Evaluator runs a test set through an asker and aggregates the scores.
type Evaluator struct {
	asker  Asker
	scorer *Scorer
	logger *slog.Logger
}

// New creates an evaluator. A nil judge keeps generation metrics lexical.
func New(asker Asker, judge llm.Client) *Evaluator {
	return &Evaluator{
		asker:  asker,
		scorer: NewScorer(judge),
		logger: logging.WithComponent("eval"),
	}
}

// Run answers every case and aggregates the metrics. A case whose Ask call
// fails is counted and skipped; the run itself only fails when the context
// is cancelled or the test set is empty.
func (e *Evaluator) Run(ctx context.Context, cases []Case) (*Report, error) {
	if len(cases) == 0 {
		return nil, fmt.Errorf("eval: empty test set")
	}

	var (
		recall5, recall10, precision5, mrr average
		quality, faithfulness, consistency average
		latencies, iterations              average
		failed                             int
	)

	for i, tc := range cases {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e.logger.Info("evaluating case", "case", i+1, "total", len(cases))

		start := time.Now()
		res, err := e.asker.Ask(ctx, tc.Question)
		if err != nil {
			e.logger.Warn("case failed", "case", i+1, "error", err)
			failed++
			continue
		}
		latencies.add(float64(time.Since(start)))
		iterations.add(float64(res.Iterations))

		if len(tc.RelevantSources) > 0 {
			recall5.add(RecallAtK(res.Sources, tc.RelevantSources, 5))
			recall10.add(RecallAtK(res.Sources, tc.RelevantSources, 10))
			precision5.add(PrecisionAtK(res.Sources, tc.RelevantSources, 5))
			mrr.add(MRR(res.Sources, tc.RelevantSources))
		}

		if tc.ExpectedAnswer != "" {
			quality.add(e.scorer.AnswerQuality(ctx, res.Answer, tc.ExpectedAnswer))
		}

		if len(res.ExecutionPath) > 0 {
			thoughts := make([]string, 0, len(res.ExecutionPath))
			observations := make([]string, 0, len(res.ExecutionPath))
			for _, step := range res.ExecutionPath {
				thoughts = append(thoughts, step.Thought)
				if step.Result != "" {
					observations = append(observations, step.Result)
				}
			}
			consistency.add(e.scorer.Consistency(ctx, thoughts, res.Answer))
			faithfulness.add(e.scorer.Faithfulness(ctx, res.Answer, observations))
		}
	}

	return &Report{
		Retrieval: RetrievalMetrics{
			RecallAt5:    recall5.mean(),
			RecallAt10:   recall10.mean(),
			PrecisionAt5: precision5.mean(),
			MRR:          mrr.mean(),
		},
		Generation: GenerationMetrics{
			AnswerQuality: quality.mean(),
			Faithfulness:  faithfulness.mean(),
			Consistency:   consistency.mean(),
		},
		System: SystemMetrics{
			AvgLatency:    time.Duration(latencies.mean()),
			AvgIterations: iterations.mean(),
			TotalCases:    len(cases),
			FailedCases:   failed,
		},
	}, nil
}

// LoadCases reads a test set from a JSON file holding either a bare list of
// cases or an object with a "test_cases" key.
func LoadCases(path string) ([]Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("eval: read test set: %w", err)
	}

	var cases []Case
	if err := json.Unmarshal(data, &cases); err == nil {
		return cases, nil
	}

	var wrapped struct {
		TestCases []Case `json:"test_cases"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("eval: parse test set: %w", err)
	}
	return wrapped.TestCases, nil
}

// Comparison holds per-metric deltas between two runs, current minus
// baseline, so positive values are improvements (except latency, reported
// as a reduction ratio).
type Comparison struct {
	RetrievalDelta   RetrievalMetrics
	GenerationDelta  GenerationMetrics
	LatencyReduction float64
}

// Compare diffs a current report against a baseline.
func Compare(baseline, current *Report) Comparison {
	cmp := Comparison{
		RetrievalDelta: RetrievalMetrics{
			RecallAt5:    current.Retrieval.RecallAt5 - baseline.Retrieval.RecallAt5,
			RecallAt10:   current.Retrieval.RecallAt10 - baseline.Retrieval.RecallAt10,
			PrecisionAt5: current.Retrieval.PrecisionAt5 - baseline.Retrieval.PrecisionAt5,
			MRR:          current.Retrieval.MRR - baseline.Retrieval.MRR,
		},
		GenerationDelta: GenerationMetrics{
			AnswerQuality: current.Generation.AnswerQuality - baseline.Generation.AnswerQuality,
			Faithfulness:  current.Generation.Faithfulness - baseline.Generation.Faithfulness,
			Consistency:   current.Generation.Consistency - baseline.Generation.Consistency,
		},
	}
	if baseline.System.AvgLatency > 0 {
		cmp.LatencyReduction = float64(baseline.System.AvgLatency-current.System.AvgLatency) /
			float64(baseline.System.AvgLatency)
	}
	return cmp
}

// average accumulates scores; cases that skip a metric do not drag its mean.
type average struct {
	sum float64
	n   int
}

func (a *average) add(v float64) {
	a.sum += v
	a.n++
}

func (a *average) mean() float64 {
	if a.n == 0 {
		return 0
	}
	return a.sum / float64(a.n)
}
