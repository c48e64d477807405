package eval

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ragweave/ragweave/engine"
	"github.com/ragweave/ragweave/llm"
	"github.com/ragweave/ragweave/loop"
	"github.com/ragweave/ragweave/message"
)

type stubAsker struct {
	results map[string]*engine.Result
}

func (s *stubAsker) Ask(_ context.Context, query string) (*engine.Result, error) {
	res, ok := s.results[query]
	if !ok {
		return nil, errors.New("model unavailable")
	}
	return res, nil
}

type judgeStub struct {
	reply string
	err   error
}

func (j *judgeStub) Generate(context.Context, []*message.Message, []map[string]any) (*message.Message, error) {
	if j.err != nil {
		return nil, j.err
	}
	return message.NewMessage(message.RoleAssistant, j.reply), nil
}

func (j *judgeStub) SetTemperature(float64) {}
func (j *judgeStub) SetMaxTokens(int64)     {}
func (j *judgeStub) SetModel(string)        {}

var _ llm.Client = (*judgeStub)(nil)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestRetrievalMetricFunctions(t *testing.T) {
	retrieved := []string{"a", "x", "b", "y"}
	relevant := []string{"a", "b"}

	if got := RecallAtK(retrieved, relevant, 5); !almostEqual(got, 1.0) {
		t.Errorf("RecallAtK = %f, want 1.0", got)
	}
	if got := RecallAtK(retrieved, relevant, 1); !almostEqual(got, 0.5) {
		t.Errorf("RecallAtK@1 = %f, want 0.5", got)
	}
	if got := RecallAtK(retrieved, nil, 5); got != 0 {
		t.Errorf("RecallAtK with no labels = %f, want 0", got)
	}

	if got := PrecisionAtK(retrieved, relevant, 4); !almostEqual(got, 0.5) {
		t.Errorf("PrecisionAtK = %f, want 0.5", got)
	}
	if got := PrecisionAtK(nil, relevant, 5); got != 0 {
		t.Errorf("PrecisionAtK with no results = %f, want 0", got)
	}

	if got := MRR(retrieved, []string{"b"}); !almostEqual(got, 1.0/3.0) {
		t.Errorf("MRR = %f, want 1/3", got)
	}
	if got := MRR(retrieved, []string{"z"}); got != 0 {
		t.Errorf("MRR with no hit = %f, want 0", got)
	}
}

func TestLexicalOverlap(t *testing.T) {
	if got := LexicalOverlap("the TTL is seven days", "seven days"); !almostEqual(got, 1.0) {
		t.Errorf("full coverage = %f, want 1.0", got)
	}
	if got := LexicalOverlap("unrelated text", "seven days"); got != 0 {
		t.Errorf("no coverage = %f, want 0", got)
	}
	if got := LexicalOverlap("anything", ""); got != 0 {
		t.Errorf("empty expected = %f, want 0", got)
	}
	// Punctuation around words does not break matching.
	if got := LexicalOverlap("Seven days.", "seven days"); !almostEqual(got, 1.0) {
		t.Errorf("punctuated = %f, want 1.0", got)
	}
}

func TestExtractScore(t *testing.T) {
	tests := []struct {
		reply string
		want  float64
		ok    bool
	}{
		{"0.85", 0.85, true},
		{"The score is .9 overall", 0.9, true},
		{"1.0", 1.0, true},
		{"0", 0, true},
		{"no number here", 0, false},
	}
	for _, tt := range tests {
		got, ok := extractScore(tt.reply)
		if ok != tt.ok || !almostEqual(got, tt.want) {
			t.Errorf("extractScore(%q) = (%f, %v), want (%f, %v)", tt.reply, got, ok, tt.want, tt.ok)
		}
	}
}

func TestScorerUsesJudge(t *testing.T) {
	scorer := NewScorer(&judgeStub{reply: "0.9"})
	ctx := context.Background()

	if got := scorer.AnswerQuality(ctx, "unrelated", "seven days"); !almostEqual(got, 0.9) {
		t.Errorf("AnswerQuality = %f, want judge score 0.9", got)
	}
	if got := scorer.Faithfulness(ctx, "answer", []string{"context"}); !almostEqual(got, 0.9) {
		t.Errorf("Faithfulness = %f, want judge score 0.9", got)
	}
	if got := scorer.Consistency(ctx, []string{"thought"}, "answer"); !almostEqual(got, 0.9) {
		t.Errorf("Consistency = %f, want judge score 0.9", got)
	}
}

func TestScorerFallsBackOnJudgeFailure(t *testing.T) {
	scorer := NewScorer(&judgeStub{err: errors.New("down")})
	ctx := context.Background()

	if got := scorer.AnswerQuality(ctx, "seven days", "seven days"); !almostEqual(got, 1.0) {
		t.Errorf("AnswerQuality fallback = %f, want lexical 1.0", got)
	}
	if got := scorer.Faithfulness(ctx, "answer", []string{"context"}); !almostEqual(got, 0.7) {
		t.Errorf("Faithfulness fallback = %f, want neutral 0.7", got)
	}
	if got := scorer.Consistency(ctx, []string{"seven days"}, "seven days"); !almostEqual(got, 1.0) {
		t.Errorf("Consistency fallback = %f, want lexical 1.0", got)
	}
}

func TestRunAggregates(t *testing.T) {
	asker := &stubAsker{results: map[string]*engine.Result{
		"q1": {
			Answer:     "seven days",
			Sources:    []string{"a", "x", "b"},
			Iterations: 2,
			ExecutionPath: []loop.StepRecord{
				{Iteration: 1, Thought: "retention is seven days", Action: "search", Result: "handbook says seven days"},
				{Iteration: 2, Thought: "answer with seven days", Action: "answer"},
			},
		},
		"q2": {Answer: "hello", Sources: []string{"c"}},
	}}

	cases := []Case{
		{Question: "q1", ExpectedAnswer: "seven days", RelevantSources: []string{"a", "b"}},
		{Question: "q2"},
		{Question: "missing"},
	}

	report, err := New(asker, nil).Run(context.Background(), cases)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !almostEqual(report.Retrieval.RecallAt5, 1.0) {
		t.Errorf("RecallAt5 = %f, want 1.0", report.Retrieval.RecallAt5)
	}
	if !almostEqual(report.Retrieval.PrecisionAt5, 0.4) {
		t.Errorf("PrecisionAt5 = %f, want 0.4", report.Retrieval.PrecisionAt5)
	}
	if !almostEqual(report.Retrieval.MRR, 1.0) {
		t.Errorf("MRR = %f, want 1.0", report.Retrieval.MRR)
	}

	if !almostEqual(report.Generation.AnswerQuality, 1.0) {
		t.Errorf("AnswerQuality = %f, want 1.0", report.Generation.AnswerQuality)
	}
	if !almostEqual(report.Generation.Consistency, 1.0) {
		t.Errorf("Consistency = %f, want 1.0", report.Generation.Consistency)
	}
	// Without a judge model faithfulness stays neutral.
	if !almostEqual(report.Generation.Faithfulness, 0.7) {
		t.Errorf("Faithfulness = %f, want 0.7", report.Generation.Faithfulness)
	}

	if report.System.TotalCases != 3 || report.System.FailedCases != 1 {
		t.Errorf("System = %+v, want 3 total / 1 failed", report.System)
	}
	if !almostEqual(report.System.AvgIterations, 1.0) {
		t.Errorf("AvgIterations = %f, want 1.0", report.System.AvgIterations)
	}
}

func TestRunRejectsEmptyTestSet(t *testing.T) {
	if _, err := New(&stubAsker{}, nil).Run(context.Background(), nil); err == nil {
		t.Error("expected error for empty test set")
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(&stubAsker{}, nil).Run(ctx, []Case{{Question: "q"}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestLoadCases(t *testing.T) {
	dir := t.TempDir()

	bare := filepath.Join(dir, "bare.json")
	if err := os.WriteFile(bare, []byte(`[{"question":"q1","expected_answer":"a1"}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	cases, err := LoadCases(bare)
	if err != nil {
		t.Fatalf("LoadCases failed: %v", err)
	}
	if len(cases) != 1 || cases[0].Question != "q1" || cases[0].ExpectedAnswer != "a1" {
		t.Errorf("cases = %+v", cases)
	}

	wrapped := filepath.Join(dir, "wrapped.json")
	content := `{"test_cases":[{"question":"q2","relevant_sources":["s1"]}]}`
	if err := os.WriteFile(wrapped, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cases, err = LoadCases(wrapped)
	if err != nil {
		t.Fatalf("LoadCases failed: %v", err)
	}
	if len(cases) != 1 || cases[0].Question != "q2" || len(cases[0].RelevantSources) != 1 {
		t.Errorf("cases = %+v", cases)
	}

	if _, err := LoadCases(filepath.Join(dir, "absent.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestCompare(t *testing.T) {
	baseline := &Report{
		Retrieval:  RetrievalMetrics{RecallAt5: 0.5, MRR: 0.4},
		Generation: GenerationMetrics{AnswerQuality: 0.6},
		System:     SystemMetrics{AvgLatency: 2 * time.Second},
	}
	current := &Report{
		Retrieval:  RetrievalMetrics{RecallAt5: 0.7, MRR: 0.5},
		Generation: GenerationMetrics{AnswerQuality: 0.8},
		System:     SystemMetrics{AvgLatency: time.Second},
	}

	cmp := Compare(baseline, current)
	if !almostEqual(cmp.RetrievalDelta.RecallAt5, 0.2) {
		t.Errorf("RecallAt5 delta = %f, want 0.2", cmp.RetrievalDelta.RecallAt5)
	}
	if !almostEqual(cmp.GenerationDelta.AnswerQuality, 0.2) {
		t.Errorf("AnswerQuality delta = %f, want 0.2", cmp.GenerationDelta.AnswerQuality)
	}
	if !almostEqual(cmp.LatencyReduction, 0.5) {
		t.Errorf("LatencyReduction = %f, want 0.5", cmp.LatencyReduction)
	}
}
