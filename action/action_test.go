package action

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ragweave/ragweave/evidence"
	"github.com/ragweave/ragweave/generate"
	"github.com/ragweave/ragweave/message"
	"github.com/ragweave/ragweave/reason"
	"github.com/ragweave/ragweave/tool"
)

type stubProvider struct {
	items     []evidence.Item
	err       error
	lastQuery string
	lastK     int
}

func (p *stubProvider) Search(_ context.Context, query string, topK int) ([]evidence.Item, error) {
	p.lastQuery = query
	p.lastK = topK
	return p.items, p.err
}

type stubLLM struct {
	response string
	err      error
}

func (s *stubLLM) Generate(context.Context, []*message.Message, []map[string]any) (*message.Message, error) {
	if s.err != nil {
		return nil, s.err
	}
	return message.NewMessage(message.RoleAssistant, s.response), nil
}

func (s *stubLLM) SetTemperature(float64) {}
func (s *stubLLM) SetMaxTokens(int64)     {}
func (s *stubLLM) SetModel(string)        {}

func newExecutor(provider *stubProvider, gen *generate.Generator, registry *tool.Registry) *Executor {
	if provider == nil {
		provider = &stubProvider{}
	}
	if gen == nil {
		gen = generate.New(&stubLLM{response: "generated answer"})
	}
	return NewExecutor(provider, gen, registry)
}

func TestExecuteSearchUsesActionInput(t *testing.T) {
	provider := &stubProvider{items: []evidence.Item{{Content: "hit", Source: "doc"}}}
	e := newExecutor(provider, nil, nil)

	out := e.Execute(context.Background(), reason.ActionSearch, "narrower query", "user query", nil)
	if out.Status != StatusSuccess {
		t.Fatalf("status = %s (%s)", out.Status, out.Result)
	}
	if provider.lastQuery != "narrower query" {
		t.Errorf("search query = %q", provider.lastQuery)
	}
	if provider.lastK != DefaultSearchTopK {
		t.Errorf("topK = %d", provider.lastK)
	}
	if len(out.Evidence) != 1 || out.Evidence[0].Source != "doc" {
		t.Errorf("evidence = %+v", out.Evidence)
	}
	if !strings.Contains(out.Result, "1 documents") {
		t.Errorf("result = %q", out.Result)
	}
}

func TestExecuteSearchFallsBackToQuery(t *testing.T) {
	provider := &stubProvider{}
	e := newExecutor(provider, nil, nil)
	e.Execute(context.Background(), reason.ActionSearch, "  ", "user query", nil)
	if provider.lastQuery != "user query" {
		t.Errorf("search query = %q", provider.lastQuery)
	}
}

func TestExecuteSearchErrorOutcome(t *testing.T) {
	provider := &stubProvider{err: errors.New("index offline")}
	e := newExecutor(provider, nil, nil)
	out := e.Execute(context.Background(), reason.ActionSearch, "", "q", nil)
	if out.Status != StatusError {
		t.Errorf("status = %s", out.Status)
	}
	if !strings.Contains(out.Result, "index offline") {
		t.Errorf("result = %q", out.Result)
	}
}

func TestExecuteAnswerPrecomputed(t *testing.T) {
	e := newExecutor(nil, nil, nil)
	out := e.Execute(context.Background(), reason.ActionAnswer, "Paris.", "q", nil)
	if out.Status != StatusSuccess || out.Result != "Paris." {
		t.Errorf("outcome = %+v", out)
	}
}

func TestExecuteAnswerGenerates(t *testing.T) {
	gen := generate.New(&stubLLM{response: "generated answer"})
	e := newExecutor(nil, gen, nil)
	items := []evidence.Item{{Content: "evidence"}}
	out := e.Execute(context.Background(), reason.ActionAnswer, "", "q", items)
	if out.Status != StatusSuccess || out.Result != "generated answer" {
		t.Errorf("outcome = %+v", out)
	}
}

func TestExecuteAnswerGenerationError(t *testing.T) {
	gen := generate.New(&stubLLM{err: errors.New("model down")})
	e := newExecutor(nil, gen, nil)
	items := []evidence.Item{{Content: "evidence"}}
	out := e.Execute(context.Background(), reason.ActionAnswer, "", "q", items)
	if out.Status != StatusError {
		t.Errorf("status = %s", out.Status)
	}
}

func TestExecuteToolCall(t *testing.T) {
	registry := tool.NewRegistry()
	var gotParams, gotQuery string
	err := registry.Register(&tool.Func{
		ToolName:        "calculator",
		ToolDescription: "evaluates arithmetic",
		Fn: func(_ context.Context, params, query string) (string, error) {
			gotParams, gotQuery = params, query
			return "42", nil
		},
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	e := newExecutor(nil, nil, registry)
	out := e.Execute(context.Background(), reason.ActionToolCall, "calculator: 6*7", "what is 6*7", nil)

	if out.Status != StatusSuccess || out.Result != "42" || out.Tool != "calculator" {
		t.Errorf("outcome = %+v", out)
	}
	if gotParams != "6*7" || gotQuery != "what is 6*7" {
		t.Errorf("tool received params=%q query=%q", gotParams, gotQuery)
	}
	if len(out.Evidence) != 1 || out.Evidence[0].Source != "tool:calculator" {
		t.Errorf("tool output not wrapped as evidence: %+v", out.Evidence)
	}
}

func TestExecuteToolCallUnknownTool(t *testing.T) {
	e := newExecutor(nil, nil, tool.NewRegistry())
	out := e.Execute(context.Background(), reason.ActionToolCall, "missing:params", "q", nil)
	if out.Status != StatusError {
		t.Errorf("status = %s", out.Status)
	}
}

func TestExecuteToolCallWithoutRegistry(t *testing.T) {
	e := newExecutor(nil, nil, nil)
	out := e.Execute(context.Background(), reason.ActionToolCall, "calculator:1+1", "q", nil)
	if out.Status != StatusError {
		t.Errorf("status = %s", out.Status)
	}
}

func TestExecuteUnknownAction(t *testing.T) {
	e := newExecutor(nil, nil, nil)
	out := e.Execute(context.Background(), reason.Action("noop"), "", "q", nil)
	if out.Status != StatusError || !strings.Contains(out.Result, "unknown action") {
		t.Errorf("outcome = %+v", out)
	}
}

func TestExpandEvidence(t *testing.T) {
	provider := &stubProvider{items: []evidence.Item{{Content: "x"}}}
	e := newExecutor(provider, nil, nil)

	if _, err := e.ExpandEvidence(context.Background(), "q", 5); err != nil {
		t.Fatalf("ExpandEvidence failed: %v", err)
	}
	if provider.lastK != 5*DefaultExpansionFactor {
		t.Errorf("expanded topK = %d", provider.lastK)
	}

	// width <= 0 falls back to the search topK
	if _, err := e.ExpandEvidence(context.Background(), "q", 0); err != nil {
		t.Fatalf("ExpandEvidence failed: %v", err)
	}
	if provider.lastK != DefaultSearchTopK*DefaultExpansionFactor {
		t.Errorf("fallback expanded topK = %d", provider.lastK)
	}
}

func TestSplitToolInput(t *testing.T) {
	cases := []struct {
		in         string
		name, args string
	}{
		{"calc:1+1", "calc", "1+1"},
		{"calc: spaced ", "calc", "spaced"},
		{"noparams", "noparams", ""},
		{"db:select * from t where k=v:extra", "db", "select * from t where k=v:extra"},
		{"", "", ""},
	}
	for _, tc := range cases {
		name, args := splitToolInput(tc.in)
		if name != tc.name || args != tc.args {
			t.Errorf("splitToolInput(%q) = (%q, %q), want (%q, %q)", tc.in, name, args, tc.name, tc.args)
		}
	}
}
