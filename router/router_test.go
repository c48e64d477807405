package router

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/ragweave/ragweave/message"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scriptedLLM replies per prompt fragment so rewrite and classify calls can
// be answered differently in one Route invocation.
type scriptedLLM struct {
	replies map[string]string // prompt substring -> reply
	err     error
	calls   []string
}

func (s *scriptedLLM) Generate(_ context.Context, msgs []*message.Message, _ []map[string]any) (*message.Message, error) {
	prompt := msgs[len(msgs)-1].Content
	s.calls = append(s.calls, prompt)
	if s.err != nil {
		return nil, s.err
	}
	for frag, reply := range s.replies {
		if strings.Contains(prompt, frag) {
			return message.NewMessage(message.RoleAssistant, reply), nil
		}
	}
	return message.NewMessage(message.RoleAssistant, ""), nil
}

func (s *scriptedLLM) SetTemperature(float64) {}
func (s *scriptedLLM) SetMaxTokens(int64)     {}
func (s *scriptedLLM) SetModel(string)        {}

func TestModeFor(t *testing.T) {
	cases := []struct {
		query string
		want  RewriteMode
	}{
		{"", RewriteNone},
		{"go generics", RewriteExpand},
		{"what is the capital of france", RewriteNone},
		{strings.Repeat("word ", 25), RewriteSimplify},
	}
	for _, tc := range cases {
		if got := ModeFor(tc.query); got != tc.want {
			t.Errorf("ModeFor(%q) = %s, want %s", tc.query, got, tc.want)
		}
	}
}

func TestRouteFactual(t *testing.T) {
	client := &scriptedLLM{replies: map[string]string{
		"Classify": `{"intent": "factual", "confidence": 0.9, "reasoning": "direct question"}`,
	}}
	r := New(client, Config{DisableRewrite: true})
	d := r.Route(context.Background(), "what is the capital of france")

	if d.Intent != IntentFactual {
		t.Errorf("intent = %s", d.Intent)
	}
	if d.Confidence != 0.9 {
		t.Errorf("confidence = %v", d.Confidence)
	}
	s := d.Strategy
	if s.UseAgentLoop || !s.UseMultiLevelIndex || !s.UseRerank || s.EnableTools || s.UseMemory {
		t.Errorf("factual strategy wrong: %+v", s)
	}
	if s.TargetEvidenceCount != DefaultBaseEvidenceCount {
		t.Errorf("evidence count = %d", s.TargetEvidenceCount)
	}
}

func TestRouteComplexReasoning(t *testing.T) {
	client := &scriptedLLM{replies: map[string]string{
		"Classify": `{"intent": "complex_reasoning", "confidence": 0.8}`,
	}}
	r := New(client, Config{BaseEvidenceCount: 4, DisableRewrite: true})
	d := r.Route(context.Background(), "compare the tradeoffs of two designs")

	s := d.Strategy
	if !s.UseAgentLoop || !s.UseMultiLevelIndex || !s.UseRerank {
		t.Errorf("complex strategy wrong: %+v", s)
	}
	if s.TargetEvidenceCount != 8 {
		t.Errorf("expected doubled evidence count, got %d", s.TargetEvidenceCount)
	}
}

func TestRouteToolRequired(t *testing.T) {
	client := &scriptedLLM{replies: map[string]string{
		"Classify": `{"intent": "tool_required", "confidence": 0.85}`,
	}}
	r := New(client, Config{DisableRewrite: true})
	s := r.Route(context.Background(), "calculate 2^32").Strategy

	if !s.UseAgentLoop || s.UseMultiLevelIndex || s.UseRerank || !s.EnableTools {
		t.Errorf("tool strategy wrong: %+v", s)
	}
	if s.TargetEvidenceCount != 3 {
		t.Errorf("evidence count = %d", s.TargetEvidenceCount)
	}
}

func TestRouteConversational(t *testing.T) {
	client := &scriptedLLM{replies: map[string]string{
		"Classify": `{"intent": "conversational", "confidence": 0.95}`,
	}}
	r := New(client, Config{DisableRewrite: true})
	s := r.Route(context.Background(), "thanks, that was helpful").Strategy

	if s.UseAgentLoop || !s.UseMemory || s.EnableTools {
		t.Errorf("conversational strategy wrong: %+v", s)
	}
}

func TestClassifyKeywordFallback(t *testing.T) {
	client := &scriptedLLM{replies: map[string]string{
		"Classify": "this is not json",
	}}
	c := NewClassifier(client, testLogger())
	cls := c.Classify(context.Background(), "why does the sky appear blue")

	if cls.Intent != IntentComplexReasoning {
		t.Errorf("intent = %s", cls.Intent)
	}
	if cls.Confidence != 0.7 {
		t.Errorf("confidence = %v", cls.Confidence)
	}
	if !cls.Fallback {
		t.Error("expected fallback flag")
	}
}

func TestClassifyFactualDefault(t *testing.T) {
	client := &scriptedLLM{err: errors.New("model down")}
	c := NewClassifier(client, testLogger())
	cls := c.Classify(context.Background(), "zzzz qqqq")

	if cls.Intent != IntentFactual || cls.Confidence != 0.5 || !cls.Fallback {
		t.Errorf("expected factual/0.5 default, got %+v", cls)
	}
}

func TestRewriteFallsBackOnError(t *testing.T) {
	client := &scriptedLLM{err: errors.New("model down")}
	rw := NewRewriter(client, testLogger())
	got, mode := rw.Rewrite(context.Background(), "go generics")

	if got != "go generics" || mode != RewriteNone {
		t.Errorf("expected original query back, got %q mode %s", got, mode)
	}
}

func TestRewriteExpandsShortQuery(t *testing.T) {
	client := &scriptedLLM{replies: map[string]string{
		"terse": "how do generics work in the go programming language",
	}}
	rw := NewRewriter(client, testLogger())
	got, mode := rw.Rewrite(context.Background(), "go generics")

	if mode != RewriteExpand {
		t.Errorf("mode = %s", mode)
	}
	if !strings.Contains(got, "generics work") {
		t.Errorf("rewritten = %q", got)
	}
}

func TestAlternatives(t *testing.T) {
	client := &scriptedLLM{replies: map[string]string{
		"alternative": "first phrasing\n\nsecond phrasing\nthird phrasing",
	}}
	rw := NewRewriter(client, testLogger())
	got := rw.Alternatives(context.Background(), "q", 2)

	if len(got) != 2 || got[0] != "first phrasing" || got[1] != "second phrasing" {
		t.Errorf("Alternatives = %v", got)
	}
}
