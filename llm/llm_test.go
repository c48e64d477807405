package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/ragweave/ragweave/message"
)

type stubClient struct {
	response string
	err      error
	calls    int
	lastMsgs []*message.Message
}

func (s *stubClient) Generate(_ context.Context, msgs []*message.Message, _ []map[string]any) (*message.Message, error) {
	s.calls++
	s.lastMsgs = msgs
	if s.err != nil {
		return nil, s.err
	}
	return message.NewMessage(message.RoleAssistant, s.response), nil
}

func (s *stubClient) SetTemperature(float64) {}
func (s *stubClient) SetMaxTokens(int64)     {}
func (s *stubClient) SetModel(string)        {}

func TestComplete(t *testing.T) {
	client := &stubClient{response: "hello"}
	got, err := Complete(context.Background(), client, "hi")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if got != "hello" {
		t.Errorf("expected 'hello', got %q", got)
	}
	if len(client.lastMsgs) != 1 || client.lastMsgs[0].Role != message.RoleUser {
		t.Errorf("expected a single user message, got %+v", client.lastMsgs)
	}
}

func TestCompleteError(t *testing.T) {
	client := &stubClient{err: errors.New("boom")}
	if _, err := Complete(context.Background(), client, "hi"); err == nil {
		t.Fatal("expected error")
	}
}

func TestCompleteWithSystem(t *testing.T) {
	client := &stubClient{response: "ok"}
	if _, err := CompleteWithSystem(context.Background(), client, "be terse", "hi"); err != nil {
		t.Fatalf("CompleteWithSystem failed: %v", err)
	}
	if len(client.lastMsgs) != 2 || client.lastMsgs[0].Role != message.RoleSystem {
		t.Errorf("expected system+user messages, got %+v", client.lastMsgs)
	}
}

func TestSanitizeJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"whitespace", "  {\"a\":1}  ", `{"a":1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeJSON(tc.in); got != tc.want {
				t.Errorf("SanitizeJSON(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Intent     string  `json:"intent"`
		Confidence float64 `json:"confidence"`
	}

	out, err := DecodeJSON[payload]("```json\n{\"intent\":\"factual\",\"confidence\":0.8}\n```")
	if err != nil {
		t.Fatalf("DecodeJSON failed: %v", err)
	}
	if out.Intent != "factual" || out.Confidence != 0.8 {
		t.Errorf("unexpected payload: %+v", out)
	}

	if _, err := DecodeJSON[payload]("not json at all"); err == nil {
		t.Fatal("expected decode error")
	}
	if _, err := DecodeJSON[payload](""); err == nil {
		t.Fatal("expected error for empty payload")
	}
}
