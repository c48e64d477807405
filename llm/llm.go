// Package llm defines the language model client contract shared by every
// component that consults a model: the query router, the reranker, the
// reasoning engine, the answer generator and the memory summarizer.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ragweave/ragweave/message"
)

// Client is the minimal surface a chat model must expose. Implementations
// live under contrib/provider.
type Client interface {
	// Generate produces the next assistant message for the conversation.
	// The tools parameter carries provider-native tool schemas; pass nil
	// when tool calling is not wanted.
	Generate(ctx context.Context, messages []*message.Message, tools []map[string]any) (*message.Message, error)

	SetTemperature(temperature float64)
	SetMaxTokens(maxTokens int64)
	SetModel(model string)
}

// Complete sends a single user prompt and returns the assistant text.
func Complete(ctx context.Context, client Client, prompt string) (string, error) {
	if client == nil {
		return "", fmt.Errorf("llm: client is nil")
	}
	resp, err := client.Generate(ctx, []*message.Message{message.NewMessage(message.RoleUser, prompt)}, nil)
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", fmt.Errorf("llm: empty response")
	}
	return resp.Content, nil
}

// CompleteWithSystem sends a system instruction plus a user prompt.
func CompleteWithSystem(ctx context.Context, client Client, system, prompt string) (string, error) {
	if client == nil {
		return "", fmt.Errorf("llm: client is nil")
	}
	msgs := []*message.Message{
		message.NewMessage(message.RoleSystem, system),
		message.NewMessage(message.RoleUser, prompt),
	}
	resp, err := client.Generate(ctx, msgs, nil)
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", fmt.Errorf("llm: empty response")
	}
	return resp.Content, nil
}

// SanitizeJSON strips Markdown code fences that models habitually wrap
// around JSON payloads.
func SanitizeJSON(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
		trimmed = strings.TrimSpace(trimmed)
	}
	return trimmed
}
