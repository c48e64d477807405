// Package gemini adapts the official Google Generative AI SDK to the
// llm.Client contract. Tool schemas are not translated; Gemini is used as a
// text-only model here.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/ragweave/ragweave/message"
)

// Config holds Gemini provider configuration
type Config struct {
	APIKey      string
	Model       string
	MaxTokens   int32
	Temperature float32
}

// DefaultConfig returns default Gemini configuration
func DefaultConfig(apiKey string) *Config {
	return &Config{
		APIKey:      apiKey,
		Model:       "gemini-1.5-flash",
		MaxTokens:   2048,
		Temperature: 0.7,
	}
}

// Provider implements llm.Client for Google Gemini.
type Provider struct {
	config *Config
	client *genai.Client
}

// New creates a new Gemini provider using the official SDK.
func New(ctx context.Context, config *Config) (*Provider, error) {
	if config == nil {
		config = DefaultConfig("")
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key not configured")
	}
	if config.Model == "" {
		config.Model = "gemini-1.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(config.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Provider{
		config: config,
		client: client,
	}, nil
}

// Generate implements llm.Client. The tools parameter is ignored.
func (p *Provider) Generate(ctx context.Context, messages []*message.Message, _ []map[string]any) (*message.Message, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("messages cannot be empty")
	}

	model := p.client.GenerativeModel(p.config.Model)
	if p.config.Temperature > 0 {
		model.SetTemperature(p.config.Temperature)
	}
	if p.config.MaxTokens > 0 {
		model.SetMaxOutputTokens(p.config.MaxTokens)
	}

	// System messages become the system instruction; the rest is chat
	// history with the final message sent as the prompt.
	var systemPrompts []string
	var history []*genai.Content
	for _, msg := range messages {
		switch msg.Role {
		case message.RoleSystem:
			systemPrompts = append(systemPrompts, msg.Content)
		case message.RoleUser, message.RoleTool:
			history = append(history, &genai.Content{
				Role:  "user",
				Parts: []genai.Part{genai.Text(msg.Content)},
			})
		case message.RoleAssistant:
			history = append(history, &genai.Content{
				Role:  "model",
				Parts: []genai.Part{genai.Text(msg.Content)},
			})
		}
	}
	if len(systemPrompts) > 0 {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(strings.Join(systemPrompts, "\n"))},
		}
	}
	if len(history) == 0 {
		return nil, fmt.Errorf("no user messages to send")
	}

	last := history[len(history)-1]
	session := model.StartChat()
	session.History = history[:len(history)-1]

	resp, err := session.SendMessage(ctx, last.Parts...)
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("no candidates in response")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return nil, fmt.Errorf("no text parts in candidate")
	}

	return message.NewMessage(message.RoleAssistant, sb.String()), nil
}

// SetTemperature updates the temperature setting
func (p *Provider) SetTemperature(temp float64) {
	p.config.Temperature = float32(temp)
}

// SetMaxTokens updates the max tokens setting
func (p *Provider) SetMaxTokens(max int64) {
	p.config.MaxTokens = int32(max)
}

// SetModel updates the model
func (p *Provider) SetModel(model string) {
	p.config.Model = model
}

// Close releases the underlying API client.
func (p *Provider) Close() error {
	return p.client.Close()
}
