// Package mcp exposes tools served by an MCP server through the local tool
// registry, so the agent loop can call remote capabilities like any other
// tool.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	mcpclient "github.com/ragweave/ragweave/mcp"
	"github.com/ragweave/ragweave/tool"
)

// remoteTool adapts one MCP server tool to the local tool interface.
type remoteTool struct {
	client      *mcpclient.Client
	name        string
	description string
	argKey      string // sole required string property, when the schema has one
}

func (t *remoteTool) Name() string        { return t.name }
func (t *remoteTool) Description() string { return t.description }

func (t *remoteTool) Execute(ctx context.Context, params, query string) (string, error) {
	args := buildArgs(params, t.argKey, query)
	return t.client.CallTool(ctx, t.name, args)
}

// RegisterTools fetches the remote tool list and registers each tool with the
// local registry.
func RegisterTools(ctx context.Context, client *mcpclient.Client, registry *tool.Registry) error {
	if client == nil {
		return fmt.Errorf("mcp: client is nil")
	}
	if registry == nil {
		return fmt.Errorf("mcp: registry is nil")
	}

	defs, err := client.ListAllTools(ctx)
	if err != nil {
		return err
	}

	for _, def := range defs {
		if def == nil || def.Name == "" {
			continue
		}

		description := def.Description
		if description == "" && def.Annotations != nil {
			description = def.Annotations.Title
		}

		rt := &remoteTool{
			client:      client,
			name:        def.Name,
			description: description,
			argKey:      singleStringArg(def.InputSchema),
		}
		if err := registry.Register(rt); err != nil {
			return fmt.Errorf("register tool %s: %w", def.Name, err)
		}
	}

	return nil
}

// buildArgs turns the agent's raw parameter text into MCP call arguments.
// JSON objects pass through as-is; bare text is bound to the schema's single
// required string property when one exists, falling back to "input". Empty
// parameter text falls back to the user query.
func buildArgs(params, argKey, query string) map[string]any {
	trimmed := strings.TrimSpace(params)

	if strings.HasPrefix(trimmed, "{") {
		var args map[string]any
		if err := json.Unmarshal([]byte(trimmed), &args); err == nil {
			return args
		}
	}

	if trimmed == "" {
		trimmed = strings.TrimSpace(query)
	}
	if trimmed == "" {
		return map[string]any{}
	}

	key := argKey
	if key == "" {
		key = "input"
	}
	return map[string]any{key: trimmed}
}

// singleStringArg inspects a JSON schema and returns the property name when
// the schema is an object with exactly one required string property.
func singleStringArg(schema any) string {
	schemaMap := toMap(schema)
	if schemaMap == nil {
		return ""
	}

	typeVal, _ := schemaMap["type"].(string)
	if !strings.EqualFold(typeVal, "object") {
		return ""
	}

	required, ok := schemaMap["required"].([]any)
	if !ok || len(required) != 1 {
		return ""
	}
	name, ok := required[0].(string)
	if !ok {
		return ""
	}

	props, ok := schemaMap["properties"].(map[string]any)
	if !ok {
		return ""
	}
	prop, ok := props[name].(map[string]any)
	if !ok {
		return ""
	}
	if propType, _ := prop["type"].(string); propType != "string" {
		return ""
	}
	return name
}

func toMap(schema any) map[string]any {
	if schema == nil {
		return nil
	}
	if m, ok := schema.(map[string]any); ok {
		return m
	}
	data, err := json.Marshal(schema)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}
