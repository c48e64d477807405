// Package tool defines the external capability interface dispatched by the
// agent's tool_call action, and a thread-safe registry of capabilities.
package tool

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	pkgerrors "github.com/ragweave/ragweave/errors"
)

// Tool is one external capability. params carries the raw parameter text
// from the agent's action input; query is the user query being answered, for
// tools that want the surrounding context.
type Tool interface {
	Name() string
	Description() string
	Execute(ctx context.Context, params, query string) (string, error)
}

// Func adapts a plain function into a Tool.
type Func struct {
	ToolName        string
	ToolDescription string
	Fn              func(ctx context.Context, params, query string) (string, error)
}

func (f *Func) Name() string        { return f.ToolName }
func (f *Func) Description() string { return f.ToolDescription }

func (f *Func) Execute(ctx context.Context, params, query string) (string, error) {
	if f.Fn == nil {
		return "", fmt.Errorf("tool %s: no function bound", f.ToolName)
	}
	return f.Fn(ctx, params, query)
}

// Registry is a concurrency-safe name-to-tool map.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Registering a duplicate name fails.
func (r *Registry) Register(t Tool) error {
	if t == nil || t.Name() == "" {
		return fmt.Errorf("tool: %w: missing name", pkgerrors.ErrInvalidInput)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name()]; exists {
		return fmt.Errorf("tool %s: %w", t.Name(), pkgerrors.ErrAlreadyExists)
	}
	r.tools[t.Name()] = t
	return nil
}

// Unregister removes a tool by name.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; !exists {
		return fmt.Errorf("tool %s: %w", name, pkgerrors.ErrNotFound)
	}
	delete(r.tools, name)
	return nil
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, exists := r.tools[name]
	if !exists {
		return nil, fmt.Errorf("tool %s: %w", name, pkgerrors.ErrNotFound)
	}
	return t, nil
}

// List returns registered tool names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call looks a tool up and executes it.
func (r *Registry) Call(ctx context.Context, name, params, query string) (string, error) {
	t, err := r.Get(name)
	if err != nil {
		return "", err
	}
	return t.Execute(ctx, params, query)
}

// Descriptions renders a "name: description" line per tool, sorted by name,
// for inclusion in prompts.
func (r *Registry) Descriptions() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	var sb strings.Builder
	for _, name := range names {
		fmt.Fprintf(&sb, "%s: %s\n", name, r.tools[name].Description())
	}
	return sb.String()
}
