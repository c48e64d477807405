// Package memory persists past query/answer interactions and recalls them
// as extra context for conversational queries.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Memory is one stored interaction entry.
type Memory struct {
	ID        string                 `json:"id"`
	Content   string                 `json:"content"`
	Metadata  map[string]interface{} `json:"metadata"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// idGenerator provides efficient ID generation with minimal syscall overhead
type idGenerator struct {
	counter int64
	mu      sync.Mutex
	lastTs  int64
}

var defaultIDGenerator = &idGenerator{}

// GenerateMemoryID generates a unique ID for a memory entry
func GenerateMemoryID() string {
	return defaultIDGenerator.Generate()
}

// Generate creates a unique memory ID efficiently
func (g *idGenerator) Generate() string {
	now := time.Now().UnixNano()

	g.mu.Lock()
	if now > g.lastTs {
		g.lastTs = now
		g.counter = 0
		g.mu.Unlock()
		return fmt.Sprintf("mem_%d", now)
	}

	// Same nanosecond, increment counter for uniqueness
	g.counter++
	counter := g.counter
	g.mu.Unlock()

	return fmt.Sprintf("mem_%d_%d", now, counter)
}

// MemoryStore defines the interface for storing and retrieving memories.
// SearchMemory returns candidate entries matching the query text; ranking
// is the Recaller's job.
type MemoryStore interface {
	AddMemory(context.Context, *Memory) error
	SearchMemory(context.Context, string) ([]*Memory, error)
}
