package store

import (
	"context"
	"testing"

	"github.com/ragweave/ragweave/memory"
)

func TestInMemoryStoreSearch(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	entries := []*memory.Memory{
		{ID: "1", Content: "User asked about Go modules"},
		{ID: "2", Content: "User asked about Python venvs"},
	}
	for _, mem := range entries {
		if err := s.AddMemory(ctx, mem); err != nil {
			t.Fatalf("AddMemory failed: %v", err)
		}
	}

	got, err := s.SearchMemory(ctx, "go")
	if err != nil {
		t.Fatalf("SearchMemory failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "1" {
		t.Errorf("SearchMemory = %+v", got)
	}

	all, err := s.SearchMemory(ctx, "")
	if err != nil {
		t.Fatalf("SearchMemory failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected all memories for empty query, got %d", len(all))
	}

	if s.Count() != 2 {
		t.Errorf("Count = %d", s.Count())
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if s.Count() != 0 {
		t.Errorf("Count after clear = %d", s.Count())
	}
}

func TestInMemoryStoreNilMemory(t *testing.T) {
	s := NewInMemoryStore()
	if err := s.AddMemory(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil memory")
	}
}
