package evidence

import (
	"strings"
	"testing"
)

func intPtr(i int) *int { return &i }

func TestKey(t *testing.T) {
	cases := []struct {
		name string
		item Item
		want string
	}{
		{"both set", Item{Source: "doc1", ChunkIndex: intPtr(3)}, "doc1_3"},
		{"no chunk", Item{Source: "doc1"}, "doc1_"},
		{"no source", Item{ChunkIndex: intPtr(0)}, "_0"},
		{"neither", Item{}, "_"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.item.Key(); got != tc.want {
				t.Errorf("Key() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestDedupeKeepsFirstOccurrence(t *testing.T) {
	items := []Item{
		{Content: "first", Source: "a", ChunkIndex: intPtr(1)},
		{Content: "other", Source: "b", ChunkIndex: intPtr(1)},
		{Content: "dup", Source: "a", ChunkIndex: intPtr(1)},
	}
	got := Dedupe(items)
	if len(got) != 2 {
		t.Fatalf("expected 2 items, got %d", len(got))
	}
	if got[0].Content != "first" || got[1].Content != "other" {
		t.Errorf("order or identity broken: %+v", got)
	}
}

func TestMergeBaseWins(t *testing.T) {
	base := []Item{{Content: "kept", Source: "a", ChunkIndex: intPtr(1)}}
	extra := []Item{
		{Content: "replaced", Source: "a", ChunkIndex: intPtr(1)},
		{Content: "new", Source: "c", ChunkIndex: intPtr(2)},
	}
	got := Merge(base, extra)
	if len(got) != 2 {
		t.Fatalf("expected 2 items, got %d", len(got))
	}
	if got[0].Content != "kept" {
		t.Errorf("base item should win over later duplicate, got %q", got[0].Content)
	}
	if got[1].Content != "new" {
		t.Errorf("expected new item appended, got %q", got[1].Content)
	}
}

func TestSources(t *testing.T) {
	items := []Item{
		{Source: "a"},
		{Source: ""},
		{Source: "b"},
		{Source: "a"},
	}
	got := Sources(items)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Sources() = %v", got)
	}
}

func TestFormatNumbered(t *testing.T) {
	items := []Item{
		{Content: strings.Repeat("x", 20)},
		{Content: "short"},
	}
	out := FormatNumbered(items, 10)
	if !strings.Contains(out, "[1] "+strings.Repeat("x", 10)+"\n") {
		t.Errorf("expected truncated first item, got %q", out)
	}
	if !strings.Contains(out, "[2] short") {
		t.Errorf("expected second item, got %q", out)
	}
	if FormatNumbered(nil, 10) != "" {
		t.Error("expected empty string for no items")
	}
}

func TestTruncate(t *testing.T) {
	items := []Item{{Content: "a"}, {Content: "b"}, {Content: "c"}}
	if got := Truncate(items, 2); len(got) != 2 || got[0].Content != "a" {
		t.Errorf("Truncate = %+v", got)
	}
	if got := Truncate(items, 0); len(got) != 3 {
		t.Errorf("n<=0 should be a no-op, got %d items", len(got))
	}
	if got := Truncate(items, 5); len(got) != 3 {
		t.Errorf("n beyond length should be a no-op, got %d items", len(got))
	}
}
