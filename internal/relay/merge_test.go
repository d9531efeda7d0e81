package relay

import (
	"testing"

	"github.com/minagishl/nostro/internal/types"
)

func TestDedupMergesRelaysSeen(t *testing.T) {
	events := []types.Event{
		{ID: "aaa", CreatedAt: 100, RelaysSeen: []string{"wss://r1"}},
		{ID: "bbb", CreatedAt: 200, RelaysSeen: []string{"wss://r1"}},
		{ID: "aaa", CreatedAt: 100, RelaysSeen: []string{"wss://r2"}},
	}

	merged := Dedup(events)
	if len(merged) != 2 {
		t.Fatalf("expected 2 events after dedup, got %d", len(merged))
	}

	if merged[0].ID != "aaa" {
		t.Fatalf("expected first occurrence order preserved, got %s first", merged[0].ID)
	}
	if len(merged[0].RelaysSeen) != 2 {
		t.Errorf("expected duplicate's relay accumulated, got %v", merged[0].RelaysSeen)
	}
}

func TestDedupSameRelayTwice(t *testing.T) {
	events := []types.Event{
		{ID: "aaa", RelaysSeen: []string{"wss://r1"}},
		{ID: "aaa", RelaysSeen: []string{"wss://r1"}},
	}

	merged := Dedup(events)
	if len(merged) != 1 || len(merged[0].RelaysSeen) != 1 {
		t.Errorf("expected single relay entry, got %v", merged[0].RelaysSeen)
	}
}

func TestSortByCreatedAtDesc(t *testing.T) {
	events := []types.Event{
		{ID: "old", CreatedAt: 100},
		{ID: "new", CreatedAt: 300},
		{ID: "mid", CreatedAt: 200},
	}

	SortByCreatedAtDesc(events)

	want := []string{"new", "mid", "old"}
	for i, id := range want {
		if events[i].ID != id {
			t.Errorf("position %d: got %s, want %s", i, events[i].ID, id)
		}
	}
}

func TestSortTieBreakByID(t *testing.T) {
	events := []types.Event{
		{ID: "aaa", CreatedAt: 100},
		{ID: "zzz", CreatedAt: 100},
		{ID: "mmm", CreatedAt: 100},
	}

	SortByCreatedAtDesc(events)

	want := []string{"zzz", "mmm", "aaa"}
	for i, id := range want {
		if events[i].ID != id {
			t.Errorf("position %d: got %s, want %s", i, events[i].ID, id)
		}
	}
}
