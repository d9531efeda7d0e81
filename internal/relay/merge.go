package relay

import (
	"sort"

	"github.com/minagishl/nostro/internal/types"
)

// Dedup merges events from multiple relays by ID. The first occurrence wins
// and accumulates the RelaysSeen of later duplicates, so the caller can tell
// how widely an event propagated.
func Dedup(events []types.Event) []types.Event {
	seen := make(map[string]int, len(events))
	merged := make([]types.Event, 0, len(events))

	for _, evt := range events {
		if idx, ok := seen[evt.ID]; ok {
			merged[idx].RelaysSeen = appendUnique(merged[idx].RelaysSeen, evt.RelaysSeen)
			continue
		}
		seen[evt.ID] = len(merged)
		merged = append(merged, evt)
	}

	return merged
}

func appendUnique(dst []string, src []string) []string {
	for _, s := range src {
		found := false
		for _, d := range dst {
			if d == s {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, s)
		}
	}
	return dst
}

// SortByCreatedAtDesc orders events newest first, with ID as a deterministic
// tie-break so repeated queries produce stable output.
func SortByCreatedAtDesc(events []types.Event) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].CreatedAt != events[j].CreatedAt {
			return events[i].CreatedAt > events[j].CreatedAt
		}
		return events[i].ID > events[j].ID
	})
}
