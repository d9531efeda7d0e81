package store

import (
	"github.com/minagishl/nostro/internal/types"

	"context"
)

// GetRepostedEvent returns the resolved original for a repost event id, or
// false when it has not been resolved yet. This is a cache read only; it
// never fetches synchronously.
func (s *Store) GetRepostedEvent(repostID string) (types.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	evt, ok := s.repostTargets[repostID]
	return evt, ok
}

// resolveReposts collects the original-event ids referenced by any repost
// events in the batch and fetches them in a single ids query rather than
// one query per repost. Already-resolved targets are skipped.
func (s *Store) resolveReposts(ctx context.Context, events []types.Event) {
	// repost event id -> referenced original id
	wanted := make(map[string]string)

	s.mu.RLock()
	for _, evt := range events {
		if evt.Kind != types.KindRepost {
			continue
		}
		if _, done := s.repostTargets[evt.ID]; done {
			continue
		}
		if target := types.TagValue(evt.Tags, "e"); target != "" {
			wanted[evt.ID] = target
		}
	}
	s.mu.RUnlock()

	if len(wanted) == 0 {
		return
	}

	idSet := make(map[string]bool, len(wanted))
	ids := make([]string, 0, len(wanted))
	for _, target := range wanted {
		if !idSet[target] {
			idSet[target] = true
			ids = append(ids, target)
		}
	}

	originals := s.source.QuerySync(ctx, s.cfg.feedRelays(), types.Filter{
		IDs:   ids,
		Limit: len(ids),
	})

	byID := make(map[string]types.Event, len(originals))
	for _, evt := range originals {
		byID[evt.ID] = evt
	}

	s.mu.Lock()
	// Replace the whole map so readers never see a half-merged view.
	targets := make(map[string]types.Event, len(s.repostTargets)+len(wanted))
	for k, v := range s.repostTargets {
		targets[k] = v
	}
	for repostID, targetID := range wanted {
		if original, ok := byID[targetID]; ok {
			targets[repostID] = original
		}
	}
	s.repostTargets = targets
	s.mu.Unlock()
}
