package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/minagishl/nostro/internal/relay"
	"github.com/minagishl/nostro/internal/types"
)

// Events returns a copy of the feed cache, newest first.
func (s *Store) Events() []types.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Event, len(s.events))
	copy(out, s.events)
	return out
}

// SearchResults returns a copy of the last search's results.
func (s *Store) SearchResults() []types.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Event, len(s.searchResults))
	copy(out, s.searchResults)
	return out
}

// RefreshFeed runs the feed cycle: refresh the follow list first so the
// query can be scoped to followed authors, replace the event cache with a
// one-shot query's sorted result, resolve repost targets in one batch, then
// establish exactly one live subscription for incremental updates. Any
// prior subscription is closed before the new one opens.
func (s *Store) RefreshFeed(ctx context.Context) {
	var authors []string
	if s.PublicKey() != "" {
		authors = s.FetchFollowList(ctx)
	}

	filter := types.Filter{
		Kinds:   []int{types.KindNote, types.KindRepost},
		Authors: authors,
		Limit:   s.cfg.FeedLimit,
	}

	feedRelays := s.cfg.feedRelays()
	events := s.source.QuerySync(ctx, feedRelays, filter)
	events = relay.Dedup(events)
	relay.SortByCreatedAtDesc(events)

	ids := make(map[string]bool, len(events))
	for _, evt := range events {
		ids[evt.ID] = true
	}

	s.mu.Lock()
	s.events = events
	s.eventIDs = ids
	s.mu.Unlock()

	s.resolveReposts(ctx, events)

	s.closeSubscription()

	since := time.Now().Unix()
	liveFilter := types.Filter{
		Kinds:   []int{types.KindNote, types.KindRepost},
		Authors: authors,
		Since:   &since,
	}
	handle := s.source.Subscribe(ctx, feedRelays, liveFilter)
	done := make(chan struct{})

	s.mu.Lock()
	s.activeSub = handle
	s.subDone = done
	s.mu.Unlock()

	go s.consumeSubscription(ctx, handle, done)
}

// consumeSubscription merges live events into the feed cache. Events whose
// id is already known (from the one-shot query or an earlier delivery) are
// dropped before any state mutates.
func (s *Store) consumeSubscription(ctx context.Context, handle *relay.Handle, done chan struct{}) {
	defer close(done)

	for evt := range handle.Events {
		s.mu.Lock()
		if s.eventIDs[evt.ID] {
			s.mu.Unlock()
			continue
		}

		ids := make(map[string]bool, len(s.eventIDs)+1)
		for id := range s.eventIDs {
			ids[id] = true
		}
		ids[evt.ID] = true

		merged := make([]types.Event, 0, len(s.events)+1)
		merged = append(merged, s.events...)
		merged = append(merged, evt)
		relay.SortByCreatedAtDesc(merged)

		s.events = merged
		s.eventIDs = ids
		s.mu.Unlock()

		if evt.Kind == types.KindRepost {
			s.resolveReposts(ctx, []types.Event{evt})
		}
	}
}

// LoadUserEvents replaces the feed cache with one author's recent notes,
// queried across the full relay set for completeness.
func (s *Store) LoadUserEvents(ctx context.Context, pubkey string) {
	events := s.source.QuerySync(ctx, s.cfg.Relays, types.Filter{
		Authors: []string{pubkey},
		Kinds:   []int{types.KindNote, types.KindRepost},
		Limit:   s.cfg.FeedLimit,
	})
	events = relay.Dedup(events)
	relay.SortByCreatedAtDesc(events)

	ids := make(map[string]bool, len(events))
	for _, evt := range events {
		ids[evt.ID] = true
	}

	s.mu.Lock()
	s.events = events
	s.eventIDs = ids
	s.mu.Unlock()

	s.resolveReposts(ctx, events)
}

// SearchEvents queries the designated search relay with a server-side text
// search filter and replaces the search results. Only that relay is asked;
// text search is a capability of specific relays, not the protocol.
func (s *Store) SearchEvents(ctx context.Context, query string) {
	if s.cfg.SearchRelay == "" {
		slog.Warn("search skipped: no search relay configured")
		return
	}

	events := s.source.QuerySync(ctx, []string{s.cfg.SearchRelay}, types.Filter{
		Kinds:  []int{types.KindNote},
		Search: query,
		Limit:  s.cfg.FeedLimit,
	})
	relay.SortByCreatedAtDesc(events)

	s.mu.Lock()
	s.searchResults = events
	s.mu.Unlock()
}
