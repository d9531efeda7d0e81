package store

import (
	"context"

	"github.com/minagishl/nostro/internal/types"
)

// Follow and bookmark lists are whole-replace, latest-event-wins sets. Each
// mutation is an explicit two-phase read-modify-publish: fetch the latest
// list, compute the replacement, publish the entire new list. Concurrent
// mutations from two sessions race last-write-wins; that lost-update
// behavior is preserved deliberately, no sequence guard is applied.

// FollowList returns the cached follow list.
func (s *Store) FollowList() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.followList))
	copy(out, s.followList)
	return out
}

// BookmarkList returns the cached bookmark list.
func (s *Store) BookmarkList() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.bookmarkList))
	copy(out, s.bookmarkList)
	return out
}

// FetchFollowList queries the session's latest kind 3 event and caches the
// p-tag pubkeys. Returns the cached list unchanged when unauthenticated.
func (s *Store) FetchFollowList(ctx context.Context) []string {
	pubkey := s.PublicKey()
	if pubkey == "" {
		return s.FollowList()
	}

	events := s.source.QuerySync(ctx, s.cfg.Relays, types.Filter{
		Authors: []string{pubkey},
		Kinds:   []int{types.KindContactList},
		Limit:   1,
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(events) > 0 {
		list := types.TagValues(events[0].Tags, "p")
		if list == nil {
			list = []string{}
		}
		s.followList = list
	} else if !s.followKnown {
		s.followList = []string{}
	}
	s.followKnown = true

	out := make([]string, len(s.followList))
	copy(out, s.followList)
	return out
}

// PublishFollowList publishes the given list as the session's new kind 3
// event and, only on success, replaces the cache.
func (s *Store) PublishFollowList(ctx context.Context, follows []string) bool {
	_, ok := s.publisher.PublishContactList(ctx, s.currentSigner(), follows)
	if !ok {
		return false
	}

	s.mu.Lock()
	s.followList = append([]string{}, follows...)
	s.followKnown = true
	s.mu.Unlock()
	return true
}

// FollowUser adds a pubkey to the follow list. Adding an already-followed
// pubkey republishes the unchanged list rather than duplicating the entry.
func (s *Store) FollowUser(ctx context.Context, pubkey string) bool {
	current := s.latestFollowList(ctx)
	next := make([]string, 0, len(current)+1)
	for _, pk := range current {
		if pk == pubkey {
			continue
		}
		next = append(next, pk)
	}
	next = append(next, pubkey)
	return s.PublishFollowList(ctx, next)
}

// UnfollowUser removes a pubkey from the follow list.
func (s *Store) UnfollowUser(ctx context.Context, pubkey string) bool {
	current := s.latestFollowList(ctx)
	next := make([]string, 0, len(current))
	for _, pk := range current {
		if pk != pubkey {
			next = append(next, pk)
		}
	}
	return s.PublishFollowList(ctx, next)
}

func (s *Store) latestFollowList(ctx context.Context) []string {
	s.mu.RLock()
	known := s.followKnown
	s.mu.RUnlock()
	if known {
		return s.FollowList()
	}
	return s.FetchFollowList(ctx)
}

// FetchBookmarkList queries the session's latest kind 30001 event and
// caches the e-tag event ids.
func (s *Store) FetchBookmarkList(ctx context.Context) []string {
	pubkey := s.PublicKey()
	if pubkey == "" {
		return s.BookmarkList()
	}

	events := s.source.QuerySync(ctx, s.cfg.Relays, types.Filter{
		Authors: []string{pubkey},
		Kinds:   []int{types.KindBookmarkList},
		Limit:   1,
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(events) > 0 {
		list := types.TagValues(events[0].Tags, "e")
		if list == nil {
			list = []string{}
		}
		s.bookmarkList = list
	} else if !s.bookmarkKnown {
		s.bookmarkList = []string{}
	}
	s.bookmarkKnown = true

	out := make([]string, len(s.bookmarkList))
	copy(out, s.bookmarkList)
	return out
}

// PublishBookmarkList publishes the full kind 30001 list and updates the
// cache only on success.
func (s *Store) PublishBookmarkList(ctx context.Context, eventIDs []string) bool {
	_, ok := s.publisher.PublishBookmarkList(ctx, s.currentSigner(), eventIDs)
	if !ok {
		return false
	}

	s.mu.Lock()
	s.bookmarkList = append([]string{}, eventIDs...)
	s.bookmarkKnown = true
	s.mu.Unlock()
	return true
}

// BookmarkNote adds an event id to the bookmark list.
func (s *Store) BookmarkNote(ctx context.Context, eventID string) bool {
	current := s.latestBookmarkList(ctx)
	next := make([]string, 0, len(current)+1)
	for _, id := range current {
		if id == eventID {
			continue
		}
		next = append(next, id)
	}
	next = append(next, eventID)
	return s.PublishBookmarkList(ctx, next)
}

// UnbookmarkNote removes an event id from the bookmark list.
func (s *Store) UnbookmarkNote(ctx context.Context, eventID string) bool {
	current := s.latestBookmarkList(ctx)
	next := make([]string, 0, len(current))
	for _, id := range current {
		if id != eventID {
			next = append(next, id)
		}
	}
	return s.PublishBookmarkList(ctx, next)
}

func (s *Store) latestBookmarkList(ctx context.Context) []string {
	s.mu.RLock()
	known := s.bookmarkKnown
	s.mu.RUnlock()
	if known {
		return s.BookmarkList()
	}
	return s.FetchBookmarkList(ctx)
}
