package store

import (
	"context"

	"github.com/minagishl/nostro/internal/types"
)

// Publish actions delegate to the publisher with the session's signer.
// Without a usable signer each is a silent no-op: nothing is published, no
// error surfaces, and no cache changes.

// PublishNote publishes a kind 1 note with the given content.
func (s *Store) PublishNote(ctx context.Context, content string) (types.Event, bool) {
	return s.publisher.PublishNote(ctx, s.currentSigner(), content)
}

// ReplyToNote publishes a reply referencing the parent note and its author.
func (s *Store) ReplyToNote(ctx context.Context, content string, parent types.Event) (types.Event, bool) {
	return s.publisher.ReplyToNote(ctx, s.currentSigner(), content, parent)
}

// RepostNote publishes a kind 6 repost of the target event.
func (s *Store) RepostNote(ctx context.Context, target types.Event) (types.Event, bool) {
	evt, ok := s.publisher.RepostNote(ctx, s.currentSigner(), target)
	if ok {
		// The target is already in hand; resolve it locally instead of
		// refetching.
		s.mu.Lock()
		targets := make(map[string]types.Event, len(s.repostTargets)+1)
		for k, v := range s.repostTargets {
			targets[k] = v
		}
		targets[evt.ID] = target
		s.repostTargets = targets
		s.mu.Unlock()
	}
	return evt, ok
}

// PublishReaction publishes a kind 7 reaction carrying the emoji literal.
func (s *Store) PublishReaction(ctx context.Context, emoji string, target types.Event) (types.Event, bool) {
	return s.publisher.PublishReaction(ctx, s.currentSigner(), emoji, target)
}
