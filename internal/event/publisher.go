package event

import (
	"context"
	"log/slog"

	"github.com/minagishl/nostro/internal/types"
)

// Broadcaster is the relay publish primitive. Publish sends the event to
// every listed relay concurrently and never blocks on a single relay's
// acknowledgment.
type Broadcaster interface {
	Publish(ctx context.Context, relays []string, evt types.Event)
}

// Publisher signs and broadcasts events built for user actions.
//
// Failure policy: any action attempted without a usable signer, or whose
// signer fails, is a silent no-op. It is logged but never surfaces an
// error and never publishes. Callers observe the outcome through the
// returned ok flag; local caches are the caller's responsibility.
type Publisher struct {
	pool   Broadcaster
	relays []string
}

// NewPublisher binds a publisher to a broadcast pool and the active relay
// set.
func NewPublisher(pool Broadcaster, relays []string) *Publisher {
	return &Publisher{pool: pool, relays: relays}
}

// Relays returns the publisher's active relay set.
func (p *Publisher) Relays() []string {
	return p.relays
}

// publish runs the shared contract: require a usable signer, build the
// unsigned event for its pubkey, sign, broadcast to every relay. Returns
// the signed event and whether it was published.
func (p *Publisher) publish(ctx context.Context, signer Signer, kind int, build func(pubkey string) types.Event) (types.Event, bool) {
	if signer == nil || signer.PublicKey() == "" {
		slog.Debug("publish skipped: no usable signer", "kind", kind)
		return types.Event{}, false
	}

	evt := build(signer.PublicKey())
	if err := signer.Sign(ctx, &evt); err != nil {
		slog.Warn("signing failed, publish aborted", "kind", kind, "error", err)
		return types.Event{}, false
	}

	p.pool.Publish(ctx, p.relays, evt)
	return evt, true
}

// PublishNote publishes a kind 1 note.
func (p *Publisher) PublishNote(ctx context.Context, signer Signer, content string) (types.Event, bool) {
	return p.publish(ctx, signer, types.KindNote, func(pubkey string) types.Event {
		return NewNote(pubkey, content)
	})
}

// ReplyToNote publishes a kind 1 reply to the parent event.
func (p *Publisher) ReplyToNote(ctx context.Context, signer Signer, content string, parent types.Event) (types.Event, bool) {
	return p.publish(ctx, signer, types.KindNote, func(pubkey string) types.Event {
		return NewReply(pubkey, content, parent)
	})
}

// RepostNote publishes a kind 6 repost of the target.
func (p *Publisher) RepostNote(ctx context.Context, signer Signer, target types.Event) (types.Event, bool) {
	return p.publish(ctx, signer, types.KindRepost, func(pubkey string) types.Event {
		return NewRepost(pubkey, target)
	})
}

// PublishReaction publishes a kind 7 reaction with the emoji literal.
func (p *Publisher) PublishReaction(ctx context.Context, signer Signer, emoji string, target types.Event) (types.Event, bool) {
	return p.publish(ctx, signer, types.KindReaction, func(pubkey string) types.Event {
		return NewReaction(pubkey, emoji, target)
	})
}

// PublishContactList publishes the full kind 3 follow list. The caller must
// have fetched the current authoritative list first; concurrent publishes
// from the same session race last-write-wins (known limitation).
func (p *Publisher) PublishContactList(ctx context.Context, signer Signer, follows []string) (types.Event, bool) {
	return p.publish(ctx, signer, types.KindContactList, func(pubkey string) types.Event {
		return NewContactList(pubkey, follows)
	})
}

// PublishBookmarkList publishes the full kind 30001 bookmark list.
func (p *Publisher) PublishBookmarkList(ctx context.Context, signer Signer, eventIDs []string) (types.Event, bool) {
	return p.publish(ctx, signer, types.KindBookmarkList, func(pubkey string) types.Event {
		return NewBookmarkList(pubkey, eventIDs)
	})
}
