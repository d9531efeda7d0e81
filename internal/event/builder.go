package event

import (
	"time"

	"github.com/minagishl/nostro/internal/types"
)

// Builders produce unsigned event templates (no ID, no Sig) for each action
// kind. created_at is current unix time; tags are populated per kind.

func now() int64 {
	return time.Now().Unix()
}

// NewNote builds an unsigned kind 1 note.
func NewNote(pubkey, content string) types.Event {
	return types.Event{
		Kind:      types.KindNote,
		PubKey:    pubkey,
		CreatedAt: now(),
		Tags:      [][]string{},
		Content:   content,
	}
}

// NewReply builds an unsigned kind 1 reply referencing the parent event
// and its author.
func NewReply(pubkey, content string, parent types.Event) types.Event {
	return types.Event{
		Kind:      types.KindNote,
		PubKey:    pubkey,
		CreatedAt: now(),
		Tags: [][]string{
			{"e", parent.ID},
			{"p", parent.PubKey},
		},
		Content: content,
	}
}

// NewRepost builds an unsigned kind 6 repost of the target note. The repost
// carries no independent content; rendering resolves the referenced event.
func NewRepost(pubkey string, target types.Event) types.Event {
	return types.Event{
		Kind:      types.KindRepost,
		PubKey:    pubkey,
		CreatedAt: now(),
		Tags: [][]string{
			{"e", target.ID},
			{"p", target.PubKey},
		},
		Content: "",
	}
}

// NewReaction builds an unsigned kind 7 reaction with the emoji literal as
// content.
func NewReaction(pubkey, emoji string, target types.Event) types.Event {
	return types.Event{
		Kind:      types.KindReaction,
		PubKey:    pubkey,
		CreatedAt: now(),
		Tags: [][]string{
			{"e", target.ID},
			{"p", target.PubKey},
		},
		Content: emoji,
	}
}

// NewContactList builds an unsigned kind 3 follow list. The protocol has no
// incremental mutation: every change republishes the whole list as p tags.
func NewContactList(pubkey string, follows []string) types.Event {
	tags := make([][]string, 0, len(follows))
	for _, pk := range follows {
		tags = append(tags, []string{"p", pk})
	}
	return types.Event{
		Kind:      types.KindContactList,
		PubKey:    pubkey,
		CreatedAt: now(),
		Tags:      tags,
		Content:   "",
	}
}

// NewBookmarkList builds an unsigned kind 30001 bookmark list with e tags
// for each bookmarked event ID. Whole-list-replace, same as the follow list.
func NewBookmarkList(pubkey string, eventIDs []string) types.Event {
	tags := make([][]string, 0, len(eventIDs))
	for _, id := range eventIDs {
		tags = append(tags, []string{"e", id})
	}
	return types.Event{
		Kind:      types.KindBookmarkList,
		PubKey:    pubkey,
		CreatedAt: now(),
		Tags:      tags,
		Content:   "",
	}
}

// NewHTTPAuth builds an unsigned kind 27235 auth-proof event for an upload
// request: u is the target URL, method the HTTP verb, payload the hash of
// the uploaded bytes.
func NewHTTPAuth(pubkey, url, method, payload string) types.Event {
	return types.Event{
		Kind:      types.KindHTTPAuth,
		PubKey:    pubkey,
		CreatedAt: now(),
		Tags: [][]string{
			{"u", url},
			{"method", method},
			{"payload", payload},
		},
		Content: "",
	}
}

// NewProfileMetadata builds an unsigned kind 0 profile event with the given
// JSON-encoded metadata content.
func NewProfileMetadata(pubkey, contentJSON string) types.Event {
	return types.Event{
		Kind:      types.KindProfileMetadata,
		PubKey:    pubkey,
		CreatedAt: now(),
		Tags:      [][]string{},
		Content:   contentJSON,
	}
}
