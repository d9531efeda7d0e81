// Package notifications tracks mentions, reposts and reactions addressed to
// the session's pubkey.
package notifications

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/minagishl/nostro/internal/relay"
	"github.com/minagishl/nostro/internal/types"
)

// Type classifies a notification by the kind of event that produced it.
type Type string

const (
	TypeMention  Type = "mention"
	TypeRepost   Type = "repost"
	TypeReaction Type = "reaction"
)

// Window bounds how far back notifications are fetched.
const Window = 7 * 24 * time.Hour

// Notification is one event addressed to the session's pubkey.
type Notification struct {
	ID        string      `json:"id"`
	Type      Type        `json:"type"`
	Pubkey    string      `json:"pubkey"`
	Content   string      `json:"content"`
	Timestamp int64       `json:"timestamp"`
	Event     types.Event `json:"event"`
}

// Source is the relay pool surface the service needs.
type Source interface {
	QuerySync(ctx context.Context, relays []string, filter types.Filter) []types.Event
	Subscribe(ctx context.Context, relays []string, filter types.Filter) *relay.Handle
}

// Service fetches and streams notifications for one session.
type Service struct {
	source Source
	relays []string

	mu            sync.Mutex
	notifications []Notification
	seen          map[string]bool
	activeSub     *relay.Handle
	subDone       chan struct{}
}

func NewService(source Source, relays []string) *Service {
	return &Service{
		source: source,
		relays: relays,
		seen:   make(map[string]bool),
	}
}

// fromEvent classifies an event as a notification. The session's own events
// never notify.
func fromEvent(evt types.Event, selfPubkey string) (Notification, bool) {
	if evt.PubKey == selfPubkey {
		return Notification{}, false
	}

	n := Notification{
		ID:        evt.ID,
		Pubkey:    evt.PubKey,
		Timestamp: evt.CreatedAt,
		Event:     evt,
	}

	switch evt.Kind {
	case types.KindNote:
		n.Type = TypeMention
		n.Content = evt.Content
	case types.KindRepost:
		n.Type = TypeRepost
		n.Content = "Reposted your note"
	case types.KindReaction:
		emoji := evt.Content
		if emoji == "" {
			emoji = "❤️"
		}
		n.Type = TypeReaction
		n.Content = "Reacted with " + emoji
	default:
		return Notification{}, false
	}

	return n, true
}

// Fetch replaces the notification list with the last week's mentions,
// reposts and reactions, newest first.
func (s *Service) Fetch(ctx context.Context, pubkey string) []Notification {
	if pubkey == "" {
		return nil
	}

	since := time.Now().Add(-Window).Unix()
	events := s.source.QuerySync(ctx, s.relays, types.Filter{
		Kinds: []int{types.KindNote, types.KindRepost, types.KindReaction},
		PTags: []string{pubkey},
		Since: &since,
	})

	notifications := make([]Notification, 0, len(events))
	seen := make(map[string]bool, len(events))
	for _, evt := range events {
		if seen[evt.ID] {
			continue
		}
		if n, ok := fromEvent(evt, pubkey); ok {
			seen[evt.ID] = true
			notifications = append(notifications, n)
		}
	}

	sort.Slice(notifications, func(i, j int) bool {
		return notifications[i].Timestamp > notifications[j].Timestamp
	})

	s.mu.Lock()
	s.notifications = notifications
	s.seen = seen
	s.mu.Unlock()

	return notifications
}

// SubscribeTo opens a live notification stream for the pubkey, replacing
// any previous stream. New notifications are prepended to the list.
func (s *Service) SubscribeTo(ctx context.Context, pubkey string) {
	if pubkey == "" {
		return
	}

	s.Close()

	since := time.Now().Unix()
	handle := s.source.Subscribe(ctx, s.relays, types.Filter{
		Kinds: []int{types.KindNote, types.KindRepost, types.KindReaction},
		PTags: []string{pubkey},
		Since: &since,
	})
	done := make(chan struct{})

	s.mu.Lock()
	s.activeSub = handle
	s.subDone = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		for evt := range handle.Events {
			n, ok := fromEvent(evt, pubkey)
			if !ok {
				continue
			}
			s.mu.Lock()
			if !s.seen[evt.ID] {
				s.seen[evt.ID] = true
				s.notifications = append([]Notification{n}, s.notifications...)
			}
			s.mu.Unlock()
		}
	}()
}

// Notifications returns a copy of the current list.
func (s *Service) Notifications() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Notification, len(s.notifications))
	copy(out, s.notifications)
	return out
}

// Clear empties the list without touching the live subscription.
func (s *Service) Clear() {
	s.mu.Lock()
	s.notifications = nil
	s.seen = make(map[string]bool)
	s.mu.Unlock()
}

// Close tears down the live subscription, if any.
func (s *Service) Close() {
	s.mu.Lock()
	sub, done := s.activeSub, s.subDone
	s.activeSub = nil
	s.subDone = nil
	s.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
	if done != nil {
		<-done
	}
}
