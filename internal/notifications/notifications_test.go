package notifications

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/minagishl/nostro/internal/relay"
	"github.com/minagishl/nostro/internal/types"
)

type fakeSource struct {
	respond []types.Event
	subCh   chan types.Event
}

func (f *fakeSource) QuerySync(ctx context.Context, relays []string, filter types.Filter) []types.Event {
	return f.respond
}

func (f *fakeSource) Subscribe(ctx context.Context, relays []string, filter types.Filter) *relay.Handle {
	return &relay.Handle{Events: f.subCh}
}

const self = "1111111111111111111111111111111111111111111111111111111111111111"

func evt(id string, kind int, pubkey, content string, at int64) types.Event {
	return types.Event{
		ID:        id,
		PubKey:    pubkey,
		Kind:      kind,
		Content:   content,
		CreatedAt: at,
		Tags:      [][]string{{"p", self}},
	}
}

func TestFetchClassifiesAndSorts(t *testing.T) {
	other := strings.Repeat("22", 32)
	source := &fakeSource{respond: []types.Event{
		evt("m1", types.KindNote, other, "hey you", 100),
		evt("r1", types.KindRepost, other, "", 300),
		evt("x1", types.KindReaction, other, "🔥", 200),
		evt("own", types.KindNote, self, "my own mention", 400),
	}}

	s := NewService(source, []string{"wss://r1"})
	got := s.Fetch(context.Background(), self)

	if len(got) != 3 {
		t.Fatalf("expected 3 notifications, got %d", len(got))
	}

	// Newest first, own events excluded
	if got[0].ID != "r1" || got[1].ID != "x1" || got[2].ID != "m1" {
		t.Errorf("order: %s, %s, %s", got[0].ID, got[1].ID, got[2].ID)
	}
	if got[0].Type != TypeRepost || got[0].Content != "Reposted your note" {
		t.Errorf("repost: %+v", got[0])
	}
	if got[1].Type != TypeReaction || got[1].Content != "Reacted with 🔥" {
		t.Errorf("reaction: %+v", got[1])
	}
	if got[2].Type != TypeMention || got[2].Content != "hey you" {
		t.Errorf("mention: %+v", got[2])
	}
}

func TestReactionWithEmptyContentDefaultsToHeart(t *testing.T) {
	n, ok := fromEvent(evt("x1", types.KindReaction, strings.Repeat("22", 32), "", 1), self)
	if !ok || n.Content != "Reacted with ❤️" {
		t.Errorf("got %+v, %v", n, ok)
	}
}

func TestFetchWithoutPubkeyIsNoop(t *testing.T) {
	s := NewService(&fakeSource{}, nil)
	if got := s.Fetch(context.Background(), ""); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}

func TestSubscribePrependsAndDedups(t *testing.T) {
	other := strings.Repeat("22", 32)
	source := &fakeSource{subCh: make(chan types.Event, 4)}

	s := NewService(source, []string{"wss://r1"})
	s.SubscribeTo(context.Background(), self)

	source.subCh <- evt("n1", types.KindNote, other, "first", 100)
	source.subCh <- evt("n1", types.KindNote, other, "first", 100)
	source.subCh <- evt("n2", types.KindNote, other, "second", 200)
	source.subCh <- evt("mine", types.KindNote, self, "own", 300)
	close(source.subCh)

	deadline := time.After(2 * time.Second)
	for len(s.Notifications()) < 2 {
		select {
		case <-deadline:
			t.Fatalf("have %d notifications", len(s.Notifications()))
		case <-time.After(5 * time.Millisecond):
		}
	}
	s.Close()

	got := s.Notifications()
	if len(got) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(got))
	}
	// Latest arrival first
	if got[0].ID != "n2" || got[1].ID != "n1" {
		t.Errorf("order: %s, %s", got[0].ID, got[1].ID)
	}
}
