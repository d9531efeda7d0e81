package event

import (
	"context"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/minagishl/nostro/internal/types"
)

type recordingPool struct {
	published []types.Event
	relays    [][]string
}

func (r *recordingPool) Publish(ctx context.Context, relays []string, evt types.Event) {
	r.published = append(r.published, evt)
	r.relays = append(r.relays, relays)
}

type fakeExtension struct {
	pubkey  string
	signErr error
}

func (f *fakeExtension) GetPublicKey(ctx context.Context) (string, error) {
	return f.pubkey, nil
}

func (f *fakeExtension) SignEvent(ctx context.Context, evt types.Event) (types.Event, error) {
	if f.signErr != nil {
		return types.Event{}, f.signErr
	}
	// The extension's id/sig are authoritative; return sentinel values the
	// publisher must pass through untouched.
	evt.ID = "extension-id"
	evt.Sig = "extension-sig"
	return evt, nil
}

func testRelays() []string {
	return []string{"wss://relay.one", "wss://relay.two"}
}

func TestPublishNoteWithoutSignerIsNoOp(t *testing.T) {
	pool := &recordingPool{}
	pub := NewPublisher(pool, testRelays())

	if _, ok := pub.PublishNote(context.Background(), nil, "hello"); ok {
		t.Error("expected publish to report not-published")
	}
	if len(pool.published) != 0 {
		t.Errorf("publish primitive was invoked %d times, want 0", len(pool.published))
	}
}

func TestPublishNoteSignsAndBroadcasts(t *testing.T) {
	privKeyBytes, _ := hex.DecodeString("edc90d06fee17615229c8526dc005d959e4af3bdc0b48c5776c951bcafedec85")
	signer, err := NewLocalSigner(privKeyBytes)
	if err != nil {
		t.Fatalf("NewLocalSigner failed: %v", err)
	}

	pool := &recordingPool{}
	pub := NewPublisher(pool, testRelays())

	evt, ok := pub.PublishNote(context.Background(), signer, "hello world")
	if !ok {
		t.Fatal("publish failed with a valid signer")
	}
	if len(pool.published) != 1 {
		t.Fatalf("expected exactly one broadcast, got %d", len(pool.published))
	}
	if pool.published[0].ID != evt.ID {
		t.Error("broadcast event does not match returned event")
	}
	if !ValidateSignature(&evt) {
		t.Error("published event has invalid signature")
	}
	if evt.Kind != types.KindNote || evt.Content != "hello world" {
		t.Errorf("unexpected event shape: kind=%d content=%q", evt.Kind, evt.Content)
	}
}

func TestReplyCarriesParentTags(t *testing.T) {
	privKeyBytes, _ := hex.DecodeString("edc90d06fee17615229c8526dc005d959e4af3bdc0b48c5776c951bcafedec85")
	signer, _ := NewLocalSigner(privKeyBytes)

	parent := types.Event{
		ID:     "aaaa000000000000000000000000000000000000000000000000000000000001",
		PubKey: "bbbb000000000000000000000000000000000000000000000000000000000002",
	}

	pool := &recordingPool{}
	pub := NewPublisher(pool, testRelays())

	evt, ok := pub.ReplyToNote(context.Background(), signer, "re: hi", parent)
	if !ok {
		t.Fatal("reply publish failed")
	}
	if types.TagValue(evt.Tags, "e") != parent.ID {
		t.Errorf("e tag = %q, want parent id", types.TagValue(evt.Tags, "e"))
	}
	if types.TagValue(evt.Tags, "p") != parent.PubKey {
		t.Errorf("p tag = %q, want parent author", types.TagValue(evt.Tags, "p"))
	}
}

func TestRepostAndReactionShape(t *testing.T) {
	privKeyBytes, _ := hex.DecodeString("edc90d06fee17615229c8526dc005d959e4af3bdc0b48c5776c951bcafedec85")
	signer, _ := NewLocalSigner(privKeyBytes)

	target := types.Event{
		ID:     "cccc000000000000000000000000000000000000000000000000000000000003",
		PubKey: "dddd000000000000000000000000000000000000000000000000000000000004",
	}

	pool := &recordingPool{}
	pub := NewPublisher(pool, testRelays())

	repost, ok := pub.RepostNote(context.Background(), signer, target)
	if !ok {
		t.Fatal("repost publish failed")
	}
	if repost.Kind != types.KindRepost || repost.Content != "" {
		t.Errorf("repost shape wrong: kind=%d content=%q", repost.Kind, repost.Content)
	}

	reaction, ok := pub.PublishReaction(context.Background(), signer, "🤙", target)
	if !ok {
		t.Fatal("reaction publish failed")
	}
	if reaction.Kind != types.KindReaction || reaction.Content != "🤙" {
		t.Errorf("reaction shape wrong: kind=%d content=%q", reaction.Kind, reaction.Content)
	}
	if types.TagValue(reaction.Tags, "e") != target.ID {
		t.Error("reaction missing e tag for target")
	}
}

func TestContactListRepublishesWholeList(t *testing.T) {
	privKeyBytes, _ := hex.DecodeString("edc90d06fee17615229c8526dc005d959e4af3bdc0b48c5776c951bcafedec85")
	signer, _ := NewLocalSigner(privKeyBytes)

	pool := &recordingPool{}
	pub := NewPublisher(pool, testRelays())

	follows := []string{"pk1", "pk2", "pk3"}
	evt, ok := pub.PublishContactList(context.Background(), signer, follows)
	if !ok {
		t.Fatal("contact list publish failed")
	}

	got := types.TagValues(evt.Tags, "p")
	if len(got) != len(follows) {
		t.Fatalf("expected %d p tags, got %d", len(follows), len(got))
	}
	for i, pk := range follows {
		if got[i] != pk {
			t.Errorf("p tag %d = %q, want %q", i, got[i], pk)
		}
	}
}

func TestExtensionSignerOutputIsAuthoritative(t *testing.T) {
	ext := &fakeExtension{pubkey: "extension-pubkey"}
	signer, err := NewExtensionSigner(context.Background(), ext)
	if err != nil {
		t.Fatalf("NewExtensionSigner failed: %v", err)
	}

	pool := &recordingPool{}
	pub := NewPublisher(pool, testRelays())

	evt, ok := pub.PublishNote(context.Background(), signer, "via extension")
	if !ok {
		t.Fatal("publish via extension failed")
	}
	// The extension computed id/sig itself; they must not be re-derived.
	if evt.ID != "extension-id" || evt.Sig != "extension-sig" {
		t.Errorf("extension id/sig were not trusted: id=%q sig=%q", evt.ID, evt.Sig)
	}
}

func TestExtensionSignerFailureAbortsPublish(t *testing.T) {
	ext := &fakeExtension{pubkey: "extension-pubkey", signErr: errors.New("user rejected")}
	signer, err := NewExtensionSigner(context.Background(), ext)
	if err != nil {
		t.Fatalf("NewExtensionSigner failed: %v", err)
	}

	pool := &recordingPool{}
	pub := NewPublisher(pool, testRelays())

	if _, ok := pub.PublishNote(context.Background(), signer, "rejected"); ok {
		t.Error("expected publish to fail when extension rejects")
	}
	if len(pool.published) != 0 {
		t.Error("event was broadcast despite signer failure")
	}
}

func TestNewExtensionSignerRequiresCapability(t *testing.T) {
	if _, err := NewExtensionSigner(context.Background(), nil); err == nil {
		t.Error("expected error when extension capability is absent")
	}
}
