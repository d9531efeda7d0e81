package archive

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/minagishl/nostro/internal/types"
)

func testRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func evt(id, pubkey string, createdAt int64) types.Event {
	return types.Event{
		ID:        id,
		PubKey:    pubkey,
		Kind:      types.KindNote,
		CreatedAt: createdAt,
		Content:   "note " + id,
		Tags:      [][]string{{"e", "parent"}},
		Sig:       "sig",
	}
}

func TestSaveAndRecentEvents(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	events := []types.Event{
		evt("a", "pk1", 100),
		evt("b", "pk2", 300),
		evt("c", "pk1", 200),
	}
	if err := repo.SaveEvents(ctx, events); err != nil {
		t.Fatal(err)
	}

	got, err := repo.RecentEvents(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	if got[0].ID != "b" || got[1].ID != "c" || got[2].ID != "a" {
		t.Errorf("order: %s, %s, %s", got[0].ID, got[1].ID, got[2].ID)
	}
	if len(got[0].Tags) != 1 || got[0].Tags[0][0] != "e" {
		t.Errorf("tags did not round trip: %v", got[0].Tags)
	}
}

func TestSaveEventsIgnoresDuplicates(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	if err := repo.SaveEvents(ctx, []types.Event{evt("a", "pk1", 100)}); err != nil {
		t.Fatal(err)
	}
	if err := repo.SaveEvents(ctx, []types.Event{evt("a", "pk1", 100)}); err != nil {
		t.Fatal(err)
	}

	got, err := repo.RecentEvents(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("duplicate insert produced %d rows", len(got))
	}
}

func TestEventsByAuthor(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	repo.SaveEvents(ctx, []types.Event{
		evt("a", "pk1", 100),
		evt("b", "pk2", 200),
		evt("c", "pk1", 300),
	})

	got, err := repo.EventsByAuthor(ctx, "pk1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "c" || got[1].ID != "a" {
		t.Errorf("by author: %v", got)
	}
}

func TestDeleteOldEvents(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour).Unix()
	fresh := time.Now().Unix()
	repo.SaveEvents(ctx, []types.Event{
		evt("old", "pk1", old),
		evt("new", "pk1", fresh),
	})

	deleted, err := repo.DeleteOldEvents(ctx, 24*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 1 {
		t.Errorf("deleted %d rows, want 1", deleted)
	}

	got, _ := repo.RecentEvents(ctx, 10)
	if len(got) != 1 || got[0].ID != "new" {
		t.Errorf("remaining: %v", got)
	}
}
