package notes

import (
	"path/filepath"
	"testing"
)

func TestStore_AddAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.json")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	note, err := store.Add("buy milk")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if note.ID == "" {
		t.Error("expected generated note ID")
	}

	// A fresh store must see the persisted note
	reloaded, err := Open(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok := reloaded.Get(note.ID)
	if !ok {
		t.Fatal("expected note to survive reload")
	}
	if got.Text != "buy milk" {
		t.Errorf("unexpected text: %q", got.Text)
	}
}

func TestStore_SearchIsCaseInsensitive(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "notes.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := store.Add("Call the Dentist tomorrow"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.Add("water the plants"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	hits := store.Search("dentist")
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	if store.Search("dragon") != nil {
		t.Error("expected no hits for dragon")
	}
}

func TestStore_Delete(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "notes.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	note, err := store.Add("temp")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	removed, err := store.Delete(note.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !removed {
		t.Error("expected delete to report removal")
	}

	removed, err = store.Delete("missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed {
		t.Error("expected delete of unknown ID to report false")
	}
}
