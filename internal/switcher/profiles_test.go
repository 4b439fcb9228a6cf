package switcher

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestProfiles(t *testing.T) *ProfileStore {
	t.Helper()
	return NewProfileStore(filepath.Join(t.TempDir(), "providers.json"))
}

func TestProfileStore_MissingFileIsEmptyList(t *testing.T) {
	profiles, err := newTestProfiles(t).List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(profiles) != 0 {
		t.Fatalf("expected empty list, got %v", profiles)
	}
}

func TestProfileStore_AddListKeepsOrder(t *testing.T) {
	store := newTestProfiles(t)
	for _, id := range []string{"first", "second", "third"} {
		if err := store.Add(&Profile{ID: id, Name: id, BaseURL: "https://" + id + ".example.com"}); err != nil {
			t.Fatalf("add %s: %v", id, err)
		}
	}
	profiles, err := store.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(profiles) != 3 || profiles[0].ID != "first" || profiles[2].ID != "third" {
		t.Fatalf("unexpected order: %+v", profiles)
	}
}

func TestProfileStore_AddDuplicateID(t *testing.T) {
	store := newTestProfiles(t)
	if err := store.Add(&Profile{ID: "dup", Name: "one", BaseURL: "https://one.example.com"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	err := store.Add(&Profile{ID: "dup", Name: "two", BaseURL: "https://two.example.com"})
	if !errors.Is(err, ErrProfileExists) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestProfileStore_UpdateAndDelete(t *testing.T) {
	store := newTestProfiles(t)
	if err := store.Add(&Profile{ID: "p-1", Name: "old", BaseURL: "https://old.example.com"}); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := store.Update(&Profile{ID: "p-1", Name: "new", BaseURL: "https://new.example.com", APIKey: "sk-1"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, errGet := store.Get("p-1")
	if errGet != nil {
		t.Fatalf("get: %v", errGet)
	}
	if got.Name != "new" || got.APIKey != "sk-1" {
		t.Fatalf("unexpected profile: %+v", got)
	}

	if err := store.Update(&Profile{ID: "ghost"}); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected not found on update, got %v", err)
	}

	if err := store.Delete("p-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get("p-1"); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if err := store.Delete("p-1"); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestProfileStore_NormalizesBlankOptionals(t *testing.T) {
	path := filepath.Join(t.TempDir(), "providers.json")
	seed := `[{"id":"p-1","name":"one","description":"","base_url":"https://one.example.com","auth_token":"   ","api_key":"","model":" sonnet "}]`
	if err := os.WriteFile(path, []byte(seed), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}

	got, err := NewProfileStore(path).Get("p-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.AuthToken != "" || got.APIKey != "" {
		t.Fatalf("blank credentials must fold to absent: %+v", got)
	}
	if got.Model != " sonnet " {
		t.Fatalf("non-blank values must keep their bytes, got %q", got.Model)
	}
}

func TestProfileStore_CorruptFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "providers.json")
	if err := os.WriteFile(path, []byte("{broken"), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := NewProfileStore(path).List(); err == nil {
		t.Fatalf("expected parse error")
	}
}
