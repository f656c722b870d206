package store

import (
	"context"
	"path/filepath"
	"testing"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", FileName))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_GetPut(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if _, ok, err := s.GetInt(ctx, "last-synced-issue-id"); ok || err != nil {
		t.Fatalf("GetInt on empty store = %v, %v; want absent", ok, err)
	}

	for _, v := range []int64{42, 0, 1 << 40} {
		if err := s.PutInt(ctx, "last-synced-issue-id", v); err != nil {
			t.Fatalf("PutInt(%d): %v", v, err)
		}
		got, ok, err := s.GetInt(ctx, "last-synced-issue-id")
		if err != nil || !ok || got != v {
			t.Errorf("GetInt = %d, %v, %v; want %d", got, ok, err, v)
		}
	}
}

func TestStore_KeysAreIndependent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if err := s.PutInt(ctx, "a", 1); err != nil {
		t.Fatal(err)
	}
	if err := s.PutInt(ctx, "b", 2); err != nil {
		t.Fatal(err)
	}

	entries, err := s.Entries(ctx)
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 2 || entries["a"] != 1 || entries["b"] != 2 {
		t.Errorf("Entries = %v", entries)
	}
}

func TestStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.PutInt(ctx, "last-refreshed-issue-id", 77); err != nil {
		t.Fatal(err)
	}
	_ = s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	got, ok, err := s.GetInt(ctx, "last-refreshed-issue-id")
	if err != nil || !ok || got != 77 {
		t.Errorf("after reopen GetInt = %d, %v, %v; want 77", got, ok, err)
	}
}
