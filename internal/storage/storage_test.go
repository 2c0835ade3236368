package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func testStoreContract(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	// Absence is (nil, nil), not an error.
	value, err := store.Get(ctx, "chat:1")
	if err != nil {
		t.Fatalf("get missing key: %v", err)
	}
	if value != nil {
		t.Fatalf("expected nil for missing key, got %s", value)
	}

	if err := store.Set(ctx, "chat:1", []byte(`{"version":3}`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	value, err = store.Get(ctx, "chat:1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(value) != `{"version":3}` {
		t.Errorf("get = %s", value)
	}

	// Overwrite wins.
	if err := store.Set(ctx, "chat:1", []byte(`{"version":4}`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	value, _ = store.Get(ctx, "chat:1")
	if string(value) != `{"version":4}` {
		t.Errorf("overwrite lost: %s", value)
	}

	// Keys are independent.
	if err := store.Set(ctx, "user:2", []byte(`{}`)); err != nil {
		t.Fatalf("set second key: %v", err)
	}

	if err := store.Delete(ctx, "chat:1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	value, err = store.Get(ctx, "chat:1")
	if err != nil || value != nil {
		t.Errorf("deleted key still readable: %s (%v)", value, err)
	}
	value, _ = store.Get(ctx, "user:2")
	if string(value) != `{}` {
		t.Errorf("unrelated key affected by delete: %s", value)
	}

	// Deleting a missing key is a no-op.
	if err := store.Delete(ctx, "chat:404"); err != nil {
		t.Errorf("delete missing key: %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	testStoreContract(t, NewMemory())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "sessions.json")
	store, err := NewFile(path)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	testStoreContract(t, store)
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	ctx := context.Background()

	store, err := NewFile(path)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	if err := store.Set(ctx, "chat:9", []byte(`{"version":3,"total":50}`)); err != nil {
		t.Fatalf("set: %v", err)
	}

	reopened, err := NewFile(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	value, err := reopened.Get(ctx, "chat:9")
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if string(value) != `{"version":3,"total":50}` {
		t.Errorf("record lost across reopen: %s", value)
	}
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	original := []byte(`{"version":1}`)
	if err := store.Set(ctx, "k", original); err != nil {
		t.Fatalf("set: %v", err)
	}
	original[0] = 'X'

	value, _ := store.Get(ctx, "k")
	if string(value) != `{"version":1}` {
		t.Errorf("stored value aliased caller's buffer: %s", value)
	}

	value[0] = 'Y'
	again, _ := store.Get(ctx, "k")
	if string(again) != `{"version":1}` {
		t.Errorf("returned value aliased stored buffer: %s", again)
	}
}

func TestFactoryValidation(t *testing.T) {
	if _, err := New(Kind("bogus")); err != ErrInvalidStoreKind {
		t.Errorf("expected ErrInvalidStoreKind, got %v", err)
	}
	if _, err := New(KindFile); err != ErrInvalidConfig {
		t.Errorf("file store without path: expected ErrInvalidConfig, got %v", err)
	}
	if _, err := New(KindRedis); err != ErrInvalidConfig {
		t.Errorf("redis store without client: expected ErrInvalidConfig, got %v", err)
	}
	if _, err := New(KindSupabase); err != ErrInvalidConfig {
		t.Errorf("supabase store without creds: expected ErrInvalidConfig, got %v", err)
	}
}
