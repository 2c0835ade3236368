package session

import (
	"context"
	"errors"
	"testing"
)

// fakeStore is an in-memory Store with fault injection.
type fakeStore struct {
	records map[string][]byte
	getErr  error
	setErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string][]byte)}
}

func (s *fakeStore) Get(_ context.Context, key string) ([]byte, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	value, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	return value, nil
}

func (s *fakeStore) Set(_ context.Context, key string, value []byte) error {
	if s.setErr != nil {
		return s.setErr
	}
	s.records[key] = value
	return nil
}

func (s *fakeStore) Delete(_ context.Context, key string) error {
	delete(s.records, key)
	return nil
}

func chatKey(s Scope) (string, bool) {
	if s.ChatID == 0 {
		return "", false
	}
	return "chat", true
}

func userKey(s Scope) (string, bool) {
	if s.UserID == 0 {
		return "", false
	}
	return "user", true
}

func testManager(store Store) *Manager {
	return NewManager(store,
		SlotConfig{Chain: testChainPkg("counter"), Key: chatKey},
		SlotConfig{Chain: testChainPkg("other"), Key: userKey},
	)
}

// testChainPkg builds the counter chain without a testing.T, for use
// in manager fixtures.
func testChainPkg(slot string) *Chain {
	return MustChain(slot,
		Version{Number: 1, New: func(Scope) any { return &countV1{Version: 1} }},
		Version{Number: 2, New: func(Scope) any { return &countV2{Version: 2, Label: "n/a"} },
			Migrate: func(prev any, _ Scope) (any, error) {
				v1 := prev.(*countV1)
				return &countV2{Version: 2, Count: v1.Count, Label: "n/a"}, nil
			}},
		Version{Number: 3, New: func(Scope) any { return &countV3{Version: 3} },
			Migrate: func(prev any, _ Scope) (any, error) {
				v2 := prev.(*countV2)
				return &countV3{Version: 3, Total: v2.Count * 10, Label: v2.Label}, nil
			}},
	)
}

func TestRunLoadsMigratesAndPersists(t *testing.T) {
	store := newFakeStore()
	store.records["chat"] = []byte(`{"version":1,"count":5}`)
	m := testManager(store)

	err := m.Run(context.Background(), Scope{ChatID: 1, UserID: 2}, func(turn *Turn) error {
		counter, ok := Get[*countV3](turn, "counter")
		if !ok {
			t.Fatal("counter slot not loaded")
		}
		if counter.Total != 50 || counter.Label != "n/a" {
			t.Errorf("unexpected migrated counter: %+v", counter)
		}
		counter.Total = 60
		return nil
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	want := `{"version":3,"total":60,"label":"n/a"}`
	if got := string(store.records["chat"]); got != want {
		t.Errorf("persisted record = %s, want %s", got, want)
	}
	// The user-scoped slot was loaded too and rewritten at latest.
	if _, ok := store.records["user"]; !ok {
		t.Error("user slot not persisted")
	}
}

func TestRunSkipsSlotWithoutKey(t *testing.T) {
	store := newFakeStore()
	m := testManager(store)

	err := m.Run(context.Background(), Scope{ChatID: 1}, func(turn *Turn) error {
		if _, ok := turn.Value("other"); ok {
			t.Error("user-scoped slot loaded without a user in scope")
		}
		if _, ok := turn.Value("counter"); !ok {
			t.Error("chat-scoped slot missing")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if _, ok := store.records["user"]; ok {
		t.Error("skipped slot must not be persisted")
	}
}

func TestRunBootstrapsMissingRecord(t *testing.T) {
	store := newFakeStore()
	m := testManager(store)

	err := m.Run(context.Background(), Scope{ChatID: 1}, func(turn *Turn) error {
		counter, _ := Get[*countV3](turn, "counter")
		if counter == nil || counter.Version != 3 {
			t.Fatalf("expected latest default, got %+v", counter)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if string(store.records["chat"]) != `{"version":3,"total":0,"label":""}` {
		t.Errorf("unexpected bootstrap record: %s", store.records["chat"])
	}
}

func TestRunLoadFailureAbortsBeforeBusinessLogic(t *testing.T) {
	store := newFakeStore()
	store.getErr = errors.New("store down")
	m := testManager(store)

	invoked := false
	err := m.Run(context.Background(), Scope{ChatID: 1}, func(*Turn) error {
		invoked = true
		return nil
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if invoked {
		t.Error("business logic ran despite load failure")
	}
}

func TestRunUnknownVersionAbortsTurn(t *testing.T) {
	store := newFakeStore()
	store.records["chat"] = []byte(`{"version":42}`)
	m := testManager(store)

	err := m.Run(context.Background(), Scope{ChatID: 1}, func(*Turn) error {
		t.Error("business logic must not run")
		return nil
	})
	if !errors.Is(err, ErrUnknownVersion) {
		t.Fatalf("expected ErrUnknownVersion, got %v", err)
	}
}

func TestRunClearedSlotIsDeleted(t *testing.T) {
	store := newFakeStore()
	store.records["chat"] = []byte(`{"version":3,"total":10,"label":"x"}`)
	m := testManager(store)

	err := m.Run(context.Background(), Scope{ChatID: 1}, func(turn *Turn) error {
		turn.Clear("counter")
		return nil
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if _, ok := store.records["chat"]; ok {
		t.Error("cleared slot still present in store")
	}
}

func TestRunPersistsEvenWhenBusinessLogicFails(t *testing.T) {
	store := newFakeStore()
	m := testManager(store)
	businessErr := errors.New("downstream failed")

	err := m.Run(context.Background(), Scope{ChatID: 1}, func(turn *Turn) error {
		counter, _ := Get[*countV3](turn, "counter")
		counter.Total = 99
		return businessErr
	})
	if !errors.Is(err, businessErr) {
		t.Fatalf("expected business error surfaced, got %v", err)
	}
	if string(store.records["chat"]) != `{"version":3,"total":99,"label":""}` {
		t.Errorf("mutation not persisted: %s", store.records["chat"])
	}
}

func TestRunPersistFailureSurfaced(t *testing.T) {
	store := newFakeStore()
	store.setErr = errors.New("write refused")
	m := testManager(store)

	err := m.Run(context.Background(), Scope{ChatID: 1}, func(*Turn) error { return nil })
	if !errors.Is(err, store.setErr) {
		t.Fatalf("expected persist error surfaced, got %v", err)
	}
}

func TestForgetDeletesDerivableSlots(t *testing.T) {
	store := newFakeStore()
	store.records["chat"] = []byte(`{"version":3}`)
	store.records["user"] = []byte(`{"version":3}`)
	m := testManager(store)

	// Chat-only scope: the user slot has no derivable key and stays.
	if err := m.Forget(context.Background(), Scope{ChatID: 1}); err != nil {
		t.Fatalf("forget failed: %v", err)
	}
	if _, ok := store.records["chat"]; ok {
		t.Error("chat slot not deleted")
	}
	if _, ok := store.records["user"]; !ok {
		t.Error("user slot deleted without derivable key")
	}
}
