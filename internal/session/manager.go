package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
)

// Store is the opaque key-value persistence consumed by the manager.
// Get returns (nil, nil) when no record exists for the key. Values are
// raw JSON blobs; the manager never interprets them beyond handing
// them to Upgrade.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// SlotConfig binds a version chain to a key-derivation rule. Key
// returns false when the slot has no derivable key for a scope (e.g.
// a user-scoped slot on a turn with no user); the slot is then simply
// omitted from that turn.
//
// Keys index persisted data, so the derivation must stay stable across
// schema versions.
type SlotConfig struct {
	Chain *Chain
	Key   func(Scope) (string, bool)
}

// Manager wraps a conversational turn: it loads the configured slots,
// upgrades them to their latest schema, exposes them mutably to the
// turn's business logic and persists them once the logic completes.
type Manager struct {
	store Store
	slots []SlotConfig
}

func NewManager(store Store, slots ...SlotConfig) *Manager {
	return &Manager{store: store, slots: slots}
}

// Turn carries the loaded, current-version slot objects for one unit
// of conversational work. Objects are mutated in place; they are
// persisted when the turn ends unless cleared.
type Turn struct {
	Scope Scope
	slots map[string]*slotState
}

type slotState struct {
	key     string
	value   any
	cleared bool
}

// Value returns the loaded object for a slot, or false when the slot
// was skipped for this turn.
func (t *Turn) Value(slot string) (any, bool) {
	st, ok := t.slots[slot]
	if !ok || st.cleared {
		return nil, false
	}
	return st.value, true
}

// Clear marks a slot for deletion: at the end of the turn its stored
// record is removed instead of rewritten. Used when business logic
// resets a conversation or tears down a relationship.
func (t *Turn) Clear(slot string) {
	if st, ok := t.slots[slot]; ok {
		st.cleared = true
		st.value = nil
	}
}

// Get returns the slot's object as its concrete current-version type.
func Get[T any](t *Turn, slot string) (T, bool) {
	var zero T
	v, ok := t.Value(slot)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// Run executes one turn. Every configured slot with a derivable key is
// loaded and upgraded before fn runs; a failure in any slot's load
// aborts the turn and fn is never invoked with a partial slot set.
// After fn returns (successfully or not) every still-present slot is
// serialized and written back, cleared slots are deleted. A persist
// failure does not roll back in-memory mutation; it is logged and
// surfaced alongside fn's own error.
func (m *Manager) Run(ctx context.Context, scope Scope, fn func(*Turn) error) error {
	turn := &Turn{Scope: scope, slots: make(map[string]*slotState, len(m.slots))}

	for _, sc := range m.slots {
		key, ok := sc.Key(scope)
		if !ok {
			continue
		}
		raw, err := m.store.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("load slot %q: %w", sc.Chain.Slot(), err)
		}
		obj, err := Upgrade(sc.Chain, raw, scope)
		if err != nil {
			return err
		}
		turn.slots[sc.Chain.Slot()] = &slotState{key: key, value: obj}
	}

	fnErr := fn(turn)

	var persistErr error
	for name, st := range turn.slots {
		if st.cleared {
			if err := m.store.Delete(ctx, st.key); err != nil {
				log.Printf("session: delete slot %q key %q failed: %v", name, st.key, err)
				persistErr = errors.Join(persistErr, fmt.Errorf("delete slot %q: %w", name, err))
			}
			continue
		}
		blob, err := json.Marshal(st.value)
		if err != nil {
			persistErr = errors.Join(persistErr, fmt.Errorf("encode slot %q: %w", name, err))
			continue
		}
		if err := m.store.Set(ctx, st.key, blob); err != nil {
			log.Printf("session: persist slot %q key %q failed: %v", name, st.key, err)
			persistErr = errors.Join(persistErr, fmt.Errorf("persist slot %q: %w", name, err))
		}
	}

	return errors.Join(fnErr, persistErr)
}

// Forget deletes the stored records of the named slots (all configured
// slots when none are named) for a scope. Used when the backing
// relationship ends, e.g. the bot is removed from a group.
func (m *Manager) Forget(ctx context.Context, scope Scope, slots ...string) error {
	named := func(string) bool { return true }
	if len(slots) > 0 {
		want := make(map[string]bool, len(slots))
		for _, s := range slots {
			want[s] = true
		}
		named = func(s string) bool { return want[s] }
	}

	var errs error
	for _, sc := range m.slots {
		if !named(sc.Chain.Slot()) {
			continue
		}
		key, ok := sc.Key(scope)
		if !ok {
			continue
		}
		if err := m.store.Delete(ctx, key); err != nil {
			errs = errors.Join(errs, fmt.Errorf("forget slot %q: %w", sc.Chain.Slot(), err))
		}
	}
	return errs
}
