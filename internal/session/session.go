// Package session persists per-chat and per-user conversational state
// across a long-lived, self-modifying schema. Stored records written by
// any historical build are upgraded to the current shape on every read
// by folding them through an ordered chain of schema versions.
package session

import (
	"errors"
	"fmt"
)

// ErrUnknownVersion means a stored record declares a schema version
// that is not present in the slot's chain. Loading must fail rather
// than guess: coercing such a record to a default would silently
// discard the user's real history.
var ErrUnknownVersion = errors.New("unknown schema version")

// Scope identifies the owner of a turn's session slots. A zero ChatID
// or UserID means the corresponding identifier is not available for
// this turn (e.g. a channel post has no user).
type Scope struct {
	ChatID int64
	UserID int64
}

// Version describes one historical shape of a slot.
//
// New builds a self-consistent default instance of this version's
// shape: collections initialized, derived state computable, version
// tag set. The returned value must be a pointer to a struct so that
// stored JSON can be overlaid onto it.
//
// Migrate consumes an instance of the immediately preceding version
// and returns a fully populated instance of this version. It is nil
// for the first version of a chain and required for every later one.
// Migrate decides which prior fields to carry, drop or transform; the
// engine only sequences the calls. The scope carries the owning chat
// and user identifiers so that fields introduced after the record was
// written can still be populated — prior versions may never have
// stored them.
type Version struct {
	Number  int
	New     func(scope Scope) any
	Migrate func(prev any, scope Scope) (any, error)
}

// Chain is the append-only, totally ordered version history of one
// slot. Versions are numbered 1..N with no gaps; appending a new
// version never alters the behavior of previously appended ones.
type Chain struct {
	slot     string
	versions []Version
}

// NewChain validates and assembles a slot's version chain.
func NewChain(slot string, versions ...Version) (*Chain, error) {
	if slot == "" {
		return nil, fmt.Errorf("chain: empty slot name")
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("chain %q: no versions", slot)
	}
	for i, v := range versions {
		if v.Number != i+1 {
			return nil, fmt.Errorf("chain %q: version at index %d numbered %d, want %d", slot, i, v.Number, i+1)
		}
		if v.New == nil {
			return nil, fmt.Errorf("chain %q: version %d has no factory", slot, v.Number)
		}
		if i == 0 && v.Migrate != nil {
			return nil, fmt.Errorf("chain %q: first version must not have a migration", slot)
		}
		if i > 0 && v.Migrate == nil {
			return nil, fmt.Errorf("chain %q: version %d has no migration", slot, v.Number)
		}
	}
	return &Chain{slot: slot, versions: versions}, nil
}

// MustChain is NewChain for package-level chain variables; a broken
// chain is a programming error, not a runtime condition.
func MustChain(slot string, versions ...Version) *Chain {
	c, err := NewChain(slot, versions...)
	if err != nil {
		panic(err)
	}
	return c
}

// Slot returns the slot name this chain versions.
func (c *Chain) Slot() string { return c.slot }

// Latest returns the current (highest-numbered) version.
func (c *Chain) Latest() Version { return c.versions[len(c.versions)-1] }

// at returns the version numbered n, if present.
func (c *Chain) at(n int) (Version, bool) {
	if n < 1 || n > len(c.versions) {
		return Version{}, false
	}
	return c.versions[n-1], true
}
