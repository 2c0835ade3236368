package session

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// versionProbe reads only the version tag of a stored record. Records
// written before versioning was introduced carry no tag and decode to
// zero, which Upgrade treats as version 1.
type versionProbe struct {
	Version int `json:"version"`
}

// Upgrade folds a raw stored record forward to the chain's latest
// version and returns the typed, behavior-restored instance.
//
// A nil raw means no record exists yet: the latest version's factory
// output is returned directly and no migration step runs. Otherwise
// the record's declared version is located in the chain, the raw JSON
// is overlaid onto that version's freshly constructed default (so
// fields absent from storage keep their defaults and methods live on
// the struct, not in the blob), and the result is threaded through
// every subsequent version's Migrate in order.
//
// Upgrade is pure apart from the factories it calls: it performs no
// I/O and never suspends, so its correctness does not depend on how
// concurrent turns interleave.
func Upgrade(chain *Chain, raw []byte, scope Scope) (any, error) {
	if raw == nil {
		return chain.Latest().New(scope), nil
	}

	if !json.Valid(raw) || !startsObject(raw) {
		return nil, fmt.Errorf("slot %q: stored record is not a JSON object", chain.slot)
	}
	var probe versionProbe
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("slot %q: probe stored record: %w", chain.slot, err)
	}
	declared := probe.Version
	if declared == 0 {
		declared = 1 // legacy untagged record
	}

	ver, ok := chain.at(declared)
	if !ok {
		return nil, fmt.Errorf("slot %q: %w: record declares v%d, chain ends at v%d",
			chain.slot, ErrUnknownVersion, declared, chain.Latest().Number)
	}

	cur := ver.New(scope)
	if err := json.Unmarshal(raw, cur); err != nil {
		return nil, fmt.Errorf("slot %q: overlay record onto v%d: %w", chain.slot, declared, err)
	}

	for _, next := range chain.versions[declared:] {
		migrated, err := next.Migrate(cur, scope)
		if err != nil {
			return nil, fmt.Errorf("slot %q: migrate v%d: %w", chain.slot, next.Number, err)
		}
		cur = migrated
	}
	return cur, nil
}

func startsObject(raw []byte) bool {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '{'
}
