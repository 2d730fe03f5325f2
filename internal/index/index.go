// Package index maintains the sync index: a multi-map from
// (concept, action) to the compiled syncs that reference that pair in any
// of their when-clauses.
//
// The index is keyed only on concept and action - the engine must still
// verify literal and binding constraints on the candidates it gets back.
// Writes happen only on (re)registration and exclude concurrent lookups.
package index

import (
	"fmt"
	"sync"

	"github.com/weftlabs/weft/internal/ir"
)

// Key identifies one (concept, action) pair.
type Key struct {
	Concept string
	Action  string
}

// Warning reports an unresolved concept or action reference found at
// registration time. Registration still succeeds so the rest of the sync
// suite remains usable.
type Warning struct {
	Sync   string
	Ref    string
	Reason string
}

func (w Warning) String() string {
	return fmt.Sprintf("sync %q: %s: %s", w.Sync, w.Ref, w.Reason)
}

// Index is the registry of compiled syncs.
type Index struct {
	mu      sync.RWMutex
	byKey   map[Key][]*ir.CompiledSync
	byName  map[string]*ir.CompiledSync
	actions map[Key]bool // declared (concept, action) pairs from manifests
}

// New creates an empty index over the given concept manifests. The
// manifests are only used to resolve sync references; their parameter and
// variant schemas are not interpreted.
func New(manifests []ir.ConceptManifest) *Index {
	idx := &Index{
		byKey:   make(map[Key][]*ir.CompiledSync),
		byName:  make(map[string]*ir.CompiledSync),
		actions: make(map[Key]bool),
	}
	for _, m := range manifests {
		for _, a := range m.Actions {
			idx.actions[Key{Concept: m.URI, Action: a.Name}] = true
		}
	}
	return idx
}

// Register inserts a sync under every (concept, action) its when-clauses
// mention. Re-registering a sync with the same name replaces its prior
// entry. Differently-named syncs expressing the same rule are not
// de-duplicated - that is a modeling choice left to sync authors.
//
// Returned warnings list unresolved concept/action references; they do not
// fail registration.
func (idx *Index) Register(sync ir.CompiledSync) []Warning {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if prev, ok := idx.byName[sync.Name]; ok {
		idx.removeLocked(prev)
	}

	registered := &sync
	idx.byName[sync.Name] = registered

	warnings := idx.checkRefs(registered)

	seen := make(map[Key]bool, len(sync.When))
	for _, when := range sync.When {
		key := Key{Concept: when.Concept, Action: when.Action}
		if seen[key] {
			continue // a sync appears once per key even with repeated clauses
		}
		seen[key] = true
		idx.byKey[key] = append(idx.byKey[key], registered)
	}

	return warnings
}

// Lookup returns the syncs that mention (concept, action) in any
// when-clause. These are candidates only: the engine verifies literal and
// binding constraints.
func (idx *Index) Lookup(concept, action string) []*ir.CompiledSync {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	found := idx.byKey[Key{Concept: concept, Action: action}]
	out := make([]*ir.CompiledSync, len(found))
	copy(out, found)
	return out
}

// Get returns a registered sync by name.
func (idx *Index) Get(name string) (*ir.CompiledSync, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	s, ok := idx.byName[name]
	return s, ok
}

// All returns every registered sync in no particular order.
func (idx *Index) All() []*ir.CompiledSync {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make([]*ir.CompiledSync, 0, len(idx.byName))
	for _, s := range idx.byName {
		out = append(out, s)
	}
	return out
}

// removeLocked drops a sync from every key bucket. Caller holds the lock.
func (idx *Index) removeLocked(sync *ir.CompiledSync) {
	for _, when := range sync.When {
		key := Key{Concept: when.Concept, Action: when.Action}
		bucket := idx.byKey[key]
		for i, s := range bucket {
			if s == sync {
				idx.byKey[key] = append(bucket[:i:i], bucket[i+1:]...)
				break
			}
		}
		if len(idx.byKey[key]) == 0 {
			delete(idx.byKey, key)
		}
	}
	delete(idx.byName, sync.Name)
}

// checkRefs validates a sync's when and then references against the
// declared manifests. An empty manifest set disables checking (the index
// can run without manifests in tests). Caller holds the lock.
func (idx *Index) checkRefs(sync *ir.CompiledSync) []Warning {
	if len(idx.actions) == 0 {
		return nil
	}

	var warnings []Warning
	check := func(concept, action string) {
		if !idx.actions[Key{Concept: concept, Action: action}] {
			warnings = append(warnings, Warning{
				Sync:   sync.Name,
				Ref:    fmt.Sprintf("%s/%s", concept, action),
				Reason: "unresolved concept/action reference",
			})
		}
	}
	for _, when := range sync.When {
		check(when.Concept, when.Action)
	}
	for _, then := range sync.Then {
		check(then.Concept, then.Action)
	}
	return warnings
}
