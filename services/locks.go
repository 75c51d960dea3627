package services

import (
	"sort"
	"sync"
)

// KeyedLocker hands out one mutex per resource id. Locks for several ids are
// always taken in sorted order.
type KeyedLocker struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{locks: make(map[string]*keyedEntry)}
}

// Lock acquires every key and returns the matching unlock func.
func (k *KeyedLocker) Lock(keys ...string) func() {
	sorted := dedupeSorted(keys)
	entries := make([]*keyedEntry, 0, len(sorted))

	k.mu.Lock()
	for _, key := range sorted {
		e, ok := k.locks[key]
		if !ok {
			e = &keyedEntry{}
			k.locks[key] = e
		}
		e.refs++
		entries = append(entries, e)
	}
	k.mu.Unlock()

	for _, e := range entries {
		e.mu.Lock()
	}

	return func() {
		for i := len(entries) - 1; i >= 0; i-- {
			entries[i].mu.Unlock()
		}
		k.mu.Lock()
		for i, key := range sorted {
			entries[i].refs--
			if entries[i].refs == 0 {
				delete(k.locks, key)
			}
		}
		k.mu.Unlock()
	}
}

func dedupeSorted(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
