// Package locking provides per-key mutual exclusion so that mutations of the
// same durable resource are serialized without contending unrelated resources.
package locking

import (
	"sort"
	"sync"
)

// KeyMutex hands out one mutex per string key. Entries are reference-counted
// and removed when the last holder unlocks, so the map does not grow with the
// total number of keys ever seen.
type KeyMutex struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func NewKeyMutex() *KeyMutex {
	return &KeyMutex{locks: make(map[string]*entry)}
}

// Lock acquires the mutex for key and returns the matching unlock function.
func (k *KeyMutex) Lock(key string) func() {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// LockPair acquires two keys in a stable order to avoid lock-order deadlocks
// when one logical operation spans two resources. The returned unlock releases
// both.
func (k *KeyMutex) LockPair(a, b string) func() {
	return k.LockKeys(a, b)
}

// LockKeys acquires every distinct key in sorted order, so operations that
// span several resources cannot deadlock each other. The returned unlock
// releases them in reverse order.
func (k *KeyMutex) LockKeys(keys ...string) func() {
	uniq := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		uniq = append(uniq, key)
	}
	sort.Strings(uniq)

	unlocks := make([]func(), len(uniq))
	for i, key := range uniq {
		unlocks[i] = k.Lock(key)
	}
	return func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
}

// Size reports the number of live entries, for tests.
func (k *KeyMutex) Size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
