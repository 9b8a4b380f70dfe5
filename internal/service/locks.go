package service

import (
	"slices"
	"sync"
)

// KeyLocks hands out per-key mutexes. Lock acquires several keys in sorted
// order, so two callers locking the same pair in opposite order cannot
// deadlock.
type KeyLocks struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func NewKeyLocks() *KeyLocks {
	return &KeyLocks{locks: make(map[string]*keyLock)}
}

// Lock blocks until every key is held and returns the function releasing them.
func (l *KeyLocks) Lock(keys ...string) (unlock func()) {
	keys = slices.Clone(keys)
	slices.Sort(keys)
	keys = slices.Compact(keys)

	held := make([]*keyLock, len(keys))
	for i, key := range keys {
		l.mu.Lock()
		kl, ok := l.locks[key]
		if !ok {
			kl = &keyLock{}
			l.locks[key] = kl
		}
		kl.refs++
		l.mu.Unlock()

		kl.mu.Lock()
		held[i] = kl
	}

	return func() {
		for i := len(keys) - 1; i >= 0; i-- {
			held[i].mu.Unlock()
			l.mu.Lock()
			held[i].refs--
			if held[i].refs == 0 {
				delete(l.locks, keys[i])
			}
			l.mu.Unlock()
		}
	}
}

// size reports the number of live lock entries.
func (l *KeyLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
