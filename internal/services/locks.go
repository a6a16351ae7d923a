package services

import (
	"sort"
	"sync"
)

// keyedLocker hands out one mutex per user id. Entries are reference counted
// and dropped once nobody holds or waits on them.
type keyedLocker struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedLocker() *keyedLocker {
	return &keyedLocker{locks: make(map[string]*keyedLock)}
}

// Lock acquires every non-empty key in sorted order so two callers locking the
// same pair can never deadlock. The returned func releases them all.
func (l *keyedLocker) Lock(keys ...string) func() {
	ids := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		ids = append(ids, k)
	}
	sort.Strings(ids)

	held := make([]*keyedLock, len(ids))
	for i, id := range ids {
		l.mu.Lock()
		entry, ok := l.locks[id]
		if !ok {
			entry = &keyedLock{}
			l.locks[id] = entry
		}
		entry.refs++
		l.mu.Unlock()

		entry.mu.Lock()
		held[i] = entry
	}

	return func() {
		for i := len(ids) - 1; i >= 0; i-- {
			held[i].mu.Unlock()

			l.mu.Lock()
			held[i].refs--
			if held[i].refs == 0 {
				delete(l.locks, ids[i])
			}
			l.mu.Unlock()
		}
	}
}

func (l *keyedLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
