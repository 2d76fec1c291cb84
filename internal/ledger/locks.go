package ledger

import (
	"sort"
	"sync"
)

// AccountLocks hands out one exclusive section per account id. An entry
// lives only while some caller holds or waits on it.
type AccountLocks struct {
	mu    sync.Mutex
	locks map[string]*accountLock
}

type accountLock struct {
	sync.RWMutex
	refs int
}

func NewAccountLocks() *AccountLocks {
	return &AccountLocks{locks: make(map[string]*accountLock)}
}

func (l *AccountLocks) acquire(id string) *accountLock {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.locks[id]
	if !ok {
		m = &accountLock{}
		l.locks[id] = m
	}
	m.refs++
	return m
}

func (l *AccountLocks) release(id string, m *accountLock) {
	l.mu.Lock()
	defer l.mu.Unlock()

	m.refs--
	if m.refs == 0 {
		delete(l.locks, id)
	}
}

// Len reports how many account entries are currently held or awaited.
func (l *AccountLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

// Lock takes the exclusive section of every id in LockOrder and returns a
// function that releases them.
func (l *AccountLocks) Lock(ids ...string) func() {
	return l.take(LockOrder(ids...), false)
}

// RLock takes the shared section of one account.
func (l *AccountLocks) RLock(id string) func() {
	return l.take([]string{id}, true)
}

// RLockAll takes the shared sections of ids in LockOrder.
func (l *AccountLocks) RLockAll(ids ...string) func() {
	return l.take(LockOrder(ids...), true)
}

func (l *AccountLocks) take(ordered []string, shared bool) func() {
	held := make([]*accountLock, 0, len(ordered))
	for _, id := range ordered {
		m := l.acquire(id)
		if shared {
			m.RLock()
		} else {
			m.Lock()
		}
		held = append(held, m)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			for i := len(held) - 1; i >= 0; i-- {
				if shared {
					held[i].RUnlock()
				} else {
					held[i].Unlock()
				}
				l.release(ordered[i], held[i])
			}
		})
	}
}

// LockOrder returns ids deduplicated, without empties, in ascending order.
// Every multi-account section is acquired in this order so two transfers
// between the same accounts in opposite directions cannot deadlock.
func LockOrder(ids ...string) []string {
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
