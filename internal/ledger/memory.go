package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore keeps accounts and logs in process memory. A unit of work
// journals the inverse of every write and replays the journal when it fails.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]*Account
	logs     map[string]map[string]*memEntry
	seq      int64
}

type memEntry struct {
	seq int64
	t   *Transaction
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]*Account),
		logs:     make(map[string]map[string]*memEntry),
	}
}

// Atomic runs fn and undoes its writes if it fails. Isolation between
// concurrent units of work comes from the caller's account locks.
func (s *MemoryStore) Atomic(ctx context.Context, lock []string, fn func(ctx context.Context, tx Tx) error) error {
	tx := &memTx{s: s}
	if err := fn(ctx, tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

func (s *MemoryStore) Close() error { return nil }

type memTx struct {
	s    *MemoryStore
	undo []func()
}

func (tx *memTx) Accounts() AccountStore { return memAccounts{tx} }

func (tx *memTx) Log(accountID string) TransactionLog { return memLog{tx: tx, accountID: accountID} }

// journal must be called with s.mu held.
func (tx *memTx) journal(f func()) {
	tx.undo = append(tx.undo, f)
}

func (tx *memTx) rollback() {
	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
}

type memAccounts struct {
	tx *memTx
}

func (m memAccounts) Get(ctx context.Context, id string) (*Account, error) {
	s := m.tx.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}
	return a.clone(), nil
}

func (m memAccounts) Exists(ctx context.Context, id string) (bool, error) {
	s := m.tx.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.accounts[id]
	return ok, nil
}

func (m memAccounts) SetBalances(ctx context.Context, id string, b Balances) error {
	s := m.tx.s
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}
	prev := a.Balances
	a.Balances = b
	m.tx.journal(func() { a.Balances = prev })
	return nil
}

func (m memAccounts) Create(ctx context.Context, a *Account) error {
	s := m.tx.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[a.ID]; ok {
		return fmt.Errorf("%w: %s", ErrAccountExists, a.ID)
	}
	stored := a.clone()
	stored.URI = ""
	s.accounts[a.ID] = stored
	s.logs[a.ID] = make(map[string]*memEntry)
	m.tx.journal(func() {
		delete(s.accounts, a.ID)
		delete(s.logs, a.ID)
	})
	return nil
}

func (m memAccounts) Update(ctx context.Context, a *Account) error {
	s := m.tx.s
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.accounts[a.ID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, a.ID)
	}
	prev := *cur
	cur.Name = a.Name
	cur.Type = a.Type
	cur.BankName = a.BankName
	cur.AccountNum = a.AccountNum
	cur.BudgetMonitored = a.BudgetMonitored
	m.tx.journal(func() { *cur = prev })
	return nil
}

func (m memAccounts) Delete(ctx context.Context, id string) error {
	s := m.tx.s
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}
	log := s.logs[id]
	delete(s.accounts, id)
	delete(s.logs, id)
	m.tx.journal(func() {
		s.accounts[id] = a
		s.logs[id] = log
	})
	return nil
}

func (m memAccounts) List(ctx context.Context) ([]*Account, error) {
	s := m.tx.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a.clone())
	}
	return out, nil
}

type memLog struct {
	tx        *memTx
	accountID string
}

func (l memLog) Insert(ctx context.Context, t *Transaction) error {
	s := l.tx.s
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, ok := s.logs[l.accountID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, l.accountID)
	}
	if _, dup := entries[t.ID]; dup {
		return fmt.Errorf("transaction %s already exists in %s", t.ID, l.accountID)
	}
	s.seq++
	stored := t.clone()
	stored.URI = ""
	entries[t.ID] = &memEntry{seq: s.seq, t: stored}
	l.tx.journal(func() { delete(entries, t.ID) })
	return nil
}

func (l memLog) Get(ctx context.Context, id string) (*Transaction, error) {
	s := l.tx.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.logs[l.accountID][id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTransactionNotFound, id)
	}
	return e.t.clone(), nil
}

func (l memLog) Update(ctx context.Context, t *Transaction) error {
	s := l.tx.s
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.logs[l.accountID][t.ID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTransactionNotFound, t.ID)
	}
	prev := e.t
	stored := t.clone()
	stored.URI = ""
	e.t = stored
	l.tx.journal(func() { e.t = prev })
	return nil
}

func (l memLog) Remove(ctx context.Context, id string) (bool, error) {
	s := l.tx.s
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.logs[l.accountID]
	e, ok := entries[id]
	if !ok {
		return false, nil
	}
	delete(entries, id)
	l.tx.journal(func() { entries[id] = e })
	return true, nil
}

func (l memLog) Query(ctx context.Context, q Query) ([]*Transaction, error) {
	s := l.tx.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*memEntry, 0, len(s.logs[l.accountID]))
	for _, e := range s.logs[l.accountID] {
		if q.From != nil && e.t.Date.Before(q.From.Time) {
			continue
		}
		if q.To != nil && e.t.Date.After(q.To.Time) {
			continue
		}
		matched = append(matched, e)
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.t.Date.Equal(b.t.Date.Time) {
			return a.t.Date.After(b.t.Date.Time)
		}
		return a.seq > b.seq
	})
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	out := make([]*Transaction, len(matched))
	for i, e := range matched {
		out[i] = e.t.clone()
	}
	return out, nil
}
