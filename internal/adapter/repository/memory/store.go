// Package memory is an in-process ledger store. A unit of work holds the
// store's write lock from Begin until Commit or Rollback, and Rollback
// restores the snapshot taken at Begin, so readers never observe a partial write.
package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/iho/welth/internal/domain"
	"github.com/iho/welth/internal/usecase"
)

type state struct {
	accounts     map[string]domain.Account
	transactions map[string]domain.Transaction
	budgets      map[string]domain.Budget
	users        map[string]domain.User
}

func (s state) clone() state {
	return state{
		accounts:     maps.Clone(s.accounts),
		transactions: maps.Clone(s.transactions),
		budgets:      maps.Clone(s.budgets),
		users:        maps.Clone(s.users),
	}
}

// Store holds all ledger data in memory.
type Store struct {
	mu sync.RWMutex
	state
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{state: state{
		accounts:     make(map[string]domain.Account),
		transactions: make(map[string]domain.Transaction),
		budgets:      make(map[string]domain.Budget),
		users:        make(map[string]domain.User),
	}}
}

// TxManager implements usecase.TransactionManager.
type TxManager struct {
	store *Store
}

// NewTxManager creates a new TxManager.
func NewTxManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

// Begin takes the write lock and snapshots the store.
func (m *TxManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.store.mu.Lock()
	return &Tx{store: m.store, snapshot: m.store.state.clone()}, nil
}

// Tx is a unit of work over a Store.
type Tx struct {
	store    *Store
	snapshot state
	done     bool
}

// Commit keeps the changes and releases the lock.
func (t *Tx) Commit(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.mu.Unlock()
	return nil
}

// Rollback restores the snapshot and releases the lock. It is a no-op after Commit.
func (t *Tx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.state = t.snapshot
	t.store.mu.Unlock()
	return nil
}

// read runs fn under the read lock.
func (s *Store) read(fn func()) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn()
}

// write runs fn under the write lock, for single-statement writes outside a unit of work.
func (s *Store) write(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

func (s *Store) countTransactions(accountID string) int {
	n := 0
	for _, t := range s.transactions {
		if t.AccountID == accountID {
			n++
		}
	}
	return n
}
