// Package memory is an in-process storage driver. All transactions are
// serialised, so a transaction holds every wallet lock at once; writes are
// applied in place and undone on rollback.
package memory

import (
	"context"
	"errors"
	"sync"

	"casino-core/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var errNotInTx = errors.New("memory: write outside a transaction")

// Store holds every table of the memory driver.
type Store struct {
	sem chan struct{}

	mu          sync.RWMutex
	wallets     map[int64]*domain.Wallet
	entries     map[int64][]domain.Transaction
	seq         int64
	bets        map[uuid.UUID]*domain.Bet
	seeds       map[uuid.UUID]*domain.SeedPair
	bonuses     map[uuid.UUID]*domain.BonusGrant
	settlements map[string]*domain.ExternalSettlement
	settledKeys []string // settlement keys in insertion order
	audit       []domain.AuditLog
	players     map[int64]*domain.Player
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		sem:         make(chan struct{}, 1),
		wallets:     make(map[int64]*domain.Wallet),
		entries:     make(map[int64][]domain.Transaction),
		bets:        make(map[uuid.UUID]*domain.Bet),
		seeds:       make(map[uuid.UUID]*domain.SeedPair),
		bonuses:     make(map[uuid.UUID]*domain.BonusGrant),
		settlements: make(map[string]*domain.ExternalSettlement),
		players:     make(map[int64]*domain.Player),
	}
}

// Begin waits for the store-wide lock and opens a transaction.
func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	select {
	case s.sem <- struct{}{}:
		return &Tx{store: s}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Name implements ports.HealthChecker.
func (s *Store) Name() string { return "memory" }

// Ping implements ports.HealthChecker.
func (s *Store) Ping(context.Context) error { return nil }

// Tx is a memory transaction. Only Commit and Rollback are implemented;
// the embedded pgx.Tx is nil and panics if anything else is called.
type Tx struct {
	pgx.Tx
	store *Store
	undo  []func()
	done  bool
}

func (t *Tx) Commit(context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.undo = nil
	<-t.store.sem
	return nil
}

func (t *Tx) Rollback(context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.store.mu.Lock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.store.mu.Unlock()
	t.undo = nil
	<-t.store.sem
	return nil
}

// write runs fn under the map lock and records its inverse on tx.
func (s *Store) write(tx pgx.Tx, fn func() (undo func())) error {
	mtx, ok := tx.(*Tx)
	if !ok || mtx.done || mtx.store != s {
		return errNotInTx
	}
	s.mu.Lock()
	u := fn()
	s.mu.Unlock()
	if u != nil {
		mtx.undo = append(mtx.undo, u)
	}
	return nil
}

// SetPlayer registers or replaces a player record.
func (s *Store) SetPlayer(p domain.Player) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := p
	s.players[p.ID] = &cp
}

// AuditLogs returns a copy of the audit trail.
func (s *Store) AuditLogs() []domain.AuditLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.AuditLog(nil), s.audit...)
}
