package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"casino-core/internal/core/domain"

	"github.com/google/uuid"
)

// RoundStore implements ports.RoundStore in process. States are stored
// encoded so callers never share a slice with the store.
type RoundStore struct {
	mu     sync.Mutex
	states map[uuid.UUID][]byte
	expiry map[uuid.UUID]time.Time
	now    func() time.Time
}

func NewRoundStore() *RoundStore {
	return &RoundStore{
		states: make(map[uuid.UUID][]byte),
		expiry: make(map[uuid.UUID]time.Time),
		now:    time.Now,
	}
}

func (r *RoundStore) Get(_ context.Context, betID uuid.UUID) (*domain.RoundState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	raw, ok := r.states[betID]
	if !ok {
		return nil, nil
	}
	if !r.now().Before(r.expiry[betID]) {
		delete(r.states, betID)
		delete(r.expiry, betID)
		return nil, nil
	}
	var st domain.RoundState
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("decode round %s: %w", betID, err)
	}
	return &st, nil
}

func (r *RoundStore) Save(_ context.Context, state *domain.RoundState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode round %s: %w", state.BetID, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[state.BetID] = raw
	r.expiry[state.BetID] = state.ExpiresAt
	return nil
}

func (r *RoundStore) Delete(_ context.Context, betID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, betID)
	delete(r.expiry, betID)
	return nil
}

// Len reports the number of stored states, expired ones included.
func (r *RoundStore) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}
