package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"casino-core/internal/core/domain"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// RoundStore implements ports.RoundStore. Multi-step round state lives here
// rather than in the database; each key expires with its round so orphans
// left by a failed settlement disappear on their own.
type RoundStore struct {
	client goredis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewRoundStore(client goredis.UniversalClient) *RoundStore {
	return &RoundStore{client: client, prefix: "round:", now: time.Now}
}

// Get returns nil, nil when the round is unknown or expired.
func (s *RoundStore) Get(ctx context.Context, betID uuid.UUID) (*domain.RoundState, error) {
	raw, err := s.client.Get(ctx, s.prefix+betID.String()).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis round get: %w", err)
	}
	var state domain.RoundState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("decode round %s: %w", betID, err)
	}
	return &state, nil
}

func (s *RoundStore) Save(ctx context.Context, state *domain.RoundState) error {
	ttl := state.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return fmt.Errorf("round %s already expired", state.BetID)
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode round %s: %w", state.BetID, err)
	}
	if err := s.client.Set(ctx, s.prefix+state.BetID.String(), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis round save: %w", err)
	}
	return nil
}

func (s *RoundStore) Delete(ctx context.Context, betID uuid.UUID) error {
	if err := s.client.Del(ctx, s.prefix+betID.String()).Err(); err != nil {
		return fmt.Errorf("redis round delete: %w", err)
	}
	return nil
}
