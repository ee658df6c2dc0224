package memory

import (
	"context"

	"casino-core/internal/core/domain"
)

// Directory implements ports.UserDirectory. A user with a wallet and no
// explicit record is an active player at VIP level 0.
type Directory struct {
	s *Store
}

func NewDirectory(s *Store) *Directory {
	return &Directory{s: s}
}

func (d *Directory) GetPlayer(_ context.Context, userID int64) (*domain.Player, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()
	if p, ok := d.s.players[userID]; ok {
		cp := *p
		return &cp, nil
	}
	if _, ok := d.s.wallets[userID]; ok {
		return &domain.Player{ID: userID, Active: true}, nil
	}
	return nil, nil
}
