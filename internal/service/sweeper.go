package service

import (
	"context"
	"encoding/json"
	"time"

	"casino-core/internal/core/domain"
	"casino-core/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Sweeper finalises PENDING bets whose round state outlived its deadline.
// They settle as losses through the same conditional update a late player
// action would use, so whichever write takes the wallet lock first wins.
// With bonus expiry enabled it also closes grants past their deadline.
type Sweeper struct {
	bets     ports.BetRepository
	expirer  betExpirer
	bonuses  ports.BonusRepository
	grants   grantExpirer
	audit    ports.AuditService
	interval time.Duration
	batch    int
	now      func() time.Time
	log      zerolog.Logger
}

type betExpirer interface {
	ExpireBet(ctx context.Context, bet domain.Bet) (bool, error)
}

type grantExpirer interface {
	ExpireBonus(ctx context.Context, grantID uuid.UUID) (bool, error)
}

// NewSweeper creates a new Sweeper.
func NewSweeper(bets ports.BetRepository, expirer betExpirer, audit ports.AuditService, interval time.Duration, batch int, log zerolog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if batch <= 0 {
		batch = 100
	}
	return &Sweeper{
		bets:     bets,
		expirer:  expirer,
		audit:    audit,
		interval: interval,
		batch:    batch,
		now:      func() time.Time { return time.Now().UTC() },
		log:      log,
	}
}

// WithBonusExpiry makes every sweep also expire overdue bonus grants.
func (s *Sweeper) WithBonusExpiry(bonuses ports.BonusRepository, grants grantExpirer) *Sweeper {
	s.bonuses, s.grants = bonuses, grants
	return s
}

// Run sweeps every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info().Dur("interval", s.interval).Msg("bet sweeper started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("bet sweeper stopped")
			return nil
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				s.log.Error().Err(err).Msg("bet sweep failed")
			}
			if _, err := s.ExpireBonusesOnce(ctx); err != nil {
				s.log.Error().Err(err).Msg("bonus sweep failed")
			}
		}
	}
}

// SweepOnce expires one batch and returns how many bets it finalised.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	expired, err := s.bets.ListExpiredPending(ctx, s.now(), s.batch)
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, bet := range expired {
		ok, err := s.expirer.ExpireBet(ctx, bet)
		if err != nil {
			s.log.Error().Err(err).Str("bet_id", bet.ID.String()).Msg("failed to expire bet")
			continue
		}
		if !ok {
			continue
		}
		swept++

		if s.audit != nil {
			userID := bet.UserID
			details, _ := json.Marshal(map[string]any{"game": bet.GameCode, "amount": bet.Amount})
			s.audit.Log(ctx, &domain.AuditLog{
				UserID:       &userID,
				Action:       domain.AuditActionSweep,
				ResourceType: "bet",
				ResourceID:   bet.ID.String(),
				Details:      string(details),
			})
		}
	}

	if swept > 0 {
		s.log.Info().Int("swept", swept).Int("candidates", len(expired)).Msg("expired bets settled as losses")
	}
	return swept, nil
}

// ExpireBonusesOnce expires one batch of overdue grants and returns how many
// it closed. It does nothing unless WithBonusExpiry was called.
func (s *Sweeper) ExpireBonusesOnce(ctx context.Context) (int, error) {
	if s.bonuses == nil || s.grants == nil {
		return 0, nil
	}
	due, err := s.bonuses.ListExpired(ctx, s.now(), s.batch)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, g := range due {
		ok, err := s.grants.ExpireBonus(ctx, g.ID)
		if err != nil {
			s.log.Error().Err(err).Str("grant_id", g.ID.String()).Msg("failed to expire bonus grant")
			continue
		}
		if !ok {
			continue
		}
		expired++

		if s.audit != nil {
			userID := g.UserID
			details, _ := json.Marshal(map[string]any{"amount": g.Amount, "progress": g.Progress, "requirement": g.Requirement})
			s.audit.Log(ctx, &domain.AuditLog{
				UserID:       &userID,
				Action:       domain.AuditActionSweep,
				ResourceType: "bonus_grant",
				ResourceID:   g.ID.String(),
				Details:      string(details),
			})
		}
	}

	if expired > 0 {
		s.log.Info().Int("expired", expired).Int("candidates", len(due)).Msg("overdue bonus grants expired")
	}
	return expired, nil
}
