package service

import (
	"context"
	"fmt"
	"time"

	"casino-core/internal/core/domain"
	"casino-core/internal/core/ports"
	"casino-core/internal/fairness"
	"casino-core/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const (
	maxClientSeedLen   = 64
	defaultSeedHistory = 20
	maxSeedHistory     = 100
)

// SeedServiceImpl implements ports.SeedService. Server seeds are stored
// encrypted and only leave the service in plaintext once revealed.
type SeedServiceImpl struct {
	seeds      ports.SeedRepository
	transactor ports.DBTransactor
	vault      ports.EncryptionService
	now        func() time.Time
	log        zerolog.Logger
}

// NewSeedService creates a new SeedServiceImpl.
func NewSeedService(seeds ports.SeedRepository, transactor ports.DBTransactor, vault ports.EncryptionService, log zerolog.Logger) *SeedServiceImpl {
	return &SeedServiceImpl{
		seeds:      seeds,
		transactor: transactor,
		vault:      vault,
		now:        func() time.Time { return time.Now().UTC() },
		log:        log,
	}
}

// Current returns the active commitment of a user, creating one if the
// user has never played. The server seed is not included.
func (s *SeedServiceImpl) Current(ctx context.Context, userID int64) (*domain.SeedPair, error) {
	pair, err := s.seeds.GetActive(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get active seed: %w", err))
	}
	if pair != nil {
		return public(pair), nil
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	pair, err = s.activeOrCreate(ctx, dbTx, userID)
	if err != nil {
		return nil, err
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return public(pair), nil
}

// Rotate reveals the active pair and commits to a fresh server seed. An
// empty clientSeed gets a random one.
func (s *SeedServiceImpl) Rotate(ctx context.Context, userID int64, clientSeed string) (*ports.SeedRotation, error) {
	if len(clientSeed) > maxClientSeedLen {
		return nil, apperror.Validation(fmt.Sprintf("client_seed must be at most %d characters", maxClientSeedLen))
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	current, err := s.seeds.GetActiveForUpdate(ctx, dbTx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock active seed: %w", err))
	}

	rotation := &ports.SeedRotation{}
	if current != nil {
		at := s.now()
		if err := s.seeds.Reveal(ctx, dbTx, current.ID, at); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("reveal seed: %w", err))
		}
		plain, err := s.vault.Decrypt(current.ServerSeedEnc)
		if err != nil {
			return nil, apperror.ErrEncryptionFailure(err)
		}
		current.ServerSeed = plain
		current.Active = false
		current.RevealedAt = &at
		rotation.Revealed = current
	}

	next, err := s.create(ctx, dbTx, userID, clientSeed)
	if err != nil {
		return nil, err
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	rotation.Next = public(next)

	s.log.Info().
		Int64("user_id", userID).
		Str("next_hash", next.ServerSeedHash).
		Bool("revealed", rotation.Revealed != nil).
		Msg("seed pair rotated")
	return rotation, nil
}

// Draw runs inside the caller's transaction: it locks the active pair,
// validates it, returns it with the nonce this bet uses and stores nonce+1.
func (s *SeedServiceImpl) Draw(ctx context.Context, tx pgx.Tx, userID int64) (*domain.SeedPair, error) {
	pair, err := s.activeOrCreate(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	if pair.ServerSeed == "" {
		plain, err := s.vault.Decrypt(pair.ServerSeedEnc)
		if err != nil {
			return nil, apperror.ErrEncryptionFailure(err)
		}
		pair.ServerSeed = plain
	}
	if err := fairness.ValidatePair(pair.ServerSeed, pair.ServerSeedHash, pair.ClientSeed, pair.Nonce); err != nil {
		s.log.Error().Err(err).Int64("user_id", userID).Str("seed_id", pair.ID.String()).Msg("seed pair rejected")
		return nil, apperror.ErrInvalidSeed(err.Error())
	}

	if err := s.seeds.UpdateNonce(ctx, tx, pair.ID, pair.Nonce+1); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("advance nonce: %w", err))
	}
	return pair, nil
}

// History lists revealed pairs, newest first, with their server seeds.
func (s *SeedServiceImpl) History(ctx context.Context, userID int64, limit int) ([]domain.SeedPair, error) {
	if limit <= 0 {
		limit = defaultSeedHistory
	}
	if limit > maxSeedHistory {
		limit = maxSeedHistory
	}
	pairs, err := s.seeds.ListRevealed(ctx, userID, limit)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list revealed seeds: %w", err))
	}
	for i := range pairs {
		plain, err := s.vault.Decrypt(pairs[i].ServerSeedEnc)
		if err != nil {
			return nil, apperror.ErrEncryptionFailure(err)
		}
		pairs[i].ServerSeed = plain
	}
	return pairs, nil
}

func (s *SeedServiceImpl) activeOrCreate(ctx context.Context, tx pgx.Tx, userID int64) (*domain.SeedPair, error) {
	pair, err := s.seeds.GetActiveForUpdate(ctx, tx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock active seed: %w", err))
	}
	if pair != nil {
		return pair, nil
	}
	return s.create(ctx, tx, userID, "")
}

// create commits to a new server seed. The returned pair carries the
// plaintext seed; the stored row only has its ciphertext.
func (s *SeedServiceImpl) create(ctx context.Context, tx pgx.Tx, userID int64, clientSeed string) (*domain.SeedPair, error) {
	serverSeed, err := fairness.NewServerSeed()
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate server seed: %w", err))
	}
	if clientSeed == "" {
		if clientSeed, err = fairness.NewClientSeed(); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("generate client seed: %w", err))
		}
	}
	enc, err := s.vault.Encrypt(serverSeed)
	if err != nil {
		return nil, apperror.ErrEncryptionFailure(err)
	}

	pair := &domain.SeedPair{
		ID:             uuid.New(),
		UserID:         userID,
		ServerSeedEnc:  enc,
		ServerSeedHash: fairness.Commit(serverSeed),
		ClientSeed:     clientSeed,
		Active:         true,
		CreatedAt:      s.now(),
	}
	if err := s.seeds.Create(ctx, tx, pair); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create seed pair: %w", err))
	}
	pair.ServerSeed = serverSeed
	return pair, nil
}

// public strips the secret half of an active pair.
func public(p *domain.SeedPair) *domain.SeedPair {
	cp := *p
	cp.ServerSeed = ""
	cp.ServerSeedEnc = ""
	return &cp
}
