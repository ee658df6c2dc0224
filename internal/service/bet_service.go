package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"casino-core/internal/core/domain"
	"casino-core/internal/core/ports"
	"casino-core/internal/fairness"
	"casino-core/internal/game"
	"casino-core/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// BetServiceImpl runs the shared bet lifecycle: deduct the stake, draw the
// outcome from the player's seed pair, settle once. Multi-step rounds keep
// their intermediate state in the round store between actions.
type BetServiceImpl struct {
	ledger    *LedgerServiceImpl
	bets      ports.BetRepository
	seeds     ports.SeedService
	rounds    ports.RoundStore
	games     *game.Registry
	wagering  *WageringPolicy
	directory ports.UserDirectory
	events    ports.EventPublisher
	metrics   ports.Metrics
	roundTTL  time.Duration
	now       func() time.Time
	log       zerolog.Logger
}

// BetServiceDeps groups the collaborators of NewBetService.
type BetServiceDeps struct {
	Ledger    *LedgerServiceImpl
	Bets      ports.BetRepository
	Seeds     ports.SeedService
	Rounds    ports.RoundStore
	Games     *game.Registry
	Wagering  *WageringPolicy
	Directory ports.UserDirectory
	Events    ports.EventPublisher // optional
	Metrics   ports.Metrics        // optional
	RoundTTL  time.Duration
}

// NewBetService creates a new BetServiceImpl.
func NewBetService(d BetServiceDeps, log zerolog.Logger) *BetServiceImpl {
	ttl := d.RoundTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &BetServiceImpl{
		ledger:    d.Ledger,
		bets:      d.Bets,
		seeds:     d.Seeds,
		rounds:    d.Rounds,
		games:     d.Games,
		wagering:  d.Wagering,
		directory: d.Directory,
		events:    d.Events,
		metrics:   d.Metrics,
		roundTTL:  ttl,
		now:       func() time.Time { return time.Now().UTC() },
		log:       log,
	}
}

// MinesOutcome is the settled record of a mines round.
type MinesOutcome struct {
	Mines    []int `json:"mines"`
	Revealed []int `json:"revealed"`
	Hit      *int  `json:"hit,omitempty"`
}

// HiLoOutcome is the settled record of a hi-lo round.
type HiLoOutcome struct {
	Cards []int `json:"cards"`
	Lost  bool  `json:"lost"`
}

// expiredOutcome marks a bet finalised by the sweeper.
type expiredOutcome struct {
	Reason string `json:"reason"`
}

// PlaceBet takes the stake and either settles an instant game straight
// away or opens a multi-step round.
func (s *BetServiceImpl) PlaceBet(ctx context.Context, req ports.PlaceBetRequest) (*ports.BetResult, error) {
	if !s.games.Known(req.GameCode) {
		return nil, apperror.ErrUnknownGame(req.GameCode)
	}
	if err := s.games.CheckStake(req.GameCode, req.Amount); err != nil {
		return nil, s.reject(req.GameCode, asBetError(err))
	}
	if err := s.checkPlayer(ctx, req.UserID); err != nil {
		return nil, err
	}

	now := s.now()
	bet := &domain.Bet{
		ID:        uuid.New(),
		UserID:    req.UserID,
		GameCode:  req.GameCode,
		Amount:    req.Amount,
		Params:    req.Params,
		Status:    domain.BetStatusPending,
		CreatedAt: now,
	}
	result := &ports.BetResult{Bet: bet}

	err := s.ledger.Within(ctx, []int64{req.UserID}, func(sess *LedgerSession) error {
		split, _, err := sess.DeductBet(ctx, req.UserID, req.Amount, domain.BetRef(bet.ID))
		if err != nil {
			return err
		}
		bet.Split = split

		pair, err := s.seeds.Draw(ctx, sess.Tx(), req.UserID)
		if err != nil {
			return err
		}
		bet.SeedHash = pair.ServerSeedHash
		bet.ClientSeed = pair.ClientSeed
		bet.Nonce = pair.Nonce
		stream := fairness.NewStream(pair.ServerSeed, pair.ClientSeed, pair.Nonce)

		if g, ok := s.games.Instant(req.GameCode); ok {
			out, err := g.Resolve(stream, req.Params)
			if err != nil {
				return asBetError(err)
			}
			if err := s.bets.Create(ctx, sess.Tx(), bet); err != nil {
				return apperror.InternalError(fmt.Errorf("create bet: %w", err))
			}
			return s.settle(ctx, sess, bet, out.Multiplier, out.Detail)
		}

		round, err := s.openRound(stream, bet)
		if err != nil {
			return err
		}
		expires := round.ExpiresAt
		bet.ExpiresAt = &expires
		if err := s.bets.Create(ctx, sess.Tx(), bet); err != nil {
			return apperror.InternalError(fmt.Errorf("create bet: %w", err))
		}
		if err := s.rounds.Save(ctx, round); err != nil {
			return apperror.InternalError(fmt.Errorf("save round: %w", err))
		}
		result.Round = round
		return nil
	})
	if err != nil {
		return nil, s.reject(req.GameCode, err)
	}

	if result.Wallet, err = s.walletAfter(ctx, req.UserID); err != nil {
		return nil, err
	}
	return result, nil
}

// Reveal opens a mines tile.
func (s *BetServiceImpl) Reveal(ctx context.Context, userID int64, betID uuid.UUID, tile int) (*ports.BetResult, error) {
	return s.step(ctx, userID, betID, game.CodeMines, func(sess *LedgerSession, bet *domain.Bet, round *domain.RoundState) (bool, error) {
		res, err := s.games.Mines().Reveal(round, tile)
		if err != nil {
			return false, asBetError(err)
		}
		switch {
		case res.Mine:
			hit := tile
			return true, s.settle(ctx, sess, bet, 0, MinesOutcome{Mines: round.Layout, Revealed: round.Revealed, Hit: &hit})
		case res.Cleared:
			return true, s.settle(ctx, sess, bet, round.Multiplier, MinesOutcome{Mines: round.Layout, Revealed: round.Revealed})
		}
		return false, nil
	})
}

// Guess plays one hi-lo call.
func (s *BetServiceImpl) Guess(ctx context.Context, userID int64, betID uuid.UUID, higher bool) (*ports.BetResult, error) {
	return s.step(ctx, userID, betID, game.CodeHiLo, func(sess *LedgerSession, bet *domain.Bet, round *domain.RoundState) (bool, error) {
		res, err := s.games.HiLo().Guess(round, higher)
		if err != nil {
			return false, asBetError(err)
		}
		switch {
		case !res.Win:
			return true, s.settle(ctx, sess, bet, 0, HiLoOutcome{Cards: round.Revealed, Lost: true})
		case res.Exhausted:
			return true, s.settle(ctx, sess, bet, round.Multiplier, HiLoOutcome{Cards: round.Revealed})
		}
		return false, nil
	})
}

// CashOut settles a multi-step round at its current multiplier.
func (s *BetServiceImpl) CashOut(ctx context.Context, userID int64, betID uuid.UUID) (*ports.BetResult, error) {
	return s.step(ctx, userID, betID, "", func(sess *LedgerSession, bet *domain.Bet, round *domain.RoundState) (bool, error) {
		if round.Step == 0 || round.Multiplier <= 0 {
			return false, apperror.ErrInvalidBet("nothing to cash out yet")
		}
		var detail any = HiLoOutcome{Cards: round.Revealed}
		if bet.GameCode == game.CodeMines {
			detail = MinesOutcome{Mines: round.Layout, Revealed: round.Revealed}
		}
		return true, s.settle(ctx, sess, bet, round.Multiplier, detail)
	})
}

// CancelBet refunds a pending bet whose player has not yet seen any part
// of its outcome.
func (s *BetServiceImpl) CancelBet(ctx context.Context, userID int64, betID uuid.UUID) (*domain.Bet, error) {
	var cancelled *domain.Bet
	err := s.ledger.Within(ctx, []int64{userID}, func(sess *LedgerSession) error {
		bet, err := s.ownedBet(ctx, userID, betID)
		if err != nil {
			return err
		}
		if bet.IsTerminal() {
			return apperror.ErrBetAlreadySettled()
		}
		round, err := s.rounds.Get(ctx, betID)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("get round: %w", err))
		}
		if round == nil {
			return apperror.ErrExpiredRound()
		}
		if len(round.Revealed) > 0 {
			return apperror.ErrInvalidBet("round already in play")
		}

		at := s.now()
		bet.Status = domain.BetStatusCancelled
		bet.SettledAt = &at
		ok, err := s.bets.Settle(ctx, sess.Tx(), bet)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("cancel bet: %w", err))
		}
		if !ok {
			return apperror.ErrBetAlreadySettled()
		}
		if _, err := sess.Refund(ctx, userID, bet.Split, domain.BetRef(bet.ID)); err != nil {
			return err
		}
		sess.AfterCommit(func() { s.dropRound(bet.ID) })
		cancelled = bet
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("bet_id", betID.String()).Int64("user_id", userID).Msg("bet cancelled")
	return cancelled, nil
}

// GetBet returns a bet of the user.
func (s *BetServiceImpl) GetBet(ctx context.Context, userID int64, betID uuid.UUID) (*domain.Bet, error) {
	return s.ownedBet(ctx, userID, betID)
}

// ExpireBet settles a pending bet past its deadline as a loss. It reports
// false when the bet was already terminal, which happens when a late
// settlement won the wallet lock first.
func (s *BetServiceImpl) ExpireBet(ctx context.Context, bet domain.Bet) (bool, error) {
	expired := false
	err := s.ledger.Within(ctx, []int64{bet.UserID}, func(sess *LedgerSession) error {
		current, err := s.bets.GetByID(ctx, bet.ID)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("get bet: %w", err))
		}
		if current == nil || current.IsTerminal() {
			return nil
		}
		err = s.settle(ctx, sess, current, 0, expiredOutcome{Reason: "round expired"})
		if apperror.HasCode(err, "BET_002") {
			return nil
		}
		if err != nil {
			return err
		}
		expired = true
		sess.AfterCommit(func() { s.dropRound(bet.ID) })
		return nil
	})
	return expired, err
}

type stepFunc func(sess *LedgerSession, bet *domain.Bet, round *domain.RoundState) (settled bool, err error)

// step loads a multi-step round under the wallet lock, applies fn and
// either stores the new state or settles the bet.
func (s *BetServiceImpl) step(ctx context.Context, userID int64, betID uuid.UUID, gameCode string, fn stepFunc) (*ports.BetResult, error) {
	result := &ports.BetResult{}
	err := s.ledger.Within(ctx, []int64{userID}, func(sess *LedgerSession) error {
		bet, err := s.ownedBet(ctx, userID, betID)
		if err != nil {
			return err
		}
		if gameCode != "" && bet.GameCode != gameCode {
			return apperror.ErrInvalidBet(fmt.Sprintf("bet %s is not a %s round", betID, gameCode))
		}
		if bet.IsTerminal() {
			return apperror.ErrBetAlreadySettled()
		}
		if bet.Expired(s.now()) {
			return apperror.ErrExpiredRound()
		}
		round, err := s.rounds.Get(ctx, betID)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("get round: %w", err))
		}
		if round == nil {
			return apperror.ErrExpiredRound()
		}

		settled, err := fn(sess, bet, round)
		if err != nil {
			return err
		}
		result.Bet = bet
		if settled {
			sess.AfterCommit(func() { s.dropRound(betID) })
			return nil
		}
		if err := s.rounds.Save(ctx, round); err != nil {
			return apperror.InternalError(fmt.Errorf("save round: %w", err))
		}
		result.Round = round
		return nil
	})
	if err != nil {
		return nil, s.reject(gameCode, err)
	}

	if result.Wallet, err = s.walletAfter(ctx, userID); err != nil {
		return nil, err
	}
	return result, nil
}

// settle writes the terminal bet fields, pays out and applies wagering,
// all inside the caller's session.
func (s *BetServiceImpl) settle(ctx context.Context, sess *LedgerSession, bet *domain.Bet, multiplier float64, detail any) error {
	outcome, err := json.Marshal(detail)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("marshal outcome: %w", err))
	}
	payout := s.games.Payout(bet.Amount, multiplier)
	bet.Complete(outcome, multiplier, payout, s.now())

	ok, err := s.bets.Settle(ctx, sess.Tx(), bet)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("settle bet: %w", err))
	}
	if !ok {
		return apperror.ErrBetAlreadySettled()
	}

	ref := domain.BetRef(bet.ID)
	if _, err := sess.CreditWin(ctx, bet.UserID, payout, bet.Split.Bonus > 0, ref); err != nil {
		return err
	}
	eligible, err := s.wagering.Contribution(ctx, bet.UserID, bet.GameCode, bet.Amount)
	if err != nil {
		return err
	}
	if _, _, err := sess.ApplyWagering(ctx, bet.UserID, eligible); err != nil {
		return err
	}

	w, err := sess.Wallet(bet.UserID)
	if err != nil {
		return err
	}
	event := domain.SettlementEvent{
		Type:       domain.EventBetSettled,
		UserID:     bet.UserID,
		Reference:  ref,
		GameCode:   bet.GameCode,
		Amount:     bet.Amount,
		Payout:     payout,
		RealAfter:  w.Real,
		BonusAfter: w.Bonus,
		OccurredAt: *bet.SettledAt,
	}
	sess.AfterCommit(func() {
		s.publish(event)
		if s.metrics != nil {
			s.metrics.BetSettled(bet.GameCode, bet.Amount, payout)
		}
	})

	s.log.Debug().
		Str("bet_id", bet.ID.String()).
		Str("game", bet.GameCode).
		Int64("amount", bet.Amount).
		Float64("multiplier", multiplier).
		Int64("payout", payout).
		Msg("bet settled")
	return nil
}

func (s *BetServiceImpl) openRound(stream *fairness.Stream, bet *domain.Bet) (*domain.RoundState, error) {
	round := &domain.RoundState{
		BetID:     bet.ID,
		UserID:    bet.UserID,
		GameCode:  bet.GameCode,
		Amount:    bet.Amount,
		ExpiresAt: s.now().Add(s.roundTTL),
	}
	switch bet.GameCode {
	case game.CodeMines:
		layout, err := s.games.Mines().Start(stream, bet.Params)
		if err != nil {
			return nil, asBetError(err)
		}
		round.Layout = layout
	case game.CodeHiLo:
		cards, err := s.games.HiLo().Start(stream)
		if err != nil {
			return nil, asBetError(err)
		}
		round.Layout = cards
		round.Revealed = []int{cards[0]}
		round.Multiplier = 1
	default:
		return nil, apperror.ErrUnknownGame(bet.GameCode)
	}
	return round, nil
}

func (s *BetServiceImpl) ownedBet(ctx context.Context, userID int64, betID uuid.UUID) (*domain.Bet, error) {
	bet, err := s.bets.GetByID(ctx, betID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get bet: %w", err))
	}
	if bet == nil || bet.UserID != userID {
		return nil, apperror.ErrBetNotFound()
	}
	return bet, nil
}

func (s *BetServiceImpl) checkPlayer(ctx context.Context, userID int64) error {
	player, err := s.directory.GetPlayer(ctx, userID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("get player: %w", err))
	}
	if player == nil {
		return apperror.ErrWalletNotFound()
	}
	if !player.Active {
		return apperror.ErrPlayerInactive()
	}
	return nil
}

func (s *BetServiceImpl) walletAfter(ctx context.Context, userID int64) (domain.Wallet, error) {
	w, err := s.ledger.Balance(ctx, userID)
	if err != nil {
		return domain.Wallet{}, err
	}
	return *w, nil
}

func (s *BetServiceImpl) dropRound(betID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.rounds.Delete(ctx, betID); err != nil {
		// the entry expires on its own
		s.log.Warn().Err(err).Str("bet_id", betID.String()).Msg("failed to delete round state")
	}
}

func (s *BetServiceImpl) publish(event domain.SettlementEvent) {
	if s.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.events.Publish(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("type", event.Type).Str("ref", event.Reference.String()).Msg("failed to publish settlement event")
	}
}

func (s *BetServiceImpl) reject(gameCode string, err error) error {
	var appErr *apperror.AppError
	if s.metrics != nil && errors.As(err, &appErr) {
		s.metrics.BetRejected(gameCode, appErr.Code)
	}
	return err
}

// asBetError maps rule errors to BET_001.
func asBetError(err error) error {
	var pe *game.ParamError
	if errors.As(err, &pe) {
		return apperror.ErrInvalidBet(pe.Error())
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperror.InternalError(err)
}
