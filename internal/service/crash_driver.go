package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"casino-core/config"
	"casino-core/internal/core/domain"
	"casino-core/internal/core/ports"
	"casino-core/internal/fairness"
	"casino-core/internal/game"
	"casino-core/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	crashHistorySize = 50
	crashPause       = 3 * time.Second
	minAutoCashout   = 1.01
)

// CrashDriver owns the shared crash round. Only the Run goroutine touches
// the round; bets and cash-outs reach it as commands and are decided in
// the same step that reads the multiplier.
type CrashDriver struct {
	bets    *BetServiceImpl
	cfg     config.FairnessConfig
	metrics ports.Metrics
	cmds    chan crashCmd
	now     func() time.Time
	newSeed func() (string, error)
	log     zerolog.Logger

	// owned by the Run goroutine
	round  *crashRound
	number int64

	mu       sync.RWMutex
	snapshot domain.CrashRound
	history  []domain.CrashRound
}

type crashRound struct {
	domain.CrashRound
	serverSeed string
	runningAt  time.Time
	bets       map[uuid.UUID]*crashBet
}

type crashBet struct {
	bet  *domain.Bet
	auto float64
}

type crashCmdKind int

const (
	crashPlace crashCmdKind = iota
	crashCashOut
)

type crashCmd struct {
	ctx    context.Context
	kind   crashCmdKind
	userID int64
	amount int64
	auto   float64
	betID  uuid.UUID
	reply  chan crashReply
}

type crashReply struct {
	bet *domain.Bet
	err error
}

// CrashParams is stored on every crash bet.
type CrashParams struct {
	Round       int64   `json:"round"`
	AutoCashout float64 `json:"auto_cashout,omitempty"`
}

// CrashOutcome is the settled record of a crash bet.
type CrashOutcome struct {
	Round      int64   `json:"round"`
	BurstPoint float64 `json:"burst_point"`
	CashedOut  float64 `json:"cashed_out,omitempty"`
}

// NewCrashDriver creates a new CrashDriver. Call Run to start rounds.
func NewCrashDriver(bets *BetServiceImpl, cfg config.FairnessConfig, metrics ports.Metrics, log zerolog.Logger) *CrashDriver {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 100 * time.Millisecond
	}
	if cfg.GrowthRate <= 0 {
		cfg.GrowthRate = 0.06
	}
	return &CrashDriver{
		bets:    bets,
		cfg:     cfg,
		metrics: metrics,
		cmds:    make(chan crashCmd),
		now:     func() time.Time { return time.Now().UTC() },
		newSeed: fairness.NewServerSeed,
		log:     log,
	}
}

// Run drives rounds until ctx is cancelled. Bets still open at shutdown
// stay PENDING and are finalised by the sweeper.
func (d *CrashDriver) Run(ctx context.Context) error {
	if err := d.startRound(d.now()); err != nil {
		return err
	}
	ticker := time.NewTicker(d.cfg.TickInterval)
	defer ticker.Stop()

	d.log.Info().Dur("tick", d.cfg.TickInterval).Msg("crash driver started")
	for {
		select {
		case <-ctx.Done():
			d.log.Info().Int64("round", d.number).Msg("crash driver stopped")
			return nil
		case cmd := <-d.cmds:
			cmd.reply <- d.handle(cmd)
		case <-ticker.C:
			if err := d.tick(ctx, d.now()); err != nil {
				return err
			}
		}
	}
}

// PlaceBet joins the round that is currently taking bets.
func (d *CrashDriver) PlaceBet(ctx context.Context, userID int64, amount int64, autoCashout float64) (*domain.Bet, error) {
	if autoCashout != 0 && (autoCashout < minAutoCashout || autoCashout > d.cfg.CrashMaxMultiplier) {
		return nil, apperror.ErrInvalidBet(fmt.Sprintf("auto_cashout must be within %.2f..%.2f", minAutoCashout, d.cfg.CrashMaxMultiplier))
	}
	return d.send(ctx, crashCmd{kind: crashPlace, userID: userID, amount: amount, auto: autoCashout})
}

// CashOut settles a running bet at the current multiplier.
func (d *CrashDriver) CashOut(ctx context.Context, userID int64, betID uuid.UUID) (*domain.Bet, error) {
	return d.send(ctx, crashCmd{kind: crashCashOut, userID: userID, betID: betID})
}

// Current returns the public view of the round in play.
func (d *CrashDriver) Current() domain.CrashRound {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.snapshot
}

// History returns finished rounds, newest first, with their server seeds.
func (d *CrashDriver) History(limit int) []domain.CrashRound {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if limit <= 0 || limit > len(d.history) {
		limit = len(d.history)
	}
	return append([]domain.CrashRound(nil), d.history[:limit]...)
}

func (d *CrashDriver) send(ctx context.Context, cmd crashCmd) (*domain.Bet, error) {
	cmd.ctx = ctx
	cmd.reply = make(chan crashReply, 1)
	select {
	case d.cmds <- cmd:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case r := <-cmd.reply:
		return r.bet, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (d *CrashDriver) handle(cmd crashCmd) crashReply {
	now := d.now()
	switch cmd.kind {
	case crashPlace:
		bet, err := d.place(cmd, now)
		return crashReply{bet: bet, err: err}
	case crashCashOut:
		bet, err := d.cashOut(cmd, now)
		return crashReply{bet: bet, err: err}
	}
	return crashReply{err: apperror.InternalError(fmt.Errorf("unknown crash command %d", cmd.kind))}
}

func (d *CrashDriver) place(cmd crashCmd, now time.Time) (*domain.Bet, error) {
	r := d.round
	if r.Phase != domain.CrashPhaseBetting {
		return nil, apperror.ErrBettingClosed()
	}
	if err := d.bets.games.CheckStake(game.CodeCrash, cmd.amount); err != nil {
		return nil, asBetError(err)
	}
	if err := d.bets.checkPlayer(cmd.ctx, cmd.userID); err != nil {
		return nil, err
	}

	params, err := json.Marshal(CrashParams{Round: r.Number, AutoCashout: cmd.auto})
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("marshal crash params: %w", err))
	}
	expires := now.Add(d.bets.roundTTL)
	bet := &domain.Bet{
		ID:         uuid.New(),
		UserID:     cmd.userID,
		GameCode:   game.CodeCrash,
		Amount:     cmd.amount,
		SeedHash:   r.SeedHash,
		ClientSeed: r.ClientSeed,
		Nonce:      r.Number,
		Params:     params,
		Status:     domain.BetStatusPending,
		CreatedAt:  now,
		ExpiresAt:  &expires,
	}
	err = d.bets.ledger.Within(cmd.ctx, []int64{cmd.userID}, func(sess *LedgerSession) error {
		split, _, err := sess.DeductBet(cmd.ctx, cmd.userID, cmd.amount, domain.BetRef(bet.ID))
		if err != nil {
			return err
		}
		bet.Split = split
		if err := d.bets.bets.Create(cmd.ctx, sess.Tx(), bet); err != nil {
			return apperror.InternalError(fmt.Errorf("create bet: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, d.bets.reject(game.CodeCrash, err)
	}

	r.bets[bet.ID] = &crashBet{bet: bet, auto: cmd.auto}
	cp := *bet
	return &cp, nil
}

func (d *CrashDriver) cashOut(cmd crashCmd, now time.Time) (*domain.Bet, error) {
	r := d.round
	cb, ok := r.bets[cmd.betID]
	if !ok || cb.bet.UserID != cmd.userID {
		if bet, err := d.bets.ownedBet(cmd.ctx, cmd.userID, cmd.betID); err != nil {
			return nil, err
		} else if bet.IsTerminal() {
			return nil, apperror.ErrBetAlreadySettled()
		}
		return nil, apperror.ErrBetNotFound()
	}

	switch r.Phase {
	case domain.CrashPhaseBetting:
		return nil, apperror.ErrInvalidBet("round has not started")
	case domain.CrashPhaseCrashed:
		return nil, apperror.ErrRoundCrashed()
	}

	m := d.multiplierAt(now)
	if m >= r.BurstPoint {
		if err := d.crash(cmd.ctx, now); err != nil {
			return nil, err
		}
		return nil, apperror.ErrRoundCrashed()
	}
	if err := d.settle(cmd.ctx, cb, m); err != nil {
		return nil, err
	}
	cp := *cb.bet
	return &cp, nil
}

// tick advances the round clock.
func (d *CrashDriver) tick(ctx context.Context, now time.Time) error {
	r := d.round
	switch r.Phase {
	case domain.CrashPhaseBetting:
		if now.Sub(r.StartedAt) >= d.cfg.BettingWindow {
			r.Phase = domain.CrashPhaseRunning
			r.runningAt = now
			r.Multiplier = 1
			d.publishSnapshot()
		}
	case domain.CrashPhaseRunning:
		m := d.multiplierAt(now)
		if m >= r.BurstPoint {
			return d.crash(ctx, now)
		}
		for id, cb := range r.bets {
			if cb.auto > 0 && cb.auto <= m {
				if err := d.settle(ctx, cb, cb.auto); err != nil {
					d.log.Error().Err(err).Str("bet_id", id.String()).Msg("auto cash-out failed")
				}
			}
		}
		r.Multiplier = m
		d.publishSnapshot()
	case domain.CrashPhaseCrashed:
		if now.Sub(*r.CrashedAt) >= crashPause {
			return d.startRound(now)
		}
	}
	return nil
}

// crash ends the round at its burst point. Auto cash-outs below the burst
// point that no tick reached yet still pay; every other open bet loses.
func (d *CrashDriver) crash(ctx context.Context, now time.Time) error {
	r := d.round
	r.Phase = domain.CrashPhaseCrashed
	r.Multiplier = r.BurstPoint
	r.CrashedAt = &now
	r.ServerSeed = r.serverSeed

	for id, cb := range r.bets {
		mult := 0.0
		if cb.auto > 0 && cb.auto < r.BurstPoint {
			mult = cb.auto
		}
		if err := d.settle(ctx, cb, mult); err != nil {
			d.log.Error().Err(err).Str("bet_id", id.String()).Msg("failed to settle crash bet")
		}
	}

	d.mu.Lock()
	d.history = append([]domain.CrashRound{r.CrashRound}, d.history...)
	if len(d.history) > crashHistorySize {
		d.history = d.history[:crashHistorySize]
	}
	d.snapshot = r.CrashRound
	d.mu.Unlock()

	if d.metrics != nil {
		d.metrics.CrashRound(r.BurstPoint)
	}
	d.log.Info().Int64("round", r.Number).Float64("burst", r.BurstPoint).Int("bets", len(r.bets)).Msg("crash round ended")
	return nil
}

// settle closes one bet and removes it from the round. A bet that fails
// to settle stays PENDING for the sweeper.
func (d *CrashDriver) settle(ctx context.Context, cb *crashBet, mult float64) error {
	r := d.round
	delete(r.bets, cb.bet.ID)

	bet := *cb.bet
	outcome := CrashOutcome{Round: r.Number, BurstPoint: r.BurstPoint}
	if mult > 0 {
		outcome.CashedOut = mult
	}
	err := d.bets.ledger.Within(ctx, []int64{bet.UserID}, func(sess *LedgerSession) error {
		return d.bets.settle(ctx, sess, &bet, mult, outcome)
	})
	if err != nil {
		return err
	}
	cb.bet = &bet
	return nil
}

func (d *CrashDriver) startRound(now time.Time) error {
	seed, err := d.newSeed()
	if err != nil {
		return fmt.Errorf("crash round seed: %w", err)
	}
	d.number++
	burst := fairness.NewStream(seed, d.cfg.CrashSalt, d.number).
		CrashPoint(d.cfg.CrashHouseEdge, d.cfg.CrashMinMultiplier, d.cfg.CrashMaxMultiplier)

	d.round = &crashRound{
		CrashRound: domain.CrashRound{
			Number:     d.number,
			SeedHash:   fairness.Commit(seed),
			ClientSeed: d.cfg.CrashSalt,
			Phase:      domain.CrashPhaseBetting,
			Multiplier: 1,
			StartedAt:  now,
		},
		serverSeed: seed,
		bets:       make(map[uuid.UUID]*crashBet),
	}
	d.round.BurstPoint = burst
	d.publishSnapshot()
	return nil
}

// multiplierAt is e^(rate × seconds running), truncated to two decimals.
func (d *CrashDriver) multiplierAt(now time.Time) float64 {
	r := d.round
	if r.Phase != domain.CrashPhaseRunning {
		return 1
	}
	secs := now.Sub(r.runningAt).Seconds()
	return math.Floor(math.Exp(d.cfg.GrowthRate*secs)*100+1e-9) / 100
}

// publishSnapshot copies the round for readers, hiding the burst point
// until the round has crashed.
func (d *CrashDriver) publishSnapshot() {
	view := d.round.CrashRound
	if view.Phase != domain.CrashPhaseCrashed {
		view.BurstPoint = 0
		view.ServerSeed = ""
	}
	d.mu.Lock()
	d.snapshot = view
	d.mu.Unlock()
}
