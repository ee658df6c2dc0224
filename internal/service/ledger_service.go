package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"casino-core/internal/core/domain"
	"casino-core/internal/core/ports"
	"casino-core/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const (
	defaultStatementPageSize = 50
	maxStatementPageSize     = 500
)

// LedgerServiceImpl implements ports.LedgerService. Every call runs in one
// database transaction holding the row locks of the wallets it touches.
type LedgerServiceImpl struct {
	wallets    ports.WalletRepository
	entries    ports.TransactionRepository
	bonuses    ports.BonusRepository
	transactor ports.DBTransactor
	currency   string
	now        func() time.Time
	log        zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl.
func NewLedgerService(
	wallets ports.WalletRepository,
	entries ports.TransactionRepository,
	bonuses ports.BonusRepository,
	transactor ports.DBTransactor,
	currency string,
	log zerolog.Logger,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		wallets:    wallets,
		entries:    entries,
		bonuses:    bonuses,
		transactor: transactor,
		currency:   currency,
		now:        func() time.Time { return time.Now().UTC() },
		log:        log,
	}
}

// LedgerSession is one open transaction with a fixed set of wallets locked.
// Game settlement and the gateway use it to combine several ledger
// operations with their own writes in a single atomic unit.
type LedgerSession struct {
	l           *LedgerServiceImpl
	tx          pgx.Tx
	wallets     map[int64]*domain.Wallet
	afterCommit []func()
}

// Tx exposes the transaction so callers can write their own rows in it.
func (s *LedgerSession) Tx() pgx.Tx {
	return s.tx
}

// Wallet returns a snapshot of a locked wallet.
func (s *LedgerSession) Wallet(userID int64) (domain.Wallet, error) {
	w, err := s.wallet(userID)
	if err != nil {
		return domain.Wallet{}, err
	}
	return *w, nil
}

// AfterCommit registers fn to run once the transaction has committed.
func (s *LedgerSession) AfterCommit(fn func()) {
	s.afterCommit = append(s.afterCommit, fn)
}

// Within locks the given wallets in ascending user id order, runs fn and
// commits. Any error from fn rolls everything back.
func (l *LedgerServiceImpl) Within(ctx context.Context, userIDs []int64, fn func(*LedgerSession) error) error {
	ids := uniqueSorted(userIDs)

	dbTx, err := l.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	sess := &LedgerSession{l: l, tx: dbTx, wallets: make(map[int64]*domain.Wallet, len(ids))}
	for _, id := range ids {
		w, err := l.wallets.GetForUpdate(ctx, dbTx, id)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("lock wallet %d: %w", id, err))
		}
		if w == nil {
			return apperror.ErrWalletNotFound()
		}
		sess.wallets[id] = w
	}

	if err := fn(sess); err != nil {
		return err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	for _, f := range sess.afterCommit {
		f()
	}
	return nil
}

// OpenWallet creates the wallet of a user, or returns the existing one.
func (l *LedgerServiceImpl) OpenWallet(ctx context.Context, userID int64, currency string) (*domain.Wallet, error) {
	if userID <= 0 {
		return nil, apperror.Validation("user_id must be positive")
	}
	if currency == "" {
		currency = l.currency
	}

	dbTx, err := l.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	existing, err := l.wallets.GetForUpdate(ctx, dbTx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if existing != nil {
		return existing, nil
	}

	now := l.now()
	w := &domain.Wallet{UserID: userID, Currency: currency, CreatedAt: now, UpdatedAt: now}
	if err := l.wallets.Create(ctx, dbTx, w); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create wallet: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	l.log.Info().Int64("user_id", userID).Str("currency", currency).Msg("wallet opened")
	return w, nil
}

// Balance reads a wallet without locking it.
func (l *LedgerServiceImpl) Balance(ctx context.Context, userID int64) (*domain.Wallet, error) {
	w, err := l.wallets.GetByUserID(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if w == nil {
		return nil, apperror.ErrWalletNotFound()
	}
	return w, nil
}

func (l *LedgerServiceImpl) Credit(ctx context.Context, userID int64, amount int64, bucket domain.Bucket, reason string, ref domain.Reference) (domain.LedgerEffect, error) {
	return l.single(ctx, userID, func(s *LedgerSession) (domain.LedgerEffect, error) {
		return s.Credit(ctx, userID, amount, bucket, reason, ref)
	})
}

func (l *LedgerServiceImpl) Debit(ctx context.Context, userID int64, amount int64, bucket domain.Bucket, reason string, ref domain.Reference) (domain.LedgerEffect, error) {
	return l.single(ctx, userID, func(s *LedgerSession) (domain.LedgerEffect, error) {
		return s.Debit(ctx, userID, amount, bucket, reason, ref)
	})
}

// DeductBet funds a stake from bonus first, then real.
func (l *LedgerServiceImpl) DeductBet(ctx context.Context, userID int64, amount int64, ref domain.Reference) (domain.BetSplit, domain.LedgerEffect, error) {
	var split domain.BetSplit
	eff, err := l.single(ctx, userID, func(s *LedgerSession) (domain.LedgerEffect, error) {
		var e domain.LedgerEffect
		var err error
		split, e, err = s.DeductBet(ctx, userID, amount, ref)
		return e, err
	})
	return split, eff, err
}

func (l *LedgerServiceImpl) CreditWin(ctx context.Context, userID int64, payout int64, fundedFromBonus bool, ref domain.Reference) (domain.LedgerEffect, error) {
	return l.single(ctx, userID, func(s *LedgerSession) (domain.LedgerEffect, error) {
		return s.CreditWin(ctx, userID, payout, fundedFromBonus, ref)
	})
}

func (l *LedgerServiceImpl) Lock(ctx context.Context, userID int64, amount int64, ref domain.Reference) (domain.LedgerEffect, error) {
	return l.single(ctx, userID, func(s *LedgerSession) (domain.LedgerEffect, error) {
		return s.Lock(ctx, userID, amount, ref)
	})
}

func (l *LedgerServiceImpl) Unlock(ctx context.Context, userID int64, amount int64, ref domain.Reference) (domain.LedgerEffect, error) {
	return l.single(ctx, userID, func(s *LedgerSession) (domain.LedgerEffect, error) {
		return s.Unlock(ctx, userID, amount, ref)
	})
}

func (l *LedgerServiceImpl) ReleaseLocked(ctx context.Context, userID int64, amount int64, ref domain.Reference) (domain.LedgerEffect, error) {
	return l.single(ctx, userID, func(s *LedgerSession) (domain.LedgerEffect, error) {
		return s.ReleaseLocked(ctx, userID, amount, ref)
	})
}

// ApplyWagering advances the active bonus grants of a user.
func (l *LedgerServiceImpl) ApplyWagering(ctx context.Context, userID int64, eligible int64) ([]domain.BonusGrant, domain.LedgerEffect, error) {
	var completed []domain.BonusGrant
	eff, err := l.single(ctx, userID, func(s *LedgerSession) (domain.LedgerEffect, error) {
		var e domain.LedgerEffect
		var err error
		completed, e, err = s.ApplyWagering(ctx, userID, eligible)
		return e, err
	})
	return completed, eff, err
}

// Transfer moves real funds between two wallets, locking both in id order.
func (l *LedgerServiceImpl) Transfer(ctx context.Context, fromUser, toUser int64, amount int64, reason string) (*ports.TransferResult, error) {
	if fromUser == toUser {
		return nil, apperror.Validation("cannot transfer to the same wallet")
	}
	if amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	res := &ports.TransferResult{ID: uuid.New()}
	ref := domain.TransferRef(res.ID)
	err := l.Within(ctx, []int64{fromUser, toUser}, func(s *LedgerSession) error {
		out, err := s.apply(ctx, fromUser, posting{bucket: domain.BucketReal, amount: -amount, typ: domain.TxTransferOut, reason: reason, ref: ref})
		if err != nil {
			return err
		}
		in, err := s.apply(ctx, toUser, posting{bucket: domain.BucketReal, amount: amount, typ: domain.TxTransferIn, reason: reason, ref: ref})
		if err != nil {
			return err
		}
		res.From, res.To = out, in
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.log.Info().
		Str("transfer_id", res.ID.String()).
		Int64("from_user", fromUser).
		Int64("to_user", toUser).
		Int64("amount", amount).
		Msg("transfer completed")
	return res, nil
}

// GrantBonus credits the bonus bucket and opens a wagering grant.
func (l *LedgerServiceImpl) GrantBonus(ctx context.Context, req ports.GrantBonusRequest) (*domain.BonusGrant, domain.LedgerEffect, error) {
	if req.Amount <= 0 || req.Requirement < 0 {
		return nil, domain.LedgerEffect{}, apperror.ErrInvalidAmount()
	}

	grant := &domain.BonusGrant{
		ID:          uuid.New(),
		UserID:      req.UserID,
		Amount:      req.Amount,
		Requirement: req.Requirement,
		Status:      domain.BonusStatusActive,
		CreatedAt:   l.now(),
		ExpiresAt:   req.ExpiresAt,
	}
	eff, err := l.single(ctx, req.UserID, func(s *LedgerSession) (domain.LedgerEffect, error) {
		if err := l.bonuses.Create(ctx, s.tx, grant); err != nil {
			return domain.LedgerEffect{}, apperror.InternalError(fmt.Errorf("create bonus grant: %w", err))
		}
		return s.apply(ctx, req.UserID, posting{
			bucket: domain.BucketBonus, amount: req.Amount, typ: domain.TxBonusGrant,
			reason: "bonus grant", ref: domain.BonusRef(grant.ID),
		})
	})
	if err != nil {
		return nil, domain.LedgerEffect{}, err
	}
	return grant, eff, nil
}

// ForfeitBonus cancels an active grant and removes what is left of it from
// the bonus bucket.
func (l *LedgerServiceImpl) ForfeitBonus(ctx context.Context, grantID uuid.UUID) (*domain.BonusGrant, domain.LedgerEffect, error) {
	grant, eff, err := l.closeGrant(ctx, grantID, domain.BonusStatusForfeited, "bonus forfeited", nil)
	if err != nil {
		return nil, domain.LedgerEffect{}, err
	}
	if grant == nil {
		return nil, domain.LedgerEffect{}, apperror.ErrBonusNotFound()
	}
	return grant, eff, nil
}

// ExpireBonus ends a grant past its deadline the same way. It reports false
// when the grant is gone, no longer active or not yet due.
func (l *LedgerServiceImpl) ExpireBonus(ctx context.Context, grantID uuid.UUID) (bool, error) {
	grant, _, err := l.closeGrant(ctx, grantID, domain.BonusStatusExpired, "bonus expired", (*domain.BonusGrant).Expired)
	if err != nil {
		return false, err
	}
	return grant != nil, nil
}

// closeGrant moves an active grant to status and takes what is left of it
// out of the bonus bucket. A nil grant means nothing was closed.
func (l *LedgerServiceImpl) closeGrant(ctx context.Context, grantID uuid.UUID, status domain.BonusStatus, reason string, due func(*domain.BonusGrant, time.Time) bool) (*domain.BonusGrant, domain.LedgerEffect, error) {
	// the grant row names the wallet, so it is read before the wallet lock
	// and re-checked under it
	dbTx, err := l.transactor.Begin(ctx)
	if err != nil {
		return nil, domain.LedgerEffect{}, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	pending, err := l.bonuses.GetForUpdate(ctx, dbTx, grantID)
	dbTx.Rollback(ctx) //nolint:errcheck
	if err != nil {
		return nil, domain.LedgerEffect{}, apperror.InternalError(fmt.Errorf("get bonus grant: %w", err))
	}
	if pending == nil {
		return nil, domain.LedgerEffect{}, nil
	}

	var grant *domain.BonusGrant
	eff, err := l.single(ctx, pending.UserID, func(s *LedgerSession) (domain.LedgerEffect, error) {
		g, err := l.bonuses.GetForUpdate(ctx, s.tx, grantID)
		if err != nil {
			return domain.LedgerEffect{}, apperror.InternalError(fmt.Errorf("lock bonus grant: %w", err))
		}
		if g == nil || !g.IsActive() || (due != nil && !due(g, l.now())) {
			return s.noop(pending.UserID)
		}
		grant = g
		return s.endGrant(ctx, g, status, reason)
	})
	if err != nil {
		return nil, domain.LedgerEffect{}, err
	}
	return grant, eff, nil
}

// Reconcile replays the log of a wallet under its lock and compares the
// result with the stored balances.
func (l *LedgerServiceImpl) Reconcile(ctx context.Context, userID int64) (*ports.ReconcileReport, error) {
	report := &ports.ReconcileReport{UserID: userID}
	err := l.Within(ctx, []int64{userID}, func(s *LedgerSession) error {
		entries, err := l.entries.ListByUser(ctx, userID)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("list entries: %w", err))
		}
		w, err := s.wallet(userID)
		if err != nil {
			return err
		}

		var replay domain.Balances
		everNegative := false
		for _, e := range entries {
			replay.Apply(e)
			if replay.Negative() {
				everNegative = true
			}
		}
		report.Stored = w.Balances()
		report.Replayed = replay
		report.Entries = len(entries)
		report.Balanced = replay == report.Stored && !everNegative
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !report.Balanced {
		l.log.Error().
			Int64("user_id", userID).
			Interface("stored", report.Stored).
			Interface("replayed", report.Replayed).
			Msg("ledger reconciliation mismatch")
	}
	return report, nil
}

// Statement lists ledger entries of a user, newest first.
func (l *LedgerServiceImpl) Statement(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 {
		params.PageSize = defaultStatementPageSize
	}
	if params.PageSize > maxStatementPageSize {
		params.PageSize = maxStatementPageSize
	}
	list, total, err := l.entries.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list entries: %w", err))
	}
	return list, total, nil
}

func (l *LedgerServiceImpl) single(ctx context.Context, userID int64, fn func(*LedgerSession) (domain.LedgerEffect, error)) (domain.LedgerEffect, error) {
	var eff domain.LedgerEffect
	err := l.Within(ctx, []int64{userID}, func(s *LedgerSession) error {
		var err error
		eff, err = fn(s)
		return err
	})
	if err != nil {
		return domain.LedgerEffect{}, err
	}
	return eff, nil
}

// ---- session operations ----

// Credit increases a bucket. A zero amount moves nothing.
func (s *LedgerSession) Credit(ctx context.Context, userID int64, amount int64, bucket domain.Bucket, reason string, ref domain.Reference) (domain.LedgerEffect, error) {
	if amount < 0 || !bucket.Valid() {
		return domain.LedgerEffect{}, apperror.ErrInvalidAmount()
	}
	if amount == 0 {
		return s.noop(userID)
	}
	return s.apply(ctx, userID, posting{bucket: bucket, amount: amount, typ: domain.TxCredit, reason: reason, ref: ref})
}

// Debit decreases a bucket or fails with WAL_001.
func (s *LedgerSession) Debit(ctx context.Context, userID int64, amount int64, bucket domain.Bucket, reason string, ref domain.Reference) (domain.LedgerEffect, error) {
	if amount < 0 || !bucket.Valid() {
		return domain.LedgerEffect{}, apperror.ErrInvalidAmount()
	}
	if amount == 0 {
		return s.noop(userID)
	}
	return s.apply(ctx, userID, posting{bucket: bucket, amount: -amount, typ: domain.TxDebit, reason: reason, ref: ref})
}

// DeductBet drains bonus first, then real.
func (s *LedgerSession) DeductBet(ctx context.Context, userID int64, amount int64, ref domain.Reference) (domain.BetSplit, domain.LedgerEffect, error) {
	if amount <= 0 {
		return domain.BetSplit{}, domain.LedgerEffect{}, apperror.ErrInvalidAmount()
	}
	w, err := s.wallet(userID)
	if err != nil {
		return domain.BetSplit{}, domain.LedgerEffect{}, err
	}
	if w.Playable() < amount {
		return domain.BetSplit{}, domain.LedgerEffect{}, apperror.ErrInsufficientFunds()
	}

	split := domain.BetSplit{Bonus: min(w.Bonus, amount)}
	split.Real = amount - split.Bonus

	var eff domain.LedgerEffect
	if split.Bonus > 0 {
		e, err := s.apply(ctx, userID, posting{bucket: domain.BucketBonus, amount: -split.Bonus, typ: domain.TxBet, reason: "bet", ref: ref})
		if err != nil {
			return domain.BetSplit{}, domain.LedgerEffect{}, err
		}
		eff.Merge(e)
	}
	if split.Real > 0 {
		e, err := s.apply(ctx, userID, posting{bucket: domain.BucketReal, amount: -split.Real, typ: domain.TxBet, reason: "bet", ref: ref})
		if err != nil {
			return domain.BetSplit{}, domain.LedgerEffect{}, err
		}
		eff.Merge(e)
	}
	return split, eff, nil
}

// CreditWin pays winnings into real, whatever bucket funded the stake.
func (s *LedgerSession) CreditWin(ctx context.Context, userID int64, payout int64, fundedFromBonus bool, ref domain.Reference) (domain.LedgerEffect, error) {
	if payout < 0 {
		return domain.LedgerEffect{}, apperror.ErrInvalidAmount()
	}
	if payout == 0 {
		return s.noop(userID)
	}
	reason := "win"
	if fundedFromBonus {
		reason = "win (bonus funded)"
	}
	return s.apply(ctx, userID, posting{bucket: domain.BucketReal, amount: payout, typ: domain.TxWin, reason: reason, ref: ref})
}

// Refund returns a cancelled stake to the buckets that funded it.
func (s *LedgerSession) Refund(ctx context.Context, userID int64, split domain.BetSplit, ref domain.Reference) (domain.LedgerEffect, error) {
	var eff domain.LedgerEffect
	for _, p := range []posting{
		{bucket: domain.BucketBonus, amount: split.Bonus},
		{bucket: domain.BucketReal, amount: split.Real},
	} {
		if p.amount <= 0 {
			continue
		}
		p.typ, p.reason, p.ref = domain.TxRefund, "bet cancelled", ref
		e, err := s.apply(ctx, userID, p)
		if err != nil {
			return domain.LedgerEffect{}, err
		}
		eff.Merge(e)
	}
	if !eff.Moved() {
		return s.noop(userID)
	}
	return eff, nil
}

// Lock moves real funds into locked for a pending withdrawal.
func (s *LedgerSession) Lock(ctx context.Context, userID int64, amount int64, ref domain.Reference) (domain.LedgerEffect, error) {
	if amount <= 0 {
		return domain.LedgerEffect{}, apperror.ErrInvalidAmount()
	}
	return s.apply(ctx, userID, posting{bucket: domain.BucketLocked, counter: domain.BucketReal, amount: amount, typ: domain.TxLock, reason: "withdrawal requested", ref: ref})
}

// Unlock returns locked funds to real (rejected withdrawal).
func (s *LedgerSession) Unlock(ctx context.Context, userID int64, amount int64, ref domain.Reference) (domain.LedgerEffect, error) {
	if amount <= 0 {
		return domain.LedgerEffect{}, apperror.ErrInvalidAmount()
	}
	return s.apply(ctx, userID, posting{bucket: domain.BucketReal, counter: domain.BucketLocked, amount: amount, typ: domain.TxUnlock, reason: "withdrawal rejected", ref: ref})
}

// ReleaseLocked removes locked funds for good (approved withdrawal).
func (s *LedgerSession) ReleaseLocked(ctx context.Context, userID int64, amount int64, ref domain.Reference) (domain.LedgerEffect, error) {
	if amount <= 0 {
		return domain.LedgerEffect{}, apperror.ErrInvalidAmount()
	}
	return s.apply(ctx, userID, posting{bucket: domain.BucketLocked, amount: -amount, typ: domain.TxRelease, reason: "withdrawal paid", ref: ref})
}

// ApplyWagering adds eligible stake to every active grant. A grant that
// reaches its requirement completes in the same step and what is left of
// its amount in the bonus bucket converts to real. Grants past their
// deadline expire instead of progressing.
func (s *LedgerSession) ApplyWagering(ctx context.Context, userID int64, eligible int64) ([]domain.BonusGrant, domain.LedgerEffect, error) {
	if eligible <= 0 {
		eff, err := s.noop(userID)
		return nil, eff, err
	}
	grants, err := s.l.bonuses.ListActiveForUpdate(ctx, s.tx, userID)
	if err != nil {
		return nil, domain.LedgerEffect{}, apperror.InternalError(fmt.Errorf("list active grants: %w", err))
	}

	var completed []domain.BonusGrant
	var eff domain.LedgerEffect
	now := s.l.now()
	for i := range grants {
		g := &grants[i]
		if g.Expired(now) {
			e, err := s.endGrant(ctx, g, domain.BonusStatusExpired, "bonus expired")
			if err != nil {
				return nil, domain.LedgerEffect{}, err
			}
			eff.Merge(e)
			continue
		}
		done := g.AddProgress(eligible, now)
		if err := s.l.bonuses.Update(ctx, s.tx, g); err != nil {
			return nil, domain.LedgerEffect{}, apperror.InternalError(fmt.Errorf("update grant %s: %w", g.ID, err))
		}
		if !done {
			continue
		}
		completed = append(completed, *g)

		w, err := s.wallet(userID)
		if err != nil {
			return nil, domain.LedgerEffect{}, err
		}
		if amount := min(g.Amount, w.Bonus); amount > 0 {
			e, err := s.apply(ctx, userID, posting{
				bucket: domain.BucketReal, counter: domain.BucketBonus, amount: amount,
				typ: domain.TxBonusConversion, reason: "wagering completed", ref: domain.BonusRef(g.ID),
			})
			if err != nil {
				return nil, domain.LedgerEffect{}, err
			}
			eff.Merge(e)
		}
		s.l.log.Info().
			Int64("user_id", userID).
			Str("grant_id", g.ID.String()).
			Msg("bonus wagering completed")
	}
	if !eff.Moved() {
		eff, err = s.noop(userID)
	}
	return completed, eff, err
}

// endGrant closes g with status and removes min(grant, bonus balance) from
// the bonus bucket.
func (s *LedgerSession) endGrant(ctx context.Context, g *domain.BonusGrant, status domain.BonusStatus, reason string) (domain.LedgerEffect, error) {
	g.Status = status
	if err := s.l.bonuses.Update(ctx, s.tx, g); err != nil {
		return domain.LedgerEffect{}, apperror.InternalError(fmt.Errorf("update bonus grant: %w", err))
	}
	s.l.log.Info().
		Int64("user_id", g.UserID).
		Str("grant_id", g.ID.String()).
		Str("status", string(status)).
		Msg("bonus grant closed")

	w, err := s.wallet(g.UserID)
	if err != nil {
		return domain.LedgerEffect{}, err
	}
	amount := min(g.Amount, w.Bonus)
	if amount == 0 {
		return s.noop(g.UserID)
	}
	return s.apply(ctx, g.UserID, posting{
		bucket: domain.BucketBonus, amount: -amount, typ: domain.TxBonusForfeit,
		reason: reason, ref: domain.BonusRef(g.ID),
	})
}

// posting is a single ledger entry before it is applied.
type posting struct {
	bucket  domain.Bucket
	counter domain.Bucket
	amount  int64
	typ     domain.TransactionType
	reason  string
	ref     domain.Reference
}

// apply mutates the locked wallet, appends the entry and persists both.
func (s *LedgerSession) apply(ctx context.Context, userID int64, p posting) (domain.LedgerEffect, error) {
	w, err := s.wallet(userID)
	if err != nil {
		return domain.LedgerEffect{}, err
	}
	next := *w

	if p.counter != "" {
		if _, _, ok := next.Adjust(p.counter, -p.amount); !ok {
			return domain.LedgerEffect{}, apperror.ErrInsufficientFunds()
		}
	}
	before, after, ok := next.Adjust(p.bucket, p.amount)
	if !ok {
		return domain.LedgerEffect{}, apperror.ErrInsufficientFunds()
	}
	trackLifetime(&next, p)

	now := s.l.now()
	next.UpdatedAt = now
	entry := domain.Transaction{
		ID:            uuid.New(),
		UserID:        userID,
		Type:          p.typ,
		Bucket:        p.bucket,
		Counter:       p.counter,
		Amount:        p.amount,
		BalanceBefore: before,
		BalanceAfter:  after,
		Ref:           p.ref,
		Reason:        p.reason,
		CreatedAt:     now,
	}

	if err := s.l.entries.Create(ctx, s.tx, &entry); err != nil {
		return domain.LedgerEffect{}, apperror.InternalError(fmt.Errorf("append entry: %w", err))
	}
	if err := s.l.wallets.Update(ctx, s.tx, &next); err != nil {
		return domain.LedgerEffect{}, apperror.InternalError(fmt.Errorf("update wallet: %w", err))
	}
	*w = next

	return domain.LedgerEffect{UserID: userID, Entries: []domain.Transaction{entry}, Wallet: next}, nil
}

func (s *LedgerSession) noop(userID int64) (domain.LedgerEffect, error) {
	w, err := s.wallet(userID)
	if err != nil {
		return domain.LedgerEffect{}, err
	}
	return domain.LedgerEffect{UserID: userID, Wallet: *w}, nil
}

func (s *LedgerSession) wallet(userID int64) (*domain.Wallet, error) {
	w, ok := s.wallets[userID]
	if !ok {
		return nil, apperror.InternalError(fmt.Errorf("wallet %d is not locked in this session", userID))
	}
	return w, nil
}

func trackLifetime(w *domain.Wallet, p posting) {
	switch p.typ {
	case domain.TxCredit:
		if p.ref.Kind == domain.RefDeposit {
			w.TotalDeposited += p.amount
		}
	case domain.TxDebit:
		if p.ref.Kind == domain.RefWithdrawal {
			w.TotalWithdrawn -= p.amount
		}
	case domain.TxRelease:
		w.TotalWithdrawn -= p.amount
	case domain.TxBet:
		w.TotalWagered -= p.amount
	case domain.TxRefund:
		w.TotalWagered -= p.amount
	case domain.TxWin:
		w.TotalWon += p.amount
	}
}

func uniqueSorted(ids []int64) []int64 {
	out := append([]int64(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	n := 0
	for i, id := range out {
		if i == 0 || id != out[n-1] {
			out[n] = id
			n++
		}
	}
	return out[:n]
}
