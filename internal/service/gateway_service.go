package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"casino-core/config"
	"casino-core/internal/core/domain"
	"casino-core/internal/core/ports"
	"casino-core/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Seamless reply codes.
const (
	SeamlessOK   = 0
	SeamlessFail = 1
)

const defaultSettlementCacheTTL = 24 * time.Hour

// provider is one configured aggregator.
type provider struct {
	code     string
	prefix   string
	currency string
	cipher   *ProviderCipher
}

// GatewayServiceImpl terminates provider callbacks:
// decrypt → validate → resolve player → idempotency → apply delta → encrypt.
type GatewayServiceImpl struct {
	ledger      *LedgerServiceImpl
	settlements ports.SettlementRepository
	bets        ports.BetRepository
	cache       ports.IdempotencyCache
	wagering    *WageringPolicy
	directory   ports.UserDirectory
	audit       ports.AuditService
	events      ports.EventPublisher
	metrics     ports.Metrics
	providers   map[string]*provider
	cacheTTL    time.Duration
	now         func() time.Time
	log         zerolog.Logger
}

// GatewayServiceDeps groups the collaborators of NewGatewayService.
type GatewayServiceDeps struct {
	Ledger      *LedgerServiceImpl
	Settlements ports.SettlementRepository
	Bets        ports.BetRepository
	Cache       ports.IdempotencyCache // optional
	Wagering    *WageringPolicy
	Directory   ports.UserDirectory
	Audit       ports.AuditService   // optional
	Events      ports.EventPublisher // optional
	Metrics     ports.Metrics        // optional
	Providers   map[string]config.ProviderConfig
	CacheTTL    time.Duration
}

// NewGatewayService validates every provider key up front.
func NewGatewayService(d GatewayServiceDeps, log zerolog.Logger) (*GatewayServiceImpl, error) {
	providers := make(map[string]*provider, len(d.Providers))
	for code, pc := range d.Providers {
		c, err := NewProviderCipher(pc.AESKey)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", code, err)
		}
		providers[code] = &provider{code: code, prefix: pc.MemberPrefix, currency: strings.ToUpper(pc.Currency), cipher: c}
	}
	ttl := d.CacheTTL
	if ttl <= 0 {
		ttl = defaultSettlementCacheTTL
	}
	return &GatewayServiceImpl{
		ledger:      d.Ledger,
		settlements: d.Settlements,
		bets:        d.Bets,
		cache:       d.Cache,
		wagering:    d.Wagering,
		directory:   d.Directory,
		audit:       d.Audit,
		events:      d.Events,
		metrics:     d.Metrics,
		providers:   providers,
		cacheTTL:    ttl,
		now:         func() time.Time { return time.Now().UTC() },
		log:         log,
	}, nil
}

// settlementPayload is the decrypted body of bet, rollback and balance
// callbacks. Balance probes only carry member_account.
type settlementPayload struct {
	SerialNumber  string          `json:"serial_number"`
	CurrencyCode  string          `json:"currency_code"`
	GameUID       string          `json:"game_uid"`
	MemberAccount string          `json:"member_account"`
	BetAmount     *string         `json:"bet_amount"`
	WinAmount     *string         `json:"win_amount"`
	Timestamp     json.Number     `json:"timestamp"`
	GameRound     string          `json:"game_round"`
	Data          json.RawMessage `json:"data,omitempty"`
}

// settlementResponse is the plaintext of a success payload.
type settlementResponse struct {
	CreditAmount string `json:"credit_amount"`
	Timestamp    string `json:"timestamp"`
}

// Handle never fails: every error becomes a code 1 envelope.
func (g *GatewayServiceImpl) Handle(ctx context.Context, req ports.SeamlessRequest) ports.SeamlessReply {
	p, ok := g.providers[req.Provider]
	if !ok {
		return g.fail(ctx, req, nil, apperror.ErrUnknownProvider())
	}

	plain, err := p.cipher.Decrypt(req.Payload)
	if err != nil {
		return g.fail(ctx, req, nil, apperror.ErrDecryptionFailure(err))
	}
	var body settlementPayload
	dec := json.NewDecoder(strings.NewReader(string(plain)))
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return g.fail(ctx, req, nil, apperror.ErrMalformedPayload("invalid JSON"))
	}

	var response []byte
	switch req.Kind {
	case ports.CallbackBalance:
		response, err = g.balance(ctx, p, &body)
	case ports.CallbackBet:
		response, err = g.settle(ctx, p, &body, domain.SettlementKindBet)
	case ports.CallbackRollback:
		response, err = g.settle(ctx, p, &body, domain.SettlementKindRollback)
	default:
		err = apperror.ErrMalformedPayload(fmt.Sprintf("unknown callback %q", req.Kind))
	}
	if err != nil {
		return g.fail(ctx, req, &body, err)
	}

	if g.metrics != nil {
		g.metrics.SeamlessCallback(req.Provider, string(req.Kind), SeamlessOK)
	}
	return ports.SeamlessReply{Code: SeamlessOK, Msg: "success", Payload: p.cipher.Encrypt(response)}
}

func (g *GatewayServiceImpl) balance(ctx context.Context, p *provider, body *settlementPayload) ([]byte, error) {
	userID, err := g.resolve(ctx, p, body.MemberAccount)
	if err != nil {
		return nil, err
	}
	w, err := g.ledger.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}
	return g.response(w.Playable())
}

// settle applies a bet/win or rollback exactly once per serial number.
func (g *GatewayServiceImpl) settle(ctx context.Context, p *provider, body *settlementPayload, kind domain.SettlementKind) ([]byte, error) {
	if err := g.validate(p, body, kind); err != nil {
		return nil, err
	}
	userID, err := g.resolve(ctx, p, body.MemberAccount)
	if err != nil {
		return nil, err
	}
	key := domain.SettlementKey(p.code, body.SerialNumber)

	if cached := g.cached(ctx, key); cached != nil {
		return cached, nil
	}
	prior, err := g.settlements.Get(ctx, p.code, body.SerialNumber)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get settlement: %w", err))
	}
	if prior != nil {
		return g.replay(ctx, key, prior)
	}

	betAmount, winAmount, err := parseAmounts(body)
	if err != nil {
		return nil, err
	}

	var rec *domain.ExternalSettlement
	var event domain.SettlementEvent
	err = g.ledger.Within(ctx, []int64{userID}, func(sess *LedgerSession) error {
		if prior, err = g.settlements.GetInTx(ctx, sess.Tx(), p.code, body.SerialNumber); err != nil {
			return apperror.InternalError(fmt.Errorf("get settlement: %w", err))
		}
		if prior != nil {
			return nil
		}

		before, err := sess.Wallet(userID)
		if err != nil {
			return err
		}
		ref := domain.SettlementRef(p.code, body.SerialNumber)
		var split domain.BetSplit
		if kind == domain.SettlementKindRollback {
			if betAmount, winAmount, err = g.rollback(ctx, sess, userID, p, body, betAmount, winAmount, ref); err != nil {
				return err
			}
		} else if split, err = g.applyDelta(ctx, sess, userID, betAmount, winAmount, ref); err != nil {
			return err
		}
		after, err := sess.Wallet(userID)
		if err != nil {
			return err
		}

		response, err := g.response(after.Playable())
		if err != nil {
			return err
		}
		now := g.now()
		rec = &domain.ExternalSettlement{
			ID:            uuid.New(),
			Provider:      p.code,
			SerialNumber:  body.SerialNumber,
			Kind:          kind,
			UserID:        userID,
			MemberAccount: body.MemberAccount,
			GameUID:       body.GameUID,
			GameRound:     body.GameRound,
			Currency:      p.currency,
			BetAmount:     betAmount,
			WinAmount:     winAmount,
			Split:         split,
			BalanceBefore: before.Playable(),
			BalanceAfter:  after.Playable(),
			Status:        domain.SettlementStatusApplied,
			ResponseJSON:  response,
			CreatedAt:     now,
		}
		if err := g.settlements.Create(ctx, sess.Tx(), rec); err != nil {
			if errors.Is(err, domain.ErrDuplicateSettlement) {
				return err
			}
			return apperror.InternalError(fmt.Errorf("create settlement: %w", err))
		}

		if kind == domain.SettlementKindBet && betAmount > 0 {
			if err := g.recordBet(ctx, sess, userID, p, body, split, winAmount, now); err != nil {
				return err
			}
		}

		event = domain.SettlementEvent{
			Type:       domain.EventSeamlessSettled,
			UserID:     userID,
			Reference:  ref,
			GameCode:   gameCodeOf(p, body),
			Amount:     betAmount,
			Payout:     winAmount,
			RealAfter:  after.Real,
			BonusAfter: after.Bonus,
			OccurredAt: now,
		}
		return nil
	})
	switch {
	case errors.Is(err, domain.ErrDuplicateSettlement):
		// another node committed the same serial between our checks
		if prior, err = g.settlements.Get(ctx, p.code, body.SerialNumber); err != nil || prior == nil {
			return nil, apperror.InternalError(fmt.Errorf("reload settlement: %w", err))
		}
		return g.replay(ctx, key, prior)
	case err != nil:
		return nil, err
	case prior != nil:
		return g.replay(ctx, key, prior)
	}

	g.remember(ctx, key, rec.ResponseJSON)
	g.publish(event)
	g.log.Info().
		Str("provider", p.code).
		Str("serial", body.SerialNumber).
		Str("kind", string(kind)).
		Int64("user_id", userID).
		Int64("bet", betAmount).
		Int64("win", winAmount).
		Int64("balance_after", rec.BalanceAfter).
		Msg("seamless settlement applied")
	return rec.ResponseJSON, nil
}

// applyDelta debits the bet before crediting the win and returns the buckets
// that funded the bet. Negative amounts are provider refunds and apply as
// their inverse on real.
func (g *GatewayServiceImpl) applyDelta(ctx context.Context, sess *LedgerSession, userID, bet, win int64, ref domain.Reference) (domain.BetSplit, error) {
	var split domain.BetSplit
	switch {
	case bet > 0:
		var err error
		if split, _, err = sess.DeductBet(ctx, userID, bet, ref); err != nil {
			return domain.BetSplit{}, err
		}
	case bet < 0:
		if _, err := sess.Credit(ctx, userID, -bet, domain.BucketReal, "provider bet refund", ref); err != nil {
			return domain.BetSplit{}, err
		}
	}

	switch {
	case win > 0:
		if _, err := sess.CreditWin(ctx, userID, win, split.Bonus > 0, ref); err != nil {
			return domain.BetSplit{}, err
		}
	case win < 0:
		if _, err := sess.Debit(ctx, userID, -win, domain.BucketReal, "provider win reversal", ref); err != nil {
			return domain.BetSplit{}, err
		}
	}
	return split, nil
}

// rollback reverses a BET callback of the same round. Without amounts it
// takes back whatever the round has left, so a second rollback of a settled
// round moves nothing. Explicit amounts are negative and may not exceed what
// is left. The stake returns to the buckets that funded it. It returns the
// signed amounts actually applied.
func (g *GatewayServiceImpl) rollback(ctx context.Context, sess *LedgerSession, userID int64, p *provider, body *settlementPayload, bet, win int64, ref domain.Reference) (int64, int64, error) {
	round, err := g.settlements.FindRound(ctx, sess.Tx(), p.code, userID, body.GameRound)
	if err != nil {
		return 0, 0, apperror.InternalError(fmt.Errorf("find round: %w", err))
	}
	if round == nil {
		return 0, 0, apperror.ErrUnknownRound()
	}

	stake, reversal := -bet, -win
	if body.BetAmount == nil && body.WinAmount == nil {
		left, leftWin := round.Remaining()
		stake, reversal = left.Total(), leftWin
	}
	refund, err := round.Reverse(stake, reversal)
	if err != nil {
		return 0, 0, apperror.ErrMalformedPayload(err.Error())
	}
	if err := g.settlements.UpdateReversal(ctx, sess.Tx(), round); err != nil {
		return 0, 0, apperror.InternalError(fmt.Errorf("update round %s: %w", round.SerialNumber, err))
	}

	if _, err := sess.Refund(ctx, userID, refund, ref); err != nil {
		return 0, 0, err
	}
	if reversal > 0 {
		if _, err := sess.Debit(ctx, userID, reversal, domain.BucketReal, "provider win reversal", ref); err != nil {
			return 0, 0, err
		}
	}
	return -stake, -reversal, nil
}

// recordBet stores a completed bet row for a provider stake and counts it
// toward bonus wagering.
func (g *GatewayServiceImpl) recordBet(ctx context.Context, sess *LedgerSession, userID int64, p *provider, body *settlementPayload, split domain.BetSplit, win int64, at time.Time) error {
	code := gameCodeOf(p, body)
	bet := split.Total()
	payout := max(win, 0)
	params, err := json.Marshal(map[string]string{"serial_number": body.SerialNumber, "game_round": body.GameRound})
	if err != nil {
		return apperror.InternalError(fmt.Errorf("marshal provider bet params: %w", err))
	}
	row := &domain.Bet{
		ID:        uuid.New(),
		UserID:    userID,
		GameCode:  code,
		Amount:    bet,
		Split:     split,
		Params:    params,
		Status:    domain.BetStatusPending,
		CreatedAt: at,
	}
	row.Complete(body.Data, decimal.NewFromInt(payout).Div(decimal.NewFromInt(bet)).Round(4).InexactFloat64(), payout, at)
	if len(row.Outcome) == 0 {
		row.Outcome = json.RawMessage(`{}`)
	}
	if err := g.bets.Create(ctx, sess.Tx(), row); err != nil {
		return apperror.InternalError(fmt.Errorf("create provider bet: %w", err))
	}

	eligible, err := g.wagering.Contribution(ctx, userID, code, bet)
	if err != nil {
		return err
	}
	_, _, err = sess.ApplyWagering(ctx, userID, eligible)
	return err
}

func (g *GatewayServiceImpl) validate(p *provider, body *settlementPayload, kind domain.SettlementKind) error {
	switch {
	case body.SerialNumber == "":
		return apperror.ErrMalformedPayload("serial_number is required")
	case body.MemberAccount == "":
		return apperror.ErrMalformedPayload("member_account is required")
	case body.GameRound == "":
		return apperror.ErrMalformedPayload("game_round is required")
	}
	if kind == domain.SettlementKindBet && (body.BetAmount == nil || body.WinAmount == nil) {
		return apperror.ErrMalformedPayload("bet_amount and win_amount are required")
	}
	if body.CurrencyCode != "" && !strings.EqualFold(body.CurrencyCode, p.currency) {
		return apperror.ErrMalformedPayload(fmt.Sprintf("currency %s not supported", body.CurrencyCode))
	}
	return nil
}

// resolve maps "<prefix><user id>" to an active player.
func (g *GatewayServiceImpl) resolve(ctx context.Context, p *provider, member string) (int64, error) {
	if member == "" {
		return 0, apperror.ErrMalformedPayload("member_account is required")
	}
	raw, ok := strings.CutPrefix(member, p.prefix)
	if !ok {
		return 0, apperror.ErrUnknownPlayer()
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		return 0, apperror.ErrUnknownPlayer()
	}
	player, err := g.directory.GetPlayer(ctx, userID)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("get player: %w", err))
	}
	if player == nil {
		return 0, apperror.ErrUnknownPlayer()
	}
	if !player.Active {
		return 0, apperror.ErrPlayerInactive()
	}
	return userID, nil
}

func (g *GatewayServiceImpl) response(credit int64) ([]byte, error) {
	out, err := json.Marshal(settlementResponse{
		CreditAmount: FormatAmount(credit),
		Timestamp:    strconv.FormatInt(g.now().UnixMilli(), 10),
	})
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("marshal response: %w", err))
	}
	return out, nil
}

func (g *GatewayServiceImpl) replay(ctx context.Context, key string, prior *domain.ExternalSettlement) ([]byte, error) {
	g.remember(ctx, key, prior.ResponseJSON)
	g.log.Info().Str("key", key).Msg("duplicate settlement, returning recorded response")
	return prior.ResponseJSON, nil
}

func (g *GatewayServiceImpl) cached(ctx context.Context, key string) []byte {
	if g.cache == nil {
		return nil
	}
	data, err := g.cache.Get(ctx, key)
	if err != nil {
		g.log.Warn().Err(err).Str("key", key).Msg("idempotency cache read failed")
		return nil
	}
	return data
}

func (g *GatewayServiceImpl) remember(ctx context.Context, key string, response []byte) {
	if g.cache == nil {
		return
	}
	if err := g.cache.Set(ctx, key, response, g.cacheTTL); err != nil {
		g.log.Warn().Err(err).Str("key", key).Msg("idempotency cache write failed")
	}
}

func (g *GatewayServiceImpl) publish(event domain.SettlementEvent) {
	if g.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := g.events.Publish(ctx, event); err != nil {
		g.log.Warn().Err(err).Str("ref", event.Reference.String()).Msg("failed to publish settlement event")
	}
}

// fail builds the failure envelope and leaves an audit record behind.
func (g *GatewayServiceImpl) fail(ctx context.Context, req ports.SeamlessRequest, body *settlementPayload, err error) ports.SeamlessReply {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		appErr = apperror.InternalError(err)
	}

	evt := g.log.Warn()
	if appErr.HTTPStatus >= 500 {
		evt = g.log.Error()
	}
	evt.Err(err).Str("provider", req.Provider).Str("kind", string(req.Kind)).Str("code", appErr.Code).Msg("seamless callback rejected")

	if g.audit != nil {
		details := map[string]string{"code": appErr.Code, "kind": string(req.Kind), "provider": req.Provider}
		resourceID := ""
		if body != nil {
			resourceID = body.SerialNumber
			details["member_account"] = body.MemberAccount
			details["game_round"] = body.GameRound
		}
		raw, _ := json.Marshal(details)
		g.audit.Log(ctx, &domain.AuditLog{
			Action:       domain.AuditActionSeamlessReject,
			ResourceType: "external_settlement",
			ResourceID:   resourceID,
			Details:      string(raw),
			IPAddress:    req.ClientIP,
		})
	}
	if g.metrics != nil {
		g.metrics.SeamlessCallback(req.Provider, string(req.Kind), SeamlessFail)
	}

	msg := appErr.Message
	if appErr.HTTPStatus >= 500 {
		msg = "internal error"
	}
	return ports.SeamlessReply{Code: SeamlessFail, Msg: fmt.Sprintf("%s: %s", appErr.Code, msg)}
}

// ParseAmount converts a decimal string with at most two decimals to
// minor units.
func ParseAmount(s string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("amount %q: %w", s, err)
	}
	cents := d.Shift(2)
	if !cents.Equal(cents.Truncate(0)) {
		return 0, fmt.Errorf("amount %q has more than two decimals", s)
	}
	if !cents.Abs().LessThan(decimal.New(1, 17)) {
		return 0, fmt.Errorf("amount %q out of range", s)
	}
	return cents.IntPart(), nil
}

// FormatAmount renders minor units with two decimals.
func FormatAmount(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

func parseAmounts(body *settlementPayload) (bet, win int64, err error) {
	if body.BetAmount != nil {
		if bet, err = ParseAmount(*body.BetAmount); err != nil {
			return 0, 0, apperror.ErrMalformedPayload(err.Error())
		}
	}
	if body.WinAmount != nil {
		if win, err = ParseAmount(*body.WinAmount); err != nil {
			return 0, 0, apperror.ErrMalformedPayload(err.Error())
		}
	}
	return bet, win, nil
}

func gameCodeOf(p *provider, body *settlementPayload) string {
	if body.GameUID == "" {
		return p.code
	}
	return p.code + "/" + body.GameUID
}
