package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"casino-core/config"
	"casino-core/internal/adapter/http/middleware"
	"casino-core/internal/core/domain"
	"casino-core/internal/core/ports"
	"casino-core/internal/core/ports/mocks"
	"casino-core/internal/fairness"
	"casino-core/internal/game"
	"casino-core/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testServerSeed = strings.Repeat("ab", 32)

// serve mounts h behind a fake auth step that sets userID (0 = anonymous).
func serve(method, route string, userID int64, h gin.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	r := gin.New()
	r.Handle(method, route, func(c *gin.Context) {
		if userID != 0 {
			c.Set(middleware.CtxUserID, userID)
		}
		c.Next()
	}, h)

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data, ok := resp["data"].(map[string]any)
	require.True(t, ok, "body: %s", w.Body.String())
	return data
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	code, _ := resp["error_code"].(string)
	return code
}

func testRegistry(t *testing.T) (*game.Registry, config.FairnessConfig) {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	games, err := game.NewRegistry(cfg.Games)
	require.NoError(t, err)
	return games, cfg.Fairness
}

// --- Seamless ---

func TestSeamlessCallback_PassesEnvelopeThrough(t *testing.T) {
	ctrl := gomock.NewController(t)
	gateway := mocks.NewMockGatewayService(ctrl)
	h := NewSeamlessHandler(gateway)

	gateway.EXPECT().Handle(gomock.Any(), ports.SeamlessRequest{
		Provider:  "acme",
		Kind:      ports.CallbackBet,
		Timestamp: "1700000000000",
		Payload:   "cipher==",
		ClientIP:  "192.0.2.1",
	}).Return(ports.SeamlessReply{Code: 0, Msg: "success", Payload: "reply=="})

	w := serve(http.MethodPost, "/seamless/:provider/bet", 0, h.Callback(ports.CallbackBet), "/seamless/acme/bet",
		map[string]string{"timestamp": "1700000000000", "payload": "cipher=="})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"code":0,"msg":"success","payload":"reply=="}`, w.Body.String())
}

func TestSeamlessCallback_GarbageBodyIsStillHTTP200(t *testing.T) {
	ctrl := gomock.NewController(t)
	gateway := mocks.NewMockGatewayService(ctrl)
	h := NewSeamlessHandler(gateway)

	gateway.EXPECT().Handle(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ any, req ports.SeamlessRequest) ports.SeamlessReply {
			assert.Empty(t, req.Payload)
			assert.Equal(t, ports.CallbackRollback, req.Kind)
			return ports.SeamlessReply{Code: 1, Msg: "GW_001: Payload decryption failed"}
		})

	w := serve(http.MethodPost, "/seamless/:provider/rollback", 0, h.Callback(ports.CallbackRollback), "/seamless/acme/rollback", "not json")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"code":1,"msg":"GW_001: Payload decryption failed","payload":""}`, w.Body.String())
}

// --- Bets ---

func TestPlaceBet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	bets := mocks.NewMockBetService(ctrl)
	h := NewBetHandler(bets)

	betID := uuid.New()
	bets.EXPECT().PlaceBet(gomock.Any(), ports.PlaceBetRequest{
		UserID:   7,
		GameCode: "mines",
		Amount:   100,
		Params:   json.RawMessage(`{"mines":3}`),
	}).Return(&ports.BetResult{
		Bet: &domain.Bet{ID: betID, UserID: 7, GameCode: "mines", Amount: 100, Status: domain.BetStatusPending},
		Round: &domain.RoundState{
			BetID:    betID,
			GameCode: "mines",
			Amount:   100,
			Layout:   []int{2, 11, 19},
		},
		Wallet: domain.Wallet{UserID: 7, Currency: "USD", Real: 900, Bonus: 50},
	}, nil)

	w := serve(http.MethodPost, "/bets", 7, h.PlaceBet, "/bets",
		map[string]any{"game": "mines", "amount": 100, "params": map[string]int{"mines": 3}})

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decodeData(t, w)
	round := data["round"].(map[string]any)
	assert.Equal(t, float64(3), round["mines"])
	assert.NotContains(t, w.Body.String(), "layout")
	assert.NotContains(t, round, "cards")
	wallet := data["wallet"].(map[string]any)
	assert.Equal(t, float64(950), wallet["playable"])
}

func TestPlaceBet_ValidationAndAuth(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := NewBetHandler(mocks.NewMockBetService(ctrl))

	w := serve(http.MethodPost, "/bets", 7, h.PlaceBet, "/bets", map[string]any{"game": "dice"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "BET_001", errorCode(t, w))

	w = serve(http.MethodPost, "/bets", 0, h.PlaceBet, "/bets", map[string]any{"game": "dice", "amount": 1})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPlaceBet_InsufficientFunds(t *testing.T) {
	ctrl := gomock.NewController(t)
	bets := mocks.NewMockBetService(ctrl)
	h := NewBetHandler(bets)
	bets.EXPECT().PlaceBet(gomock.Any(), gomock.Any()).Return(nil, apperror.ErrInsufficientFunds())

	w := serve(http.MethodPost, "/bets", 7, h.PlaceBet, "/bets", map[string]any{"game": "dice", "amount": 1})

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, "WAL_001", errorCode(t, w))
}

func TestGuess_ShowsOnlyDealtCards(t *testing.T) {
	ctrl := gomock.NewController(t)
	bets := mocks.NewMockBetService(ctrl)
	h := NewBetHandler(bets)

	betID := uuid.New()
	bets.EXPECT().Guess(gomock.Any(), int64(7), betID, true).Return(&ports.BetResult{
		Bet:   &domain.Bet{ID: betID, GameCode: "hilo", Status: domain.BetStatusPending},
		Round: &domain.RoundState{BetID: betID, GameCode: "hilo", Layout: []int{4, 30, 12, 50}, Step: 1, Multiplier: 1.4},
	}, nil)

	w := serve(http.MethodPost, "/bets/:id/guess", 7, h.Guess, "/bets/"+betID.String()+"/guess", map[string]bool{"higher": true})

	assert.Equal(t, http.StatusOK, w.Code)
	round := decodeData(t, w)["round"].(map[string]any)
	assert.Equal(t, []any{float64(4), float64(30)}, round["cards"])
}

func TestReveal_BadBetID(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := NewBetHandler(mocks.NewMockBetService(ctrl))

	w := serve(http.MethodPost, "/bets/:id/reveal", 7, h.Reveal, "/bets/not-a-uuid/reveal", map[string]int{"tile": 1})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "BET_006", errorCode(t, w))
}

func TestCashOutAndCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	bets := mocks.NewMockBetService(ctrl)
	h := NewBetHandler(bets)
	betID := uuid.New()

	bets.EXPECT().CashOut(gomock.Any(), int64(7), betID).Return(&ports.BetResult{
		Bet: &domain.Bet{ID: betID, Status: domain.BetStatusCompleted, Payout: 240},
	}, nil)
	w := serve(http.MethodPost, "/bets/:id/cashout", 7, h.CashOut, "/bets/"+betID.String()+"/cashout", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Nil(t, data["round"])
	assert.Equal(t, float64(240), data["bet"].(map[string]any)["payout"])

	bets.EXPECT().CancelBet(gomock.Any(), int64(7), betID).Return(nil, apperror.ErrBetAlreadySettled())
	w = serve(http.MethodPost, "/bets/:id/cancel", 7, h.Cancel, "/bets/"+betID.String()+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

// --- Crash ---

func TestCrash_PlaceAndCashOut(t *testing.T) {
	ctrl := gomock.NewController(t)
	crash := mocks.NewMockCrashService(ctrl)
	h := NewCrashHandler(crash)
	betID := uuid.New()

	crash.EXPECT().PlaceBet(gomock.Any(), int64(7), int64(500), 2.0).Return(&domain.Bet{ID: betID, GameCode: "crash", Status: domain.BetStatusPending}, nil)
	w := serve(http.MethodPost, "/crash/bets", 7, h.PlaceBet, "/crash/bets", map[string]any{"amount": 500, "auto_cashout": 2.0})
	assert.Equal(t, http.StatusCreated, w.Code)

	crash.EXPECT().CashOut(gomock.Any(), int64(7), betID).Return(nil, apperror.ErrRoundCrashed())
	w = serve(http.MethodPost, "/crash/cashout", 7, h.CashOut, "/crash/cashout", map[string]string{"bet_id": betID.String()})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "BET_005", errorCode(t, w))
}

func TestCrash_CurrentAndHistory(t *testing.T) {
	ctrl := gomock.NewController(t)
	crash := mocks.NewMockCrashService(ctrl)
	h := NewCrashHandler(crash)

	crash.EXPECT().Current().Return(domain.CrashRound{Number: 12, Phase: domain.CrashPhaseRunning, Multiplier: 1.37})
	w := serve(http.MethodGet, "/crash", 0, h.Current, "/crash", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(12), decodeData(t, w)["round"])

	crash.EXPECT().History(20).Return([]domain.CrashRound{{Number: 11, BurstPoint: 3.2}})
	w = serve(http.MethodGet, "/crash/history", 0, h.History, "/crash/history?limit=5000", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

// --- Seeds ---

func TestSeedRotate_EmptyBody(t *testing.T) {
	ctrl := gomock.NewController(t)
	seeds := mocks.NewMockSeedService(ctrl)
	games, fair := testRegistry(t)
	h := NewSeedHandler(seeds, games, fair)

	revealedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seeds.EXPECT().Rotate(gomock.Any(), int64(7), "").Return(&ports.SeedRotation{
		Revealed: &domain.SeedPair{ServerSeed: testServerSeed, ServerSeedHash: fairness.Commit(testServerSeed), ClientSeed: "c1", Nonce: 14, RevealedAt: &revealedAt},
		Next:     &domain.SeedPair{ServerSeedHash: "next-hash", ClientSeed: "c2", Active: true},
	}, nil)

	w := serve(http.MethodPost, "/seeds/rotate", 7, h.Rotate, "/seeds/rotate", nil)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, testServerSeed, data["revealed"].(map[string]any)["server_seed"])
	next := data["next"].(map[string]any)
	assert.NotContains(t, next, "server_seed")
	assert.Equal(t, "next-hash", next["server_seed_hash"])
}

func TestSeedCurrent_NeverShowsServerSeed(t *testing.T) {
	ctrl := gomock.NewController(t)
	seeds := mocks.NewMockSeedService(ctrl)
	games, fair := testRegistry(t)
	h := NewSeedHandler(seeds, games, fair)

	seeds.EXPECT().Current(gomock.Any(), int64(7)).Return(&domain.SeedPair{ServerSeed: testServerSeed, ServerSeedHash: "h", Active: true}, nil)

	w := serve(http.MethodGet, "/seeds", 7, h.Current, "/seeds", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), testServerSeed)
}

func TestVerify_ReproducesInstantOutcome(t *testing.T) {
	games, fair := testRegistry(t)
	h := NewSeedHandler(nil, games, fair)

	params := json.RawMessage(`{"target":50,"over":true}`)
	dice, ok := games.Instant("dice")
	require.True(t, ok)
	want, err := dice.Resolve(fairness.NewStream(testServerSeed, "client", 3), params)
	require.NoError(t, err)

	w := serve(http.MethodPost, "/verify", 0, h.Verify, "/verify", map[string]any{
		"server_seed":      testServerSeed,
		"server_seed_hash": fairness.Commit(testServerSeed),
		"client_seed":      "client",
		"nonce":            3,
		"game":             "dice",
		"params":           params,
	})

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, true, data["commitment_valid"])
	assert.Equal(t, fairness.Derive(testServerSeed, "client", 3).Hex(), data["digest"])
	assert.Equal(t, want.Detail.(game.DiceResult).Roll, data["outcome"].(map[string]any)["roll"])
}

func TestVerify_CrashAndBadCommitment(t *testing.T) {
	games, fair := testRegistry(t)
	h := NewSeedHandler(nil, games, fair)

	w := serve(http.MethodPost, "/verify", 0, h.Verify, "/verify", map[string]any{
		"server_seed":      testServerSeed,
		"server_seed_hash": strings.Repeat("0", 64),
		"client_seed":      fair.CrashSalt,
		"nonce":            42,
		"game":             "crash",
	})

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, false, data["commitment_valid"])
	want := fairness.NewStream(testServerSeed, fair.CrashSalt, 42).CrashPoint(fair.CrashHouseEdge, fair.CrashMinMultiplier, fair.CrashMaxMultiplier)
	assert.Equal(t, want, data["multiplier"])
}

func TestVerify_RejectsBadInput(t *testing.T) {
	games, fair := testRegistry(t)
	h := NewSeedHandler(nil, games, fair)

	tests := []struct {
		name string
		body map[string]any
		code string
	}{
		{"short seed", map[string]any{"server_seed": "abc", "server_seed_hash": strings.Repeat("0", 64), "client_seed": "c"}, "BET_001"},
		{"unknown game", map[string]any{"server_seed": testServerSeed, "server_seed_hash": strings.Repeat("0", 64), "client_seed": "c", "game": "poker"}, "BET_003"},
		{"bad mines params", map[string]any{"server_seed": testServerSeed, "server_seed_hash": strings.Repeat("0", 64), "client_seed": "c", "game": "mines", "params": map[string]int{"mines": 0}}, "BET_001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(http.MethodPost, "/verify", 0, h.Verify, "/verify", tt.body)
			assert.Equal(t, tt.code, errorCode(t, w))
		})
	}
}

// --- Wallet ---

func TestStatement_MapsFilters(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := mocks.NewMockLedgerService(ctrl)
	h := NewWalletHandler(ledger)

	bet := domain.TxBet
	bucket := domain.BucketReal
	from := int64(1700000000)
	ledger.EXPECT().Statement(gomock.Any(), ports.TransactionListParams{
		UserID:   7,
		Type:     &bet,
		Bucket:   &bucket,
		From:     &from,
		Page:     2,
		PageSize: 10,
	}).Return([]domain.Transaction{{UserID: 7, Type: domain.TxBet, Amount: -100}}, int64(21), nil)

	w := serve(http.MethodGet, "/wallet/transactions", 7, h.Statement, "/wallet/transactions?type=BET&bucket=real&from=1700000000&page=2&page_size=10", nil)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, float64(3), data["total_pages"])
	assert.Len(t, data["items"], 1)
}

func TestStatement_RejectsUnknownBucket(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := NewWalletHandler(mocks.NewMockLedgerService(ctrl))

	w := serve(http.MethodGet, "/wallet/transactions", 7, h.Statement, "/wallet/transactions?bucket=gold", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetBalance_WalletNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := mocks.NewMockLedgerService(ctrl)
	h := NewWalletHandler(ledger)
	ledger.EXPECT().Balance(gomock.Any(), int64(7)).Return(nil, apperror.ErrWalletNotFound())

	w := serve(http.MethodGet, "/wallet", 7, h.GetBalance, "/wallet", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// --- Cashier ---

func TestCashierDeposit(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := mocks.NewMockLedgerService(ctrl)
	h := NewCashierHandler(ledger, mocks.NewMockTokenService(ctrl))

	ledger.EXPECT().Credit(gomock.Any(), int64(42), int64(5000), domain.BucketReal, "deposit", domain.DepositRef("dep-9")).
		Return(domain.LedgerEffect{UserID: 42, Wallet: domain.Wallet{UserID: 42, Real: 5000}}, nil)

	w := serve(http.MethodPost, "/players/:user_id/deposits", 0, h.Deposit, "/players/42/deposits",
		map[string]any{"reference": "dep-9", "amount": 5000})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, float64(5000), decodeData(t, w)["wallet"].(map[string]any)["real"])
}

func TestCashierWithdrawalLifecycle(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := mocks.NewMockLedgerService(ctrl)
	h := NewCashierHandler(ledger, mocks.NewMockTokenService(ctrl))
	ref := domain.WithdrawalRef("wd-1")

	gomock.InOrder(
		ledger.EXPECT().Lock(gomock.Any(), int64(42), int64(300), ref).Return(domain.LedgerEffect{}, nil),
		ledger.EXPECT().ReleaseLocked(gomock.Any(), int64(42), int64(300), ref).Return(domain.LedgerEffect{}, nil),
		ledger.EXPECT().Unlock(gomock.Any(), int64(42), int64(300), ref).Return(domain.LedgerEffect{}, apperror.ErrInsufficientFunds()),
	)
	body := map[string]any{"reference": "wd-1", "amount": 300}

	assert.Equal(t, http.StatusCreated, serve(http.MethodPost, "/p/:user_id/w", 0, h.Withdraw, "/p/42/w", body).Code)
	assert.Equal(t, http.StatusCreated, serve(http.MethodPost, "/p/:user_id/a", 0, h.ApproveWithdrawal, "/p/42/a", body).Code)
	assert.Equal(t, http.StatusPaymentRequired, serve(http.MethodPost, "/p/:user_id/r", 0, h.RejectWithdrawal, "/p/42/r", body).Code)
}

func TestCashierSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := mocks.NewMockLedgerService(ctrl)
	tokens := mocks.NewMockTokenService(ctrl)
	h := NewCashierHandler(ledger, tokens)

	expiry := time.Unix(1800000000, 0)
	ledger.EXPECT().Balance(gomock.Any(), int64(42)).Return(&domain.Wallet{UserID: 42}, nil)
	tokens.EXPECT().Generate(int64(42)).Return("jwt-42", expiry, nil)

	w := serve(http.MethodPost, "/players/:user_id/session", 0, h.Session, "/players/42/session", nil)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "jwt-42", data["token"])
	assert.Equal(t, float64(1800000000), data["expiry"])
}

func TestCashierBadPathUser(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := NewCashierHandler(mocks.NewMockLedgerService(ctrl), mocks.NewMockTokenService(ctrl))

	w := serve(http.MethodGet, "/players/:user_id/reconcile", 0, h.Reconcile, "/players/abc/reconcile", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCashierTransferAndBonus(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := mocks.NewMockLedgerService(ctrl)
	h := NewCashierHandler(ledger, mocks.NewMockTokenService(ctrl))

	ledger.EXPECT().Transfer(gomock.Any(), int64(1), int64(2), int64(75), "gift").Return(&ports.TransferResult{ID: uuid.New()}, nil)
	w := serve(http.MethodPost, "/transfers", 0, h.Transfer, "/transfers", map[string]any{"from_user_id": 1, "to_user_id": 2, "amount": 75, "reason": " gift "})
	assert.Equal(t, http.StatusCreated, w.Code)

	grantID := uuid.New()
	ledger.EXPECT().GrantBonus(gomock.Any(), ports.GrantBonusRequest{UserID: 5, Amount: 1000, Requirement: 30000}).
		Return(&domain.BonusGrant{ID: grantID, Status: domain.BonusStatusActive}, domain.LedgerEffect{}, nil)
	w = serve(http.MethodPost, "/players/:user_id/bonuses", 0, h.GrantBonus, "/players/5/bonuses", map[string]any{"amount": 1000, "requirement": 30000})
	assert.Equal(t, http.StatusCreated, w.Code)

	ledger.EXPECT().ForfeitBonus(gomock.Any(), grantID).Return(nil, domain.LedgerEffect{}, apperror.ErrBonusNotFound())
	w = serve(http.MethodPost, "/bonuses/:id/forfeit", 0, h.ForfeitBonus, "/bonuses/"+grantID.String()+"/forfeit", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// --- Health ---

func TestHealthCheck(t *testing.T) {
	ctrl := gomock.NewController(t)
	pg := mocks.NewMockHealthChecker(ctrl)
	rd := mocks.NewMockHealthChecker(ctrl)
	pg.EXPECT().Ping(gomock.Any()).Return(nil)
	pg.EXPECT().Name().Return("postgresql").AnyTimes()
	rd.EXPECT().Ping(gomock.Any()).Return(assert.AnError)
	rd.EXPECT().Name().Return("redis").AnyTimes()

	w := serve(http.MethodGet, "/health", 0, HealthCheck(pg, rd), "/health", nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp["status"])
	deps := resp["dependencies"].(map[string]any)
	assert.Equal(t, "healthy", deps["postgresql"].(map[string]any)["status"])
	assert.Equal(t, "unhealthy", deps["redis"].(map[string]any)["status"])
}
