package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"casino-core/config"
	"casino-core/internal/adapter/http/middleware"
	"casino-core/internal/fairness"
	"casino-core/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testCashierKey    = "backoffice"
	testCashierSecret = "e2e-cashier-secret"
	testProviderKey   = "0123456789abcdef0123456789abcdef"
)

type testApp struct {
	t      *testing.T
	server *httptest.Server
	sig    *service.HMACSignatureService
	cipher *service.ProviderCipher
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Server.Mode = "test"
	cfg.Storage.Driver = "memory"
	cfg.Redis.Host, cfg.Redis.Port = mr.Host(), port
	cfg.JWT.Secret = "e2e-jwt-secret"
	cfg.Security.MasterKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	cfg.Security.CashierKey = testCashierKey
	cfg.Security.CashierSecret = testCashierSecret
	cfg.Providers = map[string]config.ProviderConfig{
		"acme": {MemberPrefix: "cc_", AESKey: testProviderKey, Currency: "USD"},
	}

	ctx, cancel := context.WithCancel(context.Background())
	app, err := build(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, work := range app.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = work(ctx)
		}()
	}

	server := httptest.NewServer(app.router)
	t.Cleanup(func() {
		server.Close()
		cancel()
		wg.Wait()
		app.close()
	})

	cipher, err := service.NewProviderCipher(testProviderKey)
	require.NoError(t, err)
	return &testApp{t: t, server: server, sig: service.NewHMACSignatureService(), cipher: cipher}
}

func (a *testApp) call(req *http.Request) (int, map[string]any) {
	a.t.Helper()
	resp, err := http.DefaultClient.Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	var body map[string]any
	require.NoError(a.t, json.Unmarshal(raw, &body), string(raw))
	return resp.StatusCode, body
}

func (a *testApp) cashier(method, path string, body any) (int, map[string]any) {
	a.t.Helper()
	raw, _ := json.Marshal(body)
	if body == nil {
		raw = nil
	}
	ts := time.Now().Unix()
	nonce := strconv.FormatInt(time.Now().UnixNano(), 36)
	req, err := http.NewRequest(method, a.server.URL+path, bytes.NewReader(raw))
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderAccessKey, testCashierKey)
	req.Header.Set(middleware.HeaderTimestamp, strconv.FormatInt(ts, 10))
	req.Header.Set(middleware.HeaderNonce, nonce)
	req.Header.Set(middleware.HeaderSignature, a.sig.Sign(testCashierSecret, a.sig.BuildCanonicalString(method, path, ts, nonce, string(raw))))
	return a.call(req)
}

func (a *testApp) player(token, method, path string, body any) (int, map[string]any) {
	a.t.Helper()
	var reader io.Reader = http.NoBody
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, a.server.URL+path, reader)
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return a.call(req)
}

// seamless sends an encrypted callback and returns the envelope code and the
// decrypted reply.
func (a *testApp) seamless(kind string, payload any) (float64, string, map[string]any) {
	a.t.Helper()
	plain, _ := json.Marshal(payload)
	env, _ := json.Marshal(map[string]string{
		"timestamp": strconv.FormatInt(time.Now().UnixMilli(), 10),
		"payload":   a.cipher.Encrypt(plain),
	})
	req, err := http.NewRequest(http.MethodPost, a.server.URL+"/seamless/acme/"+kind, bytes.NewReader(env))
	require.NoError(a.t, err)
	status, body := a.call(req)
	require.Equal(a.t, http.StatusOK, status)

	var reply map[string]any
	if enc, _ := body["payload"].(string); enc != "" {
		dec, err := a.cipher.Decrypt(enc)
		require.NoError(a.t, err)
		require.NoError(a.t, json.Unmarshal(dec, &reply))
	}
	return body["code"].(float64), body["msg"].(string), reply
}

func data(body map[string]any) map[string]any {
	d, _ := body["data"].(map[string]any)
	return d
}

func (a *testApp) fundedPlayer(userID int64, amount int64) string {
	a.t.Helper()
	path := "/api/v1/cashier/players/" + strconv.FormatInt(userID, 10)

	status, _ := a.cashier(http.MethodPost, path+"/wallet", map[string]string{"currency": "usd"})
	require.Equal(a.t, http.StatusCreated, status)
	status, _ = a.cashier(http.MethodPost, path+"/deposits", map[string]any{"reference": "dep-" + strconv.FormatInt(userID, 10), "amount": amount})
	require.Equal(a.t, http.StatusCreated, status)

	status, body := a.cashier(http.MethodPost, path+"/session", nil)
	require.Equal(a.t, http.StatusCreated, status)
	return data(body)["token"].(string)
}

func TestApp_Health(t *testing.T) {
	app := newTestApp(t)

	status, body := app.player("", http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])
	deps := body["dependencies"].(map[string]any)
	assert.Contains(t, deps, "memory")
	assert.Contains(t, deps, "redis")
}

func TestApp_DiceBetIsVerifiableAfterRotation(t *testing.T) {
	app := newTestApp(t)
	token := app.fundedPlayer(1, 10_000)

	status, body := app.player(token, http.MethodPost, "/api/v1/bets", map[string]any{
		"game": "dice", "amount": 100, "params": map[string]any{"target": 50, "over": true},
	})
	require.Equal(t, http.StatusCreated, status, body)
	bet := data(body)["bet"].(map[string]any)
	payout := int64(bet["payout"].(float64))
	wallet := data(body)["wallet"].(map[string]any)
	assert.Equal(t, float64(10_000-100+payout), wallet["real"])

	status, body = app.player(token, http.MethodPost, "/api/v1/seeds/rotate", nil)
	require.Equal(t, http.StatusOK, status, body)
	revealed := data(body)["revealed"].(map[string]any)
	serverSeed := revealed["server_seed"].(string)
	assert.Equal(t, bet["server_seed_hash"], fairness.Commit(serverSeed))

	status, body = app.player("", http.MethodPost, "/api/v1/verify", map[string]any{
		"server_seed":      serverSeed,
		"server_seed_hash": bet["server_seed_hash"],
		"client_seed":      bet["client_seed"],
		"nonce":            bet["nonce"],
		"game":             "dice",
		"params":           map[string]any{"target": 50, "over": true},
	})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, true, data(body)["commitment_valid"])
	want, _ := bet["multiplier"].(float64)
	got, _ := data(body)["multiplier"].(float64)
	assert.Equal(t, want, got)
}

func TestApp_SeamlessSettlementIsIdempotent(t *testing.T) {
	app := newTestApp(t)
	app.fundedPlayer(2, 5_000)

	code, _, reply := app.seamless("balance", map[string]string{"member_account": "cc_2"})
	require.Equal(t, float64(0), code)
	assert.Equal(t, "50.00", reply["credit_amount"])

	bet := map[string]any{
		"serial_number":  "sn-1",
		"currency_code":  "USD",
		"game_uid":       "slot-7",
		"member_account": "cc_2",
		"bet_amount":     "10.00",
		"win_amount":     "2.50",
		"timestamp":      time.Now().UnixMilli(),
		"game_round":     "r-1",
	}
	code, _, first := app.seamless("bet", bet)
	require.Equal(t, float64(0), code)
	assert.Equal(t, "42.50", first["credit_amount"])

	code, _, second := app.seamless("bet", bet)
	require.Equal(t, float64(0), code)
	assert.Equal(t, first, second)

	code, msg, _ := app.seamless("balance", map[string]string{"member_account": "cc_404"})
	assert.Equal(t, float64(1), code)
	assert.Contains(t, msg, "GW_003")
}

func TestApp_CashierRejectsUnsignedAndPlayerRejectsAnonymous(t *testing.T) {
	app := newTestApp(t)

	req, err := http.NewRequest(http.MethodGet, app.server.URL+"/api/v1/cashier/players/1/wallet", nil)
	require.NoError(t, err)
	status, body := app.call(req)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "SEC_001", body["error_code"])

	status, _ = app.player("", http.MethodGet, "/api/v1/wallet", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestOpenStorage_UnknownDriver(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Storage.Driver = "sqlite"

	_, err = openStorage(context.Background(), cfg, zerolog.Nop())
	assert.ErrorContains(t, err, "sqlite")
}
