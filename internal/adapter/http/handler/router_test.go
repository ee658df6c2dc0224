package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"casino-core/internal/adapter/http/middleware"
	"casino-core/internal/adapter/metrics"
	"casino-core/internal/core/domain"
	"casino-core/internal/core/ports"
	"casino-core/internal/core/ports/mocks"
	"casino-core/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var testCashier = middleware.CashierCredentials{AccessKey: "back-office", Secret: "cashier-secret"}

type routerFixture struct {
	router  http.Handler
	ledger  *mocks.MockLedgerService
	gateway *mocks.MockGatewayService
	crash   *mocks.MockCrashService
	tokens  *service.JWTTokenService
	sig     *service.HMACSignatureService
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	games, fair := testRegistry(t)
	health := mocks.NewMockHealthChecker(ctrl)
	health.EXPECT().Ping(gomock.Any()).Return(nil).AnyTimes()
	health.EXPECT().Name().Return("postgresql").AnyTimes()

	f := &routerFixture{
		ledger:  mocks.NewMockLedgerService(ctrl),
		gateway: mocks.NewMockGatewayService(ctrl),
		crash:   mocks.NewMockCrashService(ctrl),
		tokens:  service.NewJWTTokenService("router-test-secret", time.Hour, "casino-core"),
		sig:     service.NewHMACSignatureService(),
	}
	f.router = SetupRouter(RouterDeps{
		Gateway:        f.gateway,
		Bets:           mocks.NewMockBetService(ctrl),
		Crash:          f.crash,
		Seeds:          mocks.NewMockSeedService(ctrl),
		Ledger:         f.ledger,
		TokenSvc:       f.tokens,
		SigSvc:         f.sig,
		Cashier:        testCashier,
		Games:          games,
		Fairness:       fair,
		HealthCheckers: []ports.HealthChecker{health},
		Metrics:        metrics.New(),
		Logger:         zerolog.Nop(),
	})
	return f
}

func (f *routerFixture) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *routerFixture) signed(method, path, body, nonce string) *http.Request {
	ts := time.Now().Unix()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderAccessKey, testCashier.AccessKey)
	req.Header.Set(middleware.HeaderTimestamp, strconv.FormatInt(ts, 10))
	req.Header.Set(middleware.HeaderNonce, nonce)
	req.Header.Set(middleware.HeaderSignature, f.sig.Sign(testCashier.Secret, f.sig.BuildCanonicalString(method, path, ts, nonce, body)))
	return req
}

func TestRouter_PlayerRoutesNeedToken(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/wallet", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, _, err := f.tokens.Generate(9)
	require.NoError(t, err)
	f.ledger.EXPECT().Balance(gomock.Any(), int64(9)).Return(&domain.Wallet{UserID: 9, Currency: "EUR", Real: 10, Bonus: 5}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/wallet", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = f.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(15), decodeData(t, w)["playable"])
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))
}

func TestRouter_CashierSignature(t *testing.T) {
	f := newRouterFixture(t)
	body := `{"reference":"dep-1","amount":250}`
	path := "/api/v1/cashier/players/3/deposits"

	f.ledger.EXPECT().Credit(gomock.Any(), int64(3), int64(250), domain.BucketReal, "deposit", domain.DepositRef("dep-1")).
		Return(domain.LedgerEffect{UserID: 3}, nil)
	w := f.do(f.signed(http.MethodPost, path, body, "n-1"))
	assert.Equal(t, http.StatusCreated, w.Code)

	tampered := f.signed(http.MethodPost, path, body, "n-2")
	tampered.Body = io.NopCloser(strings.NewReader(`{"reference":"dep-1","amount":25000}`))
	w = f.do(tampered)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "SEC_002", errorCode(t, w))

	w = f.do(httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))
	assert.Equal(t, "SEC_001", errorCode(t, w))
}

func TestRouter_SeamlessAlwaysHTTP200(t *testing.T) {
	f := newRouterFixture(t)
	f.gateway.EXPECT().Handle(gomock.Any(), gomock.Any()).Return(ports.SeamlessReply{Code: 1, Msg: "GW_005: Unknown provider"})

	req := httptest.NewRequest(http.MethodPost, "/seamless/nobody/balance", strings.NewReader(`{"timestamp":"1","payload":"x"}`))
	w := f.do(req)

	assert.Equal(t, http.StatusOK, w.Code)
	var env map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, float64(1), env["code"])
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	f := newRouterFixture(t)
	f.crash.EXPECT().Current().Return(domain.CrashRound{Number: 1})

	assert.Equal(t, http.StatusOK, f.do(httptest.NewRequest(http.MethodGet, "/health", nil)).Code)
	assert.Equal(t, http.StatusOK, f.do(httptest.NewRequest(http.MethodGet, "/api/v1/crash", nil)).Code)

	w := f.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `casino_http_requests_total{method="GET",route="/api/v1/crash",status="200"} 1`)
}
