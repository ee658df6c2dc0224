package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"casino-core/internal/core/ports"
	"casino-core/internal/core/ports/mocks"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testCreds = CashierCredentials{AccessKey: "backoffice", Secret: "cashier-secret"}

func cashierRouter(sigSvc ports.SignatureService, nonceStore ports.NonceStore) *gin.Engine {
	router := gin.New()
	router.POST("/test", CashierAuth(testCreds, sigSvc, nonceStore, zerolog.Nop()), func(c *gin.Context) {
		c.JSON(200, gin.H{"cashier": c.GetString(CtxCashier)})
	})
	return router
}

func signedRequest(key, ts string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/test", bytes.NewBufferString(`{"amount":500}`))
	req.Header.Set(HeaderAccessKey, key)
	req.Header.Set(HeaderSignature, "sig")
	req.Header.Set(HeaderTimestamp, ts)
	req.Header.Set(HeaderNonce, "nonce-1")
	return req
}

func TestCashierAuth_MissingHeaders(t *testing.T) {
	ctrl := gomock.NewController(t)
	router := cashierRouter(mocks.NewMockSignatureService(ctrl), mocks.NewMockNonceStore(ctrl))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/test", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCashierAuth_WrongAccessKey(t *testing.T) {
	ctrl := gomock.NewController(t)
	router := cashierRouter(mocks.NewMockSignatureService(ctrl), mocks.NewMockNonceStore(ctrl))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, signedRequest("someone-else", strconv.FormatInt(time.Now().Unix(), 10)))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "SEC_001")
}

func TestCashierAuth_ExpiredTimestamp(t *testing.T) {
	ctrl := gomock.NewController(t)
	router := cashierRouter(mocks.NewMockSignatureService(ctrl), mocks.NewMockNonceStore(ctrl))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, signedRequest("backoffice", strconv.FormatInt(time.Now().Add(-2*time.Minute).Unix(), 10)))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "SEC_003")
}

func TestCashierAuth_ReplayedNonce(t *testing.T) {
	ctrl := gomock.NewController(t)
	nonceStore := mocks.NewMockNonceStore(ctrl)
	nonceStore.EXPECT().CheckAndSet(gomock.Any(), "backoffice", "nonce-1", nonceTTL).Return(false, nil)
	router := cashierRouter(mocks.NewMockSignatureService(ctrl), nonceStore)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, signedRequest("backoffice", strconv.FormatInt(time.Now().Unix(), 10)))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "SEC_004")
}

func TestCashierAuth_BadSignature(t *testing.T) {
	ctrl := gomock.NewController(t)
	sigSvc := mocks.NewMockSignatureService(ctrl)
	sigSvc.EXPECT().BuildCanonicalString(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return("canonical")
	sigSvc.EXPECT().Verify("cashier-secret", "canonical", "sig").Return(false)
	router := cashierRouter(sigSvc, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, signedRequest("backoffice", strconv.FormatInt(time.Now().Unix(), 10)))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "SEC_002")
}

func TestCashierAuth_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	sigSvc := mocks.NewMockSignatureService(ctrl)
	nonceStore := mocks.NewMockNonceStore(ctrl)

	nowTs := time.Now().Unix()
	nonceStore.EXPECT().CheckAndSet(gomock.Any(), "backoffice", "nonce-1", nonceTTL).Return(true, nil)
	sigSvc.EXPECT().BuildCanonicalString("POST", "/test", nowTs, "nonce-1", `{"amount":500}`).Return("canonical")
	sigSvc.EXPECT().Verify("cashier-secret", "canonical", "sig").Return(true)

	w := httptest.NewRecorder()
	cashierRouter(sigSvc, nonceStore).ServeHTTP(w, signedRequest("backoffice", strconv.FormatInt(nowTs, 10)))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"cashier":"backoffice"}`, w.Body.String())
}

func TestCashierAuth_NoSecretConfigured(t *testing.T) {
	ctrl := gomock.NewController(t)
	router := gin.New()
	router.POST("/test", CashierAuth(CashierCredentials{AccessKey: "backoffice"}, mocks.NewMockSignatureService(ctrl), nil, zerolog.Nop()), func(c *gin.Context) {
		c.Status(200)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, signedRequest("backoffice", strconv.FormatInt(time.Now().Unix(), 10)))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPlayerAuth(t *testing.T) {
	tests := []struct {
		name   string
		header string
		setup  func(tokenSvc *mocks.MockTokenService)
		status int
	}{
		{"missing header", "", func(*mocks.MockTokenService) {}, http.StatusUnauthorized},
		{"not bearer", "Basic abc", func(*mocks.MockTokenService) {}, http.StatusUnauthorized},
		{"invalid token", "Bearer bad_token", func(m *mocks.MockTokenService) {
			m.EXPECT().Validate("bad_token").Return(nil, assert.AnError)
		}, http.StatusUnauthorized},
		{"valid token", "Bearer good_token", func(m *mocks.MockTokenService) {
			m.EXPECT().Validate("good_token").Return(&ports.TokenClaims{UserID: 42}, nil)
		}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			tokenSvc := mocks.NewMockTokenService(ctrl)
			tt.setup(tokenSvc)

			var captured int64
			router := gin.New()
			router.GET("/test", PlayerAuth(tokenSvc), func(c *gin.Context) {
				captured, _ = UserID(c)
				c.Status(200)
			})

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, int64(42), captured)
			}
		})
	}
}

func TestRecovery_PanicRecovered(t *testing.T) {
	router := gin.New()
	router.Use(Recovery(zerolog.Nop()))
	router.GET("/panic", func(c *gin.Context) {
		panic("something went wrong")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "SYS_001", resp["error_code"])
}

type recordedRequest struct {
	method, route string
	status        int
}

type fakeObserver struct{ got []recordedRequest }

func (f *fakeObserver) HTTPRequest(method, route string, status int, _ float64) {
	f.got = append(f.got, recordedRequest{method, route, status})
}

func TestRequestLogger_RecordsRouteTemplate(t *testing.T) {
	var buf bytes.Buffer
	obs := &fakeObserver{}
	router := gin.New()
	router.Use(RequestID(), RequestLogger(zerolog.New(&buf), obs))
	router.GET("/bets/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	req := httptest.NewRequest(http.MethodGet, "/bets/abc", nil)
	req.Header.Set(HeaderRequestID, "req-7")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "req-7", w.Header().Get(HeaderRequestID))
	require.Len(t, obs.got, 1)
	assert.Equal(t, recordedRequest{"GET", "/bets/:id", 404}, obs.got[0])

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "/bets/abc", line["path"])
	assert.Equal(t, "req-7", line["request_id"])
}

func TestRequestID_GeneratesWhenMissing(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/", func(c *gin.Context) { c.String(200, c.GetString(CtxRequestID)) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Len(t, w.Body.String(), 36)
	assert.Equal(t, w.Body.String(), w.Header().Get(HeaderRequestID))
}

func TestMaxBodySize_RejectsLargeBody(t *testing.T) {
	router := gin.New()
	router.Use(MaxBodySize(16))
	router.POST("/upload", func(c *gin.Context) {
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(`{"k":"`+strings.Repeat("x", 64)+`"}`)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(`{"k":"v"}`)))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSeamlessRecovery_AnswersWithEnvelope(t *testing.T) {
	router := gin.New()
	router.Use(SeamlessRecovery(zerolog.Nop()))
	router.POST("/seamless/:provider/bet", func(c *gin.Context) {
		panic("nil map")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/seamless/acme/bet", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"code":1,"msg":"SYS_001: internal error","payload":""}`, w.Body.String())
}
