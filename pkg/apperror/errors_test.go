package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without wrapped error",
			appErr:   New("WAL_001", "Insufficient balance", http.StatusPaymentRequired),
			expected: "[WAL_001] Insufficient balance",
		},
		{
			name:     "with wrapped error",
			appErr:   Wrap("SYS_001", "DB error", http.StatusInternalServerError, fmt.Errorf("connection refused")),
			expected: "[SYS_001] DB error: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appErr.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := Wrap("SYS_001", "wrapped", http.StatusInternalServerError, inner)

	assert.True(t, errors.Is(appErr, inner))
}

func TestAppError_IsNilUnwrap(t *testing.T) {
	appErr := New("WAL_001", "test", http.StatusBadRequest)
	assert.Nil(t, appErr.Unwrap())
}

func TestAppError_IsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("deduct bet: %w", ErrInsufficientFunds())

	assert.True(t, errors.Is(err, ErrInsufficientFunds()))
	assert.False(t, errors.Is(err, ErrInvalidAmount()))
	assert.True(t, HasCode(err, "WAL_001"))
	assert.False(t, HasCode(fmt.Errorf("plain"), "WAL_001"))
}

func TestSecurityErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"InvalidAccessKey", ErrInvalidAccessKey(), "SEC_001", 401},
		{"InvalidSignature", ErrInvalidSignature(), "SEC_002", 401},
		{"TimestampExpired", ErrTimestampExpired(), "SEC_003", 403},
		{"NonceUsed", ErrNonceUsed(), "SEC_004", 403},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestLedgerErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"InsufficientFunds", ErrInsufficientFunds(), "WAL_001", 402},
		{"InvalidAmount", ErrInvalidAmount(), "WAL_002", 400},
		{"WalletNotFound", ErrWalletNotFound(), "WAL_003", 404},
		{"LedgerMismatch", ErrLedgerMismatch(), "WAL_004", 409},
		{"BonusNotFound", ErrBonusNotFound(), "WAL_005", 404},
		{"InvalidSeed", ErrInvalidSeed("nonce reuse"), "FAIR_001", 409},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestBetErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"InvalidBet", ErrInvalidBet("target out of range"), "BET_001", 400},
		{"AlreadySettled", ErrBetAlreadySettled(), "BET_002", 409},
		{"UnknownGame", ErrUnknownGame("roulette"), "BET_003", 404},
		{"ExpiredRound", ErrExpiredRound(), "BET_004", 410},
		{"RoundCrashed", ErrRoundCrashed(), "BET_005", 409},
		{"BetNotFound", ErrBetNotFound(), "BET_006", 404},
		{"BettingClosed", ErrBettingClosed(), "BET_007", 409},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestGatewayErrors_AlwaysHTTP200(t *testing.T) {
	for _, err := range []*AppError{
		ErrDecryptionFailure(fmt.Errorf("bad padding")),
		ErrMalformedPayload("serial_number"),
		ErrUnknownPlayer(),
		ErrUnknownRound(),
		ErrUnknownProvider(),
	} {
		assert.Equal(t, http.StatusOK, err.HTTPStatus, err.Code)
	}
	assert.Contains(t, ErrMalformedPayload("serial_number").Message, "serial_number")
}

func TestSystemErrors(t *testing.T) {
	inner := fmt.Errorf("pg: connection closed")
	dbErr := ErrDatabaseError(inner)
	assert.Equal(t, "SYS_001", dbErr.Code)
	assert.Equal(t, 500, dbErr.HTTPStatus)
	assert.True(t, errors.Is(dbErr, inner))

	encErr := ErrEncryptionFailure(inner)
	assert.Equal(t, "SYS_003", encErr.Code)
	assert.Equal(t, 500, encErr.HTTPStatus)
}

func TestRateLimitError(t *testing.T) {
	err := ErrRateLimitExceeded()
	assert.Equal(t, "RATE_001", err.Code)
	assert.Equal(t, 429, err.HTTPStatus)
}

func TestUnknownGameMessage(t *testing.T) {
	err := ErrUnknownGame("roulette")
	assert.Contains(t, err.Message, "roulette")
}
