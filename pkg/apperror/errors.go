package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError carrying the same code, so callers can write
// errors.Is(err, apperror.ErrInsufficientFunds()).
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// HasCode reports whether err is an AppError with the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// ---- Security & Authentication (SEC) ----

func ErrInvalidAccessKey() *AppError {
	return New("SEC_001", "Invalid access key", http.StatusUnauthorized)
}

func ErrInvalidSignature() *AppError {
	return New("SEC_002", "Invalid signature", http.StatusUnauthorized)
}

func ErrTimestampExpired() *AppError {
	return New("SEC_003", "Request timestamp expired", http.StatusForbidden)
}

func ErrNonceUsed() *AppError {
	return New("SEC_004", "Nonce has already been used", http.StatusForbidden)
}

// ---- Wallet & Ledger (WAL) ----

func ErrInsufficientFunds() *AppError {
	return New("WAL_001", "Insufficient balance", http.StatusPaymentRequired)
}

func ErrInvalidAmount() *AppError {
	return New("WAL_002", "Invalid amount", http.StatusBadRequest)
}

func ErrWalletNotFound() *AppError {
	return New("WAL_003", "Wallet not found", http.StatusNotFound)
}

func ErrLedgerMismatch() *AppError {
	return New("WAL_004", "Ledger replay does not match wallet balances", http.StatusConflict)
}

func ErrBonusNotFound() *AppError {
	return New("WAL_005", "Active bonus grant not found", http.StatusNotFound)
}

// ---- Fairness (FAIR) ----

func ErrInvalidSeed(reason string) *AppError {
	return New("FAIR_001", "Invalid seed pair: "+reason, http.StatusConflict)
}

// ---- Bets & game rounds (BET) ----

func ErrInvalidBet(message string) *AppError {
	return New("BET_001", message, http.StatusBadRequest)
}

func ErrBetAlreadySettled() *AppError {
	return New("BET_002", "Bet has already been settled", http.StatusConflict)
}

func ErrUnknownGame(code string) *AppError {
	return New("BET_003", fmt.Sprintf("Unknown game %q", code), http.StatusNotFound)
}

func ErrExpiredRound() *AppError {
	return New("BET_004", "Round state expired", http.StatusGone)
}

func ErrRoundCrashed() *AppError {
	return New("BET_005", "Round already crashed", http.StatusConflict)
}

func ErrBetNotFound() *AppError {
	return New("BET_006", "Bet not found", http.StatusNotFound)
}

func ErrBettingClosed() *AppError {
	return New("BET_007", "Betting is closed for this round", http.StatusConflict)
}

// ---- Seamless gateway (GW) ----

func ErrDecryptionFailure(err error) *AppError {
	return Wrap("GW_001", "Payload decryption failed", http.StatusOK, err)
}

func ErrMalformedPayload(message string) *AppError {
	return New("GW_002", "Malformed payload: "+message, http.StatusOK)
}

func ErrUnknownPlayer() *AppError {
	return New("GW_003", "Unknown player", http.StatusOK)
}

func ErrUnknownRound() *AppError {
	return New("GW_004", "Referenced game round not found", http.StatusOK)
}

func ErrUnknownProvider() *AppError {
	return New("GW_005", "Unknown provider", http.StatusOK)
}

// ---- Authentication (AUTH) ----

func ErrInvalidToken() *AppError {
	return New("AUTH_003", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrPlayerInactive() *AppError {
	return New("AUTH_004", "Player account is not active", http.StatusForbidden)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

func ErrEncryptionFailure(err error) *AppError {
	return Wrap("SYS_003", "Encryption service failure", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a BET_001-style validation error.
func Validation(message string) *AppError {
	return New("BET_001", message, http.StatusBadRequest)
}
