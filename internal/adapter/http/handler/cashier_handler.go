package handler

import (
	"strconv"
	"strings"

	"casino-core/internal/adapter/http/dto"
	"casino-core/internal/core/domain"
	"casino-core/internal/core/ports"
	"casino-core/pkg/apperror"
	"casino-core/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CashierHandler is the signed back-office API: deposits, withdrawals,
// bonuses, transfers and reconciliation.
type CashierHandler struct {
	ledger ports.LedgerService
	tokens ports.TokenService
}

func NewCashierHandler(ledger ports.LedgerService, tokens ports.TokenService) *CashierHandler {
	return &CashierHandler{ledger: ledger, tokens: tokens}
}

// OpenWallet handles POST /api/v1/cashier/players/:user_id/wallet.
func (h *CashierHandler) OpenWallet(c *gin.Context) {
	userID, ok := pathUser(c)
	if !ok {
		return
	}
	var req dto.OpenWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	w, err := h.ledger.OpenWallet(c.Request.Context(), userID, strings.ToUpper(req.Currency))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, toWalletResponse(w))
}

// GetWallet handles GET /api/v1/cashier/players/:user_id/wallet.
func (h *CashierHandler) GetWallet(c *gin.Context) {
	userID, ok := pathUser(c)
	if !ok {
		return
	}
	w, err := h.ledger.Balance(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toWalletResponse(w))
}

// Session handles POST /api/v1/cashier/players/:user_id/session. The token
// is what the game client sends as its bearer.
func (h *CashierHandler) Session(c *gin.Context) {
	userID, ok := pathUser(c)
	if !ok {
		return
	}
	if _, err := h.ledger.Balance(c.Request.Context(), userID); err != nil {
		response.Error(c, err)
		return
	}
	token, expiry, err := h.tokens.Generate(userID)
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}
	response.Created(c, dto.SessionResponse{Token: token, Expiry: expiry.Unix()})
}

// Deposit handles POST /api/v1/cashier/players/:user_id/deposits.
func (h *CashierHandler) Deposit(c *gin.Context) {
	h.move(c, func(userID int64, req dto.AmountRequest) (domain.LedgerEffect, error) {
		reason := req.Reason
		if reason == "" {
			reason = "deposit"
		}
		return h.ledger.Credit(c.Request.Context(), userID, req.Amount, domain.BucketReal, reason, domain.DepositRef(req.Reference))
	})
}

// Withdraw handles POST /api/v1/cashier/players/:user_id/withdrawals. The
// amount moves to the locked bucket until it is approved or rejected.
func (h *CashierHandler) Withdraw(c *gin.Context) {
	h.move(c, func(userID int64, req dto.AmountRequest) (domain.LedgerEffect, error) {
		return h.ledger.Lock(c.Request.Context(), userID, req.Amount, domain.WithdrawalRef(req.Reference))
	})
}

// ApproveWithdrawal handles POST .../withdrawals/approve.
func (h *CashierHandler) ApproveWithdrawal(c *gin.Context) {
	h.move(c, func(userID int64, req dto.AmountRequest) (domain.LedgerEffect, error) {
		return h.ledger.ReleaseLocked(c.Request.Context(), userID, req.Amount, domain.WithdrawalRef(req.Reference))
	})
}

// RejectWithdrawal handles POST .../withdrawals/reject.
func (h *CashierHandler) RejectWithdrawal(c *gin.Context) {
	h.move(c, func(userID int64, req dto.AmountRequest) (domain.LedgerEffect, error) {
		return h.ledger.Unlock(c.Request.Context(), userID, req.Amount, domain.WithdrawalRef(req.Reference))
	})
}

func (h *CashierHandler) move(c *gin.Context, fn func(userID int64, req dto.AmountRequest) (domain.LedgerEffect, error)) {
	userID, ok := pathUser(c)
	if !ok {
		return
	}
	var req dto.AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	eff, err := fn(userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, eff)
}

// GrantBonus handles POST /api/v1/cashier/players/:user_id/bonuses.
func (h *CashierHandler) GrantBonus(c *gin.Context) {
	userID, ok := pathUser(c)
	if !ok {
		return
	}
	var req dto.GrantBonusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	grant, eff, err := h.ledger.GrantBonus(c.Request.Context(), ports.GrantBonusRequest{
		UserID:      userID,
		Amount:      req.Amount,
		Requirement: req.Requirement,
		ExpiresAt:   req.ExpiresAt,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"grant": grant, "effect": eff})
}

// ForfeitBonus handles POST /api/v1/cashier/bonuses/:id/forfeit.
func (h *CashierHandler) ForfeitBonus(c *gin.Context) {
	grantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.ErrBonusNotFound())
		return
	}
	grant, eff, err := h.ledger.ForfeitBonus(c.Request.Context(), grantID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"grant": grant, "effect": eff})
}

// Transfer handles POST /api/v1/cashier/transfers.
func (h *CashierHandler) Transfer(c *gin.Context) {
	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	result, err := h.ledger.Transfer(c.Request.Context(), req.FromUserID, req.ToUserID, req.Amount, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Reconcile handles GET /api/v1/cashier/players/:user_id/reconcile.
func (h *CashierHandler) Reconcile(c *gin.Context) {
	userID, ok := pathUser(c)
	if !ok {
		return
	}
	report, err := h.ledger.Reconcile(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}

// Statement handles GET /api/v1/cashier/players/:user_id/transactions.
func (h *CashierHandler) Statement(c *gin.Context) {
	userID, ok := pathUser(c)
	if !ok {
		return
	}
	statement(c, h.ledger, userID)
}

func pathUser(c *gin.Context) (int64, bool) {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		response.Error(c, apperror.Validation("user_id must be a positive integer"))
		return 0, false
	}
	return userID, true
}
