package handler

import (
	"casino-core/internal/adapter/http/dto"
	"casino-core/internal/adapter/http/middleware"
	"casino-core/internal/core/domain"
	"casino-core/internal/core/ports"
	"casino-core/pkg/apperror"
	"casino-core/pkg/response"

	"github.com/gin-gonic/gin"
)

// WalletHandler serves the player's own wallet.
type WalletHandler struct {
	ledger ports.LedgerService
}

func NewWalletHandler(ledger ports.LedgerService) *WalletHandler {
	return &WalletHandler{ledger: ledger}
}

// GetBalance handles GET /api/v1/wallet.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	w, err := h.ledger.Balance(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toWalletResponse(w))
}

// Statement handles GET /api/v1/wallet/transactions.
func (h *WalletHandler) Statement(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	statement(c, h.ledger, userID)
}

// statement binds the filters and writes one page of the ledger of userID.
func statement(c *gin.Context, ledger ports.LedgerService, userID int64) {
	var q dto.StatementQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	if q.Page == 0 {
		q.Page = 1
	}
	if q.PageSize == 0 {
		q.PageSize = 20
	}

	params := ports.TransactionListParams{
		UserID:   userID,
		From:     q.From,
		To:       q.To,
		Page:     q.Page,
		PageSize: q.PageSize,
	}
	if q.Type != "" {
		t := domain.TransactionType(q.Type)
		params.Type = &t
	}
	if q.Bucket != "" {
		b := domain.Bucket(q.Bucket)
		params.Bucket = &b
	}

	items, total, err := ledger.Statement(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.StatementResponse{
		Items:      items,
		Total:      total,
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalPages: int((total + int64(q.PageSize) - 1) / int64(q.PageSize)),
	})
}
