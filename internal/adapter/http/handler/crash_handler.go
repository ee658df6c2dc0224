package handler

import (
	"strconv"

	"casino-core/internal/adapter/http/dto"
	"casino-core/internal/adapter/http/middleware"
	"casino-core/internal/core/ports"
	"casino-core/pkg/apperror"
	"casino-core/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CrashHandler struct {
	crash ports.CrashService
}

func NewCrashHandler(crash ports.CrashService) *CrashHandler {
	return &CrashHandler{crash: crash}
}

// Current handles GET /api/v1/crash.
func (h *CrashHandler) Current(c *gin.Context) {
	response.OK(c, h.crash.Current())
}

// History handles GET /api/v1/crash/history?limit=N.
func (h *CrashHandler) History(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	response.OK(c, h.crash.History(limit))
}

// PlaceBet handles POST /api/v1/crash/bets.
func (h *CrashHandler) PlaceBet(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	var req dto.CrashBetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	bet, err := h.crash.PlaceBet(c.Request.Context(), userID, req.Amount, req.AutoCashout)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, bet)
}

// CashOut handles POST /api/v1/crash/cashout.
func (h *CrashHandler) CashOut(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	var req dto.CrashCashOutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	bet, err := h.crash.CashOut(c.Request.Context(), userID, uuid.MustParse(req.BetID))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, bet)
}
