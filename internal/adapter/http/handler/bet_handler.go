package handler

import (
	"casino-core/internal/adapter/http/dto"
	"casino-core/internal/adapter/http/middleware"
	"casino-core/internal/core/domain"
	"casino-core/internal/core/ports"
	"casino-core/internal/game"
	"casino-core/pkg/apperror"
	"casino-core/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BetHandler serves instant bets and multi-step rounds.
type BetHandler struct {
	bets ports.BetService
}

func NewBetHandler(bets ports.BetService) *BetHandler {
	return &BetHandler{bets: bets}
}

// PlaceBet handles POST /api/v1/bets.
func (h *BetHandler) PlaceBet(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.PlaceBetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.bets.PlaceBet(c.Request.Context(), ports.PlaceBetRequest{
		UserID:   userID,
		GameCode: req.Game,
		Amount:   req.Amount,
		Params:   req.Params,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, toBetResponse(result))
}

// GetBet handles GET /api/v1/bets/:id.
func (h *BetHandler) GetBet(c *gin.Context) {
	userID, betID, ok := betTarget(c)
	if !ok {
		return
	}
	bet, err := h.bets.GetBet(c.Request.Context(), userID, betID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, bet)
}

// Reveal handles POST /api/v1/bets/:id/reveal.
func (h *BetHandler) Reveal(c *gin.Context) {
	userID, betID, ok := betTarget(c)
	if !ok {
		return
	}
	var req dto.RevealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.bets.Reveal(c.Request.Context(), userID, betID, *req.Tile)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toBetResponse(result))
}

// Guess handles POST /api/v1/bets/:id/guess.
func (h *BetHandler) Guess(c *gin.Context) {
	userID, betID, ok := betTarget(c)
	if !ok {
		return
	}
	var req dto.GuessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.bets.Guess(c.Request.Context(), userID, betID, *req.Higher)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toBetResponse(result))
}

// CashOut handles POST /api/v1/bets/:id/cashout.
func (h *BetHandler) CashOut(c *gin.Context) {
	userID, betID, ok := betTarget(c)
	if !ok {
		return
	}
	result, err := h.bets.CashOut(c.Request.Context(), userID, betID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toBetResponse(result))
}

// Cancel handles POST /api/v1/bets/:id/cancel.
func (h *BetHandler) Cancel(c *gin.Context) {
	userID, betID, ok := betTarget(c)
	if !ok {
		return
	}
	bet, err := h.bets.CancelBet(c.Request.Context(), userID, betID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, bet)
}

// betTarget reads the player and the :id bet, writing the error response
// itself when either is missing.
func betTarget(c *gin.Context) (int64, uuid.UUID, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return 0, uuid.Nil, false
	}
	betID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.ErrBetNotFound())
		return 0, uuid.Nil, false
	}
	return userID, betID, true
}

func toBetResponse(r *ports.BetResult) dto.BetResponse {
	return dto.BetResponse{
		Bet:    r.Bet,
		Round:  toRoundView(r.Round),
		Wallet: toWalletResponse(&r.Wallet),
	}
}

// toRoundView hides whatever the player must not see yet: the mine layout
// and the hi-lo cards not dealt.
func toRoundView(r *domain.RoundState) *dto.RoundView {
	if r == nil {
		return nil
	}
	view := &dto.RoundView{
		BetID:      r.BetID.String(),
		GameCode:   r.GameCode,
		Amount:     r.Amount,
		Revealed:   r.Revealed,
		Step:       r.Step,
		Multiplier: r.Multiplier,
		ExpiresAt:  r.ExpiresAt,
	}
	switch r.GameCode {
	case game.CodeMines:
		view.Mines = len(r.Layout)
	case game.CodeHiLo:
		view.Cards = r.Layout[:min(r.Step+1, len(r.Layout))]
	}
	return view
}

func toWalletResponse(w *domain.Wallet) dto.WalletResponse {
	return dto.WalletResponse{
		UserID:   w.UserID,
		Currency: w.Currency,
		Real:     w.Real,
		Bonus:    w.Bonus,
		Locked:   w.Locked,
		Playable: w.Playable(),
	}
}
