package handler

import (
	"errors"
	"io"
	"strconv"

	"casino-core/config"
	"casino-core/internal/adapter/http/dto"
	"casino-core/internal/adapter/http/middleware"
	"casino-core/internal/core/domain"
	"casino-core/internal/core/ports"
	"casino-core/internal/fairness"
	"casino-core/internal/game"
	"casino-core/pkg/apperror"
	"casino-core/pkg/response"

	"github.com/gin-gonic/gin"
)

// SeedHandler exposes the player's seed pairs and the public verifier.
type SeedHandler struct {
	seeds ports.SeedService
	games *game.Registry
	crash config.FairnessConfig
}

func NewSeedHandler(seeds ports.SeedService, games *game.Registry, crash config.FairnessConfig) *SeedHandler {
	return &SeedHandler{seeds: seeds, games: games, crash: crash}
}

// Current handles GET /api/v1/seeds.
func (h *SeedHandler) Current(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	pair, err := h.seeds.Current(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toSeedResponse(pair))
}

// Rotate handles POST /api/v1/seeds/rotate.
func (h *SeedHandler) Rotate(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	var req dto.RotateSeedRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	rotation, err := h.seeds.Rotate(c.Request.Context(), userID, req.ClientSeed)
	if err != nil {
		response.Error(c, err)
		return
	}
	resp := dto.RotateSeedResponse{Next: toSeedResponse(rotation.Next)}
	if rotation.Revealed != nil {
		resp.Revealed = toSeedResponse(rotation.Revealed)
	}
	response.OK(c, resp)
}

// History handles GET /api/v1/seeds/history?limit=N.
func (h *SeedHandler) History(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	pairs, err := h.seeds.History(c.Request.Context(), userID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	items := make([]dto.SeedResponse, 0, len(pairs))
	for i := range pairs {
		items = append(items, toSeedResponse(&pairs[i]))
	}
	response.OK(c, items)
}

// Verify handles POST /api/v1/verify. It needs no account: anyone holding a
// revealed seed can recompute a bet.
func (h *SeedHandler) Verify(c *gin.Context) {
	var req dto.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	resp := dto.VerifyResponse{
		CommitmentValid: fairness.VerifyCommitment(req.ServerSeed, req.ServerSeedHash),
		Digest:          fairness.Derive(req.ServerSeed, req.ClientSeed, req.Nonce).Hex(),
		Float:           fairness.NewStream(req.ServerSeed, req.ClientSeed, req.Nonce).Float(),
	}
	if req.Game == "" {
		response.OK(c, resp)
		return
	}

	stream := fairness.NewStream(req.ServerSeed, req.ClientSeed, req.Nonce)
	switch req.Game {
	case game.CodeCrash:
		resp.Multiplier = stream.CrashPoint(h.crash.CrashHouseEdge, h.crash.CrashMinMultiplier, h.crash.CrashMaxMultiplier)
	case game.CodeMines:
		layout, err := h.games.Mines().Start(stream, req.Params)
		if err != nil {
			response.Error(c, verifyError(err))
			return
		}
		resp.Outcome = gin.H{"mines": layout}
	case game.CodeHiLo:
		cards, err := h.games.HiLo().Start(stream)
		if err != nil {
			response.Error(c, verifyError(err))
			return
		}
		resp.Outcome = gin.H{"cards": cards}
	default:
		g, ok := h.games.Instant(req.Game)
		if !ok {
			response.Error(c, apperror.ErrUnknownGame(req.Game))
			return
		}
		out, err := g.Resolve(stream, req.Params)
		if err != nil {
			response.Error(c, verifyError(err))
			return
		}
		resp.Multiplier = out.Multiplier
		resp.Outcome = out.Detail
	}
	response.OK(c, resp)
}

func verifyError(err error) error {
	var pe *game.ParamError
	if errors.As(err, &pe) {
		return apperror.ErrInvalidBet(pe.Error())
	}
	return apperror.InternalError(err)
}

func toSeedResponse(p *domain.SeedPair) dto.SeedResponse {
	resp := dto.SeedResponse{
		ServerSeedHash: p.ServerSeedHash,
		ClientSeed:     p.ClientSeed,
		Nonce:          p.Nonce,
		Active:         p.Active,
		CreatedAt:      p.CreatedAt,
		RevealedAt:     p.RevealedAt,
	}
	if p.IsRevealed() {
		resp.ServerSeed = p.ServerSeed
	}
	return resp
}
