package handler

import (
	"net/http"

	"casino-core/config"
	"casino-core/internal/adapter/http/middleware"
	"casino-core/internal/core/ports"
	"casino-core/internal/game"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// MetricsExporter records requests and serves the scrape endpoint.
type MetricsExporter interface {
	middleware.RequestObserver
	Handler() http.Handler
}

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	Gateway        ports.GatewayService
	Bets           ports.BetService
	Crash          ports.CrashService
	Seeds          ports.SeedService
	Ledger         ports.LedgerService
	TokenSvc       ports.TokenService
	SigSvc         ports.SignatureService
	NonceStore     ports.NonceStore // nil = nonce replay check disabled
	Cashier        middleware.CashierCredentials
	Games          *game.Registry
	Fairness       config.FairnessConfig
	RateLimiter    middleware.Limiter // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	AuditSvc       ports.AuditService // nil = audit logging disabled
	Metrics        MetricsExporter    // nil = no /metrics
	Mode           string
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	if deps.Mode != "" {
		gin.SetMode(deps.Mode)
	}
	r := gin.New()

	var observer middleware.RequestObserver
	if deps.Metrics != nil {
		observer = deps.Metrics
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Provider callbacks keep their own envelope even on panic.
	seamlessHandler := NewSeamlessHandler(deps.Gateway)
	seamless := r.Group("/seamless/:provider",
		middleware.SeamlessRecovery(deps.Logger),
		middleware.RequestLogger(deps.Logger, observer),
		middleware.MaxBodySize(64<<10),
	)
	{
		seamless.POST("/bet", seamlessHandler.Callback(ports.CallbackBet))
		seamless.POST("/rollback", seamlessHandler.Callback(ports.CallbackRollback))
		seamless.POST("/balance", seamlessHandler.Callback(ports.CallbackBalance))
	}

	v1 := r.Group("/api/v1",
		middleware.Recovery(deps.Logger),
		middleware.RequestID(),
		middleware.RequestLogger(deps.Logger, observer),
		middleware.MaxBodySize(1<<20),
	)
	if deps.AuditSvc != nil {
		v1.Use(middleware.AuditLog(deps.AuditSvc))
	}

	rules := middleware.DefaultRateLimitRules()
	rl := func(group string) gin.HandlerFunc {
		rule, ok := rules[group]
		if deps.RateLimiter == nil || !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimiter, group, rule, deps.Logger)
	}

	// --- Public routes ---
	seedHandler := NewSeedHandler(deps.Seeds, deps.Games, deps.Fairness)
	crashHandler := NewCrashHandler(deps.Crash)
	v1.POST("/verify", rl("reads"), seedHandler.Verify)
	v1.GET("/crash", rl("reads"), crashHandler.Current)
	v1.GET("/crash/history", rl("reads"), crashHandler.History)

	// --- Player routes (JWT) ---
	player := v1.Group("", middleware.PlayerAuth(deps.TokenSvc))
	{
		walletHandler := NewWalletHandler(deps.Ledger)
		player.GET("/wallet", rl("reads"), walletHandler.GetBalance)
		player.GET("/wallet/transactions", rl("reads"), walletHandler.Statement)

		player.GET("/seeds", rl("reads"), seedHandler.Current)
		player.GET("/seeds/history", rl("reads"), seedHandler.History)
		player.POST("/seeds/rotate", rl("seeds"), seedHandler.Rotate)

		betHandler := NewBetHandler(deps.Bets)
		player.POST("/bets", rl("bets"), betHandler.PlaceBet)
		player.GET("/bets/:id", rl("reads"), betHandler.GetBet)
		player.POST("/bets/:id/reveal", rl("rounds"), betHandler.Reveal)
		player.POST("/bets/:id/guess", rl("rounds"), betHandler.Guess)
		player.POST("/bets/:id/cashout", rl("rounds"), betHandler.CashOut)
		player.POST("/bets/:id/cancel", rl("rounds"), betHandler.Cancel)

		player.POST("/crash/bets", rl("crash"), crashHandler.PlaceBet)
		player.POST("/crash/cashout", rl("crash"), crashHandler.CashOut)
	}

	// --- Cashier routes (HMAC) ---
	cashierHandler := NewCashierHandler(deps.Ledger, deps.TokenSvc)
	cashier := v1.Group("/cashier", middleware.CashierAuth(deps.Cashier, deps.SigSvc, deps.NonceStore, deps.Logger))
	{
		players := cashier.Group("/players/:user_id")
		players.POST("/wallet", cashierHandler.OpenWallet)
		players.GET("/wallet", cashierHandler.GetWallet)
		players.POST("/session", cashierHandler.Session)
		players.POST("/deposits", cashierHandler.Deposit)
		players.POST("/withdrawals", cashierHandler.Withdraw)
		players.POST("/withdrawals/approve", cashierHandler.ApproveWithdrawal)
		players.POST("/withdrawals/reject", cashierHandler.RejectWithdrawal)
		players.POST("/bonuses", cashierHandler.GrantBonus)
		players.GET("/reconcile", cashierHandler.Reconcile)
		players.GET("/transactions", cashierHandler.Statement)

		cashier.POST("/bonuses/:id/forfeit", cashierHandler.ForfeitBonus)
		cashier.POST("/transfers", cashierHandler.Transfer)
	}

	return r
}
