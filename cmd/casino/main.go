package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"casino-core/config"
	"casino-core/internal/adapter/events"
	httpHandler "casino-core/internal/adapter/http/handler"
	"casino-core/internal/adapter/http/middleware"
	"casino-core/internal/adapter/metrics"
	memStorage "casino-core/internal/adapter/storage/memory"
	pgStorage "casino-core/internal/adapter/storage/postgres"
	redisStorage "casino-core/internal/adapter/storage/redis"
	"casino-core/internal/core/ports"
	"casino-core/internal/game"
	"casino-core/internal/service"
	"casino-core/pkg/logger"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// repositories is one storage driver's set of persistence ports.
type repositories struct {
	wallets     ports.WalletRepository
	entries     ports.TransactionRepository
	bonuses     ports.BonusRepository
	bets        ports.BetRepository
	seeds       ports.SeedRepository
	settlements ports.SettlementRepository
	audit       ports.AuditRepository
	directory   ports.UserDirectory
	transactor  ports.DBTransactor
	health      ports.HealthChecker
	close       func()
}

func main() {
	// Load configuration
	cfg, err := config.Load(os.Getenv("CASINO_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	log.Info().
		Str("mode", cfg.Server.Mode).
		Str("storage", cfg.Storage.Driver).
		Int("port", cfg.Server.Port).
		Msg("Starting casino core")

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("casino core stopped")
	}
	log.Info().Msg("Server exited")
}

// application is the wired process: the HTTP handler plus the background
// loops that share its services.
type application struct {
	router  http.Handler
	workers []func(context.Context) error
	closers []func()
}

func (a *application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.close()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           app.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	for _, work := range app.workers {
		g.Go(func() error { return work(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// build connects storage and wires every service behind the router.
func build(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*application, error) {
	app := &application{}
	ok := false
	defer func() {
		if !ok {
			app.close()
		}
	}()

	repos, err := openStorage(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, repos.close)
	healthCheckers := []ports.HealthChecker{repos.health}

	// Redis backs the settlement cache, nonce replay check, rate limits and
	// the round side store. Without it rounds live in process memory.
	var (
		cache       ports.IdempotencyCache
		nonceStore  ports.NonceStore
		rateLimiter middleware.Limiter
		rounds      ports.RoundStore = memStorage.NewRoundStore()
	)
	if cfg.Redis.Enabled {
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		app.closers = append(app.closers, func() { _ = rdb.Close() })
		log.Info().Msg("Redis connected")

		cache = redisStorage.NewIdempotencyCache(rdb)
		nonceStore = redisStorage.NewNonceStore(rdb)
		rateLimiter = redisStorage.NewRateLimitStore(rdb)
		rounds = redisStorage.NewRoundStore(rdb)
		healthCheckers = append(healthCheckers, redisStorage.NewHealthCheck(rdb))
	} else {
		log.Warn().Msg("Redis disabled: nonce replay check and rate limiting are off")
	}

	publisher := events.NewPublisher(cfg.Kafka, log)
	if kp, isKafka := publisher.(*events.KafkaPublisher); isKafka {
		app.closers = append(app.closers, func() { _ = kp.Close() })
	}

	var (
		svcMetrics ports.Metrics
		exporter   httpHandler.MetricsExporter
	)
	if cfg.Metrics.Enabled {
		prom := metrics.New()
		svcMetrics, exporter = prom, prom
	}

	// Initialize core services
	vault, err := service.NewAESEncryptionService(cfg.Security.MasterKey, service.PurposeServerSeed)
	if err != nil {
		return nil, fmt.Errorf("initializing seed vault: %w", err)
	}
	sigSvc := service.NewHMACSignatureService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	games, err := game.NewRegistry(cfg.Games)
	if err != nil {
		return nil, fmt.Errorf("loading game tables: %w", err)
	}
	vip, err := cfg.Wagering.VIPLevels()
	if err != nil {
		return nil, err
	}
	wagering := service.NewWageringPolicy(cfg.Wagering.GameWeights, cfg.Wagering.DefaultWeight, vip, repos.directory)

	// Initialize business services
	auditSvc := service.NewAuditService(repos.audit, log)
	app.closers = append(app.closers, auditSvc.Wait)

	ledgerSvc := service.NewLedgerService(repos.wallets, repos.entries, repos.bonuses, repos.transactor, cfg.Ledger.Currency, log)
	seedSvc := service.NewSeedService(repos.seeds, repos.transactor, vault, log)
	betSvc := service.NewBetService(service.BetServiceDeps{
		Ledger:    ledgerSvc,
		Bets:      repos.bets,
		Seeds:     seedSvc,
		Rounds:    rounds,
		Games:     games,
		Wagering:  wagering,
		Directory: repos.directory,
		Events:    publisher,
		Metrics:   svcMetrics,
		RoundTTL:  cfg.Games.RoundTTL,
	}, log)
	crashDriver := service.NewCrashDriver(betSvc, cfg.Fairness, svcMetrics, log)
	sweeper := service.NewSweeper(repos.bets, betSvc, auditSvc, cfg.Sweeper.Interval, cfg.Sweeper.BatchSize, log).
		WithBonusExpiry(repos.bonuses, ledgerSvc)
	app.workers = append(app.workers, crashDriver.Run, sweeper.Run)

	gatewaySvc, err := service.NewGatewayService(service.GatewayServiceDeps{
		Ledger:      ledgerSvc,
		Settlements: repos.settlements,
		Bets:        repos.bets,
		Cache:       cache,
		Wagering:    wagering,
		Directory:   repos.directory,
		Audit:       auditSvc,
		Events:      publisher,
		Metrics:     svcMetrics,
		Providers:   cfg.Providers,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("initializing seamless gateway: %w", err)
	}

	app.router = httpHandler.SetupRouter(httpHandler.RouterDeps{
		Gateway:    gatewaySvc,
		Bets:       betSvc,
		Crash:      crashDriver,
		Seeds:      seedSvc,
		Ledger:     ledgerSvc,
		TokenSvc:   tokenSvc,
		SigSvc:     sigSvc,
		NonceStore: nonceStore,
		Cashier: middleware.CashierCredentials{
			AccessKey: cfg.Security.CashierKey,
			Secret:    cfg.Security.CashierSecret,
		},
		Games:          games,
		Fairness:       cfg.Fairness,
		RateLimiter:    rateLimiter,
		HealthCheckers: healthCheckers,
		AuditSvc:       auditSvc,
		Metrics:        exporter,
		Mode:           cfg.Server.Mode,
		Logger:         log,
	})

	ok = true
	return app, nil
}

// openStorage connects the configured driver. The memory driver needs no
// external services and loses everything on exit.
func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*repositories, error) {
	switch cfg.Storage.Driver {
	case "memory":
		store := memStorage.NewStore()
		log.Warn().Msg("Using in-memory storage; balances are not persisted")
		return &repositories{
			wallets:     memStorage.NewWalletRepository(store),
			entries:     memStorage.NewTransactionRepository(store),
			bonuses:     memStorage.NewBonusRepository(store),
			bets:        memStorage.NewBetRepository(store),
			seeds:       memStorage.NewSeedRepository(store),
			settlements: memStorage.NewSettlementRepository(store),
			audit:       memStorage.NewAuditRepository(store),
			directory:   memStorage.NewDirectory(store),
			transactor:  store,
			health:      store,
			close:       func() {},
		}, nil

	case "postgres", "":
		pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
		if err != nil {
			return nil, fmt.Errorf("connecting to postgresql: %w", err)
		}
		log.Info().Msg("PostgreSQL connected")
		return &repositories{
			wallets:     pgStorage.NewWalletRepo(pool),
			entries:     pgStorage.NewTransactionRepo(pool),
			bonuses:     pgStorage.NewBonusRepo(pool),
			bets:        pgStorage.NewBetRepo(pool),
			seeds:       pgStorage.NewSeedRepo(pool),
			settlements: pgStorage.NewSettlementRepo(pool),
			audit:       pgStorage.NewAuditRepo(pool),
			directory:   pgStorage.NewDirectory(pool),
			transactor:  pgStorage.NewTransactor(pool),
			health:      pgStorage.NewHealthCheck(pool),
			close:       pool.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
