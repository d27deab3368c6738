// Package main is the entry point for the papertrade server, a paper
// trading simulator where users trade virtual portfolios against real
// market prices.
//
// Startup order matters: databases are opened and migrated first, then
// services are wired over them, accounts are seeded, background jobs are
// scheduled, and only then does the HTTP server take traffic. Shutdown
// runs the same order in reverse.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/aristath/papertrade/internal/clients/finnhub"
	"github.com/aristath/papertrade/internal/clients/pacer"
	"github.com/aristath/papertrade/internal/clients/yahoo"
	"github.com/aristath/papertrade/internal/config"
	"github.com/aristath/papertrade/internal/database"
	"github.com/aristath/papertrade/internal/events"
	"github.com/aristath/papertrade/internal/jobs"
	"github.com/aristath/papertrade/internal/modules/auth"
	authhandlers "github.com/aristath/papertrade/internal/modules/auth/handlers"
	"github.com/aristath/papertrade/internal/modules/notifications"
	notificationhandlers "github.com/aristath/papertrade/internal/modules/notifications/handlers"
	"github.com/aristath/papertrade/internal/modules/portfolio"
	portfoliohandlers "github.com/aristath/papertrade/internal/modules/portfolio/handlers"
	"github.com/aristath/papertrade/internal/modules/symbols"
	symbolhandlers "github.com/aristath/papertrade/internal/modules/symbols/handlers"
	"github.com/aristath/papertrade/internal/modules/trading"
	tradinghandlers "github.com/aristath/papertrade/internal/modules/trading/handlers"
	"github.com/aristath/papertrade/internal/modules/users"
	userhandlers "github.com/aristath/papertrade/internal/modules/users/handlers"
	"github.com/aristath/papertrade/internal/modules/wallet"
	wallethandlers "github.com/aristath/papertrade/internal/modules/wallet/handlers"
	"github.com/aristath/papertrade/internal/quotes"
	"github.com/aristath/papertrade/internal/reliability"
	"github.com/aristath/papertrade/internal/scheduler"
	"github.com/aristath/papertrade/internal/server"
	"github.com/aristath/papertrade/internal/version"
	"github.com/aristath/papertrade/pkg/logger"
)

// Expired and revoked refresh tokens stay in the table this long before
// the cleanup job removes them.
const tokenCleanupGrace = 24 * time.Hour

func main() {
	// Config carries the log level, so failures here use a default logger
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Str("version", version.Version).Str("data_dir", cfg.DataDir).Msg("Starting papertrade")

	if cfg.FinnhubAPIKey == "" {
		log.Warn().Msg("FINNHUB_API_KEY not set, quote lookups will fail upstream")
	}

	// Databases. Core holds users, wallets, positions and the transaction
	// ledger; market holds the symbol catalog; cache holds quote snapshots.
	coreDB, err := openDatabase(cfg.DataDir, "core", database.ProfileLedger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open core database")
	}
	defer coreDB.Close()

	marketDB, err := openDatabase(cfg.DataDir, "market", database.ProfileStandard)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open market database")
	}
	defer marketDB.Close()

	cacheDB, err := openDatabase(cfg.DataDir, "cache", database.ProfileCache)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	bus := events.NewBus(log)
	eventManager := events.NewManager(bus, log)

	// Upstream market data clients. Each gets its own pacer, the two
	// providers are throttled independently.
	finnhubClient := finnhub.New(cfg.FinnhubBaseURL, cfg.FinnhubAPIKey, pacer.New(cfg.RequestPace), log)
	yahooClient := yahoo.New(cfg.RapidAPIHost, cfg.RapidAPIKey, pacer.New(cfg.RequestPace), log)
	yahooClient.SetMaxRetries(cfg.ImportPageRetries)

	quoteCache := quotes.NewCache(cacheDB.Conn(), cfg.QuoteCacheTTL, log)
	quoteService := quotes.NewService(finnhubClient, quoteCache, bus, log)
	watchlist := quotes.NewInterestRegistry()
	poller := quotes.NewPoller(quoteService, watchlist, cfg.QuotePollEvery, log)

	// Repositories and services
	userRepo := users.NewRepository(coreDB.Conn(), log)
	mysteryRepo := users.NewMysteryRepository(coreDB.Conn(), log)
	walletRepo := wallet.NewRepository(coreDB.Conn(), log)
	walletService := wallet.NewService(coreDB.Conn(), walletRepo, log)
	userService := users.NewService(userRepo, mysteryRepo, walletService, log)

	tokenManager := auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL)
	tokenRepo := auth.NewTokenRepository(coreDB.Conn(), log)
	authService := auth.NewService(coreDB.Conn(), userRepo, walletRepo, tokenRepo, tokenManager,
		eventManager, cfg.StartingBalance, cfg.RefreshTokenTTL, log)

	positionRepo := portfolio.NewPositionRepository(coreDB.Conn(), log)
	transactionRepo := trading.NewTransactionRepository(coreDB.Conn(), log)

	symbolRepo := symbols.NewRepository(marketDB.Conn(), log)
	symbolService := symbols.NewService(symbolRepo, trading.NewUsageChecker(positionRepo, transactionRepo), log)
	importService := symbols.NewImportService(symbolRepo, yahooClient, eventManager,
		cfg.ImportScreenerID, cfg.ImportPageSize, cfg.ImportMaxPages, cfg.ImportPageDelay, log)
	analyticsService := symbols.NewAnalyticsService(yahooClient, log)

	portfolioService := portfolio.NewService(positionRepo, quoteService, log)
	tradingService := trading.NewService(coreDB.Conn(), transactionRepo, positionRepo, walletRepo,
		symbolService, quoteService, eventManager, cfg.SlippageTolerance, log)

	notificationService := notifications.NewService(notifications.NewRepository(coreDB.Conn(), log), log)
	notifications.RegisterListeners(bus, notificationService, log)

	// Seed accounts before the server takes traffic
	if err := userService.EnsureAdmin(cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed admin user")
	}
	if cfg.FakeUsers > 0 {
		if err := userService.SeedFakeUsers(cfg.FakeUsers, cfg.StartingBalance); err != nil {
			log.Fatal().Err(err).Msg("Failed to seed fake users")
		}
	}

	// Backups are optional, the service exists only when configured
	var backupService *reliability.BackupService
	if cfg.BackupEnabled {
		store, err := reliability.NewS3Client(context.Background(), reliability.S3Config{
			Bucket:          cfg.BackupBucket,
			Region:          cfg.BackupRegion,
			Endpoint:        cfg.BackupEndpoint,
			AccessKeyID:     cfg.BackupAccessKeyID,
			SecretAccessKey: cfg.BackupSecretAccessKey,
		}, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create backup store")
		}
		backupService = reliability.NewBackupService(store,
			[]*database.DB{coreDB, marketDB, cacheDB},
			reliability.Config{
				DataDir:       cfg.DataDir,
				MinKeep:       cfg.BackupMinKeep,
				RetentionDays: cfg.BackupRetentionDays,
			}, eventManager, log)
	}

	// Background jobs
	sched := scheduler.New(log)

	registerJob := func(schedule string, job scheduler.Job) {
		if err := sched.AddJob(schedule, job); err != nil {
			log.Fatal().Err(err).Str("job", job.Name()).Msg("Failed to register job")
		}
	}

	registerJob(cfg.TokenCleanupSchedule, jobs.NewTokenCleanupJob(tokenRepo, tokenCleanupGrace, log))
	registerJob(cfg.MaintenanceSchedule, jobs.NewMaintenanceJob([]*database.DB{coreDB, marketDB, cacheDB}, cacheDB, log))
	if backupService != nil {
		registerJob(cfg.BackupSchedule, jobs.NewBackupJob(backupService, log))
	}
	if cfg.FakeTraderEnabled {
		registerJob(cfg.FakeTraderSchedule, jobs.NewFakeTraderJob(userRepo, symbolService, positionRepo, tradingService, log))
	}

	sched.Start()

	// Quote poller runs until shutdown cancels its context
	pollCtx, stopPolling := context.WithCancel(context.Background())
	defer stopPolling()
	go poller.Start(pollCtx)

	// Optional live price feed. A failed connect is not fatal, the poller
	// still covers every watched symbol.
	var liveFeed *finnhub.WebSocket
	if cfg.FinnhubWSEnabled {
		liveFeed = finnhub.NewWebSocket(cfg.FinnhubWSURL, cfg.FinnhubAPIKey, quoteService, log)
		if err := liveFeed.Start(); err != nil {
			log.Error().Err(err).Msg("Live price feed failed to start, polling only")
			liveFeed = nil
		} else {
			watchlist.SetLiveFeed(liveFeed)
		}
	}

	// HTTP layer
	systemHandlers := server.NewSystemHandlers(log, coreDB, marketDB, cacheDB, sched, importService)
	if liveFeed != nil {
		systemHandlers.SetLiveFeed(liveFeed)
	}
	if backupService != nil {
		systemHandlers.SetBackupRunner(backupService)
	}

	srv := server.New(server.Config{
		Port:    cfg.Port,
		Log:     log,
		Config:  cfg,
		DevMode: cfg.DevMode,

		TokenManager: tokenManager,

		AuthHandlers:         authhandlers.NewAuthHandlers(authService, log),
		UserHandlers:         userhandlers.NewUserHandlers(userService, log),
		WalletHandlers:       wallethandlers.NewWalletHandlers(walletService, log),
		SymbolHandlers:       symbolhandlers.NewSymbolHandlers(symbolService, importService, analyticsService, yahooClient, quoteService, log),
		PortfolioHandlers:    portfoliohandlers.NewPortfolioHandlers(portfolioService, log),
		TradingHandlers:      tradinghandlers.NewTradingHandlers(tradingService, log),
		NotificationHandlers: notificationhandlers.NewNotificationHandlers(notificationService, log),
		SystemHandlers:       systemHandlers,
		PriceStream:          server.NewPriceStreamHandler(quoteService, symbolService, watchlist, bus, log),
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started")

	// Block until SIGINT or SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	sched.Stop()
	stopPolling()

	if liveFeed != nil {
		if err := liveFeed.Stop(); err != nil {
			log.Error().Err(err).Msg("Error stopping live price feed")
		}
	}

	// In-flight requests get up to 10 seconds to finish
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

// openDatabase opens and migrates one of the application databases. The
// file lives at <dataDir>/<name>.db.
func openDatabase(dataDir, name string, profile database.DatabaseProfile) (*database.DB, error) {
	db, err := database.New(database.Config{
		Path:    filepath.Join(dataDir, name+".db"),
		Profile: profile,
		Name:    name,
	})
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
