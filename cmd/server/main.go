package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cresca-pay/vaultgate/internal/config"
	"github.com/cresca-pay/vaultgate/internal/custody"
	"github.com/cresca-pay/vaultgate/internal/handler"
	"github.com/cresca-pay/vaultgate/internal/ledger"
	"github.com/cresca-pay/vaultgate/internal/middleware"
	"github.com/cresca-pay/vaultgate/internal/pkg/logger"
	"github.com/cresca-pay/vaultgate/internal/repository"
	"github.com/cresca-pay/vaultgate/internal/service"
	"github.com/cresca-pay/vaultgate/internal/stream"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Initialize Logger
	logger.Init(cfg.Server.LogLevel)

	// 3. Initialize Persistence
	// Ledger snapshots + audit trail (Postgres > none/file)
	var ledgerStore *repository.PostgresLedgerStore
	var auditRepo service.AuditRepo
	var auditCleanup func()
	if cfg.Database.DSN != "" {
		db, err := repository.NewDB(cfg)
		if err == nil {
			logger.Info("✅ Connected to PostgreSQL")
			ledgerStore = repository.NewPostgresLedgerStore(db)
			pgAudit := repository.NewPostgresAuditRepo(db)
			auditRepo = pgAudit
			auditCleanup = startAuditCleanup(pgAudit, cfg.Database.AuditRetentionDays)
		} else {
			logger.Error("⚠️ Failed to connect to DB, ledger state will be memory-only", "error", err)
		}
	}

	// Idempotency + audit fallback (Redis > Memory)
	var idempotencyStore middleware.IdempotencyStore = middleware.NewInMemIdempotencyStore()
	if cfg.Redis.Addr != "" {
		redisClient, err := repository.NewRedisClient(cfg)
		if err == nil {
			logger.Info("✅ Connected to Redis")
			idempotencyStore = repository.NewRedisIdempotencyStore(redisClient, time.Duration(cfg.Redis.IdempotencyTTLSeconds)*time.Second)
			if auditRepo == nil {
				auditRepo = repository.NewRedisAuditRepo(redisClient, cfg.Redis.AuditListKey, cfg.Redis.AuditListMax)
			}
		} else {
			logger.Error("⚠️ Failed to connect to Redis, falling back to memory", "error", err)
		}
	}

	// 4. Initialize the Ledger Engine
	// The in-process custodian tracks collateral moved into vault custody.
	// Production deployments put the chain bridge behind this interface.
	bank := custody.NewMemoryBank(true)

	opts := []ledger.Option{
		ledger.WithDefaultDailyLimit(cfg.Protocol.DefaultDailyLimit),
	}
	if ledgerStore != nil {
		opts = append(opts, ledger.WithStore(ledgerStore))
	}
	engine := ledger.NewEngine(bank, opts...)

	if err := bootstrapProtocol(engine, ledgerStore, cfg); err != nil {
		log.Fatalf("Failed to bootstrap protocol state: %v", err)
	}

	// 5. Initialize Core Services
	relayerManager := service.NewRelayerManager(cfg)
	hub := stream.NewHub()

	auditSvc, err := service.NewAuditService("./logs", auditRepo)
	if err != nil {
		log.Fatalf("Failed to initialize audit service: %v", err)
	}

	vaultSvc := service.NewVaultService(cfg, engine, hub)

	// 6. Initialize Handlers
	vaultHandler := handler.NewVaultHandler(vaultSvc)
	paymentHandler := handler.NewPaymentHandler(vaultSvc)
	adminHandler := handler.NewAdminHandler(vaultSvc)
	auditHandler := handler.NewAuditHandler(auditSvc)
	healthHandler := handler.NewHealthHandler(vaultSvc)

	// 7. Setup Router
	r := gin.Default()

	// Global Middleware
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.ReadOnlyMiddleware(cfg.Server.ReadOnly))
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.AuditMiddleware(auditSvc))

	// Health Check
	r.GET("/health", healthHandler.Check)

	// Metrics Endpoint
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	// API V1 Routes
	v1 := r.Group("/v1")
	v1.Use(middleware.AuthMiddleware(cfg, relayerManager))
	v1.Use(middleware.RateLimitMiddleware(relayerManager))
	v1.Use(middleware.IdempotencyMiddleware(idempotencyStore))
	{
		v1.POST("/vaults", vaultHandler.Create)
		v1.GET("/vaults/:owner", vaultHandler.ListByOwner)
		v1.GET("/vaults/:owner/:id", vaultHandler.Get)
		v1.GET("/vaults/:owner/:id/health", vaultHandler.Health)
		v1.POST("/vaults/:owner/:id/deposit", vaultHandler.Deposit)
		v1.POST("/vaults/:owner/:id/withdraw", vaultHandler.Withdraw)
		v1.POST("/vaults/:owner/:id/repay", vaultHandler.Repay)
		v1.POST("/payments/authorize", paymentHandler.Authorize)
		v1.GET("/stream", func(c *gin.Context) {
			hub.ServeWS(c.Writer, c.Request)
		})
	}

	// Admin Routes
	admin := v1.Group("/admin")
	admin.Use(middleware.AdminMiddleware(cfg))
	{
		admin.GET("/protocol", adminHandler.Protocol)
		admin.GET("/vaults", adminHandler.ListVaults)
		admin.GET("/audit", auditHandler.List)
		admin.POST("/pause", adminHandler.Pause)
		admin.POST("/unpause", adminHandler.Unpause)
		admin.PUT("/vaults/:owner/:id/risk", adminHandler.SetVaultRisk)
		admin.PUT("/vaults/:owner/:id/daily-limit", adminHandler.SetDailyLimit)
		admin.POST("/vaults/:owner/:id/deactivate", adminHandler.Deactivate)
		admin.POST("/vaults/:owner/:id/reactivate", adminHandler.Reactivate)
		admin.POST("/vaults/:owner/:id/refresh-rate", adminHandler.RefreshRate)

		// Authority rotation needs the second credential
		admin.PUT("/authority", middleware.AdminSecretMiddleware(cfg), adminHandler.SetAuthority)
	}

	// 8. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Info("🚀 VaultGate started", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server listen failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hub.Close()
	auditSvc.Close()
	if auditCleanup != nil {
		auditCleanup()
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}

	logger.Info("Server exiting")
}

// bootstrapProtocol hydrates the engine from Postgres when a snapshot
// exists, otherwise seeds the protocol from configuration.
func bootstrapProtocol(engine *ledger.Engine, store *repository.PostgresLedgerStore, cfg *config.Config) error {
	ctx := context.Background()

	if store != nil {
		protocol, err := store.LoadProtocol(ctx)
		if err != nil {
			return err
		}
		if protocol != nil {
			vaults, err := store.LoadVaults(ctx)
			if err != nil {
				return err
			}
			engine.Hydrate(protocol, vaults)
			logger.Info("Ledger state hydrated from PostgreSQL", "vaults", len(vaults))
			return nil
		}
	}

	_, err := engine.InitializeProtocol(ctx,
		cfg.Protocol.Authority,
		cfg.Protocol.Treasury,
		cfg.Protocol.DefaultLTVBps,
		cfg.Protocol.BaseInterestRateBps,
	)
	if err != nil {
		return err
	}
	logger.Info("Protocol initialized from config",
		"authority", cfg.Protocol.Authority,
		"default_ltv_bps", cfg.Protocol.DefaultLTVBps,
	)
	return nil
}

// startAuditCleanup prunes old audit rows once a day. Returns a stop func.
func startAuditCleanup(repo *repository.PostgresAuditRepo, retentionDays int) func() {
	if retentionDays <= 0 {
		return nil
	}
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				if err := repo.Cleanup(ctx, time.Duration(retentionDays)*24*time.Hour); err != nil {
					logger.Warn("audit cleanup failed", "error", err)
				}
				cancel()
			case <-done:
				return
			}
		}
	}()
	return func() { close(done) }
}
