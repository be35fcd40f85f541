package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	billingapp "github.com/ledgerlink/backend/internal/application/billing"
	entitlementapp "github.com/ledgerlink/backend/internal/application/entitlement"
	identityapp "github.com/ledgerlink/backend/internal/application/identity"
	domainbilling "github.com/ledgerlink/backend/internal/domain/billing"
	"github.com/ledgerlink/backend/internal/domain/identity"
	"github.com/ledgerlink/backend/internal/domain/shared"
	"github.com/ledgerlink/backend/internal/infrastructure/auth"
	"github.com/ledgerlink/backend/internal/infrastructure/bankfeed"
	infrabilling "github.com/ledgerlink/backend/internal/infrastructure/billing"
	"github.com/ledgerlink/backend/internal/infrastructure/cache"
	"github.com/ledgerlink/backend/internal/infrastructure/config"
	"github.com/ledgerlink/backend/internal/infrastructure/event"
	"github.com/ledgerlink/backend/internal/infrastructure/logger"
	"github.com/ledgerlink/backend/internal/infrastructure/notification"
	"github.com/ledgerlink/backend/internal/infrastructure/persistence"
	"github.com/ledgerlink/backend/internal/infrastructure/scheduler"
	"github.com/ledgerlink/backend/internal/infrastructure/telemetry"
	"github.com/ledgerlink/backend/internal/interfaces/http/handler"
	"github.com/ledgerlink/backend/internal/interfaces/http/middleware"
	"github.com/ledgerlink/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting LedgerLink Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Tracing (no-op provider when disabled)
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(ctx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Database query tracing piggybacks on the tracer provider
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:         true,
			SlowQueryThresh: 200 * time.Millisecond,
			DBSystem:        "postgresql",
		}, log)
		if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
			log.Warn("Failed to register database tracing", zap.Error(err))
		}
	}

	// Initialize repositories
	accountRepo := persistence.NewGormAccountRepository(db.DB)
	connectionRepo := persistence.NewGormConnectionRepository(db.DB)
	walletRepo := persistence.NewGormWalletRepository(db.DB)
	historyRepo := persistence.NewGormTokenHistoryRepository(db.DB)
	subscriptionRepo := persistence.NewGormSubscriptionRepository(db.DB)
	txManager := persistence.NewGormTransactionManager(db)

	// Account locker: Redis when available, single-process fallback otherwise
	var locker shared.AccountLocker
	if cfg.Redis.Host != "" {
		redisLocker, err := cache.NewRedisAccountLocker(cfg.Redis, log)
		if err != nil {
			log.Warn("Redis unavailable, using in-memory account locker", zap.Error(err))
			locker = cache.NewInMemoryAccountLocker()
		} else {
			defer func() {
				if err := redisLocker.Close(); err != nil {
					log.Error("Error closing Redis locker", zap.Error(err))
				}
			}()
			locker = redisLocker
		}
	} else {
		locker = cache.NewInMemoryAccountLocker()
	}

	// Payment processor
	stripeConfig := infrabilling.DefaultStripeConfig()
	stripeConfig.SecretKey = cfg.Stripe.SecretKey
	stripeConfig.WebhookSecret = cfg.Stripe.WebhookSecret
	gateway, err := infrabilling.NewStripeAdapter(stripeConfig, log)
	if err != nil {
		log.Fatal("Failed to initialize Stripe adapter", zap.Error(err))
	}

	// Bank aggregation provider
	bankLink, err := bankfeed.NewPlaidClient(&bankfeed.PlaidConfig{
		ClientID:    cfg.Plaid.ClientID,
		Secret:      cfg.Plaid.Secret,
		Environment: cfg.Plaid.Environment,
		WebhookURL:  cfg.Plaid.WebhookURL,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize Plaid client", zap.Error(err))
	}

	// Transactional email: SES in production, log sink everywhere else
	var emailSender identity.EmailSender
	if cfg.App.Env == "production" && cfg.Email.FromEmail != "" {
		sesSender, err := notification.NewSESEmailSender(&cfg.Email, notification.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to initialize SES email sender", zap.Error(err))
		}
		emailSender = sesSender
	} else {
		emailSender = notification.NewLogEmailSender(log)
	}

	// Token issuing and revocation
	jwtService := auth.NewJWTService(cfg.JWT)
	var blacklist auth.TokenBlacklist
	if cfg.Redis.Host != "" {
		redisBlacklist, err := auth.NewRedisTokenBlacklist(cfg.Redis)
		if err != nil {
			log.Warn("Redis unavailable, using in-memory token blacklist", zap.Error(err))
			blacklist = auth.NewInMemoryTokenBlacklist()
		} else {
			blacklist = redisBlacklist
		}
	} else {
		blacklist = auth.NewInMemoryTokenBlacklist()
	}

	// Event bus with the audit trail subscribed as a wildcard handler
	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(event.NewAuditLogHandler(log))
	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Initialize application services
	accountService := identityapp.NewAccountService(accountRepo, emailSender, eventBus, log, identityapp.AccountServiceConfig{
		BaseURL:        cfg.App.BaseURL,
		EmailChangeTTL: 24 * time.Hour,
	})
	authService := identityapp.NewAuthService(accountRepo, jwtService, blacklist, log)
	entitlementService := entitlementapp.NewEntitlementService(
		connectionRepo, walletRepo, historyRepo, subscriptionRepo,
		bankLink, eventBus, locker, txManager, log,
		entitlementapp.EntitlementServiceConfig{SwapGrantPerCycle: cfg.Billing.SwapGrantPerCycle},
	)
	subscriptionService := billingapp.NewSubscriptionService(
		subscriptionRepo, accountRepo, connectionRepo, walletRepo, historyRepo,
		gateway, bankLink, eventBus, locker, txManager, log,
		billingapp.SubscriptionServiceConfig{
			PriceTable:        priceTableFromConfig(cfg.Billing, log),
			SwapGrantPerCycle: cfg.Billing.SwapGrantPerCycle,
		},
	)
	webhookService := billingapp.NewStripeWebhookService(stripeConfig, accountRepo, subscriptionService, log)

	// Renewal scheduler: the catch-up path for missed or delayed webhooks
	if cfg.Scheduler.Enabled {
		renewalScheduler := scheduler.NewRenewalScheduler(subscriptionService, log, scheduler.RenewalSchedulerConfig{
			Enabled:       cfg.Scheduler.Enabled,
			CheckInterval: cfg.Scheduler.CheckInterval,
			BatchSize:     cfg.Scheduler.BatchSize,
		})
		if err := renewalScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start renewal scheduler", zap.Error(err))
		}
		defer func() {
			if err := renewalScheduler.Stop(context.Background()); err != nil {
				log.Error("Error stopping renewal scheduler", zap.Error(err))
			}
		}()
		log.Info("Renewal scheduler started",
			zap.Duration("check_interval", cfg.Scheduler.CheckInterval),
			zap.Int("batch_size", cfg.Scheduler.BatchSize),
		)
	}

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware stack, outermost first
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.SecurityHeaders())

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.Telemetry.Enabled {
		engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     true,
		}))
		engine.Use(middleware.SpanErrorMarker())
	}

	jwtConfig := middleware.DefaultJWTConfig(jwtService)
	jwtConfig.TokenBlacklist = blacklist
	jwtConfig.Logger = log
	jwtConfig.SkipPaths = append(jwtConfig.SkipPaths, "/api/v1/subscription/pricing", "/api/v1/system/info")
	engine.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))

	// Register route groups
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(handler.NewSystemHandler(db.DB)).
		Register(handler.NewAuthHandler(accountService, authService)).
		Register(handler.NewAccountHandler(accountService, authService)).
		Register(handler.NewEntitlementHandler(entitlementService)).
		Register(handler.NewSubscriptionHandler(subscriptionService)).
		Register(handler.NewStripeWebhookHandler(webhookService))
	r.Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// priceTableFromConfig builds the cycle price table from configured USD
// strings, keeping the production defaults for anything unset or malformed.
func priceTableFromConfig(cfg config.BillingConfig, log *zap.Logger) domainbilling.PriceTable {
	table := domainbilling.DefaultPriceTable()
	set := func(name, raw string, dst *decimal.Decimal) {
		if raw == "" {
			return
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			log.Warn("Invalid price in config, keeping default",
				zap.String("price", name),
				zap.String("value", raw),
			)
			return
		}
		*dst = d
	}
	set("transaction_price", cfg.TransactionPrice, &table.TransactionConnection)
	set("investment_price", cfg.InvestmentPrice, &table.InvestmentConnection)
	set("server_fee", cfg.ServerFee, &table.ServerFee)
	set("processor_fee", cfg.ProcessorFee, &table.ProcessorFee)
	set("app_fee", cfg.AppFee, &table.AppFee)
	return table
}
