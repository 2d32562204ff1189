package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	ledgerapp "github.com/livrocaixa/backend/internal/application/ledger"
	tenancyapp "github.com/livrocaixa/backend/internal/application/tenancy"
	"github.com/livrocaixa/backend/internal/domain/ledger"
	"github.com/livrocaixa/backend/internal/domain/shared"
	"github.com/livrocaixa/backend/internal/infrastructure/auth"
	"github.com/livrocaixa/backend/internal/infrastructure/cache"
	"github.com/livrocaixa/backend/internal/infrastructure/config"
	"github.com/livrocaixa/backend/internal/infrastructure/logger"
	"github.com/livrocaixa/backend/internal/infrastructure/persistence"
	"github.com/livrocaixa/backend/internal/infrastructure/persistence/tenant"
	"github.com/livrocaixa/backend/internal/infrastructure/telemetry"
	"github.com/livrocaixa/backend/internal/interfaces/http/handler"
	"github.com/livrocaixa/backend/internal/interfaces/http/middleware"
	"github.com/livrocaixa/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

//	@title			Livrocaixa API
//	@version		1.0
//	@description	Multi-tenant bookkeeping backend: accounts, transactions, monthly closings and installment plans.

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting livrocaixa backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Initialize OpenTelemetry tracing
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Register database query tracing when telemetry is on
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:          true,
			LogFullSQL:       cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh:  cfg.Telemetry.DBSlowQueryThresh,
			DBSystem:         "postgresql",
			WithoutVariables: !cfg.Telemetry.DBLogFullSQL,
		}, log)
		if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
			log.Error("Failed to register database tracing", zap.Error(err))
		}
	}

	// Tenant filter callback: a second line of defense under the scoped
	// repositories. Not marked required because the tenant registry runs
	// unscoped; scoped repositories already fail loudly on unbound contexts.
	tenant.EnableAutoTenantFilter(db.DB, false)

	// Initialize repositories
	accountRepo := persistence.NewGormAccountRepository(db.DB)
	transactionRepo := persistence.NewGormTransactionRepository(db.DB)
	categoryRepo := persistence.NewGormCategoryRepository(db.DB)
	closingRepo := persistence.NewGormClosingRepository(db.DB)
	installmentRepo := persistence.NewGormInstallmentRepository(db.DB)
	tenantRepo := persistence.NewGormTenantRepository(db.DB)
	txManager := persistence.NewGormTxManager(db.DB)
	provisioner := persistence.NewSchemaProvisioner(db.DB)

	// Initialize application services
	balanceService := ledgerapp.NewBalanceService(accountRepo, transactionRepo, closingRepo, txManager)
	accountService := ledgerapp.NewAccountService(accountRepo, transactionRepo, categoryRepo, balanceService, txManager)
	categoryService := ledgerapp.NewCategoryService(categoryRepo)
	transactionService := ledgerapp.NewTransactionService(transactionRepo, accountRepo, categoryRepo, closingRepo, balanceService, txManager)
	closingService := ledgerapp.NewClosingService(closingRepo, transactionRepo, accountRepo, txManager, ledger.ClosingPolicy{
		GraceDays:         cfg.Closing.GraceDays,
		AllowCurrentMonth: cfg.Closing.AllowCurrentMonth,
		AllowPastMonths:   cfg.Closing.AllowPastMonths,
	})
	installmentService := ledgerapp.NewInstallmentService(installmentRepo, transactionRepo, accountRepo, categoryRepo, closingRepo, balanceService, txManager)
	tenantService := tenancyapp.NewTenantService(tenantRepo, provisioner)

	// JWT service for token issuance and validation
	jwtService := auth.NewJWTService(cfg.JWT)

	// Token blacklist and idempotency store: Redis-backed when Redis is
	// reachable, in-memory otherwise. A single instance runs fine on the
	// in-memory fallback; revocations and replay detection then do not
	// survive restarts or span replicas.
	var tokenBlacklist auth.TokenBlacklist
	if redisBlacklist, err := auth.NewRedisTokenBlacklist(auth.RedisTokenBlacklistConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}); err != nil {
		log.Warn("Redis unavailable, using in-memory token blacklist", zap.Error(err))
		tokenBlacklist = auth.NewInMemoryTokenBlacklist()
	} else {
		defer func() {
			_ = redisBlacklist.Close()
		}()
		tokenBlacklist = redisBlacklist
		log.Info("Redis token blacklist enabled", zap.String("addr", cfg.Redis.Addr()))
	}

	idempotencyStore, err := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log)).CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() {
		_ = idempotencyStore.Close()
	}()

	// Initialize HTTP handlers
	accountHandler := handler.NewAccountHandler(accountService)
	categoryHandler := handler.NewCategoryHandler(categoryService)
	transactionHandler := handler.NewTransactionHandler(transactionService)
	closingHandler := handler.NewClosingHandler(closingService)
	installmentHandler := handler.NewInstallmentHandler(installmentService)
	tenantHandler := handler.NewTenantHandler(tenantService)
	authHandler := handler.NewAuthHandler(jwtService, tenantService, tokenBlacklist)
	systemHandler := handler.NewSystemHandler(db)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Security - Add security headers
	// 5. CORS - Handle cross-origin requests
	// 6. BodyLimit - Limit request body size
	// 7. RateLimit - Apply rate limiting (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	// Distributed tracing, after RequestID so spans carry the request id
	if cfg.Telemetry.Enabled {
		engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     true,
		}))
		engine.Use(middleware.SpanErrorMarker())
	}

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Rate limiting (if enabled)
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health endpoints outside API versioning, for load balancers and probes
	engine.GET("/health", systemHandler.Health)
	engine.GET("/ready", systemHandler.Ready)

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// JWT authentication on the versioned API. Login is public; tenant
	// administration is public here because it is expected to sit behind
	// a separate operator-facing ingress in production.
	r.Use(middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
		JWTService:     jwtService,
		TokenBlacklist: tokenBlacklist,
		SkipPaths: []string{
			"/api/v1/auth/login",
			"/api/v1/system/info",
		},
		SkipPathPrefixes: []string{
			"/api/v1/tenants",
		},
		Logger: log,
	}))

	// Re-enrich spans once authentication has populated the claims
	if cfg.Telemetry.Enabled {
		r.Use(middleware.TracingAttributeInjector())
	}

	// Tenant binding: resolves the tenant from the validated token and
	// binds it to the request context. Everything below the handlers reads
	// the binding from the context.
	tenantConfig := middleware.DefaultTenantConfig()
	tenantConfig.Validator = &tenantValidator{tenants: tenantService}
	tenantConfig.Logger = log
	r.Use(middleware.TenantMiddlewareWithConfig(tenantConfig))

	// Idempotency keys on mutating requests, scoped per tenant
	idemConfig := middleware.DefaultIdempotencyConfig(idempotencyStore)
	idemConfig.Logger = log
	r.Use(middleware.IdempotencyWithConfig(idemConfig))

	// Ledger domain: accounts, categories, transactions
	accountRoutes := router.NewDomainGroup("accounts", "/accounts")
	accountRoutes.POST("", accountHandler.Create)
	accountRoutes.GET("", accountHandler.List)
	accountRoutes.GET("/:id", accountHandler.GetByID)
	accountRoutes.PUT("/:id", accountHandler.Update)
	accountRoutes.DELETE("/:id", accountHandler.Delete)
	accountRoutes.POST("/:id/balance/recompute", accountHandler.RecomputeBalance)
	accountRoutes.GET("/:id/balance/audit", accountHandler.AuditBalance)
	accountRoutes.GET("/:id/transactions", transactionHandler.ListByAccount)
	accountRoutes.GET("/:id/closings", closingHandler.ListByAccount)
	accountRoutes.GET("/:id/closings/:year/:month", closingHandler.GetByPeriod)

	categoryRoutes := router.NewDomainGroup("categories", "/categories")
	categoryRoutes.POST("", categoryHandler.Create)
	categoryRoutes.GET("", categoryHandler.List)
	categoryRoutes.GET("/:id", categoryHandler.GetByID)
	categoryRoutes.PUT("/:id", categoryHandler.Update)
	categoryRoutes.DELETE("/:id", categoryHandler.Delete)

	transactionRoutes := router.NewDomainGroup("transactions", "/transactions")
	transactionRoutes.POST("", transactionHandler.Create)
	transactionRoutes.GET("/:id", transactionHandler.GetByID)
	transactionRoutes.PUT("/:id", transactionHandler.Update)
	transactionRoutes.DELETE("/:id", transactionHandler.Delete)

	// Monthly closings
	closingRoutes := router.NewDomainGroup("closings", "/closings")
	closingRoutes.POST("", closingHandler.Seal)

	// Installment plans and their installments
	planRoutes := router.NewDomainGroup("installment-plans", "/installment-plans")
	planRoutes.POST("", installmentHandler.CreatePlan)
	planRoutes.GET("", installmentHandler.ListPlans)
	planRoutes.GET("/:id", installmentHandler.GetPlan)
	planRoutes.DELETE("/:id", installmentHandler.DeletePlan)
	planRoutes.POST("/:id/generate", installmentHandler.Generate)
	planRoutes.GET("/:id/installments", installmentHandler.ListInstallments)
	planRoutes.GET("/:id/progress", installmentHandler.Progress)

	installmentRoutes := router.NewDomainGroup("installments", "/installments")
	installmentRoutes.POST("/:id/settle", installmentHandler.Settle)
	installmentRoutes.POST("/:id/unsettle", installmentHandler.Unsettle)

	// Tenant administration: registration, membership, provisioning
	tenantRoutes := router.NewDomainGroup("tenants", "/tenants")
	tenantRoutes.POST("", tenantHandler.Create)
	tenantRoutes.GET("", tenantHandler.List)
	tenantRoutes.GET("/:id", tenantHandler.GetByID)
	tenantRoutes.POST("/:id/activate", tenantHandler.Activate)
	tenantRoutes.POST("/:id/deactivate", tenantHandler.Deactivate)
	tenantRoutes.POST("/:id/members", tenantHandler.AddMember)
	tenantRoutes.DELETE("/:id/members/:user_id", tenantHandler.RemoveMember)
	tenantRoutes.POST("/:id/reprovision", tenantHandler.Reprovision)

	// Authentication
	authRoutes := router.NewDomainGroup("auth", "/auth")
	authRoutes.POST("/login", authHandler.Login)
	authRoutes.POST("/logout", authHandler.Logout)

	// System
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)

	r.Register(accountRoutes).
		Register(categoryRoutes).
		Register(transactionRoutes).
		Register(closingRoutes).
		Register(planRoutes).
		Register(installmentRoutes).
		Register(tenantRoutes).
		Register(authRoutes).
		Register(systemRoutes)

	// Setup routes
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

// tenantValidator adapts the tenant service to the middleware's validator
// interface. It rejects unknown and deactivated tenants before the binding
// happens, so a suspended tenant loses API access as soon as the flag flips.
type tenantValidator struct {
	tenants *tenancyapp.TenantService
}

func (v *tenantValidator) ValidateTenant(tenantID uuid.UUID) (*middleware.TenantInfo, error) {
	resp, err := v.tenants.GetTenant(context.Background(), tenantID)
	if err != nil {
		return nil, err
	}
	if !resp.Active {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "tenant is deactivated").WithEntity(resp.Code)
	}
	return &middleware.TenantInfo{ID: resp.ID, Code: resp.Code}, nil
}
