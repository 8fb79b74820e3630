package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	_ "github.com/sflix/server/docs" // swagger docs
	"github.com/sflix/server/internal/module/auth"
	"github.com/sflix/server/internal/module/media"
	"github.com/sflix/server/internal/module/payment/provider"
	"github.com/sflix/server/internal/module/plan"
	"github.com/sflix/server/internal/module/subscription"
	"github.com/sflix/server/internal/module/user"
	sharedcache "github.com/sflix/server/internal/shared/cache"
	"github.com/sflix/server/internal/shared/config"
	"github.com/sflix/server/internal/shared/database"
	"github.com/sflix/server/internal/shared/logger"
	sharedmw "github.com/sflix/server/internal/shared/middleware"
	"github.com/sflix/server/internal/utils/metrics"
	"github.com/sflix/server/internal/utils/middleware"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App represents the application.
type App struct {
	config  *config.Config
	db      *gorm.DB
	redis   redis.UniversalClient
	router  *gin.Engine
	logger  *zap.Logger
	metrics *metrics.Metrics

	// Modules
	authService         *auth.Service
	authHandler         *auth.Handler
	userHandler         *user.Handler
	userAdmin           *user.AdminHandler
	planHandler         *plan.Handler
	subscriptionService *subscription.Service
	subscriptionHandler *subscription.Handler
	webhookHandler      *subscription.WebhookHandler
	sweeper             *subscription.Sweeper
	mediaHandler        *media.Handler
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	log := logger.New(&logger.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: "sflix-api",
	})

	app := &App{
		config:  cfg,
		logger:  log,
		metrics: metrics.New("sflix"),
	}

	db, err := openDatabase(cfg, log)
	if err != nil {
		return nil, err
	}
	app.db = db

	// Redis is optional: without it the plan cache, webhook de-duplication,
	// idempotency keys and rate limits are skipped.
	if cfg.Redis.Address != "" {
		redisClient, err := sharedcache.NewRedisClient(&cfg.Redis)
		if err != nil {
			log.Warn("redis unavailable, continuing without it", zap.Error(err))
		} else {
			app.redis = redisClient
		}
	}

	app.router = app.setupRouter()

	if err := app.initModules(); err != nil {
		app.Stop()
		return nil, fmt.Errorf("init modules: %w", err)
	}

	app.registerRoutes()

	if cfg.Sweeper.Enabled {
		app.sweeper.Start()
	}

	return app, nil
}

// openDatabase connects and, when configured, migrates the schema.
func openDatabase(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db, &plan.Plan{}, &user.User{}, &media.Video{}); err != nil {
			_ = database.Close(db)
			return nil, fmt.Errorf("migrate database: %w", err)
		}
	}
	return db, nil
}

// setupRouter creates and configures the Gin router.
func (a *App) setupRouter() *gin.Engine {
	if a.config.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(middleware.Recovery(a.logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(a.logger))
	r.Use(sharedmw.Metrics(a.metrics))
	r.Use(middleware.CORS(a.config.Server.AllowedOrigins...))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))

	return r
}

// initModules initializes all application modules.
func (a *App) initModules() error {
	userRepo := user.NewRepository(a.db)

	// Auth
	tokens := auth.NewTokenManager(&auth.TokenConfig{
		Secret:            a.config.Auth.JWTSecret,
		AccessTokenExpiry: a.config.Auth.AccessTokenExpiry,
		Issuer:            a.config.Auth.Issuer,
	})
	a.authService = auth.NewService(userRepo, tokens, auth.Config{
		AdminEmails:      a.config.Auth.AdminEmails,
		AdminEmailDomain: a.config.Auth.AdminEmailDomain,
	}, a.metrics, a.logger.Named("auth"))
	a.authHandler = auth.NewHandler(a.authService)

	// Users
	userService := user.NewService(userRepo, a.logger.Named("user"))
	a.userHandler = user.NewHandler(userService)
	a.userAdmin = user.NewAdminHandler(userService)

	// Plans
	var planCache plan.Cache
	if a.redis != nil {
		planCache = plan.NewRedisCache(a.redis, a.config.Cache.PlanTTL)
	}
	planService := plan.NewService(plan.NewRepository(a.db), planCache, a.metrics, a.logger.Named("plan"))
	a.planHandler = plan.NewHandler(planService)

	// Subscriptions
	stripe := provider.NewStripeProvider(&provider.StripeConfig{
		APIKey:        a.config.Stripe.SecretKey,
		WebhookSecret: a.config.Stripe.WebhookSecret,
	})
	payments := provider.NewResilient(stripe, &provider.ResilienceConfig{
		CallTimeout:      a.config.Stripe.CallTimeout,
		ReadRetries:      a.config.Stripe.ReadRetries,
		RetryBackoff:     a.config.Stripe.RetryBackoff,
		FailureThreshold: a.config.Stripe.FailureThreshold,
		BreakerTimeout:   a.config.Stripe.BreakerTimeout,
	}, a.metrics, a.logger.Named("payment"))

	a.subscriptionService = subscription.NewService(
		userRepo,
		planService,
		payments,
		&subscription.Config{FrontendURL: a.config.Stripe.FrontendURL},
		a.metrics,
		a.logger.Named("subscription"),
	)
	a.subscriptionHandler = subscription.NewHandler(a.subscriptionService)

	var guard subscription.EventGuard
	if a.redis != nil {
		guard = subscription.NewRedisEventGuard(a.redis)
	}
	a.webhookHandler = subscription.NewWebhookHandler(a.subscriptionService, stripe, guard, a.logger.Named("webhook"))

	a.sweeper = subscription.NewSweeper(userRepo, &subscription.SweeperConfig{
		Interval: a.config.Sweeper.Interval,
		Timeout:  a.config.Sweeper.Timeout,
	}, a.metrics, a.logger.Named("sweeper"))

	// Videos
	var store media.ObjectStore
	s3Store, err := media.NewS3Store(context.Background(), &media.S3Config{
		Endpoint:        a.config.Storage.Endpoint,
		Region:          a.config.Storage.Region,
		AccessKeyID:     a.config.Storage.AccessKeyID,
		SecretAccessKey: a.config.Storage.SecretAccessKey,
		Bucket:          a.config.Storage.Bucket,
		PublicBaseURL:   a.config.Storage.PublicBaseURL,
		KeyPrefix:       a.config.Storage.KeyPrefix,
	})
	if err != nil {
		a.logger.Warn("object storage unavailable, uploads disabled", zap.Error(err))
	} else {
		store = s3Store
	}
	mediaService := media.NewService(media.NewRepository(a.db), store, a.logger.Named("media"))
	a.mediaHandler = media.NewHandler(mediaService, a.config.Server.MaxUploadBytes)

	return nil
}

// registerRoutes registers routes for all modules.
func (a *App) registerRoutes() {
	api := a.router.Group("/api/v1")

	// Webhooks use signature verification over the raw body, so they sit
	// outside body sanitising and token auth.
	webhookRouter := api.Group("/webhooks")

	v1 := api.Group("", middleware.SanitizeJSON())

	requireAuth := middleware.RequireAuth(a.authService)

	// Public routes; checkout and verification accept an optional token.
	publicRouter := v1.Group("")
	publicRouter.Use(middleware.OptionalAuth(a.authService))

	// Protected routes
	protectedRouter := v1.Group("")
	protectedRouter.Use(requireAuth)

	// Entitled viewers
	viewerRouter := v1.Group("")
	viewerRouter.Use(requireAuth, middleware.RequireEntitlement(a.subscriptionService, a.logger))

	// Admin routes: catalogue management keeps its legacy top-level paths.
	adminRouter := v1.Group("/admin")
	adminRouter.Use(requireAuth, middleware.RequireAdmin())
	catalogRouter := v1.Group("")
	catalogRouter.Use(requireAuth, middleware.RequireAdmin())

	var limiter middleware.RateLimiter
	if a.redis != nil {
		limiter = sharedcache.NewRateLimiter(a.redis)
	}
	a.authHandler.RegisterRoutes(v1,
		middleware.RateLimitByIP(limiter, a.config.RateLimit.AuthLimit, a.config.RateLimit.AuthWindow),
	)

	var replay middleware.ReplayStore
	if a.redis != nil {
		replay = sharedcache.NewReplayStore(a.redis)
	}

	a.planHandler.RegisterRoutes(publicRouter)
	a.subscriptionHandler.RegisterRoutes(publicRouter,
		middleware.Idempotency(replay, a.config.Cache.IdempotencyTTL),
	)
	a.webhookHandler.RegisterRoutes(webhookRouter)

	a.userHandler.RegisterProtectedRoutes(protectedRouter)
	a.subscriptionHandler.RegisterProtectedRoutes(protectedRouter)

	a.mediaHandler.RegisterViewerRoutes(viewerRouter)

	a.userAdmin.RegisterRoutes(adminRouter)
	a.planHandler.RegisterAdminRoutes(adminRouter)
	a.subscriptionHandler.RegisterAdminRoutes(adminRouter)
	a.mediaHandler.RegisterAdminRoutes(catalogRouter)
}

// Logger returns the application logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Router returns the HTTP router.
func (a *App) Router() *gin.Engine {
	return a.router
}

// Stop stops the application and releases resources.
func (a *App) Stop() {
	if a.sweeper != nil {
		a.sweeper.Stop()
	}

	if a.redis != nil {
		_ = sharedcache.Close(a.redis)
	}

	if a.db != nil {
		_ = database.Close(a.db)
	}

	if a.logger != nil {
		_ = a.logger.Sync()
	}
}
