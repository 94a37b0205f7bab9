package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"prolance_backend/database"
	"prolance_backend/internal/cache"
	"prolance_backend/internal/config"
	"prolance_backend/internal/email"
	"prolance_backend/internal/fanout"
	"prolance_backend/internal/handlers"
	"prolance_backend/internal/logger"
	"prolance_backend/internal/metrics"
	"prolance_backend/internal/middleware"
	"prolance_backend/internal/repositories"
	"prolance_backend/internal/routes"
	"prolance_backend/internal/services"
	"prolance_backend/internal/validator"
	"prolance_backend/internal/workers"
	"prolance_backend/ws"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Run() {
	config.LoadConfig()
	cfg := config.AppConfig
	logger.Init(cfg.Server.Env)
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	logger.Info("Connecting to database...")
	gormDB, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{TranslateError: true})
	if err != nil {
		logger.Fatal("Failed to connect to GORM", "error", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		logger.Fatal("Failed to get *sql.DB from GORM", "error", err)
	}
	if err = sqlDB.Ping(); err != nil {
		logger.Fatal("Database unavailable", "error", err)
	}
	logger.Info("Database connected")

	if err := database.Migrate(gormDB); err != nil {
		logger.Fatal("Migration failed", "error", err)
	}
	logger.Info("Migrations applied")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ginRouter := SetupRouter(ctx, cfg, gormDB)

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:    address,
		Handler: ginRouter,
	}

	go func() {
		logger.Info("Server starting", "address", address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server startup error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", "error", err)
	}
	logger.Info("Server stopped")
}

func SetupRouter(ctx context.Context, cfg *config.Config, gormDB *gorm.DB) *gin.Engine {
	// Redis backs both the progress cache and the realtime backplane.
	// Without it the no-op cache and the in-process hub still give a
	// fully working single-instance deployment.
	var cacheBackend cache.Cache = cache.NoopCache{}
	var redisCache *cache.RedisCache
	if cfg.Redis.Addr != "" {
		redisCache = cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err := redisCache.Client().Ping(ctx).Err(); err != nil {
			logger.Warn("Redis unavailable, falling back to no-op cache", "error", err.Error())
			redisCache = nil
		} else {
			cacheBackend = redisCache
			logger.Info("Redis connected", "addr", cfg.Redis.Addr)
		}
	}

	wsManager := ws.NewManager()
	go wsManager.Run()

	var dispatcher fanout.Dispatcher = wsManager
	if redisCache != nil {
		backplane := ws.NewRedisBackplane(redisCache.Client(), wsManager)
		go backplane.Run(ctx)
		dispatcher = backplane
		logger.Info("Redis realtime backplane enabled")
	}

	serviceContainer := initializeServices(cfg, gormDB, dispatcher, cacheBackend)
	appHandlers := initializeHandlers(serviceContainer)
	wsHandler := ws.NewHandler(wsManager)

	startWorkers(ctx, cfg, gormDB, serviceContainer.FanoutService)

	ginRouter := initializeGinRouter(cfg)
	routes.RegisterRoutes(ginRouter, appHandlers, wsHandler)
	return ginRouter
}

func initializeServices(cfg *config.Config, gormDB *gorm.DB, dispatcher fanout.Dispatcher, cacheBackend cache.Cache) *services.ServiceContainer {
	emailProvider := email.NewProvider(cfg)
	if !cfg.Email.Enabled {
		logger.Warn("Email disabled, outgoing mail is dropped")
	}

	projectRepo := repositories.NewProjectRepository(gormDB)
	bidRepo := repositories.NewBidRepository(gormDB)
	biddingRepo := repositories.NewBiddingRepository(gormDB)
	notificationRepo := repositories.NewNotificationRepository(gormDB)
	userRepo := repositories.NewUserRepository(gormDB)

	fanoutService := fanout.NewService(notificationRepo, dispatcher)

	return &services.ServiceContainer{
		AuthService:         services.NewAuthService(userRepo, emailProvider),
		ProjectService:      services.NewProjectService(projectRepo, bidRepo, biddingRepo, userRepo, fanoutService, cacheBackend),
		BidService:          services.NewBidService(bidRepo, projectRepo, userRepo, fanoutService),
		BiddingService:      services.NewBiddingService(biddingRepo, bidRepo, projectRepo, userRepo, fanoutService),
		PaymentService:      services.NewPaymentService(projectRepo, userRepo, fanoutService),
		NotificationService: services.NewNotificationService(notificationRepo),
		FanoutService:       fanoutService,
		EmailService:        emailProvider,
	}
}

func initializeHandlers(container *services.ServiceContainer) *handlers.AppHandlers {
	customValidator := validator.New()
	baseHandler := handlers.NewBaseHandler(customValidator)

	return &handlers.AppHandlers{
		AuthHandler:         handlers.NewAuthHandler(baseHandler, container.AuthService),
		ProjectHandler:      handlers.NewProjectHandler(baseHandler, container.ProjectService, container.PaymentService),
		BidHandler:          handlers.NewBidHandler(baseHandler, container.BidService, container.BiddingService),
		NotificationHandler: handlers.NewNotificationHandler(baseHandler, container.NotificationService),
	}
}

func startWorkers(ctx context.Context, cfg *config.Config, gormDB *gorm.DB, fanoutService *fanout.Service) {
	projectRepo := repositories.NewProjectRepository(gormDB)
	userRepo := repositories.NewUserRepository(gormDB)

	workers.NewBiddingWorker(projectRepo, userRepo, fanoutService, cfg.Workers.BiddingSweepInterval).Start(ctx)
	workers.NewPaymentWorker(projectRepo, userRepo, fanoutService, cfg.Workers.PaymentSweepInterval).Start(ctx)
	logger.Info("Background workers started",
		"bidding_sweep_minutes", cfg.Workers.BiddingSweepInterval,
		"payment_sweep_minutes", cfg.Workers.PaymentSweepInterval,
	)
}

func initializeGinRouter(cfg *config.Config) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.CORSMiddleware())
	router.Use(metrics.GinMiddleware())
	return router
}
