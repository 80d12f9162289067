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

	"github.com/primeapparel/marketplace-backend/config"
	"github.com/primeapparel/marketplace-backend/internal/app/controller"
	"github.com/primeapparel/marketplace-backend/internal/app/repository"
	"github.com/primeapparel/marketplace-backend/internal/app/service"
	"github.com/primeapparel/marketplace-backend/internal/db"
	"github.com/primeapparel/marketplace-backend/internal/middleware"
	"github.com/primeapparel/marketplace-backend/internal/policy"
	"github.com/primeapparel/marketplace-backend/internal/router"
	"github.com/primeapparel/marketplace-backend/internal/scheduler"
	"github.com/primeapparel/marketplace-backend/internal/storage"
	"github.com/primeapparel/marketplace-backend/internal/websocket"
	"github.com/primeapparel/marketplace-backend/pkg/logger"
	"github.com/primeapparel/marketplace-backend/pkg/mailer"
	"github.com/primeapparel/marketplace-backend/pkg/redis"
	"github.com/primeapparel/marketplace-backend/pkg/util"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	logConfig := logger.ConfigForEnvironment(cfg.Server.Environment)
	logger.Initialize(logConfig)

	logger.Info("Starting Prime Apparel Backend Server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logConfig.Level,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	// Run migrations
	if err := db.Migrate(db.GetDB()); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}
	if err := db.EnsureAdmin(db.GetDB(), cfg.Admin.Email, cfg.Admin.Password); err != nil {
		logger.Fatal("Failed to bootstrap admin account", err)
	}

	// Redis is optional; without it logout cannot revoke tokens server side
	var blacklist *redis.TokenBlacklist
	if cfg.Redis.Enabled {
		if err := redis.Init(&cfg.Redis); err != nil {
			logger.Fatal("Failed to initialize Redis", err)
		}
		defer redis.Close()
		blacklist = redis.NewTokenBlacklist(redis.GetClient())
	} else {
		logger.Warn("Redis disabled, token revocation on logout is off")
	}

	ctx := context.Background()
	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal("Failed to initialize storage", err, map[string]interface{}{
			"driver": cfg.Storage.Driver,
		})
	}

	notifier, err := mailer.New(cfg.Mail, cfg.Server.Environment)
	if err != nil {
		logger.Fatal("Failed to initialize mailer", err)
	}

	hub := websocket.NewHub()
	go hub.Run()
	defer hub.Stop()

	pol, err := policy.New()
	if err != nil {
		logger.Fatal("Failed to load access policy", err)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db.GetDB())
	leadRepo := repository.NewLeadRepository(db.GetDB())
	productRepo := repository.NewProductRepository(db.GetDB())

	// Initialize services
	hasher := util.NewBcryptHasher()
	notificationService := service.NewNotificationService(notifier, hub)

	var revoker service.TokenRevoker
	var revocationChecker middleware.RevocationChecker
	if blacklist != nil {
		revoker = blacklist
		revocationChecker = blacklist
	}

	authService := service.NewAuthService(
		userRepo,
		hasher,
		notificationService,
		revoker,
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	passwordResetService := service.NewPasswordResetService(db.GetDB(), notifier, hasher, cfg.PasswordReset)
	userAdminService := service.NewUserAdminService(userRepo, notificationService)
	leadService := service.NewLeadService(leadRepo, productRepo, userRepo)
	productService := service.NewProductService(productRepo)
	mediaService := service.NewMediaService(store)

	// Initialize controllers
	authController := controller.NewAuthController(authService, passwordResetService, mediaService, cfg.Server.PublicBaseURL)
	userAdminController := controller.NewUserAdminController(userAdminService)
	leadController := controller.NewLeadController(leadService)
	productController := controller.NewProductController(productService, mediaService, cfg.Server.PublicBaseURL)
	uploadController := controller.NewUploadController(mediaService)
	notificationController := controller.NewNotificationController(hub, cfg.CORS.AllowedOrigins)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret, userRepo, revocationChecker, pol)

	cleanup := scheduler.NewResetCleanupScheduler(passwordResetService, cfg.PasswordReset.CleanupSchedule)
	if err := cleanup.Start(); err != nil {
		logger.Fatal("Failed to start password reset cleanup", err)
	}
	defer cleanup.Stop()

	// Setup router
	r := router.NewRouter(
		authController,
		userAdminController,
		leadController,
		productController,
		uploadController,
		notificationController,
		authMiddleware,
		db.GetDB(),
		cfg,
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           r.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", err)
	}
	logger.Info("Server stopped successfully")
}
