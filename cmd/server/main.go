// @title           AdmitHub API
// @version         1.0.0
// @description     Admissions application platform with role-based security

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:9000
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @securityDefinitions.apikey SessionAuth
// @in cookie
// @name admithub_session
// @description Session-based authentication cookie

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"admithub/internal/config"
	"admithub/internal/database"
	"admithub/internal/middleware"
	"admithub/internal/response"
	"admithub/internal/router"
	"admithub/internal/services"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	logger, err := initLogger(&cfg.Logging)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("Starting AdmitHub application",
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
	)

	// Database with migrations
	dbManager, err := database.InitDB(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbManager.Close()

	healthCtx, healthCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := dbManager.Health(healthCtx); err != nil {
		healthCancel()
		logger.Fatal("Database is not healthy", zap.Error(err))
	}
	healthCancel()
	logger.Info("Database initialized")

	// Services, repositories and infrastructure
	serviceCollection, err := services.NewServiceCollection(dbManager, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}

	startCtx, startCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := serviceCollection.Start(startCtx); err != nil {
		startCancel()
		logger.Fatal("Failed to start services", zap.Error(err))
	}
	startCancel()

	// Auth middleware
	authConfig := middleware.DefaultAuthConfig()
	authConfig.JWTSecret = cfg.Auth.JWTSecret
	authConfig.SessionName = cfg.Auth.SessionName

	authMiddleware, err := middleware.NewAuthMiddleware(
		authConfig,
		serviceCollection.Cache,
		serviceCollection.Repositories.Session,
		serviceCollection.Repositories.User,
		logger,
	)
	if err != nil {
		logger.Fatal("Failed to create auth middleware", zap.Error(err))
	}

	// Rate limiter
	rateLimitConfig := middleware.DefaultRateLimiterConfig()
	rateLimiter := middleware.NewRateLimiter(serviceCollection.Cache, rateLimitConfig, logger)

	// Response builder
	responseConfig := response.DefaultConfig()
	responseConfig.MaskInternalErrors = cfg.IsProduction()
	responseBuilder := response.NewBuilder(responseConfig, logger)

	handler := router.SetupRouter(serviceCollection, authMiddleware, rateLimiter, responseBuilder, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		MaxHeaderBytes:    cfg.Server.MaxHeaderBytes,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("Application started",
		zap.String("url", fmt.Sprintf("http://localhost:%s", cfg.Server.Port)),
		zap.String("health_check", "/health"),
		zap.String("api_docs", "/swagger/"),
	)

	<-quit
	logger.Info("Shutting down application")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	if err := serviceCollection.Shutdown(shutdownCtx); err != nil {
		logger.Error("Service shutdown completed with errors", zap.Error(err))
	}

	metrics := dbManager.Metrics()
	logger.Info("Final database metrics",
		zap.Int64("query_count", metrics.Queries),
		zap.Int64("error_count", metrics.Errors),
		zap.Int64("slow_query_count", metrics.SlowQueries),
	)

	logger.Info("Application shutdown completed")
}

// initLogger builds a zap logger from logging configuration
func initLogger(cfg *config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var zapConfig zap.Config
	if cfg.Format == "console" {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)
	if cfg.Output != "" {
		zapConfig.OutputPaths = []string{cfg.Output}
	}

	return zapConfig.Build()
}
