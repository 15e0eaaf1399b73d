package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	_ "oshikatsu/docs" // swagger docs

	"oshikatsu/internal/auth"
	"oshikatsu/internal/cache"
	"oshikatsu/internal/config"
	"oshikatsu/internal/db"
	"oshikatsu/internal/handler"
	"oshikatsu/internal/logging"
	"oshikatsu/internal/metrics"
	"oshikatsu/internal/repository"
	"oshikatsu/internal/router"
	"oshikatsu/internal/service"
)

// @title Oshikatsu API
// @version 1.0
// @description Track the idol groups and members you follow. Every resource is private to the authenticated user.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gormDB, err := db.Open(ctx, cfg.DBDriver, cfg.DatabaseDSN, logger)
	if err != nil {
		logging.Error(logger, "database init failed", err)
		os.Exit(1)
	}

	if cfg.ResetDB {
		logger.Warn("RESET_DB=true detected, dropping all tables")
	}
	if err := db.Migrate(gormDB, cfg.ResetDB); err != nil {
		logging.Error(logger, "auto-migrate failed", err)
		os.Exit(1)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, logger)
	defer func() { _ = cacheClient.Close() }()
	if err := cacheClient.Ping(ctx); err != nil {
		logger.Warn("redis unavailable, profile cache disabled until it recovers", zap.Error(err))
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB)
	groupRepo := repository.NewGroupRepository(gormDB)
	memberRepo := repository.NewMemberRepository(gormDB)

	// Initialize auth components
	passwordValidator := auth.NewPasswordValidator(cfg.PasswordPolicy)
	hasher := auth.NewBcryptHasher(cfg.BcryptCost)
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)
	policy := passwordValidator.Policy()
	logger.Info("auth configured",
		zap.Duration("token_ttl", jwtService.TTL()),
		zap.Int("password_min_length", policy.MinLength),
		zap.Int("password_max_length", policy.MaxLength),
		zap.Bool("password_require_special", policy.RequireSpecial),
	)
	if cfg.DevMode && cfg.JWTSecret == config.PlaceholderJWTSecret {
		logger.Warn("dev mode: tokens are signed with the placeholder secret")
	}

	// Initialize services
	authService := service.NewAuthService(userRepo, passwordValidator, hasher, jwtService, logger)
	userService := service.NewUserService(userRepo, cacheClient, passwordValidator, hasher, logger)
	groupService := service.NewGroupService(groupRepo, logger)
	memberService := service.NewMemberService(memberRepo, groupRepo, logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(registry)

	e := echo.New()
	e.HideBanner = true

	// Register routes
	router.Register(e, cfg, logger, appMetrics, jwtService, router.Handlers{
		Auth:   handler.NewAuthHandler(authService, appMetrics),
		User:   handler.NewUserHandler(userService),
		Group:  handler.NewGroupHandler(groupService),
		Member: handler.NewMemberHandler(memberService),
	})

	host := cfg.SwaggerHost
	if host == "" {
		host = "localhost:" + cfg.ServerPort
	}
	logger.Info("swagger documentation available", zap.String("url", "http://"+host+"/swagger/index.html"))

	go func() {
		addr := ":" + cfg.ServerPort
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error(logger, "server start failed", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logging.Error(logger, "server shutdown failed", err)
	}
	logger.Info("server stopped")
}
