package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/danraniery/sgm/internal/config"
	httpserver "github.com/danraniery/sgm/internal/http"
	"github.com/danraniery/sgm/internal/i18n"
	"github.com/danraniery/sgm/internal/metrics"
	"github.com/danraniery/sgm/pkg/auth"
	"github.com/danraniery/sgm/pkg/repository"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	// Connect to database
	db, err := repository.NewDB(repository.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	logger.Info("connected to database")

	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := repository.Migrate(startCtx, db); err != nil {
		return err
	}

	// Initialize repositories
	accountsRepo := repository.NewAccountsRepository(db)
	profilesRepo := repository.NewProfilesRepository(db)

	// Per-account mutations are serialized across replicas when Redis is configured
	var locker auth.AccountLocker = auth.NewLocalLocker()
	if cfg.HasRedis() {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		if err := client.Ping(startCtx).Err(); err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		locker = repository.NewRedisAccountLocker(client, cfg.Redis.LockTTL)
		logger.Info("redis account locks enabled", "addr", cfg.Redis.Addr)
	}

	m, err := metrics.New(metrics.Options{})
	if err != nil {
		return err
	}

	// Initialize services
	hasher := auth.NewArgon2Hasher(auth.DefaultArgon2Params())
	policy := auth.NewPasswordPolicy(cfg.PasswordPolicy, hasher)
	tracker := auth.NewAttemptTracker(cfg.Lockout)

	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Secret:          cfg.JWTSecret,
		Issuer:          cfg.JWTIssuer,
		AccessTokenTTL:  cfg.AccessTokenTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
	}, accountsRepo, tracker)
	if err != nil {
		return err
	}

	serviceCfg := auth.AuthenticatorConfig{
		MaxRetries: cfg.Lockout.UpdateRetries,
		Locker:     locker,
		Logger:     logger,
		Events:     m,
	}
	authenticator := auth.NewAuthenticator(accountsRepo, policy, tracker, tokens, hasher, serviceCfg)
	accountService := auth.NewAccountService(accountsRepo, policy, tracker, hasher, serviceCfg)

	if cfg.SystemAdminPassword != "" {
		created, err := accountService.EnsureSystemAdmin(startCtx, cfg.SystemAdminPassword)
		if err != nil {
			return err
		}
		if !created {
			logger.Debug("system admin account already present")
		}
	}

	// Create router
	router := httpserver.NewRouter(httpserver.RouterConfig{
		Logger:          logger,
		Translator:      i18n.New(cfg.Locale),
		Metrics:         m,
		Authenticator:   authenticator,
		Accounts:        authenticator,
		Users:           accountService,
		Profiles:        profilesRepo,
		Tokens:          tokens,
		DB:              db,
		RateLimit:       cfg.RateLimit,
		SecurityHeaders: cfg.SecurityHeaders,
		MaxBodySize:     cfg.MaxRequestBodySize,
	})

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.ServerAddr, cfg.ServerPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	logger.Info("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
