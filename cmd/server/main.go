package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"province_quota/internal/config"
	"province_quota/internal/handler"
	"province_quota/internal/logging"
	"province_quota/internal/metrics"
	"province_quota/internal/repository"
	"province_quota/internal/seed"
	"province_quota/internal/service"
	"province_quota/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("server exited with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	// Load .env file
	envErr := godotenv.Load()

	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)
	if envErr != nil {
		logger.Info("no .env file found, relying on environment variables")
	}
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Storage ---
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	if _, err := seed.SeedProvinces(ctx, store, logger); err != nil {
		return err
	}

	// --- Initialize Utilities ---
	accessJWT := utils.NewJWTUtil(cfg.JWT.SecretKey, utils.TokenTypeAccess, cfg.JWT.AccessExpireMinutes)
	refreshJWT := utils.NewJWTUtil(cfg.JWT.RefreshSecretKey, utils.TokenTypeRefresh, cfg.JWT.RefreshExpireMinutes)
	appMetrics := metrics.New(prometheus.DefaultRegisterer)

	// --- Initialize Services ---
	authService := service.NewAuthService(store, accessJWT, refreshJWT, service.AuthOptions{
		InitialAdminPhone: cfg.InitialAdminPhone,
		BcryptCost:        cfg.BcryptCost,
	}, appMetrics, logger)
	userService := service.NewUserService(store, cfg.BcryptCost, logger)
	provinceService := service.NewProvinceService(store, logger)
	quotaService := service.NewQuotaService(store, appMetrics, logger)

	// --- Setup Gin Router ---
	if err := handler.RegisterValidators(); err != nil {
		return err
	}
	router := handler.NewRouter(handler.RouterDeps{
		Auth:      authService,
		Users:     userService,
		Provinces: provinceService,
		Quota:     quotaService,
		Store:     store,
		Gatherer:  prometheus.DefaultGatherer,
		Logger:    logger,
	})

	// --- Start Server ---
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting", slog.String("port", cfg.ServerPort), slog.String("storage", cfg.StorageDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// --- Graceful Shutdown ---
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server exited")
	return nil
}

// openStore returns the configured store and a function releasing its resources.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.Store, func(), error) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		logger.Warn("using in-memory storage; data is lost on restart")
		return repository.NewMemoryStore(), func() {}, nil
	}

	dbPool, err := config.ConnectDB(ctx, cfg.DB, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := config.AutoMigrate(ctx, dbPool, logger); err != nil {
		dbPool.Close()
		return nil, nil, err
	}
	return repository.NewPostgresStore(dbPool), dbPool.Close, nil
}
