package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	slogzap "github.com/samber/slog-zap/v2"
	"go.uber.org/zap"

	"staking_tracker/internal/app/service"
	"staking_tracker/internal/bootstrap"
	"staking_tracker/internal/infrastructure/configloader"
	"staking_tracker/internal/infrastructure/restapi"
	"staking_tracker/internal/infrastructure/store/sqlite"
	"staking_tracker/internal/infrastructure/walletloader"
	"staking_tracker/internal/pkg/logger"
	"staking_tracker/internal/pkg/metrics"
)

const defaultConfigPath = "config/config.yml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Временный логгер до загрузки конфига
	bootLogger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: failed to initialize bootstrap logger: %v\n", err)
		os.Exit(1)
	}

	cfgPath := configPath()
	cfg, err := configloader.Load(cfgPath)
	if err != nil {
		bootLogger.Fatal("Failed to load configuration", zap.String("path", cfgPath), zap.Error(err))
	}

	zapLogger, err := newZapLogger(cfg.Logging.Development)
	if err != nil {
		bootLogger.Fatal("Failed to initialize zap logger", zap.Error(err))
	}
	defer zapLogger.Sync()

	level, ok := logger.ParseLevel(cfg.Logging.Level)
	if !ok {
		zapLogger.Warn("Unknown log level, using INFO", zap.String("level", cfg.Logging.Level))
	}
	logger.SetLogger(slog.New(slogzap.Option{Level: level, Logger: zapLogger}.NewZapHandler()))
	appLogger := logger.NewSlogAdapter()
	appLogger.Info("Configuration loaded", "path", cfgPath, "network", cfg.Network)

	m := metrics.MustRegisterMetrics()

	db, err := sqlite.Open(ctx, cfg.Storage.SQLitePath)
	if err != nil {
		logger.Fatal("Failed to open storage", "path", cfg.Storage.SQLitePath, "error", err)
	}
	defer db.Close()
	store := sqlite.NewStore(db)

	engine, err := bootstrap.BuildEngine(cfg, appLogger, m)
	if err != nil {
		logger.Fatal("Failed to build snapshot engine", "error", err)
	}
	defer engine.Close()

	tracker := service.NewTrackerService(store, store, engine.Scheduler, service.TrackerConfig{
		DefaultBatchSize: cfg.Engine.BatchSize,
		CacheTTL:         time.Duration(cfg.Storage.CacheTTLMinutes) * time.Minute,
	}, appLogger)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := restapi.NewTrackerHandler(tracker, walletloader.NewLoader(appLogger), appLogger)
	router := restapi.SetupRouter(handler, zapLogger.Named("http"), nil)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down HTTP server...")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", "error", err)
	} else {
		logger.Info("HTTP server stopped.")
	}
}

// configPath returns CONFIG_PATH, the default file if it exists, or "" for built-in defaults.
func configPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	if _, err := os.Stat(defaultConfigPath); err == nil {
		return defaultConfigPath
	}
	return ""
}

func newZapLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
