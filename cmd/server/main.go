package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/link-review/backend/internal/api"
	"github.com/link-review/backend/internal/config"
	"github.com/link-review/backend/internal/logging"
	"github.com/link-review/backend/internal/maintenance"
	"github.com/link-review/backend/internal/parser"
	"github.com/link-review/backend/internal/review"
	"github.com/link-review/backend/internal/session"
	"github.com/link-review/backend/internal/storage"
	"github.com/link-review/backend/internal/upload"
	"github.com/link-review/backend/internal/web"
	"go.uber.org/zap"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Get the executable's directory for config resolution
	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	configPath := config.Path(filepath.Dir(exePath))
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	logger, closeLog, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		File:        cfg.Logging.File,
		MaxSizeMB:   cfg.Logging.MaxSizeMB,
		MaxBackups:  cfg.Logging.MaxBackups,
		MaxAgeDays:  cfg.Logging.MaxAgeDays,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return err
	}
	defer closeLog()

	fileStore, err := storage.NewLocalStore(cfg.Storage.UploadsDirectory)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	registry := parser.NewRegistry(cfg.Storage.DuckDBThreads)
	uploadMgr := upload.NewManager(fileStore, registry, cfg.MaxDecompressedBytes(), logger.Named("upload"))
	engine := review.NewEngine(fileStore, logger.Named("review"))
	sweeper := maintenance.NewSweeper(fileStore, cfg.PartitionMaxAge(), logger.Named("maintenance"))

	sessionMgr, err := session.NewManager(session.Options{
		CookieName: cfg.Session.CookieName,
		Secret:     cfg.Session.Secret,
		MaxAge:     int(cfg.SessionMaxAge().Seconds()),
		Secure:     cfg.Session.Secure,
	}, logger.Named("session"))
	if err != nil {
		return fmt.Errorf("failed to initialize sessions: %w", err)
	}

	renderer, err := web.NewRenderer()
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = renderer

	api.SetupMiddleware(e, api.MiddlewareConfig{
		BodyLimit:            cfg.Server.BodyLimit,
		EnableRequestLogging: cfg.Server.EnableRequestLogging,
	}, logger)
	api.RegisterRoutes(e, api.NewHandler(&api.Dependencies{
		Uploads:  uploadMgr,
		Reviews:  engine,
		Sweeper:  sweeper,
		Sessions: sessionMgr,
		Logger:   logger.Named("api"),
		Version:  Version,
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if interval := cfg.SweepInterval(); interval > 0 {
		go sweeper.Run(ctx, interval)
	}

	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	logger.Info("link review server starting",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("config", configPath),
		zap.String("listen", cfg.GetServerAddr()),
		zap.String("uploads", cfg.Storage.UploadsDirectory),
		zap.Duration("sweep_interval", cfg.SweepInterval()))

	errCh := make(chan error, 1)
	go func() {
		if err := e.StartServer(s); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
