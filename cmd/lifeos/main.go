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

	"github.com/dukerupert/lifeos/internal/backup"
	"github.com/dukerupert/lifeos/internal/config"
	"github.com/dukerupert/lifeos/internal/database"
	"github.com/dukerupert/lifeos/internal/logging"
	"github.com/dukerupert/lifeos/internal/remote"
	"github.com/dukerupert/lifeos/internal/remote/postgres"
	"github.com/dukerupert/lifeos/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("load timezone", "error", err)
		os.Exit(1)
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var rs remote.Store = remote.Disabled{}
	switch cfg.Remote {
	case config.RemotePostgres:
		pg, err := postgres.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			logger.Error("failed to connect remote store", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		rs = pg
	case config.RemoteMemory:
		logger.Warn("using in-memory remote store; remote rows are lost on restart")
		rs = remote.NewMemory()
	default:
		logger.Info("no remote store configured, running local-only")
	}

	srv := server.New(db, rs, server.Options{
		Location:      loc,
		JWTSecret:     cfg.JWTSecret,
		AccessToken:   cfg.AccessToken,
		RemoteTimeout: cfg.RemoteTimeout,
		Backup: backup.Config{
			S3: backup.S3Config{
				Endpoint:  cfg.Backup.Endpoint,
				Bucket:    cfg.Backup.Bucket,
				Region:    cfg.Backup.Region,
				AccessKey: cfg.Backup.AccessKey,
				SecretKey: cfg.Backup.SecretKey,
			},
			Passphrase: cfg.Backup.Passphrase,
			Interval:   cfg.Backup.Interval,
			Retention:  cfg.BackupRetention(),
		},
	}, logger)

	go srv.RateLimiter().RunCleanup(ctx, 5*time.Minute)
	srv.BackupManager().Start(ctx)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("lifeos listening", "addr", httpServer.Addr, "remote", cfg.Remote, "timezone", loc.String())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	srv.BackupManager().Stop()
	srv.Dispatcher().Wait()
}
