// Package main is the entry point for the CMS API server.
//
// MAIN PACKAGE IN GO:
// The main package should be kept minimal. Its job is to:
// 1. Read configuration (from env vars and an optional .env file)
// 2. Create dependencies (logger, database connection, blacklist store, ...)
// 3. Start the application
//
// All actual logic lives in imported packages (internal/server,
// internal/service, internal/handler, etc.).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/sakif/aisolutions-cms/internal/blacklist"
	"github.com/sakif/aisolutions-cms/internal/config"
	"github.com/sakif/aisolutions-cms/internal/repository/sqlite"
	"github.com/sakif/aisolutions-cms/internal/server"
	"github.com/sakif/aisolutions-cms/internal/upload"
)

// compile-time check that the SQLite table can back the blacklist
var _ blacklist.Store = (*sqlite.Blacklist)(nil)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	// === 1. READ CONFIGURATION ===
	// Missing DATABASE_URL, JWT_SECRET or CLIENT_ORIGIN stops us here, before
	// anything is opened.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// === 2. SET UP LOGGING ===
	// Text logs for a developer terminal, JSON for log collectors.
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var logger *slog.Logger
	if cfg.IsDevelopment() {
		logger = slog.New(slog.NewTextHandler(os.Stdout, opts))
	} else {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	slog.SetDefault(logger)

	ctx := context.Background()

	// === 3. CONNECT THE STORE ===
	db := sqlite.New(sqlite.Options{
		DSN:              cfg.DatabaseURL,
		ConnectTimeout:   cfg.DBConnectTimeout,
		OperationTimeout: cfg.DBOperationTimeout,
	})
	if err := db.Connect(ctx); err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer func() {
		if err := db.Disconnect(); err != nil {
			logger.Error("failed to close database", slog.String("error", err.Error()))
		}
	}()
	logger.Info("database connected")

	// === 4. TOKEN BLACKLIST ===
	// Redis expires entries by itself; the SQLite table needs the sweeper.
	var store blacklist.Store
	if cfg.UseRedisBlacklist() {
		rs, err := blacklist.NewRedisStore(ctx, cfg.RedisURL, cfg.BlacklistTTL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rs.Close()
		store = rs
		logger.Info("token blacklist in redis")
	} else {
		store = sqlite.NewBlacklist(db)
	}
	revoked := blacklist.New(store, cfg.BlacklistTTL, logger)

	if !cfg.UseRedisBlacklist() {
		sweeper := blacklist.NewSweeper(revoked, cfg.BlacklistSweep, logger)
		if err := sweeper.Start(); err != nil {
			return fmt.Errorf("starting blacklist sweeper: %w", err)
		}
		defer sweeper.Stop()
	}

	// === 5. UPLOADS ===
	files, err := upload.New(upload.Options{
		Dir:     cfg.UploadDir,
		MaxSize: cfg.MaxUploadSize,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	// === 6. CREATE AND START THE SERVER ===
	svc, err := server.NewServices(cfg, db, revoked, nil, files, logger)
	if err != nil {
		return err
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	return server.New(cfg, svc, logger).Start()
}
