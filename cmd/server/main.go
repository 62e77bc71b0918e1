package main

import (
	"log"
	"log/slog"
	"net/http"
	"time"

	"boorusync/internal/app"
	"boorusync/internal/config"
	"boorusync/internal/server"
	"boorusync/internal/util"
	"boorusync/pkg/legacy"
	"boorusync/pkg/remote"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	var limiter *remote.Limiter
	if cfg.RedisAddr != "" {
		limiter, err = remote.NewLimiter(cfg.RedisAddr, cfg.RedisPassword, "boorusync:remote", cfg.RemoteRequestsPerSecond, time.Second)
		if err != nil {
			log.Fatalf("failed to init limiter: %v", err)
		}
	}

	client, err := remote.NewClient(remote.Config{
		BaseURL:     cfg.RemoteBaseURL,
		FileBaseURL: cfg.RemoteFileBaseURL,
		UserAgent:   cfg.RemoteUserAgent,
		Limiter:     limiter,
	})
	if err != nil {
		log.Fatalf("failed to init remote client: %v", err)
	}

	var legacyStore app.LegacyStore
	if cfg.LegacyDatabaseDSN != "" {
		bridge, err := legacy.Open(cfg.LegacyDatabaseDSN)
		if err != nil {
			log.Fatalf("failed to connect legacy store: %v", err)
		}
		defer bridge.Close()
		legacyStore = bridge
	}

	appCore, err := app.New(app.Config{
		DatabaseURL: cfg.DatabaseURL,
		Remote:      client,
		Legacy:      legacyStore,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	httpServer, err := server.New(server.Config{
		App:                      appCore,
		InternalJWTPublicKeyPath: cfg.InternalJWTPublicKeyPath,
		InternalJWTKeyID:         cfg.InternalJWTKeyID,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:        addr,
		Handler:     httpServer.Router(),
		ReadTimeout: 15 * time.Second,
		// Range migrations block the request until the range completes.
		WriteTimeout: 30 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("migration server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}
