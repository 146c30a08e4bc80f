// cmd/hr-simulator/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"bias-audit-harness/internal/common/config"
	"bias-audit-harness/internal/common/database"
	"bias-audit-harness/internal/common/logger"
	"bias-audit-harness/internal/scoring"
	"bias-audit-harness/internal/sessions"
	"bias-audit-harness/internal/simulator"
	"bias-audit-harness/internal/target"
)

func main() {
	zapLog := logger.New("info", "console")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog = logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	ctx := context.Background()

	// --- Session Store ---
	var store sessions.Store
	switch cfg.Sessions.Backend {
	case "redis":
		redisClient, err := database.NewRedis(cfg.Database.Redis)
		if err != nil {
			zapLog.Fatal("redis init failed", zap.Error(err))
		}
		if err := redisClient.Ping(ctx); err != nil {
			zapLog.Fatal("redis unreachable", zap.Error(err))
		}
		defer redisClient.Close()
		store = sessions.NewRedisStore(
			redisClient.GetClient(),
			cfg.Sessions.KeyPrefix,
			config.GetDuration(cfg.Sessions.TTL),
		)
	default:
		store = sessions.NewMemoryStore()
	}

	// --- Scoring Engine ---
	var opts []scoring.Option
	if cfg.Simulator.CurrentYear != 0 {
		opts = append(opts, scoring.WithCurrentYear(cfg.Simulator.CurrentYear))
	}
	engine := scoring.NewEngine(log, opts...)
	client := target.NewInProcessTarget(engine, store, log)

	server := &http.Server{
		Addr:         cfg.Simulator.ListenAddress,
		Handler:      simulator.NewServer(client, log).Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		zapLog.Info("HR screening simulator listening",
			zap.String("address", cfg.Simulator.ListenAddress),
			zap.Int("current_year", cfg.Simulator.CurrentYear),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("simulator server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping simulator...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("simulator shutdown failed", zap.Error(err))
	}
	zapLog.Info("Simulator stopped gracefully")
}
