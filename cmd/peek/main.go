package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/peek/api"
	"github.com/use-agent/peek/browser"
	"github.com/use-agent/peek/cache"
	"github.com/use-agent/peek/config"
	"github.com/use-agent/peek/profile"
	"github.com/use-agent/peek/queue"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("peek starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"rateLimitDelay", cfg.Queue.Delay,
		"proxyEnabled", cfg.Proxy.Enabled(),
	)

	// ── 3. Launch the shared browser ────────────────────────────────
	driver, err := browser.NewRodDriver(cfg.Browser)
	if err != nil {
		slog.Error("failed to launch browser", "error", err)
		os.Exit(1)
	}
	defer driver.Close()

	// ── 4. Orchestrator + single-worker queue ───────────────────────
	orch := profile.NewOrchestrator(driver, profile.NewDOMExtractor(), cfg)
	sched := queue.NewScheduler(cfg.Queue.Delay, orch.Run)

	// ── 5. Response cache + router ──────────────────────────────────
	cc := cache.New(cfg.Cache.MaxEntries)
	startTime := time.Now()
	router := api.NewRouter(sched, cc, cfg, startTime)

	// ── 6. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 7. Shutdown ─────────────────────────────────────────────────
	// Pending jobs are abandoned on exit: the listener drains briefly,
	// the queue does not.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	}

	// driver.Close() runs via defer — kills Chrome.
	slog.Info("peek stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
