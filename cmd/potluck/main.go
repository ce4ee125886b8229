package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dukerupert/potluck/internal/config"
	"github.com/dukerupert/potluck/internal/database"
	"github.com/dukerupert/potluck/internal/logging"
	"github.com/dukerupert/potluck/internal/server"
	"github.com/dukerupert/potluck/internal/store"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.LogLevel)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		logger.Error("open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if len(os.Args) > 1 {
		if err := runCommand(db, os.Args[1:]); err != nil {
			logger.Error("command failed", "args", os.Args[1:], "error", err)
			db.Close()
			os.Exit(1)
		}
		return
	}

	srv := server.New(db, cfg, logger)

	httpServer := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     srv.Router(),
		ReadTimeout: 5 * time.Second,
		// Long-lived WebSocket streams share this server, so no WriteTimeout.
		IdleTimeout: 120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go cleanupLoop(ctx, srv.SessionStore(), srv.RateLimiter().Cleanup, logger)

	go func() {
		logger.Info("potluck listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
}

func runCommand(db *sql.DB, args []string) error {
	if len(args) >= 2 && args[0] == "user" && args[1] == "add" {
		return runUserAdd(context.Background(), db, args[2:], os.Stdout)
	}
	return fmt.Errorf("unknown command %q (usage: potluck [user add -email ... -name ... -password ...])", strings.Join(args, " "))
}

func cleanupLoop(ctx context.Context, sessions *store.SessionStore, sweepLimits func(), logger *slog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.DeleteExpired(ctx)
			if err != nil {
				logger.Error("delete expired sessions", "error", err)
			} else if n > 0 {
				logger.Info("deleted expired sessions", "count", n)
			}
			sweepLimits()
		}
	}
}
