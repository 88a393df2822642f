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

	"github.com/joho/godotenv"

	"memory-match-server/api"
	"memory-match-server/auth"
	"memory-match-server/config"
	"memory-match-server/lobby"
	"memory-match-server/loghandler"
	"memory-match-server/metrics"
	"memory-match-server/storage"
	"memory-match-server/ws"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	slog.SetDefault(slog.New(loghandler.NewCompactHandler(os.Stdout, config.ParseLevel(cfg.LogLevel))))
	if envErr != nil {
		slog.Debug("no .env file found; using environment variables", "tag", "server")
	}

	slog.Info("configuration loaded", "tag", "server",
		"revealDelayMs", cfg.RevealDelayMS, "deckSize", len(cfg.CardValues),
		"maxSessions", cfg.MaxSessions, "port", cfg.HTTPPort)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var historyStore storage.HistoryStore
	var resultStore lobby.ResultStore
	store, err := storage.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("storage unavailable, round history disabled", "tag", "storage", "err", err)
	} else if store != nil {
		defer store.Close()
		historyStore = store
		resultStore = store
	} else {
		slog.Info("DATABASE_URL is not set, round history disabled", "tag", "storage")
	}

	validator := auth.NewValidator(cfg.AuthBaseURL)
	if validator.Enabled() {
		slog.Info("auth configured", "tag", "auth", "baseURL", cfg.AuthBaseURL)
	} else {
		slog.Info("AUTH_BASE_URL is not set, players join as guests", "tag", "auth")
	}

	collectors := metrics.New()

	lb := lobby.NewLobby(cfg, resultStore, collectors)
	go lb.Run(ctx)

	hub := ws.NewHub(cfg, lb, validator)
	go hub.Run(ctx)

	apiHandler := api.NewHandler(cfg, historyStore, validator)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           newRouter(hub, apiHandler, collectors.Handler()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("memory match server listening", "tag", "server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("listen", "tag", "server", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down", "tag", "server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "tag", "server", "err", err)
	}
	lb.Wait()
}
