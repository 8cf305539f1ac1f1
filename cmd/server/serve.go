package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/datatable/internal/core"
	"github.com/JonMunkholm/datatable/internal/database"
	"github.com/JonMunkholm/datatable/internal/viewstate"
	"github.com/JonMunkholm/datatable/internal/web"
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"view_state", cfg.ViewState.Backend,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"metrics_enabled", cfg.Metrics.Enabled,
	)

	if cfg.Database.URL != "" && cfg.Database.MigrateOnStart {
		if err := database.MigrateUp(cfg.Database.URL); err != nil {
			slog.Error("migration failed", "error", err)
			return err
		}
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open task store", "error", err)
		return err
	}
	defer store.Close()

	service := core.NewService(store, core.WithMaxPageSize(cfg.Table.MaxPageSize))

	views, err := viewstate.Open(ctx, viewstate.Config{
		Backend:       cfg.ViewState.Backend,
		RedisURL:      cfg.ViewState.RedisURL,
		RedisPrefix:   cfg.ViewState.RedisPrefix,
		TTL:           cfg.ViewState.TTL,
		SweepSchedule: cfg.ViewState.SweepSchedule,
		Logger:        slog.Default().With("component", "viewstate"),
	})
	if err != nil {
		slog.Error("failed to open view state store", "error", err)
		return err
	}
	defer views.Close()

	server, err := web.NewServer(service, views, cfg)
	if err != nil {
		slog.Error("failed to create server", "error", err)
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.Server.Addr())
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server stopped", "error", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
		return err
	}
	return nil
}
