package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/api"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/config"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/factory"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/supervisor"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		return err
	}

	logger := cfg.Logging.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := factory.New(ctx, factory.FromConfig(cfg, logger))
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("failed to close storage", slog.String("error", err.Error()))
		}
	}()

	restServer := api.NewServer(app.Router, api.ServerConfig{
		Name:            "rest",
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, logger)

	// Websocket connections outlive any write timeout; the pumps set their
	// own deadlines.
	realtimeServer := api.NewServer(app.RealtimeRouter, api.ServerConfig{
		Name:            "realtime",
		Host:            cfg.Realtime.Host,
		Port:            cfg.Realtime.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, logger)

	tree := supervisor.NewTree(logger, supervisor.TreeConfig{ShutdownTimeout: cfg.Server.ShutdownTimeout})
	tree.AddAPIService(supervisor.NewHTTPService("rest", restServer, cfg.Server.ShutdownTimeout))
	tree.AddAPIService(supervisor.NewHTTPService("realtime", realtimeServer, cfg.Server.ShutdownTimeout,
		supervisor.WithStateHook(app.Hub.SetRunning),
		supervisor.WithStopHook(app.RealtimeHandler.Shutdown),
	))
	tree.AddMaintenanceService(supervisor.NewReaperService(app.AuthService, cfg.Auth.ReapInterval, logger))

	logger.Info("tactical map server starting",
		slog.Int("rest_port", cfg.Server.Port),
		slog.Int("realtime_port", cfg.Realtime.Port),
		slog.String("realtime_path", cfg.Realtime.Path),
		slog.String("storage", cfg.Storage.Type),
		slog.Bool("realtime_require_session", cfg.Realtime.RequireSession),
	)

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("supervisor stopped", slog.String("error", err.Error()))
		return err
	}

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, svc := range unstopped {
			logger.Warn("service failed to stop", slog.String("service", svc.Name))
		}
	}

	logger.Info("server stopped")
	return nil
}
