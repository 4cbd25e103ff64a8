package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pharmastore/internal/assistant"
	"pharmastore/internal/config"
	"pharmastore/internal/http/handlers"
	"pharmastore/internal/http/server"
	applog "pharmastore/internal/log"
	"pharmastore/internal/repos"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() { addServeFlags(serveCmd) }

func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().String("port", "", "listen port (overrides PORT)")
	cmd.Flags().String("db", "", "SQLite DSN (overrides DATABASE_URL)")
	cmd.Flags().Duration("shutdown-timeout", 10*time.Second, "grace period for in-flight requests")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	if v, _ := cmd.Flags().GetString("port"); v != "" {
		cfg.Port = v
	}
	if v, _ := cmd.Flags().GetString("db"); v != "" {
		cfg.DBDSN = v
	}
	grace, _ := cmd.Flags().GetDuration("shutdown-timeout")

	logger, err := applog.Init(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()
	if cfg.SeedFile != "" {
		n, err := repos.SeedFromFile(db, cfg.SeedFile)
		if err != nil {
			return fmt.Errorf("seed %s: %w", cfg.SeedFile, err)
		}
		logger.Info("seed.file", zap.String("path", cfg.SeedFile), zap.Int("products", n))
	}

	model, err := assistant.NewModel(ctx, cfg)
	if err != nil {
		logger.Warn("assistant.disabled", zap.Error(err))
	}
	if model == nil {
		logger.Warn("assistant.unavailable", zap.String("reason", "no AI provider configured"))
	} else {
		logger.Info("assistant.ready", zap.String("model", model.Name()))
	}

	history := assistant.HistoryStore(assistant.NewMemoryHistory(assistant.DefaultHistoryTurns))
	if cfg.RedisURL != "" {
		rh, err := assistant.NewRedisHistory(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("history.redis_unavailable", zap.Error(err))
		} else {
			defer rh.Close()
			history = rh
		}
	}

	deps := handlers.NewDeps(db, cfg, model, history)
	app := server.New(deps, server.Options{AccessLog: true})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server.listen", zap.String("addr", ":"+cfg.Port))
		return app.Listen(":" + cfg.Port)
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		logger.Info("server.shutdown")
		return app.ShutdownWithContext(sctx)
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
