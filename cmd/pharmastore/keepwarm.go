package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pharmastore/internal/config"
	applog "pharmastore/internal/log"
	"pharmastore/internal/warmup"
)

var keepwarmCmd = &cobra.Command{
	Use:   "keepwarm",
	Short: "Ping warmup endpoints on an interval so idle hosts stay awake",
	RunE:  runKeepwarm,
}

func init() {
	keepwarmCmd.Flags().StringSlice("url", nil, "URL to ping (repeatable); defaults to the local /api/warmup")
	keepwarmCmd.Flags().Duration("interval", warmup.DefaultInterval, "time between pings")
}

func runKeepwarm(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	logger, err := applog.Init(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	urls, _ := cmd.Flags().GetStringSlice("url")
	if len(urls) == 0 {
		urls = []string{"http://localhost:" + cfg.Port + "/api/warmup"}
	}
	interval, _ := cmd.Flags().GetDuration("interval")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("keepwarm.start", zap.Strings("urls", urls), zap.Duration("interval", interval))
	return warmup.NewPoller(urls, interval).Run(ctx)
}
