package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/rapidchat-server/internal/app"
	"github.com/vovakirdan/rapidchat-server/internal/config"
	applog "github.com/vovakirdan/rapidchat-server/internal/log"
)

type flags struct {
	configPath string
	addr       string
	logLevel   string
	store      string
}

func newRootCmd() *cobra.Command {
	var f flags

	rootCmd := &cobra.Command{
		Use:   "rapidchat-server",
		Short: "Real-time chat relay with REST auth and a WebSocket feed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, f)
		},
		SilenceUsage: true,
	}

	rootCmd.Flags().StringVar(&f.configPath, "config", "", "Config file path (env: RAPIDCHAT_CONFIG_DEFAULT_PATH)")
	rootCmd.Flags().StringVar(&f.addr, "addr", "", "HTTP listen address (env: RAPIDCHAT_ADDR)")
	rootCmd.Flags().StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error (env: RAPIDCHAT_LOG_LEVEL)")
	rootCmd.Flags().StringVar(&f.store, "store", "", "Store driver: memory, sqlite, redis (env: RAPIDCHAT_STORE_DRIVER)")

	return rootCmd
}

func run(cmd *cobra.Command, f flags) error {
	bootLogger, _, err := applog.New("info", "console", "")
	if err != nil {
		return err
	}

	cfg, path, err := config.Load(bootLogger, f.configPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}

	cfg.UpdateFrom(config.Config{
		Addr:        f.addr,
		LogLevel:    f.logLevel,
		StoreDriver: f.store,
	})
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, closer, err := applog.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if closer != nil {
		defer closer.Close()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(&cfg, logger)
	if err != nil {
		return err
	}

	logger.Info().Str("config", path).Str("addr", cfg.Addr).Msg("config loaded")
	if err := application.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("server exited with error")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
