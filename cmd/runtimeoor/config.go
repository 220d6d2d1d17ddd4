package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethpandaops/runtimeoor/pkg/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// loadConfig loads the config files named by --config. The configured log
// level applies unless --log-level was given explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFiles...)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if !cmd.Flags().Changed("log-level") {
		level, err := logrus.ParseLevel(cfg.Global.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid global.log_level %q: %w", cfg.Global.LogLevel, err)
		}

		log.SetLevel(level)
	}

	return cfg, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigCh:
			log.WithField("signal", sig).Info("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}

		signal.Stop(sigCh)
	}()

	return ctx, cancel
}
