package main

import (
	"fmt"

	"github.com/ethpandaops/runtimeoor/pkg/api"
	"github.com/ethpandaops/runtimeoor/pkg/store"
	"github.com/spf13/cobra"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the results API server",
	Long:  `Serve the runs stored in the history database over HTTP.`,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveListen, "listen", "",
		"Listen address (overrides api.listen)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if serveListen != "" {
		cfg.API.Listen = serveListen
	}

	if err := cfg.Database.Validate(); err != nil {
		return fmt.Errorf("validating database config: %w", err)
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	st := store.NewStore(log, &cfg.Database)
	if err := st.Start(ctx); err != nil {
		return fmt.Errorf("starting store: %w", err)
	}

	defer func() {
		if err := st.Stop(); err != nil {
			log.WithError(err).Warn("Failed to close store")
		}
	}()

	srv := api.NewServer(log, &cfg.API, st)

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("starting api server: %w", err)
	}

	<-ctx.Done()

	if err := srv.Stop(); err != nil {
		return fmt.Errorf("stopping api server: %w", err)
	}

	return nil
}
