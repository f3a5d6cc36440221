package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/parchment-labs/extractd/internal/adapters/driven/extractor/tika"
	"github.com/parchment-labs/extractd/internal/adapters/driving/httpapi"
	"github.com/parchment-labs/extractd/internal/core/services"
	"github.com/parchment-labs/extractd/internal/ingest"
	"github.com/parchment-labs/extractd/internal/logger"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the extraction service",
	Long: `Starts the HTTP API, the extraction worker pool and, when an uploads
directory is configured, the ingest watcher. Runs until interrupted.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	extractor := tika.NewClient(tika.Config{
		BaseURL:           a.cfg.Extractor.URL,
		Timeout:           a.cfg.Extractor.Timeout(),
		FailureThreshold:  a.cfg.Extractor.FailureThreshold,
		Cooldown:          a.cfg.Extractor.Cooldown(),
		RequestsPerSecond: a.cfg.Extractor.RequestsPerSecond,
		Burst:             a.cfg.Extractor.Burst,
	})

	if err := extractor.Ping(ctx); err != nil {
		logger.Warn("Extraction service at %s is not reachable: %v", a.cfg.Extractor.URL, err)
	}

	pool := services.NewWorkerPool(
		a.cfg.Workers.Count,
		a.cfg.Workers.PollInterval(),
		a.taskStore,
		a.fileStore,
		extractor,
		a.extraction,
	)
	pool.Start(ctx)
	defer pool.Stop()

	if dir := a.cfg.Ingest.WatchDir; dir != "" {
		watcher := ingest.NewWatcher(dir, a.fileStore, a.extraction)
		if err := watcher.Start(ctx); err != nil {
			return fmt.Errorf("starting uploads watcher: %w", err)
		}
		defer watcher.Stop()
	}

	reporter := services.NewStatusReporter(a.fileStore, a.contentStore, a.taskStore, a.index, extractor)

	listen := a.cfg.Server.Listen
	if serveListen != "" {
		listen = serveListen
	}
	server := httpapi.NewServer(listen, a.extraction, a.search, reporter, extractor)
	if err := server.Start(); err != nil {
		return err
	}
	defer func() {
		if err := server.Stop(context.Background()); err != nil {
			logger.Warn("HTTP shutdown: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("Received %s, shutting down", sig)
	case <-ctx.Done():
	}
	return nil
}
