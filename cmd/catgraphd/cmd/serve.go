package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/catgraph/catquery/internal/graph"
	"github.com/catgraph/catquery/internal/queue"
	"github.com/catgraph/catquery/internal/repository"
	"github.com/catgraph/catquery/internal/server"
	"github.com/catgraph/catquery/internal/storage"
	"github.com/catgraph/catquery/pkg/config"
	"github.com/catgraph/catquery/pkg/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Load the graph and start the HTTP query server",
	Long: `serve loads the category/tree blobs named by the graph config
section through the configured storage backend, starts the job queue's
compute worker, and begins answering LIST/AND/NOT/PATH requests over
HTTP.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	log := GetLogger()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx := context.Background()

	shutdownTelemetry, err := telemetry.Init(ctx)
	if err != nil {
		log.Warn("telemetry: failed to initialize, continuing without tracing: %v", err)
	}
	defer shutdownTelemetry(ctx)

	st, err := storage.NewStorage(&cfg.Storage)
	if err != nil {
		return fmt.Errorf("initializing storage backend: %w", err)
	}

	log.Info("loading graph: cat=%s tree=%s (storage=%s)", cfg.Graph.CatFile, cfg.Graph.TreeFile, cfg.Storage.Type)
	store, err := graph.LoadFromStorage(ctx, st, cfg.Graph.CatFile, cfg.Graph.TreeFile)
	if err != nil {
		return fmt.Errorf("loading graph: %w", err)
	}
	log.Info("graph loaded: %d nodes", store.N())

	bufs := graph.NewBuffers(store.N())
	q := queue.New(store, bufs, log)

	if cfg.JobLedgerEnabled() {
		dbCfg := &repository.DBConfig{
			Type:     cfg.Database.Type,
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			Database: cfg.Database.Database,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			MaxConns: cfg.Database.MaxConns,
		}
		gormDB, err := repository.NewGormDB(dbCfg)
		if err != nil {
			log.Warn("job ledger: failed to connect, continuing without it: %v", err)
		} else {
			jobRepo, err := repository.NewGormJobRepository(gormDB)
			if err != nil {
				log.Warn("job ledger: failed to migrate, continuing without it: %v", err)
			} else {
				q.SetLedger(jobRepo)
				log.Info("job ledger enabled (%s)", cfg.Database.Type)
			}
		}
	}

	q.Start()

	srv := server.New(cfg.Server.Addr, store, q, log)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	log.Info("catgraphd listening on %s", cfg.Server.Addr)

	select {
	case sig := <-sigCh:
		log.Info("received %s, shutting down", sig)
	case err := <-errCh:
		if err != nil {
			q.Stop()
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("server shutdown: %v", err)
	}
	q.Stop()

	return nil
}
