package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/vytor/memcore/internal/api"
	"github.com/vytor/memcore/internal/db"
	"github.com/vytor/memcore/internal/jobs"
	"github.com/vytor/memcore/internal/logger"
	"github.com/vytor/memcore/internal/repository/sqlite"
	"github.com/vytor/memcore/internal/worker"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Recover state and serve the review API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := rootOpts.Config
			if addr != "" {
				cfg.Addr = addr
			}
			rootOpts.Config = cfg

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, rootOpts)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides ADDR")
	return cmd
}

func runServe(ctx context.Context, opts *RootOptions) error {
	cfg := opts.Config
	log := logger.Default()

	log.Info("memcore server starting")
	log.Debug("addr=%s", cfg.Addr)
	log.Debug("snapshot_path=%s", cfg.SnapshotPath)
	log.Debug("wal_path=%s", cfg.WALPath)
	log.Debug("db_path=%s", cfg.DBPath)
	log.Debug("snapshot_interval=%s", cfg.SnapshotInterval)
	log.Debug("history_worker_count=%d", cfg.HistoryWorkerCount)
	log.Debug("history_queue_size=%d", cfg.HistoryQueueSize)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open history database: %w", err)
	}
	defer func() {
		log.Debug("closing database connection")
		database.Close()
	}()

	historyRepo := sqlite.NewHistoryRepository(database.DB)
	historyPool := worker.NewPool(cfg.HistoryWorkerCount, cfg.HistoryQueueSize)
	queue := jobs.NewWorkerQueue(historyPool, historyRepo)

	a, err := openApp(cfg, queue, historyRepo)
	if err != nil {
		return err
	}
	defer a.Close()

	poolCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	historyPool.Start(poolCtx)

	srv := &api.Server{ReviewService: a.svc, HistoryDB: database}
	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Liveness is reported while recovery runs; review routes wait for it.
	serveErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	if err := a.bootstrap(ctx); err != nil {
		httpServer.Close()
		historyPool.Stop()
		return err
	}

	snapshots := jobs.NewSnapshotScheduler(a.svc, cfg.SnapshotInterval)
	if err := snapshots.Start(); err != nil {
		httpServer.Close()
		historyPool.Stop()
		return err
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown requested, initiating graceful shutdown")
	case err, ok := <-serveErr:
		if ok {
			log.Error("HTTP server error: %v", err)
			runErr = err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	log.Debug("shutting down HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error: %v", err)
	}
	snapshots.Stop()

	log.Debug("taking final snapshot")
	if err := a.svc.Snapshot(shutdownCtx); err != nil {
		log.Error("final snapshot failed: %v", err)
		if runErr == nil {
			runErr = err
		}
	}

	log.Debug("stopping history pool")
	historyPool.Stop()

	log.Info("memcore server stopped")
	return runErr
}
