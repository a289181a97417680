package cli

import (
	"context"
	"fmt"

	"github.com/vytor/memcore/internal/config"
	"github.com/vytor/memcore/internal/jobs"
	"github.com/vytor/memcore/internal/logger"
	"github.com/vytor/memcore/internal/repository"
	"github.com/vytor/memcore/internal/scheduler"
	"github.com/vytor/memcore/internal/seed"
	"github.com/vytor/memcore/internal/services"
	"github.com/vytor/memcore/internal/storage"
)

// app is the engine, its storage and the review service over them.
type app struct {
	engine *scheduler.Engine
	store  *storage.Storage
	svc    services.ReviewService
	seed   *seed.Document
}

func openApp(cfg config.Config, queue jobs.JobQueue, history repository.ReviewHistoryRepository) (*app, error) {
	doc, err := seed.Load(cfg.SeedPath)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(cfg.SnapshotPath, cfg.WALPath, storage.WithSync(cfg.SyncWAL))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	engine := scheduler.New()
	return &app{
		engine: engine,
		store:  store,
		svc:    services.NewReviewService(engine, store, queue, history),
		seed:   doc,
	}, nil
}

// bootstrap restores state. Without a snapshot the seed is the baseline:
// it is applied first, any logged reviews are replayed on top of it and a
// snapshot is taken so the seeded cards become durable.
func (a *app) bootstrap(ctx context.Context) error {
	log := logger.Default().WithPrefix("bootstrap")
	log.Debug("restoring state: wal=%s", a.store.WAL().Path())
	seeded := false
	if !a.store.HasSnapshot() {
		stats, err := a.seed.Apply(ctx, a.svc)
		if err != nil {
			return err
		}
		log.Info("no snapshot found, seeded users=%d topics=%d cards=%d", stats.Users, stats.Topics, stats.Cards)
		seeded = true
	}

	a.svc.Recover(ctx)

	if seeded {
		if err := a.svc.Snapshot(ctx); err != nil {
			return fmt.Errorf("initial snapshot: %w", err)
		}
	}
	return nil
}

func (a *app) Close() error {
	return a.store.Close()
}
