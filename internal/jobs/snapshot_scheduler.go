package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/vytor/memcore/internal/logger"
)

// Snapshotter persists a full snapshot of the scheduler state.
type Snapshotter interface {
	Snapshot(ctx context.Context) error
}

// SnapshotScheduler takes snapshots on a fixed interval.
type SnapshotScheduler struct {
	scheduler *gocron.Scheduler
	interval  time.Duration
	target    Snapshotter
	log       *logger.Logger
}

func NewSnapshotScheduler(target Snapshotter, interval time.Duration) *SnapshotScheduler {
	return &SnapshotScheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		interval:  interval,
		target:    target,
		log:       logger.Default().WithPrefix("snapshot-scheduler"),
	}
}

// Start schedules the first snapshot one interval from now. A zero
// interval disables periodic snapshots.
func (s *SnapshotScheduler) Start() error {
	if s.interval <= 0 {
		s.log.Info("periodic snapshots disabled")
		return nil
	}
	_, err := s.scheduler.Every(s.interval).SingletonMode().WaitForSchedule().Do(s.run)
	if err != nil {
		return fmt.Errorf("schedule snapshots: %w", err)
	}
	s.scheduler.StartAsync()
	s.log.Info("taking snapshots every %s", s.interval)
	return nil
}

// Stop waits for a running snapshot to finish.
func (s *SnapshotScheduler) Stop() {
	if s.scheduler.IsRunning() {
		s.scheduler.Stop()
	}
}

func (s *SnapshotScheduler) run() {
	start := time.Now()
	if err := s.target.Snapshot(context.Background()); err != nil {
		s.log.Error("periodic snapshot failed: %v", err)
		return
	}
	s.log.Debug("periodic snapshot took %v", time.Since(start))
}
