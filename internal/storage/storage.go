package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vytor/memcore/internal/logger"
	"github.com/vytor/memcore/internal/models"
)

// Storage coordinates the snapshot file and the write-ahead log.
type Storage struct {
	snapshotPath string
	wal          *WAL
	log          *logger.Logger
}

func New(snapshotPath string, wal *WAL) *Storage {
	return &Storage{
		snapshotPath: snapshotPath,
		wal:          wal,
		log:          logger.Default().WithPrefix("snapshot"),
	}
}

// Open opens the log at walPath and returns a Storage for both files.
func Open(snapshotPath, walPath string, opts ...WALOption) (*Storage, error) {
	wal, err := OpenWAL(walPath, opts...)
	if err != nil {
		return nil, err
	}
	return New(snapshotPath, wal), nil
}

func (s *Storage) WAL() *WAL { return s.wal }

// HasSnapshot reports whether a snapshot file exists.
func (s *Storage) HasSnapshot() bool {
	_, err := os.Stat(s.snapshotPath)
	return err == nil
}

// SaveSnapshot replaces the snapshot with the state from src and then
// empties the log. Appends are blocked for the duration, so every review
// is either in the snapshot or in the log afterwards.
func (s *Storage) SaveSnapshot(src CardSource) (SnapshotStats, error) {
	var stats SnapshotStats
	err := s.wal.checkpoint(func() error {
		var err error
		stats, err = s.writeSnapshotFile(src.Users())
		return err
	})
	if err != nil {
		s.log.Error("failed to save snapshot: %v", err)
		return stats, err
	}
	s.log.Info("snapshot saved: users=%d cards=%d topics=%d", stats.Users, stats.Cards, stats.Topics)
	return stats, nil
}

func (s *Storage) writeSnapshotFile(users []models.UserCards) (SnapshotStats, error) {
	dir := filepath.Dir(s.snapshotPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return SnapshotStats{}, fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.snapshotPath)+".tmp-*")
	if err != nil {
		return SnapshotStats{}, fmt.Errorf("create snapshot temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	stats, err := WriteSnapshot(tmp, users)
	if err != nil {
		tmp.Close()
		return stats, fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return stats, fmt.Errorf("sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return stats, fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.snapshotPath); err != nil {
		return stats, fmt.Errorf("install snapshot: %w", err)
	}
	return stats, nil
}

// LoadSnapshot reads the snapshot into load. A missing snapshot is the
// empty state.
func (s *Storage) LoadSnapshot(load CardLoader) (SnapshotStats, error) {
	f, err := os.Open(s.snapshotPath)
	if errors.Is(err, os.ErrNotExist) {
		s.log.Info("no snapshot at %s, starting empty", s.snapshotPath)
		return SnapshotStats{}, nil
	}
	if err != nil {
		return SnapshotStats{}, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	stats, err := ReadSnapshot(f, load)
	if err != nil {
		s.log.Warn("snapshot partially loaded: cards=%d: %v", stats.Cards, err)
		return stats, err
	}
	s.log.Info("snapshot loaded: users=%d cards=%d topics=%d", stats.Users, stats.Cards, stats.Topics)
	return stats, nil
}

// AppendLog records one completed review.
func (s *Storage) AppendLog(uid models.UserID, cid models.CardID, rating, timestamp int32) error {
	return s.wal.Append(uid, cid, rating, timestamp)
}

// ReplayLog re-applies every review logged since the last snapshot.
func (s *Storage) ReplayLog(r Reviewer) (ReplayResult, error) {
	return s.wal.Replay(r)
}

func (s *Storage) Close() error {
	return s.wal.Close()
}
