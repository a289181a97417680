package storage

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/vytor/memcore/internal/logger"
	"github.com/vytor/memcore/internal/models"
)

// Reviewer receives replayed reviews in log order.
type Reviewer interface {
	ReviewComplete(uid models.UserID, cid models.CardID, rating int) (models.Card, bool)
}

// ReplayResult describes one pass over the log.
type ReplayResult struct {
	Applied    int   // valid records handed to the Reviewer
	TornTail   bool  // replay stopped at a short or corrupt record
	ValidBytes int64 // length of the valid prefix
}

// WAL is an append-only log of review records. Appends are serialized and
// each record is flushed to disk before Append returns.
type WAL struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	sync   bool
	closed bool
	log    *logger.Logger
}

type WALOption func(*WAL)

// WithSync controls whether Append fsyncs after every record. Defaults to true.
func WithSync(enabled bool) WALOption {
	return func(w *WAL) { w.sync = enabled }
}

// OpenWAL opens or creates the log at path.
func OpenWAL(path string, opts ...WALOption) (*WAL, error) {
	log := logger.Default().WithPrefix("wal")
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create wal dir: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.Error("failed to open wal %s: %v", path, err)
		return nil, fmt.Errorf("open wal: %w", err)
	}

	w := &WAL{path: path, file: file, sync: true, log: log}
	for _, opt := range opts {
		opt(w)
	}
	log.Debug("wal opened: path=%s sync=%t", path, w.sync)
	return w, nil
}

func (w *WAL) Path() string { return w.path }

// Append writes one record for a completed review.
func (w *WAL) Append(uid models.UserID, cid models.CardID, rating, timestamp int32) error {
	var buf [RecordSize]byte
	Record{UserID: uid, CardID: cid, Rating: rating, Timestamp: timestamp}.encode(buf[:])

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWALClosed
	}
	if _, err := w.file.Write(buf[:]); err != nil {
		return fmt.Errorf("append wal record: %w", err)
	}
	if w.sync {
		if err := w.file.Sync(); err != nil {
			return fmt.Errorf("sync wal: %w", err)
		}
	}
	return nil
}

// Replay applies every valid record to r in file order. A torn tail is
// cut off the file so later appends follow the last valid record.
func (w *WAL) Replay(r Reviewer) (ReplayResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ReplayResult{}, ErrWALClosed
	}

	res, err := scanFile(w.path, func(rec Record) {
		r.ReviewComplete(rec.UserID, rec.CardID, int(rec.Rating))
	})
	if err != nil {
		return res, err
	}

	if res.TornTail {
		w.log.Warn("torn wal tail after %d records, truncating to %d bytes", res.Applied, res.ValidBytes)
		if err := w.file.Truncate(res.ValidBytes); err != nil {
			return res, fmt.Errorf("truncate torn wal tail: %w", err)
		}
	}
	w.log.Info("replayed %d wal records", res.Applied)
	return res, nil
}

func (w *WAL) truncateLocked() error {
	if w.closed {
		return ErrWALClosed
	}
	if err := w.file.Truncate(0); err != nil {
		return fmt.Errorf("truncate wal: %w", err)
	}
	if w.sync {
		if err := w.file.Sync(); err != nil {
			return fmt.Errorf("sync wal: %w", err)
		}
	}
	return nil
}

// checkpoint runs fn and then empties the log while holding the append
// lock, so no record can land between the two.
func (w *WAL) checkpoint(fn func() error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWALClosed
	}
	if err := fn(); err != nil {
		return err
	}
	return w.truncateLocked()
}

func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.file.Close()
}

// RecordStatus is a decoded record and whether its checksum validated.
type RecordStatus struct {
	Record
	Offset int64
	Valid  bool
}

// ReadRecords decodes every complete record in the log at path, including
// records after the first checksum failure, for inspection. A missing file
// yields no records. trailing reports leftover bytes that do not form a
// whole record.
func ReadRecords(path string) (records []RecordStatus, trailing int, err error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("open wal: %w", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	var buf [RecordSize]byte
	var offset int64
	for {
		n, err := io.ReadFull(br, buf[:])
		if errors.Is(err, io.EOF) {
			return records, 0, nil
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return records, n, nil
		}
		if err != nil {
			return records, 0, fmt.Errorf("read wal: %w", err)
		}
		rec, ok := decodeRecord(buf[:])
		records = append(records, RecordStatus{Record: rec, Offset: offset, Valid: ok})
		offset += RecordSize
	}
}

// scanFile calls apply for each valid record until the end of the file or
// the first invalid record.
func scanFile(path string, apply func(Record)) (ReplayResult, error) {
	var res ReplayResult
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("open wal for replay: %w", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	var buf [RecordSize]byte
	for {
		_, err := io.ReadFull(br, buf[:])
		if errors.Is(err, io.EOF) {
			return res, nil
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			res.TornTail = true
			return res, nil
		}
		if err != nil {
			return res, fmt.Errorf("read wal: %w", err)
		}
		rec, ok := decodeRecord(buf[:])
		if !ok {
			res.TornTail = true
			return res, nil
		}
		apply(rec)
		res.Applied++
		res.ValidBytes += RecordSize
	}
}
