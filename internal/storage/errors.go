package storage

import "errors"

var (
	// ErrCorruptSnapshot is returned when a snapshot ends early or holds
	// impossible values. Records read before the problem remain loaded.
	ErrCorruptSnapshot = errors.New("storage: corrupt snapshot")

	// ErrUnsupportedSnapshot is returned for an unknown trailing section version.
	ErrUnsupportedSnapshot = errors.New("storage: unsupported snapshot section")

	ErrWALClosed = errors.New("storage: wal closed")
)
