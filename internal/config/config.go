package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/vytor/memcore/internal/logger"
)

type Config struct {
	Addr               string
	DataDir            string
	SnapshotPath       string
	WALPath            string
	DBPath             string
	LogLevel           string
	SnapshotInterval   time.Duration
	HistoryWorkerCount int
	HistoryQueueSize   int
	SeedPath           string
	SimulationDays     int
	SyncWAL            bool
}

// Load reads configuration from a .env file (if present) and environment variables,
// applying defaults when values are missing or invalid. Snapshot and log
// paths default to files inside DATA_DIR.
func Load() Config {
	// Ignore error so the app still starts when .env is absent in production.
	_ = godotenv.Load()

	dataDir := envOr("DATA_DIR", "data")
	return Config{
		Addr:               envOr("ADDR", ":8080"),
		DataDir:            dataDir,
		SnapshotPath:       envOr("SNAPSHOT_PATH", filepath.Join(dataDir, "snapshot.bin")),
		WALPath:            envOr("WAL_PATH", filepath.Join(dataDir, "review.log")),
		DBPath:             envOr("DB_PATH", "file:"+filepath.Join(dataDir, "history.db")),
		LogLevel:           envOr("LOG_LEVEL", "INFO"),
		SnapshotInterval:   envDurationOr("SNAPSHOT_INTERVAL", 5*time.Minute),
		HistoryWorkerCount: envIntOr("HISTORY_WORKER_COUNT", 2),
		HistoryQueueSize:   envIntOr("HISTORY_QUEUE_SIZE", 64),
		SeedPath:           envOr("SEED_PATH", ""),
		SimulationDays:     envIntOr("SIMULATION_DAYS", 20),
		SyncWAL:            envBoolOr("SYNC_WAL", true),
	}
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var problems []string
	if c.Addr == "" {
		problems = append(problems, "ADDR cannot be empty")
	}
	if c.SnapshotPath == "" {
		problems = append(problems, "SNAPSHOT_PATH cannot be empty")
	}
	if c.WALPath == "" {
		problems = append(problems, "WAL_PATH cannot be empty")
	}
	if c.SnapshotPath != "" && c.SnapshotPath == c.WALPath {
		problems = append(problems, "SNAPSHOT_PATH and WAL_PATH must differ")
	}
	if c.DBPath == "" {
		problems = append(problems, "DB_PATH cannot be empty")
	}
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		problems = append(problems, fmt.Sprintf("LOG_LEVEL must be DEBUG, INFO, WARN or ERROR, got %q", c.LogLevel))
	}
	if c.SnapshotInterval < 0 {
		problems = append(problems, fmt.Sprintf("SNAPSHOT_INTERVAL cannot be negative, got %s", c.SnapshotInterval))
	}
	if c.HistoryWorkerCount < 1 {
		problems = append(problems, fmt.Sprintf("HISTORY_WORKER_COUNT must be at least 1, got %d", c.HistoryWorkerCount))
	}
	if c.HistoryQueueSize < 1 {
		problems = append(problems, fmt.Sprintf("HISTORY_QUEUE_SIZE must be at least 1, got %d", c.HistoryQueueSize))
	}
	if c.SimulationDays < 0 {
		problems = append(problems, fmt.Sprintf("SIMULATION_DAYS cannot be negative, got %d", c.SimulationDays))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
		logger.Warn("invalid value for %s=%q, using default %d", key, v, def)
	}
	return def
}

// envDurationOr accepts Go durations ("90s", "5m") or a bare number of seconds.
func envDurationOr(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	logger.Warn("invalid value for %s=%q, using default %s", key, v, def)
	return def
}

func envBoolOr(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		logger.Warn("invalid value for %s=%q, using default %t", key, v, def)
	}
	return def
}
