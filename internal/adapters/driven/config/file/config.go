// Package file loads extractd configuration from a TOML file with
// environment overrides.
//
// Defaults are usable without any file: a local extractor on the
// standard Tika port, four workers, and SQLite storage under
// ~/.extractd. A .env file in the working directory is honoured for
// the environment overrides.
package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Environment override variables.
const (
	envListen       = "EXTRACTD_LISTEN"
	envExtractorURL = "EXTRACTD_EXTRACTOR_URL"
	envDataDir      = "EXTRACTD_DATA_DIR"
	envWatchDir     = "EXTRACTD_WATCH_DIR"
	envWorkers      = "EXTRACTD_WORKERS"
)

// Config is the full extractd configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Extractor ExtractorConfig `toml:"extractor"`
	Workers   WorkersConfig   `toml:"workers"`
	Tasks     TasksConfig     `toml:"tasks"`
	Storage   StorageConfig   `toml:"storage"`
	Ingest    IngestConfig    `toml:"ingest"`
	Search    SearchConfig    `toml:"search"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	// Listen is the address the HTTP API binds to.
	Listen string `toml:"listen"`
}

// ExtractorConfig configures the extraction service client.
type ExtractorConfig struct {
	// URL is the extraction service root.
	URL string `toml:"url"`

	// TimeoutSeconds bounds one extraction call.
	TimeoutSeconds int `toml:"timeout_seconds"`

	// FailureThreshold is the breaker's consecutive-failure limit.
	FailureThreshold int `toml:"failure_threshold"`

	// CooldownSeconds is the breaker's initial cool-down.
	CooldownSeconds int `toml:"cooldown_seconds"`

	// RequestsPerSecond and Burst bound the client-side request rate.
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
}

// WorkersConfig configures the worker pool.
type WorkersConfig struct {
	// Count is the fixed pool size.
	Count int `toml:"count"`

	// PollIntervalSeconds is the idle back-off between claim attempts.
	PollIntervalSeconds int `toml:"poll_interval_seconds"`
}

// TasksConfig configures the task state machine.
type TasksConfig struct {
	// MaxRetries is the retry ceiling for new tasks.
	MaxRetries int `toml:"max_retries"`
}

// StorageConfig configures persistence.
type StorageConfig struct {
	// DataDir holds the SQLite database. Empty selects ~/.extractd/data.
	DataDir string `toml:"data_dir"`

	// InMemory disables SQLite and keeps all state in memory.
	InMemory bool `toml:"in_memory"`
}

// IngestConfig configures the uploads directory watcher.
type IngestConfig struct {
	// WatchDir is the directory watched for new uploads. Empty
	// disables the watcher.
	WatchDir string `toml:"watch_dir"`
}

// SearchConfig configures the query engine.
type SearchConfig struct {
	// Stopwords overrides the built-in stopword set. Nil keeps the
	// defaults; an explicit empty list disables filtering.
	Stopwords []string `toml:"stopwords"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server:    ServerConfig{Listen: ":8080"},
		Extractor: ExtractorConfig{URL: "http://localhost:9998", TimeoutSeconds: 30, FailureThreshold: 5, CooldownSeconds: 30},
		Workers:   WorkersConfig{Count: 4, PollIntervalSeconds: 1},
		Tasks:     TasksConfig{MaxRetries: 3},
	}
}

// Load reads the configuration file at path, falling back to
// ~/.extractd/config.toml when path is empty, then applies environment
// overrides. A missing file is not an error; defaults apply.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, ".extractd", "config.toml")
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parsing %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return cfg, fmt.Errorf("reading %s: %w", path, err)
		}
	}

	// Best-effort .env load before reading overrides.
	_ = godotenv.Load()
	applyEnv(&cfg)

	return cfg, nil
}

// applyEnv overlays environment variables onto the configuration.
func applyEnv(cfg *Config) {
	if v := os.Getenv(envListen); v != "" {
		cfg.Server.Listen = v
	}
	if v := os.Getenv(envExtractorURL); v != "" {
		cfg.Extractor.URL = v
	}
	if v := os.Getenv(envDataDir); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv(envWatchDir); v != "" {
		cfg.Ingest.WatchDir = v
	}
	if v := os.Getenv(envWorkers); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Workers.Count = n
		}
	}
}

// ExtractorTimeout returns the configured extractor timeout.
func (c ExtractorConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Cooldown returns the configured breaker cool-down.
func (c ExtractorConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

// PollInterval returns the configured worker poll interval.
func (c WorkersConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}
