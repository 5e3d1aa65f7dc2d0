package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration shared by the API server
// and the extraction worker.
type Config struct {
	Environment string        `toml:"environment"` // "development" or "production"
	Server      ServerConfig  `toml:"server"`
	Storage     StorageConfig `toml:"storage"`
	Engine      EngineConfig  `toml:"engine"`
	Fetch       FetchConfig   `toml:"fetch"`
	Stream      StreamConfig  `toml:"stream"`
	Reaper      ReaperConfig  `toml:"reaper"`
	Logging     LoggingConfig `toml:"logging"`
}

type ServerConfig struct {
	Port            int    `toml:"port"`
	Host            string `toml:"host"`
	CreateRateEvery string `toml:"create_rate_every"` // e.g. "10s" - min interval between workflow submissions
	CreateRateBurst int    `toml:"create_rate_burst"` // burst allowance on top of the rate
}

type StorageConfig struct {
	SQLite SQLiteConfig `toml:"sqlite"`
	Cache  CacheConfig  `toml:"cache"`
}

// SQLiteConfig configures the shared workflow database. Both processes open
// the same file, so WAL mode stays on.
type SQLiteConfig struct {
	Path          string `toml:"path"`
	CacheSizeMB   int    `toml:"cache_size_mb"`
	BusyTimeoutMS int    `toml:"busy_timeout_ms"`
	WALMode       bool   `toml:"wal_mode"`
}

// CacheConfig configures the worker-local downloaded document cache.
type CacheConfig struct {
	Path string `toml:"path"`
	TTL  string `toml:"ttl"` // e.g. "30m" - cached downloads older than this are refetched
}

// EngineConfig configures the durable execution worker pool.
type EngineConfig struct {
	PollInterval   string `toml:"poll_interval"`   // e.g. "1s" - how often workers poll for executions
	Concurrency    int    `toml:"concurrency"`     // number of concurrent workers
	MaxAttempts    int    `toml:"max_attempts"`    // retry budget per execution
	Backoff        string `toml:"backoff"`         // e.g. "5s" - delay before a failed attempt becomes claimable again
	AttemptTimeout string `toml:"attempt_timeout"` // e.g. "2m" - per-attempt deadline
	LockTimeout    string `toml:"lock_timeout"`    // e.g. "5m" - claim lease before an execution is considered abandoned
}

type FetchConfig struct {
	Timeout     string `toml:"timeout"`       // HTTP request timeout
	MaxBodySize int    `toml:"max_body_size"` // maximum download size in bytes
}

type StreamConfig struct {
	PollInterval string `toml:"poll_interval"` // status stream poll interval
}

type ReaperConfig struct {
	Enabled         bool   `toml:"enabled"`
	Schedule        string `toml:"schedule"`         // cron spec, e.g. "@every 1m"
	StalenessWindow string `toml:"staleness_window"` // PROCESSING workflows untouched longer than this become ERROR
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Format string   `toml:"format"` // "json" or "text"
	Output []string `toml:"output"` // "stdout", "file"
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port:            8080,
			Host:            "localhost",
			CreateRateEvery: "10s",
			CreateRateBurst: 3,
		},
		Storage: StorageConfig{
			SQLite: SQLiteConfig{
				Path:          "./data/airdec.db",
				CacheSizeMB:   64,
				BusyTimeoutMS: 5000,
				WALMode:       true,
			},
			Cache: CacheConfig{
				Path: "./data/cache",
				TTL:  "30m",
			},
		},
		Engine: EngineConfig{
			PollInterval:   "1s",
			Concurrency:    4,
			MaxAttempts:    3,
			Backoff:        "5s",
			AttemptTimeout: "2m",
			LockTimeout:    "5m",
		},
		Fetch: FetchConfig{
			Timeout:     "30s",
			MaxBodySize: 50 * 1024 * 1024, // 50MB
		},
		Stream: StreamConfig{
			PollInterval: "1s",
		},
		Reaper: ReaperConfig{
			Enabled:         true,
			Schedule:        "@every 1m",
			StalenessWindow: "30m",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout", "file"},
		},
	}
}

// LoadFromFile loads configuration with priority: defaults -> file -> env -> CLI flags.
func LoadFromFile(path string) (*Config, error) {
	config := NewDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("AIRDEC_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("AIRDEC_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("AIRDEC_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if every := os.Getenv("AIRDEC_SERVER_CREATE_RATE_EVERY"); every != "" {
		if _, err := time.ParseDuration(every); err == nil {
			config.Server.CreateRateEvery = every
		}
	}
	if burst := os.Getenv("AIRDEC_SERVER_CREATE_RATE_BURST"); burst != "" {
		if b, err := strconv.Atoi(burst); err == nil {
			config.Server.CreateRateBurst = b
		}
	}

	// Storage configuration
	if path := os.Getenv("AIRDEC_SQLITE_PATH"); path != "" {
		config.Storage.SQLite.Path = path
	}
	if path := os.Getenv("AIRDEC_CACHE_PATH"); path != "" {
		config.Storage.Cache.Path = path
	}
	if ttl := os.Getenv("AIRDEC_CACHE_TTL"); ttl != "" {
		if _, err := time.ParseDuration(ttl); err == nil {
			config.Storage.Cache.TTL = ttl
		}
	}

	// Engine configuration
	if pollInterval := os.Getenv("AIRDEC_ENGINE_POLL_INTERVAL"); pollInterval != "" {
		config.Engine.PollInterval = pollInterval
	}
	if concurrency := os.Getenv("AIRDEC_ENGINE_CONCURRENCY"); concurrency != "" {
		if c, err := strconv.Atoi(concurrency); err == nil {
			config.Engine.Concurrency = c
		}
	}
	if maxAttempts := os.Getenv("AIRDEC_ENGINE_MAX_ATTEMPTS"); maxAttempts != "" {
		if ma, err := strconv.Atoi(maxAttempts); err == nil {
			config.Engine.MaxAttempts = ma
		}
	}
	if backoff := os.Getenv("AIRDEC_ENGINE_BACKOFF"); backoff != "" {
		config.Engine.Backoff = backoff
	}
	if attemptTimeout := os.Getenv("AIRDEC_ENGINE_ATTEMPT_TIMEOUT"); attemptTimeout != "" {
		config.Engine.AttemptTimeout = attemptTimeout
	}
	if lockTimeout := os.Getenv("AIRDEC_ENGINE_LOCK_TIMEOUT"); lockTimeout != "" {
		config.Engine.LockTimeout = lockTimeout
	}

	// Fetch configuration
	if timeout := os.Getenv("AIRDEC_FETCH_TIMEOUT"); timeout != "" {
		config.Fetch.Timeout = timeout
	}
	if maxBodySize := os.Getenv("AIRDEC_FETCH_MAX_BODY_SIZE"); maxBodySize != "" {
		if mbs, err := strconv.Atoi(maxBodySize); err == nil {
			config.Fetch.MaxBodySize = mbs
		}
	}

	// Stream configuration
	if pollInterval := os.Getenv("AIRDEC_STREAM_POLL_INTERVAL"); pollInterval != "" {
		config.Stream.PollInterval = pollInterval
	}

	// Reaper configuration
	if enabled := os.Getenv("AIRDEC_REAPER_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Reaper.Enabled = e
		}
	}
	if schedule := os.Getenv("AIRDEC_REAPER_SCHEDULE"); schedule != "" {
		config.Reaper.Schedule = schedule
	}
	if window := os.Getenv("AIRDEC_REAPER_STALENESS_WINDOW"); window != "" {
		config.Reaper.StalenessWindow = window
	}

	// Logging configuration
	if level := os.Getenv("AIRDEC_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("AIRDEC_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if output := os.Getenv("AIRDEC_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range splitString(output, ",") {
			trimmed := trimSpace(o)
			if trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	// Command-line flags have highest priority
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Duration parses a duration config value, falling back when empty or invalid.
func Duration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := trimSpace(c.Environment)
	return env == "production" || env == "prod"
}

// Helper functions for string manipulation
func splitString(s, sep string) []string {
	result := []string{}
	start := 0
	for i := 0; i < len(s); i++ {
		if i+len(sep) <= len(s) && s[i:i+len(sep)] == sep {
			result = append(result, s[start:i])
			start = i + len(sep)
			i = start - 1
		}
	}
	result = append(result, s[start:])
	return result
}

func trimSpace(s string) string {
	start := 0
	end := len(s)
	for start < end && (s[start] == ' ' || s[start] == '\t' || s[start] == '\n' || s[start] == '\r') {
		start++
	}
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t' || s[end-1] == '\n' || s[end-1] == '\r') {
		end--
	}
	return s[start:end]
}
