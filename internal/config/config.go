// Package config reads process configuration: API keys, per-source cache
// TTL policy, rate limits, and server settings. The environment wins over
// the optional YAML file and the optional encrypted secrets file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Source identifies one of the upstream data providers. The value is the
// token used in CACHE_TTL_<SOURCE>_MS environment variables.
type Source string

// The eight supported sources.
const (
	SourceAlphaVantage Source = "ALPHA_VANTAGE"
	SourceBLS          Source = "BLS"
	SourceCensus       Source = "CENSUS"
	SourceFRED         Source = "FRED"
	SourceNasdaq       Source = "NASDAQ"
	SourceIMF          Source = "IMF"
	SourceOECD         Source = "OECD"
	SourceWorldBank    Source = "WORLD_BANK"
)

// Sources lists every source in a stable order.
var Sources = []Source{
	SourceAlphaVantage, SourceBLS, SourceCensus, SourceFRED,
	SourceNasdaq, SourceIMF, SourceOECD, SourceWorldBank,
}

// keyEnv maps a source to the environment variable carrying its API key.
// Sources absent from this map accept anonymous access.
var keyEnv = map[Source]string{
	SourceAlphaVantage: "ALPHA_VANTAGE_API_KEY",
	SourceBLS:          "BLS_API_KEY",
	SourceCensus:       "CENSUS_API_KEY",
	SourceFRED:         "FRED_API_KEY",
	SourceNasdaq:       "NASDAQ_DATA_LINK_API_KEY",
}

// KeyEnvVar returns the environment variable name for a source's API key,
// or "" when the source needs none.
func KeyEnvVar(s Source) string { return keyEnv[s] }

// TTLSet holds the three per-source expiry durations applied by response
// classification.
type TTLSet struct {
	Success   time.Duration
	NoData    time.Duration
	RateLimit time.Duration
}

// Built-in TTL defaults.
const (
	DefaultSuccessTTL   = 24 * time.Hour
	DefaultNoDataTTL    = time.Hour
	DefaultRateLimitTTL = 5 * time.Minute
)

// Config is the process configuration, immutable after Load.
type Config struct {
	Host     string
	Port     int
	Env      string // "development" or "production"
	LogLevel slog.Level

	RateLimitRequests int
	RateLimitWindow   time.Duration

	APIKeys map[Source]string
	TTLs    map[Source]TTLSet

	CachePath       string // sqlite snapshot path; "" disables persistence
	CacheMaxEntries int

	// Business-event thresholds for notifications.
	TAMAlertThreshold  float64
	ForecastCAGRAlert  float64
	LowConfidenceFloor float64

	ConfigFile  string
	SecretsFile string
	AgeKeyPath  string
}

// Load builds the configuration from the environment, merging in the
// optional YAML file and encrypted secrets file when configured.
func Load() (*Config, error) {
	cfg := &Config{
		Host:               envString("HOST", "127.0.0.1"),
		Port:               envInt("PORT", 3000),
		Env:                envString("MARKETSCOPE_ENV", "development"),
		LogLevel:           parseLogLevel(envString("LOG_LEVEL", "info")),
		RateLimitRequests:  envInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:    envMillis("RATE_LIMIT_WINDOW", time.Minute),
		CachePath:          envString("MARKETSCOPE_CACHE_DB", ""),
		CacheMaxEntries:    envInt("CACHE_MAX_KEYS", 0),
		TAMAlertThreshold:  envFloat("NOTIFY_TAM_THRESHOLD", 1e12),
		ForecastCAGRAlert:  envFloat("NOTIFY_CAGR_THRESHOLD", 0.5),
		LowConfidenceFloor: envFloat("NOTIFY_LOW_CONFIDENCE", 0.3),
		ConfigFile:         envString("MARKETSCOPE_CONFIG", ""),
		SecretsFile:        envString("MARKETSCOPE_SECRETS_FILE", ""),
		AgeKeyPath:         envString("MARKETSCOPE_AGE_KEY", ""),
		APIKeys:            make(map[Source]string),
		TTLs:               make(map[Source]TTLSet),
	}

	// YAML file first so that environment values override it.
	if cfg.ConfigFile != "" {
		if _, err := os.Stat(cfg.ConfigFile); err == nil {
			fileCfg, err := LoadFile(cfg.ConfigFile)
			if err != nil {
				return nil, err
			}
			applyFile(cfg, fileCfg)
		}
	}

	// Encrypted secrets file supplies keys the environment does not.
	if cfg.SecretsFile != "" && cfg.AgeKeyPath != "" {
		secrets, err := LoadSecretsFile(cfg.SecretsFile, cfg.AgeKeyPath)
		if err != nil {
			return nil, fmt.Errorf("load secrets file: %w", err)
		}
		for _, s := range Sources {
			env := keyEnv[s]
			if env == "" {
				continue
			}
			if v, ok := secrets[env]; ok && cfg.APIKeys[s] == "" {
				cfg.APIKeys[s] = v
			}
		}
	}

	// Environment keys win.
	for s, env := range keyEnv {
		if v := os.Getenv(env); v != "" {
			cfg.APIKeys[s] = v
		}
	}

	resolveTTLs(cfg)
	return cfg, nil
}

// resolveTTLs applies the documented precedence to every class: the
// per-source variable, then CACHE_TTL_DEFAULT_MS, then the built-in
// class default.
func resolveTTLs(cfg *Config) {
	defSuccess := DefaultSuccessTTL
	defNoData := DefaultNoDataTTL
	defRateLimit := DefaultRateLimitTTL
	if d := envMillis("CACHE_TTL_DEFAULT_MS", 0); d > 0 {
		defSuccess, defNoData, defRateLimit = d, d, d
	}

	for _, s := range Sources {
		set, seeded := cfg.TTLs[s] // may hold YAML-file values
		if !seeded {
			set = TTLSet{}
		}
		if d := envMillis("CACHE_TTL_"+string(s)+"_MS", 0); d > 0 {
			set.Success = d
		} else if set.Success <= 0 {
			set.Success = defSuccess
		}
		if d := envMillis("CACHE_TTL_"+string(s)+"_NODATA_MS", 0); d > 0 {
			set.NoData = d
		} else if set.NoData <= 0 {
			set.NoData = defNoData
		}
		if d := envMillis("CACHE_TTL_"+string(s)+"_RATELIMIT_MS", 0); d > 0 {
			set.RateLimit = d
		} else if set.RateLimit <= 0 {
			set.RateLimit = defRateLimit
		}
		cfg.TTLs[s] = set
	}
}

// Key returns the API key configured for a source, or "".
func (c *Config) Key(s Source) string { return c.APIKeys[s] }

// HasKey reports whether an API key is configured for a source.
func (c *Config) HasKey(s Source) bool { return c.APIKeys[s] != "" }

// TTL returns the expiry policy for a source.
func (c *Config) TTL(s Source) TTLSet {
	if set, ok := c.TTLs[s]; ok {
		return set
	}
	return TTLSet{
		Success:   DefaultSuccessTTL,
		NoData:    DefaultNoDataTTL,
		RateLimit: DefaultRateLimitTTL,
	}
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("invalid integer in environment", "var", key, "value", v)
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("invalid number in environment", "var", key, "value", v)
		return def
	}
	return f
}

// envMillis reads a duration expressed as integer milliseconds.
func envMillis(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		slog.Warn("invalid milliseconds in environment", "var", key, "value", v)
		return def
	}
	return time.Duration(ms) * time.Millisecond
}
