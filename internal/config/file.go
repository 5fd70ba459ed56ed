package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the optional marketscope.yaml structure. Everything in it
// can also be expressed through the environment, which takes precedence.
type FileConfig struct {
	CachePath       string                     `yaml:"cache_path,omitempty"`
	CacheMaxEntries int                        `yaml:"cache_max_keys,omitempty"`
	Sources         map[string]sourceFileEntry `yaml:"sources,omitempty"`
}

type sourceFileEntry struct {
	TTLMillis          int64 `yaml:"ttl_ms,omitempty"`
	NoDataTTLMillis    int64 `yaml:"nodata_ttl_ms,omitempty"`
	RateLimitTTLMillis int64 `yaml:"ratelimit_ttl_ms,omitempty"`
}

// LoadFile reads and parses a YAML config file.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return ParseFile(data)
}

// ParseFile parses YAML config data.
func ParseFile(data []byte) (*FileConfig, error) {
	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	for name := range cfg.Sources {
		if !knownSource(Source(name)) {
			return nil, fmt.Errorf("unknown source %q in config file", name)
		}
	}
	return &cfg, nil
}

func knownSource(s Source) bool {
	for _, k := range Sources {
		if k == s {
			return true
		}
	}
	return false
}

// applyFile seeds cfg with file values; resolveTTLs later lets the
// environment override them.
func applyFile(cfg *Config, f *FileConfig) {
	if cfg.CachePath == "" {
		cfg.CachePath = f.CachePath
	}
	if cfg.CacheMaxEntries == 0 {
		cfg.CacheMaxEntries = f.CacheMaxEntries
	}
	for name, e := range f.Sources {
		set := cfg.TTLs[Source(name)]
		if e.TTLMillis > 0 {
			set.Success = time.Duration(e.TTLMillis) * time.Millisecond
		}
		if e.NoDataTTLMillis > 0 {
			set.NoData = time.Duration(e.NoDataTTLMillis) * time.Millisecond
		}
		if e.RateLimitTTLMillis > 0 {
			set.RateLimit = time.Duration(e.RateLimitTTLMillis) * time.Millisecond
		}
		cfg.TTLs[Source(name)] = set
	}
}
