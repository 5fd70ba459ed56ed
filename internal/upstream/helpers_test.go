package upstream

import (
	"time"

	"github.com/marketscope/marketscope/internal/cache"
	"github.com/marketscope/marketscope/internal/config"
)

// testConfig builds a config with the given API keys and hour-long TTLs
// for every class, so cached entries never expire mid-test unless a
// test overrides them.
func testConfig(keys map[config.Source]string) *config.Config {
	cfg := &config.Config{
		APIKeys: map[config.Source]string{},
		TTLs:    map[config.Source]config.TTLSet{},
	}
	for s, k := range keys {
		cfg.APIKeys[s] = k
	}
	for _, s := range config.Sources {
		cfg.TTLs[s] = config.TTLSet{
			Success:   time.Hour,
			NoData:    time.Hour,
			RateLimit: time.Hour,
		}
	}
	return cfg
}

func testConfigTTL(keys map[config.Source]string, s config.Source, set config.TTLSet) *config.Config {
	cfg := testConfig(keys)
	cfg.TTLs[s] = set
	return cfg
}

func newTestCache() *cache.Cache {
	return cache.New()
}
