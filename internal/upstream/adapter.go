package upstream

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/marketscope/marketscope/internal/cache"
	"github.com/marketscope/marketscope/internal/config"
)

// Adapter is the capability set every source adapter implements.
// Adapters are stateless singletons beyond the cache they share.
type Adapter interface {
	// Name is the lowercase source identifier used in cache keys and
	// search results ("fred", "world_bank", ...).
	Name() string
	Source() config.Source

	// Available reports whether the adapter can be used: true when its
	// required secret is present or the source permits anonymous access.
	Available() bool
	// MissingKeys names the environment variables that would have to be
	// set for full operation.
	MissingKeys() []string
	// Warnings lists soft constraints, e.g. anonymous access caps.
	Warnings() []string

	// DataFreshness returns when the cached entry for key was stored.
	DataFreshness(key string) (time.Time, bool)
}

// base carries the pieces every adapter shares.
type base struct {
	name   string
	source config.Source
	cache  *cache.Cache
	ttl    config.TTLSet
	httpc  *http.Client
	apiKey string

	// Alpha Vantage caches timeouts with the success TTL; everyone else
	// uses the no-data TTL for transport failures.
	timeoutUsesSuccessTTL bool
}

func (b *base) Name() string          { return b.name }
func (b *base) Source() config.Source { return b.source }

func (b *base) DataFreshness(key string) (time.Time, bool) {
	e, ok := b.cache.GetEntry(key)
	if !ok {
		return time.Time{}, false
	}
	return e.StoredAt, true
}

// fetch is the shared fetch-classify-cache pipeline. fn performs the
// HTTP request and returns either a value or a classified error. The
// call runs under single-flight per key; all four outcome classes are
// cached (the null sentinel for the failure classes) so repeated calls
// inside the TTL never touch the upstream again. Transport errors are
// cached and still propagated.
func (b *base) fetch(key string, fn func() (any, error)) (any, error) {
	v, err := b.cache.Do(key, func() (any, error) {
		v, err := fn()
		if err == nil && v == nil {
			err = ErrNoData
		}
		if errors.Is(err, ErrDisabled) {
			// Not an upstream outcome; never cached.
			return nil, err
		}

		switch Classify(err) {
		case ClassSuccess:
			if serr := b.cache.Set(key, v, b.ttl.Success); serr != nil {
				slog.Warn("cache write failed", "source", b.name, "key", key, "error", serr)
			}
			return v, nil

		case ClassNoData:
			b.store(key, b.ttl.NoData)
			return cache.Null, nil

		case ClassRateLimited:
			slog.Warn("provider rate limit hit", "source", b.name, "key", key)
			b.store(key, b.ttl.RateLimit)
			return cache.Null, nil

		default:
			ttl := b.ttl.NoData
			if b.timeoutUsesSuccessTTL && IsTimeout(err) {
				ttl = b.ttl.Success
			}
			b.store(key, ttl)
			return cache.Null, err
		}
	})
	if err != nil {
		return nil, err
	}
	if cache.IsNull(v) {
		return nil, nil
	}
	return v, nil
}

func (b *base) store(key string, ttl time.Duration) {
	if err := b.cache.Set(key, cache.Null, ttl); err != nil {
		slog.Warn("cache write failed", "source", b.name, "key", key, "error", err)
	}
}

// requireKey returns ErrDisabled with a source-specific message when the
// adapter's secret is absent.
func (b *base) requireKey(envVar string) error {
	if b.apiKey == "" {
		return &DisabledError{Source: b.name, EnvVar: envVar}
	}
	return nil
}

// DisabledError reports a call against an adapter with no API key.
type DisabledError struct {
	Source string
	EnvVar string
}

func (e *DisabledError) Error() string {
	return strings.ToUpper(e.Source) + " API key not configured (set " + e.EnvVar + ")"
}

func (e *DisabledError) Is(target error) bool { return target == ErrDisabled }

var _ error = (*DisabledError)(nil)
