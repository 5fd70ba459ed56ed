package upstream

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/marketscope/marketscope/internal/cache"
	"github.com/marketscope/marketscope/internal/config"
)

const blsBaseURL = "https://api.bls.gov/publicAPI/v2/timeseries/data/"

// Series-count ceilings per request. The provider enforces these
// server-side; we only warn (and still issue the request).
const (
	blsAnonymousSeriesCap = 25
	blsKeyedSeriesCap     = 50
)

// BLS serves Bureau of Labor Statistics time series via the batched
// POST endpoint. Anonymous access works; a key raises the per-request
// series ceiling and daily quota.
type BLS struct {
	base
	baseURL string
}

// SeriesRequest is a batched BLS series query.
type SeriesRequest struct {
	SeriesIDs     []string
	StartYear     string
	EndYear       string
	Catalog       bool
	Calculations  bool
	AnnualAverage bool
}

// NewBLS builds the adapter.
func NewBLS(cfg *config.Config, c *cache.Cache, opts ...AdapterOption) *BLS {
	b := &BLS{
		base: base{
			name:   "bls",
			source: config.SourceBLS,
			cache:  c,
			ttl:    cfg.TTL(config.SourceBLS),
			httpc:  newHTTPClient(),
			apiKey: cfg.Key(config.SourceBLS),
		},
		baseURL: blsBaseURL,
	}
	applyOptions(&b.base, &b.baseURL, opts)
	return b
}

// Available is always true: BLS accepts anonymous access.
func (b *BLS) Available() bool { return true }

func (b *BLS) MissingKeys() []string {
	if b.apiKey == "" {
		return []string{"BLS_API_KEY"}
	}
	return nil
}

func (b *BLS) Warnings() []string {
	if b.apiKey == "" {
		return []string{fmt.Sprintf("BLS: using anonymous access, %d-series cap per request", blsAnonymousSeriesCap)}
	}
	return nil
}

// SeriesData fetches one or more series in a single batched request and
// returns the provider's Results object verbatim.
func (b *BLS) SeriesData(ctx context.Context, req SeriesRequest) (any, error) {
	if len(req.SeriesIDs) == 0 {
		return nil, fmt.Errorf("bls: at least one series id is required")
	}

	ceiling := blsAnonymousSeriesCap
	if b.apiKey != "" {
		ceiling = blsKeyedSeriesCap
	}
	if len(req.SeriesIDs) > ceiling {
		slog.Warn("BLS series count exceeds ceiling; request issued anyway",
			"count", len(req.SeriesIDs), "cap", ceiling, "keyed", b.apiKey != "")
	}

	params := map[string]any{"seriesid": strings.Join(req.SeriesIDs, ",")}
	if req.StartYear != "" {
		params["startyear"] = req.StartYear
	}
	if req.EndYear != "" {
		params["endyear"] = req.EndYear
	}
	if req.Catalog {
		params["catalog"] = true
	}
	if req.Calculations {
		params["calculations"] = true
	}
	if req.AnnualAverage {
		params["annualaverage"] = true
	}
	key := CacheKey(b.name, "series", params)

	return b.fetch(key, func() (any, error) {
		body := map[string]any{"seriesid": req.SeriesIDs}
		if req.StartYear != "" {
			body["startyear"] = req.StartYear
		}
		if req.EndYear != "" {
			body["endyear"] = req.EndYear
		}
		if req.Catalog {
			body["catalog"] = true
		}
		if req.Calculations {
			body["calculations"] = true
		}
		if req.AnnualAverage {
			body["annualaverage"] = true
		}
		if b.apiKey != "" {
			body["registrationkey"] = b.apiKey
		}

		raw, err := postJSON(ctx, b.httpc, b.name, "series", b.baseURL, body)
		if err != nil {
			return nil, err
		}

		parsed := gjson.ParseBytes(raw)
		if status := parsed.Get("status").String(); status != "REQUEST_SUCCEEDED" {
			msgs := parsed.Get("message").Array()
			parts := make([]string, 0, len(msgs))
			for _, m := range msgs {
				parts = append(parts, m.String())
			}
			return nil, &TransportError{
				Source: b.name, Op: "series",
				Err: fmt.Errorf("status %q: %s", status, strings.Join(parts, "; ")),
			}
		}

		results := parsed.Get("Results")
		if !results.Exists() || len(results.Get("series").Array()) == 0 {
			return nil, ErrNoData
		}
		return results.Value(), nil
	})
}
