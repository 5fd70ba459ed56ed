package upstream

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/marketscope/marketscope/internal/cache"
	"github.com/marketscope/marketscope/internal/config"
)

const imfBaseURL = "https://dataservices.imf.org/REST/SDMX_JSON.svc/CompactData"

// IMF serves International Monetary Fund dataflows in SDMX-JSON Compact
// form. Anonymous access; no key exists.
type IMF struct {
	base
	baseURL string
}

// NewIMF builds the adapter.
func NewIMF(cfg *config.Config, c *cache.Cache, opts ...AdapterOption) *IMF {
	a := &IMF{
		base: base{
			name:   "imf",
			source: config.SourceIMF,
			cache:  c,
			ttl:    cfg.TTL(config.SourceIMF),
			httpc:  newHTTPClient(),
		},
		baseURL: imfBaseURL,
	}
	applyOptions(&a.base, &a.baseURL, opts)
	return a
}

func (a *IMF) Available() bool        { return true }
func (a *IMF) MissingKeys() []string  { return nil }
func (a *IMF) Warnings() []string     { return nil }

// Dataset fetches a dataflow slice and returns the flattened
// observation records, or nil when the payload has no observations or
// lacks the series structure definition.
func (a *IMF) Dataset(ctx context.Context, dataflowID, seriesKey, startPeriod, endPeriod string) (any, error) {
	params := map[string]any{"dataflow": dataflowID, "key": seriesKey}
	if startPeriod != "" {
		params["startPeriod"] = startPeriod
	}
	if endPeriod != "" {
		params["endPeriod"] = endPeriod
	}
	cacheKey := CacheKey(a.name, "dataset", params)

	return a.fetch(cacheKey, func() (any, error) {
		q := url.Values{}
		if startPeriod != "" {
			q.Set("startPeriod", startPeriod)
		}
		if endPeriod != "" {
			q.Set("endPeriod", endPeriod)
		}

		endpoint := fmt.Sprintf("%s/%s/%s", a.baseURL,
			url.PathEscape(dataflowID), url.PathEscape(seriesKey))
		body, err := getJSON(ctx, a.httpc, a.name, "dataset", endpoint, q)
		if err != nil {
			return nil, err
		}

		records, err := parseSDMX(body)
		if err != nil {
			return nil, &TransportError{Source: a.name, Op: "dataset", Err: err}
		}
		if records == nil {
			return nil, ErrNoData
		}
		return records, nil
	})
}

// LatestObservation returns the most recent observation of a dataflow
// slice, or nil when the slice is empty.
func (a *IMF) LatestObservation(ctx context.Context, dataflowID, seriesKey string) (any, error) {
	v, err := a.Dataset(ctx, dataflowID, seriesKey, "", "")
	if err != nil || v == nil {
		return nil, err
	}
	records, ok := v.([]map[string]any)
	if !ok {
		// Promoted from the persistent tier as generic JSON.
		return latestFromGeneric(v), nil
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[len(records)-1], nil
}

// latestFromGeneric handles records that round-tripped through the
// persistent cache tier as []any.
func latestFromGeneric(v any) any {
	arr, ok := v.([]any)
	if !ok || len(arr) == 0 {
		return nil
	}
	best := arr[0]
	bestPeriod := periodOf(best)
	for _, rec := range arr[1:] {
		if p := periodOf(rec); strings.Compare(p, bestPeriod) > 0 {
			best, bestPeriod = rec, p
		}
	}
	return best
}

func periodOf(rec any) string {
	m, ok := rec.(map[string]any)
	if !ok {
		return ""
	}
	p, _ := m["TIME_PERIOD"].(string)
	return p
}
