package upstream

import (
	"context"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/marketscope/marketscope/internal/cache"
	"github.com/marketscope/marketscope/internal/config"
)

const fredBaseURL = "https://api.stlouisfed.org/fred/series/observations"

// FRED serves Federal Reserve economic series. Requires FRED_API_KEY.
type FRED struct {
	base
	baseURL string
}

// ObservationsRequest selects a window of a FRED series.
type ObservationsRequest struct {
	SeriesID         string
	ObservationStart string
	ObservationEnd   string
	Limit            int
	Offset           int
	SortOrder        string // "asc" or "desc"
}

// NewFRED builds the adapter.
func NewFRED(cfg *config.Config, c *cache.Cache, opts ...AdapterOption) *FRED {
	a := &FRED{
		base: base{
			name:   "fred",
			source: config.SourceFRED,
			cache:  c,
			ttl:    cfg.TTL(config.SourceFRED),
			httpc:  newHTTPClient(),
			apiKey: cfg.Key(config.SourceFRED),
		},
		baseURL: fredBaseURL,
	}
	applyOptions(&a.base, &a.baseURL, opts)
	return a
}

func (a *FRED) Available() bool { return a.apiKey != "" }

func (a *FRED) MissingKeys() []string {
	if a.apiKey == "" {
		return []string{"FRED_API_KEY"}
	}
	return nil
}

func (a *FRED) Warnings() []string { return nil }

// SeriesObservations fetches observations for a series and returns the
// provider's observation list verbatim.
func (a *FRED) SeriesObservations(ctx context.Context, req ObservationsRequest) (any, error) {
	params := map[string]any{"series_id": req.SeriesID}
	if req.ObservationStart != "" {
		params["observation_start"] = req.ObservationStart
	}
	if req.ObservationEnd != "" {
		params["observation_end"] = req.ObservationEnd
	}
	if req.Limit > 0 {
		params["limit"] = req.Limit
	}
	if req.Offset > 0 {
		params["offset"] = req.Offset
	}
	if req.SortOrder != "" {
		params["sort_order"] = req.SortOrder
	}
	key := CacheKey(a.name, "observations", params)

	return a.fetch(key, func() (any, error) {
		body, err := a.query(ctx, "observations", req)
		if err != nil {
			return nil, err
		}

		obs := gjson.GetBytes(body, "observations")
		if !obs.Exists() || len(obs.Array()) == 0 {
			return nil, ErrNoData
		}
		return obs.Value(), nil
	})
}

// MarketSize returns the latest observation of a series as a normalized
// record, or nil when the series is empty.
func (a *FRED) MarketSize(ctx context.Context, seriesID, region string) (any, error) {
	key := CacheKey(a.name, "market_size", map[string]any{
		"series_id": seriesID, "region": region,
	})

	return a.fetch(key, func() (any, error) {
		body, err := a.query(ctx, "market_size", ObservationsRequest{
			SeriesID:  seriesID,
			Limit:     1,
			SortOrder: "desc",
		})
		if err != nil {
			return nil, err
		}

		obs := gjson.GetBytes(body, "observations").Array()
		if len(obs) == 0 {
			return nil, ErrNoData
		}
		first := obs[0]

		val, err := strconv.ParseFloat(first.Get("value").String(), 64)
		if err != nil {
			// FRED reports missing observations as ".".
			return nil, ErrNoData
		}

		return map[string]any{
			"value":          val,
			"date":           first.Get("date").String(),
			"seriesId":       seriesID,
			"region":         region,
			"source":         "FRED",
			"realtime_start": first.Get("realtime_start").String(),
			"realtime_end":   first.Get("realtime_end").String(),
		}, nil
	})
}

func (a *FRED) query(ctx context.Context, op string, req ObservationsRequest) ([]byte, error) {
	if err := a.requireKey("FRED_API_KEY"); err != nil {
		return nil, err
	}

	q := url.Values{
		"series_id": {req.SeriesID},
		"api_key":   {a.apiKey},
		"file_type": {"json"},
	}
	if req.ObservationStart != "" {
		q.Set("observation_start", req.ObservationStart)
	}
	if req.ObservationEnd != "" {
		q.Set("observation_end", req.ObservationEnd)
	}
	if req.Limit > 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}
	if req.Offset > 0 {
		q.Set("offset", strconv.Itoa(req.Offset))
	}
	if req.SortOrder != "" {
		q.Set("sort_order", req.SortOrder)
	}

	return getJSON(ctx, a.httpc, a.name, op, a.baseURL, q)
}
