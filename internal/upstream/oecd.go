package upstream

import (
	"context"
	"fmt"
	"net/url"

	"github.com/marketscope/marketscope/internal/cache"
	"github.com/marketscope/marketscope/internal/config"
)

const oecdBaseURL = "https://stats.oecd.org/sdmx-json/data"

// OECD serves OECD statistics in SDMX-JSON form, in either the
// series-centric or the observation-centric layout depending on
// dimensionAtObservation. Anonymous access.
type OECD struct {
	base
	baseURL string
}

// NewOECD builds the adapter.
func NewOECD(cfg *config.Config, c *cache.Cache, opts ...AdapterOption) *OECD {
	a := &OECD{
		base: base{
			name:   "oecd",
			source: config.SourceOECD,
			cache:  c,
			ttl:    cfg.TTL(config.SourceOECD),
			httpc:  newHTTPClient(),
		},
		baseURL: oecdBaseURL,
	}
	applyOptions(&a.base, &a.baseURL, opts)
	return a
}

func (a *OECD) Available() bool       { return true }
func (a *OECD) MissingKeys() []string { return nil }
func (a *OECD) Warnings() []string    { return nil }

// DatasetRequest selects an OECD dataset slice.
type DatasetRequest struct {
	DatasetID              string
	FilterExpression       string
	StartPeriod            string
	EndPeriod              string
	DimensionAtObservation string
}

// Dataset fetches a dataset slice and returns the flattened observation
// records, or nil when there are none.
func (a *OECD) Dataset(ctx context.Context, req DatasetRequest) (any, error) {
	params := map[string]any{
		"dataset": req.DatasetID, "filter": req.FilterExpression,
	}
	if req.StartPeriod != "" {
		params["startPeriod"] = req.StartPeriod
	}
	if req.EndPeriod != "" {
		params["endPeriod"] = req.EndPeriod
	}
	if req.DimensionAtObservation != "" {
		params["dimensionAtObservation"] = req.DimensionAtObservation
	}
	cacheKey := CacheKey(a.name, "dataset", params)

	return a.fetch(cacheKey, func() (any, error) {
		q := url.Values{"format": {"jsondata"}}
		if req.StartPeriod != "" {
			q.Set("startPeriod", req.StartPeriod)
		}
		if req.EndPeriod != "" {
			q.Set("endPeriod", req.EndPeriod)
		}
		if req.DimensionAtObservation != "" {
			q.Set("dimensionAtObservation", req.DimensionAtObservation)
		}

		filter := req.FilterExpression
		if filter == "" {
			filter = "all"
		}
		endpoint := fmt.Sprintf("%s/%s/%s/all", a.baseURL,
			url.PathEscape(req.DatasetID), filter)
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

// LatestObservation returns the most recent observation of a dataset
// slice, or nil when the slice is empty.
func (a *OECD) LatestObservation(ctx context.Context, datasetID, filterExpression string) (any, error) {
	v, err := a.Dataset(ctx, DatasetRequest{
		DatasetID: datasetID, FilterExpression: filterExpression,
	})
	if err != nil || v == nil {
		return nil, err
	}
	if records, ok := v.([]map[string]any); ok {
		if len(records) == 0 {
			return nil, nil
		}
		return records[len(records)-1], nil
	}
	return latestFromGeneric(v), nil
}
