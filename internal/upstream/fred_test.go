package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketscope/marketscope/internal/config"
)

func fredKeys() map[config.Source]string {
	return map[config.Source]string{config.SourceFRED: "fred-key"}
}

func TestFREDMarketSizeReturnsLatestObservation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "GDP", q.Get("series_id"))
		assert.Equal(t, "1", q.Get("limit"))
		assert.Equal(t, "desc", q.Get("sort_order"))
		assert.Equal(t, "json", q.Get("file_type"))

		w.Write([]byte(`{"observations": [
			{"date": "2024-01-01", "value": "27360.9", "realtime_start": "2024-06-01", "realtime_end": "2024-06-01"}
		]}`))
	}))
	defer srv.Close()

	a := NewFRED(testConfig(fredKeys()), newTestCache(), WithBaseURL(srv.URL))

	v, err := a.MarketSize(context.Background(), "GDP", "US")
	require.NoError(t, err)
	rec, ok := v.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 27360.9, rec["value"])
	assert.Equal(t, "2024-01-01", rec["date"])
	assert.Equal(t, "GDP", rec["seriesId"])
	assert.Equal(t, "FRED", rec["source"])
}

func TestFREDDotValueIsNoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"observations": [{"date": "2024-01-01", "value": "."}]}`))
	}))
	defer srv.Close()

	a := NewFRED(testConfig(fredKeys()), newTestCache(), WithBaseURL(srv.URL))

	v, err := a.MarketSize(context.Background(), "DISCONTINUED", "US")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestFREDSeriesObservations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "2020-01-01", q.Get("observation_start"))
		w.Write([]byte(`{"observations": [
			{"date": "2020-01-01", "value": "1.5"},
			{"date": "2020-02-01", "value": "1.6"}
		]}`))
	}))
	defer srv.Close()

	a := NewFRED(testConfig(fredKeys()), newTestCache(), WithBaseURL(srv.URL))

	v, err := a.SeriesObservations(context.Background(), ObservationsRequest{
		SeriesID:         "UNRATE",
		ObservationStart: "2020-01-01",
	})
	require.NoError(t, err)
	obs, ok := v.([]any)
	require.True(t, ok)
	assert.Len(t, obs, 2)
}

func TestFREDServerErrorCachedWithNoDataTTL(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := testConfigTTL(fredKeys(), config.SourceFRED, config.TTLSet{
		Success:   time.Hour,
		NoData:    30 * time.Millisecond,
		RateLimit: time.Hour,
	})
	a := NewFRED(cfg, newTestCache(), WithBaseURL(srv.URL))

	_, err := a.MarketSize(context.Background(), "GDP", "US")
	require.Error(t, err)
	assert.Equal(t, ClassTransport, Classify(err))

	// Inside the no-data TTL the cached null short-circuits the retry.
	v, err := a.MarketSize(context.Background(), "GDP", "US")
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.Equal(t, int64(1), calls.Load())

	// After the TTL the upstream is consulted again.
	time.Sleep(50 * time.Millisecond)
	_, err = a.MarketSize(context.Background(), "GDP", "US")
	require.Error(t, err)
	assert.Equal(t, int64(2), calls.Load())
}

func TestFREDDisabledMessageCapitalizesSource(t *testing.T) {
	a := NewFRED(testConfig(nil), newTestCache())
	assert.False(t, a.Available())

	_, err := a.MarketSize(context.Background(), "GDP", "US")
	require.ErrorIs(t, err, ErrDisabled)
	assert.Contains(t, err.Error(), "FRED API key not configured")
	assert.Contains(t, err.Error(), "FRED_API_KEY")
}

func TestFREDUpstream429IsRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	a := NewFRED(testConfig(fredKeys()), newTestCache(), WithBaseURL(srv.URL))

	// Provider rate limits surface as a null, not an error.
	v, err := a.MarketSize(context.Background(), "GDP", "US")
	require.NoError(t, err)
	assert.Nil(t, v)
}
