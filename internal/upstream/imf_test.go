package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIMFDataset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/IFS/M.US.PMP_IX", r.URL.Path)
		assert.Equal(t, "2022", r.URL.Query().Get("startPeriod"))
		w.Write([]byte(seriesCentricSDMX))
	}))
	defer srv.Close()

	a := NewIMF(testConfig(nil), newTestCache(), WithBaseURL(srv.URL))

	v, err := a.Dataset(context.Background(), "IFS", "M.US.PMP_IX", "2022", "")
	require.NoError(t, err)
	records, ok := v.([]map[string]any)
	require.True(t, ok)
	require.Len(t, records, 2)
	assert.Equal(t, "2022", records[0]["TIME_PERIOD"])
}

func TestIMFLatestObservation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(seriesCentricSDMX))
	}))
	defer srv.Close()

	a := NewIMF(testConfig(nil), newTestCache(), WithBaseURL(srv.URL))

	v, err := a.LatestObservation(context.Background(), "IFS", "M.US.PMP_IX")
	require.NoError(t, err)
	rec, ok := v.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "2023", rec["TIME_PERIOD"])
	assert.Equal(t, 26100.25, rec["value"])
}

func TestIMFMissingStructureIsNoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"dataSets": [{"series": {"0:0": {"observations": {"0": [1]}}}}], "structure": {"dimensions": {}}}`))
	}))
	defer srv.Close()

	a := NewIMF(testConfig(nil), newTestCache(), WithBaseURL(srv.URL))

	v, err := a.Dataset(context.Background(), "IFS", "M.US.PMP_IX", "", "")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestIMFMalformedPayloadIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>gateway timeout</html>`))
	}))
	defer srv.Close()

	a := NewIMF(testConfig(nil), newTestCache(), WithBaseURL(srv.URL))

	_, err := a.Dataset(context.Background(), "IFS", "M.US.PMP_IX", "", "")
	require.Error(t, err)
	assert.Equal(t, ClassTransport, Classify(err))
}

func TestLatestFromGeneric(t *testing.T) {
	v := latestFromGeneric([]any{
		map[string]any{"TIME_PERIOD": "2021", "value": 1.0},
		map[string]any{"TIME_PERIOD": "2023", "value": 3.0},
		map[string]any{"TIME_PERIOD": "2022", "value": 2.0},
	})
	rec, ok := v.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "2023", rec["TIME_PERIOD"])

	assert.Nil(t, latestFromGeneric([]any{}))
	assert.Nil(t, latestFromGeneric("not a slice"))
}
