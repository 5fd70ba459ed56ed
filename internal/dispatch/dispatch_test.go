package dispatch

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketscope/marketscope/internal/cache"
	"github.com/marketscope/marketscope/internal/config"
	"github.com/marketscope/marketscope/internal/notify"
	"github.com/marketscope/marketscope/internal/ratelimit"
	"github.com/marketscope/marketscope/internal/registry"
	"github.com/marketscope/marketscope/internal/service"
	"github.com/marketscope/marketscope/internal/upstream"
)

func testDispatchConfig() *config.Config {
	return &config.Config{
		APIKeys:            map[config.Source]string{},
		TTLs:               map[config.Source]config.TTLSet{},
		RateLimitRequests:  100,
		RateLimitWindow:    time.Minute,
		TAMAlertThreshold:  1e12,
		ForecastCAGRAlert:  0.5,
		LowConfidenceFloor: 0.3,
	}
}

// testDispatcher wires a catalog over a service with a keyless FRED
// adapter and no other sources.
func testDispatcher(t *testing.T, cfg *config.Config, bus *notify.Bus) *Dispatcher {
	t.Helper()
	fred := upstream.NewFRED(cfg, cache.New())
	svc := service.New(cfg, service.Sources{FRED: fred}, bus)
	d, err := New(cfg, registry.New(svc), ratelimit.New(), bus)
	require.NoError(t, err)
	return d
}

func decodeEnvelope(t *testing.T, res *Result) map[string]any {
	t.Helper()
	require.Len(t, res.Content, 1)
	require.Equal(t, "text", res.Content[0].Type)
	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.Content[0].Text), &body))
	return body
}

func TestUnknownTool(t *testing.T) {
	d := testDispatcher(t, testDispatchConfig(), nil)

	res := d.Call(context.Background(), "client", "no_such_tool", nil)
	require.True(t, res.IsError)

	body := decodeEnvelope(t, res)
	assert.Equal(t, KindUnknownTool, body["error"])
	assert.Contains(t, body["message"], "no_such_tool")
}

func TestCalculatorRunsOnEmptyArguments(t *testing.T) {
	d := testDispatcher(t, testDispatchConfig(), nil)

	res := d.Call(context.Background(), "client", "tam_calculator", nil)
	require.False(t, res.IsError, res.Content[0].Text)

	body := decodeEnvelope(t, res)
	tam, ok := body["calculatedTam"].(float64)
	require.True(t, ok)
	assert.InDelta(t, 10e9*1.15*1.15*1.15*1.15*1.15, tam, 1)
}

func TestInvalidArgumentsNamesTheField(t *testing.T) {
	d := testDispatcher(t, testDispatchConfig(), nil)

	res := d.Call(context.Background(), "client", "tam_calculator",
		map[string]any{"projectionYears": float64(0)})
	require.True(t, res.IsError)

	body := decodeEnvelope(t, res)
	assert.Equal(t, KindInvalidArguments, body["error"])
	assert.Contains(t, body["message"], "projectionYears")
}

func TestUnknownArgumentRejected(t *testing.T) {
	d := testDispatcher(t, testDispatchConfig(), nil)

	res := d.Call(context.Background(), "client", "tam_calculator",
		map[string]any{"bogus": true})
	require.True(t, res.IsError)
	assert.Equal(t, KindInvalidArguments, decodeEnvelope(t, res)["error"])
}

func TestServerRateLimit(t *testing.T) {
	cfg := testDispatchConfig()
	cfg.RateLimitRequests = 1
	d := testDispatcher(t, cfg, nil)

	res := d.Call(context.Background(), "client", "tam_calculator", nil)
	require.False(t, res.IsError)

	res = d.Call(context.Background(), "client", "tam_calculator", nil)
	require.True(t, res.IsError)
	body := decodeEnvelope(t, res)
	assert.Equal(t, KindRateLimited, body["error"])
	assert.Contains(t, body["message"], "retry in")

	// Other clients keep their own window.
	res = d.Call(context.Background(), "other", "tam_calculator", nil)
	assert.False(t, res.IsError)
}

func TestInvalidCallsDoNotConsumeRateBudget(t *testing.T) {
	cfg := testDispatchConfig()
	cfg.RateLimitRequests = 1
	d := testDispatcher(t, cfg, nil)

	// Validation failures come back as invalid_arguments even for a
	// client already at its limit, and never count against the window.
	for i := 0; i < 3; i++ {
		res := d.Call(context.Background(), "client", "tam_calculator",
			map[string]any{"projectionYears": float64(0)})
		require.True(t, res.IsError)
		assert.Equal(t, KindInvalidArguments, decodeEnvelope(t, res)["error"])
	}

	res := d.Call(context.Background(), "client", "tam_calculator", nil)
	assert.False(t, res.IsError)
}

func TestDisabledAdapterEnvelope(t *testing.T) {
	d := testDispatcher(t, testDispatchConfig(), nil)

	res := d.Call(context.Background(), "client", "fred_getSeriesObservations",
		map[string]any{"seriesId": "GDP"})
	require.True(t, res.IsError)

	body := decodeEnvelope(t, res)
	assert.Equal(t, KindAdapterDisabled, body["error"])
	assert.Contains(t, body["message"], "FRED API key not configured")
	assert.Contains(t, body["message"], "FRED_API_KEY")
}

func TestToolLifecycleNotifications(t *testing.T) {
	bus := notify.NewBus()
	d := testDispatcher(t, testDispatchConfig(), bus)
	ch := bus.Subscribe()
	defer bus.Unsubscribe(ch)

	res := d.Call(context.Background(), "client", "sam_calculator", nil)
	require.False(t, res.IsError)

	var types []notify.EventType
	for i := 0; i < 2; i++ {
		select {
		case e := <-ch:
			types = append(types, e.Type)
			assert.Equal(t, "sam_calculator", e.Tool)
		case <-time.After(time.Second):
			t.Fatal("missing lifecycle event")
		}
	}
	assert.Equal(t, []notify.EventType{notify.EventToolStart, notify.EventToolSuccess}, types)
}

func TestErrorNotificationCarriesMessage(t *testing.T) {
	bus := notify.NewBus()
	d := testDispatcher(t, testDispatchConfig(), bus)
	ch := bus.Subscribe()
	defer bus.Unsubscribe(ch)

	res := d.Call(context.Background(), "client", "fred_getSeriesObservations", nil)
	require.True(t, res.IsError)

	<-ch // tool_start
	select {
	case e := <-ch:
		assert.Equal(t, notify.EventToolError, e.Type)
		assert.Contains(t, e.Error, "FRED_API_KEY")
	case <-time.After(time.Second):
		t.Fatal("missing tool_error event")
	}
}
