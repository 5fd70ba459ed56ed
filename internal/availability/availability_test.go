package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketscope/marketscope/internal/cache"
	"github.com/marketscope/marketscope/internal/config"
	"github.com/marketscope/marketscope/internal/registry"
	"github.com/marketscope/marketscope/internal/service"
	"github.com/marketscope/marketscope/internal/upstream"
)

func testAvailability(keys map[config.Source]string) (*Checker, *registry.Registry) {
	cfg := &config.Config{
		APIKeys:            keys,
		TTLs:               map[config.Source]config.TTLSet{},
		RateLimitRequests:  100,
		RateLimitWindow:    time.Minute,
		TAMAlertThreshold:  1e12,
		ForecastCAGRAlert:  0.5,
		LowConfidenceFloor: 0.3,
	}
	c := cache.New()
	checker := New(
		upstream.NewFRED(cfg, c),
		upstream.NewWorldBank(cfg, c),
		upstream.NewBLS(cfg, c),
	)
	reg := registry.New(service.New(cfg, service.Sources{}, nil))
	return checker, reg
}

func TestToolStatusFollowsAdapter(t *testing.T) {
	checker, reg := testAvailability(map[config.Source]string{})

	fredTool, ok := reg.Get("fred_getSeriesObservations")
	require.True(t, ok)
	s := checker.Tool(fredTool)
	assert.False(t, s.Available)
	assert.Equal(t, []string{"FRED_API_KEY"}, s.MissingKeys)

	wbTool, ok := reg.Get("worldBank_getIndicatorData")
	require.True(t, ok)
	s = checker.Tool(wbTool)
	assert.True(t, s.Available)
	assert.Empty(t, s.MissingKeys)
}

func TestKeylessToolsAlwaysAvailable(t *testing.T) {
	checker, reg := testAvailability(map[config.Source]string{})

	tool, ok := reg.Get("tam_calculator")
	require.True(t, ok)
	s := checker.Tool(tool)
	assert.True(t, s.Available)
	assert.Empty(t, s.MissingKeys)
	assert.Empty(t, s.Warnings)
}

func TestUnregisteredAdapterIsUnavailable(t *testing.T) {
	checker, reg := testAvailability(map[config.Source]string{})

	tool, ok := reg.Get("census_fetchMarketSize")
	require.True(t, ok)
	s := checker.Tool(tool)
	assert.False(t, s.Available)
	assert.NotEmpty(t, s.Warnings)
}

func TestAnnotate(t *testing.T) {
	checker, reg := testAvailability(map[config.Source]string{})

	tool, _ := reg.Get("fred_getSeriesObservations")
	s := checker.Tool(tool)
	desc := checker.Annotate("Fetch observations.", s)
	assert.Contains(t, desc, "Fetch observations.")
	assert.Contains(t, desc, "unavailable: set FRED_API_KEY")

	assert.Equal(t, "Clean.", checker.Annotate("Clean.", Status{Available: true}))
}

func TestSummaryCountsEnabledAdapters(t *testing.T) {
	checker, _ := testAvailability(map[config.Source]string{})
	enabled, total := checker.Summary()
	assert.Equal(t, 3, total)
	// FRED has no key; World Bank and BLS run anonymously.
	assert.Equal(t, 2, enabled)

	checker, _ = testAvailability(map[config.Source]string{config.SourceFRED: "k"})
	enabled, total = checker.Summary()
	assert.Equal(t, 3, total)
	assert.Equal(t, 3, enabled)
}
