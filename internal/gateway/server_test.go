package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketscope/marketscope/internal/availability"
	"github.com/marketscope/marketscope/internal/cache"
	"github.com/marketscope/marketscope/internal/config"
	"github.com/marketscope/marketscope/internal/dispatch"
	"github.com/marketscope/marketscope/internal/ratelimit"
	"github.com/marketscope/marketscope/internal/registry"
	"github.com/marketscope/marketscope/internal/service"
	"github.com/marketscope/marketscope/internal/upstream"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{
		APIKeys:            map[config.Source]string{},
		TTLs:               map[config.Source]config.TTLSet{},
		RateLimitRequests:  100,
		RateLimitWindow:    time.Minute,
		TAMAlertThreshold:  1e12,
		ForecastCAGRAlert:  0.5,
		LowConfidenceFloor: 0.3,
	}
	c := cache.New()
	fred := upstream.NewFRED(cfg, c)
	wb := upstream.NewWorldBank(cfg, c)

	svc := service.New(cfg, service.Sources{FRED: fred, WorldBank: wb}, nil)
	reg := registry.New(svc)
	disp, err := dispatch.New(cfg, reg, ratelimit.New(), nil)
	require.NoError(t, err)
	checker := availability.New(fred, wb)
	return NewServer(reg, disp, checker, nil)
}

// runSession feeds newline-delimited requests through the server and
// decodes one response per request line that carries an id.
func runSession(t *testing.T, lines ...string) []Response {
	t.Helper()
	srv := testServer(t)

	in := strings.NewReader(strings.Join(lines, "\n") + "\n")
	var out bytes.Buffer
	require.NoError(t, srv.RunConn(context.Background(), in, &out))

	var responses []Response
	for _, raw := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if raw == "" {
			continue
		}
		var resp Response
		require.NoError(t, json.Unmarshal([]byte(raw), &resp))
		responses = append(responses, resp)
	}
	return responses
}

func TestInitialize(t *testing.T) {
	resps := runSession(t,
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","clientInfo":{"name":"test","version":"0.1"}}}`)
	require.Len(t, resps, 1)
	require.Nil(t, resps[0].Error)

	var res InitializeResult
	require.NoError(t, json.Unmarshal(resps[0].Result, &res))
	assert.Equal(t, protocolVersion, res.ProtocolVersion)
	assert.Equal(t, serverName, res.ServerInfo.Name)
	assert.NotNil(t, res.Capabilities.Tools)
	assert.NotNil(t, res.Capabilities.Resources)
	assert.NotNil(t, res.Capabilities.Prompts)
}

func TestPing(t *testing.T) {
	resps := runSession(t, `{"jsonrpc":"2.0","id":1,"method":"ping"}`)
	require.Len(t, resps, 1)
	assert.Equal(t, "{}", string(resps[0].Result))
}

func TestPingWithCacheStats(t *testing.T) {
	srv := testServer(t)
	c := cache.New()
	require.NoError(t, c.Set("k", "v", time.Minute))
	WithCacheStats(c)(srv)

	in := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}` + "\n")
	var out bytes.Buffer
	require.NoError(t, srv.RunConn(context.Background(), in, &out))

	var resp Response
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	var res struct {
		Cache struct {
			Keys int `json:"keys"`
		} `json:"cache"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &res))
	assert.Equal(t, 1, res.Cache.Keys)
}

func TestToolsListAnnotatesAvailability(t *testing.T) {
	resps := runSession(t, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	require.Len(t, resps, 1)
	require.Nil(t, resps[0].Error)

	var res struct {
		Tools []ToolInfo `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(resps[0].Result, &res))
	require.Len(t, res.Tools, 28)

	byName := map[string]ToolInfo{}
	for _, ti := range res.Tools {
		byName[ti.Name] = ti
		assert.NotEmpty(t, ti.InputSchema, ti.Name)
	}
	assert.Contains(t, byName["fred_getSeriesObservations"].Description,
		"unavailable: set FRED_API_KEY")
	assert.NotContains(t, byName["worldBank_getIndicatorData"].Description, "unavailable")
}

func TestToolsCallCalculator(t *testing.T) {
	resps := runSession(t,
		`{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{"name":"tam_calculator","arguments":{"baseMarketSize":1000000,"annualGrowthRate":0.15,"projectionYears":3}}}`)
	require.Len(t, resps, 1)
	require.Nil(t, resps[0].Error)

	var res dispatch.Result
	require.NoError(t, json.Unmarshal(resps[0].Result, &res))
	require.False(t, res.IsError)

	var body struct {
		CalculatedTAM float64 `json:"calculatedTam"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.Content[0].Text), &body))
	assert.InDelta(t, 1_520_875, body.CalculatedTAM, 1)
}

func TestToolsCallUnknownToolIsEnvelopeNotProtocolError(t *testing.T) {
	resps := runSession(t,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"nope"}}`)
	require.Len(t, resps, 1)
	require.Nil(t, resps[0].Error)

	var res dispatch.Result
	require.NoError(t, json.Unmarshal(resps[0].Result, &res))
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content[0].Text, "unknown_tool")
}

func TestResources(t *testing.T) {
	resps := runSession(t,
		`{"jsonrpc":"2.0","id":1,"method":"resources/list"}`,
		`{"jsonrpc":"2.0","id":2,"method":"resources/read","params":{"uri":"marketscope://docs/methodology"}}`,
		`{"jsonrpc":"2.0","id":3,"method":"resources/read","params":{"uri":"marketscope://docs/none"}}`)
	require.Len(t, resps, 3)

	var list struct {
		Resources []Resource `json:"resources"`
	}
	require.NoError(t, json.Unmarshal(resps[0].Result, &list))
	assert.Len(t, list.Resources, 3)

	var read struct {
		Contents []ResourceContents `json:"contents"`
	}
	require.NoError(t, json.Unmarshal(resps[1].Result, &read))
	require.Len(t, read.Contents, 1)
	assert.Equal(t, "text/markdown", read.Contents[0].MimeType)
	assert.Contains(t, read.Contents[0].Text, "TAM")

	require.NotNil(t, resps[2].Error)
	assert.Equal(t, CodeInvalidParams, resps[2].Error.Code)
}

func TestPrompts(t *testing.T) {
	resps := runSession(t,
		`{"jsonrpc":"2.0","id":1,"method":"prompts/list"}`,
		`{"jsonrpc":"2.0","id":2,"method":"prompts/get","params":{"name":"market-analysis","arguments":{"industry":"robotics"}}}`,
		`{"jsonrpc":"2.0","id":3,"method":"prompts/get","params":{"name":"market-analysis"}}`)
	require.Len(t, resps, 3)

	var list struct {
		Prompts []Prompt `json:"prompts"`
	}
	require.NoError(t, json.Unmarshal(resps[0].Result, &list))
	assert.Len(t, list.Prompts, 3)

	var got GetPromptResult
	require.NoError(t, json.Unmarshal(resps[1].Result, &got))
	require.Len(t, got.Messages, 1)
	text := got.Messages[0].Content.Text
	assert.Contains(t, text, "robotics")
	assert.Contains(t, text, "US") // region default
	assert.Contains(t, text, "industry_search")

	// Missing the required industry argument.
	require.NotNil(t, resps[2].Error)
	assert.Equal(t, CodeInvalidParams, resps[2].Error.Code)
}

func TestParseErrorAndUnknownMethod(t *testing.T) {
	resps := runSession(t,
		`{not json`,
		`{"jsonrpc":"2.0","id":5,"method":"bogus/method"}`)
	require.Len(t, resps, 2)

	require.NotNil(t, resps[0].Error)
	assert.Equal(t, CodeParseError, resps[0].Error.Code)

	require.NotNil(t, resps[1].Error)
	assert.Equal(t, CodeMethodNotFound, resps[1].Error.Code)
	assert.Contains(t, resps[1].Error.Message, "bogus/method")
}

func TestNotificationGetsNoResponse(t *testing.T) {
	resps := runSession(t,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":1,"method":"ping"}`)
	require.Len(t, resps, 1)
	assert.NotNil(t, resps[0].Result)
}
