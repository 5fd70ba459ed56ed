// Package dispatch executes tool calls: it fills argument defaults,
// validates against the tool's schema, enforces the server-side rate
// limit, runs the handler, and wraps the outcome in the protocol's
// content envelope. Failures become typed error envelopes, never
// protocol errors and never stack traces.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/marketscope/marketscope/internal/config"
	"github.com/marketscope/marketscope/internal/notify"
	"github.com/marketscope/marketscope/internal/ratelimit"
	"github.com/marketscope/marketscope/internal/registry"
	"github.com/marketscope/marketscope/internal/upstream"
)

// Error kinds reported in tool error envelopes.
const (
	KindUnknownTool         = "unknown_tool"
	KindInvalidArguments    = "invalid_arguments"
	KindRateLimited         = "rate_limited_by_server"
	KindUpstreamRateLimited = "upstream_rate_limited"
	KindAdapterDisabled     = "adapter_disabled"
	KindUpstreamTransport   = "upstream_transport_error"
	KindInternal            = "internal"
)

// Content is one block of a tool result.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Result is the tools/call response envelope.
type Result struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// Dispatcher validates and runs tool calls against the catalog.
type Dispatcher struct {
	reg     *registry.Registry
	cfg     *config.Config
	limiter *ratelimit.Limiter
	bus     *notify.Bus
	schemas map[string]*jsonschema.Schema
	printer *message.Printer
}

// New compiles every tool's argument schema up front so malformed
// catalog entries fail at startup, not per call.
func New(cfg *config.Config, reg *registry.Registry, limiter *ratelimit.Limiter, bus *notify.Bus) (*Dispatcher, error) {
	d := &Dispatcher{
		reg:     reg,
		cfg:     cfg,
		limiter: limiter,
		bus:     bus,
		schemas: make(map[string]*jsonschema.Schema, reg.Len()),
		printer: message.NewPrinter(language.English),
	}
	for _, tool := range reg.Tools() {
		schema, err := compileSchema(tool.Name, tool.InputSchema())
		if err != nil {
			return nil, fmt.Errorf("dispatch: compile schema for %s: %w", tool.Name, err)
		}
		d.schemas[tool.Name] = schema
	}
	return d, nil
}

func compileSchema(name string, doc map[string]any) (*jsonschema.Schema, error) {
	// Round-trip through JSON so the compiler sees plain decoded values.
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	decoded, err := jsonschema.UnmarshalJSON(strings.NewReader(string(raw)))
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	url := name + ".schema.json"
	if err := c.AddResource(url, decoded); err != nil {
		return nil, err
	}
	return c.Compile(url)
}

// Call runs one tool invocation for clientID and always returns an
// envelope, using IsError for every failure mode.
func (d *Dispatcher) Call(ctx context.Context, clientID, toolName string, args map[string]any) *Result {
	tool, ok := d.reg.Get(toolName)
	if !ok {
		return errorResult(KindUnknownTool, fmt.Sprintf("unknown tool: %s", toolName))
	}

	// Invalid calls fail before the limiter so they never consume
	// window budget.
	args = tool.ApplyDefaults(args)
	if err := d.schemas[toolName].Validate(args); err != nil {
		return errorResult(KindInvalidArguments, d.validationMessage(err))
	}

	if d.limiter != nil {
		res := d.limiter.Check(clientID, d.cfg.RateLimitRequests, d.cfg.RateLimitWindow)
		if !res.Allowed {
			wait := int(math.Ceil(time.Until(res.ResetAt).Seconds()))
			if wait < 1 {
				wait = 1
			}
			return errorResult(KindRateLimited,
				fmt.Sprintf("rate limit exceeded: %d requests per %s; retry in %ds",
					d.cfg.RateLimitRequests, d.cfg.RateLimitWindow, wait))
		}
	}

	d.publish(notify.Event{Type: notify.EventToolStart, Tool: toolName})
	start := time.Now()

	v, err := tool.Handler(ctx, args)
	elapsed := time.Since(start)

	if err != nil {
		d.publish(notify.Event{
			Type: notify.EventToolError, Tool: toolName,
			Duration: elapsed, Error: err.Error(),
		})
		return errorResult(errorKind(err), err.Error())
	}

	d.publish(notify.Event{
		Type: notify.EventToolSuccess, Tool: toolName, Duration: elapsed,
	})

	// A nil value is a clean no-data outcome; it renders as JSON null.
	body, merr := json.Marshal(v)
	if merr != nil {
		return errorResult(KindInternal, fmt.Sprintf("encode result: %v", merr))
	}
	return &Result{Content: []Content{{Type: "text", Text: string(body)}}}
}

// validationMessage flattens a schema validation failure into one line
// of per-field messages.
func (d *Dispatcher) validationMessage(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}
	var parts []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := "/" + strings.Join(e.InstanceLocation, "/")
			parts = append(parts, loc+": "+e.ErrorKind.LocalizedString(d.printer))
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	sort.Strings(parts)
	return "invalid arguments: " + strings.Join(parts, "; ")
}

func errorKind(err error) string {
	var te *upstream.TransportError
	switch {
	case errors.Is(err, upstream.ErrDisabled):
		return KindAdapterDisabled
	case errors.Is(err, upstream.ErrRateLimited):
		return KindUpstreamRateLimited
	case errors.As(err, &te):
		return KindUpstreamTransport
	default:
		return KindInternal
	}
}

func errorResult(kind, msg string) *Result {
	body, _ := json.Marshal(map[string]string{"error": kind, "message": msg})
	return &Result{
		Content: []Content{{Type: "text", Text: string(body)}},
		IsError: true,
	}
}

func (d *Dispatcher) publish(e notify.Event) {
	if d.bus != nil {
		d.bus.Publish(e)
	}
}
