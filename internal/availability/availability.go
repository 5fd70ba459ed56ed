// Package availability reports which tools can run given the configured
// API keys. A tool is available when every adapter it depends on is;
// missing keys and soft warnings aggregate across dependencies and are
// surfaced as description suffixes in the tool listing.
package availability

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/marketscope/marketscope/internal/config"
	"github.com/marketscope/marketscope/internal/registry"
	"github.com/marketscope/marketscope/internal/upstream"
)

// Status is the availability verdict for one tool.
type Status struct {
	Available   bool
	MissingKeys []string
	Warnings    []string
}

// Checker answers availability questions over the registered adapters.
type Checker struct {
	adapters map[config.Source]upstream.Adapter
}

// New indexes the adapters by source.
func New(adapters ...upstream.Adapter) *Checker {
	c := &Checker{adapters: make(map[config.Source]upstream.Adapter, len(adapters))}
	for _, a := range adapters {
		c.adapters[a.Source()] = a
	}
	return c
}

// Tool computes the tool's status from its adapter dependencies. Tools
// with no dependencies are always available.
func (c *Checker) Tool(t *registry.Tool) Status {
	s := Status{Available: true}
	for _, src := range t.Adapters {
		a, ok := c.adapters[src]
		if !ok {
			s.Available = false
			s.Warnings = append(s.Warnings, string(src)+" adapter not registered")
			continue
		}
		if !a.Available() {
			s.Available = false
		}
		s.MissingKeys = append(s.MissingKeys, a.MissingKeys()...)
		s.Warnings = append(s.Warnings, a.Warnings()...)
	}
	sort.Strings(s.MissingKeys)
	sort.Strings(s.Warnings)
	return s
}

// Annotate appends the status to a tool description for listings.
func (c *Checker) Annotate(desc string, s Status) string {
	if !s.Available && len(s.MissingKeys) > 0 {
		return desc + " [unavailable: set " + strings.Join(s.MissingKeys, ", ") + "]"
	}
	if !s.Available {
		return desc + " [unavailable]"
	}
	if len(s.Warnings) > 0 {
		return desc + " [" + strings.Join(s.Warnings, "; ") + "]"
	}
	return desc
}

// Summary counts enabled adapters.
func (c *Checker) Summary() (enabled, total int) {
	for _, a := range c.adapters {
		total++
		if a.Available() {
			enabled++
		}
	}
	return enabled, total
}

// LogStartup records the source availability picture once at boot.
func (c *Checker) LogStartup() {
	enabled, total := c.Summary()
	var missing []string
	for _, a := range c.adapters {
		if !a.Available() {
			missing = append(missing, a.MissingKeys()...)
		}
	}
	sort.Strings(missing)
	slog.Info("data sources enabled",
		"enabled", enabled, "total", total, "missing_keys", missing)
}
