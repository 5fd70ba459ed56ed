package registry

import (
	"context"
	"fmt"
	"sort"

	"github.com/marketscope/marketscope/internal/config"
	"github.com/marketscope/marketscope/internal/service"
)

// Handler executes a tool against normalized arguments.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Tool is one catalog entry.
type Tool struct {
	Name        string
	Description string
	Params      map[string]*Param
	// Adapters the tool cannot run without. Empty for pure calculators
	// and multi-source tools that degrade gracefully.
	Adapters []config.Source
	Handler  Handler
}

// InputSchema renders the tool's argument schema as JSON Schema for
// tools/list responses and validator compilation.
func (t *Tool) InputSchema() map[string]any {
	return schemaObject(t.Params)
}

// ApplyDefaults fills absent arguments from the declared defaults.
func (t *Tool) ApplyDefaults(args map[string]any) map[string]any {
	if args == nil {
		args = map[string]any{}
	}
	return applyDefaults(t.Params, args)
}

// Registry is the immutable tool catalog.
type Registry struct {
	tools map[string]*Tool
	names []string
}

// New builds the full catalog bound to the data service.
func New(svc *service.Service) *Registry {
	r := &Registry{tools: make(map[string]*Tool)}
	for _, t := range buildTools(svc) {
		if _, dup := r.tools[t.Name]; dup {
			panic(fmt.Sprintf("registry: duplicate tool %q", t.Name))
		}
		r.tools[t.Name] = t
		r.names = append(r.names, t.Name)
	}
	sort.Strings(r.names)
	return r
}

// Get looks a tool up by name.
func (r *Registry) Get(name string) (*Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Tools returns the catalog in name order.
func (r *Registry) Tools() []*Tool {
	out := make([]*Tool, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, r.tools[name])
	}
	return out
}

// Len returns the catalog size.
func (r *Registry) Len() int { return len(r.tools) }
