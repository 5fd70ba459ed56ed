// Package registry is the declarative tool catalog: every tool's
// description, argument schema with defaults, adapter dependencies, and
// handler binding live in one place. The dispatcher fills defaults and
// validates against the schema projection before invoking the handler.
package registry

import (
	"sort"
)

// Param describes one argument in a tool's schema tree.
type Param struct {
	Type        string // "string", "number", "integer", "boolean", "array", "object"
	Description string
	Required    bool
	Default     any
	Enum        []any
	Minimum     *float64
	Maximum     *float64
	Pattern     string
	Items       *Param
	Properties  map[string]*Param
}

func f(v float64) *float64 { return &v }

// Schema renders the param as a JSON-Schema fragment.
func (p *Param) Schema() map[string]any {
	s := map[string]any{"type": p.Type}
	if p.Description != "" {
		s["description"] = p.Description
	}
	if p.Default != nil {
		s["default"] = p.Default
	}
	if len(p.Enum) > 0 {
		s["enum"] = p.Enum
	}
	if p.Minimum != nil {
		s["minimum"] = *p.Minimum
	}
	if p.Maximum != nil {
		s["maximum"] = *p.Maximum
	}
	if p.Pattern != "" {
		s["pattern"] = p.Pattern
	}
	if p.Items != nil {
		s["items"] = p.Items.Schema()
	}
	if len(p.Properties) > 0 {
		props := make(map[string]any, len(p.Properties))
		var required []string
		for name, child := range p.Properties {
			props[name] = child.Schema()
			if child.Required {
				required = append(required, name)
			}
		}
		s["properties"] = props
		if len(required) > 0 {
			sort.Strings(required)
			s["required"] = required
		}
	}
	return s
}

// schemaObject renders a property map as a JSON-Schema object.
func schemaObject(params map[string]*Param) map[string]any {
	props := make(map[string]any, len(params))
	var required []string
	for name, p := range params {
		props[name] = p.Schema()
		if p.Required {
			required = append(required, name)
		}
	}
	s := map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		sort.Strings(required)
		s["required"] = required
	}
	return s
}

// applyDefaults returns args with every absent field filled from the
// schema's declared defaults. The input map is not mutated. Nested
// object defaults are filled only when the object itself is present or
// carries a default.
func applyDefaults(params map[string]*Param, args map[string]any) map[string]any {
	out := make(map[string]any, len(args)+len(params))
	for k, v := range args {
		out[k] = v
	}
	for name, p := range params {
		v, present := out[name]
		if !present {
			if p.Default != nil {
				out[name] = cloneValue(p.Default)
			}
			continue
		}
		if child, ok := v.(map[string]any); ok && len(p.Properties) > 0 {
			out[name] = applyDefaults(p.Properties, child)
		}
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
