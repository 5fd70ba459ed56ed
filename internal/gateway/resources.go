package gateway

import (
	"embed"
	"fmt"
)

//go:embed resources/*.md
var resourceFS embed.FS

// resourceCatalog maps protocol URIs to embedded documentation files.
var resourceCatalog = []struct {
	Resource
	path string
}{
	{
		Resource: Resource{
			URI:         "marketscope://docs/sources",
			Name:        "Data Sources",
			Description: "The eight upstream providers, their key requirements, and caching behavior.",
			MimeType:    "text/markdown",
		},
		path: "resources/sources.md",
	},
	{
		Resource: Resource{
			URI:         "marketscope://docs/methodology",
			Name:        "Market Sizing Methodology",
			Description: "How market size, TAM, SAM, forecasting, and validation are computed.",
			MimeType:    "text/markdown",
		},
		path: "resources/methodology.md",
	},
	{
		Resource: Resource{
			URI:         "marketscope://docs/tools",
			Name:        "Tool Catalog",
			Description: "Overview of the direct, basic, and advanced tool tiers.",
			MimeType:    "text/markdown",
		},
		path: "resources/tools.md",
	},
}

func listResources() []Resource {
	out := make([]Resource, 0, len(resourceCatalog))
	for _, r := range resourceCatalog {
		out = append(out, r.Resource)
	}
	return out
}

func readResource(uri string) (*ResourceContents, error) {
	for _, r := range resourceCatalog {
		if r.URI != uri {
			continue
		}
		body, err := resourceFS.ReadFile(r.path)
		if err != nil {
			return nil, fmt.Errorf("read resource %s: %w", uri, err)
		}
		return &ResourceContents{URI: uri, MimeType: r.MimeType, Text: string(body)}, nil
	}
	return nil, fmt.Errorf("unknown resource: %s", uri)
}
