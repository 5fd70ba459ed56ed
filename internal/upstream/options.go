package upstream

import "net/http"

// AdapterOption overrides adapter construction, mainly so tests can
// point an adapter at an httptest server.
type AdapterOption func(*adapterOptions)

type adapterOptions struct {
	baseURL string
	httpc   *http.Client
}

// WithBaseURL overrides the provider endpoint.
func WithBaseURL(u string) AdapterOption {
	return func(o *adapterOptions) { o.baseURL = u }
}

// WithHTTPClient overrides the outbound HTTP client.
func WithHTTPClient(c *http.Client) AdapterOption {
	return func(o *adapterOptions) { o.httpc = c }
}

func applyOptions(b *base, baseURL *string, opts []AdapterOption) {
	var o adapterOptions
	for _, fn := range opts {
		fn(&o)
	}
	if o.baseURL != "" {
		*baseURL = o.baseURL
	}
	if o.httpc != nil {
		b.httpc = o.httpc
	}
}
