package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultTimeout bounds every outbound request.
const DefaultTimeout = 30 * time.Second

// maxResponseBytes caps upstream response bodies.
const maxResponseBytes = 16 << 20

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: DefaultTimeout}
}

// getJSON issues a GET with query parameters and returns the raw body.
// Non-2xx statuses and network failures come back as *TransportError.
func getJSON(ctx context.Context, c *http.Client, source, op, rawURL string, q url.Values) ([]byte, error) {
	u := rawURL
	if len(q) > 0 {
		u = rawURL + "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &TransportError{Source: source, Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	return doRequest(c, source, op, req)
}

// postJSON issues a POST with a JSON body and returns the raw response.
func postJSON(ctx context.Context, c *http.Client, source, op, rawURL string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &TransportError{Source: source, Op: op, Err: fmt.Errorf("encode body: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(payload))
	if err != nil {
		return nil, &TransportError{Source: source, Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return doRequest(c, source, op, req)
}

func doRequest(c *http.Client, source, op string, req *http.Request) ([]byte, error) {
	resp, err := c.Do(req)
	if err != nil {
		return nil, &TransportError{
			Source: source, Op: op, Err: err, Timeout: isTimeoutErr(err),
		}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportError{Source: source, Op: op, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: status 429", ErrRateLimited)
		}
		return nil, &TransportError{Source: source, Op: op, Status: resp.StatusCode}
	}
	return data, nil
}

// decodeJSON unmarshals into v, reporting malformed payloads as
// transport failures.
func decodeJSON(source, op string, data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return &TransportError{Source: source, Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
