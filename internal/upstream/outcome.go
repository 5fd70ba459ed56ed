// Package upstream contains the per-source adapters for the eight
// economic and financial data providers. Every response is classified
// into exactly one outcome class before transformation, and both
// successes and typed failures are cached with class-specific TTLs.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

// Class is the outcome classification of an upstream response.
type Class int

const (
	ClassSuccess Class = iota
	ClassNoData
	ClassRateLimited
	ClassTransport
)

func (c Class) String() string {
	switch c {
	case ClassSuccess:
		return "success"
	case ClassNoData:
		return "no_data"
	case ClassRateLimited:
		return "rate_limited"
	default:
		return "transport_failure"
	}
}

// ErrNoData marks a well-formed empty or explicit not-found response.
// Surfaced to callers as a nil value, not an error.
var ErrNoData = errors.New("upstream: no data")

// ErrRateLimited marks the provider's own rate-limit signal.
var ErrRateLimited = errors.New("upstream: rate limited by provider")

// ErrDisabled marks a call against an adapter whose required API key is
// not configured.
var ErrDisabled = errors.New("upstream: adapter disabled")

// TransportError is a timeout, network failure, or unexpected non-2xx
// response.
type TransportError struct {
	Source  string
	Op      string
	Status  int // 0 when no HTTP status was received
	Err     error
	Timeout bool
}

func (e *TransportError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s %s: unexpected status %d", e.Source, e.Op, e.Status)
	}
	return fmt.Sprintf("%s %s: %v", e.Source, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTimeout reports whether err is a transport failure caused by a
// timeout or context deadline.
func IsTimeout(err error) bool {
	var te *TransportError
	if errors.As(err, &te) && te.Timeout {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// isTimeoutErr detects timeouts on raw transport errors.
func isTimeoutErr(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Timeout()
	}
	return false
}

// Classify maps an adapter error to its outcome class.
func Classify(err error) Class {
	switch {
	case err == nil:
		return ClassSuccess
	case errors.Is(err, ErrNoData):
		return ClassNoData
	case errors.Is(err, ErrRateLimited):
		return ClassRateLimited
	default:
		return ClassTransport
	}
}
