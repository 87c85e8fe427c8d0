package provider

import (
	"errors"
	"fmt"
	"net"
)

// ErrEmptyResponse is returned when a provider answers successfully but with
// no usable content. Treated as retryable.
var ErrEmptyResponse = errors.New("provider returned an empty response")

// TransportError wraps a failed HTTP exchange with a provider. Status is
// zero when the request never produced a response.
type TransportError struct {
	Provider string
	Status   int
	Cause    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s request failed with status %d: %v", e.Provider, e.Status, e.Cause)
	}
	return fmt.Sprintf("%s request failed: %v", e.Provider, e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// InvalidResponseError marks a response whose shape violates the provider
// contract, such as a rerank index pointing outside the candidate list.
type InvalidResponseError struct {
	Provider string
	Reason   string
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("%s returned an invalid response: %s", e.Provider, e.Reason)
}

// DeserializationError carries the raw model output alongside the parse
// failure so callers can log what the model actually said.
type DeserializationError struct {
	Raw string
	Err error
}

func (e *DeserializationError) Error() string {
	return fmt.Sprintf("parse model output: %v (raw: %s)", e.Err, e.Raw)
}

func (e *DeserializationError) Unwrap() error { return e.Err }

// UnsupportedCapabilityError is returned when a model handle asks its
// backend for a capability the backend does not implement. Always fatal.
type UnsupportedCapabilityError struct {
	Provider   string
	Capability string
}

func (e *UnsupportedCapabilityError) Error() string {
	return fmt.Sprintf("provider %q does not support %s", e.Provider, e.Capability)
}

// IsRetryable classifies provider errors for the retry envelope. Connection
// failures, timeouts, 5xx, and 429 earn another attempt, as do semantically
// broken responses where the next attempt may produce a well-formed one.
func IsRetryable(err error) bool {
	var transport *TransportError
	if errors.As(err, &transport) {
		if transport.Status == 0 || transport.Status == 429 {
			return true
		}
		return transport.Status >= 500 && transport.Status < 600
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	if errors.Is(err, ErrEmptyResponse) {
		return true
	}
	var invalid *InvalidResponseError
	if errors.As(err, &invalid) {
		return true
	}
	var deser *DeserializationError
	return errors.As(err, &deser)
}
