// Error taxonomy for the delivery pipeline.
//
// DESIGN: Four failure classes with different audit behavior:
//   - ValidationError: rejected before any network call, never logged
//   - ProviderError:   non-2xx from the provider, logged failed with the
//     provider's own error text preserved
//   - TransportError:  network-level failure (timeout, DNS), logged failed
//     with generic text
//   - LoggingError:    the log write itself failed; diagnostic only, never
//     overrides the send outcome
package channel

import (
	"errors"
	"fmt"
)

// ValidationError is a malformed recipient or missing field, caught before
// dispatching to the provider.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// ProviderError is a non-2xx or malformed response from the provider.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s API error: %s", e.Provider, e.Message)
}

// TransportError is a network-level failure reaching the provider.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// LoggingError is a delivery log write failure.
type LoggingError struct {
	Channel string
	Err     error
}

func (e *LoggingError) Error() string {
	return fmt.Sprintf("failed to log %s delivery: %v", e.Channel, e.Err)
}

func (e *LoggingError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a validation-stage rejection.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
