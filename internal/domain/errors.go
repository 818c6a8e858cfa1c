// Package domain holds the error taxonomy shared across the pipeline.
package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks missing or invalid configuration: absent
	// credentials, rejected credentials, invalid splitter parameters.
	// Never retried.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrUpstreamUnavailable marks an embedding or generation backend that
	// exhausted its retry budget. The request fails; a later one may succeed.
	ErrUpstreamUnavailable = errors.New("upstream model unavailable")

	// ErrMalformedOutput marks generation output that could not be coerced
	// into the expected structured shape. Callers degrade instead of failing
	// the request where a safe default exists.
	ErrMalformedOutput = errors.New("malformed model output")

	// ErrEmptyIndex marks a tenant with no indexed material, distinct from a
	// search that merely returned nothing.
	ErrEmptyIndex = errors.New("no indexed material")
)

// ConfigError wraps ErrConfiguration with the offending setting name.
func ConfigError(setting, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrConfiguration, setting, reason)
}
