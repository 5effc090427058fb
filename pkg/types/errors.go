package types

import (
	"errors"
	"fmt"
)

// ConfigError is returned when a required column or list is not configured.
// It fails fast, before any network call.
type ConfigError struct {
	Missing string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration missing: %s is not set", e.Missing)
}

func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// FetchError wraps a failure while loading items or choices from the
// document source. The upstream message is preserved.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
