package ratelimit

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by a Store when no Record exists for a key.
	ErrNotFound = errors.New("rate record not found")

	// ErrMissingStoreHandle is returned when an external store is selected without a client.
	ErrMissingStoreHandle = errors.New("external store selected but no client provided")

	// ErrUnsupportedStore is returned for an unknown store type.
	ErrUnsupportedStore = errors.New("unsupported store type")

	// ErrUnsupportedDialect is returned for an unknown header dialect.
	ErrUnsupportedDialect = errors.New("unsupported headers dialect")

	// ErrInvalidQuota is returned when a quota has a non-positive max or window.
	ErrInvalidQuota = errors.New("quota max and window must be positive")

	// ErrUnsupportedResponse is returned when a request is processed without a response sink.
	ErrUnsupportedResponse = errors.New("unsupported response object")
)

// ConfigError reports an invalid limiter configuration.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid rate limit config: %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError wraps err with the name of the offending field.
func NewConfigError(field string, err error) *ConfigError {
	return &ConfigError{Field: field, Err: err}
}
