package orderkey

import (
	"errors"
	"fmt"
)

// Sentinel errors. Typed errors below match them via errors.Is.
var (
	// ErrInvalidKey reports a syntactically malformed order key.
	ErrInvalidKey = errors.New("invalid order key")

	// ErrOrderViolation reports lower >= upper. The caller already holds a
	// corrupt sequence and should run index repair instead of retrying.
	ErrOrderViolation = errors.New("order violation")

	// ErrKeyspaceExhausted reports that the integer range of the alphabet
	// has no room left in the requested direction.
	ErrKeyspaceExhausted = errors.New("order keyspace exhausted")

	// ErrConfig reports an unusable alphabet configuration.
	ErrConfig = errors.New("invalid order key configuration")
)

// ConfigError is a fatal alphabet configuration problem.
// It is never caused by record data.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("orderkey config: %s: %s", e.Field, e.Message)
}

// Is matches ErrConfig.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

// KeyError describes why a key is malformed.
type KeyError struct {
	Key    string
	Reason string
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("invalid order key %q: %s", e.Key, e.Reason)
}

// Is matches ErrInvalidKey.
func (e *KeyError) Is(target error) bool {
	return target == ErrInvalidKey
}

// OrderViolationError is returned when a key is requested between bounds
// that are equal or inverted.
type OrderViolationError struct {
	Lower string
	Upper string
}

func (e *OrderViolationError) Error() string {
	return fmt.Sprintf("order violation: lower %q >= upper %q", e.Lower, e.Upper)
}

// Is matches ErrOrderViolation.
func (e *OrderViolationError) Is(target error) bool {
	return target == ErrOrderViolation
}

// IsConfigError reports whether err is (or wraps) a configuration error.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrConfig)
}

// IsOrderViolation reports whether err is (or wraps) an order violation.
func IsOrderViolation(err error) bool {
	return errors.Is(err, ErrOrderViolation)
}
