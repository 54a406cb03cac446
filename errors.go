package canary

import "errors"

// Sentinel error kinds surfaced by the core. Callers should use errors.Is
// against these, never string-match error text.
var (
	// ErrInvalidData covers framing errors, deserialization failures, an
	// empty introduction path, and an unrecognized status byte.
	ErrInvalidData = errors.New("canary: invalid data")
	// ErrNotFound is returned when a path does not resolve to a service.
	ErrNotFound = errors.New("canary: not found")
	// ErrInUse is returned when a registry insert targets an occupied key.
	ErrInUse = errors.New("canary: in use")
	// ErrConnectionClosed is returned on transport EOF or reset.
	ErrConnectionClosed = errors.New("canary: connection closed")
	// ErrTooLarge is returned when a record's declared length exceeds the
	// configured ceiling.
	ErrTooLarge = errors.New("canary: record too large")
	// ErrOther covers cryptographic failures and other foreign errors that
	// don't fit the other kinds.
	ErrOther = errors.New("canary: other error")
	// ErrInvalidConfig is returned by Config.Validate for an unusable
	// setting, namely a non-positive record-size ceiling.
	ErrInvalidConfig = errors.New("canary: invalid config")
)
