package domain

import "errors"

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// NetworkError represents a network-related error that may be retriable
type NetworkError struct {
	Op        string // Operation that failed (e.g., "connect", "read", "place_order")
	Err       error  // Underlying error
	Retriable bool   // Whether this error is retriable
}

func (e *NetworkError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *NetworkError) IsRetriable() bool {
	return e.Retriable
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a new retriable network error
func NewNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: true}
}

// NewFatalNetworkError creates a non-retriable network error
func NewFatalNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: false}
}

// ConfigError represents a configuration or rule-file error (never retriable,
// fatal at startup)
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) IsRetriable() bool {
	return false
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

var (
	// ErrConnectionFailed is returned when the feed websocket cannot connect. Usually retriable.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrInsufficientData is returned when a feature field a caller needs is not yet computable.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrUnknownSymbol is returned when a symbol has no window in the feature cache.
	ErrUnknownSymbol = errors.New("unknown symbol")

	// ErrOrderRejected is returned when the execution venue refuses an order. Not retriable.
	ErrOrderRejected = errors.New("order rejected")

	// ErrDuplicateTrigger is returned when a trigger ID has already been dispatched.
	ErrDuplicateTrigger = errors.New("duplicate trigger")

	// ErrConfigNotFound is returned when the configuration file is missing
	ErrConfigNotFound = errors.New("configuration not found")
)
