package engine

import "errors"

// Common errors.
var (
	ErrEngineNotFound     = errors.New("engine not found")
	ErrDuplicateEngine    = errors.New("engine already registered")
	ErrMalformedModel     = errors.New("malformed model")
	ErrNativeExecution    = errors.New("native execution failed")
	ErrDeviceNotSupported = errors.New("device not supported")
)
