package ndarray

import "errors"

// Common errors.
var (
	// ErrClosed is returned when a manager or array is used after Close.
	ErrClosed = errors.New("resource is closed")
	// ErrUnsupportedLayout is returned when an engine cannot represent the
	// requested buffer, element type or shape.
	ErrUnsupportedLayout = errors.New("unsupported layout")
)
