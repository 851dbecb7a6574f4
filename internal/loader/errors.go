package loader

import "errors"

// Common errors.
var (
	ErrHeaderTooLarge   = errors.New("header exceeds maximum size")
	ErrTensorNotFound   = errors.New("tensor not found")
	ErrUnsupportedDType = errors.New("unsupported dtype")
	ErrOutOfBounds      = errors.New("tensor extends beyond data section")
	ErrSizeMismatch     = errors.New("tensor byte size does not match shape")
	ErrNotGGUF          = errors.New("not a GGUF file")
)
