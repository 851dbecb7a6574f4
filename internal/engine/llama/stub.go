//go:build !llama

package llama

// Built reports whether this binary links llama.cpp.
const Built = false
