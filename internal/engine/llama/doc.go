// Package llama runs GGUF embedding models in process through go-llama.cpp.
// The engine is compiled and registered only with the llama build tag, which
// needs cgo and libllama at link time; default builds carry a stub.
package llama

// EngineName is the name the engine registers under.
const EngineName = "Llama"
