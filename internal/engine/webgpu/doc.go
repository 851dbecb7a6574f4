// Package webgpu stores arrays in GPU storage buffers through go-webgpu.
// The engine registers itself only in builds with the webgpu tag, since it
// needs the wgpu_native library at run time. It serves no models and no
// translators; it exists so arrays can be moved to and from the GPU.
package webgpu
