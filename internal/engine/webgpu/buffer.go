//go:build webgpu

package webgpu

import (
	"fmt"
	"unsafe"

	"github.com/go-webgpu/webgpu/wgpu"
)

// paddedSize rounds n up to the 4-byte copy granularity, with a floor of 4
// so empty arrays still get a valid buffer.
func paddedSize(n int) uint64 {
	size := (uint64(n) + 3) &^ 3 //nolint:gosec // n is a byte count.
	if size == 0 {
		size = 4
	}
	return size
}

// upload creates a storage buffer holding data.
func (e *Engine) upload(data []byte) *wgpu.Buffer {
	size := paddedSize(len(data))
	buffer := e.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})
	mapped := unsafe.Slice((*byte)(buffer.GetMappedRange(0, size)), size) //nolint:gosec // mapped range of known size.
	copy(mapped, data)
	buffer.Unmap()
	return buffer
}

// overwrite replaces the contents of dst through a temporary buffer.
func (e *Engine) overwrite(dst *wgpu.Buffer, data []byte) {
	src := e.upload(data)
	defer src.Release()

	e.mu.Lock()
	defer e.mu.Unlock()
	encoder := e.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(src, 0, dst, 0, paddedSize(len(data)))
	e.queue.Submit(encoder.Finish(nil))
}

// download copies n bytes of src to host memory. MapAsync returns once the
// copy has landed, so the result is never partial.
func (e *Engine) download(src *wgpu.Buffer, n int) ([]byte, error) {
	size := paddedSize(n)
	staging := e.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  size,
	})
	defer staging.Release()

	e.mu.Lock()
	defer e.mu.Unlock()
	encoder := e.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(src, 0, staging, 0, size)
	e.queue.Submit(encoder.Finish(nil))

	if err := staging.MapAsync(e.device, wgpu.MapModeRead, 0, size); err != nil {
		return nil, fmt.Errorf("map staging buffer: %w", err)
	}
	mapped := unsafe.Slice((*byte)(staging.GetMappedRange(0, size)), size) //nolint:gosec // mapped range of known size.
	out := make([]byte, n)
	copy(out, mapped)
	staging.Unmap()
	return out, nil
}
