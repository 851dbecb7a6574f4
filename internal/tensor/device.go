package tensor

import (
	"fmt"
	"strconv"
	"strings"
)

// DeviceType is the kind of compute target.
type DeviceType int

// Supported device kinds.
const (
	DeviceCPU DeviceType = iota
	DeviceGPU
)

// String returns the lower-case device kind.
func (t DeviceType) String() string {
	switch t {
	case DeviceCPU:
		return "cpu"
	case DeviceGPU:
		return "gpu"
	default:
		return "unknown"
	}
}

// Device is a logical compute target: a kind plus an ordinal.
// It is a plain value and carries no ownership.
type Device struct {
	Type DeviceType
	ID   int
}

// CPU returns the host device.
func CPU() Device {
	return Device{Type: DeviceCPU}
}

// GPU returns the GPU with the given ordinal.
func GPU(id int) Device {
	return Device{Type: DeviceGPU, ID: id}
}

// IsCPU reports whether d is the host device.
func (d Device) IsCPU() bool {
	return d.Type == DeviceCPU
}

// IsGPU reports whether d is a GPU.
func (d Device) IsGPU() bool {
	return d.Type == DeviceGPU
}

// String formats the device as "cpu()" or "gpu(0)".
func (d Device) String() string {
	if d.Type == DeviceCPU {
		return "cpu()"
	}
	return fmt.Sprintf("%s(%d)", d.Type, d.ID)
}

// ParseDevice parses "cpu", "cpu()", "gpu", "gpu(1)" or "gpu1".
func ParseDevice(s string) (Device, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	kind, rest := s, ""
	if i := strings.IndexAny(s, "(0123456789"); i >= 0 {
		kind, rest = s[:i], strings.Trim(s[i:], "()")
	}

	switch kind {
	case "cpu":
		return CPU(), nil
	case "gpu", "cuda":
		if rest == "" {
			return GPU(0), nil
		}
		id, err := strconv.Atoi(rest)
		if err != nil || id < 0 {
			return Device{}, fmt.Errorf("invalid device ordinal in %q", s)
		}
		return GPU(id), nil
	default:
		return Device{}, fmt.Errorf("unknown device %q", s)
	}
}
