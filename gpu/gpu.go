//go:build !nogpu

// Package gpu registers the wgpu compute accelerator for batch vertex
// processing.
//
// Import this package to route large batches through a GPU compute shader.
// The accelerator initializes lazily on the first batch; if no usable GPU
// is available (no Vulkan adapter), batches transparently fall back to the
// CPU path and nothing else changes.
//
// Usage:
//
//	import _ "github.com/gogpu/vertex/gpu" // enable GPU batch processing
//
// Builds tagged nogpu compile this package away entirely.
package gpu

import (
	"github.com/gogpu/gpucontext"

	"github.com/gogpu/vertex"
	gpuimpl "github.com/gogpu/vertex/internal/gpu"
)

func init() {
	if err := vertex.RegisterAccelerator(&gpuimpl.ComputeAccelerator{}); err != nil {
		vertex.Logger().Warn("GPU accelerator not available", "err", err)
	}
}

// SetDeviceProvider configures the accelerator to use a shared GPU device
// from an external provider instead of opening its own. This avoids a
// second GPU instance when the host application already renders.
//
// The provider must expose raw HAL handles through HalDevice and HalQueue
// accessors, as gpucontext providers backed by wgpu do.
//
// Call this after importing the package, before the first large batch.
func SetDeviceProvider(provider any) error {
	return vertex.SetAcceleratorDeviceProvider(provider)
}

// SetDeviceContext wires the accelerator to a gpucontext.DeviceProvider,
// typically obtained from the host application's GPU context. It is a
// typed convenience over SetDeviceProvider.
func SetDeviceContext(provider gpucontext.DeviceProvider) error {
	return vertex.SetAcceleratorDeviceProvider(provider)
}
