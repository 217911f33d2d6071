// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

// accelerator.go implements vertex.Accelerator on top of the wgpu HAL.
// GPU initialization is deferred until the first batch so that importing
// the gpu package never fails on machines without a usable adapter.

package gpu

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/vertex"

	// Vulkan backend registers itself on import.
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// computeMinBatch is the smallest batch worth shipping to the GPU.
// Below this the upload and readback cost dominates the transform.
const computeMinBatch = 4096

// ComputeAccelerator transforms vertex batches with a wgpu compute
// shader. The zero value is ready to register; the GPU is initialized
// lazily on the first ProcessBatch call.
type ComputeAccelerator struct {
	mu sync.Mutex

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	buffers  *BufferManager
	pipeline *computePipeline

	gpuReady       bool
	externalDevice bool
	minBatch       int
}

var (
	_ vertex.Accelerator         = (*ComputeAccelerator)(nil)
	_ vertex.DeviceProviderAware = (*ComputeAccelerator)(nil)
)

// Name implements vertex.Accelerator.
func (a *ComputeAccelerator) Name() string { return "wgpu-compute" }

// Init implements vertex.Accelerator. Actual GPU setup is deferred to the
// first batch: registration must stay cheap and must not fail on machines
// without a GPU, where batches fall back to the CPU path instead.
func (a *ComputeAccelerator) Init() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.minBatch == 0 {
		a.minBatch = computeMinBatch
	}
	return nil
}

// CanProcess implements vertex.Accelerator. It is a cheap size gate and
// never touches the GPU.
func (a *ComputeAccelerator) CanProcess(n int) bool {
	a.mu.Lock()
	threshold := a.minBatch
	a.mu.Unlock()
	if threshold == 0 {
		threshold = computeMinBatch
	}
	return n >= threshold
}

// ProcessBatch implements vertex.Accelerator. The first call initializes
// the GPU; if no usable adapter exists the error unwraps to
// vertex.ErrFallbackToCPU so the stage silently takes the CPU path.
func (a *ComputeAccelerator) ProcessBatch(t vertex.Transform, src []vertex.Input) ([]vertex.Output, error) {
	a.mu.Lock()
	if !a.gpuReady {
		if err := a.initGPULocked(); err != nil {
			a.mu.Unlock()
			return nil, fmt.Errorf("%w: %v", vertex.ErrFallbackToCPU, err)
		}
	}
	pipeline := a.pipeline
	a.mu.Unlock()

	return pipeline.Run(t, src)
}

// SetLogger implements the optional logger propagation hook that
// vertex.SetLogger looks for on registered accelerators.
func (a *ComputeAccelerator) SetLogger(l *slog.Logger) {
	setLogger(l)
}

// SetDeviceProvider implements vertex.DeviceProviderAware. It adopts the
// provider's HAL device and queue in place of any device the accelerator
// created itself, so the vertex stage can share a device with a renderer
// instead of opening a second one.
func (a *ComputeAccelerator) SetDeviceProvider(provider any) error {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return fmt.Errorf("wgpu-compute: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return fmt.Errorf("wgpu-compute: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return fmt.Errorf("wgpu-compute: provider HalQueue is not hal.Queue")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// Destroy own resources if we created them.
	a.releaseGPULocked()

	// Use provided resources.
	a.device = device
	a.queue = queue
	a.externalDevice = true
	a.buffers = NewBufferManager(device, queue, BufferManagerConfig{})
	a.pipeline = newComputePipeline(device, queue, a.buffers)
	if err := a.pipeline.Init(); err != nil {
		// The device is still valid for later retries; only the
		// pipeline is missing, so the first batch rebuilds it.
		slogger().Warn("wgpu-compute: pipeline init on shared device failed",
			"error", err)
		return nil
	}
	a.gpuReady = true

	slogger().Debug("wgpu-compute: switched to shared GPU device")
	return nil
}

// Close implements vertex.Accelerator. An adopted device belongs to its
// provider and is left open.
func (a *ComputeAccelerator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.releaseGPULocked()
}

// releaseGPULocked tears down everything the accelerator owns. Caller
// must hold mu.
func (a *ComputeAccelerator) releaseGPULocked() {
	if a.pipeline != nil {
		a.pipeline.Close()
		a.pipeline = nil
	}
	if a.buffers != nil {
		a.buffers.Close()
		a.buffers = nil
	}
	if a.device != nil && !a.externalDevice {
		a.device.Destroy()
	}
	a.device = nil
	a.queue = nil
	if a.instance != nil && !a.externalDevice {
		a.instance.Destroy()
	}
	a.instance = nil
	a.gpuReady = false
	a.externalDevice = false
}

// initGPULocked opens a Vulkan device and builds the compute pipeline.
// Caller must hold mu.
func (a *ComputeAccelerator) initGPULocked() error {
	if a.gpuReady {
		return nil
	}

	// An adopted device may still need its pipeline built, for example
	// when pipeline init failed during SetDeviceProvider.
	if a.device == nil {
		backend, ok := hal.GetBackend(gputypes.BackendVulkan)
		if !ok {
			return fmt.Errorf("vulkan backend not registered")
		}
		instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
		if err != nil {
			return fmt.Errorf("create instance: %w", err)
		}

		adapters := instance.EnumerateAdapters(nil)
		if len(adapters) == 0 {
			instance.Destroy()
			return fmt.Errorf("no GPU adapters found")
		}
		selected := adapters[0]
		for _, ad := range adapters {
			if ad.Info.DeviceType == gputypes.DeviceTypeDiscreteGPU {
				selected = ad
				break
			}
			if ad.Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
				selected = ad
			}
		}

		openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
		if err != nil {
			instance.Destroy()
			return fmt.Errorf("open device: %w", err)
		}

		a.instance = instance
		a.device = openDev.Device
		a.queue = openDev.Queue
		slogger().Info("wgpu-compute: GPU initialized",
			"adapter", selected.Info.Name,
			"type", selected.Info.DeviceType)
	}

	if a.buffers == nil {
		a.buffers = NewBufferManager(a.device, a.queue, BufferManagerConfig{})
	}
	if a.pipeline == nil {
		a.pipeline = newComputePipeline(a.device, a.queue, a.buffers)
	}
	// Failed init keeps the device open so the next batch can retry.
	if err := a.pipeline.Init(); err != nil {
		return fmt.Errorf("init pipeline: %w", err)
	}

	a.gpuReady = true
	return nil
}
