package vertex

import (
	"errors"
	"sync"
)

// ErrFallbackToCPU indicates the accelerator cannot handle this batch.
// The caller should transparently fall back to CPU processing.
var ErrFallbackToCPU = errors.New("vertex: falling back to CPU processing")

// Accelerator is an optional batch-processing provider, typically GPU
// backed.
//
// When registered via RegisterAccelerator, Stage.ProcessBatch tries the
// accelerator first for batches it reports it can process. If the
// accelerator returns ErrFallbackToCPU or any error, processing
// transparently falls back to the CPU path.
//
// Implementations are provided by backend packages. Users opt in via
// blank import:
//
//	import _ "github.com/gogpu/vertex/gpu" // enables GPU batches
type Accelerator interface {
	// Name returns the accelerator name (e.g., "wgpu-compute").
	Name() string

	// Init initializes accelerator resources. Called once during
	// registration.
	Init() error

	// Close releases accelerator resources.
	Close()

	// CanProcess reports whether a batch of n vertices is worth
	// accelerating. This is a fast check used to skip the accelerator
	// entirely for small batches.
	CanProcess(n int) bool

	// ProcessBatch transforms src under the uniform parameters t,
	// returning one output per input in the same order.
	// Returns ErrFallbackToCPU if the batch cannot be accelerated.
	ProcessBatch(t Transform, src []Input) ([]Output, error)
}

// DeviceProviderAware is an optional interface for accelerators that can
// share GPU resources with an external provider (e.g., a host application
// owning the device). When SetDeviceProvider is called, the accelerator
// reuses the provided GPU device instead of creating its own.
type DeviceProviderAware interface {
	SetDeviceProvider(provider any) error
}

var (
	accelMu sync.RWMutex
	accel   Accelerator
)

// RegisterAccelerator registers an accelerator for optional batch offload.
//
// Only one accelerator can be registered. Subsequent calls replace the
// previous one. The accelerator's Init() method is called during
// registration. If Init() fails, the accelerator is not registered and
// the error is returned.
//
// Typical usage via blank import in backend packages:
//
//	func init() {
//	    vertex.RegisterAccelerator(&ComputeAccelerator{})
//	}
func RegisterAccelerator(a Accelerator) error {
	if a == nil {
		return errors.New("vertex: accelerator must not be nil")
	}
	if err := a.Init(); err != nil {
		return err
	}
	propagateLogger(a, Logger())
	accelMu.Lock()
	old := accel
	accel = a
	accelMu.Unlock()
	if old != nil {
		old.Close()
	}
	return nil
}

// UnregisterAccelerator removes and closes the registered accelerator,
// if any. Stages fall back to CPU processing afterwards.
func UnregisterAccelerator() {
	accelMu.Lock()
	old := accel
	accel = nil
	accelMu.Unlock()
	if old != nil {
		old.Close()
	}
}

// ActiveAccelerator returns the currently registered accelerator, or nil
// if none.
func ActiveAccelerator() Accelerator {
	accelMu.RLock()
	a := accel
	accelMu.RUnlock()
	return a
}

// SetAcceleratorDeviceProvider passes a device provider to the registered
// accelerator, enabling GPU device sharing. If no accelerator is
// registered or it doesn't support device sharing, this is a no-op.
//
// The provider should implement HalDevice() any and HalQueue() any
// methods that return wgpu/hal types.
func SetAcceleratorDeviceProvider(provider any) error {
	a := ActiveAccelerator()
	if a == nil {
		return nil
	}
	if dpa, ok := a.(DeviceProviderAware); ok {
		return dpa.SetDeviceProvider(provider)
	}
	return nil
}
