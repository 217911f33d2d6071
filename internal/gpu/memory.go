//go:build !nogpu

package gpu

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Buffer management errors.
var (
	// ErrBudgetExceeded is returned when an allocation would exceed the
	// memory budget even after trimming reusable buffers.
	ErrBudgetExceeded = errors.New("vertex-gpu: memory budget exceeded")

	// ErrManagerClosed is returned when operating on a closed manager.
	ErrManagerClosed = errors.New("vertex-gpu: buffer manager closed")

	// ErrAllocationNotFound is returned when an allocation is not tracked
	// by the manager, typically after it was released or freed.
	ErrAllocationNotFound = errors.New("vertex-gpu: allocation not found")

	// ErrReadbackInFlight is returned when a second readback is started
	// while one is still running.
	ErrReadbackInFlight = errors.New("vertex-gpu: a readback is already in flight")
)

// Default memory limits.
const (
	// DefaultBudgetMB is the default GPU buffer budget (256 MB).
	DefaultBudgetMB = 256

	// MinBudgetMB is the minimum allowed buffer budget (16 MB).
	MinBudgetMB = 16

	// DefaultTrimThreshold is the held fraction at which idle buffers
	// start being destroyed (80% of budget).
	DefaultTrimThreshold = 0.8
)

// minBufferSize pads tiny requests so zero-sized batches still bind.
const minBufferSize = 4

// BufferDevice creates and destroys GPU buffers. hal.Device implements it.
type BufferDevice interface {
	CreateBuffer(*hal.BufferDescriptor) (hal.Buffer, error)
	DestroyBuffer(hal.Buffer)
}

// BufferQueue moves bytes between host and GPU memory. hal.Queue
// implements it.
type BufferQueue interface {
	WriteBuffer(buf hal.Buffer, offset uint64, data []byte)
	ReadBuffer(buf hal.Buffer, offset uint64, data []byte) error
}

// Allocation is one live GPU buffer lease handed out by the manager.
type Allocation struct {
	id     uint64
	buffer hal.Buffer
	size   uint64
	usage  gputypes.BufferUsage
}

// Buffer returns the underlying GPU buffer handle.
func (a *Allocation) Buffer() hal.Buffer { return a.buffer }

// Size returns the buffer size in bytes. This is the created size, which
// may exceed the requested size when the lease reuses a larger buffer.
func (a *Allocation) Size() uint64 { return a.size }

// BufferStats contains GPU buffer usage statistics.
type BufferStats struct {
	// BudgetBytes is the total buffer budget in bytes.
	BudgetBytes uint64

	// HeldBytes is the GPU memory currently held, leased and idle alike.
	HeldBytes uint64

	// AvailableBytes is the remaining budget.
	AvailableBytes uint64

	// LiveCount is the number of leased allocations.
	LiveCount int

	// FreeCount is the number of idle buffers awaiting reuse.
	FreeCount int

	// CreateCount is the total number of buffers created.
	CreateCount uint64

	// ReuseCount is the number of leases served from idle buffers.
	ReuseCount uint64

	// TrimCount is the number of idle buffers destroyed to stay within
	// budget.
	TrimCount uint64

	// Utilization is the fraction of budget held (0.0 to 1.0).
	Utilization float64
}

// String returns a human-readable string of buffer stats.
func (s BufferStats) String() string {
	return fmt.Sprintf("Buffers[%.1f%% held, %d/%d MB, %d live, %d idle, %d reuses, %d trims]",
		s.Utilization*100,
		s.HeldBytes/(1024*1024),
		s.BudgetBytes/(1024*1024),
		s.LiveCount,
		s.FreeCount,
		s.ReuseCount,
		s.TrimCount)
}

// BufferManagerConfig holds configuration for creating a BufferManager.
type BufferManagerConfig struct {
	// BudgetMB is the buffer budget in megabytes.
	// Defaults to DefaultBudgetMB if below MinBudgetMB.
	BudgetMB int

	// TrimThreshold is the held fraction at which idle buffers start
	// being destroyed. Defaults to DefaultTrimThreshold if out of (0, 1].
	TrimThreshold float64
}

// BufferManager tracks GPU buffer allocations against a memory budget.
// Released buffers are kept idle per usage class and reused by later
// leases of the same class, so per-batch dispatches do not churn GPU
// allocations. Idle buffers are trimmed when held memory crosses the
// trim threshold.
//
// BufferManager is safe for concurrent use.
type BufferManager struct {
	mu sync.Mutex

	device BufferDevice
	queue  BufferQueue

	budgetBytes   uint64
	heldBytes     uint64
	trimThreshold float64

	// live tracks leased allocations by identifier.
	live map[uint64]*Allocation

	// idle holds released allocations per usage class, ready for reuse.
	idle map[gputypes.BufferUsage][]*Allocation

	nextID uint64

	// reading guards the single outstanding readback.
	reading bool

	createCount uint64
	reuseCount  uint64
	trimCount   uint64

	closed bool
}

// NewBufferManager creates a buffer manager on the given device and queue.
func NewBufferManager(device BufferDevice, queue BufferQueue, config BufferManagerConfig) *BufferManager {
	budgetMB := config.BudgetMB
	if budgetMB < MinBudgetMB {
		budgetMB = DefaultBudgetMB
	}

	threshold := config.TrimThreshold
	if threshold <= 0 || threshold > 1.0 {
		threshold = DefaultTrimThreshold
	}

	return &BufferManager{
		device:        device,
		queue:         queue,
		budgetBytes:   uint64(budgetMB) * 1024 * 1024,
		trimThreshold: threshold,
		live:          make(map[uint64]*Allocation),
		idle:          make(map[gputypes.BufferUsage][]*Allocation),
	}
}

// Acquire leases a buffer of at least size bytes with the given usage.
// An idle buffer of the same class is reused when one is large enough;
// otherwise a new buffer is created against the budget. The lease must be
// returned with Release or destroyed with Free.
func (m *BufferManager) Acquire(label string, size uint64, usage gputypes.BufferUsage) (*Allocation, error) {
	if size < minBufferSize {
		size = minBufferSize
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrManagerClosed
	}

	// First fit from the idle list of this usage class.
	list := m.idle[usage]
	for i, a := range list {
		if a.size >= size {
			m.idle[usage] = append(list[:i], list[i+1:]...)
			m.live[a.id] = a
			m.reuseCount++
			return a, nil
		}
	}

	if m.heldBytes+size > m.budgetBytes {
		m.trimLocked(size)
	}
	if m.heldBytes+size > m.budgetBytes {
		return nil, fmt.Errorf("%w: need %d bytes, %d of %d held",
			ErrBudgetExceeded, size, m.heldBytes, m.budgetBytes)
	}

	buf, err := m.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("vertex-gpu: create %s buffer: %w", label, err)
	}

	m.nextID++
	a := &Allocation{
		id:     m.nextID,
		buffer: buf,
		size:   size,
		usage:  usage,
	}
	m.live[a.id] = a
	m.heldBytes += size
	m.createCount++
	return a, nil
}

// Release returns a leased buffer to the idle list for reuse. The GPU
// buffer stays alive; the caller must not use the allocation afterwards.
func (m *BufferManager) Release(a *Allocation) error {
	if a == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrManagerClosed
	}
	if _, ok := m.live[a.id]; !ok {
		return ErrAllocationNotFound
	}

	delete(m.live, a.id)
	m.idle[a.usage] = append(m.idle[a.usage], a)

	if m.heldBytes > uint64(float64(m.budgetBytes)*m.trimThreshold) {
		m.trimLocked(0)
	}
	return nil
}

// Free destroys an allocation immediately, leased or idle.
func (m *BufferManager) Free(a *Allocation) error {
	if a == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrManagerClosed
	}

	if _, ok := m.live[a.id]; ok {
		delete(m.live, a.id)
		m.destroyLocked(a)
		return nil
	}

	list := m.idle[a.usage]
	for i, idle := range list {
		if idle.id == a.id {
			m.idle[a.usage] = append(list[:i], list[i+1:]...)
			m.destroyLocked(a)
			return nil
		}
	}
	return ErrAllocationNotFound
}

// Upload writes data into a leased buffer at offset zero.
func (m *BufferManager) Upload(a *Allocation, data []byte) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrManagerClosed
	}
	if a == nil {
		m.mu.Unlock()
		return ErrAllocationNotFound
	}
	if _, ok := m.live[a.id]; !ok {
		m.mu.Unlock()
		return ErrAllocationNotFound
	}
	buf := a.buffer
	m.mu.Unlock()

	m.queue.WriteBuffer(buf, 0, data)
	return nil
}

// ReadBack copies len(dst) bytes from a leased buffer into dst. Only one
// readback may be in flight at a time; a second concurrent call returns
// ErrReadbackInFlight. The caller keeps the allocation leased for the
// duration of the call.
func (m *BufferManager) ReadBack(a *Allocation, dst []byte) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrManagerClosed
	}
	if a == nil {
		m.mu.Unlock()
		return ErrAllocationNotFound
	}
	if _, ok := m.live[a.id]; !ok {
		m.mu.Unlock()
		return ErrAllocationNotFound
	}
	if m.reading {
		m.mu.Unlock()
		return ErrReadbackInFlight
	}
	m.reading = true
	buf := a.buffer
	m.mu.Unlock()

	err := m.queue.ReadBuffer(buf, 0, dst)

	m.mu.Lock()
	m.reading = false
	m.mu.Unlock()

	if err != nil {
		return fmt.Errorf("vertex-gpu: readback: %w", err)
	}
	return nil
}

// Stats returns current buffer usage statistics.
func (m *BufferManager) Stats() BufferStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	idleCount := 0
	for _, list := range m.idle {
		idleCount += len(list)
	}

	var utilization float64
	if m.budgetBytes > 0 {
		utilization = float64(m.heldBytes) / float64(m.budgetBytes)
	}

	return BufferStats{
		BudgetBytes:    m.budgetBytes,
		HeldBytes:      m.heldBytes,
		AvailableBytes: m.budgetBytes - m.heldBytes,
		LiveCount:      len(m.live),
		FreeCount:      idleCount,
		CreateCount:    m.createCount,
		ReuseCount:     m.reuseCount,
		TrimCount:      m.trimCount,
		Utilization:    utilization,
	}
}

// SetBudget updates the buffer budget. Lowering it below the held size
// trims idle buffers immediately.
func (m *BufferManager) SetBudget(megabytes int) error {
	if megabytes < MinBudgetMB {
		megabytes = MinBudgetMB
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrManagerClosed
	}

	m.budgetBytes = uint64(megabytes) * 1024 * 1024
	m.trimLocked(0)
	return nil
}

// Close destroys all tracked buffers, leased ones included, and closes
// the manager.
func (m *BufferManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}

	for _, a := range m.live {
		m.device.DestroyBuffer(a.buffer)
	}
	for _, list := range m.idle {
		for _, a := range list {
			m.device.DestroyBuffer(a.buffer)
		}
	}

	m.live = nil
	m.idle = nil
	m.heldBytes = 0
	m.closed = true
}

// destroyLocked destroys one allocation's buffer. Caller must hold mu.
func (m *BufferManager) destroyLocked(a *Allocation) {
	m.device.DestroyBuffer(a.buffer)
	m.heldBytes -= a.size
}

// trimLocked destroys idle buffers until the budget can absorb need more
// bytes and held memory is back under the trim threshold. Leased buffers
// are never trimmed. Caller must hold mu.
func (m *BufferManager) trimLocked(need uint64) {
	threshold := uint64(float64(m.budgetBytes) * m.trimThreshold)

	over := func() bool {
		return m.heldBytes+need > m.budgetBytes || m.heldBytes > threshold
	}

	for usage, list := range m.idle {
		for len(list) > 0 && over() {
			a := list[0]
			list = list[1:]
			m.destroyLocked(a)
			m.trimCount++
		}
		m.idle[usage] = list
		if !over() {
			return
		}
	}
}
