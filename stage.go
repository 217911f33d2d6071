package vertex

import (
	"errors"
	"sync"

	"github.com/gogpu/vertex/internal/parallel"
)

const (
	// defaultParallelMin is the batch size below which splitting across
	// workers costs more than the per-vertex work saves.
	defaultParallelMin = 4096

	// minChunk is the smallest per-worker vertex range. Ranges are kept
	// at least this large so task handoff stays amortized.
	minChunk = 1024
)

// Stage executes the vertex transform over single vertices and batches.
//
// Invocations are independent: the stage holds no per-vertex state, and
// batch elements may be processed in any order across workers. The only
// ordering guarantee is positional: output slot i always holds the result
// of input slot i.
//
// Stage is safe for concurrent use. A batch in flight sees one consistent
// Transform even if SetTransform is called concurrently.
type Stage struct {
	mu        sync.RWMutex
	transform Transform

	pool        *parallel.WorkerPool
	parallelMin int

	// acceleration controls whether ProcessBatch consults the
	// registered accelerator before using the CPU path.
	acceleration bool

	closed bool
}

// NewStage creates a Stage with the given options. The default stage uses
// DefaultTransform, a worker pool sized to GOMAXPROCS, and the registered
// accelerator (if any) for large batches.
//
// Call Close to release the worker pool when the stage is no longer
// needed.
func NewStage(opts ...Option) *Stage {
	o := defaultStageOptions()
	for _, opt := range opts {
		opt(&o)
	}

	s := &Stage{
		transform:    o.transform,
		parallelMin:  o.parallelMin,
		acceleration: o.acceleration,
	}
	if o.workers != 1 {
		s.pool = parallel.NewWorkerPool(o.workers)
	}
	return s
}

// Transform returns the stage's current uniform parameters.
func (s *Stage) Transform() Transform {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.transform
}

// SetTransform replaces the stage's uniform parameters. The new value
// applies to batches started after the call.
func (s *Stage) SetTransform(t Transform) {
	s.mu.Lock()
	s.transform = t
	s.mu.Unlock()
}

// Process runs the transform for a single vertex.
func (s *Stage) Process(in Input) Output {
	return s.Transform().Apply(in)
}

// ProcessBatch transforms src, writing results into dst at matching
// indices. dst is grown as needed and returned; pass nil to allocate.
//
// Large batches are offloaded to the registered accelerator when
// acceleration is enabled, then split across the worker pool otherwise.
// Accelerator failures fall back to the CPU path transparently; the batch
// always completes.
func (s *Stage) ProcessBatch(dst []Output, src []Input) []Output {
	t := s.Transform()

	if len(src) == 0 {
		if dst == nil {
			return nil
		}
		return dst[:0]
	}

	if out, ok := s.tryAccelerated(t, dst, src); ok {
		return out
	}

	if cap(dst) < len(src) {
		dst = make([]Output, len(src))
	}
	dst = dst[:len(src)]

	s.mu.RLock()
	pool := s.pool
	parallelMin := s.parallelMin
	s.mu.RUnlock()

	if pool == nil || !pool.IsRunning() || len(src) < parallelMin {
		return t.ApplyAll(dst, src)
	}

	s.processParallel(t, pool, dst, src)
	return dst
}

// tryAccelerated attempts to run the batch on the registered accelerator.
// The second return is false when the CPU path should run instead.
func (s *Stage) tryAccelerated(t Transform, dst []Output, src []Input) ([]Output, bool) {
	s.mu.RLock()
	enabled := s.acceleration
	s.mu.RUnlock()
	if !enabled {
		return nil, false
	}

	a := ActiveAccelerator()
	if a == nil || !a.CanProcess(len(src)) {
		return nil, false
	}

	out, err := a.ProcessBatch(t, src)
	if err != nil {
		if errors.Is(err, ErrFallbackToCPU) {
			Logger().Debug("vertex: accelerator declined batch",
				"accelerator", a.Name(), "vertices", len(src))
		} else {
			Logger().Warn("vertex: accelerator failed, falling back to CPU",
				"accelerator", a.Name(), "vertices", len(src), "error", err)
		}
		return nil, false
	}
	if len(out) != len(src) {
		Logger().Warn("vertex: accelerator returned short batch, falling back to CPU",
			"accelerator", a.Name(), "want", len(src), "got", len(out))
		return nil, false
	}

	if dst == nil {
		return out, true
	}
	if cap(dst) < len(out) {
		dst = make([]Output, len(out))
	}
	dst = dst[:len(out)]
	copy(dst, out)
	return dst, true
}

// processParallel splits the batch into contiguous vertex ranges and runs
// them across the pool. Ranges are disjoint, so workers never share
// output slots.
func (s *Stage) processParallel(t Transform, pool *parallel.WorkerPool, dst []Output, src []Input) {
	n := len(src)

	// 2-4 ranges per worker balances load without drowning the queues.
	chunk := (n + pool.Workers()*4 - 1) / (pool.Workers() * 4)
	if chunk < minChunk {
		chunk = minChunk
	}

	work := make([]func(), 0, (n+chunk-1)/chunk)
	for lo := 0; lo < n; lo += chunk {
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		lo, hi := lo, hi
		work = append(work, func() {
			for i := lo; i < hi; i++ {
				dst[i] = t.Apply(src[i])
			}
		})
	}

	pool.ExecuteAll(work)
}

// Workers returns the number of workers the stage uses for parallel
// batches, or 1 when the stage runs serially.
func (s *Stage) Workers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pool == nil {
		return 1
	}
	return s.pool.Workers()
}

// Close releases the stage's worker pool. Batches submitted after Close
// run serially on the calling goroutine. Close is safe to call multiple
// times.
func (s *Stage) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.pool != nil {
		s.pool.Close()
	}
}
