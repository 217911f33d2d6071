// Package vertex implements the programmable vertex stage of a GPU render
// pipeline as a reusable Go library.
//
// # Overview
//
// vertex models the stage that consumes per-vertex attributes (position,
// normal, texture coordinate, tangent) and produces a clip-space position
// plus interpolation varyings for the rasterizer. The transform itself is a
// pure function over IEEE-754 float32 records; the library adds the
// surrounding machinery a real pipeline needs: the attribute/varying binding
// tables, batch execution across CPU workers, and an optional GPU compute
// path built on gogpu/wgpu.
//
// # Quick Start
//
//	import "github.com/gogpu/vertex"
//
//	stage := vertex.NewStage()
//	defer stage.Close()
//
//	out := stage.Process(vertex.Input{
//	    Position: mgl32.Vec3{2, 4, 6},
//	    Normal:   mgl32.Vec3{0, 1, 0},
//	    TexCoord: mgl32.Vec2{0.3, 0.7},
//	})
//	// out.ClipPosition == mgl32.Vec4{1, 2, 3, 1}
//
// Batches run in parallel across a worker pool:
//
//	outputs := stage.ProcessBatch(nil, inputs)
//
// # GPU Acceleration
//
// Importing the gpu subpackage registers a wgpu compute accelerator that
// executes large batches on the GPU, falling back to the CPU path when no
// device is available:
//
//	import _ "github.com/gogpu/vertex/gpu"
//
// # Architecture
//
// The library is organized into:
//   - Public API: Input, Output, Transform, Stage, layout tables
//   - pipeline/: attachment and pipeline descriptors for wiring the stage
//     into a render pass
//   - internal/gpu: wgpu/hal compute dispatch, buffer memory management
//   - internal/parallel: work-stealing worker pool for CPU batches
//
// # Coordinate Conventions
//
// Positions are object-space float32 vectors. The stage emits homogeneous
// clip coordinates with w fixed at 1.0; no perspective division or
// model/view/projection transform is applied. The positional scale is a
// uniform parameter (see Transform), defaulting to 0.5 per axis.
package vertex

// Version information
const (
	// Version is the current version of the library
	Version = "0.2.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 2

	// VersionPatch is the patch version
	VersionPatch = 0
)
