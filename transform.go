package vertex

import (
	"github.com/go-gl/mathgl/mgl32"
)

// DefaultScale is the per-axis positional scale applied when no explicit
// Transform is configured. Halving each axis is exact in binary floating
// point, so the default transform introduces no rounding error.
const DefaultScale float32 = 0.5

// Transform holds the stage's uniform parameters.
//
// The positional scale is deliberately a parameter rather than a constant:
// the stage multiplies each position component by the matching Scale
// component and fixes the homogeneous w term at 1.0. There is no matrix
// path and no perspective term; Transform is the entire uniform interface
// of the stage.
//
// The zero value scales positions to the origin. Use DefaultTransform or
// UniformScale to build a useful value.
type Transform struct {
	// Scale is the per-axis positional scale.
	Scale mgl32.Vec3
}

// DefaultTransform returns the stage's default parameters: DefaultScale
// on every axis.
func DefaultTransform() Transform {
	return UniformScale(DefaultScale)
}

// UniformScale returns a Transform that scales all three position axes
// by s.
func UniformScale(s float32) Transform {
	return Transform{Scale: mgl32.Vec3{s, s, s}}
}

// Apply runs the vertex transform for a single invocation.
//
// The operation is total: any finite or non-finite float input produces a
// deterministic output with no error channel and no side effects. NaN and
// Inf components pass through the multiply per IEEE-754; nothing is
// clamped or guarded. Normal and TexCoord are copied exactly, and the
// Tangent input is never read.
func (t Transform) Apply(in Input) Output {
	return Output{
		ClipPosition: mgl32.Vec4{
			in.Position[0] * t.Scale[0],
			in.Position[1] * t.Scale[1],
			in.Position[2] * t.Scale[2],
			1.0,
		},
		Normal:   in.Normal,
		TexCoord: in.TexCoord,
	}
}

// ApplyAll runs the transform over src, writing results into dst at the
// same indices. dst is grown as needed and returned; pass nil to allocate.
// Serial helper shared by the CPU batch path and tests; Stage.ProcessBatch
// adds worker-pool parallelism on top of it.
func (t Transform) ApplyAll(dst []Output, src []Input) []Output {
	if cap(dst) < len(src) {
		dst = make([]Output, len(src))
	}
	dst = dst[:len(src)]
	for i := range src {
		dst[i] = t.Apply(src[i])
	}
	return dst
}
