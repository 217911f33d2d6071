package vertex

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Input is one vertex's attribute set, supplied by the external
// attribute-fetch stage. One instance per invocation; the stage never
// mutates it.
//
// Field order matches the attribute binding table (see InputAttributes):
// position at location 0, normal at 1, texCoord at 2, tangent at 3.
// All components are IEEE-754 float32; mgl32 vectors are plain float32
// arrays, so an Input has the same memory layout as the interleaved
// vertex buffer record described by InputLayout.
type Input struct {
	// Position is the object-space position.
	Position mgl32.Vec3

	// Normal is the object-space normal, forwarded unchanged.
	Normal mgl32.Vec3

	// TexCoord is the texture coordinate, forwarded unchanged.
	TexCoord mgl32.Vec2

	// Tangent is the tangent vector with handedness in w.
	// The transform never reads it; it is carried in the record only
	// because the binding contract declares it at location 3.
	Tangent mgl32.Vec4
}

// Output is the per-vertex result consumed by the rasterizer/interpolator.
// Created once per invocation and never mutated afterwards.
type Output struct {
	// ClipPosition is the homogeneous clip-space coordinate.
	// The w component is always 1.0: this stage applies no perspective
	// term and leaves perspective division to fixed-function hardware.
	ClipPosition mgl32.Vec4

	// Normal is the input normal, passed through exactly.
	Normal mgl32.Vec3

	// TexCoord is the input texture coordinate, passed through exactly.
	TexCoord mgl32.Vec2
}
