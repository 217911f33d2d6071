package vertex

import (
	"github.com/gogpu/gputypes"
)

// Attribute locations of the stage's inputs. These are the stage's external
// contract: pipeline setup must bind vertex buffers so that each attribute
// reaches the shader at exactly this location.
const (
	// LocationPosition is the object-space position, float32x3.
	LocationPosition uint32 = 0

	// LocationNormal is the object-space normal, float32x3.
	LocationNormal uint32 = 1

	// LocationTexCoord is the texture coordinate, float32x2.
	LocationTexCoord uint32 = 2

	// LocationTangent is the tangent, float32x4. Declared for pipeline
	// compatibility; the transform never reads it.
	LocationTangent uint32 = 3
)

// Varying locations of the stage's outputs as consumed by the next stage.
// The clip-space position is not a numbered varying: it is the builtin
// positional output required by the rasterizer.
const (
	// VaryingNormal is the passthrough normal, float32x3.
	VaryingNormal uint32 = 0

	// VaryingTexCoord is the passthrough texture coordinate, float32x2.
	VaryingTexCoord uint32 = 1
)

// Byte strides of the interleaved records used by buffer-backed execution.
const (
	// InputStride is the byte size of one interleaved input record:
	// position (12) + normal (12) + texCoord (8) + tangent (16).
	InputStride uint64 = 48

	// OutputStride is the byte size of one packed output record:
	// clipPosition (16) + normal (12) + texCoord (8).
	OutputStride uint64 = 36
)

// Attribute is one row of the stage's binding table.
type Attribute struct {
	// Name is the semantic name of the attribute or varying.
	Name string

	// Location is the shader location (meaningless for the builtin
	// clip-position output, which carries no location).
	Location uint32

	// Format is the component layout of the value.
	Format gputypes.VertexFormat

	// Offset is the byte offset of the value inside the interleaved
	// record (InputStride or OutputStride wide).
	Offset uint64
}

// InputAttributes returns the stage's input binding table in location
// order. The table is a fresh slice; callers may modify it.
func InputAttributes() []Attribute {
	return []Attribute{
		{Name: "position", Location: LocationPosition, Format: gputypes.VertexFormatFloat32x3, Offset: 0},
		{Name: "normal", Location: LocationNormal, Format: gputypes.VertexFormatFloat32x3, Offset: 12},
		{Name: "texCoord", Location: LocationTexCoord, Format: gputypes.VertexFormatFloat32x2, Offset: 24},
		{Name: "tangent", Location: LocationTangent, Format: gputypes.VertexFormatFloat32x4, Offset: 32},
	}
}

// OutputVaryings returns the stage's varying table in location order.
// Offsets are positions inside the packed output record, whose first 16
// bytes hold the builtin clip position.
func OutputVaryings() []Attribute {
	return []Attribute{
		{Name: "normal", Location: VaryingNormal, Format: gputypes.VertexFormatFloat32x3, Offset: 16},
		{Name: "texCoord", Location: VaryingTexCoord, Format: gputypes.VertexFormatFloat32x2, Offset: 28},
	}
}

// InputLayout returns the interleaved single-buffer vertex layout matching
// InputAttributes, in the form render pipeline descriptors consume.
func InputLayout() gputypes.VertexBufferLayout {
	attrs := InputAttributes()
	entries := make([]gputypes.VertexAttribute, len(attrs))
	for i, a := range attrs {
		entries[i] = gputypes.VertexAttribute{
			ShaderLocation: a.Location,
			Format:         a.Format,
			Offset:         a.Offset,
		}
	}
	return gputypes.VertexBufferLayout{
		ArrayStride: InputStride,
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes:  entries,
	}
}

// FormatSize returns the byte size of a vertex format used by the binding
// table. Unknown formats report 0.
func FormatSize(f gputypes.VertexFormat) uint64 {
	switch f {
	case gputypes.VertexFormatFloat32:
		return 4
	case gputypes.VertexFormatFloat32x2:
		return 8
	case gputypes.VertexFormatFloat32x3:
		return 12
	case gputypes.VertexFormatFloat32x4:
		return 16
	default:
		return 0
	}
}
