package vertex

import (
	_ "embed"
	"encoding/binary"

	"github.com/chewxy/math32"
)

//go:embed wgsl/stage.wgsl
var stageWGSL string

// EntryPoint is the vertex entry function in the stage's WGSL source.
const EntryPoint = "vs_main"

// Uniform binding of the Params struct in the stage's WGSL source.
// Pipeline setup must bind the 16-byte buffer produced by UniformBytes
// at this group and binding.
const (
	// UniformGroup is the bind group index of the Params uniform.
	UniformGroup uint32 = 0

	// UniformBinding is the binding index of the Params uniform.
	UniformBinding uint32 = 0
)

// UniformSize is the byte size of the Params uniform buffer:
// vec3<f32> scale plus one u32 pad slot.
const UniformSize = 16

// StageWGSL returns the WGSL source of the vertex stage. The source
// declares the binding table from InputAttributes and OutputVaryings
// verbatim and reads its positional scale from the uniform described by
// UniformBytes.
func StageWGSL() string { return stageWGSL }

// UniformBytes serializes t into the little-endian byte layout of the
// WGSL Params struct. The final four bytes are the struct's pad slot and
// stay zero.
func UniformBytes(t Transform) []byte {
	buf := make([]byte, UniformSize)
	le := binary.LittleEndian
	le.PutUint32(buf[0:4], math32.Float32bits(t.Scale[0]))
	le.PutUint32(buf[4:8], math32.Float32bits(t.Scale[1]))
	le.PutUint32(buf[8:12], math32.Float32bits(t.Scale[2]))
	return buf
}
