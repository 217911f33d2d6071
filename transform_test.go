package vertex

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

func TestApply_ScalesPositionByHalf(t *testing.T) {
	tr := DefaultTransform()

	tests := []struct {
		name string
		pos  mgl32.Vec3
		want mgl32.Vec4
	}{
		{"unit cube corner", mgl32.Vec3{2, 4, 6}, mgl32.Vec4{1, 2, 3, 1}},
		{"ones", mgl32.Vec3{1, 1, 1}, mgl32.Vec4{0.5, 0.5, 0.5, 1}},
		{"negative octant", mgl32.Vec3{-2, -4, -8}, mgl32.Vec4{-1, -2, -4, 1}},
		{"fractional", mgl32.Vec3{0.25, 0.5, 0.75}, mgl32.Vec4{0.125, 0.25, 0.375, 1}},
		{"large coordinates", mgl32.Vec3{65536, 2048, -1024}, mgl32.Vec4{32768, 1024, -512, 1}},
		{"origin", mgl32.Vec3{0, 0, 0}, mgl32.Vec4{0, 0, 0, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tr.Apply(Input{Position: tt.pos}).ClipPosition
			// Halving is exact in binary floating point, so the
			// comparison is bitwise, not approximate.
			if got != tt.want {
				t.Errorf("Apply(%v).ClipPosition = %v, want %v", tt.pos, got, tt.want)
			}
		})
	}
}

func TestApply_WAlwaysOne(t *testing.T) {
	tr := DefaultTransform()

	positions := []mgl32.Vec3{
		{0, 0, 0},
		{2, 4, 6},
		{-1e6, 1e6, -1e6},
		{math32.MaxFloat32, -math32.MaxFloat32, math32.MaxFloat32},
		{math32.SmallestNonzeroFloat32, 0, -math32.SmallestNonzeroFloat32},
		{math32.Inf(1), math32.Inf(-1), 0},
		{math32.NaN(), math32.NaN(), math32.NaN()},
	}
	for _, pos := range positions {
		got := tr.Apply(Input{Position: pos}).ClipPosition
		if got[3] != 1.0 {
			t.Errorf("Apply(%v).ClipPosition.W = %v, want exactly 1.0", pos, got[3])
		}
	}
}

func TestApply_NormalPassthrough(t *testing.T) {
	tr := DefaultTransform()

	normals := []mgl32.Vec3{
		{0, 1, 0},
		{0.3, 0.7, 0.1},
		{-0.577, 0.577, -0.577},
		{0, 0, 0},
		{5, -5, 12}, // deliberately unnormalized, must survive untouched
	}
	for _, n := range normals {
		got := tr.Apply(Input{Normal: n}).Normal
		if got != n {
			t.Errorf("Apply normal %v passed through as %v", n, got)
		}
	}
}

func TestApply_TexCoordPassthrough(t *testing.T) {
	tr := DefaultTransform()

	coords := []mgl32.Vec2{
		{0, 0},
		{1, 1},
		{0.3, 0.7},
		{-0.25, 1.75}, // outside [0,1] is legal and must not be clamped
	}
	for _, uv := range coords {
		got := tr.Apply(Input{TexCoord: uv}).TexCoord
		if got != uv {
			t.Errorf("Apply texCoord %v passed through as %v", uv, got)
		}
	}
}

func TestApply_TangentNeverRead(t *testing.T) {
	tr := DefaultTransform()

	base := Input{
		Position: mgl32.Vec3{2, 4, 6},
		Normal:   mgl32.Vec3{0, 0, 1},
		TexCoord: mgl32.Vec2{0.5, 0.5},
	}

	tangents := []mgl32.Vec4{
		{},
		{1, 0, 0, 1},
		{math32.NaN(), math32.NaN(), math32.NaN(), math32.NaN()},
		{math32.Inf(1), math32.Inf(-1), math32.MaxFloat32, -0.0},
	}

	want := tr.Apply(base)
	for _, tan := range tangents {
		in := base
		in.Tangent = tan
		got := tr.Apply(in)
		if got != want {
			t.Errorf("tangent %v leaked into output: got %+v, want %+v", tan, got, want)
		}
	}
}

func TestApply_UnitCubeCornerScenario(t *testing.T) {
	in := Input{
		Position: mgl32.Vec3{2, 4, 6},
		Normal:   mgl32.Vec3{0, 0, 1},
		TexCoord: mgl32.Vec2{1, 1},
		Tangent:  mgl32.Vec4{1, 0, 0, 1},
	}

	got := DefaultTransform().Apply(in)

	if want := (mgl32.Vec4{1, 2, 3, 1}); got.ClipPosition != want {
		t.Errorf("ClipPosition = %v, want %v", got.ClipPosition, want)
	}
	if got.Normal != in.Normal {
		t.Errorf("Normal = %v, want %v", got.Normal, in.Normal)
	}
	if got.TexCoord != in.TexCoord {
		t.Errorf("TexCoord = %v, want %v", got.TexCoord, in.TexCoord)
	}
}

func TestApply_OriginScenario(t *testing.T) {
	in := Input{
		Position: mgl32.Vec3{0, 0, 0},
		Normal:   mgl32.Vec3{0, 1, 0},
		TexCoord: mgl32.Vec2{0.3, 0.7},
	}

	got := DefaultTransform().Apply(in)

	if want := (mgl32.Vec4{0, 0, 0, 1}); got.ClipPosition != want {
		t.Errorf("ClipPosition = %v, want %v", got.ClipPosition, want)
	}
	if got.Normal != in.Normal {
		t.Errorf("Normal = %v, want %v", got.Normal, in.Normal)
	}
	if got.TexCoord != in.TexCoord {
		t.Errorf("TexCoord = %v, want %v", got.TexCoord, in.TexCoord)
	}
}

func TestApply_PositionLinearity(t *testing.T) {
	// The positional part is linear, but w is pinned at 1 on both sides,
	// so additivity holds after subtracting one w:
	//   T(a+b) = T(a) + T(b) - (0,0,0,1)
	// Scaling by 0.5 is exact and halving commutes with rounding of the
	// sum, so the comparison is again exact.
	tr := DefaultTransform()

	pairs := []struct {
		name string
		a, b mgl32.Vec3
	}{
		{"integers", mgl32.Vec3{2, 4, 6}, mgl32.Vec3{10, 20, 30}},
		{"fractional", mgl32.Vec3{0.25, 0.5, 0.75}, mgl32.Vec3{0.125, 0.25, 0.375}},
		{"mixed signs", mgl32.Vec3{-3, 7, -11}, mgl32.Vec3{5, -2, 13}},
		{"irregular", mgl32.Vec3{0.3, 0.7, 1.9}, mgl32.Vec3{2.6, -0.1, 0.55}},
	}
	for _, tt := range pairs {
		t.Run(tt.name, func(t *testing.T) {
			sum := tr.Apply(Input{Position: tt.a.Add(tt.b)}).ClipPosition

			ca := tr.Apply(Input{Position: tt.a}).ClipPosition
			cb := tr.Apply(Input{Position: tt.b}).ClipPosition
			want := ca.Add(cb).Sub(mgl32.Vec4{0, 0, 0, 1})

			if sum != want {
				t.Errorf("T(a+b) = %v, T(a)+T(b)-(0,0,0,1) = %v", sum, want)
			}
		})
	}
}

func TestApply_SpecialValues(t *testing.T) {
	tr := DefaultTransform()

	t.Run("NaN stays componentwise", func(t *testing.T) {
		got := tr.Apply(Input{Position: mgl32.Vec3{math32.NaN(), 2, 4}}).ClipPosition
		if !math32.IsNaN(got[0]) {
			t.Errorf("x = %v, want NaN", got[0])
		}
		if got[1] != 1 || got[2] != 2 || got[3] != 1 {
			t.Errorf("finite lanes disturbed: %v", got)
		}
	})

	t.Run("infinity scales to infinity", func(t *testing.T) {
		got := tr.Apply(Input{Position: mgl32.Vec3{math32.Inf(1), math32.Inf(-1), 0}}).ClipPosition
		if !math32.IsInf(got[0], 1) || !math32.IsInf(got[1], -1) {
			t.Errorf("got %v, want (+Inf, -Inf, 0, 1)", got)
		}
	})

	t.Run("negative zero keeps its sign", func(t *testing.T) {
		negZero := math32.Copysign(0, -1)
		got := tr.Apply(Input{Position: mgl32.Vec3{negZero, 0, negZero}}).ClipPosition
		if math32.Float32bits(got[0]) != math32.Float32bits(negZero) {
			t.Errorf("x bits = %#08x, want negative zero", math32.Float32bits(got[0]))
		}
		if math32.Float32bits(got[1]) != 0 {
			t.Errorf("y bits = %#08x, want positive zero", math32.Float32bits(got[1]))
		}
	})

	t.Run("denormal halves without flushing", func(t *testing.T) {
		// Smallest normal float32 halves into the denormal range.
		small := math32.Float32frombits(0x00800000)
		got := tr.Apply(Input{Position: mgl32.Vec3{small, 0, 0}}).ClipPosition
		if want := math32.Float32frombits(0x00400000); got[0] != want {
			t.Errorf("x = %g, want denormal %g", got[0], want)
		}
	})
}

func TestApply_CustomScale(t *testing.T) {
	in := Input{Position: mgl32.Vec3{2, 4, 6}}

	tests := []struct {
		name string
		tr   Transform
		want mgl32.Vec4
	}{
		{"identity", UniformScale(1), mgl32.Vec4{2, 4, 6, 1}},
		{"double", UniformScale(2), mgl32.Vec4{4, 8, 12, 1}},
		{"collapse", UniformScale(0), mgl32.Vec4{0, 0, 0, 1}},
		{"mirror", UniformScale(-1), mgl32.Vec4{-2, -4, -6, 1}},
		{"per-axis", Transform{Scale: mgl32.Vec3{1, 0.5, 0.25}}, mgl32.Vec4{2, 2, 1.5, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.tr.Apply(in).ClipPosition
			if got != tt.want {
				t.Errorf("scale %v: ClipPosition = %v, want %v", tt.tr.Scale, got, tt.want)
			}
		})
	}
}

func TestDefaultTransform(t *testing.T) {
	tr := DefaultTransform()
	if want := (mgl32.Vec3{0.5, 0.5, 0.5}); tr.Scale != want {
		t.Errorf("DefaultTransform().Scale = %v, want %v", tr.Scale, want)
	}
	if DefaultScale != 0.5 {
		t.Errorf("DefaultScale = %v, want 0.5", DefaultScale)
	}
}

func TestApplyAll(t *testing.T) {
	tr := DefaultTransform()

	src := []Input{
		{Position: mgl32.Vec3{2, 4, 6}, Normal: mgl32.Vec3{0, 0, 1}, TexCoord: mgl32.Vec2{1, 1}},
		{Position: mgl32.Vec3{0, 0, 0}, Normal: mgl32.Vec3{0, 1, 0}, TexCoord: mgl32.Vec2{0.3, 0.7}},
		{Position: mgl32.Vec3{-2, -4, -8}},
	}

	got := tr.ApplyAll(nil, src)
	if len(got) != len(src) {
		t.Fatalf("len = %d, want %d", len(got), len(src))
	}
	for i := range src {
		if want := tr.Apply(src[i]); got[i] != want {
			t.Errorf("out[%d] = %+v, want %+v", i, got[i], want)
		}
	}
}

func TestApplyAll_ReusesDst(t *testing.T) {
	tr := DefaultTransform()
	src := make([]Input, 16)

	dst := make([]Output, 0, 32)
	got := tr.ApplyAll(dst, src)

	if len(got) != 16 {
		t.Fatalf("len = %d, want 16", len(got))
	}
	if &got[0] != &dst[:1][0] {
		t.Error("ApplyAll reallocated despite sufficient capacity")
	}
}

func TestApplyAll_Empty(t *testing.T) {
	tr := DefaultTransform()

	if got := tr.ApplyAll(nil, nil); len(got) != 0 {
		t.Errorf("ApplyAll(nil, nil) returned %d outputs", len(got))
	}
	if got := tr.ApplyAll(nil, []Input{}); len(got) != 0 {
		t.Errorf("ApplyAll of empty batch returned %d outputs", len(got))
	}
}

func BenchmarkTransform_Apply(b *testing.B) {
	tr := DefaultTransform()
	in := Input{
		Position: mgl32.Vec3{2, 4, 6},
		Normal:   mgl32.Vec3{0, 0, 1},
		TexCoord: mgl32.Vec2{0.5, 0.5},
		Tangent:  mgl32.Vec4{1, 0, 0, 1},
	}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = tr.Apply(in)
	}
}

func BenchmarkTransform_ApplyAll(b *testing.B) {
	tr := DefaultTransform()
	src := make([]Input, 4096)
	for i := range src {
		src[i].Position = mgl32.Vec3{float32(i), float32(i * 2), float32(i * 3)}
	}
	dst := make([]Output, len(src))

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		dst = tr.ApplyAll(dst, src)
	}
}
