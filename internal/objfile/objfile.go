// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package objfile reads Wavefront OBJ geometry into vertex input batches.
//
// The loader flattens indexed faces into non-indexed triangles, one
// vertex.Input per corner, so the result feeds straight into a Stage
// batch. Polygons become triangle fans. Missing normals are derived per
// face, missing texture coordinates default to zero, and tangents are
// computed from texture coordinate gradients where faces have them.
//
// Only geometry directives are interpreted: v, vt, vn and f. Grouping,
// material and smoothing directives are skipped.
package objfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/vertex"
)

// ErrNoGeometry is returned by Load and Decode when the stream contains
// no faces.
var ErrNoGeometry = errors.New("objfile: no face geometry")

// defaultTangent is used when a face has no usable texture coordinates.
var defaultTangent = mgl32.Vec4{1, 0, 0, 1}

// maxLineBytes bounds a single OBJ line. Generated meshes occasionally
// emit very long polygon rows.
const maxLineBytes = 1 << 20

// Load reads the OBJ file at path into a vertex batch.
func Load(path string) ([]vertex.Input, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("objfile: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads OBJ geometry from r into a vertex batch.
func Decode(r io.Reader) ([]vertex.Input, error) {
	d := &decoder{}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for sc.Scan() {
		d.line++
		if err := d.parseLine(sc.Text()); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("objfile: read: %w", err)
	}
	if len(d.batch) == 0 {
		return nil, ErrNoGeometry
	}
	return d.batch, nil
}

// corner is one resolved face corner: indices into the decoder's pools,
// -1 where the OBJ face omits a reference.
type corner struct {
	pos  int
	tex  int
	norm int
}

type decoder struct {
	positions []mgl32.Vec3
	texCoords []mgl32.Vec2
	normals   []mgl32.Vec3

	batch []vertex.Input
	line  int
}

func (d *decoder) errf(format string, args ...any) error {
	return fmt.Errorf("objfile: line %d: %s", d.line, fmt.Sprintf(format, args...))
}

func (d *decoder) parseLine(raw string) error {
	row := strings.TrimSpace(raw)
	if row == "" || strings.HasPrefix(row, "#") {
		return nil
	}

	fields := strings.Fields(row)
	switch fields[0] {
	case "v":
		p, err := d.parseVec3(fields[1:])
		if err != nil {
			return err
		}
		d.positions = append(d.positions, p)
	case "vt":
		t, err := d.parseVec2(fields[1:])
		if err != nil {
			return err
		}
		d.texCoords = append(d.texCoords, t)
	case "vn":
		n, err := d.parseVec3(fields[1:])
		if err != nil {
			return err
		}
		d.normals = append(d.normals, n)
	case "f":
		return d.parseFace(fields[1:])
	}
	// Grouping, object, smoothing and material rows are skipped.
	return nil
}

// parseVec3 reads three coordinates. A fourth component, as in "v x y z w",
// is tolerated and dropped.
func (d *decoder) parseVec3(fields []string) (mgl32.Vec3, error) {
	if len(fields) < 3 {
		return mgl32.Vec3{}, d.errf("want 3 coordinates, got %d", len(fields))
	}
	var v mgl32.Vec3
	for i := 0; i < 3; i++ {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return mgl32.Vec3{}, d.errf("bad coordinate %q", fields[i])
		}
		v[i] = float32(f)
	}
	return v, nil
}

// parseVec2 reads two coordinates. A third component, as in "vt u v w",
// is tolerated and dropped.
func (d *decoder) parseVec2(fields []string) (mgl32.Vec2, error) {
	if len(fields) < 2 {
		return mgl32.Vec2{}, d.errf("want 2 coordinates, got %d", len(fields))
	}
	var v mgl32.Vec2
	for i := 0; i < 2; i++ {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return mgl32.Vec2{}, d.errf("bad coordinate %q", fields[i])
		}
		v[i] = float32(f)
	}
	return v, nil
}

// resolveIndex turns a 1-based OBJ index into a 0-based pool index.
// Negative values count back from the end of the pool.
func (d *decoder) resolveIndex(raw string, count int) (int, error) {
	i, err := strconv.Atoi(raw)
	if err != nil {
		return 0, d.errf("bad index %q", raw)
	}
	if i == 0 {
		return 0, d.errf("index 0 is not valid, OBJ indices are 1-based")
	}
	if i < 0 {
		i += count
	} else {
		i--
	}
	if i < 0 || i >= count {
		return 0, d.errf("index %s out of range, pool has %d entries", raw, count)
	}
	return i, nil
}

// parseCorner splits one face token: "p", "p/t", "p//n" or "p/t/n".
func (d *decoder) parseCorner(token string) (corner, error) {
	parts := strings.Split(token, "/")
	if len(parts) > 3 {
		return corner{}, d.errf("bad face corner %q", token)
	}

	c := corner{tex: -1, norm: -1}
	pos, err := d.resolveIndex(parts[0], len(d.positions))
	if err != nil {
		return corner{}, err
	}
	c.pos = pos

	if len(parts) > 1 && parts[1] != "" {
		if c.tex, err = d.resolveIndex(parts[1], len(d.texCoords)); err != nil {
			return corner{}, err
		}
	}
	if len(parts) > 2 && parts[2] != "" {
		if c.norm, err = d.resolveIndex(parts[2], len(d.normals)); err != nil {
			return corner{}, err
		}
	}
	return c, nil
}

func (d *decoder) parseFace(tokens []string) error {
	if len(tokens) < 3 {
		return d.errf("face needs at least 3 corners, got %d", len(tokens))
	}

	corners := make([]corner, len(tokens))
	for i, token := range tokens {
		c, err := d.parseCorner(token)
		if err != nil {
			return err
		}
		corners[i] = c
	}

	// Fan triangulation around the first corner.
	for i := 2; i < len(corners); i++ {
		d.emitTriangle(corners[0], corners[i-1], corners[i])
	}
	return nil
}

// emitTriangle appends three vertex inputs for one triangle, filling in
// whatever the face corners do not reference.
func (d *decoder) emitTriangle(a, b, c corner) {
	p0 := d.positions[a.pos]
	p1 := d.positions[b.pos]
	p2 := d.positions[c.pos]

	faceNormal := triangleNormal(p0, p1, p2)
	tangent := defaultTangent
	if a.tex >= 0 && b.tex >= 0 && c.tex >= 0 {
		tangent = triangleTangent(p0, p1, p2,
			d.texCoords[a.tex], d.texCoords[b.tex], d.texCoords[c.tex])
	}

	for _, cn := range []corner{a, b, c} {
		in := vertex.Input{
			Position: d.positions[cn.pos],
			Normal:   faceNormal,
			Tangent:  tangent,
		}
		if cn.norm >= 0 {
			in.Normal = d.normals[cn.norm]
		}
		if cn.tex >= 0 {
			in.TexCoord = d.texCoords[cn.tex]
		}
		d.batch = append(d.batch, in)
	}
}

// triangleNormal returns the unit normal of a triangle, or the zero
// vector for degenerate geometry.
func triangleNormal(p0, p1, p2 mgl32.Vec3) mgl32.Vec3 {
	n := p1.Sub(p0).Cross(p2.Sub(p0))
	if l := n.Len(); l > 0 {
		return n.Mul(1 / l)
	}
	return mgl32.Vec3{}
}

// triangleTangent derives the tangent of a triangle from its texture
// coordinate gradients. The w component carries the bitangent handedness.
// Degenerate texture mappings fall back to the default tangent.
func triangleTangent(p0, p1, p2 mgl32.Vec3, t0, t1, t2 mgl32.Vec2) mgl32.Vec4 {
	e1 := p1.Sub(p0)
	e2 := p2.Sub(p0)
	du1, dv1 := t1[0]-t0[0], t1[1]-t0[1]
	du2, dv2 := t2[0]-t0[0], t2[1]-t0[1]

	det := du1*dv2 - du2*dv1
	if det == 0 {
		return defaultTangent
	}

	r := 1 / det
	t := mgl32.Vec3{
		(e1[0]*dv2 - e2[0]*dv1) * r,
		(e1[1]*dv2 - e2[1]*dv1) * r,
		(e1[2]*dv2 - e2[2]*dv1) * r,
	}
	l := t.Len()
	if l == 0 {
		return defaultTangent
	}
	t = t.Mul(1 / l)

	w := float32(1)
	if det < 0 {
		w = -1
	}
	return mgl32.Vec4{t[0], t[1], t[2], w}
}
