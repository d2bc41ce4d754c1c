package mesh

import (
	"errors"
	"fmt"
	"math"

	"github.com/aretw0/nonplanar/pkg/geom"
	"github.com/aretw0/nonplanar/pkg/transform"
)

// ErrNotTriangleSoup is returned when a buffer length is not a multiple of nine.
var ErrNotTriangleSoup = errors.New("mesh buffer length is not a multiple of 9")

// Mesh is a flat vertex buffer: x, y, z per vertex and three vertices per triangle.
type Mesh []float64

// Validate reports whether the buffer holds whole triangles of finite values.
func (m Mesh) Validate() error {
	if len(m)%9 != 0 {
		return fmt.Errorf("%w: got %d values", ErrNotTriangleSoup, len(m))
	}
	for i, v := range m {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &geom.NumericError{Op: fmt.Sprintf("vertex %d", i/3), Cond: math.NaN(), Err: geom.ErrNotFinite}
		}
	}
	return nil
}

// TriangleCount returns the number of whole triangles in the buffer.
func (m Mesh) TriangleCount() int { return len(m) / 9 }

// VertexCount returns the number of vertices in the buffer.
func (m Mesh) VertexCount() int { return len(m) / 3 }

// Vertex returns vertex i.
func (m Mesh) Vertex(i int) geom.Point3 {
	o := i * 3
	return geom.Pt(m[o], m[o+1], m[o+2])
}

// SetVertex overwrites vertex i.
func (m Mesh) SetVertex(i int, p geom.Point3) {
	o := i * 3
	m[o], m[o+1], m[o+2] = p.X, p.Y, p.Z
}

// Triangle returns the three corners of triangle t.
func (m Mesh) Triangle(t int) (a, b, c geom.Point3) {
	return m.Vertex(3 * t), m.Vertex(3*t + 1), m.Vertex(3*t + 2)
}

// Clone returns a copy that shares no storage with m.
func (m Mesh) Clone() Mesh {
	return append(Mesh(nil), m...)
}

// Bounds returns the axis-aligned box around every vertex.
func Bounds(m Mesh) geom.Box {
	var b geom.Box
	for i := 0; i < m.VertexCount(); i++ {
		b.Extend(m.Vertex(i))
	}
	return b
}

// MaxEdge returns the length of the longest triangle edge, or 0 for an empty mesh.
func MaxEdge(m Mesh) float64 {
	longest := 0.0
	for t := 0; t < m.TriangleCount(); t++ {
		a, b, c := m.Triangle(t)
		longest = max(longest, a.DistanceSq(b), b.DistanceSq(c), c.DistanceSq(a))
	}
	return math.Sqrt(longest)
}

// Apply maps every vertex through fn into a new mesh.
func Apply(m Mesh, fn func(geom.Point3) geom.Point3) Mesh {
	out := make(Mesh, len(m))
	for i := 0; i < m.VertexCount(); i++ {
		out.SetVertex(i, fn(m.Vertex(i)))
	}
	return out
}

// Forward evaluates t at every vertex. The result is what a planar print of m looks
// like once its toolpath has been reprojected.
//
// A vertex that maps to NaN or Inf aborts the call with a *geom.NumericError.
func Forward(m Mesh, t transform.Transform) (Mesh, error) {
	if len(m)%9 != 0 {
		return nil, fmt.Errorf("%w: got %d values", ErrNotTriangleSoup, len(m))
	}
	out := make(Mesh, len(m))
	for i := 0; i < m.VertexCount(); i++ {
		v := m.Vertex(i)
		p := t.Evaluate(v)
		if !p.Finite() {
			return nil, &geom.NumericError{Op: fmt.Sprintf("forward vertex %d %v", i, v), Cond: math.NaN(), Err: geom.ErrNotFinite}
		}
		out.SetVertex(i, p)
	}
	return out, nil
}


// Inverse maps every vertex through the numeric inverse of t, using the vertex itself
// as the starting guess. Slicing the result with flat layers and reprojecting the
// toolpath with t yields layers that follow the surface of m.
//
// A nil solver uses default settings. The first vertex that fails to invert aborts the
// call.
func Inverse(m Mesh, t transform.Transform, solver *transform.Solver) (Mesh, error) {
	if len(m)%9 != 0 {
		return nil, fmt.Errorf("%w: got %d values", ErrNotTriangleSoup, len(m))
	}
	if solver == nil {
		solver = transform.NewSolver()
	}
	out := make(Mesh, len(m))
	for i := 0; i < m.VertexCount(); i++ {
		v := m.Vertex(i)
		p, err := solver.Inverse(t, v, v)
		if err != nil {
			return nil, fmt.Errorf("vertex %d: %w", i, err)
		}
		out.SetVertex(i, p)
	}
	return out, nil
}

// Plane builds a flat square of side size centred on the origin at height z, cut into
// divisions×divisions cells of two triangles each.
func Plane(size float64, divisions int, z float64) Mesh {
	if divisions < 1 {
		divisions = 1
	}
	step := size / float64(divisions)
	half := size / 2
	out := make(Mesh, 0, divisions*divisions*18)
	for iy := 0; iy < divisions; iy++ {
		y0 := -half + float64(iy)*step
		y1 := y0 + step
		for ix := 0; ix < divisions; ix++ {
			x0 := -half + float64(ix)*step
			x1 := x0 + step
			out = append(out,
				x0, y0, z, x1, y0, z, x1, y1, z,
				x0, y0, z, x1, y1, z, x0, y1, z,
			)
		}
	}
	return out
}
