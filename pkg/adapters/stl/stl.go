// Package stl converts between STL solids and mesh vertex buffers.
package stl

import (
	"fmt"
	"math"

	"github.com/hschendel/stl"

	"github.com/aretw0/nonplanar/pkg/mesh"
)

// FromSolid flattens the solid's triangles into a mesh. Stored normals are dropped.
func FromSolid(s *stl.Solid) mesh.Mesh {
	out := make(mesh.Mesh, 0, len(s.Triangles)*9)
	for _, t := range s.Triangles {
		for _, v := range t.Vertices {
			out = append(out, float64(v[0]), float64(v[1]), float64(v[2]))
		}
	}
	return out
}

// ToSolid builds a solid from m with a face normal recomputed for every triangle.
func ToSolid(m mesh.Mesh, name string, ascii bool) (*stl.Solid, error) {
	if len(m)%9 != 0 {
		return nil, fmt.Errorf("%w: got %d values", mesh.ErrNotTriangleSoup, len(m))
	}
	s := &stl.Solid{
		Name:      name,
		IsAscii:   ascii,
		Triangles: make([]stl.Triangle, m.TriangleCount()),
	}
	for t := range s.Triangles {
		tri := &s.Triangles[t]
		for k := 0; k < 3; k++ {
			v := m.Vertex(3*t + k)
			tri.Vertices[k] = stl.Vec3{float32(v.X), float32(v.Y), float32(v.Z)}
		}
		tri.Normal = faceNormal(m, t)
	}
	return s, nil
}

// faceNormal returns the unit normal of triangle t, or zero for a degenerate face.
func faceNormal(m mesh.Mesh, t int) stl.Vec3 {
	a, b, c := m.Triangle(t)
	u, v := b.Sub(a), c.Sub(a)
	nx := u.Y*v.Z - u.Z*v.Y
	ny := u.Z*v.X - u.X*v.Z
	nz := u.X*v.Y - u.Y*v.X
	l := math.Sqrt(nx*nx + ny*ny + nz*nz)
	if l == 0 {
		return stl.Vec3{}
	}
	return stl.Vec3{float32(nx / l), float32(ny / l), float32(nz / l)}
}

// ReadFile loads an ASCII or binary STL file as a mesh, returning the solid name.
func ReadFile(path string) (mesh.Mesh, string, error) {
	s, err := stl.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read stl %s: %w", path, err)
	}
	return FromSolid(s), s.Name, nil
}

// WriteFile saves m as an STL file.
func WriteFile(path string, m mesh.Mesh, name string, ascii bool) error {
	s, err := ToSolid(m, name, ascii)
	if err != nil {
		return err
	}
	if err := s.WriteFile(path); err != nil {
		return fmt.Errorf("write stl %s: %w", path, err)
	}
	return nil
}
