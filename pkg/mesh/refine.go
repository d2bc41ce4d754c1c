package mesh

import (
	"errors"
	"fmt"
)

// ErrInvalidEdgeLength is returned when the edge limit is not positive.
var ErrInvalidEdgeLength = errors.New("max edge length must be positive")

// Refine splits triangles until no edge is longer than maxEdge and returns the refined
// copy together with the number of splits performed. The input is never modified.
//
// Each pass looks at one triangle (a, b, c). If its longest edge is too long, the
// second endpoint of that edge is moved to the edge midpoint in place and the cut-off
// half is appended to the end of the buffer; the same triangle is then examined again.
// Ties between equally long edges pick a→b, then b→c, then c→a. Neighbouring faces are
// left alone, so shared edges may end up with T-junctions.
//
// Non-finite coordinates are rejected: an infinite edge never gets shorter.
func Refine(m Mesh, maxEdge float64) (Mesh, int, error) {
	if err := m.Validate(); err != nil {
		return nil, 0, err
	}
	if !(maxEdge > 0) {
		return nil, 0, fmt.Errorf("%w: %g", ErrInvalidEdgeLength, maxEdge)
	}

	limit := maxEdge * maxEdge
	buf := m.Clone()
	splits := 0
	for t := 0; t < len(buf); {
		i, j, k := t, t+3, t+6
		d1 := distSq(buf, i, j)
		d2 := distSq(buf, j, k)
		d3 := distSq(buf, k, i)
		longest := max(d1, d2, d3)
		if !(longest > limit) {
			t += 9
			continue
		}
		switch longest {
		case d1:
			buf = bisect(buf, i, j, k)
		case d2:
			buf = bisect(buf, j, k, i)
		default:
			buf = bisect(buf, k, i, j)
		}
		splits++
	}
	return buf, splits, nil
}

// bisect moves vertex j to the midpoint of i→j and appends the triangle (mid, j, k).
func bisect(buf Mesh, i, j, k int) Mesh {
	mx := (buf[i] + buf[j]) / 2
	my := (buf[i+1] + buf[j+1]) / 2
	mz := (buf[i+2] + buf[j+2]) / 2
	jx, jy, jz := buf[j], buf[j+1], buf[j+2]
	buf[j], buf[j+1], buf[j+2] = mx, my, mz
	return append(buf,
		mx, my, mz,
		jx, jy, jz,
		buf[k], buf[k+1], buf[k+2],
	)
}

func distSq(buf Mesh, a, b int) float64 {
	dx := buf[a] - buf[b]
	dy := buf[a+1] - buf[b+1]
	dz := buf[a+2] - buf[b+2]
	return dx*dx + dy*dy + dz*dz
}
