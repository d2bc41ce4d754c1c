package gcode

import (
	"strconv"

	"github.com/aretw0/nonplanar/pkg/geom"
)

// FormatLinear renders a G1 move as
//
//	G1 X<%.3f> Y<%.3f> Z<%.3f>[ E<%.6f>][ F<%.0f>]
//
// E is written only when non-zero and F only when set and non-zero.
func FormatLinear(p geom.Point3, e float64, f Axis) string {
	buf := make([]byte, 0, 64)
	buf = append(buf, "G1 X"...)
	buf = appendFixed(buf, p.X, 3)
	buf = append(buf, " Y"...)
	buf = appendFixed(buf, p.Y, 3)
	buf = append(buf, " Z"...)
	buf = appendFixed(buf, p.Z, 3)
	if e != 0 {
		buf = append(buf, " E"...)
		buf = appendFixed(buf, e, 6)
	}
	if f.Set && f.Value != 0 {
		buf = append(buf, " F"...)
		buf = appendFixed(buf, f.Value, 0)
	}
	return string(buf)
}

func appendFixed(buf []byte, v float64, prec int) []byte {
	if v == 0 {
		v = 0 // -0 prints as 0
	}
	return strconv.AppendFloat(buf, v, 'f', prec, 64)
}
