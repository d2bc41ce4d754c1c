// Package plot renders toolpath previews as PNG images.
package plot

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/aretw0/nonplanar/pkg/geom"
)

// ErrNoPoints is returned when there is nothing to draw.
var ErrNoPoints = errors.New("no toolpath points to plot")

// Projection picks the two axes drawn on the page.
type Projection int

const (
	XY Projection = iota // top view
	XZ                   // side view, where nonplanar layers show
	YZ
)

// ParseProjection accepts "xy", "xz" or "yz".
func ParseProjection(s string) (Projection, error) {
	switch strings.ToLower(s) {
	case "xy":
		return XY, nil
	case "", "xz":
		return XZ, nil
	case "yz":
		return YZ, nil
	}
	return XZ, fmt.Errorf("unknown projection %q", s)
}

func (p Projection) axes() (h, v int, hl, vl string) {
	switch p {
	case XY:
		return 0, 1, "X (mm)", "Y (mm)"
	case YZ:
		return 1, 2, "Y (mm)", "Z (mm)"
	default:
		return 0, 2, "X (mm)", "Z (mm)"
	}
}

// Default page size.
const (
	Width  = 8 * vg.Inch
	Height = 6 * vg.Inch
)

// Series is one named polyline.
type Series struct {
	Name   string
	Points []geom.Point3
	Color  color.Color
}

var palette = []color.Color{
	color.RGBA{R: 0x9c, G: 0xa3, B: 0xaf, A: 0xff},
	color.RGBA{R: 0xd9, G: 0x77, B: 0x06, A: 0xff},
	color.RGBA{R: 0x25, G: 0x63, B: 0xeb, A: 0xff},
	color.RGBA{R: 0x16, G: 0xa3, B: 0x4a, A: 0xff},
}

// Toolpath draws each series as a line in the chosen projection.
func Toolpath(title string, proj Projection, series ...Series) (*plot.Plot, error) {
	h, v, hl, vl := proj.axes()

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = hl
	p.Y.Label.Text = vl

	drawn := 0
	for i, s := range series {
		if len(s.Points) == 0 {
			continue
		}
		pts := make(plotter.XYs, len(s.Points))
		for j, q := range s.Points {
			pts[j] = plotter.XY{X: q.Axis(h), Y: q.Axis(v)}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("series %q: %w", s.Name, err)
		}
		line.Color = s.Color
		if line.Color == nil {
			line.Color = palette[i%len(palette)]
		}
		line.Width = vg.Points(0.5)
		p.Add(line)
		if s.Name != "" {
			p.Legend.Add(s.Name, line)
		}
		drawn++
	}
	if drawn == 0 {
		return nil, ErrNoPoints
	}
	p.Legend.Top = true
	p.Legend.Left = false
	return p, nil
}

// WritePNG encodes p as a PNG of the given size.
func WritePNG(w io.Writer, p *plot.Plot, width, height vg.Length) error {
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// SaveFile writes p to path; the extension selects the image format.
func SaveFile(path string, p *plot.Plot) error {
	if err := p.Save(Width, Height, path); err != nil {
		return fmt.Errorf("save plot %s: %w", path, err)
	}
	return nil
}
