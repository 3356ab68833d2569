// Package report renders sweep results as PNG images for the HTTP API.
package report

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/fieldsim/sweep-core/internal/field"
)

// SeriesPoint is one sweep step in a rendered series.
type SeriesPoint struct {
	Index  int
	Value  float64
	Dirty  bool
	Failed bool
}

// RenderSweepPNG draws the per-step series as a line plot with remesh
// steps marked, and writes it as a PNG. Failed steps are left out of the
// line; a sweep where every step failed still renders an empty frame.
func RenderSweepPNG(w io.Writer, title, yLabel string, points []SeriesPoint) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Step"
	p.Y.Label.Text = yLabel

	linePts := make(plotter.XYs, 0, len(points))
	dirtyPts := make(plotter.XYs, 0, len(points))
	for _, pt := range points {
		if pt.Failed {
			continue
		}
		xy := plotter.XY{X: float64(pt.Index), Y: pt.Value}
		linePts = append(linePts, xy)
		if pt.Dirty {
			dirtyPts = append(dirtyPts, xy)
		}
	}

	if len(linePts) > 0 {
		line, err := plotter.NewLine(linePts)
		if err != nil {
			return fmt.Errorf("failed to build series line: %w", err)
		}
		line.Color = color.RGBA{B: 200, A: 255}
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add("value", line)
	}
	if len(dirtyPts) > 0 {
		scatter, err := plotter.NewScatter(dirtyPts)
		if err != nil {
			return fmt.Errorf("failed to build remesh markers: %w", err)
		}
		scatter.Color = color.RGBA{R: 220, A: 255}
		scatter.Radius = vg.Points(3)
		p.Add(scatter)
		p.Legend.Add("remesh", scatter)
	}
	p.Legend.Top = true

	wt, err := p.WriterTo(10*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("failed to render series plot: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write series plot: %w", err)
	}
	return nil
}

// potentialGrid adapts a solved field to the heat map data interface.
type potentialGrid struct {
	sol *field.Solution
}

func (g potentialGrid) Dims() (int, int) { return g.sol.Mesh.NX, g.sol.Mesh.NY }
func (g potentialGrid) Z(c, r int) float64 {
	return g.sol.Potential[g.sol.Mesh.Index(c, r)]
}
func (g potentialGrid) X(c int) float64 {
	x, _ := g.sol.Mesh.NodeCoord(c, 0)
	return x
}
func (g potentialGrid) Y(r int) float64 {
	_, y := g.sol.Mesh.NodeCoord(0, r)
	return y
}

// RenderFieldPNG draws the solved potential as a heat map over the tank.
func RenderFieldPNG(w io.Writer, title string, sol *field.Solution) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"

	hm := plotter.NewHeatMap(potentialGrid{sol: sol}, palette.Heat(12, 255))
	p.Add(hm)

	wt, err := p.WriterTo(6*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("failed to render field plot: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write field plot: %w", err)
	}
	return nil
}
