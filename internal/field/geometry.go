// Package field bundles a compact 2-D electrostatic model: geometry
// primitives, a painted domain registry, a structured mesh and a
// finite-difference Poisson solve. It exists so the sweep driver has a
// real model to drive; it is not a general FEM backend.
package field

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Shape is a closed 2-D region tested by point containment.
type Shape interface {
	Contains(x, y float64) bool
	Bounds() Rect
}

// Rect is an axis-aligned rectangle, also used for tank bounds.
type Rect struct {
	MinX, MinY, MaxX, MaxY float64
}

// NewRect validates and constructs a rectangle.
func NewRect(minX, minY, maxX, maxY float64) (Rect, error) {
	if maxX <= minX || maxY <= minY {
		return Rect{}, fmt.Errorf("rectangle has no area: [%g, %g] x [%g, %g]", minX, maxX, minY, maxY)
	}
	return Rect{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY}, nil
}

// Contains reports whether the point lies inside or on the rectangle.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.MinX && x <= r.MaxX && y >= r.MinY && y <= r.MaxY
}

// Bounds returns the rectangle itself.
func (r Rect) Bounds() Rect { return r }

// Width returns the rectangle's extent along x.
func (r Rect) Width() float64 { return r.MaxX - r.MinX }

// Height returns the rectangle's extent along y.
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

// Intersects reports whether two rectangles overlap.
func (r Rect) Intersects(o Rect) bool {
	return r.MinX <= o.MaxX && o.MinX <= r.MaxX && r.MinY <= o.MaxY && o.MinY <= r.MaxY
}

// Circle is a disc centered at (X, Y) with radius R.
type Circle struct {
	X, Y, R float64
}

// NewCircle validates and constructs a circle.
func NewCircle(x, y, r float64) (Circle, error) {
	if r <= 0 {
		return Circle{}, fmt.Errorf("circle radius must be positive, got %g", r)
	}
	return Circle{X: x, Y: y, R: r}, nil
}

// Contains reports whether the point lies inside or on the circle.
func (c Circle) Contains(x, y float64) bool {
	dx := x - c.X
	dy := y - c.Y
	return dx*dx+dy*dy <= c.R*c.R
}

// Bounds returns the circle's bounding box.
func (c Circle) Bounds() Rect {
	return Rect{MinX: c.X - c.R, MinY: c.Y - c.R, MaxX: c.X + c.R, MaxY: c.Y + c.R}
}

// Polygon is a simple closed polygon given by its vertices in order.
type Polygon struct {
	xs, ys []float64
}

// NewPolygon validates and constructs a polygon from vertex coordinates.
func NewPolygon(xs, ys []float64) (Polygon, error) {
	if len(xs) != len(ys) {
		return Polygon{}, fmt.Errorf("polygon has %d x and %d y coordinates", len(xs), len(ys))
	}
	if len(xs) < 3 {
		return Polygon{}, fmt.Errorf("polygon needs at least 3 vertices, got %d", len(xs))
	}
	return Polygon{
		xs: append([]float64(nil), xs...),
		ys: append([]float64(nil), ys...),
	}, nil
}

// Contains tests the point with even-odd ray crossing.
func (p Polygon) Contains(x, y float64) bool {
	inside := false
	n := len(p.xs)
	j := n - 1
	for i := 0; i < n; i++ {
		xi, yi := p.xs[i], p.ys[i]
		xj, yj := p.xs[j], p.ys[j]
		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
		j = i
	}
	return inside
}

// Bounds returns the polygon's bounding box.
func (p Polygon) Bounds() Rect {
	return Rect{
		MinX: floats.Min(p.xs),
		MinY: floats.Min(p.ys),
		MaxX: floats.Max(p.xs),
		MaxY: floats.Max(p.ys),
	}
}
