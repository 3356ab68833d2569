package field

import (
	"strings"
	"testing"
)

func mustRect(t *testing.T, minX, minY, maxX, maxY float64) Rect {
	t.Helper()
	r, err := NewRect(minX, minY, maxX, maxY)
	if err != nil {
		t.Fatalf("NewRect: %v", err)
	}
	return r
}

func TestRectContainsAndIntersects(t *testing.T) {
	r := mustRect(t, 0, 0, 10, 5)

	if !r.Contains(0, 0) || !r.Contains(10, 5) || !r.Contains(5, 2.5) {
		t.Fatal("expected boundary and interior points to be contained")
	}
	if r.Contains(10.1, 2) || r.Contains(5, -0.1) {
		t.Fatal("expected outside points to be rejected")
	}
	if r.Width() != 10 || r.Height() != 5 {
		t.Fatalf("got extent %gx%g, want 10x5", r.Width(), r.Height())
	}

	other := mustRect(t, 9, 4, 20, 20)
	if !r.Intersects(other) {
		t.Fatal("expected overlapping rectangles to intersect")
	}
	far := mustRect(t, 11, 0, 12, 1)
	if r.Intersects(far) {
		t.Fatal("expected disjoint rectangles not to intersect")
	}

	if _, err := NewRect(3, 0, 3, 1); err == nil {
		t.Fatal("expected error for a zero-width rectangle")
	}
}

func TestCircle(t *testing.T) {
	c, err := NewCircle(2, 3, 1.5)
	if err != nil {
		t.Fatalf("NewCircle: %v", err)
	}
	if !c.Contains(2, 3) || !c.Contains(3.5, 3) {
		t.Fatal("expected center and rim to be contained")
	}
	if c.Contains(3.6, 3) {
		t.Fatal("expected point past the rim to be rejected")
	}
	b := c.Bounds()
	if b.MinX != 0.5 || b.MaxY != 4.5 {
		t.Fatalf("unexpected bounds %+v", b)
	}
	if _, err := NewCircle(0, 0, 0); err == nil {
		t.Fatal("expected error for a zero radius")
	}
}

func TestPolygon(t *testing.T) {
	// Right triangle with vertices (0,0), (4,0), (0,4).
	p, err := NewPolygon([]float64{0, 4, 0}, []float64{0, 0, 4})
	if err != nil {
		t.Fatalf("NewPolygon: %v", err)
	}
	if !p.Contains(1, 1) {
		t.Fatal("expected interior point to be contained")
	}
	if p.Contains(3, 3) {
		t.Fatal("expected point past the hypotenuse to be rejected")
	}
	b := p.Bounds()
	if b.MinX != 0 || b.MaxX != 4 || b.MinY != 0 || b.MaxY != 4 {
		t.Fatalf("unexpected bounds %+v", b)
	}

	if _, err := NewPolygon([]float64{0, 1}, []float64{0, 1}); err == nil {
		t.Fatal("expected error for fewer than 3 vertices")
	}
	if _, err := NewPolygon([]float64{0, 1, 2}, []float64{0, 1}); err == nil {
		t.Fatal("expected error for mismatched coordinate lengths")
	}
}

func TestModelGeometryPaintOrder(t *testing.T) {
	g := NewModelGeometry()
	big, _ := NewCircle(5, 5, 3)
	small, _ := NewCircle(5, 5, 1)
	if err := g.AddDomain("body", big, 2); err != nil {
		t.Fatalf("AddDomain: %v", err)
	}
	if err := g.AddSource("organ", small, 2, 1); err != nil {
		t.Fatalf("AddSource: %v", err)
	}

	// The later domain paints over the earlier where they overlap.
	if idx, ok := g.At(5, 5); !ok || g.Domains()[idx].Name != "organ" {
		t.Fatalf("expected organ on top at center, got index %d, ok=%v", idx, ok)
	}
	if idx, ok := g.At(5, 7.5); !ok || g.Domains()[idx].Name != "body" {
		t.Fatalf("expected body at ring, got index %d, ok=%v", idx, ok)
	}
	if _, ok := g.At(20, 20); ok {
		t.Fatal("expected open water outside every domain")
	}

	if err := g.AddDomain("body", big, 1); err == nil {
		t.Fatal("expected error for a duplicate domain name")
	}
	if err := g.AddDomain("bad", big, 0); err == nil {
		t.Fatal("expected error for non-positive conductivity")
	}
}

func TestModelGeometryPhysicsUpdates(t *testing.T) {
	g := NewModelGeometry()
	c, _ := NewCircle(0, 0, 1)
	if err := g.AddSource("emitter", c, 1, 1); err != nil {
		t.Fatalf("AddSource: %v", err)
	}

	if err := g.SetSigma("emitter", 4); err != nil {
		t.Fatalf("SetSigma: %v", err)
	}
	if err := g.SetSource("emitter", -2); err != nil {
		t.Fatalf("SetSource: %v", err)
	}
	d := g.Domains()[0]
	if d.Sigma != 4 || d.Source != -2 {
		t.Fatalf("got sigma=%g source=%g, want 4 and -2", d.Sigma, d.Source)
	}

	if err := g.SetSigma("missing", 1); err == nil || !strings.Contains(err.Error(), "unknown domain") {
		t.Fatalf("expected unknown domain error, got %v", err)
	}
	if err := g.SetSigma("emitter", -1); err == nil {
		t.Fatal("expected error for non-positive conductivity")
	}
}

func TestBuildMesh(t *testing.T) {
	tank := mustRect(t, 0, 0, 10, 10)
	g := NewModelGeometry()
	c, _ := NewCircle(5, 5, 2)
	if err := g.AddDomain("blob", c, 1); err != nil {
		t.Fatalf("AddDomain: %v", err)
	}

	m, err := BuildMesh(tank, g, 11, 11)
	if err != nil {
		t.Fatalf("BuildMesh: %v", err)
	}
	if m.Nodes() != 121 {
		t.Fatalf("got %d nodes, want 121", m.Nodes())
	}
	hx, hy := m.Spacing()
	if hx != 1 || hy != 1 {
		t.Fatalf("got spacing %g,%g, want 1,1", hx, hy)
	}
	if m.Labels[m.Index(5, 5)] != 0 {
		t.Fatal("expected center node inside the blob")
	}
	if m.Labels[m.Index(0, 0)] != -1 {
		t.Fatal("expected corner node in open water")
	}
	if n := m.LabelCount(0); n == 0 || n >= m.Nodes() {
		t.Fatalf("implausible blob node count %d", n)
	}

	if _, err := BuildMesh(tank, g, 2, 11); err == nil {
		t.Fatal("expected error for a grid too coarse")
	}

	outside := NewModelGeometry()
	far, _ := NewCircle(100, 100, 1)
	if err := outside.AddDomain("far", far, 1); err != nil {
		t.Fatalf("AddDomain: %v", err)
	}
	if _, err := BuildMesh(tank, outside, 11, 11); err == nil {
		t.Fatal("expected error for a domain outside the tank")
	}
}
