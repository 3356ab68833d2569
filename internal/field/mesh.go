package field

import "fmt"

// Mesh is a structured grid of nodes over the tank with a domain label
// per node. Building it is the expensive structural step the sweep
// planner works to avoid: label assignment scans every domain for every
// node.
type Mesh struct {
	NX, NY int
	Tank   Rect
	// Labels holds the topmost domain index per node, -1 for open water.
	Labels []int
}

// BuildMesh lays a nx-by-ny node grid over the tank and classifies every
// node against the geometry. Degenerate inputs (a domain entirely
// outside the tank, a grid too coarse to have interior nodes) fail the
// build.
func BuildMesh(tank Rect, geom *ModelGeometry, nx, ny int) (*Mesh, error) {
	if nx < 3 || ny < 3 {
		return nil, fmt.Errorf("grid must be at least 3x3 nodes, got %dx%d", nx, ny)
	}
	for _, d := range geom.Domains() {
		if !tank.Intersects(d.Shape.Bounds()) {
			return nil, fmt.Errorf("domain %q lies entirely outside the tank", d.Name)
		}
	}

	m := &Mesh{
		NX:     nx,
		NY:     ny,
		Tank:   tank,
		Labels: make([]int, nx*ny),
	}
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			x, y := m.NodeCoord(i, j)
			if k, ok := geom.At(x, y); ok {
				m.Labels[m.Index(i, j)] = k
			} else {
				m.Labels[m.Index(i, j)] = -1
			}
		}
	}
	return m, nil
}

// Index maps grid coordinates to the flat node index.
func (m *Mesh) Index(i, j int) int { return j*m.NX + i }

// NodeCoord returns the tank-space position of node (i, j).
func (m *Mesh) NodeCoord(i, j int) (float64, float64) {
	x := m.Tank.MinX + m.Tank.Width()*float64(i)/float64(m.NX-1)
	y := m.Tank.MinY + m.Tank.Height()*float64(j)/float64(m.NY-1)
	return x, y
}

// Spacing returns the grid spacing along x and y.
func (m *Mesh) Spacing() (float64, float64) {
	return m.Tank.Width() / float64(m.NX-1), m.Tank.Height() / float64(m.NY-1)
}

// Nodes returns the total node count.
func (m *Mesh) Nodes() int { return m.NX * m.NY }

// LabelCount returns how many nodes carry the given domain index.
func (m *Mesh) LabelCount(label int) int {
	n := 0
	for _, l := range m.Labels {
		if l == label {
			n++
		}
	}
	return n
}
