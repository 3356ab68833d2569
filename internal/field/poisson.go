package field

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Solution is the solved electric potential on a mesh.
type Solution struct {
	Mesh      *Mesh
	Potential []float64
}

// solvePoisson assembles and solves div(sigma grad u) = -f on the mesh
// with u = 0 on the tank walls. sigma and source are per-node fields.
func solvePoisson(m *Mesh, sigma, source []float64) (*Solution, error) {
	n := m.Nodes()
	if len(sigma) != n || len(source) != n {
		return nil, fmt.Errorf("field length mismatch: %d sigma, %d source, %d nodes", len(sigma), len(source), n)
	}

	hx, hy := m.Spacing()
	a := mat.NewDense(n, n, nil)
	b := mat.NewVecDense(n, nil)

	for j := 0; j < m.NY; j++ {
		for i := 0; i < m.NX; i++ {
			c := m.Index(i, j)

			// Grounded tank walls.
			if i == 0 || j == 0 || i == m.NX-1 || j == m.NY-1 {
				a.Set(c, c, 1)
				continue
			}

			// Five-point stencil with edge conductivities averaged
			// between the cell centers they separate.
			neighbors := []struct {
				idx int
				h   float64
			}{
				{m.Index(i-1, j), hx},
				{m.Index(i+1, j), hx},
				{m.Index(i, j-1), hy},
				{m.Index(i, j+1), hy},
			}
			for _, nb := range neighbors {
				s := 0.5 * (sigma[c] + sigma[nb.idx]) / (nb.h * nb.h)
				a.Set(c, nb.idx, s)
				a.Set(c, c, a.At(c, c)-s)
			}
			b.SetVec(c, -source[c])
		}
	}

	var u mat.VecDense
	if err := u.SolveVec(a, b); err != nil {
		return nil, fmt.Errorf("linear solve failed: %w", err)
	}

	potential := make([]float64, n)
	for k := 0; k < n; k++ {
		potential[k] = u.AtVec(k)
	}
	return &Solution{Mesh: m, Potential: potential}, nil
}

// At samples the potential at a tank-space point with bilinear
// interpolation.
func (s *Solution) At(x, y float64) (float64, error) {
	t := s.Mesh.Tank
	if !t.Contains(x, y) {
		return 0, fmt.Errorf("point (%g, %g) outside the tank", x, y)
	}
	hx, hy := s.Mesh.Spacing()

	fi := (x - t.MinX) / hx
	fj := (y - t.MinY) / hy
	i := int(math.Floor(fi))
	j := int(math.Floor(fj))
	if i >= s.Mesh.NX-1 {
		i = s.Mesh.NX - 2
	}
	if j >= s.Mesh.NY-1 {
		j = s.Mesh.NY - 2
	}
	tx := fi - float64(i)
	ty := fj - float64(j)

	u00 := s.Potential[s.Mesh.Index(i, j)]
	u10 := s.Potential[s.Mesh.Index(i+1, j)]
	u01 := s.Potential[s.Mesh.Index(i, j+1)]
	u11 := s.Potential[s.Mesh.Index(i+1, j+1)]

	return (1-tx)*(1-ty)*u00 + tx*(1-ty)*u10 + (1-tx)*ty*u01 + tx*ty*u11, nil
}

// Range returns the minimum and maximum potential over the mesh.
func (s *Solution) Range() (float64, float64) {
	lo, hi := s.Potential[0], s.Potential[0]
	for _, v := range s.Potential[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}
