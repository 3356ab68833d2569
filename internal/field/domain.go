package field

import "fmt"

// Domain is a named region with a conductivity and an optional source
// density. Later-added domains paint over earlier ones where they
// overlap.
type Domain struct {
	Name   string
	Shape  Shape
	Sigma  float64
	Source float64
}

// ModelGeometry is the ordered registry of domains making up a model's
// geometry. Insertion order is paint order.
type ModelGeometry struct {
	domains []Domain
	index   map[string]int
}

// NewModelGeometry creates an empty geometry.
func NewModelGeometry() *ModelGeometry {
	return &ModelGeometry{index: make(map[string]int)}
}

// AddDomain registers a conductive region. Domain names are unique.
func (g *ModelGeometry) AddDomain(name string, shape Shape, sigma float64) error {
	return g.add(Domain{Name: name, Shape: shape, Sigma: sigma})
}

// AddSource registers a region that both conducts and injects current.
func (g *ModelGeometry) AddSource(name string, shape Shape, sigma, source float64) error {
	return g.add(Domain{Name: name, Shape: shape, Sigma: sigma, Source: source})
}

func (g *ModelGeometry) add(d Domain) error {
	if d.Name == "" {
		return fmt.Errorf("domain name must not be empty")
	}
	if _, exists := g.index[d.Name]; exists {
		return fmt.Errorf("domain %q already defined", d.Name)
	}
	if d.Sigma <= 0 {
		return fmt.Errorf("domain %q: conductivity must be positive, got %g", d.Name, d.Sigma)
	}
	g.index[d.Name] = len(g.domains)
	g.domains = append(g.domains, d)
	return nil
}

// SetSigma updates a domain's conductivity without touching its shape.
// This is the path physics parameters take between solves: no rebuild.
func (g *ModelGeometry) SetSigma(name string, sigma float64) error {
	i, ok := g.index[name]
	if !ok {
		return fmt.Errorf("unknown domain %q", name)
	}
	if sigma <= 0 {
		return fmt.Errorf("domain %q: conductivity must be positive, got %g", name, sigma)
	}
	g.domains[i].Sigma = sigma
	return nil
}

// SetSource updates a domain's source density without touching its shape.
func (g *ModelGeometry) SetSource(name string, source float64) error {
	i, ok := g.index[name]
	if !ok {
		return fmt.Errorf("unknown domain %q", name)
	}
	g.domains[i].Source = source
	return nil
}

// Domains returns the domains in paint order.
func (g *ModelGeometry) Domains() []Domain {
	return append([]Domain(nil), g.domains...)
}

// Len returns the number of domains.
func (g *ModelGeometry) Len() int { return len(g.domains) }

// At returns the index of the topmost domain containing the point, or
// false when the point is in none of them.
func (g *ModelGeometry) At(x, y float64) (int, bool) {
	for i := len(g.domains) - 1; i >= 0; i-- {
		if g.domains[i].Shape.Contains(x, y) {
			return i, true
		}
	}
	return -1, false
}
