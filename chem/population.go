package chem

import "fmt"

// Population is the amount of one Identity in one Cell.
// Count is kept non-negative by convention. Attached marks populations bound
// to a surface; those never diffuse.
type Population struct {
	Count    float64
	Attached bool
}

// Merge adds other into p. If p already holds a nonzero amount its Attached
// flag must agree with other's; mixing bound and free mass in one slot panics.
// An empty slot adopts other's flag.
func (p *Population) Merge(other Population) {
	if p.Count != 0 && p.Attached != other.Attached {
		panic(fmt.Sprintf("chem: merging attached=%v into population with attached=%v", other.Attached, p.Attached))
	}
	if p.Count == 0 {
		p.Attached = other.Attached
	}
	p.Count += other.Count
}

// Take removes up to amount from p and returns what was removed.
func (p *Population) Take(amount float64) float64 {
	if amount <= 0 {
		return 0
	}
	if amount > p.Count {
		amount = p.Count
	}
	p.Count -= amount
	return amount
}

// ClampNonNegative floors Count at zero.
func (p *Population) ClampNonNegative() {
	if p.Count < 0 {
		p.Count = 0
	}
}
