package rules

import "github.com/pthm-cable/cytosol/systems"

// Catalog is the ordered list of interactions applied to every cell.
// Order is the arbitration order and is preserved exactly.
type Catalog struct {
	rules []Rule
	view  []systems.Rule
}

// NewCatalog creates a catalog holding rs in order.
func NewCatalog(rs ...Rule) *Catalog {
	c := &Catalog{}
	for _, r := range rs {
		c.Add(r)
	}
	return c
}

// Add appends r.
func (c *Catalog) Add(r Rule) {
	c.rules = append(c.rules, r)
	c.view = append(c.view, r)
}

// Rules returns the rules in order. The slice is shared; do not modify it.
func (c *Catalog) Rules() []systems.Rule {
	if c == nil {
		return nil
	}
	return c.view
}

// Len returns the number of rules.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.rules)
}

// ByMechanism counts rules per mechanism.
func (c *Catalog) ByMechanism() map[Mechanism]int {
	out := make(map[Mechanism]int)
	if c == nil {
		return out
	}
	for _, r := range c.rules {
		out[r.Mechanism()]++
	}
	return out
}
