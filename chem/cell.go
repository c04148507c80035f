package chem

import (
	"fmt"
	"sort"
)

// Cell is one discretized compartment: the populations it holds plus the
// physical volume it represents. Volume is assigned externally.
type Cell struct {
	molecules map[Identity]*Population
	volume    float64
}

// NewCell creates an empty compartment.
func NewCell() Cell {
	return Cell{molecules: make(map[Identity]*Population)}
}

// Population returns the population for id, or nil if absent.
// The returned pointer stays valid until the entry is pruned.
func (c *Cell) Population(id Identity) *Population {
	return c.molecules[id]
}

// GetOrCreate returns the population for id, inserting an empty free one if needed.
func (c *Cell) GetOrCreate(id Identity) *Population {
	if c.molecules == nil {
		c.molecules = make(map[Identity]*Population)
	}
	p, ok := c.molecules[id]
	if !ok {
		p = &Population{}
		c.molecules[id] = p
	}
	return p
}

// MustPopulation returns the population for id and panics if the cell has no
// entry for it. Use it only where the entry is known to exist.
func (c *Cell) MustPopulation(id Identity) *Population {
	p, ok := c.molecules[id]
	if !ok {
		panic(fmt.Sprintf("chem: cell has no entry for %s", id))
	}
	return p
}

// Deposit merges amount of id into the cell with the given binding state.
func (c *Cell) Deposit(id Identity, amount float64, attached bool) {
	c.GetOrCreate(id).Merge(Population{Count: amount, Attached: attached})
}

// Produce adds amount of id made by a reaction. A slot that already holds
// mass keeps its binding state; an empty slot takes attached.
func (c *Cell) Produce(id Identity, amount float64, attached bool) {
	if amount <= 0 {
		return
	}
	p := c.GetOrCreate(id)
	if p.Count <= 0 {
		p.Attached = attached
	}
	p.Count += amount
}

// Count returns the amount of id, zero if absent.
func (c *Cell) Count(id Identity) float64 {
	if p, ok := c.molecules[id]; ok {
		return p.Count
	}
	return 0
}

// Attached reports whether id is held bound to a surface in this cell.
func (c *Cell) Attached(id Identity) bool {
	if p, ok := c.molecules[id]; ok {
		return p.Attached
	}
	return false
}

// Concentration returns count per unit volume. A cell without a positive
// volume reports zero.
func (c *Cell) Concentration(id Identity) float64 {
	if c.volume <= 0 {
		return 0
	}
	return c.Count(id) / c.volume
}

// Volume returns the compartment volume.
func (c *Cell) Volume() float64 {
	return c.volume
}

// SetVolume assigns the compartment volume.
func (c *Cell) SetVolume(v float64) {
	c.volume = v
}

// Len returns the number of entries, including zero-count ones.
func (c *Cell) Len() int {
	return len(c.molecules)
}

// Range calls fn for every entry until fn returns false. Iteration order is
// unspecified; fn must not insert or delete entries.
func (c *Cell) Range(fn func(id Identity, p *Population) bool) {
	for id, p := range c.molecules {
		if !fn(id, p) {
			return
		}
	}
}

// Identities returns the identities present, sorted for deterministic iteration.
func (c *Cell) Identities() []Identity {
	return c.AppendIdentities(make([]Identity, 0, len(c.molecules)))
}

// AppendIdentities appends the sorted identities present to dst and returns
// the extended slice. Only the appended part is sorted.
func (c *Cell) AppendIdentities(dst []Identity) []Identity {
	start := len(dst)
	for id := range c.molecules {
		dst = append(dst, id)
	}
	SortIdentities(dst[start:])
	return dst
}

// Remove deletes the entry for id.
func (c *Cell) Remove(id Identity) {
	delete(c.molecules, id)
}

// PruneEmpty deletes entries whose count is exactly zero and returns how
// many were removed.
func (c *Cell) PruneEmpty() int {
	n := 0
	for id, p := range c.molecules {
		if p.Count == 0 {
			delete(c.molecules, id)
			n++
		}
	}
	return n
}

// SortIdentities orders identities by kind, then class, then variant.
func SortIdentities(ids []Identity) {
	sort.Slice(ids, func(i, j int) bool {
		a, b := ids[i], ids[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Class != b.Class {
			return a.Class < b.Class
		}
		return a.Variant < b.Variant
	})
}
