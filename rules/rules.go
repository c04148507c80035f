// Package rules provides the built-in interaction kinds and the ordered
// catalog handed to the medium.
package rules

import (
	"fmt"

	"github.com/pthm-cable/cytosol/chem"
	"github.com/pthm-cable/cytosol/systems"
)

// Mechanism names the kind of an interaction.
type Mechanism uint8

const (
	MechPhosphorylation Mechanism = iota
	MechDephosphorylation
	MechComplexFormation
)

var mechanismNames = [...]string{
	MechPhosphorylation:   "phosphorylation",
	MechDephosphorylation: "dephosphorylation",
	MechComplexFormation:  "complex_formation",
}

func (m Mechanism) String() string {
	if int(m) < len(mechanismNames) {
		return mechanismNames[m]
	}
	return fmt.Sprintf("mechanism(%d)", uint8(m))
}

// Default energy cost per converted unit.
const (
	PhosphorylationCost   = 0.5
	DephosphorylationCost = 0.1
	ComplexFormationCost  = 0.2
)

// Rule is a catalog entry: an arbitrated interaction with a known mechanism.
type Rule interface {
	systems.Rule
	Mechanism() Mechanism
}

// Phosphorylation converts Target into Product at a rate that saturates in
// the kinase count, spending energy per converted unit.
type Phosphorylation struct {
	Kinase, Target, Product chem.Identity
	Energy                  chem.Identity
	Rate                    float64
	Saturation              float64
	Cost                    float64
}

func (r *Phosphorylation) Name() string {
	return fmt.Sprintf("phosphorylation(%s: %s -> %s)", r.Kinase.Kind, r.Target.Kind, r.Product.Kind)
}

func (r *Phosphorylation) Mechanism() Mechanism { return MechPhosphorylation }

func (r *Phosphorylation) Declare(view systems.CellView, dt float64, d *systems.Demand) {
	k := view.Count(r.Kinase)
	target := view.Count(r.Target)
	if k <= 0 || target <= 0 {
		return
	}
	amount := min(r.Rate*k/(r.Saturation+k)*target*dt, target)
	d.Request(r.Target, amount)
	d.Request(r.Energy, amount*r.Cost)
}

func (r *Phosphorylation) Apply(cell *chem.Cell, dt float64, g systems.Grant) {
	amount := g.Requested(r.Target) * g.Factor(r.Target, r.Energy)
	if amount <= 0 {
		return
	}
	src := cell.MustPopulation(r.Target)
	moved := src.Take(amount)
	spend(cell, r.Energy, moved*r.Cost)
	cell.Produce(r.Product, moved, src.Attached)
}

// Dephosphorylation returns Phosphorylated to Target with first-order kinetics.
type Dephosphorylation struct {
	Phosphorylated, Target chem.Identity
	Energy                 chem.Identity
	Rate                   float64
	Cost                   float64
}

func (r *Dephosphorylation) Name() string {
	return fmt.Sprintf("dephosphorylation(%s -> %s)", r.Phosphorylated.Kind, r.Target.Kind)
}

func (r *Dephosphorylation) Mechanism() Mechanism { return MechDephosphorylation }

func (r *Dephosphorylation) Declare(view systems.CellView, dt float64, d *systems.Demand) {
	p := view.Count(r.Phosphorylated)
	if p <= 0 {
		return
	}
	amount := min(p*r.Rate*dt, p)
	d.Request(r.Phosphorylated, amount)
	d.Request(r.Energy, amount*r.Cost)
}

func (r *Dephosphorylation) Apply(cell *chem.Cell, dt float64, g systems.Grant) {
	amount := g.Requested(r.Phosphorylated) * g.Factor(r.Phosphorylated, r.Energy)
	if amount <= 0 {
		return
	}
	src := cell.MustPopulation(r.Phosphorylated)
	moved := src.Take(amount)
	spend(cell, r.Energy, moved*r.Cost)
	cell.Produce(r.Target, moved, src.Attached)
}

// ComplexFormation binds First and Second into Complex by saturating mass
// action and lets Complex dissociate at a first-order rate. Binding moves the
// whole complex pool to Second's binding state; partners released by
// dissociation join whatever pool they find.
type ComplexFormation struct {
	First, Second, Complex chem.Identity
	Energy                 chem.Identity
	BindingRate            float64
	DissociationRate       float64
	Saturation             float64
	Cost                   float64
}

func (r *ComplexFormation) Name() string {
	return fmt.Sprintf("complex_formation(%s + %s <-> %s)", r.First.Kind, r.Second.Kind, r.Complex.Kind)
}

func (r *ComplexFormation) Mechanism() Mechanism { return MechComplexFormation }

func (r *ComplexFormation) Declare(view systems.CellView, dt float64, d *systems.Demand) {
	a := view.Count(r.First)
	b := view.Count(r.Second)
	if a > 0 && b > 0 {
		bind := min(r.BindingRate*a*b/(r.Saturation+a+b)*dt, min(a, b))
		if r.First == r.Second {
			bind = min(bind, a/2)
		}
		d.Request(r.First, bind)
		d.Request(r.Second, bind)
		d.Request(r.Energy, bind*r.Cost)
	}
	if c := view.Count(r.Complex); c > 0 {
		d.Request(r.Complex, min(c*r.DissociationRate*dt, c))
	}
}

func (r *ComplexFormation) Apply(cell *chem.Cell, dt float64, g systems.Grant) {
	// Dissociation first: its demand was sized on the pre-binding complex.
	if split := g.Amount(r.Complex); split > 0 {
		cp := cell.MustPopulation(r.Complex)
		moved := cp.Take(split)
		cell.Produce(r.First, moved, false)
		cell.Produce(r.Second, moved, cp.Attached)
	}

	bind := g.Requested(r.Second)
	if r.First == r.Second {
		bind /= 2
	}
	bind *= g.Factor(r.First, r.Second, r.Energy)
	if bind <= 0 {
		return
	}
	bind = cell.MustPopulation(r.First).Take(bind)
	second := cell.MustPopulation(r.Second)
	second.Take(bind)
	spend(cell, r.Energy, bind*r.Cost)
	// The whole complex pool follows Second's binding state.
	cp := cell.GetOrCreate(r.Complex)
	cp.Count += bind
	cp.Attached = second.Attached
}

func spend(cell *chem.Cell, energy chem.Identity, amount float64) {
	if amount <= 0 {
		return
	}
	cell.MustPopulation(energy).Take(amount)
}
