package systems

import (
	"github.com/pthm-cable/cytosol/chem"
)

// CellView is the read-only face of a compartment handed to rules during the
// dry run.
type CellView interface {
	Count(id chem.Identity) float64
	Concentration(id chem.Identity) float64
	Attached(id chem.Identity) bool
	Volume() float64
}

// readOnlyCell hides the mutable methods of *chem.Cell from dry-run code.
type readOnlyCell struct{ c *chem.Cell }

func (v readOnlyCell) Count(id chem.Identity) float64         { return v.c.Count(id) }
func (v readOnlyCell) Concentration(id chem.Identity) float64 { return v.c.Concentration(id) }
func (v readOnlyCell) Attached(id chem.Identity) bool         { return v.c.Attached(id) }
func (v readOnlyCell) Volume() float64                        { return v.c.Volume() }

// Rule is one interaction operating on a single compartment. Declare runs in
// the dry pass and may only register demand; Apply runs in the real pass and
// must not consume more of a declared identity than the grant allows.
type Rule interface {
	Name() string
	Declare(view CellView, dt float64, d *Demand)
	Apply(cell *chem.Cell, dt float64, g Grant)
}

// Demand collects what one rule intends to consume.
type Demand struct {
	amounts map[chem.Identity]float64
}

// Request registers intent to consume amount of id. Non-positive amounts are
// ignored; repeated requests for the same identity accumulate.
func (d *Demand) Request(id chem.Identity, amount float64) {
	if amount <= 0 {
		return
	}
	if d.amounts == nil {
		d.amounts = make(map[chem.Identity]float64, 4)
	}
	d.amounts[id] += amount
}

// Empty reports whether nothing was requested.
func (d *Demand) Empty() bool {
	return len(d.amounts) == 0
}

func (d *Demand) reset() {
	clear(d.amounts)
}

// Ledger is the result of a dry run: per-rule demand plus the availability
// snapshot taken at collection time. It is never mutated after Collect returns.
type Ledger struct {
	demands   []Demand
	total     map[chem.Identity]float64
	available map[chem.Identity]float64
}

// Rules returns how many rules were collected.
func (l *Ledger) Rules() int {
	return len(l.demands)
}

// Total returns the summed demand for id across all rules.
func (l *Ledger) Total(id chem.Identity) float64 {
	return l.total[id]
}

// Available returns the snapshot count of id.
func (l *Ledger) Available(id chem.Identity) float64 {
	return l.available[id]
}

// Allocate computes the fulfilment factor for every demanded identity. When
// total demand fits, every request is granted in full; otherwise each
// requester receives available * request / total.
func (l *Ledger) Allocate() *Allocation {
	a := &Allocation{
		ledger: l,
		factor: make(map[chem.Identity]float64, len(l.total)),
	}
	for id, total := range l.total {
		avail := l.available[id]
		switch {
		case avail <= 0:
			a.factor[id] = 0
			a.rationed++
		case total <= avail:
			a.factor[id] = 1
		default:
			a.factor[id] = avail / total
			a.rationed++
		}
	}
	return a
}

// Allocation is the feasible share of every demanded identity.
type Allocation struct {
	ledger   *Ledger
	factor   map[chem.Identity]float64
	rationed int
}

// Factor returns the fraction of demand granted for id. Identities nobody
// asked for report 1.
func (a *Allocation) Factor(id chem.Identity) float64 {
	if f, ok := a.factor[id]; ok {
		return f
	}
	return 1
}

// Rationed returns how many identities were granted less than requested.
func (a *Allocation) Rationed() int {
	return a.rationed
}

// Grant returns the grant for the i-th collected rule.
func (a *Allocation) Grant(i int) Grant {
	return Grant{demand: &a.ledger.demands[i], alloc: a}
}

// Grant is one rule's share of the allocation.
type Grant struct {
	demand *Demand
	alloc  *Allocation
}

// Amount returns how much of id the rule may consume.
func (g Grant) Amount(id chem.Identity) float64 {
	if g.demand == nil {
		return 0
	}
	req := g.demand.amounts[id]
	if req == 0 {
		return 0
	}
	return req * g.alloc.Factor(id)
}

// Requested returns what the rule asked for in the dry run.
func (g Grant) Requested(id chem.Identity) float64 {
	if g.demand == nil {
		return 0
	}
	return g.demand.amounts[id]
}

// Factor returns the smallest fulfilment factor among ids, or among every
// identity the rule requested when ids is empty. A rule converting several
// inputs at fixed stoichiometry scales its whole reaction by this value.
func (g Grant) Factor(ids ...chem.Identity) float64 {
	f := 1.0
	if g.demand == nil {
		return f
	}
	if len(ids) == 0 {
		for id := range g.demand.amounts {
			f = min(f, g.alloc.Factor(id))
		}
		return f
	}
	for _, id := range ids {
		if g.demand.amounts[id] == 0 {
			continue
		}
		f = min(f, g.alloc.Factor(id))
	}
	return f
}

// Unconstrained reports whether the rule declared no demand at all.
func (g Grant) Unconstrained() bool {
	return g.demand == nil || g.demand.Empty()
}

// blocked reports whether the rule declared demand but was granted nothing.
func (g Grant) blocked() bool {
	if g.Unconstrained() {
		return false
	}
	for id := range g.demand.amounts {
		if g.alloc.Factor(id) > 0 {
			return false
		}
	}
	return true
}

// Outcome summarizes one arbitration of one compartment.
type Outcome struct {
	Rules    int
	Skipped  int
	Rationed int
}

// Add accumulates o2 into o.
func (o *Outcome) Add(o2 Outcome) {
	o.Rules += o2.Rules
	o.Skipped += o2.Skipped
	o.Rationed += o2.Rationed
}

// Arbiter runs the dry-run/real-run protocol for one compartment at a time.
// It keeps scratch state between calls and must not be shared across
// goroutines.
type Arbiter struct {
	ledger Ledger
}

// NewArbiter creates an arbiter.
func NewArbiter() *Arbiter {
	return &Arbiter{
		ledger: Ledger{
			total:     make(map[chem.Identity]float64),
			available: make(map[chem.Identity]float64),
		},
	}
}

// Collect performs the dry run: every rule declares its demand against a
// read-only view of cell, in order. The cell is not modified. The returned
// ledger is valid until the next Collect on this arbiter.
func (a *Arbiter) Collect(cell *chem.Cell, rules []Rule, dt float64) *Ledger {
	l := &a.ledger
	if cap(l.demands) < len(rules) {
		l.demands = make([]Demand, len(rules))
	}
	l.demands = l.demands[:len(rules)]
	clear(l.total)
	clear(l.available)

	view := readOnlyCell{c: cell}
	for i, r := range rules {
		d := &l.demands[i]
		d.reset()
		r.Declare(view, dt, d)
		for id, amt := range d.amounts {
			l.total[id] += amt
			if _, ok := l.available[id]; !ok {
				l.available[id] = cell.Count(id)
			}
		}
	}
	return l
}

// Execute performs the real run: rules apply in the same order, each bounded
// by its grant. A rule that asked for something and received nothing is
// skipped.
func (a *Arbiter) Execute(cell *chem.Cell, rules []Rule, dt float64, alloc *Allocation) Outcome {
	out := Outcome{Rules: len(rules), Rationed: alloc.Rationed()}
	for i, r := range rules {
		g := alloc.Grant(i)
		if g.blocked() {
			out.Skipped++
			continue
		}
		r.Apply(cell, dt, g)
	}
	return out
}

// Step runs dry run, allocation and real run on cell.
func (a *Arbiter) Step(cell *chem.Cell, rules []Rule, dt float64) Outcome {
	if len(rules) == 0 {
		return Outcome{}
	}
	alloc := a.Collect(cell, rules, dt).Allocate()
	return a.Execute(cell, rules, dt, alloc)
}
