package systems

import (
	"math"

	"github.com/pthm-cable/cytosol/chem"
)

// Kinetics is a per-compartment process that runs once per step outside
// arbitration because nothing else competes for what it consumes.
type Kinetics interface {
	Step(cell *chem.Cell, dt float64)
}

// TRNACharging converts uncharged adaptor transcripts into their charged
// form as a saturating first-order process.
type TRNACharging struct {
	Pairs       []chem.ChargingPair
	Rate        float64 // per unit time
	MinTransfer float64 // transfers smaller than this are dropped
}

// Step moves count*(1-exp(-Rate*dt)) of each uncharged pool into the charged one.
func (k *TRNACharging) Step(cell *chem.Cell, dt float64) {
	if k.Rate <= 0 || dt <= 0 {
		return
	}
	frac := 1 - math.Exp(-k.Rate*dt)
	for _, pair := range k.Pairs {
		src := cell.Population(pair.Uncharged)
		if src == nil || src.Count <= 0 {
			continue
		}
		amt := src.Count * frac
		if amt < k.MinTransfer {
			continue
		}
		moved := src.Take(amt)
		cell.Produce(pair.Charged, moved, src.Attached)
	}
}

// TranscriptDecay degrades messenger transcripts exponentially.
type TranscriptDecay struct {
	HalfLife   float64
	PruneBelow float64
}

// Step decays every messenger transcript in cell and removes those that
// fall to PruneBelow or less.
func (k *TranscriptDecay) Step(cell *chem.Cell, dt float64) {
	if k.HalfLife <= 0 || dt <= 0 {
		return
	}
	keep := math.Exp2(-dt / k.HalfLife)
	var dead []chem.Identity
	cell.Range(func(id chem.Identity, p *chem.Population) bool {
		if id.Class != chem.MessengerTranscript {
			return true
		}
		p.Count *= keep
		if p.Count <= k.PruneBelow {
			dead = append(dead, id)
		}
		return true
	})
	for _, id := range dead {
		cell.Remove(id)
	}
}

// KineticsChain runs several kinetics in order.
type KineticsChain []Kinetics

// Step runs every element on cell.
func (c KineticsChain) Step(cell *chem.Cell, dt float64) {
	for _, k := range c {
		k.Step(cell, dt)
	}
}
