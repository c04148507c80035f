// Package components defines ECS components for organelles living in the medium.
package components

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/cytosol/chem"
)

// Kind identifies an organelle type.
type Kind uint8

const (
	KindMitochondrion Kind = iota // produces energy currency
	KindCentrosome                // emits a molecular species
	KindSpindle                   // consumes energy, stalls when starved
)

var kindNames = [...]string{
	KindMitochondrion: "mitochondrion",
	KindCentrosome:    "centrosome",
	KindSpindle:       "spindle",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind maps a config name to a Kind.
func ParseKind(s string) (Kind, error) {
	for i, name := range kindNames {
		if name == s {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown organelle kind %q", s)
}

// Organelle holds identity data shared by every organelle entity.
type Organelle struct {
	ID   uint32
	Kind Kind
}

// Anchor is the organelle's fixed position in normalized medium coordinates.
type Anchor struct {
	Pos r3.Vec
}

// EnergySource adds energy currency at its anchor.
type EnergySource struct {
	Rate float64 // units per second
}

// Emitter deposits a species at its anchor.
type Emitter struct {
	ID       chem.Identity
	Rate     float64 // molecules per second
	Attached bool
}

// EnergySink draws energy currency at its anchor every tick.
type EnergySink struct {
	Rate   float64 // units per second
	Stalls int     // ticks on which the draw failed
}
