package systems

import (
	"math"
	"testing"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/cytosol/chem"
	"github.com/pthm-cable/cytosol/components"
	"github.com/pthm-cable/cytosol/config"
)

// pointSurface is a single-compartment surface.
type pointSurface struct {
	cell chem.Cell
}

func (p *pointSurface) AddEnergy(amount float64, pos r3.Vec) {
	p.cell.Deposit(chem.ATP, amount, false)
}

func (p *pointSurface) ConsumeEnergy(amount float64, pos r3.Vec) bool {
	if amount <= 0 {
		return true
	}
	pop := p.cell.Population(chem.ATP)
	if pop == nil || pop.Count < amount {
		return false
	}
	pop.Count -= amount
	return true
}

func (p *pointSurface) AddMolecule(id chem.Identity, pos r3.Vec, pop chem.Population) {
	p.cell.GetOrCreate(id).Merge(pop)
}

func TestOrganelleSupplyAndDemand(t *testing.T) {
	sys := NewOrganelleSystem(ecs.NewWorld())
	tbb2 := chem.ProteinOf("TBB-2", chem.CElegans)

	if _, err := sys.Spawn(components.KindMitochondrion, r3.Vec{}, 100, chem.Identity{}); err != nil {
		t.Fatal(err)
	}
	if _, err := sys.Spawn(components.KindCentrosome, r3.Vec{X: 0.5}, 20, tbb2); err != nil {
		t.Fatal(err)
	}
	spindle, err := sys.Spawn(components.KindSpindle, r3.Vec{}, 150, chem.Identity{})
	if err != nil {
		t.Fatal(err)
	}

	surf := &pointSurface{cell: chem.NewCell()}

	// 10 energy in, 15 demanded: stall, energy stays.
	r := sys.Update(surf, 0.1)
	if r.Stalls != 1 || math.Abs(r.EnergyInput-10) > 1e-12 || math.Abs(r.Emitted-2) > 1e-12 {
		t.Errorf("report = %+v", r)
	}
	if got := surf.cell.Count(chem.ATP); math.Abs(got-10) > 1e-12 {
		t.Errorf("energy = %v, want 10", got)
	}

	// 20 available, 15 drawn.
	r = sys.Update(surf, 0.1)
	if r.Stalls != 0 {
		t.Errorf("unexpected stall: %+v", r)
	}
	if got := surf.cell.Count(chem.ATP); math.Abs(got-5) > 1e-12 {
		t.Errorf("energy = %v, want 5", got)
	}
	if got := surf.cell.Count(tbb2); math.Abs(got-4) > 1e-12 {
		t.Errorf("emitted = %v, want 4", got)
	}

	if got := sys.Stalls(spindle); got != 1 {
		t.Errorf("spindle stalls = %d, want 1", got)
	}
	if k, ok := sys.Kind(spindle); !ok || k != components.KindSpindle {
		t.Errorf("kind = %v, %v", k, ok)
	}
	if sys.Len() != 3 {
		t.Errorf("len = %d", sys.Len())
	}
}

func TestOrganelleSpawnErrors(t *testing.T) {
	sys := NewOrganelleSystem(ecs.NewWorld())
	tests := []struct {
		name    string
		kind    components.Kind
		pos     r3.Vec
		rate    float64
		species chem.Identity
	}{
		{"outside cube", components.KindMitochondrion, r3.Vec{X: 1.5}, 1, chem.Identity{}},
		{"negative rate", components.KindSpindle, r3.Vec{}, -1, chem.Identity{}},
		{"centrosome without species", components.KindCentrosome, r3.Vec{}, 1, chem.Identity{}},
		{"unknown kind", components.Kind(9), r3.Vec{}, 1, chem.Identity{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := sys.Spawn(tt.kind, tt.pos, tt.rate, tt.species); err == nil {
				t.Error("expected error")
			}
		})
	}
	if sys.Len() != 0 {
		t.Errorf("failed spawns counted: %d", sys.Len())
	}
}

func TestSpawnConfigured(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	sys := NewOrganelleSystem(ecs.NewWorld())
	if err := sys.SpawnConfigured(cfg); err != nil {
		t.Fatalf("SpawnConfigured: %v", err)
	}
	if sys.Len() != len(cfg.Organelles) {
		t.Errorf("spawned %d, want %d", sys.Len(), len(cfg.Organelles))
	}

	cfg.Organelles[0].Kind = "ribosome"
	if err := NewOrganelleSystem(ecs.NewWorld()).SpawnConfigured(cfg); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range []components.Kind{components.KindMitochondrion, components.KindCentrosome, components.KindSpindle} {
		got, err := components.ParseKind(k.String())
		if err != nil || got != k {
			t.Errorf("ParseKind(%q) = %v, %v", k.String(), got, err)
		}
	}
}
