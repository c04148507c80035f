package medium

import (
	"io"
	"log/slog"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/cytosol/chem"
	"github.com/pthm-cable/cytosol/config"
	"github.com/pthm-cable/cytosol/rules"
	"github.com/pthm-cable/cytosol/systems"
	"github.com/pthm-cable/cytosol/telemetry"
)

var quiet = WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

func testConfig(t *testing.T, res int) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	cfg.Grid.Resolution = res
	return cfg
}

var origin = r3.Vec{}

func TestConsumeEnergyAllOrNothing(t *testing.T) {
	m := New(testConfig(t, 1), nil, quiet)
	m.AddEnergy(100, origin)

	if !m.ConsumeEnergy(60, origin) {
		t.Fatal("first consume should succeed")
	}
	if got := m.AvailableEnergy(origin); got != 40 {
		t.Errorf("after first consume = %v, want 40", got)
	}
	if m.ConsumeEnergy(60, origin) {
		t.Fatal("second consume should fail")
	}
	if got := m.AvailableEnergy(origin); got != 40 {
		t.Errorf("failed consume changed energy to %v", got)
	}
}

func TestConsumeEnergyEmptyCell(t *testing.T) {
	m := New(testConfig(t, 3), nil, quiet)
	if m.ConsumeEnergy(1, origin) {
		t.Error("consume from empty cell should fail")
	}
	if m.Grid().CellAt(origin).Population(chem.ATP) != nil {
		t.Error("failed consume should not create an entry")
	}
}

func TestAddEnergyCapped(t *testing.T) {
	cfg := testConfig(t, 1)
	cfg.Energy.MaxPerCell = 500
	m := New(cfg, nil, quiet)

	m.AddEnergy(400, origin)
	m.AddEnergy(400, origin)
	if got := m.AvailableEnergy(origin); got != 500 {
		t.Errorf("energy = %v, want capped 500", got)
	}
	m.AddEnergy(-100, origin)
	if got := m.AvailableEnergy(origin); got != 500 {
		t.Errorf("negative add changed energy to %v", got)
	}
}

func TestAddEnergyKeepsExcessAboveCap(t *testing.T) {
	cfg := testConfig(t, 1)
	cfg.Energy.MaxPerCell = 500
	m := New(cfg, nil, quiet)

	m.AddMolecule(m.EnergyIdentity(), origin, chem.Population{Count: 800})
	m.AddEnergy(50, origin)
	if got := m.AvailableEnergy(origin); got != 800 {
		t.Errorf("energy = %v, want 800 untouched", got)
	}
}

func TestAddMoleculeAccumulates(t *testing.T) {
	m := New(testConfig(t, 3), nil, quiet)
	id := chem.ProteinOf("PAR-3", chem.CElegans)
	pos := r3.Vec{X: -0.8, Y: 0.1, Z: 0.2}

	m.AddMolecule(id, pos, chem.Population{Count: 10})
	m.AddMolecule(id, pos, chem.Population{Count: 15})

	if got := m.Count(id, pos); got != 25 {
		t.Errorf("count = %v, want 25", got)
	}
	vol := m.Grid().CellAt(pos).Volume()
	if got := m.Concentration(id, pos); math.Abs(got-25/vol) > 1e-12 {
		t.Errorf("concentration = %v, want %v", got, 25/vol)
	}
	if got := m.Count(chem.ProteinOf("absent", chem.Human), pos); got != 0 {
		t.Errorf("absent count = %v", got)
	}
}

func TestAddMoleculeMixedBindingPanics(t *testing.T) {
	m := New(testConfig(t, 3), nil, quiet)
	id := chem.ProteinOf("PAR-2", chem.CElegans)
	m.AddMolecule(id, origin, chem.Population{Count: 5, Attached: true})

	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	m.AddMolecule(id, origin, chem.Population{Count: 5, Attached: false})
}

func TestLocateOutOfRangePanics(t *testing.T) {
	m := New(testConfig(t, 3), nil, quiet)
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	m.Count(chem.ATP, r3.Vec{X: 2})
}

func TestUpdateVolumes(t *testing.T) {
	cfg := testConfig(t, 3)
	m := New(cfg, nil, quiet)

	if got := m.TotalVolume(); math.Abs(got-cfg.Volume.TotalMicroM3) > 1e-6 {
		t.Errorf("initial total = %v, want %v", got, cfg.Volume.TotalMicroM3)
	}

	// 3% larger is within the 5% band.
	m.UpdateVolumes(systems.CubeOfVolume(cfg.Volume.TotalMicroM3 * 1.03))
	if got := m.TotalVolume(); math.Abs(got-cfg.Volume.TotalMicroM3*1.03) > 1e-6 {
		t.Errorf("total = %v", got)
	}
}

func TestUpdateVolumesOutsideTolerancePanics(t *testing.T) {
	cfg := testConfig(t, 3)
	m := New(cfg, nil, quiet)

	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	m.UpdateVolumes(systems.CubeOfVolume(cfg.Volume.TotalMicroM3 * 2))
}

func TestUpdateDiffusesBeforeRules(t *testing.T) {
	cfg := testConfig(t, 3)
	cfg.Diffusion.Rate = 0.3
	cfg.Kinetics.TRNAChargingRate = 0
	cfg.Kinetics.TranscriptHalfLife = 0
	m := New(cfg, nil, quiet)

	id := chem.ProteinOf("PAR-1", chem.CElegans)
	m.AddMolecule(id, origin, chem.Population{Count: 900})
	m.Update(1.0)

	if got := m.Count(id, origin); math.Abs(got-630) > 1e-9 {
		t.Errorf("center = %v, want 630", got)
	}
	if got := m.Count(id, r3.Vec{X: 0.9}); math.Abs(got-45) > 1e-9 {
		t.Errorf("+x neighbor = %v, want 45", got)
	}
	if got := m.TotalCount(id); math.Abs(got-900) > 1e-9 {
		t.Errorf("total = %v, want 900", got)
	}
}

func TestProductDiffusesIntoBoundTargetCell(t *testing.T) {
	cfg := testConfig(t, 3)
	cfg.Diffusion.Rate = 0.3
	kinase := chem.ProteinOf("PKC-3", chem.CElegans)
	target := chem.ProteinOf("PAR-2", chem.CElegans)
	product := chem.ProteinOf("PAR-2_P", chem.CElegans)
	catalog := rules.NewCatalog(&rules.Phosphorylation{
		Kinase: kinase, Target: target, Product: product, Energy: cfg.Derived.EnergyID,
		Rate: 0.1, Saturation: 100, Cost: rules.PhosphorylationCost,
	})
	m := New(cfg, catalog, quiet)
	side := r3.Vec{X: 0.9}

	m.AddMolecule(m.EnergyIdentity(), origin, chem.Population{Count: 1e4})
	m.AddMolecule(m.EnergyIdentity(), side, chem.Population{Count: 1e4})
	m.AddMolecule(kinase, origin, chem.Population{Count: 100, Attached: true})
	m.AddMolecule(target, origin, chem.Population{Count: 500})
	m.AddMolecule(target, side, chem.Population{Count: 100, Attached: true})

	m.Update(0.1)
	m.Update(0.1)
	if m.Count(product, side) <= 0 || m.Grid().CellAt(side).Attached(product) {
		t.Fatalf("setup: side product = %v, want free mass", m.Count(product, side))
	}

	// The side cell now makes product from its bound target.
	m.AddMolecule(kinase, side, chem.Population{Count: 100, Attached: true})
	m.Update(0.1)

	cell := m.Grid().CellAt(side)
	if cell.Attached(product) {
		t.Error("side product should stay in its free pool")
	}
	if !cell.Attached(target) || cell.Count(target) >= 100 {
		t.Errorf("side target = %v attached=%v, want bound and consumed", cell.Count(target), cell.Attached(target))
	}
	if got := m.TotalCount(target) + m.TotalCount(product); math.Abs(got-600) > 1e-9 {
		t.Errorf("PAR-2 mass = %v, want 600", got)
	}
}

// greedy asks for twice the available energy and then overdraws by a
// rounding-sized amount to exercise the clamp.
type greedy struct{ energy chem.Identity }

func (g *greedy) Name() string { return "greedy" }
func (g *greedy) Declare(view systems.CellView, dt float64, d *systems.Demand) {
	d.Request(g.energy, 2*view.Count(g.energy))
}
func (g *greedy) Apply(cell *chem.Cell, dt float64, gr systems.Grant) {
	if gr.Amount(g.energy) == 0 {
		return
	}
	p := cell.MustPopulation(g.energy)
	p.Count -= gr.Amount(g.energy) + 1e-12
}

type ruleList []systems.Rule

func (r ruleList) Rules() []systems.Rule { return r }

func TestEnergyNeverNegative(t *testing.T) {
	cfg := testConfig(t, 3)
	m := New(cfg, ruleList{&greedy{energy: chem.ATP}, &greedy{energy: chem.ATP}}, quiet)
	for i := 0; i < m.Grid().Len(); i++ {
		m.AddEnergy(float64(i+1)*10, m.Grid().Center(i))
	}

	for step := 0; step < 5; step++ {
		m.Update(0.1)
		for i := 0; i < m.Grid().Len(); i++ {
			if got := m.Grid().Cell(i).Count(chem.ATP); got < 0 {
				t.Fatalf("step %d cell %d energy = %v", step, i, got)
			}
		}
	}
	if m.LastOutcome().Rules != 2*m.Grid().Len() {
		t.Errorf("outcome = %+v", m.LastOutcome())
	}
}

func seedCatalogMedium(t *testing.T, workers int) *Medium {
	t.Helper()
	cfg := testConfig(t, 5)
	cfg.Simulation.Workers = workers

	par2 := chem.ProteinOf("PAR-2", chem.CElegans)
	par2p := chem.ProteinOf("PAR-2_P", chem.CElegans)
	pkc3 := chem.ProteinOf("PKC-3", chem.CElegans)
	catalog := rules.NewCatalog(
		&rules.Phosphorylation{Kinase: pkc3, Target: par2, Product: par2p, Energy: chem.ATP,
			Rate: 0.5, Saturation: 50, Cost: rules.PhosphorylationCost},
		&rules.Dephosphorylation{Phosphorylated: par2p, Target: par2, Energy: chem.ATP,
			Rate: 0.2, Cost: rules.DephosphorylationCost},
	)
	m := New(cfg, catalog, quiet, WithWorkers(workers))

	g := m.Grid()
	for i := 0; i < g.Len(); i++ {
		c := g.Center(i)
		m.AddMolecule(par2, c, chem.Population{Count: float64(100 + i)})
		m.AddMolecule(pkc3, c, chem.Population{Count: float64(i % 7)})
		m.AddEnergy(float64(i%5)*3, c)
	}
	return m
}

func TestParallelMatchesSerial(t *testing.T) {
	serial := seedCatalogMedium(t, 1)
	parallel := seedCatalogMedium(t, 4)

	for step := 0; step < 10; step++ {
		serial.Update(0.05)
		parallel.Update(0.05)
	}

	ids := []chem.Identity{
		chem.ProteinOf("PAR-2", chem.CElegans),
		chem.ProteinOf("PAR-2_P", chem.CElegans),
		chem.ATP,
	}
	for i := 0; i < serial.Grid().Len(); i++ {
		for _, id := range ids {
			a := serial.Grid().Cell(i).Count(id)
			b := parallel.Grid().Cell(i).Count(id)
			if math.Abs(a-b) > 1e-9 {
				t.Errorf("cell %d %v: serial %v parallel %v", i, id, a, b)
			}
		}
	}
	if serial.LastOutcome() != parallel.LastOutcome() {
		t.Errorf("outcomes differ: %+v vs %+v", serial.LastOutcome(), parallel.LastOutcome())
	}
}

func TestUpdateRecordsPerfPhases(t *testing.T) {
	m := New(testConfig(t, 3), ruleList{&greedy{energy: chem.ATP}}, quiet)
	pc := telemetry.NewPerfCollector(4)
	m.SetPerf(pc)

	pc.StartTick()
	m.Update(0.01)
	pc.EndTick()

	stats := pc.Stats()
	for _, phase := range []string{telemetry.PhaseDiffusion, telemetry.PhaseArbitration, telemetry.PhaseClamp} {
		if _, ok := stats.PhaseAvg[phase]; !ok {
			t.Errorf("phase %s missing", phase)
		}
	}
}
