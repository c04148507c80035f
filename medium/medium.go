// Package medium sequences diffusion, per-cell kinetics and arbitrated
// interactions over the spatial grid, and exposes the read/write surface
// used by organelles and telemetry.
package medium

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/cytosol/chem"
	"github.com/pthm-cable/cytosol/config"
	"github.com/pthm-cable/cytosol/systems"
	"github.com/pthm-cable/cytosol/telemetry"
)

// Catalog supplies the ordered interaction rules applied to every cell.
type Catalog interface {
	Rules() []systems.Rule
}

// Medium owns the grid and runs one chemistry step per Update call.
type Medium struct {
	grid      *systems.Grid
	diffusion *systems.Diffusion
	catalog   Catalog
	kinetics  systems.Kinetics
	pool      *arbiterPool

	energyID    chem.Identity
	capped      []chem.Identity
	maxEnergy   float64
	totalVolume float64
	tolerance   float64

	lastOutcome systems.Outcome
	perf        *telemetry.PerfCollector
	logger      *slog.Logger
}

// Option customizes a Medium at construction.
type Option func(*Medium)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Medium) { m.logger = l }
}

// WithKinetics replaces the per-cell auxiliary kinetics built from config.
// Passing nil disables them.
func WithKinetics(k systems.Kinetics) Option {
	return func(m *Medium) { m.kinetics = k }
}

// WithWorkers overrides simulation.workers.
func WithWorkers(n int) Option {
	return func(m *Medium) { m.pool = newArbiterPool(n) }
}

// New builds a Medium from cfg. catalog may be nil for a medium without
// interactions. Cell volumes are initialized from DefaultMapping(cfg).
func New(cfg *config.Config, catalog Catalog, opts ...Option) *Medium {
	m := &Medium{
		grid:        systems.NewGrid(cfg.Grid.Resolution),
		diffusion:   systems.NewDiffusion(cfg.Diffusion.Rate),
		catalog:     catalog,
		kinetics:    defaultKinetics(cfg),
		pool:        newArbiterPool(cfg.Simulation.Workers),
		energyID:    cfg.Derived.EnergyID,
		capped:      cfg.Derived.CappedIDs,
		maxEnergy:   cfg.Energy.MaxPerCell,
		totalVolume: cfg.Volume.TotalMicroM3,
		tolerance:   cfg.Volume.Tolerance,
		logger:      slog.Default(),
	}
	if len(m.capped) == 0 {
		m.capped = []chem.Identity{m.energyID}
	}
	for _, opt := range opts {
		opt(m)
	}
	m.diffusion.Workers = m.pool.workers

	m.UpdateVolumes(DefaultMapping(cfg))

	rules := 0
	if m.catalog != nil {
		rules = len(m.catalog.Rules())
	}
	m.logger.Info("medium ready",
		"cells", m.grid.Len(),
		"rules", rules,
		"energy", m.energyID.String(),
		"workers", m.pool.workers,
	)
	return m
}

func defaultKinetics(cfg *config.Config) systems.Kinetics {
	var chain systems.KineticsChain
	if cfg.Kinetics.TRNAChargingRate > 0 {
		chain = append(chain, &systems.TRNACharging{
			Pairs:       chem.TRNAChargingPairs(cfg.Derived.Variant),
			Rate:        cfg.Kinetics.TRNAChargingRate,
			MinTransfer: cfg.Kinetics.MinTransfer,
		})
	}
	if cfg.Kinetics.TranscriptHalfLife > 0 {
		chain = append(chain, &systems.TranscriptDecay{
			HalfLife:   cfg.Kinetics.TranscriptHalfLife,
			PruneBelow: cfg.Kinetics.PruneBelow,
		})
	}
	if len(chain) == 0 {
		return nil
	}
	return chain
}

// DefaultMapping returns the normalized-to-world mapping described by
// cfg.Volume: the configured half-extents, or a cube of the declared total
// volume when no extent is set.
func DefaultMapping(cfg *config.Config) systems.Mapping {
	e := cfg.Volume.Extent
	if e[0] <= 0 || e[1] <= 0 || e[2] <= 0 {
		return systems.CubeOfVolume(cfg.Volume.TotalMicroM3)
	}
	return systems.Affine{Scale: r3.Vec{X: e[0], Y: e[1], Z: e[2]}}
}

// SetPerf attaches a perf collector; Update then records its phases.
func (m *Medium) SetPerf(p *telemetry.PerfCollector) {
	m.perf = p
}

func (m *Medium) phase(name string) {
	if m.perf != nil {
		m.perf.StartPhase(name)
	}
}

// Update advances the medium by dt: diffusion over the whole grid, then
// per-cell kinetics, then arbitrated interactions in every cell, then the
// non-negativity clamp on capped identities.
func (m *Medium) Update(dt float64) {
	m.phase(telemetry.PhaseDiffusion)
	m.diffusion.Step(m.grid, dt)

	if m.kinetics != nil {
		m.phase(telemetry.PhaseKinetics)
		for i := 0; i < m.grid.Len(); i++ {
			m.kinetics.Step(m.grid.Cell(i), dt)
		}
	}

	m.phase(telemetry.PhaseArbitration)
	var rules []systems.Rule
	if m.catalog != nil {
		rules = m.catalog.Rules()
	}
	m.lastOutcome = m.pool.run(m.grid, rules, dt)
	if m.lastOutcome.Rationed > 0 {
		m.logger.Debug("arbitration rationed",
			"identities", m.lastOutcome.Rationed,
			"skipped", m.lastOutcome.Skipped,
		)
	}

	m.phase(telemetry.PhaseClamp)
	for i := 0; i < m.grid.Len(); i++ {
		c := m.grid.Cell(i)
		for _, id := range m.capped {
			if p := c.Population(id); p != nil {
				p.ClampNonNegative()
			}
		}
	}
}

// AddMolecule merges pop into the cell at pos. Mixing bound and free mass
// of one identity in a cell panics.
func (m *Medium) AddMolecule(id chem.Identity, pos r3.Vec, pop chem.Population) {
	m.grid.CellAt(pos).GetOrCreate(id).Merge(pop)
}

// Count returns the amount of id in the cell at pos.
func (m *Medium) Count(id chem.Identity, pos r3.Vec) float64 {
	return m.grid.CellAt(pos).Count(id)
}

// Concentration returns count per volume of id in the cell at pos.
func (m *Medium) Concentration(id chem.Identity, pos r3.Vec) float64 {
	return m.grid.CellAt(pos).Concentration(id)
}

// TotalCount sums id over every cell.
func (m *Medium) TotalCount(id chem.Identity) float64 {
	var sum float64
	for i := 0; i < m.grid.Len(); i++ {
		sum += m.grid.Cell(i).Count(id)
	}
	return sum
}

// EnergyIdentity returns the identity used as energy currency.
func (m *Medium) EnergyIdentity() chem.Identity {
	return m.energyID
}

// AddEnergy adds amount of energy currency to the cell at pos, capped at the
// per-cell maximum. A cell already above the cap keeps what it holds.
func (m *Medium) AddEnergy(amount float64, pos r3.Vec) {
	if amount <= 0 {
		return
	}
	p := m.grid.CellAt(pos).GetOrCreate(m.energyID)
	if p.Count < m.maxEnergy {
		p.Count = math.Min(p.Count+amount, m.maxEnergy)
	}
}

// ConsumeEnergy removes amount of energy currency from the cell at pos. It
// succeeds only if the whole amount is available; otherwise nothing changes
// and it returns false.
func (m *Medium) ConsumeEnergy(amount float64, pos r3.Vec) bool {
	if amount <= 0 {
		return true
	}
	p := m.grid.CellAt(pos).Population(m.energyID)
	if p == nil || p.Count < amount {
		return false
	}
	p.Count -= amount
	return true
}

// AvailableEnergy returns the energy currency in the cell at pos.
func (m *Medium) AvailableEnergy(pos r3.Vec) float64 {
	return m.grid.CellAt(pos).Count(m.energyID)
}

// UpdateVolumes recomputes every cell volume through mapping. The summed
// volume must stay within the configured tolerance of the declared total;
// a mapping that violates it panics.
func (m *Medium) UpdateVolumes(mapping systems.Mapping) {
	vols := systems.CellVolumes(m.grid, mapping)
	total := floats.Sum(vols)
	if m.totalVolume > 0 && math.Abs(total-m.totalVolume) > m.tolerance*m.totalVolume {
		panic(fmt.Sprintf("medium: summed cell volume %.1f outside %.0f%% of declared %.1f",
			total, m.tolerance*100, m.totalVolume))
	}
	for i, v := range vols {
		m.grid.Cell(i).SetVolume(v)
	}
	m.logger.Debug("volumes updated", "total", total)
}

// TotalVolume returns the summed volume of every cell.
func (m *Medium) TotalVolume() float64 {
	var sum float64
	for i := 0; i < m.grid.Len(); i++ {
		sum += m.grid.Cell(i).Volume()
	}
	return sum
}

// Grid exposes the grid for read-only inspection.
func (m *Medium) Grid() *systems.Grid {
	return m.grid
}

// LastOutcome returns the arbitration counters of the latest Update.
func (m *Medium) LastOutcome() systems.Outcome {
	return m.lastOutcome
}
