// Package sim wires the medium, organelles and telemetry into a headless
// tick loop.
package sim

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/cytosol/chem"
	"github.com/pthm-cable/cytosol/config"
	"github.com/pthm-cable/cytosol/medium"
	"github.com/pthm-cable/cytosol/rules"
	"github.com/pthm-cable/cytosol/systems"
	"github.com/pthm-cable/cytosol/telemetry"
)

// Options configures a simulation run.
type Options struct {
	CatalogDir  string // overrides catalog.dir when set
	OutputDir   string // CSV output, empty disables
	SnapshotDir string // medium snapshots on bookmarks, empty disables
	Restore     string // snapshot file to start from instead of the configured seeds
	Workers     int    // overrides simulation.workers when > 0
	LogStats    bool   // log window stats and bookmarks
}

// Sim owns one medium and everything that acts on it.
type Sim struct {
	cfg    *config.Config
	world  *ecs.World
	medium *medium.Medium

	organelles *systems.OrganelleSystem

	perfCollector    *telemetry.PerfCollector
	collector        *telemetry.Collector
	probes           *telemetry.ProbeSet
	bookmarkDetector *telemetry.BookmarkDetector
	outputManager    *telemetry.OutputManager

	energyBuf   []float64
	tick        int
	stalls      int
	logStats    bool
	snapshotDir string
}

// New builds a simulation from cfg: it loads the catalog, creates the medium,
// places the configured seeds and spawns organelles.
func New(cfg *config.Config, opts Options) (*Sim, error) {
	dir := cfg.Catalog.Dir
	if opts.CatalogDir != "" {
		dir = opts.CatalogDir
	}
	catalog, err := rules.LoadDir(dir, cfg.Derived.Variant, cfg.Derived.EnergyID)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	for mech, n := range catalog.ByMechanism() {
		slog.Debug("catalog", "mechanism", mech.String(), "rules", n)
	}

	var mopts []medium.Option
	if opts.Workers > 0 {
		mopts = append(mopts, medium.WithWorkers(opts.Workers))
	}

	s := &Sim{
		cfg:              cfg,
		world:            ecs.NewWorld(),
		medium:           medium.New(cfg, catalog, mopts...),
		perfCollector:    telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow),
		collector:        telemetry.NewCollector(cfg.Telemetry.StatsWindow, cfg.Simulation.DT),
		bookmarkDetector: telemetry.NewBookmarkDetector(10),
		logStats:         opts.LogStats,
		snapshotDir:      opts.SnapshotDir,
	}
	s.medium.SetPerf(s.perfCollector)
	s.organelles = systems.NewOrganelleSystem(s.world)

	if opts.Restore != "" {
		snap, err := telemetry.LoadSnapshot(opts.Restore)
		if err != nil {
			return nil, err
		}
		if err := snap.Restore(s.medium.Grid()); err != nil {
			return nil, fmt.Errorf("restoring %s: %w", opts.Restore, err)
		}
		s.tick = snap.Tick
		slog.Info("restored snapshot", "path", opts.Restore, "tick", snap.Tick)
	} else if err := s.seed(); err != nil {
		return nil, err
	}
	if err := s.organelles.SpawnConfigured(cfg); err != nil {
		return nil, err
	}

	probes := make([]telemetry.Probe, len(cfg.Probes))
	for i, p := range cfg.Probes {
		probes[i] = telemetry.Probe{Name: p.Name, ID: cfg.Derived.ProbeIDs[i], Pos: vec(p.Position)}
	}
	s.probes = telemetry.NewProbeSet(probes, cfg.Telemetry.SampleInterval, cfg.Simulation.DT)

	s.outputManager, err = telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, err
	}
	if s.outputManager != nil {
		if err := s.outputManager.WriteConfig(cfg); err != nil {
			s.outputManager.Close()
			return nil, err
		}
	}

	slog.Info("simulation ready",
		"cells", cfg.Derived.CellCount,
		"rules", catalog.Len(),
		"organelles", s.organelles.Len(),
		"probes", s.probes.Len(),
	)
	return s, nil
}

// seed places the configured initial populations.
func (s *Sim) seed() error {
	g := s.medium.Grid()
	for i, sc := range s.cfg.Seeds {
		if sc.Count < 0 {
			return fmt.Errorf("seeds[%d]: negative count %g", i, sc.Count)
		}
		id := s.cfg.Derived.SeedIDs[i]
		pop := chem.Population{Count: sc.Count, Attached: sc.Attached}
		if sc.Uniform {
			for c := 0; c < g.Len(); c++ {
				s.medium.AddMolecule(id, g.Center(c), pop)
			}
			continue
		}
		pos := vec(sc.Position)
		if !inCube(pos) {
			return fmt.Errorf("seeds[%d]: position %v outside [-1,1]^3", i, pos)
		}
		s.medium.AddMolecule(id, pos, pop)
	}
	return nil
}

// Step advances the simulation by one tick.
func (s *Sim) Step() {
	dt := s.cfg.Simulation.DT
	s.perfCollector.StartTick()

	s.medium.Update(dt)
	s.collector.RecordOutcome(s.medium.LastOutcome())

	s.perfCollector.StartPhase(telemetry.PhaseOrganelles)
	report := s.organelles.Update(s.medium, dt)
	s.collector.RecordStalls(report.Stalls)
	s.stalls += report.Stalls
	s.collector.RecordEnergyInput(report.EnergyInput)

	s.tick++

	s.perfCollector.StartPhase(telemetry.PhaseTelemetry)
	s.sampleProbes()
	s.flushTelemetry()

	s.perfCollector.EndTick()
}

// Run steps until maxTicks is reached (0 means unbounded) or ctx is done.
func (s *Sim) Run(ctx context.Context, maxTicks int) error {
	for maxTicks <= 0 || s.tick < maxTicks {
		select {
		case <-ctx.Done():
			slog.Info("run interrupted", "tick", s.tick)
			return ctx.Err()
		default:
		}
		s.Step()
	}
	slog.Info("max ticks reached", "tick", s.tick)
	return nil
}

// Tick returns the number of completed ticks.
func (s *Sim) Tick() int {
	return s.tick
}

// Stalls returns how many organelle energy draws have failed so far.
func (s *Sim) Stalls() int {
	return s.stalls
}

// Medium returns the simulated medium.
func (s *Sim) Medium() *medium.Medium {
	return s.medium
}

// Close flushes and closes output files.
func (s *Sim) Close() error {
	return s.outputManager.Close()
}

func vec(p [3]float64) r3.Vec {
	return r3.Vec{X: p[0], Y: p[1], Z: p[2]}
}

func inCube(p r3.Vec) bool {
	return p.X >= -1 && p.X <= 1 && p.Y >= -1 && p.Y <= 1 && p.Z >= -1 && p.Z <= 1
}
