// Package config provides configuration loading and access for the engine.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/cytosol/chem"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all engine configuration parameters.
type Config struct {
	Grid       GridConfig        `yaml:"grid"`
	Diffusion  DiffusionConfig   `yaml:"diffusion"`
	Energy     EnergyConfig      `yaml:"energy"`
	Kinetics   KineticsConfig    `yaml:"kinetics"`
	Volume     VolumeConfig      `yaml:"volume"`
	Simulation SimulationConfig  `yaml:"simulation"`
	Catalog    CatalogConfig     `yaml:"catalog"`
	Telemetry  TelemetryConfig   `yaml:"telemetry"`
	Probes     []ProbeConfig     `yaml:"probes"`
	Seeds      []SeedConfig      `yaml:"seeds"`
	Organelles []OrganelleConfig `yaml:"organelles"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// GridConfig holds spatial discretization settings.
type GridConfig struct {
	Resolution int `yaml:"resolution"` // buckets per axis
}

// DiffusionConfig holds diffusion parameters.
type DiffusionConfig struct {
	Rate float64 `yaml:"rate"` // fraction of free count moved per unit time
}

// SpeciesConfig names a species by its textual parts.
type SpeciesConfig struct {
	Kind    string `yaml:"kind"`
	Class   string `yaml:"class"`
	Variant string `yaml:"variant"` // empty uses simulation.variant
}

// EnergyConfig holds energy-currency settings.
type EnergyConfig struct {
	Species    SpeciesConfig   `yaml:"species"`
	MaxPerCell float64         `yaml:"max_per_cell"` // cap applied on AddEnergy
	Capped     []SpeciesConfig `yaml:"capped"`       // extra identities clamped at zero after arbitration
}

// KineticsConfig holds per-cell auxiliary process parameters.
type KineticsConfig struct {
	TRNAChargingRate   float64 `yaml:"trna_charging_rate"`   // per second, 0 disables
	MinTransfer        float64 `yaml:"min_transfer"`         // smallest charging transfer applied
	TranscriptHalfLife float64 `yaml:"transcript_half_life"` // seconds, 0 disables decay
	PruneBelow         float64 `yaml:"prune_below"`          // transcripts at or below this are removed
}

// VolumeConfig holds the declared cell volume and the mapping from the
// normalized cube to world space.
type VolumeConfig struct {
	TotalMicroM3 float64    `yaml:"total_micro_m3"` // declared total volume in µm³
	Tolerance    float64    `yaml:"tolerance"`      // allowed relative deviation of summed cell volumes
	Extent       [3]float64 `yaml:"extent"`         // world half-extent per axis; zero derives a cube from total
}

// SimulationConfig holds run settings.
type SimulationConfig struct {
	DT       float64 `yaml:"dt"`        // seconds per tick
	Workers  int     `yaml:"workers"`   // goroutines for per-cell work, <= 1 is serial
	Variant  string  `yaml:"variant"`   // default organism variant
	MaxTicks int     `yaml:"max_ticks"` // 0 runs until interrupted
}

// CatalogConfig points at the interaction tables.
type CatalogConfig struct {
	Dir string `yaml:"dir"` // directory holding the rule CSV files, empty for none
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	SampleInterval int `yaml:"sample_interval"` // ticks between probe samples
	PerfWindow     int `yaml:"perf_window"`     // ticks in the perf rolling window
	StatsWindow    int `yaml:"stats_window"`    // ticks between stats summaries
}

// ProbeConfig is a named sampling point.
type ProbeConfig struct {
	Name     string        `yaml:"name"`
	Species  SpeciesConfig `yaml:"species"`
	Position [3]float64    `yaml:"position"` // normalized coordinates in [-1,1]
}

// SeedConfig places an initial population.
type SeedConfig struct {
	Species  SpeciesConfig `yaml:"species"`
	Position [3]float64    `yaml:"position"`
	Count    float64       `yaml:"count"`
	Attached bool          `yaml:"attached"`
	Uniform  bool          `yaml:"uniform"` // place Count in every cell and ignore Position
}

// OrganelleConfig spawns one organelle entity in the driver.
type OrganelleConfig struct {
	Kind     string        `yaml:"kind"` // mitochondrion, centrosome or spindle
	Position [3]float64    `yaml:"position"`
	Rate     float64       `yaml:"rate"` // energy or molecules per second
	Species  SpeciesConfig `yaml:"species"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	CellCount  int             // Grid.Resolution^3
	Variant    chem.Variant    // parsed Simulation.Variant
	EnergyID   chem.Identity   // parsed Energy.Species
	CappedIDs  []chem.Identity // energy identity plus Energy.Capped
	ProbeIDs   []chem.Identity // parsed Probes[i].Species
	SeedIDs    []chem.Identity // parsed Seeds[i].Species
	Organelles []chem.Identity // parsed Organelles[i].Species, zero when unset
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.computeDerived(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Identity resolves a species entry, falling back to the default variant.
func (c *Config) Identity(s SpeciesConfig) (chem.Identity, error) {
	variant := s.Variant
	if variant == "" {
		variant = c.Simulation.Variant
	}
	return chem.ParseIdentity(s.Kind, s.Class, variant)
}

// Rederive recomputes derived values after fields were changed in code.
func (c *Config) Rederive() error {
	return c.computeDerived()
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() error {
	if c.Grid.Resolution < 1 {
		return fmt.Errorf("grid.resolution must be >= 1, got %d", c.Grid.Resolution)
	}
	c.Derived.CellCount = c.Grid.Resolution * c.Grid.Resolution * c.Grid.Resolution

	v, err := chem.ParseVariant(c.Simulation.Variant)
	if err != nil {
		return fmt.Errorf("simulation.variant: %w", err)
	}
	c.Derived.Variant = v

	if c.Energy.Species.Kind == "" {
		c.Derived.EnergyID = chem.ATP
	} else if c.Derived.EnergyID, err = c.Identity(c.Energy.Species); err != nil {
		return fmt.Errorf("energy.species: %w", err)
	}

	c.Derived.CappedIDs = []chem.Identity{c.Derived.EnergyID}
	for i, s := range c.Energy.Capped {
		id, err := c.Identity(s)
		if err != nil {
			return fmt.Errorf("energy.capped[%d]: %w", i, err)
		}
		c.Derived.CappedIDs = append(c.Derived.CappedIDs, id)
	}

	c.Derived.ProbeIDs = make([]chem.Identity, len(c.Probes))
	for i, p := range c.Probes {
		if c.Derived.ProbeIDs[i], err = c.Identity(p.Species); err != nil {
			return fmt.Errorf("probes[%d] %q: %w", i, p.Name, err)
		}
	}

	c.Derived.SeedIDs = make([]chem.Identity, len(c.Seeds))
	for i, s := range c.Seeds {
		if c.Derived.SeedIDs[i], err = c.Identity(s.Species); err != nil {
			return fmt.Errorf("seeds[%d]: %w", i, err)
		}
	}

	c.Derived.Organelles = make([]chem.Identity, len(c.Organelles))
	for i, o := range c.Organelles {
		if o.Species.Kind == "" {
			continue
		}
		if c.Derived.Organelles[i], err = c.Identity(o.Species); err != nil {
			return fmt.Errorf("organelles[%d]: %w", i, err)
		}
	}

	if c.Telemetry.PerfWindow < 1 {
		c.Telemetry.PerfWindow = 60
	}
	if c.Telemetry.SampleInterval < 1 {
		c.Telemetry.SampleInterval = 1
	}
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
