package telemetry

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/cytosol/chem"
)

// Sampler is the read surface probes observe.
type Sampler interface {
	Count(id chem.Identity, pos r3.Vec) float64
	Concentration(id chem.Identity, pos r3.Vec) float64
}

// Probe is a named (species, position) sampling point.
type Probe struct {
	Name string
	ID   chem.Identity
	Pos  r3.Vec
}

// Sample is one probe reading.
type Sample struct {
	Tick          int     `csv:"tick"`
	SimTimeSec    float64 `csv:"sim_time"`
	Probe         string  `csv:"probe"`
	Species       string  `csv:"species"`
	Count         float64 `csv:"count"`
	Concentration float64 `csv:"concentration"`
}

// ProbeSet samples a fixed list of probes every interval ticks.
type ProbeSet struct {
	probes   []Probe
	interval int
	dt       float64
	buf      []Sample
}

// NewProbeSet creates a probe set. interval < 1 samples every tick.
func NewProbeSet(probes []Probe, interval int, dt float64) *ProbeSet {
	if interval < 1 {
		interval = 1
	}
	return &ProbeSet{
		probes:   probes,
		interval: interval,
		dt:       dt,
		buf:      make([]Sample, 0, len(probes)),
	}
}

// Due reports whether tick is a sampling tick.
func (ps *ProbeSet) Due(tick int) bool {
	return len(ps.probes) > 0 && tick%ps.interval == 0
}

// Sample reads every probe from s. The returned slice is reused by the next call.
func (ps *ProbeSet) Sample(tick int, s Sampler) []Sample {
	ps.buf = ps.buf[:0]
	for _, p := range ps.probes {
		ps.buf = append(ps.buf, Sample{
			Tick:          tick,
			SimTimeSec:    float64(tick) * ps.dt,
			Probe:         p.Name,
			Species:       p.ID.String(),
			Count:         s.Count(p.ID, p.Pos),
			Concentration: s.Concentration(p.ID, p.Pos),
		})
	}
	return ps.buf
}

// Len returns the number of probes.
func (ps *ProbeSet) Len() int {
	return len(ps.probes)
}
