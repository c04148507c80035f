// Package telemetry provides perf timing, probe sampling, window statistics
// and CSV output for engine runs.
package telemetry

import "github.com/pthm-cable/cytosol/systems"

// Collector accumulates events within tick windows and produces WindowStats.
type Collector struct {
	windowDurationTicks int
	dt                  float64

	// Current window tracking
	windowStartTick int

	// Event counters for current window
	rulesApplied int
	rulesSkipped int
	rationed     int
	energyStalls int

	// Cumulative
	energyInput float64
}

// NewCollector creates a new stats collector.
// windowTicks: ticks per stats window
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(windowTicks int, dt float64) *Collector {
	if windowTicks < 1 {
		windowTicks = 1
	}
	return &Collector{
		windowDurationTicks: windowTicks,
		dt:                  dt,
	}
}

// RecordOutcome adds one tick's arbitration counters.
func (c *Collector) RecordOutcome(o systems.Outcome) {
	c.rulesApplied += o.Rules - o.Skipped
	c.rulesSkipped += o.Skipped
	c.rationed += o.Rationed
}

// RecordStalls records organelle energy requests that failed.
func (c *Collector) RecordStalls(n int) {
	c.energyStalls += n
}

// RecordEnergyInput records energy added by sources.
func (c *Collector) RecordEnergyInput(amount float64) {
	c.energyInput += amount
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush produces a WindowStats from the per-cell energy counts and resets
// counters for the next window.
func (c *Collector) Flush(currentTick int, energyPerCell []float64) WindowStats {
	d := Summarize(energyPerCell)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * c.dt,

		EnergyTotal: d.Total,
		EnergyMean:  d.Mean,
		EnergyStd:   d.Std,
		EnergyP10:   d.P10,
		EnergyP50:   d.P50,
		EnergyP90:   d.P90,

		RulesApplied: c.rulesApplied,
		RulesSkipped: c.rulesSkipped,
		Rationed:     c.rationed,
		EnergyStalls: c.energyStalls,
		EnergyInput:  c.energyInput,
	}

	// Reset for next window
	c.windowStartTick = currentTick
	c.rulesApplied = 0
	c.rulesSkipped = 0
	c.rationed = 0
	c.energyStalls = 0

	return stats
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int {
	return c.windowDurationTicks
}
