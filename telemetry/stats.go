package telemetry

import (
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a window of ticks.
type WindowStats struct {
	WindowStartTick int     `csv:"-"`
	WindowEndTick   int     `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Energy currency across cells (sampled at window end)
	EnergyTotal float64 `csv:"energy_total"`
	EnergyMean  float64 `csv:"energy_mean"`
	EnergyStd   float64 `csv:"energy_std"`
	EnergyP10   float64 `csv:"energy_p10"`
	EnergyP50   float64 `csv:"energy_p50"`
	EnergyP90   float64 `csv:"energy_p90"`

	// Arbitration during window
	RulesApplied int `csv:"rules_applied"`
	RulesSkipped int `csv:"rules_skipped"`
	Rationed     int `csv:"rationed"`

	// Organelle energy requests that could not be paid
	EnergyStalls int `csv:"energy_stalls"`

	// Cumulative energy added by sources
	EnergyInput float64 `csv:"energy_input"`
}

// Distribution summarizes a set of per-cell values.
type Distribution struct {
	Total, Mean, Std float64
	P10, P50, P90    float64
}

// Percentile returns the empirical p-th quantile of a sorted slice: the
// smallest value whose cumulative share reaches p. p is clamped to [0, 1].
// Returns 0 if the slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	p = math.Max(0, math.Min(1, p))
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}

// Summarize computes total, mean, sample standard deviation and percentiles.
func Summarize(values []float64) Distribution {
	n := len(values)
	if n == 0 {
		return Distribution{}
	}

	var d Distribution
	d.Total = floats.Sum(values)
	if n > 1 {
		d.Mean, d.Std = stat.MeanStdDev(values, nil)
	} else {
		d.Mean = values[0]
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	d.P10 = Percentile(sorted, 0.10)
	d.P50 = Percentile(sorted, 0.50)
	d.P90 = Percentile(sorted, 0.90)
	return d
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", s.WindowStartTick),
		slog.Int("window_end", s.WindowEndTick),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Float64("energy_total", s.EnergyTotal),
		slog.Float64("energy_mean", s.EnergyMean),
		slog.Float64("energy_std", s.EnergyStd),
		slog.Float64("energy_p10", s.EnergyP10),
		slog.Float64("energy_p50", s.EnergyP50),
		slog.Float64("energy_p90", s.EnergyP90),
		slog.Int("rules_applied", s.RulesApplied),
		slog.Int("rules_skipped", s.RulesSkipped),
		slog.Int("rationed", s.Rationed),
		slog.Int("energy_stalls", s.EnergyStalls),
		slog.Float64("energy_input", s.EnergyInput),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats", "window", s)
}
