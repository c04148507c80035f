package sim

import (
	"log/slog"

	"github.com/pthm-cable/cytosol/telemetry"
)

// sampleProbes writes probe readings on sampling ticks.
func (s *Sim) sampleProbes() {
	if !s.probes.Due(s.tick) {
		return
	}
	samples := s.probes.Sample(s.tick, s.medium)
	if s.outputManager != nil {
		if err := s.outputManager.WriteSamples(samples); err != nil {
			slog.Error("failed to write samples", "error", err)
		}
	}
}

// flushTelemetry checks if the stats window should be flushed and handles bookmarks.
func (s *Sim) flushTelemetry() {
	if !s.collector.ShouldFlush(s.tick) {
		return
	}

	stats := s.collector.Flush(s.tick, s.sampleEnergy())
	perfStats := s.perfCollector.Stats()

	if s.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if s.outputManager != nil {
		if err := s.outputManager.WriteStats(stats); err != nil {
			slog.Error("failed to write stats", "error", err)
		}
		if err := s.outputManager.WritePerf(perfStats, stats.WindowEndTick); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
	}

	for _, bm := range s.bookmarkDetector.Check(stats) {
		if s.logStats {
			bm.LogBookmark()
		}
		if s.outputManager != nil {
			if err := s.outputManager.WriteBookmark(bm); err != nil {
				slog.Error("failed to write bookmark", "error", err)
			}
		}
		if s.snapshotDir != "" {
			s.saveSnapshot(&bm)
		}
	}
}

// saveSnapshot writes the medium state for a bookmark.
func (s *Sim) saveSnapshot(bookmark *telemetry.Bookmark) {
	snapshot := telemetry.CaptureSnapshot(s.medium.Grid(), s.tick, s.cfg.Simulation.DT, bookmark)
	path, err := telemetry.SaveSnapshot(snapshot, s.snapshotDir)
	if err != nil {
		slog.Error("failed to save snapshot", "error", err)
		return
	}
	slog.Info("snapshot saved", "path", path, "tick", s.tick)
}

// SaveSnapshot writes the current medium state to dir and returns the path.
func (s *Sim) SaveSnapshot(dir string) (string, error) {
	return telemetry.SaveSnapshot(telemetry.CaptureSnapshot(s.medium.Grid(), s.tick, s.cfg.Simulation.DT, nil), dir)
}

// sampleEnergy collects per-cell energy counts for the window summary.
func (s *Sim) sampleEnergy() []float64 {
	g := s.medium.Grid()
	id := s.medium.EnergyIdentity()
	s.energyBuf = s.energyBuf[:0]
	for i := 0; i < g.Len(); i++ {
		s.energyBuf = append(s.energyBuf, g.Cell(i).Count(id))
	}
	return s.energyBuf
}

// Stats returns the perf statistics of the recent ticks.
func (s *Sim) Stats() telemetry.PerfStats {
	return s.perfCollector.Stats()
}
