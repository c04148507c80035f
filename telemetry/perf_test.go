package telemetry

import (
	"testing"
	"time"
)

func TestPerfCollectorTracksPhases(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := 0; i < 5; i++ {
		pc.StartTick()
		pc.StartPhase(PhaseDiffusion)
		time.Sleep(100 * time.Microsecond)
		pc.StartPhase(PhaseArbitration)
		time.Sleep(200 * time.Microsecond)
		pc.EndTick()
	}

	stats := pc.Stats()
	if stats.AvgTickDuration <= 0 {
		t.Error("expected positive average tick duration")
	}
	for _, phase := range []string{PhaseDiffusion, PhaseArbitration} {
		if _, ok := stats.PhaseAvg[phase]; !ok {
			t.Errorf("phase %s not tracked", phase)
		}
	}
	if stats.PhasePct[PhaseArbitration] <= stats.PhasePct[PhaseDiffusion] {
		t.Errorf("arbitration (%v%%) should outweigh diffusion (%v%%)",
			stats.PhasePct[PhaseArbitration], stats.PhasePct[PhaseDiffusion])
	}
}

func TestPerfCollectorRollingWindow(t *testing.T) {
	pc := NewPerfCollector(5)

	for i := 0; i < 12; i++ {
		pc.StartTick()
		pc.StartPhase(PhaseClamp)
		pc.EndTick()
	}

	stats := pc.Stats()
	if stats.AvgTickDuration <= 0 {
		t.Error("expected positive average tick duration after window filled")
	}
	if stats.TicksPerSecond <= 0 {
		t.Error("expected positive ticks per second")
	}
}

func TestPerfCollectorEmpty(t *testing.T) {
	stats := NewPerfCollector(0).Stats()

	if stats.AvgTickDuration != 0 {
		t.Error("expected zero avg tick duration for empty collector")
	}
	if stats.PhaseAvg == nil || stats.PhasePct == nil {
		t.Error("expected non-nil phase maps")
	}
}

func TestPerfStatsToCSV(t *testing.T) {
	s := PerfStats{
		AvgTickDuration: 1500 * time.Microsecond,
		PhasePct: map[string]float64{
			PhaseDiffusion:   40,
			PhaseArbitration: 55,
		},
	}
	row := s.ToCSV(300)
	if row.WindowEnd != 300 || row.AvgTickUS != 1500 {
		t.Errorf("row = %+v", row)
	}
	if row.DiffusionPct != 40 || row.ArbitrationPct != 55 || row.KineticsPct != 0 {
		t.Errorf("phase columns = %+v", row)
	}
}
