package systems

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/cytosol/chem"
)

func TestTRNAChargingSaturates(t *testing.T) {
	pairs := chem.TRNAChargingPairs(chem.Human)
	k := &TRNACharging{Pairs: pairs, Rate: 0.5}
	cell := chem.NewCell()
	cell.Deposit(pairs[0].Uncharged, 100, false)

	k.Step(&cell, 1)

	moved := 100 * (1 - math.Exp(-0.5))
	if got := cell.Count(pairs[0].Charged); math.Abs(got-moved) > 1e-9 {
		t.Errorf("charged = %v, want %v", got, moved)
	}
	if got := cell.Count(pairs[0].Uncharged) + cell.Count(pairs[0].Charged); math.Abs(got-100) > 1e-9 {
		t.Errorf("pool not conserved: %v", got)
	}

	for i := 0; i < 200; i++ {
		k.Step(&cell, 1)
	}
	if got := cell.Count(pairs[0].Uncharged); got < 0 || got > 1e-9 {
		t.Errorf("uncharged = %v after long run", got)
	}
}

func TestTRNAChargingMinTransfer(t *testing.T) {
	pairs := chem.TRNAChargingPairs(chem.Human)
	k := &TRNACharging{Pairs: pairs[:1], Rate: 0.01, MinTransfer: 1}
	cell := chem.NewCell()
	cell.Deposit(pairs[0].Uncharged, 10, false)

	k.Step(&cell, 1)

	if got := cell.Count(pairs[0].Uncharged); got != 10 {
		t.Errorf("sub-threshold transfer happened: %v", got)
	}
}

func TestTranscriptDecay(t *testing.T) {
	mrna := chem.NewIdentity("PAR-1", chem.MessengerTranscript, chem.CElegans)
	faint := chem.NewIdentity("PAR-2", chem.MessengerTranscript, chem.CElegans)
	cell := chem.NewCell()
	cell.Deposit(mrna, 80, false)
	cell.Deposit(faint, 0.015, false)
	cell.Deposit(chem.ATP, 80, false)

	k := &TranscriptDecay{HalfLife: 10, PruneBelow: 0.01}
	k.Step(&cell, 10)

	if got := cell.Count(mrna); math.Abs(got-40) > 1e-9 {
		t.Errorf("mRNA = %v, want 40 after one half-life", got)
	}
	if cell.Population(faint) != nil {
		t.Error("faint transcript should be pruned")
	}
	if got := cell.Count(chem.ATP); got != 80 {
		t.Errorf("non-transcript decayed: %v", got)
	}
}

func TestKineticsChain(t *testing.T) {
	pairs := chem.TRNAChargingPairs(chem.Human)[:1]
	mrna := chem.NewIdentity("X", chem.MessengerTranscript, chem.Human)
	cell := chem.NewCell()
	cell.Deposit(pairs[0].Uncharged, 10, false)
	cell.Deposit(mrna, 10, false)

	chain := KineticsChain{
		&TRNACharging{Pairs: pairs, Rate: 1},
		&TranscriptDecay{HalfLife: 1},
	}
	chain.Step(&cell, 1)

	if cell.Count(pairs[0].Charged) == 0 {
		t.Error("charging did not run")
	}
	if got := cell.Count(mrna); math.Abs(got-5) > 1e-9 {
		t.Errorf("mRNA = %v, want 5", got)
	}
}

func TestCellVolumesAffine(t *testing.T) {
	g := NewGrid(3)
	m := CubeOfVolume(27000)
	vols := CellVolumes(g, m)

	for i, v := range vols {
		if math.Abs(v-1000) > 1e-6 {
			t.Errorf("cell %d volume = %v, want 1000", i, v)
		}
	}
	if got := TotalVolume(vols); math.Abs(got-27000) > 1e-6 {
		t.Errorf("total = %v, want 27000", got)
	}
}

func TestCellVolumesNonUniform(t *testing.T) {
	g := NewGrid(2)
	// Stretch x quadratically so cells on the +x side are larger.
	m := MappingFunc(func(p r3.Vec) r3.Vec {
		return r3.Vec{X: (p.X + 1) * (p.X + 1), Y: p.Y, Z: p.Z}
	})
	vols := CellVolumes(g, m)

	small := vols[g.Encode(0, 0, 0)]
	large := vols[g.Encode(1, 0, 0)]
	if math.Abs(small-1) > 1e-9 || math.Abs(large-3) > 1e-9 {
		t.Errorf("volumes = %v, %v, want 1, 3", small, large)
	}
}

func TestHexVolumeMirrored(t *testing.T) {
	var corners [8]r3.Vec
	for k := range corners {
		corners[k] = r3.Vec{
			X: -float64(k >> 2 & 1),
			Y: float64(k >> 1 & 1),
			Z: float64(k & 1),
		}
	}
	if got := HexVolume(corners); math.Abs(got-1) > 1e-12 {
		t.Errorf("mirrored unit cube volume = %v", got)
	}
}
