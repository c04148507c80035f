package telemetry

import "testing"

func hasBookmark(bookmarks []Bookmark, typ BookmarkType) bool {
	for _, bm := range bookmarks {
		if bm.Type == typ {
			return true
		}
	}
	return false
}

func TestBookmarkDetector_EnergyCrash(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 5; i++ {
		bd.Check(WindowStats{WindowEndTick: i * 100, EnergyTotal: 1e6})
	}

	got := bd.Check(WindowStats{WindowEndTick: 500, EnergyTotal: 4e5})
	if !hasBookmark(got, BookmarkEnergyCrash) {
		t.Error("expected energy_crash bookmark")
	}

	// Peak resets after the crash, so a further small dip is quiet.
	got = bd.Check(WindowStats{WindowEndTick: 600, EnergyTotal: 3.8e5})
	if hasBookmark(got, BookmarkEnergyCrash) {
		t.Error("unexpected second crash bookmark")
	}
}

func TestBookmarkDetector_RationingSpike(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 5; i++ {
		bd.Check(WindowStats{WindowEndTick: i * 100, Rationed: 10, EnergyTotal: 1})
	}

	got := bd.Check(WindowStats{WindowEndTick: 500, Rationed: 40, EnergyTotal: 1})
	if !hasBookmark(got, BookmarkRationingSpike) {
		t.Error("expected rationing_spike bookmark")
	}
}

func TestBookmarkDetector_StallOnset(t *testing.T) {
	bd := NewBookmarkDetector(10)
	bd.Check(WindowStats{WindowEndTick: 0})

	if got := bd.Check(WindowStats{WindowEndTick: 100, EnergyStalls: 3}); !hasBookmark(got, BookmarkStallOnset) {
		t.Error("expected stall_onset bookmark")
	}
	if got := bd.Check(WindowStats{WindowEndTick: 200, EnergyStalls: 5}); hasBookmark(got, BookmarkStallOnset) {
		t.Error("continuing stalls should not trigger again")
	}
}

func TestBookmarkDetector_SteadyState(t *testing.T) {
	bd := NewBookmarkDetector(10)

	triggered := 0
	for i := 0; i < 12; i++ {
		got := bd.Check(WindowStats{WindowEndTick: i * 100, EnergyTotal: 5e5})
		if hasBookmark(got, BookmarkSteadyState) {
			triggered++
		}
	}
	if triggered != 1 {
		t.Errorf("steady_state triggered %d times, want 1", triggered)
	}
}
