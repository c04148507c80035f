package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkEnergyCrash    BookmarkType = "energy_crash"
	BookmarkRationingSpike BookmarkType = "rationing_spike"
	BookmarkStallOnset     BookmarkType = "stall_onset"
	BookmarkSteadyState    BookmarkType = "steady_state"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type"`
	Tick        int          `csv:"tick"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"description", b.Description,
	)
}

// BookmarkDetector flags notable moments in a run from successive windows.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	energyPeak   float64 // peak total energy since the last crash
	steadyCount  int     // consecutive windows with flat energy
	stallsBefore bool    // any stalls seen in the previous window
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 5 {
		historySize = 5 // minimum for steady-state detection
	}
	return &BookmarkDetector{
		history:     make([]WindowStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	if bd.historyFull || bd.historyIdx > 0 {
		if b := bd.checkEnergyCrash(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
		if b := bd.checkRationingSpike(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
		if b := bd.checkStallOnset(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
		if b := bd.checkSteadyState(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
	}

	bd.addToHistory(stats)
	if stats.EnergyTotal > bd.energyPeak {
		bd.energyPeak = stats.EnergyTotal
	}
	bd.stallsBefore = stats.EnergyStalls > 0

	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

// recent returns up to n of the latest windows, oldest first.
func (bd *BookmarkDetector) recent(n int) []WindowStats {
	count := bd.historyIdx
	if bd.historyFull {
		count = bd.historySize
	}
	n = min(n, count)
	out := make([]WindowStats, n)
	for i := 0; i < n; i++ {
		idx := (bd.historyIdx - n + i + bd.historySize) % bd.historySize
		out[i] = bd.history[idx]
	}
	return out
}

func (bd *BookmarkDetector) checkEnergyCrash(stats WindowStats) *Bookmark {
	if bd.energyPeak <= 0 {
		return nil
	}
	drop := 1 - stats.EnergyTotal/bd.energyPeak
	if drop <= 0.30 {
		return nil
	}
	oldPeak := bd.energyPeak
	bd.energyPeak = stats.EnergyTotal
	return &Bookmark{
		Type:        BookmarkEnergyCrash,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("Energy fell %.0f%% from peak %.3g to %.3g", drop*100, oldPeak, stats.EnergyTotal),
	}
}

func (bd *BookmarkDetector) checkRationingSpike(stats WindowStats) *Bookmark {
	history := bd.recent(bd.historySize)
	if len(history) < 3 {
		return nil
	}
	var total int
	for _, h := range history {
		total += h.Rationed
	}
	avg := float64(total) / float64(len(history))
	if avg == 0 || stats.Rationed < 10 {
		return nil
	}
	if float64(stats.Rationed) > avg*2 {
		return &Bookmark{
			Type:        BookmarkRationingSpike,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Rationed %d identities, %.1fx average (%.1f)", stats.Rationed, float64(stats.Rationed)/avg, avg),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkStallOnset(stats WindowStats) *Bookmark {
	if bd.stallsBefore || stats.EnergyStalls == 0 {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkStallOnset,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("%d organelle energy requests failed", stats.EnergyStalls),
	}
}

func (bd *BookmarkDetector) checkSteadyState(stats WindowStats) *Bookmark {
	history := bd.recent(4)
	if len(history) < 4 || stats.EnergyTotal <= 0 {
		bd.steadyCount = 0
		return nil
	}

	var sum float64
	for _, h := range history {
		sum += h.EnergyTotal
	}
	mean := sum / 4
	var variance float64
	for _, h := range history {
		d := h.EnergyTotal - mean
		variance += d * d
	}
	variance /= 4

	// CV^2 < 1e-4 means CV < 1%
	if mean > 0 && variance/(mean*mean) < 1e-4 {
		bd.steadyCount++
	} else {
		bd.steadyCount = 0
	}

	if bd.steadyCount == 5 {
		return &Bookmark{
			Type:        BookmarkSteadyState,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Energy steady near %.3g over 5+ windows", mean),
		}
	}
	return nil
}
