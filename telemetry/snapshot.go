package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pthm-cable/cytosol/chem"
	"github.com/pthm-cable/cytosol/systems"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds the complete medium state at one tick.
type Snapshot struct {
	Version    int     `json:"version"`
	Tick       int     `json:"tick"`
	SimTimeSec float64 `json:"sim_time"`
	Resolution int     `json:"resolution"`

	Cells []CellState `json:"cells"`

	Bookmark *Bookmark `json:"bookmark,omitempty"`
}

// CellState holds one compartment. Empty cells are omitted.
type CellState struct {
	Index       int               `json:"index"`
	Volume      float64           `json:"volume"`
	Populations []PopulationState `json:"populations"`
}

// PopulationState is one entry of a cell, keyed by the textual identity parts.
type PopulationState struct {
	Kind     string  `json:"kind"`
	Class    string  `json:"class"`
	Variant  string  `json:"variant"`
	Count    float64 `json:"count"`
	Attached bool    `json:"attached,omitempty"`
}

// CaptureSnapshot copies the state of g. Populations are listed in identity
// order so identical states produce identical files.
func CaptureSnapshot(g *systems.Grid, tick int, dt float64, bookmark *Bookmark) *Snapshot {
	s := &Snapshot{
		Version:    SnapshotVersion,
		Tick:       tick,
		SimTimeSec: float64(tick) * dt,
		Resolution: g.Res,
		Bookmark:   bookmark,
	}
	for i := 0; i < g.Len(); i++ {
		c := g.Cell(i)
		if c.Len() == 0 {
			continue
		}
		cs := CellState{Index: i, Volume: c.Volume()}
		for _, id := range c.Identities() {
			p := c.Population(id)
			cs.Populations = append(cs.Populations, PopulationState{
				Kind:     string(id.Kind),
				Class:    id.Class.String(),
				Variant:  id.Variant.String(),
				Count:    p.Count,
				Attached: p.Attached,
			})
		}
		s.Cells = append(s.Cells, cs)
	}
	return s
}

// Restore merges the snapshot's populations into g, which must have the same
// resolution. Volumes are left to the medium's mapping.
func (s *Snapshot) Restore(g *systems.Grid) error {
	if s.Resolution != g.Res {
		return fmt.Errorf("snapshot resolution %d does not match grid %d", s.Resolution, g.Res)
	}
	for _, cs := range s.Cells {
		if cs.Index < 0 || cs.Index >= g.Len() {
			return fmt.Errorf("cell index %d out of range", cs.Index)
		}
		c := g.Cell(cs.Index)
		for _, ps := range cs.Populations {
			id, err := chem.ParseIdentity(ps.Kind, ps.Class, ps.Variant)
			if err != nil {
				return fmt.Errorf("cell %d: %w", cs.Index, err)
			}
			if ps.Count < 0 {
				return fmt.Errorf("cell %d %s: negative count %g", cs.Index, id, ps.Count)
			}
			c.Deposit(id, ps.Count, ps.Attached)
		}
	}
	return nil
}

// SaveSnapshot writes a snapshot to disk.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	name := fmt.Sprintf("snapshot_%d", snapshot.Tick)
	if snapshot.Bookmark != nil {
		sanitized := strings.ReplaceAll(string(snapshot.Bookmark.Type), " ", "_")
		name = fmt.Sprintf("snapshot_%d_%s", snapshot.Tick, sanitized)
	}
	name += ".json"

	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snapshot.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d, want %d", snapshot.Version, SnapshotVersion)
	}

	return &snapshot, nil
}
