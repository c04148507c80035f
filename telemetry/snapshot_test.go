package telemetry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/cytosol/chem"
	"github.com/pthm-cable/cytosol/systems"
)

func TestSnapshotSaveLoadRestore(t *testing.T) {
	tmpDir := t.TempDir()

	par2 := chem.ProteinOf("PAR-2", chem.CElegans)
	g := systems.NewGrid(3)
	g.Cell(4).Deposit(chem.ATP, 1200, false)
	g.Cell(4).Deposit(par2, 35.5, true)
	g.Cell(20).Deposit(par2, 7, false)

	snapshot := CaptureSnapshot(g, 1000, 0.01, &Bookmark{
		Type:        BookmarkEnergyCrash,
		Tick:        1000,
		Description: "Test bookmark",
	})
	if len(snapshot.Cells) != 2 {
		t.Fatalf("captured %d cells, want 2", len(snapshot.Cells))
	}

	path, err := SaveSnapshot(snapshot, tmpDir)
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("Snapshot file not created at %s", path)
	}

	loaded, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if loaded.Tick != snapshot.Tick || loaded.Resolution != 3 {
		t.Errorf("header mismatch: %+v", loaded)
	}
	if loaded.Bookmark == nil || loaded.Bookmark.Type != BookmarkEnergyCrash {
		t.Errorf("bookmark = %+v", loaded.Bookmark)
	}

	fresh := systems.NewGrid(3)
	if err := loaded.Restore(fresh); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if got := fresh.Cell(4).Count(par2); got != 35.5 {
		t.Errorf("restored PAR-2 = %v", got)
	}
	if !fresh.Cell(4).Attached(par2) || fresh.Cell(20).Attached(par2) {
		t.Error("binding state not restored")
	}
	if got := fresh.Cell(4).Count(chem.ATP); got != 1200 {
		t.Errorf("restored ATP = %v", got)
	}

	if err := loaded.Restore(systems.NewGrid(2)); err == nil {
		t.Error("expected resolution mismatch error")
	}
}

func TestSnapshotFilename(t *testing.T) {
	tmpDir := t.TempDir()

	snapshot := &Snapshot{
		Version: SnapshotVersion,
		Tick:    5000,
		Bookmark: &Bookmark{
			Type: BookmarkStallOnset,
			Tick: 5000,
		},
	}

	path, err := SaveSnapshot(snapshot, tmpDir)
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	expected := filepath.Join(tmpDir, "snapshot_5000_stall_onset.json")
	if path != expected {
		t.Errorf("Path mismatch: got %s, want %s", path, expected)
	}

	snapshotNoBookmark := &Snapshot{
		Version: SnapshotVersion,
		Tick:    3000,
	}

	path, err = SaveSnapshot(snapshotNoBookmark, tmpDir)
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	expected = filepath.Join(tmpDir, "snapshot_3000.json")
	if path != expected {
		t.Errorf("Path mismatch: got %s, want %s", path, expected)
	}
}

func TestLoadSnapshotVersionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.json")
	if err := os.WriteFile(path, []byte(`{"version": 99, "tick": 1}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSnapshot(path); err == nil {
		t.Error("expected version error")
	}
}
