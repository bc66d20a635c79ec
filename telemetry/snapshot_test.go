package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/katamari/components"
	"github.com/pthm-cable/katamari/config"
	"github.com/pthm-cable/katamari/input"
	"github.com/pthm-cable/katamari/katamari"
	"github.com/pthm-cable/katamari/level"
)

func TestSnapshotSaveLoad(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := config.MustDefault()

	snapshot := &Snapshot{
		Version:    SnapshotVersion,
		Seed:       42,
		Tick:       1000,
		SimTimeSec: 16.6,
		Phase:      "playing",
		Katamari: katamari.State{
			Radius:      2.4,
			Target:      2.5,
			Items:       1,
			Position:    r3.Vec{X: 1, Y: 2.4, Z: -3},
			Orientation: [4]float64{1, 0, 0, 0},
			Attached: []components.AttachedRecord{
				{ItemID: 7, Archetype: "pebble", Radius: 0.3, Offset: r3.Vec{Y: 1}, Scale: 0.85},
			},
		},
		Level: level.Initial(cfg),
		Items: []ItemState{
			{ID: 8, Archetype: "rock", X: 10, Y: 1, Z: 4, Radius: 1, Mass: 2.7, State: "free", Generation: 1},
		},
		Bookmark: &Bookmark{
			Type:        BookmarkGrowthSpurt,
			Tick:        1000,
			Description: "Test bookmark",
		},
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
	if loaded.Seed != snapshot.Seed || loaded.Tick != snapshot.Tick {
		t.Errorf("header mismatch: got seed=%d tick=%d", loaded.Seed, loaded.Tick)
	}
	if loaded.Katamari.Radius != 2.4 || len(loaded.Katamari.Attached) != 1 || loaded.Katamari.Attached[0].ItemID != 7 {
		t.Errorf("katamari mismatch: %+v", loaded.Katamari)
	}
	if loaded.Level.Theme != "earth" || loaded.Level.Target != 10 {
		t.Errorf("level mismatch: %+v", loaded.Level)
	}
	if len(loaded.Items) != 1 || loaded.Items[0] != snapshot.Items[0] {
		t.Errorf("items mismatch: %+v", loaded.Items)
	}
	if loaded.Bookmark == nil || loaded.Bookmark.Type != BookmarkGrowthSpurt {
		t.Errorf("bookmark mismatch: %+v", loaded.Bookmark)
	}
}

func TestSnapshotFilename(t *testing.T) {
	tmpDir := t.TempDir()

	snapshot := &Snapshot{
		Version:  SnapshotVersion,
		Tick:     5000,
		Bookmark: &Bookmark{Type: BookmarkLevelUp, Tick: 5000},
	}
	path, err := SaveSnapshot(snapshot, tmpDir)
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	if expected := filepath.Join(tmpDir, "snapshot_5000_level_up.json"); path != expected {
		t.Errorf("Path mismatch: got %s, want %s", path, expected)
	}

	path, err = SaveSnapshot(&Snapshot{Version: SnapshotVersion, Tick: 3000}, tmpDir)
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	if expected := filepath.Join(tmpDir, "snapshot_3000.json"); path != expected {
		t.Errorf("Path mismatch: got %s, want %s", path, expected)
	}
}

func TestLoadSnapshotRejectsVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.json")
	if err := os.WriteFile(path, []byte(`{"version": 99}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSnapshot(path); err == nil {
		t.Error("expected version error")
	}
}

func TestOutputManager(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatalf("NewOutputManager: %v", err)
	}
	if err := om.WriteConfig(config.MustDefault()); err != nil {
		t.Fatalf("WriteConfig: %v", err)
	}
	for i := 1; i <= 2; i++ {
		if err := om.WriteTelemetry(WindowStats{WindowEndTick: int64(i * 600), Level: 1, Theme: "earth"}); err != nil {
			t.Fatalf("WriteTelemetry: %v", err)
		}
	}
	if err := om.WriteBookmark(Bookmark{Type: BookmarkStall, Tick: 1200, Description: "idle"}); err != nil {
		t.Fatalf("WriteBookmark: %v", err)
	}
	tape := input.NewTape(nil)
	tape.Record(input.Context{Keys: input.KeyForward, Basis: input.DefaultBasis()})
	if err := om.WriteTape(tape); err != nil {
		t.Fatalf("WriteTape: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "telemetry.csv"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[0], "window_end,") {
		t.Errorf("telemetry.csv = %q", data)
	}
	for _, name := range []string{"config.yaml", "perf.csv", "bookmarks.csv", "input_tape.csv"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s missing: %v", name, err)
		}
	}

	f, err := os.Open(filepath.Join(dir, "input_tape.csv"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	replay, err := input.ReadTapeCSV(f)
	if err != nil || replay.Len() != 1 {
		t.Errorf("tape replay len=%d err=%v", replay.Len(), err)
	}
}

func TestNilOutputManager(t *testing.T) {
	om, err := NewOutputManager("")
	if om != nil || err != nil {
		t.Fatalf("empty dir should disable output, got %v %v", om, err)
	}
	if err := om.WriteTelemetry(WindowStats{}); err != nil {
		t.Error(err)
	}
	if err := om.Close(); err != nil {
		t.Error(err)
	}
}
