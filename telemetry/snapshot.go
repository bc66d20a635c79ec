package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pthm-cable/katamari/katamari"
	"github.com/pthm-cable/katamari/level"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot is a JSON dump of the core state for debugging and replay checks.
type Snapshot struct {
	Version int   `json:"version"`
	Seed    int64 `json:"seed"`

	Tick       int64   `json:"tick"`
	SimTimeSec float64 `json:"sim_time"`
	Phase      string  `json:"phase"`

	Katamari katamari.State `json:"katamari"`
	Level    level.State    `json:"level"`
	Items    []ItemState    `json:"items"`

	Bookmark *Bookmark `json:"bookmark,omitempty"`
}

// ItemState holds one registry item.
type ItemState struct {
	ID         uint64  `json:"id"`
	Archetype  string  `json:"archetype"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Radius     float64 `json:"radius"`
	Mass       float64 `json:"mass"`
	State      string  `json:"state"`
	Generation uint32  `json:"generation"`
}

// FileName is the snapshot's name on disk: the tick, then the bookmark
// type when there is one.
func (s *Snapshot) FileName() string {
	name := "snapshot_" + strconv.FormatInt(s.Tick, 10)
	if s.Bookmark != nil {
		name += "_" + strings.ReplaceAll(string(s.Bookmark.Type), " ", "_")
	}
	return name + ".json"
}

// SaveSnapshot encodes snapshot under dir and returns its path.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("snapshot dir %s: %w", dir, err)
	}
	path := filepath.Join(dir, snapshot.FileName())
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("snapshot %s: %w", path, err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := errors.Join(enc.Encode(snapshot), f.Close()); err != nil {
		return "", fmt.Errorf("snapshot %s: %w", path, err)
	}
	return path, nil
}

// LoadSnapshot decodes the snapshot at path. Other format versions are
// rejected.
func LoadSnapshot(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", path, err)
	}
	defer f.Close()

	s := new(Snapshot)
	if err := json.NewDecoder(f).Decode(s); err != nil {
		return nil, fmt.Errorf("decoding snapshot %s: %w", path, err)
	}
	if s.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot %s has version %d, this build reads %d", path, s.Version, SnapshotVersion)
	}
	return s, nil
}
