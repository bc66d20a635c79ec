package telemetry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/katamari/config"
	"github.com/pthm-cable/katamari/input"
)

// csvLog is one append-only CSV file. The header goes out with the first row.
type csvLog struct {
	name   string
	f      *os.File
	header bool
}

func openCSVLog(dir, name string) (*csvLog, error) {
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", name, err)
	}
	return &csvLog{name: name, f: f}, nil
}

func appendRow[T any](l *csvLog, row T) error {
	rows := []T{row}
	var err error
	if l.header {
		err = gocsv.MarshalWithoutHeaders(rows, l.f)
	} else {
		err = gocsv.Marshal(rows, l.f)
		l.header = err == nil
	}
	if err != nil {
		return fmt.Errorf("appending to %s: %w", l.name, err)
	}
	return nil
}

func (l *csvLog) close() error {
	if l == nil {
		return nil
	}
	return l.f.Close()
}

// OutputManager owns a run directory: window stats, perf and bookmark
// logs plus the config and input tape written beside them. A nil manager
// discards everything.
type OutputManager struct {
	dir string

	windows   *csvLog
	perf      *csvLog
	bookmarks *csvLog
}

// NewOutputManager opens the logs under dir. An empty dir disables output
// and yields a nil manager.
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}
	for name, dst := range map[string]**csvLog{
		"telemetry.csv": &om.windows,
		"perf.csv":      &om.perf,
		"bookmarks.csv": &om.bookmarks,
	} {
		l, err := openCSVLog(dir, name)
		if err != nil {
			om.Close()
			return nil, err
		}
		*dst = l
	}
	return om, nil
}

// WriteConfig stores cfg as config.yaml.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteTelemetry appends one window to telemetry.csv.
func (om *OutputManager) WriteTelemetry(stats WindowStats) error {
	if om == nil {
		return nil
	}
	return appendRow(om.windows, stats)
}

// WritePerf appends one perf window, stamped with windowEnd, to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, windowEnd int64) error {
	if om == nil {
		return nil
	}
	return appendRow(om.perf, stats.ToCSV(windowEnd))
}

// WriteBookmark appends b to bookmarks.csv.
func (om *OutputManager) WriteBookmark(b Bookmark) error {
	if om == nil {
		return nil
	}
	return appendRow(om.bookmarks, b)
}

// WriteTape dumps tape as input_tape.csv.
func (om *OutputManager) WriteTape(tape *input.Tape) error {
	if om == nil || tape == nil {
		return nil
	}
	f, err := os.Create(filepath.Join(om.dir, "input_tape.csv"))
	if err != nil {
		return fmt.Errorf("creating input tape: %w", err)
	}
	werr := tape.WriteCSV(f)
	return errors.Join(werr, f.Close())
}

// Dir returns the run directory, or "" when output is disabled.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes every log.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}
	return errors.Join(om.windows.close(), om.perf.close(), om.bookmarks.close())
}
