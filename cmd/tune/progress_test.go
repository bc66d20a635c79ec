package main

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pthm-cable/katamari/config"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0m00s"},
		{65 * time.Second, "1m05s"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1h02m03s"},
		{1500 * time.Millisecond, "0m02s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestProgressKeepsBest(t *testing.T) {
	p := &progress{maxEvals: 3, start: time.Now(), best: 1e9}
	p.record(-1, []float64{1})
	p.record(-3, []float64{3})
	p.record(-2, []float64{2})

	if p.evals != 3 || p.best != -3 || p.params[0] != 3 {
		t.Errorf("evals=%d best=%v params=%v", p.evals, p.best, p.params)
	}
}

func TestEvalLogRows(t *testing.T) {
	pv := NewParamVector(config.MustDefault())
	path := filepath.Join(t.TempDir(), "tune_log.csv")

	l, err := newEvalLog(path, pv)
	if err != nil {
		t.Fatal(err)
	}
	l.Record(1, -1.5, 2, 0.1, pv.DefaultVector())
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want header + 1", len(rows))
	}
	if len(rows[0]) != 4+pv.Dim() || len(rows[1]) != len(rows[0]) {
		t.Errorf("columns header=%d row=%d", len(rows[0]), len(rows[1]))
	}
	if rows[1][0] != "1" || rows[1][1] != "-1.500000" {
		t.Errorf("row = %v", rows[1])
	}
}
