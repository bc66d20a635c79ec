package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"
)

// progress tracks the best evaluation and timing across a tuning run.
type progress struct {
	maxEvals int
	start    time.Time

	evals  int
	best   float64
	params []float64
}

func (p *progress) record(fitness float64, params []float64) {
	p.evals++
	if fitness < p.best {
		p.best = fitness
		p.params = params
	}
}

// timing reports elapsed time and an ETA from the mean evaluation time.
func (p *progress) timing() string {
	elapsed := time.Since(p.start)
	per := elapsed / time.Duration(p.evals)
	remaining := time.Duration(p.maxEvals-p.evals) * per
	return fmt.Sprintf("elapsed: %s, ETA: %s", formatDuration(elapsed), formatDuration(remaining))
}

// formatDuration formats a duration as 1h02m03s, or 2m03s when under an hour.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

// evalLog writes one CSV row per evaluation, flushed as it goes so a
// killed run keeps its history.
type evalLog struct {
	f *os.File
	w *csv.Writer
}

func newEvalLog(path string, params *ParamVector) (*evalLog, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create log: %w", err)
	}
	l := &evalLog{f: f, w: csv.NewWriter(f)}

	header := []string{"eval", "fitness", "levels", "pace_error"}
	for _, spec := range params.Specs {
		header = append(header, spec.Name)
	}
	l.w.Write(header)
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		f.Close()
		return nil, fmt.Errorf("write log header: %w", err)
	}
	return l, nil
}

// Record appends one evaluation.
func (l *evalLog) Record(eval int, fitness, levels, paceErr float64, values []float64) {
	row := []string{
		strconv.Itoa(eval),
		strconv.FormatFloat(fitness, 'f', 6, 64),
		strconv.FormatFloat(levels, 'f', 2, 64),
		strconv.FormatFloat(paceErr, 'f', 4, 64),
	}
	for _, v := range values {
		row = append(row, strconv.FormatFloat(v, 'f', 6, 64))
	}
	l.w.Write(row)
	l.w.Flush()
}

// Close flushes and closes the file.
func (l *evalLog) Close() error {
	l.w.Flush()
	return l.f.Close()
}
