package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStartTick int64   `csv:"-"`
	WindowEndTick   int64   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Level at window end
	Level  int     `csv:"level"`
	Theme  string  `csv:"theme"`
	Target float64 `csv:"target"`

	// Ball at window end
	Radius     float64 `csv:"radius"`
	Items      int     `csv:"items"`
	LiveItems  int     `csv:"live_items"`
	Progress   float64 `csv:"progress"`
	RadiusGain float64 `csv:"radius_gain"`

	// Events during window
	Collected   int     `csv:"collected"`
	Bounced     int     `csv:"bounced"`
	Dangling    int     `csv:"dangling"`
	Warnings    int     `csv:"warnings"`
	CollectRate float64 `csv:"collect_rate"` // Collections per second

	// Collected item sizes during window
	SizeMean float64 `csv:"size_mean"`
	SizeP10  float64 `csv:"size_p10"`
	SizeP50  float64 `csv:"size_p50"`
	SizeP90  float64 `csv:"size_p90"`

	// Ball speed samples (one per tick)
	SpeedMean float64 `csv:"speed_mean"`
	SpeedStd  float64 `csv:"speed_std"`
	SpeedMax  float64 `csv:"speed_max"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeSizeStats calculates mean and percentiles from item sizes.
func ComputeSizeStats(values []float64) (mean, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0
	}
	mean = stat.Mean(values, nil)

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return mean, Percentile(sorted, 0.10), Percentile(sorted, 0.50), Percentile(sorted, 0.90)
}

// ComputeSpeedStats calculates mean, population std and max of speed samples.
func ComputeSpeedStats(values []float64) (mean, std, max float64) {
	if len(values) == 0 {
		return 0, 0, 0
	}
	mean, std = stat.PopMeanStdDev(values, nil)
	for _, v := range values {
		if v > max {
			max = v
		}
	}
	return mean, std, max
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("window_start", s.WindowStartTick),
		slog.Int64("window_end", s.WindowEndTick),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("level", s.Level),
		slog.String("theme", s.Theme),
		slog.Float64("target", s.Target),
		slog.Float64("radius", s.Radius),
		slog.Int("items", s.Items),
		slog.Int("live_items", s.LiveItems),
		slog.Float64("progress", s.Progress),
		slog.Float64("radius_gain", s.RadiusGain),
		slog.Int("collected", s.Collected),
		slog.Int("bounced", s.Bounced),
		slog.Int("dangling", s.Dangling),
		slog.Int("warnings", s.Warnings),
		slog.Float64("collect_rate", s.CollectRate),
		slog.Float64("size_mean", s.SizeMean),
		slog.Float64("size_p10", s.SizeP10),
		slog.Float64("size_p50", s.SizeP50),
		slog.Float64("size_p90", s.SizeP90),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("speed_std", s.SpeedStd),
		slog.Float64("speed_max", s.SpeedMax),
	)
}

// LogStats logs the window stats using l.
func (s WindowStats) LogStats(l *slog.Logger) {
	l.Info("stats", "window", s)
}
