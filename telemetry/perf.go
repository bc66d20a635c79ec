package telemetry

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Phase is one stage of the per-step pipeline.
type Phase uint8

const (
	PhaseInput Phase = iota
	PhaseAttraction
	PhasePhysics
	PhaseContacts
	PhaseKatamari
	PhaseLevel
	PhaseSync
	PhaseEvents
	PhaseTelemetry

	numPhases
)

var phaseNames = [numPhases]string{
	"input", "attraction", "physics", "contacts", "katamari",
	"level", "sync", "events", "telemetry",
}

func (p Phase) String() string {
	if p < numPhases {
		return phaseNames[p]
	}
	return fmt.Sprintf("phase(%d)", uint8(p))
}

// frameSample is the timing of one Tick: the steps it ran and where the
// time went, summed over those steps.
type frameSample struct {
	total  time.Duration
	steps  int
	phases [numPhases]time.Duration
}

// PerfCollector times frames and pipeline phases over a rolling window of
// frames. A frame runs zero or more fixed steps.
type PerfCollector struct {
	// Now is the time source; tests replace it.
	Now func() time.Time

	samples []frameSample
	next    int
	count   int

	cur        frameSample
	frameStart time.Time
	phaseStart time.Time
	phase      Phase
	inPhase    bool
}

// NewPerfCollector creates a collector averaging over windowSize frames.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	return &PerfCollector{
		Now:     time.Now,
		samples: make([]frameSample, windowSize),
	}
}

// StartFrame begins timing a frame.
func (p *PerfCollector) StartFrame() {
	p.cur = frameSample{}
	p.frameStart = p.Now()
	p.inPhase = false
}

// StartPhase closes the running phase, if any, and starts ph.
func (p *PerfCollector) StartPhase(ph Phase) {
	now := p.Now()
	p.closePhase(now)
	p.phase = ph
	p.phaseStart = now
	p.inPhase = true
}

func (p *PerfCollector) closePhase(now time.Time) {
	if p.inPhase {
		p.cur.phases[p.phase] += now.Sub(p.phaseStart)
		p.inPhase = false
	}
}

// EndFrame records the frame, which ran steps fixed steps.
func (p *PerfCollector) EndFrame(steps int) {
	now := p.Now()
	p.closePhase(now)
	p.cur.total = now.Sub(p.frameStart)
	p.cur.steps = steps

	p.samples[p.next] = p.cur
	p.next = (p.next + 1) % len(p.samples)
	if p.count < len(p.samples) {
		p.count++
	}
}

// PerfStats summarizes the frames in the window.
type PerfStats struct {
	AvgFrame time.Duration
	P95Frame time.Duration
	MaxFrame time.Duration

	AvgSteps    float64 // Fixed steps per frame
	CatchUp     float64 // Fraction of frames that ran more than one step
	StepsPerSec float64 // Step throughput if frames ran back to back

	PhaseAvg [numPhases]time.Duration // Per step
	PhasePct [numPhases]float64       // Of total step time
}

// Stats computes statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	var s PerfStats
	if p.count == 0 {
		return s
	}

	durations := make([]float64, p.count)
	var total time.Duration
	var steps, catchUp int
	var phaseSum [numPhases]time.Duration
	for i := 0; i < p.count; i++ {
		f := p.samples[i]
		durations[i] = float64(f.total)
		total += f.total
		steps += f.steps
		if f.steps > 1 {
			catchUp++
		}
		if f.total > s.MaxFrame {
			s.MaxFrame = f.total
		}
		for ph, d := range f.phases {
			phaseSum[ph] += d
		}
	}
	sort.Float64s(durations)

	n := float64(p.count)
	s.AvgFrame = total / time.Duration(p.count)
	s.P95Frame = time.Duration(stat.Quantile(0.95, stat.Empirical, durations, nil))
	s.AvgSteps = float64(steps) / n
	s.CatchUp = float64(catchUp) / n

	var stepTime time.Duration
	for _, d := range phaseSum {
		stepTime += d
	}
	if steps > 0 {
		for ph, d := range phaseSum {
			s.PhaseAvg[ph] = d / time.Duration(steps)
		}
		if total > 0 {
			s.StepsPerSec = float64(steps) / total.Seconds()
		}
	}
	if stepTime > 0 {
		for ph, d := range phaseSum {
			s.PhasePct[ph] = float64(d) / float64(stepTime) * 100
		}
	}
	return s
}

// LogStats logs the window as one "perf" record. Phases under 0.1% are left out.
func (s PerfStats) LogStats(l *slog.Logger) {
	attrs := []any{
		"avg_frame_us", s.AvgFrame.Microseconds(),
		"p95_frame_us", s.P95Frame.Microseconds(),
		"max_frame_us", s.MaxFrame.Microseconds(),
		"avg_steps", s.AvgSteps,
		"catch_up", s.CatchUp,
	}
	for ph, pct := range s.PhasePct {
		if pct > 0.1 {
			attrs = append(attrs, Phase(ph).String()+"_pct", float64(int(pct*10))/10)
		}
	}
	l.Info("perf", attrs...)
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_frame_us", s.AvgFrame.Microseconds()),
		slog.Int64("p95_frame_us", s.P95Frame.Microseconds()),
		slog.Int64("max_frame_us", s.MaxFrame.Microseconds()),
		slog.Float64("avg_steps", s.AvgSteps),
		slog.Float64("steps_per_sec", s.StepsPerSec),
	}
	for ph, pct := range s.PhasePct {
		attrs = append(attrs, slog.Float64(Phase(ph).String()+"_pct", pct))
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is a flat struct for CSV export of performance stats.
type PerfStatsCSV struct {
	WindowEnd     int64   `csv:"window_end"`
	AvgFrameUS    int64   `csv:"avg_frame_us"`
	P95FrameUS    int64   `csv:"p95_frame_us"`
	MaxFrameUS    int64   `csv:"max_frame_us"`
	AvgSteps      float64 `csv:"avg_steps"`
	CatchUp       float64 `csv:"catch_up"`
	StepsPerSec   float64 `csv:"steps_per_sec"`
	InputPct      float64 `csv:"input_pct"`
	AttractionPct float64 `csv:"attraction_pct"`
	PhysicsPct    float64 `csv:"physics_pct"`
	ContactsPct   float64 `csv:"contacts_pct"`
	KatamariPct   float64 `csv:"katamari_pct"`
	LevelPct      float64 `csv:"level_pct"`
	SyncPct       float64 `csv:"sync_pct"`
	EventsPct     float64 `csv:"events_pct"`
	TelemetryPct  float64 `csv:"telemetry_pct"`
}

// ToCSV converts PerfStats to a flat CSV-friendly struct.
func (s PerfStats) ToCSV(windowEnd int64) PerfStatsCSV {
	return PerfStatsCSV{
		WindowEnd:     windowEnd,
		AvgFrameUS:    s.AvgFrame.Microseconds(),
		P95FrameUS:    s.P95Frame.Microseconds(),
		MaxFrameUS:    s.MaxFrame.Microseconds(),
		AvgSteps:      s.AvgSteps,
		CatchUp:       s.CatchUp,
		StepsPerSec:   s.StepsPerSec,
		InputPct:      s.PhasePct[PhaseInput],
		AttractionPct: s.PhasePct[PhaseAttraction],
		PhysicsPct:    s.PhasePct[PhasePhysics],
		ContactsPct:   s.PhasePct[PhaseContacts],
		KatamariPct:   s.PhasePct[PhaseKatamari],
		LevelPct:      s.PhasePct[PhaseLevel],
		SyncPct:       s.PhasePct[PhaseSync],
		EventsPct:     s.PhasePct[PhaseEvents],
		TelemetryPct:  s.PhasePct[PhaseTelemetry],
	}
}
