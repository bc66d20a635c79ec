package telemetry

import (
	"math"
	"testing"
	"time"
)

// fakeClock advances only when told to.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTimedCollector(window int) (*PerfCollector, *fakeClock) {
	clk := &fakeClock{t: time.Unix(0, 0)}
	pc := NewPerfCollector(window)
	pc.Now = clk.now
	return pc, clk
}

// frame runs one frame of n steps, each spending physics then contacts.
func frame(pc *PerfCollector, clk *fakeClock, n int, physics, contacts time.Duration) {
	pc.StartFrame()
	for i := 0; i < n; i++ {
		pc.StartPhase(PhasePhysics)
		clk.advance(physics)
		pc.StartPhase(PhaseContacts)
		clk.advance(contacts)
	}
	pc.EndFrame(n)
}

func TestPerfCollectorPhases(t *testing.T) {
	pc, clk := newTimedCollector(10)
	for i := 0; i < 5; i++ {
		frame(pc, clk, 2, 300*time.Microsecond, 100*time.Microsecond)
	}

	s := pc.Stats()
	if s.AvgFrame != 800*time.Microsecond {
		t.Errorf("avg frame = %v, want 800us", s.AvgFrame)
	}
	if s.PhaseAvg[PhasePhysics] != 300*time.Microsecond {
		t.Errorf("physics per step = %v, want 300us", s.PhaseAvg[PhasePhysics])
	}
	if s.PhasePct[PhasePhysics] != 75 || s.PhasePct[PhaseContacts] != 25 {
		t.Errorf("pct physics=%v contacts=%v, want 75/25", s.PhasePct[PhasePhysics], s.PhasePct[PhaseContacts])
	}
	if s.AvgSteps != 2 || s.CatchUp != 1 {
		t.Errorf("avg steps = %v catch up = %v", s.AvgSteps, s.CatchUp)
	}
	if math.Abs(s.StepsPerSec-2500) > 1e-6 {
		t.Errorf("steps/s = %v, want 2500", s.StepsPerSec)
	}
}

func TestPerfCollectorRollingWindow(t *testing.T) {
	pc, clk := newTimedCollector(4)
	for i := 0; i < 4; i++ {
		frame(pc, clk, 1, 10*time.Millisecond, 0)
	}
	// Overwrites the whole window
	for i := 0; i < 4; i++ {
		frame(pc, clk, 1, time.Millisecond, 0)
	}

	s := pc.Stats()
	if s.AvgFrame != time.Millisecond || s.MaxFrame != time.Millisecond {
		t.Errorf("avg = %v max = %v, want 1ms after the window rolled", s.AvgFrame, s.MaxFrame)
	}
}

func TestPerfCollectorP95(t *testing.T) {
	pc, clk := newTimedCollector(20)
	for i := 0; i < 19; i++ {
		frame(pc, clk, 1, time.Millisecond, 0)
	}
	frame(pc, clk, 1, 50*time.Millisecond, 0)

	s := pc.Stats()
	if s.MaxFrame != 50*time.Millisecond {
		t.Errorf("max = %v", s.MaxFrame)
	}
	if s.P95Frame != time.Millisecond {
		t.Errorf("p95 = %v, want 1ms (one spike in twenty)", s.P95Frame)
	}
}

func TestPerfCollectorIdleFrames(t *testing.T) {
	pc, clk := newTimedCollector(10)
	// Frames with no steps still count toward frame time
	pc.StartFrame()
	clk.advance(time.Millisecond)
	pc.EndFrame(0)

	s := pc.Stats()
	if s.AvgFrame != time.Millisecond || s.AvgSteps != 0 || s.StepsPerSec != 0 {
		t.Errorf("stats = %+v", s)
	}
	for ph, pct := range s.PhasePct {
		if pct != 0 {
			t.Errorf("%v pct = %v with no steps", Phase(ph), pct)
		}
	}
}

func TestPerfCollectorEmpty(t *testing.T) {
	s := NewPerfCollector(10).Stats()
	if s.AvgFrame != 0 || s.StepsPerSec != 0 {
		t.Errorf("empty stats = %+v", s)
	}
}

func TestPhaseString(t *testing.T) {
	if PhaseAttraction.String() != "attraction" || PhaseTelemetry.String() != "telemetry" {
		t.Error("phase names out of order")
	}
	if Phase(200).String() != "phase(200)" {
		t.Errorf("unknown phase = %q", Phase(200).String())
	}
}

func TestPerfStatsToCSV(t *testing.T) {
	var s PerfStats
	s.AvgFrame = 2 * time.Millisecond
	s.PhasePct[PhasePhysics] = 60
	s.PhasePct[PhaseContacts] = 25
	s.PhasePct[PhaseLevel] = 15

	row := s.ToCSV(600)
	if row.WindowEnd != 600 || row.AvgFrameUS != 2000 {
		t.Errorf("row = %+v", row)
	}
	if row.PhysicsPct != 60 || row.ContactsPct != 25 || row.LevelPct != 15 || row.InputPct != 0 {
		t.Errorf("phase columns = %+v", row)
	}
}
