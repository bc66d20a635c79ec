package clock

import (
	"math"
	"testing"

	"github.com/pthm-cable/katamari/config"
)

func newTestClock() *Clock {
	return New(config.ClockConfig{
		StepDuration: 1.0 / 60.0,
		MaxSteps:     3,
		PauseAfter:   0.25,
		FPSSmoothing: 0.5,
	})
}

func TestFirstTickInitializes(t *testing.T) {
	c := newTestClock()
	s := c.Tick(100)
	if s.Count != 0 || s.Alpha != 0 {
		t.Errorf("first tick = %+v, want zero", s)
	}
}

func TestStepsForDelta(t *testing.T) {
	step := 1.0 / 60.0
	tests := []struct {
		name  string
		delta float64
		want  int
	}{
		{"half step", step / 2, 0},
		{"one step", step, 1},
		{"two and a half", step * 2.5, 2},
		{"capped", step * 10, 3},
		{"just under pause", 0.249, 3},
		{"pause", 0.3, 0},
		{"negative", -1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClock()
			c.Tick(10)
			s := c.Tick(10 + tt.delta)
			if s.Count != tt.want {
				t.Errorf("Count = %d, want %d", s.Count, tt.want)
			}
			if s.Alpha < 0 || s.Alpha >= 1 {
				t.Errorf("Alpha = %v out of [0,1)", s.Alpha)
			}
		})
	}
}

func TestCarryAccumulates(t *testing.T) {
	step := 1.0 / 60.0
	c := newTestClock()
	now := 0.0
	c.Tick(now)

	total := 0
	for i := 0; i < 120; i++ {
		now += step / 2
		total += c.Tick(now).Count
	}
	if total < 59 || total > 60 {
		t.Errorf("120 half-step frames produced %d steps, want ~60", total)
	}
}

func TestAlphaIsLeftoverFraction(t *testing.T) {
	step := 1.0 / 60.0
	c := newTestClock()
	c.Tick(0)
	s := c.Tick(step * 1.25)
	if s.Count != 1 {
		t.Fatalf("Count = %d, want 1", s.Count)
	}
	if math.Abs(s.Alpha-0.25) > 1e-6 {
		t.Errorf("Alpha = %v, want 0.25", s.Alpha)
	}
}

func TestCapClampsCarry(t *testing.T) {
	step := 1.0 / 60.0
	c := newTestClock()
	c.Tick(0)
	c.Tick(0.2) // 12 steps worth, capped at 3

	// Backlog must not spill into the next frame beyond one step
	s := c.Tick(0.2 + step*0.5)
	if s.Count > 1 {
		t.Errorf("backlog leaked: Count = %d", s.Count)
	}
}

func TestPauseResetsCarry(t *testing.T) {
	step := 1.0 / 60.0
	c := newTestClock()
	c.Tick(0)
	c.Tick(step * 0.9)
	if s := c.Tick(5); s.Count != 0 || s.Alpha != 0 {
		t.Errorf("pause tick = %+v, want zero", s)
	}
	if s := c.Tick(5 + step*0.5); s.Count != 0 {
		t.Errorf("carry survived pause: Count = %d", s.Count)
	}
}

func TestNonFiniteIgnored(t *testing.T) {
	c := newTestClock()
	c.Tick(0)
	if s := c.Tick(math.NaN()); s.Count != 0 {
		t.Errorf("NaN produced %d steps", s.Count)
	}
	if s := c.Tick(1.0 / 60.0); s.Count != 1 {
		t.Errorf("Count after NaN = %d, want 1", s.Count)
	}
}

func TestFPSEstimate(t *testing.T) {
	c := newTestClock()
	now := 0.0
	c.Tick(now)
	for i := 0; i < 50; i++ {
		now += 1.0 / 30.0
		c.Tick(now)
	}
	if fps := c.FPS(); math.Abs(fps-30) > 0.5 {
		t.Errorf("FPS = %v, want ~30", fps)
	}
}
