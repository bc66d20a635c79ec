package input

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/katamari/config"
)

func newTestAggregator() *Aggregator {
	return NewAggregator(config.InputConfig{TouchSensitivity: 0.01, TiltDeadZone: 5, MaxTilt: 30})
}

func near(a, b r3.Vec) bool {
	return r3.Norm(r3.Sub(a, b)) < 1e-9
}

func TestKeyboard(t *testing.T) {
	d := math.Sqrt2 / 2
	tests := []struct {
		name string
		keys Keys
		dir  r3.Vec
		mag  float64
	}{
		{"none", 0, r3.Vec{}, 0},
		{"forward", KeyForward, r3.Vec{Z: -1}, 1},
		{"back", KeyBack, r3.Vec{Z: 1}, 1},
		{"right", KeyRight, r3.Vec{X: 1}, 1},
		{"forward left", KeyForward | KeyLeft, r3.Vec{X: -d, Z: -d}, 1},
		{"opposites cancel", KeyForward | KeyBack, r3.Vec{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAggregator()
			f, err := a.Sample(Context{Keys: tt.keys, Basis: DefaultBasis()})
			if err != nil {
				t.Fatal(err)
			}
			if !near(f.Direction, tt.dir) || f.Magnitude != tt.mag {
				t.Errorf("got dir=%v mag=%v, want dir=%v mag=%v", f.Direction, f.Magnitude, tt.dir, tt.mag)
			}
			if n := r3.Norm(f.Direction); n != 0 && math.Abs(n-1) > 1e-12 {
				t.Errorf("|direction| = %v, want 0 or 1", n)
			}
		})
	}
}

func TestPriorityKeyboardWins(t *testing.T) {
	a := newTestAggregator()
	f, _ := a.Sample(Context{
		Keys:        KeyRight,
		Touch:       Touch{Active: true, X: 0, Y: 500},
		Orientation: Orientation{Beta: 20, Permitted: true, Enabled: true},
		Basis:       DefaultBasis(),
	})
	if f.Source != SourceKeyboard || !near(f.Direction, r3.Vec{X: 1}) {
		t.Errorf("frame = %+v, want keyboard right", f)
	}
}

func TestTouch(t *testing.T) {
	a := newTestAggregator()

	// 50px up the screen is half-speed forward
	f, _ := a.Sample(Context{Touch: Touch{Active: true, OriginX: 100, OriginY: 100, X: 100, Y: 50}, Basis: DefaultBasis()})
	if f.Source != SourceTouch || !near(f.Direction, r3.Vec{Z: -1}) || math.Abs(f.Magnitude-0.5) > 1e-12 {
		t.Errorf("half drag = %+v", f)
	}

	// Long drags clamp to unit magnitude
	f, _ = a.Sample(Context{Touch: Touch{Active: true, X: 1000}, Basis: DefaultBasis()})
	if f.Magnitude != 1 || !near(f.Direction, r3.Vec{X: 1}) {
		t.Errorf("long drag = %+v", f)
	}
}

func TestOrientation(t *testing.T) {
	tests := []struct {
		name string
		o    Orientation
		src  Source
		mag  float64
	}{
		{"not permitted", Orientation{Beta: 20, Enabled: true}, SourceNone, 0},
		{"not enabled", Orientation{Beta: 20, Permitted: true}, SourceNone, 0},
		{"dead zone", Orientation{Beta: 4, Gamma: -4, Permitted: true, Enabled: true}, SourceNone, 0},
		{"half tilt", Orientation{Beta: 15, Permitted: true, Enabled: true}, SourceOrientation, 0.5},
		{"clamped", Orientation{Beta: 60, Gamma: 60, Permitted: true, Enabled: true}, SourceOrientation, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAggregator()
			f, _ := a.Sample(Context{Orientation: tt.o, Basis: DefaultBasis()})
			if f.Source != tt.src || math.Abs(f.Magnitude-tt.mag) > 1e-12 {
				t.Errorf("got %+v, want source=%v mag=%v", f, tt.src, tt.mag)
			}
		})
	}
}

func TestCameraBasisRotatesDirection(t *testing.T) {
	a := newTestAggregator()
	// Camera looking along +x: forward is +x, right is +z
	basis := Basis{Forward: r3.Vec{X: 1}, Right: r3.Vec{Z: 1}}
	f, _ := a.Sample(Context{Keys: KeyForward, Basis: basis})
	if !near(f.Direction, r3.Vec{X: 1}) {
		t.Errorf("direction = %v, want +x", f.Direction)
	}
}

func TestNonFiniteReusesLastFrame(t *testing.T) {
	a := newTestAggregator()
	good, _ := a.Sample(Context{Keys: KeyForward, Basis: DefaultBasis()})

	f, err := a.Sample(Context{Touch: Touch{Active: true, X: math.NaN()}, Basis: DefaultBasis()})
	if !errors.Is(err, ErrNonFinite) {
		t.Fatalf("expected ErrNonFinite, got %v", err)
	}
	if f != good {
		t.Errorf("frame = %+v, want last valid %+v", f, good)
	}
}

func TestTapeCSVRoundTrip(t *testing.T) {
	tape := &Tape{}
	tape.Record(Context{Keys: KeyForward | KeyLeft, Basis: DefaultBasis()})
	tape.Record(Context{Touch: Touch{Active: true, OriginX: 1, OriginY: 2, X: 3, Y: 4}, Basis: DefaultBasis()})
	tape.Record(Context{Orientation: Orientation{Beta: 12.5, Gamma: -3, Permitted: true, Enabled: true}, Basis: DefaultBasis()})

	var buf bytes.Buffer
	if err := tape.WriteCSV(&buf); err != nil {
		t.Fatal(err)
	}
	loaded, err := ReadTapeCSV(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Len() != tape.Len() {
		t.Fatalf("len = %d, want %d", loaded.Len(), tape.Len())
	}
	for i := 0; i < tape.Len(); i++ {
		if got, want := loaded.Snapshot(), tape.Snapshot(); got != want {
			t.Errorf("frame %d = %+v, want %+v", i, got, want)
		}
	}
	// Exhausted tapes report idle input
	if ctx := loaded.Snapshot(); ctx.Keys != 0 || ctx.Touch.Active {
		t.Errorf("exhausted tape = %+v", ctx)
	}
}

func TestRecorder(t *testing.T) {
	src := NewTape([]Context{{Keys: KeyBack}, {Keys: KeyRight}})
	rec := &Recorder{Provider: src, Tape: &Tape{}}
	rec.Snapshot()
	rec.Snapshot()
	if rec.Tape.Len() != 2 {
		t.Errorf("recorded %d, want 2", rec.Tape.Len())
	}
}
