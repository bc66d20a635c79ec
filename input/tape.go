package input

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/spatial/r3"
)

// tapeRow is the flat CSV form of a Context.
type tapeRow struct {
	Keys        uint8   `csv:"keys"`
	TouchActive bool    `csv:"touch_active"`
	TouchOX     float64 `csv:"touch_ox"`
	TouchOY     float64 `csv:"touch_oy"`
	TouchX      float64 `csv:"touch_x"`
	TouchY      float64 `csv:"touch_y"`
	Beta        float64 `csv:"beta"`
	Gamma       float64 `csv:"gamma"`
	Permitted   bool    `csv:"permitted"`
	Enabled     bool    `csv:"enabled"`
	FwdX        float64 `csv:"fwd_x"`
	FwdZ        float64 `csv:"fwd_z"`
	RightX      float64 `csv:"right_x"`
	RightZ      float64 `csv:"right_z"`
}

// Tape is a recorded sequence of contexts, one per physics step.
// As a Provider it replays the recording and then reports idle input.
type Tape struct {
	frames []Context
	pos    int
}

// NewTape creates a tape over existing frames.
func NewTape(frames []Context) *Tape {
	return &Tape{frames: frames}
}

// Record appends a context.
func (t *Tape) Record(ctx Context) {
	t.frames = append(t.frames, ctx)
}

// Len returns the number of recorded frames.
func (t *Tape) Len() int { return len(t.frames) }

// Rewind restarts playback.
func (t *Tape) Rewind() { t.pos = 0 }

// Snapshot returns the next recorded context.
func (t *Tape) Snapshot() Context {
	if t.pos >= len(t.frames) {
		return Context{Basis: DefaultBasis()}
	}
	ctx := t.frames[t.pos]
	t.pos++
	return ctx
}

// WriteCSV writes the tape with a header row.
func (t *Tape) WriteCSV(w io.Writer) error {
	rows := make([]*tapeRow, len(t.frames))
	for i, c := range t.frames {
		rows[i] = &tapeRow{
			Keys:        uint8(c.Keys),
			TouchActive: c.Touch.Active,
			TouchOX:     c.Touch.OriginX,
			TouchOY:     c.Touch.OriginY,
			TouchX:      c.Touch.X,
			TouchY:      c.Touch.Y,
			Beta:        c.Orientation.Beta,
			Gamma:       c.Orientation.Gamma,
			Permitted:   c.Orientation.Permitted,
			Enabled:     c.Orientation.Enabled,
			FwdX:        c.Basis.Forward.X,
			FwdZ:        c.Basis.Forward.Z,
			RightX:      c.Basis.Right.X,
			RightZ:      c.Basis.Right.Z,
		}
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("writing input tape: %w", err)
	}
	return nil
}

// ReadTapeCSV loads a tape written by WriteCSV.
func ReadTapeCSV(r io.Reader) (*Tape, error) {
	var rows []*tapeRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("reading input tape: %w", err)
	}
	t := &Tape{frames: make([]Context, len(rows))}
	for i, row := range rows {
		t.frames[i] = Context{
			Keys: Keys(row.Keys),
			Touch: Touch{
				Active:  row.TouchActive,
				OriginX: row.TouchOX,
				OriginY: row.TouchOY,
				X:       row.TouchX,
				Y:       row.TouchY,
			},
			Orientation: Orientation{
				Beta:      row.Beta,
				Gamma:     row.Gamma,
				Permitted: row.Permitted,
				Enabled:   row.Enabled,
			},
			Basis: Basis{
				Forward: r3.Vec{X: row.FwdX, Z: row.FwdZ},
				Right:   r3.Vec{X: row.RightX, Z: row.RightZ},
			},
		}
	}
	return t, nil
}

// Recorder wraps a provider and records every snapshot it hands out.
type Recorder struct {
	Provider Provider
	Tape     *Tape
}

// Snapshot forwards to the wrapped provider and records the result.
func (r *Recorder) Snapshot() Context {
	ctx := r.Provider.Snapshot()
	r.Tape.Record(ctx)
	return ctx
}
