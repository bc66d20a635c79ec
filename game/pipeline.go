package game

import (
	"errors"
	"fmt"

	"github.com/pthm-cable/katamari/event"
	"github.com/pthm-cable/katamari/input"
	"github.com/pthm-cable/katamari/katamari"
	"github.com/pthm-cable/katamari/telemetry"
)

// step runs one fixed step of the pipeline.
func (g *Core) step() error {
	dt := g.clock.Step()
	g.tick++
	g.simTime += dt

	g.perf.StartPhase(telemetry.PhaseInput)
	frame, err := g.agg.Sample(g.in.Snapshot())
	if err != nil {
		g.logger.Warn("input_sanitized", "tick", g.tick, "error", err)
		g.events.Warn("input ignored: %v", err)
	}
	if !g.director.InputEnabled() {
		frame = input.Frame{}
	}
	g.ball.ApplyInput(frame, dt)

	g.perf.StartPhase(telemetry.PhaseAttraction)
	g.resolver.ScanAttraction()

	g.perf.StartPhase(telemetry.PhasePhysics)
	g.phys.Step(dt)

	g.perf.StartPhase(telemetry.PhaseContacts)
	g.contacts = g.phys.DrainContacts(g.contacts[:0])
	g.ball.HandleContacts(g.contacts)

	g.perf.StartPhase(telemetry.PhaseKatamari)
	if err := g.ball.Update(dt, g.director.State().Boundary); err != nil {
		return g.fatal(err)
	}

	g.perf.StartPhase(telemetry.PhaseLevel)
	g.director.Evaluate(dt)

	g.perf.StartPhase(telemetry.PhaseSync)
	g.reg.Sync()

	g.perf.StartPhase(telemetry.PhaseEvents)
	g.dispatch()
	if g.disposed {
		return ErrDisposed
	}

	g.perf.StartPhase(telemetry.PhaseTelemetry)
	g.collector.RecordTick(g.ball.Speed(), g.ball.Radius())
	g.flushTelemetry()
	return nil
}

// present pushes the frame results after stepping.
func (g *Core) present(alpha float64) error {
	if g.disposed {
		return ErrDisposed
	}
	st := g.director.State()
	speed := g.ball.Speed()

	g.frames.OnFrame(alpha)
	g.ui.OnHUD(HUD{
		Radius: g.ball.Radius(),
		Speed:  speed,
		Items:  g.ball.Items(),
		Target: st.Target,
		FPS:    g.clock.FPS(),
	})
	g.audio.OnRoll(speed, st.Theme)

	if g.disposed {
		return ErrDisposed
	}
	return nil
}

// fatal turns a katamari disposal into a core disposal.
func (g *Core) fatal(err error) error {
	if errors.Is(err, katamari.ErrDisposed) {
		g.logger.Error("katamari_disposed_mid_tick", "tick", g.tick)
		g.Dispose()
		return ErrDisposed
	}
	return err
}

// dispatch drains the event queue into telemetry and the collaborators.
// Events pushed by callbacks are drained in the same call; nested calls
// return immediately.
func (g *Core) dispatch() {
	if g.dispatching {
		return
	}
	g.dispatching = true
	defer func() { g.dispatching = false }()

	for g.events.Len() > 0 {
		for _, e := range g.events.Drain() {
			g.handle(e)
			if g.disposed {
				return
			}
		}
	}
}

func (g *Core) handle(e event.Event) {
	switch e.Kind {
	case event.KindCollect:
		g.collector.RecordCollect(e.Size, e.Dangling)
		g.audio.OnCollect(e.Size, e.Speed)
	case event.KindBounce:
		g.collector.RecordBounce()
	case event.KindLevelStart:
		g.ui.OnMessage(true, fmt.Sprintf("Level %d: %s, reach %.1f", e.Level, e.Theme, e.Target))
	case event.KindLevelComplete:
		g.ui.OnLevelComplete(LevelSummary{Level: e.Level, Theme: e.Theme, NewTarget: e.Target})
	case event.KindGameWon:
		g.ui.OnGameWon(g.Summary())
	case event.KindLoading:
		g.ui.OnLoading(e.Show, e.Text)
	case event.KindWarning:
		g.collector.RecordWarning()
		g.ui.OnMessage(e.Show, e.Text)
	}
}
