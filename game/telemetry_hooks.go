package game

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/katamari/components"
	"github.com/pthm-cable/katamari/telemetry"
)

// flushTelemetry checks if the stats window should be flushed and handles bookmarks.
func (g *Core) flushTelemetry() {
	if !g.collector.ShouldFlush(g.tick) {
		return
	}

	st := g.director.State()
	stats := g.collector.Flush(g.tick, telemetry.Sample{
		Level:     st.Index,
		Theme:     st.Theme,
		Target:    st.Target,
		Radius:    g.ball.Radius(),
		Items:     g.ball.Items(),
		LiveItems: g.reg.CountGeneration(g.director.Generation()),
	})
	perfStats := g.perf.Stats()

	if g.opts.LogStats {
		stats.LogStats(g.logger)
		perfStats.LogStats(g.logger)
	}

	if err := g.output.WriteTelemetry(stats); err != nil {
		g.logger.Error("failed to write telemetry", "error", err)
	}
	if err := g.output.WritePerf(perfStats, stats.WindowEndTick); err != nil {
		g.logger.Error("failed to write perf", "error", err)
	}

	for _, bm := range g.bookmarks.Check(stats) {
		if g.opts.LogStats {
			bm.LogBookmark(g.logger)
		}
		if err := g.output.WriteBookmark(bm); err != nil {
			g.logger.Error("failed to write bookmark", "error", err)
		}
		if g.opts.SnapshotDir != "" {
			g.saveSnapshot(&bm)
		}
	}
}

// saveSnapshot creates and saves a snapshot to disk.
func (g *Core) saveSnapshot(bookmark *telemetry.Bookmark) {
	snapshot := g.Snapshot()
	snapshot.Bookmark = bookmark

	path, err := telemetry.SaveSnapshot(snapshot, g.opts.SnapshotDir)
	if err != nil {
		g.logger.Error("failed to save snapshot", "error", err)
		return
	}
	g.logger.Info("snapshot saved", "path", path, "tick", g.tick)
}

// Snapshot captures the ball, the level and every registry item.
func (g *Core) Snapshot() *telemetry.Snapshot {
	snapshot := &telemetry.Snapshot{
		Version:    telemetry.SnapshotVersion,
		Seed:       g.opts.Seed,
		Tick:       g.tick,
		SimTimeSec: g.simTime,
		Phase:      g.director.Phase().String(),
		Katamari:   g.ball.State(),
		Level:      g.director.State(),
	}

	g.reg.Each(func(_ ecs.Entity, item *components.Item, pos *components.Position) {
		snapshot.Items = append(snapshot.Items, telemetry.ItemState{
			ID:         item.ID,
			Archetype:  item.Archetype,
			X:          pos.X,
			Y:          pos.Y,
			Z:          pos.Z,
			Radius:     item.Radius,
			Mass:       item.Mass,
			State:      item.State.String(),
			Generation: item.Generation,
		})
	})
	return snapshot
}
