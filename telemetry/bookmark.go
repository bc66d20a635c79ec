package telemetry

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/stat"
)

// BookmarkType names a kind of notable moment.
type BookmarkType string

const (
	BookmarkCollectBurst BookmarkType = "collect_burst"
	BookmarkGrowthSpurt  BookmarkType = "growth_spurt"
	BookmarkStall        BookmarkType = "stall"
	BookmarkLevelUp      BookmarkType = "level_up"
	BookmarkBounceStreak BookmarkType = "bounce_streak"
)

// Bookmark marks a notable moment in a run, found from window stats.
type Bookmark struct {
	Type        BookmarkType `csv:"type"`
	Tick        int64        `csv:"tick"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark using l.
func (b Bookmark) LogBookmark(l *slog.Logger) {
	l.Info("bookmark", "type", string(b.Type), "tick", b.Tick, "description", b.Description)
}

func mark(typ BookmarkType, w WindowStats, format string, args ...any) *Bookmark {
	return &Bookmark{Type: typ, Tick: w.WindowEndTick, Description: fmt.Sprintf(format, args...)}
}

const (
	stallWindows   = 3 // Empty windows in a row that count as a stall
	minBaseline    = 3 // Windows of history before ratios are trusted
	spikeFactor    = 2.0
	minBurstCount  = 5
	minSpurtGain   = 0.05 // Relative radius gain per window
	minBounceCount = 10
)

// BookmarkDetector compares each window with the recent ones and flags
// bursts, spurts, stalls, level ups and bounce streaks.
type BookmarkDetector struct {
	recent []WindowStats // Oldest first, at most keep entries
	keep   int

	lastLevel   int
	idleWindows int
	stalled     bool
}

// NewBookmarkDetector keeps up to historySize windows (at least 5) as the
// baseline.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	return &BookmarkDetector{keep: max(historySize, 5)}
}

// Check returns the bookmarks w triggers and adds w to the baseline.
func (bd *BookmarkDetector) Check(w WindowStats) []Bookmark {
	rules := []func(WindowStats) *Bookmark{bd.levelUp, bd.stall}
	if len(bd.recent) > 0 {
		rules = append(rules, bd.collectBurst, bd.growthSpurt, bd.bounceStreak)
	}

	var out []Bookmark
	for _, rule := range rules {
		if b := rule(w); b != nil {
			out = append(out, *b)
		}
	}

	bd.recent = append(bd.recent, w)
	if over := len(bd.recent) - bd.keep; over > 0 {
		bd.recent = append(bd.recent[:0], bd.recent[over:]...)
	}
	return out
}

// baseline averages f over the recent windows. ok is false until there is
// enough history.
func (bd *BookmarkDetector) baseline(f func(WindowStats) float64) (avg float64, ok bool) {
	if len(bd.recent) < minBaseline {
		return 0, false
	}
	vals := make([]float64, len(bd.recent))
	for i, w := range bd.recent {
		vals[i] = f(w)
	}
	return stat.Mean(vals, nil), true
}

func (bd *BookmarkDetector) levelUp(w WindowStats) *Bookmark {
	prev := bd.lastLevel
	bd.lastLevel = w.Level
	if prev == 0 || w.Level <= prev {
		return nil
	}
	return mark(BookmarkLevelUp, w, "Reached level %d (%s) at radius %.2f", w.Level, w.Theme, w.Radius)
}

func (bd *BookmarkDetector) collectBurst(w WindowStats) *Bookmark {
	avg, ok := bd.baseline(func(h WindowStats) float64 { return h.CollectRate })
	if !ok || avg == 0 || w.Collected < minBurstCount || w.CollectRate <= avg*spikeFactor {
		return nil
	}
	return mark(BookmarkCollectBurst, w, "Collect rate %.2f/s is %.1fx average (%.2f/s)",
		w.CollectRate, w.CollectRate/avg, avg)
}

// growthSpurt compares relative gains so spurts stay visible as the ball grows.
func (bd *BookmarkDetector) growthSpurt(w WindowStats) *Bookmark {
	if w.Radius <= 0 {
		return nil
	}
	avg, ok := bd.baseline(func(h WindowStats) float64 {
		if h.Radius <= 0 {
			return 0
		}
		return h.RadiusGain / h.Radius
	})
	gain := w.RadiusGain / w.Radius
	if !ok || avg <= 0 || gain <= minSpurtGain || gain <= avg*spikeFactor {
		return nil
	}
	return mark(BookmarkGrowthSpurt, w, "Radius grew %.1f%% in one window (%.1fx average)", gain*100, gain/avg)
}

func (bd *BookmarkDetector) bounceStreak(w WindowStats) *Bookmark {
	if w.Bounced < minBounceCount || w.Bounced <= w.Collected*2 {
		return nil
	}
	return mark(BookmarkBounceStreak, w, "%d bounces against %d collections", w.Bounced, w.Collected)
}

// stall fires once when nothing is collected for stallWindows windows in a
// row while items remain.
func (bd *BookmarkDetector) stall(w WindowStats) *Bookmark {
	if w.Collected > 0 || w.LiveItems == 0 {
		bd.idleWindows = 0
		bd.stalled = false
		return nil
	}
	bd.idleWindows++
	if bd.idleWindows < stallWindows || bd.stalled {
		return nil
	}
	bd.stalled = true
	return mark(BookmarkStall, w, "No collections for %d windows at radius %.2f (%.0f%% of target)",
		bd.idleWindows, w.Radius, w.Progress*100)
}
