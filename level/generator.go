package level

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"math/rand"
	"strconv"
	"strings"

	"github.com/ojrac/opensimplex-go"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/katamari/config"
)

// ErrNoItems is returned when a plan would contain no items.
var ErrNoItems = errors.New("level: plan has no items")

// PlannedItem is one item the generator wants spawned.
type PlannedItem struct {
	Archetype string
	Pos       r3.Vec
	Radius    float64
	Mass      float64
	Color     color.RGBA
}

// Plan is a generated level layout.
type Plan struct {
	Items      []PlannedItem
	Palette    []color.RGBA
	Fog        color.RGBA
	Background color.RGBA
}

// Generator produces item layouts for a level. Implementations must be
// deterministic for a given rng state.
type Generator interface {
	PlanLevel(st State, rng *rand.Rand) (Plan, error)
}

// ThemedGenerator scatters theme archetypes uniformly over a disk inside
// the boundary. Archetype choice is modulated by simplex noise so kinds
// cluster into patches.
type ThemedGenerator struct {
	cfg *config.Config

	// NoiseScale is the number of noise features across the boundary.
	NoiseScale float64
	// Clustering in [0,1] is how strongly noise biases archetype choice.
	Clustering float64
}

// NewThemedGenerator creates the default generator.
func NewThemedGenerator(cfg *config.Config) *ThemedGenerator {
	return &ThemedGenerator{cfg: cfg, NoiseScale: 4, Clustering: 0.8}
}

// PlanLevel generates the layout for st.
func (g *ThemedGenerator) PlanLevel(st State, rng *rand.Rand) (Plan, error) {
	th := g.cfg.Theme(st.ThemeIndex)
	plan := Plan{
		Fog:        ParseColor(th.Fog),
		Background: ParseColor(th.Background),
	}
	for _, a := range th.Archetypes {
		plan.Palette = append(plan.Palette, ParseColor(a.Color))
	}

	b := st.Boundary
	n := int(th.Density * math.Pi * b * b / 100)
	if n > g.cfg.Level.MaxItems {
		n = g.cfg.Level.MaxItems
	}
	if n <= 0 {
		return plan, fmt.Errorf("%w: level %d theme %s", ErrNoItems, st.Index, th.Name)
	}

	noise := opensimplex.New(rng.Int63())
	freq := g.NoiseScale / b
	weights := make([]float64, len(th.Archetypes))

	plan.Items = make([]PlannedItem, 0, n)
	for i := 0; i < n; i++ {
		x, z := DiskPoint(rng, b*0.95)

		total := 0.0
		for j, a := range th.Archetypes {
			bias := noise.Eval2(x*freq+float64(j)*31.7, z*freq)
			w := a.Weight * math.Max(0.05, 1+g.Clustering*bias)
			weights[j] = w
			total += w
		}
		pick := len(weights) - 1
		u := rng.Float64() * total
		for j, w := range weights {
			if u < w {
				pick = j
				break
			}
			u -= w
		}

		a := th.Archetypes[pick]
		minS, maxS := a.MinSize*st.Target, a.MaxSize*st.Target
		s := minS + rng.Float64()*(maxS-minS)
		plan.Items = append(plan.Items, PlannedItem{
			Archetype: a.Name,
			Pos:       r3.Vec{X: x, Y: s, Z: z},
			Radius:    s,
			Mass:      a.Density * s * s * s,
			Color:     plan.Palette[pick],
		})
	}
	return plan, nil
}

// DiskPoint samples a point uniformly in a disk of the given radius.
func DiskPoint(rng *rand.Rand, radius float64) (x, z float64) {
	r := radius * math.Sqrt(rng.Float64())
	theta := 2 * math.Pi * rng.Float64()
	return r * math.Cos(theta), r * math.Sin(theta)
}

// ParseColor parses "#rrggbb" or "#rrggbbaa". Malformed input yields magenta.
func ParseColor(s string) color.RGBA {
	s = strings.TrimPrefix(s, "#")
	if len(s) == 6 {
		s += "ff"
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if len(s) != 8 || err != nil {
		return color.RGBA{R: 255, B: 255, A: 255}
	}
	return color.RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}
}
