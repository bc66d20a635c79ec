package physics

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// cellKey packs a cell coordinate pair into one map key.
type cellKey int64

func keyOf(col, row int32) cellKey {
	return cellKey(int64(col)<<32 | int64(uint32(row)))
}

// SpatialGrid buckets item bodies into square cells on the xz plane.
// Cells are allocated on demand so the play area can grow between levels.
type SpatialGrid struct {
	cellSize float64
	cells    map[cellKey][]BodyID
	used     []cellKey // Cells touched since the last Clear, in insertion order
}

// NewSpatialGrid creates a grid with the given cell size.
func NewSpatialGrid(cellSize float64) *SpatialGrid {
	return &SpatialGrid{
		cellSize: cellSize,
		cells:    make(map[cellKey][]BodyID, 256),
	}
}

// Clear empties every cell, keeping their backing arrays.
func (g *SpatialGrid) Clear() {
	for _, k := range g.used {
		g.cells[k] = g.cells[k][:0]
	}
	g.used = g.used[:0]
}

// Insert adds a body at the given position.
func (g *SpatialGrid) Insert(id BodyID, pos r3.Vec) {
	k := keyOf(g.cell(pos.X), g.cell(pos.Z))
	bucket, ok := g.cells[k]
	if !ok {
		bucket = make([]BodyID, 0, 8)
	}
	if len(bucket) == 0 {
		g.used = append(g.used, k)
	}
	g.cells[k] = append(bucket, id)
}

// QueryInto appends candidate bodies in every cell overlapping the square
// of half-size radius around (x, z). Callers do the exact distance test.
func (g *SpatialGrid) QueryInto(dst []BodyID, x, z, radius float64) []BodyID {
	minCol, maxCol := g.cell(x-radius), g.cell(x+radius)
	minRow, maxRow := g.cell(z-radius), g.cell(z+radius)

	// A query wider than the occupied cell set walks the occupied cells instead
	span := (int64(maxCol) - int64(minCol) + 1) * (int64(maxRow) - int64(minRow) + 1)
	if span > int64(len(g.used)) {
		for _, k := range g.used {
			col, row := int32(int64(k)>>32), int32(uint32(k))
			if col >= minCol && col <= maxCol && row >= minRow && row <= maxRow {
				dst = append(dst, g.cells[k]...)
			}
		}
		return dst
	}

	for col := minCol; col <= maxCol; col++ {
		for row := minRow; row <= maxRow; row++ {
			dst = append(dst, g.cells[keyOf(col, row)]...)
		}
	}
	return dst
}

func (g *SpatialGrid) cell(v float64) int32 {
	c := math.Floor(v / g.cellSize)
	// Clamp to keep far-off or non-finite coordinates in a valid cell
	if c < math.MinInt32/2 || math.IsNaN(c) {
		return math.MinInt32 / 2
	}
	if c > math.MaxInt32/2 {
		return math.MaxInt32 / 2
	}
	return int32(c)
}
