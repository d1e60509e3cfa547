// Package physics is a small reference collision layer: it moves dots and
// reports overlapping pairs as raw contacts. It stands in for a real physics
// engine so the simulation can run end to end.
package physics

import "math"

// Grid is a fixed-size uniform grid over the arena for broad-phase queries.
// Cells keep their capacity across Clear calls.
type Grid struct {
	cellSize       float64
	cols, rows     int
	originX, origZ float64
	cells          [][]uint32
}

// NewGrid covers [-halfW, halfW] × [-halfD, halfD] with square cells.
func NewGrid(halfW, halfD, cellSize float64) *Grid {
	cols := int(math.Ceil(2*halfW/cellSize)) + 1
	rows := int(math.Ceil(2*halfD/cellSize)) + 1
	return &Grid{
		cellSize: cellSize,
		cols:     cols,
		rows:     rows,
		originX:  -halfW,
		origZ:    -halfD,
		cells:    make([][]uint32, cols*rows),
	}
}

// Clear resets all cells (keeps allocated capacity).
func (g *Grid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

// span returns the clamped cell range overlapping a circle's bounding box.
func (g *Grid) span(x, z, radius float64) (minCX, maxCX, minCZ, maxCZ int) {
	minCX = g.clampCol(int((x - radius - g.originX) / g.cellSize))
	maxCX = g.clampCol(int((x + radius - g.originX) / g.cellSize))
	minCZ = g.clampRow(int((z - radius - g.origZ) / g.cellSize))
	maxCZ = g.clampRow(int((z + radius - g.origZ) / g.cellSize))
	return
}

func (g *Grid) clampCol(c int) int {
	return min(max(c, 0), g.cols-1)
}

func (g *Grid) clampRow(r int) int {
	return min(max(r, 0), g.rows-1)
}

// InsertCircle adds slot to every cell overlapping the circle's bounding box.
func (g *Grid) InsertCircle(x, z, radius float64, slot uint32) {
	minCX, maxCX, minCZ, maxCZ := g.span(x, z, radius)
	for cz := minCZ; cz <= maxCZ; cz++ {
		for cx := minCX; cx <= maxCX; cx++ {
			idx := cz*g.cols + cx
			g.cells[idx] = append(g.cells[idx], slot)
		}
	}
}

// QueryBuf appends the slots in cells overlapping the bounding box to buf.
// A slot spanning several cells is appended once per cell.
func (g *Grid) QueryBuf(x, z, radius float64, buf []uint32) []uint32 {
	minCX, maxCX, minCZ, maxCZ := g.span(x, z, radius)
	for cz := minCZ; cz <= maxCZ; cz++ {
		for cx := minCX; cx <= maxCX; cx++ {
			buf = append(buf, g.cells[cz*g.cols+cx]...)
		}
	}
	return buf
}
