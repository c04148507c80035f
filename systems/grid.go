package systems

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/cytosol/chem"
)

// Grid is a cubic lattice of Res^3 cells covering the normalized cube
// [-1,1]^3. Cells are stored row-major as (x*Res+y)*Res+z.
type Grid struct {
	Res int

	cells     []chem.Cell
	neighbors [][]int
}

// NewGrid creates a grid with res buckets per axis. res must be at least 1.
func NewGrid(res int) *Grid {
	if res < 1 {
		panic(fmt.Sprintf("systems: grid resolution must be >= 1, got %d", res))
	}
	n := res * res * res
	g := &Grid{
		Res:       res,
		cells:     make([]chem.Cell, n),
		neighbors: make([][]int, n),
	}
	for i := range g.cells {
		g.cells[i] = chem.NewCell()
	}
	for i := range g.neighbors {
		g.neighbors[i] = g.computeNeighbors(i)
	}
	return g
}

// Len returns the number of cells.
func (g *Grid) Len() int {
	return len(g.cells)
}

// Cell returns the cell at flat index i.
func (g *Grid) Cell(i int) *chem.Cell {
	return &g.cells[i]
}

// CellAt returns the cell containing the normalized point p.
func (g *Grid) CellAt(p r3.Vec) *chem.Cell {
	return &g.cells[g.Locate(p)]
}

// Locate maps a point in [-1,1]^3 to a flat cell index. Each axis is bucketed
// as floor(Res*(v+1)/2), with v == 1 folded into the last bucket. Any
// coordinate outside the range (or NaN) panics.
func (g *Grid) Locate(p r3.Vec) int {
	x := g.bucket(p.X, "x")
	y := g.bucket(p.Y, "y")
	z := g.bucket(p.Z, "z")
	return g.Encode(x, y, z)
}

func (g *Grid) bucket(v float64, axis string) int {
	if !(v >= -1 && v <= 1) {
		panic(fmt.Sprintf("systems: %s coordinate %v outside [-1, 1]", axis, v))
	}
	b := int(math.Floor(float64(g.Res) * (v + 1) / 2))
	if b >= g.Res {
		b = g.Res - 1
	}
	return b
}

// Encode converts per-axis bucket indices to a flat index.
func (g *Grid) Encode(x, y, z int) int {
	return (x*g.Res+y)*g.Res + z
}

// Decode converts a flat index back to per-axis bucket indices.
func (g *Grid) Decode(i int) (x, y, z int) {
	z = i % g.Res
	i /= g.Res
	y = i % g.Res
	x = i / g.Res
	return x, y, z
}

// Neighbors returns the face-adjacent cells of i in the order
// -x, +x, -y, +y, -z, +z, omitting those outside the lattice.
// The returned slice is shared and must not be modified.
func (g *Grid) Neighbors(i int) []int {
	return g.neighbors[i]
}

func (g *Grid) computeNeighbors(i int) []int {
	x, y, z := g.Decode(i)
	out := make([]int, 0, 6)
	if x > 0 {
		out = append(out, g.Encode(x-1, y, z))
	}
	if x < g.Res-1 {
		out = append(out, g.Encode(x+1, y, z))
	}
	if y > 0 {
		out = append(out, g.Encode(x, y-1, z))
	}
	if y < g.Res-1 {
		out = append(out, g.Encode(x, y+1, z))
	}
	if z > 0 {
		out = append(out, g.Encode(x, y, z-1))
	}
	if z < g.Res-1 {
		out = append(out, g.Encode(x, y, z+1))
	}
	return out
}

// Bounds returns the normalized min and max corners of cell i.
func (g *Grid) Bounds(i int) (lo, hi r3.Vec) {
	x, y, z := g.Decode(i)
	step := 2 / float64(g.Res)
	lo = r3.Vec{X: -1 + float64(x)*step, Y: -1 + float64(y)*step, Z: -1 + float64(z)*step}
	hi = r3.Add(lo, r3.Vec{X: step, Y: step, Z: step})
	return lo, hi
}

// Center returns the normalized center of cell i.
func (g *Grid) Center(i int) r3.Vec {
	lo, hi := g.Bounds(i)
	return r3.Scale(0.5, r3.Add(lo, hi))
}
