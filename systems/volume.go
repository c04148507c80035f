package systems

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

// Mapping converts a normalized grid position into world space.
type Mapping interface {
	ToWorld(p r3.Vec) r3.Vec
}

// MappingFunc adapts a function to Mapping.
type MappingFunc func(p r3.Vec) r3.Vec

// ToWorld calls f.
func (f MappingFunc) ToWorld(p r3.Vec) r3.Vec { return f(p) }

// Affine scales each axis and then translates.
type Affine struct {
	Scale  r3.Vec
	Offset r3.Vec
}

// ToWorld applies the per-axis scale and offset.
func (a Affine) ToWorld(p r3.Vec) r3.Vec {
	return r3.Vec{
		X: p.X*a.Scale.X + a.Offset.X,
		Y: p.Y*a.Scale.Y + a.Offset.Y,
		Z: p.Z*a.Scale.Z + a.Offset.Z,
	}
}

// CubeOfVolume returns an affine mapping that stretches [-1,1]^3 into an
// axis-aligned cube of the given total volume centred at the origin.
func CubeOfVolume(total float64) Affine {
	half := math.Cbrt(total) / 2
	return Affine{Scale: r3.Vec{X: half, Y: half, Z: half}}
}

// hexTets splits a hexahedron along its c000-c111 diagonal. Indices address
// corners as x<<2 | y<<1 | z.
var hexTets = [6][3]int{
	{0b100, 0b110, 0b111},
	{0b110, 0b010, 0b111},
	{0b010, 0b011, 0b111},
	{0b011, 0b001, 0b111},
	{0b001, 0b101, 0b111},
	{0b101, 0b100, 0b111},
}

// HexVolume returns the volume of the hexahedron with the given corners,
// summing six tetrahedra. Exact when the faces are planar.
func HexVolume(corners [8]r3.Vec) float64 {
	a := corners[0]
	var v float64
	for _, t := range hexTets {
		b := r3.Sub(corners[t[0]], a)
		c := r3.Sub(corners[t[1]], a)
		d := r3.Sub(corners[t[2]], a)
		v += r3.Dot(b, r3.Cross(c, d))
	}
	return math.Abs(v) / 6
}

// CellVolumes maps the corners of every grid cell through m and returns the
// resulting world-space volumes, indexed like the grid.
func CellVolumes(g *Grid, m Mapping) []float64 {
	out := make([]float64, g.Len())
	var corners [8]r3.Vec
	for i := range out {
		lo, hi := g.Bounds(i)
		for k := range corners {
			p := lo
			if k&0b100 != 0 {
				p.X = hi.X
			}
			if k&0b010 != 0 {
				p.Y = hi.Y
			}
			if k&0b001 != 0 {
				p.Z = hi.Z
			}
			corners[k] = m.ToWorld(p)
		}
		out[i] = HexVolume(corners)
	}
	return out
}

// TotalVolume sums per-cell volumes.
func TotalVolume(vols []float64) float64 {
	return floats.Sum(vols)
}
