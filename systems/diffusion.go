package systems

import (
	"runtime"
	"sync"

	"github.com/pthm-cable/cytosol/chem"
)

// diffusionParallelThreshold is the minimum number of transferable pairs
// before the compute pass is split across workers.
const diffusionParallelThreshold = 4096

// transfer is one free (cell, identity) pair scheduled to spread.
type transfer struct {
	cell   int
	id     chem.Identity
	count  float64
	offset int // first slot in Diffusion.amounts
	n      int // number of destinations
}

// Diffusion moves a fixed fraction of every free population into the
// face-adjacent cells each step. Counts are read before anything is written,
// so the result does not depend on the order cells are visited.
type Diffusion struct {
	Rate    float64
	Workers int // <= 1 runs the compute pass serially

	pairs   []transfer
	dests   []int
	amounts []float64
	ids     []chem.Identity
}

// NewDiffusion creates a diffusion step with the given rate (fraction per unit time).
func NewDiffusion(rate float64) *Diffusion {
	return &Diffusion{Rate: rate, Workers: 1}
}

// Step advances diffusion on g by dt.
func (d *Diffusion) Step(g *Grid, dt float64) {
	d.count(g)
	if len(d.pairs) == 0 {
		return
	}
	d.compute(dt)
	d.apply(g)
}

// count records every free, positive population and prunes zero entries.
// Destination lists are resolved here from pre-mutation state.
func (d *Diffusion) count(g *Grid) {
	d.pairs = d.pairs[:0]
	d.dests = d.dests[:0]

	for i := 0; i < g.Len(); i++ {
		c := g.Cell(i)
		c.PruneEmpty()
		d.ids = c.AppendIdentities(d.ids[:0])
		for _, id := range d.ids {
			p := c.Population(id)
			if p.Attached || p.Count <= 0 {
				continue
			}
			offset := len(d.dests)
			for _, nb := range g.Neighbors(i) {
				// A neighbour holding this identity bound cannot receive free mass.
				if np := g.Cell(nb).Population(id); np != nil && np.Attached && np.Count > 0 {
					continue
				}
				d.dests = append(d.dests, nb)
			}
			n := len(d.dests) - offset
			if n == 0 {
				continue
			}
			d.pairs = append(d.pairs, transfer{cell: i, id: id, count: p.Count, offset: offset, n: n})
		}
	}

	if cap(d.amounts) < len(d.dests) {
		d.amounts = make([]float64, len(d.dests))
	}
	d.amounts = d.amounts[:len(d.dests)]
}

func (d *Diffusion) compute(dt float64) {
	workers := d.Workers
	if workers > runtime.GOMAXPROCS(0) {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers <= 1 || len(d.pairs) < diffusionParallelThreshold {
		d.computeRange(0, len(d.pairs), dt)
		return
	}

	chunk := (len(d.pairs) + workers - 1) / workers
	var wg sync.WaitGroup
	for start := 0; start < len(d.pairs); start += chunk {
		end := min(start+chunk, len(d.pairs))
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			d.computeRange(start, end, dt)
		}(start, end)
	}
	wg.Wait()
}

func (d *Diffusion) computeRange(start, end int, dt float64) {
	for _, tr := range d.pairs[start:end] {
		per := tr.count * d.Rate * dt / float64(tr.n)
		for k := 0; k < tr.n; k++ {
			d.amounts[tr.offset+k] = per
		}
	}
}

func (d *Diffusion) apply(g *Grid) {
	for _, tr := range d.pairs {
		src := g.Cell(tr.cell).MustPopulation(tr.id)
		for k := 0; k < tr.n; k++ {
			amt := d.amounts[tr.offset+k]
			src.Count -= amt
			g.Cell(d.dests[tr.offset+k]).GetOrCreate(tr.id).Merge(chem.Population{Count: amt})
		}
	}
}
