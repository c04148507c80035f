package medium

import (
	"runtime"
	"sync"

	"github.com/pthm-cable/cytosol/systems"
)

// parallelThreshold is the minimum cell count to arbitrate in parallel.
// Below this, a single goroutine is faster.
const parallelThreshold = 64

// arbiterPool holds one arbiter per worker. Cells are independent during
// arbitration, so each worker owns a contiguous range of cells.
type arbiterPool struct {
	workers  int
	arbiters []*systems.Arbiter
	outcomes []systems.Outcome
}

func newArbiterPool(workers int) *arbiterPool {
	workers = min(workers, runtime.GOMAXPROCS(0))
	if workers < 1 {
		workers = 1
	}
	p := &arbiterPool{
		workers:  workers,
		arbiters: make([]*systems.Arbiter, workers),
		outcomes: make([]systems.Outcome, workers),
	}
	for i := range p.arbiters {
		p.arbiters[i] = systems.NewArbiter()
	}
	return p
}

// run arbitrates every cell of g and returns the summed outcome.
func (p *arbiterPool) run(g *systems.Grid, rules []systems.Rule, dt float64) systems.Outcome {
	if len(rules) == 0 {
		return systems.Outcome{}
	}
	n := g.Len()
	if p.workers == 1 || n < parallelThreshold {
		return p.runRange(0, g, 0, n, rules, dt)
	}

	chunk := (n + p.workers - 1) / p.workers
	var wg sync.WaitGroup
	for w := 0; w < p.workers; w++ {
		start := w * chunk
		end := min(start+chunk, n)
		p.outcomes[w] = systems.Outcome{}
		if start >= end {
			continue
		}
		wg.Add(1)
		go func(w, start, end int) {
			defer wg.Done()
			p.outcomes[w] = p.runRange(w, g, start, end, rules, dt)
		}(w, start, end)
	}
	wg.Wait()

	var total systems.Outcome
	for _, o := range p.outcomes {
		total.Add(o)
	}
	return total
}

func (p *arbiterPool) runRange(w int, g *systems.Grid, start, end int, rules []systems.Rule, dt float64) systems.Outcome {
	var out systems.Outcome
	arb := p.arbiters[w]
	for i := start; i < end; i++ {
		out.Add(arb.Step(g.Cell(i), rules, dt))
	}
	return out
}
