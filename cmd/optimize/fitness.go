package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/pthm-cable/cytosol/chem"
	"github.com/pthm-cable/cytosol/config"
	"github.com/pthm-cable/cytosol/sim"
)

// Fitness weights.
const (
	stallWeight    = 2.0 // per unit of stalled-tick fraction
	polarityWeight = 1.0 // per squared deviation from the target
)

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params      *ParamVector
	maxTicks    int
	resolutions []int
	configPath  string
	catalogDir  string
	species     chem.Kind
	target      float64

	mu          sync.Mutex
	lastQuality float64 // mean polarity from the most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator. Every parameter vector is run
// once per grid resolution so the fit does not depend on one discretization.
func NewFitnessEvaluator(params *ParamVector, maxTicks int, resolutions []int, configPath, catalogDir string, species chem.Kind, target float64) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		maxTicks:    maxTicks,
		resolutions: resolutions,
		configPath:  configPath,
		catalogDir:  catalogDir,
		species:     species,
		target:      target,
	}
}

// LastQuality returns the mean polarity from the most recent evaluation.
func (fe *FitnessEvaluator) LastQuality() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastQuality
}

// runResult holds the results from a single simulation run.
type runResult struct {
	polarity   float64 // anterior share of the tracked species
	stallRatio float64 // stalled organelle draws per tick
	err        error
}

// Evaluate computes fitness for a parameter vector (lower = better).
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	results := make([]runResult, len(fe.resolutions))
	var wg sync.WaitGroup

	for i, res := range fe.resolutions {
		wg.Add(1)
		go func(idx, r int) {
			defer wg.Done()
			results[idx] = fe.runSimulation(x, r)
		}(i, res)
	}
	wg.Wait()

	var fitness, quality float64
	for _, r := range results {
		if r.err != nil {
			return math.Inf(1)
		}
		d := r.polarity - fe.target
		fitness += polarityWeight*d*d + stallWeight*r.stallRatio
		quality += r.polarity
	}
	n := float64(len(results))

	fe.mu.Lock()
	fe.lastQuality = quality / n
	fe.mu.Unlock()

	return fitness / n
}

func (fe *FitnessEvaluator) runSimulation(x []float64, resolution int) runResult {
	cfg, err := config.Load(fe.configPath)
	if err != nil {
		return runResult{err: err}
	}
	fe.params.ApplyToConfig(cfg, x)
	cfg.Grid.Resolution = resolution
	if err := cfg.Rederive(); err != nil {
		return runResult{err: err}
	}

	s, err := sim.New(cfg, sim.Options{CatalogDir: fe.catalogDir, Workers: 1})
	if err != nil {
		return runResult{err: err}
	}
	defer s.Close()

	for s.Tick() < fe.maxTicks {
		s.Step()
	}

	id := chem.ProteinOf(fe.species, cfg.Derived.Variant)
	return runResult{
		polarity:   anteriorShare(s, id),
		stallRatio: float64(s.Stalls()) / float64(max(fe.maxTicks, 1)),
	}
}

// anteriorShare returns the fraction of id held in cells with x < 0.
func anteriorShare(s *sim.Sim, id chem.Identity) float64 {
	g := s.Medium().Grid()
	var front, total float64
	for i := 0; i < g.Len(); i++ {
		c := g.Cell(i).Count(id)
		total += c
		if g.Center(i).X < 0 {
			front += c
		}
	}
	if total == 0 {
		return 0
	}
	return front / total
}

func parseResolutions(s string) ([]int, error) {
	var out []int
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		r, err := strconv.Atoi(f)
		if err != nil || r < 1 {
			return nil, fmt.Errorf("invalid resolution %q", f)
		}
		out = append(out, r)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty resolution list")
	}
	return out, nil
}
