package systems

import (
	"fmt"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/cytosol/chem"
	"github.com/pthm-cable/cytosol/components"
	"github.com/pthm-cable/cytosol/config"
)

// Surface is the part of the medium organelles act on.
type Surface interface {
	AddEnergy(amount float64, pos r3.Vec)
	ConsumeEnergy(amount float64, pos r3.Vec) bool
	AddMolecule(id chem.Identity, pos r3.Vec, pop chem.Population)
}

// OrganelleReport summarizes one organelle update.
type OrganelleReport struct {
	EnergyInput float64
	Emitted     float64
	Stalls      int
}

// OrganelleSystem drives mitochondria, centrosomes and spindles against the
// medium once per tick.
type OrganelleSystem struct {
	world *ecs.World

	sources  ecs.Filter2[components.Anchor, components.EnergySource]
	emitters ecs.Filter2[components.Anchor, components.Emitter]
	sinks    ecs.Filter2[components.Anchor, components.EnergySink]

	sourceMapper  *ecs.Map3[components.Organelle, components.Anchor, components.EnergySource]
	emitterMapper *ecs.Map3[components.Organelle, components.Anchor, components.Emitter]
	sinkMapper    *ecs.Map3[components.Organelle, components.Anchor, components.EnergySink]
	orgMap        *ecs.Map[components.Organelle]
	sinkMap       *ecs.Map[components.EnergySink]

	nextID uint32
	count  int
}

// NewOrganelleSystem creates a system over w.
func NewOrganelleSystem(w *ecs.World) *OrganelleSystem {
	return &OrganelleSystem{
		world:         w,
		sources:       *ecs.NewFilter2[components.Anchor, components.EnergySource](w),
		emitters:      *ecs.NewFilter2[components.Anchor, components.Emitter](w),
		sinks:         *ecs.NewFilter2[components.Anchor, components.EnergySink](w),
		sourceMapper:  ecs.NewMap3[components.Organelle, components.Anchor, components.EnergySource](w),
		emitterMapper: ecs.NewMap3[components.Organelle, components.Anchor, components.Emitter](w),
		sinkMapper:    ecs.NewMap3[components.Organelle, components.Anchor, components.EnergySink](w),
		orgMap:        ecs.NewMap[components.Organelle](w),
		sinkMap:       ecs.NewMap[components.EnergySink](w),
	}
}

// Spawn creates one organelle. species is only used by emitters.
func (s *OrganelleSystem) Spawn(kind components.Kind, pos r3.Vec, rate float64, species chem.Identity) (ecs.Entity, error) {
	if !inCube(pos) {
		return ecs.Entity{}, fmt.Errorf("%s position %v outside [-1,1]^3", kind, pos)
	}
	if rate < 0 {
		return ecs.Entity{}, fmt.Errorf("%s rate must be non-negative, got %g", kind, rate)
	}

	org := components.Organelle{ID: s.nextID, Kind: kind}
	anchor := components.Anchor{Pos: pos}

	var e ecs.Entity
	switch kind {
	case components.KindMitochondrion:
		src := components.EnergySource{Rate: rate}
		e = s.sourceMapper.NewEntity(&org, &anchor, &src)
	case components.KindCentrosome:
		if species.Kind == "" {
			return ecs.Entity{}, fmt.Errorf("centrosome needs a species")
		}
		em := components.Emitter{ID: species, Rate: rate}
		e = s.emitterMapper.NewEntity(&org, &anchor, &em)
	case components.KindSpindle:
		sink := components.EnergySink{Rate: rate}
		e = s.sinkMapper.NewEntity(&org, &anchor, &sink)
	default:
		return ecs.Entity{}, fmt.Errorf("unknown organelle kind %d", kind)
	}
	s.nextID++
	s.count++
	return e, nil
}

// SpawnConfigured creates every organelle listed in cfg.
func (s *OrganelleSystem) SpawnConfigured(cfg *config.Config) error {
	for i, oc := range cfg.Organelles {
		kind, err := components.ParseKind(oc.Kind)
		if err != nil {
			return fmt.Errorf("organelles[%d]: %w", i, err)
		}
		pos := r3.Vec{X: oc.Position[0], Y: oc.Position[1], Z: oc.Position[2]}
		if _, err := s.Spawn(kind, pos, oc.Rate, cfg.Derived.Organelles[i]); err != nil {
			return fmt.Errorf("organelles[%d]: %w", i, err)
		}
	}
	return nil
}

// Update lets every organelle act on the surface for dt seconds.
// Sources run before sinks so a sink sharing a cell sees this tick's supply.
func (s *OrganelleSystem) Update(surface Surface, dt float64) OrganelleReport {
	var r OrganelleReport

	query := s.sources.Query()
	for query.Next() {
		anchor, src := query.Get()
		amt := src.Rate * dt
		if amt <= 0 {
			continue
		}
		surface.AddEnergy(amt, anchor.Pos)
		r.EnergyInput += amt
	}

	eq := s.emitters.Query()
	for eq.Next() {
		anchor, em := eq.Get()
		amt := em.Rate * dt
		if amt <= 0 {
			continue
		}
		surface.AddMolecule(em.ID, anchor.Pos, chem.Population{Count: amt, Attached: em.Attached})
		r.Emitted += amt
	}

	sq := s.sinks.Query()
	for sq.Next() {
		anchor, sink := sq.Get()
		if !surface.ConsumeEnergy(sink.Rate*dt, anchor.Pos) {
			sink.Stalls++
			r.Stalls++
		}
	}
	return r
}

// Stalls returns the cumulative stall count of entity e, or zero if e is not
// a sink.
func (s *OrganelleSystem) Stalls(e ecs.Entity) int {
	if !s.world.Alive(e) || !s.sinkMap.Has(e) {
		return 0
	}
	return s.sinkMap.Get(e).Stalls
}

// Kind returns the organelle kind of e.
func (s *OrganelleSystem) Kind(e ecs.Entity) (components.Kind, bool) {
	if !s.world.Alive(e) || !s.orgMap.Has(e) {
		return 0, false
	}
	return s.orgMap.Get(e).Kind, true
}

// Len returns the number of spawned organelles.
func (s *OrganelleSystem) Len() int {
	return s.count
}

func inCube(p r3.Vec) bool {
	return p.X >= -1 && p.X <= 1 && p.Y >= -1 && p.Y <= 1 && p.Z >= -1 && p.Z <= 1
}
