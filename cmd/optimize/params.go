// Package main provides CMA-ES optimization for medium parameters.
package main

import (
	"github.com/pthm-cable/cytosol/components"
	"github.com/pthm-cable/cytosol/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of optimizable parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			{Name: "diffusion_rate", Path: "diffusion.rate", Min: 0.005, Max: 1.0, Default: 0.1},
			{Name: "trna_charging_rate", Path: "kinetics.trna_charging_rate", Min: 0.05, Max: 5.0, Default: 0.5},
			// Organelle rates apply to every organelle of the kind
			{Name: "mitochondrion_rate", Path: "organelles[mitochondrion].rate", Min: 500, Max: 20000, Default: 5000},
			{Name: "spindle_rate", Path: "organelles[spindle].rate", Min: 10, Max: 1000, Default: 200},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// ApplyToConfig applies parameter values to a Config struct.
// Order must match Specs order.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)

	cfg.Diffusion.Rate = clamped[0]
	cfg.Kinetics.TRNAChargingRate = clamped[1]
	for i := range cfg.Organelles {
		switch cfg.Organelles[i].Kind {
		case components.KindMitochondrion.String():
			cfg.Organelles[i].Rate = clamped[2]
		case components.KindSpindle.String():
			cfg.Organelles[i].Rate = clamped[3]
		}
	}
}

// ExtractFromConfig extracts current parameter values from a Config struct.
// Organelle rates come from the first organelle of each kind, falling back
// to the spec default.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	v := []float64{
		cfg.Diffusion.Rate,
		cfg.Kinetics.TRNAChargingRate,
		pv.Specs[2].Default,
		pv.Specs[3].Default,
	}
	seen := map[string]bool{}
	for _, o := range cfg.Organelles {
		if seen[o.Kind] {
			continue
		}
		seen[o.Kind] = true
		switch o.Kind {
		case components.KindMitochondrion.String():
			v[2] = o.Rate
		case components.KindSpindle.String():
			v[3] = o.Rate
		}
	}
	return v
}
