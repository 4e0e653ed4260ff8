package models

import "github.com/pharmsim/pharmsim/sim"

// NewOneCompartmentOral builds a depot (x[0]) feeding a central compartment
// (x[1]) with first order absorption ka and elimination ke. Doses into the
// depot are delayed by tlag. The output is the central concentration x[1]/v.
func NewOneCompartmentOral() *sim.ODE {
	schema := sim.MustParamSchema("ka", "ke", "tlag", "v")
	ka, ke, tlag, v := schema.MustIndex("ka"), schema.MustIndex("ke"), schema.MustIndex("tlag"), schema.MustIndex("v")
	return mustODE(sim.ODEConfig{
		Name:     "oral1",
		Schema:   schema,
		NStates:  2,
		NOutputs: 1,
		Derivative: func(x []float64, p sim.Params, _ float64, rates []float64, _ sim.Covariates, dx []float64) {
			dx[0] = -p.At(ka)*x[0] + rates[0]
			dx[1] = p.At(ka)*x[0] - p.At(ke)*x[1] + rates[1]
		},
		Lag: func(p sim.Params) map[int]float64 {
			return map[int]float64{0: p.At(tlag)}
		},
		Output: func(x []float64, p sim.Params, _ float64, _ sim.Covariates, y []float64) {
			y[0] = x[1] / p.At(v)
		},
	})
}

// NewOneCompartmentIV builds a single compartment with elimination ke and
// volume v. When the subject carries a "wt" covariate the volume scales
// linearly with weight relative to 70.
func NewOneCompartmentIV() *sim.ODE {
	schema := sim.MustParamSchema("ke", "v")
	ke, v := schema.MustIndex("ke"), schema.MustIndex("v")
	return mustODE(sim.ODEConfig{
		Name:     "iv1",
		Schema:   schema,
		NStates:  1,
		NOutputs: 1,
		Derivative: func(x []float64, p sim.Params, _ float64, rates []float64, _ sim.Covariates, dx []float64) {
			dx[0] = -p.At(ke)*x[0] + rates[0]
		},
		Output: func(x []float64, p sim.Params, t float64, cov sim.Covariates, y []float64) {
			vol := p.At(v)
			if wt, ok := cov.Value("wt", t); ok {
				vol *= wt / 70
			}
			y[0] = x[0] / vol
		},
	})
}
