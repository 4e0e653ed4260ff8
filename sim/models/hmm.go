package models

import "github.com/pharmsim/pharmsim/sim"

// TwoPoolParams is the parameter order of the two-pool saturable model.
var TwoPoolParams = []string{"SA", "SB", "QA0", "QB0", "QT0", "FOA", "VAB", "VBA", "VBO", "KAB", "KBA", "KBO"}

// NewTwoPoolSaturable builds the two-pool model:
//
//	x[0] = QA  quantity in pool A (size SA)
//	x[1] = QB  quantity in pool B (size SB)
//	x[2] = QT  total quantity in the system
//
// with fluxes fab, fba and fbo of Michaelis-Menten form and a constant
// external input FOA into A. Outputs are QA/SA, QB/SB and QT/(SA+SB).
func NewTwoPoolSaturable() *sim.ODE {
	schema := sim.MustParamSchema(TwoPoolParams...)
	var (
		sa  = schema.MustIndex("SA")
		sb  = schema.MustIndex("SB")
		qa0 = schema.MustIndex("QA0")
		qb0 = schema.MustIndex("QB0")
		qt0 = schema.MustIndex("QT0")
		foa = schema.MustIndex("FOA")
		vab = schema.MustIndex("VAB")
		vba = schema.MustIndex("VBA")
		vbo = schema.MustIndex("VBO")
		kab = schema.MustIndex("KAB")
		kba = schema.MustIndex("KBA")
		kbo = schema.MustIndex("KBO")
	)
	return mustODE(sim.ODEConfig{
		Name:     "hmm",
		Schema:   schema,
		NStates:  3,
		NOutputs: 3,
		Derivative: func(x []float64, p sim.Params, _ float64, rates []float64, _ sim.Covariates, dx []float64) {
			conA := x[0] / p.At(sa)
			conB := x[1] / p.At(sb)

			fab := saturable(p.At(vab), p.At(kab), conA)
			fba := saturable(p.At(vba), p.At(kba), conB)
			fbo := saturable(p.At(vbo), p.At(kbo), conB)

			dx[0] = p.At(foa) + fba - fab + rates[0]
			dx[1] = fab - fba - fbo + rates[1]
			dx[2] = p.At(foa) - fbo + rates[2]
		},
		Initial: func(p sim.Params, _ float64, _ sim.Covariates, x []float64) {
			x[0] = p.At(qa0)
			x[1] = p.At(qb0)
			x[2] = p.At(qt0)
		},
		Output: func(x []float64, p sim.Params, _ float64, _ sim.Covariates, y []float64) {
			y[0] = x[0] / p.At(sa)
			y[1] = x[1] / p.At(sb)
			y[2] = x[2] / (p.At(sa) + p.At(sb))
		},
	})
}
