package sim

import (
	"fmt"
	"math"
)

// Equation is a compartmental model: five pure functions over a bound
// parameter vector plus fixed dimensions. Implementations must not keep
// mutable state, since one Equation is shared by concurrent runs.
//
// Vector arguments are preallocated by the caller with the lengths
// declared by Dims; functions write their results in place.
type Equation interface {
	// Dims returns the number of compartments and observable outputs.
	Dims() (nStates, nOutputs int)
	// Params returns the schema the parameter vector is bound against.
	Params() *ParamSchema
	// Derivative writes d(state)/dt into dx. rates holds the active
	// infusion rate of every compartment.
	Derivative(x []float64, p Params, t float64, rates []float64, cov Covariates, dx []float64)
	// Lag returns the absorption delay per compartment; absent keys mean no lag.
	Lag(p Params) map[int]float64
	// Bioavailability returns the fraction of a bolus reaching each
	// compartment; absent keys mean 1.
	Bioavailability(p Params) map[int]float64
	// Initial writes the state at time t into x.
	Initial(p Params, t float64, cov Covariates, x []float64)
	// Output projects the state onto the observables.
	Output(x []float64, p Params, t float64, cov Covariates, y []float64)
}

// Function shapes accepted by ODE.
type (
	DerivativeFn      func(x []float64, p Params, t float64, rates []float64, cov Covariates, dx []float64)
	LagFn             func(p Params) map[int]float64
	BioavailabilityFn func(p Params) map[int]float64
	InitialFn         func(p Params, t float64, cov Covariates, x []float64)
	OutputFn          func(x []float64, p Params, t float64, cov Covariates, y []float64)
)

// ODEConfig groups the pieces of an ODE equation.
// Lag, Bioavailability and Initial are optional.
type ODEConfig struct {
	Name            string
	Schema          *ParamSchema
	NStates         int
	NOutputs        int
	Derivative      DerivativeFn
	Lag             LagFn
	Bioavailability BioavailabilityFn
	Initial         InitialFn
	Output          OutputFn
}

// ODE adapts a bundle of closures to the Equation interface.
type ODE struct {
	cfg ODEConfig
}

// NewODE validates the configuration once, at model construction.
func NewODE(cfg ODEConfig) (*ODE, error) {
	switch {
	case cfg.NStates <= 0:
		return nil, configErrorf("equation "+cfg.Name, "state count must be > 0, got %d", cfg.NStates)
	case cfg.NOutputs <= 0:
		return nil, configErrorf("equation "+cfg.Name, "output count must be > 0, got %d", cfg.NOutputs)
	case cfg.Schema == nil:
		return nil, configErrorf("equation "+cfg.Name, "parameter schema is required")
	case cfg.Derivative == nil:
		return nil, configErrorf("equation "+cfg.Name, "derivative function is required")
	case cfg.Output == nil:
		return nil, configErrorf("equation "+cfg.Name, "output function is required")
	}
	return &ODE{cfg: cfg}, nil
}

// Name returns the model name given at construction.
func (o *ODE) Name() string { return o.cfg.Name }

func (o *ODE) Dims() (int, int) { return o.cfg.NStates, o.cfg.NOutputs }

func (o *ODE) Params() *ParamSchema { return o.cfg.Schema }

func (o *ODE) Derivative(x []float64, p Params, t float64, rates []float64, cov Covariates, dx []float64) {
	o.cfg.Derivative(x, p, t, rates, cov, dx)
}

func (o *ODE) Lag(p Params) map[int]float64 {
	if o.cfg.Lag == nil {
		return nil
	}
	return o.cfg.Lag(p)
}

func (o *ODE) Bioavailability(p Params) map[int]float64 {
	if o.cfg.Bioavailability == nil {
		return nil
	}
	return o.cfg.Bioavailability(p)
}

// Initial zeroes x when no initial-condition function was supplied.
func (o *ODE) Initial(p Params, t float64, cov Covariates, x []float64) {
	if o.cfg.Initial == nil {
		for i := range x {
			x[i] = 0
		}
		return
	}
	o.cfg.Initial(p, t, cov, x)
}

func (o *ODE) Output(x []float64, p Params, t float64, cov Covariates, y []float64) {
	o.cfg.Output(x, p, t, cov, y)
}

// compartmentTable expands a sparse per-compartment map, validating keys
// and values. Absent compartments take def.
func compartmentTable(kind string, m map[int]float64, nStates int, def float64, valid func(float64) bool) ([]float64, error) {
	out := make([]float64, nStates)
	for i := range out {
		out[i] = def
	}
	for cmt, v := range m {
		if cmt < 0 || cmt >= nStates {
			return nil, configErrorf(kind, "compartment %d out of range [0, %d)", cmt, nStates)
		}
		if !valid(v) {
			return nil, configErrorf(kind, "invalid value %v for compartment %d", v, cmt)
		}
		out[cmt] = v
	}
	return out, nil
}

func validLag(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

func validFraction(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}

// firstNonFinite returns the index of the first NaN or Inf component, or -1.
func firstNonFinite(x []float64) int {
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return i
		}
	}
	return -1
}

func dimsString(eq Equation) string {
	n, m := eq.Dims()
	return fmt.Sprintf("(%d, %d)", n, m)
}
