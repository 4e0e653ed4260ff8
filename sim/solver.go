package sim

import "errors"

// DerivativeFunc writes d(x)/dt at time t into dx. It must not modify x.
type DerivativeFunc func(t float64, x, dx []float64)

// Solver advances x from t0 to t1 in place. It is the only seam between the
// simulator and the numerical integration library; implementations live in
// sim/solver and may keep scratch buffers, so a Solver is owned by one run at a time.
type Solver interface {
	Integrate(f DerivativeFunc, t0, t1 float64, x []float64) error
}

// SolverConfig selects and tunes a solver.
type SolverConfig struct {
	Method      string  // "rkf45" (default), "rk4" or "euler"
	AbsTol      float64 // absolute local error tolerance (rkf45)
	RelTol      float64 // relative local error tolerance (rkf45)
	InitialStep float64 // first trial step (rkf45); 0 = derived from the interval
	MinStep     float64 // smallest accepted step (rkf45)
	MaxStep     float64 // step length for fixed-step methods, step ceiling for rkf45; 0 = unbounded for rkf45
	MaxSteps    int     // accepted+rejected steps allowed per interval
}

// DefaultSolverConfig returns the settings used when a field is left zero.
func DefaultSolverConfig() SolverConfig {
	return SolverConfig{
		Method:   "rkf45",
		AbsTol:   1e-8,
		RelTol:   1e-8,
		MinStep:  1e-12,
		MaxStep:  0,
		MaxSteps: 100000,
	}
}

// WithDefaults fills zero-valued fields from DefaultSolverConfig.
func (c SolverConfig) WithDefaults() SolverConfig {
	d := DefaultSolverConfig()
	if c.Method == "" {
		c.Method = d.Method
	}
	if c.AbsTol == 0 {
		c.AbsTol = d.AbsTol
	}
	if c.RelTol == 0 {
		c.RelTol = d.RelTol
	}
	if c.MinStep == 0 {
		c.MinStep = d.MinStep
	}
	if c.MaxSteps == 0 {
		c.MaxSteps = d.MaxSteps
	}
	return c
}

// NewSolverFunc is set by sim/solver's init(). Importing sim/solver (directly
// or blank) is required before calling NewSolver or NewSimulator.
var NewSolverFunc func(cfg SolverConfig) (Solver, error)

// ValidSolverMethods lists the recognized SolverConfig.Method values.
var ValidSolverMethods = map[string]bool{"": true, "rkf45": true, "rk4": true, "euler": true}

// NewSolver builds a solver through the registered factory.
func NewSolver(cfg SolverConfig) (Solver, error) {
	if !ValidSolverMethods[cfg.Method] {
		return nil, configErrorf("solver", "unknown method %q", cfg.Method)
	}
	if NewSolverFunc == nil {
		return nil, errors.New("sim: no solver registered; import github.com/pharmsim/pharmsim/sim/solver")
	}
	s, err := NewSolverFunc(cfg.WithDefaults())
	if err != nil {
		return nil, configErrorf("solver", "creating %s solver: %v", cfg.Method, err)
	}
	return s, nil
}
