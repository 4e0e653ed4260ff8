// Package solver implements the ODE integrators behind sim.Solver using
// explicit Runge-Kutta methods, see https://en.wikipedia.org/wiki/Runge–Kutta_methods.
//
// Fixed-step methods (Euler, RK4) take uniform steps no longer than
// MaxStep and land exactly on the interval end. The adaptive Fehlberg
// 4(5) method controls the local error against AbsTol/RelTol.
package solver

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/pharmsim/pharmsim/sim"
)

// defaultFixedStep is used by fixed-step methods when MaxStep is zero.
const defaultFixedStep = 0.01

// butcherTableau describes an explicit Runge-Kutta method.
// weights[0] propagates the solution; weights[1], when present, is the
// embedded lower-order solution used for error estimation.
type butcherTableau struct {
	name    string
	stages  int
	order   int
	nodes   []float64
	weights [][]float64
	matrix  [][]float64
}

func eulerTableau() butcherTableau {
	return butcherTableau{
		name:    "euler",
		stages:  1,
		order:   1,
		nodes:   []float64{0},
		weights: [][]float64{{1}},
		matrix:  [][]float64{nil},
	}
}

func rk4Tableau() butcherTableau {
	return butcherTableau{
		name:    "rk4",
		stages:  4,
		order:   4,
		nodes:   []float64{0, 1. / 2., 1. / 2., 1},
		weights: [][]float64{{1. / 6., 1. / 3., 1. / 3., 1. / 6.}},
		matrix: [][]float64{
			nil,
			{1. / 2.},
			{0, 1. / 2.},
			{0, 0, 1.},
		},
	}
}

// fehlbergTableau implements https://en.wikipedia.org/wiki/Runge%E2%80%93Kutta%E2%80%93Fehlberg_method
func fehlbergTableau() butcherTableau {
	return butcherTableau{
		name:   "rkf45",
		stages: 6,
		order:  5,
		nodes:  []float64{0, 1. / 4., 3. / 8., 12. / 13., 1., 1. / 2.},
		weights: [][]float64{
			{16. / 135., 0, 6656. / 12825., 28561. / 56430., -9. / 50., 2. / 55.},
			{25. / 216., 0, 1408. / 2565., 2197. / 4104., -1. / 5., 0},
		},
		matrix: [][]float64{
			nil,
			{1. / 4.},
			{3. / 32., 9. / 32.},
			{1932. / 2197., -7200. / 2197., 7296. / 2197.},
			{439. / 216., -8., 3680. / 513., -845. / 4104.},
			{-8. / 27., 2, -3544. / 2565., 1859. / 4104., -11. / 40.},
		},
	}
}

// stepper holds the stage buffers of one tableau, sized on first use.
type stepper struct {
	tab butcherTableau
	k   [][]float64
	tmp []float64
}

func (s *stepper) ensure(n int) {
	if len(s.tmp) == n {
		return
	}
	s.tmp = make([]float64, n)
	s.k = make([][]float64, s.tab.stages)
	for i := range s.k {
		s.k[i] = make([]float64, n)
	}
}

// stages evaluates every stage derivative for a step of length h from (t, x).
func (s *stepper) stages(f sim.DerivativeFunc, t, h float64, x []float64) {
	for i := 0; i < s.tab.stages; i++ {
		copy(s.tmp, x)
		for j, a := range s.tab.matrix[i] {
			if a != 0 {
				floats.AddScaled(s.tmp, h*a, s.k[j])
			}
		}
		f(t+h*s.tab.nodes[i], s.tmp, s.k[i])
	}
}

// combine writes x + h*Σ w_i k_i into dst.
func (s *stepper) combine(dst, x []float64, h float64, weights []float64) {
	copy(dst, x)
	for i, w := range weights {
		if w != 0 {
			floats.AddScaled(dst, h*w, s.k[i])
		}
	}
}

// FixedStep integrates with uniform steps of at most Step.
type FixedStep struct {
	Step     float64
	MaxSteps int
	st       stepper
}

// NewEuler returns a forward Euler integrator.
func NewEuler(step float64, maxSteps int) *FixedStep {
	return &FixedStep{Step: step, MaxSteps: maxSteps, st: stepper{tab: eulerTableau()}}
}

// NewRK4 returns a classical fourth order Runge-Kutta integrator.
func NewRK4(step float64, maxSteps int) *FixedStep {
	return &FixedStep{Step: step, MaxSteps: maxSteps, st: stepper{tab: rk4Tableau()}}
}

// Method returns the tableau name.
func (fs *FixedStep) Method() string { return fs.st.tab.name }

// Integrate advances x from t0 to t1 in place.
func (fs *FixedStep) Integrate(f sim.DerivativeFunc, t0, t1 float64, x []float64) error {
	if t1 < t0 {
		return fmt.Errorf("%w: [%g, %g]", ErrInvalidInterval, t0, t1)
	}
	if t1 == t0 {
		return nil
	}
	n := int(math.Ceil((t1 - t0) / fs.Step))
	if n < 1 {
		n = 1
	}
	if fs.MaxSteps > 0 && n > fs.MaxSteps {
		return fmt.Errorf("%w: %d steps of %g needed over [%g, %g]", ErrMaxSteps, n, fs.Step, t0, t1)
	}
	h := (t1 - t0) / float64(n)
	fs.st.ensure(len(x))
	for i := 0; i < n; i++ {
		t := t0 + float64(i)*h
		fs.st.stages(f, t, h, x)
		fs.st.combine(x, x, h, fs.st.tab.weights[0])
		if c := firstNonFinite(x); c >= 0 {
			return &sim.NonFiniteError{Time: t + h, Compartment: c}
		}
	}
	return nil
}

// New builds the solver selected by cfg.Method. It is registered as
// sim.NewSolverFunc.
func New(cfg sim.SolverConfig) (sim.Solver, error) {
	cfg = cfg.WithDefaults()
	if cfg.MaxStep < 0 || cfg.AbsTol < 0 || cfg.RelTol < 0 || cfg.MinStep < 0 || cfg.InitialStep < 0 {
		return nil, fmt.Errorf("negative solver setting in %+v", cfg)
	}
	switch cfg.Method {
	case "euler", "rk4":
		step := cfg.MaxStep
		if step == 0 {
			step = defaultFixedStep
		}
		if cfg.Method == "euler" {
			return NewEuler(step, cfg.MaxSteps), nil
		}
		return NewRK4(step, cfg.MaxSteps), nil
	case "rkf45":
		return NewFehlberg45(cfg), nil
	}
	return nil, fmt.Errorf("unknown solver method %q", cfg.Method)
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
