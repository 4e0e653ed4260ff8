package solver

import (
	"fmt"
	"math"

	"github.com/pharmsim/pharmsim/sim"
)

// Step-size controller constants.
const (
	safety    = 0.9
	minFactor = 0.2
	maxFactor = 5.0
)

// Stats counts the work done by the last Integrate call.
type Stats struct {
	Accepted    int
	Rejected    int
	Evaluations int
	LastStep    float64
}

// Fehlberg45 is an adaptive embedded Runge-Kutta-Fehlberg 4(5) integrator.
// The fifth order solution is propagated; the difference to the embedded
// fourth order solution estimates the local error.
type Fehlberg45 struct {
	cfg   sim.SolverConfig
	st    stepper
	next  []float64
	lower []float64
	bad   int // component that made the last error norm infinite
	stats Stats
}

// NewFehlberg45 returns an adaptive integrator tuned by cfg.
func NewFehlberg45(cfg sim.SolverConfig) *Fehlberg45 {
	return &Fehlberg45{cfg: cfg.WithDefaults(), st: stepper{tab: fehlbergTableau()}}
}

// Method returns the tableau name.
func (a *Fehlberg45) Method() string { return a.st.tab.name }

// Stats returns the counters of the most recent Integrate call.
func (a *Fehlberg45) Stats() Stats { return a.stats }

// Integrate advances x from t0 to t1 in place. Every call starts from the
// same initial step so repeated runs are bit-identical.
func (a *Fehlberg45) Integrate(f sim.DerivativeFunc, t0, t1 float64, x []float64) error {
	a.stats = Stats{}
	if t1 < t0 {
		return fmt.Errorf("%w: [%g, %g]", ErrInvalidInterval, t0, t1)
	}
	if t1 == t0 {
		return nil
	}
	n := len(x)
	a.st.ensure(n)
	if len(a.next) != n {
		a.next = make([]float64, n)
		a.lower = make([]float64, n)
	}

	span := t1 - t0
	h := a.cfg.InitialStep
	if h <= 0 {
		h = span / 10
	}
	if a.cfg.MaxStep > 0 && h > a.cfg.MaxStep {
		h = a.cfg.MaxStep
	}

	t := t0
	for t < t1 {
		if a.stats.Accepted+a.stats.Rejected >= a.cfg.MaxSteps {
			return fmt.Errorf("%w: %d steps at t=%g over [%g, %g]", ErrMaxSteps, a.cfg.MaxSteps, t, t0, t1)
		}
		last := false
		if t+h >= t1 {
			h = t1 - t
			last = true
		}

		a.st.stages(f, t, h, x)
		a.stats.Evaluations += a.st.tab.stages
		a.st.combine(a.next, x, h, a.st.tab.weights[0])
		a.st.combine(a.lower, x, h, a.st.tab.weights[1])
		errNorm := a.errorNorm(x)

		if errNorm <= 1 {
			copy(x, a.next)
			a.stats.Accepted++
			a.stats.LastStep = h
			if last {
				t = t1
				break
			}
			t += h
			h *= growth(errNorm, a.st.tab.order)
			if a.cfg.MaxStep > 0 && h > a.cfg.MaxStep {
				h = a.cfg.MaxStep
			}
			continue
		}

		a.stats.Rejected++
		h *= growth(errNorm, a.st.tab.order)
		if h < a.cfg.MinStep {
			if math.IsInf(errNorm, 1) {
				return &sim.NonFiniteError{Time: t, Compartment: a.bad}
			}
			return fmt.Errorf("%w: %g at t=%g", ErrStepTooSmall, h, t)
		}
	}
	return nil
}

// errorNorm is the max over components of |x5 - x4| / (atol + rtol*max(|x|, |x5|)).
// A non-finite stage result gives +Inf so the step is rejected.
func (a *Fehlberg45) errorNorm(x []float64) float64 {
	norm := 0.0
	a.bad = -1
	for i := range x {
		hi, lo := a.next[i], a.lower[i]
		if math.IsNaN(hi) || math.IsInf(hi, 0) || math.IsNaN(lo) || math.IsInf(lo, 0) {
			a.bad = i
			return math.Inf(1)
		}
		scale := a.cfg.AbsTol + a.cfg.RelTol*math.Max(math.Abs(x[i]), math.Abs(hi))
		e := math.Abs(hi-lo) / scale
		if e > norm {
			norm = e
		}
	}
	return norm
}

// growth returns the step multiplier for a given error norm and method order.
func growth(errNorm float64, order int) float64 {
	if math.IsInf(errNorm, 1) || math.IsNaN(errNorm) {
		return minFactor
	}
	if errNorm == 0 {
		return maxFactor
	}
	fac := safety * math.Pow(errNorm, -1/float64(order))
	return math.Min(maxFactor, math.Max(minFactor, fac))
}
