// sim/simulator.go
package sim

import (
	"container/heap"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/pharmsim/pharmsim/sim/trace"
)

// SimConfig groups simulator options.
type SimConfig struct {
	Solver SolverConfig
}

// Simulator is the integration driver: it owns the per-run state vector and
// scratch buffers, walks a subject's schedule and extracts predictions.
// A Simulator runs one subject at a time and is not safe for concurrent use;
// create one per goroutine (see sim/population).
type Simulator struct {
	Equation Equation
	Solver   Solver

	nStates, nOutputs int

	x     []float64 // state vector
	rates []float64 // active infusion rate per compartment
	y     []float64 // output scratch

	// infusing counts active infusions per compartment; the rate is reset
	// to exactly zero when the last overlapping infusion ends.
	infusing []int
	queue    actionQueue
}

// NewSimulator creates a simulator using a solver built from cfg.Solver.
func NewSimulator(eq Equation, cfg SimConfig) (*Simulator, error) {
	s, err := NewSolver(cfg.Solver)
	if err != nil {
		return nil, err
	}
	return NewSimulatorWithSolver(eq, s)
}

// NewSimulatorWithSolver creates a simulator around an existing solver.
func NewSimulatorWithSolver(eq Equation, solver Solver) (*Simulator, error) {
	if eq == nil {
		return nil, configErrorf("simulator", "equation is required")
	}
	if solver == nil {
		return nil, configErrorf("simulator", "solver is required")
	}
	n, m := eq.Dims()
	if n <= 0 || m <= 0 {
		return nil, configErrorf("simulator", "invalid equation dimensions %s", dimsString(eq))
	}
	if eq.Params() == nil {
		return nil, configErrorf("simulator", "equation has no parameter schema")
	}
	return &Simulator{
		Equation: eq,
		Solver:   solver,
		nStates:  n,
		nOutputs: m,
		x:        make([]float64, n),
		rates:    make([]float64, n),
		y:        make([]float64, m),
		infusing: make([]int, n),
	}, nil
}

// Simulate runs one subject with a positional parameter vector.
func (sim *Simulator) Simulate(subject *Subject, values []float64) (*Predictions, error) {
	p, err := sim.Equation.Params().Bind(values)
	if err != nil {
		return nil, err
	}
	return sim.run(subject, p, nil)
}

// SimulateParams runs one subject with an already bound parameter vector.
func (sim *Simulator) SimulateParams(subject *Subject, p Params) (*Predictions, error) {
	if p.Schema() != sim.Equation.Params() {
		return nil, configErrorf("params", "parameters were bound against a different schema")
	}
	return sim.run(subject, p, nil)
}

// SimulateWithTrace is Simulate plus a record of every integration interval
// and applied discontinuity.
func (sim *Simulator) SimulateWithTrace(subject *Subject, values []float64) (*Predictions, *trace.RunTrace, error) {
	p, err := sim.Equation.Params().Bind(values)
	if err != nil {
		return nil, nil, err
	}
	if subject == nil {
		return nil, nil, configErrorf("simulator", "subject is required")
	}
	rt := trace.NewRunTrace(subject.ID)
	preds, err := sim.run(subject, p, rt)
	if err != nil {
		return nil, rt, err
	}
	return preds, rt, nil
}

// schedule translates the subject's events into timeline actions and
// returns the number of observations queued.
func (sim *Simulator) schedule(subject *Subject, lag, fa []float64) int {
	sim.queue = sim.queue[:0]
	nObs := 0
	for seq, e := range subject.events {
		switch ev := e.(type) {
		case Dose:
			if ev.IsInfusion() {
				rate := ev.Rate()
				sim.queue = append(sim.queue,
					&action{time: ev.Time, kind: actionInfusionStart, seq: seq, compartment: ev.Compartment, amount: rate},
					&action{time: ev.Time + ev.Duration, kind: actionInfusionStop, seq: seq, compartment: ev.Compartment, amount: rate})
				continue
			}
			sim.queue = append(sim.queue, &action{
				time:        ev.Time + lag[ev.Compartment],
				kind:        actionBolus,
				seq:         seq,
				compartment: ev.Compartment,
				amount:      ev.Amount * fa[ev.Compartment],
			})
		case Observation:
			nObs++
			sim.queue = append(sim.queue, &action{time: ev.Time, kind: actionObservation, seq: seq, compartment: -1, obs: ev})
		}
	}
	heap.Init(&sim.queue)
	return nObs
}

func (sim *Simulator) run(subject *Subject, p Params, rt *trace.RunTrace) (*Predictions, error) {
	if subject == nil {
		return nil, configErrorf("simulator", "subject is required")
	}
	if err := subject.Validate(sim.nStates, sim.nOutputs); err != nil {
		return nil, err
	}
	eq := sim.Equation
	lag, err := compartmentTable("lag", eq.Lag(p), sim.nStates, 0, validLag)
	if err != nil {
		return nil, err
	}
	fa, err := compartmentTable("bioavailability", eq.Bioavailability(p), sim.nStates, 1, validFraction)
	if err != nil {
		return nil, err
	}

	remaining := sim.schedule(subject, lag, fa)
	preds := &Predictions{SubjectID: subject.ID, Items: make([]Prediction, 0, remaining)}

	cov := subject.covariates
	for i := range sim.rates {
		sim.rates[i] = 0
		sim.infusing[i] = 0
	}
	now := 0.0
	for i := range sim.x {
		sim.x[i] = 0
	}
	eq.Initial(p, now, cov, sim.x)
	if c := firstNonFinite(sim.x); c >= 0 {
		return nil, sim.numericalError(subject, p, now, now, now, c, ErrNonFinite)
	}
	logrus.Debugf("[t=%g] subject %s initialized, x=%v", now, subject.ID, sim.x)

	rates := sim.rates
	f := func(t float64, x, dx []float64) {
		eq.Derivative(x, p, t, rates, cov, dx)
	}

	var start []float64
	if rt != nil {
		start = make([]float64, sim.nStates)
	}

	for remaining > 0 && sim.queue.Len() > 0 {
		a := heap.Pop(&sim.queue).(*action)

		if a.time > now {
			if rt != nil {
				copy(start, sim.x)
			}
			if err := sim.Solver.Integrate(f, now, a.time, sim.x); err != nil {
				at, cmt := a.time, firstNonFinite(sim.x)
				var nf *NonFiniteError
				if errors.As(err, &nf) {
					at, cmt = nf.Time, nf.Compartment
				}
				return nil, sim.numericalError(subject, p, now, a.time, at, cmt, err)
			}
			if c := firstNonFinite(sim.x); c >= 0 {
				return nil, sim.numericalError(subject, p, now, a.time, a.time, c, ErrNonFinite)
			}
			if rt != nil {
				rt.RecordInterval(now, a.time, start, sim.x)
			}
			now = a.time
		}

		logrus.Tracef("[t=%g] subject %s executing %s (cmt=%d)", now, subject.ID, a.kind, a.compartment)
		switch a.kind {
		case actionBolus:
			sim.x[a.compartment] += a.amount
		case actionInfusionStart:
			sim.infusing[a.compartment]++
			sim.rates[a.compartment] += a.amount
		case actionInfusionStop:
			sim.infusing[a.compartment]--
			if sim.infusing[a.compartment] == 0 {
				sim.rates[a.compartment] = 0
			} else {
				sim.rates[a.compartment] -= a.amount
			}
		case actionObservation:
			for i := range sim.y {
				sim.y[i] = 0
			}
			eq.Output(sim.x, p, now, cov, sim.y)
			outputs := append([]float64(nil), sim.y...)
			preds.Items = append(preds.Items, Prediction{
				Time:     now,
				Output:   a.obs.Output,
				Value:    outputs[a.obs.Output],
				Observed: a.obs.Value,
				Outputs:  outputs,
			})
			remaining--
		}
		if rt != nil {
			rec := trace.DiscontinuityRecord{Time: now, Kind: a.kind.String(), Compartment: a.compartment}
			if a.kind != actionObservation {
				rec.Amount = a.amount
			}
			rt.RecordDiscontinuity(rec)
		}
	}

	logrus.Debugf("[t=%g] subject %s finished with %d predictions", now, subject.ID, len(preds.Items))
	return preds, nil
}

func (sim *Simulator) numericalError(subject *Subject, p Params, from, to, at float64, cmt int, err error) error {
	logrus.Debugf("subject %s: integration failed over [%g, %g]: %v (params %v)", subject.ID, from, to, err, p)
	return &NumericalError{
		SubjectID:   subject.ID,
		From:        from,
		To:          to,
		Time:        at,
		Compartment: cmt,
		Params:      p.Values(),
		Wrapped:     err,
	}
}
