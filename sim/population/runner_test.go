package population

import (
	"context"
	"errors"
	"math"
	"os"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmsim/pharmsim/sim"
	_ "github.com/pharmsim/pharmsim/sim/solver"
)

func TestMain(m *testing.M) {
	// Numerical failures are logged at warn level; keep test output quiet.
	if os.Getenv("DEBUG_TESTS") == "" {
		logrus.SetLevel(logrus.ErrorLevel)
	}
	os.Exit(m.Run())
}

// newDecay returns dx/dt = -k*x; a negative k makes the derivative NaN.
func newDecay(t *testing.T) *sim.ODE {
	t.Helper()
	ode, err := sim.NewODE(sim.ODEConfig{
		Name:     "decay",
		Schema:   sim.MustParamSchema("k"),
		NStates:  1,
		NOutputs: 1,
		Derivative: func(x []float64, p sim.Params, _ float64, rates []float64, _ sim.Covariates, dx []float64) {
			k := p.At(0)
			if k < 0 {
				dx[0] = math.NaN()
				return
			}
			dx[0] = -k*x[0] + rates[0]
		},
		Output: func(x []float64, _ sim.Params, _ float64, _ sim.Covariates, y []float64) {
			y[0] = x[0]
		},
	})
	require.NoError(t, err)
	return ode
}

func newSubject(t *testing.T, id string) *sim.Subject {
	t.Helper()
	s, err := sim.NewSubjectBuilder(id).Bolus(0, 10, 0).Observation(1, 0).Repeat(3, 1).Build()
	require.NoError(t, err)
	return s
}

func TestRun_ResultsInJobOrderAndMatchSequential(t *testing.T) {
	// GIVEN many subjects sharing one parameter vector
	eq := newDecay(t)
	var subjects []*sim.Subject
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		subjects = append(subjects, newSubject(t, id))
	}
	r := &Runner{Equation: eq, Workers: 3}

	// WHEN run concurrently
	results, err := r.Run(context.Background(), SubjectsJobs(subjects, []float64{0.4}))
	require.NoError(t, err)

	// THEN each result matches a sequential run of the same subject, in job order
	seq, err := sim.NewSimulator(eq, sim.SimConfig{})
	require.NoError(t, err)
	require.Len(t, results, len(subjects))
	for i, res := range results {
		require.NoError(t, res.Err)
		assert.Equal(t, subjects[i].ID, res.SubjectID)
		assert.NotEmpty(t, res.RunID)
		want, err := seq.Simulate(subjects[i], []float64{0.4})
		require.NoError(t, err)
		assert.Equal(t, want.Items, res.Predictions.Items)
	}
	assert.NotEqual(t, results[0].RunID, results[1].RunID)
}

func TestRun_NumericalFailureIsPerJob(t *testing.T) {
	// GIVEN a sweep where one parameter vector makes the derivative NaN
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	r := &Runner{Equation: newDecay(t), Metrics: m}
	subject := newSubject(t, "s")

	// WHEN the sweep runs
	results, err := r.Run(context.Background(), SweepJobs(subject, [][]float64{{0.1}, {-1}, {0.2}}))

	// THEN the batch succeeds and only the bad job carries an error
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.NoError(t, results[2].Err)
	require.Error(t, results[1].Err)
	assert.True(t, errors.Is(results[1].Err, sim.ErrNumerical))
	assert.Nil(t, results[1].Predictions)
	assert.Greater(t, results[0].Predictions.Items[0].Value, results[2].Predictions.Items[0].Value,
		"slower elimination leaves more drug")

	// AND the outcomes are counted
	assert.Equal(t, 2.0, testutil.ToFloat64(m.runs.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues(OutcomeNumerical)))
	assert.Equal(t, 8.0, testutil.ToFloat64(m.predictions))
}

func TestRun_ConfigErrorAbortsBatch(t *testing.T) {
	bad, err := sim.NewSubjectBuilder("bad").Bolus(0, 1, 4).Observation(1, 0).Build()
	require.NoError(t, err)
	r := &Runner{Equation: newDecay(t), Workers: 1}

	_, err = r.Run(context.Background(), []Job{
		{Subject: newSubject(t, "ok"), Values: []float64{0.1}},
		{Subject: bad, Values: []float64{0.1}},
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, sim.ErrConfig), "got %v", err)
}

func TestRun_InvalidSolverFailsFast(t *testing.T) {
	r := &Runner{Equation: newDecay(t), Config: sim.SimConfig{Solver: sim.SolverConfig{Method: "bogus"}}}
	results, err := r.Run(context.Background(), SubjectsJobs([]*sim.Subject{newSubject(t, "s")}, []float64{1}))
	assert.ErrorIs(t, err, sim.ErrConfig)
	assert.Nil(t, results)
}

func TestRun_NoEquation(t *testing.T) {
	_, err := (&Runner{}).Run(context.Background(), nil)
	assert.Error(t, err)
}

func TestRun_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &Runner{Equation: newDecay(t)}

	_, err := r.Run(ctx, SubjectsJobs([]*sim.Subject{newSubject(t, "s")}, []float64{1}))

	assert.ErrorIs(t, err, context.Canceled)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() { m.observe(OutcomeOK, 1, 1) })
}

func TestMetrics_Registered(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.observe(OutcomeOK, 0.01, 3)

	count, err := testutil.GatherAndCount(reg, "pharmsim_population_runs_total", "pharmsim_population_run_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
