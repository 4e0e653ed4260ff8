package solver

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmsim/pharmsim/sim"
	"github.com/pharmsim/pharmsim/sim/internal/testutil"
)

// decay is dx/dt = -k*x for every component.
func decay(k float64) sim.DerivativeFunc {
	return func(_ float64, x, dx []float64) {
		for i := range x {
			dx[i] = -k * x[i]
		}
	}
}

func TestTableaus_Consistency(t *testing.T) {
	for _, tab := range []butcherTableau{eulerTableau(), rk4Tableau(), fehlbergTableau()} {
		t.Run(tab.name, func(t *testing.T) {
			require.Len(t, tab.nodes, tab.stages)
			require.Len(t, tab.matrix, tab.stages)
			for _, w := range tab.weights {
				require.Len(t, w, tab.stages)
				sum := 0.0
				for _, v := range w {
					sum += v
				}
				assert.InDelta(t, 1.0, sum, 1e-12, "weights must sum to one")
			}
			// row sums of the matrix equal the nodes
			for i, row := range tab.matrix {
				sum := 0.0
				for _, v := range row {
					sum += v
				}
				assert.InDelta(t, tab.nodes[i], sum, 1e-12, "stage %d", i)
			}
		})
	}
}

func TestIntegrate_ExponentialDecayAccuracy(t *testing.T) {
	tests := []struct {
		method string
		tol    float64
	}{
		{"euler", 1e-2},
		{"rk4", 1e-9},
		{"rkf45", 1e-7},
	}
	for _, tc := range tests {
		t.Run(tc.method, func(t *testing.T) {
			// GIVEN x(0) = [1, 2] decaying at rate 0.5
			s, err := New(sim.SolverConfig{Method: tc.method})
			require.NoError(t, err)
			x := []float64{1, 2}

			// WHEN integrated over [0, 4]
			require.NoError(t, s.Integrate(decay(0.5), 0, 4, x))

			// THEN the result matches the closed form
			want := math.Exp(-2)
			testutil.AssertSliceNear(t, "x", []float64{want, 2 * want}, x, tc.tol)
		})
	}
}

func TestIntegrate_EmptyAndReversedIntervals(t *testing.T) {
	for _, method := range []string{"euler", "rk4", "rkf45"} {
		s, err := New(sim.SolverConfig{Method: method})
		require.NoError(t, err)

		x := []float64{3}
		assert.NoError(t, s.Integrate(decay(1), 2, 2, x), method)
		assert.Equal(t, []float64{3}, x, "empty interval leaves the state untouched")

		err = s.Integrate(decay(1), 2, 1, x)
		assert.ErrorIs(t, err, ErrInvalidInterval, method)
	}
}

func TestFixedStep_LandsExactlyOnIntervalEnd(t *testing.T) {
	// GIVEN a step that does not divide the interval
	fs := NewEuler(0.3, 0)
	var last float64
	f := func(tt float64, _, dx []float64) {
		last = tt
		dx[0] = 1
	}
	x := []float64{0}

	require.NoError(t, fs.Integrate(f, 0, 1, x))

	// THEN four uniform steps of 0.25 cover [0, 1] exactly
	assert.InDelta(t, 1.0, x[0], 1e-12)
	assert.InDelta(t, 0.75, last, 1e-12)
}

func TestFixedStep_MaxSteps(t *testing.T) {
	fs := NewRK4(0.1, 5)
	err := fs.Integrate(decay(1), 0, 1, []float64{1})
	assert.ErrorIs(t, err, ErrMaxSteps)
}

func TestFehlberg45_CountsStepsAndRespectsMaxStep(t *testing.T) {
	a := NewFehlberg45(sim.SolverConfig{MaxStep: 0.05})
	x := []float64{1}

	require.NoError(t, a.Integrate(decay(1), 0, 1, x))

	st := a.Stats()
	assert.GreaterOrEqual(t, st.Accepted, 20, "steps are capped at 0.05")
	assert.Equal(t, 6*(st.Accepted+st.Rejected), st.Evaluations)
	assert.LessOrEqual(t, st.LastStep, 0.05+1e-15)
	testutil.AssertFloat64Equal(t, "x", math.Exp(-1), x[0], 1e-8)
}

func TestFehlberg45_RepeatedCallsAreIdentical(t *testing.T) {
	a := NewFehlberg45(sim.SolverConfig{})
	x1, x2 := []float64{1}, []float64{1}

	require.NoError(t, a.Integrate(decay(3), 0, 2, x1))
	first := a.Stats()
	require.NoError(t, a.Integrate(decay(3), 0, 2, x2))

	assert.Equal(t, x1, x2)
	assert.Equal(t, first, a.Stats())
}

func TestFehlberg45_MaxSteps(t *testing.T) {
	a := NewFehlberg45(sim.SolverConfig{MaxSteps: 3, AbsTol: 1e-14, RelTol: 1e-14})
	err := a.Integrate(decay(50), 0, 10, []float64{1})
	assert.ErrorIs(t, err, ErrMaxSteps)
}

func TestFehlberg45_NonFiniteDerivative(t *testing.T) {
	a := NewFehlberg45(sim.SolverConfig{})
	nan := func(_ float64, _, dx []float64) { dx[0] = math.NaN() }
	x := []float64{1}

	err := a.Integrate(nan, 0, 1, x)

	require.Error(t, err)
	assert.True(t, errors.Is(err, sim.ErrNonFinite))
	var nf *sim.NonFiniteError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, 0, nf.Compartment)
	assert.Equal(t, 0.0, nf.Time)
	assert.Equal(t, []float64{1}, x, "rejected steps leave the state untouched")
}

func TestFixedStep_NonFiniteReportsComponentAndTime(t *testing.T) {
	fs := NewEuler(0.25, 0)
	f := func(tt float64, _, dx []float64) {
		dx[0] = 1
		dx[1] = 0
		if tt >= 0.5 {
			dx[1] = math.NaN()
		}
	}

	err := fs.Integrate(f, 0, 1, []float64{0, 0})

	var nf *sim.NonFiniteError
	require.True(t, errors.As(err, &nf), "got %v", err)
	assert.Equal(t, 1, nf.Compartment)
	assert.InDelta(t, 0.75, nf.Time, 1e-12)
}

func TestGrowth_Clamped(t *testing.T) {
	assert.Equal(t, maxFactor, growth(0, 5))
	assert.Equal(t, minFactor, growth(math.Inf(1), 5))
	assert.Equal(t, minFactor, growth(1e12, 5))
	assert.Equal(t, maxFactor, growth(1e-12, 5))
	assert.InDelta(t, safety, growth(1, 5), 1e-15)
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	_, err := New(sim.SolverConfig{Method: "midpoint"})
	assert.Error(t, err)

	_, err = New(sim.SolverConfig{MaxStep: -1})
	assert.Error(t, err)
}

func TestRegister_SetsFactory(t *testing.T) {
	require.NotNil(t, sim.NewSolverFunc)
	s, err := sim.NewSolver(sim.SolverConfig{Method: "rk4"})
	require.NoError(t, err)
	assert.Equal(t, "rk4", s.(*FixedStep).Method())
}
