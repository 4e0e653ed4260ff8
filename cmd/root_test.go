package cmd

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmsim/pharmsim/sim"
	"github.com/pharmsim/pharmsim/sim/population"
)

func loadExample(t *testing.T) *Scenario {
	t.Helper()
	sc, err := LoadScenario(filepath.Join("testdata", "jamaas.yaml"))
	require.NoError(t, err)
	return sc
}

func TestRunScenario_ProducesPredictionsPerSubject(t *testing.T) {
	// GIVEN the example scenario and a metrics registry
	sc := loadExample(t)
	reg := prometheus.NewRegistry()

	// WHEN it runs
	results, err := RunScenario(context.Background(), sc, 2, population.NewMetrics(reg))
	require.NoError(t, err)

	// THEN each subject yields one prediction per observation
	require.Len(t, results, 2)
	assert.Equal(t, "jamaas", results[0].SubjectID)
	assert.Equal(t, 3, results[0].Predictions.Len())
	assert.Equal(t, 2, results[1].Predictions.Len())

	// AND Prometheus text output lists the run counters
	var buf bytes.Buffer
	require.NoError(t, PrintMetrics(&buf, reg))
	assert.Contains(t, buf.String(), `pharmsim_population_runs_total{outcome="ok"} 2`)
}

func TestRunScenario_ParameterErrors(t *testing.T) {
	sc := loadExample(t)
	delete(sc.Params, "KBO")
	_, err := RunScenario(context.Background(), sc, 1, nil)
	assert.True(t, errors.Is(err, sim.ErrConfig), "got %v", err)

	sc = loadExample(t)
	sc.Model = "pbpk"
	_, err = RunScenario(context.Background(), sc, 1, nil)
	assert.Error(t, err)
}

func TestPrintPredictions_Table(t *testing.T) {
	sc := loadExample(t)
	results, err := RunScenario(context.Background(), sc, 1, nil)
	require.NoError(t, err)
	results = append(results, population.Result{SubjectID: "broken", Err: errors.New("boom")})

	var buf bytes.Buffer
	PrintPredictions(&buf, results)
	out := buf.String()

	assert.Contains(t, out, "=== Predictions ===")
	assert.Contains(t, out, "jamaas")
	assert.Contains(t, out, "baseline     squared error:")
	assert.Contains(t, out, "broken       FAILED: boom")
}

func TestPrintTraces_Summary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintTraces(&buf, loadExample(t)))

	out := buf.String()
	assert.Contains(t, out, "=== Integration Trace ===")
	assert.Contains(t, out, "jamaas       intervals=3")
	assert.Contains(t, out, "boluses=3")
}

func TestModelsCommand_ListsModels(t *testing.T) {
	var buf bytes.Buffer
	modelsCmd.SetOut(&buf)
	modelsCmd.Run(modelsCmd, nil)

	out := buf.String()
	assert.Contains(t, out, "hmm")
	assert.Contains(t, out, "params=[SA SB QA0 QB0 QT0 FOA VAB VBA VBO KAB KBA KBO]")
	assert.Contains(t, out, "oral1")
}
