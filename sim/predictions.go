package sim

import "gonum.org/v1/gonum/floats"

// Prediction is the model output at one observation event.
type Prediction struct {
	Time     float64
	Output   int       // output index requested by the observation
	Value    float64   // Outputs[Output]
	Observed *float64  // measured value, nil when missing
	Outputs  []float64 // full output vector at Time
}

// Residual returns observed - predicted; ok is false when no value was measured.
func (p Prediction) Residual() (r float64, ok bool) {
	if p.Observed == nil {
		return 0, false
	}
	return *p.Observed - p.Value, true
}

// Predictions holds one entry per observation, in schedule order.
type Predictions struct {
	SubjectID string
	Items     []Prediction
}

// Len returns the number of predictions.
func (ps *Predictions) Len() int { return len(ps.Items) }

// Flat returns the requested output value of every observation.
func (ps *Predictions) Flat() []float64 {
	out := make([]float64, len(ps.Items))
	for i, p := range ps.Items {
		out[i] = p.Value
	}
	return out
}

// Outputs returns the full output vector of every observation.
func (ps *Predictions) Outputs() [][]float64 {
	out := make([][]float64, len(ps.Items))
	for i, p := range ps.Items {
		out[i] = append([]float64(nil), p.Outputs...)
	}
	return out
}

// Residuals returns observed - predicted for observations with a measured value.
func (ps *Predictions) Residuals() []float64 {
	var out []float64
	for _, p := range ps.Items {
		if r, ok := p.Residual(); ok {
			out = append(out, r)
		}
	}
	return out
}

// SquaredError returns the sum of squared residuals.
func (ps *Predictions) SquaredError() float64 {
	r := ps.Residuals()
	if len(r) == 0 {
		return 0
	}
	return floats.Dot(r, r)
}
