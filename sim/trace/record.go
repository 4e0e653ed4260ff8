// Package trace provides integration-trace recording for a single simulation run.
// This package has no dependencies on sim/; it stores pure data types.
package trace

// IntervalRecord captures one continuous integration interval [From, To].
type IntervalRecord struct {
	From       float64
	To         float64
	StateStart []float64
	StateEnd   []float64
}

// DiscontinuityRecord captures an instantaneous change applied between intervals.
type DiscontinuityRecord struct {
	Time        float64
	Kind        string  // "bolus", "infusion-start", "infusion-stop", "observation"
	Compartment int     // -1 for observations
	Amount      float64 // effective bolus amount or infusion rate; 0 for observations
}
