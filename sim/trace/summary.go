package trace

// TraceSummary aggregates statistics from a RunTrace.
type TraceSummary struct {
	Intervals         int
	IntegratedSpan    float64 // sum of interval lengths
	Boluses           int
	Infusions         int
	Observations      int
	DoseByCompartment map[int]float64 // compartment → total effective bolus amount
}

// Summarize computes aggregate statistics from a RunTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(rt *RunTrace) *TraceSummary {
	summary := &TraceSummary{
		DoseByCompartment: make(map[int]float64),
	}
	if rt == nil {
		return summary
	}

	summary.Intervals = len(rt.Intervals)
	for _, iv := range rt.Intervals {
		summary.IntegratedSpan += iv.To - iv.From
	}

	for _, d := range rt.Discontinuities {
		switch d.Kind {
		case "bolus":
			summary.Boluses++
			summary.DoseByCompartment[d.Compartment] += d.Amount
		case "infusion-start":
			summary.Infusions++
		case "observation":
			summary.Observations++
		}
	}

	return summary
}
