package trace

import (
	"testing"
)

func TestRunTrace_RecordInterval_CopiesState(t *testing.T) {
	// GIVEN a trace and a state buffer the caller keeps reusing
	rt := NewRunTrace("s1")
	start := []float64{1, 2}
	end := []float64{3, 4}

	// WHEN an interval is recorded and the buffers are modified afterwards
	rt.RecordInterval(0, 1, start, end)
	start[0], end[0] = 99, 99

	// THEN the record keeps the values at recording time
	if len(rt.Intervals) != 1 {
		t.Fatalf("expected 1 interval, got %d", len(rt.Intervals))
	}
	iv := rt.Intervals[0]
	if iv.StateStart[0] != 1 || iv.StateEnd[0] != 3 {
		t.Errorf("interval state aliased caller buffers: start=%v end=%v", iv.StateStart, iv.StateEnd)
	}
	if iv.From != 0 || iv.To != 1 {
		t.Errorf("interval bounds = [%v, %v], want [0, 1]", iv.From, iv.To)
	}
}

func TestRunTrace_MultipleRecords_PreservesOrder(t *testing.T) {
	// GIVEN a trace
	rt := NewRunTrace("s1")

	// WHEN multiple discontinuities are added
	rt.RecordDiscontinuity(DiscontinuityRecord{Time: 0, Kind: "bolus", Compartment: 0, Amount: 10})
	rt.RecordDiscontinuity(DiscontinuityRecord{Time: 0, Kind: "observation", Compartment: -1})
	rt.RecordDiscontinuity(DiscontinuityRecord{Time: 2, Kind: "infusion-start", Compartment: 1, Amount: 5})

	// THEN order is preserved
	if len(rt.Discontinuities) != 3 {
		t.Fatalf("expected 3 records, got %d", len(rt.Discontinuities))
	}
	if rt.Discontinuities[0].Kind != "bolus" || rt.Discontinuities[2].Kind != "infusion-start" {
		t.Errorf("record order not preserved: %+v", rt.Discontinuities)
	}
}

func TestSummarize_NilTrace_ReturnsZeroSummary(t *testing.T) {
	s := Summarize(nil)
	if s.Intervals != 0 || s.Boluses != 0 || s.IntegratedSpan != 0 {
		t.Errorf("expected zero summary, got %+v", s)
	}
	if s.DoseByCompartment == nil {
		t.Error("expected non-nil DoseByCompartment map")
	}
}

func TestSummarize_CountsByKind(t *testing.T) {
	// GIVEN a trace with two intervals and mixed discontinuities
	rt := NewRunTrace("s1")
	rt.RecordInterval(0, 1.5, []float64{0}, []float64{1})
	rt.RecordInterval(1.5, 4, []float64{1}, []float64{2})
	rt.RecordDiscontinuity(DiscontinuityRecord{Time: 0, Kind: "bolus", Compartment: 0, Amount: 10})
	rt.RecordDiscontinuity(DiscontinuityRecord{Time: 1.5, Kind: "bolus", Compartment: 0, Amount: 5})
	rt.RecordDiscontinuity(DiscontinuityRecord{Time: 1.5, Kind: "infusion-start", Compartment: 1, Amount: 2})
	rt.RecordDiscontinuity(DiscontinuityRecord{Time: 4, Kind: "observation", Compartment: -1})

	// WHEN summarized
	s := Summarize(rt)

	// THEN counts and totals match
	if s.Intervals != 2 {
		t.Errorf("Intervals = %d, want 2", s.Intervals)
	}
	if s.IntegratedSpan != 4 {
		t.Errorf("IntegratedSpan = %v, want 4", s.IntegratedSpan)
	}
	if s.Boluses != 2 || s.Infusions != 1 || s.Observations != 1 {
		t.Errorf("counts = %d boluses, %d infusions, %d observations; want 2, 1, 1", s.Boluses, s.Infusions, s.Observations)
	}
	if s.DoseByCompartment[0] != 15 {
		t.Errorf("DoseByCompartment[0] = %v, want 15", s.DoseByCompartment[0])
	}
}
