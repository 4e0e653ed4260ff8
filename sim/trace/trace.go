package trace

// RunTrace collects interval and discontinuity records during one run,
// in the order the simulator produced them.
type RunTrace struct {
	SubjectID       string
	Intervals       []IntervalRecord
	Discontinuities []DiscontinuityRecord
}

// NewRunTrace creates a RunTrace ready for recording.
func NewRunTrace(subjectID string) *RunTrace {
	return &RunTrace{
		SubjectID:       subjectID,
		Intervals:       make([]IntervalRecord, 0),
		Discontinuities: make([]DiscontinuityRecord, 0),
	}
}

// RecordInterval appends an interval record. State slices are copied.
func (rt *RunTrace) RecordInterval(from, to float64, start, end []float64) {
	rt.Intervals = append(rt.Intervals, IntervalRecord{
		From:       from,
		To:         to,
		StateStart: append([]float64(nil), start...),
		StateEnd:   append([]float64(nil), end...),
	})
}

// RecordDiscontinuity appends a discontinuity record.
func (rt *RunTrace) RecordDiscontinuity(record DiscontinuityRecord) {
	rt.Discontinuities = append(rt.Discontinuities, record)
}
