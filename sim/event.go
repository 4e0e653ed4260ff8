package sim

import "fmt"

// Event is one entry of a subject's schedule: a Dose or an Observation.
// Events are plain values and are never mutated after Build.
type Event interface {
	Timestamp() float64
	isEvent()
}

// Dose delivers Amount into Compartment at Time. Duration 0 is an
// instantaneous bolus; Duration > 0 is a constant-rate infusion of
// Amount/Duration over [Time, Time+Duration).
type Dose struct {
	Time        float64
	Amount      float64
	Compartment int
	Duration    float64
}

// Timestamp returns the dose time.
func (d Dose) Timestamp() float64 { return d.Time }

// IsInfusion reports whether the dose is delivered over a finite duration.
func (d Dose) IsInfusion() bool { return d.Duration > 0 }

// Rate returns the infusion rate, zero for boluses.
func (d Dose) Rate() float64 {
	if d.Duration <= 0 {
		return 0
	}
	return d.Amount / d.Duration
}

func (d Dose) String() string {
	if d.IsInfusion() {
		return fmt.Sprintf("infusion(t=%g, amount=%g, cmt=%d, dur=%g)", d.Time, d.Amount, d.Compartment, d.Duration)
	}
	return fmt.Sprintf("bolus(t=%g, amount=%g, cmt=%d)", d.Time, d.Amount, d.Compartment)
}

func (Dose) isEvent() {}

// Observation requests the model output with index Output at Time.
// Value holds the measured value, nil when missing.
type Observation struct {
	Time   float64
	Output int
	Value  *float64
}

// Timestamp returns the observation time.
func (o Observation) Timestamp() float64 { return o.Time }

func (o Observation) String() string {
	if o.Value == nil {
		return fmt.Sprintf("observation(t=%g, out=%d)", o.Time, o.Output)
	}
	return fmt.Sprintf("observation(t=%g, out=%d, value=%g)", o.Time, o.Output, *o.Value)
}

func (Observation) isEvent() {}

// tiePriority orders events sharing a timestamp: doses before observations.
func tiePriority(e Event) int {
	if _, ok := e.(Dose); ok {
		return 0
	}
	return 1
}
