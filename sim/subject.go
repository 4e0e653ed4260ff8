package sim

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Subject is the immutable dosing and observation schedule of one simulated entity.
type Subject struct {
	ID         string
	events     []Event
	covariates Covariates
}

// Events returns a copy of the time-sorted schedule.
func (s *Subject) Events() []Event {
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// Covariates returns the subject's covariates. Callers must not modify them.
func (s *Subject) Covariates() Covariates { return s.covariates }

// NumObservations returns the number of observation events.
func (s *Subject) NumObservations() int {
	n := 0
	for _, e := range s.events {
		if _, ok := e.(Observation); ok {
			n++
		}
	}
	return n
}

// Validate checks every event index against an equation's dimensions.
func (s *Subject) Validate(nStates, nOutputs int) error {
	for i, e := range s.events {
		switch ev := e.(type) {
		case Dose:
			if ev.Compartment >= nStates {
				return configErrorf("subject "+s.ID, "event %d: %v targets compartment %d, model has %d",
					i, ev, ev.Compartment, nStates)
			}
		case Observation:
			if ev.Output >= nOutputs {
				return configErrorf("subject "+s.ID, "event %d: %v requests output %d, model has %d",
					i, ev, ev.Output, nOutputs)
			}
		}
	}
	return nil
}

// SubjectBuilder assembles a Subject through fluent calls.
// The first invalid call is remembered and reported by Build.
type SubjectBuilder struct {
	id         string
	events     []Event
	covariates map[string][]CovariatePoint
	covOrder   []string
	err        error
}

// NewSubjectBuilder starts a schedule for the given subject ID.
func NewSubjectBuilder(id string) *SubjectBuilder {
	return &SubjectBuilder{id: id, covariates: make(map[string][]CovariatePoint)}
}

func (b *SubjectBuilder) fail(format string, args ...any) *SubjectBuilder {
	if b.err == nil {
		b.err = configErrorf("subject "+b.id, format, args...)
	}
	return b
}

// Bolus adds an instantaneous dose.
func (b *SubjectBuilder) Bolus(time, amount float64, compartment int) *SubjectBuilder {
	return b.addDose(Dose{Time: time, Amount: amount, Compartment: compartment})
}

// Infusion adds a constant-rate dose of amount over duration.
func (b *SubjectBuilder) Infusion(time, amount float64, compartment int, duration float64) *SubjectBuilder {
	if !(duration > 0) || math.IsInf(duration, 0) {
		return b.fail("infusion at t=%g: duration must be finite and > 0, got %g", time, duration)
	}
	return b.addDose(Dose{Time: time, Amount: amount, Compartment: compartment, Duration: duration})
}

func (b *SubjectBuilder) addDose(d Dose) *SubjectBuilder {
	if err := checkTime(d.Time); err != nil {
		return b.fail("dose: %v", err)
	}
	if math.IsNaN(d.Amount) || math.IsInf(d.Amount, 0) || d.Amount < 0 {
		return b.fail("dose at t=%g: amount must be finite and >= 0, got %g", d.Time, d.Amount)
	}
	if d.Compartment < 0 {
		return b.fail("dose at t=%g: negative compartment %d", d.Time, d.Compartment)
	}
	b.events = append(b.events, d)
	return b
}

// Observation adds a prediction request with no measured value.
func (b *SubjectBuilder) Observation(time float64, output int) *SubjectBuilder {
	return b.addObservation(Observation{Time: time, Output: output})
}

// ObservationValue adds a prediction request paired with a measured value.
func (b *SubjectBuilder) ObservationValue(time, value float64, output int) *SubjectBuilder {
	v := value
	return b.addObservation(Observation{Time: time, Output: output, Value: &v})
}

func (b *SubjectBuilder) addObservation(o Observation) *SubjectBuilder {
	if err := checkTime(o.Time); err != nil {
		return b.fail("observation: %v", err)
	}
	if o.Output < 0 {
		return b.fail("observation at t=%g: negative output %d", o.Time, o.Output)
	}
	b.events = append(b.events, o)
	return b
}

// Covariate records a covariate value at a time.
func (b *SubjectBuilder) Covariate(name string, time, value float64) *SubjectBuilder {
	if name == "" {
		return b.fail("covariate with empty name")
	}
	if err := checkTime(time); err != nil {
		return b.fail("covariate %q: %v", name, err)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return b.fail("covariate %q at t=%g: value is not finite", name, time)
	}
	if _, seen := b.covariates[name]; !seen {
		b.covOrder = append(b.covOrder, name)
	}
	b.covariates[name] = append(b.covariates[name], CovariatePoint{Time: time, Value: value})
	return b
}

// Repeat re-emits the most recently added event n more times, the k-th copy
// placed at lastTime + k*interval.
func (b *SubjectBuilder) Repeat(n int, interval float64) *SubjectBuilder {
	if n < 0 {
		return b.fail("repeat: negative count %d", n)
	}
	if n == 0 {
		return b
	}
	if len(b.events) == 0 {
		return b.fail("repeat: no event to repeat")
	}
	if !(interval > 0) || math.IsInf(interval, 0) {
		return b.fail("repeat: interval must be finite and > 0, got %g", interval)
	}
	last := b.events[len(b.events)-1]
	for k := 1; k <= n; k++ {
		shift := float64(k) * interval
		switch ev := last.(type) {
		case Dose:
			ev.Time += shift
			b.events = append(b.events, ev)
		case Observation:
			ev.Time += shift
			if ev.Value != nil {
				v := *ev.Value
				ev.Value = &v
			}
			b.events = append(b.events, ev)
		}
	}
	return b
}

// Build finalizes the schedule. Events are sorted stably by time; at equal
// times doses precede observations.
func (b *SubjectBuilder) Build() (*Subject, error) {
	if b.err != nil {
		return nil, b.err
	}
	events := make([]Event, len(b.events))
	copy(events, b.events)
	sort.SliceStable(events, func(i, j int) bool {
		ti, tj := events[i].Timestamp(), events[j].Timestamp()
		if ti != tj {
			return ti < tj
		}
		return tiePriority(events[i]) < tiePriority(events[j])
	})
	for i := 1; i < len(events); i++ {
		if events[i].Timestamp() < events[i-1].Timestamp() {
			return nil, configErrorf("subject "+b.id, "event times not non-decreasing at index %d", i)
		}
	}
	var covs Covariates
	if len(b.covOrder) > 0 {
		covs = make(Covariates, len(b.covOrder))
		for _, name := range b.covOrder {
			covs[name] = newCovariate(name, b.covariates[name])
		}
	}
	return &Subject{ID: b.id, events: events, covariates: covs}, nil
}

func checkTime(t float64) error {
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return errors.New("time is not finite")
	}
	if t < 0 {
		return fmt.Errorf("time must be >= 0, got %g", t)
	}
	return nil
}
