package cmd

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pharmsim/pharmsim/sim"
)

// Scenario is a YAML file describing a model, its parameters and the
// subjects to simulate.
type Scenario struct {
	Model    string             `yaml:"model"`
	Solver   SolverSpec         `yaml:"solver"`
	Params   map[string]float64 `yaml:"params"`
	Subjects []SubjectSpec      `yaml:"subjects"`
}

// SolverSpec mirrors sim.SolverConfig; zero fields take the defaults.
type SolverSpec struct {
	Method      string  `yaml:"method"`
	AbsTol      float64 `yaml:"abs_tol"`
	RelTol      float64 `yaml:"rel_tol"`
	InitialStep float64 `yaml:"initial_step"`
	MinStep     float64 `yaml:"min_step"`
	MaxStep     float64 `yaml:"max_step"`
	MaxSteps    int     `yaml:"max_steps"`
}

// SubjectSpec is one subject's schedule. Covariates map a name to
// [time, value] pairs.
type SubjectSpec struct {
	ID         string                 `yaml:"id"`
	Events     []EventSpec            `yaml:"events"`
	Covariates map[string][][]float64 `yaml:"covariates,omitempty"`
}

// EventSpec holds exactly one of Bolus, Infusion or Observation, plus an
// optional Repeat applied to it.
type EventSpec struct {
	Bolus       *DoseSpec        `yaml:"bolus,omitempty"`
	Infusion    *DoseSpec        `yaml:"infusion,omitempty"`
	Observation *ObservationSpec `yaml:"observation,omitempty"`
	Repeat      *RepeatSpec      `yaml:"repeat,omitempty"`
}

// DoseSpec describes a bolus or infusion.
type DoseSpec struct {
	Time        float64 `yaml:"time"`
	Amount      float64 `yaml:"amount"`
	Compartment int     `yaml:"compartment"`
	Duration    float64 `yaml:"duration,omitempty"`
}

// ObservationSpec describes an observation; Value is the measurement, if any.
type ObservationSpec struct {
	Time   float64  `yaml:"time"`
	Output int      `yaml:"output"`
	Value  *float64 `yaml:"value,omitempty"`
}

// RepeatSpec re-emits the event Count more times, Interval apart.
type RepeatSpec struct {
	Count    int     `yaml:"count"`
	Interval float64 `yaml:"interval"`
}

// LoadScenario reads and parses a YAML scenario file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	var sc Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&sc); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks the structural rules the YAML schema cannot express.
func (sc *Scenario) Validate() error {
	if sc.Model == "" {
		return fmt.Errorf("scenario: model is required")
	}
	if !sim.ValidSolverMethods[sc.Solver.Method] {
		return fmt.Errorf("scenario: unknown solver method %q; valid: rkf45, rk4, euler", sc.Solver.Method)
	}
	if len(sc.Subjects) == 0 {
		return fmt.Errorf("scenario: at least one subject required")
	}
	seen := make(map[string]bool, len(sc.Subjects))
	for i, s := range sc.Subjects {
		prefix := fmt.Sprintf("subjects[%d]", i)
		if s.ID == "" {
			return fmt.Errorf("%s: id is required", prefix)
		}
		if seen[s.ID] {
			return fmt.Errorf("%s: duplicate id %q", prefix, s.ID)
		}
		seen[s.ID] = true
		for j, e := range s.Events {
			n := 0
			for _, set := range []bool{e.Bolus != nil, e.Infusion != nil, e.Observation != nil} {
				if set {
					n++
				}
			}
			if n != 1 {
				return fmt.Errorf("%s.events[%d]: exactly one of bolus, infusion, observation required, got %d", prefix, j, n)
			}
			if e.Bolus != nil && e.Bolus.Duration != 0 {
				return fmt.Errorf("%s.events[%d]: bolus does not take a duration; use infusion", prefix, j)
			}
		}
		for name, pts := range s.Covariates {
			for k, pt := range pts {
				if len(pt) != 2 {
					return fmt.Errorf("%s.covariates.%s[%d]: expected [time, value], got %v", prefix, name, k, pt)
				}
			}
		}
	}
	return nil
}

// SolverConfig converts the solver section.
func (sc *Scenario) SolverConfig() sim.SolverConfig {
	return sim.SolverConfig{
		Method:      sc.Solver.Method,
		AbsTol:      sc.Solver.AbsTol,
		RelTol:      sc.Solver.RelTol,
		InitialStep: sc.Solver.InitialStep,
		MinStep:     sc.Solver.MinStep,
		MaxStep:     sc.Solver.MaxStep,
		MaxSteps:    sc.Solver.MaxSteps,
	}
}

// BuildSubjects runs every subject spec through sim.SubjectBuilder.
func (sc *Scenario) BuildSubjects() ([]*sim.Subject, error) {
	subjects := make([]*sim.Subject, 0, len(sc.Subjects))
	for _, spec := range sc.Subjects {
		b := sim.NewSubjectBuilder(spec.ID)
		for _, e := range spec.Events {
			switch {
			case e.Bolus != nil:
				b.Bolus(e.Bolus.Time, e.Bolus.Amount, e.Bolus.Compartment)
			case e.Infusion != nil:
				b.Infusion(e.Infusion.Time, e.Infusion.Amount, e.Infusion.Compartment, e.Infusion.Duration)
			case e.Observation != nil:
				if e.Observation.Value != nil {
					b.ObservationValue(e.Observation.Time, *e.Observation.Value, e.Observation.Output)
				} else {
					b.Observation(e.Observation.Time, e.Observation.Output)
				}
			}
			if e.Repeat != nil {
				b.Repeat(e.Repeat.Count, e.Repeat.Interval)
			}
		}
		for name, pts := range spec.Covariates {
			for _, pt := range pts {
				b.Covariate(name, pt[0], pt[1])
			}
		}
		s, err := b.Build()
		if err != nil {
			return nil, err
		}
		subjects = append(subjects, s)
	}
	return subjects, nil
}
