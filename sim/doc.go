// Package sim provides the event-driven compartmental simulation engine for pharmsim.
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - subject.go: Subject schedules (doses, observations, covariates) and the builder
//   - queue.go: Timeline actions and their deterministic ordering
//   - simulator.go: The integration loop that splits time at every discontinuity
//
// # Architecture
//
// The sim package defines interfaces and bridge types; implementations live in
// sub-packages:
//   - sim/solver/: Runge-Kutta integrators (fixed step Euler/RK4, adaptive Fehlberg 4(5))
//   - sim/models/: Built-in compartmental equations
//   - sim/population/: Concurrent runs over many subjects or parameter vectors
//   - sim/trace/: Integration interval and discontinuity recording
//
// Sub-packages register their implementations via init() functions that set
// package-level factory variables (NewSolverFunc).
//
// # Key Interfaces
//
// The extension points are small interfaces:
//   - Equation: dimensions, parameter schema, derivative, lag, bioavailability, initial state, outputs
//   - Solver: advance a state vector from t0 to t1
//   - Event: a timestamped schedule entry (Dose or Observation)
//
// Parameters are bound by name once, through a ParamSchema, and accessed by
// index afterwards.
package sim
