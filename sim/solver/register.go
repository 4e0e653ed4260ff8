// register.go wires sim/solver constructors into the sim package's registration
// variable (NewSolverFunc). This init() runs when any package imports
// sim/solver, breaking the import cycle between sim/ (interface owner) and
// sim/solver/ (implementation). Production code imports sim/solver directly;
// test code in package sim uses solver_import_test.go for the blank import.
package solver

import "github.com/pharmsim/pharmsim/sim"

func init() {
	sim.NewSolverFunc = New
}
