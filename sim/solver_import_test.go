package sim_test

// Blank import triggers sim/solver's init(), which registers NewSolverFunc.
// This allows package sim's internal test files to create solvers
// without directly importing sim/solver (which would create an import cycle).
import _ "github.com/pharmsim/pharmsim/sim/solver"
