// Package models provides built-in compartmental equations for the pharmsim engine.
// The Equation interface is defined in sim/ (parent package); every model here
// is an *sim.ODE whose parameter indices are resolved once, at construction.
package models

import (
	"fmt"
	"sort"

	"github.com/pharmsim/pharmsim/sim"
)

// constructors maps model names to factories.
var constructors = map[string]func() *sim.ODE{
	"hmm":   NewTwoPoolSaturable,
	"oral1": NewOneCompartmentOral,
	"iv1":   NewOneCompartmentIV,
}

// descriptions is shown by the CLI model listing.
var descriptions = map[string]string{
	"hmm":   "two pools with saturable (Michaelis-Menten) exchange, constant input to A and output from B",
	"oral1": "first order absorption from a depot with lag time, linear elimination",
	"iv1":   "single compartment with linear elimination",
}

// Lookup returns a new instance of the named model.
func Lookup(name string) (*sim.ODE, error) {
	ctor, ok := constructors[name]
	if !ok {
		return nil, fmt.Errorf("unknown model %q; valid: %v", name, Names())
	}
	return ctor(), nil
}

// Names returns the registered model names in sorted order.
func Names() []string {
	names := make([]string, 0, len(constructors))
	for n := range constructors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Describe returns the one-line description of a model.
func Describe(name string) string {
	return descriptions[name]
}

// mustODE panics on invalid built-in definitions, which are programming errors.
func mustODE(cfg sim.ODEConfig) *sim.ODE {
	ode, err := sim.NewODE(cfg)
	if err != nil {
		panic(err)
	}
	return ode
}

// saturable is the Michaelis-Menten flux vmax*c/(km+c), equal to
// vmax/(1+km/c) for c > 0 and zero at c = 0.
func saturable(vmax, km, c float64) float64 {
	return vmax * c / (km + c)
}
