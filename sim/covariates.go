package sim

import "sort"

// CovariatePoint is one recorded value of a time-varying covariate.
type CovariatePoint struct {
	Time  float64
	Value float64
}

// Covariate is a time series read with linear interpolation between points
// and constant extrapolation before the first and after the last point.
type Covariate struct {
	Name   string
	points []CovariatePoint
}

func newCovariate(name string, points []CovariatePoint) *Covariate {
	pts := make([]CovariatePoint, len(points))
	copy(pts, points)
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].Time < pts[j].Time })
	return &Covariate{Name: name, points: pts}
}

// Points returns a copy of the recorded points in time order.
func (c *Covariate) Points() []CovariatePoint {
	out := make([]CovariatePoint, len(c.points))
	copy(out, c.points)
	return out
}

// Value returns the covariate at time t.
func (c *Covariate) Value(t float64) float64 {
	n := len(c.points)
	if n == 0 {
		return 0
	}
	if t <= c.points[0].Time {
		return c.points[0].Value
	}
	if t >= c.points[n-1].Time {
		return c.points[n-1].Value
	}
	// first point strictly after t
	j := sort.Search(n, func(i int) bool { return c.points[i].Time > t })
	a, b := c.points[j-1], c.points[j]
	if b.Time == a.Time {
		return b.Value
	}
	frac := (t - a.Time) / (b.Time - a.Time)
	return a.Value + frac*(b.Value-a.Value)
}

// Covariates maps covariate names to their series. A nil map is valid.
type Covariates map[string]*Covariate

// Value returns the named covariate at time t; ok is false if it is absent.
func (c Covariates) Value(name string, t float64) (v float64, ok bool) {
	cov, ok := c[name]
	if !ok {
		return 0, false
	}
	return cov.Value(t), true
}
