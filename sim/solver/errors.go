package solver

import "errors"

var (
	// ErrStepTooSmall indicates the adaptive step fell below MinStep.
	ErrStepTooSmall = errors.New("solver: adaptive step below minimum")

	// ErrMaxSteps indicates the step budget for one interval was exhausted.
	ErrMaxSteps = errors.New("solver: maximum number of steps reached")

	// ErrInvalidInterval indicates t1 < t0.
	ErrInvalidInterval = errors.New("solver: interval end before start")
)
