package mpc

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrOptimizationFailed matches any OptimizationFailedError via errors.Is.
var ErrOptimizationFailed = errors.New("trajectory optimization failed")

// OptimizationFailedError reports a solve that did not converge to a
// feasible trajectory within its bounds and wall-clock budget. Best carries
// the solver's last iterate, possibly infeasible, so the caller can decide
// to retry with relaxed tuning, fall back to a simpler controller, or hold
// the previous actuation. The controller itself never retries.
type OptimizationFailedError struct {
	// Status describes why the solve failed, in the solver's terms.
	Status string
	// Best is the best-known solution, or nil if the solver produced none.
	Best *Solution
}

func (e *OptimizationFailedError) Error() string {
	if e.Best == nil {
		return fmt.Sprintf("trajectory optimization failed: %s", e.Status)
	}
	return fmt.Sprintf("trajectory optimization failed: %s (best-known cost %g)", e.Status, e.Best.Cost)
}

// Unwrap lets errors.Is(err, ErrOptimizationFailed) identify this failure.
func (e *OptimizationFailedError) Unwrap() error {
	return ErrOptimizationFailed
}
