package mpc

import (
	"math"

	"github.com/golang/geo/r3"
)

// State is the vehicle state a solve starts from, expressed in the vehicle
// frame of the current cycle. CTE is the cross-track error to the reference
// curve and HeadingErr the error relative to the curve's tangent.
type State struct {
	X          float64
	Y          float64
	Heading    float64
	Velocity   float64
	CTE        float64
	HeadingErr float64
}

// Actuation is one steering and acceleration command.
type Actuation struct {
	// Steer is the steering angle in radians, positive per the kinematic
	// bicycle convention.
	Steer float64
	Accel float64
}

// Solution is the result of one horizon solve.
type Solution struct {
	// NextState is the optimized state one interval ahead; a receding
	// horizon loop feeds it back in as the next cycle's input.
	NextState State
	// Actuation is the first command of the horizon, the only one applied.
	Actuation Actuation
	// Cost is the objective value at the solution.
	Cost float64
	// Predicted is the planned vehicle-frame path over the full horizon,
	// for diagnostics and display rather than control.
	Predicted []r3.Vector
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
