package mpc

import (
	"math"

	"go.viam.com/pathmpc/polyfit"
)

// evaluator scores candidate decision vectors against the fitted reference
// curve and measures how far they stray from the kinematic bicycle model.
//
// Both methods are pure functions built from elementary differentiable
// operations, with no branching on decision values, so any differentiation
// strategy may be layered on top (the controller uses forward differences).
// An evaluator holds no mutable state and is safe to share across parallel
// solves.
type evaluator struct {
	cfg    Config
	coeffs polyfit.Coefficients
	off    offsets
}

// cost is the tracking objective: squared reference-state error over every
// step, plus actuator magnitude, plus actuator change between consecutive
// steps.
func (e *evaluator) cost(vars []float64) float64 {
	w := e.cfg.Weights
	cost := 0.0
	for i := 0; i < e.cfg.Steps; i++ {
		cte := vars[e.off.cte+i]
		epsi := vars[e.off.epsi+i]
		dv := vars[e.off.v+i] - e.cfg.RefVelocity
		cost += w.CTE*cte*cte + w.Heading*epsi*epsi + w.Velocity*dv*dv
	}
	for i := 0; i < e.cfg.Steps-1; i++ {
		steer := vars[e.off.steer+i]
		accel := vars[e.off.accel+i]
		cost += w.Steer*steer*steer + w.Accel*accel*accel
	}
	for i := 0; i < e.cfg.Steps-2; i++ {
		dSteer := vars[e.off.steer+i+1] - vars[e.off.steer+i]
		dAccel := vars[e.off.accel+i+1] - vars[e.off.accel+i]
		cost += w.SteerRate*dSteer*dSteer + w.AccelRate*dAccel*dAccel
	}
	return cost
}

// constraints fills dst (length numConstraints) with the raw constraint
// values: the first entry of each state block passes through unchanged (the
// controller pins it to the initial state), and each remaining entry is the
// defect of one discrete dynamics step, which the solver holds at zero.
//
// The transition from step i to i+1 sees only the actuation at step i,
// held constant over the interval. The reference height f(x) and reference
// heading atan(f'(x)) come from the fitted polynomial.
func (e *evaluator) constraints(dst, vars []float64) {
	off := e.off
	dst[off.x] = vars[off.x]
	dst[off.y] = vars[off.y]
	dst[off.psi] = vars[off.psi]
	dst[off.v] = vars[off.v]
	dst[off.cte] = vars[off.cte]
	dst[off.epsi] = vars[off.epsi]

	dt := e.cfg.Interval
	lf := e.cfg.CoGToFrontAxle
	for i := 0; i < e.cfg.Steps-1; i++ {
		x0 := vars[off.x+i]
		y0 := vars[off.y+i]
		psi0 := vars[off.psi+i]
		v0 := vars[off.v+i]
		epsi0 := vars[off.epsi+i]
		steer0 := vars[off.steer+i]
		accel0 := vars[off.accel+i]

		f0 := e.coeffs.Eval(x0)
		psiDes0 := math.Atan(e.coeffs.Derivative(x0))

		dst[off.x+i+1] = vars[off.x+i+1] - (x0 + v0*math.Cos(psi0)*dt)
		dst[off.y+i+1] = vars[off.y+i+1] - (y0 + v0*math.Sin(psi0)*dt)
		dst[off.psi+i+1] = vars[off.psi+i+1] - (psi0 + v0/lf*steer0*dt)
		dst[off.v+i+1] = vars[off.v+i+1] - (v0 + accel0*dt)
		dst[off.cte+i+1] = vars[off.cte+i+1] - ((f0 - y0) + v0*math.Sin(epsi0)*dt)
		dst[off.epsi+i+1] = vars[off.epsi+i+1] - ((psi0 - psiDes0) + v0*steer0/lf*dt)
	}
}
