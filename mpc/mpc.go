// Package mpc computes short-horizon steering and acceleration commands that
// keep a vehicle on a reference path, by solving a receding-horizon
// nonlinear program over a kinematic bicycle model each control cycle.
//
// Each solve is independent: the decision vector, bounds, and constraint
// targets are built fresh from the input state (cold start, no warm
// seeding), handed to nlopt's SLSQP together with the cost/defect evaluator,
// and the first actuation of the optimized horizon is extracted. Nothing
// persists between calls, so a controller is safe for sequential reuse and
// separate controllers may solve concurrently.
package mpc

import (
	"context"
	"math"
	"sync"

	"github.com/edaniels/golog"
	"github.com/go-nlopt/nlopt"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"go.viam.com/pathmpc/polyfit"
)

const (
	// Finite-difference step for gradients; flipped inward at active bounds.
	fdJump = 1e-8
	// Relative convergence tolerances handed to nlopt, matched to the
	// precision of the finite-difference gradients.
	solveEpsilon = 1e-8
	// Per-entry tolerance on the equality constraints during the solve.
	constraintTol = 1e-8
	// Residual ceiling for accepting a returned trajectory as feasible.
	feasibilityTol = 1e-4
	// Objective evaluation cap, mirroring the per-cycle wall-clock budget.
	maxSolveEvals = 4001
)

// MPC solves one horizon per call. It holds only immutable configuration.
type MPC struct {
	cfg    Config
	logger golog.Logger
}

// NewMPC validates the configuration and returns a controller.
func NewMPC(cfg Config, logger golog.Logger) (*MPC, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &MPC{cfg: cfg, logger: logger}, nil
}

// Config returns the controller's horizon configuration.
func (m *MPC) Config() Config {
	return m.cfg
}

type solveResult struct {
	solution []float64
	cost     float64
	err      error
}

// Solve optimizes one horizon from the given state against the fitted
// reference curve and returns the next state, the first actuation, and the
// predicted trajectory. It blocks for at most the configured SolveTimeout
// unless ctx ends first, in which case the solver is force-stopped. A
// non-convergent or infeasible result comes back as an
// *OptimizationFailedError carrying the best-known solution.
func (m *MPC) Solve(ctx context.Context, state State, coeffs polyfit.Coefficients) (*Solution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	off := newOffsets(m.cfg.Steps)
	eval := &evaluator{cfg: m.cfg, coeffs: coeffs, off: off}

	seed := off.seed(state)
	lower, upper := m.varBounds(off)

	// Equality targets: zero for every defect, the initial state for the
	// first entry of each block.
	target := make([]float64, off.numConstraints)
	target[off.x] = state.X
	target[off.y] = state.Y
	target[off.psi] = state.Heading
	target[off.v] = state.Velocity
	target[off.cte] = state.CTE
	target[off.epsi] = state.HeadingErr

	opt, err := nlopt.NewNLopt(nlopt.LD_SLSQP, uint(off.numVars))
	if err != nil {
		return nil, errors.Wrap(err, "nlopt creation error")
	}
	defer opt.Destroy()

	objective := func(x, gradient []float64) float64 {
		cost := eval.cost(x)
		if len(gradient) > 0 {
			costGradient(gradient, x, upper, cost, eval.cost)
		}
		return cost
	}

	residuals := func(result, x, gradient []float64) {
		eval.constraints(result, x)
		if len(gradient) > 0 {
			constraintJacobian(gradient, x, upper, result, eval.constraints)
		}
		for i := range result {
			result[i] -= target[i]
		}
	}

	tol := make([]float64, off.numConstraints)
	for i := range tol {
		tol[i] = constraintTol
	}

	err = multierr.Combine(
		opt.SetLowerBounds(lower),
		opt.SetUpperBounds(upper),
		opt.SetMinObjective(objective),
		opt.AddEqualityMConstraint(residuals, tol),
		opt.SetFtolRel(solveEpsilon),
		opt.SetXtolRel(solveEpsilon),
		opt.SetMaxEval(maxSolveEvals),
		opt.SetMaxTime(m.cfg.SolveTimeout.Seconds()),
	)
	if err != nil {
		return nil, errors.Wrap(err, "nlopt setup error")
	}

	var activeSolvers sync.WaitGroup
	solveChan := make(chan *solveResult, 1)
	activeSolvers.Add(1)
	goutils.PanicCapturingGo(func() {
		defer activeSolvers.Done()
		solution, cost, optErr := opt.Optimize(seed)
		solveChan <- &solveResult{solution, cost, optErr}
	})

	var res *solveResult
	select {
	case <-ctx.Done():
		err = opt.ForceStop()
		activeSolvers.Wait()
		return nil, multierr.Combine(err, ctx.Err())
	case res = <-solveChan:
	}

	best := m.extract(off, res.solution, res.cost)
	if best == nil {
		status := "solver returned no solution"
		if res.err != nil {
			status = res.err.Error()
		}
		return nil, &OptimizationFailedError{Status: status}
	}
	if status := m.validate(eval, target, res.solution); status != "" {
		if res.err != nil {
			status = status + ": " + res.err.Error()
		}
		m.logger.Debugw("solver returned unusable trajectory", "status", status)
		return nil, &OptimizationFailedError{Status: status, Best: best}
	}
	if res.err != nil {
		// Roundoff near the FD gradient precision can surface as a solver
		// error even when the returned trajectory is feasible; keep it.
		m.logger.Debugw("solver reported error with feasible result", "error", res.err)
	}

	m.logger.Debugw("solved horizon",
		"cost", best.Cost,
		"steer", best.Actuation.Steer,
		"accel", best.Actuation.Accel,
	)
	return best, nil
}

// varBounds builds per-variable limits: state entries are unbounded, the
// steering block is clamped to +-MaxSteer, the acceleration block to
// +-MaxAccel.
func (m *MPC) varBounds(off offsets) (lower, upper []float64) {
	lower = make([]float64, off.numVars)
	upper = make([]float64, off.numVars)
	for i := 0; i < off.steer; i++ {
		lower[i] = math.Inf(-1)
		upper[i] = math.Inf(1)
	}
	for i := off.steer; i < off.accel; i++ {
		lower[i] = -m.cfg.MaxSteer
		upper[i] = m.cfg.MaxSteer
	}
	for i := off.accel; i < off.numVars; i++ {
		lower[i] = -m.cfg.MaxAccel
		upper[i] = m.cfg.MaxAccel
	}
	return lower, upper
}

// validate checks a returned decision vector before it is trusted: every
// entry finite and every equality residual within tolerance. It returns an
// empty string when the trajectory is usable.
func (m *MPC) validate(eval *evaluator, target, solution []float64) string {
	for _, v := range solution {
		if !finite(v) {
			return "non-finite value in trajectory"
		}
	}
	residual := make([]float64, len(target))
	eval.constraints(residual, solution)
	worst := 0.0
	for i := range residual {
		if dev := math.Abs(residual[i] - target[i]); dev > worst {
			worst = dev
		}
	}
	if worst > feasibilityTol {
		return "constraint residuals exceed tolerance"
	}
	return ""
}

// extract reads the solver's answer back out of the flat decision vector:
// the state one step ahead, the first actuation, and the x/y blocks as the
// predicted path.
func (m *MPC) extract(off offsets, vars []float64, cost float64) *Solution {
	if len(vars) != off.numVars {
		return nil
	}
	predicted := make([]r3.Vector, m.cfg.Steps)
	for i := range predicted {
		predicted[i] = r3.Vector{X: vars[off.x+i], Y: vars[off.y+i]}
	}
	return &Solution{
		NextState: State{
			X:          vars[off.x+1],
			Y:          vars[off.y+1],
			Heading:    vars[off.psi+1],
			Velocity:   vars[off.v+1],
			CTE:        vars[off.cte+1],
			HeadingErr: vars[off.epsi+1],
		},
		Actuation: Actuation{Steer: vars[off.steer], Accel: vars[off.accel]},
		Cost:      cost,
		Predicted: predicted,
	}
}

// costGradient estimates the objective gradient by forward differences
// around x. base is fn(x). The probe step flips inward whenever a variable
// sits against its upper bound so the perturbed point stays feasible.
func costGradient(gradient, x, upper []float64, base float64, fn func([]float64) float64) {
	probe := append([]float64(nil), x...)
	for i := range probe {
		jump := fdJump
		if probe[i]+jump >= upper[i] {
			jump = -jump
		}
		probe[i] += jump
		gradient[i] = (fn(probe) - base) / jump
		probe[i] = x[i]
	}
}

// constraintJacobian estimates the m x n constraint Jacobian by forward
// differences, stored row-major as nlopt expects (entry i*n+j is
// d residual_i / d x_j). base holds the unperturbed residuals; constant
// offsets cancel in the differences, so raw constraint values suffice.
func constraintJacobian(gradient, x, upper, base []float64, fn func(dst, vars []float64)) {
	n := len(x)
	probe := append([]float64(nil), x...)
	perturbed := make([]float64, len(base))
	for j := range probe {
		jump := fdJump
		if probe[j]+jump >= upper[j] {
			jump = -jump
		}
		probe[j] += jump
		fn(perturbed, probe)
		for i := range perturbed {
			gradient[i*n+j] = (perturbed[i] - base[i]) / jump
		}
		probe[j] = x[j]
	}
}
