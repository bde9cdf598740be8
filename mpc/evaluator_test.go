package mpc

import (
	"math"
	"testing"

	"go.viam.com/test"

	"go.viam.com/pathmpc/polyfit"
)

func testEvaluator(cfg Config, coeffs polyfit.Coefficients) *evaluator {
	return &evaluator{cfg: cfg, coeffs: coeffs, off: newOffsets(cfg.Steps)}
}

// rollout builds a decision vector that follows the dynamics exactly from
// state under the given actuation sequences, using the same model update the
// constraints encode.
func rollout(cfg Config, coeffs polyfit.Coefficients, state State, steers, accels []float64) []float64 {
	off := newOffsets(cfg.Steps)
	vars := off.seed(state)
	copy(vars[off.steer:off.accel], steers)
	copy(vars[off.accel:], accels)

	dt := cfg.Interval
	lf := cfg.CoGToFrontAxle
	for i := 0; i < cfg.Steps-1; i++ {
		x0 := vars[off.x+i]
		y0 := vars[off.y+i]
		psi0 := vars[off.psi+i]
		v0 := vars[off.v+i]
		epsi0 := vars[off.epsi+i]

		f0 := coeffs.Eval(x0)
		psiDes0 := math.Atan(coeffs.Derivative(x0))

		vars[off.x+i+1] = x0 + v0*math.Cos(psi0)*dt
		vars[off.y+i+1] = y0 + v0*math.Sin(psi0)*dt
		vars[off.psi+i+1] = psi0 + v0/lf*steers[i]*dt
		vars[off.v+i+1] = v0 + accels[i]*dt
		vars[off.cte+i+1] = (f0 - y0) + v0*math.Sin(epsi0)*dt
		vars[off.epsi+i+1] = (psi0 - psiDes0) + v0*steers[i]/lf*dt
	}
	return vars
}

func TestConstraintsVanishOnModelRollout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Steps = 6
	coeffs := polyfit.Coefficients{0.8, -0.2, 0.05, -0.01}
	state := State{Velocity: 10, CTE: 0.8, HeadingErr: 0.197}

	steers := []float64{0.1, -0.05, 0.02, 0, 0.01}
	accels := []float64{1, 0.5, 0, -0.25, 0.1}
	vars := rollout(cfg, coeffs, state, steers, accels)

	eval := testEvaluator(cfg, coeffs)
	residual := make([]float64, eval.off.numConstraints)
	eval.constraints(residual, vars)

	// First entry of each block passes the pinned value through.
	test.That(t, residual[eval.off.x], test.ShouldAlmostEqual, state.X, 1e-12)
	test.That(t, residual[eval.off.y], test.ShouldAlmostEqual, state.Y, 1e-12)
	test.That(t, residual[eval.off.psi], test.ShouldAlmostEqual, state.Heading, 1e-12)
	test.That(t, residual[eval.off.v], test.ShouldAlmostEqual, state.Velocity, 1e-12)
	test.That(t, residual[eval.off.cte], test.ShouldAlmostEqual, state.CTE, 1e-12)
	test.That(t, residual[eval.off.epsi], test.ShouldAlmostEqual, state.HeadingErr, 1e-12)

	// Every defect of a trajectory that obeys the model is zero.
	for _, block := range []int{eval.off.x, eval.off.y, eval.off.psi, eval.off.v, eval.off.cte, eval.off.epsi} {
		for i := 1; i < cfg.Steps; i++ {
			test.That(t, residual[block+i], test.ShouldAlmostEqual, 0, 1e-12)
		}
	}
}

func TestConstraintsFlagModelViolation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Steps = 4
	coeffs := polyfit.Coefficients{0, 0, 0, 0}
	state := State{Velocity: 10}

	vars := rollout(cfg, coeffs, state, []float64{0, 0, 0}, []float64{0, 0, 0})
	eval := testEvaluator(cfg, coeffs)

	// Teleport the second x entry; only that defect should move.
	off := eval.off
	vars[off.x+1] += 1.5
	residual := make([]float64, off.numConstraints)
	eval.constraints(residual, vars)
	test.That(t, residual[off.x+1], test.ShouldAlmostEqual, 1.5, 1e-12)
	// The following step propagates the shift into its own defect.
	test.That(t, residual[off.x+2], test.ShouldAlmostEqual, -1.5, 1e-12)
	test.That(t, residual[off.y+1], test.ShouldAlmostEqual, 0, 1e-12)
}

func TestCostNonNegativeAndOrdered(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Steps = 5
	coeffs := polyfit.Coefficients{0, 0}
	eval := testEvaluator(cfg, coeffs)
	off := eval.off

	// Perfect tracking: on the reference, at reference speed, no actuation.
	perfect := make([]float64, off.numVars)
	for i := 0; i < cfg.Steps; i++ {
		perfect[off.v+i] = cfg.RefVelocity
	}
	test.That(t, eval.cost(perfect), test.ShouldAlmostEqual, 0, 1e-12)

	// Tracking error alone raises the cost.
	offTrack := append([]float64(nil), perfect...)
	for i := 0; i < cfg.Steps; i++ {
		offTrack[off.cte+i] = 2
	}
	test.That(t, eval.cost(offTrack), test.ShouldBeGreaterThan, eval.cost(perfect))

	// Actuator use raises it further, and jerky actuation beats smooth.
	smooth := append([]float64(nil), offTrack...)
	for i := 0; i < cfg.Steps-1; i++ {
		smooth[off.steer+i] = 0.1
	}
	jerky := append([]float64(nil), offTrack...)
	for i := 0; i < cfg.Steps-1; i++ {
		if i%2 == 0 {
			jerky[off.steer+i] = 0.1
		} else {
			jerky[off.steer+i] = -0.1
		}
	}
	test.That(t, eval.cost(smooth), test.ShouldBeGreaterThan, eval.cost(offTrack))
	test.That(t, eval.cost(jerky), test.ShouldBeGreaterThan, eval.cost(smooth))

	for _, vars := range [][]float64{perfect, offTrack, smooth, jerky} {
		test.That(t, eval.cost(vars), test.ShouldBeGreaterThanOrEqualTo, 0)
	}
}

func TestCostWeights(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Steps = 3
	coeffs := polyfit.Coefficients{0, 0}
	off := newOffsets(cfg.Steps)

	vars := make([]float64, off.numVars)
	for i := 0; i < cfg.Steps; i++ {
		vars[off.cte+i] = 1
		vars[off.v+i] = cfg.RefVelocity
	}

	baseline := testEvaluator(cfg, coeffs).cost(vars)

	weighted := cfg
	weighted.Weights.CTE = 10
	test.That(t, testEvaluator(weighted, coeffs).cost(vars), test.ShouldAlmostEqual, 10*baseline, 1e-9)
}
