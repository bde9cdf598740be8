// Package pathtrack runs the receding-horizon control loop around the mpc
// controller: each cycle it derives the tracking state from the reference
// waypoints and the latest solve output, optimizes one horizon, applies only
// the first actuation, and reports diagnostics to a telemetry sink.
package pathtrack

import (
	"context"
	"math"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/pathmpc/mpc"
	"go.viam.com/pathmpc/polyfit"
	"go.viam.com/pathmpc/vehicleframe"
)

// DefaultFitOrder is the cubic fit used for the reference curve.
const DefaultFitOrder = 3

// Cycle is one control period's worth of diagnostics: the state solved
// from, the actuation applied, and the curves a display might want.
type Cycle struct {
	State     mpc.State
	Actuation mpc.Actuation
	Cost      float64
	// Predicted is the optimizer's planned path for this cycle.
	Predicted []r3.Vector
	// Reference is the waypoint path in the vehicle frame.
	Reference []r3.Vector
}

// TelemetrySink receives every cycle's diagnostics. The loop only produces
// these values; rendering is the sink's business. Record is called from the
// loop goroutine and should not block.
type TelemetrySink interface {
	Record(cycle *Cycle)
}

// Follower repeatedly re-solves the horizon against a waypoint path.
type Follower struct {
	controller *mpc.MPC
	fitOrder   int
	logger     golog.Logger
	clock      clock.Clock
}

// Option configures a Follower.
type Option func(*Follower)

// WithFitOrder overrides the reference polynomial order.
func WithFitOrder(order int) Option {
	return func(f *Follower) {
		f.fitOrder = order
	}
}

// WithClock substitutes the clock pacing Run, for tests.
func WithClock(c clock.Clock) Option {
	return func(f *Follower) {
		f.clock = c
	}
}

// NewFollower wraps a controller in a receding-horizon loop.
func NewFollower(controller *mpc.MPC, logger golog.Logger, opts ...Option) *Follower {
	f := &Follower{
		controller: controller,
		fitOrder:   DefaultFitOrder,
		logger:     logger,
		clock:      clock.New(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Step performs a single cycle from raw telemetry: transform the waypoints
// into the vehicle frame of pose, fit the reference curve, derive the
// tracking state, and solve one horizon.
func (f *Follower) Step(
	ctx context.Context,
	waypoints []r3.Vector,
	pose vehicleframe.Pose,
	velocity float64,
) (*Cycle, error) {
	reference := vehicleframe.ToVehicleFrame(waypoints, pose)
	coeffs, err := polyfit.Fit(reference, f.fitOrder)
	if err != nil {
		return nil, err
	}
	state := initialState(coeffs, velocity)
	solution, err := f.controller.Solve(ctx, state, coeffs)
	if err != nil {
		return nil, err
	}
	return &Cycle{
		State:     solution.NextState,
		Actuation: solution.Actuation,
		Cost:      solution.Cost,
		Predicted: solution.Predicted,
		Reference: reference,
	}, nil
}

// Run drives cycles of the loop at the given period, starting from pose and
// velocity against a fixed waypoint path. Each cycle applies only the first
// actuation and feeds the optimizer's next state into the following cycle.
// When a cycle's optimization fails, the loop logs it, holds the previous
// state, and tries again next period; any other error ends the run.
func (f *Follower) Run(
	ctx context.Context,
	waypoints []r3.Vector,
	pose vehicleframe.Pose,
	velocity float64,
	period time.Duration,
	cycles int,
	sink TelemetrySink,
) error {
	reference := vehicleframe.ToVehicleFrame(waypoints, pose)
	coeffs, err := polyfit.Fit(reference, f.fitOrder)
	if err != nil {
		return err
	}
	state := initialState(coeffs, velocity)

	ticker := f.clock.Ticker(period)
	defer ticker.Stop()
	for i := 0; i < cycles; i++ {
		if !goutils.SelectContextOrWaitChan(ctx, ticker.C) {
			return ctx.Err()
		}

		solution, err := f.controller.Solve(ctx, state, coeffs)
		if err != nil {
			var failed *mpc.OptimizationFailedError
			if errors.As(err, &failed) {
				f.logger.Errorw("cycle failed to converge, holding state", "cycle", i, "error", err)
				continue
			}
			return err
		}

		f.logger.Debugw("cycle",
			"cycle", i,
			"cost", solution.Cost,
			"cte", solution.NextState.CTE,
			"headingErr", solution.NextState.HeadingErr,
			"velocity", solution.NextState.Velocity,
			"steer", solution.Actuation.Steer,
			"accel", solution.Actuation.Accel,
		)
		if sink != nil {
			sink.Record(&Cycle{
				State:     solution.NextState,
				Actuation: solution.Actuation,
				Cost:      solution.Cost,
				Predicted: solution.Predicted,
				Reference: reference,
			})
		}
		state = solution.NextState
	}
	return nil
}

// initialState derives the tracking state at the vehicle-frame origin: the
// vehicle sits at (0,0) pointing down +X, so the cross-track error is f(0)
// and the heading error is -atan(f'(0)).
func initialState(coeffs polyfit.Coefficients, velocity float64) mpc.State {
	return mpc.State{
		Velocity:   velocity,
		CTE:        coeffs.Eval(0),
		HeadingErr: -math.Atan(coeffs.Derivative(0)),
	}
}
