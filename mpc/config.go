package mpc

import (
	"time"

	"github.com/pkg/errors"
)

// ErrInvalidConfig is returned when a Config fails validation.
var ErrInvalidConfig = errors.New("invalid horizon configuration")

// Config fixes the horizon geometry, model constants, and cost tuning for a
// controller. It is immutable once handed to NewMPC; distinct controllers
// with distinct Configs can solve in parallel.
type Config struct {
	// Steps is the number of timesteps in the horizon. There are Steps-1
	// actuations, and only the first is applied per cycle.
	Steps int
	// Interval is the seconds simulated per horizon step.
	Interval float64
	// RefVelocity is the speed the cost function drives toward. The
	// reference cross-track and heading errors are both zero.
	RefVelocity float64
	// MaxSteer bounds the steering angle symmetrically, in radians.
	MaxSteer float64
	// MaxAccel bounds acceleration symmetrically.
	MaxAccel float64
	// CoGToFrontAxle is Lf, the effective distance from the vehicle's center
	// of gravity to its front axle. It was obtained empirically: drive the
	// vehicle in a circle at constant steering and speed, then tune Lf until
	// the kinematic model traces a circle of the same radius.
	CoGToFrontAxle float64
	// SolveTimeout caps the solver's wall clock per cycle. It should be
	// comfortably under the control period.
	SolveTimeout time.Duration
	// Weights scales the individual cost terms.
	Weights Weights
}

// Weights scales each term of the tracking cost. The baseline leaves every
// weight at 1 even though the terms differ in numeric scale; raise or lower
// individual weights to retune behavior without touching the formulation.
type Weights struct {
	CTE      float64
	Heading  float64
	Velocity float64

	Steer float64
	Accel float64

	SteerRate float64
	AccelRate float64
}

// UnitWeights returns the baseline weighting: every term counted equally.
func UnitWeights() Weights {
	return Weights{
		CTE:       1,
		Heading:   1,
		Velocity:  1,
		Steer:     1,
		Accel:     1,
		SteerRate: 1,
		AccelRate: 1,
	}
}

// DefaultConfig returns the tuning used by the demo: a 25-step horizon at
// 50ms per step, a 25 degree steering limit, and Lf for the simulator
// vehicle.
func DefaultConfig() Config {
	return Config{
		Steps:          25,
		Interval:       0.05,
		RefVelocity:    40,
		MaxSteer:       0.436332,
		MaxAccel:       1.0,
		CoGToFrontAxle: 2.67,
		SolveTimeout:   500 * time.Millisecond,
		Weights:        UnitWeights(),
	}
}

// Validate checks that the configuration describes a solvable horizon.
func (cfg Config) Validate() error {
	if cfg.Steps < 2 {
		return errors.Wrapf(ErrInvalidConfig, "need at least 2 steps, got %d", cfg.Steps)
	}
	if cfg.Interval <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "interval must be positive, got %f", cfg.Interval)
	}
	if cfg.MaxSteer <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "steering bound must be positive, got %f", cfg.MaxSteer)
	}
	if cfg.MaxAccel <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "acceleration bound must be positive, got %f", cfg.MaxAccel)
	}
	if cfg.CoGToFrontAxle <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "CoG to front axle distance must be positive, got %f", cfg.CoGToFrontAxle)
	}
	if cfg.SolveTimeout <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "solve timeout must be positive, got %v", cfg.SolveTimeout)
	}
	return nil
}
