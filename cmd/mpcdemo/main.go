// Package main runs the path-tracking MPC demo: a fixed set of reference
// waypoints, a starting pose, and a configurable number of control cycles,
// with per-cycle plots written out at the end.
package main

import (
	"context"
	"time"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/utils"

	"go.viam.com/pathmpc/mpc"
	"go.viam.com/pathmpc/pathtrack"
	"go.viam.com/pathmpc/vehicleframe"
)

var logger = golog.NewDevelopmentLogger("mpcdemo")

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

// Arguments for the command.
type Arguments struct {
	Cycles int    `flag:"cycles,default=60,usage=number of control cycles to simulate"`
	OutDir string `flag:"out,default=.,usage=directory to write plots into"`
}

var demoWaypoints = []r3.Vector{
	{X: -32.16173, Y: 113.361},
	{X: -43.49173, Y: 105.941},
	{X: -61.09, Y: 92.88499},
	{X: -78.29172, Y: 78.73102},
	{X: -93.05002, Y: 65.34102},
	{X: -107.7717, Y: 50.57938},
}

var demoPose = vehicleframe.Pose{X: -40.62, Y: 108.73, Heading: 3.733651}

const demoVelocity = 10.0

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) error {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}

	cfg := mpc.DefaultConfig()
	controller, err := mpc.NewMPC(cfg, logger)
	if err != nil {
		return err
	}
	follower := pathtrack.NewFollower(controller, logger)

	recorder := newPlotRecorder()
	period := time.Duration(cfg.Interval * float64(time.Second))
	if err := follower.Run(ctx, demoWaypoints, demoPose, demoVelocity, period, argsParsed.Cycles, recorder); err != nil {
		return err
	}

	logger.Infow("run complete", "cycles", argsParsed.Cycles, "out", argsParsed.OutDir)
	return recorder.write(argsParsed.OutDir)
}
