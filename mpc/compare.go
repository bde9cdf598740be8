package mpc

import (
	"context"

	"github.com/edaniels/golog"
	"golang.org/x/sync/errgroup"

	"go.viam.com/pathmpc/polyfit"
)

// CompareConfigs solves the same tracking problem under several candidate
// configurations in parallel and returns the solutions in configuration
// order. Every solve builds its own decision vector and bounds, and the
// evaluator state is read-only, so the solves are independent. Useful for
// comparative tuning of horizon length and cost weights; if any
// configuration fails to validate or solve, the whole comparison fails.
func CompareConfigs(
	ctx context.Context,
	logger golog.Logger,
	state State,
	coeffs polyfit.Coefficients,
	cfgs []Config,
) ([]*Solution, error) {
	solutions := make([]*Solution, len(cfgs))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, cfg := range cfgs {
		i, cfg := i, cfg
		group.Go(func() error {
			controller, err := NewMPC(cfg, logger)
			if err != nil {
				return err
			}
			solution, err := controller.Solve(groupCtx, state, coeffs)
			if err != nil {
				return err
			}
			solutions[i] = solution
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return solutions, nil
}
