package main

import (
	"path/filepath"

	"github.com/golang/geo/r3"
	"go.uber.org/multierr"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"go.viam.com/pathmpc/pathtrack"
)

// plotRecorder is a pathtrack.TelemetrySink that accumulates per-cycle
// series and renders them to PNG files at the end of a run.
type plotRecorder struct {
	reference []r3.Vector
	predicted []r3.Vector

	cte      plotter.XYs
	epsi     plotter.XYs
	cost     plotter.XYs
	steering plotter.XYs
	velocity plotter.XYs
}

func newPlotRecorder() *plotRecorder {
	return &plotRecorder{}
}

// Record implements pathtrack.TelemetrySink.
func (r *plotRecorder) Record(cycle *pathtrack.Cycle) {
	r.reference = cycle.Reference
	r.predicted = cycle.Predicted

	i := float64(len(r.cte))
	r.cte = append(r.cte, plotter.XY{X: i, Y: cycle.State.CTE})
	r.epsi = append(r.epsi, plotter.XY{X: i, Y: cycle.State.HeadingErr})
	r.cost = append(r.cost, plotter.XY{X: i, Y: cycle.Cost})
	r.steering = append(r.steering, plotter.XY{X: i, Y: cycle.Actuation.Steer})
	r.velocity = append(r.velocity, plotter.XY{X: i, Y: cycle.State.Velocity})
}

// write renders the trajectory plot plus one series plot per scalar.
func (r *plotRecorder) write(dir string) error {
	return multierr.Combine(
		r.writeTrajectory(filepath.Join(dir, "trajectory.png")),
		writeSeries(filepath.Join(dir, "cte.png"), "CTE", r.cte),
		writeSeries(filepath.Join(dir, "epsi.png"), "Heading Error", r.epsi),
		writeSeries(filepath.Join(dir, "cost.png"), "Cost", r.cost),
		writeSeries(filepath.Join(dir, "steering.png"), "Steering (rad)", r.steering),
		writeSeries(filepath.Join(dir, "velocity.png"), "Velocity", r.velocity),
	)
}

func (r *plotRecorder) writeTrajectory(path string) error {
	p := plot.New()
	p.Title.Text = "Reference vs Predicted"
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"
	if err := plotutil.AddLinePoints(p,
		"reference", vectorsToXYs(r.reference),
		"predicted", vectorsToXYs(r.predicted),
	); err != nil {
		return err
	}
	return p.Save(6*vg.Inch, 6*vg.Inch, path)
}

func writeSeries(path, title string, series plotter.XYs) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "cycle"
	if err := plotutil.AddLines(p, title, series); err != nil {
		return err
	}
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}

func vectorsToXYs(points []r3.Vector) plotter.XYs {
	xys := make(plotter.XYs, 0, len(points))
	for _, pt := range points {
		xys = append(xys, plotter.XY{X: pt.X, Y: pt.Y})
	}
	return xys
}
