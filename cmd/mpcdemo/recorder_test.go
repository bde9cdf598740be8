package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/pathmpc/mpc"
	"go.viam.com/pathmpc/pathtrack"
)

func TestPlotRecorder(t *testing.T) {
	recorder := newPlotRecorder()
	for i := 0; i < 5; i++ {
		recorder.Record(&pathtrack.Cycle{
			State:     mpc.State{Velocity: 10 + float64(i), CTE: 0.5 / float64(i+1)},
			Actuation: mpc.Actuation{Steer: 0.01 * float64(i), Accel: 1},
			Cost:      100 - float64(i),
			Predicted: []r3.Vector{{X: 0, Y: 0}, {X: 1, Y: 0.1}},
			Reference: []r3.Vector{{X: 0, Y: 0.5}, {X: 2, Y: 0.4}},
		})
	}
	test.That(t, len(recorder.cte), test.ShouldEqual, 5)

	dir := t.TempDir()
	test.That(t, recorder.write(dir), test.ShouldBeNil)
	for _, name := range []string{"trajectory.png", "cte.png", "epsi.png", "cost.png", "steering.png", "velocity.png"} {
		_, err := os.Stat(filepath.Join(dir, name))
		test.That(t, err, test.ShouldBeNil)
	}
}
