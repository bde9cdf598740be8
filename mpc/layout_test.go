package mpc

import (
	"testing"

	"go.viam.com/test"
)

func TestOffsetSizes(t *testing.T) {
	for _, steps := range []int{2, 3, 10, 25, 100} {
		off := newOffsets(steps)
		test.That(t, off.numVars, test.ShouldEqual, 6*steps+2*(steps-1))
		test.That(t, off.numConstraints, test.ShouldEqual, 6*steps)

		// Blocks tile the vector with no gaps.
		test.That(t, off.y-off.x, test.ShouldEqual, steps)
		test.That(t, off.psi-off.y, test.ShouldEqual, steps)
		test.That(t, off.v-off.psi, test.ShouldEqual, steps)
		test.That(t, off.cte-off.v, test.ShouldEqual, steps)
		test.That(t, off.epsi-off.cte, test.ShouldEqual, steps)
		test.That(t, off.steer-off.epsi, test.ShouldEqual, steps)
		test.That(t, off.accel-off.steer, test.ShouldEqual, steps-1)
		test.That(t, off.numVars-off.accel, test.ShouldEqual, steps-1)
	}
}

func TestSeed(t *testing.T) {
	state := State{X: 1, Y: 2, Heading: 3, Velocity: 4, CTE: 5, HeadingErr: 6}
	off := newOffsets(4)
	vars := off.seed(state)
	test.That(t, len(vars), test.ShouldEqual, off.numVars)
	test.That(t, vars[off.x], test.ShouldEqual, state.X)
	test.That(t, vars[off.y], test.ShouldEqual, state.Y)
	test.That(t, vars[off.psi], test.ShouldEqual, state.Heading)
	test.That(t, vars[off.v], test.ShouldEqual, state.Velocity)
	test.That(t, vars[off.cte], test.ShouldEqual, state.CTE)
	test.That(t, vars[off.epsi], test.ShouldEqual, state.HeadingErr)

	// Everything else cold-starts at zero.
	nonZero := 0
	for _, v := range vars {
		if v != 0 {
			nonZero++
		}
	}
	test.That(t, nonZero, test.ShouldBeLessThanOrEqualTo, 6)
}
