package mpc

// The solver sees the whole horizon as one flat vector: a block of each
// state variable over all steps, then the steering and acceleration
// commands. offsets locates each block for a given horizon length so that
// no package-level index state is needed; two horizons of different length
// can coexist.
type offsets struct {
	x     int
	y     int
	psi   int
	v     int
	cte   int
	epsi  int
	steer int
	accel int

	numVars        int
	numConstraints int
}

func newOffsets(steps int) offsets {
	return offsets{
		x:     0,
		y:     steps,
		psi:   2 * steps,
		v:     3 * steps,
		cte:   4 * steps,
		epsi:  5 * steps,
		steer: 6 * steps,
		accel: 6*steps + steps - 1,

		numVars:        6*steps + 2*(steps-1),
		numConstraints: 6 * steps,
	}
}

// seed returns the cold-start decision vector: all zero except the entries
// pinned to the initial state.
func (off offsets) seed(state State) []float64 {
	vars := make([]float64, off.numVars)
	vars[off.x] = state.X
	vars[off.y] = state.Y
	vars[off.psi] = state.Heading
	vars[off.v] = state.Velocity
	vars[off.cte] = state.CTE
	vars[off.epsi] = state.HeadingErr
	return vars
}
