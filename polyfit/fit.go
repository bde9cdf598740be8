// Package polyfit fits polynomials to planar points by least squares and
// evaluates them and their first derivatives.
package polyfit

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrInvalidInput is returned when a fit is requested with an order that
	// the given points cannot determine.
	ErrInvalidInput = errors.New("polynomial order must be at least 1 and at most len(points)-1")
	// ErrFitFailure is returned when the least-squares system is singular.
	ErrFitFailure = errors.New("least-squares fit failed")
)

// Coefficients are polynomial coefficients ordered lowest degree first, so
// Coefficients{c0, c1, c2} represents c0 + c1*x + c2*x^2.
type Coefficients []float64

// Fit computes the least-squares polynomial of the given order through the
// points (X used as abscissa, Y as ordinate, Z ignored). The Vandermonde
// system is solved through a Householder QR factorization. An order outside
// [1, len(points)-1] is rejected rather than silently truncated.
func Fit(points []r3.Vector, order int) (Coefficients, error) {
	if order < 1 || order > len(points)-1 {
		return nil, errors.Wrapf(ErrInvalidInput, "order %d with %d points", order, len(points))
	}

	vander := mat.NewDense(len(points), order+1, nil)
	rhs := mat.NewVecDense(len(points), nil)
	for i, pt := range points {
		pow := 1.0
		for j := 0; j <= order; j++ {
			vander.Set(i, j, pow)
			pow *= pt.X
		}
		rhs.SetVec(i, pt.Y)
	}

	var qr mat.QR
	qr.Factorize(vander)
	var solved mat.VecDense
	if err := qr.SolveVecTo(&solved, false, rhs); err != nil {
		// A Condition error is a warning about accuracy, not a failed solve.
		if _, conditioned := err.(mat.Condition); !conditioned {
			return nil, errors.Wrap(ErrFitFailure, err.Error())
		}
	}

	coeffs := make(Coefficients, order+1)
	for i := range coeffs {
		coeffs[i] = solved.AtVec(i)
	}
	return coeffs, nil
}

// Eval evaluates the polynomial at x by Horner's method.
func (c Coefficients) Eval(x float64) float64 {
	y := 0.0
	for i := len(c) - 1; i >= 0; i-- {
		y = y*x + c[i]
	}
	return y
}

// Derivative evaluates the polynomial's first derivative at x. The
// derivative is formed coefficient-wise and evaluated by Horner's method.
func (c Coefficients) Derivative(x float64) float64 {
	slope := 0.0
	for i := len(c) - 1; i >= 1; i-- {
		slope = slope*x + float64(i)*c[i]
	}
	return slope
}
