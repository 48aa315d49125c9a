package dmath

import(
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// FitSurface fits a 2D polynomial of the given total order to every
// pixel of `g`, by least squares over the accumulated normal
// equations. It returns the surface sampled on the same grid plus the
// coefficients, ordered by increasing total degree:
//
//	 1, x, y, x², xy, y², ...
//
// Coordinates are rescaled to [-1,1] before fitting so the normal
// equations stay well conditioned on big detectors.
//
// Fails when the grid has fewer pixels than the fit has terms, or when
// the system is singular - the caller is expected to treat that as a
// configuration error, not to retry with a lower order.
func FitSurface(g *Grid, order int) (*Grid, []float64, error) {
	if order < 0 {
		return nil, nil, fmt.Errorf("surface fit order %d is negative", order)
	}
	nterms := (order + 1) * (order + 2) / 2
	w, h := g.Dx(), g.Dy()
	if w*h < nterms {
		return nil, nil, fmt.Errorf("surface fit of order %d needs %d points, grid has only %d", order, nterms, w*h)
	}

	xscale := func(x int) float64 {
		if w < 2 { return 0 }
		return 2.0*float64(x)/float64(w-1) - 1.0
	}
	yscale := func(y int) float64 {
		if h < 2 { return 0 }
		return 2.0*float64(y)/float64(h-1) - 1.0
	}

	terms := make([]float64, nterms)
	fillTerms := func(xn, yn float64) {
		i := 0
		for deg := 0; deg <= order; deg++ {
			for py := 0; py <= deg; py++ {
				terms[i] = powi(xn, deg-py) * powi(yn, py)
				i++
			}
		}
	}

	// Accumulate AᵀA and Aᵀb rather than building the full design
	// matrix; a 2k x 2k detector would need millions of rows.
	ata := make([]float64, nterms*nterms)
	atb := make([]float64, nterms)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			fillTerms(xscale(x), yscale(y))
			v := g.Get(x, y)
			for i := 0; i < nterms; i++ {
				atb[i] += terms[i] * v
				for j := 0; j < nterms; j++ {
					ata[i*nterms+j] += terms[i] * terms[j]
				}
			}
		}
	}

	var coefs mat.VecDense
	a := mat.NewDense(nterms, nterms, ata)
	b := mat.NewVecDense(nterms, atb)
	if err := coefs.SolveVec(a, b); err != nil {
		return nil, nil, fmt.Errorf("surface fit of order %d is singular: %v", order, err)
	}

	fitted := NewGrid(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			fillTerms(xscale(x), yscale(y))
			v := 0.0
			for i := 0; i < nterms; i++ {
				v += coefs.AtVec(i) * terms[i]
			}
			fitted.Set(x, y, v)
		}
	}

	out := make([]float64, nterms)
	for i := range out {
		out[i] = coefs.AtVec(i)
	}
	return fitted, out, nil
}

func powi(v float64, n int) float64 {
	p := 1.0
	for i := 0; i < n; i++ {
		p *= v
	}
	return p
}
