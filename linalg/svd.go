// Package linalg provides the dense complex linear algebra used by the MPS engine.
//
// Gonum only factorizes real matrices, so the complex singular value decomposition is
// computed here by one-sided Jacobi rotations on top of the gonum complex BLAS kernels.
//
// References:
//   - Jacobi's method is more accurate than QR, James Demmel and Kresimir Veselic
package linalg

import (
	"cmp"
	"fmt"
	"math"
	"math/cmplx"
	"slices"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/blas/cblas128"
)

const (
	// maxSweeps bounds the number of Jacobi sweeps.
	maxSweeps = 64
	// nullTol is the size relative to the Frobenius norm below which a singular value has no reliable singular vector.
	nullTol = 1e-14
	eps     = 0x1p-52
)

// ErrNumerical reports a factorization that produced or received non-finite numbers, or failed to converge.
var ErrNumerical = errors.New("numerical failure")

// SVD is the thin singular value decomposition A = U diag(S) VH.
type SVD struct {
	// U is m x k with orthonormal columns.
	U cblas128.General
	// S holds the k = min(m, n) singular values in non-increasing order.
	S []float64
	// VH is k x n with orthonormal rows.
	VH cblas128.General
}

// Factorize computes the thin SVD of a.
// Equal singular values keep the order of the columns they came from, and every column of U is
// gauge fixed so that its largest entry is real and positive, which makes the result deterministic.
func Factorize(a cblas128.General) (*SVD, error) {
	m, n := a.Rows, a.Cols
	if m == 0 || n == 0 {
		return nil, errors.Errorf("%d %d", m, n)
	}
	if err := checkFinite(a); err != nil {
		return nil, errors.Wrap(err, "")
	}

	// Orthogonalize the columns of b, where b is a when a is tall, and a.H when a is wide.
	// x[j] holds column j of b, y[j] holds column j of the accumulated rotation v.
	transposed := n > m
	p, q := m, n
	if transposed {
		p, q = n, m
	}
	x := make([][]complex128, q)
	for j := range x {
		x[j] = make([]complex128, p)
		for i := range p {
			switch {
			case transposed:
				x[j][i] = cmplx.Conj(a.Data[j*a.Stride+i])
			default:
				x[j][i] = a.Data[i*a.Stride+j]
			}
		}
	}
	y := make([][]complex128, q)
	for j := range y {
		y[j] = make([]complex128, q)
		y[j][j] = 1
	}
	var normA float64
	for _, xj := range x {
		normA = math.Hypot(normA, cblas128.Nrm2(vec(xj)))
	}
	// Columns at or below floor are numerically null, and are neither rotated nor normalized.
	tol := max(nullTol, float64(p)*eps)
	floor := tol * normA
	if err := jacobi(x, y, tol, floor); err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("%d %d", m, n))
	}

	s := make([]float64, q)
	for j, xj := range x {
		s[j] = cblas128.Nrm2(vec(xj))
	}
	order := make([]int, q)
	for j := range order {
		order[j] = j
	}
	slices.SortStableFunc(order, func(i, j int) int { return cmp.Compare(s[j], s[i]) })

	// z holds the normalized columns of b times v, in descending order.
	z := make([][]complex128, q)
	null := make([]bool, q)
	for jj, j := range order {
		z[jj] = x[j]
		if s[j] <= floor {
			s[j] = 0
			null[jj] = true
			continue
		}
		cblas128.Dscal(1/s[j], vec(z[jj]))
	}
	complete(z, null)

	svd := &SVD{U: NewGeneral(m, q), S: make([]float64, q), VH: NewGeneral(q, n)}
	for jj, j := range order {
		svd.S[jj] = s[j]
		switch {
		case transposed:
			for l := range m {
				svd.U.Data[l*svd.U.Stride+jj] = y[j][l]
			}
			for l := range n {
				svd.VH.Data[jj*svd.VH.Stride+l] = cmplx.Conj(z[jj][l])
			}
		default:
			for l := range m {
				svd.U.Data[l*svd.U.Stride+jj] = z[jj][l]
			}
			for l := range n {
				svd.VH.Data[jj*svd.VH.Stride+l] = cmplx.Conj(y[j][l])
			}
		}
	}
	svd.fixGauge()

	return svd, nil
}

// jacobi rotates pairs of x until they are mutually orthogonal, applying the same rotations to y.
// Columns whose norm is at or below floor are left alone, since their directions are rounding noise.
func jacobi(x, y [][]complex128, tol, floor float64) error {
	for range maxSweeps {
		rotated := false
		for p := 0; p < len(x)-1; p++ {
			for q := p + 1; q < len(x); q++ {
				alpha := sq(cblas128.Nrm2(vec(x[p])))
				beta := sq(cblas128.Nrm2(vec(x[q])))
				if alpha <= floor*floor || beta <= floor*floor {
					continue
				}
				gamma := cblas128.Dotc(vec(x[p]), vec(x[q]))
				g := cmplx.Abs(gamma)
				if g <= tol*math.Sqrt(alpha*beta) {
					continue
				}
				rotated = true

				// Choose the smaller root t of t^2 + 2 zeta t - 1 = 0.
				zeta := (beta - alpha) / (2 * g)
				t := 1 / (math.Abs(zeta) + math.Sqrt(1+zeta*zeta))
				if zeta < 0 {
					t = -t
				}
				c := 1 / math.Sqrt(1+t*t)
				s := c * t
				w := cmplx.Conj(gamma) / complex(g, 0)
				rotate(x[p], x[q], c, s, w)
				rotate(y[p], y[q], c, s, w)
			}
		}
		if !rotated {
			return nil
		}
	}
	return errors.Wrapf(ErrNumerical, "jacobi did not converge in %d sweeps", maxSweeps)
}

// rotate applies the unitary [[c, s], [-s w, c w]] to the column pair (a, b).
func rotate(a, b []complex128, c, s float64, w complex128) {
	cc, sc := complex(c, 0), complex(s, 0)
	for l, av := range a {
		bv := b[l]
		a[l] = cc*av - sc*w*bv
		b[l] = sc*av + cc*w*bv
	}
}

// complete replaces the null vectors of z with unit vectors orthogonal to all the others.
func complete(z [][]complex128, null []bool) {
	for j := range z {
		if !null[j] {
			continue
		}

		dim := len(z[j])
		best, bestNorm := make([]complex128, dim), -1.0
		w := make([]complex128, dim)
		for t := range dim {
			clear(w)
			w[t] = 1
			for i, zi := range z {
				if null[i] {
					continue
				}
				cblas128.Axpy(-cmplx.Conj(zi[t]), vec(zi), vec(w))
			}
			if nrm := cblas128.Nrm2(vec(w)); nrm > bestNorm {
				copy(best, w)
				bestNorm = nrm
			}
		}
		cblas128.Dscal(1/bestNorm, vec(best))
		z[j] = best
		null[j] = false
	}
}

// fixGauge rotates the phase of each singular pair so that the largest entry of the U column is real positive.
func (svd *SVD) fixGauge() {
	for j := range svd.S {
		var pivot complex128
		var pivotAbs float64
		for l := range svd.U.Rows {
			v := svd.U.Data[l*svd.U.Stride+j]
			if a := cmplx.Abs(v); a > pivotAbs {
				pivot, pivotAbs = v, a
			}
		}
		if pivotAbs == 0 {
			continue
		}
		phase := pivot / complex(pivotAbs, 0)
		for l := range svd.U.Rows {
			svd.U.Data[l*svd.U.Stride+j] *= cmplx.Conj(phase)
		}
		cblas128.Scal(phase, vec(svd.VH.Data[j*svd.VH.Stride:j*svd.VH.Stride+svd.VH.Cols]))
	}
}

// NewGeneral returns a zero row major matrix.
func NewGeneral(rows, cols int) cblas128.General {
	return cblas128.General{Rows: rows, Cols: cols, Stride: cols, Data: make([]complex128, rows*cols)}
}

func checkFinite(a cblas128.General) error {
	for i := range a.Rows {
		for j := range a.Cols {
			v := a.Data[i*a.Stride+j]
			if cmplx.IsNaN(v) || cmplx.IsInf(v) {
				return errors.Wrapf(ErrNumerical, "%d %d %v", i, j, v)
			}
		}
	}
	return nil
}

func vec(d []complex128) cblas128.Vector {
	return cblas128.Vector{N: len(d), Inc: 1, Data: d}
}

func sq(x float64) float64 {
	return x * x
}
