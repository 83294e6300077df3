package linalg

import (
	"math/cmplx"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/blas/cblas128"
	"gonum.org/v1/gonum/mat"
)

// ExpSym returns the unitary exp(-i t h) of a real symmetric h.
func ExpSym(h mat.Symmetric, t float64) (cblas128.General, error) {
	var eig mat.EigenSym
	if ok := eig.Factorize(h, true); !ok {
		return cblas128.General{}, errors.Wrap(ErrNumerical, "eigen decomposition failed")
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	n := len(vals)
	phases := make([]complex128, n)
	for k, v := range vals {
		phases[k] = cmplx.Exp(complex(0, -t*v))
	}

	u := NewGeneral(n, n)
	for i := range n {
		for j := range n {
			var uij complex128
			for k, ph := range phases {
				uij += complex(vecs.At(i, k)*vecs.At(j, k), 0) * ph
			}
			u.Data[i*u.Stride+j] = uij
		}
	}
	return u, nil
}
