package mps

import (
	"fmt"
	"math/cmplx"

	"github.com/fumin/tensor"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/fumin/qtebd/linalg"
)

// truncation is the policy applied to the singular values of a split bond.
type truncation struct {
	// maxDim is the maximum number of singular values kept, or 0 for no limit.
	maxDim int
	// cutoff drops singular values at or below cutoff times the largest one.
	cutoff float64
	// renormalize rescales the kept singular values to the norm of all of them.
	renormalize bool
}

// keep returns how many of the non-increasing singular values s survive the policy.
// At least one singular value is always kept.
// When singular values tie at the maxDim boundary, the ones earlier in s are kept.
func (tr truncation) keep(s []float64) int {
	k := len(s)
	if tr.maxDim > 0 {
		k = min(k, tr.maxDim)
	}
	for k > 1 && s[k-1] <= tr.cutoff*s[0] {
		k--
	}
	return k
}

// Canonize brings the chain to mixed canonical form with the orthogonality center at center, which defaults to 0.
// Sites left of the center become left-orthonormal, and sites right of it right-orthonormal.
// The sweeps are QR gauge transformations, so no weight is ever discarded.
// A bond only shrinks when it is larger than the rank its neighboring sites allow.
func (m *MPS) Canonize(center ...int) error {
	c := 0
	if len(center) > 0 {
		c = center[0]
	}
	if c < 0 || c >= len(m.sites) {
		return errors.Wrapf(ErrShapeMismatch, "center %d of %d sites", c, len(m.sites))
	}
	if m.center == c {
		return nil
	}

	// Sites already on the correct side of the old center need no sweeping.
	leftStart, rightStart := 0, len(m.sites)-1
	if m.center != noCenter {
		leftStart, rightStart = m.center, m.center
	}

	for i := leftStart; i < c; i++ {
		leftNormalize(m.sites, i, m.bufs[:3])
	}
	for i := rightStart; i > c; i-- {
		rightNormalize(m.sites, i, m.bufs[:3])
	}
	if err := m.checkFinite(); err != nil {
		return errors.Wrap(err, "")
	}

	m.center = c
	return nil
}

// checkFinite reports ErrNumerical if any site holds NaN or Inf.
func (m *MPS) checkFinite() error {
	for i, s := range m.sites {
		for ijk, v := range s.All() {
			if cmplx.IsNaN(complex128(v)) || cmplx.IsInf(complex128(v)) {
				return errors.Wrapf(ErrNumerical, "site %d %v %v", i, ijk, v)
			}
		}
	}
	return nil
}

// theta contracts site i and i+1 into a tensor of shape {left, up_i, up_i+1, right}.
func (m *MPS) theta(dst *tensor.Dense, i int) *tensor.Dense {
	return tensor.Contract(dst, m.sites[i], m.sites[i+1], [][2]int{{mpsRightAxis, mpsLeftAxis}})
}

// split factorizes theta of shape {left, up_i, up_i+1, right} into site i and i+1.
// The singular values are multiplied into site i+1 if absorbRight, and into site i otherwise.
func (m *MPS) split(i int, theta *tensor.Dense, tr truncation, absorbRight bool) error {
	shape := theta.Shape()
	dLeft, dUp0, dUp1, dRight := shape[0], shape[1], shape[2], shape[3]

	svd, err := linalg.Factorize(toGeneral(theta, dLeft*dUp0, dUp1*dRight))
	if err != nil {
		return errors.Wrap(err, fmt.Sprintf("%#v", shape))
	}

	k := tr.keep(svd.S)
	kept := svd.S[:k]
	if k < len(svd.S) {
		for _, s := range svd.S[k:] {
			m.discarded += s * s
		}
	}
	if tr.renormalize {
		if n := floats.Norm(kept, 2); n > 0 {
			kept = append([]float64(nil), kept...)
			floats.Scale(floats.Norm(svd.S, 2)/n, kept)
		}
	}

	left := m.sites[i].Reset(dLeft, dUp0, k)
	for row := range dLeft * dUp0 {
		for j, s := range kept {
			v := svd.U.Data[row*svd.U.Stride+j]
			if !absorbRight {
				v *= complex(s, 0)
			}
			left.SetAt([]int{row / dUp0, row % dUp0, j}, complex64(v))
		}
	}

	right := m.sites[i+1].Reset(k, dUp1, dRight)
	for j, s := range kept {
		for col := range dUp1 * dRight {
			v := svd.VH.Data[j*svd.VH.Stride+col]
			if absorbRight {
				v *= complex(s, 0)
			}
			right.SetAt([]int{j, col / dRight, col % dRight}, complex64(v))
		}
	}

	m.sites[i], m.sites[i+1] = left, right
	return nil
}

// moveCenter shifts the orthogonality center to site to with QR gauge transformations.
func (m *MPS) moveCenter(to int) {
	for m.center < to {
		leftNormalize(m.sites, m.center, m.bufs[:3])
		m.center++
	}
	for m.center > to {
		rightNormalize(m.sites, m.center, m.bufs[:3])
		m.center--
	}
}

// rightNormalize normalizes a MPS site from the right.
// See Section 4.4.2 Generation of a right-canonical MPS, Ulrich Schollwock.
func rightNormalize(ms []*tensor.Dense, i int, bufs []*tensor.Dense) {
	s := ms[i].Shape()
	dUp, dRight := s[mpsUpAxis], s[mpsRightAxis]

	// Decompose ms[i] = l @ q.H.
	mi := ms[i].Reshape(s[mpsLeftAxis], dUp*dRight)
	q, lqbufs := bufs[0], [2]*tensor.Dense(bufs[1:])
	l := lq(q, mi, lqbufs)

	// ms[i-1] = ms[i-1] @ l.
	axes := [][2]int{{mpsRightAxis, 0}}
	resetCopy(ms[i-1], tensor.Contract(bufs[1], ms[i-1], l, axes))

	// ms[i] = q.H.
	ms[i] = resetCopy(ms[i], q.H()).Reshape(-1, dUp, dRight)
}

// leftNormalize normalizes a MPS site from the left.
// See Section 4.4.1 Generation of a left-canonical MPS, Ulrich Schollwock.
func leftNormalize(ms []*tensor.Dense, i int, bufs []*tensor.Dense) {
	s := ms[i].Shape()
	dLeft, dUp := s[mpsLeftAxis], s[mpsUpAxis]

	// Decompose ms[i] = q @ r.
	mi := ms[i].Reshape(dLeft*dUp, s[mpsRightAxis])
	q, qrbufs := bufs[0], [2]*tensor.Dense(bufs[1:])
	r := tensor.QR(q, mi, qrbufs)

	// ms[i+1] = r @ ms[i+1].
	axes := [][2]int{{1, mpsLeftAxis}}
	resetCopy(ms[i+1], tensor.Contract(bufs[1], r, ms[i+1], axes))

	// ms[i] = q.
	ms[i] = resetCopy(ms[i], q).Reshape(dLeft, dUp, -1)
}

func lq(q, a *tensor.Dense, bufs [2]*tensor.Dense) *tensor.Dense {
	r := tensor.QR(q, a.H(), bufs)
	return r.H()
}
