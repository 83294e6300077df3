package mps

import (
	"fmt"
	"slices"

	"github.com/fumin/tensor"
	"github.com/pkg/errors"
)

// Overlap computes the inner product <x|y>.
// See Section 4.2.1 Efficient evaluation of contractions, Ulrich Schollwock.
func Overlap(x, y *MPS) (complex64, error) {
	if len(x.sites) != len(y.sites) {
		return 0, errors.Wrapf(ErrShapeMismatch, "%d %d sites", len(x.sites), len(y.sites))
	}
	if xd, yd := x.PhysDims(), y.PhysDims(); !slices.Equal(xd, yd) {
		return 0, errors.Wrapf(ErrShapeMismatch, "physical dimensions %v %v", xd, yd)
	}

	bufs := [2]*tensor.Dense{tensor.Zeros(1), tensor.Zeros(1)}
	f := ones(bufs[0], 1, 1)
	const fTopAxis, fBottomAxis = 0, 1
	for i, xi := range x.sites {
		yi := y.sites[i]

		fyi := tensor.Contract(bufs[1], f, yi, [][2]int{{fBottomAxis, mpsLeftAxis}})
		tensor.Contract(f, xi.Conj(), fyi, [][2]int{{mpsLeftAxis, fTopAxis}, {mpsUpAxis, mpsUpAxis}})
	}

	if !slices.Equal(f.Shape(), []int{1, 1}) {
		panic(fmt.Sprintf("%#v", f.Shape()))
	}
	return f.At(0, 0), nil
}

// Expect returns <m|o|m> for each observable, in order.
// The state is not normalized, divide by <m|m> for normalized expectation values.
func (m *MPS) Expect(observables ...Observable) ([]complex64, error) {
	for _, o := range observables {
		if err := m.checkObservable(o); err != nil {
			return nil, errors.Wrap(err, "")
		}
	}

	lefts, rights := m.environments()
	vals := make([]complex64, 0, len(observables))
	bufs := [3]*tensor.Dense{tensor.Zeros(1), tensor.Zeros(1), tensor.Zeros(1)}
	for _, o := range observables {
		var v complex64
		switch len(o.Sites) {
		case 1:
			i := o.Sites[0]
			v = expect1(o.T, lefts[i], m.sites[i], rights[i+1], bufs)
		default:
			i := min(o.Sites[0], o.Sites[1])
			ot := o.T
			if o.Sites[0] > o.Sites[1] {
				ot = resetCopy(tensor.Zeros(1), o.T.Transpose(1, 0, 3, 2))
			}
			theta := m.theta(tensor.Zeros(1), i)
			v = expect2(ot, lefts[i], theta, rights[i+2], bufs)
		}
		vals = append(vals, v)
	}
	return vals, nil
}

func (m *MPS) checkObservable(o Observable) error {
	if len(o.Sites) < 1 || len(o.Sites) > 2 || len(o.T.Shape()) != 2*len(o.Sites) {
		return errors.Wrapf(ErrShapeMismatch, "observable shape %v on sites %v", o.T.Shape(), o.Sites)
	}
	for _, s := range o.Sites {
		if s < 0 || s >= len(m.sites) {
			return errors.Wrapf(ErrShapeMismatch, "site %d of %d", s, len(m.sites))
		}
	}
	if len(o.Sites) == 2 {
		d := o.Sites[1] - o.Sites[0]
		if d != 1 && d != -1 {
			return errors.Wrapf(ErrAdjacency, "%v", o.Sites)
		}
	}
	g := Gate(o)
	in, out := g.inDims(), g.outDims()
	for k, s := range o.Sites {
		physD := m.sites[s].Shape()[mpsUpAxis]
		if in[k] != physD || out[k] != physD {
			return errors.Wrapf(ErrShapeMismatch, "observable %v on site %d of dimension %d", o.T.Shape(), s, physD)
		}
	}
	return nil
}

// environments returns the contractions of <m|m> left of each site, and right of each site.
// lefts[i] covers sites [0, i) and has the axes {bra, ket}, rights[i] covers sites [i, n) with the same axes.
func (m *MPS) environments() ([]*tensor.Dense, []*tensor.Dense) {
	n := len(m.sites)
	buf := tensor.Zeros(1)

	lefts := make([]*tensor.Dense, n+1)
	lefts[0] = ones(tensor.Zeros(1), 1, 1)
	for i, mi := range m.sites {
		fm := tensor.Contract(buf, lefts[i], mi, [][2]int{{1, mpsLeftAxis}})
		lefts[i+1] = tensor.Contract(tensor.Zeros(1), mi.Conj(), fm, [][2]int{{mpsLeftAxis, 0}, {mpsUpAxis, 1}})
	}

	rights := make([]*tensor.Dense, n+1)
	rights[n] = ones(tensor.Zeros(1), 1, 1)
	for i := n - 1; i >= 0; i-- {
		mi := m.sites[i]
		// mf is of shape {mpsLeft, mpsUp, fBra}.
		mf := tensor.Contract(buf, mi, rights[i+1], [][2]int{{mpsRightAxis, 1}})
		rights[i] = tensor.Contract(tensor.Zeros(1), mi.Conj(), mf, [][2]int{{mpsUpAxis, 1}, {mpsRightAxis, 2}})
	}

	return lefts, rights
}

func expect1(o, left, mi, right *tensor.Dense, bufs [3]*tensor.Dense) complex64 {
	// lm is of shape {leftBra, mpsUp, mpsRight}.
	lm := tensor.Contract(bufs[0], left, mi, [][2]int{{1, mpsLeftAxis}})
	// olm is of shape {out, leftBra, mpsRight}.
	olm := tensor.Contract(bufs[1], o, lm, [][2]int{{1, 1}})
	// x is of shape {mpsRight.conj, mpsRight}.
	x := tensor.Contract(bufs[2], mi.Conj(), olm, [][2]int{{mpsLeftAxis, 1}, {mpsUpAxis, 0}})
	return dot(x, right)
}

func expect2(o, left, theta, right *tensor.Dense, bufs [3]*tensor.Dense) complex64 {
	// lt is of shape {leftBra, up0, up1, mpsRight}.
	lt := tensor.Contract(bufs[0], left, theta, [][2]int{{1, 0}})
	// olt is of shape {out0, out1, leftBra, mpsRight}.
	olt := tensor.Contract(bufs[1], o, lt, [][2]int{{2, 1}, {3, 2}})
	// x is of shape {mpsRight.conj, mpsRight}.
	x := tensor.Contract(bufs[2], theta.Conj(), olt, [][2]int{{0, 2}, {1, 0}, {2, 1}})
	return dot(x, right)
}

// ExpectMPO returns <m|w|m> for an operator w in matrix product form.
// See Section 6.2 Applying a Hamiltonian MPO to a mixed canonical state, Ulrich Schollwock.
func (m *MPS) ExpectMPO(w []*tensor.Dense) (complex64, error) {
	if err := m.checkMPO(w); err != nil {
		return 0, errors.Wrap(err, "")
	}
	fs := []*tensor.Dense{tensor.Zeros(1), tensor.Zeros(1)}
	bufs := []*tensor.Dense{tensor.Zeros(1), tensor.Zeros(1)}

	fi1 := ones(fs[1], 1, 1, 1)
	for i, wi := range w {
		fi1 = lExpression(fs[i%2], fi1, wi, m.sites[i], bufs)
	}

	if !slices.Equal(fi1.Shape(), []int{1, 1, 1}) {
		panic(fmt.Sprintf("%#v", fi1.Shape()))
	}
	return fi1.At(0, 0, 0), nil
}

// ExpectMPO2 returns <m|w^2|m>.
// See Figure 44, Section 6.4 Conventional DMRG in MPS language: the subtle differences, Ulrich Schollwock for a graphical explanation.
func (m *MPS) ExpectMPO2(w []*tensor.Dense) (complex64, error) {
	if err := m.checkMPO(w); err != nil {
		return 0, errors.Wrap(err, "")
	}
	bufs := [2]*tensor.Dense{tensor.Zeros(1), tensor.Zeros(1)}
	return mpoSquare(w, m.sites, bufs), nil
}

func (m *MPS) checkMPO(w []*tensor.Dense) error {
	if len(w) != len(m.sites) {
		return errors.Wrapf(ErrShapeMismatch, "%d %d sites", len(w), len(m.sites))
	}
	for i, wi := range w {
		s := wi.Shape()
		physD := m.sites[i].Shape()[mpsUpAxis]
		if len(s) != 4 || s[mpoUpAxis] != physD || s[mpoDownAxis] != physD {
			return errors.Wrapf(ErrShapeMismatch, "mpo %v on site %d of dimension %d", s, i, physD)
		}
	}
	return nil
}

func lExpression(fi, fi1, w, m *tensor.Dense, bufs []*tensor.Dense) *tensor.Dense {
	// fi1 is of shape {fTop, fMid, fBot}.
	// fm is of shape {fTop, fMid, mpsTop, mpsRight}.
	fm := tensor.Contract(bufs[0], fi1, m, [][2]int{{2, mpsLeftAxis}})

	// wfm is of shape {mpoRight, mpoUp, fTop, mpsRight}.
	wfm := tensor.Contract(bufs[1], w, fm, [][2]int{{mpoDownAxis, 2}, {mpoLeftAxis, 1}})

	// fi is of shape {mpsRight.conj, mpoRight, mpsRight}.
	tensor.Contract(fi, m.Conj(), wfm, [][2]int{{mpsLeftAxis, 2}, {mpsUpAxis, 1}})

	return fi
}

func rExpression(fi, fi1, w, m *tensor.Dense, bufs []*tensor.Dense) *tensor.Dense {
	// fi1 is of shape {fTop, fMid, fBot}.
	// fm is of shape {fTop, fMid, mpsLeft, mpsTop}.
	fm := tensor.Contract(bufs[0], fi1, m, [][2]int{{2, mpsRightAxis}})

	// wfm is of shape {mpoLeft, mpoUp, fTop, mpsLeft}.
	wfm := tensor.Contract(bufs[1], w, fm, [][2]int{{mpoDownAxis, 3}, {mpoRightAxis, 1}})

	// fi is of shape {mpsLeft.conj, mpoLeft, mpsLeft}.
	tensor.Contract(fi, m.Conj(), wfm, [][2]int{{mpsRightAxis, 2}, {mpsUpAxis, 1}})

	return fi
}

// rExpressions builds the R expressions of Equation 193 into fs, and returns the one of the whole chain.
func rExpressions(fs, ws, ms []*tensor.Dense, bufs []*tensor.Dense) complex64 {
	fi1 := ones(tensor.Zeros(1), 1, 1, 1)
	for i := len(fs) - 1; i >= 0; i-- {
		fi1 = rExpression(fs[i], fi1, ws[i], ms[i], bufs)
	}

	if !slices.Equal(fi1.Shape(), []int{1, 1, 1}) {
		panic(fmt.Sprintf("%#v", fi1.Shape()))
	}
	return fi1.At(0, 0, 0)
}

func mpoSquare(ws, ms []*tensor.Dense, bufs [2]*tensor.Dense) complex64 {
	// fi1 is the F expression at site i-1, and is of shape {fTop, fMid2, fMid, fBot}.
	fi1 := ones(bufs[0], 1, 1, 1, 1)
	for i, w := range ws {
		m := ms[i]

		// fm is of shape {fTop, fMid2, fMid, mpsTop, mpsRight}.
		fm := tensor.Contract(bufs[1], fi1, m, [][2]int{{3, mpsLeftAxis}})

		// wfm is of shape {mpoRight, mpoUp, fTop, fMid2, mpsRight}.
		wfm := tensor.Contract(bufs[0], w, fm, [][2]int{{mpoDownAxis, 3}, {mpoLeftAxis, 2}})

		// wwfm is of shape {mpoRight2, mpoUp2, mpoRight, fTop, mpsRight}.
		wwfm := tensor.Contract(bufs[1], w, wfm, [][2]int{{mpoDownAxis, 1}, {mpoLeftAxis, 3}})

		// fi1 is of shape {mpsRight.conj, mpoRight2, mpoRight, mpsRight}.
		fi1 = tensor.Contract(bufs[0], m.Conj(), wwfm, [][2]int{{mpsLeftAxis, 3}, {mpsUpAxis, 1}})
	}

	if !slices.Equal(fi1.Shape(), []int{1, 1, 1, 1}) {
		panic(fmt.Sprintf("%#v", fi1.Shape()))
	}
	return fi1.At(0, 0, 0, 0)
}
