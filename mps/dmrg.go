package mps

import (
	"fmt"
	"math/rand/v2"

	"github.com/fumin/tensor"
	"github.com/pkg/errors"
)

// RandMPS creates a random matrix product state with the physical dimensions of mpo.
// maxD is the maximum bond dimension, which is D in the discussion below equation 71 in section 4.1.4, Ulrich Schollwock.
func RandMPS(mpo []*tensor.Dense, maxD int, rng *rand.Rand) *MPS {
	sites := make([]*tensor.Dense, 0, len(mpo))

	// First site.
	physD := mpo[0].Shape()[mpoDownAxis]
	leftD := physD
	sites = append(sites, randTensor(rng, 1, physD, min(physD, maxD)))

	for i := 1; i <= len(mpo)-2; i++ {
		physD := mpo[i].Shape()[mpoDownAxis]
		var rightD int
		switch {
		case i < len(mpo)/2:
			rightD = leftD * physD
		case i > len(mpo)/2:
			rightD = leftD / physD
		case len(mpo)%2 == 0:
			rightD = leftD / physD
		default:
			rightD = leftD
		}
		leftD = rightD

		si1 := sites[i-1].Shape()
		sites = append(sites, randTensor(rng, si1[mpsRightAxis], physD, min(rightD, maxD)))
	}

	// Last site.
	physD = mpo[len(mpo)-1].Shape()[mpoDownAxis]
	si1 := sites[len(mpo)-2].Shape()
	sites = append(sites, randTensor(rng, si1[mpsRightAxis], physD, 1))

	return newMPS(sites)
}

// SearchGroundStateOptions are options for the MPS ground state search algorithm.
type SearchGroundStateOptions struct {
	maxIterations int
	tol           float32
}

// NewSearchGroundStateOptions returns the default MPS ground state search options.
func NewSearchGroundStateOptions() SearchGroundStateOptions {
	opt := SearchGroundStateOptions{}
	opt.maxIterations = 32
	opt.tol = 1e-6
	return opt
}

// MaxIterations sets the maximum iterations.
func (opt SearchGroundStateOptions) MaxIterations(i int) SearchGroundStateOptions {
	opt.maxIterations = i
	return opt
}

// Tol sets the tolerance of the convergence criterion <H^2> - (<H>)^2.
func (opt SearchGroundStateOptions) Tol(tol float32) SearchGroundStateOptions {
	opt.tol = tol
	return opt
}

// SearchGroundState replaces m with the ground state of the Hamiltonian ws, keeping the bond dimensions of m.
// On return, m is in canonical form with center 0, and the ground energy is <m|ws|m> / <m|m>.
// See Section 6.3 Iterative ground state search, Ulrich Schollwock.
func (m *MPS) SearchGroundState(ws []*tensor.Dense, options ...SearchGroundStateOptions) error {
	opt := NewSearchGroundStateOptions()
	if len(options) > 0 {
		opt = options[0]
	}
	if err := m.checkMPO(ws); err != nil {
		return errors.Wrap(err, "")
	}
	if len(m.sites) < 2 {
		return errors.Wrapf(ErrShapeMismatch, "%d sites", len(m.sites))
	}

	ms := m.sites
	fs := make([]*tensor.Dense, 0, len(ms))
	for range ms {
		fs = append(fs, tensor.Zeros(1))
	}
	var bufs [10]*tensor.Dense
	for i := range bufs {
		bufs[i] = tensor.Zeros(1)
	}

	m.center = noCenter
	for i := len(ms) - 1; i >= 1; i-- {
		rightNormalize(ms, i, bufs[:3])
	}
	rExpressions(fs, ws, ms, bufs[:2])
	convergence := struct {
		ok bool
		h2 complex64
	}{}
	for i := range opt.maxIterations {
		if err := rightSweep(fs, ws, ms, bufs); err != nil {
			return errors.Wrap(err, fmt.Sprintf("%d", i))
		}
		if err := leftSweep(fs, ws, ms, bufs); err != nil {
			return errors.Wrap(err, fmt.Sprintf("%d", i))
		}

		// Test for convergence.
		psiIP, err := Overlap(m, m)
		if err != nil {
			return errors.Wrap(err, "")
		}
		if abs(psiIP) < epsilon {
			return errors.Wrapf(ErrNumerical, "%f", psiIP)
		}
		// Since leftSweep built R expression to fs[1], we need only further build fs[0].
		rExpression(fs[0], fs[1], ws[0], ms[0], bufs[:])
		h := fs[0].At(0, 0, 0) / psiIP
		// Compute h2 and use the criterion h2 - h*h.
		h2 := mpoSquare(ws, ms, [2]*tensor.Dense(bufs[:2])) / psiIP
		convergence.h2 = h2 - h*h
		if abs(convergence.h2) < opt.tol*max(abs(h2), 1) {
			convergence.ok = true
			break
		}
	}
	if !convergence.ok {
		return errors.Errorf("%#v", convergence)
	}
	m.center = 0
	return nil
}

func leftSweep(fs, ws, ms []*tensor.Dense, bufs [10]*tensor.Dense) error {
	for l := len(ms) - 1; l >= 1; l-- {
		fRight := ones(fs[l], 1, 1, 1)
		if l+1 <= len(ms)-1 {
			fRight = fs[l+1]
		}
		h := getH(bufs[0], fs[l-1], fRight, ws[l], bufs[1:])

		eigvals, eigvecs := bufs[1], bufs[2]
		abufs := [7]*tensor.Dense(bufs[3:])
		if err := tensor.Arnoldi(eigvals, eigvecs, h, 1, abufs); err != nil {
			return errors.Wrap(err, "")
		}
		resetCopy(ms[l], eigvecs.Reshape(ms[l].Shape()...))

		// Right normalize ms[l], and multiply into ms[l-1].
		// Since ms[l-1] is modified, reset fs[l-1].
		rightNormalize(ms, l, bufs[:3])
		fs[l-1].Reset(1)

		rExpression(fs[l], fRight, ws[l], ms[l], bufs[:2])
	}
	return nil
}

func rightSweep(fs, ws, ms []*tensor.Dense, bufs [10]*tensor.Dense) error {
	for l := range len(ms) - 1 {
		fLeft := ones(fs[l], 1, 1, 1)
		if l-1 >= 0 {
			fLeft = fs[l-1]
		}
		h := getH(bufs[0], fLeft, fs[l+1], ws[l], bufs[1:])

		eigvals, eigvecs := bufs[1], bufs[2]
		abufs := [7]*tensor.Dense(bufs[3:])
		if err := tensor.Arnoldi(eigvals, eigvecs, h, 1, abufs); err != nil {
			return errors.Wrap(err, "")
		}
		resetCopy(ms[l], eigvecs.Reshape(ms[l].Shape()...))

		// Left normalize ms[l], and multiply into ms[l+1].
		// ms[:l-1] has to be left-normalized, and ms[l:] right-normalized at all times, so that
		// the generalized eigenvalue problem reduces to an ordinary one.
		// See Equation 211, Section 6.3 Iterative ground state search, Ulrich Schollwock.
		leftNormalize(ms, l, bufs[:3])
		fs[l+1].Reset(1)

		lExpression(fs[l], fLeft, ws[l], ms[l], bufs[:2])
	}
	return nil
}

// getH returns the H matrix defined in Equation 210, Section 6.3 Iterative ground state search, Ulrich Schollwock.
func getH(h, left, right, w *tensor.Dense, bufs []*tensor.Dense) *tensor.Dense {
	// right is of shape {rightTop, rightMid, rightBot}.
	// wRight is of shape {mpoLeft, mpoUp, mpoDown, rightTop, rightBot}.
	wRight := tensor.Contract(bufs[0], w, right, [][2]int{{mpoRightAxis, 1}})

	// left is of shape {leftTop, leftMid, leftBot}.
	// lwr is of shape {leftTop, leftBot, mpoUp, mpoDown, rightTop, rightBot}.
	lwr := tensor.Contract(bufs[1], left, wRight, [][2]int{{1, 0}})

	// h is of shape {leftTop, mpoUp, rightTop, leftBot, mpoDown, rightBot}.
	resetCopy(h, lwr.Transpose(0, 2, 4, 1, 3, 5))

	// Reshape h to square matrix.
	ls, ws, rs := left.Shape(), w.Shape(), right.Shape()
	if ls[0] != ls[2] || ws[mpoUpAxis] != ws[mpoDownAxis] || rs[0] != rs[2] {
		panic(fmt.Sprintf("%#v %#v %#v", ls, ws, rs))
	}
	return h.Reshape(ls[0]*ws[mpoUpAxis]*rs[0], ls[2]*ws[mpoDownAxis]*rs[2])
}
