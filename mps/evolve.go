package mps

import (
	"fmt"

	"github.com/fumin/tensor"
	"github.com/pkg/errors"
)

// maxCenterShift is the farthest the orthogonality center may be from a gate applied with Canonical(true).
const maxCenterShift = 2

// EvolveOptions are options for applying a gate.
type EvolveOptions struct {
	maxDim      int
	canonical   bool
	renormalize bool
	cutoff      float64
}

// NewEvolveOptions returns the default options: unlimited bond dimension, no canonical form claim, and no renormalization.
func NewEvolveOptions() EvolveOptions {
	opt := EvolveOptions{}
	opt.cutoff = epsilon
	return opt
}

// MaxDim sets the maximum bond dimension kept after a two-site gate. A non-positive d means unlimited.
func (opt EvolveOptions) MaxDim(d int) EvolveOptions {
	opt.maxDim = max(d, 0)
	return opt
}

// Canonical declares that the chain is in canonical form with its center at or near the gate.
// The engine then performs a local update that keeps the canonical form, instead of a global canonicalization.
func (opt EvolveOptions) Canonical(b bool) EvolveOptions {
	opt.canonical = b
	return opt
}

// Renormalize rescales the kept singular values to the norm before truncation.
// Without it, the norm of the state decreases with every truncation, measuring the retained weight.
func (opt EvolveOptions) Renormalize(b bool) EvolveOptions {
	opt.renormalize = b
	return opt
}

// Cutoff sets the relative size below which singular values are discarded regardless of MaxDim.
func (opt EvolveOptions) Cutoff(c float64) EvolveOptions {
	opt.cutoff = max(c, 0)
	return opt
}

func (opt EvolveOptions) truncation() truncation {
	return truncation{maxDim: opt.maxDim, cutoff: opt.cutoff, renormalize: opt.renormalize}
}

// Evolve applies a gate on one site or two adjacent sites.
func (m *MPS) Evolve(g Gate, options ...EvolveOptions) error {
	opt := NewEvolveOptions()
	if len(options) > 0 {
		opt = options[0]
	}
	if err := m.checkGate(g); err != nil {
		return errors.Wrap(err, "")
	}

	switch len(g.Sites) {
	case 1:
		if err := m.evolve1(g, opt); err != nil {
			return errors.Wrap(err, fmt.Sprintf("%v", g.Sites))
		}
	default:
		if err := m.evolve2(g, opt); err != nil {
			return errors.Wrap(err, fmt.Sprintf("%v", g.Sites))
		}
	}
	return nil
}

func (m *MPS) checkGate(g Gate) error {
	if len(g.Sites) < 1 || len(g.Sites) > 2 {
		return errors.Wrapf(ErrDimension, "gate on %d sites", len(g.Sites))
	}
	if len(g.T.Shape()) != 2*len(g.Sites) {
		return errors.Wrapf(ErrDimension, "gate shape %v on %d sites", g.T.Shape(), len(g.Sites))
	}
	for _, s := range g.Sites {
		if s < 0 || s >= len(m.sites) {
			return errors.Wrapf(ErrShapeMismatch, "site %d of %d", s, len(m.sites))
		}
	}
	if len(g.Sites) == 2 {
		d := g.Sites[1] - g.Sites[0]
		if d != 1 && d != -1 {
			return errors.Wrapf(ErrAdjacency, "%v", g.Sites)
		}
	}
	outDims := g.outDims()
	for k, d := range g.inDims() {
		s := g.Sites[k]
		physD := m.sites[s].Shape()[mpsUpAxis]
		if d != physD {
			return errors.Wrapf(ErrDimension, "gate input %d on site %d of dimension %d", d, s, physD)
		}
		if outDims[k] != physD {
			return errors.Wrapf(ErrDimension, "gate output %d on site %d of dimension %d", outDims[k], s, physD)
		}
	}
	return nil
}

func (m *MPS) evolve1(g Gate, opt EvolveOptions) error {
	i := g.Sites[0]
	if opt.canonical {
		if m.center == noCenter {
			return errors.Wrap(ErrPrecondition, "chain is not canonical")
		}
		// A unitary on a left or right orthonormal site keeps it orthonormal.
		if i != m.center && !g.IsUnitary() {
			return errors.Wrapf(ErrPrecondition, "non-unitary gate on site %d away from center %d", i, m.center)
		}
	}

	// gm is of shape {gateOut, mpsLeft, mpsRight}.
	gm := tensor.Contract(m.bufs[0], g.T, m.sites[i], [][2]int{{1, mpsUpAxis}})
	resetCopy(m.sites[i], gm.Transpose(1, 0, 2))

	if !opt.canonical {
		m.center = noCenter
	}
	return nil
}

func (m *MPS) evolve2(g Gate, opt EvolveOptions) error {
	i := min(g.Sites[0], g.Sites[1])
	gt := g.T
	if g.Sites[0] > g.Sites[1] {
		gt = resetCopy(m.bufs[3], g.T.Transpose(1, 0, 3, 2))
	}

	tr := opt.truncation()
	absorbRight := true
	switch {
	case opt.canonical:
		if m.center == noCenter {
			return errors.Wrap(ErrPrecondition, "chain is not canonical")
		}
		if d := centerDistance(m.center, i); d > maxCenterShift {
			return errors.Wrapf(ErrPrecondition, "center %d is %d sites away from bond %d", m.center, d, i)
		}
		// Keep sweeping in the direction the center came from.
		absorbRight = m.center <= i
		m.moveCenter(min(max(m.center, i), i+1))
	default:
		// The cutoff and maxDim act on Schmidt values, which requires orthonormal environments around the bond.
		if err := m.Canonize(i); err != nil {
			return errors.Wrap(err, "")
		}
	}

	theta := m.theta(m.bufs[0], i)
	// gTheta is of shape {gateOut0, gateOut1, mpsLeft, mpsRight}.
	gTheta := tensor.Contract(m.bufs[1], gt, theta, [][2]int{{2, 1}, {3, 2}})
	theta = resetCopy(m.bufs[2], gTheta.Transpose(2, 0, 1, 3))
	if err := m.split(i, theta, tr, absorbRight); err != nil {
		return errors.Wrap(err, "")
	}

	switch {
	case !opt.canonical:
		m.center = noCenter
	case absorbRight:
		m.center = i + 1
	default:
		m.center = i
	}
	return nil
}

// centerDistance returns how many sites the center lies outside the bond {i, i+1}.
func centerDistance(center, i int) int {
	switch {
	case center < i:
		return i - center
	case center > i+1:
		return center - i - 1
	default:
		return 0
	}
}
