// Package mps implements a matrix product state simulator of quantum circuits.
//
// A state is evolved gate by gate with the time-evolving block decimation (TEBD) update:
// a two-site gate is contracted into its pair of sites, and the result is split back by a singular value
// decomposition that keeps at most a maximum bond dimension of singular values.
//
// An MPS is owned by a single goroutine. It keeps scratch buffers that every operation reuses,
// so no two operations may run on the same MPS at the same time.
//
// References:
//   - The density-matrix renormalization group in the age of matrix product states, Ulrich Schollwock
//   - Efficient classical simulation of slightly entangled quantum computations, Guifre Vidal
package mps

import (
	"fmt"
	"math"
	"strings"

	"github.com/fumin/tensor"
	"github.com/pkg/errors"
)

const (
	// mpsLeftAxis is the axis of a_{l-1} in Figure 6.
	mpsLeftAxis  = 0
	mpsUpAxis    = 1
	mpsRightAxis = 2
	// mpoLeftAxis is the axis of b_{l-1} in Figure 35.
	mpoLeftAxis  = 0
	mpoRightAxis = 1
	mpoUpAxis    = 2
	mpoDownAxis  = 3

	// Machine precision.
	epsilon = 0x1p-23

	// noCenter marks a chain that is not in canonical form.
	noCenter = -1
)

// MPS is a matrix product state.
// Site tensors have the axes {left, up, right}, where up is the physical index.
type MPS struct {
	sites []*tensor.Dense

	// center is the orthogonality center, or noCenter.
	center int
	// discarded is the total squared weight of the singular values dropped by truncation.
	discarded float64

	bufs [4]*tensor.Dense
}

func newMPS(sites []*tensor.Dense) *MPS {
	m := &MPS{sites: sites, center: noCenter}
	for i := range m.bufs {
		m.bufs[i] = tensor.Zeros(1)
	}
	return m
}

// FromProductState creates a state of bond dimension 1 from local vectors of dimension d.
// If every vector has unit norm, the state starts in canonical form with center 0.
func FromProductState(d int, vectors [][]complex64) (*MPS, error) {
	if len(vectors) == 0 {
		return nil, errors.Wrap(ErrDimension, "empty product state")
	}
	if d < 1 {
		return nil, errors.Wrapf(ErrDimension, "physical dimension %d", d)
	}

	normalized := true
	sites := make([]*tensor.Dense, 0, len(vectors))
	for i, v := range vectors {
		if len(v) != d {
			return nil, errors.Wrapf(ErrDimension, "site %d has %d amplitudes, expected %d", i, len(v), d)
		}
		site := tensor.Zeros(1, d, 1)
		var norm2 float32
		for s, a := range v {
			site.SetAt([]int{0, s, 0}, a)
			norm2 += real(a)*real(a) + imag(a)*imag(a)
		}
		if math.Abs(float64(norm2)-1) > 8*epsilon {
			normalized = false
		}
		sites = append(sites, site)
	}

	m := newMPS(sites)
	if normalized {
		m.center = 0
	}
	return m, nil
}

// FromState creates a matrix product representation from a general state, whose shape lists the physical dimensions.
// The result is left canonical, with the orthogonality center at the last site.
func FromState(state *tensor.Dense) *MPS {
	shape := state.Shape()
	bufs := [2]*tensor.Dense{tensor.Zeros(1), tensor.Zeros(1)}
	state = resetCopy(tensor.Zeros(1), state)

	sites := make([]*tensor.Dense, 0, len(shape))
	var leftD int = 1
	for _, physD := range shape[:len(shape)-1] {
		q := tensor.Zeros(1)
		r := tensor.QR(q, state.Reshape(leftD*physD, -1), bufs)

		leftD = r.Shape()[0]
		state = resetCopy(tensor.Zeros(1), r)

		sites = append(sites, q.Reshape(-1, physD, leftD))
	}

	state = state.Reshape(leftD, shape[len(shape)-1], 1)
	sites = append(sites, resetCopy(tensor.Zeros(1), state))

	m := newMPS(sites)
	m.center = len(sites) - 1
	return m
}

// Clone returns a deep copy of m.
func (m *MPS) Clone() *MPS {
	sites := make([]*tensor.Dense, 0, len(m.sites))
	for _, s := range m.sites {
		sites = append(sites, resetCopy(tensor.Zeros(1), s))
	}
	c := newMPS(sites)
	c.center = m.center
	c.discarded = m.discarded
	return c
}

// NumSites returns the length of the chain.
func (m *MPS) NumSites() int { return len(m.sites) }

// PhysDims returns the physical dimension of each site.
func (m *MPS) PhysDims() []int {
	dims := make([]int, 0, len(m.sites))
	for _, s := range m.sites {
		dims = append(dims, s.Shape()[mpsUpAxis])
	}
	return dims
}

// BondDims returns the bond dimension between site i and i+1, for i in [0, NumSites-1).
func (m *MPS) BondDims() []int {
	dims := make([]int, 0, len(m.sites)-1)
	for _, s := range m.sites[:len(m.sites)-1] {
		dims = append(dims, s.Shape()[mpsRightAxis])
	}
	return dims
}

// MaxBondDim returns the largest bond dimension of the chain.
func (m *MPS) MaxBondDim() int {
	d := 1
	for _, b := range m.BondDims() {
		d = max(d, b)
	}
	return d
}

// Center returns the orthogonality center, and whether the chain is in canonical form.
func (m *MPS) Center() (int, bool) {
	return m.center, m.center != noCenter
}

// IsCanonical reports whether the chain is in canonical form.
func (m *MPS) IsCanonical() bool {
	return m.center != noCenter
}

// Discarded returns the total squared weight of the singular values dropped by truncations so far.
func (m *MPS) Discarded() float64 {
	return m.discarded
}

// Site returns the tensor of site i, with axes {left, up, right}.
// The returned tensor is owned by m and must not be modified.
func (m *MPS) Site(i int) *tensor.Dense {
	return m.sites[i]
}

// SiteAxes returns the roles of the axes of site i.
func (m *MPS) SiteAxes(i int) [3]Axis {
	return [3]Axis{{Role: Left, Site: i}, {Role: Phys, Site: i}, {Role: Right, Site: i}}
}

// Norm returns sqrt(<m|m>).
func (m *MPS) Norm() float64 {
	if m.center != noCenter {
		return frobenius(m.sites[m.center])
	}
	ip, _ := Overlap(m, m)
	return math.Sqrt(math.Abs(float64(real(ip))))
}

// Normalize rescales m to unit norm.
func (m *MPS) Normalize() error {
	norm := m.Norm()
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return errors.Wrapf(ErrNumerical, "norm %f", norm)
	}
	i := 0
	if m.center != noCenter {
		i = m.center
	}
	scale(m.sites[i], complex(float32(1/norm), 0))
	return nil
}

// Amplitudes contracts the whole chain into a dense tensor of shape PhysDims.
// Its size grows exponentially with the chain length, and is meant for small chains only.
func (m *MPS) Amplitudes() *tensor.Dense {
	p := product(tensor.Zeros(1), m.sites, tensor.Zeros(1))
	return p.Reshape(m.PhysDims()...)
}

func (m *MPS) String() string {
	ss := make([]string, 0, len(m.sites))
	for _, s := range m.sites {
		ss = append(ss, fmt.Sprintf("%v", s.Shape()))
	}
	center := "none"
	if m.center != noCenter {
		center = fmt.Sprintf("%d", m.center)
	}
	return fmt.Sprintf("MPS{sites: %s, center: %s}", strings.Join(ss, " "), center)
}
