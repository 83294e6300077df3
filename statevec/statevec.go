// Package statevec is an exact dense state vector simulator, used as a reference for small chains.
// Amplitudes are stored with site 0 as the most significant index.
package statevec

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/blas/cblas128"
)

// State is a dense state vector of a chain of sites.
type State struct {
	dims []int
	amps []complex128
}

// New returns the state |0...0> on sites of the given physical dimensions.
func New(dims ...int) (*State, error) {
	size := 1
	for i, d := range dims {
		if d < 1 {
			return nil, errors.Errorf("site %d has dimension %d", i, d)
		}
		size *= d
	}
	if len(dims) == 0 {
		return nil, errors.Errorf("no sites")
	}
	s := &State{dims: append([]int(nil), dims...), amps: make([]complex128, size)}
	s.amps[0] = 1
	return s, nil
}

// FromProduct returns the product of the local vectors.
func FromProduct(vectors [][]complex128) (*State, error) {
	dims := make([]int, 0, len(vectors))
	for _, v := range vectors {
		dims = append(dims, len(v))
	}
	s, err := New(dims...)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}

	s.amps = s.amps[:1]
	s.amps[0] = 1
	for _, v := range vectors {
		next := make([]complex128, 0, len(s.amps)*len(v))
		for _, a := range s.amps {
			for _, b := range v {
				next = append(next, a*b)
			}
		}
		s.amps = next
	}
	return s, nil
}

// Clone returns a deep copy of s.
func (s *State) Clone() *State {
	return &State{dims: append([]int(nil), s.dims...), amps: append([]complex128(nil), s.amps...)}
}

// NumSites returns the number of sites.
func (s *State) NumSites() int { return len(s.dims) }

// Dims returns the physical dimension of each site.
func (s *State) Dims() []int { return append([]int(nil), s.dims...) }

// Amplitudes returns the amplitudes, which are owned by s.
func (s *State) Amplitudes() []complex128 { return s.amps }

// At returns the amplitude of a basis state.
func (s *State) At(digits ...int) complex128 {
	var idx int
	for i, d := range digits {
		idx = idx*s.dims[i] + d
	}
	return s.amps[idx]
}

// Overlap returns <s|t>.
func (s *State) Overlap(t *State) (complex128, error) {
	if len(s.amps) != len(t.amps) {
		return 0, errors.Errorf("%v %v", s.dims, t.dims)
	}
	return cblas128.Dotc(vector(s.amps), vector(t.amps)), nil
}

// Norm returns sqrt(<s|s>).
func (s *State) Norm() float64 {
	return cblas128.Nrm2(vector(s.amps))
}

// Normalize rescales s to unit norm.
func (s *State) Normalize() error {
	n := s.Norm()
	if n == 0 || math.IsNaN(n) {
		return errors.Errorf("norm %f", n)
	}
	cblas128.Dscal(1/n, vector(s.amps))
	return nil
}

// Apply applies the matrix m on the given sites, which need not be adjacent.
// Rows and columns of m are ordered with the first site as the most significant index.
func (s *State) Apply(m [][]complex128, sites ...int) error {
	offsets, err := s.offsets(m, sites)
	if err != nil {
		return errors.Wrap(err, "")
	}

	strides := s.strides()
	in := make([]complex128, len(offsets))
	out := make([]complex128, len(offsets))
	for base := range s.amps {
		if !s.isBase(strides, base, sites) {
			continue
		}
		for a, off := range offsets {
			in[a] = s.amps[base+off]
		}
		for r, row := range m {
			var v complex128
			for c, x := range row {
				v += x * in[c]
			}
			out[r] = v
		}
		for a, off := range offsets {
			s.amps[base+off] = out[a]
		}
	}
	return nil
}

// Expect returns <s|m|s>.
func (s *State) Expect(m [][]complex128, sites ...int) (complex128, error) {
	t := s.Clone()
	if err := t.Apply(m, sites...); err != nil {
		return 0, errors.Wrap(err, "")
	}
	v, err := s.Overlap(t)
	if err != nil {
		return 0, errors.Wrap(err, "")
	}
	return v, nil
}

func (s *State) strides() []int {
	strides := make([]int, len(s.dims))
	stride := 1
	for i := len(s.dims) - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= s.dims[i]
	}
	return strides
}

// offsets returns the amplitude offsets of every combination of digits on sites, in the row order of m.
func (s *State) offsets(m [][]complex128, sites []int) ([]int, error) {
	strides := s.strides()
	offsets := []int{0}
	seen := make(map[int]bool)
	for _, site := range sites {
		if site < 0 || site >= len(s.dims) {
			return nil, errors.Errorf("site %d of %d", site, len(s.dims))
		}
		if seen[site] {
			return nil, errors.Errorf("repeated site %v", sites)
		}
		seen[site] = true

		next := make([]int, 0, len(offsets)*s.dims[site])
		for _, off := range offsets {
			for d := range s.dims[site] {
				next = append(next, off+d*strides[site])
			}
		}
		offsets = next
	}

	if len(m) != len(offsets) {
		return nil, errors.Errorf("matrix of %d rows on sites %v of dimension %d", len(m), sites, len(offsets))
	}
	for i, row := range m {
		if len(row) != len(offsets) {
			return nil, errors.Errorf("matrix row %d has %d columns on sites %v of dimension %d", i, len(row), sites, len(offsets))
		}
	}
	return offsets, nil
}

// isBase reports whether the digits of idx on sites are all zero.
func (s *State) isBase(strides []int, idx int, sites []int) bool {
	for _, site := range sites {
		if (idx/strides[site])%s.dims[site] != 0 {
			return false
		}
	}
	return true
}

func vector(data []complex128) cblas128.Vector {
	return cblas128.Vector{N: len(data), Inc: 1, Data: data}
}
