package mps

import (
	"fmt"
	"math/cmplx"

	"github.com/fumin/tensor"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/cblas128"

	"github.com/fumin/qtebd/linalg"
)

// Role is the role of a tensor axis.
type Role int

const (
	// Left is the bond to the left neighbor of a site.
	Left Role = iota
	// Phys is the physical index of a site.
	Phys
	// Right is the bond to the right neighbor of a site.
	Right
	// Out is the output physical index of a gate.
	Out
	// In is the input physical index of a gate, contracted with Phys.
	In
)

func (r Role) String() string {
	switch r {
	case Left:
		return "left"
	case Phys:
		return "phys"
	case Right:
		return "right"
	case Out:
		return "out"
	case In:
		return "in"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// Axis tags a tensor axis with its role and the site it belongs to.
type Axis struct {
	Role Role
	Site int
}

// Gate is a dense operator on one site, or two adjacent sites.
// T has the axes Axes, which are the output indices of each site followed by the input indices of each site.
type Gate struct {
	Sites []int
	T     *tensor.Dense
	Axes  []Axis
}

// NewGate creates a gate from a square matrix acting on the tensor product of the sites.
// Rows and columns are ordered with the first site as the most significant index.
func NewGate(m [][]complex64, sites ...int) (Gate, error) {
	if len(sites) < 1 || len(sites) > 2 {
		return Gate{}, errors.Wrapf(ErrDimension, "%d sites", len(sites))
	}
	dim := len(m)
	for i, row := range m {
		if len(row) != dim {
			return Gate{}, errors.Wrapf(ErrDimension, "row %d has %d columns, expected %d", i, len(row), dim)
		}
	}
	d := dim
	if len(sites) == 2 {
		d = isqrt(dim)
		if d*d != dim {
			return Gate{}, errors.Wrapf(ErrDimension, "%d is not a square of a local dimension", dim)
		}
	}
	if d < 1 {
		return Gate{}, errors.Wrap(ErrDimension, "empty matrix")
	}

	var t *tensor.Dense
	switch len(sites) {
	case 1:
		t = tensor.Zeros(d, d)
		for i, row := range m {
			for j, v := range row {
				t.SetAt([]int{i, j}, v)
			}
		}
	default:
		t = tensor.Zeros(d, d, d, d)
		for i, row := range m {
			for j, v := range row {
				t.SetAt([]int{i / d, i % d, j / d, j % d}, v)
			}
		}
	}
	return newGate(t, sites), nil
}

// NewGateTensor creates a gate from a tensor with axes {out_0, [out_1,] in_0, [in_1]}.
func NewGateTensor(t *tensor.Dense, sites ...int) (Gate, error) {
	if len(sites) < 1 || len(sites) > 2 {
		return Gate{}, errors.Wrapf(ErrDimension, "%d sites", len(sites))
	}
	if len(t.Shape()) != 2*len(sites) {
		return Gate{}, errors.Wrapf(ErrDimension, "shape %v for %d sites", t.Shape(), len(sites))
	}
	return newGate(t, sites), nil
}

func newGate(t *tensor.Dense, sites []int) Gate {
	g := Gate{Sites: append([]int(nil), sites...), T: t}
	for _, s := range sites {
		g.Axes = append(g.Axes, Axis{Role: Out, Site: s})
	}
	for _, s := range sites {
		g.Axes = append(g.Axes, Axis{Role: In, Site: s})
	}
	return g
}

// inDims returns the input dimension of each site.
func (g Gate) inDims() []int {
	shape := g.T.Shape()
	return shape[len(g.Sites):]
}

// outDims returns the output dimension of each site.
func (g Gate) outDims() []int {
	shape := g.T.Shape()
	return shape[:len(g.Sites)]
}

// matrix returns the gate as a matrix from the inputs to the outputs.
func (g Gate) matrix() cblas128.General {
	rows, cols := 1, 1
	for _, d := range g.outDims() {
		rows *= d
	}
	for _, d := range g.inDims() {
		cols *= d
	}
	return toGeneral(g.T, rows, cols)
}

// IsUnitary reports whether the gate is a unitary operator, up to single precision.
func (g Gate) IsUnitary() bool {
	u := g.matrix()
	if u.Rows != u.Cols {
		return false
	}
	uhu := linalg.NewGeneral(u.Cols, u.Cols)
	cblas128.Gemm(blas.ConjTrans, blas.NoTrans, 1, u, u, 0, uhu)
	for i := range uhu.Rows {
		for j := range uhu.Cols {
			var expected complex128
			if i == j {
				expected = 1
			}
			if cmplx.Abs(uhu.Data[i*uhu.Stride+j]-expected) > 1e-5 {
				return false
			}
		}
	}
	return true
}

// Observable is a gate-shaped operator whose expectation value is measured.
type Observable Gate

// NewObservable creates an observable from a square matrix acting on the tensor product of the sites.
func NewObservable(m [][]complex64, sites ...int) (Observable, error) {
	g, err := NewGate(m, sites...)
	if err != nil {
		return Observable{}, errors.Wrap(err, "")
	}
	return Observable(g), nil
}

func isqrt(n int) int {
	r := 0
	for (r+1)*(r+1) <= n {
		r++
	}
	return r
}
