// Package mat implements sparse matrices in coordinate format, for building exact Hamiltonians of small lattices.
package mat

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

var (
	PauliX = [][]complex128{
		{0, 1},
		{1, 0},
	}
	PauliY = [][]complex128{
		{0, -1i},
		{1i, 0},
	}
	PauliZ = [][]complex128{
		{1, 0},
		{0, -1},
	}
)

type entry struct {
	v   complex128
	row int
	col int
}

// COO is a sparse matrix in coordinate format, with entries sorted in row major order.
type COO struct {
	rows int
	cols int
	data []entry

	// m is a scratch index of another matrix's entries.
	m map[[2]int]complex128
}

// M creates a sparse matrix from a dense one.
func M(dense [][]complex128) *COO {
	m := &COO{rows: len(dense), cols: len(dense[0])}
	for i, row := range dense {
		for j, v := range row {
			if v == 0 {
				continue
			}
			m.data = append(m.data, entry{v: v, row: i, col: j})
		}
	}
	return m
}

// COOZeros returns a zero matrix.
func COOZeros(rows, cols int) *COO {
	m := &COO{}
	m.Zeros(rows, cols)
	return m
}

// COOIdentity returns the identity matrix.
func COOIdentity(rows int) *COO {
	m := COOZeros(rows, rows)
	for i := 0; i < rows; i++ {
		m.data = append(m.data, entry{v: 1, row: i, col: i})
	}
	return m
}

func (m *COO) Rows() int { return m.rows }
func (m *COO) Cols() int { return m.cols }

// NumNonZero returns the number of stored entries.
func (m *COO) NumNonZero() int { return len(m.data) }

// Zeros resets m to a zero matrix.
func (m *COO) Zeros(rows, cols int) {
	m.rows, m.cols = rows, cols
	m.data = m.data[:0]
}

// Scalar resets m to a 1x1 matrix.
func (m *COO) Scalar(v complex128) {
	m.rows, m.cols = 1, 1
	m.data = m.data[:0]
	m.data = append(m.data, entry{v: v, row: 0, col: 0})
}

// At returns the element at row i and column j.
func (m *COO) At(i, j int) complex128 {
	k, ok := slices.BinarySearchFunc(m.data, entry{row: i, col: j}, rowMajor)
	if !ok {
		return 0
	}
	return m.data[k].v
}

func (a *COO) Equal(b *COO) bool {
	if a.rows != b.rows {
		return false
	}
	if a.cols != b.cols {
		return false
	}
	if len(a.data) != len(b.data) {
		return false
	}
	for i, av := range a.data {
		bv := b.data[i]
		if av != bv {
			return false
		}
	}
	return true
}

// Add sets a = a + c*b.
// b may also be a scalar, or a column vector which is broadcast over the nonzero entries of a.
func (a *COO) Add(c complex128, b *COO) {
	full := b.rows == a.rows && b.cols == a.cols
	bm := b.index()
	for i, av := range a.data {
		byx := broadcast(a, b, av)
		bv := bm[byx]
		if full {
			delete(bm, byx)
		}

		a.data[i].v = av.v + c*bv
	}

	a.data = slices.DeleteFunc(a.data, func(v entry) bool {
		return v.v == 0
	})
	// Entries of b absent from a.
	if full {
		for yx, bv := range bm {
			a.data = append(a.data, entry{v: c * bv, row: yx[0], col: yx[1]})
		}
	}
	slices.SortFunc(a.data, rowMajor)
	clear(bm)
}

// Kron sets a to the Kronecker product of a and b.
func (a *COO) Kron(b *COO) {
	rows := a.rows * b.rows
	cols := a.cols * b.cols
	a.rows, a.cols = rows, cols

	prevElemNum := len(a.data)
	for i := prevElemNum - 1; i >= 0; i-- {
		av := a.data[i]
		a.data[i].v = 0
		for _, bv := range b.data {
			ky := av.row*b.rows + bv.row
			kx := av.col*b.cols + bv.col
			a.data = append(a.data, entry{v: av.v * bv.v, row: ky, col: kx})
		}
	}

	a.data = slices.DeleteFunc(a.data, func(v entry) bool {
		return v.v == 0
	})
	slices.SortFunc(a.data, rowMajor)
}

// MulVec sets dst = m @ x.
func (m *COO) MulVec(dst, x []complex128) {
	if len(x) != m.cols || len(dst) != m.rows {
		panic(fmt.Sprintf("%dx%d %d %d", m.rows, m.cols, len(x), len(dst)))
	}
	clear(dst)
	for _, v := range m.data {
		dst[v.row] += v.v * x[v.col]
	}
}

func (m *COO) String() string {
	lines := []string{}
	for i := 0; i < m.rows; i++ {
		cs := []string{}
		for j := 0; j < m.cols; j++ {
			v := m.At(i, j)
			switch {
			case imag(v) == 0:
				cs = append(cs, format(real(v)))
			case real(v) == 0:
				cs = append(cs, format(imag(v))+"i")
			default:
				cs = append(cs, format(real(v))+"+"+format(imag(v))+"i")
			}
		}
		l := strings.Join(cs, "\t")
		lines = append(lines, l)
	}
	return strings.Join(lines, "\n")
}

// ValVec is an eigenvalue and its eigenvector.
type ValVec struct {
	Val float64
	Vec []float64
}

// EigenSym returns the eigen decomposition of a real symmetric matrix, in increasing order of eigenvalues.
func (m *COO) EigenSym() ([]ValVec, error) {
	if m.rows != m.cols {
		return nil, errors.Errorf("%dx%d", m.rows, m.cols)
	}
	sym := mat.NewSymDense(m.rows, nil)
	for _, v := range m.data {
		if imag(v.v) != 0 {
			return nil, errors.Errorf("not real %v at (%d, %d)", v.v, v.row, v.col)
		}
		if m.At(v.col, v.row) != v.v {
			return nil, errors.Errorf("not symmetric at (%d, %d)", v.row, v.col)
		}
		sym.SetSym(v.row, v.col, real(v.v))
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(sym, true); !ok {
		return nil, errors.Errorf("eigen decomposition failed")
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	vvs := make([]ValVec, 0, len(vals))
	for i, v := range vals {
		vec := make([]float64, 0, m.rows)
		for j := 0; j < m.rows; j++ {
			vec = append(vec, vecs.At(j, i))
		}
		vvs = append(vvs, ValVec{Val: v, Vec: vec})
	}
	slices.SortStableFunc(vvs, func(a, b ValVec) int { return cmp.Compare(a.Val, b.Val) })

	return vvs, nil
}

// index fills the scratch index of m with its entries.
func (m *COO) index() map[[2]int]complex128 {
	if m.m == nil {
		m.m = make(map[[2]int]complex128, len(m.data))
	}
	clear(m.m)
	for _, v := range m.data {
		m.m[[2]int{v.row, v.col}] = v.v
	}
	return m.m
}

// broadcast returns the position in b that pairs with the entry av of a.
func broadcast(a, b *COO, av entry) [2]int {
	switch {
	case b.rows == 1 && b.cols == 1:
		return [2]int{0, 0}
	case b.rows == a.rows && b.cols == 1:
		return [2]int{av.row, 0}
	case b.rows == a.rows && b.cols == a.cols:
		return [2]int{av.row, av.col}
	default:
		panic(fmt.Sprintf("wrong dimensions %dx%d %dx%d", a.rows, a.cols, b.rows, b.cols))
	}
}

func rowMajor(a, b entry) int {
	if c := cmp.Compare(a.row, b.row); c != 0 {
		return c
	}
	return cmp.Compare(a.col, b.col)
}

func format(v float64) string {
	// If v is 0 or -0, return "0" immediately to avoid returning "-0".
	if v == 0 {
		return " 0"
	}

	s := fmt.Sprintf("%v", v)

	// Add a space before non-negative numbers to align with other negative numbers in the same column.
	if v >= 0 {
		s = " " + s
	}

	return s
}
