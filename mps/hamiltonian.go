package mps

import (
	"github.com/fumin/tensor"
)

var (
	zero = [][]complex64{
		{0, 0},
		{0, 0},
	}
	identity = [][]complex64{
		{1, 0},
		{0, 1},
	}
	pauliX = [][]complex64{
		{0, 1},
		{1, 0},
	}
	pauliZ = [][]complex64{
		{1, 0},
		{0, -1},
	}
)

// MagnetizationZ returns the MPO of sum_i Z_i on a chain of n qubits.
func MagnetizationZ(n int) []*tensor.Dense {
	w := [][][][]complex64{
		{identity, zero},
		{pauliZ, identity},
	}
	return newMPO(w, n)
}

// Ising returns the MPO of the transverse field Ising Hamiltonian -j sum_i Z_i Z_{i+1} - h sum_i X_i on a chain of n qubits.
// See Section 6.1 Construction of a Hamiltonian MPO, Ulrich Schollwock.
func Ising(n int, j, h complex64) []*tensor.Dense {
	w := [][][][]complex64{
		{identity, zero, zero},
		{pauliZ, zero, zero},
		{mul(-h, pauliX), mul(-j, pauliZ), identity},
	}
	return newMPO(w, n)
}

// newMPO builds a chain of n tensors from the operator valued matrix w.
// The first tensor is the last row of w, and the last tensor is the first column of w.
func newMPO(w [][][][]complex64, n int) []*tensor.Dense {
	rows, cols := len(w), len(w[0])
	if n == 1 {
		return []*tensor.Dense{mpoTensor(w, [2]int{rows - 1, rows}, [2]int{0, 1})}
	}
	mpo := make([]*tensor.Dense, 0, n)

	mpo = append(mpo, mpoTensor(w, [2]int{rows - 1, rows}, [2]int{0, cols}))
	for range n - 2 {
		mpo = append(mpo, mpoTensor(w, [2]int{0, rows}, [2]int{0, cols}))
	}
	mpo = append(mpo, mpoTensor(w, [2]int{0, rows}, [2]int{0, 1}))
	return mpo
}

// mpoTensor returns the block w[rs[0]:rs[1], cs[0]:cs[1]] as a tensor with axes {mpoLeft, mpoRight, mpoUp, mpoDown}.
func mpoTensor(w [][][][]complex64, rs, cs [2]int) *tensor.Dense {
	d := len(w[0][0])
	t := tensor.Zeros(rs[1]-rs[0], cs[1]-cs[0], d, d)
	for a := rs[0]; a < rs[1]; a++ {
		for b := cs[0]; b < cs[1]; b++ {
			for up, row := range w[a][b] {
				for down, v := range row {
					t.SetAt([]int{a - rs[0], b - cs[0], up, down}, v)
				}
			}
		}
	}
	return t
}

func mul(c complex64, x [][]complex64) [][]complex64 {
	y := make([][]complex64, 0, len(x))
	for _, row := range x {
		r := make([]complex64, 0, len(row))
		for _, v := range row {
			r = append(r, c*v)
		}
		y = append(y, r)
	}
	return y
}
