package linalg

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/cblas128"
)

// Mul returns a @ b.
func Mul(a, b cblas128.General) cblas128.General {
	if a.Cols != b.Rows {
		panic(fmt.Sprintf("%d %d", a.Cols, b.Rows))
	}
	c := NewGeneral(a.Rows, b.Cols)
	cblas128.Gemm(blas.NoTrans, blas.NoTrans, 1, a, b, 0, c)
	return c
}

// Kron returns the Kronecker product of a and b.
func Kron(a, b cblas128.General) cblas128.General {
	c := NewGeneral(a.Rows*b.Rows, a.Cols*b.Cols)
	for i := range a.Rows {
		for j := range a.Cols {
			aij := a.Data[i*a.Stride+j]
			for k := range b.Rows {
				for l := range b.Cols {
					c.Data[(i*b.Rows+k)*c.Stride+j*b.Cols+l] = aij * b.Data[k*b.Stride+l]
				}
			}
		}
	}
	return c
}

// FromSlice2 copies a dense [][]complex128 into a row major matrix.
func FromSlice2(rows [][]complex128) cblas128.General {
	g := NewGeneral(len(rows), len(rows[0]))
	for i, row := range rows {
		copy(g.Data[i*g.Stride:i*g.Stride+g.Cols], row)
	}
	return g
}

// ToSlice2 copies a row major matrix into a dense [][]complex128.
func ToSlice2(g cblas128.General) [][]complex128 {
	rows := make([][]complex128, g.Rows)
	for i := range rows {
		rows[i] = make([]complex128, g.Cols)
		copy(rows[i], g.Data[i*g.Stride:i*g.Stride+g.Cols])
	}
	return rows
}
