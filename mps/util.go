package mps

import (
	"fmt"
	"math"
	"math/cmplx"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/fumin/tensor"
	"gonum.org/v1/gonum/blas/cblas128"

	"github.com/fumin/qtebd/linalg"
)

// toGeneral copies a into a rows x cols matrix, flattening a in row major order.
func toGeneral(a *tensor.Dense, rows, cols int) cblas128.General {
	shape := a.Shape()
	strides := make([]int, len(shape))
	stride := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= shape[i]
	}
	if stride != rows*cols {
		panic(fmt.Sprintf("%#v %d %d", shape, rows, cols))
	}

	g := linalg.NewGeneral(rows, cols)
	for ijk, v := range a.All() {
		var flat int
		for i, d := range ijk {
			flat += d * strides[i]
		}
		g.Data[flat] = complex128(v)
	}
	return g
}

// dot returns sum_ijk a[ijk] * b[ijk].
func dot(a, b *tensor.Dense) complex64 {
	var s complex64
	for ijk, v := range a.All() {
		s += v * b.At(ijk...)
	}
	return s
}

func frobenius(a *tensor.Dense) float64 {
	var n2 float64
	for _, v := range a.All() {
		n2 += float64(real(v)*real(v) + imag(v)*imag(v))
	}
	return math.Sqrt(n2)
}

func scale(a *tensor.Dense, c complex64) {
	for ijk, v := range a.All() {
		a.SetAt(ijk, c*v)
	}
}

func product(p *tensor.Dense, ms []*tensor.Dense, buf *tensor.Dense) *tensor.Dense {
	// mmi is the product of m0 @ m1 @ ... mi.
	mmi := resetCopy(p, ms[0])
	mmiPrev := buf
	for _, mi := range ms[1:] {
		mmi, mmiPrev = mmiPrev, mmi
		axes := [][2]int{{len(mmiPrev.Shape()) - 1, mpsLeftAxis}}
		tensor.Contract(mmi, mmiPrev, mi, axes)
	}

	if mmi == buf {
		resetCopy(p, mmi)
	}
	return p
}

func format(a *tensor.Dense) string {
	shapeStrs := make([]string, 0, len(a.Shape()))
	for _, d := range a.Shape() {
		shapeStrs = append(shapeStrs, strconv.Itoa(d))
	}
	shapeS := strings.Join(shapeStrs, ",")

	ss := make([]string, 0)
	for _, v := range a.All() {
		s := fmt.Sprintf("%v", v)
		s = strings.ReplaceAll(s, "i", "j")
		ss = append(ss, s)
	}
	s := strings.Join(ss, ",")

	return fmt.Sprintf("[%s][%s]", shapeS, s)
}

func resetCopy(dst, src *tensor.Dense) *tensor.Dense {
	shape := src.Shape()
	zeroDigit := make([]int, len(shape))
	dst.Reset(shape...).Set(zeroDigit, src)
	return dst
}

func ones(t *tensor.Dense, shape ...int) *tensor.Dense {
	t.Reset(shape...)
	for ijk := range t.All() {
		t.SetAt(ijk, 1)
	}
	return t
}

func abs(x complex64) float32 {
	return float32(cmplx.Abs(complex128(x)))
}

func randTensor(rng *rand.Rand, shape ...int) *tensor.Dense {
	t := tensor.Zeros(shape...)
	for ijk := range t.All() {
		v := complex(rng.Float32()*2-1, rng.Float32()*2-1)
		t.SetAt(ijk, v)
	}
	return t
}
