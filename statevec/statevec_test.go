package statevec

import (
	"fmt"
	"math"
	"math/cmplx"
	"testing"
)

var (
	hadamard = [][]complex128{
		{1 / math.Sqrt2, 1 / math.Sqrt2},
		{1 / math.Sqrt2, -1 / math.Sqrt2},
	}
	cnot = [][]complex128{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 0, 1},
		{0, 0, 1, 0},
	}
)

func TestApply(t *testing.T) {
	t.Parallel()
	type gate struct {
		m     [][]complex128
		sites []int
	}
	tests := []struct {
		n     int
		gates []gate
		amps  map[[3]int]complex128
	}{
		{
			n:     3,
			gates: []gate{{m: hadamard, sites: []int{0}}},
			amps:  map[[3]int]complex128{{0, 0, 0}: 1 / math.Sqrt2, {1, 0, 0}: 1 / math.Sqrt2},
		},
		{
			n:     3,
			gates: []gate{{m: hadamard, sites: []int{0}}, {m: cnot, sites: []int{0, 1}}, {m: cnot, sites: []int{1, 2}}},
			amps:  map[[3]int]complex128{{0, 0, 0}: 1 / math.Sqrt2, {1, 1, 1}: 1 / math.Sqrt2},
		},
		{
			n:     3,
			gates: []gate{{m: hadamard, sites: []int{2}}, {m: cnot, sites: []int{2, 0}}},
			amps:  map[[3]int]complex128{{0, 0, 0}: 1 / math.Sqrt2, {1, 0, 1}: 1 / math.Sqrt2},
		},
	}
	for i, test := range tests {
		t.Run(fmt.Sprintf("%d", i), func(t *testing.T) {
			t.Parallel()
			s, err := New(2, 2, 2)
			if err != nil {
				t.Fatalf("%+v", err)
			}
			for _, g := range test.gates {
				if err := s.Apply(g.m, g.sites...); err != nil {
					t.Fatalf("%+v", err)
				}
			}
			for a := range 2 {
				for b := range 2 {
					for c := range 2 {
						expected := test.amps[[3]int{a, b, c}]
						if v := s.At(a, b, c); cmplx.Abs(v-expected) > 1e-12 {
							t.Fatalf("%d%d%d %v %v", a, b, c, v, expected)
						}
					}
				}
			}
			if n := s.Norm(); math.Abs(n-1) > 1e-12 {
				t.Fatalf("%f", n)
			}
		})
	}
}

func TestFromProduct(t *testing.T) {
	t.Parallel()
	s, err := FromProduct([][]complex128{{0, 1}, {1 / math.Sqrt2, 1i / math.Sqrt2}})
	if err != nil {
		t.Fatalf("%+v", err)
	}
	expected := []complex128{0, 0, 1 / math.Sqrt2, 1i / math.Sqrt2}
	for i, v := range s.Amplitudes() {
		if cmplx.Abs(v-expected[i]) > 1e-12 {
			t.Fatalf("%d %v %v", i, v, expected[i])
		}
	}

	z, err := s.Expect([][]complex128{{1, 0}, {0, -1}}, 0)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if cmplx.Abs(z+1) > 1e-12 {
		t.Fatalf("%v", z)
	}
}

func TestApplyErrors(t *testing.T) {
	t.Parallel()
	s, err := New(2, 2)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	tests := []struct {
		m     [][]complex128
		sites []int
	}{
		{m: hadamard, sites: []int{2}},
		{m: cnot, sites: []int{0, 0}},
		{m: cnot, sites: []int{0}},
		{m: [][]complex128{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}, sites: []int{1}},
	}
	for i, test := range tests {
		t.Run(fmt.Sprintf("%d", i), func(t *testing.T) {
			t.Parallel()
			if err := s.Clone().Apply(test.m, test.sites...); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
