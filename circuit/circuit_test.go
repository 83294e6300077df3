package circuit

import (
	"fmt"
	"math"
	"math/cmplx"
	"testing"

	"github.com/pkg/errors"

	"github.com/fumin/qtebd/linalg"
	"github.com/fumin/qtebd/mps"
	"github.com/fumin/qtebd/statevec"
)

func TestStandardMatrix(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		params []float64
		qubits int
		err    error
	}{
		{name: "i", qubits: 1},
		{name: "X", qubits: 1},
		{name: "Y", qubits: 1},
		{name: "Z", qubits: 1},
		{name: "H", qubits: 1},
		{name: "S", qubits: 1},
		{name: "T", qubits: 1},
		{name: "RX", params: []float64{0.3}, qubits: 1},
		{name: "RY", params: []float64{1.3}, qubits: 1},
		{name: "RZ", params: []float64{-2.1}, qubits: 1},
		{name: "U3", params: []float64{0.1, 0.2, 0.3}, qubits: 1},
		{name: "cx", qubits: 2},
		{name: "CZ", qubits: 2},
		{name: "SWAP", qubits: 2},
		{name: "RZZ", params: []float64{0.7}, qubits: 2},
		{name: "toffoli", err: ErrUnknownGate},
		{name: "RX", err: ErrParams},
		{name: "H", params: []float64{1}, err: ErrParams},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%s %v", test.name, test.params), func(t *testing.T) {
			t.Parallel()
			m, qubits, err := StandardMatrix(test.name, test.params)
			if test.err != nil {
				if !errors.Is(err, test.err) {
					t.Fatalf("%+v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("%+v", err)
			}
			if qubits != test.qubits {
				t.Fatalf("%d", qubits)
			}
			if err := isUnitary(m); err != nil {
				t.Fatalf("%+v", err)
			}
		})
	}
}

func TestU3(t *testing.T) {
	t.Parallel()
	// U3(theta, -pi/2, pi/2) is RX(theta).
	u, _, err := StandardMatrix(GateU3, []float64{0.9, -math.Pi / 2, math.Pi / 2})
	if err != nil {
		t.Fatalf("%+v", err)
	}
	rx, _, err := StandardMatrix(GateRX, []float64{0.9})
	if err != nil {
		t.Fatalf("%+v", err)
	}
	for i := range u {
		for j := range u[i] {
			if cmplx.Abs(u[i][j]-rx[i][j]) > 1e-12 {
				t.Fatalf("%v %v", u, rx)
			}
		}
	}
}

func TestGHZ(t *testing.T) {
	t.Parallel()
	tests := []struct {
		n         int
		canonical bool
	}{
		{n: 2, canonical: false},
		{n: 5, canonical: true},
		{n: 9, canonical: false},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%d %t", test.n, test.canonical), func(t *testing.T) {
			t.Parallel()
			m := zeroMPS(t, test.n)
			c := GHZ(test.n)
			if err := c.Run(m, mps.NewEvolveOptions().Canonical(test.canonical)); err != nil {
				t.Fatalf("%+v", err)
			}
			if m.MaxBondDim() != 2 {
				t.Fatalf("%v", m.BondDims())
			}

			for _, bit := range []int{0, 1} {
				vectors := make([][]complex64, 0, test.n)
				for range test.n {
					v := []complex64{0, 0}
					v[bit] = 1
					vectors = append(vectors, v)
				}
				basis, err := mps.FromProductState(2, vectors)
				if err != nil {
					t.Fatalf("%+v", err)
				}
				ip, err := mps.Overlap(basis, m)
				if err != nil {
					t.Fatalf("%+v", err)
				}
				if cmplx.Abs(complex128(ip)-1/math.Sqrt2) > 1e-5 {
					t.Fatalf("%d %v", bit, ip)
				}
			}
		})
	}
}

func TestRunMatchesExact(t *testing.T) {
	t.Parallel()
	ising, err := IsingTrotter(6, 1, 0.8, 0.1, 5)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	tests := []struct {
		c         *Circuit
		canonical bool
	}{
		{c: Brickwork(6, 6, 1), canonical: true},
		{c: Brickwork(7, 5, 2), canonical: false},
		{c: ising, canonical: true},
		{c: (&Circuit{NumQubits: 5, Ops: []Op{
			{Name: GateH, Sites: []int{0}},
			{Name: GateCNOT, Sites: []int{0, 4}},
			{Name: GateRY, Sites: []int{2}, Params: []float64{0.4}},
			{Name: GateCZ, Sites: []int{3, 1}},
			{Name: GateRZZ, Sites: []int{4, 0}, Params: []float64{1.1}},
		}}).Route(), canonical: true},
	}
	for i, test := range tests {
		t.Run(fmt.Sprintf("%d", i), func(t *testing.T) {
			t.Parallel()
			m := zeroMPS(t, test.c.NumQubits)
			if err := test.c.Run(m, mps.NewEvolveOptions().Canonical(test.canonical)); err != nil {
				t.Fatalf("%+v", err)
			}
			exact := zeroState(t, test.c.NumQubits)
			if err := test.c.RunExact(exact); err != nil {
				t.Fatalf("%+v", err)
			}
			if err := equal(m, exact, 1e-4); err != nil {
				t.Fatalf("%+v", err)
			}
		})
	}
}

func TestRoute(t *testing.T) {
	t.Parallel()
	c := &Circuit{NumQubits: 5, Ops: []Op{
		{Name: GateH, Sites: []int{1}},
		{Name: GateCNOT, Sites: []int{1, 4}},
		{Name: GateRX, Sites: []int{3}, Params: []float64{0.2}},
		{Name: GateCNOT, Sites: []int{3, 0}},
		{Name: GateCZ, Sites: []int{2, 3}},
	}}
	routed := c.Route()
	for _, op := range routed.Ops {
		if len(op.Sites) == 2 && distance(op.Sites[0], op.Sites[1]) != 1 {
			t.Fatalf("%v", routed.Ops)
		}
	}
	// CNOT(1, 4) needs 2 swaps before and after, and CNOT(3, 0) also 2.
	if len(routed.Ops) != len(c.Ops)+8 {
		t.Fatalf("%v", routed.Ops)
	}

	exact := zeroState(t, c.NumQubits)
	if err := c.RunExact(exact); err != nil {
		t.Fatalf("%+v", err)
	}
	exactRouted := zeroState(t, c.NumQubits)
	if err := routed.RunExact(exactRouted); err != nil {
		t.Fatalf("%+v", err)
	}
	ip, err := exact.Overlap(exactRouted)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if cmplx.Abs(ip-1) > 1e-12 {
		t.Fatalf("%v", ip)
	}

	// The engine rejects the distant gates of the original circuit.
	if err := c.Run(zeroMPS(t, c.NumQubits)); !errors.Is(err, mps.ErrAdjacency) {
		t.Fatalf("%+v", err)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		c *Circuit
	}{
		{c: &Circuit{NumQubits: 0}},
		{c: &Circuit{NumQubits: 2, Ops: []Op{{Name: GateH, Sites: []int{2}}}}},
		{c: &Circuit{NumQubits: 2, Ops: []Op{{Name: GateCNOT, Sites: []int{1, 1}}}}},
		{c: &Circuit{NumQubits: 2, Ops: []Op{{Name: GateCNOT, Sites: []int{1}}}}},
		{c: &Circuit{NumQubits: 2, Ops: []Op{{Name: "nope", Sites: []int{1}}}}},
	}
	for i, test := range tests {
		t.Run(fmt.Sprintf("%d", i), func(t *testing.T) {
			t.Parallel()
			if err := test.c.Validate(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestParseConfig(t *testing.T) {
	t.Parallel()
	data := []byte(`
qubits: 4
initial: "0110"
circuit:
  kind: ops
  ops:
    - {name: H, sites: [0]}
    - {name: CNOT, sites: [0, 3]}
    - {name: RZ, sites: [2], params: [0.5]}
maxdims: [1, 2]
renormalize: true
observables:
  - {name: Z, sites: [0]}
  - {name: CZ, sites: [1, 2]}
`)
	cfg, err := ParseConfig(data)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if cfg.Qubits != 4 || cfg.Circuit.Kind != KindOps || !cfg.Renormalize || !cfg.Canonical {
		t.Fatalf("%#v", cfg)
	}
	if fmt.Sprint(cfg.MaxDims) != "[1 2]" {
		t.Fatalf("%v", cfg.MaxDims)
	}
	if len(cfg.Observables) != 2 || cfg.Observables[1].Name != GateCZ {
		t.Fatalf("%#v", cfg.Observables)
	}
	vectors, err := cfg.InitialState()
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if vectors[1][1] != 1 || vectors[3][0] != 1 {
		t.Fatalf("%v", vectors)
	}

	c, err := cfg.Build()
	if err != nil {
		t.Fatalf("%+v", err)
	}
	// CNOT(0, 3) is routed through 2 swaps on each side.
	if len(c.Ops) != 7 {
		t.Fatalf("%v", c.Ops)
	}

	bad := [][]byte{
		[]byte("qubits: 0"),
		[]byte("qubits: 3\ninitial: \"01\""),
		[]byte("qubits: 3\nmaxdims: [-1]"),
		[]byte("qubits: 3\nobservables: [{name: Z, sites: [3]}]"),
		[]byte("qubits: ["),
	}
	for _, b := range bad {
		if _, err := ParseConfig(b); err == nil {
			t.Fatalf("%s", b)
		}
	}
}

func TestDefaultConfigBuild(t *testing.T) {
	t.Parallel()
	for _, kind := range []string{KindGHZ, KindBrickwork, KindIsing} {
		cfg := DefaultConfig()
		cfg.Circuit.Kind = kind
		c, err := cfg.Build()
		if err != nil {
			t.Fatalf("%s %+v", kind, err)
		}
		if c.NumQubits != DefaultQubits || len(c.Ops) == 0 {
			t.Fatalf("%s %#v", kind, c)
		}
	}

	cfg := DefaultConfig()
	cfg.Circuit.Kind = "nope"
	if _, err := cfg.Build(); err == nil {
		t.Fatalf("expected error")
	}
}

func zeroMPS(t *testing.T, n int) *mps.MPS {
	vectors := make([][]complex64, 0, n)
	for range n {
		vectors = append(vectors, []complex64{1, 0})
	}
	m, err := mps.FromProductState(2, vectors)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	return m
}

func zeroState(t *testing.T, n int) *statevec.State {
	dims := make([]int, n)
	for i := range dims {
		dims[i] = 2
	}
	s, err := statevec.New(dims...)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	return s
}

func equal(m *mps.MPS, exact *statevec.State, tol float64) error {
	for ijk, v := range m.Amplitudes().All() {
		w := exact.At(ijk...)
		if cmplx.Abs(complex128(v)-w) > tol {
			return errors.Errorf("%v %v %v", ijk, v, w)
		}
	}
	return nil
}

func isUnitary(m [][]complex128) error {
	u := linalg.FromSlice2(m)
	uh := linalg.NewGeneral(u.Cols, u.Rows)
	for i := range u.Rows {
		for j := range u.Cols {
			uh.Data[j*uh.Stride+i] = cmplx.Conj(u.Data[i*u.Stride+j])
		}
	}
	p := linalg.Mul(uh, u)
	for i := range p.Rows {
		for j := range p.Cols {
			var expected complex128
			if i == j {
				expected = 1
			}
			if cmplx.Abs(p.Data[i*p.Stride+j]-expected) > 1e-12 {
				return errors.Errorf("%v", m)
			}
		}
	}
	return nil
}
