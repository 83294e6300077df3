package qtebd

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/fumin/qtebd/circuit"
	"github.com/fumin/qtebd/mat"
	"github.com/fumin/qtebd/mps"
)

func TestTransverseFieldIsing(t *testing.T) {
	t.Parallel()
	tests := []struct {
		n                [2]int
		j, h             float64
		hamiltonianShape [2]int
		hamiltonian      *mat.COO
	}{
		{
			n:                [2]int{4, 1},
			j:                1,
			h:                1,
			hamiltonianShape: [2]int{16, 16},
			hamiltonian: mat.M([][]complex128{
				{-3, -1, -1, 0, -1, 0, 0, 0, -1, 0, 0, 0, 0, 0, 0, 0},
				{-1, -1, 0, -1, 0, -1, 0, 0, 0, -1, 0, 0, 0, 0, 0, 0},
				{-1, 0, 1, -1, 0, 0, -1, 0, 0, 0, -1, 0, 0, 0, 0, 0},
				{0, -1, -1, -1, 0, 0, 0, -1, 0, 0, 0, -1, 0, 0, 0, 0},
				{-1, 0, 0, 0, 1, -1, -1, 0, 0, 0, 0, 0, -1, 0, 0, 0},
				{0, -1, 0, 0, -1, 3, 0, -1, 0, 0, 0, 0, 0, -1, 0, 0},
				{0, 0, -1, 0, -1, 0, 1, -1, 0, 0, 0, 0, 0, 0, -1, 0},
				{0, 0, 0, -1, 0, -1, -1, -1, 0, 0, 0, 0, 0, 0, 0, -1},
				{-1, 0, 0, 0, 0, 0, 0, 0, -1, -1, -1, 0, -1, 0, 0, 0},
				{0, -1, 0, 0, 0, 0, 0, 0, -1, 1, 0, -1, 0, -1, 0, 0},
				{0, 0, -1, 0, 0, 0, 0, 0, -1, 0, 3, -1, 0, 0, -1, 0},
				{0, 0, 0, -1, 0, 0, 0, 0, 0, -1, -1, 1, 0, 0, 0, -1},
				{0, 0, 0, 0, -1, 0, 0, 0, -1, 0, 0, 0, -1, -1, -1, 0},
				{0, 0, 0, 0, 0, -1, 0, 0, 0, -1, 0, 0, -1, 1, 0, -1},
				{0, 0, 0, 0, 0, 0, -1, 0, 0, 0, -1, 0, -1, 0, -1, -1},
				{0, 0, 0, 0, 0, 0, 0, -1, 0, 0, 0, -1, 0, -1, -1, -3},
			}),
		},
		{
			n:                [2]int{2, 1},
			j:                0.5,
			h:                2,
			hamiltonianShape: [2]int{4, 4},
			hamiltonian: mat.M([][]complex128{
				{-0.5, -2, -2, 0},
				{-2, 0.5, 0, -2},
				{-2, 0, 0.5, -2},
				{0, -2, -2, -0.5},
			}),
		},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%#v %#v", test.n, test.h), func(t *testing.T) {
			t.Parallel()
			hamiltonian := TransverseFieldIsing(test.n, test.j, test.h)
			if !(hamiltonian.Rows() == test.hamiltonianShape[0] && hamiltonian.Cols() == test.hamiltonianShape[1]) {
				t.Fatalf("%d %d, expected %v", hamiltonian.Rows(), hamiltonian.Cols(), test.hamiltonianShape)
			}
			if !hamiltonian.Equal(test.hamiltonian) {
				t.Fatalf("%s, expected %s", hamiltonian, test.hamiltonian)
			}
		})
	}
}

func TestEigen(t *testing.T) {
	t.Parallel()
	h := TransverseFieldIsing([2]int{8, 1}, 1, 1)
	exact, err := NewExact(h)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	vvs := exact.Eigen()

	// Check eigenvalues.
	// Values are from https://juliaphysics.github.io/PhysicsTutorials.jl/tutorials/general/quantum_ising/quantum_ising.html
	vals := []float64{-9.837951447459426, -9.46887800960621, -8.7432994871710, -8.374226049317867, -8.054998024353266, -7.685924586500063, -7.427412901942416, -7.058339464089192, -6.960346064064927, -6.881915778576785}
	for i, v := range vvs[0:10] {
		if math.Abs(v.Val-vals[i]) > 1e-6 {
			t.Fatalf("%d %v %f", i, v.Val, vals[i])
		}
	}
	vals = []float64{6.960346064064934, 7.0583394640891886, 7.427412901942393, 7.685924586500062, 8.054998024353269, 8.374226049317883, 8.74329948717109, 9.468878009606211, 9.83795144745942}
	for i, v := range vvs[len(vvs)-9:] {
		if math.Abs(v.Val-vals[i]) > 1e-6 {
			t.Fatalf("%d %v %f", i, v.Val, vals[i])
		}
	}

	// Check eigenvectors.
	var probSum float64
	for _, v := range vvs[0].Vec {
		probSum += v * v
	}
	if math.Abs(probSum-1) > 1e-6 {
		t.Fatalf("%f", probSum)
	}
	vec := []float64{0.11623105759942885, 0.030073150814502212, 0.0119388989548912, 0.01836268922781065, 0.010306563749646199, 0.0036432311839576883, 0.005695810419718821, 0.014593393364127294, 0.009913022568277332, 0.002835013679521494}
	for i, v := range vvs[0].Vec[:10] {
		if prob := v * v; math.Abs(prob-vec[i]) > 1e-6 {
			t.Fatalf("%d %v %f %f", i, v, prob, vec[i])
		}
	}
	vec = []float64{0.009913022568277134, 0.014593393364126966, 0.005695810419718817, 0.003643231183957665, 0.010306563749646001, 0.018362689227810196, 0.01193889895489093, 0.030073150814501577, 0.11623105759942208}
	for i, v := range vvs[0].Vec[len(vvs[0].Vec)-9:] {
		if prob := v * v; math.Abs(prob-vec[i]) > 1e-6 {
			t.Fatalf("%d %v %f %f", i, v, prob, vec[i])
		}
	}
}

func TestGetStatistics(t *testing.T) {
	t.Parallel()
	tests := []struct {
		h      float64
		m      [2]float64
		binder [2]float64
	}{
		// Ordered phase.
		{h: 0.05, m: [2]float64{0.99, 1}, binder: [2]float64{0.66, 0.667}},
		// Disordered phase.
		{h: 20, m: [2]float64{0, 0.4}, binder: [2]float64{-1, 0.3}},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%f", test.h), func(t *testing.T) {
			t.Parallel()
			n := [2]int{6, 1}
			exact, err := NewExact(TransverseFieldIsing(n, 1, test.h))
			if err != nil {
				t.Fatalf("%+v", err)
			}
			stats, err := GetStatistics(n, exact.Eigen())
			if err != nil {
				t.Fatalf("%+v", err)
			}
			if stats.Magnetization < test.m[0] || stats.Magnetization > test.m[1] {
				t.Fatalf("%#v", stats)
			}
			if stats.BinderCumulant < test.binder[0] || stats.BinderCumulant > test.binder[1] {
				t.Fatalf("%#v", stats)
			}
		})
	}
}

func TestMagnetizationZ(t *testing.T) {
	t.Parallel()
	// |0110> + |0101>, normalized.
	amps := make([]complex128, 16)
	amps[0b0110] = 1 / math.Sqrt2
	amps[0b0101] = 1 / math.Sqrt2
	mz, err := MagnetizationZ(amps, 4)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	expected := []float64{1, -1, 0, 0}
	for i, v := range mz {
		if math.Abs(v-expected[i]) > 1e-12 {
			t.Fatalf("%v %v", mz, expected)
		}
	}

	if _, err := MagnetizationZ(amps, 3); err == nil {
		t.Fatalf("expected error")
	}
}

// TestQuench checks the time evolution of TEBD against exact diagonalization.
func TestQuench(t *testing.T) {
	t.Parallel()
	const n, j, h = 6, 1.0, 0.8
	const dt, steps = 0.005, 100
	exact, err := NewExact(TransverseFieldIsing([2]int{n, 1}, j, h))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	psi0 := make([]complex128, 1<<n)
	psi0[0] = 1
	psi := make([]complex128, 1<<n)
	exact.Evolve(psi, psi0, dt*steps)
	expected, err := MagnetizationZ(psi, n)
	if err != nil {
		t.Fatalf("%+v", err)
	}

	c, err := circuit.IsingTrotter(n, j, h, dt, steps)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	vectors := make([][]complex64, 0, n)
	for range n {
		vectors = append(vectors, []complex64{1, 0})
	}
	state, err := mps.FromProductState(2, vectors)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if err := c.Run(state, mps.NewEvolveOptions().MaxDim(8).Canonical(true)); err != nil {
		t.Fatalf("%+v", err)
	}

	for i := range n {
		z, err := mps.NewObservable([][]complex64{{1, 0}, {0, -1}}, i)
		if err != nil {
			t.Fatalf("%+v", err)
		}
		vals, err := state.Expect(z)
		if err != nil {
			t.Fatalf("%+v", err)
		}
		if d := math.Abs(float64(real(vals[0])) - expected[i]); d > 0.03 {
			t.Fatalf("%d %v %v", i, vals[0], expected)
		}
	}
	// The evolution is far from trivial.
	if expected[0] > 0.95 {
		t.Fatalf("%v", expected)
	}

	// Energy is conserved, and the TEBD state tracks it.
	e, err := Energy(TransverseFieldIsing([2]int{n, 1}, j, h), psi)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if math.Abs(e-(-j*(n-1))) > 1e-9 {
		t.Fatalf("%f", e)
	}
	et, err := state.ExpectMPO(mps.Ising(n, j, h))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if d := math.Abs(float64(real(et)) - e); d > 0.03 {
		t.Fatalf("%v %f", et, e)
	}
}

func TestEnergy(t *testing.T) {
	t.Parallel()
	hamiltonian := TransverseFieldIsing([2]int{5, 1}, 1, 0.5)
	exact, err := NewExact(hamiltonian)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	for _, vv := range exact.Eigen()[:3] {
		psi := make([]complex128, len(vv.Vec))
		for i, x := range vv.Vec {
			// The scale and phase drop out.
			psi[i] = complex(0, 2*x)
		}
		e, err := Energy(hamiltonian, psi)
		if err != nil {
			t.Fatalf("%+v", err)
		}
		if math.Abs(e-vv.Val) > 1e-9 {
			t.Fatalf("%f, expected %f", e, vv.Val)
		}
	}

	if _, err := Energy(hamiltonian, make([]complex128, 4)); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := Energy(hamiltonian, make([]complex128, 32)); err == nil {
		t.Fatalf("expected error")
	}
}

// TestSearchGroundState checks DMRG against exact diagonalization.
func TestSearchGroundState(t *testing.T) {
	t.Parallel()
	const n = 6
	tests := []struct {
		h float64
	}{
		{h: 0.5},
		{h: 1},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%f", test.h), func(t *testing.T) {
			t.Parallel()
			exact, err := NewExact(TransverseFieldIsing([2]int{n, 1}, 1, test.h))
			if err != nil {
				t.Fatalf("%+v", err)
			}
			e0 := exact.Eigen()[0].Val

			mpo := mps.Ising(n, 1, complex(float32(test.h), 0))
			state := mps.RandMPS(mpo, 8, rand.New(rand.NewPCG(0, 0)))
			if err := state.SearchGroundState(mpo, mps.NewSearchGroundStateOptions().Tol(1e-5)); err != nil {
				t.Fatalf("%+v", err)
			}
			norm2, err := mps.Overlap(state, state)
			if err != nil {
				t.Fatalf("%+v", err)
			}
			e, err := state.ExpectMPO(mpo)
			if err != nil {
				t.Fatalf("%+v", err)
			}
			if d := math.Abs(float64(real(e/norm2)) - e0); d > 1e-3 {
				t.Fatalf("%f %f", real(e/norm2), e0)
			}
		})
	}
}

func TestMain(m *testing.M) {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds | log.Llongfile | log.LstdFlags)

	m.Run()
}
