package circuit

import (
	"math"
	"math/rand/v2"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/fumin/qtebd/linalg"
)

// GHZ returns the circuit that prepares (|0...0> + |1...1>) / sqrt(2) from |0...0>.
func GHZ(n int) *Circuit {
	c := &Circuit{NumQubits: n}
	c.Ops = append(c.Ops, Op{Name: GateH, Sites: []int{0}})
	for i := range n - 1 {
		c.Ops = append(c.Ops, Op{Name: GateCNOT, Sites: []int{i, i + 1}})
	}
	return c
}

// Brickwork returns depth layers of random U3 rotations followed by CNOTs on alternating bonds.
// Even layers sweep the bonds {0, 1}, {2, 3}... left to right, and odd layers sweep the bonds {1, 2}, {3, 4}... right to left,
// so that consecutive gates stay close to each other.
func Brickwork(n, depth int, seed uint64) *Circuit {
	rng := rand.New(rand.NewPCG(seed, seed))
	randU3 := func(site int) Op {
		params := []float64{rng.Float64() * math.Pi, rng.Float64() * 2 * math.Pi, rng.Float64() * 2 * math.Pi}
		return Op{Name: GateU3, Sites: []int{site}, Params: params}
	}

	c := &Circuit{NumQubits: n}
	for layer := range depth {
		for _, i := range layerBonds(n, layer) {
			c.Ops = append(c.Ops, randU3(i), randU3(i+1), Op{Name: GateCNOT, Sites: []int{i, i + 1}})
		}
	}
	return c
}

// layerBonds returns the left sites of the bonds of a brickwork layer, in sweep order.
func layerBonds(n, layer int) []int {
	bonds := make([]int, 0, n/2)
	switch layer % 2 {
	case 0:
		for i := 0; i+1 < n; i += 2 {
			bonds = append(bonds, i)
		}
	default:
		start := n - 2
		if start%2 == 0 {
			start--
		}
		for i := start; i >= 1; i -= 2 {
			bonds = append(bonds, i)
		}
	}
	return bonds
}

// IsingTrotter returns the first order Trotter decomposition of exp(-i t H), t = dt * steps, for the transverse field
// Ising Hamiltonian H = -j sum_i Z_i Z_{i+1} - h sum_i X_i.
// Each step applies exp(-i dt H_b) on the even bonds, and then on the odd bonds, where H_b is the bond Hamiltonian
// that carries the share of the field of its two sites.
func IsingTrotter(n int, j, h, dt float64, steps int) (*Circuit, error) {
	if n < 2 {
		return nil, errors.Errorf("%d qubits", n)
	}

	// Bond gates differ only at the ends of the chain, where a site belongs to a single bond.
	us := make(map[[2]float64][][]complex128)
	bondGate := func(i int) (Op, error) {
		wl, wr := 0.5, 0.5
		if i == 0 {
			wl = 1
		}
		if i == n-2 {
			wr = 1
		}
		key := [2]float64{wl, wr}
		u, ok := us[key]
		if !ok {
			g, err := linalg.ExpSym(isingBond(j, h*wl, h*wr), dt)
			if err != nil {
				return Op{}, errors.Wrap(err, "")
			}
			u = linalg.ToSlice2(g)
			us[key] = u
		}
		return Op{Name: "ising", Sites: []int{i, i + 1}, Params: []float64{j, h, dt}, Unitary: u}, nil
	}

	c := &Circuit{NumQubits: n}
	for range steps {
		for layer := range 2 {
			for _, i := range layerBonds(n, layer) {
				op, err := bondGate(i)
				if err != nil {
					return nil, errors.Wrap(err, "")
				}
				c.Ops = append(c.Ops, op)
			}
		}
	}
	return c, nil
}

// isingBond returns -j Z⊗Z - hl X⊗I - hr I⊗X.
func isingBond(j, hl, hr float64) *mat.SymDense {
	b := mat.NewSymDense(4, nil)
	// Z⊗Z is diagonal.
	for k, z := range []float64{1, -1, -1, 1} {
		b.SetSym(k, k, -j*z)
	}
	// X⊗I flips the left qubit, and I⊗X the right one.
	b.SetSym(0, 2, -hl)
	b.SetSym(1, 3, -hl)
	b.SetSym(0, 1, -hr)
	b.SetSym(2, 3, -hr)
	return b
}
