// Package qtebd computes exact reference results of the transverse field Ising model, against which the matrix
// product state simulations in package mps are checked.
package qtebd

import (
	"math"
	"math/cmplx"
	"strconv"

	"github.com/pkg/errors"

	"github.com/fumin/qtebd/mat"
)

// TransverseFieldIsing returns the Hamiltonian -j sum_<ab> Z_a Z_b - h sum_a X_a on a lattice of n[0] rows and n[1] columns.
// Spins are numbered in row major order, with spin 0 as the most significant index of the basis.
func TransverseFieldIsing(n [2]int, j, h float64) *mat.COO {
	numSpins := n[0] * n[1]
	hamiltonian := mat.COOZeros(1<<numSpins, 1<<numSpins)
	buf := mat.COOZeros(1, 1)

	for y := 0; y < n[0]; y++ {
		for x := 0; x < n[1]; x++ {
			up := y - 1
			if up >= 0 {
				coupling(hamiltonian, n, [2]int{up, x}, [2]int{y, x}, j, buf)
			}

			left := x - 1
			if left >= 0 {
				coupling(hamiltonian, n, [2]int{y, left}, [2]int{y, x}, j, buf)
			}

			magnetic(hamiltonian, n, [2]int{y, x}, h, buf)
		}
	}
	return hamiltonian
}

func coupling(hamiltonian *mat.COO, n [2]int, i [2]int, k [2]int, j float64, system *mat.COO) {
	system.Scalar(1)
	for y := 0; y < n[0]; y++ {
		for x := 0; x < n[1]; x++ {
			yx := [2]int{y, x}

			switch {
			case yx == i || yx == k:
				system.Kron(mat.M(mat.PauliZ))
			default:
				system.Kron(identity)
			}
		}
	}

	hamiltonian.Add(complex(-j, 0), system)
}

func magnetic(hamiltonian *mat.COO, n [2]int, i [2]int, h float64, system *mat.COO) {
	system.Scalar(1)
	for y := 0; y < n[0]; y++ {
		for x := 0; x < n[1]; x++ {
			yx := [2]int{y, x}
			switch {
			case yx == i:
				system.Kron(mat.M(mat.PauliX))
			default:
				system.Kron(identity)
			}
		}
	}

	hamiltonian.Add(complex(-h, 0), system)
}

var identity = mat.COOIdentity(2)

// Exact evolves states with the full eigen decomposition of a real symmetric Hamiltonian.
type Exact struct {
	vvs []mat.ValVec
}

// NewExact diagonalizes the Hamiltonian h.
func NewExact(h *mat.COO) (*Exact, error) {
	vvs, err := h.EigenSym()
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	return &Exact{vvs: vvs}, nil
}

// Eigen returns the eigenvalues and eigenvectors in increasing order of eigenvalues.
func (e *Exact) Eigen() []mat.ValVec { return e.vvs }

// Evolve sets dst = exp(-i t H) psi.
func (e *Exact) Evolve(dst, psi []complex128, t float64) {
	clear(dst)
	for _, vv := range e.vvs {
		// c is <v|psi>, since eigenvectors are real.
		var c complex128
		for k, x := range vv.Vec {
			c += complex(x, 0) * psi[k]
		}
		c *= cmplx.Exp(complex(0, -t*vv.Val))
		for k, x := range vv.Vec {
			dst[k] += c * complex(x, 0)
		}
	}
}

// Energy returns <psi|h|psi> / <psi|psi>.
func Energy(h *mat.COO, psi []complex128) (float64, error) {
	if h.Rows() != len(psi) || h.Cols() != len(psi) {
		return 0, errors.Errorf("%dx%d %d", h.Rows(), h.Cols(), len(psi))
	}
	hpsi := make([]complex128, len(psi))
	h.MulVec(hpsi, psi)
	var e, norm2 complex128
	for i, x := range psi {
		e += cmplx.Conj(x) * hpsi[i]
		norm2 += cmplx.Conj(x) * x
	}
	if norm2 == 0 {
		return 0, errors.Errorf("zero state")
	}
	return real(e / norm2), nil
}

// MagnetizationZ returns <Z_i> of each spin of a state of numSpins spins.
func MagnetizationZ(amps []complex128, numSpins int) ([]float64, error) {
	if len(amps) != 1<<numSpins {
		return nil, errors.Errorf("%d %d", len(amps), 1<<numSpins)
	}
	mz := make([]float64, numSpins)
	for i, state := range bits(numSpins) {
		a := amps[i]
		p := real(a)*real(a) + imag(a)*imag(a)
		for s, b := range state {
			switch b {
			case 0:
				mz[s] += p
			default:
				mz[s] -= p
			}
		}
	}
	return mz, nil
}

// Statistics are ground state properties of the Ising model.
type Statistics struct {
	EigenValue     []float64
	Magnetization  float64
	BinderCumulant float64
}

// GetStatistics computes the magnetization and Binder cumulant of the ground state.
// Since the two ground states of the ordered phase are degenerate, the magnetization of a basis state is counted with
// the sign of its majority of spins.
func GetStatistics(n [2]int, vvs []mat.ValVec) (Statistics, error) {
	var stats Statistics
	for _, vv := range vvs {
		stats.EigenValue = append(stats.EigenValue, vv.Val)
	}
	ground := vvs[0]
	numSpins := n[0] * n[1]
	if len(ground.Vec) != 1<<numSpins {
		return Statistics{}, errors.Errorf("%d %d", len(ground.Vec), 1<<numSpins)
	}
	// spinUpBasis is the basis where the majority of spins are up.
	spinUpBasis := make([]int8, numSpins)
	var totalProb float64
	var m2 float64
	for i, fullBasis := range bits(numSpins) {
		pickSpinUp(spinUpBasis, fullBasis)
		amplitude := ground.Vec[i]
		probability := amplitude * amplitude

		var basisM float64
		for _, spin := range spinUpBasis {
			basisM += float64(spin)
		}

		totalProb += probability
		stats.Magnetization += probability * basisM
		stats.BinderCumulant += probability * math.Pow(basisM, 4)
		m2 += probability * math.Pow(basisM, 2)
	}
	if math.Abs(totalProb-1) > 1e-3 {
		return Statistics{}, errors.Errorf("%f", totalProb)
	}

	stats.Magnetization /= float64(numSpins)
	stats.BinderCumulant /= (m2 * m2)
	stats.BinderCumulant = 1 - stats.BinderCumulant/3
	return stats, nil
}

func pickSpinUp(upState []int8, state []byte) {
	ups := 0
	for _, b := range state {
		if b == 1 {
			ups++
		}
	}

	downs := len(state) - ups
	switch {
	case ups < downs:
		for i, b := range state {
			switch b {
			case 0:
				upState[i] = 1
			default:
				upState[i] = -1
			}
		}
	default:
		for i, b := range state {
			switch b {
			case 0:
				upState[i] = -1
			default:
				upState[i] = 1
			}
		}
	}
}

// bits iterates over the basis states of n spins, where bit 1 is spin down.
func bits(n int) func(yield func(int, []byte) bool) {
	state := make([]byte, n)
	return func(yield func(int, []byte) bool) {
		numStates := 1 << n
		for i := range numStates {
			indexBit(state, n, i)
			if !yield(i, state) {
				return
			}
		}
	}
}

func indexBit(state []byte, n, i int) {
	stateStr := strconv.FormatInt(int64(i), 2)

	state = state[:0]
	// Pad zeros in front.
	for j := 0; j < n-len(stateStr); j++ {
		state = append(state, 0)
	}
	for _, bit := range []byte(stateStr) {
		state = append(state, bit-'0')
	}
}
