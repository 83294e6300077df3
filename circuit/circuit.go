package circuit

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/fumin/qtebd/mps"
	"github.com/fumin/qtebd/statevec"
)

// Op is a gate operation on one or two qubits.
type Op struct {
	Name   string    `yaml:"name"`
	Sites  []int     `yaml:"sites,flow"`
	Params []float64 `yaml:"params,omitempty,flow"`

	// Unitary is a custom matrix that takes precedence over Name.
	Unitary [][]complex128 `yaml:"-"`
}

// Matrix returns the matrix of the operation, with the first site as the most significant index.
func (op Op) Matrix() ([][]complex128, error) {
	if op.Unitary != nil {
		d := 1
		for range op.Sites {
			d *= 2
		}
		if len(op.Unitary) != d {
			return nil, errors.Errorf("%s: %d rows on %d sites", op.Name, len(op.Unitary), len(op.Sites))
		}
		return op.Unitary, nil
	}

	m, qubits, err := StandardMatrix(op.Name, op.Params)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	if qubits != len(op.Sites) {
		return nil, errors.Errorf("%s acts on %d qubits, got sites %v", op.Name, qubits, op.Sites)
	}
	return m, nil
}

// Gate returns the operation as a gate of the MPS engine.
func (op Op) Gate() (mps.Gate, error) {
	m, err := op.Matrix()
	if err != nil {
		return mps.Gate{}, errors.Wrap(err, "")
	}
	g, err := mps.NewGate(to64(m), op.Sites...)
	if err != nil {
		return mps.Gate{}, errors.Wrap(err, fmt.Sprintf("%s %v", op.Name, op.Sites))
	}
	return g, nil
}

// Observable returns the operation as an observable of the MPS engine.
func (op Op) Observable() (mps.Observable, error) {
	g, err := op.Gate()
	if err != nil {
		return mps.Observable{}, errors.Wrap(err, "")
	}
	return mps.Observable(g), nil
}

func (op Op) String() string {
	if len(op.Params) == 0 {
		return fmt.Sprintf("%s%v", op.Name, op.Sites)
	}
	return fmt.Sprintf("%s%v%v", op.Name, op.Params, op.Sites)
}

// Circuit is a sequence of operations on a chain of qubits.
type Circuit struct {
	NumQubits int  `yaml:"qubits"`
	Ops       []Op `yaml:"ops"`
}

// Validate checks that every operation is a known gate on valid, distinct sites.
func (c *Circuit) Validate() error {
	if c.NumQubits < 1 {
		return errors.Errorf("%d qubits", c.NumQubits)
	}
	for i, op := range c.Ops {
		for _, s := range op.Sites {
			if s < 0 || s >= c.NumQubits {
				return errors.Errorf("op %d %v: site %d of %d", i, op, s, c.NumQubits)
			}
		}
		if len(op.Sites) == 2 && op.Sites[0] == op.Sites[1] {
			return errors.Errorf("op %d %v: repeated site", i, op)
		}
		if _, err := op.Matrix(); err != nil {
			return errors.Wrap(err, fmt.Sprintf("op %d", i))
		}
	}
	return nil
}

// Gates returns the operations as gates of the MPS engine.
func (c *Circuit) Gates() ([]mps.Gate, error) {
	gs := make([]mps.Gate, 0, len(c.Ops))
	for i, op := range c.Ops {
		g, err := op.Gate()
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("op %d", i))
		}
		gs = append(gs, g)
	}
	return gs, nil
}

// Run applies the circuit on m.
// When options claim canonical form, and the orthogonality center is too far from a gate, the center is moved by
// an exact canonicalization before the gate is retried.
func (c *Circuit) Run(m *mps.MPS, options ...mps.EvolveOptions) error {
	if m.NumSites() != c.NumQubits {
		return errors.Wrapf(mps.ErrShapeMismatch, "%d sites, %d qubits", m.NumSites(), c.NumQubits)
	}
	gs, err := c.Gates()
	if err != nil {
		return errors.Wrap(err, "")
	}
	for i, g := range gs {
		err := m.Evolve(g, options...)
		if errors.Is(err, mps.ErrPrecondition) {
			if err := m.Canonize(nearest(m, g.Sites)); err != nil {
				return errors.Wrap(err, fmt.Sprintf("op %d %v", i, c.Ops[i]))
			}
			err = m.Evolve(g, options...)
		}
		if err != nil {
			return errors.Wrap(err, fmt.Sprintf("op %d %v", i, c.Ops[i]))
		}
	}
	return nil
}

// nearest returns the site of sites closest to the orthogonality center of m.
func nearest(m *mps.MPS, sites []int) int {
	c, ok := m.Center()
	best := sites[0]
	if !ok {
		return best
	}
	for _, s := range sites[1:] {
		if distance(s, c) < distance(best, c) {
			best = s
		}
	}
	return best
}

func distance(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}

// RunExact applies the circuit on a dense state vector.
func (c *Circuit) RunExact(s *statevec.State) error {
	if s.NumSites() != c.NumQubits {
		return errors.Errorf("%d sites, %d qubits", s.NumSites(), c.NumQubits)
	}
	for i, op := range c.Ops {
		m, err := op.Matrix()
		if err != nil {
			return errors.Wrap(err, fmt.Sprintf("op %d", i))
		}
		if err := s.Apply(m, op.Sites...); err != nil {
			return errors.Wrap(err, fmt.Sprintf("op %d %v", i, op))
		}
	}
	return nil
}

// Route returns an equivalent circuit in which every two-qubit operation acts on neighbors.
// The first site of a distant operation is carried next to the second one by a chain of SWAP gates, and carried back
// afterwards.
func (c *Circuit) Route() *Circuit {
	routed := &Circuit{NumQubits: c.NumQubits, Ops: make([]Op, 0, len(c.Ops))}
	for _, op := range c.Ops {
		if len(op.Sites) != 2 || distance(op.Sites[0], op.Sites[1]) <= 1 {
			routed.Ops = append(routed.Ops, op)
			continue
		}

		a, b := op.Sites[0], op.Sites[1]
		step := 1
		if a > b {
			step = -1
		}
		swaps := make([]Op, 0)
		for s := a; s+step != b; s += step {
			swaps = append(swaps, Op{Name: GateSWAP, Sites: []int{s, s + step}})
		}
		routed.Ops = append(routed.Ops, swaps...)

		moved := op
		moved.Sites = []int{b - step, b}
		routed.Ops = append(routed.Ops, moved)

		for i := len(swaps) - 1; i >= 0; i-- {
			routed.Ops = append(routed.Ops, swaps[i])
		}
	}
	return routed
}

func to64(m [][]complex128) [][]complex64 {
	out := make([][]complex64, 0, len(m))
	for _, row := range m {
		r := make([]complex64, 0, len(row))
		for _, v := range row {
			r = append(r, complex64(v))
		}
		out = append(out, r)
	}
	return out
}
