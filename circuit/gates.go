// Package circuit describes quantum circuits as sequences of gate operations, and runs them on matrix product states.
package circuit

import (
	"fmt"
	"math"
	"math/cmplx"
	"strings"

	"github.com/pkg/errors"
)

// Names of the standard gates.
const (
	GateI    = "I"
	GateX    = "X"
	GateY    = "Y"
	GateZ    = "Z"
	GateH    = "H"
	GateS    = "S"
	GateT    = "T"
	GateRX   = "RX"
	GateRY   = "RY"
	GateRZ   = "RZ"
	GateU3   = "U3"
	GateCNOT = "CNOT"
	GateCZ   = "CZ"
	GateSWAP = "SWAP"
	GateRZZ  = "RZZ"
)

var (
	// ErrUnknownGate reports a gate name that is not a standard gate.
	ErrUnknownGate = errors.New("unknown gate")
	// ErrParams reports a wrong number of gate parameters.
	ErrParams = errors.New("wrong number of parameters")
)

type gateDef struct {
	qubits int
	params int
	matrix func(p []float64) [][]complex128
}

var gates = map[string]gateDef{
	GateI: {qubits: 1, matrix: func([]float64) [][]complex128 { return [][]complex128{{1, 0}, {0, 1}} }},
	GateX: {qubits: 1, matrix: func([]float64) [][]complex128 { return [][]complex128{{0, 1}, {1, 0}} }},
	GateY: {qubits: 1, matrix: func([]float64) [][]complex128 { return [][]complex128{{0, -1i}, {1i, 0}} }},
	GateZ: {qubits: 1, matrix: func([]float64) [][]complex128 { return [][]complex128{{1, 0}, {0, -1}} }},
	GateH: {qubits: 1, matrix: func([]float64) [][]complex128 {
		return [][]complex128{{1 / math.Sqrt2, 1 / math.Sqrt2}, {1 / math.Sqrt2, -1 / math.Sqrt2}}
	}},
	GateS: {qubits: 1, matrix: func([]float64) [][]complex128 { return [][]complex128{{1, 0}, {0, 1i}} }},
	GateT: {qubits: 1, matrix: func([]float64) [][]complex128 {
		return [][]complex128{{1, 0}, {0, cmplx.Exp(1i * math.Pi / 4)}}
	}},
	GateRX: {qubits: 1, params: 1, matrix: func(p []float64) [][]complex128 {
		c, s := complex(math.Cos(p[0]/2), 0), complex(math.Sin(p[0]/2), 0)
		return [][]complex128{{c, -1i * s}, {-1i * s, c}}
	}},
	GateRY: {qubits: 1, params: 1, matrix: func(p []float64) [][]complex128 {
		c, s := complex(math.Cos(p[0]/2), 0), complex(math.Sin(p[0]/2), 0)
		return [][]complex128{{c, -s}, {s, c}}
	}},
	GateRZ: {qubits: 1, params: 1, matrix: func(p []float64) [][]complex128 {
		return [][]complex128{{phase(-p[0] / 2), 0}, {0, phase(p[0] / 2)}}
	}},
	GateU3: {qubits: 1, params: 3, matrix: u3},
	GateCNOT: {qubits: 2, matrix: func([]float64) [][]complex128 {
		return [][]complex128{{1, 0, 0, 0}, {0, 1, 0, 0}, {0, 0, 0, 1}, {0, 0, 1, 0}}
	}},
	GateCZ: {qubits: 2, matrix: func([]float64) [][]complex128 {
		return [][]complex128{{1, 0, 0, 0}, {0, 1, 0, 0}, {0, 0, 1, 0}, {0, 0, 0, -1}}
	}},
	GateSWAP: {qubits: 2, matrix: func([]float64) [][]complex128 {
		return [][]complex128{{1, 0, 0, 0}, {0, 0, 1, 0}, {0, 1, 0, 0}, {0, 0, 0, 1}}
	}},
	GateRZZ: {qubits: 2, params: 1, matrix: func(p []float64) [][]complex128 {
		a, b := phase(-p[0]/2), phase(p[0]/2)
		return [][]complex128{{a, 0, 0, 0}, {0, b, 0, 0}, {0, 0, b, 0}, {0, 0, 0, a}}
	}},
}

var aliases = map[string]string{
	"CX": GateCNOT,
	"ID": GateI,
	"U":  GateU3,
}

// StandardMatrix returns the matrix of a standard gate and the number of qubits it acts on.
// Names are case insensitive.
func StandardMatrix(name string, params []float64) ([][]complex128, int, error) {
	key := strings.ToUpper(name)
	if a, ok := aliases[key]; ok {
		key = a
	}
	def, ok := gates[key]
	if !ok {
		return nil, 0, errors.Wrap(ErrUnknownGate, name)
	}
	if len(params) != def.params {
		return nil, 0, errors.Wrap(ErrParams, fmt.Sprintf("%s expects %d, got %d", name, def.params, len(params)))
	}
	return def.matrix(params), def.qubits, nil
}

// u3 is the general single qubit rotation U3(theta, phi, lambda).
func u3(p []float64) [][]complex128 {
	theta, phi, lambda := p[0], p[1], p[2]
	c, s := complex(math.Cos(theta/2), 0), complex(math.Sin(theta/2), 0)
	return [][]complex128{
		{c, -phase(lambda) * s},
		{phase(phi) * s, phase(phi+lambda) * c},
	}
}

func phase(theta float64) complex128 {
	return cmplx.Exp(complex(0, theta))
}
