package mps

import (
	"github.com/pkg/errors"

	"github.com/fumin/qtebd/linalg"
)

// Errors returned by the engine are wrapped with context, test them with errors.Is.
var (
	// ErrDimension reports a gate or local vector whose dimension does not match the site.
	ErrDimension = errors.New("dimension mismatch")
	// ErrShapeMismatch reports states or observables with incompatible site counts or dimensions.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrAdjacency reports a two-site gate on sites that are not neighbors.
	ErrAdjacency = errors.New("sites not adjacent")
	// ErrPrecondition reports a claim of canonical form that does not hold where the gate acts.
	ErrPrecondition = errors.New("precondition violated")
	// ErrNumerical reports a decomposition that failed or produced non-finite numbers.
	ErrNumerical = linalg.ErrNumerical
)
