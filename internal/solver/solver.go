// Package solver is the boundary between a built mip.Model and the algorithm
// that solves it. Solve outcomes are reported as a Status; an error is
// returned only when the backend itself breaks down.
package solver

import (
	"context"
	"errors"
	"time"

	"github.com/kosarica/purchase-optimizer/internal/mip"
)

var (
	// ErrUnknownSolver is returned when a solver id is not registered.
	ErrUnknownSolver = errors.New("solver: unknown solver")

	// ErrNumerical is returned when the LP backend fails for numeric reasons
	// (singular basis, Bland's rule breakdown) rather than infeasibility.
	ErrNumerical = errors.New("solver: numerical failure")
)

// Status is the outcome of a solve.
type Status int

const (
	// StatusNotSolved means no proven optimum: not attempted, or interrupted
	// by a limit or cancellation.
	StatusNotSolved Status = iota
	StatusOptimal
	StatusInfeasible
	StatusUnbounded
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	default:
		return "not_solved"
	}
}

// MarshalText encodes the status as its string form.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Options tunes a solve. Zero limits mean "no limit".
type Options struct {
	// Tolerance is the simplex optimality tolerance on reduced costs.
	Tolerance float64 `mapstructure:"tolerance"`

	// IntegralityTolerance is how far from an integer a value may be and
	// still count as integral.
	IntegralityTolerance float64 `mapstructure:"integrality_tolerance"`

	// MaxNodes caps the number of branch-and-bound nodes.
	MaxNodes int `mapstructure:"max_nodes"`

	// TimeLimit caps wall-clock time spent in the solve.
	TimeLimit time.Duration `mapstructure:"time_limit"`

	// Start is an optional assignment indexed by mip.Var.Index. When it is
	// feasible it becomes the first incumbent.
	Start []float64 `mapstructure:"-"`
}

// DefaultOptions returns the default solve options.
func DefaultOptions() Options {
	return Options{
		Tolerance:            1e-10,
		IntegralityTolerance: 1e-6,
		MaxNodes:             100000,
		TimeLimit:            30 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Tolerance <= 0 {
		o.Tolerance = d.Tolerance
	}
	if o.IntegralityTolerance <= 0 {
		o.IntegralityTolerance = d.IntegralityTolerance
	}
	return o
}

// Solution is a solve outcome. Values is indexed by mip.Var.Index and is
// only set when Status is StatusOptimal.
type Solution struct {
	Status    Status
	Objective float64
	Values    []float64
	Nodes     int
	Runtime   time.Duration
	SolverID  string
}

// IsOptimal returns true if the solution is a proven optimum.
func (s *Solution) IsOptimal() bool {
	return s != nil && s.Status == StatusOptimal
}

// HasValues returns true if a variable assignment is available.
func (s *Solution) HasValues() bool {
	return s != nil && len(s.Values) > 0
}

// Value returns the value of v, or 0 when the solution has no values.
func (s *Solution) Value(v mip.Var) float64 {
	if !s.HasValues() || v.Index() >= len(s.Values) {
		return 0
	}
	return s.Values[v.Index()]
}

// Solver solves a model.
type Solver interface {
	// ID returns the registry identifier of the solver.
	ID() string

	// Solve runs the solver to completion, a limit, or ctx cancellation.
	Solve(ctx context.Context, m *mip.Model, opts Options) (*Solution, error)
}
