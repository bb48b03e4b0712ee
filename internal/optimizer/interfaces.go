package optimizer

import (
	"context"
)

// Optimizer is the main interface for purchase optimization operations.
type Optimizer interface {
	// Optimize builds, solves and extracts one problem. solverID selects a
	// registered solver; empty selects the configured default.
	Optimize(ctx context.Context, p *Problem, solverID string) (*Result, error)

	// Solvers lists the ids of the available solvers.
	Solvers() []string
}
