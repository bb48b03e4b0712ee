package solver

import (
	"fmt"
	"sort"
	"sync"
)

// Registry manages solver registration and retrieval
type Registry struct {
	mu        sync.RWMutex
	solvers   map[string]Solver
	defaultID string
}

// NewRegistry creates an empty registry whose default is defaultID.
func NewRegistry(defaultID string) *Registry {
	return &Registry{
		solvers:   make(map[string]Solver),
		defaultID: defaultID,
	}
}

// NewDefaultRegistry creates a registry with the built-in solvers, hybrid
// branch-and-bound as default.
func NewDefaultRegistry() *Registry {
	r := NewRegistry(BranchAndBoundID)
	r.Register(NewBranchAndBound(BranchAndBoundID, Hybrid))
	r.Register(NewBranchAndBound(BestFirstBranchAndBoundID, BestFirst))
	return r
}

// Register registers a solver under its ID, replacing any previous one.
func (r *Registry) Register(s Solver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.solvers[s.ID()] = s
}

// Get retrieves a solver by id. An empty id selects the default solver.
func (r *Registry) Get(id string) (Solver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if id == "" {
		id = r.defaultID
	}
	s, ok := r.solvers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSolver, id)
	}
	return s, nil
}

// Default returns the id used when none is given.
func (r *Registry) Default() string {
	return r.defaultID
}

// Available returns the registered solver ids, sorted.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.solvers))
	for id := range r.solvers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// IsRegistered checks if a solver id is registered
func (r *Registry) IsRegistered(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.solvers[id]
	return ok
}
