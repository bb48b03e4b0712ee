package solver

import (
	"container/heap"
	"context"
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kosarica/purchase-optimizer/internal/mip"
)

// Solver ids of the built-in branch-and-bound solvers.
const (
	BranchAndBoundID          = "gonum-bnb"
	BestFirstBranchAndBoundID = "gonum-bnb-bestfirst"
)

// incumbentTol is the feasibility tolerance for heuristic and warm-start
// solutions.
const incumbentTol = 1e-6

// NodeOrder selects how open branch-and-bound nodes are explored.
type NodeOrder int

const (
	// DepthFirst explores the most recently created node first. It finds an
	// incumbent quickly and keeps the open list small.
	DepthFirst NodeOrder = iota

	// BestFirst explores the node with the lowest relaxation bound first.
	BestFirst

	// Hybrid dives depth-first until an incumbent exists, then switches to
	// best-first.
	Hybrid
)

// BranchAndBound solves mixed-integer models by LP-based branch-and-bound.
// Node relaxations run on a bounded-variable simplex, with gonum's
// lp.Simplex as the fallback on numerical trouble.
type BranchAndBound struct {
	id     string
	order  NodeOrder
	logger zerolog.Logger
}

// NewBranchAndBound creates a branch-and-bound solver with the given id and
// node order.
func NewBranchAndBound(id string, order NodeOrder) *BranchAndBound {
	return &BranchAndBound{
		id:     id,
		order:  order,
		logger: log.With().Str("component", "bnb").Str("solver", id).Logger(),
	}
}

// ID returns the registry identifier.
func (s *BranchAndBound) ID() string {
	return s.id
}

// node is an open subproblem. It stores only the bound it tightens; the full
// bound vectors are rebuilt from the chain of parents when it is explored.
type node struct {
	parent *node
	// branch is the tightened variable, -1 at the root.
	branch int
	lower  float64
	upper  float64
	// bound is the parent relaxation value, a lower bound for this subtree.
	bound float64
	depth int
}

// Solve runs branch-and-bound on m. opts.TimeLimit is applied as a deadline
// on ctx, so it interrupts a node relaxation as well as the search.
func (s *BranchAndBound) Solve(ctx context.Context, m *mip.Model, opts Options) (*Solution, error) {
	opts = opts.withDefaults()
	start := time.Now()
	if opts.TimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.TimeLimit)
		defer cancel()
	}

	vars := m.Vars()
	form := newLPForm(m, opts.Tolerance)
	for j, v := range vars {
		if v.IsIntegral() {
			form.lower[j] = math.Ceil(form.lower[j] - opts.IntegralityTolerance)
			form.upper[j] = math.Floor(form.upper[j] + opts.IntegralityTolerance)
		}
	}

	var (
		incumbent    []float64
		incumbentObj = math.Inf(1)
		nodes        int
	)

	result := func(status Status) *Solution {
		sol := &Solution{
			Status:   status,
			Nodes:    nodes,
			Runtime:  time.Since(start),
			SolverID: s.id,
		}
		if status == StatusOptimal {
			sol.Values = incumbent
			sol.Objective = m.Objective().Value(incumbent)
		}
		return sol
	}

	if form.infeasible {
		return result(StatusInfeasible), nil
	}

	open := newFrontier(s.order)
	accept := func(values []float64, objective float64, source string) {
		incumbent, incumbentObj = values, objective
		open.promote()
		s.logger.Debug().
			Float64("objective", objective).
			Int("nodes", nodes).
			Str("source", source).
			Msg("New incumbent")
	}
	offer := func(values []float64, source string) {
		if ok, _ := m.Feasible(values, incumbentTol); !ok {
			return
		}
		if obj := form.objective(values); improves(obj, incumbentObj) {
			accept(values, obj, source)
		}
	}

	if len(opts.Start) == len(vars) {
		offer(roundIntegral(vars, opts.Start), "start")
	}

	simplex := newBoundedSimplex(form, opts.Tolerance)
	upLock, downLock := form.locks()
	lower := make([]float64, len(vars))
	upper := make([]float64, len(vars))

	open.push(&node{branch: -1, bound: math.Inf(-1)})
	for open.len() > 0 {
		if err := ctx.Err(); err != nil {
			s.interrupted(err, nodes)
			return result(StatusNotSolved), nil
		}
		if opts.MaxNodes > 0 && nodes >= opts.MaxNodes {
			s.logger.Warn().Int("nodes", nodes).Msg("Node limit reached")
			return result(StatusNotSolved), nil
		}

		nd := open.pop()
		if !improves(nd.bound, incumbentObj) {
			continue
		}
		nodes++

		nd.bounds(form, lower, upper)
		rel, err := s.relax(ctx, simplex, form, lower, upper, opts.Tolerance)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				s.interrupted(ctxErr, nodes)
				return result(StatusNotSolved), nil
			}
			return nil, err
		}
		switch rel.status {
		case StatusInfeasible:
			continue
		case StatusUnbounded:
			// A child is a restriction of the root, so an unbounded child
			// means the relaxation of the root is unbounded too.
			return result(StatusUnbounded), nil
		}
		if !improves(rel.objective, incumbentObj) {
			continue
		}

		j, frac := branchVariable(vars, rel.values, opts.IntegralityTolerance)
		if j < 0 {
			accept(roundIntegral(vars, rel.values), rel.objective, "relaxation")
			continue
		}
		offer(roundLocked(vars, rel.values, upLock, downLock, form), "rounding")

		x := rel.values[j]
		down := nd.child(j, math.Inf(-1), math.Floor(x), rel.objective)
		up := nd.child(j, math.Ceil(x), math.Inf(1), rel.objective)

		// The last pushed child is explored first under depth-first order.
		if frac >= 0.5 {
			open.push(down)
			open.push(up)
		} else {
			open.push(up)
			open.push(down)
		}
	}

	if incumbent == nil {
		return result(StatusInfeasible), nil
	}
	s.logger.Debug().
		Float64("objective", incumbentObj).
		Int("nodes", nodes).
		Dur("runtime", time.Since(start)).
		Msg("Search complete")
	return result(StatusOptimal), nil
}

// relax solves one node relaxation, retrying on gonum's simplex when the
// bounded simplex breaks down numerically.
func (s *BranchAndBound) relax(ctx context.Context, simplex *boundedSimplex, form *lpForm, lower, upper []float64, tol float64) (relaxation, error) {
	rel, err := simplex.solve(ctx, lower, upper)
	if err == nil || !errors.Is(err, ErrNumerical) {
		return rel, err
	}
	s.logger.Debug().Err(err).Msg("Retrying node on dense simplex")
	return relaxDense(ctx, form, lower, upper, tol)
}

func (s *BranchAndBound) interrupted(err error, nodes int) {
	msg := "Solve interrupted"
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "Time limit reached"
	}
	s.logger.Warn().Err(err).Int("nodes", nodes).Msg(msg)
}

func (nd *node) child(j int, lower, upper, bound float64) *node {
	return &node{
		parent: nd,
		branch: j,
		lower:  lower,
		upper:  upper,
		bound:  bound,
		depth:  nd.depth + 1,
	}
}

// bounds writes the variable bounds of nd into lower and upper.
func (nd *node) bounds(form *lpForm, lower, upper []float64) {
	copy(lower, form.lower)
	copy(upper, form.upper)
	for p := nd; p != nil && p.branch >= 0; p = p.parent {
		lower[p.branch] = math.Max(lower[p.branch], p.lower)
		upper[p.branch] = math.Min(upper[p.branch], p.upper)
	}
}

// improves reports whether a bound can still beat the incumbent.
func improves(bound, incumbent float64) bool {
	if math.IsInf(incumbent, 1) {
		return true
	}
	eps := 1e-9 * math.Max(1, math.Abs(incumbent))
	return bound < incumbent-eps
}

// branchVariable picks the most fractional binary, or the most fractional
// general integer when every binary is integral.
func branchVariable(vars []mip.Var, values []float64, tol float64) (int, float64) {
	if j, frac := mostFractional(vars, values, tol, mip.Binary); j >= 0 {
		return j, frac
	}
	return mostFractional(vars, values, tol, mip.Integer)
}

// mostFractional returns the variable of the given kind whose value is
// farthest from an integer, with its fractional part, or -1 when all are
// integral.
func mostFractional(vars []mip.Var, values []float64, tol float64, kind mip.VarKind) (int, float64) {
	best, bestDist, bestFrac := -1, tol, 0.0
	for j, v := range vars {
		if v.Kind() != kind {
			continue
		}
		frac := values[j] - math.Floor(values[j])
		dist := math.Min(frac, 1-frac)
		if dist > bestDist {
			best, bestDist, bestFrac = j, dist, frac
		}
	}
	return best, bestFrac
}

func roundIntegral(vars []mip.Var, values []float64) []float64 {
	out := make([]float64, len(values))
	for j, v := range vars {
		if v.IsIntegral() {
			out[j] = math.Round(values[j])
		} else {
			out[j] = values[j]
		}
	}
	return out
}

// roundLocked rounds integral variables in a direction no row objects to:
// up when nothing locks an increase, down when nothing locks a decrease,
// to the nearest integer otherwise.
func roundLocked(vars []mip.Var, values []float64, upLock, downLock []bool, form *lpForm) []float64 {
	out := make([]float64, len(values))
	for j, v := range vars {
		x := values[j]
		if !v.IsIntegral() {
			out[j] = x
			continue
		}
		switch {
		case !upLock[j]:
			x = math.Ceil(x - incumbentTol)
		case !downLock[j]:
			x = math.Floor(x + incumbentTol)
		default:
			x = math.Round(x)
		}
		out[j] = math.Min(math.Max(x, form.lower[j]), form.upper[j])
	}
	return out
}

// frontier holds the open nodes.
type frontier struct {
	order NodeOrder
	best  bool
	stack []*node
	queue boundQueue
}

func newFrontier(order NodeOrder) *frontier {
	return &frontier{order: order, best: order == BestFirst}
}

// promote switches a hybrid frontier to best-first.
func (f *frontier) promote() {
	if f.order != Hybrid || f.best {
		return
	}
	f.best = true
	for _, nd := range f.stack {
		heap.Push(&f.queue, nd)
	}
	f.stack = nil
}

func (f *frontier) len() int {
	if f.best {
		return f.queue.Len()
	}
	return len(f.stack)
}

func (f *frontier) push(nd *node) {
	if f.best {
		heap.Push(&f.queue, nd)
		return
	}
	f.stack = append(f.stack, nd)
}

func (f *frontier) pop() *node {
	if f.best {
		return heap.Pop(&f.queue).(*node)
	}
	nd := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return nd
}

// boundQueue is a min-heap on node bound, deeper nodes first on ties.
type boundQueue []*node

func (q boundQueue) Len() int { return len(q) }

func (q boundQueue) Less(i, j int) bool {
	if q[i].bound != q[j].bound {
		return q[i].bound < q[j].bound
	}
	return q[i].depth > q[j].depth
}

func (q boundQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *boundQueue) Push(x any) { *q = append(*q, x.(*node)) }

func (q *boundQueue) Pop() any {
	old := *q
	nd := old[len(old)-1]
	*q = old[:len(old)-1]
	return nd
}
