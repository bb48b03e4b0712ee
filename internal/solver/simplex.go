package solver

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/kosarica/purchase-optimizer/internal/mip"
)

const (
	primalTol = 1e-9
	pivotTol  = 1e-9
	ratioTie  = 1e-12

	// checkEvery is the number of pivots between context checks.
	checkEvery = 32
)

type colState uint8

const (
	atLower colState = iota
	atUpper
	basic
)

// boundedSimplex is a dense-tableau primal simplex that keeps variable bounds
// out of the constraint matrix. A nonbasic column sits at one of its finite
// bounds; when the entering column reaches its opposite bound before any
// basic column leaves, the step is a bound flip instead of a pivot.
//
// Tableau columns are laid out as n structurals, one slack per row, one
// artificial per row and the transformed right-hand side. The workspace is
// allocated once per solve and reloaded for every node.
type boundedSimplex struct {
	form  *lpForm
	m, n  int
	width int

	tab   []float64
	x     []float64
	lo    []float64
	hi    []float64
	cost  []float64
	d     []float64
	state []colState
	basis []int
	moved []int

	dualTol float64
	feasTol float64
}

func newBoundedSimplex(form *lpForm, tol float64) *boundedSimplex {
	m, n := len(form.rows), form.n
	cols := n + 2*m
	maxRHS := 0.0
	for _, r := range form.rows {
		maxRHS = math.Max(maxRHS, math.Abs(r.rhs))
	}
	return &boundedSimplex{
		form:    form,
		m:       m,
		n:       n,
		width:   cols + 1,
		tab:     make([]float64, m*(cols+1)),
		x:       make([]float64, cols),
		lo:      make([]float64, cols),
		hi:      make([]float64, cols),
		cost:    make([]float64, cols),
		d:       make([]float64, cols),
		state:   make([]colState, cols),
		basis:   make([]int, m),
		dualTol: math.Max(tol, 1e-9),
		feasTol: 1e-7 * (1 + maxRHS),
	}
}

func (s *boundedSimplex) row(i int) []float64 {
	return s.tab[i*s.width : (i+1)*s.width]
}

func (s *boundedSimplex) cols() int { return s.width - 1 }

// solve minimizes the form objective with structural bounds lower and upper.
// It returns ctx.Err() when interrupted and wraps ErrNumerical when the
// tableau degrades.
func (s *boundedSimplex) solve(ctx context.Context, lower, upper []float64) (relaxation, error) {
	ok, err := s.load(lower, upper)
	if err != nil {
		return relaxation{}, err
	}
	if !ok {
		return relaxation{status: StatusInfeasible}, nil
	}

	art := s.n + s.m
	if s.artificials() {
		clear(s.cost)
		for i := 0; i < s.m; i++ {
			if s.hi[art+i] > 0 {
				s.cost[art+i] = 1
			}
		}
		status, err := s.iterate(ctx)
		if err != nil {
			return relaxation{}, err
		}
		if status != StatusOptimal {
			return relaxation{}, fmt.Errorf("%w: phase one ended %s", ErrNumerical, status)
		}
		infeasibility := 0.0
		for i := 0; i < s.m; i++ {
			infeasibility += s.x[art+i]
		}
		if infeasibility > s.feasTol {
			return relaxation{status: StatusInfeasible}, nil
		}
		for i := 0; i < s.m; i++ {
			a := art + i
			s.hi[a] = 0
			if s.state[a] != basic {
				s.x[a], s.state[a] = 0, atLower
			}
		}
		s.updateBasics()
	}

	clear(s.cost)
	copy(s.cost, s.form.cost)
	status, err := s.iterate(ctx)
	if err != nil {
		return relaxation{}, err
	}
	if status == StatusUnbounded {
		return relaxation{status: StatusUnbounded}, nil
	}

	values := make([]float64, s.n)
	for j := range values {
		values[j] = math.Min(math.Max(s.x[j], s.lo[j]), s.hi[j])
	}
	if name := s.form.violated(values, 1e-6); name != "" {
		return relaxation{}, fmt.Errorf("%w: row %s violated at the simplex optimum", ErrNumerical, name)
	}
	return relaxation{status: StatusOptimal, objective: s.form.objective(values), values: values}, nil
}

// load resets the tableau to the slack basis for the given bounds. Rows whose
// residual the slack cannot absorb start with their artificial basic.
func (s *boundedSimplex) load(lower, upper []float64) (bool, error) {
	n, m := s.n, s.m
	for j := 0; j < n; j++ {
		lo, hi := lower[j], upper[j]
		if lo > hi {
			if lo-hi > primalTol {
				return false, nil
			}
			hi = lo
		}
		s.lo[j], s.hi[j] = lo, hi
		switch {
		case !math.IsInf(lo, -1):
			s.x[j], s.state[j] = lo, atLower
		case !math.IsInf(hi, 1):
			s.x[j], s.state[j] = hi, atUpper
		default:
			return false, fmt.Errorf("%w: variable %s has no finite bound", ErrNumerical, s.form.names[j])
		}
	}

	for i, r := range s.form.rows {
		sl, art := n+i, n+m+i
		s.x[sl], s.x[art] = 0, 0
		s.lo[art], s.hi[art], s.state[art] = 0, 0, atLower
		switch r.sense {
		case mip.LessThanOrEqual:
			s.lo[sl], s.hi[sl], s.state[sl] = 0, math.Inf(1), atLower
		case mip.GreaterThanOrEqual:
			s.lo[sl], s.hi[sl], s.state[sl] = math.Inf(-1), 0, atUpper
		default:
			s.lo[sl], s.hi[sl], s.state[sl] = 0, 0, atLower
		}

		row := s.row(i)
		clear(row)
		residual := r.rhs
		for k, j := range r.index {
			row[j] = r.coef[k]
			residual -= r.coef[k] * s.x[j]
		}
		row[sl] = 1
		row[s.width-1] = r.rhs

		if residual >= s.lo[sl]-primalTol && residual <= s.hi[sl]+primalTol {
			s.basis[i], s.state[sl] = sl, basic
			continue
		}
		s.hi[art] = math.Inf(1)
		s.basis[i], s.state[art] = art, basic
		row[art] = 1
		if residual < 0 {
			floats.Scale(-1, row)
			row[art] = 1
		}
	}
	s.updateBasics()
	return true, nil
}

func (s *boundedSimplex) artificials() bool {
	for i := 0; i < s.m; i++ {
		if s.hi[s.n+s.m+i] > 0 {
			return true
		}
	}
	return false
}

// updateBasics recomputes basic values from the transformed right-hand side
// and the current nonbasic values.
func (s *boundedSimplex) updateBasics() {
	s.moved = s.moved[:0]
	for j := 0; j < s.cols(); j++ {
		if s.state[j] != basic && s.x[j] != 0 {
			s.moved = append(s.moved, j)
		}
	}
	for i := 0; i < s.m; i++ {
		row := s.row(i)
		v := row[s.width-1]
		for _, j := range s.moved {
			v -= row[j] * s.x[j]
		}
		s.x[s.basis[i]] = v
	}
}

func (s *boundedSimplex) iterate(ctx context.Context) (Status, error) {
	cols := s.cols()
	limit := 50*(s.m+cols) + 1000
	degenerate := 0

	for iter := 0; ; iter++ {
		if iter%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return StatusNotSolved, err
			}
		}
		if iter > limit {
			return StatusNotSolved, fmt.Errorf("%w: no convergence after %d pivots", ErrNumerical, limit)
		}

		copy(s.d, s.cost)
		for i := 0; i < s.m; i++ {
			if cb := s.cost[s.basis[i]]; cb != 0 {
				floats.AddScaled(s.d, -cb, s.row(i)[:cols])
			}
		}
		// Fall back to the lowest eligible index while stalling.
		enter, dir := s.price(degenerate > s.m)
		if enter < 0 {
			return StatusOptimal, nil
		}

		step := s.hi[enter] - s.lo[enter]
		leave, pivot := -1, 0.0
		for i := 0; i < s.m; i++ {
			alpha := s.row(i)[enter] * dir
			b := s.basis[i]
			var t float64
			switch {
			case alpha > pivotTol && !math.IsInf(s.lo[b], -1):
				t = (s.x[b] - s.lo[b]) / alpha
			case alpha < -pivotTol && !math.IsInf(s.hi[b], 1):
				t = (s.hi[b] - s.x[b]) / -alpha
			default:
				continue
			}
			t = math.Max(t, 0)
			if t < step-ratioTie || (leave >= 0 && t <= step+ratioTie && math.Abs(alpha) > math.Abs(pivot)) {
				step, leave, pivot = t, i, alpha
			}
		}
		if math.IsInf(step, 1) {
			return StatusUnbounded, nil
		}
		if step <= primalTol {
			degenerate++
		} else {
			degenerate = 0
		}

		if leave < 0 {
			if s.state[enter] == atLower {
				s.x[enter], s.state[enter] = s.hi[enter], atUpper
			} else {
				s.x[enter], s.state[enter] = s.lo[enter], atLower
			}
			s.updateBasics()
			continue
		}

		b := s.basis[leave]
		if pivot > 0 {
			s.x[b], s.state[b] = s.lo[b], atLower
		} else {
			s.x[b], s.state[b] = s.hi[b], atUpper
		}
		s.state[enter] = basic
		s.basis[leave] = enter
		s.pivot(leave, enter)
		s.updateBasics()
	}
}

// price picks the entering column and its direction: +1 to rise from the
// lower bound, -1 to fall from the upper bound. It returns -1 at optimality.
func (s *boundedSimplex) price(bland bool) (int, float64) {
	enter, dir, best := -1, 0.0, 0.0
	for j := 0; j < s.cols(); j++ {
		if s.state[j] == basic || s.hi[j] <= s.lo[j] {
			continue
		}
		dj := s.d[j]
		var score, sign float64
		switch {
		case s.state[j] == atLower && dj < -s.dualTol:
			score, sign = -dj, 1
		case s.state[j] == atUpper && dj > s.dualTol:
			score, sign = dj, -1
		default:
			continue
		}
		if bland {
			return j, sign
		}
		if score > best {
			enter, dir, best = j, sign, score
		}
	}
	return enter, dir
}

func (s *boundedSimplex) pivot(r, j int) {
	pr := s.row(r)
	floats.Scale(1/pr[j], pr)
	pr[j] = 1
	for i := 0; i < s.m; i++ {
		if i == r {
			continue
		}
		ri := s.row(i)
		if f := ri[j]; f != 0 {
			floats.AddScaled(ri, -f, pr)
			ri[j] = 0
		}
	}
}
