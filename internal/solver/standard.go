package solver

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/kosarica/purchase-optimizer/internal/mip"
)

// relaxation is the result of solving the LP relaxation of a node.
// objective is in minimization form: the model objective negated for
// maximization problems, offset included.
type relaxation struct {
	status    Status
	objective float64
	values    []float64
}

// lpForm is the row skeleton of a model, built once per solve. Terms on the
// same variable are merged, rows with a single term are folded into that
// variable's bounds and rows with no term are checked on the spot.
type lpForm struct {
	n      int
	names  []string
	cost   []float64
	offset float64
	rows   []lpRow
	lower  []float64
	upper  []float64

	// infeasible is set when a constant row fails.
	infeasible bool
}

type lpRow struct {
	name  string
	index []int
	coef  []float64
	sense mip.Sense
	rhs   float64
}

func newLPForm(m *mip.Model, tol float64) *lpForm {
	n := m.NumVars()
	sign := 1.0
	if m.Objective().Sense() == mip.Maximize {
		sign = -1.0
	}
	f := &lpForm{
		n:      n,
		names:  make([]string, n),
		cost:   m.Objective().Coefficients(n),
		offset: sign * m.Objective().Offset(),
		lower:  make([]float64, n),
		upper:  make([]float64, n),
	}
	for j, v := range m.Vars() {
		f.names[j] = v.Name()
		f.lower[j] = v.Lower()
		f.upper[j] = v.Upper()
		f.cost[j] *= sign
	}

	acc := make([]float64, n)
	seen := make([]bool, n)
	for _, c := range m.Constraints() {
		var touched []int
		for _, t := range c.Terms() {
			j := t.Var.Index()
			if !seen[j] {
				seen[j] = true
				touched = append(touched, j)
			}
			acc[j] += t.Coefficient
		}
		r := lpRow{name: c.Name(), sense: c.Sense(), rhs: c.RHS()}
		for _, j := range touched {
			if acc[j] != 0 {
				r.index = append(r.index, j)
				r.coef = append(r.coef, acc[j])
			}
			acc[j], seen[j] = 0, false
		}

		switch len(r.index) {
		case 0:
			if !constantRowHolds(r.sense, r.rhs, tol) {
				f.infeasible = true
			}
		case 1:
			f.tighten(r.index[0], r.coef[0], r.sense, r.rhs)
		default:
			f.rows = append(f.rows, r)
		}
	}
	return f
}

// tighten applies the single-term row a·x[j] sense rhs as a bound on x[j].
func (f *lpForm) tighten(j int, a float64, sense mip.Sense, rhs float64) {
	v := rhs / a
	if a < 0 {
		switch sense {
		case mip.LessThanOrEqual:
			sense = mip.GreaterThanOrEqual
		case mip.GreaterThanOrEqual:
			sense = mip.LessThanOrEqual
		}
	}
	switch sense {
	case mip.LessThanOrEqual:
		f.upper[j] = math.Min(f.upper[j], v)
	case mip.GreaterThanOrEqual:
		f.lower[j] = math.Max(f.lower[j], v)
	default:
		f.lower[j] = math.Max(f.lower[j], v)
		f.upper[j] = math.Min(f.upper[j], v)
	}
}

func (f *lpForm) objective(values []float64) float64 {
	return f.offset + floats.Dot(f.cost, values)
}

// violated returns the name of the first multi-term row that values break by
// more than tol relative to its right-hand side, or "".
func (f *lpForm) violated(values []float64, tol float64) string {
	for _, r := range f.rows {
		a := 0.0
		for k, j := range r.index {
			a += r.coef[k] * values[j]
		}
		eps := tol * (1 + math.Abs(r.rhs))
		switch r.sense {
		case mip.LessThanOrEqual:
			if a > r.rhs+eps {
				return r.name
			}
		case mip.GreaterThanOrEqual:
			if a < r.rhs-eps {
				return r.name
			}
		default:
			if math.Abs(a-r.rhs) > eps {
				return r.name
			}
		}
	}
	return ""
}

// locks reports for each variable whether raising (up) or lowering (down) it
// can break some row.
func (f *lpForm) locks() (up, down []bool) {
	up, down = make([]bool, f.n), make([]bool, f.n)
	for _, r := range f.rows {
		for k, j := range r.index {
			positive := r.coef[k] > 0
			if r.sense != mip.GreaterThanOrEqual {
				if positive {
					up[j] = true
				} else {
					down[j] = true
				}
			}
			if r.sense != mip.LessThanOrEqual {
				if positive {
					down[j] = true
				} else {
					up[j] = true
				}
			}
		}
	}
	return up, down
}

// relaxDense solves the node relaxation with gonum's lp.Simplex. It is the
// fallback when the bounded simplex reports a numerical failure. lp.Simplex
// cannot be interrupted, so it runs in its own goroutine and relaxDense
// returns as soon as ctx is done.
func relaxDense(ctx context.Context, form *lpForm, lower, upper []float64, tol float64) (relaxation, error) {
	type outcome struct {
		rel relaxation
		err error
	}
	lo := append([]float64(nil), lower...)
	hi := append([]float64(nil), upper...)
	done := make(chan outcome, 1)
	go func() {
		rel, err := denseRelax(form, lo, hi, tol)
		done <- outcome{rel: rel, err: err}
	}()

	select {
	case <-ctx.Done():
		return relaxation{}, ctx.Err()
	case o := <-done:
		return o.rel, o.err
	}
}

// denseRelax rewrites the node into the standard form lp.Simplex expects,
// minimize cᵀy s.t. Ay = b, y ≥ 0:
//   - each variable is shifted by its lower bound, x = lower + y;
//   - a finite upper bound becomes the row y + s = upper - lower;
//   - ≤ rows get a +1 slack, ≥ rows a -1 slack;
//   - rows are negated where needed so that b ≥ 0.
//
// Columns that appear in no row are fixed at their lower bound, since
// lp.Simplex rejects them.
func denseRelax(form *lpForm, lower, upper []float64, tol float64) (relaxation, error) {
	n := form.n
	constant := form.offset
	for j := 0; j < n; j++ {
		if math.IsInf(lower[j], -1) {
			return relaxation{}, fmt.Errorf("%w: variable %s has no finite lower bound", ErrNumerical, form.names[j])
		}
		if lower[j] > upper[j]+primalTol {
			return relaxation{status: StatusInfeasible}, nil
		}
		constant += form.cost[j] * lower[j]
	}

	type row struct {
		coef  map[int]float64
		sense mip.Sense
		rhs   float64
	}
	rows := make([]row, 0, len(form.rows)+n)
	used := make([]bool, n)
	for _, r := range form.rows {
		coef := make(map[int]float64, len(r.index))
		rhs := r.rhs
		for k, j := range r.index {
			coef[j] = r.coef[k]
			rhs -= r.coef[k] * lower[j]
			used[j] = true
		}
		rows = append(rows, row{coef: coef, sense: r.sense, rhs: rhs})
	}
	for j := 0; j < n; j++ {
		if math.IsInf(upper[j], 1) {
			continue
		}
		used[j] = true
		rows = append(rows, row{coef: map[int]float64{j: 1}, sense: mip.LessThanOrEqual, rhs: math.Max(upper[j]-lower[j], 0)})
	}

	cols := make([]int, 0, n)
	pos := make(map[int]int, n)
	for j := 0; j < n; j++ {
		if used[j] {
			pos[j] = len(cols)
			cols = append(cols, j)
			continue
		}
		if form.cost[j] < 0 {
			return relaxation{status: StatusUnbounded}, nil
		}
	}

	values := make([]float64, n)
	copy(values, lower)
	if len(rows) == 0 {
		return relaxation{status: StatusOptimal, objective: constant, values: values}, nil
	}

	slacks := 0
	for _, r := range rows {
		if r.sense != mip.Equal {
			slacks++
		}
	}
	mRows, nCols := len(rows), len(cols)+slacks
	if mRows > nCols {
		return relaxation{}, fmt.Errorf("%w: %d rows exceed %d columns", ErrNumerical, mRows, nCols)
	}

	A := mat.NewDense(mRows, nCols, nil)
	b := make([]float64, mRows)
	c := make([]float64, nCols)
	for k, j := range cols {
		c[k] = form.cost[j]
	}

	slack := len(cols)
	for i, r := range rows {
		flip := 1.0
		if r.rhs < 0 {
			flip = -1.0
		}
		for j, a := range r.coef {
			A.Set(i, pos[j], flip*a)
		}
		switch r.sense {
		case mip.LessThanOrEqual:
			A.Set(i, slack, flip)
			slack++
		case mip.GreaterThanOrEqual:
			A.Set(i, slack, -flip)
			slack++
		}
		b[i] = flip * r.rhs
	}

	optF, optY, err := lp.Simplex(c, A, b, tol, nil)
	switch {
	case errors.Is(err, lp.ErrInfeasible):
		return relaxation{status: StatusInfeasible}, nil
	case errors.Is(err, lp.ErrUnbounded):
		return relaxation{status: StatusUnbounded}, nil
	case err != nil:
		return relaxation{}, fmt.Errorf("%w: %v", ErrNumerical, err)
	}

	for k, j := range cols {
		values[j] = lower[j] + optY[k]
	}
	return relaxation{status: StatusOptimal, objective: optF + constant, values: values}, nil
}

func constantRowHolds(sense mip.Sense, rhs, tol float64) bool {
	switch sense {
	case mip.LessThanOrEqual:
		return 0 <= rhs+tol
	case mip.GreaterThanOrEqual:
		return 0 >= rhs-tol
	default:
		return math.Abs(rhs) <= tol
	}
}
