package solver

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kosarica/purchase-optimizer/internal/mip"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	os.Exit(m.Run())
}

func knapsack() (*mip.Model, mip.Var, mip.Var) {
	m := mip.NewModel("knapsack")
	x := m.NewInteger("x", 0, math.Inf(1))
	y := m.NewInteger("y", 0, math.Inf(1))
	m.Objective().SetMaximize()
	m.Objective().NewTerm(5, x).NewTerm(4, y)
	m.NewConstraint("weight", mip.LessThanOrEqual, 24).NewTerm(6, x).NewTerm(4, y)
	m.NewConstraint("volume", mip.LessThanOrEqual, 6).NewTerm(1, x).NewTerm(2, y)
	return m, x, y
}

func TestBranchAndBoundKnapsack(t *testing.T) {
	for _, order := range []NodeOrder{DepthFirst, BestFirst, Hybrid} {
		s := NewBranchAndBound("test", order)
		m, x, y := knapsack()

		sol, err := s.Solve(context.Background(), m, DefaultOptions())
		require.NoError(t, err)
		require.Equal(t, StatusOptimal, sol.Status)

		assert.InDelta(t, 20, sol.Objective, 1e-6)
		assert.InDelta(t, 4, sol.Value(x), 1e-9)
		assert.InDelta(t, 0, sol.Value(y), 1e-9)
		assert.Greater(t, sol.Nodes, 1)
		assert.Equal(t, "test", sol.SolverID)

		ok, name := m.Feasible(sol.Values, 1e-6)
		assert.True(t, ok, name)
	}
}

func TestBranchAndBoundInfeasible(t *testing.T) {
	m := mip.NewModel("odd")
	x := m.NewInteger("x", 0, 10)
	m.Objective().NewTerm(1, x)
	m.NewConstraint("half", mip.Equal, 3).NewTerm(2, x)

	sol, err := NewBranchAndBound("test", DepthFirst).Solve(context.Background(), m, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, StatusInfeasible, sol.Status)
	assert.False(t, sol.HasValues())
	assert.Equal(t, 0.0, sol.Value(x))
}

func TestBranchAndBoundInfeasibleRelaxation(t *testing.T) {
	m := mip.NewModel("cap")
	x := m.NewContinuous("x", 0, 5)
	m.Objective().NewTerm(1, x)
	m.NewConstraint("need", mip.GreaterThanOrEqual, 6).NewTerm(1, x)

	sol, err := NewBranchAndBound("test", DepthFirst).Solve(context.Background(), m, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, StatusInfeasible, sol.Status)
}

func TestBranchAndBoundUnbounded(t *testing.T) {
	m := mip.NewModel("open")
	x := m.NewContinuous("x", 0, math.Inf(1))
	m.Objective().NewTerm(-1, x)
	m.NewConstraint("floor", mip.GreaterThanOrEqual, 1).NewTerm(1, x)

	sol, err := NewBranchAndBound("test", DepthFirst).Solve(context.Background(), m, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, StatusUnbounded, sol.Status)
}

func TestBranchAndBoundShiftedBounds(t *testing.T) {
	m := mip.NewModel("shift")
	x := m.NewInteger("x", 2, 5)
	y := m.NewContinuous("y", 1, 3)
	m.Objective().NewTerm(1, x).NewTerm(1, y)
	m.NewConstraint("sum", mip.GreaterThanOrEqual, 4.5).NewTerm(1, x).NewTerm(1, y)

	sol, err := NewBranchAndBound("test", DepthFirst).Solve(context.Background(), m, DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, sol.Status)
	assert.InDelta(t, 4.5, sol.Objective, 1e-6)
	assert.GreaterOrEqual(t, sol.Value(x), 2.0)
	assert.GreaterOrEqual(t, sol.Value(y), 1.0-1e-9)
}

func TestBranchAndBoundNegativeRHS(t *testing.T) {
	m := mip.NewModel("flip")
	x := m.NewContinuous("x", 0, math.Inf(1))
	y := m.NewContinuous("y", 0, math.Inf(1))
	m.Objective().NewTerm(1, x).NewTerm(1, y)
	m.NewConstraint("gap", mip.Equal, -2).NewTerm(1, x).NewTerm(-1, y)

	sol, err := NewBranchAndBound("test", DepthFirst).Solve(context.Background(), m, DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, sol.Status)
	assert.InDelta(t, 2, sol.Objective, 1e-6)
	assert.InDelta(t, 0, sol.Value(x), 1e-6)
	assert.InDelta(t, 2, sol.Value(y), 1e-6)
}

func TestBranchAndBoundUnusedVariables(t *testing.T) {
	m := mip.NewModel("free")
	y := m.NewBinary("y")
	z := m.NewInteger("z", 0, math.Inf(1))
	m.Objective().NewTerm(3, y).NewTerm(2, z)
	m.Objective().SetOffset(1.5)

	sol, err := NewBranchAndBound("test", DepthFirst).Solve(context.Background(), m, DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, sol.Status)
	assert.InDelta(t, 1.5, sol.Objective, 1e-9)
	assert.Equal(t, 0.0, sol.Value(y))
	assert.Equal(t, 0.0, sol.Value(z))
}

func TestBranchAndBoundEmptyRow(t *testing.T) {
	m := mip.NewModel("empty")
	x := m.NewContinuous("x", 0, 1)
	m.Objective().NewTerm(1, x)
	m.NewConstraint("impossible", mip.GreaterThanOrEqual, 1).NewTerm(0, x)

	sol, err := NewBranchAndBound("test", DepthFirst).Solve(context.Background(), m, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, StatusInfeasible, sol.Status)
}

func TestBranchAndBoundNodeLimit(t *testing.T) {
	m, _, _ := knapsack()
	opts := DefaultOptions()
	opts.MaxNodes = 1

	sol, err := NewBranchAndBound("test", DepthFirst).Solve(context.Background(), m, opts)
	require.NoError(t, err)
	assert.Equal(t, StatusNotSolved, sol.Status)
	assert.Equal(t, 1, sol.Nodes)
	assert.False(t, sol.HasValues())
}

func TestBranchAndBoundCancelled(t *testing.T) {
	m, _, _ := knapsack()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sol, err := NewBranchAndBound("test", DepthFirst).Solve(ctx, m, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, StatusNotSolved, sol.Status)
	assert.Equal(t, 0, sol.Nodes)
}

func TestStatusString(t *testing.T) {
	tests := []struct {
		status   Status
		expected string
	}{
		{StatusOptimal, "optimal"},
		{StatusInfeasible, "infeasible"},
		{StatusUnbounded, "unbounded"},
		{StatusNotSolved, "not_solved"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.status.String())
		text, err := tt.status.MarshalText()
		require.NoError(t, err)
		assert.Equal(t, tt.expected, string(text))
	}
}

func TestRegistry(t *testing.T) {
	r := NewDefaultRegistry()

	assert.Equal(t, []string{BranchAndBoundID, BestFirstBranchAndBoundID}, r.Available())
	assert.Equal(t, BranchAndBoundID, r.Default())
	assert.True(t, r.IsRegistered(BestFirstBranchAndBoundID))

	s, err := r.Get("")
	require.NoError(t, err)
	assert.Equal(t, BranchAndBoundID, s.ID())

	s, err = r.Get(BestFirstBranchAndBoundID)
	require.NoError(t, err)
	assert.Equal(t, BestFirstBranchAndBoundID, s.ID())

	_, err = r.Get("highs")
	assert.ErrorIs(t, err, ErrUnknownSolver)
	assert.Contains(t, err.Error(), "highs")
}

// parity builds min x0 s.t. 2·Σx + x0 = n with n odd and binary x. Every
// relaxation is fractional until half the variables are fixed, so proving
// optimality takes an exponential number of nodes.
func parity(n int) *mip.Model {
	m := mip.NewModel("parity")
	x0 := m.NewBinary("x0")
	m.Objective().NewTerm(1, x0)
	c := m.NewConstraint("odd", mip.Equal, float64(n)).NewTerm(1, x0)
	for i := 0; i < n; i++ {
		c.NewTerm(2, m.NewBinary(fmt.Sprintf("x%d", i+1)))
	}
	return m
}

func TestBranchAndBoundTimeLimit(t *testing.T) {
	opts := DefaultOptions()
	opts.TimeLimit = 100 * time.Millisecond

	for _, order := range []NodeOrder{DepthFirst, BestFirst, Hybrid} {
		began := time.Now()
		sol, err := NewBranchAndBound("test", order).Solve(context.Background(), parity(41), opts)
		require.NoError(t, err)

		assert.Equal(t, StatusNotSolved, sol.Status)
		assert.Less(t, time.Since(began), 2*time.Second)
		assert.Greater(t, sol.Nodes, 0)
	}
}

func TestBranchAndBoundDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	opts := DefaultOptions()
	opts.TimeLimit = 0

	began := time.Now()
	sol, err := NewBranchAndBound("test", Hybrid).Solve(ctx, parity(41), opts)
	require.NoError(t, err)
	assert.Equal(t, StatusNotSolved, sol.Status)
	assert.Less(t, time.Since(began), 2*time.Second)
}

func TestBranchAndBoundStart(t *testing.T) {
	m, x, y := knapsack()
	opts := DefaultOptions()
	opts.Start = []float64{4, 0}

	sol, err := NewBranchAndBound("test", Hybrid).Solve(context.Background(), m, opts)
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, sol.Status)
	assert.InDelta(t, 20, sol.Objective, 1e-6)
	assert.InDelta(t, 4, sol.Value(x), 1e-9)
	assert.InDelta(t, 0, sol.Value(y), 1e-9)
}

func TestBranchAndBoundInfeasibleStartIgnored(t *testing.T) {
	m, x, _ := knapsack()
	opts := DefaultOptions()
	opts.Start = []float64{10, 10}

	sol, err := NewBranchAndBound("test", DepthFirst).Solve(context.Background(), m, opts)
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, sol.Status)
	assert.InDelta(t, 20, sol.Objective, 1e-6)
	assert.InDelta(t, 4, sol.Value(x), 1e-9)
}

func TestBranchAndBoundPrefersBinaries(t *testing.T) {
	m := mip.NewModel("kinds")
	vars := []mip.Var{m.NewInteger("q", 0, 10), m.NewBinary("y")}

	j, frac := branchVariable(vars, []float64{2.5, 0.3}, 1e-6)
	assert.Equal(t, 1, j)
	assert.InDelta(t, 0.3, frac, 1e-12)

	j, _ = branchVariable(vars, []float64{2.5, 1}, 1e-6)
	assert.Equal(t, 0, j)

	j, _ = branchVariable(vars, []float64{2, 1}, 1e-6)
	assert.Equal(t, -1, j)
}

func TestLPFormPresolve(t *testing.T) {
	m := mip.NewModel("presolve")
	x := m.NewContinuous("x", 0, math.Inf(1))
	y := m.NewContinuous("y", 0, math.Inf(1))
	m.NewConstraint("cap", mip.LessThanOrEqual, 8).NewTerm(2, x)
	m.NewConstraint("floor", mip.LessThanOrEqual, -1).NewTerm(-1, y)
	m.NewConstraint("pair", mip.GreaterThanOrEqual, 3).NewTerm(1, x).NewTerm(1, y).NewTerm(1, x)
	m.NewConstraint("cancel", mip.Equal, 0).NewTerm(1, y).NewTerm(-1, y)

	form := newLPForm(m, 1e-9)
	assert.False(t, form.infeasible)
	assert.Equal(t, []float64{0, 1}, form.lower)
	assert.Equal(t, []float64{4, math.Inf(1)}, form.upper)
	require.Len(t, form.rows, 1)
	assert.Equal(t, "pair", form.rows[0].name)
	assert.Equal(t, []int{0, 1}, form.rows[0].index)
	assert.Equal(t, []float64{2, 1}, form.rows[0].coef)

	up, down := form.locks()
	assert.Equal(t, []bool{false, false}, up)
	assert.Equal(t, []bool{true, true}, down)
}

// randomLP builds a bounded LP that is feasible at a random interior point.
func randomLP(rng *rand.Rand, n, rows int) *mip.Model {
	m := mip.NewModel("random")
	vars := make([]mip.Var, n)
	point := make([]float64, n)
	for j := range vars {
		vars[j] = m.NewContinuous(fmt.Sprintf("x%d", j), 0, 10)
		point[j] = rng.Float64() * 10
		m.Objective().NewTerm(rng.Float64()*10-5, vars[j])
	}
	senses := []mip.Sense{mip.LessThanOrEqual, mip.GreaterThanOrEqual, mip.Equal}
	for i := 0; i < rows; i++ {
		sense := senses[rng.IntN(len(senses))]
		coef := make([]float64, n)
		activity := 0.0
		for j := range coef {
			coef[j] = rng.Float64()*8 - 4
			activity += coef[j] * point[j]
		}
		rhs := activity
		switch sense {
		case mip.LessThanOrEqual:
			rhs += rng.Float64() * 3
		case mip.GreaterThanOrEqual:
			rhs -= rng.Float64() * 3
		}
		c := m.NewConstraint(fmt.Sprintf("row%d", i), sense, rhs)
		for j, a := range coef {
			c.NewTerm(a, vars[j])
		}
	}
	return m
}

func TestBoundedSimplexMatchesDense(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for k := 0; k < 50; k++ {
		m := randomLP(rng, 4+rng.IntN(6), 1+rng.IntN(4))
		form := newLPForm(m, 1e-10)
		sx := newBoundedSimplex(form, 1e-10)

		got, err := sx.solve(context.Background(), form.lower, form.upper)
		require.NoError(t, err)
		want, err := denseRelax(form, form.lower, form.upper, 1e-10)
		require.NoError(t, err)

		require.Equal(t, StatusOptimal, want.status, "case %d", k)
		require.Equal(t, want.status, got.status, "case %d", k)
		assert.InDelta(t, want.objective, got.objective, 1e-6, "case %d", k)
		ok, name := m.Feasible(got.values, 1e-6)
		assert.True(t, ok, "case %d: %s", k, name)
	}
}

func TestBoundedSimplexReload(t *testing.T) {
	m, _, _ := knapsack()
	form := newLPForm(m, 1e-10)
	sx := newBoundedSimplex(form, 1e-10)

	root, err := sx.solve(context.Background(), form.lower, form.upper)
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, root.status)
	assert.InDelta(t, -21, root.objective, 1e-9)

	_, err = sx.solve(context.Background(), []float64{0, 0}, []float64{3, 1})
	require.NoError(t, err)

	again, err := sx.solve(context.Background(), form.lower, form.upper)
	require.NoError(t, err)
	assert.InDelta(t, root.objective, again.objective, 1e-9)
	assert.InDeltaSlice(t, root.values, again.values, 1e-9)
}

func TestBoundedSimplexCancelled(t *testing.T) {
	m, _, _ := knapsack()
	form := newLPForm(m, 1e-10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newBoundedSimplex(form, 1e-10).solve(ctx, form.lower, form.upper)
	assert.ErrorIs(t, err, context.Canceled)
}
