package optimizer

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kosarica/purchase-optimizer/internal/solver"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	os.Exit(m.Run())
}

var (
	twoLures     = []string{"l1", "l2"}
	twoRetailers = []string{"r1", "r2"}
	twoPrices    = [][]float64{
		{4.99, 5.49}, // l1 at r1, r2
		{3.99, 3.49}, // l2 at r1, r2
	}
	twoInventory = [][]int{
		{100, 10},
		{15, 30},
	}
)

func smallInput(desired []int, shipping, thresholds []float64) ProblemInput {
	return ProblemInput{
		Items:      twoLures,
		Desired:    desired,
		Retailers:  twoRetailers,
		Prices:     twoPrices,
		Inventory:  twoInventory,
		Shipping:   shipping,
		Thresholds: thresholds,
	}
}

func scenarioA() ProblemInput {
	return smallInput([]int{3, 20}, []float64{7.0, 4.0}, []float64{50.0, 60.0})
}

func scenarioB(desired []int) ProblemInput {
	return smallInput(desired, []float64{6.75, 3.99}, []float64{50.0, 59.0})
}

func largeInput() ProblemInput {
	return ProblemInput{
		Items:     []string{"l1", "l2", "l3", "l4", "l5", "l6", "l7", "l8"},
		Desired:   []int{8, 2, 5, 2, 1, 1, 1, 1},
		Retailers: twoRetailers,
		Prices: [][]float64{
			{4.99, 5.49},
			{3.99, 3.49},
			{4.99, 5.05},
			{3.29, 3.50},
			{5.25, 5.00},
			{14.99, 15.50},
			{7.99, 7.29},
			{7.99, 7.65},
		},
		Inventory: [][]int{
			{100, 10},
			{15, 30},
			{100, 100},
			{100, 100},
			{100, 100},
			{100, 100},
			{0, 10},
			{100, 100},
		},
		Shipping:   []float64{7.0, 4.0},
		Thresholds: []float64{50.0, 60.0},
	}
}

func surplusOptions(allow bool) ProblemOptions {
	opts := DefaultProblemOptions()
	opts.AllowSurplusForSavings = allow
	return opts
}

func solveInput(t *testing.T, in ProblemInput, opts ProblemOptions) (*Formulation, *solver.Solution) {
	t.Helper()
	p, err := NewProblem(in, opts)
	require.NoError(t, err)

	f := BuildModel(p)
	sol, err := f.Solve(context.Background(), solver.NewDefaultRegistry(), "", solver.DefaultOptions())
	require.NoError(t, err)
	return f, sol
}

func TestBuildModelShape(t *testing.T) {
	p, err := NewProblem(scenarioA(), surplusOptions(true))
	require.NoError(t, err)

	f := BuildModel(p)
	m := f.Model()

	// 4 quantities, 2 pay_shipping, 2 empty_order
	assert.Equal(t, 8, m.NumVars())
	// 4 inventory, 2 demand, 2 empty-order links, 2 shipping-fee rows
	assert.Len(t, m.Constraints(), 10)

	assert.Equal(t, "quant_l1_r2", f.Quantity(0, 1).Name())
	assert.Equal(t, "pay_shipping_r1", f.PayShipping(0).Name())
	assert.Equal(t, "empty_order_r2", f.EmptyOrder(1).Name())
	assert.True(t, f.Quantity(0, 0).IsIntegral())

	s := m.String()
	assert.Contains(t, s, "4.99 quant_l1_r1 + 5.49 quant_l1_r2 + 3.99 quant_l2_r1 + 3.49 quant_l2_r2 + 7 pay_shipping_r1 + 4 pay_shipping_r2")
	assert.Contains(t, s, "inventory_l2_r1: quant_l2_r1 <= 15")
	assert.Contains(t, s, "total_quantity_l1: quant_l1_r1 + quant_l1_r2 >= 3")
	assert.Contains(t, s, "empty_order_link_r1: quant_l1_r1 + quant_l2_r1 + 166 empty_order_r1 <= 166")
	assert.Contains(t, s, "shipping_fee_r2: 5.49 quant_l1_r2 + 3.49 quant_l2_r2 + 61 pay_shipping_r2 + 101 empty_order_r2 >= 60")
}

func TestBuildModelExactDemand(t *testing.T) {
	p, err := NewProblem(scenarioB([]int{0, 16}), surplusOptions(false))
	require.NoError(t, err)

	s := BuildModel(p).Model().String()
	assert.Contains(t, s, "total_quantity_l2: quant_l2_r1 + quant_l2_r2 = 16")
}

func TestBuildModelContinuousQuantities(t *testing.T) {
	opts := DefaultProblemOptions()
	opts.IntegerQuantities = false
	p, err := NewProblem(scenarioA(), opts)
	require.NoError(t, err)

	f := BuildModel(p)
	assert.False(t, f.Quantity(1, 1).IsIntegral())
	assert.True(t, f.PayShipping(1).IsIntegral())
}

func TestScenarios(t *testing.T) {
	tests := []struct {
		name     string
		input    ProblemInput
		surplus  bool
		expected map[string]map[string]float64
		bill     float64
		extra    map[string]float64
	}{
		{
			name:    "small order reaches free shipping at one retailer",
			input:   scenarioA(),
			surplus: true,
			expected: map[string]map[string]float64{
				"l1": {"r1": 0, "r2": 3},
				"l2": {"r1": 0, "r2": 20},
			},
			bill:  86.27,
			extra: map[string]float64{},
		},
		{
			name:    "exact demand pays shipping",
			input:   scenarioB([]int{0, 16}),
			surplus: false,
			expected: map[string]map[string]float64{
				"l1": {"r1": 0, "r2": 0},
				"l2": {"r1": 0, "r2": 16},
			},
			bill:  59.83,
			extra: map[string]float64{},
		},
		{
			name:    "one extra unit unlocks free shipping",
			input:   scenarioB([]int{0, 16}),
			surplus: true,
			expected: map[string]map[string]float64{
				"l1": {"r1": 0, "r2": 0},
				"l2": {"r1": 0, "r2": 17},
			},
			bill:  59.33,
			extra: map[string]float64{"l2": 1},
		},
		{
			name:    "extra unit of an undesired item",
			input:   scenarioB([]int{10, 0}),
			surplus: true,
			expected: map[string]map[string]float64{
				"l1": {"r1": 10, "r2": 0},
				"l2": {"r1": 1, "r2": 0},
			},
			bill:  53.89,
			extra: map[string]float64{"l2": 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, sol := solveInput(t, tt.input, surplusOptions(tt.surplus))
			require.Equal(t, solver.StatusOptimal, sol.Status)

			plan, err := ExtractPlan(f, sol)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, plan.Quantities)

			billing, err := ExtractBilling(f, sol)
			require.NoError(t, err)
			assert.InDelta(t, tt.bill, sol.Objective, 0.01)
			assert.InDelta(t, sol.Objective, billing.GrandTotal, 1e-6)

			assert.Equal(t, tt.extra, SurplusReport(plan, f.Problem().Desired()))
		})
	}
}

func TestExtractRejects(t *testing.T) {
	f, sol := solveInput(t, scenarioA(), DefaultProblemOptions())
	require.True(t, sol.IsOptimal())

	var req ErrInvalidRequest
	_, err := ExtractPlan(nil, sol)
	require.ErrorAs(t, err, &req)
	assert.Equal(t, "formulation", req.Field)
	_, err = ExtractBilling(nil, sol)
	require.ErrorAs(t, err, &req)

	_, err = ExtractPlan(f, nil)
	assert.ErrorIs(t, err, ErrNotOptimal)
	_, err = ExtractBilling(f, &solver.Solution{Status: solver.StatusNotSolved})
	assert.ErrorIs(t, err, ErrNotOptimal)

	short := &solver.Solution{Status: solver.StatusOptimal, Values: sol.Values[:2]}
	_, err = ExtractPlan(f, short)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	_, err = ExtractBilling(f, short)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestScenarioBBilling(t *testing.T) {
	f, sol := solveInput(t, scenarioB([]int{0, 16}), surplusOptions(false))
	require.True(t, sol.IsOptimal())

	billing, err := ExtractBilling(f, sol)
	require.NoError(t, err)

	r1, ok := billing.Retailer("r1")
	require.True(t, ok)
	assert.True(t, r1.EmptyOrder)
	assert.False(t, r1.PaysShipping)
	assert.Equal(t, 0.0, r1.TotalBill)

	r2, ok := billing.Retailer("r2")
	require.True(t, ok)
	assert.False(t, r2.EmptyOrder)
	assert.True(t, r2.PaysShipping)
	assert.InDelta(t, 55.84, r2.ItemBill, 1e-9)
	assert.InDelta(t, 3.99, r2.ShippingBill, 1e-9)
	assert.InDelta(t, 59.83, r2.TotalBill, 1e-9)

	assert.InDelta(t, 55.84, billing.ItemTotal, 1e-9)
	assert.InDelta(t, 3.99, billing.ShippingTotal, 1e-9)

	_, ok = billing.Retailer("r3")
	assert.False(t, ok)
}

func TestLargeOrder(t *testing.T) {
	in := largeInput()
	f, sol := solveInput(t, in, surplusOptions(true))
	require.Equal(t, solver.StatusOptimal, sol.Status)

	// Alternate optima may exist, so only the bill is pinned.
	assert.InDelta(t, 114.11, sol.Objective, 0.01)

	ok, violated := f.Model().Feasible(sol.Values, 1e-6)
	assert.True(t, ok, violated)

	plan, err := ExtractPlan(f, sol)
	require.NoError(t, err)
	for i, item := range plan.Items {
		assert.GreaterOrEqual(t, plan.Totals[item], float64(in.Desired[i]))
		for r, retailer := range plan.Retailers {
			assert.LessOrEqual(t, plan.Quantity(item, retailer), float64(in.Inventory[i][r]))
		}
	}
}

func TestInfeasibleDemand(t *testing.T) {
	for _, surplus := range []bool{true, false} {
		// l1 stock is 100 + 10 = 110
		in := scenarioA()
		in.Desired = []int{111, 20}
		f, sol := solveInput(t, in, surplusOptions(surplus))
		assert.Equal(t, solver.StatusInfeasible, sol.Status)

		plan, err := ExtractPlan(f, sol)
		assert.ErrorIs(t, err, ErrNotOptimal)
		assert.Nil(t, plan)

		billing, err := ExtractBilling(f, sol)
		assert.ErrorIs(t, err, ErrNotOptimal)
		assert.Nil(t, billing)
	}
}

func TestNoItems(t *testing.T) {
	in := ProblemInput{
		Items:      []string{},
		Desired:    []int{},
		Retailers:  twoRetailers,
		Prices:     [][]float64{},
		Inventory:  [][]int{},
		Shipping:   []float64{7, 4},
		Thresholds: []float64{50, 60},
	}
	f, sol := solveInput(t, in, surplusOptions(true))
	require.True(t, sol.IsOptimal())
	assert.InDelta(t, 0, sol.Objective, 1e-9)

	billing, err := ExtractBilling(f, sol)
	require.NoError(t, err)
	for _, rb := range billing.Retailers {
		assert.True(t, rb.EmptyOrder)
		assert.False(t, rb.PaysShipping)
	}
}

func TestThresholdIsInclusive(t *testing.T) {
	// 10 units at 5.00 is exactly the threshold.
	in := ProblemInput{
		Items:      []string{"lure"},
		Desired:    []int{10},
		Retailers:  []string{"shop"},
		Prices:     [][]float64{{5.0}},
		Inventory:  [][]int{{10}},
		Shipping:   []float64{9.0},
		Thresholds: []float64{50.0},
	}
	f, sol := solveInput(t, in, surplusOptions(false))
	require.True(t, sol.IsOptimal())
	assert.InDelta(t, 50.0, sol.Objective, 1e-6)

	billing, err := ExtractBilling(f, sol)
	require.NoError(t, err)
	assert.False(t, billing.Retailers[0].PaysShipping)
}

func TestContinuousQuantities(t *testing.T) {
	opts := DefaultProblemOptions()
	opts.IntegerQuantities = false

	f, sol := solveInput(t, scenarioA(), opts)
	require.True(t, sol.IsOptimal())
	assert.LessOrEqual(t, sol.Objective, 86.27+1e-6)

	plan, err := ExtractPlan(f, sol)
	require.NoError(t, err)
	assert.False(t, plan.Integer)
	assert.InDelta(t, 3, plan.Totals["l1"], 1e-6)
	assert.InDelta(t, 20, plan.Totals["l2"], 1e-6)
}

func TestSolveOnce(t *testing.T) {
	p, err := NewProblem(scenarioA(), DefaultProblemOptions())
	require.NoError(t, err)
	reg := solver.NewDefaultRegistry()

	f := BuildModel(p)
	assert.False(t, f.Solved())
	_, err = f.Solve(context.Background(), reg, "", solver.DefaultOptions())
	require.NoError(t, err)
	assert.True(t, f.Solved())

	_, err = f.Solve(context.Background(), reg, "", solver.DefaultOptions())
	assert.ErrorIs(t, err, ErrAlreadySolved)
}

func TestRebuildGivesSameObjective(t *testing.T) {
	p, err := NewProblem(largeInput(), DefaultProblemOptions())
	require.NoError(t, err)
	reg := solver.NewDefaultRegistry()

	var objectives []float64
	for _, id := range []string{solver.BranchAndBoundID, solver.BranchAndBoundID, solver.BestFirstBranchAndBoundID} {
		sol, err := BuildModel(p).Solve(context.Background(), reg, id, solver.DefaultOptions())
		require.NoError(t, err)
		require.True(t, sol.IsOptimal())
		objectives = append(objectives, sol.Objective)
	}
	assert.InDelta(t, objectives[0], objectives[1], 1e-9)
	assert.InDelta(t, objectives[0], objectives[2], 1e-6)
}

func TestGreedyStart(t *testing.T) {
	tests := []struct {
		name string
		in   ProblemInput
		opts ProblemOptions
	}{
		{"scenario A", scenarioA(), DefaultProblemOptions()},
		{"scenario B exact", scenarioB([]int{0, 16}), surplusOptions(false)},
		{"large order", largeInput(), DefaultProblemOptions()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProblem(tt.in, tt.opts)
			require.NoError(t, err)
			f := BuildModel(p)

			start := f.GreedyStart()
			require.NotNil(t, start)
			ok, name := f.Model().Feasible(start, 1e-9)
			assert.True(t, ok, name)
		})
	}

	p, err := NewProblem(scenarioB([]int{0, 16}), DefaultProblemOptions())
	require.NoError(t, err)
	f := BuildModel(p)
	start := f.GreedyStart()
	assert.Equal(t, 16.0, start[f.Quantity(1, 1).Index()])
	assert.Equal(t, 1.0, start[f.EmptyOrder(0).Index()])
	assert.Equal(t, 1.0, start[f.PayShipping(1).Index()])

	in := scenarioA()
	in.Desired = []int{111, 20}
	p, err = NewProblem(in, DefaultProblemOptions())
	require.NoError(t, err)
	assert.Nil(t, BuildModel(p).GreedyStart())
}

func TestSolveWithinTimeLimit(t *testing.T) {
	tests := []struct {
		items, retailers int
		limit            time.Duration
	}{
		{20, 10, 5 * time.Second},
		{30, 12, 2 * time.Second},
		{60, 20, 2 * time.Second},
	}
	reg := solver.NewDefaultRegistry()
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%dx%d", tt.items, tt.retailers), func(t *testing.T) {
			rng := rand.New(rand.NewSource(int64(tt.items*100 + tt.retailers)))
			p, err := NewProblem(sizedInput(rng, tt.items, tt.retailers, 9), DefaultProblemOptions())
			require.NoError(t, err)

			opts := solver.DefaultOptions()
			opts.TimeLimit = tt.limit
			f := BuildModel(p)

			began := time.Now()
			sol, err := f.Solve(context.Background(), reg, "", opts)
			elapsed := time.Since(began)
			require.NoError(t, err)

			assert.Less(t, elapsed, tt.limit+time.Second)
			if sol.IsOptimal() {
				ok, name := f.Model().Feasible(sol.Values, 1e-6)
				assert.True(t, ok, name)
				return
			}
			assert.Equal(t, solver.StatusNotSolved, sol.Status)
		})
	}
}

func TestSolveUnknownSolver(t *testing.T) {
	p, err := NewProblem(scenarioA(), DefaultProblemOptions())
	require.NoError(t, err)

	f := BuildModel(p)
	_, err = f.Solve(context.Background(), solver.NewDefaultRegistry(), "glpk", solver.DefaultOptions())
	assert.ErrorIs(t, err, solver.ErrUnknownSolver)
	assert.False(t, f.Solved())
}

func TestSurplusReport(t *testing.T) {
	plan := &PurchasePlan{
		Items:  []string{"a", "b", "c"},
		Totals: map[string]float64{"a": 5, "b": 3, "c": 2.5},
	}
	desired := map[string]int{"a": 5, "b": 1, "c": 2}

	assert.Equal(t, map[string]float64{"b": 2, "c": 0.5}, SurplusReport(plan, desired))
	assert.Empty(t, SurplusReport(nil, desired))
}
