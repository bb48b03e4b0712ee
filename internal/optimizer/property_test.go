package optimizer

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// randomInput builds a feasible instance: desired never exceeds total stock.
func randomInput(rng *rand.Rand, maxItems, maxRetailers, maxStock int) ProblemInput {
	nItems := 1 + rng.Intn(maxItems)
	nRetailers := 1 + rng.Intn(maxRetailers)
	return sizedInput(rng, nItems, nRetailers, maxStock)
}

// sizedInput is randomInput with fixed dimensions.
func sizedInput(rng *rand.Rand, nItems, nRetailers, maxStock int) ProblemInput {
	in := ProblemInput{
		Items:      make([]string, nItems),
		Desired:    make([]int, nItems),
		Retailers:  make([]string, nRetailers),
		Prices:     make([][]float64, nItems),
		Inventory:  make([][]int, nItems),
		Shipping:   make([]float64, nRetailers),
		Thresholds: make([]float64, nRetailers),
	}
	for r := 0; r < nRetailers; r++ {
		in.Retailers[r] = fmt.Sprintf("r%d", r+1)
		in.Shipping[r] = float64(100+rng.Intn(700)) / 100
		in.Thresholds[r] = float64(rng.Intn(40))
	}
	for i := 0; i < nItems; i++ {
		in.Items[i] = fmt.Sprintf("l%d", i+1)
		in.Prices[i] = make([]float64, nRetailers)
		in.Inventory[i] = make([]int, nRetailers)
		stock := 0
		for r := 0; r < nRetailers; r++ {
			in.Prices[i][r] = float64(50+rng.Intn(950)) / 100
			in.Inventory[i][r] = rng.Intn(maxStock + 1)
			stock += in.Inventory[i][r]
		}
		if stock > 0 {
			in.Desired[i] = rng.Intn(stock + 1)
		}
	}
	return in
}

// TestShippingLogicHolds solves random instances and checks every business
// rule at the solved point.
func TestShippingLogicHolds(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for n := 0; n < 40; n++ {
		in := randomInput(rng, 4, 3, 8)
		surplus := n%2 == 0

		t.Run(fmt.Sprintf("instance_%d", n), func(t *testing.T) {
			f, sol := solveInput(t, in, surplusOptions(surplus))
			require.True(t, sol.IsOptimal(), "status %s", sol.Status)

			ok, violated := f.Model().Feasible(sol.Values, 1e-6)
			require.True(t, ok, violated)

			p := f.Problem()
			for i := range p.Items {
				total := 0.0
				for r := range p.Retailers {
					q := sol.Value(f.Quantity(i, r))
					assert.LessOrEqual(t, q, float64(p.Inventory[i][r])+1e-6)
					total += q
				}
				if surplus {
					assert.GreaterOrEqual(t, total, float64(p.Items[i].Desired)-1e-6)
				} else {
					assert.InDelta(t, float64(p.Items[i].Desired), total, 1e-6)
				}
			}

			for r, rt := range p.Retailers {
				ordered, subtotal := 0.0, 0.0
				for i := range p.Items {
					q := sol.Value(f.Quantity(i, r))
					ordered += q
					subtotal += q * p.Prices[i][r]
				}
				pay := sol.Value(f.PayShipping(r)) > 0.5
				empty := sol.Value(f.EmptyOrder(r)) > 0.5

				if empty {
					assert.False(t, pay, "empty order at %s pays shipping", rt.Name)
					assert.InDelta(t, 0, ordered, 1e-6)
				}
				if ordered > 0.5 && subtotal < rt.Threshold-1e-6 {
					assert.True(t, pay, "order below threshold at %s ships free", rt.Name)
				}
				if subtotal >= rt.Threshold+1e-6 || ordered < 0.5 {
					assert.False(t, pay, "order at %s pays shipping needlessly", rt.Name)
				}
			}

			billing, err := ExtractBilling(f, sol)
			require.NoError(t, err)
			assert.InDelta(t, sol.Objective, billing.GrandTotal, 1e-6)
		})
	}
}

// TestMatchesExhaustiveSearch compares the solver against enumerating every
// purchase plan of tiny instances.
func TestMatchesExhaustiveSearch(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for n := 0; n < 30; n++ {
		in := randomInput(rng, 2, 2, 4)
		surplus := n%3 != 0

		t.Run(fmt.Sprintf("instance_%d", n), func(t *testing.T) {
			want := bruteForce(in, surplus)
			_, sol := solveInput(t, in, surplusOptions(surplus))

			if math.IsInf(want, 1) {
				assert.NotEqual(t, "optimal", sol.Status.String())
				return
			}
			require.True(t, sol.IsOptimal(), "status %s", sol.Status)
			assert.InDelta(t, want, sol.Objective, 1e-6)
		})
	}
}

func bruteForce(in ProblemInput, surplus bool) float64 {
	nItems, nRetailers := len(in.Items), len(in.Retailers)
	q := make([]int, nItems*nRetailers)
	best := math.Inf(1)

	var walk func(k int)
	walk = func(k int) {
		if k == len(q) {
			if cost, ok := planCost(in, q, surplus); ok && cost < best {
				best = cost
			}
			return
		}
		i, r := k/nRetailers, k%nRetailers
		for v := 0; v <= in.Inventory[i][r]; v++ {
			q[k] = v
			walk(k + 1)
		}
	}
	walk(0)
	return best
}

func planCost(in ProblemInput, q []int, surplus bool) (float64, bool) {
	nRetailers := len(in.Retailers)
	for i := range in.Items {
		total := 0
		for r := 0; r < nRetailers; r++ {
			total += q[i*nRetailers+r]
		}
		if total < in.Desired[i] || (!surplus && total != in.Desired[i]) {
			return 0, false
		}
	}

	cost := 0.0
	for r := 0; r < nRetailers; r++ {
		ordered, subtotal := 0, 0.0
		for i := range in.Items {
			ordered += q[i*nRetailers+r]
			subtotal += float64(q[i*nRetailers+r]) * in.Prices[i][r]
		}
		cost += subtotal
		if ordered > 0 && subtotal < in.Thresholds[r]-1e-9 {
			cost += in.Shipping[r]
		}
	}
	return cost, true
}
