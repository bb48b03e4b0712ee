package optimizer

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/kosarica/purchase-optimizer/internal/mip"
	"github.com/kosarica/purchase-optimizer/internal/solver"
)

// Formulation is the MILP built for one problem together with handles to
// its decision variables. It is owned by a single caller for one
// build, solve and extract cycle.
type Formulation struct {
	problem *Problem
	bigM    []BigM
	model   *mip.Model

	quantity    [][]mip.Var // [item][retailer]
	payShipping []mip.Var   // [retailer]
	emptyOrder  []mip.Var   // [retailer]

	solved bool
}

// BuildModel constructs the model:
//
//	minimize   Σ price[i][r]·q[i][r] + Σ shipping[r]·y[r]
//	subject to q[i][r] ≤ inventory[i][r]
//	           Σ_r q[i][r] ≥ desired[i]  (= when surplus is not allowed)
//	           Σ_i q[i][r] + N[r]·z[r] ≤ N[r]
//	           Σ_i price[i][r]·q[i][r] + M[r]·y[r] + N[r]·z[r] ≥ threshold[r]
//
// with q ≥ 0 integer (or continuous), y = pay_shipping and z = empty_order
// binary. The last two rows are the big-M forms of
// Σ q ≤ N(1-z) and Σ p·q - threshold + M·y ≥ -N·z.
func BuildModel(p *Problem) *Formulation {
	bigM := ComputeBigM(p.Thresholds(), p.Inventory, p.Options.BigMMargin)
	m := mip.NewModel("purchase")
	f := &Formulation{
		problem:     p,
		bigM:        bigM,
		model:       m,
		quantity:    make([][]mip.Var, len(p.Items)),
		payShipping: make([]mip.Var, len(p.Retailers)),
		emptyOrder:  make([]mip.Var, len(p.Retailers)),
	}

	for i, it := range p.Items {
		f.quantity[i] = make([]mip.Var, len(p.Retailers))
		for r, rt := range p.Retailers {
			name := fmt.Sprintf("quant_%s_%s", it.Name, rt.Name)
			if p.Options.IntegerQuantities {
				f.quantity[i][r] = m.NewInteger(name, 0, math.Inf(1))
			} else {
				f.quantity[i][r] = m.NewContinuous(name, 0, math.Inf(1))
			}
		}
	}
	for r, rt := range p.Retailers {
		f.payShipping[r] = m.NewBinary("pay_shipping_" + rt.Name)
	}
	for r, rt := range p.Retailers {
		f.emptyOrder[r] = m.NewBinary("empty_order_" + rt.Name)
	}

	obj := m.Objective()
	obj.SetMinimize()
	for i := range p.Items {
		for r := range p.Retailers {
			obj.NewTerm(p.Prices[i][r], f.quantity[i][r])
		}
	}
	for r, rt := range p.Retailers {
		obj.NewTerm(rt.Shipping, f.payShipping[r])
	}

	for i, it := range p.Items {
		for r, rt := range p.Retailers {
			m.NewConstraint(fmt.Sprintf("inventory_%s_%s", it.Name, rt.Name), mip.LessThanOrEqual, float64(p.Inventory[i][r])).
				NewTerm(1, f.quantity[i][r])
		}
	}

	demandSense := mip.GreaterThanOrEqual
	if !p.Options.AllowSurplusForSavings {
		demandSense = mip.Equal
	}
	for i, it := range p.Items {
		c := m.NewConstraint("total_quantity_"+it.Name, demandSense, float64(it.Desired))
		for r := range p.Retailers {
			c.NewTerm(1, f.quantity[i][r])
		}
	}

	for r, rt := range p.Retailers {
		c := m.NewConstraint("empty_order_link_"+rt.Name, mip.LessThanOrEqual, bigM[r].N)
		for i := range p.Items {
			c.NewTerm(1, f.quantity[i][r])
		}
		c.NewTerm(bigM[r].N, f.emptyOrder[r])
	}

	for r, rt := range p.Retailers {
		c := m.NewConstraint("shipping_fee_"+rt.Name, mip.GreaterThanOrEqual, rt.Threshold)
		for i := range p.Items {
			c.NewTerm(p.Prices[i][r], f.quantity[i][r])
		}
		c.NewTerm(bigM[r].M, f.payShipping[r])
		c.NewTerm(bigM[r].N, f.emptyOrder[r])
	}

	return f
}

// Problem returns the problem the formulation was built from.
func (f *Formulation) Problem() *Problem { return f.problem }

// Model returns the underlying model.
func (f *Formulation) Model() *mip.Model { return f.model }

// BigM returns the constants used for each retailer.
func (f *Formulation) BigM() []BigM { return f.bigM }

// Quantity returns the quantity variable of item i at retailer r.
func (f *Formulation) Quantity(i, r int) mip.Var { return f.quantity[i][r] }

// PayShipping returns the pay-shipping indicator of retailer r.
func (f *Formulation) PayShipping(r int) mip.Var { return f.payShipping[r] }

// EmptyOrder returns the empty-order indicator of retailer r.
func (f *Formulation) EmptyOrder(r int) mip.Var { return f.emptyOrder[r] }

// Solved reports whether Solve has been called.
func (f *Formulation) Solved() bool { return f.solved }

// Solve submits the model to the solver registered under solverID (empty
// selects the registry default) and blocks until it returns. Infeasible,
// unbounded and interrupted solves are reported through the solution
// status, not as errors. A formulation can be solved once.
func (f *Formulation) Solve(ctx context.Context, reg *solver.Registry, solverID string, opts solver.Options) (*solver.Solution, error) {
	if f.solved {
		return nil, ErrAlreadySolved
	}
	s, err := reg.Get(solverID)
	if err != nil {
		return nil, err
	}
	f.solved = true

	if opts.Start == nil {
		opts.Start = f.GreedyStart()
	}
	sol, err := s.Solve(ctx, f.model, opts)
	if err != nil {
		return nil, fmt.Errorf("solve with %s: %w", s.ID(), err)
	}
	return sol, nil
}

// GreedyStart builds a feasible assignment by filling every item from its
// cheapest retailers first, then setting the indicators to match: an order
// with nothing in it is empty, and a non-empty order under the threshold pays
// shipping. It returns nil when stock cannot cover the demand.
func (f *Formulation) GreedyStart() []float64 {
	p := f.problem
	values := make([]float64, f.model.NumVars())
	order := make([]int, len(p.Retailers))

	for i, it := range p.Items {
		for r := range order {
			order[r] = r
		}
		sort.SliceStable(order, func(a, b int) bool {
			return p.Prices[i][order[a]] < p.Prices[i][order[b]]
		})
		remaining := it.Desired
		for _, r := range order {
			if remaining == 0 {
				break
			}
			take := min(remaining, p.Inventory[i][r])
			if take <= 0 {
				continue
			}
			values[f.quantity[i][r].Index()] = float64(take)
			remaining -= take
		}
		if remaining > 0 {
			return nil
		}
	}

	for r, rt := range p.Retailers {
		count, subtotal := 0.0, 0.0
		for i := range p.Items {
			q := values[f.quantity[i][r].Index()]
			count += q
			subtotal += p.Prices[i][r] * q
		}
		switch {
		case count == 0:
			values[f.emptyOrder[r].Index()] = 1
		case subtotal < rt.Threshold:
			values[f.payShipping[r].Index()] = 1
		}
	}
	return values
}
