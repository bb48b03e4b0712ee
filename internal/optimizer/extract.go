package optimizer

import (
	"math"

	"github.com/kosarica/purchase-optimizer/internal/solver"
)

// surplusTolerance absorbs solver noise when comparing bought and desired
// quantities in continuous mode.
const surplusTolerance = 1e-6

// PurchasePlan is the quantity to buy of every item at every retailer.
type PurchasePlan struct {
	Items      []string                      `json:"items"`
	Retailers  []string                      `json:"retailers"`
	Quantities map[string]map[string]float64 `json:"quantities"` // item -> retailer -> quantity
	Totals     map[string]float64            `json:"totals"`     // item -> quantity over all retailers
	Integer    bool                          `json:"integer"`
}

// Quantity returns the quantity of item bought at retailer.
func (p *PurchasePlan) Quantity(item, retailer string) float64 {
	return p.Quantities[item][retailer]
}

// RetailerBill is the bill at one retailer.
type RetailerBill struct {
	Retailer     string  `json:"retailer"`
	ItemBill     float64 `json:"item_bill"`
	ShippingBill float64 `json:"shipping_bill"`
	TotalBill    float64 `json:"total_bill"`
	PaysShipping bool    `json:"pays_shipping"`
	EmptyOrder   bool    `json:"empty_order"`
}

// BillingSummary holds the per-retailer bills and their totals.
type BillingSummary struct {
	Retailers     []RetailerBill `json:"retailers"`
	ItemTotal     float64        `json:"item_total"`
	ShippingTotal float64        `json:"shipping_total"`
	GrandTotal    float64        `json:"grand_total"`
}

// Retailer returns the bill of the named retailer.
func (b *BillingSummary) Retailer(name string) (RetailerBill, bool) {
	for _, rb := range b.Retailers {
		if rb.Retailer == name {
			return rb, true
		}
	}
	return RetailerBill{}, false
}

// checkExtract rejects a missing formulation and any solution that is not an
// optimal assignment of its variables.
func checkExtract(f *Formulation, sol *solver.Solution) error {
	if f == nil {
		return ErrInvalidRequest{Field: "formulation", Reason: "cannot be nil"}
	}
	if !sol.IsOptimal() || !sol.HasValues() {
		return ErrNotOptimal
	}
	if n := f.model.NumVars(); len(sol.Values) != n {
		return &DimensionMismatch{Fields: []string{"values", "variables"}, Lengths: []int{len(sol.Values), n}}
	}
	return nil
}

// ExtractPlan reads the purchase quantities out of an optimal solution.
// Quantities are rounded to the nearest integer in integer mode.
func ExtractPlan(f *Formulation, sol *solver.Solution) (*PurchasePlan, error) {
	if err := checkExtract(f, sol); err != nil {
		return nil, err
	}
	p := f.problem

	plan := &PurchasePlan{
		Items:      p.ItemNames(),
		Retailers:  p.RetailerNames(),
		Quantities: make(map[string]map[string]float64, len(p.Items)),
		Totals:     make(map[string]float64, len(p.Items)),
		Integer:    p.Options.IntegerQuantities,
	}
	for i, it := range p.Items {
		row := make(map[string]float64, len(p.Retailers))
		total := 0.0
		for r, rt := range p.Retailers {
			q := f.quantityValue(sol, i, r)
			row[rt.Name] = q
			total += q
		}
		plan.Quantities[it.Name] = row
		plan.Totals[it.Name] = total
	}
	return plan, nil
}

// ExtractBilling computes each retailer's item subtotal, shipping charge and
// total from an optimal solution. The grand total equals the objective value
// within solver tolerance.
func ExtractBilling(f *Formulation, sol *solver.Solution) (*BillingSummary, error) {
	if err := checkExtract(f, sol); err != nil {
		return nil, err
	}
	p := f.problem

	summary := &BillingSummary{Retailers: make([]RetailerBill, len(p.Retailers))}
	for r, rt := range p.Retailers {
		bill := RetailerBill{Retailer: rt.Name}
		ordered := 0.0
		for i := range p.Items {
			q := f.quantityValue(sol, i, r)
			ordered += q
			bill.ItemBill += q * p.Prices[i][r]
		}
		bill.PaysShipping = sol.Value(f.payShipping[r]) > 0.5
		if bill.PaysShipping {
			bill.ShippingBill = rt.Shipping
		}
		bill.EmptyOrder = ordered <= surplusTolerance
		bill.TotalBill = bill.ItemBill + bill.ShippingBill

		summary.Retailers[r] = bill
		summary.ItemTotal += bill.ItemBill
		summary.ShippingTotal += bill.ShippingBill
	}
	summary.GrandTotal = summary.ItemTotal + summary.ShippingTotal
	return summary, nil
}

// SurplusReport returns, for every item of plan bought beyond its desired
// quantity, the number of extra units. Items without extra units are left out.
func SurplusReport(plan *PurchasePlan, desired map[string]int) map[string]float64 {
	extra := make(map[string]float64)
	if plan == nil {
		return extra
	}
	for _, item := range plan.Items {
		diff := plan.Totals[item] - float64(desired[item])
		if diff > surplusTolerance {
			extra[item] = diff
		}
	}
	return extra
}

func (f *Formulation) quantityValue(sol *solver.Solution, i, r int) float64 {
	q := sol.Value(f.quantity[i][r])
	if f.problem.Options.IntegerQuantities {
		return math.Round(q)
	}
	// Clamp tiny negative noise from the simplex.
	return math.Max(q, 0)
}
