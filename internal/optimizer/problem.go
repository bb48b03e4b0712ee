package optimizer

import (
	"github.com/kosarica/purchase-optimizer/internal/matching"
)

// Problem is a validated, immutable purchase problem with normalized names.
type Problem struct {
	Items     []Item
	Retailers []Retailer
	Prices    [][]float64
	Inventory [][]int
	Options   ProblemOptions
}

// NewProblem validates in, normalizes item and retailer names and copies the
// data so later changes to in do not leak into the problem.
func NewProblem(in ProblemInput, opts ProblemOptions) (*Problem, error) {
	if err := Validate(&in); err != nil {
		return nil, err
	}
	if opts.BigMMargin == 0 {
		opts.BigMMargin = DefaultBigMMargin
	}
	if opts.BigMMargin < 0 {
		return nil, ErrInvalidValue{Field: "big_m_margin", Index: -1, Reason: "must be strictly positive"}
	}

	itemNames := matching.NormalizeNames(in.Items)
	if _, j := matching.FirstDuplicate(itemNames); j >= 0 {
		return nil, ErrInvalidValue{Field: "items", Index: j, Reason: "duplicates another item after normalization: " + itemNames[j]}
	}
	retailerNames := matching.NormalizeNames(in.Retailers)
	if _, j := matching.FirstDuplicate(retailerNames); j >= 0 {
		return nil, ErrInvalidValue{Field: "retailers", Index: j, Reason: "duplicates another retailer after normalization: " + retailerNames[j]}
	}

	p := &Problem{
		Items:     make([]Item, len(in.Items)),
		Retailers: make([]Retailer, len(in.Retailers)),
		Prices:    make([][]float64, len(in.Items)),
		Inventory: make([][]int, len(in.Items)),
		Options:   opts,
	}
	for i := range in.Items {
		p.Items[i] = Item{Name: itemNames[i], Label: in.Items[i], Desired: in.Desired[i]}
		p.Prices[i] = append([]float64(nil), in.Prices[i]...)
		p.Inventory[i] = append([]int(nil), in.Inventory[i]...)
	}
	for r := range in.Retailers {
		p.Retailers[r] = Retailer{
			Name:      retailerNames[r],
			Label:     in.Retailers[r],
			Shipping:  in.Shipping[r],
			Threshold: in.Thresholds[r],
		}
	}
	return p, nil
}

// Desired returns the desired quantity keyed by normalized item name.
func (p *Problem) Desired() map[string]int {
	d := make(map[string]int, len(p.Items))
	for _, it := range p.Items {
		d[it.Name] = it.Desired
	}
	return d
}

// ItemNames returns the normalized item names in input order.
func (p *Problem) ItemNames() []string {
	names := make([]string, len(p.Items))
	for i, it := range p.Items {
		names[i] = it.Name
	}
	return names
}

// RetailerNames returns the normalized retailer names in input order.
func (p *Problem) RetailerNames() []string {
	names := make([]string, len(p.Retailers))
	for r, rt := range p.Retailers {
		names[r] = rt.Name
	}
	return names
}

// Thresholds returns the free-shipping thresholds in retailer order.
func (p *Problem) Thresholds() []float64 {
	t := make([]float64, len(p.Retailers))
	for r, rt := range p.Retailers {
		t[r] = rt.Threshold
	}
	return t
}
