package optimizer

import (
	"fmt"
	"math"
)

// Validate checks that the parallel collections of in line up: one desired
// quantity, price row and inventory row per item, one shipping fee and
// threshold per retailer, one entry per retailer in every row. It then
// checks that all numbers are finite and non-negative.
func Validate(in *ProblemInput) error {
	if in == nil {
		return ErrInvalidRequest{Field: "problem", Reason: "cannot be nil"}
	}
	if err := validateDimensions(in); err != nil {
		return err
	}
	return validateValues(in)
}

func validateDimensions(in *ProblemInput) error {
	nItems, nRetailers := len(in.Items), len(in.Retailers)

	checks := []struct {
		field string
		n     int
		want  int
		ref   string
	}{
		{"desired", len(in.Desired), nItems, "items"},
		{"prices", len(in.Prices), nItems, "items"},
		{"inventory", len(in.Inventory), nItems, "items"},
		{"shipping", len(in.Shipping), nRetailers, "retailers"},
		{"thresholds", len(in.Thresholds), nRetailers, "retailers"},
	}
	for _, c := range checks {
		if c.n != c.want {
			return &DimensionMismatch{Fields: []string{c.ref, c.field}, Lengths: []int{c.want, c.n}}
		}
	}

	for i, row := range in.Prices {
		if len(row) != nRetailers {
			return &DimensionMismatch{
				Fields:  []string{"retailers", fmt.Sprintf("prices[%d]", i)},
				Lengths: []int{nRetailers, len(row)},
			}
		}
	}
	for i, row := range in.Inventory {
		if len(row) != nRetailers {
			return &DimensionMismatch{
				Fields:  []string{"retailers", fmt.Sprintf("inventory[%d]", i)},
				Lengths: []int{nRetailers, len(row)},
			}
		}
	}
	return nil
}

func validateValues(in *ProblemInput) error {
	for i, d := range in.Desired {
		if d < 0 {
			return ErrInvalidValue{Field: "desired", Index: i, Reason: "must be non-negative"}
		}
	}
	for i, row := range in.Prices {
		for r, p := range row {
			if err := checkAmount(fmt.Sprintf("prices[%d]", i), r, p); err != nil {
				return err
			}
		}
	}
	for i, row := range in.Inventory {
		for r, q := range row {
			if q < 0 {
				return ErrInvalidValue{Field: fmt.Sprintf("inventory[%d]", i), Index: r, Reason: "must be non-negative"}
			}
		}
	}
	for r := range in.Shipping {
		if err := checkAmount("shipping", r, in.Shipping[r]); err != nil {
			return err
		}
		if err := checkAmount("thresholds", r, in.Thresholds[r]); err != nil {
			return err
		}
	}
	return nil
}

func checkAmount(field string, index int, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ErrInvalidValue{Field: field, Index: index, Reason: "must be finite"}
	}
	if v < 0 {
		return ErrInvalidValue{Field: field, Index: index, Reason: "must be non-negative"}
	}
	return nil
}
