package optimizer

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultBigMMargin is the margin added to a free-shipping threshold to size M.
const DefaultBigMMargin = 1.0

var (
	// ErrDimensionMismatch is matched by every *DimensionMismatch.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrNotOptimal is returned by extraction when the solve did not reach
	// optimality. No partial plan is ever produced.
	ErrNotOptimal = errors.New("solution is not optimal")

	// ErrAlreadySolved is returned when a formulation is solved twice.
	ErrAlreadySolved = errors.New("formulation already solved, rebuild it to solve again")
)

// ProblemInput holds the raw, parallel collections describing a purchase
// problem. prices[i][r] and inventory[i][r] refer to Items[i] at Retailers[r].
type ProblemInput struct {
	Items      []string    // Item names as supplied
	Desired    []int       // Desired quantity per item
	Retailers  []string    // Retailer names as supplied
	Prices     [][]float64 // Unit price per item and retailer
	Inventory  [][]int     // Stock cap per item and retailer
	Shipping   []float64   // Flat shipping fee per retailer
	Thresholds []float64   // Free-shipping subtotal threshold per retailer
}

// ProblemOptions selects the formulation variant.
type ProblemOptions struct {
	// AllowSurplusForSavings permits buying more than desired when it lowers
	// the total bill. When false, demand must be met exactly.
	AllowSurplusForSavings bool

	// IntegerQuantities makes quantities integer. When false quantities are
	// continuous, which is experimental.
	IntegerQuantities bool

	// BigMMargin is the strictly positive margin added to each threshold.
	// Zero selects DefaultBigMMargin.
	BigMMargin float64
}

// DefaultProblemOptions returns surplus allowed, integer quantities.
func DefaultProblemOptions() ProblemOptions {
	return ProblemOptions{
		AllowSurplusForSavings: true,
		IntegerQuantities:      true,
		BigMMargin:             DefaultBigMMargin,
	}
}

// Item is a purchasable product type with a target quantity.
type Item struct {
	Name    string // Normalized token, used as model key
	Label   string // Name as supplied
	Desired int
}

// Retailer is a purchase source with its shipping policy.
type Retailer struct {
	Name      string // Normalized token, used as model key
	Label     string // Name as supplied
	Shipping  float64
	Threshold float64
}

// DimensionMismatch reports input collections of inconsistent length.
// Fields and Lengths are parallel.
type DimensionMismatch struct {
	Fields  []string
	Lengths []int
}

func (e *DimensionMismatch) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = fmt.Sprintf("%s(%d)", f, e.Lengths[i])
	}
	return "dimension mismatch: " + strings.Join(parts, " != ")
}

// Is makes errors.Is(err, ErrDimensionMismatch) match.
func (e *DimensionMismatch) Is(target error) bool {
	return target == ErrDimensionMismatch
}

// ErrInvalidValue is returned for negative or non-finite data and for names
// that collide after normalization.
type ErrInvalidValue struct {
	Field  string
	Index  int
	Reason string
}

func (e ErrInvalidValue) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("%s[%d]: %s", e.Field, e.Index, e.Reason)
	}
	return e.Field + ": " + e.Reason
}

// ErrInvalidRequest is returned when a problem exceeds configured limits.
type ErrInvalidRequest struct {
	Field  string
	Reason string
}

func (e ErrInvalidRequest) Error() string {
	return e.Field + ": " + e.Reason
}
