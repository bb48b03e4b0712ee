package optimizer

import (
	"time"

	"github.com/kosarica/purchase-optimizer/internal/solver"
)

// Config holds the configuration for the purchase optimizer.
// It is loaded from environment variables or a config file.
type Config struct {
	// Formulation defaults, overridable per request
	AllowSurplusForSavings bool    `mapstructure:"allow_surplus_for_savings" env:"ALLOW_SURPLUS_FOR_SAVINGS" default:"true"`
	IntegerQuantities      bool    `mapstructure:"integer_quantities" env:"INTEGER_QUANTITIES" default:"true"`
	BigMMargin             float64 `mapstructure:"big_m_margin" env:"BIG_M_MARGIN" default:"1.0"`

	// Validation limits. MaxQuantities bounds items × retailers, the number
	// of quantity variables in the model.
	MaxItems      int `mapstructure:"max_items" env:"MAX_ITEMS" default:"100"`
	MaxRetailers  int `mapstructure:"max_retailers" env:"MAX_RETAILERS" default:"25"`
	MaxQuantities int `mapstructure:"max_quantities" env:"MAX_QUANTITIES" default:"600"`

	// Solver settings, filled from the solver section
	SolverID string         `mapstructure:"-"`
	Solver   solver.Options `mapstructure:"-"`
}

// Defaults returns the default configuration.
func Defaults() *Config {
	return &Config{
		AllowSurplusForSavings: true,
		IntegerQuantities:      true,
		BigMMargin:             DefaultBigMMargin,
		MaxItems:               100,
		MaxRetailers:           25,
		MaxQuantities:          600,
		SolverID:               solver.BranchAndBoundID,
		Solver:                 solver.DefaultOptions(),
	}
}

// ProblemOptions returns the formulation options configured as defaults.
func (c *Config) ProblemOptions() ProblemOptions {
	return ProblemOptions{
		AllowSurplusForSavings: c.AllowSurplusForSavings,
		IntegerQuantities:      c.IntegerQuantities,
		BigMMargin:             c.BigMMargin,
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.BigMMargin <= 0 {
		return ErrInvalidConfig{Field: "big_m_margin", Reason: "must be strictly positive"}
	}
	if c.MaxItems < 1 {
		return ErrInvalidConfig{Field: "max_items", Reason: "must be at least 1"}
	}
	if c.MaxRetailers < 1 {
		return ErrInvalidConfig{Field: "max_retailers", Reason: "must be at least 1"}
	}
	if c.MaxQuantities < 1 {
		return ErrInvalidConfig{Field: "max_quantities", Reason: "must be at least 1"}
	}
	if c.Solver.Tolerance < 0 {
		return ErrInvalidConfig{Field: "solver.tolerance", Reason: "must be non-negative"}
	}
	if c.Solver.IntegralityTolerance < 0 || c.Solver.IntegralityTolerance >= 0.5 {
		return ErrInvalidConfig{Field: "solver.integrality_tolerance", Reason: "must be in [0, 0.5)"}
	}
	if c.Solver.MaxNodes < 0 {
		return ErrInvalidConfig{Field: "solver.max_nodes", Reason: "must be non-negative"}
	}
	if c.Solver.TimeLimit < 0 || (c.Solver.TimeLimit > 0 && c.Solver.TimeLimit < time.Millisecond) {
		return ErrInvalidConfig{Field: "solver.time_limit", Reason: "must be zero or at least 1ms"}
	}
	return nil
}

// ErrInvalidConfig is returned when the configuration is invalid.
type ErrInvalidConfig struct {
	Field  string
	Reason string
}

func (e ErrInvalidConfig) Error() string {
	return e.Field + ": " + e.Reason
}
