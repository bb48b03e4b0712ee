package mip

import "strings"

// Sense is the relation between a constraint's terms and its right-hand side.
type Sense int

const (
	LessThanOrEqual Sense = iota
	GreaterThanOrEqual
	Equal
)

// String returns the operator for the sense.
func (s Sense) String() string {
	switch s {
	case LessThanOrEqual:
		return "<="
	case GreaterThanOrEqual:
		return ">="
	case Equal:
		return "="
	default:
		return "?"
	}
}

// Term is coefficient * variable.
type Term struct {
	Coefficient float64
	Var         Var
}

// Constraint is a linear relation `Σ terms sense rhs`.
type Constraint struct {
	name  string
	sense Sense
	rhs   float64
	terms []Term
}

// NewTerm appends coefficient*v to the constraint. Zero coefficients are dropped.
func (c *Constraint) NewTerm(coefficient float64, v Var) *Constraint {
	if coefficient != 0 {
		c.terms = append(c.terms, Term{Coefficient: coefficient, Var: v})
	}
	return c
}

// Name returns the constraint name.
func (c *Constraint) Name() string { return c.name }

// Sense returns the constraint sense.
func (c *Constraint) Sense() Sense { return c.sense }

// RHS returns the right-hand side.
func (c *Constraint) RHS() float64 { return c.rhs }

// Terms returns the constraint terms.
func (c *Constraint) Terms() []Term { return c.terms }

// Activity evaluates Σ terms at values.
func (c *Constraint) Activity(values []float64) float64 {
	return sumTerms(c.terms, values)
}

// Satisfied reports whether the constraint holds at values within tol.
func (c *Constraint) Satisfied(values []float64, tol float64) bool {
	a := c.Activity(values)
	switch c.sense {
	case LessThanOrEqual:
		return a <= c.rhs+tol
	case GreaterThanOrEqual:
		return a >= c.rhs-tol
	default:
		return a >= c.rhs-tol && a <= c.rhs+tol
	}
}

// String renders the constraint, e.g. "demand_l1: quant_l1_r1 + quant_l1_r2 >= 3".
func (c *Constraint) String() string {
	var b strings.Builder
	b.WriteString(c.name)
	b.WriteString(": ")
	writeTerms(&b, c.terms)
	b.WriteString(" ")
	b.WriteString(c.sense.String())
	b.WriteString(" ")
	b.WriteString(formatFloat(c.rhs))
	return b.String()
}

// ObjectiveSense is the optimization direction.
type ObjectiveSense int

const (
	Minimize ObjectiveSense = iota
	Maximize
)

// Objective is a linear objective function.
type Objective struct {
	sense  ObjectiveSense
	offset float64
	terms  []Term
}

// SetMinimize sets the direction to minimization.
func (o *Objective) SetMinimize() { o.sense = Minimize }

// SetMaximize sets the direction to maximization.
func (o *Objective) SetMaximize() { o.sense = Maximize }

// Sense returns the direction.
func (o *Objective) Sense() ObjectiveSense { return o.sense }

// NewTerm appends coefficient*v to the objective. Zero coefficients are dropped.
func (o *Objective) NewTerm(coefficient float64, v Var) *Objective {
	if coefficient != 0 {
		o.terms = append(o.terms, Term{Coefficient: coefficient, Var: v})
	}
	return o
}

// SetOffset sets the constant added to the objective.
func (o *Objective) SetOffset(offset float64) { o.offset = offset }

// Offset returns the constant term.
func (o *Objective) Offset() float64 { return o.offset }

// Terms returns the objective terms.
func (o *Objective) Terms() []Term { return o.terms }

// Value evaluates the objective at values.
func (o *Objective) Value(values []float64) float64 {
	return o.offset + sumTerms(o.terms, values)
}

// Coefficients returns a dense coefficient vector of length n.
// Repeated terms on the same variable are summed.
func (o *Objective) Coefficients(n int) []float64 {
	c := make([]float64, n)
	for _, t := range o.terms {
		c[t.Var.index] += t.Coefficient
	}
	return c
}

func sumTerms(terms []Term, values []float64) float64 {
	total := 0.0
	for _, t := range terms {
		total += t.Coefficient * values[t.Var.index]
	}
	return total
}
