// Package mip holds the vocabulary for mixed-integer linear models: variables,
// linear constraints and a linear objective. It knows nothing about how a
// model is solved; solvers consume a *Model and return values indexed by Var.
package mip

import (
	"fmt"
	"math"
)

// VarKind is the domain of a decision variable.
type VarKind int

const (
	// Continuous variables take any real value within their bounds.
	Continuous VarKind = iota

	// Integer variables take integral values within their bounds.
	Integer

	// Binary variables are integers restricted to {0, 1}.
	Binary
)

// String returns the string representation of the variable kind.
func (k VarKind) String() string {
	switch k {
	case Continuous:
		return "continuous"
	case Integer:
		return "integer"
	case Binary:
		return "binary"
	default:
		return "unknown"
	}
}

// Var is a handle to a decision variable of a Model.
// The zero Var is not valid; obtain variables from the Model constructors.
type Var struct {
	index int
	name  string
	kind  VarKind
	lower float64
	upper float64
}

// Index is the position of the variable in Model.Vars and in solution vectors.
func (v Var) Index() int { return v.index }

// Name returns the variable name.
func (v Var) Name() string { return v.name }

// Kind returns the variable domain.
func (v Var) Kind() VarKind { return v.kind }

// Lower returns the lower bound.
func (v Var) Lower() float64 { return v.lower }

// Upper returns the upper bound, +Inf when unbounded.
func (v Var) Upper() float64 { return v.upper }

// IsIntegral reports whether the variable must take an integral value.
func (v Var) IsIntegral() bool { return v.kind == Integer || v.kind == Binary }

// Model is a linear model under construction.
type Model struct {
	name        string
	vars        []Var
	byName      map[string]int
	constraints []*Constraint
	objective   *Objective
}

// NewModel creates an empty minimization model.
func NewModel(name string) *Model {
	return &Model{
		name:      name,
		byName:    make(map[string]int),
		objective: &Objective{sense: Minimize},
	}
}

// Name returns the model name.
func (m *Model) Name() string { return m.name }

// NewContinuous adds a continuous variable with bounds [lower, upper].
func (m *Model) NewContinuous(name string, lower, upper float64) Var {
	return m.addVar(name, Continuous, lower, upper)
}

// NewInteger adds an integer variable with bounds [lower, upper].
func (m *Model) NewInteger(name string, lower, upper float64) Var {
	return m.addVar(name, Integer, lower, upper)
}

// NewBinary adds a {0, 1} variable.
func (m *Model) NewBinary(name string) Var {
	return m.addVar(name, Binary, 0, 1)
}

func (m *Model) addVar(name string, kind VarKind, lower, upper float64) Var {
	if _, dup := m.byName[name]; dup {
		panic(fmt.Sprintf("mip: duplicate variable name %q", name))
	}
	if lower > upper {
		panic(fmt.Sprintf("mip: variable %q has lower bound %v above upper bound %v", name, lower, upper))
	}
	v := Var{
		index: len(m.vars),
		name:  name,
		kind:  kind,
		lower: lower,
		upper: upper,
	}
	m.vars = append(m.vars, v)
	m.byName[name] = v.index
	return v
}

// Vars returns all variables in creation order.
func (m *Model) Vars() []Var { return m.vars }

// NumVars returns the number of variables.
func (m *Model) NumVars() int { return len(m.vars) }

// Var looks a variable up by name.
func (m *Model) Var(name string) (Var, bool) {
	i, ok := m.byName[name]
	if !ok {
		return Var{}, false
	}
	return m.vars[i], true
}

// NewConstraint adds an empty constraint `terms sense rhs`; add terms with NewTerm.
func (m *Model) NewConstraint(name string, sense Sense, rhs float64) *Constraint {
	c := &Constraint{name: name, sense: sense, rhs: rhs}
	m.constraints = append(m.constraints, c)
	return c
}

// Constraints returns all constraints in creation order.
func (m *Model) Constraints() []*Constraint { return m.constraints }

// Objective returns the model objective.
func (m *Model) Objective() *Objective { return m.objective }

// HasIntegers reports whether any variable is integer or binary.
func (m *Model) HasIntegers() bool {
	for _, v := range m.vars {
		if v.IsIntegral() {
			return true
		}
	}
	return false
}

// Feasible checks bounds, integrality and every constraint against values.
// It returns the name of the first violated element, or "" when all hold.
func (m *Model) Feasible(values []float64, tol float64) (bool, string) {
	if len(values) != len(m.vars) {
		return false, "values"
	}
	for _, v := range m.vars {
		x := values[v.index]
		if x < v.lower-tol || x > v.upper+tol {
			return false, v.name
		}
		if v.IsIntegral() && math.Abs(x-math.Round(x)) > tol {
			return false, v.name
		}
	}
	for _, c := range m.constraints {
		if !c.Satisfied(values, tol) {
			return false, c.name
		}
	}
	return true, ""
}
