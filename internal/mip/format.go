package mip

import (
	"strconv"
	"strings"
)

// String renders the model in a readable LP-like text form.
func (m *Model) String() string {
	var b strings.Builder
	if m.objective.sense == Maximize {
		b.WriteString("maximize\n  ")
	} else {
		b.WriteString("minimize\n  ")
	}
	writeTerms(&b, m.objective.terms)
	if m.objective.offset != 0 {
		b.WriteString(" + ")
		b.WriteString(formatFloat(m.objective.offset))
	}
	b.WriteString("\nsubject to\n")
	for _, c := range m.constraints {
		b.WriteString("  ")
		b.WriteString(c.String())
		b.WriteString("\n")
	}
	b.WriteString("variables\n")
	for _, v := range m.vars {
		b.WriteString("  ")
		b.WriteString(v.name)
		b.WriteString(" ")
		b.WriteString(v.kind.String())
		b.WriteString(" [")
		b.WriteString(formatFloat(v.lower))
		b.WriteString(", ")
		b.WriteString(formatFloat(v.upper))
		b.WriteString("]\n")
	}
	return b.String()
}

func writeTerms(b *strings.Builder, terms []Term) {
	if len(terms) == 0 {
		b.WriteString("0")
		return
	}
	for i, t := range terms {
		coef := t.Coefficient
		switch {
		case i == 0 && coef < 0:
			b.WriteString("-")
			coef = -coef
		case i > 0 && coef < 0:
			b.WriteString(" - ")
			coef = -coef
		case i > 0:
			b.WriteString(" + ")
		}
		if coef != 1 {
			b.WriteString(formatFloat(coef))
			b.WriteString(" ")
		}
		b.WriteString(t.Var.name)
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
