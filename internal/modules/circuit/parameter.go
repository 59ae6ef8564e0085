// Package circuit provides parametric quantum circuits and the affine
// mapping between circuit parameters and individual gate parameters.
package circuit

// Parameter is one free scalar exposed to the optimizer. Parameters are
// assigned dense indices at circuit construction time; the index defines
// the position of the corresponding entry in gradient vectors.
type Parameter struct {
	Index int
	Name  string
}

// Term is one linear component of an affine gate-parameter expression.
type Term struct {
	Param Parameter
	Coeff float64
}

// Expression is an affine function of circuit parameters:
//
//	value = sum(Coeff_i * param_i) + Const
//
// A constant-only expression has no circuit-parameter dependency.
type Expression struct {
	Terms []Term
	Const float64
}

// Lin builds an expression with a single linear term.
func Lin(p Parameter, coeff float64) Expression {
	return Expression{Terms: []Term{{Param: p, Coeff: coeff}}}
}

// Constant builds a parameter-free expression.
func Constant(v float64) Expression {
	return Expression{Const: v}
}

// Plus returns a copy of the expression with an additional linear term.
func (e Expression) Plus(p Parameter, coeff float64) Expression {
	terms := make([]Term, len(e.Terms), len(e.Terms)+1)
	copy(terms, e.Terms)
	terms = append(terms, Term{Param: p, Coeff: coeff})
	return Expression{Terms: terms, Const: e.Const}
}

// Offset returns a copy of the expression with the constant shifted by v.
func (e Expression) Offset(v float64) Expression {
	terms := make([]Term, len(e.Terms))
	copy(terms, e.Terms)
	return Expression{Terms: terms, Const: e.Const + v}
}

// Value evaluates the expression for the given parameter values.
func (e Expression) Value(values []float64) float64 {
	v := e.Const
	for _, t := range e.Terms {
		v += t.Coeff * values[t.Param.Index]
	}
	return v
}
