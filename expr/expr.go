// Package expr implements the SPARQL expression sum type consumed by
// filters, EXTEND targets, and aggregate descriptors. Expressions are a
// tree distinct from algebra.Node: the optimizer inspects expressions but
// only ever rewrites algebra nodes.
package expr

import (
	"fmt"
	"strings"
)

// CompareOp is the operator of a Comparison expression.
type CompareOp uint8

const (
	OpGreater CompareOp = iota
	OpLess
	OpEqual
	OpNotEqual
	OpGreaterEq
	OpLessEq
)

func (op CompareOp) String() string {
	switch op {
	case OpGreater:
		return ">"
	case OpLess:
		return "<"
	case OpEqual:
		return "="
	case OpNotEqual:
		return "!="
	case OpGreaterEq:
		return ">="
	case OpLessEq:
		return "<="
	default:
		return "?"
	}
}

// ArithOp is the operator of an Arithmetic expression.
type ArithOp uint8

const (
	OpAdd ArithOp = iota
	OpSub
	OpMultiply
	OpDivide
)

func (op ArithOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMultiply:
		return "*"
	case OpDivide:
		return "/"
	default:
		return "?"
	}
}

// Expression is the SPARQL expression sum type. free_variables is exposed
// via the package-level FreeVariables helper rather than a method, so
// leaf terms (Value, VarRef) stay plain data.
type Expression interface {
	String() string
	expression()
}

// VarRef is a variable reference leaf.
type VarRef struct {
	Name string
}

func (VarRef) expression()     {}
func (v VarRef) String() string { return "?" + v.Name }

// Value is a constant leaf (string, number, bool, or an opaque term the
// evaluator understands).
type Value struct {
	V interface{}
}

func (Value) expression()     {}
func (v Value) String() string { return fmt.Sprintf("%v", v.V) }

// Comparison is one of greater/less/equal/not_equal/greater_eq/less_eq.
type Comparison struct {
	Op          CompareOp
	Left, Right Expression
}

func (Comparison) expression() {}
func (c Comparison) String() string {
	return fmt.Sprintf("(%s %s %s)", c.Left, c.Op, c.Right)
}

// And is an n-ary (here binary, flattened at use sites) boolean AND.
type And struct{ Left, Right Expression }

func (And) expression()     {}
func (a And) String() string { return fmt.Sprintf("(%s && %s)", a.Left, a.Right) }

// Or is boolean OR.
type Or struct{ Left, Right Expression }

func (Or) expression()     {}
func (o Or) String() string { return fmt.Sprintf("(%s || %s)", o.Left, o.Right) }

// Not is boolean negation.
type Not struct{ Operand Expression }

func (Not) expression()     {}
func (n Not) String() string { return fmt.Sprintf("!(%s)", n.Operand) }

// Bound is the BOUND(?var) predicate.
type Bound struct{ Var string }

func (Bound) expression()     {}
func (b Bound) String() string { return fmt.Sprintf("BOUND(?%s)", b.Var) }

// Arithmetic is add/sub/multiply/divide.
type Arithmetic struct {
	Op          ArithOp
	Left, Right Expression
}

func (Arithmetic) expression() {}
func (a Arithmetic) String() string {
	return fmt.Sprintf("(%s %s %s)", a.Left, a.Op, a.Right)
}

// Call is a named function application, e.g. CONTAINS(?s, "x") or
// STRLEN(?s).
type Call struct {
	Name string
	Args []Expression
}

func (Call) expression() {}
func (c Call) String() string {
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", c.Name, strings.Join(parts, ", "))
}

// AggregateKind enumerates the supported aggregate functions.
type AggregateKind uint8

const (
	AggCount AggregateKind = iota
	AggSum
	AggAvg
	AggMin
	AggMax
	AggGroupConcat
	AggSample
)

func (k AggregateKind) String() string {
	switch k {
	case AggCount:
		return "COUNT"
	case AggSum:
		return "SUM"
	case AggAvg:
		return "AVG"
	case AggMin:
		return "MIN"
	case AggMax:
		return "MAX"
	case AggGroupConcat:
		return "GROUP_CONCAT"
	case AggSample:
		return "SAMPLE"
	default:
		return "UNKNOWN"
	}
}

// Aggregate is an aggregate descriptor inside group.aggregates. Star is
// true for COUNT(*); otherwise Arg holds the aggregated expression.
type Aggregate struct {
	Kind     AggregateKind
	Arg      Expression
	Star     bool
	Distinct bool
	Output   string // the variable this aggregate binds
}

func (a Aggregate) String() string {
	inner := "*"
	if !a.Star {
		inner = a.Arg.String()
	}
	if a.Distinct {
		return fmt.Sprintf("%s(DISTINCT %s)", a.Kind, inner)
	}
	return fmt.Sprintf("%s(%s)", a.Kind, inner)
}

// FreeVariables returns the set of Variables textually appearing at the
// leaves of e, deduplicated, in first-appearance order.
func FreeVariables(e Expression) []string {
	var out []string
	seen := map[string]bool{}
	var walk func(Expression)
	walk = func(e Expression) {
		switch n := e.(type) {
		case nil:
			return
		case VarRef:
			if !seen[n.Name] {
				seen[n.Name] = true
				out = append(out, n.Name)
			}
		case Value:
			return
		case Comparison:
			walk(n.Left)
			walk(n.Right)
		case And:
			walk(n.Left)
			walk(n.Right)
		case Or:
			walk(n.Left)
			walk(n.Right)
		case Not:
			walk(n.Operand)
		case Bound:
			if !seen[n.Var] {
				seen[n.Var] = true
				out = append(out, n.Var)
			}
		case Arithmetic:
			walk(n.Left)
			walk(n.Right)
		case Call:
			for _, a := range n.Args {
				walk(a)
			}
		}
	}
	walk(e)
	return out
}

// FlattenAnd splits the conjuncts of a top-level AND chain; a non-AND
// expression yields a single-element slice.
func FlattenAnd(e Expression) []Expression {
	and, ok := e.(And)
	if !ok {
		return []Expression{e}
	}
	return append(FlattenAnd(and.Left), FlattenAnd(and.Right)...)
}

// Conjoin rebuilds a left-associative AND chain from conjuncts. Conjoin of
// zero expressions returns nil; of one, returns it unwrapped.
func Conjoin(conjuncts []Expression) Expression {
	if len(conjuncts) == 0 {
		return nil
	}
	result := conjuncts[0]
	for _, c := range conjuncts[1:] {
		result = And{Left: result, Right: c}
	}
	return result
}

// VarSet is a small helper set of variable names, used by the optimizer's
// free-variable subset checks.
type VarSet map[string]bool

func NewVarSet(names []string) VarSet {
	s := make(VarSet, len(names))
	for _, n := range names {
		s[n] = true
	}
	return s
}

func (s VarSet) SubsetOf(other VarSet) bool {
	for k := range s {
		if !other[k] {
			return false
		}
	}
	return true
}

func (s VarSet) IntersectsAny(other VarSet) bool {
	for k := range s {
		if other[k] {
			return true
		}
	}
	return false
}

func (s VarSet) Has(name string) bool { return s[name] }
