package algebra

import "github.com/sparqlplan/queryplan/expr"

// Node is the closed sum of SPARQL algebra node tags. Arity is fixed at
// compile time by each struct's fields, not checked dynamically; Validate
// still re-checks structural invariants that the type system cannot express
// (e.g. a nil required child, a negative slice offset).
type Node interface {
	String() string
	node()
}

// Tag identifies a Node's variant for NodeType/IsType and diagnostics.
type Tag uint8

const (
	TagBGP Tag = iota
	TagJoin
	TagLeftJoin
	TagMinus
	TagUnion
	TagFilter
	TagExtend
	TagGroup
	TagProject
	TagDistinct
	TagReduced
	TagOrderBy
	TagSlice
	TagValues
	TagService
	TagGraph
	TagPath
)

func (t Tag) String() string {
	switch t {
	case TagBGP:
		return "bgp"
	case TagJoin:
		return "join"
	case TagLeftJoin:
		return "left_join"
	case TagMinus:
		return "minus"
	case TagUnion:
		return "union"
	case TagFilter:
		return "filter"
	case TagExtend:
		return "extend"
	case TagGroup:
		return "group"
	case TagProject:
		return "project"
	case TagDistinct:
		return "distinct"
	case TagReduced:
		return "reduced"
	case TagOrderBy:
		return "order_by"
	case TagSlice:
		return "slice"
	case TagValues:
		return "values"
	case TagService:
		return "service"
	case TagGraph:
		return "graph"
	case TagPath:
		return "path"
	default:
		return "unknown"
	}
}

// BGP is a Basic Graph Pattern: an ordered sequence of triple patterns
// matched as a conjunction. Leaf node.
type BGP struct {
	Patterns []TriplePattern
}

func (BGP) node() {}

// NewBGP constructs a bgp node.
func NewBGP(patterns ...TriplePattern) *BGP {
	if patterns == nil {
		patterns = []TriplePattern{}
	}
	return &BGP{Patterns: patterns}
}

// Join is a binary inner join.
type Join struct{ Left, Right Node }

func (Join) node() {}

func NewJoin(left, right Node) *Join { return &Join{Left: left, Right: right} }

// LeftJoin is OPTIONAL: binary plus an optional filter expression that
// must hold for a right-side match to be accepted.
type LeftJoin struct {
	Left, Right Node
	Filter      expr.Expression // optional, may be nil
}

func (LeftJoin) node() {}

func NewLeftJoin(left, right Node, filter expr.Expression) *LeftJoin {
	return &LeftJoin{Left: left, Right: right, Filter: filter}
}

// Minus is SPARQL MINUS.
type Minus struct{ Left, Right Node }

func (Minus) node() {}

func NewMinus(left, right Node) *Minus { return &Minus{Left: left, Right: right} }

// Union is SPARQL UNION.
type Union struct{ Left, Right Node }

func (Union) node() {}

func NewUnion(left, right Node) *Union { return &Union{Left: left, Right: right} }

// Filter restricts Child to rows where Expr evaluates to true (EBV).
type Filter struct {
	Expr  expr.Expression
	Child Node
}

func (Filter) node() {}

func NewFilter(e expr.Expression, child Node) *Filter { return &Filter{Expr: e, Child: child} }

// Extend binds Target to Expr evaluated over each row of Child (BIND).
type Extend struct {
	Child  Node
	Target Variable
	Expr   expr.Expression
}

func (Extend) node() {}

func NewExtend(child Node, target Variable, e expr.Expression) *Extend {
	return &Extend{Child: child, Target: target, Expr: e}
}

// Group is GROUP BY with zero or more aggregate descriptors.
type Group struct {
	Child       Node
	GroupVars   []Variable
	Aggregates  []expr.Aggregate
}

func (Group) node() {}

func NewGroup(child Node, groupVars []Variable, aggregates []expr.Aggregate) *Group {
	return &Group{Child: child, GroupVars: groupVars, Aggregates: aggregates}
}

// Project restricts the output columns of Child to Vars (SELECT).
type Project struct {
	Child Node
	Vars  []Variable
}

func (Project) node() {}

func NewProject(child Node, vars []Variable) *Project { return &Project{Child: child, Vars: vars} }

// Distinct removes duplicate rows.
type Distinct struct{ Child Node }

func (Distinct) node() {}

func NewDistinct(child Node) *Distinct { return &Distinct{Child: child} }

// Reduced permits (but does not require) duplicate elimination.
type Reduced struct{ Child Node }

func (Reduced) node() {}

func NewReduced(child Node) *Reduced { return &Reduced{Child: child} }

// OrderCondition is one ORDER BY key.
type OrderCondition struct {
	Desc bool
	Expr expr.Expression
}

// OrderBy sorts Child by Conditions.
type OrderBy struct {
	Child      Node
	Conditions []OrderCondition
}

func (OrderBy) node() {}

func NewOrderBy(child Node, conditions []OrderCondition) *OrderBy {
	return &OrderBy{Child: child, Conditions: conditions}
}

// Limit is slice.limit: either a concrete non-negative bound or Unbounded.
type Limit struct {
	Unbounded bool
	Value     int64
}

// UnboundedLimit is the slice.limit sentinel meaning "no limit".
var UnboundedLimit = Limit{Unbounded: true}

// BoundedLimit constructs a concrete, finite limit.
func BoundedLimit(n int64) Limit { return Limit{Value: n} }

// Slice is OFFSET/LIMIT.
type Slice struct {
	Child  Node
	Offset int64
	Limit  Limit
}

func (Slice) node() {}

func NewSlice(child Node, offset int64, limit Limit) *Slice {
	return &Slice{Child: child, Offset: offset, Limit: limit}
}

// Values is an inline VALUES table. Leaf node. Each row has length
// len(Variables); a cell may be the Undef sentinel.
type Values struct {
	Variables []Variable
	Rows      [][]Term
}

func (Values) node() {}

func NewValues(variables []Variable, rows [][]Term) *Values {
	return &Values{Variables: variables, Rows: rows}
}

// Service is SPARQL SERVICE; execution is out of scope (§1), but the node
// shape is part of the closed algebra set so trees containing it still
// validate, traverse, and print.
type Service struct {
	Endpoint Term
	Child    Node
	Silent   bool
}

func (Service) node() {}

func NewService(endpoint Term, child Node, silent bool) *Service {
	return &Service{Endpoint: endpoint, Child: child, Silent: silent}
}

// Graph is GRAPH ?g { ... } / GRAPH <iri> { ... }.
type Graph struct {
	GraphTerm Term // NamedNode or Variable
	Child     Node
}

func (Graph) node() {}

func NewGraph(graphTerm Term, child Node) *Graph { return &Graph{GraphTerm: graphTerm, Child: child} }

// PathExpr is a SPARQL 1.1 property path expression. The evaluator
// interprets it; the planning core only needs to carry it structurally.
type PathExpr interface {
	pathExpr()
	String() string
}

// PathPredicate is a single predicate IRI used as a path of length one.
type PathPredicate struct{ IRI string }

func (PathPredicate) pathExpr()     {}
func (p PathPredicate) String() string { return "<" + p.IRI + ">" }

// PathInverse is ^path.
type PathInverse struct{ Path PathExpr }

func (PathInverse) pathExpr()     {}
func (p PathInverse) String() string { return "^" + p.Path.String() }

// PathSequence is path1/path2.
type PathSequence struct{ Left, Right PathExpr }

func (PathSequence) pathExpr() {}
func (p PathSequence) String() string {
	return p.Left.String() + "/" + p.Right.String()
}

// PathAlternative is path1|path2.
type PathAlternative struct{ Left, Right PathExpr }

func (PathAlternative) pathExpr() {}
func (p PathAlternative) String() string {
	return p.Left.String() + "|" + p.Right.String()
}

// PathRepeat is path* / path+ / path? depending on Min/Max (Max<0 = unbounded).
type PathRepeat struct {
	Path     PathExpr
	Min, Max int
}

func (PathRepeat) pathExpr() {}
func (p PathRepeat) String() string {
	switch {
	case p.Min == 0 && p.Max < 0:
		return p.Path.String() + "*"
	case p.Min == 1 && p.Max < 0:
		return p.Path.String() + "+"
	case p.Min == 0 && p.Max == 1:
		return p.Path.String() + "?"
	default:
		return p.Path.String()
	}
}

// Path is a property-path pattern [subject-term, path-expression,
// object-term]. Leaf node.
type Path struct {
	Subject Term
	Expr    PathExpr
	Object  Term
}

func (Path) node() {}

func NewPath(subject Term, path PathExpr, object Term) *Path {
	return &Path{Subject: subject, Expr: path, Object: object}
}

// NodeType returns n's tag.
func NodeType(n Node) Tag {
	switch n.(type) {
	case *BGP:
		return TagBGP
	case *Join:
		return TagJoin
	case *LeftJoin:
		return TagLeftJoin
	case *Minus:
		return TagMinus
	case *Union:
		return TagUnion
	case *Filter:
		return TagFilter
	case *Extend:
		return TagExtend
	case *Group:
		return TagGroup
	case *Project:
		return TagProject
	case *Distinct:
		return TagDistinct
	case *Reduced:
		return TagReduced
	case *OrderBy:
		return TagOrderBy
	case *Slice:
		return TagSlice
	case *Values:
		return TagValues
	case *Service:
		return TagService
	case *Graph:
		return TagGraph
	case *Path:
		return TagPath
	default:
		return Tag(255)
	}
}

// IsType reports whether n carries tag.
func IsType(n Node, tag Tag) bool {
	if n == nil {
		return false
	}
	return NodeType(n) == tag
}
