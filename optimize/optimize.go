// Package optimize implements the algebraic rewrites applied to a
// compiled query tree before join enumeration (§4.5): filter push-down
// past join/left_join/minus/project/distinct/reduced/order_by/slice/
// extend/group/graph, protecting left_join's right side and every union
// branch, and splitting conjunctive filters into independently pushed
// conjuncts.
package optimize

import (
	"github.com/sparqlplan/queryplan/algebra"
	"github.com/sparqlplan/queryplan/expr"
)

// Options bundles the optimizer's enabled rewrites.
type Options struct {
	PushFilters bool
}

// DefaultOptions enables every rewrite the optimizer currently implements.
func DefaultOptions() Options {
	return Options{PushFilters: true}
}

// Optimize applies the enabled rewrites to n and returns the rewritten
// tree; n itself is never mutated.
func Optimize(n algebra.Node, opts Options) algebra.Node {
	if opts.PushFilters {
		n = PushFiltersDown(n)
	}
	return n
}

// PushFiltersDown pushes each filter's conjuncts as far toward the leaves
// as the shape table below allows, in a single traversal: a conjunct
// introduced at a given filter position is pushed to its final resting
// place immediately, rather than requiring repeated optimizer passes.
func PushFiltersDown(n algebra.Node) algebra.Node {
	return rewrite(n)
}

func rewrite(n algebra.Node) algebra.Node {
	switch t := n.(type) {
	case *algebra.Filter:
		child := rewrite(t.Child)
		var residual []expr.Expression
		for _, c := range expr.FlattenAnd(t.Expr) {
			pushed := pushConjunct(c, child)
			if f, ok := pushed.(*algebra.Filter); ok && f.Child == child {
				residual = append(residual, c)
				continue
			}
			child = pushed
		}
		if len(residual) == 0 {
			return child
		}
		return &algebra.Filter{Expr: expr.Conjoin(residual), Child: child}
	case *algebra.Join:
		return &algebra.Join{Left: rewrite(t.Left), Right: rewrite(t.Right)}
	case *algebra.LeftJoin:
		return &algebra.LeftJoin{Left: rewrite(t.Left), Right: rewrite(t.Right), Filter: t.Filter}
	case *algebra.Minus:
		return &algebra.Minus{Left: rewrite(t.Left), Right: rewrite(t.Right)}
	case *algebra.Union:
		return &algebra.Union{Left: rewrite(t.Left), Right: rewrite(t.Right)}
	case *algebra.Extend:
		return &algebra.Extend{Child: rewrite(t.Child), Target: t.Target, Expr: t.Expr}
	case *algebra.Group:
		return &algebra.Group{Child: rewrite(t.Child), GroupVars: t.GroupVars, Aggregates: t.Aggregates}
	case *algebra.Project:
		return &algebra.Project{Child: rewrite(t.Child), Vars: t.Vars}
	case *algebra.Distinct:
		return &algebra.Distinct{Child: rewrite(t.Child)}
	case *algebra.Reduced:
		return &algebra.Reduced{Child: rewrite(t.Child)}
	case *algebra.OrderBy:
		return &algebra.OrderBy{Child: rewrite(t.Child), Conditions: t.Conditions}
	case *algebra.Slice:
		return &algebra.Slice{Child: rewrite(t.Child), Offset: t.Offset, Limit: t.Limit}
	case *algebra.Service:
		return &algebra.Service{Endpoint: t.Endpoint, Child: rewrite(t.Child), Silent: t.Silent}
	case *algebra.Graph:
		return &algebra.Graph{GraphTerm: t.GraphTerm, Child: rewrite(t.Child)}
	default:
		// bgp, values, path: leaves with no child to push into.
		return n
	}
}

func scopeOf(n algebra.Node) expr.VarSet {
	return expr.VarSet(algebra.InScope(n))
}

func varNames(vars []algebra.Variable) []string {
	out := make([]string, len(vars))
	for i, v := range vars {
		out[i] = v.Name
	}
	return out
}

// pushConjunct returns a tree equivalent to Filter{conjunct, node} with
// conjunct pushed as deep into node's shape as the child-shape table
// permits, wrapping at the first position where it no longer can.
func pushConjunct(conjunct expr.Expression, node algebra.Node) algebra.Node {
	free := expr.NewVarSet(expr.FreeVariables(conjunct))
	wrap := func() algebra.Node { return &algebra.Filter{Expr: conjunct, Child: node} }

	switch t := node.(type) {
	case *algebra.Join:
		if free.SubsetOf(scopeOf(t.Left)) {
			return &algebra.Join{Left: pushConjunct(conjunct, t.Left), Right: t.Right}
		}
		if free.SubsetOf(scopeOf(t.Right)) {
			return &algebra.Join{Left: t.Left, Right: pushConjunct(conjunct, t.Right)}
		}
		return wrap()

	case *algebra.LeftJoin:
		// Only the left (required) side is safe: pushing into the right
		// (optional) side would turn "unmatched rows keep nulls" into
		// "unmatched rows are dropped", changing OPTIONAL semantics.
		if free.SubsetOf(scopeOf(t.Left)) {
			return &algebra.LeftJoin{Left: pushConjunct(conjunct, t.Left), Right: t.Right, Filter: t.Filter}
		}
		return wrap()

	case *algebra.Minus:
		// Treated like left_join: only the left side's rows survive to the
		// result, so only it is safe to filter before the set-difference.
		if free.SubsetOf(scopeOf(t.Left)) {
			return &algebra.Minus{Left: pushConjunct(conjunct, t.Left), Right: t.Right}
		}
		return wrap()

	case *algebra.Union:
		// Each branch can bind the same variable name to unrelated values;
		// pushing past the branch boundary is never attempted.
		return wrap()

	case *algebra.Project:
		if free.SubsetOf(scopeOf(t.Child)) {
			return &algebra.Project{Child: pushConjunct(conjunct, t.Child), Vars: t.Vars}
		}
		return wrap()

	case *algebra.Distinct:
		if free.SubsetOf(scopeOf(t.Child)) {
			return &algebra.Distinct{Child: pushConjunct(conjunct, t.Child)}
		}
		return wrap()

	case *algebra.Reduced:
		if free.SubsetOf(scopeOf(t.Child)) {
			return &algebra.Reduced{Child: pushConjunct(conjunct, t.Child)}
		}
		return wrap()

	case *algebra.OrderBy:
		if free.SubsetOf(scopeOf(t.Child)) {
			return &algebra.OrderBy{Child: pushConjunct(conjunct, t.Child), Conditions: t.Conditions}
		}
		return wrap()

	case *algebra.Slice:
		// OFFSET/LIMIT select rows by position within the result stream,
		// not by value, so a value filter pushes through it exactly like
		// distinct/reduced/order_by: it changes which rows exist, not
		// where in the stream they land.
		if free.SubsetOf(scopeOf(t.Child)) {
			return &algebra.Slice{Child: pushConjunct(conjunct, t.Child), Offset: t.Offset, Limit: t.Limit}
		}
		return wrap()

	case *algebra.Extend:
		if !free.Has(t.Target.Name) && free.SubsetOf(scopeOf(t.Child)) {
			return &algebra.Extend{Child: pushConjunct(conjunct, t.Child), Target: t.Target, Expr: t.Expr}
		}
		return wrap()

	case *algebra.Group:
		groupKeys := expr.NewVarSet(varNames(t.GroupVars))
		if free.SubsetOf(groupKeys) {
			return &algebra.Group{Child: pushConjunct(conjunct, t.Child), GroupVars: t.GroupVars, Aggregates: t.Aggregates}
		}
		return wrap()

	case *algebra.Graph:
		if free.SubsetOf(scopeOf(t.Child)) {
			return &algebra.Graph{GraphTerm: t.GraphTerm, Child: pushConjunct(conjunct, t.Child)}
		}
		return wrap()

	default:
		// bgp, values, path, service, filter: leaves or protected
		// boundaries the pushdown never crosses.
		return wrap()
	}
}

// FilterStats summarizes a tree's filter nodes for diagnostics.
type FilterStats struct {
	TotalFilters int
}

// AnalyzeFilters counts the filter nodes present in n's tree.
func AnalyzeFilters(n algebra.Node) FilterStats {
	stats := FilterStats{}
	algebra.FoldPre(n, struct{}{}, func(node algebra.Node, acc interface{}) interface{} {
		if _, ok := node.(*algebra.Filter); ok {
			stats.TotalFilters++
		}
		return acc
	})
	return stats
}
