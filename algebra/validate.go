package algebra

import "github.com/sparqlplan/queryplan/errs"

// Validate returns nil if n and every node beneath it conforms to the
// arity and range invariants of the algebra (§3.2), or the first violation
// encountered as an *errs.PlanningError (KindValidation).
func Validate(n Node) error {
	if n == nil {
		return errs.Validation("nil node")
	}
	switch t := n.(type) {
	case *BGP:
		if t.Patterns == nil {
			// An empty-but-non-nil sequence is fine (bgp{} matches everything);
			// nil is the "non-sequence" shape the spec calls out explicitly.
			return errs.Validation("bgp.patterns must be a sequence, got nil")
		}
		for _, p := range t.Patterns {
			if p.Subject == nil || p.Predicate == nil || p.Object == nil {
				return errs.Validation("triple pattern has a nil position: %s", p)
			}
		}
		return nil

	case *Join:
		return validateChildren("join", t.Left, t.Right)

	case *LeftJoin:
		return validateChildren("left_join", t.Left, t.Right)

	case *Minus:
		return validateChildren("minus", t.Left, t.Right)

	case *Union:
		return validateChildren("union", t.Left, t.Right)

	case *Filter:
		if t.Expr == nil {
			return errs.Validation("filter.expression must not be nil")
		}
		return validateChildren("filter", t.Child)

	case *Extend:
		if t.Expr == nil {
			return errs.Validation("extend.expression must not be nil")
		}
		if t.Target.Name == "" {
			return errs.Validation("extend.target must be a non-empty variable")
		}
		return validateChildren("extend", t.Child)

	case *Group:
		return validateChildren("group", t.Child)

	case *Project:
		return validateChildren("project", t.Child)

	case *Distinct:
		return validateChildren("distinct", t.Child)

	case *Reduced:
		return validateChildren("reduced", t.Child)

	case *OrderBy:
		return validateChildren("order_by", t.Child)

	case *Slice:
		if t.Offset < 0 {
			return errs.Validation("slice.offset must be >= 0, got %d", t.Offset)
		}
		if !t.Limit.Unbounded && t.Limit.Value < 0 {
			return errs.Validation("slice.limit must be >= 0 or unbounded, got %d", t.Limit.Value)
		}
		return validateChildren("slice", t.Child)

	case *Values:
		for i, row := range t.Rows {
			if len(row) != len(t.Variables) {
				return errs.Validation("values row %d has %d cells, want %d", i, len(row), len(t.Variables))
			}
		}
		return nil

	case *Service:
		if t.Endpoint == nil {
			return errs.Validation("service.endpoint must not be nil")
		}
		return validateChildren("service", t.Child)

	case *Graph:
		if t.GraphTerm == nil {
			return errs.Validation("graph.graph-term must not be nil")
		}
		if _, ok := t.GraphTerm.(NamedNode); !ok {
			if _, ok := t.GraphTerm.(Variable); !ok {
				return errs.Validation("graph.graph-term must be a NamedNode or Variable, got %T", t.GraphTerm)
			}
		}
		return validateChildren("graph", t.Child)

	case *Path:
		if t.Subject == nil || t.Object == nil || t.Expr == nil {
			return errs.Validation("path requires non-nil subject, object, and path-expression")
		}
		return nil

	default:
		return errs.Validation("unknown algebra node tag: %T", n)
	}
}

func validateChildren(tag string, children ...Node) error {
	for i, c := range children {
		if c == nil {
			return errs.Validation("%s: child %d must not be nil", tag, i)
		}
		if err := Validate(c); err != nil {
			return err
		}
	}
	return nil
}
