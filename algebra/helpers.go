package algebra

// CollectBGPs returns every bgp leaf in n's tree, in traversal order.
func CollectBGPs(n Node) []*BGP {
	var out []*BGP
	FoldPre(n, struct{}{}, func(node Node, acc interface{}) interface{} {
		if bgp, ok := node.(*BGP); ok {
			out = append(out, bgp)
		}
		return acc
	})
	return out
}

// TripleCount returns the sum of len(patterns) over all bgp leaves in n.
func TripleCount(n Node) int {
	total := 0
	for _, bgp := range CollectBGPs(n) {
		total += len(bgp.Patterns)
	}
	return total
}

// HasOptional reports whether n's tree contains a left_join node.
func HasOptional(n Node) bool { return hasTag(n, TagLeftJoin) }

// HasUnion reports whether n's tree contains a union node.
func HasUnion(n Node) bool { return hasTag(n, TagUnion) }

// HasFilter reports whether n's tree contains a filter node.
func HasFilter(n Node) bool { return hasTag(n, TagFilter) }

// HasAggregation reports whether n's tree contains a group node.
func HasAggregation(n Node) bool { return hasTag(n, TagGroup) }

func hasTag(n Node, tag Tag) bool {
	found := false
	FoldPre(n, struct{}{}, func(node Node, acc interface{}) interface{} {
		if NodeType(node) == tag {
			found = true
		}
		return acc
	})
	return found
}

// CollectFilters returns every filter-expression encountered in n's tree,
// in traversal order.
func CollectFilters(n Node) []interface{ String() string } {
	var out []interface{ String() string }
	FoldPre(n, struct{}{}, func(node Node, acc interface{}) interface{} {
		if f, ok := node.(*Filter); ok && f.Expr != nil {
			out = append(out, f.Expr)
		}
		return acc
	})
	return out
}

// ResultVariables unwraps distinct/reduced/order_by/slice wrappers around
// n looking for an outermost project node and returns its projected
// variables. A tree with no such outer project (ASK/CONSTRUCT/DESCRIBE
// shapes, or a bare pattern) yields the empty sequence.
func ResultVariables(n Node) []Variable {
	for {
		switch t := n.(type) {
		case *Project:
			return t.Vars
		case *Distinct:
			n = t.Child
		case *Reduced:
			n = t.Child
		case *OrderBy:
			n = t.Child
		case *Slice:
			n = t.Child
		default:
			return nil
		}
	}
}

// InScope returns the set of variables produced anywhere within n's
// subtree: the union of variables from all BGPs, VALUES, services, paths,
// and extend targets — the scope callers use to validate project/group/
// order_by variable references (§3.2's "every variable referenced by
// project.variables ... must be in scope" invariant).
func InScope(n Node) map[string]bool {
	scope := map[string]bool{}
	FoldPre(n, struct{}{}, func(node Node, acc interface{}) interface{} {
		switch t := node.(type) {
		case *BGP:
			for _, p := range t.Patterns {
				for _, v := range p.Variables() {
					scope[v.Name] = true
				}
			}
		case *Values:
			for _, v := range t.Variables {
				scope[v.Name] = true
			}
		case *Extend:
			scope[t.Target.Name] = true
		case *Path:
			if v, ok := t.Subject.(Variable); ok {
				scope[v.Name] = true
			}
			if v, ok := t.Object.(Variable); ok {
				scope[v.Name] = true
			}
		}
		return acc
	})
	return scope
}

// InScopeAfterProject returns InScope(n) restricted by an outer project's
// variable list, mirroring "minus what project restricts" from §3.2.
func InScopeAfterProject(n Node) map[string]bool {
	if p, ok := n.(*Project); ok {
		scope := InScope(p.Child)
		restricted := map[string]bool{}
		for _, v := range p.Vars {
			if scope[v.Name] {
				restricted[v.Name] = true
			}
		}
		return restricted
	}
	return InScope(n)
}
