package algebra

// Children returns the structurally ordered child algebra nodes of n (not
// expressions). Leaf nodes (bgp, values, service's... no — service has one
// child; path and leaf nodes without children return nil/empty).
func Children(n Node) []Node {
	switch t := n.(type) {
	case *BGP:
		return nil
	case *Join:
		return []Node{t.Left, t.Right}
	case *LeftJoin:
		return []Node{t.Left, t.Right}
	case *Minus:
		return []Node{t.Left, t.Right}
	case *Union:
		return []Node{t.Left, t.Right}
	case *Filter:
		return []Node{t.Child}
	case *Extend:
		return []Node{t.Child}
	case *Group:
		return []Node{t.Child}
	case *Project:
		return []Node{t.Child}
	case *Distinct:
		return []Node{t.Child}
	case *Reduced:
		return []Node{t.Child}
	case *OrderBy:
		return []Node{t.Child}
	case *Slice:
		return []Node{t.Child}
	case *Values:
		return nil
	case *Service:
		return []Node{t.Child}
	case *Graph:
		return []Node{t.Child}
	case *Path:
		return nil
	default:
		return nil
	}
}

// Variables returns the deduplicated, order-insensitive set of Variables
// appearing anywhere in patterns, VALUES, paths, and subterms under n — not
// variables introduced only by extend/project semantics (scope analysis
// uses ResultVariables / InScope instead).
func Variables(n Node) []Variable {
	seen := map[string]bool{}
	var out []Variable
	add := func(v Variable) {
		if !seen[v.Name] {
			seen[v.Name] = true
			out = append(out, v)
		}
	}
	addTerm := func(t Term) {
		if v, ok := t.(Variable); ok {
			add(v)
		}
	}
	_ = Fold(n, struct{}{}, func(node Node, acc interface{}) interface{} {
		switch t := node.(type) {
		case *BGP:
			for _, p := range t.Patterns {
				addTerm(p.Subject)
				addTerm(p.Predicate)
				addTerm(p.Object)
			}
		case *Values:
			for _, v := range t.Variables {
				add(v)
			}
		case *Path:
			addTerm(t.Subject)
			addTerm(t.Object)
		case *Service:
			addTerm(t.Endpoint)
		case *Graph:
			addTerm(t.GraphTerm)
		}
		return acc
	})
	return out
}

// Fold applies f to every node in n's tree in post-order (children before
// parent), threading an accumulator. It is also used internally for
// bounded tree walks.
func Fold(n Node, init interface{}, f func(Node, interface{}) interface{}) interface{} {
	acc := init
	for _, c := range Children(n) {
		acc = Fold(c, acc, f)
	}
	return f(n, acc)
}

// FoldPre applies f to every node in pre-order (parent before children).
func FoldPre(n Node, init interface{}, f func(Node, interface{}) interface{}) interface{} {
	acc := f(n, init)
	for _, c := range Children(n) {
		acc = FoldPre(c, acc, f)
	}
	return acc
}

// Map rebuilds the tree applying f to each node bottom-up: children are
// mapped first, then f is applied to the node with its children replaced.
func Map(n Node, f func(Node) Node) Node {
	switch t := n.(type) {
	case *BGP:
		return f(&BGP{Patterns: t.Patterns})
	case *Join:
		return f(&Join{Left: Map(t.Left, f), Right: Map(t.Right, f)})
	case *LeftJoin:
		return f(&LeftJoin{Left: Map(t.Left, f), Right: Map(t.Right, f), Filter: t.Filter})
	case *Minus:
		return f(&Minus{Left: Map(t.Left, f), Right: Map(t.Right, f)})
	case *Union:
		return f(&Union{Left: Map(t.Left, f), Right: Map(t.Right, f)})
	case *Filter:
		return f(&Filter{Expr: t.Expr, Child: Map(t.Child, f)})
	case *Extend:
		return f(&Extend{Child: Map(t.Child, f), Target: t.Target, Expr: t.Expr})
	case *Group:
		return f(&Group{Child: Map(t.Child, f), GroupVars: t.GroupVars, Aggregates: t.Aggregates})
	case *Project:
		return f(&Project{Child: Map(t.Child, f), Vars: t.Vars})
	case *Distinct:
		return f(&Distinct{Child: Map(t.Child, f)})
	case *Reduced:
		return f(&Reduced{Child: Map(t.Child, f)})
	case *OrderBy:
		return f(&OrderBy{Child: Map(t.Child, f), Conditions: t.Conditions})
	case *Slice:
		return f(&Slice{Child: Map(t.Child, f), Offset: t.Offset, Limit: t.Limit})
	case *Values:
		return f(&Values{Variables: t.Variables, Rows: t.Rows})
	case *Service:
		return f(&Service{Endpoint: t.Endpoint, Child: Map(t.Child, f), Silent: t.Silent})
	case *Graph:
		return f(&Graph{GraphTerm: t.GraphTerm, Child: Map(t.Child, f)})
	case *Path:
		return f(&Path{Subject: t.Subject, Expr: t.Expr, Object: t.Object})
	default:
		return f(n)
	}
}
