package algebra

import (
	"fmt"
	"strings"
)

// PrettyPrint produces a human-readable, indented form of n using the
// SPARQL-style "?name" sigil for variables. Every level carries its node
// tag name, for diagnostics.
func PrettyPrint(n Node) string {
	var sb strings.Builder
	prettyPrint(n, 0, &sb)
	return sb.String()
}

func indent(depth int) string { return strings.Repeat("  ", depth) }

func prettyPrint(n Node, depth int, sb *strings.Builder) {
	pad := indent(depth)
	switch t := n.(type) {
	case *BGP:
		fmt.Fprintf(sb, "%sbgp\n", pad)
		for _, p := range t.Patterns {
			fmt.Fprintf(sb, "%s  %s\n", pad, p)
		}
	case *Join:
		fmt.Fprintf(sb, "%sjoin\n", pad)
		prettyPrint(t.Left, depth+1, sb)
		prettyPrint(t.Right, depth+1, sb)
	case *LeftJoin:
		if t.Filter != nil {
			fmt.Fprintf(sb, "%sleft_join filter=%s\n", pad, t.Filter)
		} else {
			fmt.Fprintf(sb, "%sleft_join\n", pad)
		}
		prettyPrint(t.Left, depth+1, sb)
		prettyPrint(t.Right, depth+1, sb)
	case *Minus:
		fmt.Fprintf(sb, "%sminus\n", pad)
		prettyPrint(t.Left, depth+1, sb)
		prettyPrint(t.Right, depth+1, sb)
	case *Union:
		fmt.Fprintf(sb, "%sunion\n", pad)
		prettyPrint(t.Left, depth+1, sb)
		prettyPrint(t.Right, depth+1, sb)
	case *Filter:
		fmt.Fprintf(sb, "%sfilter %s\n", pad, t.Expr)
		prettyPrint(t.Child, depth+1, sb)
	case *Extend:
		fmt.Fprintf(sb, "%sextend ?%s := %s\n", pad, t.Target.Name, t.Expr)
		prettyPrint(t.Child, depth+1, sb)
	case *Group:
		fmt.Fprintf(sb, "%sgroup by=%v aggregates=%v\n", pad, t.GroupVars, t.Aggregates)
		prettyPrint(t.Child, depth+1, sb)
	case *Project:
		fmt.Fprintf(sb, "%sproject %v\n", pad, t.Vars)
		prettyPrint(t.Child, depth+1, sb)
	case *Distinct:
		fmt.Fprintf(sb, "%sdistinct\n", pad)
		prettyPrint(t.Child, depth+1, sb)
	case *Reduced:
		fmt.Fprintf(sb, "%sreduced\n", pad)
		prettyPrint(t.Child, depth+1, sb)
	case *OrderBy:
		fmt.Fprintf(sb, "%sorder_by %v\n", pad, t.Conditions)
		prettyPrint(t.Child, depth+1, sb)
	case *Slice:
		limit := "unbounded"
		if !t.Limit.Unbounded {
			limit = fmt.Sprintf("%d", t.Limit.Value)
		}
		fmt.Fprintf(sb, "%sslice offset=%d limit=%s\n", pad, t.Offset, limit)
		prettyPrint(t.Child, depth+1, sb)
	case *Values:
		fmt.Fprintf(sb, "%svalues %v rows=%d\n", pad, t.Variables, len(t.Rows))
	case *Service:
		fmt.Fprintf(sb, "%sservice %s silent=%v\n", pad, t.Endpoint, t.Silent)
		prettyPrint(t.Child, depth+1, sb)
	case *Graph:
		fmt.Fprintf(sb, "%sgraph %s\n", pad, t.GraphTerm)
		prettyPrint(t.Child, depth+1, sb)
	case *Path:
		fmt.Fprintf(sb, "%spath %s %s %s\n", pad, t.Subject, t.Expr, t.Object)
	default:
		fmt.Fprintf(sb, "%s<unknown>\n", pad)
	}
}

func (t *BGP) String() string      { return PrettyPrint(t) }
func (t *Join) String() string     { return PrettyPrint(t) }
func (t *LeftJoin) String() string { return PrettyPrint(t) }
func (t *Minus) String() string    { return PrettyPrint(t) }
func (t *Union) String() string    { return PrettyPrint(t) }
func (t *Filter) String() string   { return PrettyPrint(t) }
func (t *Extend) String() string   { return PrettyPrint(t) }
func (t *Group) String() string    { return PrettyPrint(t) }
func (t *Project) String() string  { return PrettyPrint(t) }
func (t *Distinct) String() string { return PrettyPrint(t) }
func (t *Reduced) String() string  { return PrettyPrint(t) }
func (t *OrderBy) String() string  { return PrettyPrint(t) }
func (t *Slice) String() string    { return PrettyPrint(t) }
func (t *Values) String() string   { return PrettyPrint(t) }
func (t *Service) String() string  { return PrettyPrint(t) }
func (t *Graph) String() string    { return PrettyPrint(t) }
func (t *Path) String() string     { return PrettyPrint(t) }

func (c OrderCondition) String() string {
	dir := "asc"
	if c.Desc {
		dir = "desc"
	}
	return fmt.Sprintf("%s(%s)", dir, c.Expr)
}
