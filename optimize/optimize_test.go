package optimize

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sparqlplan/queryplan/algebra"
	"github.com/sparqlplan/queryplan/expr"
)

func v(name string) algebra.Variable { return algebra.Variable{Name: name} }
func n(iri string) algebra.NamedNode { return algebra.NamedNode{IRI: iri} }

func bgpWith(subjVar, predIRI, objVar string) *algebra.BGP {
	return algebra.NewBGP(algebra.TriplePattern{Subject: v(subjVar), Predicate: n(predIRI), Object: v(objVar)})
}

func TestPushFiltersDownThroughJoinToMatchingSide(t *testing.T) {
	left := bgpWith("s", "http://example.org/p1", "x")
	right := bgpWith("x", "http://example.org/p2", "o")
	join := algebra.NewJoin(left, right)
	filter := algebra.NewFilter(expr.Comparison{Op: expr.OpEqual, Left: expr.VarRef{Name: "s"}, Right: expr.Value{V: "1"}}, join)

	result := PushFiltersDown(filter)

	resultJoin, ok := result.(*algebra.Join)
	require.True(t, ok, "filter should be pushed below the join")
	_, leftIsFilter := resultJoin.Left.(*algebra.Filter)
	require.True(t, leftIsFilter, "filter referencing only the left side's variable should land on the left")
}

func TestPushFiltersDownSplitsConjunctiveFilter(t *testing.T) {
	left := bgpWith("s", "http://example.org/p1", "x")
	right := bgpWith("x", "http://example.org/p2", "o")
	join := algebra.NewJoin(left, right)
	conjunctive := expr.And{
		Left:  expr.Comparison{Op: expr.OpEqual, Left: expr.VarRef{Name: "s"}, Right: expr.Value{V: "1"}},
		Right: expr.Comparison{Op: expr.OpEqual, Left: expr.VarRef{Name: "o"}, Right: expr.Value{V: "2"}},
	}
	filter := algebra.NewFilter(conjunctive, join)

	result := PushFiltersDown(filter)

	resultJoin, ok := result.(*algebra.Join)
	require.True(t, ok)
	_, leftIsFilter := resultJoin.Left.(*algebra.Filter)
	_, rightIsFilter := resultJoin.Right.(*algebra.Filter)
	require.True(t, leftIsFilter, "conjunct over ?s should land on the left")
	require.True(t, rightIsFilter, "conjunct over ?o should land on the right")
}

func TestPushFiltersDownProtectsLeftJoinRightSide(t *testing.T) {
	left := bgpWith("s", "http://example.org/p1", "x")
	right := bgpWith("x", "http://example.org/p2", "o")
	lj := algebra.NewLeftJoin(left, right, nil)
	filter := algebra.NewFilter(expr.Comparison{Op: expr.OpEqual, Left: expr.VarRef{Name: "o"}, Right: expr.Value{V: "1"}}, lj)

	result := PushFiltersDown(filter)

	// ?o is only bound on the OPTIONAL side, so the filter cannot be
	// pushed anywhere and must remain wrapping the left_join.
	resultFilter, ok := result.(*algebra.Filter)
	require.True(t, ok, "filter referencing only the optional side must stay above left_join")
	_, isLeftJoin := resultFilter.Child.(*algebra.LeftJoin)
	require.True(t, isLeftJoin)
}

func TestPushFiltersDownProtectsUnionBranches(t *testing.T) {
	left := bgpWith("s", "http://example.org/p1", "o")
	right := bgpWith("s", "http://example.org/p2", "o")
	union := algebra.NewUnion(left, right)
	filter := algebra.NewFilter(expr.Comparison{Op: expr.OpEqual, Left: expr.VarRef{Name: "s"}, Right: expr.Value{V: "1"}}, union)

	result := PushFiltersDown(filter)

	resultFilter, ok := result.(*algebra.Filter)
	require.True(t, ok, "a filter over a union must never be pushed into either branch")
	_, isUnion := resultFilter.Child.(*algebra.Union)
	require.True(t, isUnion)
}

func TestPushFiltersDownThroughProjectAndDistinct(t *testing.T) {
	bgp := bgpWith("s", "http://example.org/p", "o")
	proj := algebra.NewProject(bgp, []algebra.Variable{v("s")})
	distinct := algebra.NewDistinct(proj)
	filter := algebra.NewFilter(expr.Comparison{Op: expr.OpEqual, Left: expr.VarRef{Name: "s"}, Right: expr.Value{V: "1"}}, distinct)

	result := PushFiltersDown(filter)

	resultDistinct, ok := result.(*algebra.Distinct)
	require.True(t, ok)
	resultProject, ok := resultDistinct.Child.(*algebra.Project)
	require.True(t, ok)
	_, isFilter := resultProject.Child.(*algebra.Filter)
	require.True(t, isFilter)
}

func TestPushFiltersDownThroughSlice(t *testing.T) {
	bgp := bgpWith("s", "http://example.org/p", "o")
	slice := algebra.NewSlice(bgp, 0, algebra.BoundedLimit(10))
	filter := algebra.NewFilter(expr.Comparison{Op: expr.OpEqual, Left: expr.VarRef{Name: "s"}, Right: expr.Value{V: "1"}}, slice)

	result := PushFiltersDown(filter)

	resultSlice, ok := result.(*algebra.Slice)
	require.True(t, ok, "a value filter selects which rows exist, not where they land in the stream, so it pushes below OFFSET/LIMIT")
	_, isFilter := resultSlice.Child.(*algebra.Filter)
	require.True(t, isFilter)
}

func TestOptimizeIsIdempotent(t *testing.T) {
	left := bgpWith("s", "http://example.org/p1", "x")
	right := bgpWith("x", "http://example.org/p2", "o")
	join := algebra.NewJoin(left, right)
	filter := algebra.NewFilter(expr.Comparison{Op: expr.OpEqual, Left: expr.VarRef{Name: "s"}, Right: expr.Value{V: "1"}}, join)

	once := Optimize(filter, DefaultOptions())
	twice := Optimize(once, DefaultOptions())

	require.Equal(t, algebra.PrettyPrint(once), algebra.PrettyPrint(twice))
}

func TestAnalyzeFiltersCountsAllFilterNodes(t *testing.T) {
	bgp := bgpWith("s", "http://example.org/p", "o")
	inner := algebra.NewFilter(expr.Bound{Var: "s"}, bgp)
	outer := algebra.NewFilter(expr.Bound{Var: "o"}, inner)

	require.Equal(t, 2, AnalyzeFilters(outer).TotalFilters)
}
