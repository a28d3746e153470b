package algebra

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sparqlplan/queryplan/expr"
)

func samplePattern() TriplePattern {
	return TriplePattern{
		Subject:   Variable{Name: "x"},
		Predicate: NamedNode{IRI: "http://example.org/p"},
		Object:    Variable{Name: "y"},
	}
}

func TestConstructorsValidate(t *testing.T) {
	trees := []Node{
		NewBGP(samplePattern()),
		NewJoin(NewBGP(samplePattern()), NewBGP(samplePattern())),
		NewLeftJoin(NewBGP(samplePattern()), NewBGP(samplePattern()), nil),
		NewMinus(NewBGP(samplePattern()), NewBGP(samplePattern())),
		NewUnion(NewBGP(samplePattern()), NewBGP(samplePattern())),
		NewFilter(expr.Comparison{Op: expr.OpGreater, Left: expr.VarRef{Name: "x"}, Right: expr.Value{V: 5}}, NewBGP(samplePattern())),
		NewExtend(NewBGP(samplePattern()), Variable{Name: "z"}, expr.VarRef{Name: "x"}),
		NewGroup(NewBGP(samplePattern()), []Variable{{Name: "x"}}, nil),
		NewProject(NewBGP(samplePattern()), []Variable{{Name: "x"}}),
		NewDistinct(NewBGP(samplePattern())),
		NewReduced(NewBGP(samplePattern())),
		NewOrderBy(NewBGP(samplePattern()), []OrderCondition{{Expr: expr.VarRef{Name: "x"}}}),
		NewSlice(NewBGP(samplePattern()), 0, UnboundedLimit),
		NewValues([]Variable{{Name: "x"}}, [][]Term{{NamedNode{IRI: "http://example.org/a"}}}),
		NewGraph(Variable{Name: "g"}, NewBGP(samplePattern())),
		NewPath(Variable{Name: "x"}, PathPredicate{IRI: "http://example.org/p"}, Variable{Name: "y"}),
	}

	for _, tree := range trees {
		require.NoError(t, Validate(tree), "%T", tree)
	}
}

func TestMapIdentityPreservesStructure(t *testing.T) {
	tree := NewJoin(NewFilter(expr.Bound{Var: "x"}, NewBGP(samplePattern())), NewBGP(samplePattern()))
	mapped := Map(tree, func(n Node) Node { return n })
	require.Equal(t, PrettyPrint(tree), PrettyPrint(mapped))
}

func TestFoldTreeSizeLaw(t *testing.T) {
	tree := NewJoin(
		NewFilter(expr.Bound{Var: "x"}, NewBGP(samplePattern())),
		NewUnion(NewBGP(samplePattern()), NewBGP(samplePattern())),
	)
	size := Fold(tree, 0, func(_ Node, acc interface{}) interface{} {
		return acc.(int) + 1
	})
	require.Equal(t, 6, size) // join, filter, bgp, union, bgp, bgp
}

func TestChildrenArity(t *testing.T) {
	require.Empty(t, Children(NewBGP(samplePattern())))
	require.Len(t, Children(NewJoin(NewBGP(samplePattern()), NewBGP(samplePattern()))), 2)
	require.Len(t, Children(NewFilter(expr.Bound{Var: "x"}, NewBGP(samplePattern()))), 1)
}

func TestSliceNegativeOffsetFailsValidation(t *testing.T) {
	s := NewSlice(NewBGP(samplePattern()), -1, UnboundedLimit)
	err := Validate(s)
	require.Error(t, err)
}

func TestValuesRowArityMismatchFailsValidation(t *testing.T) {
	v := NewValues([]Variable{{Name: "x"}, {Name: "y"}}, [][]Term{{NamedNode{IRI: "a"}}})
	require.Error(t, Validate(v))
}

func TestPrettyPrintContainsNodeTypeAtEachLevel(t *testing.T) {
	tree := NewFilter(expr.Bound{Var: "x"}, NewBGP(samplePattern()))
	out := PrettyPrint(tree)
	require.Contains(t, out, "filter")
	require.Contains(t, out, "bgp")
}

func TestResultVariablesUnwrapsWrappers(t *testing.T) {
	proj := NewProject(NewBGP(samplePattern()), []Variable{{Name: "x"}})
	wrapped := NewSlice(NewOrderBy(NewDistinct(proj), nil), 0, UnboundedLimit)
	vars := ResultVariables(wrapped)
	require.Equal(t, []Variable{{Name: "x"}}, vars)
}

func TestResultVariablesEmptyForBareBGP(t *testing.T) {
	require.Empty(t, ResultVariables(NewBGP(samplePattern())))
}

func TestCollectBGPsAndTripleCount(t *testing.T) {
	tree := NewJoin(NewBGP(samplePattern(), samplePattern()), NewBGP(samplePattern()))
	require.Len(t, CollectBGPs(tree), 2)
	require.Equal(t, 3, TripleCount(tree))
}

func TestHasHelpers(t *testing.T) {
	tree := NewLeftJoin(NewBGP(samplePattern()), NewUnion(NewBGP(samplePattern()), NewBGP(samplePattern())), nil)
	require.True(t, HasOptional(tree))
	require.True(t, HasUnion(tree))
	require.False(t, HasFilter(tree))
	require.False(t, HasAggregation(tree))
}
