package planner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sparqlplan/queryplan/algebra"
	"github.com/sparqlplan/queryplan/cost"
	"github.com/sparqlplan/queryplan/errs"
	"github.com/sparqlplan/queryplan/stats"
)

func v(name string) algebra.Variable { return algebra.Variable{Name: name} }
func n(iri string) algebra.NamedNode { return algebra.NamedNode{IRI: iri} }

func chainPatterns(length int) []algebra.TriplePattern {
	patterns := make([]algebra.TriplePattern, length)
	for i := 0; i < length; i++ {
		patterns[i] = algebra.TriplePattern{
			Subject:   v(varName(i)),
			Predicate: n("http://example.org/p"),
			Object:    v(varName(i + 1)),
		}
	}
	return patterns
}

func varName(i int) string {
	return string(rune('a' + i))
}

func testSnapshot() stats.Snapshot {
	return stats.Snapshot{TripleCount: 10000, DistinctSubjects: 1000, DistinctPredicates: 20, DistinctObjects: 2000}
}

func TestEnumerateJoinOrderEmptyPatternsFails(t *testing.T) {
	_, err := EnumerateJoinOrder(context.Background(), nil, testSnapshot(), cost.DefaultConstants(), DefaultEnumeratorOptions())
	require.ErrorIs(t, err, errs.ErrEmptyPatterns)
}

func TestEnumerateJoinOrderSinglePatternIsScan(t *testing.T) {
	p := chainPatterns(1)
	plan, err := EnumerateJoinOrder(context.Background(), p, testSnapshot(), cost.DefaultConstants(), DefaultEnumeratorOptions())
	require.NoError(t, err)
	_, ok := plan.Tree.(*Scan)
	require.True(t, ok)
	require.GreaterOrEqual(t, plan.Cardinality, 1.0)
}

func TestEnumerateJoinOrderCardinalityAndCostInvariants(t *testing.T) {
	p := chainPatterns(4)
	plan, err := EnumerateJoinOrder(context.Background(), p, testSnapshot(), cost.DefaultConstants(), DefaultEnumeratorOptions())
	require.NoError(t, err)
	require.GreaterOrEqual(t, plan.Cardinality, 1.0)
	require.False(t, isInfCost(plan.Cost))
}

func TestEnumerateJoinOrderDPccpSevenPatternChain(t *testing.T) {
	p := chainPatterns(7)
	plan, err := EnumerateJoinOrder(context.Background(), p, testSnapshot(), cost.DefaultConstants(), DefaultEnumeratorOptions())
	require.NoError(t, err)
	require.GreaterOrEqual(t, plan.Cardinality, 1.0)
	require.False(t, isInfCost(plan.Cost))
}

func TestEnumerateJoinOrderDisconnectedGraphFallsBackToCartesian(t *testing.T) {
	// A two-hop chain plus one pattern over unrelated variables: the join
	// graph is disconnected and the enumerator must still produce a plan
	// by falling back to a Cartesian split.
	p := append(chainPatterns(2), algebra.TriplePattern{
		Subject:   v("unrelated1"),
		Predicate: n("http://example.org/q"),
		Object:    v("unrelated2"),
	})
	plan, err := EnumerateJoinOrder(context.Background(), p, testSnapshot(), cost.DefaultConstants(), DefaultEnumeratorOptions())
	require.NoError(t, err)
	require.NotNil(t, plan.Tree)
	require.False(t, isInfCost(plan.Cost))
}

func TestBuildJoinGraphConnectsSharedVariablePatterns(t *testing.T) {
	p := chainPatterns(3)
	graph := BuildJoinGraph(p)
	require.True(t, graph[0][1])
	require.True(t, graph[1][2])
	require.False(t, graph[0][2])
}

func TestSharedVariablesBetweenSets(t *testing.T) {
	p := chainPatterns(3)
	shared := SharedVariablesBetweenSets(p, []int{0}, []int{1})
	require.Equal(t, []string{"b"}, shared)
}

func TestSetsConnected(t *testing.T) {
	p := chainPatterns(3)
	graph := BuildJoinGraph(p)
	require.True(t, SetsConnected(graph, []int{0}, []int{1}))
	require.False(t, SetsConnected(graph, []int{0}, []int{2}))
}

func isInfCost(c cost.Vector) bool {
	return c.Total > 1e18
}
