package planner

import (
	"context"

	"github.com/sparqlplan/queryplan/algebra"
	"github.com/sparqlplan/queryplan/cost"
	"github.com/sparqlplan/queryplan/errs"
	"github.com/sparqlplan/queryplan/stats"
)

// EnumeratorOptions tunes the join enumerator's exhaustive/DPccp threshold.
type EnumeratorOptions struct {
	// ExhaustiveThreshold is the largest pattern count enumerated
	// exhaustively over all (not just connected) subset splits. Above it,
	// the enumerator restricts candidate splits to connected subgraphs of
	// the join graph, falling back to a Cartesian split only when no
	// connected split exists for a given subset.
	ExhaustiveThreshold int
}

// DefaultEnumeratorOptions matches §4.6's exhaustive-up-to-5,-DPccp-at-6-
// and-above split.
func DefaultEnumeratorOptions() EnumeratorOptions {
	return EnumeratorOptions{ExhaustiveThreshold: 5}
}

// JoinGraph is an adjacency matrix over pattern indices: graph[i][j] is true
// when patterns[i] and patterns[j] share at least one variable.
type JoinGraph [][]bool

// BuildJoinGraph computes the join graph for patterns.
func BuildJoinGraph(patterns []algebra.TriplePattern) JoinGraph {
	n := len(patterns)
	vars := make([][]string, n)
	for i, p := range patterns {
		vars[i] = PatternVariables(p)
	}
	graph := make(JoinGraph, n)
	for i := range graph {
		graph[i] = make([]bool, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if len(SharedVariables(vars[i], vars[j])) > 0 {
				graph[i][j] = true
				graph[j][i] = true
			}
		}
	}
	return graph
}

// SetsConnected reports whether any pattern index in left shares a join
// edge with any pattern index in right.
func SetsConnected(graph JoinGraph, left, right []int) bool {
	for _, i := range left {
		for _, j := range right {
			if graph[i][j] {
				return true
			}
		}
	}
	return false
}

// SharedVariablesBetweenSets returns the variable names shared between the
// patterns indexed by left and those indexed by right.
func SharedVariablesBetweenSets(patterns []algebra.TriplePattern, left, right []int) []string {
	var leftVars, rightVars []string
	for _, i := range left {
		leftVars = append(leftVars, PatternVariables(patterns[i])...)
	}
	for _, j := range right {
		rightVars = append(rightVars, PatternVariables(patterns[j])...)
	}
	return SharedVariables(leftVars, rightVars)
}

func bitsOf(mask int, n int) []int {
	var out []int
	for i := 0; i < n; i++ {
		if mask&(1<<uint(i)) != 0 {
			out = append(out, i)
		}
	}
	return out
}

func popcount(mask int) int {
	count := 0
	for mask != 0 {
		mask &= mask - 1
		count++
	}
	return count
}

// commonVariables returns variables appearing in at least two of the given
// index positions' patterns, used to pick leapfrog join variables.
func commonVariables(patterns []algebra.TriplePattern, indices []int) []string {
	occurrences := make(map[string]int)
	for _, i := range indices {
		for _, v := range PatternVariables(patterns[i]) {
			occurrences[v]++
		}
	}
	var out []string
	for v, n := range occurrences {
		if n >= 2 {
			out = append(out, v)
		}
	}
	return out
}

// EnumerateJoinOrder builds the cheapest join plan tree over patterns
// (§4.6). len(patterns) == 0 is an enumeration error; len(patterns) == 1
// degenerates to a single Scan.
func EnumerateJoinOrder(ctx context.Context, patterns []algebra.TriplePattern, s stats.Snapshot, c cost.Constants, opts EnumeratorOptions) (*Plan, error) {
	n := len(patterns)
	if n == 0 {
		return nil, errs.ErrEmptyPatterns
	}
	if n == 1 {
		card := stats.EstimatePattern(patterns[0], s)
		pcost := cost.PatternCost(patterns[0], s, c)
		return &Plan{Tree: &Scan{Pattern: patterns[0], Cardinality: card, Cost: pcost}, Cardinality: card, Cost: pcost}, nil
	}

	connectedOnly := n > opts.ExhaustiveThreshold
	graph := BuildJoinGraph(patterns)

	total := 1 << uint(n)
	bestCard := make([]float64, total)
	bestCost := make([]cost.Vector, total)
	bestPlan := make([]PlanNode, total)

	for i := 0; i < n; i++ {
		mask := 1 << uint(i)
		bestCard[mask] = stats.EstimatePattern(patterns[i], s)
		bestCost[mask] = cost.PatternCost(patterns[i], s, c)
		bestPlan[mask] = &Scan{Pattern: patterns[i], Cardinality: bestCard[mask], Cost: bestCost[mask]}
	}

	for mask := 1; mask < total; mask++ {
		if popcount(mask) < 2 {
			continue
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if err := fillSubsetPlan(mask, !connectedOnly, patterns, graph, s, c, bestCard, bestCost, bestPlan); err != nil {
			return nil, err
		}
		if connectedOnly && bestPlan[mask] == nil {
			// Disconnected join graph: retry this subset allowing a
			// Cartesian split (§4.6's Cartesian fallback rule).
			if err := fillSubsetPlan(mask, true, patterns, graph, s, c, bestCard, bestCost, bestPlan); err != nil {
				return nil, err
			}
		}

		if popcount(mask) >= 3 {
			considerLeapfrog(mask, patterns, s, c, bestCard, bestCost, bestPlan)
		}
	}

	final := total - 1
	return &Plan{Tree: bestPlan[final], Cardinality: bestCard[final], Cost: bestCost[final]}, nil
}

// fillSubsetPlan evaluates every proper-subset split of mask and records
// the cheapest one found, comparing against whatever is already recorded.
// When allowCartesian is false, splits whose two halves share no join edge
// are skipped.
func fillSubsetPlan(mask int, allowCartesian bool, patterns []algebra.TriplePattern, graph JoinGraph, s stats.Snapshot, c cost.Constants, bestCard []float64, bestCost []cost.Vector, bestPlan []PlanNode) error {
	n := len(patterns)
	for sub := (mask - 1) & mask; sub > 0; sub = (sub - 1) & mask {
		other := mask &^ sub
		if other == 0 || sub > other {
			continue
		}
		if bestPlan[sub] == nil || bestPlan[other] == nil {
			continue
		}
		leftIdx, rightIdx := bitsOf(sub, n), bitsOf(other, n)
		if !allowCartesian && !SetsConnected(graph, leftIdx, rightIdx) {
			continue
		}

		leftCard, rightCard := bestCard[sub], bestCard[other]
		joinVars := SharedVariablesBetweenSets(patterns, leftIdx, rightIdx)
		joinCard := stats.EstimateJoin(leftCard, rightCard, joinVars, s)
		strategy, joinCost := cost.SelectJoinStrategy(leftCard, rightCard, c)
		candidateCost := cost.TotalPlanCost([]cost.Vector{bestCost[sub], bestCost[other], joinCost})

		if bestPlan[mask] == nil || candidateCost.Total < bestCost[mask].Total {
			bestPlan[mask] = &JoinStep{Left: bestPlan[sub], Right: bestPlan[other], Strategy: strategy, Cardinality: joinCard, Cost: joinCost}
			bestCard[mask] = joinCard
			bestCost[mask] = candidateCost
		}
	}
	return nil
}

// considerLeapfrog replaces the recorded plan for mask with a Leapfrog node
// when every pair of the subset's patterns shares a variable and a
// worst-case-optimal multi-way join beats the best pairwise split found so
// far.
func considerLeapfrog(mask int, patterns []algebra.TriplePattern, s stats.Snapshot, c cost.Constants, bestCard []float64, bestCost []cost.Vector, bestPlan []PlanNode) {
	n := len(patterns)
	indices := bitsOf(mask, n)
	for a := 0; a < len(indices); a++ {
		for b := a + 1; b < len(indices); b++ {
			if len(SharedVariables(PatternVariables(patterns[indices[a]]), PatternVariables(patterns[indices[b]]))) == 0 {
				return
			}
		}
	}

	cardinalities := make([]float64, len(indices))
	inputs := make([]PlanNode, len(indices))
	subsetPatterns := make([]algebra.TriplePattern, len(indices))
	for k, i := range indices {
		singleton := 1 << uint(i)
		cardinalities[k] = bestCard[singleton]
		inputs[k] = bestPlan[singleton]
		subsetPatterns[k] = patterns[i]
	}

	joinVars := commonVariables(patterns, indices)
	if !cost.ShouldUseLeapfrog(cardinalities, joinVars, c) {
		return
	}

	lfCost := cost.LeapfrogCost(cardinalities, joinVars, c)
	if bestPlan[mask] != nil && lfCost.Total >= bestCost[mask].Total {
		return
	}

	lfCard := stats.EstimateMultiPattern(subsetPatterns, s)
	bestPlan[mask] = &Leapfrog{Inputs: inputs, JoinVars: joinVars, Cardinality: lfCard, Cost: lfCost}
	bestCard[mask] = lfCard
	bestCost[mask] = lfCost
}
