// Package planner builds a physical PlanNode tree out of a set of triple
// patterns (§3.6, §4.6). Small pattern sets are enumerated exhaustively;
// larger ones fall back to a DPccp-style dynamic program restricted to
// connected subgraphs of the join graph, with a Cartesian-product fallback
// when the graph is disconnected.
package planner

import (
	"fmt"
	"strings"

	"github.com/sparqlplan/queryplan/algebra"
	"github.com/sparqlplan/queryplan/cost"
)

// PlanNode is the closed sum of physical plan shapes a join enumerator can
// produce.
type PlanNode interface {
	planNode()
	String() string
}

// Scan is a leaf: a single triple pattern served directly off storage.
type Scan struct {
	Pattern     algebra.TriplePattern
	Cardinality float64
	Cost        cost.Vector
}

func (*Scan) planNode() {}
func (s *Scan) String() string {
	return fmt.Sprintf("scan(%s) card=%.1f cost=%.1f", s.Pattern.String(), s.Cardinality, s.Cost.Total)
}

// JoinStep is a binary physical join, either nested_loop or hash_join.
type JoinStep struct {
	Left, Right PlanNode
	Strategy    string
	Cardinality float64
	Cost        cost.Vector
}

func (*JoinStep) planNode() {}
func (j *JoinStep) String() string {
	return fmt.Sprintf("%s(%s, %s) card=%.1f cost=%.1f", j.Strategy, j.Left.String(), j.Right.String(), j.Cardinality, j.Cost.Total)
}

// Leapfrog is a worst-case-optimal multi-way join over 3 or more inputs.
type Leapfrog struct {
	Inputs      []PlanNode
	JoinVars    []string
	Cardinality float64
	Cost        cost.Vector
}

func (*Leapfrog) planNode() {}
func (l *Leapfrog) String() string {
	parts := make([]string, len(l.Inputs))
	for i, in := range l.Inputs {
		parts[i] = in.String()
	}
	return fmt.Sprintf("leapfrog[%s](%s) card=%.1f cost=%.1f", strings.Join(l.JoinVars, ","), strings.Join(parts, ", "), l.Cardinality, l.Cost.Total)
}

// Plan is the top-level enumerator result.
type Plan struct {
	Tree        PlanNode
	Cardinality float64
	Cost        cost.Vector
}

// PatternVariables returns the variable names referenced by p, in S/P/O
// order, deduplicated.
func PatternVariables(p algebra.TriplePattern) []string {
	vars := p.Variables()
	out := make([]string, len(vars))
	for i, v := range vars {
		out[i] = v.Name
	}
	return out
}

// SharedVariables returns the variable names present in both a and b.
func SharedVariables(a, b []string) []string {
	set := make(map[string]bool, len(a))
	for _, v := range a {
		set[v] = true
	}
	var out []string
	seen := make(map[string]bool)
	for _, v := range b {
		if set[v] && !seen[v] {
			out = append(out, v)
			seen[v] = true
		}
	}
	return out
}
