// Package stats estimates triple and join cardinalities from storage
// statistics (§3.5, §4.3). Estimates are inputs to the cost model and join
// enumerator; they are never exact and are always clamped to sane ranges.
package stats

import "github.com/sparqlplan/queryplan/algebra"

// DefaultTripleCount is the fallback used when a snapshot omits
// TripleCount.
const DefaultTripleCount = 10000

// Snapshot is a point-in-time read of storage statistics (§3.5), captured
// once at plan time and never mutated afterward (§3.7).
type Snapshot struct {
	TripleCount        int64
	DistinctSubjects   int64
	DistinctPredicates int64
	DistinctObjects    int64

	// PredicateHistogram maps a predicate term's canonical string form to
	// its triple count. The dictionary ID <-> term mapping itself is owned
	// by the storage collaborator (§1); the estimator accepts either a
	// resolved algebra.Term or an algebra.TermID at a bound position and
	// keys histogram lookups by its String() form either way.
	PredicateHistogram map[string]int64
}

func (s Snapshot) tripleCount() float64 {
	if s.TripleCount > 0 {
		return float64(s.TripleCount)
	}
	return DefaultTripleCount
}

// distinctSubjects/distinctPredicates/distinctObjects default to a fixed
// proportion of the (possibly defaulted) triple count when the snapshot
// omits them, so selectivity factors never divide by zero.
const (
	defaultSubjectFraction   = 0.1
	defaultPredicateFraction = 0.01
	defaultObjectFraction    = 0.2
)

func (s Snapshot) distinctSubjects() float64 {
	if s.DistinctSubjects > 0 {
		return float64(s.DistinctSubjects)
	}
	return clampAtLeastOne(s.tripleCount() * defaultSubjectFraction)
}

func (s Snapshot) distinctPredicates() float64 {
	if s.DistinctPredicates > 0 {
		return float64(s.DistinctPredicates)
	}
	return clampAtLeastOne(s.tripleCount() * defaultPredicateFraction)
}

func (s Snapshot) distinctObjects() float64 {
	if s.DistinctObjects > 0 {
		return float64(s.DistinctObjects)
	}
	return clampAtLeastOne(s.tripleCount() * defaultObjectFraction)
}

func clampAtLeastOne(v float64) float64 {
	if v < 1 {
		return 1
	}
	return v
}

func clampAtLeast(v, min float64) float64 {
	if v < min {
		return min
	}
	return v
}

func termKey(t algebra.Term) string {
	if t == nil {
		return ""
	}
	return t.String()
}

// EstimatePattern estimates the number of triples matching p (§4.3 step 1-3).
func EstimatePattern(p algebra.TriplePattern, s Snapshot) float64 {
	base := patternBase(p, s)
	base *= selectivityFactor(p.Subject, s.distinctSubjects())
	base *= selectivityFactor(p.Object, s.distinctObjects())
	return clampAtLeast(base, 1.0)
}

func patternBase(p algebra.TriplePattern, s Snapshot) float64 {
	if algebra.IsBoundTerm(p.Predicate) {
		if count, ok := s.PredicateHistogram[termKey(p.Predicate)]; ok {
			return float64(count)
		}
		return s.tripleCount() / s.distinctPredicates()
	}
	return s.tripleCount()
}

// selectivityFactor returns 1/domainSize when t is a bound position
// (neither Variable nor BlankNode), else 1 (no narrowing).
func selectivityFactor(t algebra.Term, domainSize float64) float64 {
	if !algebra.IsBoundTerm(t) {
		return 1.0
	}
	if domainSize <= 0 {
		return 1.0
	}
	return 1.0 / domainSize
}

// Bindings maps a variable name to the count of distinct values it is
// already bound to, for EstimatePatternWithBindings.
type Bindings map[string]int

// EstimatePatternWithBindings refines EstimatePattern using a binding set:
// for each pattern position holding a variable already bound to k distinct
// values, the base estimate is multiplied by min(k/domainSize, 1.0).
func EstimatePatternWithBindings(p algebra.TriplePattern, s Snapshot, bindings Bindings) float64 {
	base := EstimatePattern(p, s)

	apply := func(t algebra.Term, domainSize float64) {
		v, ok := t.(algebra.Variable)
		if !ok {
			return
		}
		k, bound := bindings[v.Name]
		if !bound || domainSize <= 0 {
			return
		}
		factor := float64(k) / domainSize
		if factor > 1.0 {
			factor = 1.0
		}
		base *= factor
	}

	apply(p.Subject, s.distinctSubjects())
	apply(p.Predicate, s.distinctPredicates())
	apply(p.Object, s.distinctObjects())

	return clampAtLeast(base, 1.0)
}

// domainSizeForJoinVariable returns the default domain-size proxy for a
// shared join variable: distinct_subjects, per §4.3 ("use distinct_subjects
// as the default domain for shared variables when the specific position is
// unknown").
func domainSizeForJoinVariable(s Snapshot) float64 {
	return s.distinctSubjects()
}

// EstimateJoin estimates the cardinality of joining two inputs of the
// given cardinalities over joinVars (§4.3). Symmetric in (leftCard,
// rightCard).
func EstimateJoin(leftCard, rightCard float64, joinVars []string, s Snapshot) float64 {
	if len(joinVars) == 0 {
		return leftCard * rightCard
	}
	domain := domainSizeForJoinVariable(s)
	selectivity := 1.0
	for range joinVars {
		if domain > 0 {
			selectivity *= 1.0 / domain
		}
	}
	return clampAtLeast(leftCard*rightCard*selectivity, 1.0)
}

// EstimateMultiPattern performs a left-deep reduction over patterns:
// estimate each pattern, then iteratively join with the running estimate
// using the variables shared between the already-consumed prefix and the
// next pattern. Empty patterns yields 1.0.
func EstimateMultiPattern(patterns []algebra.TriplePattern, s Snapshot) float64 {
	if len(patterns) == 0 {
		return 1.0
	}

	running := EstimatePattern(patterns[0], s)
	consumedVars := varSet(patterns[0].Variables())

	for _, p := range patterns[1:] {
		nextVars := varSet(p.Variables())
		shared := intersect(consumedVars, nextVars)
		nextCard := EstimatePattern(p, s)
		running = EstimateJoin(running, nextCard, shared, s)
		for v := range nextVars {
			consumedVars[v] = true
		}
	}

	return running
}

func varSet(vars []algebra.Variable) map[string]bool {
	out := make(map[string]bool, len(vars))
	for _, v := range vars {
		out[v.Name] = true
	}
	return out
}

func intersect(a, b map[string]bool) []string {
	var out []string
	for v := range a {
		if b[v] {
			out = append(out, v)
		}
	}
	return out
}

// EstimateSelectivity is EstimatePattern/triple_count, clamped to (0, 1].
func EstimateSelectivity(p algebra.TriplePattern, s Snapshot) float64 {
	sel := EstimatePattern(p, s) / s.tripleCount()
	if sel <= 0 {
		return 1e-9
	}
	if sel > 1 {
		return 1
	}
	return sel
}
