// Package cost implements closed-form CPU/IO/memory costs for scan types,
// nested-loop join, hash join, and leapfrog-triejoin (§4.4). Costs are
// compared, summed, and ranked by the join enumerator.
package cost

import (
	"math"

	"github.com/sparqlplan/queryplan/algebra"
	"github.com/sparqlplan/queryplan/stats"
)

// Constants bundles the cost model's design-time weights so calibration is
// a configuration change rather than a code change (§9).
type Constants struct {
	CPUPerCompare float64 // CPU cost of one tuple comparison
	CPUPerHash    float64 // CPU cost of one hash/probe
	MemPerTuple   float64 // memory cost of retaining one intermediate tuple
	IOSeek        float64 // IO cost of a single index seek
	IOPerResult   float64 // IO cost per result row returned from a full scan

	// PostFilterPenalty scales the extra CPU patterns incur when the
	// physical index can't honor the bound position directly (an
	// S-bound/P-unbound/O-bound pattern scanned through an OSP-like index).
	PostFilterPenalty float64
}

// DefaultConstants returns a reasonable, internally consistent set of
// weights satisfying the ranking invariants of §8.1/§8.3, including the
// nested_loop-at-small/hash_join-at-large boundary: CPUPerHash sits well
// above CPUPerCompare because a hash build/probe does strictly more work
// per tuple than a single comparison, so nested-loop's l*r comparison
// count only overtakes hash-join's l+r hash/probe count once l and r grow
// past a handful of rows each.
func DefaultConstants() Constants {
	return Constants{
		CPUPerCompare:     1.0,
		CPUPerHash:        6.0,
		MemPerTuple:       8.0,
		IOSeek:            10.0,
		IOPerResult:       0.5,
		PostFilterPenalty: 4.0,
	}
}

// Vector is a cost estimate; Total must always equal CPU+IO+Memory.
type Vector struct {
	CPU, IO, Memory, Total float64
}

// NewVector builds a Vector with Total computed from its components.
func NewVector(cpu, io, mem float64) Vector {
	return Vector{CPU: cpu, IO: io, Memory: mem, Total: cpu + io + mem}
}

// Add sums two cost vectors component-wise, recomputing Total.
func (v Vector) Add(o Vector) Vector {
	return NewVector(v.CPU+o.CPU, v.IO+o.IO, v.Memory+o.Memory)
}

// Infinite is the +infinity cost vector used when a strategy does not apply
// (e.g. leapfrog with fewer than two inputs).
var Infinite = Vector{CPU: math.Inf(1), IO: math.Inf(1), Memory: math.Inf(1), Total: math.Inf(1)}

// ScanType classifies a pattern by how many of its positions are bound.
type ScanType uint8

const (
	PointLookup ScanType = iota
	PrefixScan
	FullScan
)

func (k ScanType) String() string {
	switch k {
	case PointLookup:
		return "point_lookup"
	case PrefixScan:
		return "prefix_scan"
	case FullScan:
		return "full_scan"
	default:
		return "unknown"
	}
}

// PatternScanType classifies p by its bound-position count (§4.4).
func PatternScanType(p algebra.TriplePattern) ScanType {
	bound := 0
	if algebra.IsBoundTerm(p.Subject) {
		bound++
	}
	if algebra.IsBoundTerm(p.Predicate) {
		bound++
	}
	if algebra.IsBoundTerm(p.Object) {
		bound++
	}
	switch bound {
	case 3:
		return PointLookup
	case 0:
		return FullScan
	default:
		return PrefixScan
	}
}

// IndexScanCost computes the cost of scanning kind given expectedResults
// rows and the ambient statistics snapshot (§4.4). With DefaultConstants and
// a fixed expectedResults, point_lookup < prefix_scan holds only when
// expectedResults > 1: at exactly 1 the two totals are equal, and below 1
// prefix_scan is the cheaper. prefix_scan < full_scan holds whenever
// expectedResults does not exceed the triple count: full_scan's IO term
// always dominates a seek-only plan, and its CPU term scales with the whole
// relation rather than just the expected output.
func IndexScanCost(kind ScanType, expectedResults float64, s stats.Snapshot, c Constants) Vector {
	switch kind {
	case PointLookup:
		return NewVector(c.CPUPerCompare, c.IOSeek, c.MemPerTuple)
	case PrefixScan:
		return NewVector(
			c.CPUPerCompare*expectedResults,
			c.IOSeek,
			c.MemPerTuple*expectedResults,
		)
	case FullScan:
		total := float64(s.TripleCount)
		if total <= 0 {
			total = stats.DefaultTripleCount
		}
		return NewVector(
			c.CPUPerCompare*total,
			c.IOSeek+c.IOPerResult*total,
			c.MemPerTuple*expectedResults,
		)
	default:
		return Infinite
	}
}

// osPLikeShape reports whether p has the one combination the chosen
// physical index layout cannot honor directly: subject bound, predicate
// unbound, object bound. Such a pattern must be scanned through an
// OSP-like index and filtered post-scan for the subject.
func osPLikeShape(p algebra.TriplePattern) bool {
	return algebra.IsBoundTerm(p.Subject) && !algebra.IsBoundTerm(p.Predicate) && algebra.IsBoundTerm(p.Object)
}

// PatternCost combines scan-type classification with the post-filter
// penalty for patterns whose bound-position combination the engine cannot
// serve as a direct index lookup.
func PatternCost(p algebra.TriplePattern, s stats.Snapshot, c Constants) Vector {
	expected := stats.EstimatePattern(p, s)
	v := IndexScanCost(PatternScanType(p), expected, s, c)
	if osPLikeShape(p) {
		v = NewVector(v.CPU+c.PostFilterPenalty*expected, v.IO, v.Memory)
	}
	return v
}

// NestedLoopCost: cpu = CPUPerCompare*l*r; memory = MemPerTuple*r; io = 0.
func NestedLoopCost(l, r float64, c Constants) Vector {
	return NewVector(c.CPUPerCompare*l*r, 0, c.MemPerTuple*r)
}

// HashJoinCost: cpu = CPUPerHash*(l+r); memory = MemPerTuple*l; io = 0.
func HashJoinCost(l, r float64, c Constants) Vector {
	return NewVector(c.CPUPerHash*(l+r), 0, c.MemPerTuple*l)
}

// LeapfrogCost estimates the cost of a worst-case-optimal multi-way join
// over cardinalities sharing joinVars. Fewer than two inputs reports
// +infinity (leapfrog is not applicable to a single relation).
func LeapfrogCost(cardinalities []float64, joinVars []string, c Constants) Vector {
	k := len(cardinalities)
	if k < 2 {
		return Infinite
	}

	minCard, maxCard := cardinalities[0], cardinalities[0]
	for _, card := range cardinalities[1:] {
		if card < minCard {
			minCard = card
		}
		if card > maxCard {
			maxCard = card
		}
	}
	if maxCard < 1 {
		maxCard = 1
	}

	mem := c.MemPerTuple * float64(k)

	cpu := 0.0
	if len(joinVars) >= 1 {
		// Selectivity factor decreases as more join variables narrow the
		// intersection further, mirroring the selectivity compounding used
		// for ordinary join cardinality estimation.
		selectivity := 1.0
		for i := 1; i < len(joinVars); i++ {
			selectivity *= 0.5
		}
		cpu = minCard * float64(k) * math.Log2(maxCard+1) * selectivity
	}

	return NewVector(cpu, 0, mem)
}

// SelectJoinStrategy computes both nested-loop and hash-join costs for
// (l, r) and returns whichever is cheaper along with its cost. Join
// variables take no part in the choice.
func SelectJoinStrategy(l, r float64, c Constants) (string, Vector) {
	nl := NestedLoopCost(l, r, c)
	hj := HashJoinCost(l, r, c)
	if CompareCosts(hj, nl) < 0 {
		return "hash_join", hj
	}
	return "nested_loop", nl
}

// ShouldUseLeapfrog reports whether a leapfrog-triejoin over cardinalities
// beats a cascade of pairwise hash joins over the same inputs. Always
// false for fewer than 3 inputs.
func ShouldUseLeapfrog(cardinalities []float64, joinVars []string, c Constants) bool {
	if len(cardinalities) < 3 {
		return false
	}
	lf := LeapfrogCost(cardinalities, joinVars, c)
	pairwise := pairwiseHashJoinCascade(cardinalities, c)
	return CompareCosts(lf, pairwise) < 0
}

func pairwiseHashJoinCascade(cardinalities []float64, c Constants) Vector {
	running := cardinalities[0]
	total := Vector{}
	for _, card := range cardinalities[1:] {
		step := HashJoinCost(running, card, c)
		total = total.Add(step)
		running = running * card // conservative running cardinality proxy
	}
	return total
}

// CompareCosts totally orders a and b by .Total: negative if a < b, zero if
// equal, positive if a > b.
func CompareCosts(a, b Vector) int {
	switch {
	case a.Total < b.Total:
		return -1
	case a.Total > b.Total:
		return 1
	default:
		return 0
	}
}

// TotalPlanCost sums a list of cost vectors component-wise, recomputing
// Total as the sum of its components.
func TotalPlanCost(costs []Vector) Vector {
	var total Vector
	for _, c := range costs {
		total = total.Add(c)
	}
	return total
}
