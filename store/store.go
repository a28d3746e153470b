// Package store defines the storage collaborator's interface (§6.2): a
// StatsProvider the cardinality estimator reads from, and a Writer the
// update executor commits mutations through. The concrete implementation
// is badger-backed, grounded on the teacher's BadgerStore.
package store

import "github.com/sparqlplan/queryplan/algebra"
import "github.com/sparqlplan/queryplan/stats"

// StatsProvider supplies the point-in-time statistics snapshot the
// cardinality estimator and cost model consume (§3.5).
type StatsProvider interface {
	Snapshot() stats.Snapshot
}

// Writer accumulates triple mutations for a single atomic commit (§4.8):
// nothing written by InsertTriple/DeleteTriple is visible to readers until
// Commit succeeds, and a Writer that is never committed leaves no trace.
type Writer interface {
	InsertTriple(s, p, o algebra.Term) error
	DeleteTriple(s, p, o algebra.Term) error
	Commit() error
	Discard()
}

// TermDictionary resolves between algebra.Term values and the compact
// dictionary IDs the storage engine indexes by (§1).
type TermDictionary interface {
	Intern(t algebra.Term) (algebra.TermID, error)
	Resolve(id algebra.TermID) (algebra.Term, bool)
}
