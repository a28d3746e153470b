package store

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"

	"github.com/sparqlplan/queryplan/algebra"
	"github.com/sparqlplan/queryplan/stats"
)

// BadgerStore persists triples keyed by their S/P/O string encoding in a
// single badger.DB, and keeps running statistics counters in memory for
// StatsProvider (§3.5). Grounded on the teacher's BadgerStore/Database
// pair (datalog/storage/badger_store.go, datalog/storage/database.go).
type BadgerStore struct {
	db *badger.DB

	dictMu sync.RWMutex
	terms  map[algebra.TermID]algebra.Term
	ids    map[string]algebra.TermID
	nextID int64

	tripleCount        atomic.Int64
	distinctSubjects   atomic.Int64
	distinctPredicates atomic.Int64
	distinctObjects    atomic.Int64

	histMu    sync.Mutex
	histogram map[string]int64

	seenMu         sync.Mutex
	seenSubjects   map[string]bool
	seenPredicates map[string]bool
	seenObjects    map[string]bool
}

// NewBadgerStore opens (or creates) a badger database at path.
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store at %s: %w", path, err)
	}
	return &BadgerStore{
		db:             db,
		terms:          make(map[algebra.TermID]algebra.Term),
		ids:            make(map[string]algebra.TermID),
		histogram:      make(map[string]int64),
		seenSubjects:   make(map[string]bool),
		seenPredicates: make(map[string]bool),
		seenObjects:    make(map[string]bool),
	}, nil
}

// Close releases the underlying badger database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// Intern assigns (or reuses) a dictionary ID for t.
func (s *BadgerStore) Intern(t algebra.Term) (algebra.TermID, error) {
	key := t.String()
	s.dictMu.Lock()
	defer s.dictMu.Unlock()
	if id, ok := s.ids[key]; ok {
		return id, nil
	}
	id := algebra.TermID(atomic.AddInt64(&s.nextID, 1))
	s.ids[key] = id
	s.terms[id] = t
	return id, nil
}

// Resolve looks up the term behind a dictionary ID.
func (s *BadgerStore) Resolve(id algebra.TermID) (algebra.Term, bool) {
	s.dictMu.RLock()
	defer s.dictMu.RUnlock()
	t, ok := s.terms[id]
	return t, ok
}

func tripleKey(s, p, o algebra.Term) []byte {
	return []byte("spo:" + s.String() + "|" + p.String() + "|" + o.String())
}

// Snapshot reports the store's current statistics (§3.5).
func (s *BadgerStore) Snapshot() stats.Snapshot {
	s.histMu.Lock()
	hist := make(map[string]int64, len(s.histogram))
	for k, v := range s.histogram {
		hist[k] = v
	}
	s.histMu.Unlock()

	return stats.Snapshot{
		TripleCount:        s.tripleCount.Load(),
		DistinctSubjects:   s.distinctSubjects.Load(),
		DistinctPredicates: s.distinctPredicates.Load(),
		DistinctObjects:    s.distinctObjects.Load(),
		PredicateHistogram: hist,
	}
}

func (s *BadgerStore) recordInsert(subj, pred, obj algebra.Term) {
	s.tripleCount.Add(1)

	s.seenMu.Lock()
	if !s.seenSubjects[subj.String()] {
		s.seenSubjects[subj.String()] = true
		s.distinctSubjects.Add(1)
	}
	if !s.seenPredicates[pred.String()] {
		s.seenPredicates[pred.String()] = true
		s.distinctPredicates.Add(1)
	}
	if !s.seenObjects[obj.String()] {
		s.seenObjects[obj.String()] = true
		s.distinctObjects.Add(1)
	}
	s.seenMu.Unlock()

	s.histMu.Lock()
	s.histogram[pred.String()]++
	s.histMu.Unlock()
}

func (s *BadgerStore) recordDelete(pred algebra.Term) {
	s.tripleCount.Add(-1)
	s.histMu.Lock()
	if s.histogram[pred.String()] > 0 {
		s.histogram[pred.String()]--
	}
	s.histMu.Unlock()
}

// NewWriter opens a single badger transaction backing one atomic commit
// (§4.8): no mutation is visible to readers until Commit succeeds.
func (s *BadgerStore) NewWriter() Writer {
	return &badgerWriter{store: s, txn: s.db.NewTransaction(true)}
}

type pendingOp struct {
	insert     bool
	s, p, o    algebra.Term
}

type badgerWriter struct {
	store   *BadgerStore
	txn     *badger.Txn
	pending []pendingOp
}

func (w *badgerWriter) InsertTriple(s, p, o algebra.Term) error {
	key := tripleKey(s, p, o)
	if _, err := w.txn.Get(key); err == nil {
		return nil // already present: dedup semantics, not an error
	} else if err != badger.ErrKeyNotFound {
		return fmt.Errorf("insert triple lookup: %w", err)
	}
	if err := w.txn.Set(key, nil); err != nil {
		return fmt.Errorf("insert triple: %w", err)
	}
	w.pending = append(w.pending, pendingOp{insert: true, s: s, p: p, o: o})
	return nil
}

func (w *badgerWriter) DeleteTriple(s, p, o algebra.Term) error {
	key := tripleKey(s, p, o)
	if _, err := w.txn.Get(key); err == badger.ErrKeyNotFound {
		return nil // absent: nothing to delete
	} else if err != nil {
		return fmt.Errorf("delete triple lookup: %w", err)
	}
	if err := w.txn.Delete(key); err != nil {
		return fmt.Errorf("delete triple: %w", err)
	}
	w.pending = append(w.pending, pendingOp{insert: false, s: s, p: p, o: o})
	return nil
}

// Commit flushes the transaction; on success, statistics counters are
// updated to reflect exactly the mutations that were actually applied.
func (w *badgerWriter) Commit() error {
	if err := w.txn.Commit(); err != nil {
		return fmt.Errorf("commit write batch: %w", err)
	}
	for _, op := range w.pending {
		if op.insert {
			w.store.recordInsert(op.s, op.p, op.o)
		} else {
			w.store.recordDelete(op.p)
		}
	}
	return nil
}

// Discard abandons the transaction without applying any mutation.
func (w *badgerWriter) Discard() {
	w.txn.Discard()
}
