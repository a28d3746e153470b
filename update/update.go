// Package update implements the SPARQL Update executor (§4.8): every
// operation in one UPDATE's ops sequence is staged against a single
// store.Writer and committed once, so a downstream operation's failure
// rolls back the whole batch; plan-cache invalidation happens strictly
// after that single successful commit. Evaluating a WHERE clause's
// bindings against live data is an external collaborator's job (§1);
// this package accepts already-evaluated pre-update-state bindings for
// delete_insert's template substitution.
package update

import (
	"fmt"

	"github.com/pborman/uuid"

	"github.com/sparqlplan/queryplan/algebra"
	"github.com/sparqlplan/queryplan/cache"
	"github.com/sparqlplan/queryplan/errs"
	"github.com/sparqlplan/queryplan/store"
)

// OpType is the SPARQL Update operation kind (§4.8).
type OpType uint8

const (
	OpInsertData OpType = iota
	OpDeleteData
	OpDeleteInsert
	OpLoad
	OpClear
	OpDrop
	OpCreate
)

func (t OpType) String() string {
	switch t {
	case OpInsertData:
		return "insert_data"
	case OpDeleteData:
		return "delete_data"
	case OpDeleteInsert:
		return "delete_insert"
	case OpLoad:
		return "load"
	case OpClear:
		return "clear"
	case OpDrop:
		return "drop"
	case OpCreate:
		return "create"
	default:
		return "unknown"
	}
}

// Binding maps a variable name to the concrete term bound to it in one
// result row, evaluated against the pre-update state of the store.
type Binding map[string]algebra.Term

// Operation is one SPARQL Update request (§4.8). Which fields apply
// depends on Type: insert_data/delete_data use InsertTemplate/
// DeleteTemplate with no variables; delete_insert uses both templates
// substituted per row of Bindings; load/clear/drop/create use GraphTerm.
type Operation struct {
	Type           OpType
	InsertTemplate []algebra.TriplePattern
	DeleteTemplate []algebra.TriplePattern
	Bindings       []Binding
	GraphTerm      algebra.Term
	Silent         bool
}

// Result is the {ok, count} shape every operation returns on success.
type Result struct {
	OK    bool
	Count int
}

// Executor applies Operations against a storage Writer, invalidating a
// plan cache after each successful commit.
type Executor struct {
	NewWriter func() store.Writer
	Cache     *cache.Cache
}

// NewExecutor constructs an Executor backed by newWriter, invalidating
// cache after every successful commit.
func NewExecutor(newWriter func() store.Writer, cache *cache.Cache) *Executor {
	return &Executor{NewWriter: newWriter, Cache: cache}
}

// Execute validates and applies op atomically: on any validation failure
// no writer is even opened, so the store and cache are left untouched.
// It is a single-operation call to ExecuteAll, so a lone operation gets
// the same one-writer/one-commit guarantee as a multi-operation UPDATE.
func (e *Executor) Execute(op Operation) (*Result, error) {
	return e.ExecuteAll([]Operation{op})
}

// ExecuteAll validates every operation in ops before touching storage,
// then gathers every operation's writes into a single write batch
// committed atomically through one store.Writer (§4.8 step 2-3): a
// storage-level failure on any operation rolls back every write already
// staged by the operations before it, and no operation's write is
// visible until the whole batch commits.
func (e *Executor) ExecuteAll(ops []Operation) (*Result, error) {
	for _, op := range ops {
		if err := validate(op); err != nil {
			return nil, err
		}
	}

	return e.runWrite(func(w store.Writer) (int, error) {
		total := 0
		for _, op := range ops {
			n, err := applyOp(w, op)
			if err != nil {
				return 0, err
			}
			total += n
		}
		return total, nil
	})
}

// applyOp stages op's writes against w, returning the number of affected
// triples.
func applyOp(w store.Writer, op Operation) (int, error) {
	switch op.Type {
	case OpInsertData:
		return applyTemplate(w, op.InsertTemplate, nil, insertOp)
	case OpDeleteData:
		return applyTemplate(w, op.DeleteTemplate, nil, deleteOp)
	case OpDeleteInsert:
		total := 0
		for _, binding := range op.Bindings {
			n, err := applyTemplate(w, op.DeleteTemplate, binding, deleteOp)
			if err != nil {
				return 0, err
			}
			total += n
			n, err = applyTemplate(w, op.InsertTemplate, binding, insertOp)
			if err != nil {
				return 0, err
			}
			total += n
		}
		return total, nil
	case OpClear, OpDrop, OpCreate, OpLoad:
		// Graph-level administration is out of this planning core's
		// storage model (§1); the operation validates and contributes no
		// write to the batch.
		return 0, nil
	default:
		return 0, errs.Update("unknown operation type %v", op.Type)
	}
}

func validate(op Operation) error {
	switch op.Type {
	case OpInsertData:
		if len(op.InsertTemplate) == 0 {
			return errs.Update("insert_data requires a non-empty template")
		}
		if err := requireGround(op.InsertTemplate); err != nil {
			return err
		}
	case OpDeleteData:
		if len(op.DeleteTemplate) == 0 {
			return errs.Update("delete_data requires a non-empty template")
		}
		if err := requireGround(op.DeleteTemplate); err != nil {
			return err
		}
	case OpDeleteInsert:
		if len(op.DeleteTemplate) == 0 && len(op.InsertTemplate) == 0 {
			return errs.Update("delete_insert requires at least one of delete/insert template")
		}
	case OpClear, OpDrop, OpCreate:
		if op.GraphTerm == nil && !op.Silent {
			return errs.Update("%s requires a graph term unless SILENT", op.Type)
		}
	case OpLoad:
		if op.GraphTerm == nil {
			return errs.Update("load requires a source graph term")
		}
	default:
		return errs.Update("unknown operation type %v", op.Type)
	}
	return nil
}

// requireGround rejects templates containing variables: insert_data and
// delete_data operate on fully bound triples only (§4.8).
func requireGround(patterns []algebra.TriplePattern) error {
	for _, p := range patterns {
		if len(p.Variables()) > 0 {
			return errs.Update("template contains unbound variable(s) in %s", p.String())
		}
	}
	return nil
}

type rowOp int

const (
	insertOp rowOp = iota
	deleteOp
)

// applyTemplate substitutes binding (if non-nil) into each pattern and
// applies op against w, skolemizing blank nodes freshly per call so each
// matched row gets its own fresh blank nodes (§4.8).
func applyTemplate(w store.Writer, patterns []algebra.TriplePattern, binding Binding, op rowOp) (int, error) {
	skolem := map[string]algebra.Term{}
	count := 0
	for _, p := range patterns {
		s, err := resolveTerm(p.Subject, binding, skolem)
		if err != nil {
			return 0, err
		}
		pr, err := resolveTerm(p.Predicate, binding, skolem)
		if err != nil {
			return 0, err
		}
		o, err := resolveTerm(p.Object, binding, skolem)
		if err != nil {
			return 0, err
		}

		switch op {
		case insertOp:
			if err := w.InsertTriple(s, pr, o); err != nil {
				return 0, errs.Wrap(errs.KindUpdate, err, "insert triple")
			}
		case deleteOp:
			if err := w.DeleteTriple(s, pr, o); err != nil {
				return 0, errs.Wrap(errs.KindUpdate, err, "delete triple")
			}
		}
		count++
	}
	return count, nil
}

// resolveTerm substitutes a variable via binding, mints a fresh
// skolemized term per distinct blank-node label (memoized in skolem so
// repeated uses of the same label within one template application
// co-refer), and passes already-ground terms through unchanged.
func resolveTerm(t algebra.Term, binding Binding, skolem map[string]algebra.Term) (algebra.Term, error) {
	switch v := t.(type) {
	case algebra.Variable:
		if binding == nil {
			return nil, errs.Update("variable ?%s has no binding", v.Name)
		}
		bound, ok := binding[v.Name]
		if !ok {
			return nil, errs.Update("variable ?%s is unbound in this row", v.Name)
		}
		return bound, nil
	case algebra.BlankNode:
		if existing, ok := skolem[v.Label]; ok {
			return existing, nil
		}
		fresh := algebra.NamedNode{IRI: fmt.Sprintf("urn:sparqlplan:skolem:%s", uuid.New())}
		skolem[v.Label] = fresh
		return fresh, nil
	default:
		return t, nil
	}
}

func (e *Executor) runWrite(fn func(store.Writer) (int, error)) (*Result, error) {
	w := e.NewWriter()
	count, err := fn(w)
	if err != nil {
		w.Discard()
		return nil, err
	}
	if err := w.Commit(); err != nil {
		return nil, errs.Wrap(errs.KindUpdate, err, "commit update")
	}
	if e.Cache != nil {
		e.Cache.InvalidateAll()
	}
	return &Result{OK: true, Count: count}, nil
}
