package update

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sparqlplan/queryplan/algebra"
	"github.com/sparqlplan/queryplan/cache"
	"github.com/sparqlplan/queryplan/store"
)

type fakeWriter struct {
	inserted, deleted [][3]algebra.Term
	committed         bool
	discarded         bool
	failCommit        bool
}

func (w *fakeWriter) InsertTriple(s, p, o algebra.Term) error {
	w.inserted = append(w.inserted, [3]algebra.Term{s, p, o})
	return nil
}

func (w *fakeWriter) DeleteTriple(s, p, o algebra.Term) error {
	w.deleted = append(w.deleted, [3]algebra.Term{s, p, o})
	return nil
}

var errBoom = errors.New("commit failed")

func (w *fakeWriter) Commit() error {
	if w.failCommit {
		return errBoom
	}
	w.committed = true
	return nil
}

func (w *fakeWriter) Discard() { w.discarded = true }

func newFakeExecutor(w *fakeWriter, c *cache.Cache) *Executor {
	return NewExecutor(func() store.Writer { return w }, c)
}

func n(iri string) algebra.NamedNode { return algebra.NamedNode{IRI: iri} }

func TestInsertDataAppliesAndCommits(t *testing.T) {
	w := &fakeWriter{}
	c := cache.New(cache.DefaultConfig("t"))
	e := newFakeExecutor(w, c)

	op := Operation{Type: OpInsertData, InsertTemplate: []algebra.TriplePattern{
		{Subject: n("http://example.org/s"), Predicate: n("http://example.org/p"), Object: n("http://example.org/o")},
	}}
	res, err := e.Execute(op)
	require.NoError(t, err)
	require.True(t, res.OK)
	require.Equal(t, 1, res.Count)
	require.True(t, w.committed)
	require.Len(t, w.inserted, 1)
}

func TestInsertDataRejectsVariableTemplates(t *testing.T) {
	w := &fakeWriter{}
	c := cache.New(cache.DefaultConfig("t"))
	e := newFakeExecutor(w, c)

	op := Operation{Type: OpInsertData, InsertTemplate: []algebra.TriplePattern{
		{Subject: algebra.Variable{Name: "s"}, Predicate: n("http://example.org/p"), Object: n("http://example.org/o")},
	}}
	_, err := e.Execute(op)
	require.Error(t, err)
	require.False(t, w.committed)
}

func TestFailedValidationNeverOpensWriter(t *testing.T) {
	w := &fakeWriter{}
	c := cache.New(cache.DefaultConfig("t"))
	opened := false
	e := NewExecutor(func() store.Writer {
		opened = true
		return w
	}, c)

	_, err := e.Execute(Operation{Type: OpInsertData})
	require.Error(t, err)
	require.False(t, opened, "a validation failure must never open a writer")
}

func TestCommitFailureInvalidatesNothing(t *testing.T) {
	w := &fakeWriter{failCommit: true}
	c := cache.New(cache.DefaultConfig("t"))
	_, _ = c.GetOrCompute("k", func() (interface{}, error) { return 1, nil })
	e := newFakeExecutor(w, c)

	op := Operation{Type: OpInsertData, InsertTemplate: []algebra.TriplePattern{
		{Subject: n("http://example.org/s"), Predicate: n("http://example.org/p"), Object: n("http://example.org/o")},
	}}
	_, err := e.Execute(op)
	require.Error(t, err)
	require.Equal(t, 1, c.Size(), "a failed commit must not touch the cache")
}

func TestSuccessfulUpdateInvalidatesCache(t *testing.T) {
	w := &fakeWriter{}
	c := cache.New(cache.DefaultConfig("t"))
	_, _ = c.GetOrCompute("k", func() (interface{}, error) { return 1, nil })
	e := newFakeExecutor(w, c)

	op := Operation{Type: OpInsertData, InsertTemplate: []algebra.TriplePattern{
		{Subject: n("http://example.org/s"), Predicate: n("http://example.org/p"), Object: n("http://example.org/o")},
	}}
	_, err := e.Execute(op)
	require.NoError(t, err)
	require.Equal(t, 0, c.Size())
}

func TestDeleteInsertSubstitutesBindingsPerRow(t *testing.T) {
	w := &fakeWriter{}
	c := cache.New(cache.DefaultConfig("t"))
	e := newFakeExecutor(w, c)

	op := Operation{
		Type:           OpDeleteInsert,
		DeleteTemplate: []algebra.TriplePattern{{Subject: algebra.Variable{Name: "s"}, Predicate: n("http://example.org/age"), Object: algebra.Variable{Name: "old"}}},
		InsertTemplate: []algebra.TriplePattern{{Subject: algebra.Variable{Name: "s"}, Predicate: n("http://example.org/age"), Object: algebra.Variable{Name: "new"}}},
		Bindings: []Binding{
			{"s": n("http://example.org/alice"), "old": algebra.Literal{Lexical: "30", Kind: algebra.SimpleLiteral}, "new": algebra.Literal{Lexical: "31", Kind: algebra.SimpleLiteral}},
		},
	}
	res, err := e.Execute(op)
	require.NoError(t, err)
	require.Equal(t, 2, res.Count)
	require.Len(t, w.deleted, 1)
	require.Len(t, w.inserted, 1)
}

func TestBlankNodeSkolemizationIsConsistentWithinOneTemplateApplication(t *testing.T) {
	w := &fakeWriter{}
	c := cache.New(cache.DefaultConfig("t"))
	e := newFakeExecutor(w, c)

	op := Operation{Type: OpInsertData, InsertTemplate: []algebra.TriplePattern{
		{Subject: algebra.BlankNode{Label: "b0"}, Predicate: n("http://example.org/knows"), Object: n("http://example.org/bob")},
		{Subject: algebra.BlankNode{Label: "b0"}, Predicate: n("http://example.org/name"), Object: n("http://example.org/x")},
	}}
	_, err := e.Execute(op)
	require.NoError(t, err)
	require.Equal(t, w.inserted[0][0], w.inserted[1][0], "the same blank-node label must skolemize to the same fresh term")
}

func TestExecuteAllCommitsAllOperationsInOneWriter(t *testing.T) {
	w := &fakeWriter{}
	c := cache.New(cache.DefaultConfig("t"))
	e := newFakeExecutor(w, c)

	ops := []Operation{
		{Type: OpDeleteData, DeleteTemplate: []algebra.TriplePattern{
			{Subject: n("http://example.org/alice"), Predicate: n("http://example.org/age"), Object: algebra.Literal{Lexical: "30", Kind: algebra.SimpleLiteral}},
		}},
		{Type: OpInsertData, InsertTemplate: []algebra.TriplePattern{
			{Subject: n("http://example.org/alice"), Predicate: n("http://example.org/age"), Object: algebra.Literal{Lexical: "31", Kind: algebra.SimpleLiteral}},
		}},
	}

	res, err := e.ExecuteAll(ops)
	require.NoError(t, err)
	require.Equal(t, 2, res.Count)
	require.Len(t, w.deleted, 1)
	require.Len(t, w.inserted, 1)
	require.True(t, w.committed)
}

func TestExecuteAllRollsBackEverythingOnCommitFailure(t *testing.T) {
	w := &fakeWriter{failCommit: true}
	c := cache.New(cache.DefaultConfig("t"))
	e := newFakeExecutor(w, c)

	ops := []Operation{
		{Type: OpDeleteData, DeleteTemplate: []algebra.TriplePattern{
			{Subject: n("http://example.org/alice"), Predicate: n("http://example.org/age"), Object: algebra.Literal{Lexical: "30", Kind: algebra.SimpleLiteral}},
		}},
		{Type: OpInsertData, InsertTemplate: []algebra.TriplePattern{
			{Subject: n("http://example.org/alice"), Predicate: n("http://example.org/age"), Object: algebra.Literal{Lexical: "31", Kind: algebra.SimpleLiteral}},
		}},
	}

	_, err := e.ExecuteAll(ops)
	require.Error(t, err)
	require.False(t, w.committed, "a second operation's commit failure must not leave the first operation's writes committed")
}

func TestExecuteAllValidatesEveryOperationBeforeOpeningWriter(t *testing.T) {
	opened := false
	w := &fakeWriter{}
	c := cache.New(cache.DefaultConfig("t"))
	e := NewExecutor(func() store.Writer {
		opened = true
		return w
	}, c)

	ops := []Operation{
		{Type: OpInsertData, InsertTemplate: []algebra.TriplePattern{
			{Subject: n("http://example.org/s"), Predicate: n("http://example.org/p"), Object: n("http://example.org/o")},
		}},
		{Type: OpInsertData}, // invalid: empty template
	}

	_, err := e.ExecuteAll(ops)
	require.Error(t, err)
	require.False(t, opened, "a later operation's validation failure must prevent any writer from being opened")
}

func TestClearValidatesGraphTermUnlessSilent(t *testing.T) {
	w := &fakeWriter{}
	c := cache.New(cache.DefaultConfig("t"))
	e := newFakeExecutor(w, c)

	_, err := e.Execute(Operation{Type: OpClear})
	require.Error(t, err)

	res, err := e.Execute(Operation{Type: OpClear, Silent: true})
	require.NoError(t, err)
	require.True(t, res.OK)
}
