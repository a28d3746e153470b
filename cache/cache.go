// Package cache implements the bounded, concurrent plan cache (§4.7, §5):
// structurally-equivalent query trees collide on one canonical key, an LRU
// policy bounds memory, and golang.org/x/sync/singleflight ensures a given
// key's plan is computed exactly once even under concurrent callers.
package cache

import (
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/sparqlplan/queryplan/algebra"
	"github.com/sparqlplan/queryplan/expr"
)

// Config bundles a named cache's capacity.
type Config struct {
	Name    string
	MaxSize int
}

// DefaultConfig matches the teacher's planner cache default of 1000
// entries (§9).
func DefaultConfig(name string) Config {
	return Config{Name: name, MaxSize: 1000}
}

type entry struct {
	key        string
	value      interface{}
	prev, next *entry
}

// Cache is a bounded LRU plan cache with single-flight compute-once
// semantics.
type Cache struct {
	cfg   Config
	mu    sync.Mutex
	items map[string]*entry
	head  *entry // most recently used
	tail  *entry // least recently used

	hits, misses int64

	group singleflight.Group
}

// New constructs an empty cache. A non-positive MaxSize falls back to
// DefaultConfig's 1000.
func New(cfg Config) *Cache {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 1000
	}
	return &Cache{cfg: cfg, items: make(map[string]*entry, cfg.MaxSize)}
}

// Get returns the cached value for key, promoting it to most-recently-used.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.moveToFront(e)
	return e.value, true
}

// GetOrCompute returns the cached value for key, computing and storing it
// via compute exactly once across any number of concurrent callers racing
// on the same key.
func (c *Cache) GetOrCompute(key string, compute func() (interface{}, error)) (interface{}, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		// A flight that finished between our Get and this Do has already
		// stored the value; reuse it instead of computing a second time.
		c.mu.Lock()
		if e, ok := c.items[key]; ok {
			c.mu.Unlock()
			return e.value, nil
		}
		c.mu.Unlock()
		val, err := compute()
		if err != nil {
			return nil, err
		}
		c.put(key, val)
		return val, nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (c *Cache) put(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.items[key] = e
	c.pushFront(e)

	if len(c.items) > c.cfg.MaxSize {
		c.evictOldest()
	}
}

// Invalidate removes a single key from the cache; absent keys are a no-op.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.items[key]; ok {
		c.unlink(e)
		delete(c.items, key)
	}
}

// InvalidateAll empties the cache (§4.8's commit-then-invalidate contract).
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*entry, c.cfg.MaxSize)
	c.head, c.tail = nil, nil
}

// Size returns the current entry count.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats is a point-in-time read of cache hit/miss counters.
type Stats struct {
	Size    int
	Hits    int64
	Misses  int64
	HitRate float64
}

// StatsSnapshot reports the cache's current size and cumulative hit rate.
func (c *Cache) StatsSnapshot() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := c.hits + c.misses
	rate := 0.0
	if total > 0 {
		rate = float64(c.hits) / float64(total)
	}
	return Stats{Size: len(c.items), Hits: c.hits, Misses: c.misses, HitRate: rate}
}

func (c *Cache) moveToFront(e *entry) {
	if c.head == e {
		return
	}
	c.unlink(e)
	c.pushFront(e)
}

func (c *Cache) pushFront(e *entry) {
	e.prev, e.next = nil, c.head
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *Cache) unlink(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
	e.prev, e.next = nil, nil
}

func (c *Cache) evictOldest() {
	if c.tail == nil {
		return
	}
	oldest := c.tail
	c.unlink(oldest)
	delete(c.items, oldest.key)
}

// CanonicalKey computes a structural cache key for n: variable names in
// triple patterns, paths, VALUES, project lists and extend targets are
// renamed to v0, v1, ... in first-appearance order, so two such trees that
// differ only in variable spelling collide on the same entry. Variables
// inside filter and extend expressions are not renamed: those expressions
// enter the key with their original variable names.
func CanonicalKey(n algebra.Node) string {
	r := &renamer{names: make(map[string]string)}
	return canonicalString(n, r)
}

type renamer struct {
	names map[string]string
	next  int
}

func (r *renamer) name(orig string) string {
	if n, ok := r.names[orig]; ok {
		return n
	}
	n := fmt.Sprintf("v%d", r.next)
	r.next++
	r.names[orig] = n
	return n
}

func termString(t algebra.Term, r *renamer) string {
	if t == nil {
		return "undef"
	}
	if v, ok := t.(algebra.Variable); ok {
		return "?" + r.name(v.Name)
	}
	return t.String()
}

func canonicalString(n algebra.Node, r *renamer) string {
	switch t := n.(type) {
	case *algebra.BGP:
		s := "bgp("
		for i, p := range t.Patterns {
			if i > 0 {
				s += ","
			}
			s += fmt.Sprintf("[%s %s %s]", termString(p.Subject, r), termString(p.Predicate, r), termString(p.Object, r))
		}
		return s + ")"
	case *algebra.Join:
		return fmt.Sprintf("join(%s,%s)", canonicalString(t.Left, r), canonicalString(t.Right, r))
	case *algebra.LeftJoin:
		return fmt.Sprintf("left_join(%s,%s)", canonicalString(t.Left, r), canonicalString(t.Right, r))
	case *algebra.Minus:
		return fmt.Sprintf("minus(%s,%s)", canonicalString(t.Left, r), canonicalString(t.Right, r))
	case *algebra.Union:
		return fmt.Sprintf("union(%s,%s)", canonicalString(t.Left, r), canonicalString(t.Right, r))
	case *algebra.Filter:
		return fmt.Sprintf("filter(%s,%s)", canonicalExprString(t.Expr, r), canonicalString(t.Child, r))
	case *algebra.Extend:
		return fmt.Sprintf("extend(%s,%s,%s)", canonicalString(t.Child, r), r.name(t.Target.Name), canonicalExprString(t.Expr, r))
	case *algebra.Group:
		return fmt.Sprintf("group(%s,%d)", canonicalString(t.Child, r), len(t.Aggregates))
	case *algebra.Project:
		names := make([]string, len(t.Vars))
		for i, v := range t.Vars {
			names[i] = r.name(v.Name)
		}
		return fmt.Sprintf("project(%s,%v)", canonicalString(t.Child, r), names)
	case *algebra.Distinct:
		return fmt.Sprintf("distinct(%s)", canonicalString(t.Child, r))
	case *algebra.Reduced:
		return fmt.Sprintf("reduced(%s)", canonicalString(t.Child, r))
	case *algebra.OrderBy:
		return fmt.Sprintf("order_by(%s,%d)", canonicalString(t.Child, r), len(t.Conditions))
	case *algebra.Slice:
		return fmt.Sprintf("slice(%s,%d,%v)", canonicalString(t.Child, r), t.Offset, t.Limit)
	case *algebra.Values:
		names := make([]string, len(t.Variables))
		for i, v := range t.Variables {
			names[i] = r.name(v.Name)
		}
		return fmt.Sprintf("values(%v,%d rows)", names, len(t.Rows))
	case *algebra.Service:
		return fmt.Sprintf("service(%s,%s)", termString(t.Endpoint, r), canonicalString(t.Child, r))
	case *algebra.Graph:
		return fmt.Sprintf("graph(%s,%s)", termString(t.GraphTerm, r), canonicalString(t.Child, r))
	case *algebra.Path:
		return fmt.Sprintf("path(%s,%s,%s)", termString(t.Subject, r), t.Expr.String(), termString(t.Object, r))
	default:
		return "?"
	}
}

func canonicalExprString(e expr.Expression, r *renamer) string {
	if e == nil {
		return "nil"
	}
	// Expressions are keyed by their raw String() form; their variables
	// are not passed through the renamer.
	return e.String()
}
