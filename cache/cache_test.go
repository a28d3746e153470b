package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sparqlplan/queryplan/algebra"
)

func bgpPattern(s, p, o string) *algebra.BGP {
	return algebra.NewBGP(algebra.TriplePattern{
		Subject:   algebra.Variable{Name: s},
		Predicate: algebra.NamedNode{IRI: p},
		Object:    algebra.Variable{Name: o},
	})
}

func TestCanonicalKeyIgnoresVariableSpelling(t *testing.T) {
	a := bgpPattern("subject", "http://example.org/p", "object")
	b := bgpPattern("s", "http://example.org/p", "o")
	require.Equal(t, CanonicalKey(a), CanonicalKey(b))
}

func TestCanonicalKeyDiffersOnStructure(t *testing.T) {
	a := bgpPattern("s", "http://example.org/p1", "o")
	b := bgpPattern("s", "http://example.org/p2", "o")
	require.NotEqual(t, CanonicalKey(a), CanonicalKey(b))
}

func TestGetOrComputeCachesResult(t *testing.T) {
	c := New(DefaultConfig("test"))
	calls := int64(0)
	compute := func() (interface{}, error) {
		atomic.AddInt64(&calls, 1)
		return "plan", nil
	}

	for i := 0; i < 10; i++ {
		v, err := c.GetOrCompute("key", compute)
		require.NoError(t, err)
		require.Equal(t, "plan", v)
	}

	require.Equal(t, int64(1), calls)
	stats := c.StatsSnapshot()
	require.Equal(t, int64(1), stats.Misses)
	require.Equal(t, int64(9), stats.Hits)
	require.InDelta(t, 0.9, stats.HitRate, 1e-9)
}

func TestGetOrComputeSingleFlightUnderConcurrency(t *testing.T) {
	c := New(DefaultConfig("test"))
	var calls int64
	release := make(chan struct{})
	compute := func() (interface{}, error) {
		atomic.AddInt64(&calls, 1)
		<-release
		return "plan", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.GetOrCompute("shared-key", compute)
			require.NoError(t, err)
			require.Equal(t, "plan", v)
		}()
	}
	close(release)
	wg.Wait()

	require.Equal(t, int64(1), calls)
}

func TestGetOrComputePropagatesError(t *testing.T) {
	c := New(DefaultConfig("test"))
	wantErr := errors.New("boom")
	_, err := c.GetOrCompute("key", func() (interface{}, error) { return nil, wantErr })
	require.ErrorIs(t, err, wantErr)
	require.Equal(t, 0, c.Size(), "a failed compute must not populate the cache")
}

func TestLRUEvictsLeastRecentlyUsedAtCapacity(t *testing.T) {
	c := New(Config{Name: "test", MaxSize: 2})
	mustPut := func(key string) {
		_, err := c.GetOrCompute(key, func() (interface{}, error) { return key, nil })
		require.NoError(t, err)
	}

	mustPut("a")
	mustPut("b")
	_, ok := c.Get("a") // touch a, making b the least-recently-used
	require.True(t, ok)
	mustPut("c") // evicts b

	require.Equal(t, 2, c.Size())
	_, aOK := c.Get("a")
	_, bOK := c.Get("b")
	_, cOK := c.Get("c")
	require.True(t, aOK)
	require.False(t, bOK)
	require.True(t, cOK)
}

func TestInvalidateRemovesSingleKey(t *testing.T) {
	c := New(DefaultConfig("test"))
	_, _ = c.GetOrCompute("a", func() (interface{}, error) { return 1, nil })
	_, _ = c.GetOrCompute("b", func() (interface{}, error) { return 2, nil })

	c.Invalidate("a")

	_, aOK := c.Get("a")
	_, bOK := c.Get("b")
	require.False(t, aOK)
	require.True(t, bOK)
}

func TestInvalidateAllClearsEverything(t *testing.T) {
	c := New(DefaultConfig("test"))
	_, _ = c.GetOrCompute("a", func() (interface{}, error) { return 1, nil })
	c.InvalidateAll()
	require.Equal(t, 0, c.Size())
}
