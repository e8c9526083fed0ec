package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stepwise-dev/stepwise/store"
)

func newManager() *Manager {
	return NewManager(store.NewLRUStore(store.NewMemoryStore(), 8))
}

// countingStore wraps a Store and tallies traffic, so tests can tell a
// cache hit from a recomputation.
type countingStore struct {
	store.Store
	puts int
	gets int
}

func (c *countingStore) Put(key store.Hash, item store.Serde) error {
	c.puts++
	return c.Store.Put(key, item)
}

func (c *countingStore) Get(key store.Hash, into store.Serde) (bool, error) {
	c.gets++
	return c.Store.Get(key, into)
}

func TestOpenReusesCachedTrace(t *testing.T) {
	cs := &countingStore{Store: store.NewMemoryStore()}
	m := NewManager(cs)
	code := "x = 0\nfor i in range(3):\n    x += i"

	first := m.Open(code)
	require.Equal(t, 1, cs.puts)

	second := m.Open(code)
	assert.Equal(t, 1, cs.puts, "a cache hit must not recompute and rewrite the trace")
	assert.Equal(t, 2, cs.gets)
	assert.NotEqual(t, first.ID, second.ID)
	require.Equal(t, len(first.Debugger.Trace()), len(second.Debugger.Trace()))

	// The restored debugger steps and resets like a fresh one.
	var fresh, restored []int
	for !first.Debugger.Finished() {
		first.Debugger.Step()
		fresh = append(fresh, first.Debugger.State().CurrentLine)
	}
	for !second.Debugger.Finished() {
		second.Debugger.Step()
		restored = append(restored, second.Debugger.State().CurrentLine)
	}
	assert.Equal(t, fresh, restored)

	second.Debugger.Reset()
	assert.False(t, second.Debugger.Finished())
}

func TestOpenGetClose(t *testing.T) {
	m := newManager()
	sess := m.Open("x = 1\ny = x + 1")
	require.NotEmpty(t, sess.ID)
	require.NotNil(t, sess.Debugger)
	assert.False(t, sess.Created.IsZero())

	got, ok := m.Get(sess.ID)
	require.True(t, ok)
	assert.Same(t, sess, got)

	assert.True(t, m.Close(sess.ID))
	_, ok = m.Get(sess.ID)
	assert.False(t, ok)
	assert.False(t, m.Close(sess.ID))
}

func TestSessionIDsAreUnique(t *testing.T) {
	m := newManager()
	a := m.Open("x = 1")
	b := m.Open("x = 1")
	assert.NotEqual(t, a.ID, b.ID)
}

func TestCachedTrace(t *testing.T) {
	m := newManager()
	code := "x = 1\nprint(x)"
	_, ok := m.CachedTrace(code)
	assert.False(t, ok)

	sess := m.Open(code)
	entry, ok := m.CachedTrace(code)
	require.True(t, ok)
	assert.Equal(t, code, entry.Source)
	assert.Equal(t, sess.Debugger.Lines(), entry.Lines)
	assert.Len(t, entry.Snapshots, len(sess.Debugger.Trace()))

	_, ok = m.CachedTrace("y = 2")
	assert.False(t, ok)
}

func TestOpenDerivesWhitelist(t *testing.T) {
	m := newManager()
	sess := m.Open("x = 1\nsecret_read = x")
	var sawX bool
	for _, snap := range sess.Debugger.Trace() {
		if _, ok := snap.Locals["x"]; ok {
			sawX = true
		}
	}
	assert.True(t, sawX, "statically bound names should surface without an explicit whitelist")
}

func TestWhitelistSorted(t *testing.T) {
	got := Whitelist("b = 1\na = 2\nfor i in range(2):\n    c = i\n")
	assert.Equal(t, []string{"a", "b", "c", "i"}, got)
}

func TestWhitelistOnBadSource(t *testing.T) {
	assert.Empty(t, Whitelist("def broken(:"))
}
